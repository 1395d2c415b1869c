// Package models holds records persisted by the metadata store.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// EventType categorizes history events.
type EventType string

const (
	EventTypeTemplatePulled     EventType = "template.pulled"
	EventTypeTemplatePullFailed EventType = "template.pull_failed"
	EventTypeTemplateForgotten  EventType = "template.forgotten"
	EventTypeMemeCreated        EventType = "meme.created"
)

// ErrInvalidEvent is returned by Event.Validate.
var ErrInvalidEvent = errors.New("invalid event")

// Event is an append-only history entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Subject is the template name or path the event is about.
	Subject string `json:"subject"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the required fields.
func (e *Event) Validate() error {
	if strings.TrimSpace(string(e.Type)) == "" || strings.TrimSpace(e.Subject) == "" {
		return ErrInvalidEvent
	}
	return nil
}

// PullPayload is the payload for template.pulled and template.pull_failed events.
type PullPayload struct {
	Origin string `json:"origin"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// MemeCreatedPayload is the payload for meme.created events.
type MemeCreatedPayload struct {
	Template string `json:"template"`
	Output   string `json:"output"`
	Size     int    `json:"size"`
	Overflow bool   `json:"overflow,omitempty"`
}

// NewEvent builds an event with a JSON payload.
func NewEvent(eventType EventType, subject string, payload any) (*Event, error) {
	event := &Event{Type: eventType, Subject: subject}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Payload = data
	}
	return event, nil
}
