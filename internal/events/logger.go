// Package events provides helper functions for recording memer history.
package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencode-ai/memer/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Append(ctx context.Context, event *models.Event) error
}

// LogTemplatePulled records a template stored from origin at path.
func LogTemplatePulled(ctx context.Context, repo Repository, name, origin, path string) error {
	return logEvent(ctx, repo, models.EventTypeTemplatePulled, name, models.PullPayload{
		Origin: origin,
		Path:   path,
	})
}

// LogPullFailed records a pull request that could not be completed.
func LogPullFailed(ctx context.Context, repo Repository, name, origin string, cause error) error {
	if cause == nil {
		return fmt.Errorf("pull failure cause is required")
	}
	return logEvent(ctx, repo, models.EventTypeTemplatePullFailed, name, models.PullPayload{
		Origin: origin,
		Error:  cause.Error(),
	})
}

// LogTemplateForgotten records a pulled template being removed.
func LogTemplateForgotten(ctx context.Context, repo Repository, name, origin, path string) error {
	return logEvent(ctx, repo, models.EventTypeTemplateForgotten, name, models.PullPayload{
		Origin: origin,
		Path:   path,
	})
}

// LogMemeCreated records a rendered meme.
func LogMemeCreated(ctx context.Context, repo Repository, payload models.MemeCreatedPayload) error {
	if strings.TrimSpace(payload.Output) == "" {
		return fmt.Errorf("output path is required")
	}
	return logEvent(ctx, repo, models.EventTypeMemeCreated, payload.Template, payload)
}

func logEvent(ctx context.Context, repo Repository, eventType models.EventType, subject string, payload any) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("event subject is required")
	}

	event, err := models.NewEvent(eventType, subject, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return repo.Append(ctx, event)
}
