package models

import "time"

// TemplateRecord is stored metadata for a template file on disk.
type TemplateRecord struct {
	// ID is the unique identifier for the record.
	ID string `json:"id"`

	// Path is the absolute path of the image file.
	Path string `json:"path"`

	// Name is the display name; empty falls back to one derived from the file.
	Name string `json:"name"`

	// Key is an explicit short key; empty falls back to the path hash.
	Key string `json:"key,omitempty"`

	// Origin is where the file came from (URL or source path).
	Origin string `json:"origin,omitempty"`

	// PulledAt is when the file was stored.
	PulledAt time.Time `json:"pulled_at"`

	// Metadata contains probe results such as format and dimensions.
	Metadata map[string]string `json:"metadata,omitempty"`
}
