package events

import (
	"time"

	"github.com/google/uuid"
)

// Type benennt die Art einer Registry-Notification.
type Type string

const (
	TypeUploaded          Type = "uploaded"
	TypeAnalysisUpdated   Type = "analysis_updated"
	TypeVisibilityChanged Type = "visibility_changed"
	TypeViewed            Type = "viewed"
	TypeDownloaded        Type = "downloaded"
	TypeCited             Type = "cited"
)

// Event ist eine einzelne Notification über eine erfolgreiche Mutation.
// Seq wird von der Registry lückenlos aufsteigend vergeben und definiert
// die Reihenfolge, in der Sinks die Events sehen müssen.
type Event struct {
	ID         uuid.UUID `json:"event_id"`
	Seq        uint64    `json:"seq"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	DatasetID uint64 `json:"dataset_id"`

	// Payload-Felder, je nach Typ gesetzt
	Owner       string `json:"owner,omitempty"`
	DatasetRef  string `json:"dataset_ref,omitempty"`
	AnalysisRef string `json:"analysis_ref,omitempty"`
	IsPublic    *bool  `json:"is_public,omitempty"`
}

// BoolPtr ist ein kleiner Helfer für das optionale IsPublic-Feld.
func BoolPtr(b bool) *bool { return &b }
