package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventRecord ist das persistierte Journal einer Registry-Notification.
// Das Journal ist append-only; die Seq-Spalte spiegelt die Reihenfolge
// der Events wider, in der sie in der Registry aufgetreten sind.
type EventRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	EventID   string `json:"event_id" gorm:"uniqueIndex;size:36;not null"`
	Seq       uint64 `json:"seq" gorm:"index"`
	Type      string `json:"type" gorm:"index"`
	DatasetID uint64 `json:"dataset_id" gorm:"index"`

	Payload datatypes.JSON `json:"payload" gorm:"type:jsonb"`
}

// TableName gibt explizit den Tabellennamen an.
func (EventRecord) TableName() string {
	return "event_journal"
}
