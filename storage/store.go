package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filescope/events"
	"filescope/models"
)

// Store spiegelt jede committete Registry-Mutation nach PostgreSQL.
// Er wird als Event-Sink hinter dem Dispatcher betrieben, damit kein
// Datenbank-I/O im kritischen Abschnitt der Registry stattfindet.
// Zusätzlich zu den Dataset-Zeilen wird jedes Event ins Journal geschrieben.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewStore erstellt einen neuen Persistenz-Sink.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

func (s *Store) Name() string { return "postgres" }

// Deliver wendet ein Event auf die Datenbank an. Die Zustellung ist
// at-least-once; Konflikte auf bereits vorhandenen Zeilen werden ignoriert.
func (s *Store) Deliver(ctx context.Context, ev events.Event) error {
	db := s.DB.WithContext(ctx)

	if err := s.apply(db, ev); err != nil {
		return err
	}
	return s.journal(db, ev)
}

func (s *Store) apply(db *gorm.DB, ev events.Event) error {
	switch ev.Type {
	case events.TypeUploaded:
		rec := models.Dataset{
			ID:          ev.DatasetID,
			CreatedAt:   ev.OccurredAt,
			DatasetRef:  ev.DatasetRef,
			AnalysisRef: ev.AnalysisRef,
			Owner:       ev.Owner,
		}
		if ev.IsPublic != nil {
			rec.IsPublic = *ev.IsPublic
		}
		return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error

	case events.TypeAnalysisUpdated:
		return db.Model(&models.Dataset{}).
			Where("id = ?", ev.DatasetID).
			Update("analysis_ref", ev.AnalysisRef).Error

	case events.TypeVisibilityChanged:
		if ev.IsPublic == nil {
			return fmt.Errorf("visibility event %d without is_public payload", ev.Seq)
		}
		return db.Model(&models.Dataset{}).
			Where("id = ?", ev.DatasetID).
			Update("is_public", *ev.IsPublic).Error

	case events.TypeViewed:
		return s.bump(db, ev.DatasetID, "views")
	case events.TypeDownloaded:
		return s.bump(db, ev.DatasetID, "downloads")
	case events.TypeCited:
		return s.bump(db, ev.DatasetID, "citations")

	default:
		s.Logger.Warn("Unbekannter Event-Typ, wird nur journaliert", zap.String("type", string(ev.Type)))
		return nil
	}
}

func (s *Store) bump(db *gorm.DB, id uint64, column string) error {
	return db.Model(&models.Dataset{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

func (s *Store) journal(db *gorm.DB, ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	row := models.EventRecord{
		CreatedAt: time.Now().UTC(),
		EventID:   ev.ID.String(),
		Seq:       ev.Seq,
		Type:      string(ev.Type),
		DatasetID: ev.DatasetID,
		Payload:   payload,
	}
	// Unique-Index auf EventID macht die at-least-once Zustellung idempotent.
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// LoadAll liest alle persistierten Datasets aufsteigend nach ID, damit
// registry.Restore nach einem Neustart einen identischen Zustand aufbaut.
func LoadAll(db *gorm.DB) ([]models.Dataset, error) {
	var records []models.Dataset
	if err := db.Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
