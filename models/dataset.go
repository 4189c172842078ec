package models

import (
	"time"
)

// Dataset repräsentiert einen registrierten Datensatz und dessen abgeleitete Analyse.
// Die Content-Identifier zeigen auf einen externen content-addressed Store;
// die Registry behandelt sie als opake Werte.
type Dataset struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`

	// Content-Identifier (DatasetRef ist nach der Registrierung unveränderlich)
	DatasetRef  string `json:"dataset_ref" gorm:"column:dataset_ref;uniqueIndex;not null"`
	AnalysisRef string `json:"analysis_ref,omitempty" gorm:"column:analysis_ref"`

	// Besitz & Sichtbarkeit
	Owner    string `json:"owner" gorm:"index;not null"`
	IsPublic bool   `json:"is_public" gorm:"default:false"`

	// Nutzungszähler
	Views     uint64 `json:"views" gorm:"default:0"`
	Downloads uint64 `json:"downloads" gorm:"default:0"`
	Citations uint64 `json:"citations" gorm:"default:0"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Dataset) TableName() string {
	return "datasets"
}
