package registry

import (
	"fmt"

	"go.uber.org/zap"

	"filescope/models"
)

// Restore baut den Registry-Zustand aus persistierten Records wieder auf.
// Die Records müssen aufsteigend nach ID sortiert und lückenlos ab 0
// nummeriert sein, so wie die Registry sie selbst vergeben hat.
// Restore erwartet eine frische Registry und emittiert keine Events.
func (r *Registry) Restore(records []models.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextID != 0 {
		return fmt.Errorf("restore requires an empty registry, have %d records", r.nextID)
	}

	for i, rec := range records {
		if rec.ID != uint64(i) {
			return fmt.Errorf("non-contiguous dataset id %d at position %d", rec.ID, i)
		}
		if rec.DatasetRef == "" {
			return fmt.Errorf("dataset %d has empty dataset ref", rec.ID)
		}
		if _, exists := r.refSeen[rec.DatasetRef]; exists {
			return fmt.Errorf("duplicate dataset ref %q for dataset %d", rec.DatasetRef, rec.ID)
		}

		r.records[rec.ID] = rec
		r.refSeen[rec.DatasetRef] = struct{}{}
		r.ownerIndex[rec.Owner] = append(r.ownerIndex[rec.Owner], rec.ID)
		r.nextID = rec.ID + 1
	}

	r.logger.Info("Registry-Zustand wiederhergestellt", zap.Uint64("records", r.nextID))
	return nil
}
