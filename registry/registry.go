// Package registry implementiert den Kern von FileScope: eine append-only
// Menge von Dataset-Records mit Duplikatsprüfung auf Content-Identifiern,
// Owner-gesteuerter Mutation, Sichtbarkeits-Checks und Nutzungszählern.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"filescope/events"
	"filescope/models"
)

var (
	// ErrInvalidRef wird zurückgegeben, wenn der Dataset-Ref leer ist.
	ErrInvalidRef = errors.New("dataset ref must not be empty")
	// ErrDuplicateRef wird zurückgegeben, wenn der Dataset-Ref bereits registriert ist.
	ErrDuplicateRef = errors.New("dataset ref already registered")
	// ErrNotFound wird zurückgegeben, wenn die ID unbekannt ist.
	ErrNotFound = errors.New("dataset not found")
	// ErrNotOwner wird zurückgegeben, wenn ein fremder Actor mutieren will.
	ErrNotOwner = errors.New("actor does not own dataset")
	// ErrAccessDenied wird zurückgegeben, wenn ein fremder Actor ein privates Dataset liest.
	ErrAccessDenied = errors.New("dataset is private")
)

// Emitter nimmt Notifications über erfolgreiche Mutationen entgegen.
// Die Zustellung an externe Sinks läuft außerhalb des kritischen Abschnitts.
type Emitter interface {
	Publish(ev events.Event)
}

// Registry hält den gesamten Zustand in-memory hinter einem RWMutex.
// Mutationen laufen exklusiv, Lesezugriffe parallel; kein Aufrufer sieht
// jemals eine halb angewendete Mutation.
type Registry struct {
	mu sync.RWMutex

	records    map[uint64]models.Dataset
	refSeen    map[string]struct{}
	ownerIndex map[string][]uint64
	nextID     uint64
	nextSeq    uint64

	emitter Emitter
	logger  *zap.Logger
	now     func() time.Time
}

// New erstellt eine leere Registry. Der Emitter darf nil sein (keine Events).
func New(logger *zap.Logger, emitter Emitter) *Registry {
	return &Registry{
		records:    make(map[uint64]models.Dataset),
		refSeen:    make(map[string]struct{}),
		ownerIndex: make(map[string][]uint64),
		emitter:    emitter,
		logger:     logger,
		now:        time.Now,
	}
}

// emit vergibt die nächste Sequenznummer und publiziert das Event.
// Muss unter gehaltenem Write-Lock aufgerufen werden, damit die
// Event-Reihenfolge der Mutations-Reihenfolge entspricht.
func (r *Registry) emit(ev events.Event) {
	if r.emitter == nil {
		return
	}
	r.nextSeq++
	ev.ID = uuid.New()
	ev.Seq = r.nextSeq
	ev.OccurredAt = r.now().UTC()
	r.emitter.Publish(ev)
}

// Upload registriert einen neuen Datensatz und gibt dessen ID zurück.
// IDs werden lückenlos aufsteigend ab 0 vergeben; der DatasetRef muss
// global eindeutig und nicht leer sein.
func (r *Registry) Upload(actor, datasetRef, analysisRef string, isPublic bool) (uint64, error) {
	if datasetRef == "" {
		return 0, ErrInvalidRef
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.refSeen[datasetRef]; exists {
		return 0, ErrDuplicateRef
	}

	id := r.nextID
	rec := models.Dataset{
		ID:          id,
		CreatedAt:   r.now().UTC(),
		DatasetRef:  datasetRef,
		AnalysisRef: analysisRef,
		Owner:       actor,
		IsPublic:    isPublic,
	}
	r.records[id] = rec
	r.refSeen[datasetRef] = struct{}{}
	r.ownerIndex[actor] = append(r.ownerIndex[actor], id)
	r.nextID++

	r.emit(events.Event{
		Type:        events.TypeUploaded,
		DatasetID:   id,
		Owner:       actor,
		DatasetRef:  datasetRef,
		AnalysisRef: analysisRef,
		IsPublic:    events.BoolPtr(isPublic),
	})
	return id, nil
}

// Get gibt eine Wert-Kopie des Records zurück. Private Records sind nur
// für ihren Owner sichtbar.
func (r *Registry) Get(actor string, id uint64) (models.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return models.Dataset{}, ErrNotFound
	}
	if !rec.IsPublic && rec.Owner != actor {
		return models.Dataset{}, ErrAccessDenied
	}
	return rec, nil
}

// UpdateAnalysis überschreibt den Analysis-Ref. Nur der Owner darf das.
func (r *Registry) UpdateAnalysis(actor string, id uint64, analysisRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Owner != actor {
		return ErrNotOwner
	}

	rec.AnalysisRef = analysisRef
	r.records[id] = rec

	r.emit(events.Event{
		Type:        events.TypeAnalysisUpdated,
		DatasetID:   id,
		AnalysisRef: analysisRef,
	})
	return nil
}

// SetVisibility schaltet das Public-Flag um. Nur der Owner darf das.
func (r *Registry) SetVisibility(actor string, id uint64, isPublic bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Owner != actor {
		return ErrNotOwner
	}

	rec.IsPublic = isPublic
	r.records[id] = rec

	r.emit(events.Event{
		Type:      events.TypeVisibilityChanged,
		DatasetID: id,
		IsPublic:  events.BoolPtr(isPublic),
	})
	return nil
}

// RecordView zählt einen View und meldet, ob tatsächlich gezählt wurde.
// Siehe bumpCounter für die Autorisierung.
func (r *Registry) RecordView(actor string, id uint64) (bool, error) {
	return r.bumpCounter(actor, id, events.TypeViewed)
}

// RecordDownload zählt einen Download.
func (r *Registry) RecordDownload(actor string, id uint64) (bool, error) {
	return r.bumpCounter(actor, id, events.TypeDownloaded)
}

// RecordCitation zählt eine Zitierung.
func (r *Registry) RecordCitation(actor string, id uint64) (bool, error) {
	return r.bumpCounter(actor, id, events.TypeCited)
}

// bumpCounter erhöht den zum Event-Typ gehörenden Zähler um 1, wenn der
// Record public ist oder der Actor sein Owner. Andernfalls ist der Aufruf
// bewusst ein stiller No-op: kein Fehler, kein Event, Rückgabe false.
// Jeder Actor darf Zähler auf public Records erhöhen.
func (r *Registry) bumpCounter(actor string, id uint64, evType events.Type) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if !rec.IsPublic && rec.Owner != actor {
		r.logger.Debug("Zähler-Aufruf auf privatem Dataset übersprungen",
			zap.Uint64("id", id), zap.String("type", string(evType)))
		return false, nil
	}

	switch evType {
	case events.TypeViewed:
		rec.Views++
	case events.TypeDownloaded:
		rec.Downloads++
	case events.TypeCited:
		rec.Citations++
	}
	r.records[id] = rec

	r.emit(events.Event{Type: evType, DatasetID: id})
	return true, nil
}

// ListPublic gibt alle öffentlichen Records aufsteigend nach ID zurück.
func (r *Registry) ListPublic() []models.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Dataset, 0)
	for id := uint64(0); id < r.nextID; id++ {
		if rec := r.records[id]; rec.IsPublic {
			out = append(out, rec)
		}
	}
	return out
}

// ListOwnedBy gibt alle Records des Actors in Erstellungs-Reihenfolge
// zurück, private eingeschlossen.
func (r *Registry) ListOwnedBy(actor string) []models.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.ownerIndex[actor]
	out := make([]models.Dataset, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.records[id])
	}
	return out
}

// Count gibt die Gesamtzahl aller jemals registrierten Records zurück,
// unabhängig von der Sichtbarkeit.
func (r *Registry) Count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// Snapshot gibt eine Wert-Kopie aller Records aufsteigend nach ID zurück.
// Wird vom Snapshot-Export und beim Debugging verwendet.
func (r *Registry) Snapshot() []models.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Dataset, 0, len(r.records))
	for id := uint64(0); id < r.nextID; id++ {
		out = append(out, r.records[id])
	}
	return out
}
