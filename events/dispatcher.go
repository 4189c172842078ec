package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher entkoppelt die Event-Zustellung von der Registry-Mutation.
// Publish hängt das Event an eine geordnete Queue an; eine einzelne
// Hintergrund-Goroutine stellt die Events der Reihe nach an alle Sinks zu.
type Dispatcher struct {
	logger *zap.Logger
	sinks  []Sink
	queue  chan Event

	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher erstellt einen Dispatcher mit der gegebenen Queue-Größe
// und startet die Zustell-Goroutine.
func NewDispatcher(logger *zap.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		logger: logger,
		sinks:  sinks,
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish hängt ein Event an die Queue an. Der Aufruf blockiert nie:
// ist die Queue voll oder der Dispatcher geschlossen, wird das Event
// verworfen und nur geloggt, damit langsame Sinks keine
// Registry-Operation aufhalten.
func (d *Dispatcher) Publish(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("Dispatcher geschlossen, Notification verworfen",
			zap.String("type", string(ev.Type)),
			zap.Uint64("seq", ev.Seq),
			zap.Uint64("dataset_id", ev.DatasetID))
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.logger.Warn("Event-Queue voll, Notification verworfen",
			zap.String("type", string(ev.Type)),
			zap.Uint64("seq", ev.Seq),
			zap.Uint64("dataset_id", ev.DatasetID))
	}
}

// Close stoppt die Zustellung, nachdem alle bereits angenommenen Events
// ausgeliefert wurden. Spätere Publish-Aufrufe sind harmlose No-ops.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		for _, sink := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := sink.Deliver(ctx, ev); err != nil {
				// Fire-and-forget: Zustellfehler ändern den Registry-Zustand nicht.
				d.logger.Error("Event-Zustellung fehlgeschlagen",
					zap.String("sink", sink.Name()),
					zap.String("type", string(ev.Type)),
					zap.Uint64("seq", ev.Seq),
					zap.Error(err))
			}
			cancel()
		}
	}
}
