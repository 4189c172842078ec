package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memorySink records delivered events for assertions.
type memorySink struct {
	mu   sync.Mutex
	name string
	evs  []Event
	fail bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Deliver(_ context.Context, ev Event) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
	return nil
}

func (s *memorySink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.evs))
	copy(out, s.evs)
	return out
}

func testEvent(seq uint64, typ Type) Event {
	return Event{ID: uuid.New(), Seq: seq, Type: typ, DatasetID: 0}
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	sink := &memorySink{name: "memory"}
	d := NewDispatcher(zap.NewNop(), 16, sink)

	want := []Type{TypeUploaded, TypeViewed, TypeDownloaded, TypeCited}
	for i, typ := range want {
		d.Publish(testEvent(uint64(i+1), typ))
	}
	d.Close()

	got := sink.all()
	require.Len(t, got, len(want))
	for i, ev := range got {
		require.Equal(t, want[i], ev.Type, "Delivery preserves publish order")
		require.Equal(t, uint64(i+1), ev.Seq)
	}
}

func TestDispatcher_FanOut(t *testing.T) {
	first := &memorySink{name: "first"}
	second := &memorySink{name: "second"}
	d := NewDispatcher(zap.NewNop(), 16, first, second)

	d.Publish(testEvent(1, TypeUploaded))
	d.Close()

	require.Len(t, first.all(), 1)
	require.Len(t, second.all(), 1)
}

func TestDispatcher_FailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &memorySink{name: "broken", fail: true}
	healthy := &memorySink{name: "healthy"}
	d := NewDispatcher(zap.NewNop(), 16, broken, healthy)

	d.Publish(testEvent(1, TypeUploaded))
	d.Publish(testEvent(2, TypeViewed))
	d.Close()

	require.Len(t, healthy.all(), 2, "A failing sink must not stop delivery to the others")
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 16, &memorySink{name: "memory"})
	d.Close()
	d.Close()
}

func TestDispatcher_PublishAfterClose(t *testing.T) {
	sink := &memorySink{name: "memory"}
	d := NewDispatcher(zap.NewNop(), 16, sink)

	d.Publish(testEvent(1, TypeUploaded))
	d.Close()

	// Must not panic; the event is dropped, nothing new arrives.
	d.Publish(testEvent(2, TypeViewed))
	require.Len(t, sink.all(), 1)
}
