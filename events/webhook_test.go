package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookSink_Deliver(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, zap.NewNop())
	ev := Event{
		ID:         uuid.New(),
		Seq:        7,
		Type:       TypeUploaded,
		DatasetID:  3,
		Owner:      "alice",
		DatasetRef: "cidA",
		IsPublic:   BoolPtr(true),
	}
	require.NoError(t, sink.Deliver(context.Background(), ev))

	require.Equal(t, ev.ID, received.ID)
	require.Equal(t, uint64(7), received.Seq)
	require.Equal(t, TypeUploaded, received.Type)
	require.Equal(t, "alice", received.Owner)
	require.NotNil(t, received.IsPublic)
	require.True(t, *received.IsPublic)
}

func TestWebhookSink_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, zap.NewNop())
	err := sink.Deliver(context.Background(), Event{ID: uuid.New(), Seq: 1, Type: TypeViewed})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
