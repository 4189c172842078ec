package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink schreibt jede Notification ins strukturierte Log.
type LogSink struct {
	Logger *zap.Logger
}

// NewLogSink erstellt einen neuen LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

func (s *LogSink) Name() string { return "log" }

// Deliver loggt das Event mit seinen Payload-Feldern.
func (s *LogSink) Deliver(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("event_id", ev.ID.String()),
		zap.Uint64("seq", ev.Seq),
		zap.String("type", string(ev.Type)),
		zap.Uint64("dataset_id", ev.DatasetID),
	}
	if ev.Owner != "" {
		fields = append(fields, zap.String("owner", ev.Owner))
	}
	if ev.DatasetRef != "" {
		fields = append(fields, zap.String("dataset_ref", ev.DatasetRef))
	}
	if ev.IsPublic != nil {
		fields = append(fields, zap.Bool("is_public", *ev.IsPublic))
	}
	s.Logger.Info("Registry-Event", fields...)
	return nil
}
