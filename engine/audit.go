package engine

import (
	"context"
	"log/slog"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
)

// AuditEvent is a before/after snapshot of one accepted mutation. Durable
// storage and querying of these events belongs to the surrounding
// application; the engine only emits them.
type AuditEvent struct {
	Action     string
	EntityType string
	EntityID   int64
	OldValues  store.Fields
	NewValues  store.Fields
	Actor      string
}

type AuditEmitter interface {
	Log(ctx context.Context, event AuditEvent)
}

// SlogAuditEmitter writes audit events as structured log records. It is the
// default emitter when the deployment has no audit pipeline wired in.
type SlogAuditEmitter struct {
	logger *slog.Logger
}

func NewSlogAuditEmitter(logger *slog.Logger) *SlogAuditEmitter {
	return &SlogAuditEmitter{logger: logger}
}

func (e *SlogAuditEmitter) Log(ctx context.Context, event AuditEvent) {
	e.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("action", event.Action),
		slog.String("entity_type", event.EntityType),
		slog.Int64("entity_id", event.EntityID),
		slog.Any("old_values", event.OldValues),
		slog.Any("new_values", event.NewValues),
		slog.String("actor", event.Actor),
	)
}
