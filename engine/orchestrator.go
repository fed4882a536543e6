package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kasunvimarshana/TrackVault-sub000/store"
)

const entityType = "record"

// Orchestrator applies a batch of client mutations inside one transaction.
//
// Expected per-item failures (not found, validation) and conflicts are
// contained to the item: they land in their bucket and the batch keeps
// going. Only unexpected store faults abort, rolling back every write made
// earlier in the same batch. A batch with zero unexpected faults always
// commits, even when individual items failed or conflicted; one item's
// conflict must not punish the others.
type Orchestrator struct {
	store  store.RecordStore
	audit  AuditEmitter
	logger *slog.Logger
}

func NewOrchestrator(st store.RecordStore, audit AuditEmitter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: st, audit: audit, logger: logger}
}

// SyncBatch processes items strictly in submission order. The returned
// error is non-nil only when the batch aborted and nothing was committed.
func (o *Orchestrator) SyncBatch(ctx context.Context, items []BatchItem, actor string) (*BatchReply, error) {
	reply := &BatchReply{
		Success:   make([]SuccessEntry, 0, len(items)),
		Conflicts: make([]ConflictEntry, 0),
		Errors:    make([]ErrorEntry, 0),
	}
	err := o.store.WithTx(ctx, func(tx store.RecordStore) error {
		for _, item := range items {
			if err := o.applyItem(ctx, tx, item, actor, reply); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync batch aborted: %w", err)
	}
	o.logger.Debug("sync batch committed",
		"actor", actor,
		"items", len(items),
		"success", len(reply.Success),
		"conflicts", len(reply.Conflicts),
		"errors", len(reply.Errors))
	return reply, nil
}

func (o *Orchestrator) applyItem(ctx context.Context, tx store.RecordStore, item BatchItem, actor string, reply *BatchReply) error {
	if err := validateItem(item); err != nil {
		reply.Errors = append(reply.Errors, ErrorEntry{
			LocalID:  item.LocalID,
			ServerID: item.ServerID,
			Message:  err.Error(),
		})
		return nil
	}
	if item.ServerID == nil {
		return o.createItem(ctx, tx, item, actor, reply)
	}
	return o.updateItem(ctx, tx, item, actor, reply)
}

func (o *Orchestrator) createItem(ctx context.Context, tx store.RecordStore, item BatchItem, actor string, reply *BatchReply) error {
	created, err := tx.Create(ctx, &store.Record{
		Code:   NewRecordCode(),
		Fields: item.Fields.Clone(),
	})
	if err != nil {
		return err
	}
	o.audit.Log(ctx, AuditEvent{
		Action:     "create",
		EntityType: entityType,
		EntityID:   created.ID,
		NewValues:  created.Fields,
		Actor:      actor,
	})
	reply.Success = append(reply.Success, SuccessEntry{
		LocalID:  item.LocalID,
		ServerID: created.ID,
		Version:  created.Version,
		Data:     created.Fields,
	})
	return nil
}

func (o *Orchestrator) updateItem(ctx context.Context, tx store.RecordStore, item BatchItem, actor string, reply *BatchReply) error {
	stored, err := tx.FindByID(ctx, *item.ServerID)
	if errors.Is(err, store.ErrNotFound) {
		reply.Errors = append(reply.Errors, ErrorEntry{
			LocalID:  item.LocalID,
			ServerID: item.ServerID,
			Message:  "record not found",
		})
		return nil
	}
	if err != nil {
		return err
	}

	if conflict := Detect(stored, item.Version, item.Fields); conflict != nil {
		reply.Conflicts = append(reply.Conflicts, conflict.Entry())
		return nil
	}

	updated, err := tx.ConditionalUpdate(ctx, stored.ID, stored.Version, item.Fields)
	if errors.Is(err, store.ErrVersionConflict) {
		// A concurrent writer moved the record between our fetch and the
		// conditional write. Re-fetch and report, same as a detected
		// conflict; never overwrite.
		fresh, ferr := tx.FindByID(ctx, stored.ID)
		if ferr != nil {
			return ferr
		}
		reply.Conflicts = append(reply.Conflicts, Detect(fresh, item.Version, item.Fields).Entry())
		return nil
	}
	if err != nil {
		return err
	}

	o.audit.Log(ctx, AuditEvent{
		Action:     "update",
		EntityType: entityType,
		EntityID:   updated.ID,
		OldValues:  stored.Fields,
		NewValues:  updated.Fields,
		Actor:      actor,
	})
	reply.Success = append(reply.Success, SuccessEntry{
		LocalID:  item.LocalID,
		ServerID: updated.ID,
		Version:  updated.Version,
		Data:     updated.Fields,
	})
	return nil
}

func validateItem(item BatchItem) error {
	if item.LocalID == "" {
		return fmt.Errorf("local_id is required")
	}
	if item.Fields == nil {
		return fmt.Errorf("fields is required")
	}
	if item.ServerID != nil && item.Version < 1 {
		return fmt.Errorf("version must be >= 1 for an update")
	}
	return nil
}

// NewRecordCode generates a reference code for a freshly created record.
// The random suffix keeps concurrent creators from colliding; a
// read-then-increment counter would race.
func NewRecordCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("R-%s-%s", time.Now().UTC().Format("20060102150405"), suffix)
}
