package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
)

// Strategy names an explicit, caller-chosen conflict resolution.
type Strategy string

const (
	ServerWins Strategy = "server_wins"
	ClientWins Strategy = "client_wins"
	Merge      Strategy = "merge"
)

var ErrInvalidStrategy = errors.New("invalid resolution strategy")

// Resolver turns a previously reported conflict into a new authoritative
// record. It runs outside the batch path, in its own request.
type Resolver struct {
	store store.RecordStore
	audit AuditEmitter
}

func NewResolver(st store.RecordStore, audit AuditEmitter) *Resolver {
	return &Resolver{store: st, audit: audit}
}

// Resolve applies the chosen strategy to the record. server_wins performs no
// write and leaves the version untouched; client_wins and merge write
// through the same conditional update as ordinary syncs, so a concurrent
// writer surfaces as store.ErrVersionConflict rather than a silent
// overwrite. Every outcome except an error is audited.
func (r *Resolver) Resolve(ctx context.Context, serverID int64, clientData store.Fields, strategy Strategy, actor string) (*store.Record, error) {
	switch strategy {
	case ServerWins, ClientWins, Merge:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}

	stored, err := r.store.FindByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	if strategy == ServerWins {
		// No mutation happened, but the decision itself is part of the
		// record's history.
		r.audit.Log(ctx, AuditEvent{
			Action:     "resolve_server_wins",
			EntityType: entityType,
			EntityID:   stored.ID,
			OldValues:  stored.Fields,
			NewValues:  stored.Fields,
			Actor:      actor,
		})
		return stored, nil
	}

	newFields := clientData
	if strategy == Merge {
		newFields = MergeFields(stored.Fields, clientData)
	}

	updated, err := r.store.ConditionalUpdate(ctx, stored.ID, stored.Version, newFields)
	if err != nil {
		return nil, err
	}
	r.audit.Log(ctx, AuditEvent{
		Action:     "resolve_" + string(strategy),
		EntityType: entityType,
		EntityID:   updated.ID,
		OldValues:  stored.Fields,
		NewValues:  updated.Fields,
		Actor:      actor,
	})
	return updated, nil
}

// MergeFields resolves each field independently: a non-null client value
// overrides the server value, an absent or null client field keeps the
// server value. This is last-writer-wins per field, not a semantic merge.
func MergeFields(server, client store.Fields) store.Fields {
	merged := server.Clone()
	if merged == nil {
		merged = make(store.Fields, len(client))
	}
	for k, v := range client {
		if v == nil {
			continue
		}
		merged[k] = v
	}
	return merged
}
