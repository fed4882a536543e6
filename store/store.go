package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record id does not exist in the store.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned by ConditionalUpdate when the stored version
// no longer matches the expected version.
var ErrVersionConflict = errors.New("version conflict")

// Fields is the domain payload of a record. The sync engine treats it as
// opaque JSON and only the merge strategy looks at individual keys.
type Fields map[string]any

// Clone returns a copy of the top-level map so callers can hand payloads
// across component boundaries without sharing the map itself.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// Record is a syncable entity. Version starts at 1 on create and moves by
// exactly 1 per accepted write; the store is the only component allowed to
// advance it.
type Record struct {
	ID        int64
	Code      string
	Fields    Fields
	Version   int64
	UpdatedAt time.Time
}

// Versioned is the minimal contract the sync engine needs from an entity.
type Versioned interface {
	RecordID() int64
	RecordVersion() int64
	WithVersion(v int64) Versioned
}

func (r *Record) RecordID() int64 {
	return r.ID
}

func (r *Record) RecordVersion() int64 {
	return r.Version
}

func (r *Record) WithVersion(v int64) Versioned {
	clone := *r
	clone.Version = v
	clone.Fields = r.Fields.Clone()
	return &clone
}

// RecordStore is the persistence contract for versioned records.
//
// ConditionalUpdate is the concurrency primitive: the version check and the
// write execute as a single conditional statement, so two writers racing on
// the same starting version can never both succeed.
type RecordStore interface {
	// FindByID returns the stored record or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Record, error)

	// Create persists a new record, assigns its server id, forces version 1
	// and stamps UpdatedAt. The input record is not modified.
	Create(ctx context.Context, rec *Record) (*Record, error)

	// ConditionalUpdate replaces the record's fields and advances its version
	// by 1, but only if the stored version equals expectedVersion. Returns
	// ErrVersionConflict when another writer got there first and ErrNotFound
	// when the id does not exist.
	ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, fields Fields) (*Record, error)

	// ChangedSince returns up to limit records with UpdatedAt strictly after
	// since, oldest first. A nil since returns from the beginning.
	ChangedSince(ctx context.Context, since *time.Time, limit int) ([]Record, error)

	// WithTx runs fn against a transaction-scoped view of the store. fn
	// returning nil commits everything written inside it; any error rolls
	// the whole transaction back and is returned unchanged.
	WithTx(ctx context.Context, fn func(RecordStore) error) error

	Close() error
}
