package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
)

var errInjected = errors.New("injected store failure")

// memStore is an in-memory store.RecordStore with the same CAS semantics as
// the real backends, plus failure injection for abort tests.
type memStore struct {
	mu          sync.Mutex
	records     map[int64]*store.Record
	nextID      int64
	now         func() time.Time
	createCalls int
	updateCalls int

	// When > 0, that create call (1-based) fails with errInjected.
	failCreateCall int
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[int64]*store.Record),
		now:     time.Now,
	}
}

func (m *memStore) FindByID(_ context.Context, id int64) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *memStore) Create(_ context.Context, rec *store.Record) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreateCall > 0 && m.createCalls == m.failCreateCall {
		return nil, errInjected
	}
	m.nextID++
	created := &store.Record{
		ID:        m.nextID,
		Code:      rec.Code,
		Fields:    rec.Fields.Clone(),
		Version:   1,
		UpdatedAt: m.now().UTC(),
	}
	m.records[created.ID] = created
	return cloneRecord(created), nil
}

func (m *memStore) ConditionalUpdate(_ context.Context, id int64, expectedVersion int64, fields store.Fields) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	rec.Fields = fields.Clone()
	rec.Version++
	rec.UpdatedAt = m.now().UTC()
	return cloneRecord(rec), nil
}

func (m *memStore) ChangedSince(_ context.Context, since *time.Time, limit int) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := make([]store.Record, 0)
	for id := int64(1); id <= m.nextID; id++ {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		if since != nil && !rec.UpdatedAt.After(*since) {
			continue
		}
		if len(changed) >= limit {
			break
		}
		changed = append(changed, *cloneRecord(rec))
	}
	return changed, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(store.RecordStore) error) error {
	m.mu.Lock()
	snapshot := make(map[int64]*store.Record, len(m.records))
	for id, rec := range m.records {
		snapshot[id] = cloneRecord(rec)
	}
	snapshotNextID := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.records = snapshot
		m.nextID = snapshotNextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) Close() error {
	return nil
}

func cloneRecord(rec *store.Record) *store.Record {
	clone := *rec
	clone.Fields = rec.Fields.Clone()
	return &clone
}

// captureEmitter records audit events for assertions.
type captureEmitter struct {
	events []AuditEvent
}

func (c *captureEmitter) Log(_ context.Context, event AuditEvent) {
	c.events = append(c.events, event)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
