package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// StoreTest is a backend-independent conformance suite. Each backend's test
// file instantiates its own storage and runs these against it.
type StoreTest struct{}

func (s *StoreTest) TestCreateRecords(t *testing.T, storage RecordStore) {
	created, err := storage.Create(context.Background(), &Record{
		Code:   "R-1",
		Fields: Fields{"name": "Acme"},
	})
	require.NoError(t, err, "failed to create record")
	require.NotZero(t, created.ID)
	require.Equal(t, int64(1), created.Version)
	require.False(t, created.UpdatedAt.IsZero())

	fetched, err := storage.FindByID(context.Background(), created.ID)
	require.NoError(t, err, "failed to fetch created record")
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, "R-1", fetched.Code)
	require.Equal(t, int64(1), fetched.Version)
	require.Equal(t, "Acme", fetched.Fields["name"])
}

func (s *StoreTest) TestConditionalUpdate(t *testing.T, storage RecordStore) {
	created, err := storage.Create(context.Background(), &Record{
		Code:   "R-2",
		Fields: Fields{"name": "Acme"},
	})
	require.NoError(t, err, "failed to create record")

	updated, err := storage.ConditionalUpdate(context.Background(), created.ID, 1, Fields{"name": "Acme Ltd"})
	require.NoError(t, err, "failed to update record")
	require.Equal(t, int64(2), updated.Version)
	require.Equal(t, "Acme Ltd", updated.Fields["name"])
	require.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
}

func (s *StoreTest) TestConflict(t *testing.T, storage RecordStore) {
	created, err := storage.Create(context.Background(), &Record{
		Code:   "R-3",
		Fields: Fields{"name": "Acme"},
	})
	require.NoError(t, err, "failed to create record")

	_, err = storage.ConditionalUpdate(context.Background(), created.ID, 1, Fields{"name": "first writer"})
	require.NoError(t, err, "first writer should succeed")

	_, err = storage.ConditionalUpdate(context.Background(), created.ID, 1, Fields{"name": "second writer"})
	require.ErrorIs(t, err, ErrVersionConflict, "second writer with a stale version should conflict")

	// The losing writer must not have touched the record.
	fetched, err := storage.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), fetched.Version)
	require.Equal(t, "first writer", fetched.Fields["name"])
}

func (s *StoreTest) TestNotFound(t *testing.T, storage RecordStore) {
	_, err := storage.FindByID(context.Background(), 999999)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = storage.ConditionalUpdate(context.Background(), 999999, 1, Fields{"name": "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func (s *StoreTest) TestChangedSince(t *testing.T, storage RecordStore) {
	before := time.Now().UTC().Add(-time.Minute)

	first, err := storage.Create(context.Background(), &Record{Code: "R-4", Fields: Fields{"n": "a"}})
	require.NoError(t, err)
	second, err := storage.Create(context.Background(), &Record{Code: "R-5", Fields: Fields{"n": "b"}})
	require.NoError(t, err)

	records, err := storage.ChangedSince(context.Background(), nil, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 2)

	records, err = storage.ChangedSince(context.Background(), &before, 100)
	require.NoError(t, err)
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	require.Contains(t, ids, first.ID)
	require.Contains(t, ids, second.ID)

	after := time.Now().UTC().Add(time.Minute)
	records, err = storage.ChangedSince(context.Background(), &after, 100)
	require.NoError(t, err)
	require.Empty(t, records)

	records, err = storage.ChangedSince(context.Background(), &before, 1)
	require.NoError(t, err)
	require.Len(t, records, 1, "page cap should bound the result")
}

func (s *StoreTest) TestTxRollback(t *testing.T, storage RecordStore) {
	boom := errors.New("boom")
	var createdID int64
	err := storage.WithTx(context.Background(), func(tx RecordStore) error {
		created, err := tx.Create(context.Background(), &Record{Code: "R-6", Fields: Fields{"n": "a"}})
		if err != nil {
			return err
		}
		createdID = created.ID
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = storage.FindByID(context.Background(), createdID)
	require.ErrorIs(t, err, ErrNotFound, "rolled back create must not be visible")
}

func (s *StoreTest) TestTxCommit(t *testing.T, storage RecordStore) {
	var createdID int64
	err := storage.WithTx(context.Background(), func(tx RecordStore) error {
		created, err := tx.Create(context.Background(), &Record{Code: "R-7", Fields: Fields{"n": "a"}})
		if err != nil {
			return err
		}
		createdID = created.ID
		_, err = tx.ConditionalUpdate(context.Background(), createdID, 1, Fields{"n": "b"})
		return err
	})
	require.NoError(t, err)

	fetched, err := storage.FindByID(context.Background(), createdID)
	require.NoError(t, err)
	require.Equal(t, int64(2), fetched.Version)
	require.Equal(t, "b", fetched.Fields["n"])
}
