package postgres

import (
	"os"
	"testing"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
	"github.com/stretchr/testify/require"
)

func pgStorage(t *testing.T) *PgRecordStore {
	t.Helper()
	databaseURL := os.Getenv("TEST_PG_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_PG_DATABASE_URL not set")
	}
	storage, err := NewPgRecordStore(databaseURL)
	require.NoError(t, err, "failed to connect")
	return storage
}

func TestCreateRecords(t *testing.T) {
	(&store.StoreTest{}).TestCreateRecords(t, pgStorage(t))
}

func TestConditionalUpdate(t *testing.T) {
	(&store.StoreTest{}).TestConditionalUpdate(t, pgStorage(t))
}

func TestConflict(t *testing.T) {
	(&store.StoreTest{}).TestConflict(t, pgStorage(t))
}

func TestNotFound(t *testing.T) {
	(&store.StoreTest{}).TestNotFound(t, pgStorage(t))
}

func TestChangedSince(t *testing.T) {
	(&store.StoreTest{}).TestChangedSince(t, pgStorage(t))
}

func TestTxRollback(t *testing.T) {
	(&store.StoreTest{}).TestTxRollback(t, pgStorage(t))
}

func TestTxCommit(t *testing.T) {
	(&store.StoreTest{}).TestTxCommit(t, pgStorage(t))
}
