package sqlite

import (
	"testing"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
	"github.com/stretchr/testify/require"
)

func TestCreateRecords(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testcreaterecords?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestCreateRecords(t, storage)
}

func TestConditionalUpdate(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testconditionalupdate?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestConditionalUpdate(t, storage)
}

func TestConflict(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testconflict?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestConflict(t, storage)
}

func TestNotFound(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testnotfound?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestNotFound(t, storage)
}

func TestChangedSince(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testchangedsince?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestChangedSince(t, storage)
}

func TestTxRollback(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testtxrollback?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestTxRollback(t, storage)
}

func TestTxCommit(t *testing.T) {
	storage, err := NewSQLiteRecordStore("file:testtxcommit?mode=memory&cache=shared")
	require.NoError(t, err, "failed to connect")

	(&store.StoreTest{}).TestTxCommit(t, storage)
}
