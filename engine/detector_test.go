package engine

import (
	"testing"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
	"github.com/stretchr/testify/require"
)

func TestDetectMatch(t *testing.T) {
	stored := &store.Record{
		ID:      7,
		Fields:  store.Fields{"name": "Acme"},
		Version: 3,
	}
	require.Nil(t, Detect(stored, 3, store.Fields{"name": "Acme Ltd"}))
}

func TestDetectConflict(t *testing.T) {
	stored := &store.Record{
		ID:        7,
		Fields:    store.Fields{"name": "Acme"},
		Version:   3,
		UpdatedAt: time.Now().UTC(),
	}
	clientData := store.Fields{"name": "Acme Ltd"}

	conflict := Detect(stored, 2, clientData)
	require.NotNil(t, conflict)
	require.Equal(t, int64(7), conflict.ServerID)
	require.Equal(t, int64(2), conflict.LocalVersion)
	require.Equal(t, int64(3), conflict.ServerVersion)
	require.Equal(t, "Acme", conflict.ServerData["name"])
	require.Equal(t, "Acme Ltd", conflict.ClientData["name"])
}

func TestDetectDoesNotMutateStored(t *testing.T) {
	stored := &store.Record{
		ID:      7,
		Fields:  store.Fields{"name": "Acme", "city": "Colombo"},
		Version: 3,
	}

	conflict := Detect(stored, 1, store.Fields{"name": "Acme Ltd"})
	require.NotNil(t, conflict)

	// The conflict carries copies, so mutating them cannot reach the
	// stored record.
	conflict.ServerData["name"] = "mangled"
	conflict.ClientData["name"] = "mangled"

	require.Equal(t, int64(3), stored.Version)
	require.Equal(t, "Acme", stored.Fields["name"])
	require.Equal(t, "Colombo", stored.Fields["city"])
}

func TestDetectFutureClientVersionConflicts(t *testing.T) {
	stored := &store.Record{ID: 7, Fields: store.Fields{}, Version: 3}
	conflict := Detect(stored, 5, store.Fields{})
	require.NotNil(t, conflict)
	require.Equal(t, int64(5), conflict.LocalVersion)
	require.Equal(t, int64(3), conflict.ServerVersion)
}
