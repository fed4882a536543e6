package engine

import (
	"context"
	"testing"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
	"github.com/stretchr/testify/require"
)

func TestChangesSinceFiltersByWatermark(t *testing.T) {
	st := newMemStore()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	clock := base
	st.now = func() time.Time { return clock }

	first, err := st.Create(context.Background(), &store.Record{Code: "R-1", Fields: store.Fields{"n": "a"}})
	require.NoError(t, err)
	clock = base.Add(time.Second)
	second, err := st.Create(context.Background(), &store.Record{Code: "R-2", Fields: store.Fields{"n": "b"}})
	require.NoError(t, err)

	feed := NewChangeFeed(st, 100)

	records, _, err := feed.ChangesSince(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	records, _, err = feed.ChangesSince(context.Background(), &first.UpdatedAt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, second.ID, records[0].ID)
}

func TestChangesSinceWatermarkTakenAfterQuery(t *testing.T) {
	st := newMemStore()
	feed := NewChangeFeed(st, 100)

	clockReads := 0
	queryTime := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time {
		clockReads++
		return queryTime.Add(time.Duration(clockReads) * time.Second)
	}

	_, asOf, err := feed.ChangesSince(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, clockReads, "the clock is read exactly once, after the query")
	require.Equal(t, queryTime.Add(time.Second), asOf)
}

func TestChangesSinceWatermarkRoundTrip(t *testing.T) {
	st := newMemStore()
	feed := NewChangeFeed(st, 100)

	_, err := st.Create(context.Background(), &store.Record{Code: "R-1", Fields: store.Fields{"n": "a"}})
	require.NoError(t, err)

	records, asOf, err := feed.ChangesSince(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Nothing changed after the watermark, so the next pull is empty.
	records, _, err = feed.ChangesSince(context.Background(), &asOf)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestChangesSincePageCap(t *testing.T) {
	st := newMemStore()
	for i := 0; i < 5; i++ {
		_, err := st.Create(context.Background(), &store.Record{Code: NewRecordCode(), Fields: store.Fields{}})
		require.NoError(t, err)
	}

	feed := NewChangeFeed(st, 3)
	records, _, err := feed.ChangesSince(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestChangeFeedDefaultPageCap(t *testing.T) {
	feed := NewChangeFeed(newMemStore(), 0)
	require.Equal(t, DefaultPageCap, feed.pageCap)
}
