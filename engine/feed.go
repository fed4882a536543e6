package engine

import (
	"context"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
)

// DefaultPageCap bounds a full pull when the client has no watermark yet.
const DefaultPageCap = 1000

// ChangeFeed answers "what changed since T" for pull-based catch-up sync.
type ChangeFeed struct {
	store   store.RecordStore
	pageCap int
	now     func() time.Time
}

func NewChangeFeed(st store.RecordStore, pageCap int) *ChangeFeed {
	if pageCap <= 0 {
		pageCap = DefaultPageCap
	}
	return &ChangeFeed{store: st, pageCap: pageCap, now: time.Now}
}

// ChangesSince returns records updated strictly after since (all records, up
// to the page cap, when since is nil) plus the watermark the client should
// store for its next pull.
//
// The watermark is read from the clock strictly after the store query
// returns, never before it, so it always postdates every record the query
// could have observed.
func (f *ChangeFeed) ChangesSince(ctx context.Context, since *time.Time) ([]store.Record, time.Time, error) {
	records, err := f.store.ChangedSince(ctx, since, f.pageCap)
	if err != nil {
		return nil, time.Time{}, err
	}
	asOf := f.now().UTC()
	return records, asOf, nil
}
