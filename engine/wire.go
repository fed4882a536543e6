package engine

import (
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/store"
)

// BatchRequest is the body of a sync POST. Items are processed in order.
type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

// BatchItem is one unit of client-submitted work. A nil ServerID means the
// client created the record offline and wants a server identity for it.
// LocalID is a client-side correlation token; the server only echoes it.
type BatchItem struct {
	LocalID  string       `json:"local_id"`
	ServerID *int64       `json:"id"`
	Version  int64        `json:"version"`
	Fields   store.Fields `json:"fields"`
}

// BatchReply carries the three result buckets. A committed batch can still
// contain per-item conflicts and errors; callers must inspect all three.
type BatchReply struct {
	Success   []SuccessEntry  `json:"success"`
	Conflicts []ConflictEntry `json:"conflicts"`
	Errors    []ErrorEntry    `json:"errors"`
}

type SuccessEntry struct {
	LocalID  string       `json:"local_id"`
	ServerID int64        `json:"server_id"`
	Version  int64        `json:"version"`
	Data     store.Fields `json:"data"`
}

type ConflictEntry struct {
	ServerID      int64        `json:"server_id"`
	LocalVersion  int64        `json:"local_version"`
	ServerVersion int64        `json:"server_version"`
	ServerData    store.Fields `json:"server_data"`
	ClientData    store.Fields `json:"client_data"`
}

type ErrorEntry struct {
	LocalID  string `json:"local_id,omitempty"`
	ServerID *int64 `json:"server_id,omitempty"`
	Message  string `json:"message"`
}

type ResolveRequest struct {
	ServerID   int64        `json:"server_id"`
	ClientData store.Fields `json:"client_data"`
	Strategy   string       `json:"strategy"`
}

type ResolveReply struct {
	Record  RecordPayload `json:"record"`
	Version int64         `json:"version"`
}

// RecordPayload is the wire shape of a stored record.
type RecordPayload struct {
	ServerID  int64        `json:"server_id"`
	Code      string       `json:"code"`
	Fields    store.Fields `json:"fields"`
	Version   int64        `json:"version"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ChangesReply struct {
	Records []RecordPayload `json:"records"`
	AsOf    time.Time       `json:"as_of"`
}

type StatusReply struct {
	Time time.Time `json:"time"`
}

func NewRecordPayload(rec *store.Record) RecordPayload {
	return RecordPayload{
		ServerID:  rec.ID,
		Code:      rec.Code,
		Fields:    rec.Fields,
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt,
	}
}
