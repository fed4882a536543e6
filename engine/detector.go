package engine

import "github.com/kasunvimarshana/TrackVault-sub000/store"

// Conflict describes a divergence between the client's copy of a record and
// the stored copy. It carries both payloads so the caller can present them
// and later feed them back through the resolver; it is never persisted.
type Conflict struct {
	ServerID      int64
	LocalVersion  int64
	ServerVersion int64
	ServerData    store.Fields
	ClientData    store.Fields
}

// Detect compares a just-fetched stored record against the version the
// client last saw. Equal versions return nil and the caller may write;
// anything else returns a Conflict. Detect has no side effects and never
// touches the stored record.
func Detect(stored *store.Record, clientVersion int64, clientData store.Fields) *Conflict {
	if stored.Version == clientVersion {
		return nil
	}
	return &Conflict{
		ServerID:      stored.ID,
		LocalVersion:  clientVersion,
		ServerVersion: stored.Version,
		ServerData:    stored.Fields.Clone(),
		ClientData:    clientData.Clone(),
	}
}

func (c *Conflict) Entry() ConflictEntry {
	return ConflictEntry{
		ServerID:      c.ServerID,
		LocalVersion:  c.LocalVersion,
		ServerVersion: c.ServerVersion,
		ServerData:    c.ServerData,
		ClientData:    c.ClientData,
	}
}
