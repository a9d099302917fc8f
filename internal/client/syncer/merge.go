package syncer

import (
	"encoding/json"
	"time"
)

// Action is the outcome of reconciling a local record with its remote copy.
type Action int

const (
	KeepLocal Action = iota
	KeepRemote
	Merge
)

func (a Action) String() string {
	switch a {
	case KeepLocal:
		return "keep-local"
	case KeepRemote:
		return "keep-remote"
	case Merge:
		return "merge"
	}
	return "unknown"
}

// Version is one side of a conflict as seen by a MergeStrategy.
type Version struct {
	ID        string
	UpdatedAt time.Time
	Synced    bool
	Document  json.RawMessage
}

// Resolution carries the chosen Action. Merged holds the document form of
// the merged record and is read only for Merge; a merged record is stored
// unsynced so that the next push uploads it.
type Resolution struct {
	Action Action
	Merged json.RawMessage
}

// MergeStrategy decides what happens when a pulled record already exists
// locally. Records missing locally are always inserted.
type MergeStrategy interface {
	Resolve(collection string, local, remote Version) Resolution
}

// AdditiveOnly never touches a record that exists locally.
type AdditiveOnly struct{}

func (AdditiveOnly) Resolve(string, Version, Version) Resolution {
	return Resolution{Action: KeepLocal}
}

// LastWriteWins takes the remote copy when it is strictly newer. A local
// record with unpushed edits is always kept.
type LastWriteWins struct{}

func (LastWriteWins) Resolve(_ string, local, remote Version) Resolution {
	if !local.Synced {
		return Resolution{Action: KeepLocal}
	}
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return Resolution{Action: KeepRemote}
	}
	return Resolution{Action: KeepLocal}
}
