package services

import (
	"context"
	"time"
)

// Syncer is the slice of a sync session the record services use.
// *syncer.Session implements it.
type Syncer interface {
	OwnerID() string
	PushInBackground()
	DeleteRecord(ctx context.Context, collection, id string) error
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time
