package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/common"
)

func (a *App) syncControl() (syncControl, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sync == nil {
		return nil, common.ErrUnauthorized
	}
	return a.sync, nil
}

// Sync runs a full sync now. It refuses to run while offline.
func (a *App) Sync(ctx context.Context) error {
	sc, err := a.syncControl()
	if err != nil {
		return a.fail(err)
	}

	rep, err := sc.ManualSync(ctx)
	if errors.Is(err, common.ErrOffline) {
		fmt.Fprintln(a.out, "Cannot sync while offline")
		return err
	}
	if err != nil {
		return a.fail(err)
	}

	if rep.Push.Skipped {
		fmt.Fprintln(a.out, "A push was already running; changes will go out with it")
	}
	fmt.Fprintf(a.out, "Pulled: %d new, %d replaced. Pushed: %d uploaded, %d deleted.\n",
		rep.Pull.Inserted, rep.Pull.Replaced, rep.Push.Uploaded, rep.Push.Deleted)
	if failed := rep.Pull.Failed + rep.Push.Failed; failed > 0 {
		fmt.Fprintf(a.out, "%d records failed and will be retried\n", failed)
	}
	return nil
}

// Status prints pending work and the time of the last full sync.
func (a *App) Status(ctx context.Context) error {
	sc, err := a.syncControl()
	if err != nil {
		return a.fail(err)
	}

	st, err := sc.Status(ctx)
	if err != nil {
		return a.fail(err)
	}

	last := "never"
	if !st.LastSyncAt.IsZero() {
		last = st.LastSyncAt.Local().Format(time.DateTime)
	}
	online := "offline"
	if st.IsOnline {
		online = "online"
	}
	fmt.Fprintf(a.out, "%s, %d unsynced, %d pending deletes, last sync: %s\n",
		online, st.UnsyncedCount, st.PendingDeletes, last)
	return nil
}

// Backup uploads an encrypted snapshot of the local store.
func (a *App) Backup(ctx context.Context) error {
	a.mu.Lock()
	svc, key := a.backup, a.identity.MasterKey
	a.mu.Unlock()

	if svc == nil {
		return a.fail(common.ErrUnauthorized)
	}
	if a.Mode() != ModeOnline {
		fmt.Fprintln(a.out, "Cannot back up while offline")
		return common.ErrOffline
	}

	objectKey, err := svc.Backup(ctx, key)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.out, "Backup stored as %s\n", objectKey)
	return nil
}
