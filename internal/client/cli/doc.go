// Package cli provides the interactive spendsync command-line client.
//
// It wires configuration, the local store, the remote client, the
// connectivity monitor and the sync manager, and runs a REPL over the
// expense and budget services. Typical flow: prompt for credentials, start a
// sync session for the signed-in owner, and execute user commands while
// auto-sync follows connectivity in the background.
//
// Key features:
//   - Login / Logout (online with offline fallback)
//   - Add, list, edit and delete expenses; spending stats
//   - Budgets with progress, alerts and dismissal
//   - Manual sync, sync status and encrypted backups
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
