package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/cryptox"
	"github.com/dmitrijs2005/spendsync/internal/netx"
)

// BackupClient issues presigned upload URLs. *remote.GRPCClient implements it.
type BackupClient interface {
	BackupURL(ctx context.Context, ownerID string) (key, url string, err error)
}

// BackupService uploads an encrypted snapshot of the local store.
type BackupService struct {
	owner  string
	store  *storage.Store
	client BackupClient
	http   *http.Client
}

func NewBackupService(ownerID string, store *storage.Store, client BackupClient, httpClient *http.Client) *BackupService {
	return &BackupService{owner: ownerID, store: store, client: client, http: httpClient}
}

// Backup snapshots the store, seals it with masterKey and uploads it. It
// returns the object key of the backup.
func (s *BackupService) Backup(ctx context.Context, masterKey []byte) (string, error) {
	dir, err := os.MkdirTemp("", "spendsync-backup-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if err := s.store.Snapshot(ctx, path); err != nil {
		return "", err
	}
	plain, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}

	sealed, err := cryptox.Seal(masterKey, plain)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	key, url, err := s.client.BackupURL(ctx, s.owner)
	if err != nil {
		return "", fmt.Errorf("failed to get upload url: %w", err)
	}
	if err := netx.UploadToPresignedURL(ctx, s.http, url, sealed); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	return key, nil
}
