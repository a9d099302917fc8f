package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/docstore"
	"github.com/dmitrijs2005/spendsync/internal/server/models"
	"github.com/dmitrijs2005/spendsync/internal/server/repositories/repomanager"
)

var knownCollections = map[string]bool{
	common.CollectionExpenses: true,
	common.CollectionBudgets:  true,
}

// DocumentService stores the synced records of each owner and notifies
// watchers of every write.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hub         *Hub
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, hub *Hub) *DocumentService {
	return &DocumentService{db: db, repomanager: m, hub: hub}
}

func checkCollection(collection string) error {
	if !knownCollections[collection] {
		return fmt.Errorf("%w: unknown collection %q", common.ErrValidation, collection)
	}
	return nil
}

// Put stores body under id, replacing any previous version, and reports
// whether the document was new.
func (s *DocumentService) Put(ctx context.Context, owner, collection, id string, body json.RawMessage) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, err
	}
	if id == "" {
		return false, fmt.Errorf("%w: document id is required", common.ErrValidation)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		return false, fmt.Errorf("%w: document body must be a JSON object", common.ErrValidation)
	}

	created, err := s.repomanager.Documents(s.db).Put(ctx, owner, collection, id, body)
	if err != nil {
		return false, fmt.Errorf("error storing document: %w", err)
	}

	kind := docstore.ChangeModified
	if created {
		kind = docstore.ChangeAdded
	}
	s.hub.Publish(ctx, owner, collection, docstore.Change{Kind: kind, Document: docstore.Document{ID: id, Body: body}})
	return created, nil
}

func (s *DocumentService) Get(ctx context.Context, owner, collection, id string) (*models.Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	return s.repomanager.Documents(s.db).Get(ctx, owner, collection, id)
}

func (s *DocumentService) Query(ctx context.Context, owner, collection string) ([]models.Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	docs, err := s.repomanager.Documents(s.db).Query(ctx, owner, collection)
	if err != nil {
		return nil, fmt.Errorf("error querying documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document. Removing a missing document succeeds and
// notifies nobody.
func (s *DocumentService) Delete(ctx context.Context, owner, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	removed, err := s.repomanager.Documents(s.db).Delete(ctx, owner, collection, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	if removed {
		s.hub.Publish(ctx, owner, collection, docstore.Change{Kind: docstore.ChangeRemoved, Document: docstore.Document{ID: id}})
	}
	return nil
}

// Watch sends a snapshot of the collection followed by every later change
// until ctx is done or the watcher is dropped. The subscription is taken
// before the snapshot is read so no write in between is lost.
func (s *DocumentService) Watch(ctx context.Context, owner, collection string, send func(docstore.ChangeBatch) error) error {
	if err := checkCollection(collection); err != nil {
		return err
	}

	changes, cancel := s.hub.Subscribe(owner, collection)
	defer cancel()

	docs, err := s.Query(ctx, owner, collection)
	if err != nil {
		return err
	}
	snapshot := docstore.ChangeBatch{Collection: collection, Changes: make([]docstore.Change, 0, len(docs))}
	for _, d := range docs {
		snapshot.Changes = append(snapshot.Changes, docstore.Change{
			Kind:     docstore.ChangeAdded,
			Document: docstore.Document{ID: d.ID, Body: d.Body},
		})
	}
	if err := send(snapshot); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch, ok := <-changes:
			if !ok {
				return fmt.Errorf("%w: watcher fell behind", common.ErrUnavailable)
			}
			batch := docstore.ChangeBatch{Collection: collection, Changes: []docstore.Change{ch}}
			// drain whatever else is already queued into the same batch
		drain:
			for {
				select {
				case more, ok := <-changes:
					if !ok {
						break drain
					}
					batch.Changes = append(batch.Changes, more)
				default:
					break drain
				}
			}
			if err := send(batch); err != nil {
				return err
			}
		}
	}
}
