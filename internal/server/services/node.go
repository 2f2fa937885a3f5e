// Package services contains the server-side business logic: authorization
// over nodes, the upload/download orchestration, the sharing engine, the
// key-publication registry and user authentication.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cipherdrive/internal/server/storage"
)

// NodeService owns the folder/file entity graph and every authorization
// decision over it. An absent node and a node the caller may not see are
// reported identically as common.ErrorNotFound.
type NodeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
}

func NewNodeService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore) *NodeService {
	return &NodeService{db: db, repomanager: m, store: store}
}

// authorizeRead loads a node the caller may read: the owner always, a
// share recipient for files only. Everyone else gets ErrorNotFound.
func authorizeRead(ctx context.Context, repo nodes.Repository, id, callerID string) (*models.Node, error) {
	node, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.OwnerID == callerID {
		return node, nil
	}
	if !node.IsFolder && node.WrappedKeyFor(callerID) != nil {
		return node, nil
	}
	return nil, common.ErrorNotFound
}

// authorizeWrite loads a node the caller may mutate. Only the owner may
// mutate; a share recipient is told ErrorForbidden, anyone else gets the
// same ErrorNotFound an absent id would produce.
func authorizeWrite(ctx context.Context, repo nodes.Repository, id, callerID string) (*models.Node, error) {
	node, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.OwnerID == callerID {
		return node, nil
	}
	if !node.IsFolder && node.WrappedKeyFor(callerID) != nil {
		return nil, common.ErrorForbidden
	}
	return nil, common.ErrorNotFound
}

// validateParent checks that a prospective parent exists, is a folder and
// belongs to ownerID. A foreign or absent parent reads as ErrorNotFound so
// existence of other users' folders never leaks.
func validateParent(ctx context.Context, repo nodes.Repository, ownerID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	parent, err := repo.GetByID(ctx, *parentID)
	if err != nil {
		return err
	}
	if parent.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	if !parent.IsFolder {
		return fmt.Errorf("%w: parent is not a folder", common.ErrorInvalidInput)
	}
	return nil
}

// filterKeysForCaller reduces the wrapped-key list to what the caller is
// entitled to: the owner sees every entry, a recipient only their own.
func filterKeysForCaller(node *models.Node, callerID string) *models.Node {
	if node.OwnerID == callerID {
		return node
	}
	if wk := node.WrappedKeyFor(callerID); wk != nil {
		c := *node
		c.WrappedKeys = []models.WrappedKey{*wk}
		return &c
	}
	return node.Projection()
}

// CreateFolder creates a folder node under parentID (nil for root level).
func (s *NodeService) CreateFolder(ctx context.Context, ownerID string, parentID *string, encryptedName, nameNonce []byte) (*models.Node, error) {
	node, err := models.NewFolder(ownerID, parentID, encryptedName, nameNonce)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Nodes(s.db)
	if err := validateParent(ctx, repo, ownerID, parentID); err != nil {
		return nil, err
	}

	node.ID = uuid.New().String()
	if err := repo.Create(ctx, node); err != nil {
		return nil, fmt.Errorf("error creating folder: %w", err)
	}
	return node, nil
}

// Get returns the node if the caller is its owner or a share recipient,
// with the wrapped-key list filtered down to the caller's entitlement.
func (s *NodeService) Get(ctx context.Context, id, callerID string) (*models.Node, error) {
	repo := s.repomanager.Nodes(s.db)
	node, err := authorizeRead(ctx, repo, id, callerID)
	if err != nil {
		return nil, err
	}
	return filterKeysForCaller(node, callerID), nil
}

// ListAll returns every node the caller owns, key material excluded.
func (s *NodeService) ListAll(ctx context.Context, callerID string) ([]*models.Node, error) {
	repo := s.repomanager.Nodes(s.db)
	items, err := repo.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("error listing nodes: %w", err)
	}
	return items, nil
}

// ListChildren returns the caller's nodes directly under parentID. The
// query is owner-scoped, so children of another user's folder come back
// empty rather than revealing anything.
func (s *NodeService) ListChildren(ctx context.Context, callerID string, parentID *string) ([]*models.Node, error) {
	repo := s.repomanager.Nodes(s.db)
	items, err := repo.ListChildren(ctx, callerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("error listing children: %w", err)
	}
	return items, nil
}

// Rename replaces a node's encrypted display name. Owner only.
func (s *NodeService) Rename(ctx context.Context, id, callerID string, encryptedName, nameNonce []byte) error {
	if len(encryptedName) == 0 || len(nameNonce) == 0 {
		return fmt.Errorf("%w: missing encrypted name or nonce", common.ErrorInvalidInput)
	}

	repo := s.repomanager.Nodes(s.db)
	if _, err := authorizeWrite(ctx, repo, id, callerID); err != nil {
		return err
	}
	return repo.Rename(ctx, id, encryptedName, nameNonce)
}

// Delete removes a node. Folders must be empty. For files the blob is
// removed first: if the object store delete fails the node stays intact,
// so metadata never points nowhere because of a half-done delete. A
// metadata delete failing after the blob went away is the one tolerated
// inconsistency, caught later as ErrorContentMissing on download.
func (s *NodeService) Delete(ctx context.Context, id, callerID string) error {
	repo := s.repomanager.Nodes(s.db)
	node, err := authorizeWrite(ctx, repo, id, callerID)
	if err != nil {
		return err
	}

	if node.IsFolder {
		hasChildren, err := repo.HasChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("error checking children: %w", err)
		}
		if hasChildren {
			return common.ErrorNotEmpty
		}
		return repo.Delete(ctx, id)
	}

	if err := s.store.Delete(ctx, node.StorageKey); err != nil {
		return fmt.Errorf("error deleting blob: %w", err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// the row vanished mid-flight, nothing left to do
			return nil
		}
		return fmt.Errorf("error deleting metadata: %w", err)
	}
	return nil
}
