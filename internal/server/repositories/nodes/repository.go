// Package nodes declares the data-access contract for file and folder
// metadata records, including the per-recipient wrapped-key list.
package nodes

import (
	"context"

	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

type Repository interface {
	// Create inserts a new node row (and its initial shares, if any).
	Create(ctx context.Context, node *models.Node) error

	// GetByID returns the node with its wrapped-key list loaded, or
	// common.ErrorNotFound when no such row exists. Authorization is the
	// caller's concern.
	GetByID(ctx context.Context, id string) (*models.Node, error)

	// ListByOwner returns every node owned by ownerID, shares not loaded.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Node, error)

	// ListChildren returns ownerID's nodes directly under parentID
	// (nil means root level), shares not loaded.
	ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*models.Node, error)

	// Rename replaces the encrypted display name and its nonce.
	Rename(ctx context.Context, id string, encryptedName, nameNonce []byte) error

	// Delete removes the node row. Shares go with it (FK cascade).
	Delete(ctx context.Context, id string) error

	// HasChildren reports whether any node has the given id as parent.
	HasChildren(ctx context.Context, id string) (bool, error)

	// UpsertShare inserts or atomically replaces the wrapped-key entry for
	// (nodeID, recipientID). Last writer wins.
	UpsertShare(ctx context.Context, nodeID, recipientID string, wrapped []byte) error

	// SetAnnotations stores the analysis worker's non-authoritative tags
	// and summary.
	SetAnnotations(ctx context.Context, id string, tags []string, summary string) error
}
