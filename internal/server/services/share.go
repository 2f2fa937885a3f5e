package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
)

// ShareService maintains the per-file wrapped-key list. Only the owner may
// add or replace entries; there is no transitive re-sharing and no
// revocation.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager) *ShareService {
	return &ShareService{db: db, repomanager: m}
}

// Share upserts the wrapped content key for recipientID on the file. The
// upsert is idempotent per recipient: a second share for the same
// recipient replaces the previous wrapped entry, because a wrapped key is
// a function of one content key and one recipient public key and a stale
// entry must not coexist with its replacement.
func (s *ShareService) Share(ctx context.Context, fileID, ownerID, recipientID string, wrappedKey []byte) error {
	if len(wrappedKey) == 0 || recipientID == "" {
		return fmt.Errorf("%w: missing recipient or wrapped key", common.ErrorInvalidInput)
	}

	nodeRepo := s.repomanager.Nodes(s.db)
	node, err := nodeRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if node.OwnerID != ownerID {
		return common.ErrorForbidden
	}
	if node.IsFolder {
		return fmt.Errorf("%w: folders are not shareable", common.ErrorInvalidInput)
	}

	// the recipient must have published a public key, or no wrapped entry
	// could have been produced for them in the first place
	userRepo := s.repomanager.Users(s.db)
	recipient, err := userRepo.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorRecipientUnresolvable
		}
		return fmt.Errorf("error resolving recipient: %w", err)
	}
	if !recipient.HasPublicKey() {
		return common.ErrorRecipientUnresolvable
	}

	return nodeRepo.UpsertShare(ctx, fileID, recipientID, wrappedKey)
}
