package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
)

// KeyService is the key-publication registry: each subject's public key,
// plus that subject's own private key wrapped under a key only the subject
// can derive. The server stores both opaquely and can never recover the
// private key itself.
type KeyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewKeyService(db *sql.DB, m repomanager.RepositoryManager) *KeyService {
	return &KeyService{db: db, repomanager: m}
}

// Publish idempotently stores the subject's key record. Always permitted
// for the authenticated subject publishing their own record; re-publishing
// replaces the previous material.
func (s *KeyService) Publish(ctx context.Context, subjectID string, publicKey, wrappedPrivateKey, privateKeyNonce []byte) error {
	if len(publicKey) == 0 || len(wrappedPrivateKey) == 0 || len(privateKeyNonce) == 0 {
		return fmt.Errorf("%w: missing key material", common.ErrorInvalidInput)
	}
	repo := s.repomanager.Users(s.db)
	return repo.UpsertKeys(ctx, subjectID, publicKey, wrappedPrivateKey, privateKeyNonce)
}

// LookupPublic returns only the public key of subjectID. Available to any
// authenticated caller; required before a share can be produced.
func (s *KeyService) LookupPublic(ctx context.Context, subjectID string) ([]byte, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return user.PublicKey, nil
}

// LookupOwn returns the full key record including the wrapped private key.
// The transport layer must only route the authenticated subject here for
// their own id.
func (s *KeyService) LookupOwn(ctx context.Context, subjectID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.GetByID(ctx, subjectID)
}

// LookupByEmail resolves a share target by email, returning the subject id
// and public key needed to produce a wrapped entry for them.
func (s *KeyService) LookupByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: missing email", common.ErrorInvalidInput)
	}
	repo := s.repomanager.Users(s.db)
	return repo.GetByEmail(ctx, email)
}
