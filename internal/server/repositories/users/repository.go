// Package users declares the repository contract for subjects and their
// published key records.
package users

import (
	"context"

	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpsertKeys idempotently publishes a subject's public key together
	// with their own wrapped private key material.
	UpsertKeys(ctx context.Context, id string, publicKey, wrappedPrivateKey, privateKeyNonce []byte) error
}
