// Package refreshtokens declares the repository contract for refresh tokens
// issued by the authentication flow.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
}
