package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/dbx"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, common.ErrorLoginAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

const userColumns = `id, email, display_name, password_hash, public_key, wrapped_private_key,
		private_key_nonce, created_at, updated_at`

func (r *PostgresRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.DisplayName,
		&user.PasswordHash, &user.PublicKey, &user.WrappedPrivateKey, &user.PrivateKeyNonce,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, `email = $1`, email)
}

func (r *PostgresRepository) UpsertKeys(ctx context.Context, id string, publicKey, wrappedPrivateKey, privateKeyNonce []byte) error {
	query := `
		UPDATE users SET public_key = $1, wrapped_private_key = $2, private_key_nonce = $3, updated_at = now()
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, publicKey, wrappedPrivateKey, privateKeyNonce, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
