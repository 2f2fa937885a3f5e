package nodes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/dbx"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

const nodeColumns = `id, owner_id, is_folder, parent_id, storage_key, encrypted_name, name_nonce,
		content_nonce, mime_type, size_bytes, ai_tags, summary, created_at, updated_at`

// PostgresRepository implements node storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var (
		item         models.Node
		parentID     sql.NullString
		contentNonce []byte
		aiTags       sql.NullString
		summary      sql.NullString
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &item.IsFolder, &parentID, &item.StorageKey,
		&item.EncryptedName, &item.NameNonce, &contentNonce, &item.MimeType, &item.SizeBytes,
		&aiTags, &summary, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		item.ParentID = &parentID.String
	}
	item.ContentNonce = contentNonce
	if aiTags.Valid && aiTags.String != "" {
		if err := json.Unmarshal([]byte(aiTags.String), &item.AITags); err != nil {
			return nil, fmt.Errorf("bad ai_tags payload: %w", err)
		}
	}
	item.Summary = summary.String
	return &item, nil
}

func (r *PostgresRepository) Create(ctx context.Context, node *models.Node) error {
	query := `
		INSERT INTO nodes (id, owner_id, is_folder, parent_id, storage_key, encrypted_name, name_nonce,
			content_nonce, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	var contentNonce []byte
	if !node.IsFolder {
		contentNonce = node.ContentNonce
	}
	mimeType := node.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if err := r.db.QueryRowContext(ctx, query,
		node.ID, node.OwnerID, node.IsFolder, node.ParentID, node.StorageKey,
		node.EncryptedName, node.NameNonce, contentNonce, mimeType, node.SizeBytes).
		Scan(&node.CreatedAt, &node.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	for _, wk := range node.WrappedKeys {
		if err := r.UpsertShare(ctx, node.ID, wk.RecipientID, wk.Wrapped); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`

	node, err := scanNode(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	shares, err := r.listShares(ctx, id)
	if err != nil {
		return nil, err
	}
	node.WrappedKeys = shares
	return node, nil
}

func (r *PostgresRepository) listShares(ctx context.Context, nodeID string) ([]models.WrappedKey, error) {
	query := `
		SELECT recipient_id, wrapped_key, updated_at FROM node_shares
		WHERE node_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.WrappedKey
	for rows.Next() {
		var wk models.WrappedKey
		if err := rows.Scan(&wk.RecipientID, &wk.Wrapped, &wk.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, wk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) queryNodes(ctx context.Context, query string, args ...any) ([]*models.Node, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Node
	for rows.Next() {
		item, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE owner_id = $1 ORDER BY created_at`
	return r.queryNodes(ctx, query, ownerID)
}

func (r *PostgresRepository) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*models.Node, error) {
	if parentID == nil {
		query := `SELECT ` + nodeColumns + ` FROM nodes WHERE owner_id = $1 AND parent_id IS NULL ORDER BY created_at`
		return r.queryNodes(ctx, query, ownerID)
	}
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE owner_id = $1 AND parent_id = $2 ORDER BY created_at`
	return r.queryNodes(ctx, query, ownerID, *parentID)
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, encryptedName, nameNonce []byte) error {
	query := `UPDATE nodes SET encrypted_name = $1, name_nonce = $2, updated_at = now() WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, encryptedName, nameNonce, id)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM nodes WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
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

func (r *PostgresRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM nodes WHERE parent_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// UpsertShare relies on the (node_id, recipient_id) primary key for its
// atomic replace-by-key semantics: concurrent writes for the same
// recipient resolve to last-writer-wins without duplicating entries.
func (r *PostgresRepository) UpsertShare(ctx context.Context, nodeID, recipientID string, wrapped []byte) error {
	query := `
		INSERT INTO node_shares (node_id, recipient_id, wrapped_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (node_id, recipient_id)
		DO UPDATE SET wrapped_key = EXCLUDED.wrapped_key, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, nodeID, recipientID, wrapped); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetAnnotations(ctx context.Context, id string, tags []string, summary string) error {
	payload, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := `UPDATE nodes SET ai_tags = $1, summary = $2, updated_at = now() WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, string(payload), summary, id)
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
