package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/logging"
	sc "github.com/dmitrijs2005/cipherdrive/internal/server/config"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
	"github.com/dmitrijs2005/cipherdrive/internal/server/queue"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cipherdrive/internal/server/storage"
)

// TransferService coordinates the object store and the metadata store for
// uploads and downloads. The write order guarantees that a node which
// exists always has a blob; the reverse is not guaranteed (an orphan blob
// is safe and reclaimable, dangling metadata is not and must never come
// out of this path).
type TransferService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	publisher   queue.Publisher
	logger      logging.Logger
	presignTTL  time.Duration
}

func NewTransferService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore,
	publisher queue.Publisher, logger logging.Logger, cfg *sc.Config) *TransferService {
	return &TransferService{
		db:          db,
		repomanager: m,
		store:       store,
		publisher:   publisher,
		logger:      logger.With("module", "transfer"),
		presignTTL:  cfg.PresignTTL,
	}
}

// newStorageKey builds a fresh opaque object key. Never derived from
// user-controlled names, never reused.
func newStorageKey(ownerID string) string {
	return fmt.Sprintf("files/%s/%d_%v", ownerID, time.Now().UnixMilli(), uuid.New())
}

// UploadRequest carries everything the client produced while encrypting:
// the ciphertext, the nonces, and the content key wrapped for the owner.
type UploadRequest struct {
	OwnerID            string
	ParentID           *string
	EncryptedName      []byte
	NameNonce          []byte
	ContentNonce       []byte
	Ciphertext         []byte
	WrappedKeyForOwner []byte
	MimeType           string
	DeclaredSize       int64
}

// Upload writes the blob first and the metadata second. A blob-write
// failure aborts before any metadata exists; a metadata failure after a
// successful write leaves only an orphan blob for the sweep to reclaim.
func (s *TransferService) Upload(ctx context.Context, req UploadRequest) (*models.Node, error) {
	if len(req.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: missing ciphertext", common.ErrorInvalidInput)
	}

	size := req.DeclaredSize
	if size <= 0 {
		size = int64(len(req.Ciphertext))
	}

	node, err := models.NewFile(req.OwnerID, req.ParentID, newStorageKey(req.OwnerID),
		req.EncryptedName, req.NameNonce, req.ContentNonce, req.MimeType, size)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Nodes(s.db)
	if err := validateParent(ctx, repo, req.OwnerID, req.ParentID); err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, node.StorageKey, req.Ciphertext); err != nil {
		return nil, fmt.Errorf("error writing blob: %w", err)
	}

	node.ID = uuid.New().String()
	if len(req.WrappedKeyForOwner) > 0 {
		node.WrappedKeys = []models.WrappedKey{{RecipientID: req.OwnerID, Wrapped: req.WrappedKeyForOwner}}
	}
	if err := repo.Create(ctx, node); err != nil {
		// the blob just written is now an orphan: reclaimable, invisible
		s.logger.Warn(ctx, "metadata create failed after blob write, blob orphaned",
			"storage_key", node.StorageKey)
		return nil, fmt.Errorf("error creating node: %w", err)
	}

	s.enqueueAnalysis(node)

	return node, nil
}

// enqueueAnalysis hands the node to the analysis pipeline without waiting.
// The pipeline is best-effort: a publish failure is logged and forgotten,
// it never fails the upload.
func (s *TransferService) enqueueAnalysis(node *models.Node) {
	task := queue.AnalysisTask{NodeID: node.ID, StorageKey: node.StorageKey, MimeType: node.MimeType}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishAnalysis(ctx, task); err != nil {
			s.logger.Warn(ctx, "analysis enqueue failed", "node_id", task.NodeID, "error", err.Error())
		}
	}()
}

// DownloadResult is everything the caller needs to locate and decrypt the
// ciphertext. The server itself never decrypts.
type DownloadResult struct {
	Node        *models.Node
	DownloadURL string
}

// Download authorizes the caller, confirms the blob still exists and
// returns the encrypted fields plus a short-lived presigned URL. A node
// whose blob is gone surfaces as ErrorContentMissing, deliberately
// distinct from ErrorNotFound so "broken" never masquerades as
// "not yours".
func (s *TransferService) Download(ctx context.Context, nodeID, callerID string) (*DownloadResult, error) {
	repo := s.repomanager.Nodes(s.db)
	node, err := authorizeRead(ctx, repo, nodeID, callerID)
	if err != nil {
		return nil, err
	}
	if node.IsFolder {
		return nil, common.ErrorNotFound
	}

	exists, err := s.store.Head(ctx, node.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("error checking blob: %w", err)
	}
	if !exists {
		return nil, common.ErrorContentMissing
	}

	url, err := s.store.PresignGet(ctx, node.StorageKey, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("error presigning url: %w", err)
	}

	return &DownloadResult{Node: filterKeysForCaller(node, callerID), DownloadURL: url}, nil
}

// OpenRaw streams the ciphertext bytes directly, for clients that cannot
// follow a presigned URL. Same authorization rule as Download.
func (s *TransferService) OpenRaw(ctx context.Context, nodeID, callerID string) (io.ReadCloser, error) {
	repo := s.repomanager.Nodes(s.db)
	node, err := authorizeRead(ctx, repo, nodeID, callerID)
	if err != nil {
		return nil, err
	}
	if node.IsFolder {
		return nil, common.ErrorNotFound
	}

	r, err := s.store.Get(ctx, node.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// metadata exists, blob does not
			return nil, common.ErrorContentMissing
		}
		return nil, fmt.Errorf("error opening blob: %w", err)
	}
	return r, nil
}
