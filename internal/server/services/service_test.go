package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/dbx"
	"github.com/dmitrijs2005/cipherdrive/internal/logging"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
	"github.com/dmitrijs2005/cipherdrive/internal/server/queue"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/nodes"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/users"
)

// in-memory fakes shared by the service tests

type fakeNodeRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Node
	createErr error
	deleteErr error
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{items: make(map[string]*models.Node)}
}

func (r *fakeNodeRepo) add(n *models.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = n
}

func (r *fakeNodeRepo) Create(ctx context.Context, node *models.Node) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.add(node)
	return nil
}

func (r *fakeNodeRepo) GetByID(ctx context.Context, id string) (*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *n
	c.WrappedKeys = append([]models.WrappedKey(nil), n.WrappedKeys...)
	return &c, nil
}

func (r *fakeNodeRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Node
	for _, n := range r.items {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNodeRepo) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*models.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Node
	for _, n := range r.items {
		if n.OwnerID != ownerID {
			continue
		}
		switch {
		case parentID == nil && n.ParentID == nil:
			out = append(out, n)
		case parentID != nil && n.ParentID != nil && *n.ParentID == *parentID:
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNodeRepo) Rename(ctx context.Context, id string, encryptedName, nameNonce []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	n.EncryptedName = encryptedName
	n.NameNonce = nameNonce
	return nil
}

func (r *fakeNodeRepo) Delete(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeNodeRepo) HasChildren(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ParentID != nil && *n.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNodeRepo) UpsertShare(ctx context.Context, nodeID, recipientID string, wrapped []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[nodeID]
	if !ok {
		return common.ErrorNotFound
	}
	for i := range n.WrappedKeys {
		if n.WrappedKeys[i].RecipientID == recipientID {
			n.WrappedKeys[i].Wrapped = wrapped
			n.WrappedKeys[i].UpdatedAt = time.Now()
			return nil
		}
	}
	n.WrappedKeys = append(n.WrappedKeys, models.WrappedKey{RecipientID: recipientID, Wrapped: wrapped})
	return nil
}

func (r *fakeNodeRepo) SetAnnotations(ctx context.Context, id string, tags []string, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	n.AITags = tags
	n.Summary = summary
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	items map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{items: make(map[string]*models.User)}
}

func (r *fakeUserRepo) add(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[u.ID] = u
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == user.Email {
			return nil, common.ErrorLoginAlreadyExists
		}
	}
	r.items[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUserRepo) UpsertKeys(ctx context.Context, id string, publicKey, wrappedPrivateKey, privateKeyNonce []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PublicKey = publicKey
	u.WrappedPrivateKey = wrappedPrivateKey
	u.PrivateKeyNonce = privateKeyNonce
	return nil
}

type fakeTokenRepo struct {
	mu    sync.Mutex
	items map[string]*models.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{items: make(map[string]*models.RefreshToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[token] = &models.RefreshToken{Token: token, UserID: userID, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeTokenRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, token)
	return nil
}

type fakeManager struct {
	nodes  *fakeNodeRepo
	users  *fakeUserRepo
	tokens *fakeTokenRepo
}

func newFakeManager() *fakeManager {
	return &fakeManager{nodes: newFakeNodeRepo(), users: newFakeUserRepo(), tokens: newFakeTokenRepo()}
}

func (m *fakeManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository  { return m.tokens }
func (m *fakeManager) Nodes(db dbx.DBTX) nodes.Repository                  { return m.nodes }

type fakeStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	delErr  error
	headErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, key string, body []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = body
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStore) Head(ctx context.Context, key string) (bool, error) {
	if s.headErr != nil {
		return false, s.headErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blobs.test/" + key, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	tasks     []queue.AnalysisTask
	published chan queue.AnalysisTask
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(chan queue.AnalysisTask, 8)}
}

func (p *fakePublisher) PublishAnalysis(ctx context.Context, task queue.AnalysisTask) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()
	p.published <- task
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

var seq int

func nextID(prefix string) string {
	seq++
	return prefix + "-" + strconv.Itoa(seq)
}

func seedFolder(r *fakeNodeRepo, id, owner string, parentID *string) *models.Node {
	n := &models.Node{
		ID:            id,
		OwnerID:       owner,
		IsFolder:      true,
		ParentID:      parentID,
		EncryptedName: []byte("enc-name"),
		NameNonce:     []byte("nonce"),
	}
	r.add(n)
	return n
}

func seedFile(r *fakeNodeRepo, id, owner string, parentID *string) *models.Node {
	n := &models.Node{
		ID:            id,
		OwnerID:       owner,
		IsFolder:      false,
		ParentID:      parentID,
		StorageKey:    "files/" + owner + "/" + id,
		EncryptedName: []byte("enc-name"),
		NameNonce:     []byte("nonce"),
		ContentNonce:  []byte("cnonce"),
		MimeType:      "application/octet-stream",
		SizeBytes:     42,
		WrappedKeys:   []models.WrappedKey{{RecipientID: owner, Wrapped: []byte("wk-owner")}},
	}
	r.add(n)
	return n
}
