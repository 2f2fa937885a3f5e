package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
)

func TestNodeService_CreateFolder(t *testing.T) {
	m := newFakeManager()
	s := NewNodeService(nil, m, newFakeStore())
	ctx := context.Background()

	t.Run("root level", func(t *testing.T) {
		n, err := s.CreateFolder(ctx, "alice", nil, []byte("enc"), []byte("nonce"))
		require.NoError(t, err)
		assert.NotEmpty(t, n.ID)
		assert.True(t, n.IsFolder)
		assert.Nil(t, n.ParentID)
	})

	t.Run("under own folder", func(t *testing.T) {
		parent := seedFolder(m.nodes, nextID("folder"), "alice", nil)
		n, err := s.CreateFolder(ctx, "alice", &parent.ID, []byte("enc"), []byte("nonce"))
		require.NoError(t, err)
		require.NotNil(t, n.ParentID)
		assert.Equal(t, parent.ID, *n.ParentID)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := s.CreateFolder(ctx, "alice", nil, nil, []byte("nonce"))
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})

	t.Run("parent owned by someone else reads as absent", func(t *testing.T) {
		parent := seedFolder(m.nodes, nextID("folder"), "bob", nil)
		_, err := s.CreateFolder(ctx, "alice", &parent.ID, []byte("enc"), []byte("nonce"))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("parent is a file", func(t *testing.T) {
		parent := seedFile(m.nodes, nextID("file"), "alice", nil)
		_, err := s.CreateFolder(ctx, "alice", &parent.ID, []byte("enc"), []byte("nonce"))
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})

	t.Run("parent does not exist", func(t *testing.T) {
		missing := "no-such-folder"
		_, err := s.CreateFolder(ctx, "alice", &missing, []byte("enc"), []byte("nonce"))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestNodeService_Get(t *testing.T) {
	m := newFakeManager()
	s := NewNodeService(nil, m, newFakeStore())
	ctx := context.Background()

	file := seedFile(m.nodes, nextID("file"), "alice", nil)
	require.NoError(t, m.nodes.UpsertShare(ctx, file.ID, "bob", []byte("wk-bob")))

	t.Run("owner sees all wrapped keys", func(t *testing.T) {
		n, err := s.Get(ctx, file.ID, "alice")
		require.NoError(t, err)
		assert.Len(t, n.WrappedKeys, 2)
	})

	t.Run("recipient sees only their entry", func(t *testing.T) {
		n, err := s.Get(ctx, file.ID, "bob")
		require.NoError(t, err)
		require.Len(t, n.WrappedKeys, 1)
		assert.Equal(t, "bob", n.WrappedKeys[0].RecipientID)
		assert.Equal(t, []byte("wk-bob"), n.WrappedKeys[0].Wrapped)
	})

	t.Run("stranger cannot tell shared from absent", func(t *testing.T) {
		_, errExisting := s.Get(ctx, file.ID, "mallory")
		_, errMissing := s.Get(ctx, "no-such-node", "mallory")
		assert.ErrorIs(t, errExisting, common.ErrorNotFound)
		assert.ErrorIs(t, errMissing, common.ErrorNotFound)
	})

	t.Run("folder share entries do not grant access", func(t *testing.T) {
		folder := seedFolder(m.nodes, nextID("folder"), "alice", nil)
		_, err := s.Get(ctx, folder.ID, "bob")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestNodeService_ListChildren(t *testing.T) {
	m := newFakeManager()
	s := NewNodeService(nil, m, newFakeStore())
	ctx := context.Background()

	root := seedFolder(m.nodes, nextID("folder"), "alice", nil)
	seedFile(m.nodes, nextID("file"), "alice", &root.ID)
	seedFile(m.nodes, nextID("file"), "alice", &root.ID)
	seedFile(m.nodes, nextID("file"), "bob", nil)

	t.Run("own folder", func(t *testing.T) {
		items, err := s.ListChildren(ctx, "alice", &root.ID)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("foreign folder comes back empty", func(t *testing.T) {
		items, err := s.ListChildren(ctx, "bob", &root.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestNodeService_Rename(t *testing.T) {
	m := newFakeManager()
	s := NewNodeService(nil, m, newFakeStore())
	ctx := context.Background()

	file := seedFile(m.nodes, nextID("file"), "alice", nil)
	require.NoError(t, m.nodes.UpsertShare(ctx, file.ID, "bob", []byte("wk-bob")))

	t.Run("owner renames", func(t *testing.T) {
		err := s.Rename(ctx, file.ID, "alice", []byte("new-enc"), []byte("new-nonce"))
		require.NoError(t, err)
		n, err := m.nodes.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("new-enc"), n.EncryptedName)
	})

	t.Run("recipient is refused", func(t *testing.T) {
		err := s.Rename(ctx, file.ID, "bob", []byte("x"), []byte("y"))
		assert.ErrorIs(t, err, common.ErrorForbidden)
	})

	t.Run("stranger gets absent", func(t *testing.T) {
		err := s.Rename(ctx, file.ID, "mallory", []byte("x"), []byte("y"))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("missing nonce", func(t *testing.T) {
		err := s.Rename(ctx, file.ID, "alice", []byte("x"), nil)
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})
}

func TestNodeService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("empty folder", func(t *testing.T) {
		m := newFakeManager()
		s := NewNodeService(nil, m, newFakeStore())
		folder := seedFolder(m.nodes, nextID("folder"), "alice", nil)
		require.NoError(t, s.Delete(ctx, folder.ID, "alice"))
		_, err := m.nodes.GetByID(ctx, folder.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("non-empty folder is refused until emptied", func(t *testing.T) {
		m := newFakeManager()
		s := NewNodeService(nil, m, newFakeStore())
		folder := seedFolder(m.nodes, nextID("folder"), "alice", nil)
		child := seedFolder(m.nodes, nextID("folder"), "alice", &folder.ID)

		err := s.Delete(ctx, folder.ID, "alice")
		assert.ErrorIs(t, err, common.ErrorNotEmpty)

		require.NoError(t, s.Delete(ctx, child.ID, "alice"))
		require.NoError(t, s.Delete(ctx, folder.ID, "alice"))
	})

	t.Run("file delete removes blob then row", func(t *testing.T) {
		m := newFakeManager()
		store := newFakeStore()
		s := NewNodeService(nil, m, store)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)
		store.blobs[file.StorageKey] = []byte("ciphertext")

		require.NoError(t, s.Delete(ctx, file.ID, "alice"))
		_, ok := store.blobs[file.StorageKey]
		assert.False(t, ok)
		_, err := m.nodes.GetByID(ctx, file.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("blob delete failure keeps metadata intact", func(t *testing.T) {
		m := newFakeManager()
		store := newFakeStore()
		store.delErr = errors.New("s3 down")
		s := NewNodeService(nil, m, store)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)

		err := s.Delete(ctx, file.ID, "alice")
		require.Error(t, err)
		_, err = m.nodes.GetByID(ctx, file.ID)
		assert.NoError(t, err)
	})

	t.Run("recipient may not delete", func(t *testing.T) {
		m := newFakeManager()
		s := NewNodeService(nil, m, newFakeStore())
		file := seedFile(m.nodes, nextID("file"), "alice", nil)
		require.NoError(t, m.nodes.UpsertShare(ctx, file.ID, "bob", []byte("wk-bob")))

		err := s.Delete(ctx, file.ID, "bob")
		assert.ErrorIs(t, err, common.ErrorForbidden)
	})
}
