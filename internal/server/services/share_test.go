package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

func seedRecipient(m *fakeManager, id string, withKey bool) {
	u := &models.User{ID: id, Email: id + "@example.com"}
	if withKey {
		u.PublicKey = []byte("pub-" + id)
	}
	m.users.add(u)
}

func TestShareService_Share(t *testing.T) {
	ctx := context.Background()

	t.Run("owner shares a file", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)
		seedRecipient(m, "bob", true)

		require.NoError(t, s.Share(ctx, file.ID, "alice", "bob", []byte("wk-bob")))

		n, err := m.nodes.GetByID(ctx, file.ID)
		require.NoError(t, err)
		require.NotNil(t, n.WrappedKeyFor("bob"))
		assert.Equal(t, []byte("wk-bob"), n.WrappedKeyFor("bob").Wrapped)
	})

	t.Run("sharing twice leaves one entry, last wins", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)
		seedRecipient(m, "bob", true)

		require.NoError(t, s.Share(ctx, file.ID, "alice", "bob", []byte("wk-old")))
		require.NoError(t, s.Share(ctx, file.ID, "alice", "bob", []byte("wk-new")))

		n, err := m.nodes.GetByID(ctx, file.ID)
		require.NoError(t, err)
		count := 0
		for _, wk := range n.WrappedKeys {
			if wk.RecipientID == "bob" {
				count++
				assert.Equal(t, []byte("wk-new"), wk.Wrapped)
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("non-owner is refused", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)
		seedRecipient(m, "bob", true)
		seedRecipient(m, "carol", true)
		require.NoError(t, m.nodes.UpsertShare(ctx, file.ID, "bob", []byte("wk-bob")))

		err := s.Share(ctx, file.ID, "bob", "carol", []byte("wk-carol"))
		assert.ErrorIs(t, err, common.ErrorForbidden)
	})

	t.Run("folders are not shareable", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		folder := seedFolder(m.nodes, nextID("folder"), "alice", nil)
		seedRecipient(m, "bob", true)

		err := s.Share(ctx, folder.ID, "alice", "bob", []byte("wk"))
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)

		err := s.Share(ctx, file.ID, "alice", "nobody", []byte("wk"))
		assert.ErrorIs(t, err, common.ErrorRecipientUnresolvable)
	})

	t.Run("recipient without a published key", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)
		seedRecipient(m, "bob", false)

		err := s.Share(ctx, file.ID, "alice", "bob", []byte("wk"))
		assert.ErrorIs(t, err, common.ErrorRecipientUnresolvable)
	})

	t.Run("missing wrapped key", func(t *testing.T) {
		m := newFakeManager()
		s := NewShareService(nil, m)
		file := seedFile(m.nodes, nextID("file"), "alice", nil)

		err := s.Share(ctx, file.ID, "alice", "bob", nil)
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})
}
