package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/server/auth"
	"github.com/dmitrijs2005/cipherdrive/internal/server/config"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
)

func testUserConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	return cfg
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	m := newFakeManager()
	s := NewUserService(nil, m, testUserConfig())

	t.Run("success", func(t *testing.T) {
		u, err := s.Register(ctx, "alice@example.com", "secret", "Alice")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.NoError(t, bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("secret")))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := s.Register(ctx, "alice@example.com", "other", "Alice 2")
		assert.ErrorIs(t, err, common.ErrorLoginAlreadyExists)
	})

	t.Run("missing password", func(t *testing.T) {
		_, err := s.Register(ctx, "bob@example.com", "", "Bob")
		assert.ErrorIs(t, err, common.ErrorInvalidInput)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	m := newFakeManager()
	cfg := testUserConfig()
	s := NewUserService(nil, m, cfg)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	m.users.add(&models.User{ID: "alice", Email: "alice@example.com", PasswordHash: hash})

	t.Run("success mints a valid pair", func(t *testing.T) {
		pair, err := s.Login(ctx, "alice@example.com", "secret")
		require.NoError(t, err)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)

		claims, err := auth.ParseToken(pair.AccessToken, []byte(cfg.SecretKey))
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)

		stored, err := m.tokens.Find(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.Login(ctx, "alice@example.com", "nope")
		assert.ErrorIs(t, err, common.ErrorUnauthenticated)
	})

	t.Run("unknown email reads the same as wrong password", func(t *testing.T) {
		_, err := s.Login(ctx, "nobody@example.com", "secret")
		assert.ErrorIs(t, err, common.ErrorUnauthenticated)
	})
}

func TestUserService_RefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation invalidates the old token", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectBegin()
		mock.ExpectCommit()

		m := newFakeManager()
		s := NewUserService(db, m, testUserConfig())
		m.users.add(&models.User{ID: "alice", Email: "alice@example.com"})
		require.NoError(t, m.tokens.Create(ctx, "alice", "old-token", time.Hour))

		pair, err := s.RefreshToken(ctx, "old-token")
		require.NoError(t, err)
		assert.NotEqual(t, "old-token", pair.RefreshToken)

		_, err = m.tokens.Find(ctx, "old-token")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = m.tokens.Find(ctx, pair.RefreshToken)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired token", func(t *testing.T) {
		m := newFakeManager()
		s := NewUserService(nil, m, testUserConfig())
		require.NoError(t, m.tokens.Create(ctx, "alice", "stale", -time.Minute))

		_, err := s.RefreshToken(ctx, "stale")
		assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
	})

	t.Run("unknown token", func(t *testing.T) {
		m := newFakeManager()
		s := NewUserService(nil, m, testUserConfig())

		_, err := s.RefreshToken(ctx, "never-issued")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}
