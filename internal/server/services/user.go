package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/dbx"
	"github.com/dmitrijs2005/cipherdrive/internal/server/auth"
	"github.com/dmitrijs2005/cipherdrive/internal/server/config"
	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a new user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: missing email or password", common.ErrorInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorLoginAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the password against the stored hash and, on success,
// returns a new TokenPair. A missing user and a wrong password are both
// reported as ErrorUnauthenticated.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, common.ErrorUnauthenticated
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	userRepo := s.repomanager.Users(s.db)
	user, err := userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, user, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Me returns the profile for the authenticated subject.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.GetByID(ctx, userID)
}

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	return auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
