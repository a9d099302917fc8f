// Package services holds the server use cases: accounts and tokens,
// document storage with change fan-out, and backup upload links.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/dbx"
	"github.com/dmitrijs2005/spendsync/internal/server/auth"
	"github.com/dmitrijs2005/spendsync/internal/server/config"
	"github.com/dmitrijs2005/spendsync/internal/server/models"
	"github.com/dmitrijs2005/spendsync/internal/server/repositories/repomanager"
)

const saltSize = 32

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	jwtSecret       []byte
	accessValidity  time.Duration
	refreshValidity time.Duration
	now             func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:              db,
		repomanager:     m,
		jwtSecret:       []byte(cfg.SecretKey),
		accessValidity:  cfg.AccessTokenValidityDuration,
		refreshValidity: cfg.RefreshTokenValidityDuration,
		now:             time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {
	if username == "" || len(salt) == 0 || len(verifier) == 0 {
		return nil, fmt.Errorf("%w: username, salt and verifier are required", common.ErrValidation)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{UserName: username, Salt: salt, Verifier: verifier})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// GetSalt answers unknown usernames with a random salt so the reply does
// not reveal whether the account exists.
func (s *UserService) GetSalt(ctx context.Context, username string) ([]byte, error) {
	u, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.GenerateRandByteArray(saltSize), nil
		}
		return nil, common.ErrInternal
	}
	return u.Salt, nil
}

func (s *UserService) Login(ctx context.Context, username string, verifier []byte) (*TokenPair, error) {
	u, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}
	if subtle.ConstantTimeCompare(u.Verifier, verifier) != 1 {
		return nil, common.ErrUnauthorized
	}
	return s.issue(ctx, u.ID, s.db)
}

// RefreshToken swaps a refresh token for a new pair. The old token is
// consumed in the same transaction that stores its successor.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var err error
		pair, err = s.issue(ctx, token.UserID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// PurgeExpiredTokens removes refresh tokens that can no longer be used.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

func (s *UserService) issue(ctx context.Context, userID string, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessValidity)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}

	rt := models.RefreshToken{UserID: userID, Token: refresh, Expires: s.now().Add(s.refreshValidity)}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, rt); err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{UserID: userID, AccessToken: access, RefreshToken: refresh}, nil
}
