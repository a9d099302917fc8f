// Package services contains the application services of the spendsync
// client. This file defines the authentication collaborator: online and
// offline login, registration and sign-out housekeeping of the cached
// credentials.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/spendsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/spendsync/internal/client/storage"
	"github.com/dmitrijs2005/spendsync/internal/common"
	"github.com/dmitrijs2005/spendsync/internal/cryptox"
	"github.com/dmitrijs2005/spendsync/internal/logging"
)

// AuthClient is the remote half of authentication. *remote.GRPCClient
// implements it.
type AuthClient interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, username string, salt, verifier []byte) (string, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) (string, error)
	SetRefreshToken(token string)
	OnTokenRefresh(fn func(refreshToken string))
	ClearTokens()
}

// Identity is the result of a successful sign-in.
type Identity struct {
	OwnerID   string
	Username  string
	MasterKey []byte
}

// AuthService defines authentication operations.
//
// Contract:
//   - OnlineLogin: authenticate against the server and cache offline auth data.
//   - OfflineLogin: verify credentials against locally cached data.
//   - Register: create a new user on the server.
//   - Ping: check server liveness.
//   - Logout: forget cached credentials and tokens; expenses and budgets stay.
type AuthService interface {
	OfflineLogin(ctx context.Context, username string, password []byte) (Identity, error)
	OnlineLogin(ctx context.Context, username string, password []byte) (Identity, error)
	Register(ctx context.Context, username string, password []byte) error
	Ping(ctx context.Context) error
	Logout(ctx context.Context) error
}

type authService struct {
	client AuthClient
	store  *storage.Store
	log    logging.Logger
}

// NewAuthService wires the client so that every rotated refresh token is
// cached locally for the next offline login.
func NewAuthService(client AuthClient, store *storage.Store, log logging.Logger) AuthService {
	if log == nil {
		log = logging.NewNop()
	}
	a := &authService{client: client, store: store, log: log.With("module", "auth")}

	client.OnTokenRefresh(func(token string) {
		ctx := context.Background()
		if err := a.store.Metadata.Set(ctx, metadata.KeyRefreshToken, []byte(token)); err != nil {
			a.log.Warn(ctx, "failed to cache refresh token", "error", err)
		}
	})
	return a
}

// OfflineLogin derives the master key from the password and the cached salt
// and checks it against the cached verifier. It returns
// common.ErrLocalDataNotAvailable when nothing is cached and
// common.ErrUnauthorized on a mismatch. A cached refresh token is handed to
// the client so that a later sync can authenticate without a new login.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) (Identity, error) {
	repo := a.store.Metadata

	savedUsername, err := metadata.String(ctx, repo, metadata.KeyUsername)
	if err != nil {
		return Identity{}, err
	}
	if savedUsername == "" {
		return Identity{}, common.ErrLocalDataNotAvailable
	}
	if savedUsername != username {
		return Identity{}, common.ErrUnauthorized
	}

	salt, err := repo.Get(ctx, metadata.KeySalt)
	if err != nil {
		return Identity{}, err
	}
	verifier, err := repo.Get(ctx, metadata.KeyVerifier)
	if err != nil {
		return Identity{}, err
	}
	ownerID, err := metadata.String(ctx, repo, metadata.KeyOwnerID)
	if err != nil {
		return Identity{}, err
	}
	if len(salt) == 0 || len(verifier) == 0 || ownerID == "" {
		return Identity{}, common.ErrLocalDataNotAvailable
	}

	key := cryptox.DeriveMasterKey(password, salt)
	if !cryptox.VerifierMatches(verifier, cryptox.MakeVerifier(key)) {
		return Identity{}, common.ErrUnauthorized
	}

	refresh, err := metadata.String(ctx, repo, metadata.KeyRefreshToken)
	if err != nil {
		return Identity{}, err
	}
	if refresh != "" {
		a.client.SetRefreshToken(refresh)
	}

	return Identity{OwnerID: ownerID, Username: username, MasterKey: key}, nil
}

// OnlineLogin authenticates against the server, caches the data needed for
// offline login and returns the identity with the derived master key.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) (Identity, error) {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return Identity{}, fmt.Errorf("get salt error: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	ownerID, err := a.client.Login(ctx, username, verifier)
	if err != nil {
		return Identity{}, fmt.Errorf("login error: %w", err)
	}

	if err := a.saveOfflineData(ctx, username, ownerID, salt, verifier); err != nil {
		return Identity{}, fmt.Errorf("offline data saving error: %w", err)
	}
	return Identity{OwnerID: ownerID, Username: username, MasterKey: key}, nil
}

func (a *authService) saveOfflineData(ctx context.Context, username, ownerID string, salt, verifier []byte) error {
	return a.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		values := map[string][]byte{
			metadata.KeyUsername: []byte(username),
			metadata.KeyOwnerID:  []byte(ownerID),
			metadata.KeySalt:     salt,
			metadata.KeyVerifier: verifier,
		}
		for k, v := range values {
			if err := r.Metadata.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Register creates a new account on the server. It generates a random salt,
// derives a master key from the password and sends salt and verifier.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	if _, err := a.client.Register(ctx, username, salt, cryptox.MakeVerifier(key)); err != nil {
		return err
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.ClearTokens()
	return a.store.InTx(ctx, func(ctx context.Context, r storage.Repos) error {
		for _, k := range metadata.CredentialKeys {
			if err := r.Metadata.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
