// Package services contains application services for the dialer client.
// This file defines the authentication service: token login, session restore
// from the local cache, liveness probe, and logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/client"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/conversations"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/metadata"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/identity"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

var (
	ErrNoSession   = errors.New("no saved session")
	ErrNoOwnNumber = errors.New("own number unknown")
)

// Session is the signed-in account.
type Session struct {
	AccessToken string
	OwnNumber   string
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: adopt a token, resolve the own number and remember both.
//   - Restore: reuse the session saved by a previous Login against the same server.
//   - Ping: check server liveness.
//   - Logout: forget the saved session and the cached conversations.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, token, ownNumber string) (Session, error)
	Restore(ctx context.Context, ownNumber string) (Session, error)
	Ping(ctx context.Context) error
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

// tokenHolder is implemented by transports that attach a token to calls.
type tokenHolder interface {
	SetAccessToken(token string)
}

type authService struct {
	client     client.Client
	db         *sql.DB
	serverAddr string
	logger     logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and
// cache DB. serverAddr scopes the saved session to one backend.
func NewAuthService(c client.Client, db *sql.DB, serverAddr string, logger logging.Logger) AuthService {
	return &authService{client: c, db: db, serverAddr: serverAddr, logger: logger.With("module", "auth")}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// OwnNumberFromToken reads the phone claim of a token without verifying its
// signature. The backend verifies the token on every call.
func OwnNumberFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	phone, _ := claims[common.PhoneClaim].(string)
	if phone == "" {
		return "", fmt.Errorf("%w: no %s claim", ErrNoOwnNumber, common.PhoneClaim)
	}
	return phone, nil
}

// Login adopts token. ownNumber, when set, wins over the token claim.
func (a *authService) Login(ctx context.Context, token, ownNumber string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, fmt.Errorf("%w: empty token", common.ErrorInvalidInput)
	}

	number := strings.TrimSpace(ownNumber)
	if number == "" {
		n, err := OwnNumberFromToken(token)
		if err != nil {
			return Session{}, err
		}
		number = n
	}
	if identity.Key(number) == "" {
		return Session{}, fmt.Errorf("%w: %q is not a phone number", ErrNoOwnNumber, number)
	}

	a.applyToken(token)

	err := a.getMetadataRepo().SetMany(ctx, map[string]string{
		metadata.KeyAccessToken: token,
		metadata.KeyOwnNumber:   number,
		metadata.KeyServerAddr:  a.serverAddr,
	})
	if err != nil {
		return Session{}, fmt.Errorf("session saving error: %w", err)
	}

	a.logger.Info(ctx, "logged in", "own_number", number)
	return Session{AccessToken: token, OwnNumber: number}, nil
}

// Restore returns the saved session. A session saved for another server is
// not reused. ownNumber, when set, replaces the saved number.
func (a *authService) Restore(ctx context.Context, ownNumber string) (Session, error) {
	saved, err := a.getMetadataRepo().List(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("session loading error: %w", err)
	}

	token := saved[metadata.KeyAccessToken]
	if token == "" {
		return Session{}, ErrNoSession
	}
	if addr := saved[metadata.KeyServerAddr]; addr != "" && addr != a.serverAddr {
		a.logger.Info(ctx, "saved session belongs to another server", "saved", addr, "current", a.serverAddr)
		return Session{}, ErrNoSession
	}

	number := strings.TrimSpace(ownNumber)
	if number == "" {
		number = saved[metadata.KeyOwnNumber]
	}
	if identity.Key(number) == "" {
		return Session{}, ErrNoOwnNumber
	}

	a.applyToken(token)
	return Session{AccessToken: token, OwnNumber: number}, nil
}

func (a *authService) applyToken(token string) {
	if th, ok := a.client.(tokenHolder); ok {
		th.SetAccessToken(token)
	}
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Logout wipes the saved session and cached conversations.
func (a *authService) Logout(ctx context.Context) error {
	a.applyToken("")
	if err := a.getMetadataRepo().Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := conversations.NewSQLiteRepository(a.db).Clear(ctx); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
