package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/client"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/conversations"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/repositories/metadata"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// ---- TESTS ----

func TestOwnNumberFromToken(t *testing.T) {
	n, err := OwnNumberFromToken(signToken(t, jwt.MapClaims{common.PhoneClaim: "+15550000001"}))
	require.NoError(t, err)
	assert.Equal(t, "+15550000001", n)

	_, err = OwnNumberFromToken(signToken(t, jwt.MapClaims{"sub": "x"}))
	require.ErrorIs(t, err, ErrNoOwnNumber)

	_, err = OwnNumberFromToken("not-a-jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAuthService_LoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fc := &fakeClient{}
	svc := NewAuthService(fc, db, "127.0.0.1:50051", logging.Nop{})

	token := signToken(t, jwt.MapClaims{common.PhoneClaim: "+1 (555) 000-0001"})
	sess, err := svc.Login(ctx, token, "")
	require.NoError(t, err)

	assert.Equal(t, "+1 (555) 000-0001", sess.OwnNumber)
	assert.Equal(t, token, fc.Token())

	repo := metadata.NewSQLiteRepository(db)
	saved, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, saved[metadata.KeyAccessToken])
	assert.Equal(t, "+1 (555) 000-0001", saved[metadata.KeyOwnNumber])
	assert.Equal(t, "127.0.0.1:50051", saved[metadata.KeyServerAddr])
}

func TestAuthService_LoginOverrideAndValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(&fakeClient{}, setupDB(t), "srv", logging.Nop{})

	sess, err := svc.Login(ctx, "opaque-token", "+15550000009")
	require.NoError(t, err, "an explicit number makes the claim unnecessary")
	assert.Equal(t, "+15550000009", sess.OwnNumber)

	_, err = svc.Login(ctx, "  ", "+15550000009")
	require.ErrorIs(t, err, common.ErrorInvalidInput)

	_, err = svc.Login(ctx, "opaque-token", "12345")
	require.ErrorIs(t, err, ErrNoOwnNumber)

	_, err = svc.Login(ctx, "opaque-token", "")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAuthService_Restore(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	_, err := NewAuthService(&fakeClient{}, db, "srv-a", logging.Nop{}).Restore(ctx, "")
	require.ErrorIs(t, err, ErrNoSession)

	_, err = NewAuthService(&fakeClient{}, db, "srv-a", logging.Nop{}).Login(ctx, "tok", "+15550000001")
	require.NoError(t, err)

	fc := &fakeClient{}
	sess, err := NewAuthService(fc, db, "srv-a", logging.Nop{}).Restore(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Session{AccessToken: "tok", OwnNumber: "+15550000001"}, sess)
	assert.Equal(t, "tok", fc.Token())

	sess, err = NewAuthService(&fakeClient{}, db, "srv-a", logging.Nop{}).Restore(ctx, "+15550000002")
	require.NoError(t, err)
	assert.Equal(t, "+15550000002", sess.OwnNumber)

	_, err = NewAuthService(&fakeClient{}, db, "srv-b", logging.Nop{}).Restore(ctx, "")
	require.ErrorIs(t, err, ErrNoSession, "sessions are scoped to the server they were made for")
}

func TestAuthService_LogoutClearsCache(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fc := &fakeClient{}
	svc := NewAuthService(fc, db, "srv", logging.Nop{})

	_, err := svc.Login(ctx, "tok", "+15550000001")
	require.NoError(t, err)
	convs := conversations.NewSQLiteRepository(db)
	require.NoError(t, convs.Save(ctx, models.Conversation{Key: "5550000002", Identity: "+15550000002"}))

	require.NoError(t, svc.Logout(ctx))

	assert.Empty(t, fc.Token())
	left, err := convs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
	_, err = svc.Restore(ctx, "")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestAuthService_PingAndClose(t *testing.T) {
	fc := &fakeClient{PingErr: client.ErrUnavailable}
	svc := NewAuthService(fc, setupDB(t), "srv", logging.Nop{})

	require.ErrorIs(t, svc.Ping(context.Background()), client.ErrUnavailable)
	require.NoError(t, svc.Close(context.Background()))
	assert.True(t, fc.closed)
}
