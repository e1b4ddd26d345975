package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/galatea/internal/auth"
	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/repository"
	"github.com/oggyb/galatea/internal/testutil"
)

func setupService(t *testing.T) *auth.Service {
	t.Helper()
	appCtx, _ := testutil.NewAppContext(t)
	return auth.NewService(appCtx)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := auth.NewTokenIssuer("s3cret", "galatea", time.Hour)
	token, session, err := issuer.Issue("user-1", "a@b.co", "")
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.TokenID, got.TokenID)
	assert.Equal(t, "a@b.co", got.Email)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	token, _, err := auth.NewTokenIssuer("one", "galatea", time.Hour).Issue("u", "e@x.io", db.RoleUser)
	require.NoError(t, err)

	_, err = auth.NewTokenIssuer("two", "galatea", time.Hour).Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.NewTokenIssuer("one", "other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		ID:        "t",
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewTokenIssuer("s", "", time.Hour).Parse(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithSession(context.Background(), auth.Session{UserID: "u1"})
	s, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", s.UserID)
}

func TestSignUpCreatesAccountRows(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	session, token, err := svc.SignUp(ctx, "  Sam@Example.com ", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "sam@example.com", session.Email)

	authed, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, authed.UserID)

	me, err := svc.GetCurrentUser(auth.WithSession(ctx, authed))
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", me.Email)
	require.NotNil(t, me.Metadata)
	assert.Equal(t, "sam", me.Metadata.DisplayName)
	assert.NotNil(t, me.LastLoginAt)
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	_, _, err := svc.SignUp(ctx, "not-an-email", "longenough")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, _, err = svc.SignUp(ctx, "a@b.co", "short")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)

	_, _, err = svc.SignUp(ctx, "a@b.co", "longenough")
	require.NoError(t, err)
	_, _, err = svc.SignUp(ctx, "A@B.co", "longenough")
	assert.ErrorIs(t, err, svcErr.ErrConflict)
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	_, _, err := svc.SignUp(ctx, "kim@example.com", "correct-horse")
	require.NoError(t, err)

	_, token, err := svc.SignIn(ctx, "KIM@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = svc.SignIn(ctx, "kim@example.com", "wrong-horse")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)

	_, _, err = svc.SignIn(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := setupService(t)

	session, token, err := svc.SignUp(ctx, "out@example.com", "password1")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, session))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc := setupService(t)
	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
	_, err = svc.Authenticate(context.Background(), "abc.def.ghi")
	assert.ErrorIs(t, err, svcErr.ErrUnauthenticated)
}

func TestSeededDemoUserCanSignIn(t *testing.T) {
	appCtx, _ := testutil.NewAppContext(t)
	require.NoError(t, db.SeedTestData(appCtx.DB, 0))

	_, _, err := auth.NewService(appCtx).SignIn(context.Background(), db.DemoEmail, db.DemoPassword)
	assert.NoError(t, err)
}

func TestAdminRoleReachesSession(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := auth.NewService(appCtx)

	session, _, err := svc.SignUp(ctx, "ops@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, db.RoleUser, session.Role)
	assert.False(t, session.IsAdmin())

	users := repository.NewUserRepository(appCtx.DB)
	require.NoError(t, users.SetRole(ctx, "OPS@example.com", db.RoleAdmin))
	assert.Error(t, users.SetRole(ctx, "ghost@example.com", db.RoleAdmin))

	_, token, err := svc.SignIn(ctx, "ops@example.com", "password1")
	require.NoError(t, err)
	authed, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, authed.IsAdmin())
}

func TestUnknownRoleClaimIsPlainUser(t *testing.T) {
	token, _, err := auth.NewTokenIssuer("s", "galatea", time.Hour).Issue("u", "e@x.io", db.Role("root"))
	require.NoError(t, err)

	got, err := auth.NewTokenIssuer("s", "galatea", time.Hour).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, db.RoleUser, got.Role)
}
