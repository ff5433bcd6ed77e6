package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/pkg/auth"
	"github.com/angelmondragon/conduit-storefront/pkg/auth/session"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role enums.UserRole) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    accessID,
	})
	require.NoError(t, err)
	return token, accessID
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(okHandler())

	assert.Equal(t, http.StatusUnauthorized, serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	assert.Equal(t, http.StatusUnauthorized, serve(handler, req).Code)
}

func TestAuthSetsPrincipal(t *testing.T) {
	userID := uuid.New()
	token, accessID := mintTestToken(t, testJWT, userID, enums.UserRoleDistributor)

	var captured *auth.Principal
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, serve(handler, req).Code)
	require.NotNil(t, captured)
	assert.Equal(t, userID, captured.UserID)
	assert.Equal(t, enums.UserRoleDistributor, captured.Role)
	assert.Equal(t, accessID, captured.SessionID)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, _ := mintTestToken(t, testJWT, uuid.New(), enums.UserRoleClient)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, serve(Auth(testJWT, stubSessionVerifier{ok: false}, nil)(okHandler()), req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusServiceUnavailable, serve(Auth(testJWT, stubSessionVerifier{err: errors.New("redis down")}, nil)(okHandler()), req).Code)
}

func TestOptionalAuth(t *testing.T) {
	var seen *auth.Principal
	handler := OptionalAuth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Nil(t, seen)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(handler, bad).Code)

	token, _ := mintTestToken(t, testJWT, uuid.New(), enums.UserRoleClient)
	good := httptest.NewRequest(http.MethodGet, "/", nil)
	good.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, serve(handler, good).Code)
	require.NotNil(t, seen)
	assert.Equal(t, enums.UserRoleClient, seen.Role)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.UserRoleDistributor, nil)(okHandler())

	assert.Equal(t, http.StatusUnauthorized, serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	client := httptest.NewRequest(http.MethodGet, "/", nil)
	client = client.WithContext(auth.WithPrincipal(client.Context(), &auth.Principal{UserID: uuid.New(), Role: enums.UserRoleClient}))
	assert.Equal(t, http.StatusForbidden, serve(handler, client).Code)

	dist := httptest.NewRequest(http.MethodGet, "/", nil)
	dist = dist.WithContext(auth.WithPrincipal(dist.Context(), &auth.Principal{UserID: uuid.New(), Role: enums.UserRoleDistributor}))
	assert.Equal(t, http.StatusOK, serve(handler, dist).Code)
}

func TestCartOwner(t *testing.T) {
	var owner string
	handler := CartOwner(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = CartOwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusBadRequest, serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set(CartOwnerHeader, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, serve(handler, bad).Code)

	anon := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CartOwnerHeader, anon.String())
	require.Equal(t, http.StatusOK, serve(handler, req).Code)
	assert.Equal(t, anon.String(), owner)

	userID := uuid.New()
	authed := httptest.NewRequest(http.MethodGet, "/", nil)
	authed.Header.Set(CartOwnerHeader, anon.String())
	authed = authed.WithContext(auth.WithPrincipal(authed.Context(), &auth.Principal{UserID: userID, Role: enums.UserRoleClient}))
	require.Equal(t, http.StatusOK, serve(handler, authed).Code)
	assert.Equal(t, userID.String(), owner)
}
