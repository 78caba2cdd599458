package application

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/cachekeys"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestRestoreWithoutCredentials(t *testing.T) {
	e := newTestEnv(t, nil)
	user, err := e.session().Restore(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestRestoreSignsUserIn(t *testing.T) {
	e := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, 200, `{"id":"u1","name":"Aiko"}`)
	}))
	ctx := context.Background()
	require.NoError(t, e.creds.Set(ctx, domain.Credentials{AccessToken: "access-1", RefreshToken: "r"}))

	user, err := e.session().Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aiko", user.Name)
	assert.Equal(t, "u1", e.state.CurrentUserID())
	assert.False(t, e.state.UseStaleCache())
}

func TestRestoreFailureFallsBackToStaleCache(t *testing.T) {
	e := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 500, `{"message":"down"}`)
	}))
	ctx := context.Background()
	require.NoError(t, e.creds.Set(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r"}))

	user, err := e.session().Restore(ctx)
	assert.Nil(t, user)
	assert.True(t, domain.IsKind(err, domain.KindServerError))
	assert.True(t, e.state.UseStaleCache())
	_, err = e.creds.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}

func TestRestoreExpiredTokenSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	e := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, 200, `{"id":"u1"}`)
	}))
	ctx := context.Background()
	require.NoError(t, e.creds.Set(ctx, domain.Credentials{AccessToken: signedToken(t, time.Now().Add(-time.Hour))}))

	_, err := e.session().Restore(ctx)
	assert.ErrorIs(t, err, errTokenExpired)
	assert.Zero(t, hits.Load())
	assert.True(t, e.state.UseStaleCache())
}

func TestRestoreExpiredTokenWithRefreshTokenStillCallsMe(t *testing.T) {
	var hits atomic.Int32
	e := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, 200, `{"id":"u2"}`)
	}))
	ctx := context.Background()
	require.NoError(t, e.creds.Set(ctx, domain.Credentials{
		AccessToken:  signedToken(t, time.Now().Add(-time.Hour)),
		RefreshToken: "refresh",
	}))

	user, err := e.session().Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", user.ID)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSessionExpiredEventKeepsPreviousScope(t *testing.T) {
	e := newTestEnv(t, nil)
	e.session()
	ctx := context.Background()
	require.NoError(t, e.creds.Set(ctx, domain.Credentials{AccessToken: "a"}))
	e.state.SetCurrentUser("u1")

	require.NoError(t, e.bus.Publish(ctx, domain.Event{
		Type:       domain.EventSessionExpired,
		Attributes: map[string]string{"reason": "401"},
	}))

	assert.Empty(t, e.state.CurrentUserID())
	assert.True(t, e.state.UseStaleCache())
	assert.Equal(t, "u1", e.state.CacheScope().UserID)
	_, err := e.creds.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)

	e.state.SetCurrentUser("u2")
	assert.False(t, e.state.UseStaleCache())
	assert.Equal(t, "u2", e.state.CacheScope().UserID)
}

func TestLogoutClearsScopeAndCredentials(t *testing.T) {
	var logoutAuth atomic.Value
	e := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/logout" {
			logoutAuth.Store(r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.NotFound(w, r)
	}))
	m := e.session()
	ctx := context.Background()
	require.NoError(t, m.Establish(ctx, domain.AuthResponse{User: domain.User{ID: "u1"}, AccessToken: "tok", RefreshToken: "r"}))
	require.NoError(t, Save(ctx, e.cache, cachekeys.Orders(), []string{"o1"}))

	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, "Bearer tok", logoutAuth.Load())
	assert.Equal(t, 0, e.store.Len())
	assert.Empty(t, m.CurrentUserID())
	assert.False(t, m.UseStaleCache())
	_, err := e.creds.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}

func TestLogoutToleratesBackendFailure(t *testing.T) {
	e := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 502, `{}`)
	}))
	m := e.session()
	ctx := context.Background()
	require.NoError(t, m.Establish(ctx, domain.AuthResponse{User: domain.User{ID: "u1"}, AccessToken: "tok"}))

	assert.NoError(t, m.Logout(ctx))
	assert.Empty(t, m.CurrentUserID())
}

func TestEstablishRejectsIncompleteResponse(t *testing.T) {
	e := newTestEnv(t, nil)
	err := e.session().Establish(context.Background(), domain.AuthResponse{AccessToken: "tok"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
}
