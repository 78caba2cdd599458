package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/simigo/client/datacore/internal/adapters/httpclient"
	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/contextkeys"
)

// errTokenExpired marks a restore that failed without reaching the network.
var errTokenExpired = errors.New("stored access token has expired and cannot be refreshed")

// SessionManager restores, expires and ends the signed-in session.
type SessionManager struct {
	state  *SessionState
	cache  *SWRCache
	client *httpclient.Client
	creds  domain.CredentialStore
	logger domain.Logger
	now    func() time.Time
}

// NewSessionManager subscribes the manager to session_expired on bus.
func NewSessionManager(
	state *SessionState,
	cache *SWRCache,
	client *httpclient.Client,
	creds domain.CredentialStore,
	bus *EventBus,
	logger domain.Logger,
) *SessionManager {
	if state == nil || cache == nil || client == nil || creds == nil || bus == nil || logger == nil {
		panic("nil dependency in NewSessionManager")
	}
	m := &SessionManager{
		state:  state,
		cache:  cache,
		client: client,
		creds:  creds,
		logger: logger,
		now:    time.Now,
	}
	bus.Subscribe(domain.EventSessionExpired, func(ctx context.Context, e domain.Event) {
		m.HandleSessionExpired(ctx, e.Attributes["reason"])
	})
	return m
}

// Establish stores a freshly issued token pair and signs the user in.
func (m *SessionManager) Establish(ctx context.Context, auth domain.AuthResponse) error {
	if auth.AccessToken == "" || auth.User.ID == "" {
		return domain.NewInvalidRequest("auth response is missing the token or user", nil)
	}
	if err := m.creds.Set(ctx, domain.Credentials{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken}); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	m.state.SetCurrentUser(auth.User.ID)
	m.logger.Info(context.WithValue(ctx, contextkeys.UserIDKey, auth.User.ID), "Session established")
	return nil
}

// Restore signs the stored user back in via GET /me. It returns nil, nil
// when nothing is stored.
func (m *SessionManager) Restore(ctx context.Context) (*domain.User, error) {
	creds, err := m.creds.Get(ctx)
	if errors.Is(err, domain.ErrNoCredentials) || (err == nil && creds.AccessToken == "") {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	if creds.RefreshToken == "" && m.accessTokenExpired(creds.AccessToken) {
		m.fail(ctx, errTokenExpired)
		return nil, errTokenExpired
	}

	user, err := httpclient.Get[domain.User](ctx, m.client, "/me")
	if err != nil {
		m.fail(ctx, err)
		return nil, fmt.Errorf("restore session: %w", err)
	}
	m.state.SetCurrentUser(user.ID)
	m.logger.Info(context.WithValue(ctx, contextkeys.UserIDKey, user.ID), "Session restored")
	return &user, nil
}

func (m *SessionManager) fail(ctx context.Context, cause error) {
	m.logger.Warn(ctx, "Session restore failed, falling back to stale cache", "error", cause)
	m.state.expire()
	if err := m.creds.Clear(ctx); err != nil {
		m.logger.Error(ctx, "Failed to clear credentials", "error", err)
	}
}

// accessTokenExpired peeks at the JWT exp claim without verifying the
// signature. Tokens that are not JWTs are never considered expired.
func (m *SessionManager) accessTokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !m.now().Before(exp.Time)
}

// HandleSessionExpired signs the user out while keeping their cache readable.
func (m *SessionManager) HandleSessionExpired(ctx context.Context, reason string) {
	m.logger.Info(ctx, "Session expired", "reason", reason, "user_id", m.state.CurrentUserID())
	m.state.expire()
	if err := m.creds.Clear(ctx); err != nil {
		m.logger.Error(ctx, "Failed to clear credentials", "error", err)
	}
}

// Logout clears the user's cache scope, tells the backend and forgets the tokens.
func (m *SessionManager) Logout(ctx context.Context) error {
	if err := m.cache.ClearForUser(ctx); err != nil {
		m.logger.Warn(ctx, "Failed to clear user cache on logout", "error", err)
	}
	m.state.SetCurrentUser("")
	if _, err := httpclient.Post[struct{}](ctx, m.client, "/auth/logout", nil); err != nil {
		m.logger.Info(ctx, "Backend logout failed", "error", err)
	}
	err := m.creds.Clear(ctx)
	m.state.resetStale()
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// UseStaleCache reports whether reads should accept entries of any age.
func (m *SessionManager) UseStaleCache() bool { return m.state.UseStaleCache() }

func (m *SessionManager) CurrentUserID() string { return m.state.CurrentUserID() }
