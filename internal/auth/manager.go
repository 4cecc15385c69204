// Package auth owns the session lifecycle: login, registration, logout,
// single-flight token refresh and the authoritative auth-state transitions.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/appstate"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/models"
	"github.com/WildanFrananda/ProMentor-app/internal/secstore"
)

// expiryLeeway treats tokens about to expire as already expired, so a
// proactive refresh wins the race against the backend clock.
const expiryLeeway = 30 * time.Second

// Transport is the slice of the HTTP client the manager needs.
type Transport interface {
	Post(ctx context.Context, path string, body any, requiresAuth bool, out any) error
}

// Config tunes the session manager.
type Config struct {
	// DisableRefreshRotation keeps the stored refresh token even when the
	// refresh response carries a replacement. By default the refresh token
	// rotates whenever the backend explicitly supplies a non-empty value;
	// the access token is never reused for the refresh slot.
	DisableRefreshRotation bool
}

// Manager orchestrates login/register/logout/refresh against the backend
// and is the single owner of auth-state transitions.
type Manager struct {
	cfg    Config
	api    Transport
	store  secstore.Store
	state  *appstate.State
	coord  *Coordinator
	logger logger.Logger
}

func NewManager(cfg Config, api Transport, store secstore.Store, state *appstate.State, log logger.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		api:    api,
		store:  store,
		state:  state,
		coord:  NewCoordinator(),
		logger: log.With("component", "auth"),
	}
}

// Bootstrap performs the one-time startup transition out of the unknown
// state, based on whether a credential pair exists.
func (m *Manager) Bootstrap() {
	_, ok, err := m.store.Get(secstore.KeyAccessToken)
	if err != nil {
		m.logger.Error("startup credential check failed", "err", err)
		m.state.SetAuthState(appstate.Unauthenticated)
		return
	}

	if ok {
		m.state.SetAuthState(appstate.Authenticated)
	} else {
		m.state.SetAuthState(appstate.Unauthenticated)
	}
	m.logger.Info("session bootstrapped", "state", m.state.AuthState().String())
}

// Login authenticates and persists the credential pair. On failure the
// transport's classified error propagates and the store is left untouched.
func (m *Manager) Login(ctx context.Context, req models.LoginRequest) error {
	if err := models.Validate(req); err != nil {
		return err
	}

	var resp models.LoginResponse
	if err := m.api.Post(ctx, "/v1/auth/login", req, false, &resp); err != nil {
		return err
	}

	// The write happens under the coordinator guard so a concurrent
	// refresh can not interleave with a fresh login.
	err := m.coord.Exclusive(func() error {
		if err := m.store.Save(secstore.KeyAccessToken, resp.AccessToken); err != nil {
			return err
		}
		return m.store.Save(secstore.KeyRefreshToken, resp.RefreshToken)
	})
	if err != nil {
		return err
	}

	m.state.SetAuthState(appstate.Authenticated)
	m.logger.Info("login successful")
	return nil
}

// Register creates an account. Failures propagate unchanged; no retry.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (models.RegisterResponse, error) {
	var resp models.RegisterResponse

	if err := models.Validate(req); err != nil {
		return resp, err
	}
	if err := m.api.Post(ctx, "/v1/auth/register", req, false, &resp); err != nil {
		m.logger.Error("registration failed", "err", err)
		return resp, err
	}

	m.logger.Info("registration successful", "user_id", resp.UserID)
	return resp, nil
}

// Logout cancels any in-flight refresh, pings the server-side logout
// endpoint best-effort, and unconditionally clears the store. Safe to call
// with no stored session at all.
func (m *Manager) Logout(ctx context.Context) error {
	m.coord.Cancel()

	refresh, ok, err := m.store.Get(secstore.KeyRefreshToken)
	switch {
	case err != nil:
		m.logger.Error("reading refresh token during logout", "err", err)
	case !ok:
		m.logger.Warn("logout called with no refresh token stored")
	default:
		// Best effort: the server-side session dies when the token
		// expires anyway.
		req := models.LogoutRequest{RefreshToken: refresh}
		if err := m.api.Post(ctx, "/v1/auth/logout", req, false, nil); err != nil {
			m.logger.Error("server-side logout failed, clearing local session anyway", "err", err)
		}
	}

	err = m.coord.Exclusive(m.store.DeleteAll)
	if err != nil {
		return err
	}

	m.state.SetAuthState(appstate.Unauthenticated)
	m.logger.Info("logout complete, credentials cleared")
	return nil
}

// RefreshToken mints a new access token from the stored refresh token. All
// concurrent callers share one network call and one outcome. Every failure
// is normalized to ErrSessionExpired: the caller never needs to know why
// the session died, only that it did.
func (m *Manager) RefreshToken(ctx context.Context) error {
	return m.coord.Refresh(func(flightCtx context.Context) error {
		m.logger.Info("attempting token refresh")

		refresh, ok, err := m.store.Get(secstore.KeyRefreshToken)
		if err != nil || !ok {
			m.logger.Error("no usable refresh token", "err", err)
			return m.expireSession()
		}

		var resp models.RefreshResponse
		req := models.RefreshRequest{RefreshToken: refresh}
		if err := m.api.Post(flightCtx, "/v1/auth/refresh", req, false, &resp); err != nil {
			m.logger.Error("token refresh failed", "err", err)
			return m.expireSession()
		}

		if err := m.store.Save(secstore.KeyAccessToken, resp.AccessToken); err != nil {
			m.logger.Error("persisting refreshed access token", "err", err)
			return m.expireSession()
		}

		if !m.cfg.DisableRefreshRotation && resp.RefreshToken != "" {
			if err := m.store.Save(secstore.KeyRefreshToken, resp.RefreshToken); err != nil {
				m.logger.Error("persisting rotated refresh token", "err", err)
				return m.expireSession()
			}
		}

		m.logger.Info("token refresh successful")
		return nil
	})
}

// expireSession clears the store and drives the unauthenticated transition.
func (m *Manager) expireSession() error {
	if err := m.store.DeleteAll(); err != nil {
		m.logger.Error("clearing credentials after failed refresh", "err", err)
	}
	m.state.SetAuthState(appstate.Unauthenticated)
	m.state.Notify(appstate.StyleWarning, apperrors.UserMessage(apperrors.ErrSessionExpired))
	return apperrors.ErrSessionExpired
}

// CancelRefresh aborts an in-flight refresh, failing its attached callers.
func (m *Manager) CancelRefresh() {
	m.coord.Cancel()
}

// RegisterDeviceToken registers a push token. Best effort: failures are
// logged, never surfaced, and never affect auth state.
func (m *Manager) RegisterDeviceToken(ctx context.Context, token string) {
	req := models.DeviceTokenRequest{DeviceToken: token}
	if err := models.Validate(req); err != nil {
		m.logger.Error("device token invalid", "err", err)
		return
	}

	if err := m.api.Post(ctx, "/v1/profile/device-token", req, true, nil); err != nil {
		m.logger.Error("device token registration failed", "err", err)
		return
	}
	m.logger.Info("device token registered")
}

// AccessTokenExpired reports whether the stored access token is missing,
// unreadable or past (or within expiryLeeway of) its exp claim. The token
// is not verified; only the backend holds the signing key.
func (m *Manager) AccessTokenExpired() bool {
	token, ok, err := m.store.Get(secstore.KeyAccessToken)
	if err != nil || !ok {
		return true
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().After(claims.ExpiresAt.Time.Add(-expiryLeeway))
}
