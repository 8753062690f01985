// Package authapi wires the HTTP auth endpoints to the identity and
// session services.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/freegatik/music-streaming/cmd/identity"
	"github.com/freegatik/music-streaming/cmd/internal/auth/session"
	"github.com/freegatik/music-streaming/cmd/security/password"
)

// Handler serves registration, login, and the session lifecycle endpoints.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	users    identity.Store
	sessions *session.Service
	pwd      password.Config
	metrics  *Metrics

	// dummyHash is verified against when the login contact is unknown, so a
	// miss costs the same as a wrong password.
	dummyHash string
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, pwd password.Config, metrics *Metrics) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil || sessions == nil {
		return nil, errors.New("authapi: nil store or session service")
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		pwd:      pwd,
		metrics:  metrics,
	}

	if hash, err := pwd.Hash("dummy-password-for-timing-only-1!"); err == nil {
		h.dummyHash = hash
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("POST /api/auth/logout_all", h.handleLogoutAll)
	mux.HandleFunc("GET /api/auth/me", h.handleMe)
}

// RequireAuth validates the bearer access token and returns its claims.
// Exported so other HTTP surfaces can guard their routes with the same check.
func (h *Handler) RequireAuth(w http.ResponseWriter, r *http.Request) (session.Claims, bool) {
	tok, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", "bearer token required")
		return session.Claims{}, false
	}

	claims, err := h.sessions.ValidateAccess(tok, time.Now().UTC())
	if err != nil {
		if errors.Is(err, session.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "token_expired", "access token expired")
		} else {
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid access token")
		}
		return session.Claims{}, false
	}
	return claims, true
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if err := h.pwd.Validate(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		return
	}
	hash, err := h.pwd.Hash(req.Password)
	if err != nil {
		h.log.Error("auth.register.hash.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	u, err := h.users.CreateUser(r.Context(), identity.CreateUserInput{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "contact_taken", "username or email already registered")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "username and a valid email are required")
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{User: toUserResponse(u)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	contact := strings.TrimSpace(req.Contact)
	if contact == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "contact and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	u, err := h.users.ResolveByContact(ctx, contact)
	if err != nil {
		// Timing resistance: a missing user still pays for one verify.
		if h.dummyHash != "" {
			_, _ = h.pwd.Verify(h.dummyHash, req.Password)
		}
		h.auditLoginFailed(ip, ua, contact, "not_found")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	okPw, err := h.pwd.Verify(u.PasswordHash, req.Password)
	if err != nil || !okPw {
		h.auditLoginFailed(ip, ua, contact, "bad_password")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	pair, err := h.sessions.CreateSession(ctx, session.Identity{
		Subject: u.Username,
		Contact: u.Email,
		Role:    string(u.Role),
	}, normalizeDevice(req.DeviceID))
	if err != nil {
		h.log.Error("auth.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	h.metrics.Issued.Inc()
	h.auditLoginSuccess(ip, ua, u.ID, pair.SessionID)

	writeJSON(w, http.StatusOK, loginResponse{
		User:    toUserResponse(u),
		Session: toSessionResponse(pair),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	pair, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrTokenReuseDetected):
			// Same status and body as the unknown-token case below; only the
			// audit trail and metrics separate them.
			h.metrics.ReuseDetected.Inc()
			h.auditRefreshReuse(ip, ua)
			writeError(w, http.StatusUnauthorized, "invalid_refresh", "refresh token rejected")
		case errors.Is(err, session.ErrSessionNotFound):
			h.auditRefreshUnknown(ip, ua)
			writeError(w, http.StatusUnauthorized, "invalid_refresh", "refresh token rejected")
		case errors.Is(err, session.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "token_expired", "refresh token expired")
		case errors.Is(err, session.ErrSessionInactive):
			writeError(w, http.StatusUnauthorized, "session_not_active", "session not active")
		case errors.Is(err, session.ErrTokenInvalid):
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid refresh token")
		case errors.Is(err, session.ErrStore):
			h.log.Error("auth.refresh.store.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}
	h.metrics.Rotated.Inc()
	h.auditRefreshSuccess(ip, ua, pair.SessionID)

	writeJSON(w, http.StatusOK, refreshResponse{Session: toSessionResponse(pair)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.RequireAuth(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Revoke(r.Context(), claims.SessionID); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}
	h.metrics.Revoked.Inc()
	h.auditLogout(clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()), claims.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.RequireAuth(w, r)
	if !ok {
		return
	}

	if err := h.sessions.RevokeAll(r.Context(), claims.Email); err != nil {
		h.log.Error("auth.logout_all.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	}
	h.metrics.Revoked.Inc()
	h.auditLogoutAll(clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()), claims.Email)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.RequireAuth(w, r)
	if !ok {
		return
	}

	u, err := h.users.ResolveByContact(r.Context(), claims.Email)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "not_found", "user not found")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(u)})
}

func normalizeDevice(deviceID string) string {
	d := strings.TrimSpace(deviceID)
	if d == "" {
		return "unknown"
	}
	return d
}
