package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/synura/agency-api/internal/http/middleware"
	"github.com/synura/agency-api/pkg/logging"
)

// AdminSessionConfig holds what the session endpoints need from config.
type AdminSessionConfig struct {
	AccessKey string
	Secret    string
	TTL       time.Duration
	// Secure marks the cookie Secure. Off only for local development over
	// plain http.
	Secure bool
}

// AdminSessionHandler exchanges the admin access key for a signed session
// cookie.
type AdminSessionHandler struct {
	cfg    AdminSessionConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewAdminSessionHandler creates the admin session handler.
func NewAdminSessionHandler(cfg AdminSessionConfig, logger *logging.Logger) *AdminSessionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	return &AdminSessionHandler{cfg: cfg, logger: logger, now: time.Now}
}

// Create handles POST /admin/session.
func (h *AdminSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AccessKey == "" || h.cfg.Secret == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Unauthorized", "message": "admin access disabled"})
		return
	}

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid request body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(h.cfg.AccessKey)) != 1 {
		h.logger.Warn("admin session rejected", "remote_addr", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Unauthorized"})
		return
	}

	token, expires, err := middleware.SignAdminSession(h.cfg.Secret, h.cfg.TTL, h.now())
	if err != nil {
		h.logger.Error("failed to sign admin session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"expiresAt": expires.UTC().Format(time.RFC3339),
	})
}

// Delete handles DELETE /admin/session by expiring the cookie.
func (h *AdminSessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
