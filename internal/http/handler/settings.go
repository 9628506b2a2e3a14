package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"medicare/internal/auth"
)

type SettingsHandler struct {
	DB *gorm.DB
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// caretakerDTO keeps the two notification booleans of the original contract.
// Internally they are one capability flag; both mirror it on read, and the
// flag is their AND on write.
type caretakerDTO struct {
	Email                string `json:"email"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	MissedAlertsEnabled  bool   `json:"missedAlertsEnabled"`
	AlertWindow          int    `json:"alertWindow"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, caretakerDTO{
		Email:                u.CaretakerEmail,
		NotificationsEnabled: u.AlertsEnabled,
		MissedAlertsEnabled:  u.AlertsEnabled,
		AlertWindow:          u.AlertWindow(),
	})
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req caretakerDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeErr(w, http.StatusBadRequest, "Email is required")
		return
	}
	if !emailRe.MatchString(req.Email) {
		writeErr(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if req.AlertWindow < 5 {
		writeErr(w, http.StatusBadRequest, "Minimum 5 minutes required")
		return
	}
	if req.AlertWindow > 1440 {
		writeErr(w, http.StatusBadRequest, "Maximum 24 hours (1440 min)")
		return
	}

	err := h.DB.WithContext(r.Context()).Model(&auth.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"caretaker_email":      req.Email,
			"alerts_enabled":       req.NotificationsEnabled && req.MissedAlertsEnabled,
			"alert_window_minutes": req.AlertWindow,
		}).Error
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "operation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Settings updated successfully"})
}
