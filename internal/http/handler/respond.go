package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"medicare/internal/auth"
	"medicare/internal/clock"
	"medicare/internal/medication"
)

// clientTimeHeader carries the patient device's wall-clock bundle:
// {"now": RFC3339, "localDate": "YYYY-MM-DD", "localTime": "HH:MM"}.
const clientTimeHeader = "X-Client-Time"

func clientClock(r *http.Request) clock.Context {
	return clock.Resolve(r.Header.Get(clientTimeHeader), time.Now())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr emits the tagged error shape the clients display verbatim.
func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceErr maps service errors: business-rule rejections keep their
// message, not-found keeps its shape, everything else collapses to the
// generic failure message.
func writeServiceErr(w http.ResponseWriter, err error) {
	var rej medication.Rejection
	switch {
	case errors.As(err, &rej):
		writeErr(w, http.StatusBadRequest, rej.Msg)
	case errors.Is(err, medication.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	default:
		writeErr(w, http.StatusInternalServerError, "operation failed")
	}
}

// currentUser loads the authenticated account; handlers need its alert
// settings and email, not just the ID.
func currentUser(r *http.Request, gdb *gorm.DB) (auth.User, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return auth.User{}, false
	}
	var u auth.User
	if err := gdb.WithContext(r.Context()).First(&u, uid).Error; err != nil {
		return auth.User{}, false
	}
	return u, true
}
