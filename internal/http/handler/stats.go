package handler

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"medicare/internal/adherence"
	"medicare/internal/clock"
	"medicare/internal/medication"
)

type StatsHandler struct {
	Svc *medication.Service
	DB  *gorm.DB
}

// Get rebuilds the patient snapshot from scratch: fetch the owner's
// medications and a year of logs, then hand everything to the pure
// adherence core.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	clk := clientClock(r)

	targetDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if targetDate != "" && !clock.ValidDate(targetDate) {
		writeErr(w, http.StatusBadRequest, "Invalid date format (YYYY-MM-DD)")
		return
	}

	meds, err := h.Svc.ListAll(r.Context(), u.ID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	today := clk.Today()
	since := clock.DayKey(today.AddDate(0, 0, -365))
	logs, err := h.Svc.LogsSince(r.Context(), u.ID, since)
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	stats := adherence.ComputeStats(meds, logs, u.AlertWindow(), clk, targetDate, u.Email)
	writeJSON(w, http.StatusOK, stats)
}
