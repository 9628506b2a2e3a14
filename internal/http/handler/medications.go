package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"medicare/internal/adherence"
	"medicare/internal/clock"
	"medicare/internal/medication"
)

type MedicationHandler struct {
	Svc *medication.Service
	DB  *gorm.DB
}

type medicationReq struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	ReminderTime string `json:"reminder_time"`
}

type medicationDTO struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage"`
	ReminderTime string     `json:"reminder_time"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at"`
	Status       string     `json:"status"`
	IsTaken      bool       `json:"isTaken"`
	EvidenceURL  *string    `json:"evidence_url,omitempty"`
}

// List returns the active medications for a date with the per-medication
// status array.
func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if targetDate == "" {
		targetDate = clk.LocalDate
	}

	meds, err := h.Svc.ListAll(r.Context(), u.ID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	logs, err := h.Svc.LogsOn(r.Context(), u.ID, targetDate)
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	ix := adherence.NewLogIndex(logs)
	active := adherence.ActiveOn(targetDate, meds, ix, clk)

	evidence := make(map[string]*string, len(logs))
	for _, l := range logs {
		if l.Status == medication.StatusTaken {
			evidence[l.MedicationID] = l.EvidenceURL
		}
	}

	out := make([]medicationDTO, 0, len(active))
	for _, m := range active {
		status := adherence.Classify(m, targetDate, ix, u.AlertWindow(), clk)
		dto := medicationDTO{
			ID:           m.ID,
			Name:         m.Name,
			Dosage:       m.Dosage,
			ReminderTime: m.ReminderTime,
			CreatedAt:    m.CreatedAt,
			DeletedAt:    m.DeletedAt,
			Status:       string(status),
			IsTaken:      status == adherence.StatusTaken,
		}
		if dto.IsTaken {
			dto.EvidenceURL = evidence[m.ID]
		}
		out = append(out, dto)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (h *MedicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req medicationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}

	m, err := h.Svc.Add(r.Context(), u.ID, medication.Input{
		Name:         req.Name,
		Dosage:       req.Dosage,
		ReminderTime: req.ReminderTime,
	}, clientClock(r))
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Medication added successfully",
		"id":      m.ID,
	})
}

func (h *MedicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req medicationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}

	err := h.Svc.Update(r.Context(), u.ID, chi.URLParam(r, "id"), medication.Input{
		Name:         req.Name,
		Dosage:       req.Dosage,
		ReminderTime: req.ReminderTime,
	}, clientClock(r))
	if err != nil {
		writeServiceErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Medication updated successfully"})
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.Svc.Delete(r.Context(), u.ID, chi.URLParam(r, "id"), clientClock(r).Instant); err != nil {
		writeServiceErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Medication deleted"})
}

type logDoseReq struct {
	EvidenceURL *string `json:"evidenceUrl"`
}

func (h *MedicationHandler) LogDose(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req logDoseReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.Svc.LogDose(r.Context(), u.ID, chi.URLParam(r, "id"), req.EvidenceURL, clientClock(r)); err != nil {
		writeServiceErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Medication marked as taken"})
}

func (h *MedicationHandler) LogAll(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(r, h.DB)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.Svc.MarkAllTaken(r.Context(), u.ID, clientClock(r)); err != nil {
		writeServiceErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
