package adherence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"medicare/internal/clock"
	"medicare/internal/medication"
)

// Day statuses for the 90-day history calendar.
const (
	DayFuture   = "future"
	DayEmpty    = "empty"
	DayComplete = "complete"
	DayPartial  = "partial"
	DayMissed   = "missed"
)

const (
	streakLookbackDays = 365
	historyDays        = 90
	recentActivityMax  = 10
)

// HistoryEntry is one bucket of the history calendar.
type HistoryEntry struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	Taken     int    `json:"taken"`
	Total     int    `json:"total"`
	HasTaken  bool   `json:"hasTaken"`
	HasMissed bool   `json:"hasMissed"`
}

// ActivityEntry is one row of the recent-activity feed.
type ActivityEntry struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Status      string  `json:"status"`
	Medication  string  `json:"medication"`
	Type        string  `json:"type"`
	EvidenceURL *string `json:"evidenceUrl"`
}

// Stats is the per-request patient snapshot. Rebuilt fresh on every call,
// never cached or persisted. Percentages are integers in [0,100].
type Stats struct {
	Streak          int             `json:"streak"`
	TodayStatus     int             `json:"todayStatus"`
	MonthlyRate     int             `json:"monthlyRate"`
	TotalMeds       int             `json:"totalMeds"`
	TakenCount      int             `json:"takenCount"`
	MissedThisMonth int             `json:"missedThisMonth"`
	TakenThisWeek   int             `json:"takenThisWeek"`
	RemainingDays   int             `json:"remainingDays"`
	History         []HistoryEntry  `json:"history"`
	RecentActivity  []ActivityEntry `json:"recentActivity"`
	Email           string          `json:"email,omitempty"`
}

// ComputeStats derives the full snapshot from prefetched records.
// targetDate optionally rebases "today" (date navigation); empty means the
// patient's current local date.
func ComputeStats(meds []medication.Medication, logs []medication.Log, alertWindowMinutes int, clk clock.Context, targetDate, email string) Stats {
	if len(meds) == 0 {
		return Stats{History: []HistoryEntry{}, RecentActivity: []ActivityEntry{}, Email: email}
	}

	todayKey := targetDate
	if todayKey == "" {
		todayKey = clk.LocalDate
	}
	today, err := time.Parse("2006-01-02", todayKey)
	if err != nil {
		today = clk.Today()
		todayKey = clk.LocalDate
	}

	ix := NewLogIndex(logs)

	// Past streak: walk backward from yesterday. Days with no active
	// medications are skipped without breaking the run, capped at the
	// lookback ceiling so a medication-free history terminates.
	pastStreak := 0
	check := today.AddDate(0, 0, -1)
	for walked := 0; walked < streakLookbackDays; walked++ {
		dKey := clock.DayKey(check)
		active := ActiveOn(dKey, meds, ix, clk)
		if len(active) == 0 {
			check = check.AddDate(0, 0, -1)
			continue
		}
		if ix.TakenCount(dKey, active) < len(active) {
			break
		}
		pastStreak++
		check = check.AddDate(0, 0, -1)
	}

	activeToday := ActiveOn(todayKey, meds, ix, clk)
	takenToday := ix.TakenCount(todayKey, activeToday)

	isTodayComplete := len(activeToday) > 0 && takenToday == len(activeToday)

	hasTodayMissed := false
	if !isTodayComplete && len(activeToday) > 0 {
		switch {
		case todayKey == clk.LocalDate:
			for _, m := range activeToday {
				if !ix.Taken(todayKey, m.ID) && GraceExpired(m, alertWindowMinutes, clk) {
					hasTodayMissed = true
					break
				}
			}
		case todayKey < clk.LocalDate:
			hasTodayMissed = true
		}
	}

	// A missed dose today withholds today's increment but does not erase
	// the completed run ending yesterday.
	streak := pastStreak
	if isTodayComplete && !hasTodayMissed {
		streak++
	}

	todayStatus := percent(takenToday, len(activeToday))

	// Monthly rate over the elapsed part of the current month.
	opportunities, takenMonth := 0, 0
	for i := 0; i < today.Day(); i++ {
		d := today.AddDate(0, 0, -i)
		dKey := clock.DayKey(d)
		active := ActiveOn(dKey, meds, ix, clk)
		if len(active) == 0 {
			continue
		}
		opportunities += len(active)
		takenMonth += ix.TakenCount(dKey, active)
	}
	monthlyRate := percent(takenMonth, opportunities)

	history := buildHistory(today, meds, ix, alertWindowMinutes, clk)

	monthStartKey := clock.DayKey(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC))
	missedThisMonth := 0
	for _, h := range history {
		if h.Date < monthStartKey {
			continue
		}
		switch {
		case h.Date == clk.LocalDate:
			for _, m := range ActiveOn(h.Date, meds, ix, clk) {
				if !ix.Taken(h.Date, m.ID) && GraceExpired(m, alertWindowMinutes, clk) {
					missedThisMonth++
				}
			}
		case h.Date < clk.LocalDate:
			missedThisMonth += h.Total - h.Taken
		}
	}

	byDate := make(map[string]HistoryEntry, len(history))
	for _, h := range history {
		byDate[h.Date] = h
	}
	takenThisWeek := 0
	for i := 0; i < 7; i++ {
		if h, ok := byDate[clock.DayKey(today.AddDate(0, 0, -i))]; ok && h.Status == DayComplete {
			takenThisWeek++
		}
	}

	endOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	remainingDays := int(endOfMonth.Sub(today).Hours() / 24)

	return Stats{
		Streak:          streak,
		TodayStatus:     todayStatus,
		MonthlyRate:     monthlyRate,
		TotalMeds:       len(activeToday),
		TakenCount:      takenToday,
		MissedThisMonth: missedThisMonth,
		TakenThisWeek:   takenThisWeek,
		RemainingDays:   remainingDays,
		History:         history,
		RecentActivity:  recentActivity(meds, logs, clk),
		Email:           email,
	}
}

// buildHistory produces one bucket per day from today-90 through today.
// Today's bucket uses the grace-window rules instead of the plain
// past/future split.
func buildHistory(today time.Time, meds []medication.Medication, ix *LogIndex, alertWindowMinutes int, clk clock.Context) []HistoryEntry {
	history := make([]HistoryEntry, 0, historyDays+1)

	for d := today.AddDate(0, 0, -historyDays); !d.After(today); d = d.AddDate(0, 0, 1) {
		dKey := clock.DayKey(d)
		active := ActiveOn(dKey, meds, ix, clk)
		taken := ix.TakenCount(dKey, active)

		entry := HistoryEntry{
			Date:     dKey,
			Taken:    taken,
			Total:    len(active),
			HasTaken: taken > 0,
		}

		switch {
		case len(active) == 0:
			entry.Status = DayEmpty
		case taken >= len(active):
			entry.Status = DayComplete
		case taken > 0:
			entry.Status = DayPartial
		default:
			entry.Status = DayMissed
		}

		if len(active) > 0 {
			if dKey == clk.LocalDate {
				if entry.Status == DayMissed {
					entry.Status = DayFuture
				}
				for _, m := range active {
					if !ix.Taken(dKey, m.ID) && GraceExpired(m, alertWindowMinutes, clk) {
						entry.HasMissed = true
						entry.Status = DayMissed
						break
					}
				}
				if !entry.HasMissed {
					if taken == 0 {
						entry.Status = DayFuture
					} else if taken < len(active) {
						entry.Status = DayPartial
					}
				}
			} else if dKey < clk.LocalDate && taken < len(active) {
				entry.HasMissed = true
			}
		}

		history = append(history, entry)
	}

	return history
}

func recentActivity(meds []medication.Medication, logs []medication.Log, clk clock.Context) []ActivityEntry {
	names := make(map[string]medication.Medication, len(meds))
	for _, m := range meds {
		names[m.ID] = m
	}

	sorted := make([]medication.Log, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LogDate != sorted[j].LogDate {
			return sorted[i].LogDate > sorted[j].LogDate
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > recentActivityMax {
		sorted = sorted[:recentActivityMax]
	}

	out := make([]ActivityEntry, 0, len(sorted))
	for _, l := range sorted {
		med, known := names[l.MedicationID]

		display := "Unknown Medication"
		reminder := "08:00"
		if known {
			display = med.Name
			reminder = med.Reminder()
		}

		var at string
		if l.TakenAt != nil {
			at = clk.Shift(*l.TakenAt).Format("03:04 PM")
		} else {
			at = twelveHour(reminder)
		}

		status := "Missed"
		if l.Status == medication.StatusTaken {
			status = "Completed"
		}

		var when string
		if d, err := time.Parse("2006-01-02", dateKeyOf(l.LogDate)); err == nil {
			when = d.Format("Monday, January 2")
		} else {
			when = l.LogDate
		}

		out = append(out, ActivityEntry{
			ID:          l.MedicationID + l.LogDate,
			Date:        when,
			Time:        at,
			Status:      status,
			Medication:  display,
			Type:        l.Status,
			EvidenceURL: l.EvidenceURL,
		})
	}
	return out
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func twelveHour(hhmm string) string {
	min := clock.MinutesOf(hhmm)
	h, m := min/60, min%60
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, ampm)
}
