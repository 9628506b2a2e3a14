package adherence

import (
	"medicare/internal/clock"
	"medicare/internal/medication"
)

// Status is the per-medication state for one calendar day.
type Status string

const (
	StatusTaken    Status = "taken"
	StatusMissed   Status = "missed"
	StatusPending  Status = "pending"
	StatusUpcoming Status = "upcoming"
)

// Classify assigns the status of one medication on one date. All comparisons
// are minutes-since-midnight on the patient's wall clock; the resolver has
// already normalized inputs, so no timezone math happens here.
func Classify(m medication.Medication, date string, ix *LogIndex, alertWindowMinutes int, clk clock.Context) Status {
	if ix.Taken(date, m.ID) {
		return StatusTaken
	}

	switch {
	case date < clk.LocalDate:
		// Past days with no log are missed; the grace window never applies
		// retroactively.
		return StatusMissed
	case date == clk.LocalDate:
		reminder := clock.MinutesOf(m.Reminder())
		now := clk.LocalMinutes()
		switch {
		case now >= reminder+alertWindowMinutes:
			return StatusMissed
		case now >= reminder:
			return StatusPending
		default:
			return StatusUpcoming
		}
	default:
		return StatusUpcoming
	}
}

// GraceExpired reports whether the medication's grace window has already
// closed today. Used by the sweep and the aggregate calculators.
func GraceExpired(m medication.Medication, alertWindowMinutes int, clk clock.Context) bool {
	return clk.LocalMinutes() >= clock.MinutesOf(m.Reminder())+alertWindowMinutes
}
