package adherence

import (
	"medicare/internal/clock"
	"medicare/internal/medication"
)

// ActiveOn filters the medications that count toward date's adherence
// totals. Rules, in priority order:
//
//  1. a log row for (medication, date) makes it active unconditionally —
//     the log is ground truth that the medication existed then;
//  2. created after date: not active;
//  3. created on date: active only if logged (no penalty for a same-day
//     addition whose reminder never fired);
//  4. deleted on date: active only if the reminder was scheduled strictly
//     before the deletion instant, or a log exists;
//  5. deleted before date: not active;
//  6. otherwise active.
//
// Callers invoke this per day over long range scans, so it must stay a pure
// function of its arguments.
func ActiveOn(date string, meds []medication.Medication, ix *LogIndex, clk clock.Context) []medication.Medication {
	out := make([]medication.Medication, 0, len(meds))
	for _, m := range meds {
		if activeOn(date, m, ix, clk) {
			out = append(out, m)
		}
	}
	return out
}

func activeOn(date string, m medication.Medication, ix *LogIndex, clk clock.Context) bool {
	if ix.HasAny(date, m.ID) {
		return true
	}

	createdKey := clk.LocalDateKey(m.CreatedAt)
	if createdKey > date {
		return false
	}
	if createdKey == date {
		// No log on the creation day (checked above).
		return false
	}

	if m.DeletedAt != nil {
		deletedKey := clk.LocalDateKey(*m.DeletedAt)
		if deletedKey < date {
			return false
		}
		if deletedKey == date {
			return clock.MinutesOf(m.Reminder()) < clk.LocalMinutesAt(*m.DeletedAt)
		}
	}

	return true
}
