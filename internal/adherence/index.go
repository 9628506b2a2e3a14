// Package adherence derives medication statuses and adherence statistics
// from already-fetched records. Every function here is pure: same
// medications, logs and clock give the same answer, and nothing reads
// ambient time or touches the store.
package adherence

import (
	"strings"

	"medicare/internal/medication"
)

// LogIndex indexes log rows by (log_date, medication_id) for the range scans
// the calculators run. log_date is used verbatim; it is already a local day.
type LogIndex struct {
	any   map[string]map[string]struct{}
	taken map[string]map[string]struct{}
}

// NewLogIndex builds the lookup index from raw log rows.
func NewLogIndex(logs []medication.Log) *LogIndex {
	ix := &LogIndex{
		any:   make(map[string]map[string]struct{}),
		taken: make(map[string]map[string]struct{}),
	}
	for _, l := range logs {
		key := dateKeyOf(l.LogDate)
		if key == "" {
			continue
		}
		if ix.any[key] == nil {
			ix.any[key] = make(map[string]struct{})
		}
		ix.any[key][l.MedicationID] = struct{}{}
		if l.Status == medication.StatusTaken {
			if ix.taken[key] == nil {
				ix.taken[key] = make(map[string]struct{})
			}
			ix.taken[key][l.MedicationID] = struct{}{}
		}
	}
	return ix
}

// HasAny reports whether any log (taken or missed) exists for the pair.
func (ix *LogIndex) HasAny(date, medID string) bool {
	_, ok := ix.any[date][medID]
	return ok
}

// Taken reports whether a taken log exists for the pair.
func (ix *LogIndex) Taken(date, medID string) bool {
	_, ok := ix.taken[date][medID]
	return ok
}

// TakenCount counts medications in meds with a taken log on date.
func (ix *LogIndex) TakenCount(date string, meds []medication.Medication) int {
	n := 0
	for _, m := range meds {
		if ix.Taken(date, m.ID) {
			n++
		}
	}
	return n
}

// dateKeyOf extracts YYYY-MM-DD from a stored log_date. Defensive against a
// timestamp having leaked into the column; the date part is still the local
// day and is never offset-shifted.
func dateKeyOf(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}
