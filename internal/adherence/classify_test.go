package adherence

import (
	"testing"

	"medicare/internal/medication"
)

func TestClassify_TodayWindow(t *testing.T) {
	m := medication.Medication{ID: "med-1", ReminderTime: "09:00", CreatedAt: ts("2024-06-01T00:00:00Z")}
	const window = 120

	cases := []struct {
		tod  string
		want Status
	}{
		{"08:59", StatusUpcoming},
		{"09:00", StatusPending},
		{"10:30", StatusPending},
		{"10:59", StatusPending},
		{"11:00", StatusMissed},
		{"11:01", StatusMissed},
		{"23:59", StatusMissed},
	}

	for _, tc := range cases {
		clk := testClock("2024-06-15", tc.tod)
		if got := Classify(m, "2024-06-15", NewLogIndex(nil), window, clk); got != tc.want {
			t.Errorf("Classify at %s = %s, want %s", tc.tod, got, tc.want)
		}
	}
}

func TestClassify_TakenWinsAlways(t *testing.T) {
	m := medication.Medication{ID: "med-1", ReminderTime: "09:00", CreatedAt: ts("2024-06-01T00:00:00Z")}
	ix := NewLogIndex([]medication.Log{
		{MedicationID: "med-1", LogDate: "2024-06-15", Status: medication.StatusTaken},
	})

	// Even deep past the grace window a taken log is taken.
	clk := testClock("2024-06-15", "23:00")
	if got := Classify(m, "2024-06-15", ix, 120, clk); got != StatusTaken {
		t.Errorf("Classify = %s, want %s", got, StatusTaken)
	}
}

func TestClassify_PastAndFutureDays(t *testing.T) {
	m := medication.Medication{ID: "med-1", ReminderTime: "09:00", CreatedAt: ts("2024-06-01T00:00:00Z")}
	ix := NewLogIndex(nil)
	clk := testClock("2024-06-15", "08:00")

	if got := Classify(m, "2024-06-14", ix, 120, clk); got != StatusMissed {
		t.Errorf("past day = %s, want %s", got, StatusMissed)
	}
	if got := Classify(m, "2024-06-16", ix, 120, clk); got != StatusUpcoming {
		t.Errorf("future day = %s, want %s", got, StatusUpcoming)
	}
}

// Widening the grace window can only move a dose away from missed, never
// toward it.
func TestClassify_WindowMonotonic(t *testing.T) {
	m := medication.Medication{ID: "med-1", ReminderTime: "09:00", CreatedAt: ts("2024-06-01T00:00:00Z")}
	ix := NewLogIndex(nil)
	clk := testClock("2024-06-15", "11:00")

	rank := map[Status]int{StatusMissed: 0, StatusPending: 1, StatusUpcoming: 2, StatusTaken: 3}

	prev := Classify(m, "2024-06-15", ix, 5, clk)
	for _, window := range []int{30, 60, 120, 121, 240, 1440} {
		got := Classify(m, "2024-06-15", ix, window, clk)
		if rank[got] < rank[prev] {
			t.Errorf("window %d demoted status %s -> %s", window, prev, got)
		}
		prev = got
	}
	if got := Classify(m, "2024-06-15", ix, 121, clk); got != StatusPending {
		t.Errorf("window 121 at 11:00 = %s, want %s", got, StatusPending)
	}
}

func TestGraceExpired(t *testing.T) {
	m := medication.Medication{ID: "med-1", ReminderTime: "09:00"}

	if GraceExpired(m, 120, testClock("2024-06-15", "10:59")) {
		t.Error("grace should still be open at 10:59")
	}
	if !GraceExpired(m, 120, testClock("2024-06-15", "11:00")) {
		t.Error("grace should be expired at 11:00")
	}
}
