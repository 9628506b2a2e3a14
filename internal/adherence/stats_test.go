package adherence

import (
	"testing"

	"medicare/internal/medication"
)

func takenLog(medID, date string) medication.Log {
	return medication.Log{MedicationID: medID, LogDate: date, Status: medication.StatusTaken}
}

// One medication taken five days running, then nothing today with the grace
// window already closed. The completed run survives; today just withholds
// its increment.
func TestComputeStats_MissedTodayKeepsPastStreak(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")
	meds := []medication.Medication{{
		ID:           "med-1",
		Name:         "Lisinopril",
		Dosage:       "10mg",
		ReminderTime: "08:00",
		CreatedAt:    ts("2024-05-01T00:00:00Z"),
	}}
	var logs []medication.Log
	for _, d := range []string{"2024-06-10", "2024-06-11", "2024-06-12", "2024-06-13", "2024-06-14"} {
		logs = append(logs, takenLog("med-1", d))
	}

	s := ComputeStats(meds, logs, 120, clk, "", "pat@example.com")

	if s.Streak != 5 {
		t.Errorf("Streak = %d, want 5", s.Streak)
	}
	if s.TodayStatus != 0 {
		t.Errorf("TodayStatus = %d, want 0", s.TodayStatus)
	}
	if s.MonthlyRate != 33 {
		t.Errorf("MonthlyRate = %d, want 33", s.MonthlyRate)
	}
	if s.TotalMeds != 1 || s.TakenCount != 0 {
		t.Errorf("TotalMeds/TakenCount = %d/%d, want 1/0", s.TotalMeds, s.TakenCount)
	}
	if s.MissedThisMonth != 10 {
		t.Errorf("MissedThisMonth = %d, want 10", s.MissedThisMonth)
	}
	if s.TakenThisWeek != 5 {
		t.Errorf("TakenThisWeek = %d, want 5", s.TakenThisWeek)
	}
	if s.RemainingDays != 15 {
		t.Errorf("RemainingDays = %d, want 15", s.RemainingDays)
	}
	if len(s.History) != 91 {
		t.Fatalf("len(History) = %d, want 91", len(s.History))
	}

	today := s.History[len(s.History)-1]
	if today.Date != "2024-06-15" || today.Status != DayMissed || !today.HasMissed {
		t.Errorf("today bucket = %+v, want missed with HasMissed", today)
	}
	if s.Email != "pat@example.com" {
		t.Errorf("Email = %q", s.Email)
	}
}

// Two medications: one taken, one whose reminder has not fired yet. Half done
// is partial, not missed, and nothing counts against the month.
func TestComputeStats_PartialDay(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")
	meds := []medication.Medication{
		{ID: "med-a", Name: "Metformin", ReminderTime: "08:00", CreatedAt: ts("2024-06-14T09:00:00Z")},
		{ID: "med-b", Name: "Atorvastatin", ReminderTime: "20:00", CreatedAt: ts("2024-06-14T09:00:00Z")},
	}
	logs := []medication.Log{takenLog("med-a", "2024-06-15")}

	s := ComputeStats(meds, logs, 120, clk, "", "")

	if s.TodayStatus != 50 {
		t.Errorf("TodayStatus = %d, want 50", s.TodayStatus)
	}
	if s.TotalMeds != 2 || s.TakenCount != 1 {
		t.Errorf("TotalMeds/TakenCount = %d/%d, want 2/1", s.TotalMeds, s.TakenCount)
	}
	if s.Streak != 0 {
		t.Errorf("Streak = %d, want 0", s.Streak)
	}
	if s.MonthlyRate != 50 {
		t.Errorf("MonthlyRate = %d, want 50", s.MonthlyRate)
	}
	if s.MissedThisMonth != 0 {
		t.Errorf("MissedThisMonth = %d, want 0", s.MissedThisMonth)
	}

	today := s.History[len(s.History)-1]
	if today.Status != DayPartial || today.HasMissed {
		t.Errorf("today bucket = %+v, want partial without HasMissed", today)
	}
}

func TestComputeStats_CompleteDayExtendsStreak(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")
	meds := []medication.Medication{{
		ID: "med-1", Name: "Lisinopril", ReminderTime: "08:00", CreatedAt: ts("2024-05-01T00:00:00Z"),
	}}
	var logs []medication.Log
	for _, d := range []string{"2024-06-13", "2024-06-14", "2024-06-15"} {
		logs = append(logs, takenLog("med-1", d))
	}

	s := ComputeStats(meds, logs, 120, clk, "", "")

	if s.Streak != 3 {
		t.Errorf("Streak = %d, want 3", s.Streak)
	}
	if s.TodayStatus != 100 {
		t.Errorf("TodayStatus = %d, want 100", s.TodayStatus)
	}
	if today := s.History[len(s.History)-1]; today.Status != DayComplete {
		t.Errorf("today bucket status = %s, want %s", today.Status, DayComplete)
	}
}

func TestComputeStats_NoMedications(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")

	s := ComputeStats(nil, nil, 120, clk, "", "pat@example.com")

	if s.Streak != 0 || s.TodayStatus != 0 || s.MonthlyRate != 0 {
		t.Errorf("zero snapshot has nonzero rates: %+v", s)
	}
	if s.History == nil || len(s.History) != 0 {
		t.Errorf("History = %v, want empty non-nil slice", s.History)
	}
	if s.RecentActivity == nil || len(s.RecentActivity) != 0 {
		t.Errorf("RecentActivity = %v, want empty non-nil slice", s.RecentActivity)
	}
	if s.Email != "pat@example.com" {
		t.Errorf("Email = %q", s.Email)
	}
}

// A medication added today without a log creates no opportunities yet, so
// every rate stays at zero rather than going negative or dividing by zero.
func TestComputeStats_NoOpportunities(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")
	meds := []medication.Medication{{
		ID: "med-1", Name: "Lisinopril", ReminderTime: "08:00", CreatedAt: ts("2024-06-15T10:00:00Z"),
	}}

	s := ComputeStats(meds, nil, 120, clk, "", "")

	if s.Streak != 0 || s.TodayStatus != 0 || s.MonthlyRate != 0 || s.MissedThisMonth != 0 {
		t.Errorf("want all-zero rates, got %+v", s)
	}
	if s.TotalMeds != 0 {
		t.Errorf("TotalMeds = %d, want 0", s.TotalMeds)
	}
}

func TestComputeStats_RateBounds(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")
	meds := []medication.Medication{{
		ID: "med-1", ReminderTime: "08:00", CreatedAt: ts("2024-05-01T00:00:00Z"),
	}}
	var logs []medication.Log
	for _, d := range []string{"2024-06-13", "2024-06-14", "2024-06-15"} {
		logs = append(logs, takenLog("med-1", d))
	}

	s := ComputeStats(meds, logs, 120, clk, "", "")

	for name, v := range map[string]int{"TodayStatus": s.TodayStatus, "MonthlyRate": s.MonthlyRate} {
		if v < 0 || v > 100 {
			t.Errorf("%s = %d, out of [0,100]", name, v)
		}
	}
}

func TestRecentActivity(t *testing.T) {
	clk := testClock("2024-06-15", "18:00")
	meds := []medication.Medication{
		{ID: "med-a", Name: "Metformin", ReminderTime: "08:00", CreatedAt: ts("2024-05-01T00:00:00Z")},
	}
	logs := []medication.Log{
		{MedicationID: "med-a", LogDate: "2024-06-14", Status: medication.StatusMissed, CreatedAt: ts("2024-06-14T23:00:00Z")},
		{MedicationID: "med-a", LogDate: "2024-06-15", Status: medication.StatusTaken, TakenAt: tsp("2024-06-15T14:30:00Z"), CreatedAt: ts("2024-06-15T14:30:00Z")},
	}

	s := ComputeStats(meds, logs, 120, clk, "", "")

	if len(s.RecentActivity) != 2 {
		t.Fatalf("len(RecentActivity) = %d, want 2", len(s.RecentActivity))
	}

	first := s.RecentActivity[0]
	if first.Status != "Completed" || first.Type != medication.StatusTaken {
		t.Errorf("first entry = %+v, want completed taken log", first)
	}
	if first.Date != "Saturday, June 15" {
		t.Errorf("first.Date = %q, want %q", first.Date, "Saturday, June 15")
	}
	if first.Time != "02:30 PM" {
		t.Errorf("first.Time = %q, want %q", first.Time, "02:30 PM")
	}
	if first.Medication != "Metformin" {
		t.Errorf("first.Medication = %q", first.Medication)
	}

	second := s.RecentActivity[1]
	if second.Status != "Missed" {
		t.Errorf("second.Status = %q, want Missed", second.Status)
	}
	// Missed entries fall back to the reminder time.
	if second.Time != "8:00 AM" {
		t.Errorf("second.Time = %q, want %q", second.Time, "8:00 AM")
	}
}

func TestRecentActivity_Capped(t *testing.T) {
	clk := testClock("2024-06-15", "12:00")
	meds := []medication.Medication{{
		ID: "med-1", Name: "Lisinopril", ReminderTime: "08:00", CreatedAt: ts("2024-01-01T00:00:00Z"),
	}}
	var logs []medication.Log
	for d := 1; d <= 14; d++ {
		logs = append(logs, takenLog("med-1", ts("2024-06-01T00:00:00Z").AddDate(0, 0, d-1).Format("2006-01-02")))
	}

	s := ComputeStats(meds, logs, 120, clk, "", "")

	if len(s.RecentActivity) != 10 {
		t.Errorf("len(RecentActivity) = %d, want 10", len(s.RecentActivity))
	}
	if s.RecentActivity[0].Date != "Friday, June 14" {
		t.Errorf("newest entry date = %q, want Friday, June 14", s.RecentActivity[0].Date)
	}
}
