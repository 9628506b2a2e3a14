package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"medicare/internal/auth"
	"medicare/internal/clock"
	"medicare/internal/jobs"
	"medicare/internal/medication"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, htmlBody})
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&auth.User{}, &medication.Medication{}, &medication.Log{}, &jobs.Job{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func clockAt(date, tod string) clock.Context {
	raw := fmt.Sprintf(`{"now":"%sT%s:00Z","localDate":"%s","localTime":"%s"}`, date, tod, date, tod)
	return clock.Resolve(raw, time.Now())
}

func newSweeper(t *testing.T) (*Sweeper, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	return &Sweeper{DB: openTestDB(t), Sender: sender, Log: zap.NewNop()}, sender
}

func seedMed(t *testing.T, gdb *gorm.DB, userID uint64, id, name, reminder string) medication.Medication {
	t.Helper()
	m := medication.Medication{
		ID:           id,
		UserID:       userID,
		Name:         name,
		Dosage:       "10mg",
		ReminderTime: reminder,
		CreatedAt:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := gdb.Create(&m).Error; err != nil {
		t.Fatalf("seed medication: %v", err)
	}
	return m
}

func pendingAlerts(t *testing.T, gdb *gorm.DB) []jobs.Job {
	t.Helper()
	var out []jobs.Job
	if err := gdb.Where("type = ?", jobs.TypeAlertEmail).Find(&out).Error; err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	return out
}

func TestSweepUser_FinalizesAndEnqueues(t *testing.T) {
	s, _ := newSweeper(t)
	user := auth.User{ID: 1, Email: "jane.doe@example.com", CaretakerEmail: "care@example.com", AlertsEnabled: true, AlertWindowMinutes: 120}
	seedMed(t, s.DB, 1, "med-1", "Lisinopril", "08:00")
	clk := clockAt("2024-06-15", "11:00")

	n, err := s.SweepUser(context.Background(), user, clk)
	if err != nil {
		t.Fatalf("SweepUser: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}

	var l medication.Log
	if err := s.DB.Where("medication_id = ?", "med-1").First(&l).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if l.Status != medication.StatusMissed || l.LogDate != "2024-06-15" {
		t.Errorf("log = %+v, want missed on 2024-06-15", l)
	}

	alerts := pendingAlerts(t, s.DB)
	if len(alerts) != 1 {
		t.Fatalf("alert jobs = %d, want 1", len(alerts))
	}
	var msg jobs.AlertEmail
	if err := json.Unmarshal(alerts[0].Payload, &msg); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.To != "care@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "Lisinopril") {
		t.Errorf("Subject = %q, want the medication name", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Lisinopril") || !strings.Contains(msg.Body, "10mg") {
		t.Errorf("Body missing medication details")
	}
	if !strings.Contains(msg.Body, "jane doe") {
		t.Errorf("Body missing patient display name")
	}
}

func TestSweepUser_SecondPassIsNoop(t *testing.T) {
	s, _ := newSweeper(t)
	user := auth.User{ID: 1, Email: "pat@example.com", CaretakerEmail: "care@example.com", AlertsEnabled: true, AlertWindowMinutes: 120}
	seedMed(t, s.DB, 1, "med-1", "Lisinopril", "08:00")
	clk := clockAt("2024-06-15", "11:00")

	if _, err := s.SweepUser(context.Background(), user, clk); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	n, err := s.SweepUser(context.Background(), user, clk)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass processed = %d, want 0", n)
	}

	var count int64
	s.DB.Model(&medication.Log{}).Count(&count)
	if count != 1 {
		t.Errorf("log rows = %d, want 1", count)
	}
	if alerts := pendingAlerts(t, s.DB); len(alerts) != 1 {
		t.Errorf("alert jobs = %d, want 1", len(alerts))
	}
}

func TestSweepUser_RespectsGraceWindow(t *testing.T) {
	s, _ := newSweeper(t)
	user := auth.User{ID: 1, Email: "pat@example.com", CaretakerEmail: "care@example.com", AlertsEnabled: true, AlertWindowMinutes: 120}
	seedMed(t, s.DB, 1, "med-1", "Lisinopril", "08:00")
	seedMed(t, s.DB, 1, "med-2", "Atorvastatin", "20:00")
	clk := clockAt("2024-06-15", "11:00")

	n, err := s.SweepUser(context.Background(), user, clk)
	if err != nil {
		t.Fatalf("SweepUser: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want only the expired dose", n)
	}

	var count int64
	s.DB.Model(&medication.Log{}).Where("medication_id = ?", "med-2").Count(&count)
	if count != 0 {
		t.Errorf("evening dose was finalized before its window closed")
	}
}

func TestSweepUser_SkipsLoggedDoses(t *testing.T) {
	s, _ := newSweeper(t)
	user := auth.User{ID: 1, Email: "pat@example.com", CaretakerEmail: "care@example.com", AlertsEnabled: true, AlertWindowMinutes: 120}
	seedMed(t, s.DB, 1, "med-1", "Lisinopril", "08:00")
	taken := medication.Log{UserID: 1, MedicationID: "med-1", LogDate: "2024-06-15", Status: medication.StatusTaken}
	if err := s.DB.Create(&taken).Error; err != nil {
		t.Fatalf("seed log: %v", err)
	}

	n, err := s.SweepUser(context.Background(), user, clockAt("2024-06-15", "11:00"))
	if err != nil {
		t.Fatalf("SweepUser: %v", err)
	}
	if n != 0 {
		t.Errorf("processed = %d, want 0", n)
	}
	if alerts := pendingAlerts(t, s.DB); len(alerts) != 0 {
		t.Errorf("alert jobs = %d, want 0", len(alerts))
	}
}

func TestSweepUser_NoCaretaker(t *testing.T) {
	s, _ := newSweeper(t)
	user := auth.User{ID: 1, Email: "pat@example.com", AlertsEnabled: true}

	if _, err := s.SweepUser(context.Background(), user, clockAt("2024-06-15", "11:00")); !errors.Is(err, ErrNoCaretaker) {
		t.Errorf("err = %v, want ErrNoCaretaker", err)
	}
}

func TestSweepUser_AlertsDisabledStillFinalizes(t *testing.T) {
	s, _ := newSweeper(t)
	user := auth.User{ID: 1, Email: "pat@example.com", CaretakerEmail: "care@example.com", AlertsEnabled: false, AlertWindowMinutes: 120}
	seedMed(t, s.DB, 1, "med-1", "Lisinopril", "08:00")

	n, err := s.SweepUser(context.Background(), user, clockAt("2024-06-15", "11:00"))
	if err != nil {
		t.Fatalf("SweepUser: %v", err)
	}
	if n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}

	var count int64
	s.DB.Model(&medication.Log{}).Where("status = ?", medication.StatusMissed).Count(&count)
	if count != 1 {
		t.Errorf("missed logs = %d, want 1", count)
	}
	if alerts := pendingAlerts(t, s.DB); len(alerts) != 0 {
		t.Errorf("alert jobs = %d, want none when alerts are off", len(alerts))
	}
}

func TestSendTest(t *testing.T) {
	s, sender := newSweeper(t)

	if err := s.SendTest(auth.User{Email: "pat@example.com"}); !errors.Is(err, ErrNoCaretaker) {
		t.Errorf("err = %v, want ErrNoCaretaker", err)
	}

	user := auth.User{Email: "jane_doe@example.com", CaretakerEmail: "care@example.com"}
	if err := s.SendTest(user); err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sender.sent))
	}
	mail := sender.sent[0]
	if mail.to != "care@example.com" {
		t.Errorf("to = %q", mail.to)
	}
	if !strings.Contains(mail.body, "jane doe") {
		t.Errorf("body missing patient display name")
	}

	sender.err = errors.New("smtp down")
	if err := s.SendTest(user); err == nil {
		t.Error("want delivery error surfaced")
	}
}

func TestPatientName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"jane.doe@example.com", "jane doe"},
		{"jane_doe@example.com", "jane doe"},
		{"pat@example.com", "pat"},
		{"@example.com", "Patient"},
	}
	for _, tc := range cases {
		if got := patientName(tc.in); got != tc.want {
			t.Errorf("patientName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
