package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"medicare/internal/adherence"
	"medicare/internal/auth"
	"medicare/internal/clock"
	"medicare/internal/jobs"
	"medicare/internal/medication"
)

// ErrNoCaretaker is returned by the manual trigger when the patient has no
// caretaker email configured.
var ErrNoCaretaker = errors.New("Caretaker email is not configured.")

// Sweeper finalizes grace-expired doses as missed and queues caretaker
// alerts. It is triggered externally (cron interval or a manual request) and
// never schedules itself.
type Sweeper struct {
	DB     *gorm.DB
	Sender jobs.Sender
	Log    *zap.Logger
}

// SweepUser checks one patient's medications for today. Safe to call
// repeatedly and concurrently with the cron sweep: the unique
// (medication_id, log_date) index breaks the read-then-write race, and a
// duplicate-key insert is skipped, not surfaced.
func (s *Sweeper) SweepUser(ctx context.Context, user auth.User, clk clock.Context) (int, error) {
	if user.CaretakerEmail == "" {
		return 0, ErrNoCaretaker
	}
	return s.sweep(ctx, user, clk)
}

// SweepAll runs the periodic pass over every patient with alerts enabled,
// on server time (degraded resolver; the cron trigger has no client bundle).
func (s *Sweeper) SweepAll(ctx context.Context) {
	clk := clock.Resolve("", time.Now())

	var users []auth.User
	if err := s.DB.WithContext(ctx).
		Where("alerts_enabled = ? AND caretaker_email <> ''", true).
		Find(&users).Error; err != nil {
		s.Log.Error("sweep: list users failed", zap.Error(err))
		return
	}

	for _, u := range users {
		n, err := s.sweep(ctx, u, clk)
		if err != nil {
			s.Log.Error("sweep failed", zap.Uint64("user", u.ID), zap.Error(err))
			continue
		}
		if n > 0 {
			s.Log.Info("missed doses finalized", zap.Uint64("user", u.ID), zap.Int("count", n))
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, user auth.User, clk clock.Context) (int, error) {
	var meds []medication.Medication
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", user.ID).
		Find(&meds).Error; err != nil {
		return 0, err
	}
	if len(meds) == 0 {
		return 0, nil
	}

	var logged []medication.Log
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", user.ID, clk.LocalDate).
		Find(&logged).Error; err != nil {
		return 0, err
	}
	done := make(map[string]struct{}, len(logged))
	for _, l := range logged {
		done[l.MedicationID] = struct{}{}
	}

	window := user.AlertWindow()
	processed := 0

	for _, m := range meds {
		if _, ok := done[m.ID]; ok {
			continue
		}
		if !adherence.GraceExpired(m, window, clk) {
			continue
		}

		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			l := medication.Log{
				UserID:       user.ID,
				MedicationID: m.ID,
				LogDate:      clk.LocalDate,
				Status:       medication.StatusMissed,
			}
			if err := tx.Create(&l).Error; err != nil {
				return err
			}

			if !user.AlertsEnabled {
				return nil
			}

			body, err := RenderEmail(EmailData{
				PatientName:    patientName(user.Email),
				MedicationName: m.Name,
				Dosage:         m.Dosage,
				Time:           m.Reminder(),
				Missed:         true,
			})
			if err != nil {
				return err
			}
			return jobs.EnqueueAlertEmail(tx, user.ID, jobs.AlertEmail{
				To:      user.CaretakerEmail,
				Subject: "⚠️ Alert: Missed Dose Detected - " + m.Name,
				Body:    body,
			}, clk.Instant)
		})
		if err != nil {
			// Another trigger finalized this dose first; expected, not fatal.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return processed, err
		}
		processed++
	}

	return processed, nil
}

// SendTest delivers the settings-verification email immediately so the
// caller gets a synchronous result.
func (s *Sweeper) SendTest(user auth.User) error {
	if user.CaretakerEmail == "" {
		return ErrNoCaretaker
	}
	body, err := RenderEmail(EmailData{
		PatientName: patientName(user.Email),
		Missed:      false,
	})
	if err != nil {
		return err
	}
	return s.Sender.Send(user.CaretakerEmail, "Medication Alert - Test Notification", body)
}

// patientName derives a display name from the account email.
func patientName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Patient"
	}
	local = strings.ReplaceAll(local, ".", " ")
	local = strings.ReplaceAll(local, "_", " ")
	return local
}
