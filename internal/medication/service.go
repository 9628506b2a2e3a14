package medication

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"medicare/internal/clock"
)

var ErrNotFound = errors.New("not found")

// Rejection is a business-rule refusal. The message is user-facing and shown
// verbatim by the caller.
type Rejection struct {
	Msg string
}

func (r Rejection) Error() string { return r.Msg }

func reject(format string, args ...any) error {
	return Rejection{Msg: fmt.Sprintf(format, args...)}
}

var reminderRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

type Service struct {
	DB *gorm.DB
}

type Input struct {
	Name         string
	Dosage       string
	ReminderTime string
}

func validate(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Dosage = strings.TrimSpace(in.Dosage)
	if len(in.Name) < 2 {
		return in, reject("Name must be at least 2 characters")
	}
	if in.Dosage == "" {
		return in, reject("Dosage is required")
	}
	if !reminderRe.MatchString(in.ReminderTime) {
		return in, reject("Invalid time format (HH:mm)")
	}
	return in, nil
}

// Add creates a medication. A reminder earlier than the patient's current
// local time is rejected: the first occurrence would be instantly missed.
func (s *Service) Add(ctx context.Context, userID uint64, in Input, clk clock.Context) (Medication, error) {
	in, err := validate(in)
	if err != nil {
		return Medication{}, err
	}
	if clock.MinutesOf(in.ReminderTime) < clk.LocalMinutes() {
		return Medication{}, reject("Reminder time (%s) cannot be in the past. It's currently %s.", in.ReminderTime, clk.LocalTime)
	}

	m := Medication{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         in.Name,
		Dosage:       in.Dosage,
		ReminderTime: in.ReminderTime,
		CreatedAt:    clk.Instant.UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return Medication{}, err
	}
	return m, nil
}

// Update edits name/dosage/reminder. Frozen for the rest of the day once any
// log row exists for the current local date, so a finalized day cannot be
// sabotaged retroactively.
func (s *Service) Update(ctx context.Context, userID uint64, id string, in Input, clk clock.Context) error {
	in, err := validate(in)
	if err != nil {
		return err
	}
	if clock.MinutesOf(in.ReminderTime) < clk.LocalMinutes() {
		return reject("New reminder time (%s) cannot be in the past for today.", in.ReminderTime)
	}

	var m Medication
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var existing Log
	err = s.DB.WithContext(ctx).
		Where("medication_id = ? AND log_date = ?", id, clk.LocalDate).
		First(&existing).Error
	switch {
	case err == nil:
		return reject("This medication has already been marked as '%s' for today and cannot be updated.", strings.ToUpper(existing.Status))
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	return s.DB.WithContext(ctx).Model(&Medication{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"name":          in.Name,
			"dosage":        in.Dosage,
			"reminder_time": in.ReminderTime,
		}).Error
}

// Delete soft-deletes. Rows are never removed; past days still need them.
func (s *Service) Delete(ctx context.Context, userID uint64, id string, now time.Time) error {
	res := s.DB.WithContext(ctx).Model(&Medication{}).
		Where("id = ? AND user_id = ? AND deleted_at IS NULL", id, userID).
		Update("deleted_at", now.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LogDose records today's dose as taken. Exactly one log per medication per
// day; a finalized day is terminal in either direction.
func (s *Service) LogDose(ctx context.Context, userID uint64, medID string, evidenceURL *string, clk clock.Context) error {
	var m Medication
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", medID, userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var existing Log
	err := s.DB.WithContext(ctx).
		Where("medication_id = ? AND log_date = ?", medID, clk.LocalDate).
		First(&existing).Error
	switch {
	case err == nil:
		switch existing.Status {
		case StatusTaken:
			return reject("This medication has already been taken today.")
		case StatusMissed:
			return reject("This dose was finalized as 'Missed' and cannot be changed.")
		default:
			return reject("This medication is already logged for today.")
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	takenAt := clk.Instant.UTC()
	l := Log{
		UserID:       userID,
		MedicationID: medID,
		LogDate:      clk.LocalDate,
		Status:       StatusTaken,
		TakenAt:      &takenAt,
		EvidenceURL:  evidenceURL,
	}
	if err := s.DB.WithContext(ctx).Create(&l).Error; err != nil {
		// Lost the read-then-write race; the unique index is the arbiter.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return reject("This medication is already logged for today.")
		}
		return err
	}
	return nil
}

// MarkAllTaken logs every non-deleted medication without a log today in one
// batch. Already-logged medications are skipped, never overwritten, so the
// call is idempotent.
func (s *Service) MarkAllTaken(ctx context.Context, userID uint64, clk clock.Context) error {
	var meds []Medication
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Find(&meds).Error; err != nil {
		return err
	}
	if len(meds) == 0 {
		return nil
	}

	var logged []Log
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", userID, clk.LocalDate).
		Find(&logged).Error; err != nil {
		return err
	}
	done := make(map[string]struct{}, len(logged))
	for _, l := range logged {
		done[l.MedicationID] = struct{}{}
	}

	takenAt := clk.Instant.UTC()
	var batch []Log
	for _, m := range meds {
		if _, ok := done[m.ID]; ok {
			continue
		}
		batch = append(batch, Log{
			UserID:       userID,
			MedicationID: m.ID,
			LogDate:      clk.LocalDate,
			Status:       StatusTaken,
			TakenAt:      &takenAt,
		})
	}
	if len(batch) == 0 {
		return nil
	}

	// Concurrent loggers may have won some rows since the read; drop those.
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&batch).Error
}

// ListAll returns the patient's medications including soft-deleted rows,
// ordered by reminder time. The adherence core decides activity per day.
func (s *Service) ListAll(ctx context.Context, userID uint64) ([]Medication, error) {
	var meds []Medication
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reminder_time asc").
		Find(&meds).Error
	return meds, err
}

// LogsSince returns log rows with log_date >= since (YYYY-MM-DD).
func (s *Service) LogsSince(ctx context.Context, userID uint64, since string) ([]Log, error) {
	var logs []Log
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND log_date >= ?", userID, since).
		Find(&logs).Error
	return logs, err
}

// LogsOn returns log rows for exactly one local day.
func (s *Service) LogsOn(ctx context.Context, userID uint64, date string) ([]Log, error) {
	var logs []Log
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND log_date = ?", userID, date).
		Find(&logs).Error
	return logs, err
}
