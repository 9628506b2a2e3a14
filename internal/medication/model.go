package medication

import "time"

// Log statuses. Both are terminal: a log row is never mutated or deleted
// after creation.
const (
	StatusTaken  = "taken"
	StatusMissed = "missed"
)

// Medication is a prescribed recurring dose. Rows are soft-deleted only;
// the adherence core needs deleted rows to score past days.
type Medication struct {
	ID           string     `gorm:"primaryKey;size:36"`
	UserID       uint64     `gorm:"index;not null"`
	Name         string     `gorm:"not null"`
	Dosage       string     `gorm:"not null"`
	ReminderTime string     `gorm:"size:5;not null;default:'08:00'"` // HH:MM, 24h
	CreatedAt    time.Time  `gorm:"not null"`
	DeletedAt    *time.Time `gorm:"index"`
}

// Log is the resolved outcome of one medication on one calendar day.
// LogDate is the patient-local day the dose belongs to, written once at
// creation time; it is a plain date string, never a timestamp.
type Log struct {
	ID           uint64     `gorm:"primaryKey"`
	UserID       uint64     `gorm:"index;not null"`
	MedicationID string     `gorm:"size:36;not null;uniqueIndex:uq_med_logs_med_date"`
	LogDate      string     `gorm:"size:10;not null;uniqueIndex:uq_med_logs_med_date"`
	Status       string     `gorm:"not null"`
	TakenAt      *time.Time // present only when Status == taken
	EvidenceURL  *string
	CreatedAt    time.Time `gorm:"not null"`
}

func (Log) TableName() string { return "medication_logs" }

// Deleted reports whether the medication has been soft-deleted.
func (m Medication) Deleted() bool { return m.DeletedAt != nil }

// Reminder returns the reminder time, defaulting when the column is empty.
func (m Medication) Reminder() string {
	if m.ReminderTime == "" {
		return "08:00"
	}
	return m.ReminderTime
}
