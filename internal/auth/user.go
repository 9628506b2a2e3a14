package auth

import "time"

// User is a patient account. Caretaker alert settings live here; the two
// notification switches in the product UI always move together, so they are
// stored as the single AlertsEnabled capability flag.
type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`

	CaretakerEmail     string `gorm:"not null;default:''"`
	AlertsEnabled      bool   `gorm:"not null;default:true"`
	AlertWindowMinutes int    `gorm:"not null;default:120"` // grace period, 5..1440
}

// AlertWindow returns the grace period, falling back to the product default
// for rows written before the column existed.
func (u User) AlertWindow() int {
	if u.AlertWindowMinutes <= 0 {
		return 120
	}
	return u.AlertWindowMinutes
}
