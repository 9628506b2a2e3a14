package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"medicare/internal/auth"
	"medicare/internal/jobs"
	"medicare/internal/medication"
)

func Connect(dsn string) (*gorm.DB, error) {
	// TranslateError so duplicate log inserts surface as gorm.ErrDuplicatedKey;
	// the unique (medication_id, log_date) index is the idempotency arbiter.
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&medication.Medication{},
		&medication.Log{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_meds_user_reminder on medications(user_id, reminder_time);`,
		`create index if not exists idx_med_logs_user_date on medication_logs(user_id, log_date);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
