package db

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"nutrilog/internal/auth"
	"nutrilog/internal/history"
	"nutrilog/internal/jobs"
	"nutrilog/internal/nutrition"
)

func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	log.Info("database connected")
	return gdb, nil
}

// AutoMigrateAndIndexes creates every table and its indexes. withDocuments is false when nutrition
// documents live in Firestore.
func AutoMigrateAndIndexes(gdb *gorm.DB, withDocuments bool) error {
	models := []any{
		&auth.User{},
		&jobs.Job{},
		&history.DailySummary{},
	}
	if withDocuments {
		models = append(models, &nutrition.Record{})
	}
	if err := gdb.AutoMigrate(models...); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
		`create index if not exists idx_jobs_user_type on jobs(user_id, type, status);`,
		`create index if not exists idx_summaries_tags on daily_summaries using gin (tags);`,
		`create index if not exists idx_summaries_user_date on daily_summaries(user_id, date desc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}
	return nil
}
