// Package store persists evaluation runs and settings in SQLite. The
// orchestration core has no dependency on it; it backs the thin HTTP
// collaborators only.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// New opens (or creates) the SQLite database at path and migrates the
// schema. The connection goes through the pure-Go driver so the binary
// builds without cgo.
func New(path string) (*Store, error) {
	sqliteDB, err := sql.Open("sqlite", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&EvaluationRun{},
		&EvaluationResult{},
		&Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm connection; used by tests.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&EvaluationRun{},
		&EvaluationResult{},
		&Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveEvaluationRun persists a run with its results.
func (s *Store) SaveEvaluationRun(run *EvaluationRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	return s.db.Create(run).Error
}

// GetEvaluationRun loads one run with its results.
func (s *Store) GetEvaluationRun(id string) (*EvaluationRun, error) {
	var run EvaluationRun
	if err := s.db.Preload("Results").First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListEvaluationRuns returns the most recent runs, newest first.
func (s *Store) ListEvaluationRuns(limit int) ([]EvaluationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []EvaluationRun
	err := s.db.Preload("Results").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// PruneEvaluationRuns deletes runs created before the cutoff and returns
// how many were removed.
func (s *Store) PruneEvaluationRuns(before time.Time) (int64, error) {
	var ids []string
	if err := s.db.Model(&EvaluationRun{}).
		Where("created_at < ?", before).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.db.Where("run_id IN ?", ids).Delete(&EvaluationResult{}).Error; err != nil {
		return 0, err
	}
	res := s.db.Where("id IN ?", ids).Delete(&EvaluationRun{})
	return res.RowsAffected, res.Error
}

// GetSetting returns the value for key, or empty string when unset.
func (s *Store) GetSetting(key string) (string, error) {
	var setting Setting
	err := s.db.First(&setting, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetSetting upserts one key/value pair.
func (s *Store) SetSetting(key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.Save(&setting).Error
}

// AllSettings returns every persisted setting keyed by name.
func (s *Store) AllSettings() (map[string]string, error) {
	var settings []Setting
	if err := s.db.Find(&settings).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	return out, nil
}
