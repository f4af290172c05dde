// Package history keeps a local record of completed generation batches so
// the UI can show when each folder was last analyzed. It is purely additive
// bookkeeping: matching never consults it, and deleting the database loses
// nothing but the run log.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/takematch/takematch/pkg/takematch/generate"
)

const DefaultDBFile = "takematch-history.sqlite3"

var errStoreNil = errors.New("history store is nil")

// BatchRun is one completed generation batch as seen by one folder. A batch
// spanning several folders yields one row per folder, all sharing BatchID.
type BatchRun struct {
	ID         uint   `gorm:"primaryKey"`
	BatchID    string `gorm:"index:idx_batch;type:varchar(36)"`
	Folder     string `gorm:"index:idx_folder"`
	Algorithm  string
	Succeeded  int
	Failed     int
	Skipped    int
	Cancelled  bool
	DurationMs int64
	CreatedAt  time.Time
}

// Store wraps the SQLite run log.
type Store struct {
	DB *gorm.DB
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&BatchRun{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{DB: db, db: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores the outcome of a finished batch for a folder.
func (s *Store) Record(folder string, report generate.Report) error {
	if s == nil || s.DB == nil {
		return errStoreNil
	}
	run := BatchRun{
		BatchID:    report.BatchID,
		Folder:     folder,
		Algorithm:  string(report.Algorithm),
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		Cancelled:  report.Cancelled,
		DurationMs: report.Duration.Milliseconds(),
	}
	if err := s.DB.Create(&run).Error; err != nil {
		return fmt.Errorf("recording batch run: %w", err)
	}
	return nil
}

// Recent returns up to n most recent runs for a folder, newest first.
func (s *Store) Recent(folder string, n int) ([]BatchRun, error) {
	if s == nil || s.DB == nil {
		return nil, errStoreNil
	}
	var runs []BatchRun
	err := s.DB.Where("folder = ?", folder).Order("created_at desc").Limit(n).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("querying batch runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the newest run for a folder, or nil when none exists.
func (s *Store) LastRun(folder string) (*BatchRun, error) {
	runs, err := s.Recent(folder, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
