// Package ledger persists a write-only audit trail of past runs. It is not
// used to resume or retry a run; a run that dies mid-flight starts over
// from scratch on the next invocation. The ledger exists purely so an
// operator can answer "what ran, when, against which hosts, and did it
// succeed" after the fact.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mistvane/distrans/internal/config"
)

// Run is one completed or failed distrans invocation.
type Run struct {
	ID         string `gorm:"primaryKey"`
	StartedAt  time.Time
	FinishedAt time.Time
	Input      string
	Output     string
	Hosts      string // comma-separated, as recorded at start
	ChunkCount int
	Succeeded  bool
	Error      string `gorm:"type:text"`
}

// Ledger appends run records to a sqlite-backed history database.
type Ledger struct {
	db *gorm.DB
}

// Open connects to (creating if necessary) the run ledger database at
// cfg.Path and ensures its schema is current.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gl := newGormLogger(logger, cfg.LogLevel)

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("opening ledger database %s: %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("acquiring sql.DB from ledger: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdle)

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migrating ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Begin records the start of a new run and returns its ID, to be passed to
// Finish once the run completes or fails.
func (l *Ledger) Begin(ctx context.Context, input, output string, hosts []string) (string, error) {
	id := uuid.New().String()
	run := Run{
		ID:        id,
		StartedAt: time.Now(),
		Input:     input,
		Output:    output,
		Hosts:     joinHosts(hosts),
	}
	if err := l.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// Finish records the outcome of a run previously opened with Begin.
func (l *Ledger) Finish(ctx context.Context, id string, chunkCount int, runErr error) error {
	updates := map[string]any{
		"finished_at": time.Now(),
		"chunk_count": chunkCount,
		"succeeded":   runErr == nil,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if err := l.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("recording run outcome: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first, capped at limit.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	if err := l.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying database connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func joinHosts(hosts []string) string {
	out := ""
	for i, h := range hosts {
		if i > 0 {
			out += ","
		}
		out += h
	}
	return out
}

func newGormLogger(logger *slog.Logger, level string) gormlogger.Interface {
	gormLevel := gormlogger.Warn
	switch level {
	case "silent":
		gormLevel = gormlogger.Silent
	case "error":
		gormLevel = gormlogger.Error
	case "info":
		gormLevel = gormlogger.Info
	}
	return gormlogger.New(&slogWriter{logger: logger}, gormlogger.Config{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLevel,
	})
}

// slogWriter adapts gorm's log.Writer expectations to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Debug(fmt.Sprintf(format, args...))
}
