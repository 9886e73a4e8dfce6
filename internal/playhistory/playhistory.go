/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playhistory is an optional, persisted log of played tracks:
// path, song string, when the track started/ended, and how many stream
// errors it accumulated. It is an external collaborator the
// orchestrator reports to through the Recorder interface, never a
// dependency of the streaming pipeline itself — a nil Recorder (or one
// backed by a NopRecorder) disables history entirely.
package playhistory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one played track's row.
type Entry struct {
	ID          uint `gorm:"primaryKey"`
	Path        string
	Song        string
	StartedAt   time.Time
	EndedAt     time.Time
	StreamErrs  int
	CreatedAt   time.Time
}

// Recorder is what the orchestrator calls through; satisfied by *Store
// or NopRecorder.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NopRecorder discards every entry; the default when history is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, e Entry) error { return nil }

// Store persists Entry rows via gorm, backend selected by DSN scheme.
type Store struct {
	db *gorm.DB
}

// Backend selects which gorm driver Open uses.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
	BackendSQLite   Backend = "sqlite"
)

// Open connects to the configured backend and migrates the Entry table.
func Open(backend Backend, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch backend {
	case BackendPostgres:
		dialector = postgres.Open(dsn)
	case BackendMySQL:
		dialector = mysql.Open(dsn)
	case BackendSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("playhistory: unknown backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("playhistory: open %s: %w", backend, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("playhistory: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record inserts one played-track entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	return s.db.WithContext(ctx).Create(&e).Error
}

// Recent returns the most recently started entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("playhistory: recent: %w", err)
	}
	return entries, nil
}
