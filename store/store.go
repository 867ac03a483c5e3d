// Package store implements the durable writer (§4.4): an append-only
// embedded relational table holding the full audit trail of decoded
// label assertions.
//
// Grounded on bsky.watch/labeler/server/server.go's gorm+sqlite
// bootstrap (newWithSQLite) and batch-insert idiom (ImportEntries,
// splitInBatches), adapted from "one row per current label state" to
// a plain append-only log.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bsky.watch/labelclient/label"
)

// Store is the durable writer described in §4.4. It is owned
// exclusively by the session orchestrator (§5) — the stream driver
// never touches it.
type Store struct {
	db *gorm.DB
}

// Open creates (if absent) and connects to the embedded sqlite file at
// path, applies the fixed connection configuration, and ensures the
// label_records schema exists.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger: gormlogger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to durable store: %w", err)
	}

	if err := configureConnection(db); err != nil {
		return nil, fmt.Errorf("configuring durable store connection: %w", err)
	}

	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, fmt.Errorf("creating durable store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(a label.Assertion, seenAt time.Time) Row {
	return Row{
		Src:             a.Key.Src,
		TargetURI:       a.Key.TargetURI,
		Val:             a.Key.Val,
		Seq:             a.Seq,
		CreateTimestamp: a.CreateTimestamp,
		ExpiryTimestamp: a.ExpiryTimestamp,
		Neg:             a.Neg,
		TargetCID:       a.TargetCID,
		Sig:             a.Sig,
		SeenAt:          seenAt.Format(time.RFC3339),
	}
}

// Insert appends one row for the given assertion (§4.4, §8 property
// 8). Inserts are unconditional: duplicate (src, target_uri, val, seq)
// tuples from a re-replay are accepted.
func (s *Store) Insert(ctx context.Context, a label.Assertion, seenAt time.Time) error {
	row := toRow(a, seenAt)
	return s.db.WithContext(ctx).Create(&row).Error
}

// InsertBatch appends rows for every assertion in as, in batches of at
// most 1000 rows, mirroring server.go's splitInBatches idiom.
func (s *Store) InsertBatch(ctx context.Context, as []label.Assertion, seenAt time.Time) error {
	const batchSize = 1000
	rows := make([]Row, len(as))
	for i, a := range as {
		rows[i] = toRow(a, seenAt)
	}
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.db.WithContext(ctx).Create(rows[start:end]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Count returns the total number of rows in the durable store (used by
// tests to check §8 property 8, append-only durability).
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Row{}).Count(&n).Error
	return n, err
}
