package store

import "gorm.io/gorm"

// configureConnection sets the fixed connection configuration
// described in §4.4, idempotently on every open: foreign-key
// enforcement, write-ahead-log journaling, and normal synchronous
// durability. Values taken from original_source/src/lib.rs::connect,
// applied the way bsky.watch/labeler/server/sqlite_util.go applies
// PRAGMA statements through gorm's raw Exec.
func configureConnection(db *gorm.DB) error {
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return err
		}
	}
	return nil
}
