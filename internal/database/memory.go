package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenInMemory returns a migrated private SQLite database. Each connection to
// ":memory:" is a separate database, so the pool is pinned to one connection.
func OpenInMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on&_txlock=immediate"), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
