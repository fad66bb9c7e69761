package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"paintbox/core"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	tableStmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err = db.Exec(tableStmt); err != nil {
		log.Fatalf("failed to create blobs table: %v", err)
	}

	return &sqliteStore{db}
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	log := logrus.WithField("key", key)

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrKeyNotFound
		}
		log.WithError(err).Error("Failed to read blob")
		return nil, err
	}
	log.Debug("Blob read from sqlite")
	return data, nil
}

func (s *sqliteStore) Set(ctx context.Context, key string, data []byte) error {
	log := logrus.WithFields(logrus.Fields{"key": key, "data_length": len(data)})

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now())
	if err != nil {
		log.WithError(err).Error("Failed to write blob")
		return err
	}
	log.Debug("Blob written to sqlite")
	return nil
}
