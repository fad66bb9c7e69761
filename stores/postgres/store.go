package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"paintbox/core"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new postgres-backed store, verifying the connection
// and creating the blobs table when missing.
func NewStore(ctx context.Context, databaseURL string) *pgStore {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("failed to create postgres pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	tableStmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`
	if _, err := pool.Exec(ctx, tableStmt); err != nil {
		log.Fatalf("failed to create blobs table: %v", err)
	}

	return &pgStore{pool}
}

func (s *pgStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM blobs WHERE key = $1", key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrKeyNotFound
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to read blob from postgres")
		return nil, err
	}
	return data, nil
}

func (s *pgStore) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blobs (key, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		key, data, time.Now())
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to write blob to postgres")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	}).Debug("Blob written to postgres")
	return nil
}
