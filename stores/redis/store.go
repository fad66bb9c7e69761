package redis

import (
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"paintbox/core"
)

// keyPrefix namespaces every blob this app writes so a shared redis can
// host other tenants.
const keyPrefix = "paintbox:"

type redisStore struct {
	client *redis.Client
}

// NewStore creates a new redis-backed store and verifies the connection.
func NewStore(addr, password string, db int) *redisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("failed to connect to redis at %s: %v", addr, err)
	}
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrKeyNotFound
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to read blob from redis")
		return nil, err
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, data, 0).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to write blob to redis")
		return err
	}
	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	}).Debug("Blob written to redis")
	return nil
}
