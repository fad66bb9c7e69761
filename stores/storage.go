package stores

import (
	"context"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"paintbox/core"
	"paintbox/stores/aws"
	"paintbox/stores/filesystem"
	"paintbox/stores/memory"
	"paintbox/stores/postgres"
	"paintbox/stores/redis"
	"paintbox/stores/sqlite"
)

// GetStore selects the blob store backend from STORAGE_TYPE. Unknown or
// empty values fall back to the in-memory store.
func GetStore() core.BlobStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.BlobStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data" // Default path
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "paintbox.db" // Default filename
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
		if err != nil {
			db = 0
		}
		storageField["addr"] = addr
		storageField["db"] = db
		store = redis.NewStore(addr, os.Getenv("REDIS_PASSWORD"), db)
	case "postgres":
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			logrus.Fatal("DATABASE_URL environment variable must be set for postgres storage type")
		}
		store = postgres.NewStore(context.Background(), databaseURL)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
