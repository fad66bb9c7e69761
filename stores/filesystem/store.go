package filesystem

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"paintbox/core"
)

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store rooted at basePath.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

// keyPath maps a storage key to a file under basePath. Keys are
// URL-escaped into flat file names, so a hostile key cannot traverse out
// of the base directory.
func (s *fsStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key must not be empty")
	}
	name := url.PathEscape(key)
	p := filepath.Join(s.basePath, name)

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absPath, absBase) {
		return "", fmt.Errorf("invalid storage key: access denied")
	}
	return p, nil
}

func (s *fsStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "path": path})

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrKeyNotFound
		}
		log.WithError(err).Error("Failed to read blob file")
		return nil, err
	}
	log.Debug("Blob read from file")
	return data, nil
}

func (s *fsStore) Set(_ context.Context, key string, data []byte) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "path": path, "data_length": len(data)})

	if err := os.WriteFile(path, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write blob file")
		return err
	}
	log.Debug("Blob written to file")
	return nil
}
