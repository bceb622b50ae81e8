package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// LocalStorage Implementation
// =============================================================================

// LocalStorage stores files on the local filesystem. Development only; URLs
// are permanent and the expires argument is ignored.
type LocalStorage struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

// NewLocalStorage creates a LocalStorage rooted at cfg.BasePath, creating
// the directory if needed.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: cfg.BasePath,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger,
	}, nil
}

// Put stores data at the specified key.
func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	path, err := s.resolve(key)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		os.Remove(path)
		return &StorageError{Op: "Put", Key: key, Err: err}
	}
	return nil
}

// Get retrieves the object at the specified key.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, &StorageError{Op: "Get", Key: key, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StorageError{Op: "Get", Key: key, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "Get", Key: key, Err: err}
	}
	return f, nil
}

// Delete removes the object at the specified key. Missing objects are not
// an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return &StorageError{Op: "Delete", Key: key, Err: err}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "Delete", Key: key, Err: err}
	}
	return nil
}

// URL returns the permanent public URL for a key.
func (s *LocalStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", &StorageError{Op: "URL", Key: key, Err: err}
	}
	return s.baseURL + "/" + key, nil
}

// Exists checks whether an object exists at the specified key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, &StorageError{Op: "Exists", Key: key, Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "Exists", Key: key, Err: err}
	}
	return true, nil
}

// resolve maps a key onto the base path, rejecting traversal attempts.
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}
