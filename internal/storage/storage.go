// Package storage provides file storage for report images and generated
// report files.
//
// Two implementations exist: LocalStorage for development and R2Storage
// (S3-compatible) for production. During a save the engine treats storage as
// read-only; it only resolves stored keys to public URLs when reconstituting
// image lists.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the file storage operations the engine needs.
type Storage interface {
	// Put stores data at the specified key, overwriting any existing object.
	Put(ctx context.Context, key string, data io.Reader, contentType string) error

	// Get retrieves the object at the specified key. The caller must close
	// the returned reader. Returns ErrNotFound if the object does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object at the specified key: a
	// permanent public URL when the provider has one, otherwise a presigned
	// URL valid for the given duration.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks whether an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string

	// BaseURL is the public URL prefix for accessing files.
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the bucket's public URL (custom domain). When empty,
	// presigned URLs are used for all access.
	PublicURL string

	// Region defaults to "auto"; R2 is globally distributed.
	Region string
}

// Provider identifiers.
const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// =============================================================================
// Key Generation Helpers
// =============================================================================

// RoomImageKey generates a storage key for a room-level photo.
// Format: reports/{reportID}/rooms/{roomID}/{uuid}.{ext}
func RoomImageKey(reportID, roomID uuid.UUID, filename string) string {
	return fmt.Sprintf("reports/%s/rooms/%s/%s%s", reportID, roomID, uuid.New(), filepath.Ext(filename))
}

// ComponentImageKey generates a storage key for a component photo.
// Format: reports/{reportID}/components/{componentID}/{uuid}.{ext}
func ComponentImageKey(reportID, componentID uuid.UUID, filename string) string {
	return fmt.Sprintf("reports/%s/components/%s/%s%s", reportID, componentID, uuid.New(), filepath.Ext(filename))
}

// ReportFileKey generates a storage key for a generated report file.
// Format: reports/{reportID}/files/{uuid}.{ext}
func ReportFileKey(reportID uuid.UUID, ext string) string {
	return fmt.Sprintf("reports/%s/files/%s.%s", reportID, uuid.New(), ext)
}
