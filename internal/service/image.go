// Package service contains the business logic layer.
//
// This file implements the image service: uploading inspection photos,
// recording them against a report, and queueing AI analysis.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/clerkly/internal/cache"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/DukeRupert/clerkly/internal/storage"
	"github.com/DukeRupert/clerkly/internal/worker"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// maxImageBytes caps uploads at 10 MB.
const maxImageBytes = 10 << 20

// =============================================================================
// Interface Definition
// =============================================================================

// ImageService defines the interface for inspection photo operations.
type ImageService interface {
	// Add uploads a photo, records it against a report, and queues AI
	// analysis when an analyzer is configured.
	// Returns domain.ENOTFOUND if the report does not exist.
	// Returns domain.EINVALID for unsupported or oversized uploads.
	Add(ctx context.Context, params AddImageParams) (*domain.ComponentImage, error)

	// Delete removes an image record and its stored object.
	// Returns domain.ENOTFOUND if the image does not exist.
	Delete(ctx context.Context, imageID uuid.UUID) error
}

// AddImageParams contains parameters for uploading a photo.
type AddImageParams struct {
	ReportID    uuid.UUID // Report the photo belongs to (required)
	RoomID      uuid.UUID // Room the photo belongs to (required)
	ComponentID uuid.UUID // Component within the room; uuid.Nil for room-level photos
	Data        []byte    // Raw image bytes (required)
	ContentType string    // MIME type (e.g. "image/jpeg")
	Filename    string    // Original filename, used for the extension only
}

// =============================================================================
// Implementation
// =============================================================================

// imageService implements the ImageService interface.
type imageService struct {
	queries *repository.Queries
	storage storage.Storage
	cache   *cache.Cache
	logger  *slog.Logger

	// analyze controls whether uploads queue an AI analysis job.
	analyze bool
}

// NewImageService creates a new ImageService. When analyze is false uploads
// are recorded without queueing analysis jobs.
func NewImageService(
	queries *repository.Queries,
	store storage.Storage,
	c *cache.Cache,
	logger *slog.Logger,
	analyze bool,
) ImageService {
	return &imageService{
		queries: queries,
		storage: store,
		cache:   c,
		logger:  logger,
		analyze: analyze,
	}
}

// Add uploads a photo and records it against a report.
func (s *imageService) Add(ctx context.Context, params AddImageParams) (*domain.ComponentImage, error) {
	const op = "image.add"

	if err := s.validateAddParams(params); err != nil {
		return nil, err
	}

	// Verify the report exists before writing anything.
	row, err := s.queries.GetReportRow(ctx, params.ReportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", params.ReportID.String())
		}
		return nil, domain.FetchFailed(err, op)
	}

	key := storage.RoomImageKey(row.ID, params.RoomID, params.Filename)
	componentID := uuid.NullUUID{}
	if params.ComponentID != uuid.Nil {
		key = storage.ComponentImageKey(row.ID, params.ComponentID, params.Filename)
		componentID = uuid.NullUUID{UUID: params.ComponentID, Valid: true}
	}

	if err := s.storage.Put(ctx, key, bytes.NewReader(params.Data), params.ContentType); err != nil {
		return nil, domain.Internal(err, op, "failed to store image")
	}

	url, err := s.storage.URL(ctx, key, imageURLTTL)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to resolve image url")
	}

	now := time.Now()
	imageID := uuid.New()
	err = s.queries.CreateImage(ctx, repository.CreateImageParams{
		ID:          imageID,
		ReportID:    row.ID,
		RoomID:      params.RoomID,
		ComponentID: componentID,
		URL:         url,
		StorageKey:  key,
		Analysis:    pqtype.NullRawMessage{},
		AIProcessed: false,
		CreatedAt:   now,
	})
	if err != nil {
		// Clean up the orphaned object; the record is the source of truth.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up stored image after record failure",
				"storage_key", key, "error", delErr)
		}
		return nil, domain.Internal(err, op, "failed to record image")
	}

	// The next read must refetch so the new image record gets folded in.
	s.cache.Invalidate(row.ID)

	if s.analyze {
		_, err := worker.EnqueueApplyAnalysis(ctx, s.queries, imageID, row.ID)
		if err != nil {
			// Analysis is best-effort; the upload itself already succeeded.
			s.logger.Error("failed to enqueue image analysis",
				"image_id", imageID, "report_id", row.ID, "error", err)
		}
	}

	s.logger.Info("image added",
		"image_id", imageID,
		"report_id", row.ID,
		"room_id", params.RoomID,
		"component", componentID.Valid,
	)

	return &domain.ComponentImage{
		ID:         imageID,
		URL:        url,
		CapturedAt: now,
	}, nil
}

// validateAddParams validates upload parameters.
func (s *imageService) validateAddParams(params AddImageParams) error {
	const op = "image.validate"

	if params.ReportID == uuid.Nil {
		return domain.Invalid(op, "report id is required")
	}
	if params.RoomID == uuid.Nil {
		return domain.Invalid(op, "room id is required")
	}
	if len(params.Data) == 0 {
		return domain.Invalid(op, "image data is required")
	}
	if len(params.Data) > maxImageBytes {
		return domain.Invalid(op, "image exceeds the 10MB size limit")
	}
	if params.ContentType != "" && !strings.HasPrefix(params.ContentType, "image/") {
		return domain.Invalid(op, "content type must be an image type")
	}
	return nil
}

// Delete removes an image record and its stored object.
func (s *imageService) Delete(ctx context.Context, imageID uuid.UUID) error {
	const op = "image.delete"

	row, err := s.queries.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "image", imageID.String())
		}
		return domain.FetchFailed(err, op)
	}

	if row.StorageKey != "" {
		if err := s.storage.Delete(ctx, row.StorageKey); err != nil {
			s.logger.Warn("failed to delete stored image",
				"image_id", imageID, "storage_key", row.StorageKey, "error", err)
		}
	}

	if err := s.queries.DeleteImage(ctx, imageID); err != nil {
		return domain.Internal(err, op, "failed to delete image record")
	}

	s.cache.Invalidate(row.ReportID)
	s.logger.Info("image deleted", "image_id", imageID, "report_id", row.ReportID)
	return nil
}
