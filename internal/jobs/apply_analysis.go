// Package jobs contains background job handlers.
//
// This file implements the apply_analysis job: run an uploaded inspection
// photo through the AI provider and fold the annotation into the report
// document.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DukeRupert/clerkly/internal/ai"
	"github.com/DukeRupert/clerkly/internal/cache"
	"github.com/DukeRupert/clerkly/internal/document"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/DukeRupert/clerkly/internal/save"
	"github.com/DukeRupert/clerkly/internal/storage"
	"github.com/DukeRupert/clerkly/internal/worker"
	"github.com/sqlc-dev/pqtype"
)

// ApplyAnalysisHandler processes jobs that analyze a single inspection photo.
// It sends the image to the AI provider, stores the annotation on the image
// record, and folds it into the owning component in the report document.
type ApplyAnalysisHandler struct {
	queries    *repository.Queries
	aiProvider ai.AIProvider
	storage    storage.Storage
	codec      *document.Codec
	guard      *save.Guard
	cache      *cache.Cache
	logger     *slog.Logger
}

// NewApplyAnalysisHandler creates a new handler for image analysis jobs.
func NewApplyAnalysisHandler(
	queries *repository.Queries,
	aiProvider ai.AIProvider,
	store storage.Storage,
	codec *document.Codec,
	guard *save.Guard,
	c *cache.Cache,
	logger *slog.Logger,
) *ApplyAnalysisHandler {
	return &ApplyAnalysisHandler{
		queries:    queries,
		aiProvider: aiProvider,
		storage:    store,
		codec:      codec,
		guard:      guard,
		cache:      c,
		logger:     logger,
	}
}

// Type returns the job type identifier.
func (h *ApplyAnalysisHandler) Type() string {
	return worker.JobTypeApplyAnalysis
}

// Handle executes the image analysis job.
func (h *ApplyAnalysisHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.ApplyAnalysisPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	h.logger.Info("Analyzing image", "image_id", p.ImageID, "report_id", p.ReportID)

	img, err := h.queries.GetImage(ctx, p.ImageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("image not found: %w", err))
		}
		return fmt.Errorf("fetch image: %w", err)
	}

	// A retried job may find the image already annotated.
	if img.AIProcessed {
		h.logger.Info("Image already processed, skipping", "image_id", p.ImageID)
		return nil
	}
	if img.StorageKey == "" {
		return worker.NewPermanentError(fmt.Errorf("image has no stored object"))
	}

	data, err := h.readObject(ctx, img.StorageKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return worker.NewPermanentError(fmt.Errorf("stored object missing: %w", err))
		}
		return fmt.Errorf("read stored object: %w", err)
	}

	result, err := h.aiProvider.AnalyzeImage(ctx, ai.AnalyzeImageParams{
		ImageData: data,
		ImageID:   img.ID,
		ReportID:  img.ReportID,
	})
	if err != nil {
		if ai.IsRetryable(err) {
			return ai.WrapError("analyze image", err)
		}
		return worker.NewPermanentError(ai.WrapError("analyze image", err))
	}

	analysis := result.Analysis
	analysis.Normalize()
	raw, err := json.Marshal(&analysis)
	if err != nil {
		return worker.NewPermanentError(fmt.Errorf("marshal analysis: %w", err))
	}

	err = h.queries.MarkImageProcessed(ctx, img.ID, pqtype.NullRawMessage{
		RawMessage: raw,
		Valid:      true,
	})
	if err != nil {
		return fmt.Errorf("mark image processed: %w", err)
	}

	// Component-level photos also annotate their component inside the
	// persisted document.
	if img.ComponentID.Valid {
		if err := h.foldIntoDocument(ctx, img, &analysis); err != nil {
			return err
		}
	}

	h.cache.Invalidate(img.ReportID)

	h.logger.Info("Image analysis applied",
		"image_id", img.ID,
		"report_id", img.ReportID,
		"model", result.Usage.Model,
		"cost_cents", result.Usage.CostCents,
	)
	return nil
}

// foldIntoDocument performs the guard-serialized read-merge-write that stamps
// the annotation onto the component in the report document.
func (h *ApplyAnalysisHandler) foldIntoDocument(ctx context.Context, img repository.ReportImageRow, analysis *domain.ImageAnalysis) error {
	if !h.guard.Begin(img.ReportID) {
		// A save holds the latch; retry the job after backoff.
		return fmt.Errorf("save in flight for report %s", img.ReportID)
	}
	defer h.guard.End(img.ReportID)

	row, err := h.queries.GetReportRow(ctx, img.ReportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("report not found: %w", err))
		}
		return fmt.Errorf("fetch report: %w", err)
	}

	doc := h.codec.Parse(rawDocument(row))
	if !document.ApplyAnalysis(doc, img.ComponentID.UUID.String(), img.ID.String(), analysis) {
		// The component has not been saved into the document yet. The
		// annotation still lives on the image record and will surface on the
		// next full save.
		h.logger.Warn("component not in document, annotation kept on record only",
			"report_id", img.ReportID,
			"component_id", img.ComponentID.UUID,
		)
		return nil
	}

	serialized, err := h.codec.Serialize(doc)
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}

	err = h.queries.UpdateReportRow(ctx, repository.UpdateReportRowParams{
		ID:          row.ID,
		Status:      row.Status,
		ReportInfo:  serialized,
		UpdatedAt:   time.Now(),
		CompletedAt: row.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// readObject reads a stored object fully into memory.
func (h *ApplyAnalysisHandler) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := h.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// rawDocument extracts the report_info value in the shape the codec accepts.
func rawDocument(row repository.ReportRow) any {
	if !row.ReportInfo.Valid {
		return nil
	}
	return row.ReportInfo.RawMessage
}
