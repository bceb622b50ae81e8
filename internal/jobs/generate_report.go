// Package jobs contains background job handlers.
//
// This file implements the generate_report job: render a finished report
// into a downloadable file and stamp its URL onto the report.
package jobs

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/clerkly/internal/cache"
	"github.com/DukeRupert/clerkly/internal/document"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/DukeRupert/clerkly/internal/save"
	"github.com/DukeRupert/clerkly/internal/storage"
	"github.com/DukeRupert/clerkly/internal/worker"
	"github.com/google/uuid"
)

// fileURLTTL is how long presigned report file URLs stay valid.
const fileURLTTL = 24 * time.Hour

// GenerateReportHandler processes jobs that render a report into a stored
// file. Only the JSON export format is implemented; PDF rendering is handled
// by a separate document service.
type GenerateReportHandler struct {
	queries *repository.Queries
	storage storage.Storage
	codec   *document.Codec
	guard   *save.Guard
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewGenerateReportHandler creates a new handler for report generation jobs.
func NewGenerateReportHandler(
	queries *repository.Queries,
	store storage.Storage,
	codec *document.Codec,
	guard *save.Guard,
	c *cache.Cache,
	logger *slog.Logger,
) *GenerateReportHandler {
	return &GenerateReportHandler{
		queries: queries,
		storage: store,
		codec:   codec,
		guard:   guard,
		cache:   c,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *GenerateReportHandler) Type() string {
	return worker.JobTypeGenerateReport
}

// reportExport is the file layout of a generated report.
type reportExport struct {
	ReportID    string             `json:"reportId"`
	Address     string             `json:"address"`
	Status      string             `json:"status"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Document    *document.Document `json:"document"`
}

// Handle executes the report generation job.
func (h *GenerateReportHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	if p.Format != "" && p.Format != "json" {
		return worker.NewPermanentError(fmt.Errorf("unsupported format: %s", p.Format))
	}

	h.logger.Info("Generating report file", "report_id", p.ReportID)

	row, err := h.queries.GetReportRow(ctx, p.ReportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("report not found: %w", err))
		}
		return fmt.Errorf("fetch report: %w", err)
	}

	property, err := h.queries.GetProperty(ctx, row.PropertyID)
	if err != nil {
		return fmt.Errorf("fetch property: %w", err)
	}
	addr := domain.Property{
		AddressLine1: property.AddressLine1,
		AddressLine2: property.AddressLine2.String,
		City:         property.City,
		Postcode:     property.Postcode,
	}

	export := reportExport{
		ReportID:    row.ID.String(),
		Address:     addr.DisplayAddress(),
		Status:      row.Status,
		GeneratedAt: time.Now(),
		Document:    h.codec.Parse(rawDocument(row)),
	}
	rendered, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return worker.NewPermanentError(fmt.Errorf("render report: %w", err))
	}

	key := storage.ReportFileKey(row.ID, "json")
	if err := h.storage.Put(ctx, key, bytes.NewReader(rendered), "application/json"); err != nil {
		return fmt.Errorf("store report file: %w", err)
	}

	url, err := h.storage.URL(ctx, key, fileURLTTL)
	if err != nil {
		return fmt.Errorf("resolve file url: %w", err)
	}

	if err := h.stampFileURL(ctx, row.ID, url); err != nil {
		return err
	}

	h.cache.Update(row.ID, cache.ReportPatch{FileURL: &url})
	h.logger.Info("Report file generated", "report_id", row.ID, "key", key)
	return nil
}

// stampFileURL writes the generated file's URL into the report document under
// the save guard so it cannot race a concurrent save.
func (h *GenerateReportHandler) stampFileURL(ctx context.Context, reportID uuid.UUID, url string) error {
	if !h.guard.Begin(reportID) {
		return fmt.Errorf("save in flight for report %s", reportID)
	}
	defer h.guard.End(reportID)

	row, err := h.queries.GetReportRow(ctx, reportID)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}

	doc := h.codec.Parse(rawDocument(row))
	doc.FileURL = url
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
