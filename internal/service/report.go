// Package service contains the business logic layer.
//
// This file implements the report service: the client-facing surface of the
// persistence engine. Every mutation funnels through the save pipeline or a
// guard-serialized read-merge-write; reads go through the report cache.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
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

// imageURLTTL is how long presigned image URLs handed to clients stay valid.
const imageURLTTL = time.Hour

// =============================================================================
// Interface Definition
// =============================================================================

// ReportService defines the interface for report-related operations.
//
// This interface enables:
// - Mocking in unit tests
// - Clear contract definition for handlers
type ReportService interface {
	// Create creates a new report with a seeded document and main room.
	// Returns domain.EINVALID for validation errors.
	// Returns domain.ENOTFOUND if the property does not exist.
	Create(ctx context.Context, params domain.CreateReportParams) (*domain.Report, error)

	// Get retrieves a report with its full room tree and property snapshot,
	// serving from the cache when a fresh entry exists.
	// Returns domain.ENOTFOUND if the report does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Report, *domain.Property, error)

	// List retrieves all reports for a property, newest first. Room trees are
	// reconstructed; image records are not folded in on list views.
	List(ctx context.Context, propertyID uuid.UUID) ([]*domain.Report, error)

	// Save persists the report's full room tree. The batched preparation
	// variant is used automatically for reports with many rooms.
	// Returns domain.ECONFLICT when a save for the report is already running.
	Save(ctx context.Context, report *domain.Report) (bool, error)

	// Complete persists the report and finalizes it, stamping a completion
	// time on the first call.
	Complete(ctx context.Context, report *domain.Report) (bool, error)

	// UpdateRoom folds a partial update for one room into the persisted
	// document and returns the room's new state.
	// Returns domain.ECONFLICT when a save for the report is already running.
	// Returns domain.ENOTFOUND if the report does not exist.
	UpdateRoom(ctx context.Context, reportID, roomID uuid.UUID, upd domain.RoomUpdate) (*domain.Room, error)

	// Delete removes a report, its image records, and its stored files.
	// Returns domain.ENOTFOUND if the report does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

// reportService implements the ReportService interface.
type reportService struct {
	queries  *repository.Queries
	pipeline *save.Pipeline
	guard    *save.Guard
	cache    *cache.Cache
	codec    *document.Codec
	storage  storage.Storage
	logger   *slog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	queries *repository.Queries,
	pipeline *save.Pipeline,
	guard *save.Guard,
	c *cache.Cache,
	codec *document.Codec,
	store storage.Storage,
	logger *slog.Logger,
) ReportService {
	return &reportService{
		queries:  queries,
		pipeline: pipeline,
		guard:    guard,
		cache:    c,
		codec:    codec,
		storage:  store,
		logger:   logger,
	}
}

// =============================================================================
// Create
// =============================================================================

// Create creates a new report with a seeded document and main room.
func (s *reportService) Create(ctx context.Context, params domain.CreateReportParams) (*domain.Report, error) {
	const op = "report.create"

	if err := s.validateCreateParams(params); err != nil {
		return nil, err
	}

	// Verify the property exists before anchoring a report to it.
	if _, err := s.queries.GetProperty(ctx, params.PropertyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "property", params.PropertyID.String())
		}
		return nil, domain.Internal(err, op, "failed to verify property")
	}

	now := time.Now()
	report := &domain.Report{
		ID:            uuid.New(),
		PropertyID:    params.PropertyID,
		MainRoomID:    uuid.New(),
		Status:        domain.ReportStatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
		Clerk:         params.Clerk,
		InventoryType: params.InventoryType,
		TenantPresent: params.TenantPresent,
		TenantName:    params.TenantName,
		ReportType:    params.ReportType,
	}
	report.Rooms = []domain.Room{
		domain.NewRoom(report.MainRoomID, "", params.MainRoomType, 1),
	}

	// Seed the persisted document from the initial state so the first read
	// does not have to special-case an empty report_info.
	seeded, err := s.codec.Serialize(document.FromReport(report))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to seed report document")
	}

	err = s.queries.CreateReportRow(ctx, repository.CreateReportRowParams{
		ID:           report.ID,
		PropertyID:   report.PropertyID,
		MainRoomID:   report.MainRoomID,
		MainRoomType: params.MainRoomType,
		Status:       report.Status.String(),
		ReportInfo:   seeded,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create report")
	}

	s.logger.Info("report created",
		"report_id", report.ID,
		"property_id", report.PropertyID,
		"main_room_type", params.MainRoomType,
	)
	return report, nil
}

// validateCreateParams validates report creation parameters.
func (s *reportService) validateCreateParams(params domain.CreateReportParams) error {
	const op = "report.validate"

	if params.PropertyID == uuid.Nil {
		return domain.Invalid(op, "property id is required")
	}
	if strings.TrimSpace(params.MainRoomType) == "" {
		return domain.Invalid(op, "main room type is required")
	}
	if len(params.Clerk) > 200 {
		return domain.Invalid(op, "clerk name must be 200 characters or less")
	}
	return nil
}

// =============================================================================
// Get / List
// =============================================================================

// Get retrieves a report with its full room tree and property snapshot.
func (s *reportService) Get(ctx context.Context, id uuid.UUID) (*domain.Report, *domain.Property, error) {
	const op = "report.get"

	if report, property, ok := s.cache.Get(id); ok {
		return report, property, nil
	}

	row, err := s.queries.GetReportRow(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.NotFound(op, "report", id.String())
		}
		return nil, nil, domain.FetchFailed(err, op)
	}

	report := s.rowToReport(row)

	imageRows, err := s.queries.ListImagesByReport(ctx, id)
	if err != nil {
		return nil, nil, domain.FetchFailed(err, op)
	}
	save.FoldImages(report, imageRows, s.resolveImageURL(ctx))

	propertyRow, err := s.queries.GetProperty(ctx, row.PropertyID)
	if err != nil {
		return nil, nil, domain.FetchFailed(err, op)
	}
	property := rowToProperty(propertyRow)

	s.cache.Set(id, report, property)
	return report, property, nil
}

// List retrieves all reports for a property, newest first.
func (s *reportService) List(ctx context.Context, propertyID uuid.UUID) ([]*domain.Report, error) {
	const op = "report.list"

	rows, err := s.queries.ListReportRowsByProperty(ctx, propertyID)
	if err != nil {
		return nil, domain.FetchFailed(err, op)
	}

	reports := make([]*domain.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, s.rowToReport(row))
	}
	return reports, nil
}

// =============================================================================
// Save / Complete
// =============================================================================

// Save persists the report's full room tree with status tracking.
func (s *reportService) Save(ctx context.Context, report *domain.Report) (bool, error) {
	opts := save.Options{UpdateStatus: true}
	if len(report.Rooms) > save.DefaultBatchSize {
		return s.pipeline.SaveBatched(ctx, report, opts)
	}
	return s.pipeline.Save(ctx, report, opts)
}

// Complete persists the report and finalizes it. Completion also queues
// generation of the report file; the document's fileUrl is stamped when the
// job finishes.
func (s *reportService) Complete(ctx context.Context, report *domain.Report) (bool, error) {
	ok, err := s.pipeline.Save(ctx, report, save.Options{MarkCompleted: true})
	if !ok {
		return ok, err
	}

	if _, err := worker.EnqueueGenerateReport(ctx, s.queries, report.ID, "json"); err != nil {
		// The report is completed either way; completing again re-queues the
		// file generation.
		s.logger.Error("failed to queue report file generation",
			"report_id", report.ID,
			"error", err,
		)
	}
	return ok, nil
}

// =============================================================================
// UpdateRoom
// =============================================================================

// UpdateRoom folds a partial update for one room into the persisted document.
//
// This is a guard-serialized read-merge-write: it takes the same per-report
// latch as a full save, so a room update can never interleave with a running
// save and silently lose fields.
func (s *reportService) UpdateRoom(ctx context.Context, reportID, roomID uuid.UUID, upd domain.RoomUpdate) (*domain.Room, error) {
	const op = "report.update_room"

	if roomID == uuid.Nil {
		return nil, domain.Invalid(op, "room id is required")
	}

	if !s.guard.Begin(reportID) {
		return nil, domain.Conflict(op, "a save for this report is already in flight")
	}
	defer s.guard.End(reportID)

	row, err := s.queries.GetReportRow(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", reportID.String())
		}
		return nil, domain.FetchFailed(err, op)
	}

	doc := s.codec.Parse(rawDocument(row))
	document.MergeRoomUpdate(doc, row.MainRoomID, roomID, upd, s.roomMeta(reportID, roomID, upd))

	serialized, err := s.codec.Serialize(doc)
	if err != nil {
		s.cache.Invalidate(reportID)
		return nil, domain.InvalidResult(err, op, "failed to serialize report document")
	}

	// Status is untouched here; lifecycle transitions only happen through the
	// save pipeline.
	now := time.Now()
	err = s.queries.UpdateReportRow(ctx, repository.UpdateReportRowParams{
		ID:          reportID,
		Status:      row.Status,
		ReportInfo:  serialized,
		UpdatedAt:   now,
		CompletedAt: row.CompletedAt,
	})
	if err != nil {
		s.cache.Invalidate(reportID)
		return nil, domain.WriteFailed(err, op)
	}

	rooms := document.ToRooms(doc, row.MainRoomID, row.MainRoomType)
	s.cache.Update(reportID, cache.ReportPatch{
		Rooms:     &rooms,
		UpdatedAt: &now,
	})

	for i := range rooms {
		if rooms[i].ID == roomID {
			return &rooms[i], nil
		}
	}
	// The main room is addressed by the anchor ID even when the document has
	// never been written.
	return nil, domain.NotFound(op, "room", roomID.String())
}

// roomMeta resolves the name and type to use if the merge has to synthesize
// a new document entry for the room. The cached report is the best source;
// failing that, the update's own name is used and the type stays empty.
func (s *reportService) roomMeta(reportID, roomID uuid.UUID, upd domain.RoomUpdate) document.RoomMeta {
	if report, _, ok := s.cache.Get(reportID); ok {
		if room := report.Room(roomID); room != nil {
			return document.RoomMeta{Name: room.Name, Type: room.Type}
		}
	}
	var meta document.RoomMeta
	if upd.Name != nil {
		meta.Name = *upd.Name
	}
	return meta
}

// =============================================================================
// Delete
// =============================================================================

// Delete removes a report, its image records, and its stored files.
func (s *reportService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "report.delete"

	if _, err := s.queries.GetReportRow(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "report", id.String())
		}
		return domain.FetchFailed(err, op)
	}

	// Stored objects are removed best-effort before their records; a leaked
	// object is recoverable, a dangling record is not.
	imageRows, err := s.queries.ListImagesByReport(ctx, id)
	if err != nil {
		return domain.FetchFailed(err, op)
	}
	for _, row := range imageRows {
		if row.StorageKey == "" {
			continue
		}
		if err := s.storage.Delete(ctx, row.StorageKey); err != nil {
			s.logger.Warn("failed to delete stored image",
				"report_id", id,
				"storage_key", row.StorageKey,
				"error", err,
			)
		}
	}

	if err := s.queries.DeleteImagesByReport(ctx, id); err != nil {
		return domain.Internal(err, op, "failed to delete image records")
	}
	if err := s.queries.DeleteReportRow(ctx, id); err != nil {
		return domain.Internal(err, op, "failed to delete report")
	}

	s.cache.Invalidate(id)
	s.logger.Info("report deleted", "report_id", id)
	return nil
}

// =============================================================================
// Conversions
// =============================================================================

// rowToReport reconstructs a full domain report from a persisted row.
func (s *reportService) rowToReport(row repository.ReportRow) *domain.Report {
	doc := s.codec.Parse(rawDocument(row))

	report := &domain.Report{
		ID:            row.ID,
		PropertyID:    row.PropertyID,
		MainRoomID:    row.MainRoomID,
		Status:        domain.ReportStatus(row.Status),
		Rooms:         document.ToRooms(doc, row.MainRoomID, row.MainRoomType),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		Clerk:         doc.Clerk,
		InventoryType: doc.InventoryType,
		TenantPresent: doc.TenantPresent,
		TenantName:    doc.TenantName,
		FileURL:       doc.FileURL,
		ReportType:    doc.ReportType,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		report.CompletedAt = &t
	}
	return report
}

// resolveImageURL returns the URL an image record should surface to clients:
// the stored key resolved through storage when one exists, otherwise the
// record's own URL (which may be a transient data-URL).
func (s *reportService) resolveImageURL(ctx context.Context) func(repository.ReportImageRow) string {
	return func(row repository.ReportImageRow) string {
		if row.StorageKey == "" || domain.IsDataURL(row.URL) {
			return row.URL
		}
		url, err := s.storage.URL(ctx, row.StorageKey, imageURLTTL)
		if err != nil {
			s.logger.Warn("failed to resolve image url",
				"image_id", row.ID,
				"storage_key", row.StorageKey,
				"error", err,
			)
			return row.URL
		}
		return url
	}
}

func rowToProperty(row repository.PropertyRow) *domain.Property {
	return &domain.Property{
		ID:           row.ID,
		AddressLine1: row.AddressLine1,
		AddressLine2: row.AddressLine2.String,
		City:         row.City,
		Postcode:     row.Postcode,
		CreatedAt:    row.CreatedAt,
	}
}

// rawDocument extracts the report_info value in the shape the codec accepts.
func rawDocument(row repository.ReportRow) any {
	if !row.ReportInfo.Valid {
		return nil
	}
	return row.ReportInfo.RawMessage
}
