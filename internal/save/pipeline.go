// Package save implements the report save pipeline.
//
// A save must appear atomic to the UI even though it is built from multiple
// underlying calls. The pipeline achieves that by reading the persisted
// document once, folding every room into one in-memory working copy, and
// issuing exactly one row update: there is no step that commits rooms 1..k
// and fails on room k+1.
package save

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/DukeRupert/clerkly/internal/cache"
	"github.com/DukeRupert/clerkly/internal/document"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/metrics"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is how many rooms the batched variant prepares
// concurrently. Preparation is in-memory only; the persisted write is always
// a single call regardless of variant.
const DefaultBatchSize = 3

// =============================================================================
// Store contract
// =============================================================================

// Store is the slice of the repository the pipeline needs: one row read, one
// row write, and the read-only image records collaborator.
type Store interface {
	GetReportRow(ctx context.Context, id uuid.UUID) (repository.ReportRow, error)
	UpdateReportRow(ctx context.Context, params repository.UpdateReportRowParams) error
	ListImagesByReport(ctx context.Context, reportID uuid.UUID) ([]repository.ReportImageRow, error)
}

// =============================================================================
// Progress
// =============================================================================

// Progress reports how far a save has advanced.
type Progress struct {
	Stage   string
	Percent int
}

// Progress stages, in order.
const (
	StageStarted  = "started"
	StagePrepared = "prepared"
	StageWritten  = "written"
	StageFinished = "finished"
)

// Options control a single save invocation.
type Options struct {
	// UpdateStatus applies the lifecycle rule: draft moves to in_progress,
	// and any image presence escalates to pending_review.
	UpdateStatus bool

	// MarkCompleted forces the status to completed and stamps a completion
	// time, bypassing the escalation rule.
	MarkCompleted bool

	// OnProgress, when set, is invoked at least at start, preparation
	// complete, write complete, and finished.
	OnProgress func(Progress)
}

func (o Options) report(stage string, percent int) {
	if o.OnProgress != nil {
		o.OnProgress(Progress{Stage: stage, Percent: percent})
	}
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline orchestrates report saves. Both variants share one contract; the
// batched variant only parallelizes in-memory preparation.
type Pipeline struct {
	store     Store
	cache     *cache.Cache
	guard     *Guard
	codec     *document.Codec
	logger    *slog.Logger
	batchSize int
}

// NewPipeline creates a save pipeline.
func NewPipeline(store Store, c *cache.Cache, guard *Guard, codec *document.Codec, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		cache:     c,
		guard:     guard,
		codec:     codec,
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

// SetBatchSize overrides how many rooms the batched variant prepares
// concurrently. Values below 1 are ignored.
func (p *Pipeline) SetBatchSize(n int) {
	if n >= 1 {
		p.batchSize = n
	}
}

// Save persists the report's full room tree with the baseline sequential
// preparation. It returns false with a structured error on failure; the
// pipeline never retries on its own.
func (p *Pipeline) Save(ctx context.Context, report *domain.Report, opts Options) (bool, error) {
	return p.run(ctx, report, opts, "sequential", p.prepareSequential)
}

// SaveBatched persists the report like Save but prepares rooms in concurrent
// batches. Useful for reports with many rooms; the atomicity guarantee is
// identical because the write phase is unchanged.
func (p *Pipeline) SaveBatched(ctx context.Context, report *domain.Report, opts Options) (bool, error) {
	return p.run(ctx, report, opts, "batched", p.prepareBatched)
}

type prepareFunc func(ctx context.Context, doc *document.Document, report *domain.Report) error

func (p *Pipeline) run(ctx context.Context, report *domain.Report, opts Options, variant string, prepare prepareFunc) (bool, error) {
	const op = "report.save"

	if !p.guard.Begin(report.ID) {
		metrics.GuardRejections.Inc()
		metrics.SavesTotal.WithLabelValues(variant, "rejected").Inc()
		return false, domain.Conflict(op, "a save for this report is already in flight")
	}
	defer p.guard.End(report.ID)

	start := time.Now()
	opts.report(StageStarted, 0)

	// Read the current persisted state exactly once. Every merge below works
	// against this one document.
	row, err := p.store.GetReportRow(ctx, report.ID)
	if err != nil {
		return false, p.fail(variant, "fetch_failed", report.ID, domain.FetchFailed(err, op))
	}

	// Fold the latest image records into the in-memory rooms before the
	// escalation rule looks for images.
	imageRows, err := p.store.ListImagesByReport(ctx, report.ID)
	if err != nil {
		return false, p.fail(variant, "fetch_failed", report.ID, domain.FetchFailed(err, op))
	}
	FoldImages(report, imageRows, nil)

	current := domain.ReportStatus(row.Status)
	target := domain.NextStatus(current, opts.UpdateStatus, opts.MarkCompleted, report.HasImages())

	doc := p.codec.Parse(rawDocument(row))
	applyMetadata(doc, report)
	if err := prepare(ctx, doc, report); err != nil {
		return false, p.fail(variant, "invalid_result", report.ID, domain.InvalidResult(err, op, "failed to prepare report document"))
	}
	serialized, err := p.codec.Serialize(doc)
	if err != nil {
		return false, p.fail(variant, "invalid_result", report.ID, domain.InvalidResult(err, op, "failed to serialize report document"))
	}
	opts.report(StagePrepared, 40)

	now := time.Now()
	completedAt := row.CompletedAt
	if opts.MarkCompleted && !completedAt.Valid {
		completedAt = sql.NullTime{Time: now, Valid: true}
	}

	// The single atomic write. Issuing it is the point of no return.
	err = p.store.UpdateReportRow(ctx, repository.UpdateReportRowParams{
		ID:          report.ID,
		Status:      target.String(),
		ReportInfo:  serialized,
		UpdatedAt:   now,
		CompletedAt: completedAt,
	})
	if err != nil {
		return false, p.fail(variant, "write_failed", report.ID, domain.WriteFailed(err, op))
	}
	opts.report(StageWritten, 80)

	// Reflect the new state in the caller's report and the cache. The cache
	// is only ever updated after the write has succeeded.
	report.Status = target
	report.UpdatedAt = now
	if completedAt.Valid {
		t := completedAt.Time
		report.CompletedAt = &t
	}
	p.cache.Update(report.ID, cache.ReportPatch{
		Status:      &target,
		Rooms:       &report.Rooms,
		UpdatedAt:   &now,
		CompletedAt: report.CompletedAt,
	})

	metrics.SavesTotal.WithLabelValues(variant, "success").Inc()
	metrics.SaveDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds())
	opts.report(StageFinished, 100)
	return true, nil
}

// fail invalidates the cache for the report so the next read refetches
// ground truth, records the outcome, and hands the structured error back.
func (p *Pipeline) fail(variant, outcome string, reportID uuid.UUID, err *domain.Error) *domain.Error {
	p.cache.Invalidate(reportID)
	metrics.SavesTotal.WithLabelValues(variant, outcome).Inc()
	p.logger.Error("report save failed",
		"report_id", reportID,
		"outcome", outcome,
		"error", err,
	)
	return err
}

// =============================================================================
// Preparation variants
// =============================================================================

// prepareSequential converts and folds rooms one at a time, in order.
func (p *Pipeline) prepareSequential(_ context.Context, doc *document.Document, report *domain.Report) error {
	for i := range report.Rooms {
		document.FoldWireRoom(doc, report.MainRoomID, document.RoomToWire(&report.Rooms[i]))
	}
	return nil
}

// prepareBatched converts rooms to wire form in concurrent batches, then
// folds the results sequentially so every merge still happens against the
// same working copy. Concurrency speeds up preparation only; it never
// touches the write.
func (p *Pipeline) prepareBatched(ctx context.Context, doc *document.Document, report *domain.Report) error {
	entries := make([]document.Room, len(report.Rooms))

	for start := 0; start < len(report.Rooms); start += p.batchSize {
		end := start + p.batchSize
		if end > len(report.Rooms) {
			end = len(report.Rooms)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				entries[i] = document.RoomToWire(&report.Rooms[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for i := range entries {
		document.FoldWireRoom(doc, report.MainRoomID, entries[i])
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// rawDocument extracts the report_info value in the shape the codec accepts.
func rawDocument(row repository.ReportRow) any {
	if !row.ReportInfo.Valid {
		return nil
	}
	return row.ReportInfo.RawMessage
}

// applyMetadata carries the report's metadata fields onto the document.
func applyMetadata(doc *document.Document, report *domain.Report) {
	doc.Clerk = report.Clerk
	doc.InventoryType = report.InventoryType
	doc.TenantPresent = report.TenantPresent
	doc.TenantName = report.TenantName
	doc.FileURL = report.FileURL
	doc.ReportType = report.ReportType
}

// FoldImages replaces each room's and component's image list with the image
// records the store currently holds. Rooms and components without records
// keep their in-memory lists, which may still hold transient data-URLs that
// have not been uploaded yet. resolveURL, when non-nil, maps a record to the
// URL the domain image should carry (e.g. resolving storage keys to public
// URLs); nil uses the record's stored URL.
func FoldImages(report *domain.Report, rows []repository.ReportImageRow, resolveURL func(repository.ReportImageRow) string) {
	if len(rows) == 0 {
		return
	}
	if resolveURL == nil {
		resolveURL = func(row repository.ReportImageRow) string { return row.URL }
	}

	roomImages := make(map[uuid.UUID][]domain.RoomImage)
	componentImages := make(map[uuid.UUID][]domain.ComponentImage)
	for _, row := range rows {
		analysis := parseAnalysis(row)
		if row.ComponentID.Valid {
			componentImages[row.ComponentID.UUID] = append(componentImages[row.ComponentID.UUID], domain.ComponentImage{
				ID:          row.ID,
				URL:         resolveURL(row),
				CapturedAt:  row.CreatedAt,
				Analysis:    analysis,
				AIProcessed: row.AIProcessed,
			})
			continue
		}
		roomImages[row.RoomID] = append(roomImages[row.RoomID], domain.RoomImage{
			ID:          row.ID,
			URL:         resolveURL(row),
			CapturedAt:  row.CreatedAt,
			Analysis:    analysis,
			AIProcessed: row.AIProcessed,
		})
	}

	for i := range report.Rooms {
		room := &report.Rooms[i]
		if imgs, ok := roomImages[room.ID]; ok {
			room.Images = imgs
		}
		for j := range room.Components {
			component := &room.Components[j]
			if imgs, ok := componentImages[component.ID]; ok {
				component.Images = imgs
			}
		}
	}
}

func parseAnalysis(row repository.ReportImageRow) *domain.ImageAnalysis {
	if !row.Analysis.Valid || len(row.Analysis.RawMessage) == 0 {
		return nil
	}
	var a domain.ImageAnalysis
	if err := json.Unmarshal(row.Analysis.RawMessage, &a); err != nil {
		return nil
	}
	return a.Normalize()
}
