package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeApplyAnalysis  = "apply_analysis"
	JobTypeGenerateReport = "generate_report"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// ApplyAnalysisPayload is the payload for image analysis jobs.
type ApplyAnalysisPayload struct {
	ImageID  uuid.UUID `json:"image_id"`
	ReportID uuid.UUID `json:"report_id"`
}

// GenerateReportPayload is the payload for report file generation jobs.
type GenerateReportPayload struct {
	ReportID uuid.UUID `json:"report_id"`
	Format   string    `json:"format"` // currently only "json"
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
// It returns the ID of the enqueued job.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (uuid.UUID, error) {
	// Marshal the payload to JSON
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	// Default parameters
	params := repository.EnqueueJobParams{
		ID:          uuid.New(),
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	// Apply options
	for _, opt := range opts {
		opt(&params)
	}

	// Enqueue the job
	if err := queries.EnqueueJob(ctx, params); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}

	return params.ID, nil
}

// EnqueueApplyAnalysis enqueues a job to analyze an uploaded inspection photo
// and fold the annotation into the report document.
func EnqueueApplyAnalysis(
	ctx context.Context,
	queries *repository.Queries,
	imageID uuid.UUID,
	reportID uuid.UUID,
	opts ...EnqueueOption,
) (uuid.UUID, error) {
	payload := ApplyAnalysisPayload{
		ImageID:  imageID,
		ReportID: reportID,
	}

	return EnqueueJob(ctx, queries, JobTypeApplyAnalysis, payload, opts...)
}

// EnqueueGenerateReport enqueues a job to generate a report file.
func EnqueueGenerateReport(
	ctx context.Context,
	queries *repository.Queries,
	reportID uuid.UUID,
	format string,
	opts ...EnqueueOption,
) (uuid.UUID, error) {
	payload := GenerateReportPayload{
		ReportID: reportID,
		Format:   format,
	}

	return EnqueueJob(ctx, queries, JobTypeGenerateReport, payload, opts...)
}
