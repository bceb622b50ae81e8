package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ReportImageRow is an image record owned by a report row. RoomID ties the
// image to a room; a non-null ComponentID narrows it to one component.
type ReportImageRow struct {
	ID          uuid.UUID
	ReportID    uuid.UUID
	RoomID      uuid.UUID
	ComponentID uuid.NullUUID
	URL         string
	StorageKey  string
	Analysis    pqtype.NullRawMessage
	AIProcessed bool
	CreatedAt   time.Time
}

const listImagesByReport = `
SELECT id, report_id, room_id, component_id, url, storage_key, analysis, ai_processed, created_at
FROM report_images
WHERE report_id = $1
ORDER BY created_at
`

// ListImagesByReport fetches every image record owned by a report, oldest
// first so image lists keep capture order.
func (q *Queries) ListImagesByReport(ctx context.Context, reportID uuid.UUID) ([]ReportImageRow, error) {
	rows, err := q.db.QueryContext(ctx, listImagesByReport, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportImageRow
	for rows.Next() {
		var row ReportImageRow
		if err := rows.Scan(
			&row.ID,
			&row.ReportID,
			&row.RoomID,
			&row.ComponentID,
			&row.URL,
			&row.StorageKey,
			&row.Analysis,
			&row.AIProcessed,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const createImage = `
INSERT INTO report_images (id, report_id, room_id, component_id, url, storage_key, analysis, ai_processed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// CreateImageParams are the fields of a new image record.
type CreateImageParams struct {
	ID          uuid.UUID
	ReportID    uuid.UUID
	RoomID      uuid.UUID
	ComponentID uuid.NullUUID
	URL         string
	StorageKey  string
	Analysis    pqtype.NullRawMessage
	AIProcessed bool
	CreatedAt   time.Time
}

// CreateImage inserts an image record. This path is separate from the save
// pipeline; the pipeline only reads image records.
func (q *Queries) CreateImage(ctx context.Context, params CreateImageParams) error {
	_, err := q.db.ExecContext(ctx, createImage,
		params.ID,
		params.ReportID,
		params.RoomID,
		params.ComponentID,
		params.URL,
		params.StorageKey,
		params.Analysis,
		params.AIProcessed,
		params.CreatedAt,
	)
	return err
}

const markImageProcessed = `
UPDATE report_images
SET analysis = $2,
    ai_processed = TRUE
WHERE id = $1
`

// MarkImageProcessed stores an AI annotation against an image record.
func (q *Queries) MarkImageProcessed(ctx context.Context, id uuid.UUID, analysis pqtype.NullRawMessage) error {
	_, err := q.db.ExecContext(ctx, markImageProcessed, id, analysis)
	return err
}

const deleteImagesByReport = `
DELETE FROM report_images
WHERE report_id = $1
`

// DeleteImagesByReport removes every image record owned by a report.
func (q *Queries) DeleteImagesByReport(ctx context.Context, reportID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteImagesByReport, reportID)
	return err
}

const deleteImage = `
DELETE FROM report_images
WHERE id = $1
`

// DeleteImage removes a single image record.
func (q *Queries) DeleteImage(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteImage, id)
	return err
}

const getImage = `
SELECT id, report_id, room_id, component_id, url, storage_key, analysis, ai_processed, created_at
FROM report_images
WHERE id = $1
`

// GetImage fetches a single image record by ID.
func (q *Queries) GetImage(ctx context.Context, id uuid.UUID) (ReportImageRow, error) {
	var row ReportImageRow
	err := q.db.QueryRowContext(ctx, getImage, id).Scan(
		&row.ID,
		&row.ReportID,
		&row.RoomID,
		&row.ComponentID,
		&row.URL,
		&row.StorageKey,
		&row.Analysis,
		&row.AIProcessed,
		&row.CreatedAt,
	)
	return row, err
}
