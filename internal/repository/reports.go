package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ReportRow is the persisted report row. The report_info column carries the
// whole room/component tree as a single JSON document; everything else is
// row-level metadata.
type ReportRow struct {
	ID           uuid.UUID
	PropertyID   uuid.UUID
	MainRoomID   uuid.UUID
	MainRoomType string
	Status       string
	ReportInfo   pqtype.NullRawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  sql.NullTime
}

const getReportRow = `
SELECT id, property_id, main_room_id, main_room_type, status, report_info, created_at, updated_at, completed_at
FROM reports
WHERE id = $1
`

// GetReportRow fetches a report row by ID.
func (q *Queries) GetReportRow(ctx context.Context, id uuid.UUID) (ReportRow, error) {
	var row ReportRow
	err := q.db.QueryRowContext(ctx, getReportRow, id).Scan(
		&row.ID,
		&row.PropertyID,
		&row.MainRoomID,
		&row.MainRoomType,
		&row.Status,
		&row.ReportInfo,
		&row.CreatedAt,
		&row.UpdatedAt,
		&row.CompletedAt,
	)
	return row, err
}

const listReportRowsByProperty = `
SELECT id, property_id, main_room_id, main_room_type, status, report_info, created_at, updated_at, completed_at
FROM reports
WHERE property_id = $1
ORDER BY created_at DESC
`

// ListReportRowsByProperty fetches all report rows for a property, newest
// first.
func (q *Queries) ListReportRowsByProperty(ctx context.Context, propertyID uuid.UUID) ([]ReportRow, error) {
	rows, err := q.db.QueryContext(ctx, listReportRowsByProperty, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(
			&row.ID,
			&row.PropertyID,
			&row.MainRoomID,
			&row.MainRoomType,
			&row.Status,
			&row.ReportInfo,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const createReportRow = `
INSERT INTO reports (id, property_id, main_room_id, main_room_type, status, report_info, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
`

// CreateReportRowParams are the fields seeded at report creation.
type CreateReportRowParams struct {
	ID           uuid.UUID
	PropertyID   uuid.UUID
	MainRoomID   uuid.UUID
	MainRoomType string
	Status       string
	ReportInfo   json.RawMessage
	CreatedAt    time.Time
}

// CreateReportRow inserts a new report row with its seeded document.
func (q *Queries) CreateReportRow(ctx context.Context, params CreateReportRowParams) error {
	_, err := q.db.ExecContext(ctx, createReportRow,
		params.ID,
		params.PropertyID,
		params.MainRoomID,
		params.MainRoomType,
		params.Status,
		[]byte(params.ReportInfo),
		params.CreatedAt,
	)
	return err
}

const updateReportRow = `
UPDATE reports
SET status = $2,
    report_info = $3,
    updated_at = $4,
    completed_at = $5
WHERE id = $1
`

// UpdateReportRowParams is the full field set of the single atomic update the
// save pipeline issues.
type UpdateReportRowParams struct {
	ID          uuid.UUID
	Status      string
	ReportInfo  json.RawMessage
	UpdatedAt   time.Time
	CompletedAt sql.NullTime
}

// UpdateReportRow writes status, timestamps, and the merged document in one
// statement. Row-level atomicity of this call is what makes the pipeline's
// write phase all-or-nothing.
func (q *Queries) UpdateReportRow(ctx context.Context, params UpdateReportRowParams) error {
	result, err := q.db.ExecContext(ctx, updateReportRow,
		params.ID,
		params.Status,
		[]byte(params.ReportInfo),
		params.UpdatedAt,
		params.CompletedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const deleteReportRow = `
DELETE FROM reports
WHERE id = $1
`

// DeleteReportRow removes a report row. Image records cascade via the
// schema's foreign key.
func (q *Queries) DeleteReportRow(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteReportRow, id)
	return err
}
