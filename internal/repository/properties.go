package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// PropertyRow is the persisted property row.
type PropertyRow struct {
	ID           uuid.UUID
	AddressLine1 string
	AddressLine2 sql.NullString
	City         string
	Postcode     string
	CreatedAt    time.Time
}

const getProperty = `
SELECT id, address_line1, address_line2, city, postcode, created_at
FROM properties
WHERE id = $1
`

// GetProperty fetches a property row by ID.
func (q *Queries) GetProperty(ctx context.Context, id uuid.UUID) (PropertyRow, error) {
	var row PropertyRow
	err := q.db.QueryRowContext(ctx, getProperty, id).Scan(
		&row.ID,
		&row.AddressLine1,
		&row.AddressLine2,
		&row.City,
		&row.Postcode,
		&row.CreatedAt,
	)
	return row, err
}

const createProperty = `
INSERT INTO properties (id, address_line1, address_line2, city, postcode, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

// CreatePropertyParams are the fields of a new property row.
type CreatePropertyParams struct {
	ID           uuid.UUID
	AddressLine1 string
	AddressLine2 sql.NullString
	City         string
	Postcode     string
	CreatedAt    time.Time
}

// CreateProperty inserts a property row.
func (q *Queries) CreateProperty(ctx context.Context, params CreatePropertyParams) error {
	_, err := q.db.ExecContext(ctx, createProperty,
		params.ID,
		params.AddressLine1,
		params.AddressLine2,
		params.City,
		params.Postcode,
		params.CreatedAt,
	)
	return err
}
