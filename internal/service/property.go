// Package service contains the business logic layer.
//
// This file implements the property service. Properties are thin records
// here; reports are the real workload.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/DukeRupert/clerkly/internal/repository"
	"github.com/google/uuid"
)

// PropertyService defines the interface for property operations.
type PropertyService interface {
	// Create registers a property.
	// Returns domain.EINVALID for validation errors.
	Create(ctx context.Context, params domain.CreatePropertyParams) (*domain.Property, error)

	// Get retrieves a property by ID.
	// Returns domain.ENOTFOUND if the property does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Property, error)
}

// propertyService implements the PropertyService interface.
type propertyService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(queries *repository.Queries, logger *slog.Logger) PropertyService {
	return &propertyService{
		queries: queries,
		logger:  logger,
	}
}

// Create registers a property.
func (s *propertyService) Create(ctx context.Context, params domain.CreatePropertyParams) (*domain.Property, error) {
	const op = "property.create"

	if strings.TrimSpace(params.AddressLine1) == "" {
		return nil, domain.Invalid(op, "address is required")
	}
	if strings.TrimSpace(params.Postcode) == "" {
		return nil, domain.Invalid(op, "postcode is required")
	}

	property := &domain.Property{
		ID:           uuid.New(),
		AddressLine1: params.AddressLine1,
		AddressLine2: params.AddressLine2,
		City:         params.City,
		Postcode:     params.Postcode,
		CreatedAt:    time.Now(),
	}

	err := s.queries.CreateProperty(ctx, repository.CreatePropertyParams{
		ID:           property.ID,
		AddressLine1: property.AddressLine1,
		AddressLine2: toNullString(property.AddressLine2),
		City:         property.City,
		Postcode:     property.Postcode,
		CreatedAt:    property.CreatedAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create property")
	}

	s.logger.Info("property created", "property_id", property.ID)
	return property, nil
}

// Get retrieves a property by ID.
func (s *propertyService) Get(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	const op = "property.get"

	row, err := s.queries.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "property", id.String())
		}
		return nil, domain.FetchFailed(err, op)
	}
	return rowToProperty(row), nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
