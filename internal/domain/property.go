package domain

import (
	"time"

	"github.com/google/uuid"
)

// Property is the dwelling a report describes. The engine only needs a
// snapshot of it for cache entries and report headers; property management
// itself lives elsewhere.
type Property struct {
	ID           uuid.UUID // Unique identifier
	AddressLine1 string    // Street address
	AddressLine2 string    // Optional second address line
	City         string    // City
	Postcode     string    // Postal code
	CreatedAt    time.Time // When the property was registered
}

// CreatePropertyParams contains parameters for registering a property.
type CreatePropertyParams struct {
	AddressLine1 string // Street address (required)
	AddressLine2 string // Optional second address line
	City         string // City
	Postcode     string // Postal code (required)
}

// DisplayAddress returns a single-line address for report headers.
func (p *Property) DisplayAddress() string {
	addr := p.AddressLine1
	if p.AddressLine2 != "" {
		addr += ", " + p.AddressLine2
	}
	if p.City != "" {
		addr += ", " + p.City
	}
	if p.Postcode != "" {
		addr += " " + p.Postcode
	}
	return addr
}
