// Package domain contains core business types and interfaces.
//
// This file defines the Room and RoomComponent domain types that make up
// the body of an inspection report.
package domain

import (
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Condition Rating
// =============================================================================

// ConditionRating grades the physical state of a component.
type ConditionRating string

const (
	ConditionExcellent        ConditionRating = "excellent"
	ConditionGood             ConditionRating = "good"
	ConditionFair             ConditionRating = "fair"
	ConditionPoor             ConditionRating = "poor"
	ConditionNeedsReplacement ConditionRating = "needs_replacement"
)

// String returns the string representation of the rating.
func (c ConditionRating) String() string {
	return string(c)
}

// IsValid returns true if the rating is a recognized value.
func (c ConditionRating) IsValid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair,
		ConditionPoor, ConditionNeedsReplacement:
		return true
	}
	return false
}

// OrDefault returns the rating itself when valid, otherwise ConditionFair.
// AI payloads and legacy documents are allowed to carry junk here; the
// engine's contract is to default rather than reject.
func (c ConditionRating) OrDefault() ConditionRating {
	if c.IsValid() {
		return c
	}
	return ConditionFair
}

// =============================================================================
// Condition Point
// =============================================================================

// ConditionPoint is a single observation about a component's condition.
//
// Older documents stored points as bare strings; newer ones store objects
// with a label and severity. Both normalize to this type (the codec handles
// the legacy form on unmarshal).
type ConditionPoint struct {
	Label    string `json:"label"`
	Severity string `json:"severity,omitempty"`
}

// =============================================================================
// Room Component
// =============================================================================

// RoomComponent is an inspectable element within a room (walls, flooring,
// windows, appliances and so on).
type RoomComponent struct {
	ID               uuid.UUID        // Unique identifier
	Name             string           // Display name
	Type             string           // Component type tag (e.g. "flooring")
	Description      string           // Free-text description
	Condition        ConditionRating  // Graded condition
	ConditionSummary string           // One-line condition summary
	ConditionPoints  []ConditionPoint // Ordered observations
	Cleanliness      string           // Cleanliness rating (free-form scale)
	Notes            string           // Clerk notes
	Images           []ComponentImage // Ordered photos of this component

	// EditMode is a transient UI flag. It is never persisted; the codec
	// drops it when serializing.
	EditMode bool
}

// HasImages reports whether the component carries at least one image.
func (c *RoomComponent) HasImages() bool {
	return len(c.Images) > 0
}

// =============================================================================
// Room
// =============================================================================

// Room is a single room within a report.
type Room struct {
	ID               uuid.UUID       // Unique identifier
	Name             string          // Display name (e.g. "Master Bedroom")
	Type             string          // Room type tag (e.g. "bedroom")
	Order            int             // Ordinal position; the main room is 1
	GeneralCondition string          // Free-text overall condition
	Components       []RoomComponent // Ordered components
	Images           []RoomImage     // Ordered room-level photos
	Sections         []RoomSection   // Ordered free-form sections
}

// RoomSection is a free-form titled block inside a room, used by report
// templates that predate the component model.
type RoomSection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HasImages reports whether the room or any of its components carries at
// least one image.
func (r *Room) HasImages() bool {
	if len(r.Images) > 0 {
		return true
	}
	for i := range r.Components {
		if r.Components[i].HasImages() {
			return true
		}
	}
	return false
}

// Component returns the component with the given ID, or nil.
func (r *Room) Component(id uuid.UUID) *RoomComponent {
	for i := range r.Components {
		if r.Components[i].ID == id {
			return &r.Components[i]
		}
	}
	return nil
}

// =============================================================================
// Room Type Display Names
// =============================================================================

var roomTypeTitle = cases.Title(language.English)

// wellKnownRoomNames maps room type tags whose display form is not a simple
// title-casing of the tag.
var wellKnownRoomNames = map[string]string{
	"wc":          "WC",
	"ensuite":     "En-suite",
	"livingroom":  "Living Room",
	"diningroom":  "Dining Room",
	"utilityroom": "Utility Room",
}

// RoomTypeDisplayName converts a room type tag into a display name, e.g.
// "bedroom" into "Bedroom". Underscores are treated as word separators.
func RoomTypeDisplayName(roomType string) string {
	if roomType == "" {
		return "Room"
	}
	if name, ok := wellKnownRoomNames[roomType]; ok {
		return name
	}
	out := make([]byte, 0, len(roomType))
	for i := 0; i < len(roomType); i++ {
		if roomType[i] == '_' || roomType[i] == '-' {
			out = append(out, ' ')
			continue
		}
		out = append(out, roomType[i])
	}
	return roomTypeTitle.String(string(out))
}

// =============================================================================
// Partial Room Updates
// =============================================================================

// RoomUpdate is a partial update to a single room. Nil fields mean "leave
// as-is"; non-nil fields overwrite. Making presence explicit keeps the
// set-if-present merge contract type-checkable instead of relying on
// zero-value sniffing.
type RoomUpdate struct {
	Name             *string
	GeneralCondition *string
	Components       *[]RoomComponent
	Sections         *[]RoomSection
	Order            *int
}

// IsEmpty returns true when the update carries no fields.
func (u RoomUpdate) IsEmpty() bool {
	return u.Name == nil && u.GeneralCondition == nil &&
		u.Components == nil && u.Sections == nil && u.Order == nil
}

// Apply folds the update into a room in place, field by field.
func (u RoomUpdate) Apply(room *Room) {
	if u.Name != nil {
		room.Name = *u.Name
	}
	if u.GeneralCondition != nil {
		room.GeneralCondition = *u.GeneralCondition
	}
	if u.Components != nil {
		room.Components = *u.Components
	}
	if u.Sections != nil {
		room.Sections = *u.Sections
	}
	if u.Order != nil {
		room.Order = *u.Order
	}
}

// =============================================================================
// Helpers
// =============================================================================

// NewRoom constructs an empty room with non-nil collections.
func NewRoom(id uuid.UUID, name, roomType string, order int) Room {
	if name == "" {
		name = RoomTypeDisplayName(roomType)
	}
	return Room{
		ID:         id,
		Name:       name,
		Type:       roomType,
		Order:      order,
		Components: []RoomComponent{},
		Images:     []RoomImage{},
		Sections:   []RoomSection{},
	}
}

