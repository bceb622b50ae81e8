// Package domain contains core business types and interfaces.
//
// This file defines the Report domain type and the status lifecycle
// rules applied by the save pipeline.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Report Status
// =============================================================================

// ReportStatus represents the lifecycle state of an inspection report.
type ReportStatus string

const (
	// ReportStatusDraft indicates a report has been created but no save with
	// status tracking has happened yet.
	ReportStatusDraft ReportStatus = "draft"

	// ReportStatusInProgress indicates a clerk has started filling in rooms.
	ReportStatusInProgress ReportStatus = "in_progress"

	// ReportStatusPendingReview indicates at least one room or component photo
	// has been captured and an editor should review the report.
	ReportStatusPendingReview ReportStatus = "pending_review"

	// ReportStatusCompleted indicates the report has been finalized.
	ReportStatusCompleted ReportStatus = "completed"

	// ReportStatusArchived indicates the report is retained but no longer
	// part of any active workflow.
	ReportStatusArchived ReportStatus = "archived"
)

// String returns the string representation of the status.
func (s ReportStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusDraft, ReportStatusInProgress,
		ReportStatusPendingReview, ReportStatusCompleted, ReportStatusArchived:
		return true
	}
	return false
}

// rank orders statuses along the forward lifecycle so escalation can be
// expressed as "never move backwards". Archived sits outside the ladder.
func (s ReportStatus) rank() int {
	switch s {
	case ReportStatusDraft:
		return 0
	case ReportStatusInProgress:
		return 1
	case ReportStatusPendingReview:
		return 2
	case ReportStatusCompleted:
		return 3
	}
	return -1
}

// NextStatus computes the status a save should persist.
//
// When markCompleted is set the result is always completed, regardless of the
// current status or image presence. When updateStatus is set, a draft report
// moves to in_progress, and any report with at least one room or component
// image escalates to pending_review. The result never ranks below the current
// status: the ladder is a one-way ratchet, so re-saving a pending_review
// report with no image changes does not regress it to in_progress.
func NextStatus(current ReportStatus, updateStatus, markCompleted, hasImages bool) ReportStatus {
	if markCompleted {
		return ReportStatusCompleted
	}
	if !updateStatus {
		return current
	}

	next := current
	if current == ReportStatusDraft {
		next = ReportStatusInProgress
	}
	if hasImages && ReportStatusPendingReview.rank() > next.rank() {
		next = ReportStatusPendingReview
	}
	if next.rank() < current.rank() {
		return current
	}
	return next
}

// =============================================================================
// Report Domain Type
// =============================================================================

// Report represents a property inspection report.
//
// A report owns an ordered collection of rooms. Exactly one room is the main
// room: the room whose ID equals MainRoomID, the persisted row's anchor. Its
// fields live at the top level of the persisted document, while every other
// room is folded into the document's additionalRooms array.
type Report struct {
	ID          uuid.UUID    // Unique identifier
	PropertyID  uuid.UUID    // Property this report describes
	MainRoomID  uuid.UUID    // Anchor room reference (see document.RoomKind)
	Status      ReportStatus // Current lifecycle status
	Rooms       []Room       // Ordered rooms, main room first
	CreatedAt   time.Time    // When the report was created
	UpdatedAt   time.Time    // When the report was last modified
	CompletedAt *time.Time   // Set when the report is marked completed

	// Document metadata carried alongside the room tree.
	Clerk         string // Inventory clerk display name
	InventoryType string // e.g. "check_in", "check_out", "inventory"
	TenantPresent bool   // Whether the tenant attended the inspection
	TenantName    string // Tenant display name, if present
	FileURL       string // Generated report file, if any
	ReportType    string // Free-form report type tag
}

// MainRoom returns the room whose ID matches the anchor reference, or nil if
// the report's room list does not contain it.
func (r *Report) MainRoom() *Room {
	for i := range r.Rooms {
		if r.Rooms[i].ID == r.MainRoomID {
			return &r.Rooms[i]
		}
	}
	return nil
}

// Room returns the room with the given ID, or nil.
func (r *Report) Room(id uuid.UUID) *Room {
	for i := range r.Rooms {
		if r.Rooms[i].ID == id {
			return &r.Rooms[i]
		}
	}
	return nil
}

// HasImages reports whether any room or any component in the report carries
// at least one image. Used by the save pipeline's status escalation rule.
func (r *Report) HasImages() bool {
	for i := range r.Rooms {
		if r.Rooms[i].HasImages() {
			return true
		}
	}
	return false
}

// IsCompleted returns true once the report has been finalized.
func (r *Report) IsCompleted() bool {
	return r.Status == ReportStatusCompleted
}

// =============================================================================
// Service Parameters
// =============================================================================

// CreateReportParams contains parameters for creating a report.
type CreateReportParams struct {
	PropertyID    uuid.UUID // Property the report describes (required)
	MainRoomType  string    // Room type tag for the anchor room (required)
	Clerk         string    // Inventory clerk display name
	InventoryType string    // e.g. "check_in", "check_out", "inventory"
	TenantPresent bool      // Whether the tenant attended the inspection
	TenantName    string    // Tenant display name, if present
	ReportType    string    // Free-form report type tag
}
