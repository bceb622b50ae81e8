package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name          string
		current       ReportStatus
		updateStatus  bool
		markCompleted bool
		hasImages     bool
		want          ReportStatus
	}{
		{
			name:         "draft advances to in_progress",
			current:      ReportStatusDraft,
			updateStatus: true,
			want:         ReportStatusInProgress,
		},
		{
			name:         "draft with images escalates to pending_review",
			current:      ReportStatusDraft,
			updateStatus: true,
			hasImages:    true,
			want:         ReportStatusPendingReview,
		},
		{
			name:         "in_progress with images escalates",
			current:      ReportStatusInProgress,
			updateStatus: true,
			hasImages:    true,
			want:         ReportStatusPendingReview,
		},
		{
			name:         "pending_review never regresses without images",
			current:      ReportStatusPendingReview,
			updateStatus: true,
			hasImages:    false,
			want:         ReportStatusPendingReview,
		},
		{
			name:         "completed never regresses",
			current:      ReportStatusCompleted,
			updateStatus: true,
			hasImages:    true,
			want:         ReportStatusCompleted,
		},
		{
			name:    "no status tracking leaves status alone",
			current: ReportStatusDraft,
			want:    ReportStatusDraft,
		},
		{
			name:          "mark completed wins over everything",
			current:       ReportStatusDraft,
			updateStatus:  true,
			markCompleted: true,
			hasImages:     true,
			want:          ReportStatusCompleted,
		},
		{
			name:          "mark completed from pending_review",
			current:       ReportStatusPendingReview,
			markCompleted: true,
			want:          ReportStatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStatus(tt.current, tt.updateStatus, tt.markCompleted, tt.hasImages)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatus_Monotonic(t *testing.T) {
	// Repeated saves with status tracking may only move forward.
	ladder := []ReportStatus{
		ReportStatusDraft,
		ReportStatusInProgress,
		ReportStatusPendingReview,
		ReportStatusCompleted,
	}

	for i, current := range ladder {
		for _, hasImages := range []bool{false, true} {
			next := NextStatus(current, true, false, hasImages)
			var nextIdx int
			for j, s := range ladder {
				if s == next {
					nextIdx = j
				}
			}
			assert.GreaterOrEqual(t, nextIdx, i,
				"status regressed from %s to %s (hasImages=%v)", current, next, hasImages)
		}
	}
}

func TestReportStatus_IsValid(t *testing.T) {
	assert.True(t, ReportStatusDraft.IsValid())
	assert.True(t, ReportStatusArchived.IsValid())
	assert.False(t, ReportStatus("bogus").IsValid())
	assert.False(t, ReportStatus("").IsValid())
}

func TestReport_MainRoomAndLookup(t *testing.T) {
	mainID := uuid.New()
	otherID := uuid.New()
	report := &Report{
		MainRoomID: mainID,
		Rooms: []Room{
			NewRoom(mainID, "Lounge", "livingroom", 1),
			NewRoom(otherID, "Bedroom", "bedroom", 2),
		},
	}

	main := report.MainRoom()
	require.NotNil(t, main)
	assert.Equal(t, "Lounge", main.Name)

	assert.Equal(t, "Bedroom", report.Room(otherID).Name)
	assert.Nil(t, report.Room(uuid.New()))
}

func TestReport_HasImages(t *testing.T) {
	mainID := uuid.New()
	report := &Report{
		MainRoomID: mainID,
		Rooms:      []Room{NewRoom(mainID, "", "kitchen", 1)},
	}
	assert.False(t, report.HasImages())

	report.Rooms[0].Components = []RoomComponent{{
		ID:     uuid.New(),
		Images: []ComponentImage{{ID: uuid.New(), URL: "https://example.com/a.jpg"}},
	}}
	assert.True(t, report.HasImages())

	report.Rooms[0].Components[0].Images = nil
	report.Rooms[0].Images = []RoomImage{{ID: uuid.New()}}
	assert.True(t, report.HasImages())
}
