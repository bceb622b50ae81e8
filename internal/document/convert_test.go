package document

import (
	"testing"
	"time"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *domain.Report {
	mainID := uuid.New()
	bedroomID := uuid.New()

	main := domain.NewRoom(mainID, "Lounge", "livingroom", 1)
	main.GeneralCondition = "well presented"
	main.Components = []domain.RoomComponent{{
		ID:        uuid.New(),
		Name:      "Walls",
		Type:      "walls",
		Condition: domain.ConditionGood,
		ConditionPoints: []domain.ConditionPoint{
			{Label: "scuff by door", Severity: "minor"},
		},
		EditMode: true,
	}}

	bedroom := domain.NewRoom(bedroomID, "Bedroom", "bedroom", 2)
	bedroom.Components = []domain.RoomComponent{{
		ID:        uuid.New(),
		Name:      "Carpet",
		Condition: domain.ConditionFair,
	}}

	return &domain.Report{
		ID:            uuid.New(),
		MainRoomID:    mainID,
		Rooms:         []domain.Room{main, bedroom},
		Clerk:         "A. Clerk",
		InventoryType: "check_in",
		TenantPresent: true,
		TenantName:    "J. Tenant",
	}
}

func TestFromReport(t *testing.T) {
	report := sampleReport()
	doc := FromReport(report)

	// Main room flattened to the top level.
	assert.Equal(t, "Lounge", doc.RoomName)
	assert.Equal(t, "well presented", doc.GeneralCondition)
	require.Len(t, doc.Components, 1)
	assert.Equal(t, "Walls", doc.Components[0].Name)

	// Remaining rooms become additionalRooms entries.
	require.Len(t, doc.AdditionalRooms, 1)
	assert.Equal(t, "Bedroom", doc.AdditionalRooms[0].Name)
	assert.Equal(t, 2, doc.AdditionalRooms[0].Order)

	// Metadata carried across.
	assert.Equal(t, "A. Clerk", doc.Clerk)
	assert.Equal(t, "check_in", doc.InventoryType)
	assert.True(t, doc.TenantPresent)
}

func TestToRooms_RoundTrip(t *testing.T) {
	report := sampleReport()
	doc := FromReport(report)

	rooms := ToRooms(doc, report.MainRoomID, "livingroom")
	require.Len(t, rooms, 2)

	// Main room first, anchored at order 1.
	assert.Equal(t, report.MainRoomID, rooms[0].ID)
	assert.Equal(t, "Lounge", rooms[0].Name)
	assert.Equal(t, 1, rooms[0].Order)
	assert.Equal(t, "well presented", rooms[0].GeneralCondition)
	require.Len(t, rooms[0].Components, 1)
	assert.Equal(t, report.Rooms[0].Components[0].ID, rooms[0].Components[0].ID)
	assert.Equal(t, domain.ConditionGood, rooms[0].Components[0].Condition)
	require.Len(t, rooms[0].Components[0].ConditionPoints, 1)
	assert.Equal(t, "scuff by door", rooms[0].Components[0].ConditionPoints[0].Label)

	assert.Equal(t, report.Rooms[1].ID, rooms[1].ID)
	assert.Equal(t, 2, rooms[1].Order)
}

func TestToRooms_Defaults(t *testing.T) {
	mainID := uuid.New()

	rooms := ToRooms(Default(), mainID, "kitchen")
	require.Len(t, rooms, 1)
	// An empty document still yields a usable main room.
	assert.Equal(t, "Kitchen", rooms[0].Name)
	assert.NotNil(t, rooms[0].Components)
	assert.NotNil(t, rooms[0].Sections)
}

func TestComponentsToWire_DropsEditMode(t *testing.T) {
	wire := ComponentsToWire([]domain.RoomComponent{{
		ID:       uuid.New(),
		Name:     "Window",
		EditMode: true,
	}})
	require.Len(t, wire, 1)

	back := ComponentsToDomain(wire)
	require.Len(t, back, 1)
	assert.False(t, back[0].EditMode)
}

func TestComponentsToDomain_JunkRatingDefaultsToFair(t *testing.T) {
	back := ComponentsToDomain([]Component{{
		ID:              uuid.New().String(),
		Name:            "Ceiling",
		ConditionRating: "spotless",
	}})
	require.Len(t, back, 1)
	assert.Equal(t, domain.ConditionFair, back[0].Condition)
}

func TestRoomToDomain_BadID(t *testing.T) {
	room := RoomToDomain(&Room{ID: "legacy-room-1", Name: "Cellar"})
	// Legacy non-UUID IDs map to Nil instead of failing.
	assert.Equal(t, uuid.Nil, room.ID)
	assert.Equal(t, "Cellar", room.Name)
}

func TestApplyAnalysis(t *testing.T) {
	componentID := uuid.New().String()
	imageID := uuid.New().String()
	analysis := &domain.ImageAnalysis{
		Description: "Tiled splashback",
		Condition: domain.AnalysisCondition{
			Summary: "Two cracked tiles",
			Points:  []string{"crack above hob", "grout discoloration"},
			Rating:  domain.ConditionPoor,
		},
		Cleanliness: "needs cleaning",
	}

	t.Run("component in additional room", func(t *testing.T) {
		doc := Default()
		doc.AdditionalRooms = []Room{{
			ID: uuid.New().String(),
			Components: []Component{{
				ID:     componentID,
				Name:   "Splashback",
				Images: []Image{{ID: imageID, URL: "https://cdn/z.jpg", CapturedAt: time.Now()}},
			}},
		}}

		ok := ApplyAnalysis(doc, componentID, imageID, analysis)
		require.True(t, ok)

		c := doc.AdditionalRooms[0].Components[0]
		assert.Equal(t, "Tiled splashback", c.Description)
		assert.Equal(t, "Two cracked tiles", c.ConditionSummary)
		assert.Equal(t, "poor", c.ConditionRating)
		require.Len(t, c.ConditionPoints, 2)
		assert.Equal(t, "crack above hob", c.ConditionPoints[0].Label)
		assert.True(t, c.Images[0].AIProcessed)
		assert.NotEmpty(t, c.Images[0].Analysis)
	})

	t.Run("component in main room", func(t *testing.T) {
		doc := Default()
		doc.Components = []Component{{ID: componentID, Name: "Splashback"}}

		ok := ApplyAnalysis(doc, componentID, imageID, analysis)
		require.True(t, ok)
		assert.Equal(t, "poor", doc.Components[0].ConditionRating)
	})

	t.Run("unknown component", func(t *testing.T) {
		doc := Default()
		assert.False(t, ApplyAnalysis(doc, componentID, imageID, analysis))
	})
}
