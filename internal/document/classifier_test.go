package document

import (
	"testing"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	mainID := uuid.New()
	otherID := uuid.New()

	assert.Equal(t, KindMain, Classify(mainID, mainID))
	assert.Equal(t, KindAdditional, Classify(mainID, otherID))
	assert.Equal(t, KindAdditional, Classify(mainID, uuid.Nil))

	// Deterministic: repeated calls with the same inputs agree.
	for i := 0; i < 10; i++ {
		assert.Equal(t, KindMain, Classify(mainID, mainID))
		assert.Equal(t, KindAdditional, Classify(mainID, otherID))
	}

	assert.Equal(t, "main", KindMain.String())
	assert.Equal(t, "additional", KindAdditional.String())
}

func TestMergeRoomUpdate_MainRoom(t *testing.T) {
	mainID := uuid.New()
	doc := Default()
	doc.RoomName = "Lounge"
	doc.GeneralCondition = "tidy"

	cond := "worn carpet"
	order := 9
	MergeRoomUpdate(doc, mainID, mainID, domain.RoomUpdate{
		GeneralCondition: &cond,
		Order:            &order,
	}, RoomMeta{})

	// Supplied field set, absent field untouched, main room ordinal ignored.
	assert.Equal(t, "worn carpet", doc.GeneralCondition)
	assert.Equal(t, "Lounge", doc.RoomName)
	assert.Empty(t, doc.AdditionalRooms)
}

func TestMergeRoomUpdate_ExistingAdditionalRoom(t *testing.T) {
	mainID := uuid.New()
	roomID := uuid.New()
	doc := Default()
	doc.AdditionalRooms = []Room{{
		ID:    roomID.String(),
		Name:  "Bedroom",
		Type:  "bedroom",
		Order: 2,
	}}

	name := "Master Bedroom"
	MergeRoomUpdate(doc, mainID, roomID, domain.RoomUpdate{Name: &name}, RoomMeta{})

	require.Len(t, doc.AdditionalRooms, 1)
	assert.Equal(t, "Master Bedroom", doc.AdditionalRooms[0].Name)
	assert.Equal(t, "bedroom", doc.AdditionalRooms[0].Type)
	assert.Equal(t, 2, doc.AdditionalRooms[0].Order)
}

func TestMergeRoomUpdate_SynthesizesNewEntry(t *testing.T) {
	mainID := uuid.New()
	roomID := uuid.New()
	doc := Default()

	cond := "freshly painted"
	MergeRoomUpdate(doc, mainID, roomID, domain.RoomUpdate{GeneralCondition: &cond},
		RoomMeta{Name: "Study", Type: "study"})

	require.Len(t, doc.AdditionalRooms, 1)
	entry := doc.AdditionalRooms[0]
	assert.Equal(t, roomID.String(), entry.ID)
	assert.Equal(t, "Study", entry.Name)
	assert.Equal(t, "study", entry.Type)
	// First additional room sits at position 2; 1 is the main room.
	assert.Equal(t, 2, entry.Order)
	assert.Equal(t, "freshly painted", entry.GeneralCondition)
	assert.NotNil(t, entry.Components)
	assert.NotNil(t, entry.Sections)

	// A second unseen room appends at the next ordinal.
	secondID := uuid.New()
	MergeRoomUpdate(doc, mainID, secondID, domain.RoomUpdate{GeneralCondition: &cond},
		RoomMeta{Type: "bathroom"})
	require.Len(t, doc.AdditionalRooms, 2)
	assert.Equal(t, 3, doc.AdditionalRooms[1].Order)
	// Empty meta name falls back to the type's display name.
	assert.Equal(t, "Bathroom", doc.AdditionalRooms[1].Name)
}

func TestMergeRoomUpdate_Idempotent(t *testing.T) {
	mainID := uuid.New()
	roomID := uuid.New()
	doc := Default()

	cond := "good"
	upd := domain.RoomUpdate{GeneralCondition: &cond}
	meta := RoomMeta{Name: "Hall", Type: "hallway"}

	MergeRoomUpdate(doc, mainID, roomID, upd, meta)
	MergeRoomUpdate(doc, mainID, roomID, upd, meta)
	MergeRoomUpdate(doc, mainID, roomID, upd, meta)

	// Re-applying the same update mutates the existing entry, never appends.
	require.Len(t, doc.AdditionalRooms, 1)
	assert.Equal(t, 2, doc.AdditionalRooms[0].Order)
}

func TestFoldWireRoom(t *testing.T) {
	mainID := uuid.New()
	roomID := uuid.New()

	t.Run("main room lands at top level", func(t *testing.T) {
		doc := Default()
		FoldWireRoom(doc, mainID, Room{
			ID:               mainID.String(),
			Name:             "Kitchen",
			GeneralCondition: "clean",
			Components:       []Component{{ID: "c1", Name: "Hob"}},
			Sections:         []Section{},
		})

		assert.Equal(t, "Kitchen", doc.RoomName)
		assert.Equal(t, "clean", doc.GeneralCondition)
		require.Len(t, doc.Components, 1)
		assert.Empty(t, doc.AdditionalRooms)
	})

	t.Run("existing entry keeps its ordinal when payload has none", func(t *testing.T) {
		doc := Default()
		doc.AdditionalRooms = []Room{{ID: roomID.String(), Name: "Bedroom", Order: 4}}

		FoldWireRoom(doc, mainID, Room{ID: roomID.String(), Name: "Bedroom Two"})

		require.Len(t, doc.AdditionalRooms, 1)
		assert.Equal(t, "Bedroom Two", doc.AdditionalRooms[0].Name)
		assert.Equal(t, 4, doc.AdditionalRooms[0].Order)
	})

	t.Run("payload ordinal overrides", func(t *testing.T) {
		doc := Default()
		doc.AdditionalRooms = []Room{{ID: roomID.String(), Order: 4}}

		FoldWireRoom(doc, mainID, Room{ID: roomID.String(), Order: 7})
		assert.Equal(t, 7, doc.AdditionalRooms[0].Order)
	})

	t.Run("new entry appended with next ordinal", func(t *testing.T) {
		doc := Default()
		doc.AdditionalRooms = []Room{{ID: uuid.New().String(), Order: 2}}

		FoldWireRoom(doc, mainID, Room{ID: roomID.String(), Name: "Garage"})
		require.Len(t, doc.AdditionalRooms, 2)
		assert.Equal(t, 3, doc.AdditionalRooms[1].Order)
	})
}

func TestRemoveRoom(t *testing.T) {
	mainID := uuid.New()
	roomID := uuid.New()

	t.Run("main room clears top-level fields", func(t *testing.T) {
		doc := Default()
		doc.RoomName = "Lounge"
		doc.GeneralCondition = "fine"
		doc.Components = []Component{{ID: "c1"}}
		doc.AdditionalRooms = []Room{{ID: roomID.String()}}

		RemoveRoom(doc, mainID, mainID)

		assert.Empty(t, doc.RoomName)
		assert.Empty(t, doc.GeneralCondition)
		assert.Empty(t, doc.Components)
		// Additional rooms are untouched.
		assert.Len(t, doc.AdditionalRooms, 1)
	})

	t.Run("additional room filtered out", func(t *testing.T) {
		keepID := uuid.New()
		doc := Default()
		doc.AdditionalRooms = []Room{
			{ID: roomID.String(), Name: "Gone"},
			{ID: keepID.String(), Name: "Kept"},
		}

		RemoveRoom(doc, mainID, roomID)

		require.Len(t, doc.AdditionalRooms, 1)
		assert.Equal(t, "Kept", doc.AdditionalRooms[0].Name)
	})

	t.Run("unknown room is a no-op", func(t *testing.T) {
		doc := Default()
		doc.AdditionalRooms = []Room{{ID: roomID.String()}}

		RemoveRoom(doc, mainID, uuid.New())
		assert.Len(t, doc.AdditionalRooms, 1)
	})
}
