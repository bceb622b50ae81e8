package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestConditionRating_OrDefault(t *testing.T) {
	assert.Equal(t, ConditionGood, ConditionGood.OrDefault())
	assert.Equal(t, ConditionFair, ConditionRating("").OrDefault())
	assert.Equal(t, ConditionFair, ConditionRating("pristine").OrDefault())
}

func TestRoomTypeDisplayName(t *testing.T) {
	tests := []struct {
		roomType string
		want     string
	}{
		{"bedroom", "Bedroom"},
		{"livingroom", "Living Room"},
		{"wc", "WC"},
		{"ensuite", "En-suite"},
		{"utility_room", "Utility Room"},
		{"dining-area", "Dining Area"},
		{"", "Room"},
	}

	for _, tt := range tests {
		t.Run(tt.roomType, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomTypeDisplayName(tt.roomType))
		})
	}
}

func TestRoomUpdate_IsEmpty(t *testing.T) {
	assert.True(t, RoomUpdate{}.IsEmpty())

	name := "Hall"
	assert.False(t, RoomUpdate{Name: &name}.IsEmpty())
}

func TestRoomUpdate_Apply(t *testing.T) {
	room := NewRoom(uuid.New(), "Old Name", "bedroom", 2)
	room.GeneralCondition = "worn"

	name := "New Name"
	order := 5
	upd := RoomUpdate{Name: &name, Order: &order}
	upd.Apply(&room)

	assert.Equal(t, "New Name", room.Name)
	assert.Equal(t, 5, room.Order)
	// Absent fields stay untouched.
	assert.Equal(t, "worn", room.GeneralCondition)
}

func TestNewRoom_Defaults(t *testing.T) {
	room := NewRoom(uuid.New(), "", "livingroom", 3)
	assert.Equal(t, "Living Room", room.Name)
	assert.NotNil(t, room.Components)
	assert.NotNil(t, room.Images)
	assert.NotNil(t, room.Sections)
}
