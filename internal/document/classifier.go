// Package document implements the report_info codec.
//
// This file implements room classification and the merge of partial room
// updates into the document. Every merge path goes through MergeRoomUpdate;
// no caller decides "is this the main room" on its own.
package document

import (
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Room Kind
// =============================================================================

// RoomKind classifies a room relative to the persisted row.
type RoomKind int

const (
	// KindMain is the room whose ID equals the row's anchor reference. Its
	// fields live at the document's top level.
	KindMain RoomKind = iota

	// KindAdditional is any other room; its fields live inside the
	// document's additionalRooms array.
	KindAdditional
)

// String returns the string representation of the kind.
func (k RoomKind) String() string {
	if k == KindMain {
		return "main"
	}
	return "additional"
}

// Classify decides whether roomID addresses the main room or an additional
// room. The decision depends only on the anchor reference, never on document
// contents, so it is stable across document mutation.
func Classify(mainRoomID, roomID uuid.UUID) RoomKind {
	if roomID == mainRoomID {
		return KindMain
	}
	return KindAdditional
}

// =============================================================================
// Merge
// =============================================================================

// RoomMeta carries the name and type of a room as known by the underlying
// room record. It is only consulted when a merge has to synthesize a new
// additionalRooms entry for a room the document has never seen.
type RoomMeta struct {
	Name string
	Type string
}

// MergeRoomUpdate folds a partial room update into the document in place.
//
// The contract per field is "set if present in the update, else leave as-is";
// absent fields are never overwritten with defaults. For the main room the
// supplied fields land at the top level. For an additional room the matching
// additionalRooms entry is updated, or, on the first write for a newly
// created room, a fresh entry is synthesized from meta with empty component
// and section lists and appended with order len(additionalRooms)+2 (position
// 1 is reserved for the main room).
func MergeRoomUpdate(doc *Document, mainRoomID, roomID uuid.UUID, upd domain.RoomUpdate, meta RoomMeta) {
	if Classify(mainRoomID, roomID) == KindMain {
		mergeMainRoom(doc, upd)
		return
	}
	mergeAdditionalRoom(doc, roomID, upd, meta)
}

func mergeMainRoom(doc *Document, upd domain.RoomUpdate) {
	if upd.Name != nil {
		doc.RoomName = *upd.Name
	}
	if upd.GeneralCondition != nil {
		doc.GeneralCondition = *upd.GeneralCondition
	}
	if upd.Components != nil {
		doc.Components = ComponentsToWire(*upd.Components)
	}
	if upd.Sections != nil {
		doc.Sections = SectionsToWire(*upd.Sections)
	}
	// The main room's ordinal is fixed at 1; an Order field in the update is
	// ignored here.
}

func mergeAdditionalRoom(doc *Document, roomID uuid.UUID, upd domain.RoomUpdate, meta RoomMeta) {
	id := roomID.String()
	for i := range doc.AdditionalRooms {
		if doc.AdditionalRooms[i].ID == id {
			applyToEntry(&doc.AdditionalRooms[i], upd)
			return
		}
	}

	// First write for this room: synthesize an entry from the room record.
	entry := Room{
		ID:         id,
		Name:       meta.Name,
		Type:       meta.Type,
		Order:      len(doc.AdditionalRooms) + 2,
		Components: []Component{},
		Sections:   []Section{},
	}
	if entry.Name == "" {
		entry.Name = domain.RoomTypeDisplayName(meta.Type)
	}
	applyToEntry(&entry, upd)
	doc.AdditionalRooms = append(doc.AdditionalRooms, entry)
}

func applyToEntry(entry *Room, upd domain.RoomUpdate) {
	if upd.Name != nil {
		entry.Name = *upd.Name
	}
	if upd.GeneralCondition != nil {
		entry.GeneralCondition = *upd.GeneralCondition
	}
	if upd.Components != nil {
		entry.Components = ComponentsToWire(*upd.Components)
	}
	if upd.Sections != nil {
		entry.Sections = SectionsToWire(*upd.Sections)
	}
	if upd.Order != nil {
		entry.Order = *upd.Order
	}
}

// FoldWireRoom folds a fully converted room payload into the document. This
// is the full-save counterpart of MergeRoomUpdate: every field is considered
// supplied. An entry's ordinal survives the fold when the payload does not
// carry one; a brand-new entry lands at len(additionalRooms)+2.
func FoldWireRoom(doc *Document, mainRoomID uuid.UUID, entry Room) {
	id, _ := uuid.Parse(entry.ID)
	if Classify(mainRoomID, id) == KindMain {
		doc.RoomName = entry.Name
		doc.GeneralCondition = entry.GeneralCondition
		doc.Components = entry.Components
		doc.Sections = entry.Sections
		return
	}

	for i := range doc.AdditionalRooms {
		if doc.AdditionalRooms[i].ID == entry.ID {
			if entry.Order == 0 {
				entry.Order = doc.AdditionalRooms[i].Order
			}
			doc.AdditionalRooms[i] = entry
			return
		}
	}
	if entry.Order == 0 {
		entry.Order = len(doc.AdditionalRooms) + 2
	}
	doc.AdditionalRooms = append(doc.AdditionalRooms, entry)
}

// RemoveRoom filters a room out of the document. For the main room the
// top-level fields are cleared rather than removed, since the row's anchor
// room cannot be deleted.
func RemoveRoom(doc *Document, mainRoomID, roomID uuid.UUID) {
	if Classify(mainRoomID, roomID) == KindMain {
		doc.RoomName = ""
		doc.GeneralCondition = ""
		doc.Components = []Component{}
		doc.Sections = []Section{}
		return
	}

	id := roomID.String()
	kept := doc.AdditionalRooms[:0]
	for i := range doc.AdditionalRooms {
		if doc.AdditionalRooms[i].ID != id {
			kept = append(kept, doc.AdditionalRooms[i])
		}
	}
	doc.AdditionalRooms = kept
}
