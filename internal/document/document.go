// Package document implements the report_info codec and the room
// classification rules that map a report's room tree onto the single
// persisted JSON document.
//
// This file defines the wire types. The document has evolved over time and
// may have been written by older, inconsistent code paths, so every type
// decodes defensively: array fields normalize to empty slices, scalars to
// zero values, and unrecognized top-level keys pass through untouched.
package document

import (
	"encoding/json"
	"time"
)

// =============================================================================
// Document
// =============================================================================

// Document is the normalized form of the report_info column.
//
// Main-room fields (RoomName, GeneralCondition, Components, Sections) live at
// the top level; every other room is an entry in AdditionalRooms. After
// decoding, every array field is a non-nil slice, so callers never branch on
// "array vs not-array".
type Document struct {
	RoomName         string      `json:"roomName"`
	GeneralCondition string      `json:"generalCondition"`
	Components       []Component `json:"components"`
	Sections         []Section   `json:"sections"`
	AdditionalRooms  []Room      `json:"additionalRooms"`

	Clerk         string `json:"clerk"`
	InventoryType string `json:"inventoryType"`
	TenantPresent bool   `json:"tenantPresent"`
	TenantName    string `json:"tenantName"`
	FileURL       string `json:"fileUrl"`
	ReportType    string `json:"reportType"`

	// extra holds top-level keys this engine does not recognize. They are
	// re-emitted verbatim on serialize so round-tripping never drops fields
	// added by newer schema versions.
	extra map[string]json.RawMessage
}

// Room is an additional-room entry inside the document. It is itself a
// sub-document and is normalized recursively.
type Room struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	Order            int         `json:"order"`
	GeneralCondition string      `json:"generalCondition"`
	Components       []Component `json:"components"`
	Sections         []Section   `json:"sections"`
}

// Component is a room component entry.
type Component struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Description      string  `json:"description"`
	ConditionSummary string  `json:"conditionSummary"`
	ConditionPoints  []Point `json:"conditionPoints"`
	ConditionRating  string  `json:"conditionRating"`
	Cleanliness      string  `json:"cleanliness"`
	Notes            string  `json:"notes"`
	Images           []Image `json:"images"`
}

// Section is a free-form titled block.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Point is a single condition observation.
type Point struct {
	Label    string `json:"label"`
	Severity string `json:"severity,omitempty"`
}

// Image is a photo entry inside a component.
type Image struct {
	ID          string          `json:"id"`
	URL         string          `json:"url"`
	CapturedAt  time.Time       `json:"capturedAt"`
	Analysis    json.RawMessage `json:"analysis,omitempty"`
	AIProcessed bool            `json:"aiProcessed"`
}

// =============================================================================
// Tolerant decoding helpers
// =============================================================================

// asString decodes a JSON value as a string, leaving dst untouched on any
// other shape.
func asString(raw json.RawMessage, dst *string) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*dst = s
	}
}

// asBool decodes a JSON value as a bool, leaving dst untouched otherwise.
func asBool(raw json.RawMessage, dst *bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*dst = b
	}
}

// asInt decodes a JSON number as an int, leaving dst untouched otherwise.
func asInt(raw json.RawMessage, dst *int) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		*dst = n
	}
}

// asTime decodes a JSON value as an RFC 3339 timestamp.
func asTime(raw json.RawMessage, dst *time.Time) {
	var t time.Time
	if err := json.Unmarshal(raw, &t); err == nil {
		*dst = t
	}
}

// asArray decodes a JSON value as an array of raw elements. Absent, null, or
// non-array values yield an empty slice.
func asArray(raw json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []json.RawMessage{}
	}
	return items
}

// asObject decodes a JSON value as an object keyed by raw members. Non-object
// values yield nil.
func asObject(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

// =============================================================================
// Defensive unmarshalling
// =============================================================================

// UnmarshalJSON decodes a document, normalizing as it goes. It only fails
// when the input is not a JSON object at all; individual malformed fields
// fall back to their zero value.
func (d *Document) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*d = Document{}
	for key, raw := range fields {
		switch key {
		case "roomName":
			asString(raw, &d.RoomName)
		case "generalCondition":
			asString(raw, &d.GeneralCondition)
		case "components":
			d.Components = decodeComponents(raw)
		case "sections":
			d.Sections = decodeSections(raw)
		case "additionalRooms":
			d.AdditionalRooms = decodeRooms(raw)
		case "clerk":
			asString(raw, &d.Clerk)
		case "inventoryType":
			asString(raw, &d.InventoryType)
		case "tenantPresent":
			asBool(raw, &d.TenantPresent)
		case "tenantName":
			asString(raw, &d.TenantName)
		case "fileUrl":
			asString(raw, &d.FileURL)
		case "reportType":
			asString(raw, &d.ReportType)
		default:
			if d.extra == nil {
				d.extra = map[string]json.RawMessage{}
			}
			d.extra[key] = raw
		}
	}

	d.ensureArrays()
	return nil
}

// MarshalJSON re-emits the document, merging unrecognized fields back in.
// Recognized keys always win over stale extras of the same name.
func (d Document) MarshalJSON() ([]byte, error) {
	type alias Document
	known, err := json.Marshal(alias(d))
	if err != nil {
		return nil, err
	}
	if len(d.extra) == 0 {
		return known, nil
	}

	merged := map[string]json.RawMessage{}
	for key, raw := range d.extra {
		merged[key] = raw
	}
	var knownFields map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownFields); err != nil {
		return nil, err
	}
	for key, raw := range knownFields {
		merged[key] = raw
	}
	return json.Marshal(merged)
}

// ensureArrays normalizes every array field, recursively, to a non-nil slice.
func (d *Document) ensureArrays() {
	if d.Components == nil {
		d.Components = []Component{}
	}
	if d.Sections == nil {
		d.Sections = []Section{}
	}
	if d.AdditionalRooms == nil {
		d.AdditionalRooms = []Room{}
	}
	for i := range d.Components {
		d.Components[i].ensureArrays()
	}
	for i := range d.AdditionalRooms {
		d.AdditionalRooms[i].ensureArrays()
	}
}

func (r *Room) ensureArrays() {
	if r.Components == nil {
		r.Components = []Component{}
	}
	if r.Sections == nil {
		r.Sections = []Section{}
	}
	for i := range r.Components {
		r.Components[i].ensureArrays()
	}
}

func (c *Component) ensureArrays() {
	if c.ConditionPoints == nil {
		c.ConditionPoints = []Point{}
	}
	if c.Images == nil {
		c.Images = []Image{}
	}
}

// decodeRooms decodes the additionalRooms array element by element so one
// malformed entry does not discard its siblings.
func decodeRooms(raw json.RawMessage) []Room {
	items := asArray(raw)
	rooms := make([]Room, 0, len(items))
	for _, item := range items {
		fields := asObject(item)
		if fields == nil {
			continue
		}
		var room Room
		for key, value := range fields {
			switch key {
			case "id":
				asString(value, &room.ID)
			case "name":
				asString(value, &room.Name)
			case "type":
				asString(value, &room.Type)
			case "order":
				asInt(value, &room.Order)
			case "generalCondition":
				asString(value, &room.GeneralCondition)
			case "components":
				room.Components = decodeComponents(value)
			case "sections":
				room.Sections = decodeSections(value)
			}
		}
		room.ensureArrays()
		rooms = append(rooms, room)
	}
	return rooms
}

// decodeComponents decodes a components array element by element.
func decodeComponents(raw json.RawMessage) []Component {
	items := asArray(raw)
	components := make([]Component, 0, len(items))
	for _, item := range items {
		fields := asObject(item)
		if fields == nil {
			continue
		}
		var c Component
		for key, value := range fields {
			switch key {
			case "id":
				asString(value, &c.ID)
			case "name":
				asString(value, &c.Name)
			case "type":
				asString(value, &c.Type)
			case "description":
				asString(value, &c.Description)
			case "conditionSummary":
				asString(value, &c.ConditionSummary)
			case "conditionPoints":
				c.ConditionPoints = decodePoints(value)
			case "conditionRating":
				asString(value, &c.ConditionRating)
			case "cleanliness":
				asString(value, &c.Cleanliness)
			case "notes":
				asString(value, &c.Notes)
			case "images":
				c.Images = decodeImages(value)
			}
		}
		c.ensureArrays()
		components = append(components, c)
	}
	return components
}

// decodeSections decodes a sections array, dropping non-object entries.
func decodeSections(raw json.RawMessage) []Section {
	items := asArray(raw)
	sections := make([]Section, 0, len(items))
	for _, item := range items {
		fields := asObject(item)
		if fields == nil {
			continue
		}
		var s Section
		asString(fields["id"], &s.ID)
		asString(fields["title"], &s.Title)
		asString(fields["body"], &s.Body)
		sections = append(sections, s)
	}
	return sections
}

// decodePoints accepts both the legacy string form ("scuffed skirting") and
// the object form ({"label": ..., "severity": ...}).
func decodePoints(raw json.RawMessage) []Point {
	items := asArray(raw)
	points := make([]Point, 0, len(items))
	for _, item := range items {
		var label string
		if err := json.Unmarshal(item, &label); err == nil {
			points = append(points, Point{Label: label})
			continue
		}
		fields := asObject(item)
		if fields == nil {
			continue
		}
		var p Point
		asString(fields["label"], &p.Label)
		if p.Label == "" {
			// Some intermediate schema versions wrote "text".
			asString(fields["text"], &p.Label)
		}
		asString(fields["severity"], &p.Severity)
		points = append(points, p)
	}
	return points
}

// decodeImages decodes a component's images array.
func decodeImages(raw json.RawMessage) []Image {
	items := asArray(raw)
	images := make([]Image, 0, len(items))
	for _, item := range items {
		fields := asObject(item)
		if fields == nil {
			continue
		}
		var img Image
		for key, value := range fields {
			switch key {
			case "id":
				asString(value, &img.ID)
			case "url":
				asString(value, &img.URL)
			case "capturedAt":
				asTime(value, &img.CapturedAt)
			case "timestamp":
				// Legacy key for capturedAt; capturedAt wins when both exist.
				if img.CapturedAt.IsZero() {
					asTime(value, &img.CapturedAt)
				}
			case "analysis":
				img.Analysis = value
			case "aiProcessed":
				asBool(value, &img.AIProcessed)
			}
		}
		images = append(images, img)
	}
	return images
}
