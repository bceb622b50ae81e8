// Package document implements the report_info codec.
//
// This file converts between the domain's room tree and the document's wire
// form. The conversion is the flatten/unflatten at the heart of the engine:
// the main room's fields land at the document top level, every other room
// becomes an additionalRooms entry.
package document

import (
	"encoding/json"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Domain -> Wire
// =============================================================================

// FromReport flattens a report's room tree into a document, preserving any
// metadata fields the report carries. The report's main room (matched by the
// anchor reference) maps onto the top level; remaining rooms are emitted in
// order as additionalRooms entries.
func FromReport(report *domain.Report) *Document {
	doc := Default()
	doc.Clerk = report.Clerk
	doc.InventoryType = report.InventoryType
	doc.TenantPresent = report.TenantPresent
	doc.TenantName = report.TenantName
	doc.FileURL = report.FileURL
	doc.ReportType = report.ReportType

	for i := range report.Rooms {
		room := &report.Rooms[i]
		if room.ID == report.MainRoomID {
			doc.RoomName = room.Name
			doc.GeneralCondition = room.GeneralCondition
			doc.Components = ComponentsToWire(room.Components)
			doc.Sections = SectionsToWire(room.Sections)
			continue
		}
		doc.AdditionalRooms = append(doc.AdditionalRooms, RoomToWire(room))
	}
	return doc
}

// RoomToWire converts a domain room into an additional-room entry.
func RoomToWire(room *domain.Room) Room {
	return Room{
		ID:               room.ID.String(),
		Name:             room.Name,
		Type:             room.Type,
		Order:            room.Order,
		GeneralCondition: room.GeneralCondition,
		Components:       ComponentsToWire(room.Components),
		Sections:         SectionsToWire(room.Sections),
	}
}

// ComponentsToWire converts domain components to wire form. The transient
// EditMode flag is dropped here; it never reaches the document.
func ComponentsToWire(components []domain.RoomComponent) []Component {
	out := make([]Component, 0, len(components))
	for i := range components {
		c := &components[i]
		out = append(out, Component{
			ID:               c.ID.String(),
			Name:             c.Name,
			Type:             c.Type,
			Description:      c.Description,
			ConditionSummary: c.ConditionSummary,
			ConditionPoints:  pointsToWire(c.ConditionPoints),
			ConditionRating:  c.Condition.String(),
			Cleanliness:      c.Cleanliness,
			Notes:            c.Notes,
			Images:           imagesToWire(c.Images),
		})
	}
	return out
}

// SectionsToWire converts domain sections to wire form.
func SectionsToWire(sections []domain.RoomSection) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, Section{ID: s.ID, Title: s.Title, Body: s.Body})
	}
	return out
}

func pointsToWire(points []domain.ConditionPoint) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, Point{Label: p.Label, Severity: p.Severity})
	}
	return out
}

func imagesToWire(images []domain.ComponentImage) []Image {
	out := make([]Image, 0, len(images))
	for i := range images {
		img := &images[i]
		var analysis json.RawMessage
		if img.Analysis != nil {
			// Analysis payloads are shape-checked, not validated; a marshal
			// failure here is impossible for the plain struct involved.
			analysis, _ = json.Marshal(img.Analysis.Normalize())
		}
		out = append(out, Image{
			ID:          img.ID.String(),
			URL:         img.URL,
			CapturedAt:  img.CapturedAt,
			Analysis:    analysis,
			AIProcessed: img.AIProcessed,
		})
	}
	return out
}

// ApplyAnalysis folds an AI annotation into the component with the given ID,
// searching the main room's components first and then every additionalRooms
// entry. The matching component image, when present, is stamped with the
// annotation and marked processed. Returns false when no component matches.
func ApplyAnalysis(doc *Document, componentID, imageID string, a *domain.ImageAnalysis) bool {
	if applyAnalysisToComponents(doc.Components, componentID, imageID, a) {
		return true
	}
	for i := range doc.AdditionalRooms {
		if applyAnalysisToComponents(doc.AdditionalRooms[i].Components, componentID, imageID, a) {
			return true
		}
	}
	return false
}

func applyAnalysisToComponents(components []Component, componentID, imageID string, a *domain.ImageAnalysis) bool {
	n := a.Normalize()
	for i := range components {
		c := &components[i]
		if c.ID != componentID {
			continue
		}
		c.Description = n.Description
		c.ConditionSummary = n.Condition.Summary
		c.ConditionRating = n.Condition.Rating.String()
		c.Cleanliness = n.Cleanliness
		c.Notes = n.Notes
		points := make([]Point, 0, len(n.Condition.Points))
		for _, p := range n.Condition.Points {
			points = append(points, Point{Label: p})
		}
		c.ConditionPoints = points

		raw, _ := json.Marshal(n)
		for j := range c.Images {
			if c.Images[j].ID == imageID {
				c.Images[j].Analysis = raw
				c.Images[j].AIProcessed = true
				break
			}
		}
		return true
	}
	return false
}

// =============================================================================
// Wire -> Domain
// =============================================================================

// ToRooms reconstructs the ordered room list from a document. The main room
// always comes first with the given anchor ID and order 1; additional rooms
// follow in document order.
func ToRooms(doc *Document, mainRoomID uuid.UUID, mainRoomType string) []domain.Room {
	rooms := make([]domain.Room, 0, 1+len(doc.AdditionalRooms))

	main := domain.Room{
		ID:               mainRoomID,
		Name:             doc.RoomName,
		Type:             mainRoomType,
		Order:            1,
		GeneralCondition: doc.GeneralCondition,
		Components:       ComponentsToDomain(doc.Components),
		Images:           []domain.RoomImage{},
		Sections:         SectionsToDomain(doc.Sections),
	}
	if main.Name == "" {
		main.Name = domain.RoomTypeDisplayName(mainRoomType)
	}
	rooms = append(rooms, main)

	for i := range doc.AdditionalRooms {
		rooms = append(rooms, RoomToDomain(&doc.AdditionalRooms[i]))
	}
	return rooms
}

// RoomToDomain converts an additional-room entry into a domain room. Entry
// IDs written by older clients may not be valid UUIDs; those map to uuid.Nil
// rather than failing the whole reconstruction.
func RoomToDomain(room *Room) domain.Room {
	id, _ := uuid.Parse(room.ID)
	return domain.Room{
		ID:               id,
		Name:             room.Name,
		Type:             room.Type,
		Order:            room.Order,
		GeneralCondition: room.GeneralCondition,
		Components:       ComponentsToDomain(room.Components),
		Images:           []domain.RoomImage{},
		Sections:         SectionsToDomain(room.Sections),
	}
}

// ComponentsToDomain converts wire components to domain form, defaulting
// unrecognized condition ratings to fair.
func ComponentsToDomain(components []Component) []domain.RoomComponent {
	out := make([]domain.RoomComponent, 0, len(components))
	for i := range components {
		c := &components[i]
		id, _ := uuid.Parse(c.ID)
		out = append(out, domain.RoomComponent{
			ID:               id,
			Name:             c.Name,
			Type:             c.Type,
			Description:      c.Description,
			Condition:        domain.ConditionRating(c.ConditionRating).OrDefault(),
			ConditionSummary: c.ConditionSummary,
			ConditionPoints:  pointsToDomain(c.ConditionPoints),
			Cleanliness:      c.Cleanliness,
			Notes:            c.Notes,
			Images:           imagesToDomain(c.Images),
		})
	}
	return out
}

// SectionsToDomain converts wire sections to domain form.
func SectionsToDomain(sections []Section) []domain.RoomSection {
	out := make([]domain.RoomSection, 0, len(sections))
	for _, s := range sections {
		out = append(out, domain.RoomSection{ID: s.ID, Title: s.Title, Body: s.Body})
	}
	return out
}

func pointsToDomain(points []Point) []domain.ConditionPoint {
	out := make([]domain.ConditionPoint, 0, len(points))
	for _, p := range points {
		out = append(out, domain.ConditionPoint{Label: p.Label, Severity: p.Severity})
	}
	return out
}

func imagesToDomain(images []Image) []domain.ComponentImage {
	out := make([]domain.ComponentImage, 0, len(images))
	for i := range images {
		img := &images[i]
		id, _ := uuid.Parse(img.ID)
		var analysis *domain.ImageAnalysis
		if len(img.Analysis) > 0 {
			var a domain.ImageAnalysis
			if err := json.Unmarshal(img.Analysis, &a); err == nil {
				analysis = a.Normalize()
			}
		}
		out = append(out, domain.ComponentImage{
			ID:          id,
			URL:         img.URL,
			CapturedAt:  img.CapturedAt,
			Analysis:    analysis,
			AIProcessed: img.AIProcessed,
		})
	}
	return out
}
