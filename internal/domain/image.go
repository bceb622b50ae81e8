// Package domain contains core business types and interfaces.
//
// This file defines the image types attached to rooms and components, and
// the AI analysis payload the engine folds into components.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Image Types
// =============================================================================

// RoomImage is a room-level inspection photo.
type RoomImage struct {
	ID          uuid.UUID      // Unique identifier
	URL         string         // Storage URL or transient data-URL
	CapturedAt  time.Time      // When the photo was taken
	Analysis    *ImageAnalysis // AI annotation, if any
	AIProcessed bool           // True once the AI collaborator has annotated it
}

// ComponentImage is a photo attached to a single room component.
type ComponentImage struct {
	ID          uuid.UUID      // Unique identifier
	URL         string         // Storage URL or transient data-URL
	CapturedAt  time.Time      // When the photo was taken
	Analysis    *ImageAnalysis // AI annotation, if any
	AIProcessed bool           // True once the AI collaborator has annotated it
}

// IsDataURL reports whether a URL is a transient inline data-URL rather than
// a storage reference. Data-URLs pass through the engine untouched; only
// storage keys are resolved to public URLs.
func IsDataURL(url string) bool {
	return strings.HasPrefix(url, "data:")
}

// =============================================================================
// AI Analysis Payload
// =============================================================================

// ImageAnalysis is the condition annotation produced by the AI collaborator
// for a single photo. The engine validates shape only, never content: missing
// fields default to their zero value, a missing rating defaults to fair.
type ImageAnalysis struct {
	Description string            `json:"description"`
	Condition   AnalysisCondition `json:"condition"`
	Cleanliness string            `json:"cleanliness"`
	Notes       string            `json:"notes"`
}

// AnalysisCondition is the condition block of an AI annotation.
type AnalysisCondition struct {
	Summary string          `json:"summary"`
	Points  []string        `json:"points"`
	Rating  ConditionRating `json:"rating"`
}

// Normalize coerces the payload into the engine's defaults: nil point lists
// become empty, unrecognized ratings become fair. Safe on a nil receiver.
func (a *ImageAnalysis) Normalize() *ImageAnalysis {
	if a == nil {
		return &ImageAnalysis{
			Condition: AnalysisCondition{Points: []string{}, Rating: ConditionFair},
		}
	}
	if a.Condition.Points == nil {
		a.Condition.Points = []string{}
	}
	a.Condition.Rating = a.Condition.Rating.OrDefault()
	return a
}

// ApplyToComponent merges the annotation into a component. Every supplied
// field overwrites; condition points are converted to the component's
// structured form.
func (a *ImageAnalysis) ApplyToComponent(c *RoomComponent) {
	n := a.Normalize()
	c.Description = n.Description
	c.ConditionSummary = n.Condition.Summary
	c.Condition = n.Condition.Rating
	c.Cleanliness = n.Cleanliness
	c.Notes = n.Notes
	points := make([]ConditionPoint, 0, len(n.Condition.Points))
	for _, p := range n.Condition.Points {
		points = append(points, ConditionPoint{Label: p})
	}
	c.ConditionPoints = points
}
