package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/clerkly/internal/ai"
	"github.com/DukeRupert/clerkly/internal/domain"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	AnalyzeImageResponse *ai.AnalysisResult
	AnalyzeImageError    error

	// Call tracking for testing
	AnalyzeImageCalls int
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// AnalyzeImage returns a canned condition assessment
func (p *Provider) AnalyzeImage(ctx context.Context, params ai.AnalyzeImageParams) (*ai.AnalysisResult, error) {
	p.AnalyzeImageCalls++

	// If a custom response or error is set, use it
	if p.AnalyzeImageError != nil {
		return nil, p.AnalyzeImageError
	}
	if p.AnalyzeImageResponse != nil {
		return p.AnalyzeImageResponse, nil
	}

	// Default canned response
	return &ai.AnalysisResult{
		Analysis: domain.ImageAnalysis{
			Description: "Painted plaster wall with a window to the left. Radiator mounted below the sill.",
			Condition: domain.AnalysisCondition{
				Summary: "Generally sound with minor cosmetic wear",
				Points: []string{
					"Scuff marks near the skirting board",
					"Hairline crack above the window frame",
				},
				Rating: domain.ConditionGood,
			},
			Cleanliness: "Clean throughout, light dust on the sill",
			Notes:       "No damp or structural concerns visible",
		},
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  1250,
			OutputTokens: 480,
			CostCents:    3,
			Duration:     250 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.AnalyzeImageCalls = 0
	p.AnalyzeImageResponse = nil
	p.AnalyzeImageError = nil
}
