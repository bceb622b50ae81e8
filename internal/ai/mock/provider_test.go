package mock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DukeRupert/clerkly/internal/ai"
	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_AnalyzeImage(t *testing.T) {
	p := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := p.AnalyzeImage(context.Background(), ai.AnalyzeImageParams{
		ImageData:   []byte("jpeg bytes"),
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.AnalyzeImageCalls)

	// The canned payload must survive normalization unchanged.
	normalized := result.Analysis.Normalize()
	assert.Equal(t, domain.ConditionGood, normalized.Condition.Rating)
	assert.NotEmpty(t, normalized.Condition.Points)
	assert.Equal(t, "mock-ai-v1", result.Usage.Model)
}

func TestProvider_CustomResponses(t *testing.T) {
	p := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	p.AnalyzeImageError = errors.New("boom")
	_, err := p.AnalyzeImage(context.Background(), ai.AnalyzeImageParams{})
	assert.Error(t, err)

	p.Reset()
	assert.Equal(t, 0, p.AnalyzeImageCalls)

	p.AnalyzeImageResponse = &ai.AnalysisResult{
		Analysis: domain.ImageAnalysis{Description: "custom"},
	}
	result, err := p.AnalyzeImage(context.Background(), ai.AnalyzeImageParams{})
	require.NoError(t, err)
	assert.Equal(t, "custom", result.Analysis.Description)
}
