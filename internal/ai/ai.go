package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/google/uuid"
)

// AIProvider defines the interface for AI-powered inspection photo analysis
type AIProvider interface {
	// AnalyzeImage analyzes an inspection photo and describes the condition
	// of the pictured room or component
	AnalyzeImage(ctx context.Context, params AnalyzeImageParams) (*AnalysisResult, error)
}

// AnalyzeImageParams contains parameters for image analysis
type AnalyzeImageParams struct {
	ImageData   []byte    // Raw image bytes
	ContentType string    // MIME type (e.g., "image/jpeg")
	Context     string    // Optional context provided by the clerk
	ImageID     uuid.UUID // Image ID for tracking
	ReportID    uuid.UUID // Report ID for tracking
	RoomName    string    // Room the photo belongs to
	Component   string    // Component name when the photo is component-level
}

// AnalysisResult contains the complete analysis of an inspection photo
type AnalysisResult struct {
	Analysis domain.ImageAnalysis // Structured condition assessment
	Usage    UsageInfo            // Token usage and cost information
}

// UsageInfo tracks API usage for billing and monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	CostCents    int           // Estimated cost in cents
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidImage indicates the image format or content is invalid
	EAIInvalidImage = errors.New("invalid image format or content")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
