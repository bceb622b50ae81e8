// Package document implements the report_info codec.
//
// This file implements Codec, the single place where raw report_info values
// are parsed and serialized. Every other component goes through the codec
// rather than re-implementing shape coercion, so defaulting rules cannot
// diverge between call sites.
package document

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/clerkly/internal/metrics"
)

// =============================================================================
// Codec
// =============================================================================

// Codec parses and serializes report_info documents.
//
// Parse never fails outward: a malformed document is logged and replaced with
// a default, because one bad row must not make an entire report unopenable.
type Codec struct {
	logger *slog.Logger
}

// NewCodec creates a new Codec.
func NewCodec(logger *slog.Logger) *Codec {
	return &Codec{logger: logger}
}

// Default returns a document with every array field set to an empty slice
// and every scalar at its zero value.
func Default() *Document {
	doc := &Document{}
	doc.ensureArrays()
	return doc
}

// Parse accepts the raw report_info value in any of the shapes the storage
// layer may hand back: nil, a JSON string, raw bytes, or an already-parsed
// Document. The result is always a usable, fully normalized document.
func (c *Codec) Parse(raw any) *Document {
	switch v := raw.(type) {
	case nil:
		return Default()
	case *Document:
		if v == nil {
			return Default()
		}
		v.ensureArrays()
		return v
	case Document:
		v.ensureArrays()
		return &v
	case string:
		return c.parseBytes([]byte(v))
	case []byte:
		return c.parseBytes(v)
	case json.RawMessage:
		return c.parseBytes(v)
	default:
		// Already-parsed objects (map[string]any and friends) round-trip
		// through encoding to reuse the same normalization path.
		data, err := json.Marshal(raw)
		if err != nil {
			c.logger.Warn("report_info has unexpected type, using default document",
				"type", fmt.Sprintf("%T", raw),
			)
			metrics.DocumentParseFailures.Inc()
			return Default()
		}
		return c.parseBytes(data)
	}
}

func (c *Codec) parseBytes(data []byte) *Document {
	if len(data) == 0 {
		return Default()
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("failed to parse report_info, using default document",
			"error", err,
		)
		metrics.DocumentParseFailures.Inc()
		return Default()
	}
	return &doc
}

// Serialize produces the value to persist. Recognized fields are emitted
// losslessly and unrecognized fields captured at parse time pass through
// untouched.
func (c *Codec) Serialize(doc *Document) (json.RawMessage, error) {
	if doc == nil {
		doc = Default()
	}
	doc.ensureArrays()
	return json.Marshal(doc)
}
