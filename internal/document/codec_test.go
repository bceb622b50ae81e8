package document

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return NewCodec(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCodec_Parse_Defaults(t *testing.T) {
	c := testCodec()

	tests := []struct {
		name string
		raw  any
	}{
		{"nil input", nil},
		{"empty bytes", []byte{}},
		{"empty string", ""},
		{"garbage bytes", []byte("{not json")},
		{"non-object json", []byte(`"just a string"`)},
		{"json array", []byte(`[1,2,3]`)},
		{"unexpected type", make(chan int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := c.Parse(tt.raw)
			require.NotNil(t, doc)
			assert.NotNil(t, doc.Components)
			assert.NotNil(t, doc.Sections)
			assert.NotNil(t, doc.AdditionalRooms)
			assert.Empty(t, doc.RoomName)
		})
	}
}

func TestCodec_Parse_InputShapes(t *testing.T) {
	c := testCodec()
	payload := `{"roomName":"Kitchen","generalCondition":"good overall"}`

	t.Run("string", func(t *testing.T) {
		doc := c.Parse(payload)
		assert.Equal(t, "Kitchen", doc.RoomName)
	})

	t.Run("bytes", func(t *testing.T) {
		doc := c.Parse([]byte(payload))
		assert.Equal(t, "Kitchen", doc.RoomName)
	})

	t.Run("raw message", func(t *testing.T) {
		doc := c.Parse(json.RawMessage(payload))
		assert.Equal(t, "Kitchen", doc.RoomName)
	})

	t.Run("map", func(t *testing.T) {
		doc := c.Parse(map[string]any{"roomName": "Kitchen"})
		assert.Equal(t, "Kitchen", doc.RoomName)
		assert.NotNil(t, doc.Components)
	})

	t.Run("document pointer passes through", func(t *testing.T) {
		in := &Document{RoomName: "Kitchen"}
		doc := c.Parse(in)
		assert.Same(t, in, doc)
		assert.NotNil(t, doc.Components)
	})

	t.Run("nil document pointer", func(t *testing.T) {
		var in *Document
		doc := c.Parse(in)
		require.NotNil(t, doc)
		assert.NotNil(t, doc.AdditionalRooms)
	})
}

func TestCodec_Parse_MalformedFields(t *testing.T) {
	c := testCodec()

	// Individually malformed fields fall back to zero values instead of
	// failing the whole document.
	doc := c.Parse([]byte(`{
		"roomName": 42,
		"generalCondition": "scuffed",
		"components": "not-an-array",
		"additionalRooms": [
			{"id": "r1", "name": "Bedroom", "order": "three"},
			"bogus entry",
			{"id": "r2", "name": "Bathroom", "components": null}
		],
		"tenantPresent": "yes"
	}`))

	assert.Empty(t, doc.RoomName)
	assert.Equal(t, "scuffed", doc.GeneralCondition)
	assert.Empty(t, doc.Components)
	assert.False(t, doc.TenantPresent)

	// One bad additionalRooms entry does not discard its siblings.
	require.Len(t, doc.AdditionalRooms, 2)
	assert.Equal(t, "Bedroom", doc.AdditionalRooms[0].Name)
	assert.Zero(t, doc.AdditionalRooms[0].Order)
	assert.NotNil(t, doc.AdditionalRooms[1].Components)
}

func TestCodec_Parse_LegacyForms(t *testing.T) {
	c := testCodec()

	doc := c.Parse([]byte(`{
		"components": [{
			"id": "c1",
			"name": "Walls",
			"conditionPoints": [
				"scuffed skirting",
				{"label": "crack above door", "severity": "minor"},
				{"text": "stain near window"}
			],
			"images": [
				{"id": "i1", "url": "https://cdn/x.jpg", "timestamp": "2024-03-01T10:00:00Z"},
				{"id": "i2", "url": "https://cdn/y.jpg", "capturedAt": "2024-03-02T10:00:00Z", "timestamp": "2020-01-01T00:00:00Z"}
			]
		}]
	}`))

	require.Len(t, doc.Components, 1)
	points := doc.Components[0].ConditionPoints
	require.Len(t, points, 3)
	assert.Equal(t, "scuffed skirting", points[0].Label)
	assert.Equal(t, "crack above door", points[1].Label)
	assert.Equal(t, "minor", points[1].Severity)
	assert.Equal(t, "stain near window", points[2].Label)

	images := doc.Components[0].Images
	require.Len(t, images, 2)
	// Legacy timestamp key is honored when capturedAt is absent.
	assert.Equal(t, 2024, images[0].CapturedAt.Year())
	assert.Equal(t, 3, int(images[0].CapturedAt.Month()))
	// capturedAt wins when both keys exist.
	assert.Equal(t, 2, images[1].CapturedAt.Day())
}

func TestCodec_UnknownKeyPassthrough(t *testing.T) {
	c := testCodec()

	doc := c.Parse([]byte(`{
		"roomName": "Hall",
		"futureField": {"nested": [1, 2, 3]},
		"anotherUnknown": "kept"
	}`))
	doc.RoomName = "Hallway"

	out, err := c.Serialize(doc)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `{"nested":[1,2,3]}`, string(fields["futureField"]))
	assert.JSONEq(t, `"kept"`, string(fields["anotherUnknown"]))
	assert.JSONEq(t, `"Hallway"`, string(fields["roomName"]))
}

func TestCodec_KnownKeysWinOverStaleExtras(t *testing.T) {
	c := testCodec()

	// A document round-tripped through an older schema version may hold a
	// recognized key in extras; the typed field must win on serialize.
	doc := c.Parse([]byte(`{"roomName": "Old Name"}`))
	doc.extra = map[string]json.RawMessage{
		"roomName": json.RawMessage(`"stale"`),
		"custom":   json.RawMessage(`true`),
	}

	out, err := c.Serialize(doc)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `"Old Name"`, string(fields["roomName"]))
	assert.JSONEq(t, `true`, string(fields["custom"]))
}

func TestCodec_Serialize_NilDocument(t *testing.T) {
	c := testCodec()

	out, err := c.Serialize(nil)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `[]`, string(fields["components"]))
	assert.JSONEq(t, `[]`, string(fields["additionalRooms"]))
}

func TestCodec_RoundTrip(t *testing.T) {
	c := testCodec()
	in := []byte(`{
		"roomName": "Lounge",
		"generalCondition": "well kept",
		"clerk": "A. Clerk",
		"inventoryType": "check_in",
		"tenantPresent": true,
		"tenantName": "J. Tenant",
		"additionalRooms": [
			{"id": "11111111-1111-1111-1111-111111111111", "name": "Bedroom", "type": "bedroom", "order": 2,
			 "components": [{"id": "c1", "name": "Carpet", "conditionRating": "good"}]}
		]
	}`)

	first, err := c.Serialize(c.Parse(in))
	require.NoError(t, err)
	second, err := c.Serialize(c.Parse(first))
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}
