package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDataURL(t *testing.T) {
	assert.True(t, IsDataURL("data:image/png;base64,iVBOR"))
	assert.False(t, IsDataURL("https://cdn.example.com/a.jpg"))
	assert.False(t, IsDataURL(""))
}

func TestImageAnalysis_Normalize(t *testing.T) {
	t.Run("nil receiver yields defaults", func(t *testing.T) {
		var a *ImageAnalysis
		n := a.Normalize()
		require.NotNil(t, n)
		assert.Equal(t, ConditionFair, n.Condition.Rating)
		assert.NotNil(t, n.Condition.Points)
	})

	t.Run("junk rating defaults to fair", func(t *testing.T) {
		a := &ImageAnalysis{Condition: AnalysisCondition{Rating: "immaculate"}}
		n := a.Normalize()
		assert.Equal(t, ConditionFair, n.Condition.Rating)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		a := &ImageAnalysis{
			Description: "wall",
			Condition: AnalysisCondition{
				Summary: "fine",
				Points:  []string{"one scuff"},
				Rating:  ConditionGood,
			},
		}
		n := a.Normalize()
		assert.Equal(t, ConditionGood, n.Condition.Rating)
		assert.Equal(t, []string{"one scuff"}, n.Condition.Points)
	})
}

func TestImageAnalysis_ApplyToComponent(t *testing.T) {
	a := &ImageAnalysis{
		Description: "Painted wall",
		Condition: AnalysisCondition{
			Summary: "Minor wear",
			Points:  []string{"scuff near door", "hairline crack"},
			Rating:  ConditionGood,
		},
		Cleanliness: "clean",
		Notes:       "no damp",
	}

	c := RoomComponent{ID: uuid.New(), Name: "Walls"}
	a.ApplyToComponent(&c)

	assert.Equal(t, "Painted wall", c.Description)
	assert.Equal(t, "Minor wear", c.ConditionSummary)
	assert.Equal(t, ConditionGood, c.Condition)
	assert.Equal(t, "clean", c.Cleanliness)
	require.Len(t, c.ConditionPoints, 2)
	assert.Equal(t, "scuff near door", c.ConditionPoints[0].Label)
	// The component's identity is untouched.
	assert.Equal(t, "Walls", c.Name)
}
