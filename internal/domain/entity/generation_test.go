package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeTitles, ParseMode("titles"))
	assert.Equal(t, ModeArticle, ParseMode(" ARTICLE "))
	assert.Equal(t, ModeFreeform, ParseMode(""))
	assert.Equal(t, ModeFreeform, ParseMode("poem"))
}

func TestModeClassification(t *testing.T) {
	for _, m := range []Mode{ModeArticle, ModeSocial, ModeAds, ModeCopywriting} {
		assert.True(t, m.IsFinalContent(), m)
		assert.False(t, m.IsStructured(), m)
	}
	for _, m := range []Mode{ModeTitles, ModeOutline} {
		assert.True(t, m.IsStructured(), m)
		assert.False(t, m.IsFinalContent(), m)
	}
	assert.False(t, ModeFreeform.IsFinalContent())
	assert.False(t, ModeFreeform.IsStructured())
}

func TestValidateReportsMissingField(t *testing.T) {
	err := FreeformRequest{Prompt: "  "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "prompt", fe.Field)

	assert.NoError(t, OutlineRequest{Topic: "gardening"}.Validate())
	assert.Error(t, CopywritingRequest{Topic: "shoes"}.Validate())
}

func TestToneOrDefault(t *testing.T) {
	assert.Equal(t, DefaultTone, RequestCommon{}.ToneOrDefault())
	assert.Equal(t, "Witty", RequestCommon{Tone: "Witty"}.ToneOrDefault())
}

func TestUserRemaining(t *testing.T) {
	u := NewUser(" Writer@Example.com ", "w", 25000)
	assert.Equal(t, "writer@example.com", u.Email)
	assert.Equal(t, PlanTrial, u.PlanTier)

	u.ConsumedUnits = 25049
	assert.EqualValues(t, 0, u.Remaining())
	u.ConsumedUnits = 100
	assert.EqualValues(t, 24900, u.Remaining())
}
