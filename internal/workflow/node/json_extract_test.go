package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeArray_FencedRoundTrip(t *testing.T) {
	items, err := NormalizeArray("```json\n[\"A\",\"B\",\"C\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, items)
}

func TestNormalizeArray_ChattyWrapper(t *testing.T) {
	raw := "Sure! Here are some options:\n```json\n[\"Title A\",\"Title B\"]\n```\nHope these help!"
	items, err := NormalizeArray(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Title A", "Title B"}, items)
}

func TestNormalizeArray_BareFence(t *testing.T) {
	items, err := NormalizeArray("```\n[\"x\", \"y\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, items)
}

func TestNormalizeArray_Idempotent(t *testing.T) {
	first, err := NormalizeArray(`["One", "Two [draft]", "Three"]`)
	require.NoError(t, err)

	second, err := NormalizeArray(EncodeArray(first))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, EncodeArray(first), EncodeArray(second))
}

func TestNormalizeArray_Malformed(t *testing.T) {
	cases := map[string]string{
		"no brackets":  "I could not come up with titles.",
		"reversed":     "] nope [",
		"not strings":  "[1, 2, 3]",
		"broken json":  `["A", "B"`,
		"empty array":  "[]",
		"blank items":  `["  ", ""]`,
		"object input": `{"titles": "A"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeArray(raw)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "\n[1]\n", StripCodeFences("```json\n[1]\n```"))
	assert.Equal(t, "plain", StripCodeFences("plain"))
}

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "你好", TruncateByRunes("你好世界", 2))
	assert.Equal(t, "abc", TruncateByRunes("abc", 10))
	assert.Equal(t, "", TruncateByRunes("abc", 0))
}
