package port

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelInfo_String(t *testing.T) {
	assert.Equal(t, "deepseek/deepseek-chat", ModelInfo{Provider: "deepseek", Model: " deepseek-chat "}.String())
	assert.Equal(t, "openai", ModelInfo{Provider: "openai", Model: "  "}.String())
	assert.Equal(t, "", ModelInfo{Model: " "}.ModelName())
}
