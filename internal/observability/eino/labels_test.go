package eino

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelsFromContext(t *testing.T) {
	l := labelsFromContext(context.Background())
	assert.Equal(t, unknownLabel, l.workflow)
	assert.Equal(t, unknownLabel, l.provider)

	ctx := WithWorkflowProvider(context.Background(), " generate_article ", "")
	l = labelsFromContext(ctx)
	assert.Equal(t, "generate_article", l.workflow)
	assert.Equal(t, unknownLabel, l.provider)
}
