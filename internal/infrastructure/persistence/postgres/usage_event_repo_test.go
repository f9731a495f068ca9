package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
)

func TestUsageEventRepositoryCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewUsageEventRepository(newTestClient(t))

	evt := &entity.GenerationUsageEvent{
		ID:        "evt-1",
		UserID:    "user-1",
		Mode:      entity.ModeArticle,
		Provider:  "openrouter",
		Model:     "moonshotai/kimi-k2-thinking",
		Units:     50,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, evt))
	dup := *evt
	require.NoError(t, repo.Create(ctx, &dup))

	page, err := repo.ListByUser(ctx, "user-1", repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.EqualValues(t, 50, page.Items[0].Units)
}
