package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
)

func TestUserRepositoryGetByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	u := entity.NewUser("Writer@Example.com", "Writer", 25000)
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "writer@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, entity.PlanTrial, got.PlanTier)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepositoryAddConsumedUnits(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	u := entity.NewUser("a@b.c", "", 25000)
	u.ConsumedUnits = 24999
	require.NoError(t, repo.Create(ctx, u))

	updated, err := repo.AddConsumedUnits(ctx, u.ID, 50)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.EqualValues(t, 25049, updated.ConsumedUnits)

	updated, err = repo.AddConsumedUnits(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 25050, updated.ConsumedUnits)

	none, err := repo.AddConsumedUnits(ctx, "no-such-id", 5)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUserRepositoryUpgradeLegacyLimitIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	legacy := entity.NewUser("legacy@b.c", "", 10)
	legacy.PlanTier = entity.PlanStarter
	require.NoError(t, repo.Create(ctx, legacy))

	changed, err := repo.UpgradeLegacyLimit(ctx, legacy.ID, 25000, 25000, entity.PlanTrial)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpgradeLegacyLimit(ctx, legacy.ID, 25000, 25000, entity.PlanTrial)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 25000, got.UnitLimit)
	assert.Equal(t, entity.PlanTrial, got.PlanTier)
}

func TestUserRepositoryListBelowLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	require.NoError(t, repo.Create(ctx, entity.NewUser("old1@b.c", "", 5)))
	require.NoError(t, repo.Create(ctx, entity.NewUser("old2@b.c", "", 100)))
	require.NoError(t, repo.Create(ctx, entity.NewUser("new@b.c", "", 25000)))

	page, err := repo.ListBelowLimit(ctx, 25000, repository.NewPagination(1, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)
}
