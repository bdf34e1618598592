package cache

import (
	"context"
	"testing"

	"factory-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()

	for _, c := range []*Cache{nil, Disabled()} {
		c.SetShortages(ctx, 1, []models.MaterialShortage{{MaterialID: 1}})
		_, ok := c.GetShortages(ctx, 1)
		assert.False(t, ok)
		c.InvalidatePlan(ctx, 1)
		assert.False(t, c.IsHealthy(ctx))
		assert.NoError(t, c.Close())
	}
}

func TestNewReturnsDisabledCacheWhenUnreachable(t *testing.T) {
	c, err := New(Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.NotNil(t, c)
	assert.False(t, c.enabled())
}
