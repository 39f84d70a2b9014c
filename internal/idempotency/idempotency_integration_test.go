//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "phdpeer/pkg/domain-errors"
	"phdpeer/pkg/testutil/containers"
)

func TestReserver_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	reserver := NewReserver(rc.Client, WithTTL(time.Minute))

	t.Run("first caller wins, second loses", func(t *testing.T) {
		won, err := reserver.Reserve(ctx, "progress:milestone:m1:activate")
		require.NoError(t, err)
		assert.True(t, won)

		won, err = reserver.Reserve(ctx, "progress:milestone:m1:activate")
		require.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("distinct keys are independent", func(t *testing.T) {
		won, err := reserver.Reserve(ctx, "progress:milestone:m2:activate")
		require.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("release frees the key for retry", func(t *testing.T) {
		require.NoError(t, reserver.Release(ctx, "progress:milestone:m1:activate"))

		won, err := reserver.Reserve(ctx, "progress:milestone:m1:activate")
		require.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		_, err := reserver.Reserve(ctx, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
