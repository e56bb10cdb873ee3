package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/contestcrawl/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer(t *testing.T) {
	t.Parallel()

	t.Run("allows the first fetch immediately", func(t *testing.T) {
		t.Parallel()

		pacer := crawl.NewPacer(time.Second)

		start := time.Now()
		require.NoError(t, pacer.Wait(context.Background()))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("spaces consecutive fetches by the interval", func(t *testing.T) {
		t.Parallel()

		pacer := crawl.NewPacer(100 * time.Millisecond)
		require.NoError(t, pacer.Wait(context.Background()))

		start := time.Now()
		require.NoError(t, pacer.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	})

	t.Run("never waits when interval is zero", func(t *testing.T) {
		t.Parallel()

		pacer := crawl.NewPacer(0)

		start := time.Now()
		for range 5 {
			require.NoError(t, pacer.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("nil pacer never waits", func(t *testing.T) {
		t.Parallel()

		var pacer *crawl.Pacer
		assert.NoError(t, pacer.Wait(context.Background()))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		pacer := crawl.NewPacer(time.Second)
		require.NoError(t, pacer.Wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := pacer.Wait(ctx)
		assert.Error(t, err)
	})
}
