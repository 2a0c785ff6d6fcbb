package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startLoop(t *testing.T, c *Chain, notify func(Notice)) (*Loop, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(c, notify)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	t.Cleanup(stop)
	return loop, stop
}

func TestLoopSettlesLoads(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newLocationChain(t)
	loop, stop := startLoop(t, f.chain, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, loop.Init(ctx))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.Select(ctx, "state", "Karnataka"))
	require.NoError(t, loop.Settle(ctx))

	var opts []Option
	var enabled bool
	require.NoError(t, loop.View(ctx, func(c *Chain) {
		opts = c.Options("district")
		enabled = c.Enabled("district")
	}))
	require.True(t, enabled)
	require.Equal(t, []string{"Select District", "Bangalore", "Mysore"}, labels(opts))

	stop()
}

func TestLoopDeliversNotices(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newLocationChain(t)
	f.districts.err = &BackendError{Status: 500, Message: "boom"}

	var mu sync.Mutex
	var notices []Notice
	loop, stop := startLoop(t, f.chain, func(n Notice) {
		mu.Lock()
		defer mu.Unlock()
		notices = append(notices, n)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, loop.Init(ctx))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.Select(ctx, "state", "Karnataka"))
	require.NoError(t, loop.Settle(ctx))

	mu.Lock()
	require.Len(t, notices, 1)
	require.Equal(t, "district", notices[0].Stage)
	require.Equal(t, LevelError, notices[0].Level)
	mu.Unlock()

	err := loop.Reload(ctx, "taluk")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	stop()
}

func TestLoopDropsLateResponse(t *testing.T) {
	defer goleak.VerifyNone(t)

	gate := make(chan struct{})
	districts := FetcherFunc(func(ctx context.Context, upstream []string) ([]Option, error) {
		if upstream[0] == "Karnataka" {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return toOptions("Bangalore", "Mysore"), nil
		}
		return toOptions("Ernakulam", "Kollam"), nil
	})
	c, err := New([]Stage{
		{Key: "state", Fetch: &tableFetcher{data: map[string][]string{"": {"Karnataka", "Kerala"}}}},
		{Key: "district", DependsOn: []string{"state"}, Fetch: districts},
	})
	require.NoError(t, err)

	loop, stop := startLoop(t, c, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, loop.Init(ctx))
	require.NoError(t, loop.Settle(ctx))
	require.NoError(t, loop.Select(ctx, "state", "Karnataka"))
	require.NoError(t, loop.Select(ctx, "state", "Kerala"))

	districtLabels := func() []string {
		var out []string
		require.NoError(t, loop.View(ctx, func(c *Chain) { out = labels(c.Options("district")) }))
		return out
	}
	require.Eventually(t, func() bool {
		return len(districtLabels()) == 3
	}, time.Second, 5*time.Millisecond)

	close(gate)
	require.NoError(t, loop.Settle(ctx))
	require.Equal(t, []string{"Select District", "Ernakulam", "Kollam"}, districtLabels())

	stop()
}

func TestLoopClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newLocationChain(t)
	loop, stop := startLoop(t, f.chain, nil)
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := loop.Select(ctx, "state", "Karnataka")
	require.True(t, errors.Is(err, ErrLoopClosed))
}
