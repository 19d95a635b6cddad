package ratelimiter

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock はテスト用の時計です。advance が true の場合、sleep 呼び出しで時間を進めます。
type fakeClock struct {
	mu      sync.Mutex
	t       time.Time
	advance bool
	sleeps  []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.advance {
		c.t = c.t.Add(d)
	}
	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sleeps)
}

func newTestLimiter(limit int, interval time.Duration, advance bool) (*RateLimiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), advance: advance}
	rl := NewRateLimiter(limit, interval)
	rl.now = clk.now
	rl.sleep = clk.sleep
	return rl, clk
}

func TestRateLimiter_UnderLimitDoesNotWait(t *testing.T) {
	t.Parallel()

	rl, clk := newTestLimiter(3, time.Minute, true)
	for range 3 {
		require.NoError(t, rl.WaitIfNeeded(context.Background()))
	}
	assert.Empty(t, clk.recorded())
}

func TestRateLimiter_OverLimitWaitsForNextToken(t *testing.T) {
	t.Parallel()

	// 2回/分 → 30秒ごとに1トークン
	rl, clk := newTestLimiter(2, time.Minute, true)
	ctx := context.Background()

	require.NoError(t, rl.WaitIfNeeded(ctx))
	require.NoError(t, rl.WaitIfNeeded(ctx))
	require.NoError(t, rl.WaitIfNeeded(ctx))

	sleeps := clk.recorded()
	require.Len(t, sleeps, 1)
	assert.Equal(t, 30*time.Second, sleeps[0])
}

func TestRateLimiter_TokensRefill(t *testing.T) {
	t.Parallel()

	rl, clk := newTestLimiter(1, time.Second, true)
	ctx := context.Background()

	require.NoError(t, rl.WaitIfNeeded(ctx))
	clk.add(time.Second)
	require.NoError(t, rl.WaitIfNeeded(ctx))
	assert.Empty(t, clk.recorded())
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	for _, rl := range []*RateLimiter{NewRateLimiter(0, time.Minute), NewRateLimiter(5, 0)} {
		for range 100 {
			require.NoError(t, rl.WaitIfNeeded(context.Background()))
		}
	}

	var nilLimiter *RateLimiter
	assert.NoError(t, nilLimiter.WaitIfNeeded(context.Background()))
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, rl.WaitIfNeeded(ctx))
	cancel()
	err := rl.WaitIfNeeded(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_ConcurrentWaitersDoNotSerialize(t *testing.T) {
	t.Parallel()

	// 10回/分 → 6秒ごとに1トークン。時間を進めないため、全員が同じ時刻に予約する
	rl, clk := newTestLimiter(10, time.Minute, false)
	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rl.WaitIfNeeded(context.Background())
		}()
	}
	wg.Wait()

	// バースト10回は待機なし、残り15回はそれぞれ異なる待ち時間を予約する
	sleeps := clk.recorded()
	require.Len(t, sleeps, 15)
	slices.Sort(sleeps)
	assert.Equal(t, 6*time.Second, sleeps[0])
	assert.Equal(t, 90*time.Second, sleeps[14])
}

// TestRateLimiter_SleeperDoesNotBlockOthers は待機中の呼び出しがあっても、トークンが利用可能な呼び出しはすぐに戻ることを検証します。
func TestRateLimiter_SleeperDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	rl, clk := newTestLimiter(1, time.Minute, false)
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	rl.sleep = func(ctx context.Context, d time.Duration) error {
		entered <- struct{}{}
		<-release
		return nil
	}

	require.NoError(t, rl.WaitIfNeeded(context.Background()))

	done := make(chan error, 1)
	go func() { done <- rl.WaitIfNeeded(context.Background()) }()
	<-entered

	// 1分後には次のトークンが利用可能。待機中の呼び出しがいてもブロックされない
	clk.add(2 * time.Minute)
	finished := make(chan error, 1)
	go func() { finished <- rl.WaitIfNeeded(context.Background()) }()
	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("caller blocked behind a sleeping waiter")
	}

	close(release)
	require.NoError(t, <-done)
}
