package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
)

var analyzeRule = domain.Rule{ID: "analyze", RoutePrefix: "/api/analyze", MaxRequests: 10, Window: time.Minute}

func TestRateLimiter_DeniesRequestAfterLimit(t *testing.T) {
	l := RateLimiter{Store: infra.NewMemoryCounterStore()}
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	for i := 1; i <= analyzeRule.MaxRequests; i++ {
		dec, err := l.CheckAndConsume(ctx, "10.0.0.1", analyzeRule, start.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.True(t, dec.Allowed, "request %d", i)
		assert.Equal(t, analyzeRule.MaxRequests-i, dec.Remaining)
		assert.Equal(t, 10, dec.Limit)
		assert.Equal(t, start.Add(time.Second+time.Minute), dec.ResetAt)
	}

	now := start.Add(30 * time.Second)
	dec, err := l.CheckAndConsume(ctx, "10.0.0.1", analyzeRule, now)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, 31*time.Second, dec.RetryAfter)
}

func TestRateLimiter_ResetsAfterWindow(t *testing.T) {
	l := RateLimiter{Store: infra.NewMemoryCounterStore()}
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0)

	for i := 0; i < analyzeRule.MaxRequests; i++ {
		_, err := l.CheckAndConsume(ctx, "10.0.0.1", analyzeRule, start)
		require.NoError(t, err)
	}

	dec, err := l.CheckAndConsume(ctx, "10.0.0.1", analyzeRule, start.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, analyzeRule.MaxRequests-1, dec.Remaining)
	assert.Equal(t, start.Add(2*time.Minute), dec.ResetAt)
}

func TestRateLimiter_KeysByIdentityAndRule(t *testing.T) {
	l := RateLimiter{Store: infra.NewMemoryCounterStore()}
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	one := domain.Rule{ID: "one", RoutePrefix: "/one", MaxRequests: 1, Window: time.Minute}
	other := domain.Rule{ID: "other", RoutePrefix: "/other", MaxRequests: 1, Window: time.Minute}

	for _, tc := range []struct {
		identity string
		rule     domain.Rule
	}{{"a", one}, {"b", one}, {"a", other}} {
		dec, err := l.CheckAndConsume(ctx, tc.identity, tc.rule, now)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "%s/%s", tc.identity, tc.rule.ID)
	}

	dec, err := l.CheckAndConsume(ctx, "a", one, now)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
}

func TestRateLimiter_ConcurrentRequestsNeverExceedLimit(t *testing.T) {
	l := RateLimiter{Store: infra.NewMemoryCounterStore()}
	rule := domain.Rule{ID: "r", RoutePrefix: "/r", MaxRequests: 50, Window: time.Minute}
	now := time.Now()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 2*rule.MaxRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			dec, err := l.CheckAndConsume(context.Background(), "shared", rule, now)
			if err == nil && dec.Allowed {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(rule.MaxRequests), admitted.Load())
}

type failingStore struct{}

func (failingStore) Get(context.Context, domain.Key) (domain.Usage, bool, error) {
	return domain.Usage{}, false, domain.ErrStoreUnavailable
}

func (failingStore) Set(context.Context, domain.Key, domain.Usage) error {
	return domain.ErrStoreUnavailable
}

func (failingStore) Consume(context.Context, domain.Key, int, time.Duration, time.Time) (domain.Usage, bool, error) {
	return domain.Usage{}, false, domain.ErrStoreUnavailable
}

func TestRateLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := RateLimiter{Store: failingStore{}}
	now := time.Unix(1_700_000_000, 0)

	dec, err := l.CheckAndConsume(context.Background(), "10.0.0.1", analyzeRule, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.True(t, dec.Allowed)
	assert.Equal(t, analyzeRule.MaxRequests, dec.Remaining)
	assert.Equal(t, now.Add(time.Minute), dec.ResetAt)
}

func TestRateLimiter_AllowsWhenNoStore(t *testing.T) {
	dec, err := RateLimiter{}.CheckAndConsume(context.Background(), "x", analyzeRule, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}
