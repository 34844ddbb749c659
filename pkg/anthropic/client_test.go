package anthropic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{
		InputTokens:  1_000_000,
		OutputTokens: 1_000_000,
	}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 4.80, cost, 0.001)

	assert.Zero(t, usage.EstimateCost("unknown-model"))
}

func TestEstimateCostWithCache(t *testing.T) {
	usage := TokenUsage{
		InputTokens:              100_000,
		OutputTokens:             50_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     1_000_000,
	}

	// sonnet: in 3.00, out 15.00; cache write ×1.25, cache read ×0.1
	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	expected := 0.1*3.00 + 0.05*15.00 + 0.2*3.00*1.25 + 1.0*3.00*0.1
	assert.InDelta(t, expected, cost, 0.0001)
}

type countingClient struct {
	mu    sync.Mutex
	calls int
}

func (c *countingClient) CreateMessage(_ context.Context, _ MessageRequest) (*MessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &MessageResponse{ID: "msg_test"}, nil
}

func TestRateLimitedClientPassthrough(t *testing.T) {
	inner := &countingClient{}
	client := NewRateLimitedClient(inner, 0, 0)

	// rpm <= 0 disables wrapping entirely
	assert.Same(t, Client(inner), client)
}

func TestRateLimitedClientDelaysBeyondBurst(t *testing.T) {
	inner := &countingClient{}
	// 600 rpm = 10 req/s, burst 1: second call must wait ~100ms
	client := NewRateLimitedClient(inner, 600, 1)

	ctx := context.Background()
	start := time.Now()
	for range 2 {
		_, err := client.CreateMessage(ctx, MessageRequest{})
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.Equal(t, 2, inner.calls)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestRateLimitedClientContextCanceled(t *testing.T) {
	inner := &countingClient{}
	client := NewRateLimitedClient(inner, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := client.CreateMessage(ctx, MessageRequest{})
	require.NoError(t, err)

	cancel()
	_, err = client.CreateMessage(ctx, MessageRequest{})
	require.Error(t, err)
	assert.Zero(t, inner.calls-1)
}
