package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewClient_RateLimiter(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:8899", RequestsPerSecond: 5})
	require.NotNil(t, c.limiter)
	assert.Equal(t, rate.Limit(5), c.limiter.Limit())
}

func TestNewClient_NoRateLimitByDefault(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:8899"})
	assert.Nil(t, c.limiter)
}
