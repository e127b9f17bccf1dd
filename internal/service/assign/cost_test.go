package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanDuration(t *testing.T) {
	tests := []struct {
		days    int
		wantKey string
		ok      bool
	}{
		{1, "1w", true},
		{7, "1w", true},
		{8, "1m", true},
		{30, "1m", true},
		{31, "3m", true},
		{365, "1y", true},
		{366, "", false},
	}
	for _, tt := range tests {
		key, _, ok := spanDuration(testDurations, tt.days)
		assert.Equal(t, tt.ok, ok, "days=%d", tt.days)
		assert.Equal(t, tt.wantKey, key, "days=%d", tt.days)
	}
}

func TestLargestDuration(t *testing.T) {
	key, d, ok := largestDuration(testDurations)
	assert.True(t, ok)
	assert.Equal(t, "1y", key)
	assert.Equal(t, 365, d.Days)

	_, _, ok = largestDuration(nil)
	assert.False(t, ok)
}

func TestInterpolateCost(t *testing.T) {
	// floors to whole credits
	assert.Equal(t, 80, interpolateCost(40, 365, 730))
	assert.Equal(t, 43, interpolateCost(40, 365, 400))
	assert.Equal(t, 40, interpolateCost(40, 0, 999))
}
