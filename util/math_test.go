package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeAddInt64(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		sum  int64
		ok   bool
	}{
		{"both zero", 0, 0, 0, true},
		{"positive", 40, 2, 42, true},
		{"mixed signs", -40, 2, -38, true},
		{"max plus zero", math.MaxInt64, 0, math.MaxInt64, true},
		{"overflow", math.MaxInt64, 1, 0, false},
		{"underflow", math.MinInt64, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, ok := SafeAddInt64(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.sum, sum)
			}
		})
	}
}

func TestSafeSubInt64(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		diff int64
		ok   bool
	}{
		{"both zero", 0, 0, 0, true},
		{"negative result", 1, 42, -41, true},
		{"min minus zero", math.MinInt64, 0, math.MinInt64, true},
		{"underflow", math.MinInt64, 1, 0, false},
		{"overflow", math.MaxInt64, -1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, ok := SafeSubInt64(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.diff, diff)
			}
		})
	}
}

func TestToInt64(t *testing.T) {
	v, ok := ToInt64(42)
	require.True(t, ok)
	require.EqualValues(t, 42, v)

	v, ok = ToInt64(math.MaxInt64)
	require.True(t, ok)
	require.EqualValues(t, int64(math.MaxInt64), v)

	_, ok = ToInt64(uint64(math.MaxInt64) + 1)
	require.False(t, ok)
}
