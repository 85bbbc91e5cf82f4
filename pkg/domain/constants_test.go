package domain

import "testing"

func TestIsReachable(t *testing.T) {
	tests := []struct {
		level    int
		expected bool
	}{
		{0, true},
		{1, true},
		{LevelInfinity - 1, true},
		{LevelInfinity, false},
		{LevelInfinity + 1, false},
	}

	for _, tt := range tests {
		if got := IsReachable(tt.level); got != tt.expected {
			t.Errorf("IsReachable(%d) = %v, want %v", tt.level, got, tt.expected)
		}
	}
}

func TestPredecessorSentinels(t *testing.T) {
	if PredecessorPOI >= 0 || PredecessorNone >= 0 {
		t.Error("predecessor sentinels must not collide with sensor ids")
	}
	if PredecessorPOI == PredecessorNone {
		t.Error("predecessor sentinels must differ")
	}
}
