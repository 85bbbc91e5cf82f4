package cache

import (
	"strings"
	"testing"
)

func TestInstanceHash(t *testing.T) {
	t.Run("empty key", func(t *testing.T) {
		if hash := InstanceHash(""); hash != "" {
			t.Errorf("InstanceHash(\"\") = %v, want empty string", hash)
		}
	})

	t.Run("stable and distinct", func(t *testing.T) {
		a := InstanceHash("1 3 1;10 2 3;7")
		if a != InstanceHash("1 3 1;10 2 3;7") {
			t.Error("same key should produce same hash")
		}
		if a == InstanceHash("1 3 1;10 2 3;6") {
			t.Error("different keys should produce different hashes")
		}
		if len(a) != 16 {
			t.Errorf("expected 16 hex chars, got %d", len(a))
		}
	})
}

func TestExclusionHash(t *testing.T) {
	if ExclusionHash(nil) != "-" {
		t.Error("empty exclusion should hash to '-'")
	}
	// Порядок и повторы не важны
	if ExclusionHash([]int{3, 1, 2}) != ExclusionHash([]int{1, 2, 3, 3}) {
		t.Error("exclusion hash should ignore order and duplicates")
	}
	if ExclusionHash([]int{1}) == ExclusionHash([]int{2}) {
		t.Error("different exclusions should differ")
	}
}

func TestBuildResultKey(t *testing.T) {
	key := BuildResultKey("1 3 1;10 2 3;7", "min_flood", 2, 3, nil)

	parts := strings.Split(key, ":")
	if len(parts) != 5 {
		t.Fatalf("unexpected key layout %q", key)
	}
	if parts[0] != "result" || parts[1] != "min_flood" || parts[3] != "k2m3" || parts[4] != "-" {
		t.Errorf("unexpected key %q", key)
	}
	if !matchPattern(InstancePattern("1 3 1;10 2 3;7"), key) {
		t.Error("instance pattern should match the key")
	}
	if matchPattern(InstancePattern("other"), key) {
		t.Error("pattern of another instance should not match")
	}
}

func TestShortHash(t *testing.T) {
	if len(ShortHash([]byte("x"))) != 16 {
		t.Error("ShortHash should be 16 chars")
	}
}
