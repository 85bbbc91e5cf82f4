package domain

import (
	"slices"
	"testing"
)

func TestSet_Basic(t *testing.T) {
	s := NewSet(3, 1, 2)

	if s.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", s.Len())
	}
	if !s.Has(1) || !s.Has(2) || !s.Has(3) {
		t.Error("expected 1, 2, 3 to be members")
	}
	if s.Has(4) {
		t.Error("4 should not be a member")
	}

	s.Add(4, 4)
	if s.Len() != 4 {
		t.Errorf("expected 4 items after Add, got %d", s.Len())
	}

	s.Remove(1, 100)
	if s.Has(1) {
		t.Error("1 should be removed")
	}
}

func TestSet_NilRead(t *testing.T) {
	var s Set[int]
	if s.Has(1) {
		t.Error("nil set should not contain anything")
	}
	if s.Len() != 0 {
		t.Error("nil set should be empty")
	}
	if got := s.Clone(); got == nil || got.Len() != 0 {
		t.Error("Clone of nil set should return empty non-nil set")
	}
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewSet(1, 2)
	c := s.Clone()
	c.Add(3)

	if s.Has(3) {
		t.Error("modifying clone must not affect original")
	}
	if !c.Equal(NewSet(1, 2, 3)) {
		t.Errorf("unexpected clone content: %v", Sorted(c))
	}
}

func TestSet_Operations(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Set[int]
		union    []int
		diff     []int
		missing  int
	}{
		{
			name:    "disjoint",
			a:       NewSet(1, 2),
			b:       NewSet(3),
			union:   []int{1, 2, 3},
			diff:    []int{1, 2},
			missing: 2,
		},
		{
			name:    "overlap",
			a:       NewSet(1, 2, 3),
			b:       NewSet(2, 3, 4),
			union:   []int{1, 2, 3, 4},
			diff:    []int{1},
			missing: 1,
		},
		{
			name:    "subset",
			a:       NewSet(2),
			b:       NewSet(1, 2),
			union:   []int{1, 2},
			diff:    []int{},
			missing: 0,
		},
		{
			name:    "nil right side",
			a:       NewSet(5),
			b:       nil,
			union:   []int{5},
			diff:    []int{5},
			missing: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sorted(Union(tt.a, tt.b)); !slices.Equal(got, tt.union) {
				t.Errorf("Union = %v, want %v", got, tt.union)
			}
			if got := Sorted(Difference(tt.a, tt.b)); !slices.Equal(got, tt.diff) {
				t.Errorf("Difference = %v, want %v", got, tt.diff)
			}
			if got := CountMissing(tt.a, tt.b); got != tt.missing {
				t.Errorf("CountMissing = %d, want %d", got, tt.missing)
			}
		})
	}
}

func TestSet_Equal(t *testing.T) {
	if !NewSet(1, 2).Equal(NewSet(2, 1)) {
		t.Error("sets with same items should be equal")
	}
	if NewSet(1, 2).Equal(NewSet(1, 3)) {
		t.Error("sets with different items should differ")
	}
	if NewSet(1).Equal(NewSet(1, 2)) {
		t.Error("sets with different sizes should differ")
	}
}

func TestBuckets(t *testing.T) {
	b := NewBuckets[int, int]()
	b.Push(0, 1)
	b.Push(0, 2)
	b.Push(0, 2)
	b.Push(5, 7)

	if !b.Has(0, 1) || !b.Has(0, 2) || !b.Has(5, 7) {
		t.Error("pushed pairs should be present")
	}
	if b.Has(1, 0) {
		t.Error("missing bucket should not contain anything")
	}
	if b.Size(0) != 2 {
		t.Errorf("bucket 0 size = %d, want 2", b.Size(0))
	}
	if !b.HasKey(5) || b.HasKey(6) {
		t.Error("HasKey mismatch")
	}
	if b.Get(6) != nil {
		t.Error("Get of missing bucket should be nil")
	}
	if b.Pairs() != 3 {
		t.Errorf("Pairs = %d, want 3", b.Pairs())
	}
}

func TestTally(t *testing.T) {
	tally := NewTally[int]()
	tally.Vote(1)
	tally.Vote(1)
	tally.Vote(3)

	if tally.Count(1) != 2 || tally.Count(3) != 1 || tally.Count(2) != 0 {
		t.Errorf("unexpected counts: %v", tally)
	}
	if tally.Total() != 3 {
		t.Errorf("Total = %d, want 3", tally.Total())
	}
	if got := Sorted(tally.Keys()); !slices.Equal(got, []int{1, 3}) {
		t.Errorf("Keys = %v, want [1 3]", got)
	}
}
