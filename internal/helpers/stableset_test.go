package helpers

import (
	"slices"
	"testing"
)

func TestStableSet_OrderAndDedup(t *testing.T) {
	s := NewStableSet("b", "a", "b", "c", "a")

	if s.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", s.Len())
	}
	if got := s.Items(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("expected insertion order [b a c], got %v", got)
	}
}

func TestStableSet_AddAndContains(t *testing.T) {
	s := NewStableSet[int]()
	s.Add(1, 2)
	s.Add(2, 3)

	if !s.Contains(1) || !s.Contains(3) {
		t.Error("expected set to contain added elements")
	}
	if s.Contains(4) {
		t.Error("expected 4 to be absent")
	}
	if got := s.Items(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", got)
	}
}

func TestStableSet_ItemsIsCopy(t *testing.T) {
	s := NewStableSet(1, 2, 3)
	items := s.Items()
	items[0] = 99

	if got := s.Items(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("mutating the returned slice must not affect the set, got %v", got)
	}
}

func TestStableSet_Union(t *testing.T) {
	a := NewStableSet(1, 2)
	b := NewStableSet(2, 3)
	c := NewStableSet(4)

	u := a.Union(b, c)
	if got := u.Items(); !slices.Equal(got, []int{1, 2, 3, 4}) {
		t.Errorf("expected [1 2 3 4], got %v", got)
	}
	// Union does not mutate its receiver.
	if got := a.Items(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("receiver mutated: %v", got)
	}
}

func TestSetOnce(t *testing.T) {
	var c SetOnce[string]

	if _, ok := c.Get(); ok {
		t.Error("fresh cell should be unset")
	}
	if err := c.Set("first"); err != nil {
		t.Fatalf("first set failed: %v", err)
	}
	if v, ok := c.Get(); !ok || v != "first" {
		t.Errorf("expected (first, true), got (%q, %v)", v, ok)
	}
	if err := c.Set("second"); err == nil {
		t.Error("second set should fail")
	}
	if v, _ := c.Get(); v != "first" {
		t.Errorf("failed set must not overwrite, got %q", v)
	}
}
