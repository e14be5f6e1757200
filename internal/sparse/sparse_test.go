package sparse

import (
	"testing"
)

func TestSparseSet_Basic(t *testing.T) {
	s := NewSparseSet(100)

	if !s.IsEmpty() {
		t.Error("new set should be empty")
	}
	if s.Contains(0) {
		t.Error("empty set should not contain 0")
	}
	if !s.Insert(5) {
		t.Error("first insert should return true")
	}
	if !s.Contains(5) {
		t.Error("set should contain 5 after insert")
	}
	if s.Insert(5) {
		t.Error("duplicate insert should return false")
	}
	if s.Len() != 1 {
		t.Errorf("len should be 1, got %d", s.Len())
	}

	s.Insert(10)
	s.Insert(3)
	if s.Len() != 3 {
		t.Errorf("len should be 3, got %d", s.Len())
	}

	s.Clear()
	if !s.IsEmpty() {
		t.Error("set should be empty after clear")
	}
	if s.Contains(5) {
		t.Error("cleared set should not contain 5")
	}
}

func TestSparseSet_OutOfRange(t *testing.T) {
	s := NewSparseSet(4)
	if s.Contains(4) || s.Contains(1000) {
		t.Error("values beyond capacity are never members")
	}
	if s.Capacity() != 4 {
		t.Errorf("capacity should be 4, got %d", s.Capacity())
	}
}

func TestSparseSet_Remove(t *testing.T) {
	s := NewSparseSet(10)
	s.Insert(1)
	s.Insert(2)
	s.Insert(3)

	s.Remove(1)
	s.Remove(9)

	if s.Contains(1) {
		t.Error("1 should be removed")
	}
	if !s.Contains(2) || !s.Contains(3) {
		t.Error("2 and 3 should survive removal of 1")
	}
	if got := s.Values(); len(got) != 2 || got[0] != 3 || got[1] != 2 {
		t.Errorf("expected [3 2] after swap-remove, got %v", got)
	}
}

func TestSparseSet_Clone(t *testing.T) {
	tests := []struct {
		name   string
		insert []uint32
	}{
		{"empty", nil},
		{"one", []uint32{2}},
		{"several", []uint32{4, 0, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSparseSet(8)
			for _, v := range tt.insert {
				s.Insert(v)
			}
			c := s.Clone()
			if c.Len() != s.Len() {
				t.Fatalf("clone len %d, want %d", c.Len(), s.Len())
			}
			for _, v := range tt.insert {
				if !c.Contains(v) {
					t.Errorf("clone missing %d", v)
				}
			}

			c.Insert(5)
			if s.Contains(5) {
				t.Error("insert into clone leaked into original")
			}
			s.Insert(6)
			if c.Contains(6) {
				t.Error("insert into original leaked into clone")
			}
		})
	}
}
