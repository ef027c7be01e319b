package repstate

import (
	"testing"
)

func TestBoundsNext(t *testing.T) {
	tests := []struct {
		in   Bounds
		want Bounds
	}{
		{Bounds{2, 3}, Bounds{1, 2}},
		{Bounds{0, 1}, Bounds{0, 0}},
		{Bounds{0, 0}, Bounds{0, 0}},
		{Bounds{1, Unbounded}, Bounds{0, Unbounded}},
		{Bounds{0, Unbounded}, Bounds{0, Unbounded}},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := tt.in.Next(); got != tt.want {
				t.Errorf("%v.Next() = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMapGet(t *testing.T) {
	table := []Bounds{{0, Unbounded}, {1, 1}, {2, 5}, {0, 0}, {3, Unbounded}}
	m := New(table)

	if m.Len() != len(table) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(table))
	}
	for i, want := range table {
		got, ok := m.Get(i)
		if !ok || got != want {
			t.Errorf("Get(%d) = %v, %v, want %v, true", i, got, ok, want)
		}
	}
	if _, ok := m.Get(len(table)); ok {
		t.Errorf("Get(%d) reported a key outside the table", len(table))
	}
	if _, ok := m.Get(-1); ok {
		t.Error("Get(-1) reported a key")
	}
}

func TestMapSetIsPersistent(t *testing.T) {
	table := make([]Bounds, 17)
	for i := range table {
		table[i] = Bounds{Min: i, Max: Unbounded}
	}
	v0 := New(table)
	v1 := v0.Set(9, Bounds{0, 0})
	v2 := v1.Set(16, Bounds{1, 1})

	for i := range table {
		got, _ := v0.Get(i)
		if got != table[i] {
			t.Errorf("v0.Get(%d) = %v, want %v (earlier version mutated)", i, got, table[i])
		}
	}
	if got, _ := v1.Get(9); got != (Bounds{0, 0}) {
		t.Errorf("v1.Get(9) = %v, want {0,0}", got)
	}
	if got, _ := v1.Get(16); got != table[16] {
		t.Errorf("v1.Get(16) = %v, want %v", got, table[16])
	}
	if got, _ := v2.Get(9); got != (Bounds{0, 0}) {
		t.Errorf("v2.Get(9) = %v, want {0,0}", got)
	}
	if got, _ := v2.Get(16); got != (Bounds{1, 1}) {
		t.Errorf("v2.Get(16) = %v, want {1,1}", got)
	}
}

func TestMapSetSharesStructure(t *testing.T) {
	m := New(make([]Bounds, 7))
	n := m.Set(0, Bounds{1, 1})

	// Key 0 lives in the left subtree of the root; the right one is untouched.
	if m.root.right != n.root.right {
		t.Error("Set copied an untouched subtree")
	}
	if m.root == n.root {
		t.Error("Set did not copy the root")
	}
}

func TestMapSetUnknownKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Set(3) on a 3-key map did not panic")
		}
	}()
	New(make([]Bounds, 3)).Set(3, Bounds{})
}

func TestMapString(t *testing.T) {
	m := New([]Bounds{{1, 2}, {0, Unbounded}})
	if got, want := m.String(), "[0:{1,2} 1:{0,}]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	var empty Map
	if got := empty.String(); got != "[]" {
		t.Errorf("empty String() = %q, want %q", got, "[]")
	}
}
