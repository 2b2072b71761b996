package types

import "testing"

func TestFileTableInterning(t *testing.T) {
	ft := NewFileTable()

	a := ft.Intern("main.ctree")
	b := ft.Intern("lib/std.ctree")
	if a == b {
		t.Fatalf("distinct paths share index %d", a)
	}
	if again := ft.Intern("main.ctree"); again != a {
		t.Fatalf("re-interning gave %d, expected %d", again, a)
	}
	if ft.Name(b) != "lib/std.ctree" {
		t.Fatalf("got name %q", ft.Name(b))
	}
	if ft.Name(99) != "<unknown>" {
		t.Fatalf("out of range index should be unknown")
	}
}

func TestDescribe(t *testing.T) {
	ft := NewFileTable()
	idx := ft.Intern("a.ctree")

	got := ft.Describe(Coordinate{File: idx, Line: 3, Column: 7})
	if got != "a.ctree:3:7" {
		t.Fatalf("got %q", got)
	}
	if !(Coordinate{}).IsZero() {
		t.Fatalf("zero coordinate should report IsZero")
	}
}
