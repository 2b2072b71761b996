package names

import (
	"strings"
	"testing"
)

func TestEscapeTableIsBijective(t *testing.T) {
	seen := map[byte]byte{}
	for from, to := range escapes {
		if other, ok := seen[to]; ok {
			t.Fatalf("%q and %q share escape %q", from, other, to)
		}
		seen[to] = from
		if to == argumentMarker || to == returnMarker || to == hexMarker {
			t.Fatalf("%q uses reserved escape %q", from, to)
		}
	}
}

func TestMangleIsLinkerSafe(t *testing.T) {
	got := Mangle("std.math.add", []string{"i32", "&const i64"}, "(i32, i64)", false)
	for i := 0; i < len(got); i++ {
		if !isSafe(got[i]) && got[i] != '_' {
			t.Fatalf("unsafe byte %q in %q", got[i], got)
		}
	}
}

func TestExternKeepsName(t *testing.T) {
	if got := Mangle("puts", []string{"*u8"}, "i32", true); got != "puts" {
		t.Fatalf("got %q", got)
	}
}

func TestUnmangleFunctionOrdering(t *testing.T) {
	cases := []struct {
		path string
		args []string
		ret  string
	}{
		{"main", nil, "void"},
		{"std.io.print", []string{"comptime_string"}, "void"},
		{"a_b.c__d", []string{"i32", "u8", "f64"}, "i64"},
		{"::(a+b):fn", []string{"const &::(a+b)", "(x: i32, y: i64)"}, "[2, 3]f32"},
		{"weirdéname", []string{"%$#@!"}, "{x}"},
	}

	for _, c := range cases {
		got := UnmangleFunction(Mangle(c.path, c.args, c.ret, false))

		if !strings.HasPrefix(got, c.path) {
			t.Errorf("%q does not start with path %q", got, c.path)
			continue
		}
		want := c.path
		if len(c.args) > 0 {
			want += " " + strings.Join(c.args, ", ")
		}
		want += " => " + c.ret
		if got != want {
			t.Errorf("got %q, expected %q", got, want)
		}
	}
}

func TestUnmangleVariable(t *testing.T) {
	path := "std.collections.list_node"
	if got := UnmangleVariable(MangleVariable(path)); got != path {
		t.Fatalf("got %q", got)
	}
}

func TestCombineNames(t *testing.T) {
	if CombineNames("", "main") != "main" {
		t.Fatal("empty parent should yield the child")
	}
	if CombineNames("std", "io") != "std.io" {
		t.Fatal("expected dotted path")
	}
}
