package curdle

import (
	"testing"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

const lazySource = `
kind: structure
children:
  - {kind: declare, name: a, value: {kind: call, callee: {kind: builtin, name: count}}}
  - {kind: declare, name: b, value: {kind: ref, name: a}}
  - {kind: declare, name: c, value: {kind: ref, name: a}}
`

func TestLazyMembersResolveOnce(t *testing.T) {
	s := newTestSession()
	calls := 0
	s.RegisterBuiltin(&Builtin{Name: "count", Call: func(lc *LocalContext, args []ast.Node, at ctypes.Coordinate) Value {
		calls++
		return lc.Session.comptimeInt(int64(calls))
	}})
	compileWith(t, s, lazySource, true)
	expectNoErrors(t, s)

	if calls != 1 {
		t.Fatalf("initializer ran %d times", calls)
	}
	for _, l := range s.Root.Lazies {
		if l.State != Resolved {
			t.Errorf("%s is %s", l.Name, l.State)
		}
	}
	b, c := s.Root.ComptimeVariables["b"].Value, s.Root.ComptimeVariables["c"].Value
	if !IsSameAs(b, c) || b.(*IntegerValue).Value.Int64() != 1 {
		t.Fatalf("b = %v, c = %v", b, c)
	}
}

func TestCircularDependency(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: declare, name: a, value: {kind: binary, op: "+", left: {kind: ref, name: b}, right: {kind: int, value: "1"}}}
  - {kind: declare, name: b, value: {kind: ref, name: a}}
`, true)
	expectError(t, s, errors.CircularDependency)
	for _, l := range s.Root.Lazies {
		if l.State == Resolving {
			t.Errorf("%s was left resolving", l.Name)
		}
	}
}

const pointSource = `
kind: structure
children:
  - kind: declare
    name: Point
    value:
      kind: structure
      children:
        - {kind: field, name: x, type: {kind: ref, name: i32}}
        - {kind: field, name: y, type: {kind: ref, name: i32}}
`

func TestAggregateInitialization(t *testing.T) {
	cases := []struct {
		name   string
		fields string
		code   errors.Code
	}{
		{"out of order", `[{name: y, value: {kind: int, value: "1"}}, {name: x, value: {kind: int, value: "2"}}]`, errors.OutOfOrderInitialization},
		{"incomplete", `[{name: x, value: {kind: int, value: "1"}}]`, errors.IncompleteInitialization},
		{"unknown field", `[{name: x, value: {kind: int, value: "1"}}, {name: y, value: {kind: int, value: "2"}}, {name: z, value: {kind: int, value: "3"}}]`, errors.InvalidField},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src := pointSource + "  - {kind: declare, name: p, value: {kind: construct, callee: {kind: ref, name: Point}, fields: " + c.fields + "}}\n"
			expectError(t, compile(t, src, true), c.code)
		})
	}
}

func TestRuntimeGlobalFromConstant(t *testing.T) {
	src := pointSource + `  - kind: declare
    name: origin
    value:
      kind: construct
      callee: {kind: ref, name: Point}
      fields: [{name: x, value: {kind: int, value: "3"}}, {name: y, value: {kind: int, value: "4"}}]
`
	s := compile(t, src, true)
	expectNoErrors(t, s)

	if len(s.Program.Globals) != 1 {
		t.Fatalf("expected one global, got %d", len(s.Program.Globals))
	}
	g := s.Program.Globals[0]
	if g.Name != "test_Dorigin" || !g.Constant {
		t.Fatalf("unexpected global %s (constant %t)", g.Name, g.Constant)
	}
	lit, ok := g.Init.(*bacteria.AggregateLiteral)
	if !ok || len(lit.Values) != 2 || lit.Values[1].(*bacteria.IntegerLiteral).Value.Int64() != 4 {
		t.Fatalf("unexpected initializer %s", bacteria.Dump(g.Init))
	}
	if _, ok := s.Root.TopLevelVariables["origin"]; !ok {
		t.Fatal("origin is not a top-level variable")
	}
}

func TestStructureStaticMembers(t *testing.T) {
	src := pointSource + `  - kind: declare
    name: size
    value: {kind: subscript, left: {kind: ref, name: Point}, right: {kind: ref, name: __size__}}
  - kind: declare
    name: name
    value: {kind: subscript, left: {kind: ref, name: Point}, right: {kind: ref, name: __name__}}
`
	s := compile(t, src, true)
	expectNoErrors(t, s)

	if v := s.Root.ComptimeVariables["size"].Value; v.(*IntegerValue).Value.Int64() != 8 {
		t.Errorf("Point.__size__ = %v", v)
	}
	if v := s.Root.ComptimeVariables["name"].Value; v.(*StringValue).Value != "test.Point" {
		t.Errorf("Point.__name__ = %v", v)
	}
}

func TestConflictingFields(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: field, name: x, type: {kind: ref, name: i32}}
  - {kind: field, name: x, type: {kind: ref, name: i64}}
`, true)
	expectError(t, s, errors.ConflictingDefinition)
}

func TestEntryInNestedStructure(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - kind: declare
    name: app
    value:
      kind: structure
      children:
        - {kind: function, name: start, entry: true, body: {kind: block}}
`, false)
	expectNoErrors(t, s)
	if s.Entry == nil || s.Program.Entry != "test_Dapp_Dstart_rvoid" {
		t.Fatalf("unexpected entry %q", s.Program.Entry)
	}
}

func TestMissingEntry(t *testing.T) {
	s := compile(t, `{kind: structure, children: []}`, false)
	expectError(t, s, errors.NoEntryPoint)
}

func TestDeclaredLiteralInitialization(t *testing.T) {
	cases := []struct {
		name  string
		value string
		code  errors.Code
	}{
		{"out of order", `{kind: object, fields: [{name: y, value: {kind: int, value: "1"}}, {name: x, value: {kind: int, value: "2"}}]}`, errors.OutOfOrderInitialization},
		{"incomplete", `{kind: object, fields: [{name: x, value: {kind: int, value: "1"}}]}`, errors.IncompleteInitialization},
		{"unknown field", `{kind: object, fields: [{name: x, value: {kind: int, value: "1"}}, {name: z, value: {kind: int, value: "2"}}]}`, errors.InvalidField},
		{"short tuple", `{kind: tuple, elements: [{kind: int, value: "1"}]}`, errors.IncompleteInitialization},
		{"long tuple", `{kind: tuple, elements: [{kind: int, value: "1"}, {kind: int, value: "2"}, {kind: int, value: "3"}]}`, errors.InvalidField},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src := pointSource + "  - {kind: declare, name: p, type: {kind: ref, name: Point}, value: " + c.value + "}\n"
			s := compile(t, src, true)
			expectError(t, s, c.code)
			if len(s.Program.Globals) != 0 {
				t.Errorf("rejected initializer declared %d globals", len(s.Program.Globals))
			}
		})
	}
}

func TestDeclaredLiteralInFunction(t *testing.T) {
	src := pointSource + `  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - kind: declare
          name: p
          mutable: true
          type: {kind: ref, name: Point}
          value: {kind: object, fields: [{name: y, value: {kind: int, value: "1"}}, {name: x, value: {kind: int, value: "2"}}]}
        - kind: declare
          name: q
          mutable: true
          type: {kind: ref, name: Point}
          value: {kind: object, fields: [{name: x, value: {kind: int, value: "1"}}, {name: y, value: {kind: int, value: "2"}}]}
`
	s := compile(t, src, false)
	expectError(t, s, errors.OutOfOrderInitialization)
	for _, d := range s.Diagnostics {
		if d.Code == errors.InvalidCast {
			t.Errorf("record literal reported as a cast: %s", d.Message)
		}
	}

	var q *bacteria.VariableInitialization
	for _, n := range entryBody(t, s) {
		if init, ok := n.(*bacteria.VariableInitialization); ok && init.Name == "q" {
			q = init
		}
	}
	if q == nil {
		t.Fatal("q was not lowered")
	}
	if lit, ok := q.Value.(*bacteria.AggregateLiteral); !ok || len(lit.Values) != 2 {
		t.Fatalf("unexpected initializer %s", bacteria.Dump(q.Value))
	}
}

func TestFailedGlobalIsNotDeclared(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: declare, name: big, mutable: true, value: {kind: int, value: "99999999999999999999"}}
  - {kind: function, name: f, public: true, return: {kind: ref, name: i64}, body: {kind: ref, name: big}}
  - {kind: function, name: g, public: true, return: {kind: ref, name: i64}, body: {kind: ref, name: big}}
`, true)
	expectError(t, s, errors.InvalidCast)
	for _, g := range s.Program.Globals {
		if g.Name == "test_Dbig" {
			t.Fatalf("global %s was declared for a rejected initializer", g.Name)
		}
	}
	if _, ok := s.Root.TopLevelVariables["big"]; ok {
		t.Error("big is bound after failing")
	}
}
