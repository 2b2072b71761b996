package curdle

import (
	"testing"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
)

func calls(nodes []bacteria.Node) []*bacteria.NormalCall {
	var ret []*bacteria.NormalCall
	for _, n := range nodes {
		if c, ok := n.(*bacteria.NormalCall); ok {
			ret = append(ret, c)
		}
	}
	return ret
}

const overloadSource = `
kind: structure
children:
  - {kind: function, name: f, args: [{name: x, type: {kind: ref, name: i32}}], body: {kind: block}}
  - {kind: function, name: f, args: [{name: x, type: {kind: ref, name: i64}}], body: {kind: block}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - {kind: call, callee: {kind: ref, name: f}, args: [{kind: int, value: "1"}]}
        - {kind: call, callee: {kind: ref, name: f}, args: [{kind: int, value: "2"}]}
`

func TestOverloadPrefersCheaperConversion(t *testing.T) {
	s := compile(t, overloadSource, false)
	expectNoErrors(t, s)

	fs := s.Root.FunctionSets["f"]
	if got := fs.Templates[0].Instances(); got != 0 {
		t.Errorf("f(i32) instantiated %d times", got)
	}
	if got := fs.Templates[1].Instances(); got != 1 {
		t.Errorf("f(i64) instantiated %d times", got)
	}

	cs := calls(entryBody(t, s))
	if len(cs) != 2 {
		t.Fatalf("expected two calls, got %d", len(cs))
	}
	for _, c := range cs {
		if c.Function != "test_Df_ai64_rvoid" {
			t.Errorf("call to %s", c.Function)
		}
		lit, ok := c.Args[0].(*bacteria.IntegerLiteral)
		if !ok || lit.Typ.BitSize != 64 {
			t.Errorf("argument %s was not materialized as i64", bacteria.Dump(c.Args[0]))
		}
	}
	if s.Program.Function("test_Df_ai64_rvoid") == nil {
		t.Error("f(i64) was not added to the program")
	}
}

func TestExactMatchWins(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: function, name: f, args: [{name: x, type: {kind: ref, name: i64}}], body: {kind: block}}
  - {kind: function, name: f, args: [{name: x, type: {kind: ref, name: i32}}], body: {kind: block}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - {kind: define, name: v, type: {kind: ref, name: i32}}
        - {kind: call, callee: {kind: ref, name: f}, args: [{kind: ref, name: v}]}
`, false)
	expectNoErrors(t, s)

	cs := calls(entryBody(t, s))
	if len(cs) != 1 || cs[0].Function != "test_Df_ai32_rvoid" {
		t.Fatalf("unexpected calls %v", cs)
	}
}

func TestAmbiguousCall(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: function, name: f, args: [{name: x, type: {kind: ref, name: i32}}], body: {kind: block}}
  - {kind: function, name: f, args: [{name: y, type: {kind: ref, name: i32}}], body: {kind: block}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - {kind: call, callee: {kind: ref, name: f}, args: [{kind: int, value: "1"}]}
`, false)
	expectError(t, s, errors.AmbiguousFunctionCall)
}

func TestMismatchedCall(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: function, name: f, args: [{name: x, type: {kind: ref, name: i32}}], body: {kind: block}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - {kind: call, callee: {kind: ref, name: f}, args: [{kind: bool, value: true}]}
        - {kind: call, callee: {kind: ref, name: f}, args: []}
`, false)
	expectError(t, s, errors.MismatchedFunctionCall)
	if got := s.Root.FunctionSets["f"].Templates[0].Instances(); got != 0 {
		t.Errorf("f was instantiated %d times", got)
	}
}

func TestComptimeArguments(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - kind: function
    name: id
    args:
      - {name: T, type: {kind: ref, name: type}, comptime: true}
      - {name: x, type: {kind: ref, name: T}}
    return: {kind: ref, name: T}
    body: {kind: ref, name: x}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - {kind: declare, name: a, mutable: true, value: {kind: call, callee: {kind: ref, name: id}, args: [{kind: ref, name: i32}, {kind: int, value: "5"}]}}
        - {kind: declare, name: b, mutable: true, value: {kind: call, callee: {kind: ref, name: id}, args: [{kind: ref, name: i32}, {kind: int, value: "6"}]}}
        - {kind: declare, name: c, mutable: true, value: {kind: call, callee: {kind: ref, name: id}, args: [{kind: ref, name: u8}, {kind: int, value: "7"}]}}
`, false)
	expectNoErrors(t, s)

	tpl := s.Root.FunctionSets["id"].Templates[0]
	if got := tpl.Instances(); got != 2 {
		t.Fatalf("id instantiated %d times", got)
	}

	body := entryBody(t, s)
	if len(body) != 3 {
		t.Fatalf("expected three initializations, got %d", len(body))
	}
	var names []string
	for _, n := range body {
		init := n.(*bacteria.VariableInitialization)
		call := init.Value.(*bacteria.NormalCall)
		if len(call.Args) != 1 {
			t.Errorf("%s passes %d arguments", call.Function, len(call.Args))
		}
		names = append(names, call.Function)
	}
	if names[0] != names[1] || names[0] == names[2] {
		t.Errorf("unexpected instances %v", names)
	}
	if names[0] != "test_Did_acomptime_Si32_ai32_ri32" {
		t.Errorf("unexpected mangled name %s", names[0])
	}

	fn := s.Program.Function(names[2])
	if fn == nil || len(fn.Params) != 1 {
		t.Fatalf("id(u8) has no single run-time parameter")
	}
	if _, ok := fn.Body[0].(*bacteria.Return); !ok {
		t.Errorf("id(u8) body is %s", bacteria.Dump(fn.Body[0]))
	}
}

func TestComposedCall(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: function, name: double, args: [{name: x, type: {kind: ref, name: i64}}], return: {kind: ref, name: i64}, body: {kind: binary, op: "*", left: {kind: ref, name: x}, right: {kind: int, value: "2"}}}
  - {kind: function, name: square, args: [{name: x, type: {kind: ref, name: i64}}], return: {kind: ref, name: i64}, body: {kind: binary, op: "*", left: {kind: ref, name: x}, right: {kind: ref, name: x}}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - kind: declare
          name: r
          mutable: true
          type: {kind: ref, name: i64}
          value:
            kind: call
            callee: {kind: binary, op: "+", left: {kind: ref, name: double}, right: {kind: ref, name: square}}
            args: [{kind: int, value: "3"}]
`, false)
	expectNoErrors(t, s)

	if len(s.composedFns) != 1 {
		t.Fatalf("expected one composed function, got %d", len(s.composedFns))
	}
	body := entryBody(t, s)
	init := body[0].(*bacteria.VariableInitialization)
	call, ok := init.Value.(*bacteria.NormalCall)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("unexpected initializer %s", bacteria.Dump(init.Value))
	}
	if _, ok := call.Args[0].(*bacteria.ImplicitReference); !ok {
		t.Errorf("state is passed as %T", call.Args[0])
	}
	if s.Root.FunctionSets["double"].Templates[0].Instances() != 1 {
		t.Error("double was not instantiated by the composed body")
	}
}

func TestComposedUnaryCall(t *testing.T) {
	s := compile(t, `
kind: structure
children:
  - {kind: function, name: double, args: [{name: x, type: {kind: ref, name: i64}}], return: {kind: ref, name: i64}, body: {kind: binary, op: "*", left: {kind: ref, name: x}, right: {kind: int, value: "2"}}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
        - kind: declare
          name: r
          mutable: true
          type: {kind: ref, name: i64}
          value:
            kind: call
            callee: {kind: unary, op: "-", operand: {kind: ref, name: double}}
            args: [{kind: int, value: "3"}]
`, false)
	expectNoErrors(t, s)

	if len(s.composedFns) != 1 {
		t.Fatalf("expected one composed function, got %d", len(s.composedFns))
	}
	for _, cf := range s.composedFns {
		if cf.Return != Type(s.Integer(true, 64)) {
			t.Errorf("composed function returns %s", cf.Return)
		}
		fn := s.Program.Function(cf.Name)
		if fn == nil || len(fn.Body) == 0 {
			t.Fatalf("composed function %s was not lowered", cf.Name)
		}
	}

	init := entryBody(t, s)[0].(*bacteria.VariableInitialization)
	call, ok := init.Value.(*bacteria.NormalCall)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("unexpected initializer %s", bacteria.Dump(init.Value))
	}
	if s.Root.FunctionSets["double"].Templates[0].Instances() != 1 {
		t.Error("double was not instantiated by the composed body")
	}
}

func TestComposedUnaryName(t *testing.T) {
	s := newTestSession()
	ct := s.Composed(ast.OpNegate, s.Integer(true, 32))
	if ct.String() != "::-(i32)" {
		t.Errorf("unexpected name %q", ct.String())
	}
	if s.Composed(ast.OpNegate, s.Integer(true, 32)) != ct {
		t.Error("composed types are not interned")
	}
	if s.Composed(ast.OpSub, s.Integer(true, 32), s.Integer(true, 32)) == ct {
		t.Error("unary and binary compositions share a type")
	}
}
