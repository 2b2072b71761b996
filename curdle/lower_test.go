package curdle

import (
	"strings"
	"testing"

	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

func mainWith(statements string) string {
	return `
kind: structure
children:
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
` + statements
}

func TestLowerDeclarations(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: declare, name: x, value: {kind: int, value: "5"}}
        - {kind: declare, name: y, type: {kind: ref, name: i64}, value: {kind: ref, name: x}}
        - {kind: declare, name: z, mutable: true, value: {kind: binary, op: "+", left: {kind: ref, name: y}, right: {kind: ref, name: x}}}
`), false)
	expectNoErrors(t, s)

	body := entryBody(t, s)
	if len(body) != 2 {
		t.Fatalf("expected two statements, got %d:\n%s", len(body), bacteria.Dump(&bacteria.Block{Children: body}))
	}

	y := body[0].(*bacteria.VariableInitialization)
	lit, ok := y.Value.(*bacteria.IntegerLiteral)
	if y.Name != "y" || !ok || lit.Typ.BitSize != 64 || lit.Value.Int64() != 5 {
		t.Errorf("unexpected initialization of y: %s", bacteria.Dump(y))
	}

	z := body[1].(*bacteria.VariableInitialization)
	sum, ok := z.Value.(*bacteria.Binary)
	if !ok || !sum.Signed {
		t.Fatalf("unexpected initialization of z: %s", bacteria.Dump(z))
	}
	if ref, ok := sum.Left.(*bacteria.ValueReference); !ok || ref.Name != "y" {
		t.Errorf("left operand is %s", bacteria.Dump(sum.Left))
	}
	if _, ok := sum.Right.(*bacteria.IntegerLiteral); !ok {
		t.Errorf("compile-time operand was not folded into a literal: %s", bacteria.Dump(sum.Right))
	}
}

func TestLowerRuntimeIf(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: define, name: v, mutable: true, type: {kind: ref, name: i32}}
        - kind: declare
          name: r
          value:
            kind: if
            condition: {kind: binary, op: "==", left: {kind: ref, name: v}, right: {kind: int, value: "0"}}
            then: {kind: int, value: "1"}
            else: {kind: ref, name: v}
`), false)
	expectNoErrors(t, s)

	body := entryBody(t, s)
	init := body[1].(*bacteria.VariableInitialization)
	node, ok := init.Value.(*bacteria.If)
	if !ok {
		t.Fatalf("r is initialised with %s", bacteria.Dump(init.Value))
	}
	if node.Else == nil || node.Then.(*bacteria.Block).Result == nil {
		t.Fatalf("both branches should yield a value:\n%s", bacteria.Dump(node))
	}
	if it, ok := node.Typ.(interface{ String() string }); !ok || it.String() != "i32" {
		t.Errorf("if has type %v", node.Typ)
	}
}

func TestLowerComptimeIfKeepsOneBranch(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: define, name: v, mutable: true, type: {kind: ref, name: i32}}
        - kind: if
          condition: {kind: bool, value: false}
          then: {kind: assign, target: {kind: ref, name: v}, value: {kind: int, value: "1"}}
          else: {kind: assign, target: {kind: ref, name: v}, value: {kind: int, value: "2"}}
`), false)
	expectNoErrors(t, s)

	body := entryBody(t, s)
	assign, ok := body[1].(*bacteria.Assignment)
	if !ok {
		t.Fatalf("expected the else branch only, got %s", bacteria.Dump(body[1]))
	}
	if assign.Value.(*bacteria.IntegerLiteral).Value.Int64() != 2 {
		t.Errorf("wrong branch kept: %s", bacteria.Dump(assign))
	}
}

func TestLowerLoops(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: define, name: i, mutable: true, type: {kind: ref, name: i32}}
        - kind: while
          condition: {kind: binary, op: "<", left: {kind: ref, name: i}, right: {kind: int, value: "10"}}
          body:
            kind: block
            children:
              - {kind: assign, op: "+", target: {kind: ref, name: i}, value: {kind: int, value: "1"}}
              - {kind: continue}
        - {kind: loop, body: {kind: break}}
`), false)
	expectNoErrors(t, s)

	body := entryBody(t, s)
	w, ok := body[1].(*bacteria.While)
	if !ok {
		t.Fatalf("expected a while loop, got %s", bacteria.Dump(body[1]))
	}
	if _, ok := w.Condition.(*bacteria.Block); !ok {
		t.Errorf("run-time condition should be evaluated in a head block, got %T", w.Condition)
	}
	if _, ok := body[2].(*bacteria.While); !ok {
		t.Errorf("loop lowered to %T", body[2])
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: break}
`), false)
	expectError(t, s, errors.InvalidOperation)
}

func TestAssignToImmutable(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: define, name: v, type: {kind: ref, name: i32}}
        - {kind: assign, target: {kind: ref, name: v}, value: {kind: int, value: "1"}}
        - {kind: declare, name: c, value: {kind: int, value: "1"}}
        - {kind: assign, target: {kind: ref, name: c}, value: {kind: int, value: "2"}}
`), false)
	expectError(t, s, errors.NotMutable)
}

func TestUnknownName(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: declare, name: a, mutable: true, value: {kind: ref, name: nowhere}}
        - {kind: declare, name: b, mutable: true, value: {kind: int, value: "1"}}
`), false)
	expectError(t, s, errors.UnknownName)

	body := entryBody(t, s)
	if len(body) != 1 {
		t.Fatalf("lowering should continue past the failing statement, got %d statements", len(body))
	}
}

func TestWarnings(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: define, name: v, mutable: true, type: {kind: ref, name: i32}}
        - {kind: binary, op: "+", left: {kind: ref, name: v}, right: {kind: int, value: "1"}}
        - {kind: block, children: [{kind: define, name: v, type: {kind: ref, name: i64}}]}
`), false)
	expectNoErrors(t, s)
	expectError(t, s, errors.UnusedValue)
	expectError(t, s, errors.ShadowedName)
}

func TestLowerMatch(t *testing.T) {
	s := compile(t, mainWith(`
        - {kind: define, name: v, mutable: true, type: {kind: ref, name: i32}}
        - kind: declare
          name: r
          value:
            kind: match
            value: {kind: ref, name: v}
            arms:
              - {patterns: [{kind: int, value: "1"}, {kind: int, value: "2"}], body: {kind: int, value: "10"}}
              - {patterns: [], body: {kind: int, value: "20"}}
`), false)
	expectNoErrors(t, s)

	init := entryBody(t, s)[1].(*bacteria.VariableInitialization)
	blk, ok := init.Value.(*bacteria.Block)
	if !ok || blk.Result == nil {
		t.Fatalf("match lowered to %s", bacteria.Dump(init.Value))
	}
	if _, ok := blk.Children[0].(*bacteria.VariableInitialization); !ok {
		t.Errorf("scrutinee is not stored first: %s", bacteria.Dump(blk))
	}
	if _, ok := blk.Result.(*bacteria.If); !ok {
		t.Errorf("arms lowered to %T", blk.Result)
	}
}

func TestMakeCast(t *testing.T) {
	s := newTestSession()
	rt, _ := runtimeScope(s)
	lc := rt.Local(nil)
	i32, i64 := s.Integer(true, 32), s.Integer(true, 64)
	v := &bacteria.ValueReference{Name: "v", Typ: s.backendType(i32, ctypes.Coordinate{})}

	if got := s.MakeCast(lc, v, i32, i32, false, ctypes.Coordinate{}); got != bacteria.Value(v) {
		t.Errorf("equal types should not add a node, got %T", got)
	}

	widened, ok := s.MakeCast(lc, v, i32, i64, false, ctypes.Coordinate{}).(*bacteria.Cast)
	if !ok || !widened.SourceSigned || !widened.TargetSigned {
		t.Errorf("i32 to i64 should be a signed cast, got %#v", widened)
	}

	ref, ok := s.MakeCast(lc, v, i32, s.Reference(i32, false), false, ctypes.Coordinate{}).(*bacteria.ImplicitReference)
	if !ok || ref.Value != bacteria.Value(v) {
		t.Errorf("i32 to &i32 should take an implicit reference, got %#v", ref)
	}

	func() {
		defer func() {
			err, ok := recover().(errors.LocalizedError)
			if !ok || err.Code != errors.InvalidCast {
				t.Errorf("expected an invalid cast, got %v", err)
			}
		}()
		s.MakeCast(lc, v, i64, i32, false, ctypes.Coordinate{})
	}()
}

func subscriptSource(statements string) string {
	return pointSource + `  - {kind: function, name: double, args: [{name: x, type: {kind: ref, name: i64}}], return: {kind: ref, name: i64}, body: {kind: binary, op: "*", left: {kind: ref, name: x}, right: {kind: int, value: "2"}}}
  - {kind: function, name: square, args: [{name: x, type: {kind: ref, name: i64}}], return: {kind: ref, name: i64}, body: {kind: binary, op: "*", left: {kind: ref, name: x}, right: {kind: ref, name: x}}}
  - kind: declare
    name: Config
    value:
      kind: structure
      children:
        - {kind: declare, name: limit, mutable: true, type: {kind: ref, name: i32}, value: {kind: int, value: "3"}}
  - kind: function
    name: getx
    args: [{name: p, type: {kind: reference_type, child: {kind: ref, name: Point}}}]
    return: {kind: ref, name: i32}
    body: {kind: subscript, left: {kind: ref, name: p}, right: {kind: ref, name: x}}
  - kind: function
    name: main
    entry: true
    body:
      kind: block
      children:
` + statements
}

func initialization(t *testing.T, body []bacteria.Node, name string) *bacteria.VariableInitialization {
	t.Helper()
	for _, n := range body {
		if init, ok := n.(*bacteria.VariableInitialization); ok && init.Name == name {
			return init
		}
	}
	t.Fatalf("%s was not initialized:\n%s", name, bacteria.Dump(&bacteria.Block{Children: body}))
	return nil
}

func TestLowerSubscription(t *testing.T) {
	s := compile(t, subscriptSource(`
        - {kind: define, name: p, mutable: true, type: {kind: ref, name: Point}}
        - {kind: define, name: t, mutable: true, type: {kind: tuple, elements: [{kind: ref, name: i32}, {kind: ref, name: i64}]}}
        - {kind: declare, name: second, mutable: true, value: {kind: subscript, left: {kind: ref, name: t}, right: {kind: int, value: "1"}}}
        - {kind: declare, name: y, mutable: true, value: {kind: subscript, left: {kind: ref, name: p}, right: {kind: ref, name: y}}}
        - {kind: declare, name: limit, mutable: true, value: {kind: subscript, left: {kind: ref, name: Config}, right: {kind: ref, name: limit}}}
        - {kind: declare, name: x, mutable: true, value: {kind: call, callee: {kind: ref, name: getx}, args: [{kind: ref, name: p}]}}
`), false)
	expectNoErrors(t, s)
	body := entryBody(t, s)

	second, ok := initialization(t, body, "second").Value.(*bacteria.FieldAccess)
	if !ok || second.Index != 1 || second.ByReference || second.Typ.String() != "i64" {
		t.Errorf("unexpected tuple access %s", bacteria.Dump(initialization(t, body, "second").Value))
	}

	y, ok := initialization(t, body, "y").Value.(*bacteria.FieldAccess)
	if !ok || y.Index != 1 || y.ByReference {
		t.Errorf("unexpected field access %s", bacteria.Dump(initialization(t, body, "y").Value))
	}

	limit, ok := initialization(t, body, "limit").Value.(*bacteria.ValueReference)
	if !ok || !limit.Global || limit.Name != "test_DConfig_Dlimit" {
		t.Errorf("unexpected static member %s", bacteria.Dump(initialization(t, body, "limit").Value))
	}

	var getx *bacteria.Function
	for _, fn := range s.Program.Functions {
		if strings.HasPrefix(fn.Name, "test_Dgetx") {
			getx = fn
		}
	}
	if getx == nil || len(getx.Body) == 0 {
		t.Fatal("getx was not lowered")
	}
	ret, ok := getx.Body[0].(*bacteria.Return)
	if !ok {
		t.Fatalf("getx body starts with %T", getx.Body[0])
	}
	if fa, ok := ret.Value.(*bacteria.FieldAccess); !ok || !fa.ByReference || fa.Index != 0 {
		t.Errorf("access through a reference is %s", bacteria.Dump(ret.Value))
	}
}

func TestSubscriptionErrors(t *testing.T) {
	cases := []struct {
		name       string
		statements string
	}{
		{"unknown field", `
        - {kind: define, name: p, mutable: true, type: {kind: ref, name: Point}}
        - {kind: declare, name: v, mutable: true, value: {kind: subscript, left: {kind: ref, name: p}, right: {kind: ref, name: z}}}
`},
		{"not subscriptable", `
        - {kind: define, name: n, mutable: true, type: {kind: ref, name: i32}}
        - {kind: declare, name: v, mutable: true, value: {kind: subscript, left: {kind: ref, name: n}, right: {kind: ref, name: x}}}
`},
		{"composed operand out of range", `
        - kind: declare
          name: v
          mutable: true
          value:
            kind: subscript
            left: {kind: binary, op: "+", left: {kind: ref, name: double}, right: {kind: ref, name: square}}
            right: {kind: int, value: "2"}
`},
		{"tuple index out of range", `
        - {kind: define, name: t, mutable: true, type: {kind: tuple, elements: [{kind: ref, name: i32}, {kind: ref, name: i64}]}}
        - {kind: declare, name: v, mutable: true, value: {kind: subscript, left: {kind: ref, name: t}, right: {kind: int, value: "2"}}}
`},
		{"not a name", `
        - {kind: define, name: p, mutable: true, type: {kind: ref, name: Point}}
        - {kind: declare, name: v, mutable: true, value: {kind: subscript, left: {kind: ref, name: p}, right: {kind: string, value: "x"}}}
`},
		{"missing static member", `
        - {kind: declare, name: v, mutable: true, value: {kind: subscript, left: {kind: ref, name: Config}, right: {kind: ref, name: missing}}}
`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			expectError(t, compile(t, subscriptSource(c.statements), false), errors.InvalidSubscript)
		})
	}
}
