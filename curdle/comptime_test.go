package curdle

import (
	"math/big"
	"testing"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
)

func intLit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Value: big.NewInt(v)}
}

func ref(name string) *ast.ValueReference {
	return &ast.ValueReference{Name: name}
}

func TestFoldArithmetic(t *testing.T) {
	s := newTestSession()
	lc := s.global.Local(nil)

	v, ok := s.Exec(lc, &ast.Binary{Op: ast.OpMul, Left: intLit(6), Right: &ast.Binary{Op: ast.OpAdd, Left: intLit(3), Right: intLit(4)}})
	if !ok {
		t.Fatal("expected a compile-time value")
	}
	i, ok := v.(*IntegerValue)
	if !ok || i.Value.Int64() != 42 || i.Typ != s.ComptimeInt {
		t.Fatalf("unexpected value %v of type %s", v, v.Type())
	}

	v, ok = s.Exec(lc, &ast.Binary{Op: ast.OpLt, Left: intLit(1), Right: &ast.FloatLiteral{Value: 1.5}})
	if !ok || v.(*BoolValue).Value != true {
		t.Fatalf("expected true, got %v", v)
	}
}

func TestContextualLiteralTyping(t *testing.T) {
	s := newTestSession()
	i64 := s.Integer(true, 64)
	s.global.Declare("x", s.comptimeInt(5), true)
	lc := s.global.Local(nil)

	if got := s.GetType(lc, ref("x")); got != s.ComptimeInt {
		t.Fatalf("alone x is %s", got)
	}
	if got := s.GetType(lc.With(i64), ref("x")); got != i64 {
		t.Fatalf("with an expected i64, x is %s", got)
	}
	if got := s.GetType(lc.With(s.Bool), ref("x")); got != s.ComptimeInt {
		t.Fatalf("an incompatible expectation must not apply, got %s", got)
	}

	rt, _ := runtimeScope(s)
	n := s.Translate(rt.Local(i64), ref("x"))
	lit, ok := n.(*bacteria.IntegerLiteral)
	if !ok || lit.Typ.BitSize != 64 || lit.Value.Int64() != 5 {
		t.Fatalf("expected an i64 literal, got %s", bacteria.Dump(n))
	}

	n = s.Translate(rt.Local(s.Integer(true, 8)), intLit(300))
	if _, ok := n.(*bacteria.Nop); !ok {
		t.Fatalf("an out of range literal must fail, got %s", bacteria.Dump(n))
	}
	expectError(t, s, errors.InvalidCast)
}

func TestIfWithoutElseFoldsToNop(t *testing.T) {
	s := newTestSession()
	rt, _ := runtimeScope(s)
	n := s.Translate(rt.Local(nil), &ast.If{Condition: intLit(0), Then: intLit(1)})
	if _, ok := n.(*bacteria.Nop); !ok {
		t.Fatalf("expected a nop, got %s", bacteria.Dump(n))
	}
	expectNoErrors(t, s)
}

func TestTupleOfTypesIsAType(t *testing.T) {
	s := newTestSession()
	lc := s.global.Local(nil)
	v, ok := s.Exec(lc, &ast.TupleLiteral{Elements: []ast.Node{ref("i32"), ref("bool")}})
	if !ok {
		t.Fatal("expected a compile-time value")
	}
	tv, ok := v.(*TypeValue)
	if !ok || tv.Value != s.ImplicitTuple(s.Integer(true, 32), s.Bool) {
		t.Fatalf("unexpected %v", v)
	}
}

func TestCastChecksRange(t *testing.T) {
	s := newTestSession()
	u8 := s.Integer(false, 8)
	if _, err := s.Cast(s.comptimeInt(255), u8); err != nil {
		t.Fatalf("255 fits in u8: %s", err)
	}
	if _, err := s.Cast(s.comptimeInt(256), u8); err == nil {
		t.Fatal("256 does not fit in u8")
	}
	if _, err := s.Cast(s.boolValue(true), s.Float32); err == nil {
		t.Fatal("bool does not convert to float")
	}
	v, err := s.Cast(&FloatValue{Typ: s.ComptimeFloat, Value: 2.75}, s.Integer(true, 32))
	if err != nil || v.(*IntegerValue).Value.Int64() != 2 {
		t.Fatalf("float to int truncates, got %v %v", v, err)
	}
}

func TestChildComptime(t *testing.T) {
	s := newTestSession()
	i32 := s.Integer(true, 32)

	v, err := s.ChildComptime(i32, "bits")
	if err != nil || v.(*IntegerValue).Value.Int64() != 32 {
		t.Fatalf("i32.bits = %v, %v", v, err)
	}
	v, err = s.ChildComptime(s.ImplicitTuple(i32, s.Integer(true, 8)), "__size__")
	if err != nil || v.(*IntegerValue).Value.Int64() != 8 {
		t.Fatalf("size of (i32, i8) = %v, %v", v, err)
	}
	if _, err := s.ChildComptime(s.Bool, "bits"); err == nil {
		t.Fatal("bool has no bits")
	}
}

func TestNotComptime(t *testing.T) {
	s := newTestSession()
	rt, _ := runtimeScope(s)
	rt.Declare("y", s.Integer(true, 32), false)

	if _, ok := s.Exec(rt.Local(nil), &ast.Binary{Op: ast.OpAdd, Left: ref("y"), Right: intLit(1)}); ok {
		t.Fatal("a run-time variable cannot be folded")
	}
	defer func() {
		if _, ok := recover().(errors.NotComptimeError); !ok {
			t.Fatal("mustExec must raise NotComptimeError")
		}
	}()
	s.mustExec(rt.Local(nil), ref("y"))
}

func TestBuiltins(t *testing.T) {
	s := newTestSession()
	lc := s.global.Local(nil)
	call := func(name string, args ...ast.Node) Value {
		t.Helper()
		v, ok := s.Exec(lc, &ast.TupleCall{Callee: &ast.BuiltinReference{Name: name}, Args: args})
		if !ok {
			t.Fatalf("$%s did not fold", name)
		}
		return v
	}

	if v := call("Peer", ref("i16"), ref("u32")); v.(*TypeValue).Value != s.Integer(true, 32) {
		t.Errorf("$Peer(i16, u32) = %v", v)
	}
	if v := call("size", ref("f64")); v.(*IntegerValue).Value.Int64() != 8 {
		t.Errorf("$size(f64) = %v", v)
	}
	if v := call("Type", &ast.BoolLiteral{Value: true}); v.(*TypeValue).Value != s.Bool {
		t.Errorf("$Type(true) = %v", v)
	}

	defer func() {
		if _, ok := recover().(errors.BadBuiltin); !ok {
			t.Fatal("wrong arity must raise BadBuiltin")
		}
	}()
	call("size")
}
