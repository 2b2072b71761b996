package curdle

import (
	"github.com/llir/llvm/ir/types"
	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

// Translate lowers node in lc. When lc expects a type the result has that
// type. Failures are reported and lower to a Nop.
func (s *Session) Translate(lc *LocalContext, node ast.Node) (n bacteria.Node) {
	n = &bacteria.Nop{}
	s.protect(node.Pos(), func() {
		n = s.translate(lc, node)
	})
	return n
}

func (s *Session) translate(lc *LocalContext, node ast.Node) bacteria.Node {
	checkLiteral(lc.Expected, node)
	if v, ok := s.Exec(lc, node); ok {
		return s.lowerValue(lc, v, node.Pos())
	}
	if lc.Runtime == nil {
		panic(errors.NotComptimeError{Location: node.Pos()})
	}

	t := s.typeOf(lc, node)
	if _, ok := t.(*ErrorType); ok {
		return &bacteria.Nop{}
	}
	n, t := s.lower(lc, node, t)
	if isVoid(lc.Expected) {
		return n
	}
	switch t.(type) {
	case *NoReturnType, *VoidType:
		return n
	}
	return s.MakeCast(lc, asValue(n, node.Pos()), t, lc.Expected, false, node.Pos())
}

// lowerValue lowers a compile-time value, converting it to the expected
// type while still known.
func (s *Session) lowerValue(lc *LocalContext, v Value, at ctypes.Coordinate) bacteria.Node {
	if !isVoid(lc.Expected) && s.Compare(lc.Expected, v.Type(), true) >= 0 {
		if cast, err := s.Cast(v, lc.Expected); err == nil {
			v = cast
		} else if isComptimeNumeric(v.Type()) {
			check(err, at)
		}
	}

	m := s.materialize(lc, v, at)
	if _, ok := m.(*bacteria.Nop); ok || isVoid(lc.Expected) {
		return m
	}
	return s.MakeCast(lc, m, s.Concretize(v.Type()), lc.Expected, false, at)
}

// lower dispatches on node, which has type t, and returns the node together
// with the type it actually produced.
func (s *Session) lower(lc *LocalContext, node ast.Node, t Type) (bacteria.Node, Type) {
	at := node.Pos()
	switch n := node.(type) {
	case *ast.ValueReference:
		return s.lowerReference(lc, n), t
	case *ast.Binary:
		return s.lowerBinary(lc, n, t), t
	case *ast.Unary:
		return s.lowerUnary(lc, n, t), t
	case *ast.Cast:
		v := s.Translate(lc.With(nil), n.Value)
		from := s.GetType(lc.With(nil), n.Value)
		return s.MakeCast(lc, asValue(v, at), s.Concretize(from), t, true, at), t
	case *ast.TupleCall:
		return s.lowerCall(lc, n, t), t
	case *ast.ObjectCall:
		st := s.constructed(lc, n)
		lit := &bacteria.AggregateLiteral{Typ: s.backendType(st, at)}
		for i, f := range n.Fields {
			lit.Values = append(lit.Values, asValue(s.Translate(lc.With(st.Fields[i].Type), f.Value), f.Value.Pos()))
		}
		return lit, st
	case *ast.TupleLiteral:
		return s.lowerAggregate(lc, n.Elements, t.(*Structure), at)
	case *ast.ObjectLiteral:
		values := make([]ast.Node, len(n.Fields))
		for i, f := range n.Fields {
			values[i] = f.Value
		}
		return s.lowerAggregate(lc, values, t.(*Structure), at)
	case *ast.ArrayLiteral:
		arr := t.(*ArrayType)
		if exp, ok := lc.Expected.(*ArrayType); ok && len(exp.Dimensions) == 1 && exp.Dimensions[0] == arr.Dimensions[0] {
			arr = exp
		}
		lit := &bacteria.AggregateLiteral{Typ: s.backendType(arr, at)}
		for _, e := range n.Elements {
			lit.Values = append(lit.Values, asValue(s.Translate(lc.With(arr.Child), e), e.Pos()))
		}
		return lit, arr
	case *ast.Subscription:
		return s.lowerSubscription(lc, n), t
	case *ast.If:
		return s.lowerIf(lc, n, t)
	case *ast.Match:
		return s.lowerMatch(lc, n, t)
	case *ast.Block:
		return s.lowerBlock(lc, n, t)
	case *ast.While:
		return s.lowerWhile(lc, n.Condition, n.Body, at), t
	case *ast.Loop:
		return s.lowerWhile(lc, nil, n.Body, at), t
	case *ast.Break:
		s.requireLoop(lc, "break", at)
		return &bacteria.Break{}, t
	case *ast.Continue:
		s.requireLoop(lc, "continue", at)
		return &bacteria.Continue{}, t
	case *ast.Return:
		return s.lowerReturn(lc, n), t
	case *ast.VariableDeclaration:
		s.lowerDeclaration(lc, n)
		return &bacteria.Nop{}, t
	case *ast.VariableDefinition:
		s.lowerDefinition(lc, n)
		return &bacteria.Nop{}, t
	case *ast.Destructure:
		s.lowerDestructure(lc, n)
		return &bacteria.Nop{}, t
	case *ast.Assignment:
		return s.lowerAssignment(lc, n), t
	}
	notImplemented(at, "lowering %T", node)
	return nil, nil
}

func (s *Session) lowerReference(lc *LocalContext, n *ast.ValueReference) bacteria.Value {
	b := lc.mustLookup(n.Name, n.Pos())
	switch {
	case b.variable != nil:
		return &bacteria.ValueReference{Name: b.variable.Storage, Typ: s.backendType(b.variable.Type, n.Pos())}
	case b.global != nil:
		return &bacteria.ValueReference{Name: b.global.MangledName, Typ: s.backendType(b.global.Type, n.Pos()), Global: true}
	}
	raise(n.Pos(), errors.NotRuntime, "%s has no run-time value", n.Name)
	return nil
}

// lowerAggregate lowers a tuple or record literal. When the expected type is
// a structure of the same shape the elements are lowered straight into it.
func (s *Session) lowerAggregate(lc *LocalContext, elems []ast.Node, t *Structure, at ctypes.Coordinate) (bacteria.Node, Type) {
	target := s.Concretize(t).(*Structure)
	if exp, ok := lc.Expected.(*Structure); ok && s.Compare(exp, t, true) >= 0 {
		target = exp
	}
	lit := &bacteria.AggregateLiteral{Typ: s.backendType(target, at)}
	for i, e := range elems {
		lit.Values = append(lit.Values, asValue(s.Translate(lc.With(target.Fields[i].Type), e), e.Pos()))
	}
	return lit, target
}

func backendOp(op ast.Operator) bacteria.Op {
	return bacteria.Op(op - ast.OpAdd)
}

func (s *Session) lowerBinary(lc *LocalContext, n *ast.Binary, t Type) bacteria.Value {
	at := n.Pos()
	if n.Op.IsLogical() {
		return s.lowerLogical(lc, n)
	}

	if ct, ok := t.(*ComposedFunctionType); ok {
		lit := &bacteria.AggregateLiteral{Typ: s.backendType(ct, at)}
		for i, operand := range []ast.Node{n.Left, n.Right} {
			lit.Values = append(lit.Values, asValue(s.Translate(lc.With(ct.Operands[i]), operand), operand.Pos()))
		}
		return lit
	}

	l := s.GetType(lc.With(nil), n.Left)
	r := s.GetType(lc.With(nil), n.Right)
	if fs := s.operatorOverload(n.Op, l, r); fs != nil {
		cf := s.ResolveCall(lc, fs, []ast.Node{n.Left, n.Right}, at)
		return s.call(lc, cf, []ast.Node{n.Left, n.Right}, at)
	}

	l, _ = stripReference(l)
	r, _ = stripReference(r)

	if n.Op == ast.OpShl || n.Op == ast.OpShr {
		left := asValue(s.Translate(lc.With(t), n.Left), n.Left.Pos())
		right := asValue(s.Translate(lc.With(nil), n.Right), n.Right.Pos())
		right = s.MakeCast(lc, right, s.Concretize(r), t, true, at)
		return &bacteria.Binary{Op: backendOp(n.Op), Left: left, Right: right, Typ: s.backendType(t, at), Signed: isSigned(t)}
	}

	operand := t
	if n.Op.IsComparison() {
		operand = s.Concretize(s.Peer(l, r))
	}
	left := asValue(s.Translate(lc.With(operand), n.Left), n.Left.Pos())
	right := asValue(s.Translate(lc.With(operand), n.Right), n.Right.Pos())

	if _, ok := operand.(*ComplexType); ok {
		return s.complexBinary(lc, n.Op, left, right, operand.(*ComplexType), at)
	}
	_, float := operand.(*FloatType)
	return &bacteria.Binary{
		Op:     backendOp(n.Op),
		Left:   left,
		Right:  right,
		Typ:    s.backendType(t, at),
		Signed: isSigned(operand),
		Float:  float,
	}
}

// lowerLogical short-circuits `and` and `or` into a conditional.
func (s *Session) lowerLogical(lc *LocalContext, n *ast.Binary) bacteria.Value {
	cond := asValue(s.Translate(lc.With(s.Bool), n.Left), n.Left.Pos())
	rhs := &bacteria.Block{Typ: types.I1}
	inner := lc.runtimeChild(rhs)
	rhs.Result = asValue(s.Translate(inner.With(s.Bool), n.Right), n.Right.Pos())

	if n.Op == ast.OpLogicalAnd {
		return &bacteria.If{Condition: cond, Then: rhs, Else: &bacteria.BoolLiteral{Value: false}, Typ: types.I1}
	}
	return &bacteria.If{Condition: cond, Then: &bacteria.BoolLiteral{Value: true}, Else: rhs, Typ: types.I1}
}

// complexBinary expands complex arithmetic into operations on the real and
// imaginary parts.
func (s *Session) complexBinary(lc *LocalContext, op ast.Operator, l, r bacteria.Value, t *ComplexType, at ctypes.Coordinate) bacteria.Value {
	part := s.backendType(s.complexPart(t), at)
	l = s.temporary(lc, l, t, at)
	r = s.temporary(lc, r, t, at)
	re := func(v bacteria.Value) bacteria.Value { return &bacteria.FieldAccess{Value: v, Index: 0, Typ: part} }
	im := func(v bacteria.Value) bacteria.Value { return &bacteria.FieldAccess{Value: v, Index: 1, Typ: part} }
	bin := func(op bacteria.Op, a, b bacteria.Value) bacteria.Value {
		typ := part
		if op.IsComparison() {
			typ = types.I1
		}
		return &bacteria.Binary{Op: op, Left: a, Right: b, Typ: typ, Float: true}
	}
	pair := func(a, b bacteria.Value) bacteria.Value {
		return &bacteria.AggregateLiteral{Typ: s.backendType(t, at), Values: []bacteria.Value{a, b}}
	}

	switch op {
	case ast.OpAdd:
		return pair(bin(bacteria.Add, re(l), re(r)), bin(bacteria.Add, im(l), im(r)))
	case ast.OpSub:
		return pair(bin(bacteria.Sub, re(l), re(r)), bin(bacteria.Sub, im(l), im(r)))
	case ast.OpMul:
		return pair(
			bin(bacteria.Sub, bin(bacteria.Mul, re(l), re(r)), bin(bacteria.Mul, im(l), im(r))),
			bin(bacteria.Add, bin(bacteria.Mul, re(l), im(r)), bin(bacteria.Mul, im(l), re(r))),
		)
	case ast.OpDiv:
		denom := s.temporary(lc, bin(bacteria.Add, bin(bacteria.Mul, re(r), re(r)), bin(bacteria.Mul, im(r), im(r))), s.complexPart(t), at)
		return pair(
			bin(bacteria.Div, bin(bacteria.Add, bin(bacteria.Mul, re(l), re(r)), bin(bacteria.Mul, im(l), im(r))), denom),
			bin(bacteria.Div, bin(bacteria.Sub, bin(bacteria.Mul, im(l), re(r)), bin(bacteria.Mul, re(l), im(r))), denom),
		)
	case ast.OpEq:
		return &bacteria.Binary{Op: bacteria.And, Left: bin(bacteria.Eq, re(l), re(r)), Right: bin(bacteria.Eq, im(l), im(r)), Typ: types.I1}
	case ast.OpNe:
		return &bacteria.Binary{Op: bacteria.Or, Left: bin(bacteria.Ne, re(l), re(r)), Right: bin(bacteria.Ne, im(l), im(r)), Typ: types.I1}
	}
	raise(at, errors.InvalidOperation, "%s is not defined on %s", op, t)
	return nil
}

func (s *Session) complexPart(t *ComplexType) *FloatType {
	if t.Bits == 32 {
		return s.Float32
	}
	return s.Float64
}

func (s *Session) lowerUnary(lc *LocalContext, n *ast.Unary, t Type) bacteria.Value {
	at := n.Pos()
	if ct, ok := t.(*ComposedFunctionType); ok {
		v := s.Translate(lc.With(ct.Operands[0]), n.Operand)
		return &bacteria.AggregateLiteral{Typ: s.backendType(ct, at), Values: []bacteria.Value{asValue(v, n.Operand.Pos())}}
	}
	operandType := s.GetType(lc.With(nil), n.Operand)

	switch n.Op {
	case ast.OpDeref:
		v := asValue(s.Translate(lc.With(nil), n.Operand), n.Operand.Pos())
		return &bacteria.Dereference{Value: v, Typ: s.backendType(t, at)}
	case ast.OpAddressOf:
		v := asValue(s.Translate(lc.With(nil), n.Operand), n.Operand.Pos())
		if _, ok := operandType.(*ReferenceType); ok {
			return v
		}
		return &bacteria.ImplicitReference{Value: v, Typ: s.backendType(t, at)}
	case ast.OpPlus:
		return asValue(s.Translate(lc.With(t), n.Operand), n.Operand.Pos())
	}

	v := asValue(s.Translate(lc.With(t), n.Operand), n.Operand.Pos())
	if ct, ok := t.(*ComplexType); ok && n.Op == ast.OpNegate {
		part := s.backendType(s.complexPart(ct), at)
		v = s.temporary(lc, v, t, at)
		neg := func(i int) bacteria.Value {
			return &bacteria.Unary{Op: bacteria.Negate, Operand: &bacteria.FieldAccess{Value: v, Index: i, Typ: part}, Typ: part, Float: true}
		}
		return &bacteria.AggregateLiteral{Typ: s.backendType(t, at), Values: []bacteria.Value{neg(0), neg(1)}}
	}

	op := bacteria.Not
	if n.Op == ast.OpNegate {
		op = bacteria.Negate
	}
	_, float := t.(*FloatType)
	return &bacteria.Unary{Op: op, Operand: v, Typ: s.backendType(t, at), Float: float}
}

// lowerSubscription lowers a run-time member access: a top-level variable of
// a structure, a field, an operand of a composed function or an array
// element.
func (s *Session) lowerSubscription(lc *LocalContext, n *ast.Subscription) bacteria.Value {
	m := s.resolveMember(lc, n)
	if m.global != nil {
		return &bacteria.ValueReference{Name: m.global.MangledName, Typ: s.backendType(m.global.Type, n.Pos()), Global: true}
	}
	if m.index < 0 {
		return &bacteria.Nop{}
	}

	left := asValue(s.Translate(lc.With(nil), n.Left), n.Left.Pos())
	_, byRef := s.GetType(lc.With(nil), n.Left).(*ReferenceType)
	return &bacteria.FieldAccess{Value: left, Index: m.index, Typ: s.backendType(m.typ, n.Pos()), ByReference: byRef}
}

func (s *Session) lowerCall(lc *LocalContext, n *ast.TupleCall, t Type) bacteria.Value {
	at := n.Pos()
	if fs, self, ok := s.method(lc, n.Callee); ok {
		args := append([]ast.Node{self}, n.Args...)
		return s.call(lc, s.ResolveCall(lc, fs, args, at), args, at)
	}

	if callee, ok := s.Exec(lc.With(nil), n.Callee); ok {
		switch c := callee.(type) {
		case *FunctionSetValue:
			return s.call(lc, s.ResolveCall(lc, c.Set, n.Args, at), n.Args, at)
		case *TypeValue:
			return s.lowerConversion(lc, c.Value, n.Args, at)
		case *ImportedValue:
			s.declareExtern(c.Name, c.Typ, at)
			return &bacteria.NormalCall{
				Function: c.Name,
				Args:     s.pointerArgs(lc, c.Typ.Args, n.Args, at),
				Typ:      s.backendType(c.Typ.Return, at),
			}
		}
	}

	calleeType := s.GetType(lc.With(nil), n.Callee)
	stripped, _ := stripReference(calleeType)
	switch c := stripped.(type) {
	case *FunctionTemplateType:
		return s.call(lc, s.ResolveCall(lc, c.Set, n.Args, at), n.Args, at)
	case *FunctionPointerType:
		callee := asValue(s.Translate(lc.With(c), n.Callee), n.Callee.Pos())
		return &bacteria.PointerCall{Callee: callee, Args: s.pointerArgs(lc, c.Args, n.Args, at), Typ: s.backendType(c.Return, at)}
	case *ImportedFunctionType:
		callee := asValue(s.Translate(lc.With(nil), n.Callee), n.Callee.Pos())
		callee = s.MakeCast(lc, callee, calleeType, c, false, at)
		return &bacteria.PointerCall{Callee: callee, Args: s.pointerArgs(lc, c.Args, n.Args, at), Typ: s.backendType(c.Return, at)}
	case *ComposedFunctionType:
		callee := asValue(s.Translate(lc.With(c), n.Callee), n.Callee.Pos())
		return s.callComposed(lc, callee, c, n.Args, at)
	}
	raise(at, errors.InvalidOperation, "%s is not callable", calleeType)
	return nil
}

func (s *Session) pointerArgs(lc *LocalContext, params []Type, args []ast.Node, at ctypes.Coordinate) []bacteria.Value {
	if len(params) != len(args) {
		raise(at, errors.MismatchedFunctionCall, "expected %d arguments, got %d", len(params), len(args))
	}
	values := make([]bacteria.Value, len(args))
	for i, arg := range args {
		values[i] = asValue(s.Translate(lc.With(params[i]), arg), arg.Pos())
	}
	return values
}

// lowerConversion lowers `T(args)`: construction of a structure from
// positional values, or a conversion of a single value.
func (s *Session) lowerConversion(lc *LocalContext, t Type, args []ast.Node, at ctypes.Coordinate) bacteria.Value {
	st, ok := t.(*Structure)
	if !ok {
		if len(args) != 1 {
			raise(at, errors.InvalidCast, "conversion to %s takes one value", t)
		}
		v := asValue(s.Translate(lc.With(nil), args[0]), args[0].Pos())
		from := s.Concretize(s.GetType(lc.With(nil), args[0]))
		return s.MakeCast(lc, v, from, t, true, at)
	}

	checkPositional(st, len(args), at)
	lit := &bacteria.AggregateLiteral{Typ: s.backendType(st, at)}
	for i, arg := range args {
		lit.Values = append(lit.Values, asValue(s.Translate(lc.With(st.Fields[i].Type), arg), arg.Pos()))
	}
	return lit
}
