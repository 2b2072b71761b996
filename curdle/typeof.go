package curdle

import (
	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

// GetType returns the type node has in lc. Failures are reported and yield
// the error type.
func (s *Session) GetType(lc *LocalContext, node ast.Node) (t Type) {
	t = s.Error
	s.protect(node.Pos(), func() {
		t = s.typeOf(lc, node)
	})
	return t
}

func isComptimeNumeric(t Type) bool {
	switch t.(type) {
	case *ComptimeIntType, *ComptimeFloatType, *ComptimeComplexType:
		return true
	}
	return false
}

// contextual narrows a comptime numeric type to the expected type when the
// value could be converted to it.
func (s *Session) contextual(lc *LocalContext, t Type) Type {
	if lc.Expected == nil || !isComptimeNumeric(t) || !IsTrivialArithmetic(lc.Expected) {
		return t
	}
	if isComptimeNumeric(lc.Expected) {
		return t
	}
	if s.Compare(lc.Expected, t, true) < 0 {
		return t
	}
	return lc.Expected
}

func (s *Session) typeOf(lc *LocalContext, node ast.Node) Type {
	checkLiteral(lc.Expected, node)
	if v, ok := s.Exec(lc, node); ok {
		return s.contextual(lc, v.Type())
	}

	switch n := node.(type) {
	case *ast.ValueReference:
		b := lc.mustLookup(n.Name, n.Pos())
		switch {
		case b.variable != nil:
			return b.variable.Type
		case b.global != nil:
			return b.global.Type
		}
	case *ast.Binary:
		if n.Op.IsLogical() {
			return s.Bool
		}
		l := s.typeOf(lc.With(nil), n.Left)
		r := s.typeOf(lc.With(nil), n.Right)
		if fs := s.operatorOverload(n.Op, l, r); fs != nil {
			return s.ResolveCall(lc, fs, []ast.Node{n.Left, n.Right}, n.Pos()).Return
		}
		return s.binaryType(n.Op, l, r, n.Pos())
	case *ast.Unary:
		return s.unaryType(n.Op, s.typeOf(lc.With(nil), n.Operand), n.Pos())
	case *ast.Cast:
		return s.evalType(lc, n.Type)
	case *ast.TupleCall:
		return s.callType(lc, n)
	case *ast.ObjectCall:
		return s.constructed(lc, n)
	case *ast.ArrayLiteral:
		return s.arrayType(lc, n)
	case *ast.TupleLiteral:
		ts := make([]Type, len(n.Elements))
		for i, e := range n.Elements {
			ts[i] = s.typeOf(lc.With(nil), e)
		}
		return s.ImplicitTuple(ts...)
	case *ast.ObjectLiteral:
		fields := make([]StructField, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = StructField{Name: f.Name, Type: s.typeOf(lc.With(nil), f.Value), Public: true}
		}
		return s.ImplicitStructure(fields, false)
	case *ast.Subscription:
		return s.subscriptType(lc, n)
	case *ast.If:
		if c, ok := s.Exec(lc.With(s.Bool), n.Condition); ok {
			if s.condition(c, n.Condition.Pos()) {
				return s.typeOf(lc, n.Then)
			}
			if n.Else == nil {
				return s.Void
			}
			return s.typeOf(lc, n.Else)
		}
		if n.Else == nil {
			return s.Void
		}
		return s.branchType(n.Pos(), s.typeOf(lc, n.Then), s.typeOf(lc, n.Else))
	case *ast.Match:
		var ts []Type
		exhaustive := false
		for _, arm := range n.Arms {
			exhaustive = exhaustive || len(arm.Patterns) == 0
			ts = append(ts, s.typeOf(lc, arm.Body))
		}
		if !exhaustive || len(ts) == 0 {
			return s.Void
		}
		return s.branchType(n.Pos(), ts...)
	case *ast.Block:
		return s.blockType(lc, n)
	case *ast.Break, *ast.Continue, *ast.Return:
		return s.NoReturn
	case *ast.While, *ast.Loop, *ast.Assignment, *ast.VariableDeclaration, *ast.VariableDefinition, *ast.Destructure:
		return s.Void
	}

	notImplemented(node.Pos(), "typing %T", node)
	return nil
}

// branchType is the common type of alternative branches. Branches that never
// complete do not take part, and any branch without a value makes the whole
// construct void.
func (s *Session) branchType(at ctypes.Coordinate, ts ...Type) Type {
	var live []Type
	for _, t := range ts {
		switch t.(type) {
		case *NoReturnType:
			continue
		case *VoidType:
			return s.Void
		}
		live = append(live, t)
	}
	if len(live) == 0 {
		return s.NoReturn
	}
	t, err := s.PeerType(live)
	check(err, at)
	return t
}

func (s *Session) arrayType(lc *LocalContext, n *ast.ArrayLiteral) Type {
	if len(n.Elements) == 0 {
		raise(n.Pos(), errors.NoPeerType, "cannot infer the element type of an empty array")
	}
	ts := make([]Type, len(n.Elements))
	for i, e := range n.Elements {
		ts[i] = s.typeOf(lc.With(nil), e)
	}
	elem, err := s.PeerType(ts)
	check(err, n.Pos())
	return s.Array([]uint64{uint64(len(ts))}, s.Concretize(elem), false)
}

// operatorOverload returns the user-defined operator set for op over l and
// r, if either operand is a named structure that declares one.
func (s *Session) operatorOverload(op ast.Operator, l, r Type) *FunctionSet {
	for _, t := range []Type{l, r} {
		t, _ = stripReference(t)
		if st, ok := t.(*Structure); ok && !st.Implicit {
			if fs, ok := st.FunctionSets[operatorSetName(op)]; ok {
				return fs
			}
		}
	}
	return nil
}

func (s *Session) binaryType(op ast.Operator, l, r Type, at ctypes.Coordinate) Type {
	l, _ = stripReference(l)
	r, _ = stripReference(r)

	switch {
	case l == Type(s.Error) || r == Type(s.Error):
		return s.Error
	case IsFunctional(l) || IsFunctional(r):
		return s.Composed(op, l, r)
	}

	if _, ok := l.(*BoolType); ok && l == r {
		switch op {
		case ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpEq, ast.OpNe:
			return s.Bool
		}
	}

	if op == ast.OpShl || op == ast.OpShr {
		if !isInteger(l) || !isInteger(r) {
			raise(at, errors.InvalidOperation, "cannot shift %s by %s", l, r)
		}
		return l
	}

	peer := s.Peer(l, r)
	if peer == nil || !IsTrivialArithmetic(peer) {
		raise(at, errors.NoPeerType, "no common type for %s %s %s", l, op, r)
	}
	if op.IsComparison() {
		return s.Bool
	}
	if !isInteger(peer) {
		switch op {
		case ast.OpMod, ast.OpAnd, ast.OpOr, ast.OpXor:
			raise(at, errors.InvalidOperation, "%s is not defined on %s", op, peer)
		}
	}
	return peer
}

func (s *Session) unaryType(op ast.Operator, t Type, at ctypes.Coordinate) Type {
	if t == Type(s.Error) {
		return t
	}
	switch op {
	case ast.OpDeref:
		switch p := t.(type) {
		case *PointerType:
			return p.Child
		case *ReferenceType:
			return p.Child
		}
		raise(at, errors.InvalidOperation, "cannot dereference %s", t)
	case ast.OpAddressOf:
		child, _ := stripReference(t)
		return s.Pointer(child, false)
	}

	t, _ = stripReference(t)
	if IsFunctional(t) {
		return s.Composed(op, t)
	}
	switch op {
	case ast.OpNot:
		if _, ok := t.(*BoolType); ok || isInteger(t) {
			return t
		}
	case ast.OpNegate, ast.OpPlus:
		if IsTrivialArithmetic(t) {
			return t
		}
	}
	raise(at, errors.InvalidOperation, "%s is not defined on %s", op, t)
	return nil
}

// method recognizes `value.name(...)` where name is a function of value's
// structure type. It returns the set and the receiver expression.
func (s *Session) method(lc *LocalContext, callee ast.Node) (*FunctionSet, ast.Node, bool) {
	sub, ok := callee.(*ast.Subscription)
	if !ok {
		return nil, nil, false
	}
	name, _, ok := subscriptName(sub.Right)
	if !ok {
		return nil, nil, false
	}
	if _, ok := s.Exec(lc.With(nil), sub.Left); ok {
		return nil, nil, false
	}
	t, _ := stripReference(s.typeOf(lc.With(nil), sub.Left))
	st, ok := t.(*Structure)
	if !ok || st.FieldIndex(name) >= 0 {
		return nil, nil, false
	}
	fs, ok := st.FunctionSets[name]
	if !ok {
		return nil, nil, false
	}
	return fs, sub.Left, true
}

func (s *Session) callType(lc *LocalContext, n *ast.TupleCall) Type {
	if fs, self, ok := s.method(lc, n.Callee); ok {
		args := append([]ast.Node{self}, n.Args...)
		return s.ResolveCall(lc, fs, args, n.Pos()).Return
	}

	if callee, ok := s.Exec(lc.With(nil), n.Callee); ok {
		switch c := callee.(type) {
		case *TypeValue:
			return c.Value
		case *FunctionSetValue:
			return s.ResolveCall(lc, c.Set, n.Args, n.Pos()).Return
		}
	}

	t, _ := stripReference(s.typeOf(lc.With(nil), n.Callee))
	switch c := t.(type) {
	case *ErrorType:
		return c
	case *FunctionTemplateType:
		return s.ResolveCall(lc, c.Set, n.Args, n.Pos()).Return
	case *FunctionPointerType:
		return c.Return
	case *ImportedFunctionType:
		return c.Return
	case *ComposedFunctionType:
		argTypes := make([]Type, len(n.Args))
		for i, arg := range n.Args {
			argTypes[i] = s.Concretize(s.GetType(lc.With(nil), arg))
		}
		return s.composedFunction(c, argTypes, n.Pos()).Return
	}
	raise(n.Pos(), errors.InvalidOperation, "%s is not callable", t)
	return nil
}

// member describes the run-time target of a subscription.
type member struct {
	global *TopLevelVariable
	index  int
	typ    Type
}

func (s *Session) subscriptType(lc *LocalContext, n *ast.Subscription) Type {
	return s.resolveMember(lc, n).typ
}

func (s *Session) resolveMember(lc *LocalContext, n *ast.Subscription) member {
	name, index, ok := subscriptName(n.Right)
	if !ok {
		raise(n.Right.Pos(), errors.InvalidSubscript, "only names and integer literals can follow a subscription")
	}

	if left, ok := s.Exec(lc.With(nil), n.Left); ok {
		if tv, ok := left.(*TypeValue); ok {
			if st, ok := tv.Value.(*Structure); ok {
				if b, ok := st.resolveByName(name); ok && b.global != nil {
					return member{global: b.global, index: -1, typ: b.global.Type}
				}
			}
		}
		raise(n.Pos(), errors.InvalidSubscript, "%s has no run-time member %s", left, name)
	}

	t, _ := stripReference(s.typeOf(lc.With(nil), n.Left))
	switch c := t.(type) {
	case *ErrorType:
		return member{index: -1, typ: c}
	case *Structure:
		i := c.FieldIndex(name)
		if i < 0 {
			raise(n.Pos(), errors.InvalidSubscript, "%s has no field %s", c, name)
		}
		return member{index: i, typ: c.Fields[i].Type}
	case *ComposedFunctionType:
		if index < 0 || index >= len(c.Operands) {
			raise(n.Pos(), errors.InvalidSubscript, "%s has no operand %s", c, name)
		}
		return member{index: index, typ: c.Operands[index]}
	case *ArrayType:
		if index < 0 || uint64(index) >= c.Dimensions[0] {
			raise(n.Pos(), errors.InvalidSubscript, "index %s is out of bounds for %s", name, c)
		}
		if len(c.Dimensions) == 1 {
			return member{index: index, typ: c.Child}
		}
		return member{index: index, typ: s.Array(c.Dimensions[1:], c.Child, c.Const)}
	}
	raise(n.Pos(), errors.InvalidSubscript, "%s cannot be subscripted", t)
	return member{}
}

// scratch returns a scope in which a block's declarations can be bound for
// typing without emitting anything.
func (s *Session) scratch(lc *LocalContext) *LocalContext {
	discard := &bacteria.Block{}
	if lc.Runtime == nil {
		return newRuntimeContext(lc.Comptime, nil, s.Void, discard).Local(lc.Expected)
	}
	return lc.runtimeChild(discard)
}

func (s *Session) blockType(lc *LocalContext, n *ast.Block) Type {
	inner := s.scratch(lc)
	for _, child := range n.Children {
		s.bindForTyping(inner, child)
		if n.Yield == nil && child == n.Children[len(n.Children)-1] {
			if _, ok := s.typeOf(inner.With(nil), child).(*NoReturnType); ok {
				return s.NoReturn
			}
		}
	}
	if n.Yield == nil {
		return s.Void
	}
	return s.typeOf(inner, n.Yield)
}

// bindForTyping introduces the names a statement declares.
func (s *Session) bindForTyping(lc *LocalContext, node ast.Node) {
	rt := lc.Runtime
	switch n := node.(type) {
	case *ast.VariableDeclaration:
		var declared Type
		if n.Type != nil {
			declared = s.evalType(lc, n.Type)
		}
		if v, ok := s.Exec(lc.With(declared), n.Value); ok && s.localComptime(n, declared, v.Type()) {
			rt.DeclareComptime(n.Name, v, !n.Mutable)
			return
		}
		t := declared
		if t == nil {
			t = s.Concretize(s.typeOf(lc.With(nil), n.Value))
		}
		rt.Declare(n.Name, t, n.Mutable)
	case *ast.VariableDefinition:
		rt.Declare(n.Name, s.evalType(lc, n.Type), n.Mutable)
	case *ast.Destructure:
		t, _ := stripReference(s.typeOf(lc.With(nil), n.Value))
		st, ok := t.(*Structure)
		if !ok || len(st.Fields) != len(n.Names) {
			return
		}
		for i, name := range n.Names {
			rt.Declare(name.Name, st.Fields[i].Type, name.Mutable)
		}
	}
}

// localComptime reports whether a local declaration binds a compile-time
// value rather than a run-time variable.
func (s *Session) localComptime(n *ast.VariableDeclaration, declared, t Type) bool {
	if n.Comptime {
		return true
	}
	if declared != nil {
		t = declared
	}
	return !n.Mutable && s.Comptimeness(t) != Runtime
}
