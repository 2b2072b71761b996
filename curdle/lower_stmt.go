package curdle

import (
	"fmt"
	"math/big"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

func (s *Session) warn(at ctypes.Coordinate, code errors.Code, format string, args ...interface{}) {
	s.Report(errors.Diagnostic{Module: diagnosticModule, Message: fmt.Sprintf(format, args...), Location: at, Code: code})
}

func hasValue(t Type) bool {
	switch t.(type) {
	case nil, *VoidType, *NoReturnType:
		return false
	}
	return true
}

// branch lowers one arm of a conditional into its own block. The block
// yields a value of type t when t has values and the arm completes.
func (s *Session) branch(lc *LocalContext, node ast.Node, t Type) *bacteria.Block {
	blk := &bacteria.Block{}
	inner := lc.runtimeChild(blk)
	if !hasValue(t) {
		blk.Receive(s.Translate(inner.With(nil), node))
		return blk
	}
	if _, ok := s.GetType(inner.With(t), node).(*NoReturnType); ok {
		blk.Receive(s.Translate(inner.With(nil), node))
		return blk
	}
	blk.Result = asValue(s.Translate(inner.With(t), node), node.Pos())
	blk.Typ = s.backendType(t, node.Pos())
	return blk
}

// resultType is the type a conditional produces: the expected type when
// there is one and the construct has a value.
func (s *Session) resultType(lc *LocalContext, t Type) Type {
	if hasValue(t) && !isVoid(lc.Expected) {
		return lc.Expected
	}
	return t
}

func (s *Session) lowerIf(lc *LocalContext, n *ast.If, t Type) (bacteria.Node, Type) {
	if c, ok := s.Exec(lc.With(s.Bool), n.Condition); ok {
		if s.condition(c, n.Condition.Pos()) {
			return s.Translate(lc, n.Then), s.resultType(lc, t)
		}
		if n.Else == nil {
			return &bacteria.Nop{}, s.Void
		}
		return s.Translate(lc, n.Else), s.resultType(lc, t)
	}

	t = s.resultType(lc, t)
	cond := asValue(s.Translate(lc.With(s.Bool), n.Condition), n.Condition.Pos())
	node := &bacteria.If{Condition: cond, Then: s.branch(lc, n.Then, t)}
	if n.Else != nil {
		node.Else = s.branch(lc, n.Else, t)
	}
	if hasValue(t) {
		node.Typ = s.backendType(t, n.Pos())
	}
	return node, t
}

// lowerMatch stores the scrutinee once and tests the arms in order,
// leaving the default arm for last.
func (s *Session) lowerMatch(lc *LocalContext, n *ast.Match, t Type) (bacteria.Node, Type) {
	at := n.Pos()
	t = s.resultType(lc, t)
	vt := s.Concretize(s.GetType(lc.With(nil), n.Value))

	blk := &bacteria.Block{}
	inner := lc.runtimeChild(blk)
	name := fmt.Sprintf("::match%d", len(inner.Runtime.frame.storage))
	value := asValue(s.Translate(inner.With(vt), n.Value), n.Value.Pos())
	scrutinee := inner.Runtime.Declare(name, vt, false)
	blk.Receive(&bacteria.VariableInitialization{Name: scrutinee.Storage, Typ: s.backendType(vt, at), Value: value})

	var chain ast.Node
	for i := len(n.Arms) - 1; i >= 0; i-- {
		if len(n.Arms[i].Patterns) == 0 {
			chain = n.Arms[i].Body
			break
		}
	}
	for i := len(n.Arms) - 1; i >= 0; i-- {
		arm := n.Arms[i]
		if len(arm.Patterns) == 0 {
			continue
		}
		var cond ast.Node
		for _, p := range arm.Patterns {
			test := &ast.Binary{Base: ast.Base{At: p.Pos()}, Op: ast.OpEq, Left: &ast.ValueReference{Base: ast.Base{At: p.Pos()}, Name: name}, Right: p}
			if cond == nil {
				cond = test
			} else {
				cond = &ast.Binary{Base: ast.Base{At: p.Pos()}, Op: ast.OpLogicalOr, Left: cond, Right: test}
			}
		}
		chain = &ast.If{Base: ast.Base{At: arm.At}, Condition: cond, Then: arm.Body, Else: chain}
	}

	if chain == nil {
		return blk, s.Void
	}
	if hasValue(t) {
		blk.Result = asValue(s.Translate(inner.With(t), chain), at)
		blk.Typ = s.backendType(t, at)
	} else {
		blk.Receive(s.Translate(inner.With(nil), chain))
	}
	return blk, t
}

// lowerBlock lowers each statement in a child scope. A failing statement is
// reported and the rest of the block is still lowered.
func (s *Session) lowerBlock(lc *LocalContext, n *ast.Block, t Type) (bacteria.Node, Type) {
	blk := &bacteria.Block{}
	inner := lc.runtimeChild(blk)

	for _, child := range n.Children {
		child := child
		s.protect(child.Pos(), func() {
			s.statement(inner, child)
		})
	}

	if n.Yield == nil {
		return blk, t
	}
	t = s.resultType(lc, t)
	if !hasValue(t) {
		blk.Receive(s.Translate(inner.With(nil), n.Yield))
		return blk, t
	}
	blk.Result = asValue(s.Translate(inner.With(t), n.Yield), n.Yield.Pos())
	blk.Typ = s.backendType(t, n.Pos())
	return blk, t
}

func (s *Session) statement(lc *LocalContext, node ast.Node) {
	switch node.(type) {
	case *ast.VariableDeclaration, *ast.VariableDefinition, *ast.Destructure, *ast.Assignment,
		*ast.TupleCall, *ast.If, *ast.While, *ast.Loop, *ast.Match, *ast.Block,
		*ast.Break, *ast.Continue, *ast.Return, *ast.Comptime:
	default:
		if t := s.GetType(lc.With(nil), node); hasValue(t) {
			s.warn(node.Pos(), errors.UnusedValue, "value of type %s is not used", t)
		}
	}

	n := s.translate(lc.With(nil), node)
	if _, ok := n.(*bacteria.Nop); ok {
		return
	}
	lc.emit(n)
}

func (s *Session) lowerWhile(lc *LocalContext, condition, body ast.Node, at ctypes.Coordinate) bacteria.Node {
	var cond bacteria.Value = &bacteria.BoolLiteral{Value: true}
	if condition != nil {
		if c, ok := s.Exec(lc.With(s.Bool), condition); ok {
			if !s.condition(c, condition.Pos()) {
				return &bacteria.Nop{}
			}
		} else {
			head := &bacteria.Block{Typ: s.backendType(s.Bool, at)}
			head.Result = asValue(s.Translate(lc.runtimeChild(head).With(s.Bool), condition), condition.Pos())
			cond = head
		}
	}

	blk := &bacteria.Block{}
	inner := lc.runtimeChild(blk)
	inner.Runtime.loops++
	blk.Receive(s.Translate(inner.With(nil), body))
	return &bacteria.While{Condition: cond, Body: blk}
}

func (s *Session) requireLoop(lc *LocalContext, what string, at ctypes.Coordinate) {
	if lc.Runtime.loops == 0 {
		raise(at, errors.InvalidOperation, "%s outside of a loop", what)
	}
}

func (s *Session) lowerReturn(lc *LocalContext, n *ast.Return) bacteria.Node {
	ret := lc.Runtime.Returns()
	if n.Value == nil {
		if hasValue(ret) {
			raise(n.Pos(), errors.InvalidOperation, "missing return value of type %s", ret)
		}
		return &bacteria.Return{}
	}
	if !hasValue(ret) {
		if t := s.typeOf(lc.With(nil), n.Value); hasValue(t) {
			raise(n.Pos(), errors.InvalidOperation, "cannot return %s from a function returning %s", t, ret)
		}
		lc.emit(s.Translate(lc.With(nil), n.Value))
		return &bacteria.Return{}
	}
	v := s.Translate(lc.With(ret), n.Value)
	return &bacteria.Return{Value: asValue(v, n.Value.Pos())}
}

func (s *Session) checkShadow(lc *LocalContext, name string, at ctypes.Coordinate) {
	if b, ok := lc.lookup(name, at); ok && b.variable != nil {
		s.warn(at, errors.ShadowedName, "%s shadows an earlier variable", name)
	}
}

func (s *Session) lowerDeclaration(lc *LocalContext, n *ast.VariableDeclaration) {
	at := n.Pos()
	var declared Type
	if n.Type != nil {
		declared = s.evalType(lc, n.Type)
	}

	v, known := s.Exec(lc.With(declared), n.Value)
	if known && s.localComptime(n, declared, v.Type()) {
		if declared != nil {
			cast, err := s.Cast(v, declared)
			check(err, n.Value.Pos())
			v = cast
		}
		lc.Runtime.DeclareComptime(n.Name, v, !n.Mutable)
		return
	}
	if n.Comptime {
		panic(errors.NotComptimeError{Location: n.Value.Pos()})
	}

	t := declared
	switch {
	case t != nil:
	case known:
		t = s.Concretize(v.Type())
	default:
		t = s.Concretize(s.typeOf(lc.With(nil), n.Value))
	}
	if s.Comptimeness(t) != Runtime {
		raise(at, errors.NotRuntime, "%s of type %s cannot exist at run time", n.Name, t)
	}

	value := asValue(s.Translate(lc.With(t), n.Value), n.Value.Pos())
	s.checkShadow(lc, n.Name, at)
	variable := lc.Runtime.Declare(n.Name, t, n.Mutable)
	lc.emit(&bacteria.VariableInitialization{Name: variable.Storage, Typ: s.backendType(t, at), Value: value})
}

func (s *Session) lowerDefinition(lc *LocalContext, n *ast.VariableDefinition) {
	t := s.evalType(lc, n.Type)
	if s.Comptimeness(t) != Runtime {
		raise(n.Pos(), errors.NotRuntime, "%s of type %s needs a compile-time value", n.Name, t)
	}
	s.checkShadow(lc, n.Name, n.Pos())
	variable := lc.Runtime.Declare(n.Name, t, n.Mutable)
	lc.emit(&bacteria.VariableDefinition{Name: variable.Storage, Typ: s.backendType(t, n.Pos())})
}

// lowerDestructure binds each field of an aggregate to its own variable.
func (s *Session) lowerDestructure(lc *LocalContext, n *ast.Destructure) {
	at := n.Pos()
	vt := s.Concretize(s.typeOf(lc.With(nil), n.Value))
	stripped, _ := stripReference(vt)
	st, ok := stripped.(*Structure)
	if !ok || len(st.Fields) != len(n.Names) {
		raise(at, errors.InvalidArgument, "cannot destructure %s into %d names", vt, len(n.Names))
	}

	value := asValue(s.Translate(lc.With(vt), n.Value), n.Value.Pos())
	_, byRef := vt.(*ReferenceType)
	if !byRef {
		value = s.temporary(lc, value, vt, at)
	}
	for i, name := range n.Names {
		ft := st.Fields[i].Type
		field := &bacteria.FieldAccess{Value: value, Index: i, Typ: s.backendType(ft, at), ByReference: byRef}
		s.checkShadow(lc, name.Name, at)
		variable := lc.Runtime.Declare(name.Name, ft, name.Mutable)
		lc.emit(&bacteria.VariableInitialization{Name: variable.Storage, Typ: field.Typ, Value: field})
	}
}

// place describes an assignable location.
type place struct {
	target bacteria.Value
	typ    Type
}

// assignable resolves the target of an assignment, rejecting anything that
// may not be written.
func (s *Session) assignable(lc *LocalContext, node ast.Node) place {
	at := node.Pos()
	switch n := node.(type) {
	case *ast.ValueReference:
		b := lc.mustLookup(n.Name, at)
		switch {
		case b.variable != nil:
			v := b.variable
			ref := &bacteria.ValueReference{Name: v.Storage, Typ: s.backendType(v.Type, at)}
			if r, ok := v.Type.(*ReferenceType); ok {
				if r.Const {
					raise(at, errors.NotMutable, "%s refers to a constant", n.Name)
				}
				return place{target: &bacteria.Dereference{Value: ref, Typ: s.backendType(r.Child, at)}, typ: r.Child}
			}
			if !v.Mutable {
				raise(at, errors.NotMutable, "%s is not mutable", n.Name)
			}
			return place{target: ref, typ: v.Type}
		case b.global != nil:
			if b.global.Constant {
				raise(at, errors.NotMutable, "%s is not mutable", n.Name)
			}
			return place{target: &bacteria.ValueReference{Name: b.global.MangledName, Typ: s.backendType(b.global.Type, at), Global: true}, typ: b.global.Type}
		}
		raise(at, errors.NotMutable, "%s is a compile-time constant", n.Name)
	case *ast.Subscription:
		m := s.resolveMember(lc, n)
		if m.global != nil {
			if m.global.Constant {
				raise(at, errors.NotMutable, "%s is not mutable", m.global.Name)
			}
			return place{target: &bacteria.ValueReference{Name: m.global.MangledName, Typ: s.backendType(m.typ, at), Global: true}, typ: m.typ}
		}
		base := s.assignable(lc, n.Left)
		return place{target: &bacteria.FieldAccess{Value: base.target, Index: m.index, Typ: s.backendType(m.typ, at)}, typ: m.typ}
	case *ast.Unary:
		if n.Op == ast.OpDeref {
			t := s.typeOf(lc.With(nil), n.Operand)
			p, ok := t.(*PointerType)
			if ok && p.Const {
				raise(at, errors.NotMutable, "%s points to a constant", t)
			}
			v := asValue(s.Translate(lc.With(nil), n.Operand), n.Operand.Pos())
			child := s.unaryType(ast.OpDeref, t, at)
			return place{target: &bacteria.Dereference{Value: v, Typ: s.backendType(child, at)}, typ: child}
		}
	}
	raise(at, errors.NotMutable, "cannot assign to this expression")
	return place{}
}

func (s *Session) lowerAssignment(lc *LocalContext, n *ast.Assignment) bacteria.Node {
	p := s.assignable(lc, n.Target)
	value := n.Value
	if n.Op != ast.OpNone {
		value = &ast.Binary{Base: n.Base, Op: n.Op, Left: n.Target, Right: n.Value}
	}
	v := s.Translate(lc.With(p.typ), value)
	return &bacteria.Assignment{Target: p.target, Value: asValue(v, n.Value.Pos())}
}

// indexLiteral builds an integer literal node for synthesized code.
func indexLiteral(i int, at ctypes.Coordinate) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Base: ast.Base{At: at}, Value: big.NewInt(int64(i))}
}
