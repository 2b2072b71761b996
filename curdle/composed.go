package curdle

import (
	"strings"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/names"
	ctypes "github.com/pontaoski/curdle/types"
)

const composedState = "state"

// Composed returns the type of `a op b` or `op a` where at least one operand
// is functional. Calling such a value calls the functional operands with the
// same arguments and applies op to the results.
func (s *Session) Composed(op ast.Operator, operands ...Type) *ComposedFunctionType {
	key := op.String() + identity(operands...)
	if t, ok := s.composed[key]; ok {
		return t
	}

	var parts []string
	for _, o := range operands {
		parts = append(parts, o.String())
	}
	name := "::(" + strings.Join(parts, op.String()) + ")"
	if len(operands) == 1 {
		name = "::" + op.String() + "(" + parts[0] + ")"
	}
	t := &ComposedFunctionType{
		Op:       op,
		Operands: operands,
		name:     name,
	}
	s.composed[key] = t
	return t
}

// composedBody is the expression a composed function evaluates, written in
// terms of its state parameter and arguments _0.._n.
func composedBody(ct *ComposedFunctionType, args int, at ctypes.Coordinate) ast.Node {
	operand := func(i int) ast.Node {
		sub := &ast.Subscription{
			Base:  ast.Base{At: at},
			Left:  &ast.ValueReference{Base: ast.Base{At: at}, Name: composedState},
			Right: indexLiteral(i, at),
		}
		if !IsFunctional(ct.Operands[i]) {
			return sub
		}
		call := &ast.TupleCall{Base: ast.Base{At: at}, Callee: sub}
		for j := 0; j < args; j++ {
			call.Args = append(call.Args, &ast.ValueReference{Base: ast.Base{At: at}, Name: tupleFieldName(j)})
		}
		return call
	}
	if len(ct.Operands) == 1 {
		return &ast.Unary{Base: ast.Base{At: at}, Op: ct.Op, Operand: operand(0)}
	}
	return &ast.Binary{Base: ast.Base{At: at}, Op: ct.Op, Left: operand(0), Right: operand(1)}
}

// composedFunction returns the synthesized function that implements a call
// to a composed value with arguments of the given types.
func (s *Session) composedFunction(ct *ComposedFunctionType, argTypes []Type, at ctypes.Coordinate) *ConcreteFunction {
	key := identity(ct) + identity(argTypes...)
	if cf, ok := s.composedFns[key]; ok {
		return cf
	}

	state := s.Reference(ct, true)
	cf := &ConcreteFunction{Args: []FunctionArgument{{Name: composedState, Type: state}}}
	for i, t := range argTypes {
		cf.Args = append(cf.Args, FunctionArgument{Name: tupleFieldName(i), Type: t})
	}

	bf := &bacteria.Function{}
	rt := newRuntimeContext(s.global, cf, nil, bf)
	var signature []string
	for _, arg := range cf.Args {
		v := rt.Declare(arg.Name, arg.Type, false)
		bf.Params = append(bf.Params, bacteria.Param{Name: v.Storage, Type: s.backendType(arg.Type, at)})
		signature = append(signature, arg.Type.String())
	}

	body := composedBody(ct, len(argTypes), at)
	cf.Return = s.typeOf(rt.Local(nil), body)
	rt.frame.returns = cf.Return

	cf.Name = names.Mangle(ct.String()+":fn", signature, cf.Return.String(), false)
	bf.Name = cf.Name
	bf.Return = s.backendType(cf.Return, at)
	s.composedFns[key] = cf
	s.Program.AddFunction(bf)

	plog.Debugf("composing %s", names.UnmangleFunction(cf.Name))
	s.lowerBody(rt, body)
	return cf
}

// callComposed lowers a call through a composed value.
func (s *Session) callComposed(lc *LocalContext, callee bacteria.Value, ct *ComposedFunctionType, args []ast.Node, at ctypes.Coordinate) bacteria.Value {
	argTypes := make([]Type, len(args))
	for i, arg := range args {
		argTypes[i] = s.Concretize(s.GetType(lc.With(nil), arg))
	}
	cf := s.composedFunction(ct, argTypes, at)

	state := s.Reference(ct, true)
	call := &bacteria.NormalCall{
		Function: cf.Name,
		Typ:      s.backendType(cf.Return, at),
		Args:     []bacteria.Value{&bacteria.ImplicitReference{Value: callee, Typ: s.backendType(state, at)}},
	}
	for i, arg := range args {
		v := s.Translate(lc.With(argTypes[i]), arg)
		call.Args = append(call.Args, asValue(v, arg.Pos()))
	}
	return call
}
