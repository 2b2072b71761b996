package curdle

import (
	"fmt"

	"github.com/llir/llvm/ir/types"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

// asValue requires n to produce a value.
func asValue(n bacteria.Node, at ctypes.Coordinate) bacteria.Value {
	if v, ok := n.(bacteria.Value); ok {
		return v
	}
	raise(at, errors.InvalidOperation, "%T does not produce a value", n)
	return nil
}

func isVoid(t Type) bool {
	switch t.(type) {
	case nil, *VoidType:
		return true
	}
	return false
}

// materialize turns a compile-time value into a literal. Values that only
// exist while compiling are rejected.
func (s *Session) materialize(lc *LocalContext, v Value, at ctypes.Coordinate) bacteria.Value {
	if isComptimeNumeric(v.Type()) {
		cast, err := s.Cast(v, s.Concretize(v.Type()))
		check(err, at)
		v = cast
	}

	switch v := v.(type) {
	case *IntegerValue:
		return &bacteria.IntegerLiteral{Typ: s.backendType(v.Typ, at).(*types.IntType), Value: v.Value}
	case *FloatValue:
		return &bacteria.FloatLiteral{Typ: s.backendType(v.Typ, at).(*types.FloatType), Value: v.Value}
	case *ComplexValue:
		return &bacteria.ComplexLiteral{Typ: s.backendType(v.Typ, at).(*types.StructType), Real: real(v.Value), Imag: imag(v.Value)}
	case *BoolValue:
		return &bacteria.BoolLiteral{Value: v.Value}
	case *ArrayValue:
		typ := s.Concretize(v.Typ)
		var elems []bacteria.Value
		for i, e := range v.Values {
			var elem Type
			switch t := typ.(type) {
			case *Structure:
				elem = t.Fields[i].Type
			case *ArrayType:
				elem = t.Child
			}
			if elem != nil {
				cast, err := s.Cast(e, elem)
				check(err, at)
				e = cast
			}
			elems = append(elems, s.materialize(lc, e, at))
		}
		if arr, ok := typ.(*ArrayType); ok {
			return s.nestedArray(arr, elems, at)
		}
		return &bacteria.AggregateLiteral{Typ: s.backendType(typ, at), Values: elems}
	case *ObjectValue:
		typ := s.Concretize(v.Typ).(*Structure)
		lit := &bacteria.AggregateLiteral{Typ: s.backendType(typ, at)}
		for _, f := range typ.Fields {
			cast, err := s.Cast(v.Fields[f.Name], f.Type)
			check(err, at)
			lit.Values = append(lit.Values, s.materialize(lc, cast, at))
		}
		return lit
	case *FunctionSetValue:
		return &bacteria.AggregateLiteral{Typ: s.backendType(v.Typ, at)}
	case *ImportedValue:
		s.declareExtern(v.Name, v.Typ, at)
		return &bacteria.FunctionReference{Name: v.Name, Typ: s.backendType(v.Typ, at)}
	case *VoidValue:
		return &bacteria.Nop{}
	}
	raise(at, errors.NotRuntime, "%s of type %s only exists at compile time", v, v.Type())
	return nil
}

// nestedArray groups the flat elements of a multi-dimensional array by its
// leading dimension.
func (s *Session) nestedArray(t *ArrayType, elems []bacteria.Value, at ctypes.Coordinate) bacteria.Value {
	lit := &bacteria.AggregateLiteral{Typ: s.backendType(t, at)}
	if len(t.Dimensions) == 1 {
		lit.Values = elems
		return lit
	}
	inner := s.Array(t.Dimensions[1:], t.Child, t.Const)
	stride := len(elems) / int(t.Dimensions[0])
	for i := 0; i < int(t.Dimensions[0]); i++ {
		lit.Values = append(lit.Values, s.nestedArray(inner, elems[i*stride:(i+1)*stride], at))
	}
	return lit
}

// declareExtern adds a declaration for an external C symbol once.
func (s *Session) declareExtern(name string, t *ImportedFunctionType, at ctypes.Coordinate) {
	if !s.externs.Insert(name) {
		return
	}
	fn := &bacteria.Function{Name: name, Return: s.backendType(t.Return, at), Extern: true}
	for i, arg := range t.Args {
		fn.Params = append(fn.Params, bacteria.Param{Name: tupleFieldName(i), Type: s.backendType(arg, at)})
	}
	s.Program.AddFunction(fn)
}

// temporary stores v in a fresh local so it can be read more than once.
func (s *Session) temporary(lc *LocalContext, v bacteria.Value, t Type, at ctypes.Coordinate) bacteria.Value {
	switch v.(type) {
	case *bacteria.ValueReference, *bacteria.IntegerLiteral, *bacteria.FloatLiteral, *bacteria.BoolLiteral:
		return v
	}
	if lc.Runtime == nil {
		raise(at, errors.NotRuntime, "cannot evaluate %s here", t)
	}
	tmp := lc.Runtime.Declare(fmt.Sprintf("::tmp%d", len(lc.Runtime.frame.storage)), t, false)
	lc.emit(&bacteria.VariableInitialization{Name: tmp.Storage, Typ: v.Type(), Value: v})
	return &bacteria.ValueReference{Name: tmp.Storage, Typ: v.Type()}
}

// MakeCast converts v from one type to another. No node is added when the
// types are identical. With explicit set, narrowing casts are allowed.
func (s *Session) MakeCast(lc *LocalContext, v bacteria.Value, from, to Type, explicit bool, at ctypes.Coordinate) bacteria.Value {
	if isVoid(to) || from == to {
		return v
	}
	if _, ok := v.(*bacteria.Nop); ok {
		return v
	}

	cost := s.Compare(to, from, !explicit)
	if cost < 0 {
		raise(at, errors.InvalidCast, "cannot convert %s to %s", from, to)
	}
	if cost == 0 {
		return v
	}

	if ref, ok := to.(*ReferenceType); ok {
		if _, ok := from.(*ReferenceType); ok {
			return v
		}
		inner := s.MakeCast(lc, v, from, ref.Child, explicit, at)
		return &bacteria.ImplicitReference{Value: inner, Typ: s.backendType(ref, at)}
	}
	if ref, ok := from.(*ReferenceType); ok {
		deref := &bacteria.Dereference{Value: v, Typ: s.backendType(ref.Child, at)}
		return s.MakeCast(lc, deref, ref.Child, to, explicit, at)
	}

	switch t := to.(type) {
	case *AnyType, *ErrorType, *FunctionPointerType:
		return v
	case *InterfaceType:
		notImplemented(at, "run-time interface values")
	case *Structure:
		f, ok := from.(*Structure)
		if !ok {
			break
		}
		return s.castAggregate(lc, v, f, t, explicit, at)
	case *IntegerType, *FloatType, *ComplexType, *BoolType, *PointerType:
		return &bacteria.Cast{
			Value:        v,
			Typ:          s.backendType(t, at),
			SourceSigned: isSigned(from),
			TargetSigned: isSigned(t),
		}
	}
	raise(at, errors.InvalidCast, "cannot convert %s to %s at run time", from, to)
	return nil
}

// castAggregate converts field by field. Literal aggregates are converted in
// place; other values are read through a temporary.
func (s *Session) castAggregate(lc *LocalContext, v bacteria.Value, from, to *Structure, explicit bool, at ctypes.Coordinate) bacteria.Value {
	lit := &bacteria.AggregateLiteral{Typ: s.backendType(to, at)}
	if agg, ok := v.(*bacteria.AggregateLiteral); ok {
		for i, f := range to.Fields {
			lit.Values = append(lit.Values, s.MakeCast(lc, agg.Values[i], from.Fields[i].Type, f.Type, explicit, at))
		}
		return lit
	}

	base := s.temporary(lc, v, from, at)
	for i, f := range to.Fields {
		field := &bacteria.FieldAccess{Value: base, Index: i, Typ: s.backendType(from.Fields[i].Type, at)}
		lit.Values = append(lit.Values, s.MakeCast(lc, field, from.Fields[i].Type, f.Type, explicit, at))
	}
	return lit
}
