package curdle

import (
	"math/big"

	"github.com/pontaoski/curdle/errors"
)

// ChildComptime looks up a static member of t, resolving lazy structure
// members as needed.
func (s *Session) ChildComptime(t Type, name string) (Value, error) {
	switch name {
	case "__name__":
		return &StringValue{Typ: s.ComptimeString, Value: t.String()}, nil
	case "__size__":
		bt, err := s.CachedType(t)
		if err != nil {
			return nil, err
		}
		size, _ := SizeOf(bt)
		return &IntegerValue{Typ: s.ComptimeInt, Value: new(big.Int).SetUint64(size)}, nil
	}

	switch t := t.(type) {
	case *Structure:
		b, ok := t.resolveByName(name)
		if ok && b.value != nil {
			return b.value, nil
		}
		if ok && b.global != nil {
			return nil, fail(errors.NotComptime, "%s.%s is a run-time variable", t, name)
		}
	case *IntegerType:
		switch name {
		case "bits":
			return s.comptimeInt(int64(t.Bits)), nil
		case "signed":
			return s.boolValue(t.Signed), nil
		}
	case *FloatType:
		if name == "bits" {
			return s.comptimeInt(int64(t.Bits)), nil
		}
	case *ReferenceType:
		if name == "child" {
			return s.typeValue(t.Child), nil
		}
	case *PointerType:
		if name == "child" {
			return s.typeValue(t.Child), nil
		}
	case *ArrayType:
		switch name {
		case "child":
			return s.typeValue(t.Child), nil
		case "rank":
			return s.comptimeInt(int64(len(t.Dimensions))), nil
		}
	case *FunctionPointerType:
		switch name {
		case "return_type":
			return s.typeValue(t.Return), nil
		case "arity":
			return s.comptimeInt(int64(len(t.Args))), nil
		}
	case *ComposedFunctionType:
		if name == "arity" {
			return s.comptimeInt(int64(len(t.Operands))), nil
		}
	}
	return nil, fail(errors.InvalidSubscript, "%s has no compile-time member %s", t, name)
}
