package curdle

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Value is fully known at compile time. Every value has exactly one type.
type Value interface {
	Type() Type
	String() string
	is_Value()
}

type IntegerValue struct {
	Typ   Type
	Value *big.Int
}

func (v *IntegerValue) Type() Type     { return v.Typ }
func (v *IntegerValue) String() string { return v.Value.String() }

type FloatValue struct {
	Typ   Type
	Value float64
}

func (v *FloatValue) Type() Type { return v.Typ }
func (v *FloatValue) String() string {
	return strconv.FormatFloat(v.Value, 'g', -1, 64)
}

type ComplexValue struct {
	Typ   Type
	Value complex128
}

func (v *ComplexValue) Type() Type { return v.Typ }
func (v *ComplexValue) String() string {
	return strconv.FormatComplex(v.Value, 'g', -1, 128)
}

type BoolValue struct {
	Typ   Type
	Value bool
}

func (v *BoolValue) Type() Type     { return v.Typ }
func (v *BoolValue) String() string { return strconv.FormatBool(v.Value) }

type StringValue struct {
	Typ   Type
	Value string
}

func (v *StringValue) Type() Type     { return v.Typ }
func (v *StringValue) String() string { return strconv.Quote(v.Value) }

// ArrayValue holds the elements of an array or a tuple aggregate.
type ArrayValue struct {
	Typ    Type
	Values []Value
}

func (v *ArrayValue) Type() Type { return v.Typ }
func (v *ArrayValue) String() string {
	var parts []string
	for _, e := range v.Values {
		parts = append(parts, e.String())
	}
	if _, ok := v.Typ.(*ArrayType); ok {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ObjectValue is a record aggregate. Field order follows Typ.
type ObjectValue struct {
	Typ    *Structure
	Fields map[string]Value
}

func (v *ObjectValue) Type() Type { return v.Typ }
func (v *ObjectValue) String() string {
	var parts []string
	for _, f := range v.Typ.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, v.Fields[f.Name]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

type TypeValue struct {
	Typ   Type
	Value Type
}

func (v *TypeValue) Type() Type     { return v.Typ }
func (v *TypeValue) String() string { return v.Value.String() }

type FunctionSetValue struct {
	Typ Type
	Set *FunctionSet
}

func (v *FunctionSetValue) Type() Type     { return v.Typ }
func (v *FunctionSetValue) String() string { return "fn " + v.Set.Name }

type BuiltinValue struct {
	Typ     Type
	Builtin *Builtin
}

func (v *BuiltinValue) Type() Type     { return v.Typ }
func (v *BuiltinValue) String() string { return "$" + v.Builtin.Name }

// ImportedValue names an external function by its unmangled symbol.
type ImportedValue struct {
	Typ  *ImportedFunctionType
	Name string
}

func (v *ImportedValue) Type() Type     { return v.Typ }
func (v *ImportedValue) String() string { return "extern " + v.Name }

type VoidValue struct {
	Typ Type
}

func (v *VoidValue) Type() Type     { return v.Typ }
func (v *VoidValue) String() string { return "void" }

func (s *Session) typeValue(t Type) *TypeValue {
	return &TypeValue{Typ: s.TypeOfTypes, Value: t}
}

func (s *Session) voidValue() *VoidValue {
	return &VoidValue{Typ: s.Void}
}

func (s *Session) boolValue(b bool) *BoolValue {
	return &BoolValue{Typ: s.Bool, Value: b}
}

func (s *Session) comptimeInt(i int64) *IntegerValue {
	return &IntegerValue{Typ: s.ComptimeInt, Value: big.NewInt(i)}
}

// IsSameAs reports deep equality of two values of the identical type.
func IsSameAs(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}

	switch a := a.(type) {
	case *IntegerValue:
		return a.Value.Cmp(b.(*IntegerValue).Value) == 0
	case *FloatValue:
		return a.Value == b.(*FloatValue).Value
	case *ComplexValue:
		return a.Value == b.(*ComplexValue).Value
	case *BoolValue:
		return a.Value == b.(*BoolValue).Value
	case *StringValue:
		return a.Value == b.(*StringValue).Value
	case *ArrayValue:
		other := b.(*ArrayValue)
		if len(a.Values) != len(other.Values) {
			return false
		}
		for i := range a.Values {
			if !IsSameAs(a.Values[i], other.Values[i]) {
				return false
			}
		}
		return true
	case *ObjectValue:
		other := b.(*ObjectValue)
		for _, f := range a.Typ.Fields {
			x, y := a.Fields[f.Name], other.Fields[f.Name]
			if x == nil || y == nil || !IsSameAs(x, y) {
				return false
			}
		}
		return true
	case *TypeValue:
		return a.Value == b.(*TypeValue).Value
	case *FunctionSetValue:
		return a.Set == b.(*FunctionSetValue).Set
	case *BuiltinValue:
		return a.Builtin == b.(*BuiltinValue).Builtin
	case *ImportedValue:
		return a.Name == b.(*ImportedValue).Name
	case *VoidValue:
		return true
	}
	return false
}
