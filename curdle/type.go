package curdle

import (
	"fmt"
	"strings"

	"github.com/pontaoski/curdle/ast"
)

//go:generate sh -c "cd ../tool && go run . ../curdle/curdle.adt ../curdle/markers_gen.go curdle"

// Type is a semantic type. Instances are interned by the session, so two
// structurally identical types are the same pointer.
type Type interface {
	String() string
	is_Type()
}

type Comptimeness int

const (
	Runtime Comptimeness = iota
	ArgumentDepending
	Comptime
)

type VoidType struct{}

func (*VoidType) String() string { return "void" }

// NoReturnType is the type of expressions that never complete.
type NoReturnType struct{}

func (*NoReturnType) String() string { return "noreturn" }

type BoolType struct{}

func (*BoolType) String() string { return "bool" }

type IntegerType struct {
	Signed bool
	Bits   uint16
}

func (t *IntegerType) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Bits)
	}
	return fmt.Sprintf("u%d", t.Bits)
}

type FloatType struct {
	Bits uint16
}

func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Bits) }

// ComplexType is a pair of floats of Bits each.
type ComplexType struct {
	Bits uint16
}

func (t *ComplexType) String() string { return fmt.Sprintf("c%d", t.Bits) }

type ComptimeIntType struct{}

func (*ComptimeIntType) String() string { return "comptime_int" }

type ComptimeFloatType struct{}

func (*ComptimeFloatType) String() string { return "comptime_float" }

type ComptimeComplexType struct{}

func (*ComptimeComplexType) String() string { return "comptime_complex" }

type ComptimeStringType struct{}

func (*ComptimeStringType) String() string { return "comptime_string" }

// TypeType is the type of type values.
type TypeType struct{}

func (*TypeType) String() string { return "type" }

type AnyType struct{}

func (*AnyType) String() string { return "any" }

// ErrorType is the poison type substituted after a failure.
type ErrorType struct{}

func (*ErrorType) String() string { return "error" }

type BuiltinReferenceType struct{}

func (*BuiltinReferenceType) String() string { return "builtin" }

type ReferenceType struct {
	Child Type
	Const bool
}

func (t *ReferenceType) String() string {
	if t.Const {
		return "const &" + t.Child.String()
	}
	return "&" + t.Child.String()
}

type PointerType struct {
	Child Type
	Const bool
}

func (t *PointerType) String() string {
	if t.Const {
		return "const *" + t.Child.String()
	}
	return "*" + t.Child.String()
}

type ArrayType struct {
	Dimensions []uint64
	Child      Type
	Const      bool
}

func (t *ArrayType) String() string {
	var dims []string
	for _, d := range t.Dimensions {
		dims = append(dims, fmt.Sprint(d))
	}
	s := "[" + strings.Join(dims, ", ") + "]" + t.Child.String()
	if t.Const {
		return "const " + s
	}
	return s
}

type FunctionPointerType struct {
	Return Type
	Args   []Type
}

func typeList(ts []Type) string {
	var parts []string
	for _, t := range ts {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

func (t *FunctionPointerType) String() string {
	return fmt.Sprintf("fn(%s) => %s", typeList(t.Args), t.Return)
}

// ImportedFunctionType is the type of an extern prototype.
type ImportedFunctionType struct {
	Return Type
	Args   []Type
}

func (t *ImportedFunctionType) String() string {
	return fmt.Sprintf("extern fn(%s) => %s", typeList(t.Args), t.Return)
}

// FunctionTemplateType is the type of an unresolved overload set.
type FunctionTemplateType struct {
	Set *FunctionSet
}

func (t *FunctionTemplateType) String() string {
	return "fn<" + t.Set.Name + ">"
}

// ComposedFunctionType defers operator dispatch over Operands until the
// composed value is called.
type ComposedFunctionType struct {
	Op       ast.Operator
	Operands []Type
	name     string
}

func (t *ComposedFunctionType) String() string { return t.name }

type InterfaceType struct {
	Name    string
	Methods []string
}

func (t *InterfaceType) String() string { return t.Name }
