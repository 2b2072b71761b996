// Package ast holds the syntax tree handed to the lowering engine by the
// parser.
package ast

import (
	"math/big"

	"github.com/pontaoski/curdle/types"
)

//go:generate sh -c "cd ../tool && go run . ../ast/ast.adt ../ast/markers_gen.go ast"

// Base carries the source coordinate of a node.
type Base struct {
	At types.Coordinate
}

func (b Base) Pos() types.Coordinate { return b.At }

type Operator int

const (
	OpNone Operator = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogicalAnd
	OpLogicalOr
	OpNegate
	OpPlus
	OpNot
	OpDeref
	OpAddressOf
)

var operatorSymbols = map[Operator]string{
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpMod:        "%",
	OpShl:        "<<",
	OpShr:        ">>",
	OpAnd:        "&",
	OpOr:         "|",
	OpXor:        "^",
	OpEq:         "==",
	OpNe:         "!=",
	OpLt:         "<",
	OpLe:         "<=",
	OpGt:         ">",
	OpGe:         ">=",
	OpLogicalAnd: "and",
	OpLogicalOr:  "or",
	OpNegate:     "-",
	OpPlus:       "+",
	OpNot:        "not",
	OpDeref:      "$",
	OpAddressOf:  "&",
}

func (o Operator) String() string {
	if s, ok := operatorSymbols[o]; ok {
		return s
	}
	return "?"
}

func (o Operator) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

func (o Operator) IsLogical() bool {
	return o == OpLogicalAnd || o == OpLogicalOr
}

type Node interface {
	Pos() types.Coordinate
	is_Node()
}

type IntegerLiteral struct {
	Base
	Value *big.Int
}

type FloatLiteral struct {
	Base
	Value float64
}

type ImaginaryLiteral struct {
	Base
	Value float64
}

type StringLiteral struct {
	Base
	Value string
}

type BoolLiteral struct {
	Base
	Value bool
}

type ValueReference struct {
	Base
	Name string
}

type BuiltinReference struct {
	Base
	Name string
}

type TupleLiteral struct {
	Base
	Elements []Node
}

type FieldInit struct {
	Name  string
	Value Node
	At    types.Coordinate
}

type ObjectLiteral struct {
	Base
	Fields []FieldInit
}

type ArrayLiteral struct {
	Base
	Elements []Node
}

type TupleCall struct {
	Base
	Callee Node
	Args   []Node
}

type ObjectCall struct {
	Base
	Callee Node
	Fields []FieldInit
}

// Subscription is a member access `Left.Right`. Right is a ValueReference
// or an IntegerLiteral.
type Subscription struct {
	Base
	Left  Node
	Right Node
}

type Binary struct {
	Base
	Op    Operator
	Left  Node
	Right Node
}

type Unary struct {
	Base
	Op      Operator
	Operand Node
}

type Cast struct {
	Base
	Value Node
	Type  Node
}

type If struct {
	Base
	Condition Node
	Then      Node
	Else      Node
}

type While struct {
	Base
	Condition Node
	Body      Node
}

type Loop struct {
	Base
	Body Node
}

// MatchArm with no patterns is the default arm.
type MatchArm struct {
	Patterns []Node
	Body     Node
	At       types.Coordinate
}

type Match struct {
	Base
	Value Node
	Arms  []MatchArm
}

// Block runs Children in order and evaluates to Yield, if any.
type Block struct {
	Base
	Children []Node
	Yield    Node
}

type Break struct {
	Base
}

type Continue struct {
	Base
}

type Return struct {
	Base
	Value Node
}

type Comptime struct {
	Base
	Value Node
}

// Assignment with an Op other than OpNone is a compound assignment.
type Assignment struct {
	Base
	Op     Operator
	Target Node
	Value  Node
}

type DestructureName struct {
	Name    string
	Mutable bool
}

type Destructure struct {
	Base
	Names []DestructureName
	Value Node
}

type VariableDeclaration struct {
	Base
	Name     string
	Type     Node
	Value    Node
	Mutable  bool
	Comptime bool
	Public   bool
}

type VariableDefinition struct {
	Base
	Name    string
	Type    Node
	Mutable bool
	Public  bool
}

type Field struct {
	Base
	Name   string
	Type   Node
	Public bool
}

// Argument with a nil Type accepts any type.
type Argument struct {
	Name     string
	Type     Node
	Comptime bool
}

type Function struct {
	Base
	Name      string
	Args      []Argument
	Return    Node
	Body      Node
	Public    bool
	Entry     bool
	Generator bool
}

// Prototype is a function without a body. Extern prototypes bind to an
// unmangled external symbol.
type Prototype struct {
	Base
	Name   string
	Args   []Argument
	Return Node
	Public bool
	Extern bool
}

type OperatorDeclaration struct {
	Base
	Op     Operator
	Args   []Argument
	Return Node
	Body   Node
	Public bool
}

type ComptimeBlock struct {
	Base
	Body Node
}

type Mixin struct {
	Base
	Value Node
}

type Import struct {
	Base
	Path string
	Name string
}

type Structure struct {
	Base
	Children   []Node
	Implements []Node
	Tuple      bool
}

type Interface struct {
	Base
	Children []Node
}

type Enum struct {
	Base
	Members []string
}

type ReferenceType struct {
	Base
	Child Node
	Const bool
}

type PointerType struct {
	Base
	Child Node
	Const bool
}

type ArrayType struct {
	Base
	Dimensions []Node
	Child      Node
	Const      bool
}

type FunctionPointerType struct {
	Base
	Args   []Node
	Return Node
}

// FunctionSignature returns the parts of a function-like declaration.
func FunctionSignature(n Node) (args []Argument, ret Node, body Node, ok bool) {
	switch fn := n.(type) {
	case *Function:
		return fn.Args, fn.Return, fn.Body, true
	case *Prototype:
		return fn.Args, fn.Return, nil, true
	case *OperatorDeclaration:
		return fn.Args, fn.Return, fn.Body, true
	}
	return nil, nil, nil, false
}
