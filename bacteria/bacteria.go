// Package bacteria is the typed tree handed from lowering to code generation.
// Every value-producing node carries a concrete backend type.
package bacteria

import (
	"math/big"

	"github.com/llir/llvm/ir/types"
)

//go:generate sh -c "cd ../tool && go run . ../bacteria/bacteria.adt ../bacteria/markers_gen.go bacteria"

type Node interface {
	is_Node()
}

// Value is a node that produces a value.
type Value interface {
	Node
	Type() types.Type
}

type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	And
	Or
	Xor
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Negate
	Not
)

var opNames = [...]string{"add", "sub", "mul", "div", "mod", "shl", "shr", "and", "or", "xor", "eq", "ne", "lt", "le", "gt", "ge", "neg", "not"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "?"
}

func (o Op) IsComparison() bool {
	return o >= Eq && o <= Ge
}

// Receiver collects statements as they are lowered.
type Receiver interface {
	Receive(n Node)
}

type Param struct {
	Name string
	Type types.Type
}

type Function struct {
	Name   string
	Return types.Type
	Params []Param
	Body   []Node
	Extern bool
	Public bool
}

func (f *Function) Receive(n Node) {
	f.Body = append(f.Body, n)
}

type GlobalVariable struct {
	Name     string
	Typ      types.Type
	Init     Value
	Constant bool
}

// Program is everything produced for one compilation.
type Program struct {
	Functions []*Function
	Globals   []*GlobalVariable
	TypeDefs  []types.Type
	Init      *Function
	Entry     string
}

func NewProgram() *Program {
	return &Program{
		Init: &Function{Name: "__curdle_init", Return: types.Void},
	}
}

func (p *Program) AddFunction(f *Function) {
	p.Functions = append(p.Functions, f)
}

func (p *Program) AddGlobal(g *GlobalVariable) {
	p.Globals = append(p.Globals, g)
}

func (p *Program) AddTypeDef(t types.Type) {
	p.TypeDefs = append(p.TypeDefs, t)
}

func (p *Program) Function(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

type Block struct {
	Children []Node
	Result   Value
	Typ      types.Type
}

func (b *Block) Receive(n Node) {
	b.Children = append(b.Children, n)
}

// Type is void for blocks without a result.
func (b *Block) Type() types.Type {
	if b.Typ == nil {
		return types.Void
	}
	return b.Typ
}

type IntegerLiteral struct {
	Typ   *types.IntType
	Value *big.Int
}

func (i *IntegerLiteral) Type() types.Type { return i.Typ }

type FloatLiteral struct {
	Typ   *types.FloatType
	Value float64
}

func (f *FloatLiteral) Type() types.Type { return f.Typ }

type BoolLiteral struct {
	Value bool
}

func (b *BoolLiteral) Type() types.Type { return types.I1 }

// ComplexLiteral is a {real, imaginary} pair.
type ComplexLiteral struct {
	Typ  *types.StructType
	Real float64
	Imag float64
}

func (c *ComplexLiteral) Type() types.Type { return c.Typ }

// AggregateLiteral builds a struct or array from its elements in order.
type AggregateLiteral struct {
	Typ    types.Type
	Values []Value
}

func (a *AggregateLiteral) Type() types.Type { return a.Typ }

// ValueReference reads a variable, parameter or global by its storage name.
type ValueReference struct {
	Name   string
	Typ    types.Type
	Global bool
}

func (v *ValueReference) Type() types.Type { return v.Typ }

// Cast converts between numeric representations. Signedness is not part of
// the backend types so it travels with the node.
type Cast struct {
	Value        Value
	Typ          types.Type
	SourceSigned bool
	TargetSigned bool
}

func (c *Cast) Type() types.Type { return c.Typ }

// ImplicitReference takes the address of Value, spilling it to a temporary
// when it is not addressable.
type ImplicitReference struct {
	Value Value
	Typ   types.Type
}

func (i *ImplicitReference) Type() types.Type { return i.Typ }

type Dereference struct {
	Value Value
	Typ   types.Type
}

func (d *Dereference) Type() types.Type { return d.Typ }

// FieldAccess reads field Index of Value. When ByReference is set Value is a
// pointer to the aggregate.
type FieldAccess struct {
	Value       Value
	Index       int
	Typ         types.Type
	ByReference bool
}

func (f *FieldAccess) Type() types.Type { return f.Typ }

type NormalCall struct {
	Function string
	Args     []Value
	Typ      types.Type
}

func (n *NormalCall) Type() types.Type { return n.Typ }

type PointerCall struct {
	Callee Value
	Args   []Value
	Typ    types.Type
}

func (p *PointerCall) Type() types.Type { return p.Typ }

type FunctionReference struct {
	Name string
	Typ  types.Type
}

func (f *FunctionReference) Type() types.Type { return f.Typ }

type Unary struct {
	Op      Op
	Operand Value
	Typ     types.Type
	Float   bool
}

func (u *Unary) Type() types.Type { return u.Typ }

type Binary struct {
	Op     Op
	Left   Value
	Right  Value
	Typ    types.Type
	Signed bool
	Float  bool
}

func (b *Binary) Type() types.Type { return b.Typ }

// If has a nil Else when there is no alternative. Typ is void unless both
// branches produce a value.
type If struct {
	Condition Value
	Then      Node
	Else      Node
	Typ       types.Type
}

func (i *If) Type() types.Type {
	if i.Typ == nil {
		return types.Void
	}
	return i.Typ
}

type While struct {
	Condition Value
	Body      Node
}

type Break struct{}

type Continue struct{}

type Return struct {
	Value Value
}

type VariableDefinition struct {
	Name string
	Typ  types.Type
}

type VariableInitialization struct {
	Name  string
	Typ   types.Type
	Value Value
}

// Assignment stores Value into the place described by Target, which is a
// ValueReference, FieldAccess or Dereference.
type Assignment struct {
	Target Value
	Value  Value
}

// Nop stands in for anything that failed to lower.
type Nop struct{}

func (n *Nop) Type() types.Type { return types.Void }
