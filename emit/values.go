package emit

import (
	"math/big"
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pontaoski/curdle/bacteria"
)

type loop struct {
	head, exit *ir.Block
}

// function is the state of one function being emitted. block is where the
// next instruction goes.
type function struct {
	*generator
	fn     *ir.Func
	entry  *ir.Block
	block  *ir.Block
	locals map[string]value.Value
	loops  []loop
	blocks int
}

func (f *function) newBlock(name string) *ir.Block {
	f.blocks++
	return f.fn.NewBlock(name + "." + strconv.Itoa(f.blocks))
}

// alloca reserves a stack slot in the entry block so loops do not grow the
// stack.
func (f *function) alloca(t types.Type) *ir.InstAlloca {
	return f.entry.NewAlloca(t)
}

// constant folds literal trees into LLVM constants.
func (g *generator) constant(n bacteria.Value) (constant.Constant, bool) {
	switch n := n.(type) {
	case *bacteria.IntegerLiteral:
		return &constant.Int{Typ: n.Typ, X: new(big.Int).Set(n.Value)}, true
	case *bacteria.FloatLiteral:
		return constant.NewFloat(n.Typ, n.Value), true
	case *bacteria.BoolLiteral:
		return constant.NewBool(n.Value), true
	case *bacteria.ComplexLiteral:
		part := n.Typ.Fields[0].(*types.FloatType)
		return constant.NewStruct(n.Typ, constant.NewFloat(part, n.Real), constant.NewFloat(part, n.Imag)), true
	case *bacteria.FunctionReference:
		f, ok := g.functions[n.Name]
		if !ok {
			return nil, false
		}
		return f, true
	case *bacteria.AggregateLiteral:
		var elems []constant.Constant
		for _, v := range n.Values {
			c, ok := g.constant(v)
			if !ok {
				return nil, false
			}
			elems = append(elems, c)
		}
		switch t := n.Typ.(type) {
		case *types.StructType:
			return constant.NewStruct(t, elems...), true
		case *types.ArrayType:
			return constant.NewArray(t, elems...), true
		}
	}
	return nil, false
}

func (f *function) value(n bacteria.Value) value.Value {
	if c, ok := f.constant(n); ok {
		return c
	}

	switch n := n.(type) {
	case *bacteria.AggregateLiteral:
		var agg value.Value = constant.NewUndef(n.Typ)
		for i, v := range n.Values {
			agg = f.block.NewInsertValue(agg, f.value(v), uint64(i))
		}
		return agg
	case *bacteria.ValueReference:
		return f.block.NewLoad(n.Typ, f.variable(n))
	case *bacteria.Cast:
		return f.cast(f.value(n.Value), n.Typ, n.SourceSigned, n.TargetSigned)
	case *bacteria.ImplicitReference:
		return f.address(n.Value)
	case *bacteria.Dereference:
		return f.block.NewLoad(n.Typ, f.value(n.Value))
	case *bacteria.FieldAccess:
		if n.ByReference {
			return f.block.NewLoad(n.Typ, f.field(f.value(n.Value), n.Index))
		}
		if ptr, ok := f.addressOf(n.Value); ok {
			return f.block.NewLoad(n.Typ, f.field(ptr, n.Index))
		}
		return f.block.NewExtractValue(f.value(n.Value), uint64(n.Index))
	case *bacteria.NormalCall:
		callee, ok := f.functions[n.Function]
		if !ok {
			fail("call to undeclared function %s", n.Function)
		}
		return f.block.NewCall(callee, f.values(n.Args)...)
	case *bacteria.PointerCall:
		return f.block.NewCall(f.value(n.Callee), f.values(n.Args)...)
	case *bacteria.Unary:
		return f.unary(n)
	case *bacteria.Binary:
		return f.binary(n)
	case *bacteria.If:
		return f.conditional(n)
	case *bacteria.Block:
		for _, child := range n.Children {
			f.statement(child)
		}
		if n.Result == nil {
			return constant.NewUndef(n.Type())
		}
		return f.value(n.Result)
	case *bacteria.Nop:
		fail("a statement that failed to lower reached the emitter")
	}
	fail("%T does not produce a value", n)
	return nil
}

func (f *function) values(ns []bacteria.Value) []value.Value {
	ret := make([]value.Value, len(ns))
	for i, n := range ns {
		ret[i] = f.value(n)
	}
	return ret
}

func (f *function) variable(n *bacteria.ValueReference) value.Value {
	if n.Global {
		g, ok := f.globals[n.Name]
		if !ok {
			fail("reference to undeclared global %s", n.Name)
		}
		return g
	}
	v, ok := f.locals[n.Name]
	if !ok {
		fail("reference to undeclared variable %s", n.Name)
	}
	return v
}

// addressOf returns a pointer to n when n names storage.
func (f *function) addressOf(n bacteria.Value) (value.Value, bool) {
	switch n := n.(type) {
	case *bacteria.ValueReference:
		return f.variable(n), true
	case *bacteria.Dereference:
		return f.value(n.Value), true
	case *bacteria.FieldAccess:
		if n.ByReference {
			return f.field(f.value(n.Value), n.Index), true
		}
		if ptr, ok := f.addressOf(n.Value); ok {
			return f.field(ptr, n.Index), true
		}
	}
	return nil, false
}

// address is addressOf, spilling temporaries to the stack.
func (f *function) address(n bacteria.Value) value.Value {
	if ptr, ok := f.addressOf(n); ok {
		return ptr
	}
	v := f.value(n)
	slot := f.alloca(v.Type())
	f.block.NewStore(v, slot)
	return slot
}

func (f *function) field(ptr value.Value, index int) value.Value {
	elem := ptr.Type().(*types.PointerType).ElemType
	return f.block.NewGetElementPtr(elem, ptr, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(index)))
}

func (f *function) cast(v value.Value, to types.Type, fromSigned, toSigned bool) value.Value {
	from := v.Type()
	if from.Equal(to) {
		return v
	}
	b := f.block

	switch t := to.(type) {
	case *types.IntType:
		switch s := from.(type) {
		case *types.IntType:
			switch {
			case t.BitSize == 1:
				return b.NewICmp(enum.IPredNE, v, constant.NewInt(s, 0))
			case t.BitSize < s.BitSize:
				return b.NewTrunc(v, t)
			case fromSigned && s.BitSize > 1:
				return b.NewSExt(v, t)
			}
			return b.NewZExt(v, t)
		case *types.FloatType:
			if t.BitSize == 1 {
				return b.NewFCmp(enum.FPredUNE, v, constant.NewFloat(s, 0))
			}
			if toSigned {
				return b.NewFPToSI(v, t)
			}
			return b.NewFPToUI(v, t)
		case *types.PointerType:
			return b.NewPtrToInt(v, t)
		}
	case *types.FloatType:
		switch s := from.(type) {
		case *types.IntType:
			if fromSigned && s.BitSize > 1 {
				return b.NewSIToFP(v, t)
			}
			return b.NewUIToFP(v, t)
		case *types.FloatType:
			if floatBits(t) < floatBits(s) {
				return b.NewFPTrunc(v, t)
			}
			return b.NewFPExt(v, t)
		}
	case *types.PointerType:
		switch from.(type) {
		case *types.PointerType:
			return b.NewBitCast(v, t)
		case *types.IntType:
			return b.NewIntToPtr(v, t)
		}
	case *types.StructType:
		return f.complexCast(v, t, fromSigned)
	}
	fail("cannot cast %s to %s", from, to)
	return nil
}

// complexCast converts a scalar or a complex number to the {re, im} pair t.
func (f *function) complexCast(v value.Value, t *types.StructType, fromSigned bool) value.Value {
	part := t.Fields[0]
	var re, im value.Value
	if s, ok := v.Type().(*types.StructType); ok && len(s.Fields) == 2 {
		re = f.cast(f.block.NewExtractValue(v, 0), part, true, true)
		im = f.cast(f.block.NewExtractValue(v, 1), part, true, true)
	} else {
		re = f.cast(v, part, fromSigned, true)
		im = constant.NewFloat(part.(*types.FloatType), 0)
	}
	var agg value.Value = constant.NewUndef(t)
	agg = f.block.NewInsertValue(agg, re, 0)
	return f.block.NewInsertValue(agg, im, 1)
}

func floatBits(t *types.FloatType) int {
	switch t.Kind {
	case types.FloatKindHalf:
		return 16
	case types.FloatKindFloat:
		return 32
	case types.FloatKindDouble:
		return 64
	case types.FloatKindX86_FP80:
		return 80
	}
	return 128
}

func (f *function) unary(n *bacteria.Unary) value.Value {
	x := f.value(n.Operand)
	switch n.Op {
	case bacteria.Negate:
		if n.Float {
			return f.block.NewFNeg(x)
		}
		return f.block.NewSub(constant.NewInt(x.Type().(*types.IntType), 0), x)
	case bacteria.Not:
		t := x.Type().(*types.IntType)
		if t.BitSize == 1 {
			return f.block.NewXor(x, constant.True)
		}
		return f.block.NewXor(x, constant.NewInt(t, -1))
	}
	fail("unknown unary operator %s", n.Op)
	return nil
}

var (
	signedPredicates = map[bacteria.Op]enum.IPred{
		bacteria.Eq: enum.IPredEQ, bacteria.Ne: enum.IPredNE,
		bacteria.Lt: enum.IPredSLT, bacteria.Le: enum.IPredSLE,
		bacteria.Gt: enum.IPredSGT, bacteria.Ge: enum.IPredSGE,
	}
	unsignedPredicates = map[bacteria.Op]enum.IPred{
		bacteria.Eq: enum.IPredEQ, bacteria.Ne: enum.IPredNE,
		bacteria.Lt: enum.IPredULT, bacteria.Le: enum.IPredULE,
		bacteria.Gt: enum.IPredUGT, bacteria.Ge: enum.IPredUGE,
	}
	floatPredicates = map[bacteria.Op]enum.FPred{
		bacteria.Eq: enum.FPredOEQ, bacteria.Ne: enum.FPredUNE,
		bacteria.Lt: enum.FPredOLT, bacteria.Le: enum.FPredOLE,
		bacteria.Gt: enum.FPredOGT, bacteria.Ge: enum.FPredOGE,
	}
)

func (f *function) binary(n *bacteria.Binary) value.Value {
	x, y := f.value(n.Left), f.value(n.Right)
	b := f.block

	if n.Op.IsComparison() {
		switch {
		case n.Float:
			return b.NewFCmp(floatPredicates[n.Op], x, y)
		case n.Signed:
			return b.NewICmp(signedPredicates[n.Op], x, y)
		}
		return b.NewICmp(unsignedPredicates[n.Op], x, y)
	}

	if n.Float {
		switch n.Op {
		case bacteria.Add:
			return b.NewFAdd(x, y)
		case bacteria.Sub:
			return b.NewFSub(x, y)
		case bacteria.Mul:
			return b.NewFMul(x, y)
		case bacteria.Div:
			return b.NewFDiv(x, y)
		case bacteria.Mod:
			return b.NewFRem(x, y)
		}
		fail("%s is not defined on floats", n.Op)
	}

	switch n.Op {
	case bacteria.Add:
		return b.NewAdd(x, y)
	case bacteria.Sub:
		return b.NewSub(x, y)
	case bacteria.Mul:
		return b.NewMul(x, y)
	case bacteria.Div:
		if n.Signed {
			return b.NewSDiv(x, y)
		}
		return b.NewUDiv(x, y)
	case bacteria.Mod:
		if n.Signed {
			return b.NewSRem(x, y)
		}
		return b.NewURem(x, y)
	case bacteria.Shl:
		return b.NewShl(x, y)
	case bacteria.Shr:
		if n.Signed {
			return b.NewAShr(x, y)
		}
		return b.NewLShr(x, y)
	case bacteria.And:
		return b.NewAnd(x, y)
	case bacteria.Or:
		return b.NewOr(x, y)
	case bacteria.Xor:
		return b.NewXor(x, y)
	}
	fail("unknown binary operator %s", n.Op)
	return nil
}
