package emit

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pontaoski/curdle/bacteria"
)

func (f *function) statement(n bacteria.Node) {
	if f.block.Term != nil {
		// anything after break, continue or return is unreachable
		f.block = f.newBlock("dead")
	}

	switch n := n.(type) {
	case *bacteria.Nop:
	case *bacteria.Block:
		for _, child := range n.Children {
			f.statement(child)
		}
		if n.Result != nil {
			f.value(n.Result)
		}
	case *bacteria.If:
		f.conditional(n)
	case *bacteria.While:
		f.loop(n)
	case *bacteria.Break:
		f.innermost("break").NewBr(f.loops[len(f.loops)-1].exit)
	case *bacteria.Continue:
		f.innermost("continue").NewBr(f.loops[len(f.loops)-1].head)
	case *bacteria.Return:
		if n.Value == nil {
			f.block.NewRet(nil)
			return
		}
		v := f.value(n.Value)
		f.block.NewRet(v)
	case *bacteria.VariableDefinition:
		slot := f.alloca(n.Typ)
		f.block.NewStore(constant.NewZeroInitializer(n.Typ), slot)
		f.locals[n.Name] = slot
	case *bacteria.VariableInitialization:
		v := f.value(n.Value)
		slot := f.alloca(n.Typ)
		f.block.NewStore(v, slot)
		f.locals[n.Name] = slot
	case *bacteria.Assignment:
		v := f.value(n.Value)
		ptr, ok := f.addressOf(n.Target)
		if !ok {
			fail("cannot assign to %T", n.Target)
		}
		f.block.NewStore(v, ptr)
	case bacteria.Value:
		f.value(n)
	default:
		fail("unexpected statement %T", n)
	}
}

func (f *function) innermost(what string) *ir.Block {
	if len(f.loops) == 0 {
		fail("%s outside of a loop", what)
	}
	return f.block
}

// yields reports whether n leaves a value behind.
func yields(n bacteria.Node) bool {
	switch n := n.(type) {
	case *bacteria.Block:
		return n.Result != nil
	case bacteria.Value:
		return !types.IsVoid(n.Type())
	}
	return false
}

// conditional emits an if. When it has a value the branches meet in a phi
// fed only by the branches that fall through.
func (f *function) conditional(n *bacteria.If) value.Value {
	cond := f.value(n.Condition)
	then := f.newBlock("then")
	var otherwise *ir.Block
	if n.Else != nil {
		otherwise = f.newBlock("else")
	}
	merge := f.newBlock("ifcont")
	if otherwise == nil {
		f.block.NewCondBr(cond, then, merge)
	} else {
		f.block.NewCondBr(cond, then, otherwise)
	}

	typed := !types.IsVoid(n.Type())
	var incoming []*ir.Incoming
	arm := func(start *ir.Block, node bacteria.Node) {
		f.block = start
		if typed && yields(node) {
			v := f.value(node.(bacteria.Value))
			if f.block.Term == nil {
				incoming = append(incoming, ir.NewIncoming(v, f.block))
				f.block.NewBr(merge)
			}
			return
		}
		f.statement(node)
		switch {
		case f.block.Term != nil:
		case typed:
			f.block.NewUnreachable()
		default:
			f.block.NewBr(merge)
		}
	}
	arm(then, n.Then)
	if otherwise != nil {
		arm(otherwise, n.Else)
	}

	f.block = merge
	if !typed {
		return nil
	}
	if len(incoming) == 0 {
		merge.NewUnreachable()
		return constant.NewUndef(n.Typ)
	}
	return merge.NewPhi(incoming...)
}

func (f *function) loop(n *bacteria.While) {
	head := f.newBlock("while")
	body := f.newBlock("body")
	exit := f.newBlock("done")

	f.block.NewBr(head)
	f.block = head
	cond := f.value(n.Condition)
	f.block.NewCondBr(cond, body, exit)

	f.loops = append(f.loops, loop{head: head, exit: exit})
	f.block = body
	f.statement(n.Body)
	if f.block.Term == nil {
		f.block.NewBr(head)
	}
	f.loops = f.loops[:len(f.loops)-1]
	f.block = exit
}
