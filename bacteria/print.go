package bacteria

import (
	"fmt"
	"strings"
)

type printer struct {
	b      strings.Builder
	indent int
}

func (p *printer) line(format string, args ...interface{}) {
	p.b.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) nested(f func()) {
	p.indent++
	f()
	p.indent--
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case nil:
		p.line("<nil>")
	case *Block:
		p.line("block %s", n.Type())
		p.nested(func() {
			for _, child := range n.Children {
				p.node(child)
			}
			if n.Result != nil {
				p.line("yield")
				p.nested(func() { p.node(n.Result) })
			}
		})
	case *IntegerLiteral:
		p.line("int %s %s", n.Typ, n.Value)
	case *FloatLiteral:
		p.line("float %s %g", n.Typ, n.Value)
	case *BoolLiteral:
		p.line("bool %t", n.Value)
	case *ComplexLiteral:
		p.line("complex %s %g %g", n.Typ, n.Real, n.Imag)
	case *AggregateLiteral:
		p.line("aggregate %s", n.Typ)
		p.nested(func() {
			for _, v := range n.Values {
				p.node(v)
			}
		})
	case *ValueReference:
		if n.Global {
			p.line("global %s %s", n.Name, n.Typ)
		} else {
			p.line("ref %s %s", n.Name, n.Typ)
		}
	case *Cast:
		p.line("cast %s", n.Typ)
		p.nested(func() { p.node(n.Value) })
	case *ImplicitReference:
		p.line("implicit-ref %s", n.Typ)
		p.nested(func() { p.node(n.Value) })
	case *Dereference:
		p.line("deref %s", n.Typ)
		p.nested(func() { p.node(n.Value) })
	case *FieldAccess:
		kind := "field"
		if n.ByReference {
			kind = "field-ref"
		}
		p.line("%s %d %s", kind, n.Index, n.Typ)
		p.nested(func() { p.node(n.Value) })
	case *NormalCall:
		p.line("call %s %s", n.Function, n.Typ)
		p.nested(func() {
			for _, arg := range n.Args {
				p.node(arg)
			}
		})
	case *PointerCall:
		p.line("call-ptr %s", n.Typ)
		p.nested(func() {
			p.node(n.Callee)
			for _, arg := range n.Args {
				p.node(arg)
			}
		})
	case *FunctionReference:
		p.line("fn %s %s", n.Name, n.Typ)
	case *Unary:
		p.line("%s %s", n.Op, n.Typ)
		p.nested(func() { p.node(n.Operand) })
	case *Binary:
		p.line("%s %s", n.Op, n.Typ)
		p.nested(func() {
			p.node(n.Left)
			p.node(n.Right)
		})
	case *If:
		p.line("if %s", n.Type())
		p.nested(func() {
			p.node(n.Condition)
			p.node(n.Then)
			if n.Else != nil {
				p.line("else")
				p.node(n.Else)
			}
		})
	case *While:
		p.line("while")
		p.nested(func() {
			p.node(n.Condition)
			p.node(n.Body)
		})
	case *Break:
		p.line("break")
	case *Continue:
		p.line("continue")
	case *Return:
		p.line("return")
		if n.Value != nil {
			p.nested(func() { p.node(n.Value) })
		}
	case *VariableDefinition:
		p.line("define %s %s", n.Name, n.Typ)
	case *VariableInitialization:
		p.line("init %s %s", n.Name, n.Typ)
		p.nested(func() { p.node(n.Value) })
	case *Assignment:
		p.line("assign")
		p.nested(func() {
			p.node(n.Target)
			p.node(n.Value)
		})
	case *Nop:
		p.line("nop")
	default:
		p.line("<unknown %T>", n)
	}
}

// Dump renders a node and its children, one per line.
func Dump(n Node) string {
	p := &printer{}
	p.node(n)
	return p.b.String()
}

func (f *Function) String() string {
	p := &printer{}
	var params []string
	for _, param := range f.Params {
		params = append(params, fmt.Sprintf("%s %s", param.Name, param.Type))
	}
	if f.Extern {
		p.line("extern fn %s(%s) %s", f.Name, strings.Join(params, ", "), f.Return)
		return p.b.String()
	}
	p.line("fn %s(%s) %s", f.Name, strings.Join(params, ", "), f.Return)
	p.nested(func() {
		for _, n := range f.Body {
			p.node(n)
		}
	})
	return p.b.String()
}

func (p *Program) String() string {
	var b strings.Builder
	for _, g := range p.Globals {
		fmt.Fprintf(&b, "global %s %s\n", g.Name, g.Typ)
	}
	if p.Init != nil && len(p.Init.Body) > 0 {
		b.WriteString(p.Init.String())
	}
	for _, f := range p.Functions {
		b.WriteString(f.String())
	}
	if p.Entry != "" {
		fmt.Fprintf(&b, "entry %s\n", p.Entry)
	}
	return b.String()
}
