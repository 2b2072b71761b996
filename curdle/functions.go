package curdle

import (
	"fmt"
	"strings"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	"github.com/pontaoski/curdle/names"
	ctypes "github.com/pontaoski/curdle/types"
)

// FunctionSet is every template declared under one name in a structure.
type FunctionSet struct {
	Name      string
	Owner     *Structure
	Templates []*FunctionTemplate
}

// FunctionTemplate is one declaration. Each distinct argument tuple yields
// one ConcreteFunction.
type FunctionTemplate struct {
	Node   ast.Node
	Scope  *ComptimeContext
	Set    *FunctionSet
	Public bool

	instances map[string]*ConcreteFunction
}

// Instances returns how many concrete functions were produced so far.
func (t *FunctionTemplate) Instances() int {
	return len(t.instances)
}

type FunctionArgument struct {
	Name     string
	Type     Type
	Comptime Value
}

type ConcreteFunction struct {
	Name     string
	Return   Type
	Args     []FunctionArgument
	Template *FunctionTemplate
	Extern   bool
	Body     *bacteria.Function
}

// RuntimeArgs lists the arguments passed at run time.
func (cf *ConcreteFunction) RuntimeArgs() []FunctionArgument {
	var ret []FunctionArgument
	for _, a := range cf.Args {
		if a.Comptime == nil {
			ret = append(ret, a)
		}
	}
	return ret
}

// candidate is a template that accepts the call, with its score.
type candidate struct {
	template *FunctionTemplate
	types    []Type
	values   []Value
	nonExact int
	cost     int
}

func (c candidate) better(o candidate) bool {
	if c.nonExact != o.nonExact {
		return c.nonExact < o.nonExact
	}
	return c.cost < o.cost
}

func (c candidate) ties(o candidate) bool {
	return c.nonExact == o.nonExact && c.cost == o.cost
}

// callSite caches the types and compile-time values of call arguments so
// that each argument is analysed once across all candidates.
type callSite struct {
	s      *Session
	lc     *LocalContext
	args   []ast.Node
	types  []Type
	values []Value
	known  []int
}

func newCallSite(s *Session, lc *LocalContext, args []ast.Node) *callSite {
	return &callSite{
		s:      s,
		lc:     lc.With(nil),
		args:   args,
		types:  make([]Type, len(args)),
		values: make([]Value, len(args)),
		known:  make([]int, len(args)),
	}
}

func (c *callSite) typeOf(i int) Type {
	if c.types[i] == nil {
		c.types[i] = c.s.GetType(c.lc, c.args[i])
	}
	return c.types[i]
}

func (c *callSite) value(i int) (Value, bool) {
	if c.known[i] == 0 {
		c.known[i] = -1
		if v, ok := c.s.Exec(c.lc, c.args[i]); ok {
			c.values[i] = v
			c.known[i] = 1
		}
	}
	return c.values[i], c.known[i] == 1
}

func (c *callSite) describe() string {
	var parts []string
	for i := range c.args {
		parts = append(parts, c.typeOf(i).String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// match scores tpl against the call. Earlier compile-time arguments are
// visible to the types of later ones.
func (s *Session) match(tpl *FunctionTemplate, site *callSite) (candidate, bool) {
	params, _, _, _ := ast.FunctionSignature(tpl.Node)
	if len(params) != len(site.args) {
		return candidate{}, false
	}

	c := candidate{template: tpl, types: make([]Type, len(params)), values: make([]Value, len(params))}
	scope := tpl.Scope.Child()
	for i, p := range params {
		pt := Type(s.Any)
		if p.Type != nil {
			pt = s.evalType(scope.Local(nil), p.Type)
		}

		var cost int
		if p.Comptime {
			v, ok := site.value(i)
			if !ok {
				return candidate{}, false
			}
			if cost = s.Compare(pt, v.Type(), true); cost < 0 {
				return candidate{}, false
			}
			cast, err := s.Cast(v, pt)
			if err != nil {
				return candidate{}, false
			}
			c.values[i] = cast
			c.types[i] = cast.Type()
			scope.Declare(p.Name, cast, true)
		} else {
			at := site.typeOf(i)
			if cost = s.Compare(pt, at, true); cost < 0 {
				return candidate{}, false
			}
			if _, isAny := pt.(*AnyType); isAny {
				c.types[i] = s.Concretize(at)
			} else {
				c.types[i] = pt
			}
		}

		if cost != 0 {
			c.nonExact++
		}
		c.cost += cost
	}
	return c, true
}

// ResolveCall picks the best template of fs for args and instantiates it.
// Fewer non-exact arguments win, then the lower total conversion cost. Two
// best candidates with equal scores are ambiguous.
func (s *Session) ResolveCall(lc *LocalContext, fs *FunctionSet, args []ast.Node, at ctypes.Coordinate) *ConcreteFunction {
	site := newCallSite(s, lc, args)

	var best []candidate
	for _, tpl := range fs.Templates {
		c, ok := s.match(tpl, site)
		if !ok {
			continue
		}
		switch {
		case len(best) == 0 || c.better(best[0]):
			best = []candidate{c}
		case c.ties(best[0]):
			best = append(best, c)
		}
	}

	switch len(best) {
	case 0:
		raise(at, errors.MismatchedFunctionCall, "no overload of %s accepts %s", fs.Name, site.describe())
	case 1:
		return s.instantiate(best[0].template, best[0].types, best[0].values, at)
	}

	var where []string
	for _, c := range best {
		where = append(where, s.Files.Describe(c.template.Node.Pos()))
	}
	raise(at, errors.AmbiguousFunctionCall, "call to %s with %s is ambiguous between %s", fs.Name, site.describe(), strings.Join(where, " and "))
	return nil
}

func instanceKey(ts []Type, values []Value) string {
	var b strings.Builder
	for i, t := range ts {
		fmt.Fprintf(&b, "%s;", identity(t))
		if i < len(values) && values[i] != nil {
			fmt.Fprintf(&b, "=%s;", values[i])
		}
	}
	return b.String()
}

// instantiate returns the memoized concrete function for tpl with the given
// argument types.
func (s *Session) instantiate(tpl *FunctionTemplate, ts []Type, values []Value, at ctypes.Coordinate) *ConcreteFunction {
	key := instanceKey(ts, values)
	if tpl.instances == nil {
		tpl.instances = map[string]*ConcreteFunction{}
	}
	if cf, ok := tpl.instances[key]; ok {
		return cf
	}

	params, retNode, body, _ := ast.FunctionSignature(tpl.Node)
	scope := tpl.Scope.Child()
	for i, p := range params {
		if values != nil && values[i] != nil {
			scope.Declare(p.Name, values[i], true)
		}
	}

	ret := Type(s.Void)
	if retNode != nil {
		ret = s.evalType(scope.Local(nil), retNode)
	}

	extern := false
	if proto, ok := tpl.Node.(*ast.Prototype); ok {
		extern = proto.Extern
	}

	cf := &ConcreteFunction{Return: ret, Template: tpl, Extern: extern}
	var signature []string
	for i, p := range params {
		arg := FunctionArgument{Name: p.Name, Type: ts[i]}
		if values != nil && values[i] != nil {
			arg.Comptime = values[i]
			signature = append(signature, "comptime "+values[i].String())
		} else {
			signature = append(signature, ts[i].String())
		}
		cf.Args = append(cf.Args, arg)
	}

	name := tpl.Set.Name
	if tpl.Set.Owner != nil && !extern {
		name = names.CombineNames(tpl.Set.Owner.Name, name)
	}
	cf.Name = names.Mangle(name, signature, ret.String(), extern)
	tpl.instances[key] = cf

	plog.Debugf("instantiating %s", names.UnmangleFunction(cf.Name))

	bf := &bacteria.Function{
		Name:   cf.Name,
		Return: s.backendType(ret, at),
		Extern: body == nil,
		Public: tpl.Public,
	}
	cf.Body = bf
	s.Program.AddFunction(bf)

	rt := newRuntimeContext(scope, cf, ret, bf)
	for _, arg := range cf.RuntimeArgs() {
		v := rt.Declare(arg.Name, arg.Type, false)
		bf.Params = append(bf.Params, bacteria.Param{Name: v.Storage, Type: s.backendType(arg.Type, at)})
	}

	if body != nil {
		s.lowerBody(rt, body)
	}
	return cf
}

// lowerBody lowers a function body, returning its value when the function
// returns one.
func (s *Session) lowerBody(rt *RuntimeContext, body ast.Node) {
	ret := rt.Returns()
	s.protect(body.Pos(), func() {
		lc := rt.Local(nil)
		switch ret.(type) {
		case *VoidType, *NoReturnType:
			rt.Receiver.Receive(s.Translate(lc, body))
			return
		}

		switch s.GetType(lc.With(ret), body).(type) {
		case *VoidType, *NoReturnType:
			rt.Receiver.Receive(s.Translate(lc, body))
		default:
			value := s.Translate(lc.With(ret), body)
			rt.Receiver.Receive(&bacteria.Return{Value: asValue(value, body.Pos())})
		}
	})
}

// call lowers a call to cf. Compile-time arguments were bound during
// instantiation and are not passed.
func (s *Session) call(lc *LocalContext, cf *ConcreteFunction, args []ast.Node, at ctypes.Coordinate) *bacteria.NormalCall {
	call := &bacteria.NormalCall{Function: cf.Name, Typ: s.backendType(cf.Return, at)}
	for i, arg := range cf.Args {
		if arg.Comptime != nil {
			continue
		}
		v := s.Translate(lc.With(arg.Type), args[i])
		call.Args = append(call.Args, asValue(v, args[i].Pos()))
	}
	return call
}
