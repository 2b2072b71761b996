package curdle

import (
	"fmt"

	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

type ComptimeVariable struct {
	Constant bool
	Value    Value
}

// ComptimeContext is a lexical scope whose bindings are known while
// compiling. A context belonging to a Structure also sees its members.
type ComptimeContext struct {
	Session   *Session
	Parent    *ComptimeContext
	Structure *Structure
	variables map[string]*ComptimeVariable
}

func (c *ComptimeContext) Child() *ComptimeContext {
	return &ComptimeContext{Session: c.Session, Parent: c, variables: map[string]*ComptimeVariable{}}
}

func (c *ComptimeContext) Declare(name string, v Value, constant bool) {
	c.variables[name] = &ComptimeVariable{Constant: constant, Value: v}
}

// RuntimeVariable is a local whose value exists only at run time.
type RuntimeVariable struct {
	Name    string
	Storage string
	Type    Type
	Mutable bool
}

// frame is shared by every scope of one function body.
type frame struct {
	function *ConcreteFunction
	returns  Type
	storage  map[string]int
}

// RuntimeContext is a lexical scope inside a function body.
type RuntimeContext struct {
	Session  *Session
	Parent   *RuntimeContext
	Outer    *ComptimeContext
	Receiver bacteria.Receiver

	frame     *frame
	loops     int
	variables map[string]*RuntimeVariable
	comptime  map[string]*ComptimeVariable
}

func newRuntimeContext(outer *ComptimeContext, fn *ConcreteFunction, returns Type, receiver bacteria.Receiver) *RuntimeContext {
	return &RuntimeContext{
		Session:   outer.Session,
		Outer:     outer,
		Receiver:  receiver,
		frame:     &frame{function: fn, returns: returns, storage: map[string]int{}},
		variables: map[string]*RuntimeVariable{},
		comptime:  map[string]*ComptimeVariable{},
	}
}

func (r *RuntimeContext) Child(receiver bacteria.Receiver) *RuntimeContext {
	return &RuntimeContext{
		Session:   r.Session,
		Parent:    r,
		Outer:     r.Outer,
		Receiver:  receiver,
		frame:     r.frame,
		loops:     r.loops,
		variables: map[string]*RuntimeVariable{},
		comptime:  map[string]*ComptimeVariable{},
	}
}

func (r *RuntimeContext) Returns() Type {
	return r.frame.returns
}

// Declare binds a run-time variable and returns it with a storage name that
// is unique within the function.
func (r *RuntimeContext) Declare(name string, t Type, mutable bool) *RuntimeVariable {
	n := r.frame.storage[name]
	r.frame.storage[name] = n + 1
	storage := name
	if n > 0 {
		storage = fmt.Sprintf("%s.%d", name, n)
	}

	v := &RuntimeVariable{Name: name, Storage: storage, Type: t, Mutable: mutable}
	r.variables[name] = v
	delete(r.comptime, name)
	return v
}

func (r *RuntimeContext) DeclareComptime(name string, v Value, constant bool) {
	r.comptime[name] = &ComptimeVariable{Constant: constant, Value: v}
	delete(r.variables, name)
}

// LocalContext wraps the scope an expression is lowered in, plus the type the
// surrounding code expects it to have.
type LocalContext struct {
	Session  *Session
	Comptime *ComptimeContext
	Runtime  *RuntimeContext
	Expected Type
}

func (c *ComptimeContext) Local(expected Type) *LocalContext {
	return &LocalContext{Session: c.Session, Comptime: c, Expected: expected}
}

func (r *RuntimeContext) Local(expected Type) *LocalContext {
	return &LocalContext{Session: r.Session, Comptime: r.Outer, Runtime: r, Expected: expected}
}

// With returns a copy expecting t.
func (lc *LocalContext) With(t Type) *LocalContext {
	cp := *lc
	cp.Expected = t
	return &cp
}

// binding is what a name resolves to. Exactly one field is set.
type binding struct {
	value    Value
	variable *RuntimeVariable
	global   *TopLevelVariable
	constant bool
}

func (lc *LocalContext) lookup(name string, at ctypes.Coordinate) (binding, bool) {
	for r := lc.Runtime; r != nil; r = r.Parent {
		if v, ok := r.variables[name]; ok {
			return binding{variable: v}, true
		}
		if v, ok := r.comptime[name]; ok {
			return binding{value: v.Value, constant: v.Constant}, true
		}
	}
	return lc.Comptime.lookup(name, at)
}

func (c *ComptimeContext) lookup(name string, at ctypes.Coordinate) (binding, bool) {
	for ctx := c; ctx != nil; ctx = ctx.Parent {
		if v, ok := ctx.variables[name]; ok {
			return binding{value: v.Value, constant: v.Constant}, true
		}
		if ctx.Structure != nil {
			if b, ok := ctx.Structure.resolveByName(name); ok {
				return b, true
			}
		}
	}

	s := c.Session
	if t, ok := s.Primitive(name); ok {
		return binding{value: s.typeValue(t), constant: true}, true
	}
	if v, ok := s.global.variables[name]; ok {
		return binding{value: v.Value, constant: v.Constant}, true
	}
	return binding{}, false
}

// mustLookup raises UnknownName when name is not bound.
func (lc *LocalContext) mustLookup(name string, at ctypes.Coordinate) binding {
	b, ok := lc.lookup(name, at)
	if !ok {
		raise(at, errors.UnknownName, "unknown name %s", name)
	}
	return b
}

// runtimeChild returns a LocalContext for a nested runtime scope that sends
// its statements to receiver.
func (lc *LocalContext) runtimeChild(receiver bacteria.Receiver) *LocalContext {
	if lc.Runtime == nil {
		return lc
	}
	return lc.Runtime.Child(receiver).Local(lc.Expected)
}

func (lc *LocalContext) emit(n bacteria.Node) {
	if lc.Runtime == nil || lc.Runtime.Receiver == nil {
		return
	}
	lc.Runtime.Receiver.Receive(n)
}
