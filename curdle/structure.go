package curdle

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	"github.com/pontaoski/curdle/names"
	ctypes "github.com/pontaoski/curdle/types"
)

type StructField struct {
	Name   string
	Type   Type
	Public bool
}

type LazyState int

const (
	Unresolved LazyState = iota
	Resolving
	Resolved
)

func (l LazyState) String() string {
	switch l {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	}
	return "?"
}

// LazyMember is a top-level declaration resolved on first reference.
type LazyMember struct {
	Name  string
	Node  ast.Node
	State LazyState
}

// TopLevelVariable is a structure member whose value exists at run time. It
// lives in a global and is initialised by the program's init function.
type TopLevelVariable struct {
	Name        string
	MangledName string
	Type        Type
	Constant    bool
	Public      bool
}

// Structure is both a type and a scope. Modules are structures too.
type Structure struct {
	Name              string
	Fields            []StructField
	Interfaces        *set.Set[*InterfaceType]
	FunctionSets      map[string]*FunctionSet
	Lazies            []*LazyMember
	ComptimeVariables map[string]*ComptimeVariable
	TopLevelVariables map[string]*TopLevelVariable
	Implicit          bool
	Tuple             bool
	Scope             *ComptimeContext

	node           *ast.Structure
	comptimeBlocks []*ast.ComptimeBlock
}

func (st *Structure) String() string {
	if !st.Implicit {
		return st.Name
	}
	var parts []string
	for _, f := range st.Fields {
		if st.Tuple {
			parts = append(parts, f.Type.String())
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Type))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FieldIndex returns the position of the named field, or -1.
func (st *Structure) FieldIndex(name string) int {
	for i, f := range st.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s *Session) newStructure(name string, node *ast.Structure, parent *ComptimeContext) *Structure {
	st := &Structure{
		Name:              name,
		Interfaces:        set.New[*InterfaceType](0),
		FunctionSets:      map[string]*FunctionSet{},
		ComptimeVariables: map[string]*ComptimeVariable{},
		TopLevelVariables: map[string]*TopLevelVariable{},
		node:              node,
	}
	if node != nil {
		st.Tuple = node.Tuple
	}
	st.Scope = &ComptimeContext{Session: s, Parent: parent, Structure: st, variables: st.ComptimeVariables}
	return st
}

// ImplicitStructure returns the interned anonymous aggregate with the given
// fields.
func (s *Session) ImplicitStructure(fields []StructField, tuple bool) *Structure {
	var b strings.Builder
	fmt.Fprintf(&b, "%t", tuple)
	for _, f := range fields {
		fmt.Fprintf(&b, "|%s:%s", f.Name, identity(f.Type))
	}
	key := b.String()
	if st, ok := s.implicit[key]; ok {
		return st
	}

	st := s.newStructure("", nil, s.global)
	st.Implicit = true
	st.Tuple = tuple
	st.Fields = append([]StructField(nil), fields...)
	st.Name = st.String()
	s.implicit[key] = st
	return st
}

// ImplicitTuple is the anonymous tuple of ts.
func (s *Session) ImplicitTuple(ts ...Type) *Structure {
	fields := make([]StructField, len(ts))
	for i, t := range ts {
		fields[i] = StructField{Name: tupleFieldName(i), Type: t, Public: true}
	}
	return s.ImplicitStructure(fields, true)
}

func tupleFieldName(i int) string {
	return fmt.Sprintf("_%d", i)
}

// TranslateStructure builds the structure for node in scope. The same node
// in the same scope always yields the same structure.
func (s *Session) TranslateStructure(scope *ComptimeContext, node *ast.Structure) *Structure {
	key := structureKey{node: node, scope: scope}
	if st, ok := s.structures[key]; ok {
		return st
	}

	name := s.currentName()
	if name == "" {
		name = s.anonymousName("anon")
	}
	st := s.newStructure(s.VerifyName(name), node, scope)
	s.structures[key] = st
	s.fillStructure(st)
	return st
}

func (s *Session) fillStructure(st *Structure) {
	plog.Debugf("translating structure %s", st.Name)

	for _, child := range st.node.Children {
		child := child
		s.protect(child.Pos(), func() {
			s.addMember(st, child)
		})
	}

	for _, impl := range st.node.Implements {
		impl := impl
		s.protect(impl.Pos(), func() {
			t := s.evalType(st.Scope.Local(nil), impl)
			iface, ok := t.(*InterfaceType)
			if !ok {
				raise(impl.Pos(), errors.ExpectedType, "%s is not an interface", t)
			}
			st.Interfaces.Insert(iface)
		})
	}

	for _, blk := range st.comptimeBlocks {
		s.runComptimeBlock(st, blk)
	}
}

func (s *Session) addLazy(st *Structure, name string, node ast.Node) {
	for _, l := range st.Lazies {
		if l.Name == name {
			raise(node.Pos(), errors.ConflictingDefinition, "%s is already declared in %s", name, st.Name)
		}
	}
	st.Lazies = append(st.Lazies, &LazyMember{Name: name, Node: node})
}

func (s *Session) addMember(st *Structure, child ast.Node) {
	switch n := child.(type) {
	case *ast.Field:
		name := n.Name
		if name == "" || st.Tuple {
			name = tupleFieldName(len(st.Fields))
		}
		if st.FieldIndex(name) >= 0 {
			raise(n.Pos(), errors.ConflictingDefinition, "field %s is already declared in %s", name, st.Name)
		}
		t := s.evalType(st.Scope.Local(nil), n.Type)
		st.Fields = append(st.Fields, StructField{Name: name, Type: t, Public: n.Public})
	case *ast.Import:
		name := n.Name
		if name == "" {
			name = path.Base(n.Path)
		}
		s.addLazy(st, name, n)
	case *ast.VariableDeclaration:
		s.addLazy(st, n.Name, n)
	case *ast.VariableDefinition:
		s.addLazy(st, n.Name, n)
	case *ast.Function:
		s.addTemplate(st, n.Name, n, n.Public)
	case *ast.Prototype:
		s.addTemplate(st, n.Name, n, n.Public)
	case *ast.OperatorDeclaration:
		s.addTemplate(st, operatorSetName(n.Op), n, n.Public)
	case *ast.ComptimeBlock:
		st.comptimeBlocks = append(st.comptimeBlocks, n)
	case *ast.Structure, *ast.Interface:
		s.Exec(st.Scope.Local(nil), n)
	case *ast.Mixin:
		notImplemented(n.Pos(), "mixins")
	case *ast.Enum:
		notImplemented(n.Pos(), "enums")
	default:
		raise(child.Pos(), errors.InvalidOperation, "%T is not allowed at structure level", child)
	}
}

func operatorSetName(op ast.Operator) string {
	return "operator" + op.String()
}

func (s *Session) addTemplate(st *Structure, name string, node ast.Node, public bool) {
	fs, ok := st.FunctionSets[name]
	if !ok {
		fs = &FunctionSet{Name: name, Owner: st}
		st.FunctionSets[name] = fs
	}
	fs.Templates = append(fs.Templates, &FunctionTemplate{
		Node:   node,
		Scope:  st.Scope,
		Set:    fs,
		Public: public,
	})
}

// resolveByName resolves a member of st by name, triggering lazy resolution.
func (st *Structure) resolveByName(name string) (binding, bool) {
	if v, ok := st.ComptimeVariables[name]; ok {
		return binding{value: v.Value, constant: v.Constant}, true
	}

	s := st.Scope.Session
	for _, lazy := range st.Lazies {
		if lazy.Name == name {
			s.resolveLazy(st, lazy)
			break
		}
	}

	if v, ok := st.ComptimeVariables[name]; ok {
		return binding{value: v.Value, constant: v.Constant}, true
	}
	if v, ok := st.TopLevelVariables[name]; ok {
		return binding{global: v, constant: v.Constant}, true
	}
	if fs, ok := st.FunctionSets[name]; ok {
		return binding{value: &FunctionSetValue{Typ: s.TemplateType(fs), Set: fs}, constant: true}, true
	}
	return binding{}, false
}

// resolveLazy moves a member from Unresolved to Resolved. Errors leave it
// Unresolved so a later reference retries.
func (s *Session) resolveLazy(st *Structure, lazy *LazyMember) {
	switch lazy.State {
	case Resolved:
		return
	case Resolving:
		raise(lazy.Node.Pos(), errors.CircularDependency, "%s depends on itself", names.CombineNames(st.Name, lazy.Name))
	}

	lazy.State = Resolving
	defer func() {
		if lazy.State == Resolving {
			lazy.State = Unresolved
		}
	}()

	plog.Tracef("resolving %s", names.CombineNames(st.Name, lazy.Name))

	switch n := lazy.Node.(type) {
	case *ast.Import:
		target := s.Import(n.Pos(), n.Path)
		st.ComptimeVariables[lazy.Name] = &ComptimeVariable{Constant: true, Value: s.typeValue(target)}
	case *ast.VariableDeclaration:
		s.resolveVariable(st, n)
	case *ast.VariableDefinition:
		s.resolveDefinition(st, n)
	default:
		notImplemented(lazy.Node.Pos(), "lazy %T members", lazy.Node)
	}

	lazy.State = Resolved
}

func (s *Session) resolveVariable(st *Structure, decl *ast.VariableDeclaration) {
	lc := st.Scope.Local(nil)

	var declared Type
	if decl.Type != nil {
		declared = s.evalType(lc, decl.Type)
	}
	checkLiteral(declared, decl.Value)

	s.pushName(names.CombineNames(st.Name, decl.Name))
	defer s.popName()

	v, known := s.Exec(lc.With(declared), decl.Value)
	if known && declared != nil {
		cast, err := s.Cast(v, declared)
		check(err, decl.Value.Pos())
		v = cast
	}

	t := declared
	switch {
	case t != nil:
	case known:
		t = v.Type()
	default:
		t = s.typeOf(lc, decl.Value)
	}

	if decl.Comptime || (s.Comptimeness(t) != Runtime && !decl.Mutable) {
		if !known {
			panic(errors.NotComptimeError{Location: decl.Value.Pos()})
		}
		s.bindComptime(st, decl.Name, v, !decl.Mutable, decl.Pos())
		return
	}

	t = s.Concretize(t)
	if s.Comptimeness(t) != Runtime {
		raise(decl.Pos(), errors.NotRuntime, "%s of type %s cannot exist at run time", decl.Name, t)
	}
	if known {
		cast, err := s.Cast(v, t)
		check(err, decl.Value.Pos())
		init := s.materialize(lc.With(t), cast, decl.Value.Pos())
		_, global := s.declareGlobal(st, decl.Name, t, !decl.Mutable, decl.Public, decl.Pos())
		global.Init = init
		return
	}

	tv, global := s.declareGlobal(st, decl.Name, t, !decl.Mutable, decl.Public, decl.Pos())
	rt := s.initRuntime(st)
	value := s.Translate(rt.Local(t), decl.Value)
	s.Program.Init.Receive(&bacteria.Assignment{
		Target: &bacteria.ValueReference{Name: tv.MangledName, Typ: global.Typ, Global: true},
		Value:  asValue(value, decl.Value.Pos()),
	})
}

func (s *Session) resolveDefinition(st *Structure, def *ast.VariableDefinition) {
	t := s.evalType(st.Scope.Local(nil), def.Type)
	if s.Comptimeness(t) != Runtime {
		raise(def.Pos(), errors.NotRuntime, "%s of type %s needs a compile-time value", def.Name, t)
	}
	s.declareGlobal(st, def.Name, t, !def.Mutable, def.Public, def.Pos())
}

// declareGlobal adds the program global backing a top-level variable. Callers
// check the initializer first.
func (s *Session) declareGlobal(st *Structure, name string, t Type, constant, public bool, at ctypes.Coordinate) (*TopLevelVariable, *bacteria.GlobalVariable) {
	tv := &TopLevelVariable{
		Name:        name,
		MangledName: names.MangleVariable(names.CombineNames(st.Name, name)),
		Type:        t,
		Constant:    constant,
		Public:      public,
	}
	global := &bacteria.GlobalVariable{
		Name:     tv.MangledName,
		Typ:      s.backendType(t, at),
		Constant: constant,
	}
	s.Program.AddGlobal(global)
	st.TopLevelVariables[name] = tv
	return tv, global
}

func (s *Session) initRuntime(st *Structure) *RuntimeContext {
	if s.initFrame == nil {
		s.initFrame = &frame{returns: s.Void, storage: map[string]int{}}
	}
	return &RuntimeContext{
		Session:   s,
		Outer:     st.Scope,
		Receiver:  s.Program.Init,
		frame:     s.initFrame,
		variables: map[string]*RuntimeVariable{},
		comptime:  map[string]*ComptimeVariable{},
	}
}

// bindComptime stores a compile-time member. Re-binding is only allowed to
// an identical value.
func (s *Session) bindComptime(st *Structure, name string, v Value, constant bool, at ctypes.Coordinate) {
	if existing, ok := st.ComptimeVariables[name]; ok && !IsSameAs(existing.Value, v) {
		raise(at, errors.ConflictingDefinition, "%s is already bound to %s", name, existing.Value)
	}
	st.ComptimeVariables[name] = &ComptimeVariable{Constant: constant, Value: v}
}

func (s *Session) runComptimeBlock(st *Structure, blk *ast.ComptimeBlock) {
	var children []ast.Node
	if b, ok := blk.Body.(*ast.Block); ok {
		children = append(children, b.Children...)
		if b.Yield != nil {
			children = append(children, b.Yield)
		}
	} else {
		children = []ast.Node{blk.Body}
	}

	lc := st.Scope.Local(nil)
	for _, child := range children {
		child := child
		s.protect(child.Pos(), func() {
			if decl, ok := child.(*ast.VariableDeclaration); ok {
				var declared Type
				if decl.Type != nil {
					declared = s.evalType(lc, decl.Type)
				}
				v := s.mustExec(lc.With(declared), decl.Value)
				if declared != nil {
					cast, err := s.Cast(v, declared)
					check(err, decl.Pos())
					v = cast
				}
				s.bindComptime(st, decl.Name, v, !decl.Mutable, decl.Pos())
				return
			}
			s.mustExec(lc, child)
		})
	}
}

// ResolveAll resolves every lazy member of st, reporting failures.
func (s *Session) ResolveAll(st *Structure) {
	for _, lazy := range st.Lazies {
		lazy := lazy
		s.protect(lazy.Node.Pos(), func() {
			s.resolveLazy(st, lazy)
		})
	}
}

// holdsStructure reports whether a lazy member is an import or a nested
// structure declaration, the only places an entry function can hide.
func holdsStructure(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.Import:
		return true
	case *ast.VariableDeclaration:
		_, ok := n.Value.(*ast.Structure)
		return ok
	}
	return false
}

// SearchEntry looks for the entry function depth first, resolving imports
// and nested structures along the way.
func (s *Session) SearchEntry(st *Structure) *ConcreteFunction {
	return s.searchEntry(st, set.New[*Structure](8))
}

func (s *Session) searchEntry(st *Structure, visited *set.Set[*Structure]) *ConcreteFunction {
	if !visited.Insert(st) {
		return nil
	}

	for _, lazy := range st.Lazies {
		lazy := lazy
		if holdsStructure(lazy.Node) {
			s.protect(lazy.Node.Pos(), func() {
				s.resolveLazy(st, lazy)
			})
		}
	}

	setNames := make([]string, 0, len(st.FunctionSets))
	for name := range st.FunctionSets {
		setNames = append(setNames, name)
	}
	sort.Strings(setNames)

	for _, name := range setNames {
		for _, tpl := range st.FunctionSets[name].Templates {
			fn, ok := tpl.Node.(*ast.Function)
			if !ok || !fn.Entry {
				continue
			}
			var entry *ConcreteFunction
			s.protect(fn.Pos(), func() {
				if len(fn.Args) != 0 {
					raise(fn.Pos(), errors.InvalidArgument, "entry function %s cannot take arguments", fn.Name)
				}
				entry = s.instantiate(tpl, nil, nil, fn.Pos())
			})
			return entry
		}
	}

	varNames := make([]string, 0, len(st.ComptimeVariables))
	for name := range st.ComptimeVariables {
		varNames = append(varNames, name)
	}
	sort.Strings(varNames)

	for _, name := range varNames {
		tv, ok := st.ComptimeVariables[name].Value.(*TypeValue)
		if !ok {
			continue
		}
		if child, ok := tv.Value.(*Structure); ok {
			if found := s.searchEntry(child, visited); found != nil {
				return found
			}
		}
	}
	return nil
}

// evalType evaluates node at compile time and requires a type.
func (s *Session) evalType(lc *LocalContext, node ast.Node) Type {
	v := s.mustExec(lc.With(nil), node)
	tv, ok := v.(*TypeValue)
	if !ok {
		raise(node.Pos(), errors.ExpectedType, "expected a type, got %s of type %s", v, v.Type())
	}
	return tv.Value
}
