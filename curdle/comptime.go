package curdle

import (
	"fmt"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

// Exec evaluates node while compiling. It reports false when the result
// depends on run-time state; real errors are raised.
func (s *Session) Exec(lc *LocalContext, node ast.Node) (Value, bool) {
	switch n := node.(type) {
	case *ast.IntegerLiteral:
		return &IntegerValue{Typ: s.ComptimeInt, Value: n.Value}, true
	case *ast.FloatLiteral:
		return &FloatValue{Typ: s.ComptimeFloat, Value: n.Value}, true
	case *ast.ImaginaryLiteral:
		return &ComplexValue{Typ: s.ComptimeComplex, Value: complex(0, n.Value)}, true
	case *ast.StringLiteral:
		return &StringValue{Typ: s.ComptimeString, Value: n.Value}, true
	case *ast.BoolLiteral:
		return s.boolValue(n.Value), true
	case *ast.ValueReference:
		b := lc.mustLookup(n.Name, n.Pos())
		if b.value != nil {
			return b.value, true
		}
		return nil, false
	case *ast.BuiltinReference:
		b, ok := s.Builtins[n.Name]
		if !ok {
			raise(n.Pos(), errors.UnknownName, "unknown builtin $%s", n.Name)
		}
		return &BuiltinValue{Typ: s.BuiltinRef, Builtin: b}, true
	case *ast.TupleLiteral:
		return s.execTuple(lc, n)
	case *ast.ObjectLiteral:
		return s.execObject(lc, n)
	case *ast.ArrayLiteral:
		return s.execArray(lc, n)
	case *ast.Binary:
		return s.execBinary(lc, n)
	case *ast.Unary:
		v, ok := s.Exec(lc.With(nil), n.Operand)
		if !ok {
			return nil, false
		}
		return s.comptimeUnary(n.Op, v, n.Pos())
	case *ast.Cast:
		v, ok := s.Exec(lc.With(nil), n.Value)
		if !ok {
			return nil, false
		}
		cast, err := s.Cast(v, s.evalType(lc, n.Type))
		check(err, n.Pos())
		return cast, true
	case *ast.TupleCall:
		return s.execCall(lc, n)
	case *ast.ObjectCall:
		return s.execConstruct(lc, n)
	case *ast.Subscription:
		return s.execSubscription(lc, n)
	case *ast.If:
		c, ok := s.Exec(lc.With(s.Bool), n.Condition)
		if !ok {
			return nil, false
		}
		if s.condition(c, n.Condition.Pos()) {
			return s.Exec(lc, n.Then)
		}
		if n.Else != nil {
			return s.Exec(lc, n.Else)
		}
		return s.voidValue(), true
	case *ast.Match:
		return s.execMatch(lc, n)
	case *ast.Block:
		if len(n.Children) != 0 {
			return nil, false
		}
		if n.Yield == nil {
			return s.voidValue(), true
		}
		return s.Exec(lc, n.Yield)
	case *ast.Comptime:
		return s.mustExec(lc, n.Value), true
	case *ast.Structure:
		return s.typeValue(s.TranslateStructure(lc.Comptime, n)), true
	case *ast.Interface:
		return s.typeValue(s.translateInterface(n)), true
	case *ast.Enum:
		notImplemented(n.Pos(), "enums")
	case *ast.ReferenceType:
		return s.typeValue(s.Reference(s.evalType(lc, n.Child), n.Const)), true
	case *ast.PointerType:
		return s.typeValue(s.Pointer(s.evalType(lc, n.Child), n.Const)), true
	case *ast.ArrayType:
		dims := make([]uint64, len(n.Dimensions))
		for i, d := range n.Dimensions {
			dims[i] = s.evalDimension(lc, d)
		}
		return s.typeValue(s.Array(dims, s.evalType(lc, n.Child), n.Const)), true
	case *ast.FunctionPointerType:
		var args []Type
		for _, a := range n.Args {
			args = append(args, s.evalType(lc, a))
		}
		ret := Type(s.Void)
		if n.Return != nil {
			ret = s.evalType(lc, n.Return)
		}
		return s.typeValue(s.FunctionPointer(ret, args)), true
	}
	return nil, false
}

// mustExec is Exec for positions that require a compile-time value.
func (s *Session) mustExec(lc *LocalContext, node ast.Node) Value {
	v, ok := s.Exec(lc, node)
	if !ok {
		panic(errors.NotComptimeError{Location: node.Pos()})
	}
	return v
}

// condition interprets a compile-time condition.
func (s *Session) condition(v Value, at ctypes.Coordinate) bool {
	b, ok := truthy(v)
	if !ok {
		raise(at, errors.InvalidCast, "cannot use %s of type %s as a condition", v, v.Type())
	}
	return b
}

func (s *Session) evalDimension(lc *LocalContext, node ast.Node) uint64 {
	v := s.mustExec(lc.With(nil), node)
	i, ok := v.(*IntegerValue)
	if !ok || !i.Value.IsUint64() {
		raise(node.Pos(), errors.InvalidArgument, "array dimension %s is not a non-negative integer", v)
	}
	return i.Value.Uint64()
}

func (s *Session) execAll(lc *LocalContext, nodes []ast.Node) ([]Value, bool) {
	values := make([]Value, len(nodes))
	for i, node := range nodes {
		v, ok := s.Exec(lc.With(nil), node)
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func allTypes(values []Value) ([]Type, bool) {
	if len(values) == 0 {
		return nil, false
	}
	ts := make([]Type, len(values))
	for i, v := range values {
		tv, ok := v.(*TypeValue)
		if !ok {
			return nil, false
		}
		ts[i] = tv.Value
	}
	return ts, true
}

func valueTypes(values []Value) []Type {
	ts := make([]Type, len(values))
	for i, v := range values {
		ts[i] = v.Type()
	}
	return ts
}

// execTuple folds a tuple literal. A tuple of types is itself a type.
func (s *Session) execTuple(lc *LocalContext, n *ast.TupleLiteral) (Value, bool) {
	values, ok := s.execAll(lc, n.Elements)
	if !ok {
		return nil, false
	}
	if ts, ok := allTypes(values); ok {
		return s.typeValue(s.ImplicitTuple(ts...)), true
	}
	return &ArrayValue{Typ: s.ImplicitTuple(valueTypes(values)...), Values: values}, true
}

func (s *Session) execObject(lc *LocalContext, n *ast.ObjectLiteral) (Value, bool) {
	values := make([]Value, len(n.Fields))
	fields := make([]StructField, len(n.Fields))
	seen := map[string]bool{}
	for i, f := range n.Fields {
		if seen[f.Name] {
			raise(f.At, errors.ConflictingDefinition, "field %s is given twice", f.Name)
		}
		seen[f.Name] = true
		v, ok := s.Exec(lc.With(nil), f.Value)
		if !ok {
			return nil, false
		}
		values[i] = v
		fields[i] = StructField{Name: f.Name, Type: v.Type(), Public: true}
	}

	if ts, ok := allTypes(values); ok {
		for i := range fields {
			fields[i].Type = ts[i]
		}
		return s.typeValue(s.ImplicitStructure(fields, false)), true
	}

	obj := &ObjectValue{Typ: s.ImplicitStructure(fields, false), Fields: map[string]Value{}}
	for i, f := range fields {
		obj.Fields[f.Name] = values[i]
	}
	return obj, true
}

func (s *Session) execArray(lc *LocalContext, n *ast.ArrayLiteral) (Value, bool) {
	values, ok := s.execAll(lc, n.Elements)
	if !ok {
		return nil, false
	}
	if len(values) == 0 {
		raise(n.Pos(), errors.NoPeerType, "cannot infer the element type of an empty array")
	}
	elem, err := s.PeerType(valueTypes(values))
	check(err, n.Pos())
	for i, v := range values {
		cast, err := s.Cast(v, elem)
		check(err, n.Elements[i].Pos())
		values[i] = cast
	}
	return &ArrayValue{Typ: s.Array([]uint64{uint64(len(values))}, elem, false), Values: values}, true
}

func (s *Session) execBinary(lc *LocalContext, n *ast.Binary) (Value, bool) {
	a, ok := s.Exec(lc.With(nil), n.Left)
	if !ok {
		return nil, false
	}

	if n.Op.IsLogical() {
		left := s.condition(a, n.Left.Pos())
		if (n.Op == ast.OpLogicalAnd && !left) || (n.Op == ast.OpLogicalOr && left) {
			return s.boolValue(left), true
		}
		b, ok := s.Exec(lc.With(nil), n.Right)
		if !ok {
			return nil, false
		}
		return s.boolValue(s.condition(b, n.Right.Pos())), true
	}

	b, ok := s.Exec(lc.With(nil), n.Right)
	if !ok {
		return nil, false
	}
	return s.comptimeBinary(n.Op, a, b, n.Pos())
}

// execCall handles calls that need no code: builtins, and types used as
// constructors or conversions.
func (s *Session) execCall(lc *LocalContext, n *ast.TupleCall) (Value, bool) {
	callee, ok := s.Exec(lc.With(nil), n.Callee)
	if !ok {
		return nil, false
	}

	switch c := callee.(type) {
	case *BuiltinValue:
		return c.Builtin.Call(lc, n.Args, n.Pos()), true
	case *TypeValue:
		st, ok := c.Value.(*Structure)
		if !ok {
			if len(n.Args) != 1 {
				raise(n.Pos(), errors.InvalidCast, "conversion to %s takes one value", c.Value)
			}
			v, ok := s.Exec(lc.With(c.Value), n.Args[0])
			if !ok {
				return nil, false
			}
			cast, err := s.Cast(v, c.Value)
			check(err, n.Pos())
			return cast, true
		}

		checkPositional(st, len(n.Args), n.Pos())
		values := make([]Value, len(n.Args))
		for i, arg := range n.Args {
			v, ok := s.Exec(lc.With(st.Fields[i].Type), arg)
			if !ok {
				return nil, false
			}
			cast, err := s.Cast(v, st.Fields[i].Type)
			check(err, arg.Pos())
			values[i] = cast
		}
		return s.aggregateValue(st, values), true
	}
	return nil, false
}

func (s *Session) execConstruct(lc *LocalContext, n *ast.ObjectCall) (Value, bool) {
	st := s.constructed(lc, n)
	values := make([]Value, len(n.Fields))
	for i, f := range n.Fields {
		v, ok := s.Exec(lc.With(st.Fields[i].Type), f.Value)
		if !ok {
			return nil, false
		}
		cast, err := s.Cast(v, st.Fields[i].Type)
		check(err, f.Value.Pos())
		values[i] = cast
	}
	return s.aggregateValue(st, values), true
}

// constructed evaluates the type of an object construction and checks the
// field list against it.
func (s *Session) constructed(lc *LocalContext, n *ast.ObjectCall) *Structure {
	t := s.evalType(lc, n.Callee)
	st, ok := t.(*Structure)
	if !ok {
		raise(n.Pos(), errors.InvalidOperation, "cannot construct %s from named fields", t)
	}
	checkAggregate(st, n.Fields, n.Pos())
	return st
}

func (s *Session) aggregateValue(st *Structure, values []Value) Value {
	if st.Tuple {
		return &ArrayValue{Typ: st, Values: values}
	}
	obj := &ObjectValue{Typ: st, Fields: map[string]Value{}}
	for i, f := range st.Fields {
		obj.Fields[f.Name] = values[i]
	}
	return obj
}

// subscriptName returns the member named by the right side of a
// subscription: an identifier or a tuple index.
func subscriptName(node ast.Node) (name string, index int, ok bool) {
	switch r := node.(type) {
	case *ast.ValueReference:
		return r.Name, -1, true
	case *ast.IntegerLiteral:
		if !r.Value.IsInt64() || r.Value.Sign() < 0 {
			return "", -1, false
		}
		i := int(r.Value.Int64())
		return tupleFieldName(i), i, true
	}
	return "", -1, false
}

func (s *Session) execSubscription(lc *LocalContext, n *ast.Subscription) (Value, bool) {
	left, ok := s.Exec(lc.With(nil), n.Left)
	if !ok {
		return nil, false
	}
	name, index, ok := subscriptName(n.Right)
	if !ok {
		raise(n.Right.Pos(), errors.InvalidSubscript, "%s cannot be subscripted with this expression", left)
	}

	switch l := left.(type) {
	case *TypeValue:
		v, err := s.ChildComptime(l.Value, name)
		if err == nil {
			return v, true
		}
		if st, ok := l.Value.(*Structure); ok {
			if _, ok := st.TopLevelVariables[name]; ok {
				return nil, false
			}
		}
		check(err, n.Pos())
	case *ObjectValue:
		if v, ok := l.Fields[name]; ok {
			return v, true
		}
	case *ArrayValue:
		if st, ok := l.Typ.(*Structure); ok {
			index = st.FieldIndex(name)
		}
		if index >= 0 && index < len(l.Values) {
			return l.Values[index], true
		}
	}
	raise(n.Pos(), errors.InvalidSubscript, "%s of type %s has no member %s", left, left.Type(), name)
	return nil, false
}

func (s *Session) execMatch(lc *LocalContext, n *ast.Match) (Value, bool) {
	v, ok := s.Exec(lc.With(nil), n.Value)
	if !ok {
		return nil, false
	}

	var fallback ast.Node
	for _, arm := range n.Arms {
		if len(arm.Patterns) == 0 {
			fallback = arm.Body
			continue
		}
		for _, pattern := range arm.Patterns {
			p, ok := s.Exec(lc.With(v.Type()), pattern)
			if !ok {
				return nil, false
			}
			eq, ok := s.comptimeBinary(ast.OpEq, v, p, pattern.Pos())
			if !ok {
				raise(pattern.Pos(), errors.InvalidComptimeOperation, "cannot compare %s with %s", v, p)
			}
			if s.condition(eq, pattern.Pos()) {
				return s.Exec(lc, arm.Body)
			}
		}
	}
	if fallback != nil {
		return s.Exec(lc, fallback)
	}
	return s.voidValue(), true
}

func (s *Session) translateInterface(n *ast.Interface) *InterfaceType {
	if it, ok := s.interfaces[n]; ok {
		return it
	}
	name := s.currentName()
	if name == "" {
		name = s.anonymousName("interface")
	}
	it := &InterfaceType{Name: name}
	for _, child := range n.Children {
		proto, ok := child.(*ast.Prototype)
		if !ok {
			raise(child.Pos(), errors.InvalidOperation, "interfaces may only contain prototypes, not %T", child)
		}
		it.Methods = append(it.Methods, proto.Name)
	}
	s.interfaces[n] = it
	return it
}

// checkAggregate verifies that fields are initialised in declaration order
// and that none is missing.
func checkAggregate(st *Structure, fields []ast.FieldInit, at ctypes.Coordinate) {
	for i, f := range fields {
		where := f.At
		if where.IsZero() {
			where = at
		}
		j := st.FieldIndex(f.Name)
		switch {
		case j < 0:
			raise(where, errors.InvalidField, "%s has no field %s", st, f.Name)
		case j != i:
			raise(where, errors.OutOfOrderInitialization, "field %s is initialized out of order, expected %s", f.Name, st.Fields[i].Name)
		}
	}
	if len(fields) < len(st.Fields) {
		raise(at, errors.IncompleteInitialization, "missing field %s of %s", st.Fields[len(fields)].Name, st)
	}
}

// checkLiteral checks a record or tuple literal against the named structure
// it initializes.
func checkLiteral(expected Type, node ast.Node) {
	st, ok := expected.(*Structure)
	if !ok || st.Implicit {
		return
	}
	switch n := node.(type) {
	case *ast.ObjectLiteral:
		checkAggregate(st, n.Fields, n.Pos())
	case *ast.TupleLiteral:
		checkPositional(st, len(n.Elements), n.Pos())
	}
}

func checkPositional(st *Structure, n int, at ctypes.Coordinate) {
	switch {
	case n < len(st.Fields):
		raise(at, errors.IncompleteInitialization, "missing field %s of %s", st.Fields[n].Name, st)
	case n > len(st.Fields):
		raise(at, errors.InvalidField, "%s has %s", st, fieldCount(len(st.Fields)))
	}
}

func fieldCount(n int) string {
	if n == 1 {
		return "1 field"
	}
	return fmt.Sprintf("%d fields", n)
}
