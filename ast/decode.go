package ast

import (
	"fmt"
	"math/big"

	"github.com/pontaoski/curdle/types"
	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"
)

// DecodeError reports a malformed serialized tree.
type DecodeError struct {
	Kind    string
	Message string
	At      types.Coordinate
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed %s node: %s", e.At, e.Kind, e.Message)
}

type object map[interface{}]interface{}

type decoder struct {
	file uint32
}

// Decode reads a serialized syntax tree (YAML or JSON) whose root is a
// structure node.
func Decode(data []byte, file uint32) (root *Structure, err error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, tracerr.Wrap(err)
	}

	defer func() {
		if v := recover(); v != nil {
			if derr, ok := v.(DecodeError); ok {
				err = tracerr.Wrap(derr)
			} else {
				panic(v)
			}
		}
	}()

	d := decoder{file: file}
	node := d.node(raw)
	st, ok := node.(*Structure)
	if !ok {
		return nil, tracerr.Wrap(DecodeError{Kind: "root", Message: "the root of a module must be a structure", At: node.Pos()})
	}
	return st, nil
}

func (d decoder) fail(kind string, at types.Coordinate, msg string, args ...interface{}) {
	panic(DecodeError{Kind: kind, Message: fmt.Sprintf(msg, args...), At: at})
}

func (d decoder) object(raw interface{}) object {
	switch m := raw.(type) {
	case map[interface{}]interface{}:
		return object(m)
	case map[string]interface{}:
		ret := object{}
		for k, v := range m {
			ret[k] = v
		}
		return ret
	}
	d.fail("node", types.Coordinate{File: d.file}, "expected a mapping, got %T", raw)
	return nil
}

func (d decoder) at(o object) types.Coordinate {
	c := types.Coordinate{File: d.file}
	if pos, ok := o["at"].([]interface{}); ok && len(pos) == 2 {
		c.Line, _ = pos[0].(int)
		c.Column, _ = pos[1].(int)
	}
	return c
}

func (d decoder) str(o object, key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (d decoder) flag(o object, key string) bool {
	v, _ := o[key].(bool)
	return v
}

func (d decoder) optional(o object, key string) Node {
	if o[key] == nil {
		return nil
	}
	return d.node(o[key])
}

func (d decoder) required(o object, kind, key string) Node {
	if o[key] == nil {
		d.fail(kind, d.at(o), "missing %q", key)
	}
	return d.node(o[key])
}

func (d decoder) list(o object, key string) []Node {
	items, _ := o[key].([]interface{})
	var ret []Node
	for _, item := range items {
		ret = append(ret, d.node(item))
	}
	return ret
}

func (d decoder) fields(o object, key string) []FieldInit {
	items, _ := o[key].([]interface{})
	var ret []FieldInit
	for _, item := range items {
		f := d.object(item)
		ret = append(ret, FieldInit{
			Name:  d.str(f, "name"),
			Value: d.required(f, "field", "value"),
			At:    d.at(f),
		})
	}
	return ret
}

func (d decoder) arguments(o object) []Argument {
	items, _ := o["args"].([]interface{})
	var ret []Argument
	for _, item := range items {
		a := d.object(item)
		ret = append(ret, Argument{
			Name:     d.str(a, "name"),
			Type:     d.optional(a, "type"),
			Comptime: d.flag(a, "comptime"),
		})
	}
	return ret
}

func (d decoder) operator(o object, kind string, unary bool) Operator {
	sym := d.str(o, "op")
	if sym == "" && kind == "assign" {
		return OpNone
	}
	for op, s := range operatorSymbols {
		isUnary := op >= OpNegate
		if s == sym && isUnary == unary {
			return op
		}
	}
	d.fail(kind, d.at(o), "unknown operator %q", sym)
	return OpNone
}

func (d decoder) float(o object, kind string) float64 {
	switch v := o["value"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	d.fail(kind, d.at(o), "expected a number")
	return 0
}

func (d decoder) node(raw interface{}) Node {
	o := d.object(raw)
	kind := d.str(o, "kind")
	base := Base{At: d.at(o)}

	switch kind {
	case "int":
		v, ok := new(big.Int).SetString(d.str(o, "value"), 0)
		if !ok {
			d.fail(kind, base.At, "invalid integer %q", d.str(o, "value"))
		}
		return &IntegerLiteral{base, v}
	case "float":
		return &FloatLiteral{base, d.float(o, kind)}
	case "imaginary":
		return &ImaginaryLiteral{base, d.float(o, kind)}
	case "string":
		return &StringLiteral{base, d.str(o, "value")}
	case "bool":
		return &BoolLiteral{base, d.flag(o, "value")}
	case "ref":
		return &ValueReference{base, d.str(o, "name")}
	case "builtin":
		return &BuiltinReference{base, d.str(o, "name")}
	case "tuple":
		return &TupleLiteral{base, d.list(o, "elements")}
	case "object":
		return &ObjectLiteral{base, d.fields(o, "fields")}
	case "array":
		return &ArrayLiteral{base, d.list(o, "elements")}
	case "call":
		return &TupleCall{base, d.required(o, kind, "callee"), d.list(o, "args")}
	case "construct":
		return &ObjectCall{base, d.required(o, kind, "callee"), d.fields(o, "fields")}
	case "subscript":
		return &Subscription{base, d.required(o, kind, "left"), d.required(o, kind, "right")}
	case "binary":
		return &Binary{base, d.operator(o, kind, false), d.required(o, kind, "left"), d.required(o, kind, "right")}
	case "unary":
		return &Unary{base, d.operator(o, kind, true), d.required(o, kind, "operand")}
	case "cast":
		return &Cast{base, d.required(o, kind, "value"), d.required(o, kind, "type")}
	case "if":
		return &If{base, d.required(o, kind, "condition"), d.required(o, kind, "then"), d.optional(o, "else")}
	case "while":
		return &While{base, d.required(o, kind, "condition"), d.required(o, kind, "body")}
	case "loop":
		return &Loop{base, d.required(o, kind, "body")}
	case "match":
		m := &Match{Base: base, Value: d.required(o, kind, "value")}
		arms, _ := o["arms"].([]interface{})
		for _, raw := range arms {
			a := d.object(raw)
			m.Arms = append(m.Arms, MatchArm{
				Patterns: d.list(a, "patterns"),
				Body:     d.required(a, "arm", "body"),
				At:       d.at(a),
			})
		}
		return m
	case "block":
		return &Block{base, d.list(o, "children"), d.optional(o, "yield")}
	case "break":
		return &Break{base}
	case "continue":
		return &Continue{base}
	case "return":
		return &Return{base, d.optional(o, "value")}
	case "comptime":
		return &Comptime{base, d.required(o, kind, "value")}
	case "assign":
		return &Assignment{base, d.operator(o, kind, false), d.required(o, kind, "target"), d.required(o, kind, "value")}
	case "destructure":
		ds := &Destructure{Base: base, Value: d.required(o, kind, "value")}
		names, _ := o["names"].([]interface{})
		for _, raw := range names {
			n := d.object(raw)
			ds.Names = append(ds.Names, DestructureName{Name: d.str(n, "name"), Mutable: d.flag(n, "mutable")})
		}
		return ds
	case "declare":
		return &VariableDeclaration{
			Base:     base,
			Name:     d.str(o, "name"),
			Type:     d.optional(o, "type"),
			Value:    d.required(o, kind, "value"),
			Mutable:  d.flag(o, "mutable"),
			Comptime: d.flag(o, "comptime"),
			Public:   d.flag(o, "public"),
		}
	case "define":
		return &VariableDefinition{base, d.str(o, "name"), d.required(o, kind, "type"), d.flag(o, "mutable"), d.flag(o, "public")}
	case "field":
		return &Field{base, d.str(o, "name"), d.required(o, kind, "type"), d.flag(o, "public")}
	case "function":
		return &Function{
			Base:      base,
			Name:      d.str(o, "name"),
			Args:      d.arguments(o),
			Return:    d.optional(o, "return"),
			Body:      d.required(o, kind, "body"),
			Public:    d.flag(o, "public"),
			Entry:     d.flag(o, "entry"),
			Generator: d.flag(o, "generator"),
		}
	case "prototype":
		return &Prototype{base, d.str(o, "name"), d.arguments(o), d.optional(o, "return"), d.flag(o, "public"), d.flag(o, "extern")}
	case "operator":
		return &OperatorDeclaration{base, d.operator(o, kind, false), d.arguments(o), d.optional(o, "return"), d.required(o, kind, "body"), d.flag(o, "public")}
	case "comptime_block":
		return &ComptimeBlock{base, d.required(o, kind, "body")}
	case "mixin":
		return &Mixin{base, d.required(o, kind, "value")}
	case "import":
		return &Import{base, d.str(o, "path"), d.str(o, "name")}
	case "structure":
		return &Structure{base, d.list(o, "children"), d.list(o, "implements"), d.flag(o, "tuple")}
	case "interface":
		return &Interface{base, d.list(o, "children")}
	case "enum":
		e := &Enum{Base: base}
		members, _ := o["members"].([]interface{})
		for _, m := range members {
			e.Members = append(e.Members, fmt.Sprint(m))
		}
		return e
	case "reference_type":
		return &ReferenceType{base, d.required(o, kind, "child"), d.flag(o, "const")}
	case "pointer_type":
		return &PointerType{base, d.required(o, kind, "child"), d.flag(o, "const")}
	case "array_type":
		return &ArrayType{base, d.list(o, "dimensions"), d.required(o, kind, "child"), d.flag(o, "const")}
	case "function_pointer_type":
		return &FunctionPointerType{base, d.list(o, "args"), d.optional(o, "return")}
	}

	d.fail(kind, base.At, "unknown node kind")
	return nil
}
