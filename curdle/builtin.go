package curdle

import (
	"math/big"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

// Builtin is a compiler-provided function referenced as $name. Builtins run
// at compile time and receive their arguments unevaluated.
type Builtin struct {
	Name string
	Call func(lc *LocalContext, args []ast.Node, at ctypes.Coordinate) Value
}

// RegisterBuiltin makes b available as $name, replacing any previous one.
func (s *Session) RegisterBuiltin(b *Builtin) {
	s.Builtins[b.Name] = b
}

func badBuiltin(name string, at ctypes.Coordinate, message string) {
	panic(errors.BadBuiltin{Builtin: name, Message: message, Location: at})
}

func arity(name string, args []ast.Node, n int, at ctypes.Coordinate) {
	if len(args) != n {
		badBuiltin(name, at, "wrong number of arguments")
	}
}

func registerDefaultBuiltins(s *Session) {
	s.RegisterBuiltin(&Builtin{Name: "Type", Call: builtinType})
	s.RegisterBuiltin(&Builtin{Name: "Peer", Call: builtinPeer})
	s.RegisterBuiltin(&Builtin{Name: "size", Call: builtinSize})
	s.RegisterBuiltin(&Builtin{Name: "extern", Call: builtinExtern})
}

// $Type(x) is the type of x without evaluating it.
func builtinType(lc *LocalContext, args []ast.Node, at ctypes.Coordinate) Value {
	s := lc.Session
	arity("Type", args, 1, at)
	return s.typeValue(s.GetType(lc.With(nil), args[0]))
}

// $Peer(a, b, ...) is the common type of its type arguments.
func builtinPeer(lc *LocalContext, args []ast.Node, at ctypes.Coordinate) Value {
	s := lc.Session
	if len(args) == 0 {
		badBuiltin("Peer", at, "expected at least one type")
	}
	var ts []Type
	for _, arg := range args {
		ts = append(ts, s.evalType(lc, arg))
	}
	t, err := s.PeerType(ts)
	if err != nil {
		badBuiltin("Peer", at, err.Error())
	}
	return s.typeValue(t)
}

// $size(T) is the storage size of T in bytes.
func builtinSize(lc *LocalContext, args []ast.Node, at ctypes.Coordinate) Value {
	s := lc.Session
	arity("size", args, 1, at)
	t := s.evalType(lc, args[0])
	bt, err := s.CachedType(t)
	if err != nil {
		badBuiltin("size", at, err.Error())
	}
	size, _ := SizeOf(bt)
	return &IntegerValue{Typ: s.ComptimeInt, Value: new(big.Int).SetUint64(size)}
}

// $extern("name", fn(...) => T) refers to a C symbol by its plain name.
func builtinExtern(lc *LocalContext, args []ast.Node, at ctypes.Coordinate) Value {
	s := lc.Session
	arity("extern", args, 2, at)
	name, ok := s.mustExec(lc.With(nil), args[0]).(*StringValue)
	if !ok {
		badBuiltin("extern", at, "the symbol name must be a string")
	}
	fp, ok := s.evalType(lc, args[1]).(*FunctionPointerType)
	if !ok {
		badBuiltin("extern", at, "the symbol type must be a function pointer type")
	}
	return &ImportedValue{Typ: s.ImportedFunction(fp.Return, fp.Args), Name: name.Value}
}
