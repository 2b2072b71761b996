package curdle

import (
	"math"
	"math/big"
	"strings"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

func isNumericValue(v Value) bool {
	switch v.(type) {
	case *IntegerValue, *FloatValue, *ComplexValue:
		return true
	}
	return false
}

// comptimeBinary folds a binary operator over known operands. It reports
// false when the operands have no compile-time meaning for op, so the caller
// can fall back to run-time lowering.
func (s *Session) comptimeBinary(op ast.Operator, a, b Value, at ctypes.Coordinate) (Value, bool) {
	switch {
	case isNumericValue(a) && isNumericValue(b):
		return s.numericBinary(op, a, b, at), true
	case isBool(a) && isBool(b):
		return s.boolBinary(op, a.(*BoolValue).Value, b.(*BoolValue).Value, at), true
	}

	if x, ok := a.(*StringValue); ok {
		if y, ok := b.(*StringValue); ok {
			switch op {
			case ast.OpAdd:
				return &StringValue{Typ: s.ComptimeString, Value: x.Value + y.Value}, true
			case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
				return s.boolValue(compareResult(op, strings.Compare(x.Value, y.Value))), true
			}
			raise(at, errors.InvalidComptimeOperation, "%s is not defined on strings", op)
		}
	}

	if x, ok := a.(*TypeValue); ok {
		if y, ok := b.(*TypeValue); ok {
			switch op {
			case ast.OpEq:
				return s.boolValue(x.Value == y.Value), true
			case ast.OpNe:
				return s.boolValue(x.Value != y.Value), true
			}
		}
	}
	return nil, false
}

func isBool(v Value) bool {
	_, ok := v.(*BoolValue)
	return ok
}

func compareResult(op ast.Operator, c int) bool {
	switch op {
	case ast.OpEq:
		return c == 0
	case ast.OpNe:
		return c != 0
	case ast.OpLt:
		return c < 0
	case ast.OpLe:
		return c <= 0
	case ast.OpGt:
		return c > 0
	case ast.OpGe:
		return c >= 0
	}
	return false
}

func (s *Session) boolBinary(op ast.Operator, x, y bool, at ctypes.Coordinate) Value {
	switch op {
	case ast.OpLogicalAnd, ast.OpAnd:
		return s.boolValue(x && y)
	case ast.OpLogicalOr, ast.OpOr:
		return s.boolValue(x || y)
	case ast.OpXor, ast.OpNe:
		return s.boolValue(x != y)
	case ast.OpEq:
		return s.boolValue(x == y)
	}
	raise(at, errors.InvalidComptimeOperation, "%s is not defined on booleans", op)
	return nil
}

func (s *Session) numericBinary(op ast.Operator, a, b Value, at ctypes.Coordinate) Value {
	t := s.Peer(a.Type(), b.Type())
	if t == nil {
		raise(at, errors.NoPeerType, "no peer type for %s and %s", a.Type(), b.Type())
	}
	x, err := s.Cast(a, t)
	check(err, at)
	y, err := s.Cast(b, t)
	check(err, at)

	switch x := x.(type) {
	case *IntegerValue:
		return s.integerBinary(op, x.Value, y.(*IntegerValue).Value, t, at)
	case *FloatValue:
		return s.floatBinary(op, x.Value, y.(*FloatValue).Value, t, at)
	case *ComplexValue:
		return s.complexFold(op, x.Value, y.(*ComplexValue).Value, t, at)
	}
	raise(at, errors.InvalidComptimeOperation, "%s is not defined on %s", op, t)
	return nil
}

func (s *Session) integerBinary(op ast.Operator, x, y *big.Int, t Type, at ctypes.Coordinate) Value {
	if op.IsComparison() {
		return s.boolValue(compareResult(op, x.Cmp(y)))
	}

	r := new(big.Int)
	wraps := false
	switch op {
	case ast.OpAdd:
		r.Add(x, y)
	case ast.OpSub:
		r.Sub(x, y)
	case ast.OpMul:
		r.Mul(x, y)
	case ast.OpDiv, ast.OpMod:
		if y.Sign() == 0 {
			raise(at, errors.InvalidComptimeOperation, "division by zero")
		}
		if op == ast.OpDiv {
			r.Quo(x, y)
		} else {
			r.Rem(x, y)
		}
	case ast.OpShl, ast.OpShr:
		if y.Sign() < 0 || !y.IsInt64() || y.Int64() > math.MaxUint16 {
			raise(at, errors.InvalidComptimeOperation, "invalid shift amount %s", y)
		}
		if op == ast.OpShl {
			r.Lsh(x, uint(y.Int64()))
		} else {
			r.Rsh(x, uint(y.Int64()))
		}
		wraps = true
	case ast.OpAnd:
		r.And(x, y)
	case ast.OpOr:
		r.Or(x, y)
	case ast.OpXor:
		r.Xor(x, y)
	default:
		raise(at, errors.InvalidComptimeOperation, "%s is not defined on %s", op, t)
	}

	if it, ok := t.(*IntegerType); ok {
		if wraps {
			r = wrap(r, it)
		} else if !fits(r, it) {
			raise(at, errors.InvalidComptimeOperation, "%s overflows %s", r, it)
		}
	}
	return &IntegerValue{Typ: t, Value: r}
}

func (s *Session) floatBinary(op ast.Operator, x, y float64, t Type, at ctypes.Coordinate) Value {
	if op.IsComparison() {
		c := 0
		if x < y {
			c = -1
		} else if x > y {
			c = 1
		}
		return s.boolValue(compareResult(op, c))
	}

	var r float64
	switch op {
	case ast.OpAdd:
		r = x + y
	case ast.OpSub:
		r = x - y
	case ast.OpMul:
		r = x * y
	case ast.OpDiv:
		r = x / y
	case ast.OpMod:
		r = math.Mod(x, y)
	default:
		raise(at, errors.InvalidComptimeOperation, "%s is not defined on %s", op, t)
	}
	v, err := s.castFloat(r, t)
	check(err, at)
	return v
}

func (s *Session) complexFold(op ast.Operator, x, y complex128, t Type, at ctypes.Coordinate) Value {
	switch op {
	case ast.OpAdd:
		return &ComplexValue{Typ: t, Value: x + y}
	case ast.OpSub:
		return &ComplexValue{Typ: t, Value: x - y}
	case ast.OpMul:
		return &ComplexValue{Typ: t, Value: x * y}
	case ast.OpDiv:
		if y == 0 {
			raise(at, errors.InvalidComptimeOperation, "division by zero")
		}
		return &ComplexValue{Typ: t, Value: x / y}
	case ast.OpEq:
		return s.boolValue(x == y)
	case ast.OpNe:
		return s.boolValue(x != y)
	}
	raise(at, errors.InvalidComptimeOperation, "%s is not defined on %s", op, t)
	return nil
}

// comptimeUnary folds a unary operator, reporting false when op has no
// compile-time meaning for v.
func (s *Session) comptimeUnary(op ast.Operator, v Value, at ctypes.Coordinate) (Value, bool) {
	if op == ast.OpDeref || op == ast.OpAddressOf {
		return nil, false
	}

	switch v := v.(type) {
	case *IntegerValue:
		switch op {
		case ast.OpPlus:
			return v, true
		case ast.OpNegate:
			r := new(big.Int).Neg(v.Value)
			if it, ok := v.Typ.(*IntegerType); ok && !fits(r, it) {
				raise(at, errors.InvalidComptimeOperation, "-%s overflows %s", v.Value, it)
			}
			return &IntegerValue{Typ: v.Typ, Value: r}, true
		case ast.OpNot:
			r := new(big.Int).Not(v.Value)
			if it, ok := v.Typ.(*IntegerType); ok {
				r = wrap(r, it)
			}
			return &IntegerValue{Typ: v.Typ, Value: r}, true
		}
	case *FloatValue:
		switch op {
		case ast.OpPlus:
			return v, true
		case ast.OpNegate:
			return &FloatValue{Typ: v.Typ, Value: -v.Value}, true
		}
	case *ComplexValue:
		switch op {
		case ast.OpPlus:
			return v, true
		case ast.OpNegate:
			return &ComplexValue{Typ: v.Typ, Value: -v.Value}, true
		}
	case *BoolValue:
		if op == ast.OpNot {
			return s.boolValue(!v.Value), true
		}
	default:
		return nil, false
	}
	raise(at, errors.InvalidComptimeOperation, "%s is not defined on %s", op, v.Type())
	return nil, false
}

// truthy interprets a folded condition.
func truthy(v Value) (bool, bool) {
	switch v := v.(type) {
	case *BoolValue:
		return v.Value, true
	case *IntegerValue:
		return v.Value.Sign() != 0, true
	}
	return false, false
}
