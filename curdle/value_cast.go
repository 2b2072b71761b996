package curdle

import (
	"math"
	"math/big"

	"github.com/pontaoski/curdle/errors"
)

// Cast converts v to a new value of type to, or fails with InvalidCast.
func (s *Session) Cast(v Value, to Type) (Value, error) {
	from := v.Type()
	if from == to {
		return v, nil
	}
	if _, ok := v.(*VoidValue); ok {
		return nil, fail(errors.InvalidCast, "void cannot be cast to %s", to)
	}

	switch t := to.(type) {
	case *ReferenceType:
		return s.Cast(v, t.Child)
	case *AnyType, *ErrorType:
		return v, nil
	}

	if s.Compare(to, from, false) < 0 {
		return nil, fail(errors.InvalidCast, "cannot cast %s of type %s to %s", v, from, to)
	}

	switch v := v.(type) {
	case *IntegerValue:
		return s.castInteger(v.Value, to)
	case *FloatValue:
		return s.castFloat(v.Value, to)
	case *ComplexValue:
		switch to.(type) {
		case *ComplexType, *ComptimeComplexType:
			return &ComplexValue{Typ: to, Value: v.Value}, nil
		}
	case *BoolValue:
		if it, ok := to.(*IntegerType); ok {
			n := int64(0)
			if v.Value {
				n = 1
			}
			return &IntegerValue{Typ: it, Value: big.NewInt(n)}, nil
		}
	case *ArrayValue:
		return s.castArray(v, to)
	case *ObjectValue:
		return s.castObject(v, to)
	case *ImportedValue:
		if _, ok := to.(*FunctionPointerType); ok {
			return v, nil
		}
	}
	return nil, fail(errors.InvalidCast, "cannot cast %s of type %s to %s", v, from, to)
}

func intRange(t *IntegerType) (lo, hi *big.Int) {
	bits := uint(t.Bits)
	if t.Signed {
		hi = new(big.Int).Lsh(big.NewInt(1), bits-1)
		lo = new(big.Int).Neg(hi)
		hi.Sub(hi, big.NewInt(1))
		return lo, hi
	}
	hi = new(big.Int).Lsh(big.NewInt(1), bits)
	hi.Sub(hi, big.NewInt(1))
	return big.NewInt(0), hi
}

func fits(x *big.Int, t *IntegerType) bool {
	lo, hi := intRange(t)
	return x.Cmp(lo) >= 0 && x.Cmp(hi) <= 0
}

// wrap truncates x to the width of t in two's complement.
func wrap(x *big.Int, t *IntegerType) *big.Int {
	bits := uint(t.Bits)
	modulus := new(big.Int).Lsh(big.NewInt(1), bits)
	r := new(big.Int).Mod(x, modulus)
	if t.Signed && r.Bit(int(bits)-1) == 1 {
		r.Sub(r, modulus)
	}
	return r
}

func (s *Session) castInteger(x *big.Int, to Type) (Value, error) {
	switch t := to.(type) {
	case *IntegerType:
		if !fits(x, t) {
			return nil, fail(errors.InvalidCast, "%s does not fit in %s", x, t)
		}
		return &IntegerValue{Typ: t, Value: new(big.Int).Set(x)}, nil
	case *ComptimeIntType:
		return &IntegerValue{Typ: t, Value: new(big.Int).Set(x)}, nil
	case *FloatType, *ComptimeFloatType:
		f, _ := new(big.Float).SetInt(x).Float64()
		return s.castFloat(f, to)
	case *ComplexType, *ComptimeComplexType:
		f, _ := new(big.Float).SetInt(x).Float64()
		return &ComplexValue{Typ: to, Value: complex(f, 0)}, nil
	case *BoolType:
		return s.boolValue(x.Sign() != 0), nil
	}
	return nil, fail(errors.InvalidCast, "cannot cast %s to %s", x, to)
}

func (s *Session) castFloat(f float64, to Type) (Value, error) {
	switch t := to.(type) {
	case *FloatType:
		if t.Bits == 32 {
			f = float64(float32(f))
		}
		return &FloatValue{Typ: t, Value: f}, nil
	case *ComptimeFloatType:
		return &FloatValue{Typ: t, Value: f}, nil
	case *ComplexType, *ComptimeComplexType:
		return &ComplexValue{Typ: to, Value: complex(f, 0)}, nil
	case *IntegerType, *ComptimeIntType:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fail(errors.InvalidCast, "%g cannot be represented as %s", f, to)
		}
		x, _ := big.NewFloat(math.Trunc(f)).Int(nil)
		return s.castInteger(x, to)
	}
	return nil, fail(errors.InvalidCast, "cannot cast %g to %s", f, to)
}

func (s *Session) castArray(v *ArrayValue, to Type) (Value, error) {
	switch t := to.(type) {
	case *Structure:
		if len(t.Fields) != len(v.Values) {
			return nil, fail(errors.InvalidCast, "cannot cast %d elements to %s", len(v.Values), t)
		}
		if st, ok := v.Typ.(*Structure); ok && !st.Tuple {
			return nil, fail(errors.InvalidCast, "cannot cast record %s to %s", st, t)
		}
		if t.Tuple {
			values := make([]Value, len(v.Values))
			for i, e := range v.Values {
				c, err := s.Cast(e, t.Fields[i].Type)
				if err != nil {
					return nil, err
				}
				values[i] = c
			}
			return &ArrayValue{Typ: t, Values: values}, nil
		}
		fields := map[string]Value{}
		for i, e := range v.Values {
			c, err := s.Cast(e, t.Fields[i].Type)
			if err != nil {
				return nil, err
			}
			fields[t.Fields[i].Name] = c
		}
		return &ObjectValue{Typ: t, Fields: fields}, nil
	case *ArrayType:
		count := uint64(1)
		for _, d := range t.Dimensions {
			count *= d
		}
		if uint64(len(v.Values)) != count {
			return nil, fail(errors.InvalidCast, "cannot cast %d elements to %s", len(v.Values), t)
		}
		values := make([]Value, len(v.Values))
		for i, e := range v.Values {
			c, err := s.Cast(e, t.Child)
			if err != nil {
				return nil, err
			}
			values[i] = c
		}
		return &ArrayValue{Typ: t, Values: values}, nil
	}
	return nil, fail(errors.InvalidCast, "cannot cast %s to %s", v, to)
}

func (s *Session) castObject(v *ObjectValue, to Type) (Value, error) {
	t, ok := to.(*Structure)
	if !ok || t.Tuple || len(t.Fields) != len(v.Typ.Fields) {
		return nil, fail(errors.InvalidCast, "cannot cast %s to %s", v, to)
	}

	fields := map[string]Value{}
	for i, f := range t.Fields {
		if v.Typ.Fields[i].Name != f.Name {
			return nil, fail(errors.InvalidCast, "field %s does not match %s in %s", v.Typ.Fields[i].Name, f.Name, t)
		}
		c, err := s.Cast(v.Fields[f.Name], f.Type)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = c
	}
	return &ObjectValue{Typ: t, Fields: fields}, nil
}
