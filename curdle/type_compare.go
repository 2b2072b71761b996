package curdle

import (
	"github.com/pontaoski/curdle/errors"
)

const (
	// comptimeConversionBase is the cost scale for conversions out of the
	// comptime numeric types and across numeric kinds.
	comptimeConversionBase = 131071
	anyConversionCost      = 131072
)

// Compare reports how `from` converts to `to`: 0 when identical, a positive
// cost when convertible, negative when there is no valid conversion. With
// implicit unset, explicit casts such as narrowing are also accepted.
func (s *Session) Compare(to, from Type, implicit bool) int {
	if to == from {
		return 0
	}
	switch from.(type) {
	case *ErrorType, *NoReturnType:
		return 0
	}

	if ref, ok := to.(*ReferenceType); ok {
		return s.compareReference(ref, from, implicit)
	}
	if ref, ok := from.(*ReferenceType); ok {
		return s.Compare(to, ref.Child, implicit)
	}

	switch to := to.(type) {
	case *ErrorType:
		return 0
	case *AnyType:
		return anyConversionCost
	case *IntegerType:
		return s.compareInteger(to, from, implicit)
	case *FloatType:
		return s.compareFloat(to, from, implicit)
	case *ComplexType:
		return s.compareComplex(to, from, implicit)
	case *ComptimeFloatType:
		if _, ok := from.(*ComptimeIntType); ok {
			return 1
		}
	case *ComptimeComplexType:
		switch from.(type) {
		case *ComptimeIntType, *ComptimeFloatType:
			return 1
		}
	case *BoolType:
		if _, ok := from.(*IntegerType); ok && !implicit {
			return 1
		}
	case *PointerType:
		if f, ok := from.(*PointerType); ok {
			if f.Child == to.Child && to.Const {
				return 1
			}
			if !implicit {
				return 1
			}
		}
	case *ArrayType:
		return s.compareArray(to, from)
	case *Structure:
		return s.compareStructure(to, from, implicit)
	case *InterfaceType:
		if st, ok := from.(*Structure); ok && st.Interfaces.Contains(to) {
			return 1
		}
	case *FunctionPointerType:
		if f, ok := from.(*ImportedFunctionType); ok && sameSignature(to.Return, to.Args, f.Return, f.Args) {
			return 1
		}
	}
	return -1
}

func sameSignature(ra Type, aa []Type, rb Type, ab []Type) bool {
	if ra != rb || len(aa) != len(ab) {
		return false
	}
	for i := range aa {
		if aa[i] != ab[i] {
			return false
		}
	}
	return true
}

func (s *Session) compareReference(to *ReferenceType, from Type, implicit bool) int {
	if f, ok := from.(*ReferenceType); ok && f.Child == to.Child {
		switch {
		case to.Const == f.Const:
			return 0
		case to.Const:
			return 1
		default:
			return -1
		}
	}

	c := s.Compare(to.Child, from, implicit)
	if c < 0 {
		return -1
	}
	return c + 1
}

func (s *Session) compareInteger(to *IntegerType, from Type, implicit bool) int {
	switch f := from.(type) {
	case *IntegerType:
		if f.Signed == to.Signed && to.Bits >= f.Bits {
			return int(to.Bits - f.Bits)
		}
		if !f.Signed && to.Signed && to.Bits > f.Bits {
			return int(to.Bits-f.Bits) + 1
		}
		if !implicit {
			return comptimeConversionBase
		}
	case *ComptimeIntType:
		sign := 0
		if to.Signed {
			sign = 1
		}
		return comptimeConversionBase - (int(to.Bits)*2 + sign)
	case *FloatType, *ComptimeFloatType, *BoolType:
		if !implicit {
			return comptimeConversionBase
		}
	}
	return -1
}

func (s *Session) compareFloat(to *FloatType, from Type, implicit bool) int {
	switch f := from.(type) {
	case *IntegerType, *ComptimeIntType:
		return comptimeConversionBase
	case *ComptimeFloatType:
		return comptimeConversionBase - int(to.Bits)
	case *FloatType:
		if to.Bits > f.Bits {
			return int(to.Bits - f.Bits)
		}
		if !implicit {
			return comptimeConversionBase
		}
	}
	return -1
}

func (s *Session) compareComplex(to *ComplexType, from Type, implicit bool) int {
	switch f := from.(type) {
	case *IntegerType, *ComptimeIntType, *FloatType, *ComptimeFloatType:
		return comptimeConversionBase
	case *ComptimeComplexType:
		return comptimeConversionBase - int(to.Bits)
	case *ComplexType:
		if to.Bits > f.Bits {
			return int(to.Bits - f.Bits)
		}
		if !implicit {
			return comptimeConversionBase
		}
	}
	return -1
}

func (s *Session) compareArray(to *ArrayType, from Type) int {
	f, ok := from.(*ArrayType)
	if !ok || len(f.Dimensions) != len(to.Dimensions) {
		return -1
	}
	for i := range f.Dimensions {
		if f.Dimensions[i] != to.Dimensions[i] {
			return -1
		}
	}
	if f.Const && !to.Const {
		return -1
	}
	if f.Child == to.Child {
		return 1
	}
	if !isComptimeNumeric(f.Child) {
		return -1
	}
	if c := s.Compare(to.Child, f.Child, true); c >= 0 {
		return c + 1
	}
	return -1
}

// compareStructure accepts implicit aggregates of the same shape. Tuples
// match positionally, records also by field name.
func (s *Session) compareStructure(to *Structure, from Type, implicit bool) int {
	f, ok := from.(*Structure)
	if !ok || !f.Implicit || len(f.Fields) != len(to.Fields) {
		return -1
	}

	total := 0
	for i := range f.Fields {
		if !f.Tuple && f.Fields[i].Name != to.Fields[i].Name {
			return -1
		}
		c := s.Compare(to.Fields[i].Type, f.Fields[i].Type, implicit)
		if c < 0 {
			return -1
		}
		total += c
	}

	if total == 0 && to.Implicit && to.Tuple == f.Tuple {
		return 0
	}
	return total + 1
}

// Peer is the least upper bound of a and b, or nil when there is none.
func (s *Session) Peer(a, b Type) Type {
	if a == b {
		return a
	}
	switch a.(type) {
	case *ErrorType, *NoReturnType:
		return b
	}
	switch b.(type) {
	case *ErrorType, *NoReturnType:
		return a
	}

	if IsTrivialArithmetic(a) && IsTrivialArithmetic(b) {
		return s.arithmeticPeer(a, b)
	}

	if sa, ok := a.(*Structure); ok && sa.Implicit {
		if sb, ok := b.(*Structure); ok && sb.Implicit {
			return s.structurePeer(sa, sb)
		}
	}

	if s.Compare(a, b, true) >= 0 {
		return a
	}
	if s.Compare(b, a, true) >= 0 {
		return b
	}
	return nil
}

// PeerType folds Peer over ts.
func (s *Session) PeerType(ts []Type) (Type, error) {
	if len(ts) == 0 {
		return s.Void, nil
	}
	result := ts[0]
	for _, t := range ts[1:] {
		p := s.Peer(result, t)
		if p == nil {
			return nil, fail(errors.NoPeerType, "no peer type for %s and %s", result, t)
		}
		result = p
	}
	return result, nil
}

type arithmeticClass struct {
	level    int
	bits     uint16
	signed   bool
	comptime bool
}

func classify(t Type) arithmeticClass {
	switch t := t.(type) {
	case *IntegerType:
		return arithmeticClass{level: 0, bits: t.Bits, signed: t.Signed}
	case *ComptimeIntType:
		return arithmeticClass{level: 0, comptime: true}
	case *FloatType:
		return arithmeticClass{level: 1, bits: t.Bits}
	case *ComptimeFloatType:
		return arithmeticClass{level: 1, comptime: true}
	case *ComplexType:
		return arithmeticClass{level: 2, bits: t.Bits}
	case *ComptimeComplexType:
		return arithmeticClass{level: 2, comptime: true}
	}
	return arithmeticClass{level: -1}
}

// arithmeticPeer widens to the highest numeric kind present. Integer signs
// are OR-ed and sizes max-ed, so the result does not depend on order.
func (s *Session) arithmeticPeer(a, b Type) Type {
	x, y := classify(a), classify(b)
	level := x.level
	if y.level > level {
		level = y.level
	}

	if x.comptime && y.comptime {
		switch level {
		case 0:
			return s.ComptimeInt
		case 1:
			return s.ComptimeFloat
		default:
			return s.ComptimeComplex
		}
	}

	var bits uint16
	signed := false
	for _, c := range []arithmeticClass{x, y} {
		if c.comptime {
			continue
		}
		if level == 0 {
			signed = signed || c.signed
		}
		if (level == 0 || c.level > 0) && c.bits > bits {
			bits = c.bits
		}
	}

	switch level {
	case 0:
		return s.Integer(signed, bits)
	case 1:
		if bits == 32 {
			return s.Float32
		}
		return s.Float64
	default:
		if bits == 32 {
			return s.Complex32
		}
		return s.Complex64
	}
}

func (s *Session) structurePeer(a, b *Structure) Type {
	if len(a.Fields) != len(b.Fields) || a.Tuple != b.Tuple {
		return nil
	}

	fields := make([]StructField, len(a.Fields))
	for i := range a.Fields {
		if !a.Tuple && a.Fields[i].Name != b.Fields[i].Name {
			return nil
		}
		p := s.Peer(a.Fields[i].Type, b.Fields[i].Type)
		if p == nil {
			return nil
		}
		fields[i] = StructField{Name: a.Fields[i].Name, Type: p, Public: true}
	}
	return s.ImplicitStructure(fields, a.Tuple)
}

// Comptimeness reports whether values of t must be known at compile time.
func (s *Session) Comptimeness(t Type) Comptimeness {
	switch t := t.(type) {
	case *ComptimeIntType, *ComptimeFloatType, *ComptimeComplexType, *ComptimeStringType, *TypeType, *BuiltinReferenceType:
		return Comptime
	case *AnyType:
		return ArgumentDepending
	case *ReferenceType:
		return s.Comptimeness(t.Child)
	case *PointerType:
		return s.Comptimeness(t.Child)
	case *ArrayType:
		return s.Comptimeness(t.Child)
	case *Structure:
		result := Runtime
		for _, f := range t.Fields {
			if c := s.Comptimeness(f.Type); c > result {
				result = c
			}
		}
		return result
	case *ComposedFunctionType:
		result := Runtime
		for _, op := range t.Operands {
			if c := s.Comptimeness(op); c > result {
				result = c
			}
		}
		return result
	}
	return Runtime
}

func IsTrivialArithmetic(t Type) bool {
	return classify(t).level >= 0
}

func isInteger(t Type) bool {
	switch t.(type) {
	case *IntegerType, *ComptimeIntType:
		return true
	}
	return false
}

func isFloating(t Type) bool {
	switch t.(type) {
	case *FloatType, *ComptimeFloatType:
		return true
	}
	return false
}

func isSigned(t Type) bool {
	switch t := t.(type) {
	case *IntegerType:
		return t.Signed
	case *ComptimeIntType:
		return true
	}
	return false
}

// IsFunctional reports whether calling a value of t is meaningful.
func IsFunctional(t Type) bool {
	switch t.(type) {
	case *FunctionTemplateType, *FunctionPointerType, *ComposedFunctionType, *ImportedFunctionType:
		return true
	}
	return false
}

// stripReference removes one reference layer.
func stripReference(t Type) (Type, bool) {
	if ref, ok := t.(*ReferenceType); ok {
		return ref.Child, true
	}
	return t, false
}

// Concretize returns the run-time type a comptime-typed value defaults to.
func (s *Session) Concretize(t Type) Type {
	switch t := t.(type) {
	case *ComptimeIntType:
		return s.Integer(true, 64)
	case *ComptimeFloatType:
		return s.Float64
	case *ComptimeComplexType:
		return s.Complex64
	case *ArrayType:
		return s.Array(t.Dimensions, s.Concretize(t.Child), t.Const)
	case *Structure:
		if !t.Implicit {
			return t
		}
		changed := false
		fields := make([]StructField, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = f
			fields[i].Type = s.Concretize(f.Type)
			changed = changed || fields[i].Type != f.Type
		}
		if !changed {
			return t
		}
		return s.ImplicitStructure(fields, t.Tuple)
	}
	return t
}
