package curdle

import (
	"github.com/llir/llvm/ir/types"
	"github.com/pontaoski/curdle/errors"
	"github.com/pontaoski/curdle/names"
	ctypes "github.com/pontaoski/curdle/types"
)

// CachedType lowers t to its backend representation, computing it once per
// type.
func (s *Session) CachedType(t Type) (types.Type, error) {
	if bt, ok := s.backend[t]; ok {
		return bt, nil
	}

	var bt types.Type
	switch t := t.(type) {
	case *VoidType, *NoReturnType:
		bt = types.Void
	case *BoolType:
		bt = types.I1
	case *IntegerType:
		bt = types.NewInt(uint64(t.Bits))
	case *FloatType:
		bt = floatBackend(t.Bits)
	case *ComplexType:
		bt = types.NewStruct(floatBackend(t.Bits), floatBackend(t.Bits))
	case *ReferenceType:
		child, err := s.pointee(t.Child)
		if err != nil {
			return nil, err
		}
		bt = types.NewPointer(child)
	case *PointerType:
		child, err := s.pointee(t.Child)
		if err != nil {
			return nil, err
		}
		bt = types.NewPointer(child)
	case *ArrayType:
		elem, err := s.CachedType(t.Child)
		if err != nil {
			return nil, err
		}
		for i := len(t.Dimensions) - 1; i >= 0; i-- {
			elem = types.NewArray(t.Dimensions[i], elem)
		}
		bt = elem
	case *Structure:
		return s.structureBackend(t)
	case *FunctionPointerType:
		fn, err := s.functionBackend(t.Return, t.Args)
		if err != nil {
			return nil, err
		}
		bt = types.NewPointer(fn)
	case *ImportedFunctionType:
		fn, err := s.functionBackend(t.Return, t.Args)
		if err != nil {
			return nil, err
		}
		bt = types.NewPointer(fn)
	case *FunctionTemplateType:
		bt = types.NewStruct()
	case *ComposedFunctionType:
		var fields []types.Type
		for _, op := range t.Operands {
			ft, err := s.CachedType(op)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ft)
		}
		bt = types.NewStruct(fields...)
	default:
		return nil, fail(errors.NoBacteriaType, "%s has no run-time representation", t)
	}

	s.backend[t] = bt
	return bt, nil
}

func floatBackend(bits uint16) types.Type {
	if bits == 32 {
		return types.Float
	}
	return types.Double
}

// pointee lowers the target of a pointer; void becomes i8.
func (s *Session) pointee(t Type) (types.Type, error) {
	if _, ok := t.(*VoidType); ok {
		return types.I8, nil
	}
	return s.CachedType(t)
}

func (s *Session) functionBackend(ret Type, args []Type) (*types.FuncType, error) {
	rt, err := s.CachedType(ret)
	if err != nil {
		return nil, err
	}
	var params []types.Type
	for _, a := range args {
		pt, err := s.CachedType(a)
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	return types.NewFunc(rt, params...), nil
}

// structureBackend registers named structures as type definitions. The
// cache slot is filled before the fields so pointers to the structure
// itself resolve.
func (s *Session) structureBackend(st *Structure) (types.Type, error) {
	if st.Implicit {
		var fields []types.Type
		for _, f := range st.Fields {
			ft, err := s.CachedType(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ft)
		}
		bt := types.NewStruct(fields...)
		s.backend[st] = bt
		return bt, nil
	}

	bt := &types.StructType{TypeName: names.MangleVariable(st.Name)}
	s.backend[st] = bt
	for _, f := range st.Fields {
		ft, err := s.CachedType(f.Type)
		if err != nil {
			delete(s.backend, st)
			return nil, err
		}
		bt.Fields = append(bt.Fields, ft)
	}
	s.Program.AddTypeDef(bt)
	return bt, nil
}

// backendType is CachedType for use inside lowering.
func (s *Session) backendType(t Type, at ctypes.Coordinate) types.Type {
	bt, err := s.CachedType(t)
	check(err, at)
	return bt
}

// SizeOf returns the size and alignment in bytes of a backend type.
func SizeOf(t types.Type) (size, align uint64) {
	switch t := t.(type) {
	case *types.IntType:
		size = 1
		for size*8 < t.BitSize {
			size *= 2
		}
		return size, minUint(size, 16)
	case *types.FloatType:
		if t.Kind == types.FloatKindFloat {
			return 4, 4
		}
		return 8, 8
	case *types.PointerType:
		return 8, 8
	case *types.ArrayType:
		elem, a := SizeOf(t.ElemType)
		return elem * t.Len, a
	case *types.StructType:
		align = 1
		for _, f := range t.Fields {
			fs, fa := SizeOf(f)
			if fa > align {
				align = fa
			}
			size = roundUp(size, fa) + fs
		}
		return roundUp(size, align), align
	}
	return 0, 1
}

func roundUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

func minUint(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
