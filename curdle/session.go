package curdle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/coreos/pkg/capnslog"
	"github.com/hashicorp/go-set/v3"
	"github.com/llir/llvm/ir/types"
	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/curdle", "curdle")

const diagnosticModule = "lowering"

// Loader finds the syntax tree of an imported module. from is the path of the
// importing file. The returned key identifies the module across importers.
type Loader interface {
	Load(from string, path string) (root *ast.Structure, key string, err error)
}

type Config struct {
	// MaxErrors stops the pass after this many errors. Zero means no limit.
	MaxErrors         int
	WarningsAreErrors bool
}

type tooManyErrors struct{}

type refKey struct {
	child    Type
	constant bool
}

type structureKey struct {
	node  *ast.Structure
	scope *ComptimeContext
}

// Session is the global context of one compilation. It owns every type,
// value and structure created while compiling and is discarded afterwards.
type Session struct {
	Files   *ctypes.FileTable
	Loader  Loader
	Config  Config
	Program *bacteria.Program

	Root  *Structure
	Entry *ConcreteFunction

	Diagnostics []errors.Diagnostic
	Errored     bool

	Builtins map[string]*Builtin

	Void            *VoidType
	NoReturn        *NoReturnType
	Bool            *BoolType
	Float32         *FloatType
	Float64         *FloatType
	Complex32       *ComplexType
	Complex64       *ComplexType
	ComptimeInt     *ComptimeIntType
	ComptimeFloat   *ComptimeFloatType
	ComptimeComplex *ComptimeComplexType
	ComptimeString  *ComptimeStringType
	TypeOfTypes     *TypeType
	Any             *AnyType
	Error           *ErrorType
	BuiltinRef      *BuiltinReferenceType

	global *ComptimeContext

	integers         map[IntegerType]*IntegerType
	references       map[refKey]*ReferenceType
	pointers         map[refKey]*PointerType
	arrays           map[string]*ArrayType
	functionPointers map[string]*FunctionPointerType
	importedTypes    map[string]*ImportedFunctionType
	templateTypes    map[*FunctionSet]*FunctionTemplateType
	composed         map[string]*ComposedFunctionType
	composedFns      map[string]*ConcreteFunction
	interfaces       map[*ast.Interface]*InterfaceType
	externs          *set.Set[string]
	backend          map[Type]types.Type

	imports    map[string]*Structure
	structures map[structureKey]*Structure
	implicit   map[string]*Structure

	names     *set.Set[string]
	reported  *set.Set[string]
	anonymous map[string]int
	nameStack []string
	failures  int

	initFrame *frame
}

func NewSession(files *ctypes.FileTable, loader Loader, cfg Config) *Session {
	s := &Session{
		Files:   files,
		Loader:  loader,
		Config:  cfg,
		Program: bacteria.NewProgram(),

		Builtins: map[string]*Builtin{},

		Void:            &VoidType{},
		NoReturn:        &NoReturnType{},
		Bool:            &BoolType{},
		Float32:         &FloatType{Bits: 32},
		Float64:         &FloatType{Bits: 64},
		Complex32:       &ComplexType{Bits: 32},
		Complex64:       &ComplexType{Bits: 64},
		ComptimeInt:     &ComptimeIntType{},
		ComptimeFloat:   &ComptimeFloatType{},
		ComptimeComplex: &ComptimeComplexType{},
		ComptimeString:  &ComptimeStringType{},
		TypeOfTypes:     &TypeType{},
		Any:             &AnyType{},
		Error:           &ErrorType{},
		BuiltinRef:      &BuiltinReferenceType{},

		integers:         map[IntegerType]*IntegerType{},
		references:       map[refKey]*ReferenceType{},
		pointers:         map[refKey]*PointerType{},
		arrays:           map[string]*ArrayType{},
		functionPointers: map[string]*FunctionPointerType{},
		importedTypes:    map[string]*ImportedFunctionType{},
		templateTypes:    map[*FunctionSet]*FunctionTemplateType{},
		composed:         map[string]*ComposedFunctionType{},
		composedFns:      map[string]*ConcreteFunction{},
		interfaces:       map[*ast.Interface]*InterfaceType{},
		externs:          set.New[string](8),
		backend:          map[Type]types.Type{},

		imports:    map[string]*Structure{},
		structures: map[structureKey]*Structure{},
		implicit:   map[string]*Structure{},

		names:     set.New[string](64),
		reported:  set.New[string](16),
		anonymous: map[string]int{},
	}
	s.global = &ComptimeContext{Session: s, variables: map[string]*ComptimeVariable{}}
	registerDefaultBuiltins(s)
	return s
}

// Report records a diagnostic. Identical reports at the same coordinate are
// kept once.
func (s *Session) Report(d errors.Diagnostic) {
	key := fmt.Sprintf("%d|%v|%s", d.Code, d.Location, d.Message)
	if s.reported.Contains(key) {
		return
	}
	s.reported.Insert(key)
	s.Diagnostics = append(s.Diagnostics, d)

	if d.Code.IsWarning() && !s.Config.WarningsAreErrors {
		plog.Debugf("warning %s at %s: %s", d.Code, s.Files.Describe(d.Location), d.Message)
		return
	}

	s.Errored = true
	s.failures++
	plog.Debugf("error %s at %s: %s", d.Code, s.Files.Describe(d.Location), d.Message)
	if s.Config.MaxErrors > 0 && s.failures >= s.Config.MaxErrors {
		panic(tooManyErrors{})
	}
}

// protect runs f, converting any lowering error it raises into a diagnostic
// located at `at` when the error has no better location.
func (s *Session) protect(at ctypes.Coordinate, f func()) (ok bool) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if err, isErr := v.(error); isErr {
			if d, converted := errors.AsDiagnostic(diagnosticModule, err, at); converted {
				s.Report(d)
				ok = false
				return
			}
		}
		panic(v)
	}()

	f()
	return true
}

func raise(at ctypes.Coordinate, code errors.Code, format string, args ...interface{}) {
	panic(errors.LocalizedError{Message: fmt.Sprintf(format, args...), Code: code, Location: at})
}

func fail(code errors.Code, format string, args ...interface{}) error {
	return errors.CurdleError{Message: fmt.Sprintf(format, args...), Code: code}
}

// check panics with err localized at `at`.
func check(err error, at ctypes.Coordinate) {
	if err == nil {
		return
	}
	if cerr, ok := err.(errors.CurdleError); ok {
		panic(cerr.Localize(at))
	}
	panic(err)
}

func notImplemented(at ctypes.Coordinate, feature string, args ...interface{}) {
	panic(errors.Unimplemented{Feature: fmt.Sprintf(feature, args...), Location: at})
}

func (s *Session) pushName(name string) {
	s.nameStack = append(s.nameStack, name)
}

func (s *Session) popName() {
	s.nameStack = s.nameStack[:len(s.nameStack)-1]
}

func (s *Session) currentName() string {
	if len(s.nameStack) == 0 {
		return ""
	}
	return s.nameStack[len(s.nameStack)-1]
}

// anonymousName returns a fresh name for something unnamed.
func (s *Session) anonymousName(prefix string) string {
	n := s.anonymous[prefix]
	s.anonymous[prefix] = n + 1
	return fmt.Sprintf("::%s%d", prefix, n)
}

// VerifyName makes name unique within the session.
func (s *Session) VerifyName(name string) string {
	candidate := name
	for i := 1; s.names.Contains(candidate); i++ {
		candidate = fmt.Sprintf("%s::%d", name, i)
	}
	s.names.Insert(candidate)
	return candidate
}

func (s *Session) Integer(signed bool, bits uint16) *IntegerType {
	key := IntegerType{Signed: signed, Bits: bits}
	if t, ok := s.integers[key]; ok {
		return t
	}
	t := &IntegerType{Signed: signed, Bits: bits}
	s.integers[key] = t
	return t
}

func (s *Session) Reference(child Type, constant bool) *ReferenceType {
	key := refKey{child, constant}
	if t, ok := s.references[key]; ok {
		return t
	}
	t := &ReferenceType{Child: child, Const: constant}
	s.references[key] = t
	return t
}

func (s *Session) Pointer(child Type, constant bool) *PointerType {
	key := refKey{child, constant}
	if t, ok := s.pointers[key]; ok {
		return t
	}
	t := &PointerType{Child: child, Const: constant}
	s.pointers[key] = t
	return t
}

// identity renders types by pointer so distinct types with the same
// spelling never share a cache slot.
func identity(ts ...Type) string {
	var parts []string
	for _, t := range ts {
		parts = append(parts, fmt.Sprintf("%p", t))
	}
	return strings.Join(parts, ",")
}

func (s *Session) Array(dims []uint64, child Type, constant bool) *ArrayType {
	key := fmt.Sprintf("%v|%s|%t", dims, identity(child), constant)
	if t, ok := s.arrays[key]; ok {
		return t
	}
	t := &ArrayType{Dimensions: append([]uint64(nil), dims...), Child: child, Const: constant}
	s.arrays[key] = t
	return t
}

func (s *Session) FunctionPointer(ret Type, args []Type) *FunctionPointerType {
	key := identity(ret) + "|" + identity(args...)
	if t, ok := s.functionPointers[key]; ok {
		return t
	}
	t := &FunctionPointerType{Return: ret, Args: append([]Type(nil), args...)}
	s.functionPointers[key] = t
	return t
}

func (s *Session) ImportedFunction(ret Type, args []Type) *ImportedFunctionType {
	key := identity(ret) + "|" + identity(args...)
	if t, ok := s.importedTypes[key]; ok {
		return t
	}
	t := &ImportedFunctionType{Return: ret, Args: append([]Type(nil), args...)}
	s.importedTypes[key] = t
	return t
}

func (s *Session) TemplateType(fs *FunctionSet) *FunctionTemplateType {
	if t, ok := s.templateTypes[fs]; ok {
		return t
	}
	t := &FunctionTemplateType{Set: fs}
	s.templateTypes[fs] = t
	return t
}

// Primitive looks up a builtin type name such as i32, u8, f64 or type.
func (s *Session) Primitive(name string) (Type, bool) {
	switch name {
	case "void":
		return s.Void, true
	case "noreturn":
		return s.NoReturn, true
	case "bool":
		return s.Bool, true
	case "f32":
		return s.Float32, true
	case "f64":
		return s.Float64, true
	case "c32":
		return s.Complex32, true
	case "c64":
		return s.Complex64, true
	case "comptime_int":
		return s.ComptimeInt, true
	case "comptime_float":
		return s.ComptimeFloat, true
	case "comptime_complex":
		return s.ComptimeComplex, true
	case "comptime_string":
		return s.ComptimeString, true
	case "type":
		return s.TypeOfTypes, true
	case "any":
		return s.Any, true
	}

	if len(name) > 1 && (name[0] == 'i' || name[0] == 'u') {
		bits, err := strconv.ParseUint(name[1:], 10, 64)
		if err != nil || bits == 0 || strings.HasPrefix(name[1:], "0") {
			return nil, false
		}
		narrow, err := safecast.Conv[uint16](bits)
		if err != nil {
			return nil, false
		}
		return s.Integer(name[0] == 'i', narrow), true
	}
	return nil, false
}

// Import resolves a module path relative to the file containing `from`.
func (s *Session) Import(from ctypes.Coordinate, path string) *Structure {
	if s.Loader == nil {
		raise(from, errors.UnresolvedImport, "cannot import %q: no module loader configured", path)
	}

	root, key, err := s.Loader.Load(s.Files.Name(from.File), path)
	if err != nil {
		raise(from, errors.UnresolvedImport, "cannot import %q: %s", path, err)
	}
	if st, ok := s.imports[key]; ok {
		return st
	}

	plog.Debugf("importing %s as %s", path, key)
	name := s.VerifyName(strings.ReplaceAll(strings.Trim(path, "/"), "/", "."))
	st := s.newStructure(name, root, s.global)
	s.imports[key] = st
	s.fillStructure(st)
	return st
}

// ImportedModules lists imported module keys in a stable order.
func (s *Session) ImportedModules() []string {
	var keys []string
	for k := range s.imports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
