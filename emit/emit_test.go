package emit

import (
	"math/big"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/types"
	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/curdle"
	ctypes "github.com/pontaoski/curdle/types"
)

func compile(t *testing.T, src string, library bool) *bacteria.Program {
	t.Helper()
	files := ctypes.NewFileTable()
	root, err := ast.Decode([]byte(src), files.Intern("test.cdl"))
	if err != nil {
		t.Fatalf("decoding test source: %s", err)
	}
	s := curdle.NewSession(files, nil, curdle.Config{})
	p := s.Compile(root, "test", library)
	if s.Errored {
		t.Fatalf("compiling: %v", s.Diagnostics)
	}
	return p
}

func emit(t *testing.T, p *bacteria.Program, settings Settings) string {
	t.Helper()
	m, err := Emit(p, settings)
	if err != nil {
		t.Fatalf("emitting: %s", err)
	}
	return m.String()
}

func expectContains(t *testing.T, module string, fragments ...string) {
	t.Helper()
	for _, frag := range fragments {
		if !strings.Contains(module, frag) {
			t.Errorf("module does not contain %q:\n%s", frag, module)
		}
	}
}

func integer(bits uint64, v int64) *bacteria.IntegerLiteral {
	return &bacteria.IntegerLiteral{Typ: types.NewInt(bits), Value: big.NewInt(v)}
}

func TestEmitProgram(t *testing.T) {
	p := compile(t, `
kind: structure
children:
  - kind: function
    name: add
    args: [{name: a, type: {kind: ref, name: i32}}, {name: b, type: {kind: ref, name: i32}}]
    return: {kind: ref, name: i32}
    body: {kind: binary, op: "+", left: {kind: ref, name: a}, right: {kind: ref, name: b}}
  - kind: function
    name: main
    entry: true
    return: {kind: ref, name: i32}
    body:
      kind: call
      callee: {kind: ref, name: add}
      args: [{kind: int, value: "2"}, {kind: int, value: "40"}]
`, false)
	module := emit(t, p, Settings{Package: "test"})

	expectContains(t, module,
		"define i32 @test_Dadd_ai32_ai32_ri32(i32 %a, i32 %b)",
		"add i32",
		"call i32 @test_Dadd_ai32_ai32_ri32(i32 2, i32 40)",
		"define void @"+EntryStub+"()",
		"call i32 @test_Dmain_ri32()",
		"zext i32",
		"@"+TypeInfoSymbol+" = constant",
	)
}

func TestEmitGlobalsAndInit(t *testing.T) {
	p := compile(t, `
kind: structure
children:
  - {kind: declare, name: limit, type: {kind: ref, name: i64}, value: {kind: int, value: "10"}}
  - {kind: define, name: counter, mutable: true, type: {kind: ref, name: i32}}
  - kind: function
    name: bump
    public: true
    body: {kind: assign, op: "+", target: {kind: ref, name: counter}, value: {kind: int, value: "1"}}
`, true)
	module := emit(t, p, Settings{Library: true, Package: "test"})

	expectContains(t, module,
		"@test_Dlimit = constant i64 10",
		"@test_Dcounter = global i32 zeroinitializer",
		"load i32, i32* @test_Dcounter",
		"store i32",
	)
	if strings.Contains(module, EntryStub) {
		t.Error("libraries have no entry stub")
	}
}

func TestEmitConditionalPhi(t *testing.T) {
	i32 := types.NewInt(32)
	fn := &bacteria.Function{
		Name:   "pick",
		Return: i32,
		Params: []bacteria.Param{{Name: "c", Type: types.I1}},
	}
	cond := &bacteria.ValueReference{Name: "c", Typ: types.I1}
	fn.Body = []bacteria.Node{
		&bacteria.Return{Value: &bacteria.If{
			Condition: cond,
			Then:      &bacteria.Block{Result: integer(32, 1), Typ: i32},
			Else:      &bacteria.Block{Result: integer(32, 2), Typ: i32},
			Typ:       i32,
		}},
	}
	p := bacteria.NewProgram()
	p.AddFunction(fn)

	module := emit(t, p, Settings{})
	expectContains(t, module, "br i1", "phi i32 [ 1, %then.1 ], [ 2, %else.2 ]", "ret i32")
}

func TestEmitPhiSkipsTerminatedBranches(t *testing.T) {
	i32 := types.NewInt(32)
	fn := &bacteria.Function{
		Name:   "pick",
		Return: i32,
		Params: []bacteria.Param{{Name: "c", Type: types.I1}},
	}
	fn.Body = []bacteria.Node{
		&bacteria.Return{Value: &bacteria.If{
			Condition: &bacteria.ValueReference{Name: "c", Typ: types.I1},
			Then:      &bacteria.Block{Children: []bacteria.Node{&bacteria.Return{Value: integer(32, 7)}}},
			Else:      &bacteria.Block{Result: integer(32, 2), Typ: i32},
			Typ:       i32,
		}},
	}
	p := bacteria.NewProgram()
	p.AddFunction(fn)

	module := emit(t, p, Settings{})
	expectContains(t, module, "ret i32 7", "phi i32 [ 2, %else.2 ]")
	if strings.Contains(module, "%then.1 ]") {
		t.Errorf("terminated branch feeds the phi:\n%s", module)
	}
}

func TestEmitLoop(t *testing.T) {
	i32 := types.NewInt(32)
	i := &bacteria.ValueReference{Name: "i", Typ: i32}
	fn := &bacteria.Function{Name: "count", Return: types.Void}
	fn.Body = []bacteria.Node{
		&bacteria.VariableDefinition{Name: "i", Typ: i32},
		&bacteria.While{
			Condition: &bacteria.Block{
				Result: &bacteria.Binary{Op: bacteria.Lt, Left: i, Right: integer(32, 10), Typ: types.I1, Signed: true},
				Typ:    types.I1,
			},
			Body: &bacteria.Block{Children: []bacteria.Node{
				&bacteria.Assignment{Target: i, Value: &bacteria.Binary{Op: bacteria.Add, Left: i, Right: integer(32, 1), Typ: i32, Signed: true}},
				&bacteria.Continue{},
				&bacteria.Break{},
			}},
		},
	}
	p := bacteria.NewProgram()
	p.AddFunction(fn)

	module := emit(t, p, Settings{})
	expectContains(t, module, "icmp slt i32", "br label %while.1", "br label %done.3", "ret void")
}

func TestEmitCasts(t *testing.T) {
	i8, i64 := types.NewInt(8), types.NewInt(64)
	c64 := types.NewStruct(types.Double, types.Double)
	fn := &bacteria.Function{
		Name:   "casts",
		Return: types.Void,
		Params: []bacteria.Param{{Name: "x", Type: i8}},
	}
	x := &bacteria.ValueReference{Name: "x", Typ: i8}
	fn.Body = []bacteria.Node{
		&bacteria.VariableInitialization{Name: "a", Typ: i64, Value: &bacteria.Cast{Value: x, Typ: i64, SourceSigned: true, TargetSigned: true}},
		&bacteria.VariableInitialization{Name: "b", Typ: i64, Value: &bacteria.Cast{Value: x, Typ: i64}},
		&bacteria.VariableInitialization{Name: "c", Typ: types.Double, Value: &bacteria.Cast{Value: x, Typ: types.Double, SourceSigned: true}},
		&bacteria.VariableInitialization{Name: "d", Typ: c64, Value: &bacteria.Cast{Value: x, Typ: c64, SourceSigned: true}},
		&bacteria.VariableInitialization{Name: "e", Typ: types.NewPointer(i8), Value: &bacteria.ImplicitReference{Value: x, Typ: types.NewPointer(i8)}},
	}
	p := bacteria.NewProgram()
	p.AddFunction(fn)

	module := emit(t, p, Settings{})
	expectContains(t, module, "sext i8", "zext i8", "sitofp i8", "insertvalue", "store i8*")
}

func TestEmitRejectsNop(t *testing.T) {
	fn := &bacteria.Function{Name: "broken", Return: types.Void}
	fn.Body = []bacteria.Node{&bacteria.Return{Value: nil}, &bacteria.VariableInitialization{Name: "x", Typ: types.I1, Value: &bacteria.Nop{}}}
	p := bacteria.NewProgram()
	p.AddFunction(fn)

	if _, err := Emit(p, Settings{}); err == nil {
		t.Fatal("expected an error for a Nop value")
	}
}

func TestTypeInfoRoundTrip(t *testing.T) {
	p := compile(t, `
kind: structure
children:
  - {kind: function, name: visible, public: true, body: {kind: block}}
  - {kind: function, name: hidden, body: {kind: block}}
`, true)
	info := describe(p, Settings{Library: true, Package: "test"})
	if _, ok := info.Functions["test_Dvisible_rvoid"]; !ok {
		t.Errorf("public function missing from %v", info.Functions)
	}
	if _, ok := info.Functions["test_Dhidden_rvoid"]; ok {
		t.Errorf("private function exported in %v", info.Functions)
	}

	module := emit(t, p, Settings{Library: true, Package: "test"})
	if !strings.Contains(module, "define internal void @test_Dhidden_rvoid") {
		t.Errorf("private function is not internal:\n%s", module)
	}

	parsed, err := ParseTypeInfo(`{"package":"test","functions":{"f_rvoid":"f => void"},"globals":{}}`)
	if err != nil || parsed.Package != "test" || parsed.Functions["f_rvoid"] != "f => void" {
		t.Fatalf("unexpected type info %+v (%v)", parsed, err)
	}
}
