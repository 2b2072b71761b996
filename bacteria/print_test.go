package bacteria

import (
	"math/big"
	"strings"
	"testing"

	"github.com/llir/llvm/ir/types"
)

func TestDumpNestsChildren(t *testing.T) {
	n := &Binary{
		Op:   Add,
		Left: &IntegerLiteral{Typ: types.I64, Value: big.NewInt(1)},
		Right: &Cast{
			Value:        &ValueReference{Name: "x", Typ: types.I32},
			Typ:          types.I64,
			SourceSigned: true,
			TargetSigned: true,
		},
		Typ:    types.I64,
		Signed: true,
	}

	want := strings.Join([]string{
		"add i64",
		"  int i64 1",
		"  cast i64",
		"    ref x i32",
		"",
	}, "\n")
	if got := Dump(n); got != want {
		t.Fatalf("got:\n%s\nexpected:\n%s", got, want)
	}
}

func TestProgramLookup(t *testing.T) {
	p := NewProgram()
	f := &Function{Name: "main", Return: types.Void}
	p.AddFunction(f)
	f.Receive(&Return{})

	if p.Function("main") != f {
		t.Fatal("function not found")
	}
	if p.Function("other") != nil {
		t.Fatal("unexpected function")
	}
	if !strings.Contains(p.String(), "fn main() void\n  return\n") {
		t.Fatalf("unexpected rendering:\n%s", p.String())
	}
}
