package curdle

import (
	"testing"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	ctypes "github.com/pontaoski/curdle/types"
)

func newTestSession() *Session {
	return NewSession(ctypes.NewFileTable(), nil, Config{})
}

func parse(t *testing.T, s *Session, src string) *ast.Structure {
	t.Helper()
	root, err := ast.Decode([]byte(src), s.Files.Intern("test.cdl"))
	if err != nil {
		t.Fatalf("decoding test source: %s", err)
	}
	return root
}

func compileWith(t *testing.T, s *Session, src string, library bool) *Session {
	t.Helper()
	s.Compile(parse(t, s, src), "test", library)
	return s
}

func compile(t *testing.T, src string, library bool) *Session {
	t.Helper()
	return compileWith(t, newTestSession(), src, library)
}

func expectNoErrors(t *testing.T, s *Session) {
	t.Helper()
	for _, d := range s.Diagnostics {
		if !d.Code.IsWarning() {
			t.Fatalf("unexpected diagnostics: %v", s.Diagnostics)
		}
	}
}

func expectError(t *testing.T, s *Session, code errors.Code) {
	t.Helper()
	for _, d := range s.Diagnostics {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected %s, got %v", code, s.Diagnostics)
}

// entryBody returns the statements of the entry function's block body.
func entryBody(t *testing.T, s *Session) []bacteria.Node {
	t.Helper()
	if s.Entry == nil {
		t.Fatalf("no entry function: %v", s.Diagnostics)
	}
	fn := s.Program.Function(s.Entry.Name)
	if fn == nil || len(fn.Body) == 0 {
		t.Fatalf("entry function %s was not lowered", s.Entry.Name)
	}
	blk, ok := fn.Body[0].(*bacteria.Block)
	if !ok {
		t.Fatalf("entry body is %T", fn.Body[0])
	}
	return blk.Children
}

// runtimeScope returns a function-level scope that collects statements into
// the returned block.
func runtimeScope(s *Session) (*RuntimeContext, *bacteria.Block) {
	blk := &bacteria.Block{}
	return newRuntimeContext(s.global, nil, s.Void, blk), blk
}
