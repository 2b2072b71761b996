// Package curdle resolves names and types of a parsed module and lowers it to
// the bacteria tree.
package curdle

import (
	"sort"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
)

// Compile lowers the module rooted at root. Programs look for their entry
// function; libraries resolve every member and instantiate every function
// that needs no arguments deduced. Diagnostics are left on the session.
func (s *Session) Compile(root *ast.Structure, name string, library bool) *bacteria.Program {
	defer func() {
		if v := recover(); v != nil {
			if _, ok := v.(tooManyErrors); !ok {
				panic(v)
			}
			plog.Warningf("stopping after %d errors", s.failures)
		}
	}()

	s.Root = s.newStructure(s.VerifyName(name), root, s.global)
	s.fillStructure(s.Root)

	if library {
		s.compileLibrary(s.Root)
		return s.Program
	}

	s.Entry = s.SearchEntry(s.Root)
	switch {
	case s.Entry != nil:
		s.Program.Entry = s.Entry.Name
	case !s.Errored:
		s.Report(errors.Diagnostic{
			Module:   diagnosticModule,
			Message:  "no entry function found in " + name,
			Location: root.Pos(),
			Code:     errors.NoEntryPoint,
		})
	}
	return s.Program
}

func (s *Session) compileLibrary(st *Structure) {
	s.ResolveAll(st)

	setNames := make([]string, 0, len(st.FunctionSets))
	for name := range st.FunctionSets {
		setNames = append(setNames, name)
	}
	sort.Strings(setNames)

	for _, name := range setNames {
		for _, tpl := range st.FunctionSets[name].Templates {
			tpl := tpl
			s.protect(tpl.Node.Pos(), func() {
				s.instantiateConcrete(tpl)
			})
		}
	}
}

// instantiateConcrete instantiates tpl when every argument has a declared
// run-time type.
func (s *Session) instantiateConcrete(tpl *FunctionTemplate) {
	params, _, _, _ := ast.FunctionSignature(tpl.Node)
	ts := make([]Type, len(params))
	for i, p := range params {
		if p.Comptime || p.Type == nil {
			return
		}
		ts[i] = s.evalType(tpl.Scope.Local(nil), p.Type)
		if s.Comptimeness(ts[i]) != Runtime {
			return
		}
	}
	s.instantiate(tpl, ts, nil, tpl.Node.Pos())
}
