// Package emit turns a lowered bacteria program into an LLVM module.
package emit

import (
	"fmt"

	"github.com/coreos/pkg/capnslog"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/errors"
	"github.com/ztrue/tracerr"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/curdle", "emit")

// EntryStub is the symbol programs start at. It runs the initialiser, calls
// the entry function and exits with its result.
const EntryStub = "_curdle_main"

type Settings struct {
	Library bool
	Package string
}

// emitError is raised while walking the tree and returned from Emit.
type emitError struct {
	msg string
}

func fail(format string, args ...interface{}) {
	panic(emitError{msg: fmt.Sprintf(format, args...)})
}

type generator struct {
	module    *ir.Module
	functions map[string]*ir.Func
	globals   map[string]*ir.Global
}

// Emit generates the module for p. A malformed tree is reported as an
// InvalidModule error.
func Emit(p *bacteria.Program, settings Settings) (m *ir.Module, err error) {
	defer func() {
		if v := recover(); v != nil {
			e, ok := v.(emitError)
			if !ok {
				panic(v)
			}
			m = nil
			err = tracerr.Wrap(errors.CurdleError{Message: e.msg, Code: errors.InvalidModule})
		}
	}()

	g := &generator{
		module:    ir.NewModule(),
		functions: map[string]*ir.Func{},
		globals:   map[string]*ir.Global{},
	}
	g.module.TypeDefs = append(g.module.TypeDefs, p.TypeDefs...)

	// forward declarations first so calls and initialisers may refer to any
	// function
	for _, fn := range p.Functions {
		g.declareFunction(fn, settings.Library)
	}
	for _, gv := range p.Globals {
		g.declareGlobal(gv)
	}
	for _, fn := range p.Functions {
		if !fn.Extern {
			g.defineFunction(fn)
		}
	}

	var init *ir.Func
	if len(p.Init.Body) > 0 {
		init = g.declareFunction(p.Init, false)
		g.defineFunction(p.Init)
	}

	switch {
	case settings.Library:
		if init != nil {
			g.registerConstructor(init)
		}
	case p.Entry != "":
		entry, ok := g.functions[p.Entry]
		if !ok {
			fail("entry function %s was never declared", p.Entry)
		}
		g.entryStub(init, entry)
	}

	g.registerTypeInfo(p, settings)
	return g.module, nil
}

func (g *generator) declareGlobal(gv *bacteria.GlobalVariable) {
	var init constant.Constant = constant.NewZeroInitializer(gv.Typ)
	if gv.Init != nil {
		c, ok := g.constant(gv.Init)
		if !ok {
			fail("initialiser of %s is not constant", gv.Name)
		}
		init = c
	}
	global := g.module.NewGlobalDef(gv.Name, init)
	global.Immutable = gv.Constant
	g.globals[gv.Name] = global
}

func (g *generator) declareFunction(fn *bacteria.Function, library bool) *ir.Func {
	if existing, ok := g.functions[fn.Name]; ok {
		return existing
	}

	var params []*ir.Param
	for _, p := range fn.Params {
		params = append(params, ir.NewParam(p.Name, p.Type))
	}
	f := g.module.NewFunc(fn.Name, fn.Return, params...)
	if !fn.Extern && !fn.Public && library {
		f.Linkage = enum.LinkageInternal
	}
	g.functions[fn.Name] = f
	plog.Tracef("declared %s", fn.Name)
	return f
}

func (g *generator) defineFunction(fn *bacteria.Function) {
	plog.Debugf("emitting %s", fn.Name)

	f := g.functions[fn.Name]
	fc := &function{
		generator: g,
		fn:        f,
		locals:    map[string]value.Value{},
	}
	fc.entry = f.NewBlock("entry")
	fc.block = fc.entry

	for i, p := range fn.Params {
		slot := fc.entry.NewAlloca(p.Type)
		fc.entry.NewStore(f.Params[i], slot)
		fc.locals[p.Name] = slot
	}

	for _, n := range fn.Body {
		fc.statement(n)
	}

	if fc.block.Term == nil {
		if types.IsVoid(fn.Return) {
			fc.block.NewRet(nil)
		} else {
			fc.block.NewUnreachable()
		}
	}
}

// entryStub calls the initialiser and the entry function, then leaves the
// process through the exit syscall with the entry's integer result.
func (g *generator) entryStub(init, entry *ir.Func) {
	stub := g.module.NewFunc(EntryStub, types.Void)
	b := stub.NewBlock("_entry")

	if init != nil {
		b.NewCall(init)
	}
	result := b.NewCall(entry)

	var status value.Value = constant.NewInt(types.I64, 0)
	if it, ok := entry.Sig.RetType.(*types.IntType); ok {
		switch {
		case it.BitSize < 64:
			status = b.NewZExt(result, types.I64)
		case it.BitSize == 64:
			status = result
		}
	}

	exit := ir.NewInlineAsm(types.NewPointer(types.NewFunc(types.Void, types.I64)), `movq $$0x3C, %rax; syscall`, `{rdi}`)
	exit.SideEffect = true
	b.NewCall(exit, status)
	b.NewUnreachable()
}

// registerConstructor makes a library run its initialiser when loaded.
func (g *generator) registerConstructor(init *ir.Func) {
	entry := types.NewStruct(types.I32, types.NewPointer(init.Sig), types.I8Ptr)
	list := constant.NewArray(types.NewArray(1, entry), constant.NewStruct(entry,
		constant.NewInt(types.I32, 65535),
		init,
		constant.NewNull(types.I8Ptr),
	))
	ctors := g.module.NewGlobalDef("llvm.global_ctors", list)
	ctors.Linkage = enum.LinkageAppending
}
