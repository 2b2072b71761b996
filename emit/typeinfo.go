package emit

import (
	"encoding/json"

	"github.com/llir/llvm/ir/constant"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/names"
)

// TypeInfoSymbol is the global holding the JSON description of a module.
const TypeInfoSymbol = "__curdle_types"

// TypeInfo describes what a built module exports. Functions and globals map
// mangled symbols to their readable form.
type TypeInfo struct {
	Package   string            `json:"package"`
	Entry     string            `json:"entry,omitempty"`
	Functions map[string]string `json:"functions"`
	Globals   map[string]string `json:"globals"`
}

func describe(p *bacteria.Program, settings Settings) TypeInfo {
	t := TypeInfo{
		Package:   settings.Package,
		Entry:     p.Entry,
		Functions: map[string]string{},
		Globals:   map[string]string{},
	}
	for _, fn := range p.Functions {
		if fn.Extern || (settings.Library && !fn.Public) {
			continue
		}
		t.Functions[fn.Name] = names.UnmangleFunction(fn.Name)
	}
	for _, g := range p.Globals {
		t.Globals[g.Name] = names.UnmangleVariable(g.Name) + ": " + g.Typ.String()
	}
	return t
}

func (g *generator) registerTypeInfo(p *bacteria.Program, settings Settings) {
	data, err := json.Marshal(describe(p, settings))
	if err != nil {
		fail("encoding type information: %s", err)
	}

	global := g.module.NewGlobalDef(TypeInfoSymbol, constant.NewCharArray(append(data, 0)))
	global.Immutable = true
}

// ParseTypeInfo decodes the contents of a TypeInfoSymbol global.
func ParseTypeInfo(data string) (t TypeInfo, err error) {
	err = json.Unmarshal([]byte(data), &t)
	return
}
