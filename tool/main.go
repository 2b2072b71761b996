package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/alecthomas/participle"

	. "github.com/dave/jennifer/jen"
)

// Sums is a file of closed sum declarations:
//
//	sum Node = A | B | C;
type Sums struct {
	Declarations []*Sum `@@*`
}

type Sum struct {
	Name     string   `"sum" @Ident "="`
	Variants []string `"|"? @Ident ("|" @Ident)* ";"`
}

func (s *Sums) Validate() error {
	seen := map[string]string{}
	for _, decl := range s.Declarations {
		for _, variant := range decl.Variants {
			if other, ok := seen[decl.Name+"."+variant]; ok {
				return fmt.Errorf("%s listed twice in %s", variant, other)
			}
			seen[decl.Name+"."+variant] = decl.Name
		}
	}
	return nil
}

// GenerateMarkers emits one unexported marker method per variant so that
// only listed types satisfy the sum's interface.
func GenerateMarkers(pkgname string, s *Sums) string {
	f := NewFile(pkgname)
	f.HeaderComment("Code generated by adtGen. DO NOT EDIT.")

	for _, decl := range s.Declarations {
		for _, variant := range decl.Variants {
			f.Func().Params(Op("*").Id(variant)).Id("is_" + decl.Name).Params().Block()
		}
	}

	return fmt.Sprintf("%#v", f)
}

func main() {
	parser := participle.MustBuild(&Sums{})

	in := os.Args[1]
	out := os.Args[2]
	pkgname := os.Args[3]

	inData, err := ioutil.ReadFile(in)
	if err != nil {
		panic(err)
	}

	sums := Sums{}
	err = parser.ParseBytes(inData, &sums)
	if err != nil {
		panic(err)
	}
	if err = sums.Validate(); err != nil {
		panic(err)
	}

	err = ioutil.WriteFile(out, []byte(GenerateMarkers(pkgname, &sums)), 0o644)
	if err != nil {
		panic(err)
	}
}
