package main

import (
	"strings"
	"testing"

	"github.com/alecthomas/participle"
)

func TestGenerateMarkers(t *testing.T) {
	parser := participle.MustBuild(&Sums{})

	sums := Sums{}
	err := parser.ParseString("sum Node = | Add | Sub;\nsum Value = Integer;", &sums)
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	if len(sums.Declarations) != 2 || len(sums.Declarations[0].Variants) != 2 {
		t.Fatalf("unexpected declarations %+v", sums.Declarations)
	}

	out := GenerateMarkers("ast", &sums)
	for _, want := range []string{"package ast", "func (*Add) is_Node() {}", "func (*Integer) is_Value() {}"} {
		if !strings.Contains(out, want) {
			t.Errorf("generated code lacks %q:\n%s", want, out)
		}
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	sums := Sums{Declarations: []*Sum{{Name: "Node", Variants: []string{"A", "A"}}}}
	if sums.Validate() == nil {
		t.Fatal("duplicate variant accepted")
	}
}
