package ast

import "testing"

const sample = `
kind: structure
children:
  - kind: import
    path: std/io
    name: io
  - kind: declare
    name: answer
    at: [3, 1]
    value: {kind: binary, op: "+", left: {kind: int, value: "40"}, right: {kind: int, value: "0x2"}}
  - kind: function
    name: main
    entry: true
    return: {kind: ref, name: i32}
    args:
      - {name: x, type: {kind: reference_type, const: true, child: {kind: ref, name: i64}}}
    body:
      kind: block
      children:
        - {kind: assign, op: "+", target: {kind: ref, name: x}, value: {kind: int, value: "1"}}
      yield: {kind: unary, op: "-", operand: {kind: ref, name: answer}}
`

func TestDecodeStructure(t *testing.T) {
	root, err := Decode([]byte(sample), 4)
	if err != nil {
		t.Fatalf("decode failed: %s", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(root.Children))
	}

	imp, ok := root.Children[0].(*Import)
	if !ok || imp.Path != "std/io" || imp.Name != "io" {
		t.Fatalf("bad import %#v", root.Children[0])
	}

	decl := root.Children[1].(*VariableDeclaration)
	if decl.Pos().Line != 3 || decl.Pos().File != 4 {
		t.Fatalf("coordinate not decoded: %v", decl.Pos())
	}
	sum := decl.Value.(*Binary)
	if sum.Op != OpAdd || sum.Right.(*IntegerLiteral).Value.Int64() != 2 {
		t.Fatalf("bad binary %#v", sum)
	}

	fn := root.Children[2].(*Function)
	if !fn.Entry || len(fn.Args) != 1 {
		t.Fatalf("bad function %#v", fn)
	}
	if ref := fn.Args[0].Type.(*ReferenceType); !ref.Const {
		t.Fatalf("const flag lost")
	}
	body := fn.Body.(*Block)
	if body.Children[0].(*Assignment).Op != OpAdd {
		t.Fatalf("compound assignment operator lost")
	}
	if body.Yield.(*Unary).Op != OpNegate {
		t.Fatalf("unary operator decoded as binary")
	}
}

func TestDecodeRejectsUnknownKinds(t *testing.T) {
	_, err := Decode([]byte("kind: structure\nchildren: [{kind: wat}]"), 1)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestDecodeRequiresStructureRoot(t *testing.T) {
	_, err := Decode([]byte(`{"kind": "int", "value": "1"}`), 1)
	if err == nil {
		t.Fatal("expected an error for a non-structure root")
	}
}
