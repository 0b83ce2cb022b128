package ast

import "testing"

func TestUnmarshalProgramDecodesNestedSurfaceTree(t *testing.T) {
	src := `{
		"node": "let",
		"span": {"Line": 1, "Column": 1},
		"bindings": [{"name": "x", "expr": {"node": "num", "val": 10}}],
		"body": {"node": "prim1", "op": "add1", "e": {"node": "var", "name": "x"}}
	}`
	prog, err := UnmarshalProgram([]byte(src))
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}
	let, ok := prog.Main.(*Let)
	if !ok {
		t.Fatalf("expected *Let, got %T", prog.Main)
	}
	if let.A.Span.Line != 1 {
		t.Fatalf("span not decoded: %+v", let.A.Span)
	}
	if n := let.Bindings[0].Expr.(*Num); n.Val != 10 {
		t.Fatalf("binding value = %d, want 10", n.Val)
	}
	p1 := let.Body.(*Prim1)
	if p1.Op != Add1 || p1.E.(*Var).Name != "x" {
		t.Fatalf("body not decoded: %#v", p1)
	}
}

func TestUnmarshalProgramDecodesMatchArms(t *testing.T) {
	src := `{
		"node": "match",
		"match_expr": {"node": "num", "val": 1},
		"default": {"node": "num", "val": 0},
		"arms": [
			{"type_kind": "Num", "binders": ["n"], "body": {"node": "var", "name": "n"}},
			{"type_kind": "Custom", "custom": "Leaf", "binders": [], "body": {"node": "num", "val": 2}}
		]
	}`
	prog, err := UnmarshalProgram([]byte(src))
	if err != nil {
		t.Fatalf("UnmarshalProgram: %v", err)
	}
	m := prog.Main.(*Match)
	if m.Arms[0].Type.Kind != TNum {
		t.Fatalf("first arm kind = %v, want TNum", m.Arms[0].Type.Kind)
	}
	if m.Arms[1].Type.Kind != TCustom || m.Arms[1].Type.Custom != "Leaf" {
		t.Fatalf("second arm = %#v, want custom Leaf", m.Arms[1].Type)
	}
}

func TestUnmarshalProgramRejectsUnknownNodeKind(t *testing.T) {
	if _, err := UnmarshalProgram([]byte(`{"node": "goto"}`)); err == nil {
		t.Fatal("expected an error for an unknown node kind")
	}
}

func TestUnmarshalProgramRejectsUnknownOp(t *testing.T) {
	src := `{"node": "prim2", "op": "%", "e1": {"node": "num", "val": 1}, "e2": {"node": "num", "val": 2}}`
	if _, err := UnmarshalProgram([]byte(src)); err == nil {
		t.Fatal("expected an error for an unknown operator")
	}
}
