package ast

import "testing"

func collectTags(e Expr, out *[]uint32) {
	*out = append(*out, e.GetAnn().Tag)
	switch n := e.(type) {
	case *Prim1:
		collectTags(n.E, out)
	case *Prim2:
		collectTags(n.E1, out)
		collectTags(n.E2, out)
	case *Let:
		for _, b := range n.Bindings {
			collectTags(b.Expr, out)
		}
		collectTags(n.Body, out)
	case *If:
		collectTags(n.Cond, out)
		collectTags(n.Thn, out)
		collectTags(n.Els, out)
	}
}

func TestRetagAssignsUniqueTags(t *testing.T) {
	prog := &Program{Main: &Let{
		Bindings: []Binding{{Name: "x", Expr: &Num{Val: 1}}},
		Body: &If{
			Cond: &Bool{Val: true},
			Thn:  &Prim2{Op: Add, E1: &Var{Name: "x"}, E2: &Num{Val: 2}},
			Els:  &Num{Val: 0},
		},
	}}
	out := RetagProgram(prog)
	var tags []uint32
	collectTags(out.Main, &tags)
	seen := map[uint32]bool{}
	for _, tag := range tags {
		if seen[tag] {
			t.Fatalf("tag %d assigned twice", tag)
		}
		seen[tag] = true
	}
}

func TestRetagTwiceIsEquivalentModuloAnnotation(t *testing.T) {
	// Tagging then re-tagging yields the same tree shape and the same
	// tag assignment (both walks visit in the same order from zero).
	prog := &Program{Main: &Prim2{
		Op: Add,
		E1: &Num{Val: 1},
		E2: &Prim1{Op: Add1, E: &Num{Val: 2}},
	}}
	once := RetagProgram(prog)
	twice := RetagProgram(once)

	var a, b []uint32
	collectTags(once.Main, &a)
	collectTags(twice.Main, &b)
	if len(a) != len(b) {
		t.Fatalf("node counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("tag %d differs after re-tagging: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestRetagLiftedSharesOneCounterAcrossFunctions(t *testing.T) {
	lp := &LiftedProgram{
		Funs: []FunDecl{
			{Name: "f", Params: []string{"#env_0", "x"}, Body: &Var{Name: "x"}},
			{Name: "g", Params: []string{"#env_1", "y"}, Body: &Var{Name: "y"}},
		},
		Main: &Num{Val: 0},
	}
	out := RetagLifted(lp)
	tags := map[uint32]bool{}
	for _, fn := range out.Funs {
		tag := fn.Body.GetAnn().Tag
		if tags[tag] {
			t.Fatalf("tag %d reused across lifted functions", tag)
		}
		tags[tag] = true
	}
	if tags[out.Main.GetAnn().Tag] {
		t.Fatalf("main's tag collides with a function body's")
	}
}
