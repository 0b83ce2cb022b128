package lift

import (
	"testing"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
)

func TestLiftPlainLambdaHasEmptyEnv(t *testing.T) {
	// lambda x: x+1 end  -->  one top-level function, closure env array
	// of length 0 (no free variables).
	prog := &ast.Program{
		Main: &ast.Lambda{
			Params: []string{"x"},
			Body:   &ast.Prim2{Op: ast.Add, E1: &ast.Var{Name: "x"}, E2: &ast.Num{Val: 1}},
			A:      ast.Ann{Tag: 3},
		},
	}
	out := Lift(prog)
	if len(out.Funs) != 1 {
		t.Fatalf("expected 1 lifted function, got %d", len(out.Funs))
	}
	fn := out.Funs[0]
	if len(fn.Params) != 2 || fn.Params[0] != "#env_3" || fn.Params[1] != "x" {
		t.Fatalf("unexpected lifted params: %v", fn.Params)
	}

	let, ok := out.Main.(*ast.Let)
	if !ok {
		t.Fatalf("expected main to be a Let binding the env array, got %T", out.Main)
	}
	arr, ok := let.Bindings[0].Expr.(*ast.Array)
	if !ok || len(arr.Vals) != 0 {
		t.Fatalf("expected an empty captured-env array, got %#v", let.Bindings[0].Expr)
	}
	mc, ok := let.Body.(*ast.MakeClosure)
	if !ok || mc.Arity != 1 {
		t.Fatalf("expected MakeClosure{arity:1}, got %#v", let.Body)
	}
}

func TestLiftCapturesOuterBindingInOrder(t *testing.T) {
	// let a = 1 in let b = 2 in lambda x: a + b + x end
	// the lambda's environment must be [a, b] in that order.
	lambda := &ast.Lambda{
		Params: []string{"x"},
		Body: &ast.Prim2{Op: ast.Add,
			E1: &ast.Prim2{Op: ast.Add, E1: &ast.Var{Name: "a"}, E2: &ast.Var{Name: "b"}},
			E2: &ast.Var{Name: "x"}},
		A: ast.Ann{Tag: 5},
	}
	prog := &ast.Program{
		Main: &ast.Let{
			Bindings: []ast.Binding{{Name: "a", Expr: &ast.Num{Val: 1}}},
			Body: &ast.Let{
				Bindings: []ast.Binding{{Name: "b", Expr: &ast.Num{Val: 2}}},
				Body:     lambda,
				A:        ast.Ann{Tag: 2},
			},
			A: ast.Ann{Tag: 1},
		},
	}
	out := Lift(prog)
	if len(out.Funs) != 1 {
		t.Fatalf("expected 1 lifted function, got %d", len(out.Funs))
	}
	fn := out.Funs[0]
	// params: #env_5, x; body opens a = #env_5[0], b = #env_5[1].
	opened := fn.Body.(*ast.Let)
	if opened.Bindings[0].Name != "a" || opened.Bindings[1].Name != "b" {
		t.Fatalf("expected captures opened in order [a, b], got %v", opened.Bindings)
	}
	get0 := opened.Bindings[0].Expr.(*ast.Prim2)
	if get0.Op != ast.ArrayGet || get0.E2.(*ast.Num).Val != 0 {
		t.Fatalf("expected a bound to env[0], got %#v", get0)
	}
	get1 := opened.Bindings[1].Expr.(*ast.Prim2)
	if get1.Op != ast.ArrayGet || get1.E2.(*ast.Num).Val != 1 {
		t.Fatalf("expected b bound to env[1], got %#v", get1)
	}
}

func TestLiftLambdaInLaterBindingCapturesEarlierSibling(t *testing.T) {
	// let a = 1, f = lambda x: x + a end in f(2)
	// a is bound by the same Let, before f: the lambda must capture it.
	prog := &ast.Program{
		Main: &ast.Let{
			Bindings: []ast.Binding{
				{Name: "a", Expr: &ast.Num{Val: 1}},
				{Name: "f", Expr: &ast.Lambda{
					Params: []string{"x"},
					Body:   &ast.Prim2{Op: ast.Add, E1: &ast.Var{Name: "x"}, E2: &ast.Var{Name: "a"}},
					A:      ast.Ann{Tag: 7},
				}},
			},
			Body: &ast.Call{Fun: &ast.Var{Name: "f"}, Args: []ast.Expr{&ast.Num{Val: 2}}},
			A:    ast.Ann{Tag: 1},
		},
	}
	out := Lift(prog)
	if len(out.Funs) != 1 {
		t.Fatalf("expected 1 lifted function, got %d", len(out.Funs))
	}
	opened, ok := out.Funs[0].Body.(*ast.Let)
	if !ok {
		t.Fatalf("expected the lifted body to open its captured environment, got %T", out.Funs[0].Body)
	}
	if len(opened.Bindings) != 1 || opened.Bindings[0].Name != "a" {
		t.Fatalf("expected the lambda to capture [a], got %#v", opened.Bindings)
	}
}

func TestLiftMutualRecursionUsesLandinsKnot(t *testing.T) {
	// def isEven(n) = if n == 0: true else: isOdd(n-1),
	//     isOdd(n) = if n == 0: false else: isEven(n-1)
	// in isEven(4)
	fundefs := &ast.FunDefs{
		Decls: []ast.FunDecl{
			{Name: "isEven", Params: []string{"n"}, Body: &ast.Call{Fun: &ast.Var{Name: "isOdd"}, Args: []ast.Expr{&ast.Var{Name: "n"}}}, A: ast.Ann{Tag: 10}},
			{Name: "isOdd", Params: []string{"n"}, Body: &ast.Call{Fun: &ast.Var{Name: "isEven"}, Args: []ast.Expr{&ast.Var{Name: "n"}}}, A: ast.Ann{Tag: 11}},
		},
		Body: &ast.Call{Fun: &ast.Var{Name: "isEven"}, Args: []ast.Expr{&ast.Num{Val: 4}}},
		A:    ast.Ann{Tag: 1},
	}
	prog := &ast.Program{Main: fundefs}
	out := Lift(prog)

	if len(out.Funs) != 2 {
		t.Fatalf("expected 2 lifted functions, got %d", len(out.Funs))
	}

	let, ok := out.Main.(*ast.Let)
	if !ok {
		t.Fatalf("expected main to open with a Let, got %T", out.Main)
	}
	// env_1 = [<2 placeholders for isEven/isOdd, no outer captures>]
	envArr, ok := let.Bindings[0].Expr.(*ast.Array)
	if !ok || len(envArr.Vals) != 2 {
		t.Fatalf("expected a 2-slot placeholder env array, got %#v", let.Bindings[0].Expr)
	}
	if len(let.Bindings) != 3 {
		t.Fatalf("expected env + 2 MakeClosure bindings, got %d", len(let.Bindings))
	}
	if _, ok := let.Bindings[1].Expr.(*ast.MakeClosure); !ok {
		t.Fatalf("expected isEven bound to a MakeClosure, got %#v", let.Bindings[1].Expr)
	}

	// The body must patch the placeholders back in before running.
	body := let.Body
	patchCount := 0
	for {
		semi, ok := body.(*ast.Semicolon)
		if !ok {
			break
		}
		set, ok := semi.E1.(*ast.ArraySet)
		if !ok {
			t.Fatalf("expected a Landin's-knot ArraySet, got %#v", semi.E1)
		}
		if _, ok := set.NewValue.(*ast.Var); !ok {
			t.Fatalf("expected the patched value to be a closure Var, got %#v", set.NewValue)
		}
		patchCount++
		body = semi.E2
	}
	if patchCount != 2 {
		t.Fatalf("expected 2 back-patches (one per mutually recursive function), got %d", patchCount)
	}
}
