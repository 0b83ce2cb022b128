// Package lift implements the lambda lifter: it removes every
// Lambda and FunDefs node by hoisting the function to a flat
// top-level list, threading an explicit captured-environment array,
// and tying mutually recursive definitions together with Landin's
// knot. Captures are the full accumulated lexical environment at the
// definition site, not a computed minimal free-variable set — the
// environment array's layout stays position-stable without a
// per-function free-variable analysis.
package lift

import (
	"fmt"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
)

// env is the ordered list of names visible at a lift site: captured
// variables first, then (inside a function body) its own parameters.
// Order matters — it is exactly the layout of the environment array.
type env []string

func (e env) extend(names ...string) env {
	out := make(env, 0, len(e)+len(names))
	out = append(out, e...)
	out = append(out, names...)
	return out
}

// Lift runs lambda lifting over prog (which must already be
// uniquified and resolved) and returns the flattened program. It
// expects every node's Ann.Tag to be unique in prog (lift.Processor
// retags the tree just before calling it), so lift mints
// environment-array and lambda label names directly off existing
// tags rather than a fresh counter.
func Lift(prog *ast.Program) *ast.LiftedProgram {
	var funcs []ast.FunDecl
	main := lift(&funcs, prog.Main, env{})
	return &ast.LiftedProgram{Funs: funcs, Main: main}
}

// liftFunction registers one function's top-level definition: its
// body opens the environment array into its captured names, then
// lifts the body itself (seeing captures + params in scope).
func liftFunction(funcs *[]ast.FunDecl, captured env, name string, params []string, body ast.Expr, tag uint32) {
	envParam := fmt.Sprintf("#env_%d", tag)
	bodyEnv := captured.extend(params...)
	liftedBody := lift(funcs, body, bodyEnv)

	bindings := make([]ast.Binding, len(captured))
	for i, c := range captured {
		bindings[i] = ast.Binding{
			Name: c,
			Expr: &ast.Prim2{Op: ast.ArrayGet, E1: &ast.Var{Name: envParam}, E2: &ast.Num{Val: int64(i)}},
		}
	}
	wrappedBody := ast.Expr(liftedBody)
	if len(bindings) > 0 {
		wrappedBody = &ast.Let{Bindings: bindings, Body: liftedBody}
	}

	*funcs = append(*funcs, ast.FunDecl{
		Name:   name,
		Params: append([]string{envParam}, params...),
		Body:   wrappedBody,
	})
}

func lift(funcs *[]ast.FunDecl, e ast.Expr, e2 env) ast.Expr {
	switch n := e.(type) {
	case *ast.Num:
		return &ast.Num{Val: n.Val, A: n.A}

	case *ast.Bool:
		return &ast.Bool{Val: n.Val, A: n.A}

	case *ast.Var:
		return &ast.Var{Name: n.Name, A: n.A}

	case *ast.Prim1:
		return &ast.Prim1{Op: n.Op, E: lift(funcs, n.E, e2), A: n.A}

	case *ast.Prim2:
		return &ast.Prim2{Op: n.Op, E1: lift(funcs, n.E1, e2), E2: lift(funcs, n.E2, e2), A: n.A}

	case *ast.Array:
		vals := make([]ast.Expr, len(n.Vals))
		for i, v := range n.Vals {
			vals[i] = lift(funcs, v, e2)
		}
		return &ast.Array{Vals: vals, A: n.A}

	case *ast.ArraySet:
		return &ast.ArraySet{Array: lift(funcs, n.Array, e2), Index: lift(funcs, n.Index, e2), NewValue: lift(funcs, n.NewValue, e2), A: n.A}

	case *ast.Semicolon:
		return &ast.Semicolon{E1: lift(funcs, n.E1, e2), E2: lift(funcs, n.E2, e2), A: n.A}

	case *ast.Let:
		// Bindings scope left to right: a lambda in a later binding's
		// defining expression can capture any earlier binding of the
		// same Let, so the environment grows per binding rather than
		// jumping straight to the body's full extension.
		cur := e2
		bindings := make([]ast.Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = ast.Binding{Name: b.Name, Expr: lift(funcs, b.Expr, cur)}
			cur = cur.extend(b.Name)
		}
		return &ast.Let{Bindings: bindings, Body: lift(funcs, n.Body, cur), A: n.A}

	case *ast.If:
		return &ast.If{Cond: lift(funcs, n.Cond, e2), Thn: lift(funcs, n.Thn, e2), Els: lift(funcs, n.Els, e2), A: n.A}

	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = lift(funcs, a, e2)
		}
		return &ast.Call{Fun: lift(funcs, n.Fun, e2), Args: args, A: n.A}

	case *ast.FunDefs:
		envWithFuns := e2.extend(declNames(n.Decls)...)
		for _, d := range n.Decls {
			liftFunction(funcs, envWithFuns, d.Name, d.Params, d.Body, d.A.Tag)
		}

		envTag := n.A.Tag
		envVar := fmt.Sprintf("#env_%d", envTag)
		envVals := make([]ast.Expr, 0, len(e2)+len(n.Decls))
		for _, c := range e2 {
			envVals = append(envVals, &ast.Var{Name: c})
		}
		for range n.Decls {
			envVals = append(envVals, &ast.Num{Val: 0}) // Landin's knot placeholder
		}

		bindings := make([]ast.Binding, 0, 1+len(n.Decls))
		bindings = append(bindings, ast.Binding{Name: envVar, Expr: &ast.Array{Vals: envVals}})
		for _, d := range n.Decls {
			bindings = append(bindings, ast.Binding{
				Name: d.Name,
				Expr: &ast.MakeClosure{Arity: uint32(len(d.Params)), Label: d.Name, Env: &ast.Var{Name: envVar}},
			})
		}

		body := lift(funcs, n.Body, envWithFuns)
		for i, d := range n.Decls {
			body = &ast.Semicolon{
				E1: &ast.ArraySet{
					Array:    &ast.Var{Name: envVar},
					Index:    &ast.Num{Val: int64(len(e2) + i)},
					NewValue: &ast.Var{Name: d.Name},
				},
				E2: body,
			}
		}
		return &ast.Let{Bindings: bindings, Body: body, A: n.A}

	case *ast.Lambda:
		lambdaName := fmt.Sprintf("__snake_lambda_%d", n.A.Tag)
		liftFunction(funcs, e2, lambdaName, n.Params, n.Body, n.A.Tag)

		envVar := fmt.Sprintf("#env_%d", n.A.Tag)
		envVals := make([]ast.Expr, len(e2))
		for i, c := range e2 {
			envVals[i] = &ast.Var{Name: c}
		}
		return &ast.Let{
			Bindings: []ast.Binding{{Name: envVar, Expr: &ast.Array{Vals: envVals}}},
			Body:     &ast.MakeClosure{Arity: uint32(len(n.Params)), Label: lambdaName, Env: &ast.Var{Name: envVar}},
			A:        n.A,
		}

	case *ast.MakeClosure:
		panic("lift: encountered MakeClosure before lambda lifting produced one")

	case *ast.TypeDefs:
		// Unreachable on a resolver-accepted program (TypeDefs is
		// eliminated by the resolver stage); kept so the switch stays
		// exhaustive rather than panicking on a shape the type system
		// can't rule out here.
		return &ast.TypeDefs{Decls: n.Decls, Body: lift(funcs, n.Body, e2), A: n.A}

	case *ast.Match:
		arms := make([]ast.MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			arms[i] = ast.MatchArm{Type: arm.Type, Binders: arm.Binders, Body: lift(funcs, arm.Body, e2)}
		}
		return &ast.Match{Expr: lift(funcs, n.Expr, e2), Default: lift(funcs, n.Default, e2), Arms: arms, A: n.A}

	case *ast.MakeTypeInstance:
		return &ast.MakeTypeInstance{Typetag: n.Typetag, Fields: lift(funcs, n.Fields, e2), A: n.A}

	case *ast.MatchType:
		return &ast.MatchType{Expr: lift(funcs, n.Expr, e2), Typetag: n.Typetag, A: n.A}

	case *ast.GetTypeFields:
		return &ast.GetTypeFields{Expr: lift(funcs, n.Expr, e2), A: n.A}

	default:
		panic("lift: unhandled Expr variant")
	}
}

func declNames(decls []ast.FunDecl) []string {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return names
}
