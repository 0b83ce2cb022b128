// Package seq implements the sequentializer: it converts a
// lambda-lifted program to administrative normal form by hoisting
// every non-immediate sub-expression into a fresh Let, naming the
// fresh temporary after the node's own annotation tag so two sibling
// sub-expressions can never mint the same name. Call sites
// sequentialize their arguments and callee straight into a
// CallClosure rather than routing through a sentinel-named rewrite.
package seq

import (
	"fmt"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
)

// Sequentialize runs over a lambda-lifted program (no Lambda,
// FunDefs, TypeDefs or Match nodes remain) and returns its ANF form.
func Sequentialize(lp *ast.LiftedProgram) *ast.SeqProgram {
	funs := make([]ast.SeqFunDecl, len(lp.Funs))
	for i, d := range lp.Funs {
		funs[i] = ast.SeqFunDecl{Name: d.Name, Parameters: d.Params, Body: seqHelp(d.Body)}
	}
	return &ast.SeqProgram{Funs: funs, Main: seqHelp(lp.Main)}
}

// bindTemp always wraps sub's sequentialized form in a Let bound to
// name, even when sub is already trivially an immediate: every
// operand gets its own named temporary, full stop.
func bindTemp(name string, sub ast.Expr, body ast.SeqExp) ast.SeqExp {
	return ast.SeqLet{Var: name, BoundExp: seqHelp(sub), Body: body}
}

func seqHelp(e ast.Expr) ast.SeqExp {
	switch n := e.(type) {
	case *ast.Num:
		return ast.SeqImm{Val: ast.ImmNum{Val: n.Val}}

	case *ast.Bool:
		return ast.SeqImm{Val: ast.ImmBool{Val: n.Val}}

	case *ast.Var:
		return ast.SeqImm{Val: ast.ImmVar{Name: n.Name}}

	case *ast.Prim1:
		name := fmt.Sprintf("#prim1_%d", n.A.Tag)
		return bindTemp(name, n.E, ast.SeqPrim1{Op: n.Op, Val: ast.ImmVar{Name: name}})

	case *ast.Prim2:
		name1 := fmt.Sprintf("#prim2_1_%d", n.A.Tag)
		name2 := fmt.Sprintf("#prim2_2_%d", n.A.Tag)
		inner := ast.SeqPrim2{Op: n.Op, Val1: ast.ImmVar{Name: name1}, Val2: ast.ImmVar{Name: name2}}
		return bindTemp(name1, n.E1, bindTemp(name2, n.E2, inner))

	case *ast.If:
		name := fmt.Sprintf("#if_%d", n.A.Tag)
		inner := ast.SeqIf{Cond: ast.ImmVar{Name: name}, Thn: seqHelp(n.Thn), Els: seqHelp(n.Els)}
		return bindTemp(name, n.Cond, inner)

	case *ast.Let:
		body := seqHelp(n.Body)
		for i := len(n.Bindings) - 1; i >= 0; i-- {
			b := n.Bindings[i]
			body = ast.SeqLet{Var: b.Name, BoundExp: seqHelp(b.Expr), Body: body}
		}
		return body

	case *ast.Array:
		names := make([]string, len(n.Vals))
		vals := make([]ast.ImmExp, len(n.Vals))
		for i, v := range n.Vals {
			names[i] = fmt.Sprintf("#arr_val_%d_%d", n.A.Tag, v.GetAnn().Tag)
			vals[i] = ast.ImmVar{Name: names[i]}
		}
		body := ast.SeqExp(ast.SeqArray{Vals: vals})
		for i := len(n.Vals) - 1; i >= 0; i-- {
			body = ast.SeqLet{Var: names[i], BoundExp: seqHelp(n.Vals[i]), Body: body}
		}
		return body

	case *ast.ArraySet:
		arrName := fmt.Sprintf("#arr_id_%d", n.Array.GetAnn().Tag)
		idxName := fmt.Sprintf("#arr_idx_%d", n.Index.GetAnn().Tag)
		newName := fmt.Sprintf("#arr_new_val_%d", n.NewValue.GetAnn().Tag)
		inner := ast.SeqArraySet{
			Array:    ast.ImmVar{Name: arrName},
			Index:    ast.ImmVar{Name: idxName},
			NewValue: ast.ImmVar{Name: newName},
		}
		return bindTemp(arrName, n.Array, bindTemp(idxName, n.Index, bindTemp(newName, n.NewValue, inner)))

	case *ast.Semicolon:
		name := fmt.Sprintf("#DONT_CARE_%d", n.A.Tag)
		return bindTemp(name, n.E1, seqHelp(n.E2))

	case *ast.MakeClosure:
		envVar, ok := n.Env.(*ast.Var)
		if !ok {
			panic("seq: MakeClosure.Env is not a Var — lambda lifting should have bound it to one")
		}
		return ast.SeqMakeClosure{Arity: n.Arity, Label: n.Label, Env: ast.ImmVar{Name: envVar.Name}}

	case *ast.Call:
		argNames := make([]string, len(n.Args))
		argVals := make([]ast.ImmExp, len(n.Args))
		for i := range n.Args {
			argNames[i] = fmt.Sprintf("#call_%d_%d", i, n.A.Tag)
			argVals[i] = ast.ImmVar{Name: argNames[i]}
		}
		funName := fmt.Sprintf("#call_func_%d", n.A.Tag)
		inner := ast.SeqExp(ast.SeqCallClosure{Fun: ast.ImmVar{Name: funName}, Args: argVals})
		inner = bindTemp(funName, n.Fun, inner)
		for i := len(n.Args) - 1; i >= 0; i-- {
			inner = ast.SeqLet{Var: argNames[i], BoundExp: seqHelp(n.Args[i]), Body: inner}
		}
		return inner

	case *ast.MakeTypeInstance:
		name := fmt.Sprintf("#fields_exp_%d", n.A.Tag)
		return bindTemp(name, n.Fields, ast.SeqMakeTypeInstance{Typetag: n.Typetag, Fields: ast.ImmVar{Name: name}})

	case *ast.MatchType:
		name := fmt.Sprintf("#match_exp_%d", n.A.Tag)
		return bindTemp(name, n.Expr, ast.SeqMatchType{Expr: ast.ImmVar{Name: name}, Typetag: n.Typetag})

	case *ast.GetTypeFields:
		name := fmt.Sprintf("#get_type_fields_%d", n.A.Tag)
		return bindTemp(name, n.Expr, ast.SeqGetTypeFields{Expr: ast.ImmVar{Name: name}})

	case *ast.FunDefs, *ast.Lambda, *ast.TypeDefs, *ast.Match:
		panic("seq: unreachable: lambda lifting / type resolution should have removed this node")

	default:
		panic("seq: unhandled Expr variant")
	}
}
