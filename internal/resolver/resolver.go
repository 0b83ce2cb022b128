// Package resolver implements the type resolver: it assigns an
// injective typetag to every user-declared variant type and desugars
// both constructor application and match into the primitive
// post-resolver forms (MakeTypeInstance, MatchType, GetTypeFields).
// A zero-arity constructor becomes a Let-bound singleton value; a
// k-arity constructor becomes a function; a match becomes an If
// chain over MatchType/type-predicate tests. The single binder of a
// primitive-type arm is substituted for the matchee directly
// (replaceVarName) rather than Let-bound — equivalent semantics,
// one less binding.
package resolver

import (
	"fmt"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
)

// Resolve desugars prog and returns the resolved tree alongside the
// type name -> typetag table assigned along the way (in first-seen,
// depth-first order across nested TypeDefs).
func Resolve(prog *ast.Program) (*ast.Program, map[string]uint64) {
	typeTags := map[string]uint64{}
	main := resolveExpr(prog.Main, typeTags)
	return &ast.Program{Main: main}, typeTags
}

func resolveExpr(e ast.Expr, typeTags map[string]uint64) ast.Expr {
	switch n := e.(type) {
	case *ast.Num:
		return &ast.Num{Val: n.Val, A: n.A}

	case *ast.Bool:
		return &ast.Bool{Val: n.Val, A: n.A}

	case *ast.Var:
		return &ast.Var{Name: n.Name, A: n.A}

	case *ast.Prim1:
		return &ast.Prim1{Op: n.Op, E: resolveExpr(n.E, typeTags), A: n.A}

	case *ast.Prim2:
		return &ast.Prim2{Op: n.Op, E1: resolveExpr(n.E1, typeTags), E2: resolveExpr(n.E2, typeTags), A: n.A}

	case *ast.Array:
		vals := make([]ast.Expr, len(n.Vals))
		for i, v := range n.Vals {
			vals[i] = resolveExpr(v, typeTags)
		}
		return &ast.Array{Vals: vals, A: n.A}

	case *ast.ArraySet:
		return &ast.ArraySet{
			Array:    resolveExpr(n.Array, typeTags),
			Index:    resolveExpr(n.Index, typeTags),
			NewValue: resolveExpr(n.NewValue, typeTags),
			A:        n.A,
		}

	case *ast.Semicolon:
		return &ast.Semicolon{E1: resolveExpr(n.E1, typeTags), E2: resolveExpr(n.E2, typeTags), A: n.A}

	case *ast.Let:
		bindings := make([]ast.Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = ast.Binding{Name: b.Name, Expr: resolveExpr(b.Expr, typeTags)}
		}
		return &ast.Let{Bindings: bindings, Body: resolveExpr(n.Body, typeTags), A: n.A}

	case *ast.If:
		return &ast.If{Cond: resolveExpr(n.Cond, typeTags), Thn: resolveExpr(n.Thn, typeTags), Els: resolveExpr(n.Els, typeTags), A: n.A}

	case *ast.FunDefs:
		decls := make([]ast.FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = ast.FunDecl{Name: d.Name, Params: d.Params, Body: resolveExpr(d.Body, typeTags), A: d.A}
		}
		return &ast.FunDefs{Decls: decls, Body: resolveExpr(n.Body, typeTags), A: n.A}

	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = resolveExpr(a, typeTags)
		}
		return &ast.Call{Fun: resolveExpr(n.Fun, typeTags), Args: args, A: n.A}

	case *ast.Lambda:
		return &ast.Lambda{Params: n.Params, Body: resolveExpr(n.Body, typeTags), A: n.A}

	case *ast.TypeDefs:
		for _, d := range n.Decls {
			typeTags[d.Name] = uint64(len(typeTags))
		}
		body := resolveExpr(n.Body, typeTags)
		// Desugar each declaration, innermost (last-declared) first, so
		// that outer wrappers scope over inner ones.
		for i := len(n.Decls) - 1; i >= 0; i-- {
			d := n.Decls[i]
			tag := typeTags[d.Name]
			if len(d.Args) == 0 {
				body = &ast.Let{
					Bindings: []ast.Binding{{
						Name: d.Name,
						Expr: &ast.MakeTypeInstance{Typetag: tag, Fields: &ast.Array{Vals: nil, A: n.A}, A: n.A},
					}},
					Body: body,
					A:    n.A,
				}
			} else {
				fields := make([]ast.Expr, len(d.Args))
				for j, arg := range d.Args {
					fields[j] = &ast.Var{Name: arg, A: n.A}
				}
				body = &ast.FunDefs{
					Decls: []ast.FunDecl{{
						Name:   d.Name,
						Params: d.Args,
						Body:   &ast.MakeTypeInstance{Typetag: tag, Fields: &ast.Array{Vals: fields, A: n.A}, A: n.A},
						A:      n.A,
					}},
					Body: body,
					A:    n.A,
				}
			}
		}
		return body

	case *ast.Match:
		matcheeVar := fmt.Sprintf("__matchee_%d", n.Expr.GetAnn().Tag)
		fieldsVar := fmt.Sprintf("__fields_%d", n.Expr.GetAnn().Tag)

		ret := resolveExpr(n.Default, typeTags)
		for i := len(n.Arms) - 1; i >= 0; i-- {
			arm := n.Arms[i]
			if arm.Type.Kind == ast.TCustom {
				tag, ok := typeTags[arm.Type.Custom]
				if !ok {
					panic("resolver: match arm names undeclared type " + arm.Type.Custom)
				}
				bindings := make([]ast.Binding, len(arm.Binders))
				for j, b := range arm.Binders {
					bindings[j] = ast.Binding{
						Name: b,
						Expr: &ast.Prim2{Op: ast.ArrayGet, E1: &ast.Var{Name: fieldsVar, A: n.A}, E2: &ast.Num{Val: int64(j), A: n.A}, A: n.A},
					}
				}
				ret = &ast.If{
					Cond: &ast.MatchType{Expr: &ast.Var{Name: matcheeVar, A: n.A}, Typetag: tag, A: n.A},
					Thn:  &ast.Let{Bindings: bindings, Body: resolveExpr(arm.Body, typeTags), A: n.A},
					Els:  ret,
					A:    n.A,
				}
			} else {
				op := primTestOp(arm.Type.Kind)
				body := resolveExpr(arm.Body, typeTags)
				substituted := replaceVarName(body, arm.Binders[0], matcheeVar)
				ret = &ast.If{
					Cond: &ast.Prim1{Op: op, E: &ast.Var{Name: matcheeVar, A: n.A}, A: n.A},
					Thn:  substituted,
					Els:  ret,
					A:    n.A,
				}
			}
		}
		return &ast.Let{
			Bindings: []ast.Binding{
				{Name: matcheeVar, Expr: resolveExpr(n.Expr, typeTags)},
				{Name: fieldsVar, Expr: &ast.GetTypeFields{Expr: &ast.Var{Name: matcheeVar, A: n.A}, A: n.A}},
			},
			Body: ret,
			A:    n.A,
		}

	case *ast.MakeClosure, *ast.MakeTypeInstance, *ast.MatchType, *ast.GetTypeFields:
		panic("resolver: encountered a post-resolver-only node before resolution")

	default:
		panic("resolver: unhandled Expr variant")
	}
}

func primTestOp(kind ast.SnakeTypeKind) ast.Prim1Op {
	switch kind {
	case ast.TArray:
		return ast.IsArray
	case ast.TFunc:
		return ast.IsFun
	case ast.TBool:
		return ast.IsBool
	case ast.TNum:
		return ast.IsNum
	default:
		panic("resolver: primTestOp called on a custom type")
	}
}

// replaceVarName returns expr with every free occurrence of
// varToReplace renamed to newVar. Used only for the single binder of
// a primitive-type match arm, substituting the matchee directly in
// place of a Let.
func replaceVarName(expr ast.Expr, varToReplace, newVar string) ast.Expr {
	switch n := expr.(type) {
	case *ast.Num:
		return &ast.Num{Val: n.Val, A: n.A}
	case *ast.Bool:
		return &ast.Bool{Val: n.Val, A: n.A}
	case *ast.Var:
		if n.Name == varToReplace {
			return &ast.Var{Name: newVar, A: n.A}
		}
		return &ast.Var{Name: n.Name, A: n.A}
	case *ast.Prim1:
		return &ast.Prim1{Op: n.Op, E: replaceVarName(n.E, varToReplace, newVar), A: n.A}
	case *ast.Prim2:
		return &ast.Prim2{Op: n.Op, E1: replaceVarName(n.E1, varToReplace, newVar), E2: replaceVarName(n.E2, varToReplace, newVar), A: n.A}
	case *ast.Array:
		vals := make([]ast.Expr, len(n.Vals))
		for i, v := range n.Vals {
			vals[i] = replaceVarName(v, varToReplace, newVar)
		}
		return &ast.Array{Vals: vals, A: n.A}
	case *ast.ArraySet:
		return &ast.ArraySet{
			Array:    replaceVarName(n.Array, varToReplace, newVar),
			Index:    replaceVarName(n.Index, varToReplace, newVar),
			NewValue: replaceVarName(n.NewValue, varToReplace, newVar),
			A:        n.A,
		}
	case *ast.Semicolon:
		return &ast.Semicolon{E1: replaceVarName(n.E1, varToReplace, newVar), E2: replaceVarName(n.E2, varToReplace, newVar), A: n.A}
	case *ast.Let:
		bindings := make([]ast.Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = ast.Binding{Name: b.Name, Expr: replaceVarName(b.Expr, varToReplace, newVar)}
		}
		return &ast.Let{Bindings: bindings, Body: replaceVarName(n.Body, varToReplace, newVar), A: n.A}
	case *ast.If:
		return &ast.If{Cond: replaceVarName(n.Cond, varToReplace, newVar), Thn: replaceVarName(n.Thn, varToReplace, newVar), Els: replaceVarName(n.Els, varToReplace, newVar), A: n.A}
	case *ast.FunDefs:
		decls := make([]ast.FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			decls[i] = ast.FunDecl{Name: d.Name, Params: d.Params, Body: replaceVarName(d.Body, varToReplace, newVar), A: d.A}
		}
		return &ast.FunDefs{Decls: decls, Body: replaceVarName(n.Body, varToReplace, newVar), A: n.A}
	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = replaceVarName(a, varToReplace, newVar)
		}
		return &ast.Call{Fun: replaceVarName(n.Fun, varToReplace, newVar), Args: args, A: n.A}
	case *ast.Lambda:
		return &ast.Lambda{Params: n.Params, Body: replaceVarName(n.Body, varToReplace, newVar), A: n.A}
	case *ast.TypeDefs:
		return &ast.TypeDefs{Decls: n.Decls, Body: replaceVarName(n.Body, varToReplace, newVar), A: n.A}
	case *ast.Match:
		arms := make([]ast.MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			arms[i] = ast.MatchArm{Type: arm.Type, Binders: arm.Binders, Body: replaceVarName(arm.Body, varToReplace, newVar)}
		}
		return &ast.Match{Expr: replaceVarName(n.Expr, varToReplace, newVar), Default: replaceVarName(n.Default, varToReplace, newVar), Arms: arms, A: n.A}
	case *ast.MakeTypeInstance:
		return &ast.MakeTypeInstance{Typetag: n.Typetag, Fields: replaceVarName(n.Fields, varToReplace, newVar), A: n.A}
	case *ast.MatchType:
		return &ast.MatchType{Expr: replaceVarName(n.Expr, varToReplace, newVar), Typetag: n.Typetag, A: n.A}
	case *ast.GetTypeFields:
		return &ast.GetTypeFields{Expr: replaceVarName(n.Expr, varToReplace, newVar), A: n.A}
	case *ast.MakeClosure:
		panic("resolver: replaceVarName encountered MakeClosure before lambda lifting")
	default:
		panic("resolver: replaceVarName: unhandled Expr variant")
	}
}
