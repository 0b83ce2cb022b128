// Package uniquify implements α-renaming: every bound identifier is
// replaced by a name derived from its binding site's annotation tag,
// so that after this pass every name in the whole program denotes
// exactly one binding. Later passes' own generated names use
// disjoint prefixes and so can never collide with a renamed user
// identifier.
package uniquify

import (
	"fmt"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
)

// table maps a surface name in scope to the unique name it was
// renamed to.
type table map[string]string

func clone(t table) table {
	out := make(table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Uniquify renames every binding in prog. The output tree's Ann.Tag
// values are preserved; only names change. (Each later stage's
// Processor retags the tree again before it runs.)
func Uniquify(prog *ast.Program) *ast.Program {
	return &ast.Program{Main: uniquifyExpr(prog.Main, table{})}
}

func uniquifyExpr(e ast.Expr, tt table) ast.Expr {
	switch n := e.(type) {
	case *ast.Num:
		return &ast.Num{Val: n.Val, A: n.A}

	case *ast.Bool:
		return &ast.Bool{Val: n.Val, A: n.A}

	case *ast.Var:
		renamed, ok := tt[n.Name]
		if !ok {
			panic("uniquify: unbound variable " + n.Name + " reached an accepted program")
		}
		return &ast.Var{Name: renamed, A: n.A}

	case *ast.Prim1:
		return &ast.Prim1{Op: n.Op, E: uniquifyExpr(n.E, clone(tt)), A: n.A}

	case *ast.Prim2:
		return &ast.Prim2{Op: n.Op, E1: uniquifyExpr(n.E1, clone(tt)), E2: uniquifyExpr(n.E2, clone(tt)), A: n.A}

	case *ast.Array:
		vals := make([]ast.Expr, len(n.Vals))
		for i, v := range n.Vals {
			vals[i] = uniquifyExpr(v, clone(tt))
		}
		return &ast.Array{Vals: vals, A: n.A}

	case *ast.ArraySet:
		return &ast.ArraySet{
			Array:    uniquifyExpr(n.Array, clone(tt)),
			Index:    uniquifyExpr(n.Index, clone(tt)),
			NewValue: uniquifyExpr(n.NewValue, clone(tt)),
			A:        n.A,
		}

	case *ast.Semicolon:
		return &ast.Semicolon{E1: uniquifyExpr(n.E1, clone(tt)), E2: uniquifyExpr(n.E2, clone(tt)), A: n.A}

	case *ast.Let:
		newTT := clone(tt)
		newBindings := make([]ast.Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			// The defining expression must not see this binding's own
			// fresh name yet — only prior bindings in the same Let.
			newExpr := uniquifyExpr(b.Expr, clone(newTT))
			fresh := fmt.Sprintf("__snake_var_%d_%s", n.A.Tag, b.Name)
			newBindings[i] = ast.Binding{Name: fresh, Expr: newExpr}
			newTT[b.Name] = fresh
		}
		return &ast.Let{Bindings: newBindings, Body: uniquifyExpr(n.Body, newTT), A: n.A}

	case *ast.If:
		return &ast.If{
			Cond: uniquifyExpr(n.Cond, clone(tt)),
			Thn:  uniquifyExpr(n.Thn, clone(tt)),
			Els:  uniquifyExpr(n.Els, clone(tt)),
			A:    n.A,
		}

	case *ast.FunDefs:
		withFuns := clone(tt)
		for _, d := range n.Decls {
			withFuns[d.Name] = fmt.Sprintf("__snake_function_%d_%s", d.A.Tag, d.Name)
		}
		newDecls := make([]ast.FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			inner := clone(withFuns)
			newParams := make([]string, len(d.Params))
			for j, p := range d.Params {
				fresh := fmt.Sprintf("__snake_param_%d_%s", d.A.Tag, p)
				newParams[j] = fresh
				inner[p] = fresh
			}
			newDecls[i] = ast.FunDecl{
				Name:   withFuns[d.Name],
				Params: newParams,
				Body:   uniquifyExpr(d.Body, inner),
				A:      d.A,
			}
		}
		return &ast.FunDefs{Decls: newDecls, Body: uniquifyExpr(n.Body, withFuns), A: n.A}

	case *ast.Call:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = uniquifyExpr(a, clone(tt))
		}
		return &ast.Call{Fun: uniquifyExpr(n.Fun, clone(tt)), Args: args, A: n.A}

	case *ast.Lambda:
		inner := clone(tt)
		newParams := make([]string, len(n.Params))
		for i, p := range n.Params {
			fresh := fmt.Sprintf("__snake_param_%d_%s", n.A.Tag, p)
			newParams[i] = fresh
			inner[p] = fresh
		}
		return &ast.Lambda{Params: newParams, Body: uniquifyExpr(n.Body, inner), A: n.A}

	case *ast.TypeDefs:
		newTT := clone(tt)
		newDecls := make([]ast.TypeDecl, len(n.Decls))
		for i, d := range n.Decls {
			fresh := fmt.Sprintf("__custom_type_%d_%s", n.A.Tag, d.Name)
			newDecls[i] = ast.TypeDecl{Name: fresh, Args: d.Args}
			newTT[d.Name] = fresh
		}
		return &ast.TypeDefs{Decls: newDecls, Body: uniquifyExpr(n.Body, newTT), A: n.A}

	case *ast.Match:
		newArms := make([]ast.MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			newType := arm.Type
			if newType.Kind == ast.TCustom {
				renamed, ok := tt[newType.Custom]
				if !ok {
					panic("uniquify: match arm names undefined type " + newType.Custom)
				}
				newType.Custom = renamed
			}
			// Each arm's binders are visible only in that arm's own
			// body, so every arm starts from the outer table fresh
			// rather than accumulating a prior arm's binders.
			armTT := clone(tt)
			newBinders := make([]string, len(arm.Binders))
			for j, b := range arm.Binders {
				fresh := fmt.Sprintf("snake_type_param_%d_%s", n.A.Tag, b)
				newBinders[j] = fresh
				armTT[b] = fresh
			}
			newArms[i] = ast.MatchArm{Type: newType, Binders: newBinders, Body: uniquifyExpr(arm.Body, armTT)}
		}
		return &ast.Match{
			Expr:    uniquifyExpr(n.Expr, clone(tt)),
			Default: uniquifyExpr(n.Default, clone(tt)),
			Arms:    newArms,
			A:       n.A,
		}

	case *ast.MakeClosure, *ast.MakeTypeInstance, *ast.MatchType, *ast.GetTypeFields:
		panic("uniquify: encountered a post-resolver-only node before resolution")

	default:
		panic("uniquify: unhandled Expr variant")
	}
}
