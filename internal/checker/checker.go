// Package checker implements the semantic checker: the first pass,
// which rejects ill-formed surface programs. It is fail-fast — the
// first ill-formed construct found aborts the whole check, so later
// passes only ever see an accepted tree.
package checker

import (
	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/diagnostics"
	"github.com/mohnishaggarwal/snake-compiler/internal/runtime"
)

// nameKind distinguishes an ordinary value binding from a
// user-declared type name, which additionally carries its arity so
// constructor call sites can be arity-checked.
type nameKind struct {
	isType bool
	arity  int
}

var valueKind = nameKind{}

func typeKind(arity int) nameKind { return nameKind{isType: true, arity: arity} }

// ctorArg classifies how an identifier was used at a given site,
// before the name itself is looked up: a call with zero arguments
// (f()), a call with one or more arguments, or a bare (non-call)
// reference.
type ctorArg int

const (
	noField ctorArg = iota
	invalidCall
	fields
)

type argShape struct {
	kind  ctorArg
	count int
}

var bareUse = argShape{kind: noField}

func cloneEnv(env map[string]nameKind) map[string]nameKind {
	out := make(map[string]nameKind, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Check walks prog and returns the first ill-formed construct found,
// or nil if the program is accepted.
func Check(prog *ast.Program) *diagnostics.Error {
	return checkExpr(prog.Main, map[string]nameKind{}, bareUse)
}

func checkExpr(e ast.Expr, env map[string]nameKind, shape argShape) *diagnostics.Error {
	switch n := e.(type) {
	case *ast.Num:
		if n.Val > runtime.MaxSnakeInt || n.Val < runtime.MinSnakeInt {
			return &diagnostics.Error{Code: diagnostics.Overflow, Span: n.A.Span, Num: n.Val,
				Message: "numeric literal does not fit in the 63-bit Snake integer range"}
		}
		return nil

	case *ast.Bool:
		return nil

	case *ast.Var:
		kind, ok := env[n.Name]
		if !ok {
			return diagnostics.New(diagnostics.UnboundVariable, n.A.Span, n.Name,
				"unbound variable "+n.Name)
		}
		if !kind.isType {
			return nil
		}
		switch shape.kind {
		case invalidCall:
			return diagnostics.New(diagnostics.WrongTypeCall, n.A.Span, n.Name,
				"type "+n.Name+" cannot be called with no arguments")
		case fields:
			if shape.count != kind.arity {
				return diagnostics.New(diagnostics.WrongTypeCall, n.A.Span, n.Name,
					"type "+n.Name+" called with the wrong number of arguments")
			}
			return nil
		default: // noField: bare use, legal only for a zero-arity type
			if kind.arity != 0 {
				return diagnostics.New(diagnostics.WrongTypeCall, n.A.Span, n.Name,
					"type "+n.Name+" used as a value but takes arguments")
			}
			return nil
		}

	case *ast.Prim1:
		return checkExpr(n.E, env, bareUse)

	case *ast.Prim2:
		if err := checkExpr(n.E1, cloneEnv(env), bareUse); err != nil {
			return err
		}
		return checkExpr(n.E2, cloneEnv(env), bareUse)

	case *ast.Let:
		local := map[string]nameKind{}
		for _, b := range n.Bindings {
			if ast.IsPrimTypeName(b.Name) {
				return diagnostics.New(diagnostics.ShadowPrimType, n.A.Span, b.Name,
					"binding name "+b.Name+" shadows a reserved primitive type")
			}
			if _, dup := local[b.Name]; dup {
				return diagnostics.New(diagnostics.DuplicateBinding, n.A.Span, b.Name,
					"duplicate binding of "+b.Name+" in the same let")
			}
			if err := checkExpr(b.Expr, cloneEnv(env), bareUse); err != nil {
				return err
			}
			local[b.Name] = valueKind
			env[b.Name] = valueKind
		}
		return checkExpr(n.Body, env, bareUse)

	case *ast.If:
		if err := checkExpr(n.Cond, cloneEnv(env), bareUse); err != nil {
			return err
		}
		if err := checkExpr(n.Thn, cloneEnv(env), bareUse); err != nil {
			return err
		}
		return checkExpr(n.Els, cloneEnv(env), bareUse)

	case *ast.Array:
		for _, v := range n.Vals {
			if err := checkExpr(v, cloneEnv(env), bareUse); err != nil {
				return err
			}
		}
		return nil

	case *ast.ArraySet:
		if err := checkExpr(n.Array, cloneEnv(env), bareUse); err != nil {
			return err
		}
		if err := checkExpr(n.Index, cloneEnv(env), bareUse); err != nil {
			return err
		}
		return checkExpr(n.NewValue, cloneEnv(env), bareUse)

	case *ast.Semicolon:
		if err := checkExpr(n.E1, cloneEnv(env), bareUse); err != nil {
			return err
		}
		return checkExpr(n.E2, cloneEnv(env), bareUse)

	case *ast.FunDefs:
		withFuns := cloneEnv(env)
		seen := map[string]bool{}
		for _, d := range n.Decls {
			if seen[d.Name] {
				return diagnostics.New(diagnostics.DuplicateFunName, n.A.Span, d.Name,
					"duplicate function name "+d.Name)
			}
			if ast.IsPrimTypeName(d.Name) {
				return diagnostics.New(diagnostics.ShadowPrimType, n.A.Span, d.Name,
					"function name "+d.Name+" shadows a reserved primitive type")
			}
			if err := checkDupParams(d.Params, n.A.Span); err != nil {
				return err
			}
			seen[d.Name] = true
			withFuns[d.Name] = valueKind
		}
		for _, d := range n.Decls {
			inner := cloneEnv(withFuns)
			for _, p := range d.Params {
				inner[p] = valueKind
			}
			if err := checkExpr(d.Body, inner, bareUse); err != nil {
				return err
			}
		}
		return checkExpr(n.Body, withFuns, bareUse)

	case *ast.Call:
		for _, a := range n.Args {
			if err := checkExpr(a, cloneEnv(env), bareUse); err != nil {
				return err
			}
		}
		callShape := argShape{kind: fields, count: len(n.Args)}
		if len(n.Args) == 0 {
			callShape = argShape{kind: invalidCall}
		}
		return checkExpr(n.Fun, cloneEnv(env), callShape)

	case *ast.Lambda:
		if err := checkDupParams(n.Params, n.A.Span); err != nil {
			return err
		}
		inner := cloneEnv(env)
		for _, p := range n.Params {
			inner[p] = valueKind
		}
		return checkExpr(n.Body, inner, bareUse)

	case *ast.TypeDefs:
		seen := map[string]bool{}
		for _, d := range n.Decls {
			if seen[d.Name] {
				return diagnostics.New(diagnostics.DuplicateTypeDefs, n.A.Span, d.Name,
					"duplicate type declaration "+d.Name)
			}
			if ast.IsPrimTypeName(d.Name) {
				return diagnostics.New(diagnostics.ShadowPrimType, n.A.Span, d.Name,
					"type name "+d.Name+" shadows a reserved primitive type")
			}
			seen[d.Name] = true
			env[d.Name] = typeKind(len(d.Args))
		}
		return checkExpr(n.Body, env, bareUse)

	case *ast.Match:
		if err := checkExpr(n.Expr, cloneEnv(env), bareUse); err != nil {
			return err
		}
		if err := checkExpr(n.Default, cloneEnv(env), bareUse); err != nil {
			return err
		}
		seenTypes := map[string]bool{}
		for _, arm := range n.Arms {
			name := arm.Type.Name()
			if kind, ok := env[name]; ok {
				if !kind.isType {
					return diagnostics.New(diagnostics.UndefinedType, n.A.Span, name,
						"match arm names "+name+" which is not a type")
				}
				if seenTypes[name] {
					return diagnostics.New(diagnostics.DuplicateMatchArms, n.A.Span, name,
						"duplicate match arm for type "+name)
				}
				if kind.arity != len(arm.Binders) {
					return &diagnostics.Error{Code: diagnostics.WrongTypeArity, Span: n.A.Span,
						Name: name, Expected: kind.arity, Given: len(arm.Binders),
						Message: "match arm for " + name + " has the wrong arity"}
				}
				seenTypes[name] = true
			} else if !ast.IsPrimTypeName(name) {
				return diagnostics.New(diagnostics.UndefinedType, n.A.Span, name,
					"match arm names undefined type "+name)
			}

			seenArgs := map[string]bool{}
			for _, b := range arm.Binders {
				if seenArgs[b] {
					return diagnostics.New(diagnostics.DuplicateMatchArmArguments, n.A.Span, b,
						"duplicate match arm binder "+b)
				}
				seenArgs[b] = true
			}

			local := cloneEnv(env)
			for _, b := range arm.Binders {
				local[b] = valueKind
			}
			if err := checkExpr(arm.Body, local, bareUse); err != nil {
				return err
			}
		}
		return nil

	case *ast.MakeClosure, *ast.MakeTypeInstance, *ast.MatchType, *ast.GetTypeFields:
		panic("checker: encountered a post-resolver-only node in surface input")

	default:
		panic("checker: unhandled Expr variant")
	}
}

func checkDupParams(params []string, span diagnostics.Span) *diagnostics.Error {
	seen := map[string]bool{}
	for _, p := range params {
		if seen[p] {
			return diagnostics.New(diagnostics.DuplicateArgName, span, p,
				"duplicate parameter name "+p)
		}
		seen[p] = true
	}
	return nil
}
