package ast

import (
	"encoding/json"
	"fmt"

	"github.com/mohnishaggarwal/snake-compiler/internal/diagnostics"
)

// The surface parser is an external collaborator: the compiler
// consumes an already-parsed tree and never sees Snake's concrete
// syntax. This file defines the one concrete surface in this repo —
// a JSON encoding of the surface tree, tagged on a "node"
// discriminator field — so cmd/snakec has something concrete to
// read. A real frontend would produce the same *ast.Program value
// directly from its own parser instead of round-tripping through
// JSON.
type jsonNode struct {
	Node string          `json:"node"`
	Span diagnostics.Span `json:"span"`

	Val     json.Number `json:"val,omitempty"`
	BoolVal bool        `json:"bool_val,omitempty"`
	Name    string      `json:"name,omitempty"`

	Op string     `json:"op,omitempty"`
	E  *jsonNode  `json:"e,omitempty"`
	E1 *jsonNode  `json:"e1,omitempty"`
	E2 *jsonNode  `json:"e2,omitempty"`

	Bindings []jsonBinding `json:"bindings,omitempty"`
	Body     *jsonNode     `json:"body,omitempty"`

	Cond *jsonNode `json:"cond,omitempty"`
	Thn  *jsonNode `json:"thn,omitempty"`
	Els  *jsonNode `json:"els,omitempty"`

	Vals []*jsonNode `json:"vals,omitempty"`

	Array    *jsonNode `json:"array,omitempty"`
	Index    *jsonNode `json:"index,omitempty"`
	NewValue *jsonNode `json:"new_value,omitempty"`

	Decls  []jsonFunDecl  `json:"decls,omitempty"`
	Fun    *jsonNode      `json:"fun,omitempty"`
	Args   []*jsonNode    `json:"args,omitempty"`
	Params []string       `json:"params,omitempty"`

	TypeDecls []jsonTypeDecl `json:"type_decls,omitempty"`

	MatchExpr *jsonNode      `json:"match_expr,omitempty"`
	Default   *jsonNode      `json:"default,omitempty"`
	Arms      []jsonMatchArm `json:"arms,omitempty"`
}

type jsonBinding struct {
	Name string    `json:"name"`
	Expr *jsonNode `json:"expr"`
}

type jsonFunDecl struct {
	Name   string    `json:"name"`
	Params []string  `json:"params"`
	Body   *jsonNode `json:"body"`
	Span   diagnostics.Span `json:"span"`
}

type jsonTypeDecl struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

type jsonMatchArm struct {
	TypeKind string    `json:"type_kind"`
	Custom   string    `json:"custom,omitempty"`
	Binders  []string  `json:"binders"`
	Body     *jsonNode `json:"body"`
}

var prim1ByName = map[string]Prim1Op{
	"add1": Add1, "sub1": Sub1, "!": Not, "not": Not, "print": Print,
	"isbool": IsBool, "isnum": IsNum, "length": Length,
	"isarray": IsArray, "isfun": IsFun,
}

var prim2ByName = map[string]Prim2Op{
	"+": Add, "-": Sub, "*": Mul, "&&": And, "||": Or,
	"<": Lt, ">": Gt, "<=": Le, ">=": Ge, "==": Eq, "!=": Neq, "[]": ArrayGet,
}

var typeKindByName = map[string]SnakeTypeKind{
	"Num": TNum, "Bool": TBool, "Array": TArray, "Func": TFunc,
}

// UnmarshalProgram decodes a JSON-encoded surface tree into a
// *Program. Every node's "tag" is left at its zero value — the
// pipeline retags immediately before the first tag-sensitive stage
// runs (uniquify.Processor), so a parser never needs to mint tags
// itself.
func UnmarshalProgram(data []byte) (*Program, error) {
	var root jsonNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}
	main, err := decodeExpr(&root)
	if err != nil {
		return nil, err
	}
	return &Program{Main: main}, nil
}

func ann(n *jsonNode) Ann { return Ann{Span: n.Span} }

func decodeExpr(n *jsonNode) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("decoding program: unexpected null node")
	}
	switch n.Node {
	case "num":
		v, err := n.Val.Int64()
		if err != nil {
			return nil, fmt.Errorf("decoding num at %s: %w", n.Span, err)
		}
		return &Num{Val: v, A: ann(n)}, nil

	case "bool":
		return &Bool{Val: n.BoolVal, A: ann(n)}, nil

	case "var":
		return &Var{Name: n.Name, A: ann(n)}, nil

	case "prim1":
		op, ok := prim1ByName[n.Op]
		if !ok {
			return nil, fmt.Errorf("decoding prim1 at %s: unknown op %q", n.Span, n.Op)
		}
		e, err := decodeExpr(n.E)
		if err != nil {
			return nil, err
		}
		return &Prim1{Op: op, E: e, A: ann(n)}, nil

	case "prim2":
		op, ok := prim2ByName[n.Op]
		if !ok {
			return nil, fmt.Errorf("decoding prim2 at %s: unknown op %q", n.Span, n.Op)
		}
		e1, err := decodeExpr(n.E1)
		if err != nil {
			return nil, err
		}
		e2, err := decodeExpr(n.E2)
		if err != nil {
			return nil, err
		}
		return &Prim2{Op: op, E1: e1, E2: e2, A: ann(n)}, nil

	case "let":
		bindings := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			e, err := decodeExpr(b.Expr)
			if err != nil {
				return nil, err
			}
			bindings[i] = Binding{Name: b.Name, Expr: e}
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &Let{Bindings: bindings, Body: body, A: ann(n)}, nil

	case "if":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		thn, err := decodeExpr(n.Thn)
		if err != nil {
			return nil, err
		}
		els, err := decodeExpr(n.Els)
		if err != nil {
			return nil, err
		}
		return &If{Cond: cond, Thn: thn, Els: els, A: ann(n)}, nil

	case "array":
		vals := make([]Expr, len(n.Vals))
		for i, v := range n.Vals {
			e, err := decodeExpr(v)
			if err != nil {
				return nil, err
			}
			vals[i] = e
		}
		return &Array{Vals: vals, A: ann(n)}, nil

	case "arrayset":
		arr, err := decodeExpr(n.Array)
		if err != nil {
			return nil, err
		}
		idx, err := decodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		nv, err := decodeExpr(n.NewValue)
		if err != nil {
			return nil, err
		}
		return &ArraySet{Array: arr, Index: idx, NewValue: nv, A: ann(n)}, nil

	case "semicolon":
		e1, err := decodeExpr(n.E1)
		if err != nil {
			return nil, err
		}
		e2, err := decodeExpr(n.E2)
		if err != nil {
			return nil, err
		}
		return &Semicolon{E1: e1, E2: e2, A: ann(n)}, nil

	case "fundefs":
		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			body, err := decodeExpr(d.Body)
			if err != nil {
				return nil, err
			}
			decls[i] = FunDecl{Name: d.Name, Params: d.Params, Body: body, A: Ann{Span: d.Span}}
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &FunDefs{Decls: decls, Body: body, A: ann(n)}, nil

	case "call":
		fun, err := decodeExpr(n.Fun)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			e, err := decodeExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		return &Call{Fun: fun, Args: args, A: ann(n)}, nil

	case "lambda":
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &Lambda{Params: n.Params, Body: body, A: ann(n)}, nil

	case "typedefs":
		decls := make([]TypeDecl, len(n.TypeDecls))
		for i, d := range n.TypeDecls {
			decls[i] = TypeDecl{Name: d.Name, Args: d.Args}
		}
		body, err := decodeExpr(n.Body)
		if err != nil {
			return nil, err
		}
		return &TypeDefs{Decls: decls, Body: body, A: ann(n)}, nil

	case "match":
		me, err := decodeExpr(n.MatchExpr)
		if err != nil {
			return nil, err
		}
		var def Expr
		if n.Default != nil {
			def, err = decodeExpr(n.Default)
			if err != nil {
				return nil, err
			}
		}
		arms := make([]MatchArm, len(n.Arms))
		for i, a := range n.Arms {
			var st SnakeType
			if kind, ok := typeKindByName[a.TypeKind]; ok {
				st = SnakeType{Kind: kind}
			} else {
				st = SnakeType{Kind: TCustom, Custom: a.Custom}
			}
			body, err := decodeExpr(a.Body)
			if err != nil {
				return nil, err
			}
			arms[i] = MatchArm{Type: st, Binders: a.Binders, Body: body}
		}
		return &Match{Expr: me, Default: def, Arms: arms, A: ann(n)}, nil

	default:
		return nil, fmt.Errorf("decoding node at %s: unknown node kind %q", n.Span, n.Node)
	}
}
