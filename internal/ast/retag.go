package ast

// retagCounter hands out fresh sequential tags. Each major pipeline
// stage retags its own input immediately before running, rather than
// trusting the tags an earlier stage happened to leave behind. This
// matters because a pass that synthesizes new nodes (the resolver's
// match desugaring, the lifter's environment arrays) does not always
// stamp every synthesized node with a fresh tag, so two synthesized
// siblings can carry the same (zero-value) tag; retagging the whole
// tree right before the next tag-sensitive pass (uniquify, the
// lifter's env/label naming, the sequentializer's temporary naming)
// keeps those names collision-free.
type retagCounter struct{ n uint32 }

func (c *retagCounter) next() uint32 {
	v := c.n
	c.n++
	return v
}

// RetagProgram returns prog with every node's Ann.Tag replaced by a
// fresh, sequential value (Span is preserved). Safe to call on a
// surface tree that still contains Lambda/FunDefs/TypeDefs/Match, or
// on a post-resolver tree that contains MakeClosure/MakeTypeInstance/
// MatchType/GetTypeFields instead.
func RetagProgram(prog *Program) *Program {
	c := &retagCounter{}
	return &Program{Main: retag(prog.Main, c)}
}

// RetagLifted retags every lifted function body and the program's
// main body under one shared counter, since the sequentializer's
// temp-naming must stay collision-free across the whole flattened
// program, not just within one function.
func RetagLifted(lp *LiftedProgram) *LiftedProgram {
	c := &retagCounter{}
	funs := make([]FunDecl, len(lp.Funs))
	for i, d := range lp.Funs {
		funs[i] = FunDecl{Name: d.Name, Params: d.Params, Body: retag(d.Body, c), A: Ann{Span: d.A.Span, Tag: c.next()}}
	}
	main := retag(lp.Main, c)
	return &LiftedProgram{Funs: funs, Main: main}
}

func retag(e Expr, c *retagCounter) Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *Num:
		return &Num{Val: n.Val, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Bool:
		return &Bool{Val: n.Val, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Var:
		return &Var{Name: n.Name, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Prim1:
		e := retag(n.E, c)
		return &Prim1{Op: n.Op, E: e, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Prim2:
		e1 := retag(n.E1, c)
		e2 := retag(n.E2, c)
		return &Prim2{Op: n.Op, E1: e1, E2: e2, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Array:
		vals := make([]Expr, len(n.Vals))
		for i, v := range n.Vals {
			vals[i] = retag(v, c)
		}
		return &Array{Vals: vals, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *ArraySet:
		arr := retag(n.Array, c)
		idx := retag(n.Index, c)
		nv := retag(n.NewValue, c)
		return &ArraySet{Array: arr, Index: idx, NewValue: nv, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Semicolon:
		e1 := retag(n.E1, c)
		e2 := retag(n.E2, c)
		return &Semicolon{E1: e1, E2: e2, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Let:
		bindings := make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = Binding{Name: b.Name, Expr: retag(b.Expr, c)}
		}
		body := retag(n.Body, c)
		return &Let{Bindings: bindings, Body: body, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *If:
		cond := retag(n.Cond, c)
		thn := retag(n.Thn, c)
		els := retag(n.Els, c)
		return &If{Cond: cond, Thn: thn, Els: els, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *FunDefs:
		decls := make([]FunDecl, len(n.Decls))
		for i, d := range n.Decls {
			body := retag(d.Body, c)
			decls[i] = FunDecl{Name: d.Name, Params: d.Params, Body: body, A: Ann{Span: d.A.Span, Tag: c.next()}}
		}
		body := retag(n.Body, c)
		return &FunDefs{Decls: decls, Body: body, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Call:
		fun := retag(n.Fun, c)
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = retag(a, c)
		}
		return &Call{Fun: fun, Args: args, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Lambda:
		body := retag(n.Body, c)
		return &Lambda{Params: n.Params, Body: body, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *TypeDefs:
		body := retag(n.Body, c)
		return &TypeDefs{Decls: n.Decls, Body: body, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *Match:
		expr := retag(n.Expr, c)
		def := retag(n.Default, c)
		arms := make([]MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			arms[i] = MatchArm{Type: arm.Type, Binders: arm.Binders, Body: retag(arm.Body, c)}
		}
		return &Match{Expr: expr, Default: def, Arms: arms, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *MakeClosure:
		env := retag(n.Env, c)
		return &MakeClosure{Arity: n.Arity, Label: n.Label, Env: env, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *MakeTypeInstance:
		fields := retag(n.Fields, c)
		return &MakeTypeInstance{Typetag: n.Typetag, Fields: fields, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *MatchType:
		expr := retag(n.Expr, c)
		return &MatchType{Expr: expr, Typetag: n.Typetag, A: Ann{Span: n.A.Span, Tag: c.next()}}

	case *GetTypeFields:
		expr := retag(n.Expr, c)
		return &GetTypeFields{Expr: expr, A: Ann{Span: n.A.Span, Tag: c.next()}}

	default:
		panic("ast: retag: unhandled Expr variant")
	}
}
