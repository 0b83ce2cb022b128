package resolver

import (
	"testing"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
	"github.com/mohnishaggarwal/snake-compiler/internal/uniquify"
)

func num(v int64) ast.Expr    { return &ast.Num{Val: v} }
func boolean(v bool) ast.Expr { return &ast.Bool{Val: v} }
func vr(name string) ast.Expr { return &ast.Var{Name: name} }

func TestResolveAssignsInjectiveTypetags(t *testing.T) {
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{
				{Name: "Leaf", Args: nil},
				{Name: "Node", Args: []string{"l", "r"}},
			},
			Body: num(0),
		},
	}
	_, tags := Resolve(prog)
	if len(tags) != 2 {
		t.Fatalf("expected 2 typetags, got %d", len(tags))
	}
	if tags["Leaf"] == tags["Node"] {
		t.Fatalf("Leaf and Node must not share a typetag: both got %d", tags["Leaf"])
	}
	if tags["Leaf"] != 0 {
		t.Fatalf("Leaf (declared first) should get typetag 0, got %d", tags["Leaf"])
	}
	if tags["Node"] != 1 {
		t.Fatalf("Node (declared second) should get typetag 1, got %d", tags["Node"])
	}
}

func TestResolveZeroArityConstructorDesugarsToLet(t *testing.T) {
	// typedefs Leaf() in Leaf  -->  let Leaf = MakeTypeInstance(tag, []) in Leaf
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{{Name: "Leaf", Args: nil}},
			Body:  vr("Leaf"),
		},
	}
	out, tags := Resolve(prog)
	let, ok := out.Main.(*ast.Let)
	if !ok {
		t.Fatalf("expected zero-arity constructor to desugar into a Let, got %T", out.Main)
	}
	if let.Bindings[0].Name != "Leaf" {
		t.Fatalf("binding name = %q, want %q", let.Bindings[0].Name, "Leaf")
	}
	mk, ok := let.Bindings[0].Expr.(*ast.MakeTypeInstance)
	if !ok {
		t.Fatalf("binding expr = %T, want *ast.MakeTypeInstance", let.Bindings[0].Expr)
	}
	if mk.Typetag != tags["Leaf"] {
		t.Fatalf("MakeTypeInstance typetag = %d, want %d", mk.Typetag, tags["Leaf"])
	}
	fields, ok := mk.Fields.(*ast.Array)
	if !ok || len(fields.Vals) != 0 {
		t.Fatalf("zero-arity constructor must build an empty fields array, got %#v", mk.Fields)
	}
}

func TestResolveKArityConstructorDesugarsToFunDefs(t *testing.T) {
	// typedefs Pair(a, b) in Pair  -->  fun Pair(a, b) = MakeTypeInstance(tag, [a, b]) in Pair
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{{Name: "Pair", Args: []string{"a", "b"}}},
			Body:  vr("Pair"),
		},
	}
	out, tags := Resolve(prog)
	fd, ok := out.Main.(*ast.FunDefs)
	if !ok {
		t.Fatalf("expected k-arity constructor to desugar into FunDefs, got %T", out.Main)
	}
	decl := fd.Decls[0]
	if decl.Name != "Pair" {
		t.Fatalf("decl name = %q, want %q", decl.Name, "Pair")
	}
	if len(decl.Params) != 2 || decl.Params[0] != "a" || decl.Params[1] != "b" {
		t.Fatalf("decl params = %v, want [a b]", decl.Params)
	}
	mk, ok := decl.Body.(*ast.MakeTypeInstance)
	if !ok {
		t.Fatalf("decl body = %T, want *ast.MakeTypeInstance", decl.Body)
	}
	if mk.Typetag != tags["Pair"] {
		t.Fatalf("MakeTypeInstance typetag = %d, want %d", mk.Typetag, tags["Pair"])
	}
	fields := mk.Fields.(*ast.Array).Vals
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].(*ast.Var).Name != "a" || fields[1].(*ast.Var).Name != "b" {
		t.Fatalf("fields must reference the constructor's own params in order, got %#v", fields)
	}
}

func TestResolveNestedTypeDefsInnermostWrapsFirst(t *testing.T) {
	// typedefs A in (typedefs B in 0) — B is declared last, so it must
	// be desugared first (innermost), meaning A's wrapper ends up
	// outermost in the returned tree.
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{{Name: "A", Args: nil}},
			Body: &ast.TypeDefs{
				Decls: []ast.TypeDecl{{Name: "B", Args: nil}},
				Body:  num(0),
			},
		},
	}
	out, _ := Resolve(prog)
	outer, ok := out.Main.(*ast.Let)
	if !ok {
		t.Fatalf("outer node = %T, want *ast.Let (for A)", out.Main)
	}
	if outer.Bindings[0].Name != "A" {
		t.Fatalf("outer binding = %q, want %q", outer.Bindings[0].Name, "A")
	}
	inner, ok := outer.Body.(*ast.Let)
	if !ok {
		t.Fatalf("inner node = %T, want *ast.Let (for B)", outer.Body)
	}
	if inner.Bindings[0].Name != "B" {
		t.Fatalf("inner binding = %q, want %q", inner.Bindings[0].Name, "B")
	}
}

func TestResolveMatchDesugarsCustomArmToMatchTypeIf(t *testing.T) {
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{{Name: "Pair", Args: []string{"a", "b"}}},
			Body: &ast.Match{
				Expr:    vr("p"),
				Default: num(-1),
				Arms: []ast.MatchArm{
					{Type: ast.SnakeType{Kind: ast.TCustom, Custom: "Pair"}, Binders: []string{"x", "y"}, Body: vr("x")},
				},
			},
		},
	}
	out, tags := Resolve(prog)
	// Pair has fields, so its declaration desugars into the FunDefs
	// that wraps the resolved match.
	fd := out.Main.(*ast.FunDefs)
	let, ok := fd.Body.(*ast.Let)
	if !ok {
		t.Fatalf("match must desugar to an outer Let binding the matchee and its fields, got %T", fd.Body)
	}
	if len(let.Bindings) != 2 {
		t.Fatalf("expected 2 bindings (matchee, fields), got %d", len(let.Bindings))
	}
	if _, ok := let.Bindings[1].Expr.(*ast.GetTypeFields); !ok {
		t.Fatalf("second binding must extract fields via GetTypeFields, got %T", let.Bindings[1].Expr)
	}
	iff, ok := let.Body.(*ast.If)
	if !ok {
		t.Fatalf("match body must desugar to an If chain, got %T", let.Body)
	}
	mt, ok := iff.Cond.(*ast.MatchType)
	if !ok {
		t.Fatalf("If cond must be a MatchType, got %T", iff.Cond)
	}
	if mt.Typetag != tags["Pair"] {
		t.Fatalf("MatchType typetag = %d, want %d", mt.Typetag, tags["Pair"])
	}
	thn, ok := iff.Thn.(*ast.Let)
	if !ok {
		t.Fatalf("arm body must be let-bound over the field accesses, got %T", iff.Thn)
	}
	if len(thn.Bindings) != 2 {
		t.Fatalf("expected one binding per binder, got %d", len(thn.Bindings))
	}
	for i, b := range thn.Bindings {
		get, ok := b.Expr.(*ast.Prim2)
		if !ok || get.Op != ast.ArrayGet {
			t.Fatalf("binder %d must be an ArrayGet, got %#v", i, b.Expr)
		}
		idx := get.E2.(*ast.Num).Val
		if idx != int64(i) {
			t.Fatalf("binder %d indexes field %d, want %d", i, idx, i)
		}
	}
}

func TestResolveMatchUndeclaredTypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic: match arm names a type that was never declared")
		}
	}()
	prog := &ast.Program{
		Main: &ast.Match{
			Expr:    vr("p"),
			Default: num(0),
			Arms: []ast.MatchArm{
				{Type: ast.SnakeType{Kind: ast.TCustom, Custom: "Nope"}, Body: num(1)},
			},
		},
	}
	Resolve(prog)
}

func TestResolveMatchPrimitiveArmSubstitutesBinderForMatchee(t *testing.T) {
	// match p with | n: Num -> n | _ -> 0 — the single binder n must be
	// substituted for the matchee var directly, with no Let.
	prog := &ast.Program{
		Main: &ast.Match{
			Expr:    vr("p"),
			Default: num(0),
			Arms: []ast.MatchArm{
				{Type: ast.SnakeType{Kind: ast.TNum}, Binders: []string{"n"}, Body: vr("n")},
			},
		},
	}
	out, _ := Resolve(prog)
	let := out.Main.(*ast.Let)
	matcheeName := let.Bindings[0].Name
	iff := let.Body.(*ast.If)
	test := iff.Cond.(*ast.Prim1)
	if test.Op != ast.IsNum {
		t.Fatalf("primitive arm test op = %v, want IsNum", test.Op)
	}
	thnVar, ok := iff.Thn.(*ast.Var)
	if !ok {
		t.Fatalf("arm body must substitute directly into a Var, got %T (no Let expected)", iff.Thn)
	}
	if thnVar.Name != matcheeName {
		t.Fatalf("substituted var = %q, want matchee name %q", thnVar.Name, matcheeName)
	}
}

func TestResolveSubstitutionPreservesNestedGetTypeFields(t *testing.T) {
	// A primitive-type arm's body (`x => ...`) is resolved before
	// replaceVarName substitutes the matchee directly for x, so that
	// body can itself already contain a *ast.GetTypeFields node from
	// resolving a nested custom-type match. replaceVarName must carry
	// that wrapper through unchanged rather than collapsing it to its
	// inner expression.
	innerMatch := &ast.Match{
		Expr:    vr("leaf"),
		Default: num(2),
		Arms: []ast.MatchArm{
			{Type: ast.SnakeType{Kind: ast.TCustom, Custom: "Leaf"}, Binders: nil, Body: vr("x")},
		},
	}
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{{Name: "Leaf", Args: nil}},
			Body: &ast.Match{
				Expr:    vr("n"),
				Default: num(0),
				Arms: []ast.MatchArm{
					{Type: ast.SnakeType{Kind: ast.TNum}, Binders: []string{"x"}, Body: innerMatch},
				},
			},
		},
	}
	out, _ := Resolve(prog)
	// Leaf has no fields, so its declaration desugars into the Let
	// that binds its singleton value around the resolved match.
	leafLet := out.Main.(*ast.Let)
	outerLet := leafLet.Body.(*ast.Let)
	outerIf := outerLet.Body.(*ast.If)
	substitutedInnerLet, ok := outerIf.Thn.(*ast.Let)
	if !ok {
		t.Fatalf("outer arm body = %T, want *ast.Let (the resolved inner match)", outerIf.Thn)
	}
	fieldsBinding := substitutedInnerLet.Bindings[1]
	if _, ok := fieldsBinding.Expr.(*ast.GetTypeFields); !ok {
		t.Fatalf("fields binding expr = %T, want *ast.GetTypeFields to survive outer-arm substitution", fieldsBinding.Expr)
	}
}

func TestTypeNamesStripsUniquifiedMangling(t *testing.T) {
	names := TypeNames(map[string]uint64{
		"__custom_type_4_Leaf":      0,
		"__custom_type_9_Cons_Cell": 1,
	})
	if names[0] != "Leaf" {
		t.Fatalf("names[0] = %q, want %q", names[0], "Leaf")
	}
	// Underscores in the source name itself must survive the strip.
	if names[1] != "Cons_Cell" {
		t.Fatalf("names[1] = %q, want %q", names[1], "Cons_Cell")
	}
}

func TestTypeNamesPassesUnmangledNamesThrough(t *testing.T) {
	names := TypeNames(map[string]uint64{"Leaf": 0})
	if names[0] != "Leaf" {
		t.Fatalf("names[0] = %q, want %q", names[0], "Leaf")
	}
}

func TestProcessorTypeNamesAreSourceNames(t *testing.T) {
	// Run the real stage order (uniquify, then resolve) so the table
	// sees the mangled declaration names the pipeline produces, and
	// check the side-file view comes back human-readable.
	prog := &ast.Program{
		Main: &ast.TypeDefs{
			Decls: []ast.TypeDecl{
				{Name: "Leaf", Args: nil},
				{Name: "Node", Args: []string{"l", "r"}},
			},
			Body: num(0),
		},
	}
	ctx := &pipeline.PipelineContext{Program: prog}
	ctx = uniquify.Processor{}.Process(ctx)
	ctx = Processor{}.Process(ctx)
	names := TypeNames(ctx.TypeTags)
	if len(names) != 2 || names[0] != "Leaf" || names[1] != "Node" {
		t.Fatalf("TypeNames = %v, want [Leaf Node]", names)
	}
}

func TestResolvePreservesLiteralsAndBooleans(t *testing.T) {
	prog := &ast.Program{Main: &ast.If{Cond: boolean(true), Thn: num(1), Els: num(2)}}
	out, tags := Resolve(prog)
	if len(tags) != 0 {
		t.Fatalf("expected no typetags for a program with no type declarations, got %d", len(tags))
	}
	iff := out.Main.(*ast.If)
	if !iff.Cond.(*ast.Bool).Val {
		t.Fatal("condition boolean not preserved")
	}
}

func TestResolvePanicsOnPostResolverNode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on a post-resolver-only node reaching the resolver")
		}
	}()
	Resolve(&ast.Program{Main: &ast.MakeClosure{Arity: 0, Label: "x", Env: num(0)}})
}
