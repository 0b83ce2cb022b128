// Package ast defines the compiler's intermediate representations:
// the surface Exp tree, and (in seq.go) the sequentialized SeqExp
// form it is eventually lowered to.
package ast

import "github.com/mohnishaggarwal/snake-compiler/internal/diagnostics"

// Ann is the annotation every Exp node carries. Span locates the
// node in source text for the checker's error messages; Tag is a
// fresh-name seed, unique within the tree. Each tag-sensitive stage
// (uniquify, resolve, lift, sequentialize) retags its input from zero
// before it runs (see retag.go), so tags are not carried from one
// stage to the next; names minted by different stages stay apart
// through their stage-specific prefixes.
type Ann struct {
	Span diagnostics.Span
	Tag  uint32
}

// Expr is any surface (or post-resolver-internal) expression node.
// Concrete types are matched with a type switch rather than a
// double-dispatch Visitor: each pass's traversal produces a
// differently-shaped result (an error, a renamed tree, a lifted
// tree, ...), so a single Visitor interface would need one method
// set per pass anyway. The debug dumper in print.go does the same
// type switch for a read-only purpose.
type Expr interface {
	GetAnn() Ann
}

func (e *Num) GetAnn() Ann              { return e.A }
func (e *Bool) GetAnn() Ann             { return e.A }
func (e *Var) GetAnn() Ann              { return e.A }
func (e *Prim1) GetAnn() Ann            { return e.A }
func (e *Prim2) GetAnn() Ann            { return e.A }
func (e *Let) GetAnn() Ann              { return e.A }
func (e *If) GetAnn() Ann               { return e.A }
func (e *Array) GetAnn() Ann            { return e.A }
func (e *ArraySet) GetAnn() Ann         { return e.A }
func (e *Semicolon) GetAnn() Ann        { return e.A }
func (e *FunDefs) GetAnn() Ann          { return e.A }
func (e *Call) GetAnn() Ann             { return e.A }
func (e *Lambda) GetAnn() Ann           { return e.A }
func (e *TypeDefs) GetAnn() Ann         { return e.A }
func (e *Match) GetAnn() Ann            { return e.A }
func (e *MakeClosure) GetAnn() Ann      { return e.A }
func (e *MakeTypeInstance) GetAnn() Ann { return e.A }
func (e *MatchType) GetAnn() Ann        { return e.A }
func (e *GetTypeFields) GetAnn() Ann    { return e.A }

// Prim1Op is a unary primitive operator.
type Prim1Op int

const (
	Add1 Prim1Op = iota
	Sub1
	Not
	Print
	IsBool
	IsNum
	Length
	IsArray
	IsFun
)

var prim1Names = map[Prim1Op]string{
	Add1: "add1", Sub1: "sub1", Not: "!", Print: "print",
	IsBool: "isbool", IsNum: "isnum", Length: "length",
	IsArray: "isarray", IsFun: "isfun",
}

func (op Prim1Op) String() string { return prim1Names[op] }

// Prim2Op is a binary primitive operator.
type Prim2Op int

const (
	Add Prim2Op = iota
	Sub
	Mul
	And
	Or
	Lt
	Gt
	Le
	Ge
	Eq
	Neq
	ArrayGet
)

var prim2Names = map[Prim2Op]string{
	Add: "+", Sub: "-", Mul: "*", And: "&&", Or: "||",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", Eq: "==", Neq: "!=",
	ArrayGet: "[]",
}

func (op Prim2Op) String() string { return prim2Names[op] }

// SnakeTypeKind distinguishes the four primitive pattern types from
// a user-declared variant type in a Match arm's pattern.
type SnakeTypeKind int

const (
	TNum SnakeTypeKind = iota
	TBool
	TArray
	TFunc
	TCustom
)

// SnakeType is a match-arm pattern type: one of the four primitives,
// or a user-declared variant named by Custom.
type SnakeType struct {
	Kind   SnakeTypeKind
	Custom string
}

// Name returns the type's surface name, used both for error messages
// and as the checker's environment key.
func (t SnakeType) Name() string {
	switch t.Kind {
	case TNum:
		return "Num"
	case TBool:
		return "Bool"
	case TArray:
		return "Array"
	case TFunc:
		return "Func"
	default:
		return t.Custom
	}
}

// PrimTypeNames is the reserved set of primitive type names that no
// binding, function, type, or match-arm pattern may shadow.
var PrimTypeNames = []string{"Func", "Array", "Bool", "Num"}

func IsPrimTypeName(name string) bool {
	for _, p := range PrimTypeNames {
		if p == name {
			return true
		}
	}
	return false
}

// Num is a surface integer literal, pre-range-check. The checker
// rejects |val| > (2^63-1)/2, the 63-bit Snake number range.
type Num struct {
	Val int64
	A   Ann
}

type Bool struct {
	Val bool
	A   Ann
}

type Var struct {
	Name string
	A    Ann
}

type Prim1 struct {
	Op Prim1Op
	E  Expr
	A  Ann
}

type Prim2 struct {
	Op     Prim2Op
	E1, E2 Expr
	A      Ann
}

// Binding is one (name, defining-expression) pair of a Let.
type Binding struct {
	Name string
	Expr Expr
}

type Let struct {
	Bindings []Binding
	Body     Expr
	A        Ann
}

type If struct {
	Cond, Thn, Els Expr
	A              Ann
}

type Array struct {
	Vals []Expr
	A    Ann
}

type ArraySet struct {
	Array, Index, NewValue Expr
	A                      Ann
}

type Semicolon struct {
	E1, E2 Expr
	A      Ann
}

// FunDecl is one function of a (possibly mutually recursive) FunDefs
// block: `name(params) = body`.
type FunDecl struct {
	Name   string
	Params []string
	Body   Expr
	A      Ann
}

type FunDefs struct {
	Decls []FunDecl
	Body  Expr
	A     Ann
}

type Call struct {
	Fun  Expr
	Args []Expr
	A    Ann
}

type Lambda struct {
	Params []string
	Body   Expr
	A      Ann
}

// MakeClosure is post-resolver-only: it never appears in surface
// input and must be rejected (as impossible) by the checker and the
// uniquifier. Env is unconstrained before sequentialization, and
// must be a *Var afterward.
type MakeClosure struct {
	Arity uint32
	Label string
	Env   Expr
	A     Ann
}

// TypeDecl is one `type Name(field1, field2, ...)` declaration.
type TypeDecl struct {
	Name string
	Args []string
}

type TypeDefs struct {
	Decls []TypeDecl
	Body  Expr
	A     Ann
}

// MatchArm is one `case Pattern(binders...) => body` arm. Type names
// the pattern (a primitive or a user-declared variant); Binders are
// the names bound within Body.
type MatchArm struct {
	Type    SnakeType
	Binders []string
	Body    Expr
}

type Match struct {
	Expr    Expr
	Default Expr
	Arms    []MatchArm
	A       Ann
}

// MakeTypeInstance is post-resolver-only: a heap-allocating
// constructor application, `typetag` already resolved.
type MakeTypeInstance struct {
	Typetag uint64
	Fields  Expr
	A       Ann
}

// MatchType is post-resolver-only: a runtime typetag test.
type MatchType struct {
	Expr    Expr
	Typetag uint64
	A       Ann
}

// GetTypeFields is post-resolver-only: extracts the field array from
// a user-type instance. Evaluating it on a non-instance value yields
// a dummy 0 at runtime; emitted code only reads the result on an
// already-confirmed MatchType path.
type GetTypeFields struct {
	Expr Expr
	A    Ann
}

// Program is a whole compilation unit before lambda lifting: a
// single top-level expression that may still contain nested
// FunDefs/Lambda anywhere in its tree. The checker, uniquifier and
// type resolver all consume and produce a Program.
type Program struct {
	Main Expr
}

// LiftedProgram is a Program after lambda lifting: every function
// (top-level or formerly nested) lives flat in Funs, each taking its
// environment as an implicit first parameter named #env_<tag>;
// Main and every Decl.Body contain neither Lambda nor FunDefs.
type LiftedProgram struct {
	Funs []FunDecl
	Main Expr
}
