package ast

import (
	"fmt"
	"strings"
)

// PrintSexpr renders prog as a parenthesized, indentation-free
// s-expression: a debug aid for comparing a tree before and after
// one pass, not a re-parseable surface syntax.
func PrintSexpr(prog *Program) string {
	return printExpr(prog.Main)
}

// PrintLifted renders every lifted function plus main, each on its
// own block, the shape the lift stage's entry in a "-dump-ir" archive
// takes after Lambda/FunDefs have been removed.
func PrintLifted(lp *LiftedProgram) string {
	var b strings.Builder
	for _, fn := range lp.Funs {
		fmt.Fprintf(&b, "fun %s(%s):\n  %s\n", fn.Name, strings.Join(fn.Params, ", "), printExpr(fn.Body))
	}
	fmt.Fprintf(&b, "main:\n  %s\n", printExpr(lp.Main))
	return b.String()
}

// PrintSeq renders a sequentialized program the same way, one block
// per SeqFunDecl plus main.
func PrintSeq(sp *SeqProgram) string {
	var b strings.Builder
	for _, fn := range sp.Funs {
		fmt.Fprintf(&b, "fun %s(%s):\n  %s\n", fn.Name, strings.Join(fn.Parameters, ", "), printSeq(fn.Body))
	}
	fmt.Fprintf(&b, "main:\n  %s\n", printSeq(sp.Main))
	return b.String()
}

func printExpr(e Expr) string {
	switch n := e.(type) {
	case *Num:
		return fmt.Sprintf("%d", n.Val)
	case *Bool:
		return fmt.Sprintf("%t", n.Val)
	case *Var:
		return n.Name
	case *Prim1:
		return fmt.Sprintf("(%s %s)", n.Op, printExpr(n.E))
	case *Prim2:
		return fmt.Sprintf("(%s %s %s)", printExpr(n.E1), n.Op, printExpr(n.E2))
	case *Let:
		parts := make([]string, len(n.Bindings))
		for i, b := range n.Bindings {
			parts[i] = fmt.Sprintf("%s = %s", b.Name, printExpr(b.Expr))
		}
		return fmt.Sprintf("(let (%s) %s)", strings.Join(parts, ", "), printExpr(n.Body))
	case *If:
		return fmt.Sprintf("(if %s %s %s)", printExpr(n.Cond), printExpr(n.Thn), printExpr(n.Els))
	case *Array:
		parts := make([]string, len(n.Vals))
		for i, v := range n.Vals {
			parts[i] = printExpr(v)
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	case *ArraySet:
		return fmt.Sprintf("(arrset %s %s %s)", printExpr(n.Array), printExpr(n.Index), printExpr(n.NewValue))
	case *Semicolon:
		return fmt.Sprintf("(%s; %s)", printExpr(n.E1), printExpr(n.E2))
	case *FunDefs:
		parts := make([]string, len(n.Decls))
		for i, d := range n.Decls {
			parts[i] = fmt.Sprintf("%s(%s) = %s", d.Name, strings.Join(d.Params, ", "), printExpr(d.Body))
		}
		return fmt.Sprintf("(fundefs (%s) %s)", strings.Join(parts, "; "), printExpr(n.Body))
	case *Call:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = printExpr(a)
		}
		return fmt.Sprintf("(%s %s)", printExpr(n.Fun), strings.Join(parts, " "))
	case *Lambda:
		return fmt.Sprintf("(lambda (%s) %s)", strings.Join(n.Params, ", "), printExpr(n.Body))
	case *TypeDefs:
		parts := make([]string, len(n.Decls))
		for i, d := range n.Decls {
			parts[i] = fmt.Sprintf("%s(%s)", d.Name, strings.Join(d.Args, ", "))
		}
		return fmt.Sprintf("(typedefs (%s) %s)", strings.Join(parts, "; "), printExpr(n.Body))
	case *Match:
		parts := make([]string, len(n.Arms))
		for i, arm := range n.Arms {
			parts[i] = fmt.Sprintf("%s(%s) => %s", arm.Type.Name(), strings.Join(arm.Binders, ", "), printExpr(arm.Body))
		}
		return fmt.Sprintf("(match %s default %s (%s))", printExpr(n.Expr), printExpr(n.Default), strings.Join(parts, " | "))
	case *MakeClosure:
		return fmt.Sprintf("(make-closure arity=%d label=%s env=%s)", n.Arity, n.Label, printExpr(n.Env))
	case *MakeTypeInstance:
		return fmt.Sprintf("(make-type-instance tag=%d %s)", n.Typetag, printExpr(n.Fields))
	case *MatchType:
		return fmt.Sprintf("(match-type %s tag=%d)", printExpr(n.Expr), n.Typetag)
	case *GetTypeFields:
		return fmt.Sprintf("(get-type-fields %s)", printExpr(n.Expr))
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}

func printImm(i ImmExp) string {
	switch v := i.(type) {
	case ImmNum:
		return fmt.Sprintf("%d", v.Val)
	case ImmBool:
		return fmt.Sprintf("%t", v.Val)
	case ImmVar:
		return v.Name
	default:
		return fmt.Sprintf("<unknown imm %T>", i)
	}
}

func printSeq(e SeqExp) string {
	switch n := e.(type) {
	case SeqImm:
		return printImm(n.Val)
	case SeqPrim1:
		return fmt.Sprintf("(%s %s)", n.Op, printImm(n.Val))
	case SeqPrim2:
		return fmt.Sprintf("(%s %s %s)", printImm(n.Val1), n.Op, printImm(n.Val2))
	case SeqLet:
		return fmt.Sprintf("(let %s = %s in %s)", n.Var, printSeq(n.BoundExp), printSeq(n.Body))
	case SeqIf:
		return fmt.Sprintf("(if %s %s %s)", printImm(n.Cond), printSeq(n.Thn), printSeq(n.Els))
	case SeqArray:
		parts := make([]string, len(n.Vals))
		for i, v := range n.Vals {
			parts[i] = printImm(v)
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	case SeqArraySet:
		return fmt.Sprintf("(arrset %s %s %s)", printImm(n.Array), printImm(n.Index), printImm(n.NewValue))
	case SeqMakeClosure:
		return fmt.Sprintf("(make-closure arity=%d label=%s env=%s)", n.Arity, n.Label, printImm(n.Env))
	case SeqCallClosure:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = printImm(a)
		}
		return fmt.Sprintf("(call %s %s)", printImm(n.Fun), strings.Join(parts, " "))
	case SeqMakeTypeInstance:
		return fmt.Sprintf("(make-type-instance tag=%d %s)", n.Typetag, printImm(n.Fields))
	case SeqMatchType:
		return fmt.Sprintf("(match-type %s tag=%d)", printImm(n.Expr), n.Typetag)
	case SeqGetTypeFields:
		return fmt.Sprintf("(get-type-fields %s)", printImm(n.Expr))
	default:
		return fmt.Sprintf("<unknown seq %T>", e)
	}
}
