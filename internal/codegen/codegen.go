// Package codegen is the final pass: a single walk over a
// sequentialized program that tracks stack-slot assignments and emits
// x86-64 NASM assembly against the Snake tagged-value encoding
// (internal/runtime) and the internal "Snake" calling convention. It
// emits NASM text directly rather than threading a structured
// instruction IR through a separate pretty-printer — the output
// contract is plain text and there is no second consumer (an
// assembler backend) that would want the structured form.
package codegen

import (
	"fmt"
	"strings"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/runtime"
)

// Runtime error codes, duplicated here as the literal values the
// generator embeds in error-trampoline jumps; the runtime package's
// ErrorCode enum is the authoritative source — this is just those
// constants spelled as the untyped ints the emitter wants inline.
const (
	arithError       = 0
	comparisonError  = 1
	ifError          = 2
	logicError       = 3
	overflowError    = 4
	notArrayError    = 5
	indexOOBError    = 6
	indexNotNumError = 7
	notClosureError  = 8
	wrongArityError  = 9
	lengthNonArray   = 10
)

// stackSlots maps a bound name to its 1-based slot index: the value
// lives at [rsp - 8*slot].
type stackSlots map[string]int

func (s stackSlots) clone() stackSlots {
	out := make(stackSlots, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Generator accumulates the emitted instruction text for one
// compilation and hands out unique control-flow labels. SeqExp
// carries no annotation tag (it is pure ANF with no further use for
// one), so labels are keyed off a per-Generator monotone counter.
type Generator struct {
	buf     strings.Builder
	labelID int
}

func (g *Generator) label(prefix string) string {
	g.labelID++
	return fmt.Sprintf("%s_%d", prefix, g.labelID)
}

func (g *Generator) emit(format string, args ...any) {
	g.buf.WriteString("        ")
	fmt.Fprintf(&g.buf, format, args...)
	g.buf.WriteByte('\n')
}

func (g *Generator) emitLabel(name string) {
	fmt.Fprintf(&g.buf, "%s:\n", name)
}

func (g *Generator) comment(s string) {
	fmt.Fprintf(&g.buf, "        ; %s\n", s)
}

// callingConvention distinguishes the Snake internal frame layout
// (entry RSP must be 16-aligned) from the System-V frame a `call`
// into the external runtime expects (RSP+8 must be 16-aligned).
type callingConvention int

const (
	snakeCC callingConvention = iota
	systemVCC
)

// stackAlign rounds sz up so that, after the `call` instruction's
// implicit push, the callee sees the alignment its convention
// requires: rsp+8 ≡ 0 (mod 16) on entry for System-V, rsp ≡ 0
// (mod 16) on entry for Snake.
func stackAlign(sz uint32, cc callingConvention) uint32 {
	switch cc {
	case snakeCC:
		switch sz % 16 {
		case 8:
			return sz
		case 0:
			return sz + 8
		default:
			panic(fmt.Sprintf("codegen: stack size %d is not 8-aligned", sz))
		}
	default: // systemVCC
		switch sz % 16 {
		case 8:
			return sz + 8
		case 0:
			return sz
		default:
			panic(fmt.Sprintf("codegen: stack size %d is not 8-aligned", sz))
		}
	}
}

// spaceNeeded computes the stack bytes a function frame requires:
// 8 bytes per parameter plus 8 per Let nesting depth (the deepest
// chain wins at an If branch point).
func spaceNeeded(e ast.SeqExp, paramc uint32) uint32 {
	return 8*paramc + spaceNeededHelp(e)
}

func spaceNeededHelp(e ast.SeqExp) uint32 {
	switch n := e.(type) {
	case ast.SeqLet:
		return 8 + spaceNeededHelp(n.Body)
	case ast.SeqIf:
		t := spaceNeededHelp(n.Thn)
		f := spaceNeededHelp(n.Els)
		if t > f {
			return t
		}
		return f
	default:
		return 0
	}
}

// Emit compiles an entire sequentialized program to a complete
// NASM-compatible assembly listing: the static heap arena, the
// runtime externs, start_here's fixed prologue that establishes rbp
// as the bump pointer, __snake__main, then every lifted function.
func Emit(prog *ast.SeqProgram) string {
	return EmitWithHeapSlots(prog, runtime.HeapSlots)
}

// EmitWithHeapSlots is Emit with the static heap arena sized to
// heapSlots 64-bit words instead of the package default, so a driver
// can honor a configured heap_slots override.
func EmitWithHeapSlots(prog *ast.SeqProgram, heapSlots int) string {
	g := &Generator{}

	g.emitLabel("__snake__main")
	mainSpace := spaceNeeded(prog.Main, 0)
	g.compile(prog.Main, stackSlots{}, mainSpace, true)
	g.emit("ret")

	for _, fn := range prog.Funs {
		g.emitLabel(fn.Name)
		slots := stackSlots{}
		for i, p := range fn.Parameters {
			slots[p] = i + 1
		}
		space := spaceNeeded(fn.Body, uint32(len(fn.Parameters)+1))
		g.compile(fn.Body, slots, space, true)
		g.emit("ret")
	}

	var out strings.Builder
	out.WriteString("        section .data\n")
	fmt.Fprintf(&out, "HEAP_START: times %d dq 0\n", heapSlots)
	out.WriteString("        section .text\n")
	out.WriteString("        extern snake_error\n")
	out.WriteString("        extern print_snake_val\n")
	out.WriteString("        global start_here\n")
	out.WriteString("start_here:\n")
	out.WriteString("        push rbp\n")
	out.WriteString("        mov rbp, HEAP_START\n")
	out.WriteString("        sub rsp, 8\n")
	out.WriteString("        call __snake__main\n")
	out.WriteString("        add rsp, 8\n")
	out.WriteString("        pop rbp\n")
	out.WriteString("        ret\n")
	out.WriteString(g.buf.String())
	return out.String()
}

func memOperand(slot int) string {
	return fmt.Sprintf("[rsp - %d]", 8*slot)
}

func (g *Generator) compileImm(imm ast.ImmExp, slots stackSlots, reg string) {
	switch v := imm.(type) {
	case ast.ImmNum:
		g.emit("mov %s, %d", reg, v.Val*2)
	case ast.ImmBool:
		if v.Val {
			g.emit("mov %s, 0x%x", reg, runtime.SnakeTrue)
		} else {
			g.emit("mov %s, 0x%x", reg, runtime.SnakeFalse)
		}
	case ast.ImmVar:
		addr, ok := slots[v.Name]
		if !ok {
			panic("codegen: unbound stack slot for " + v.Name + " — earlier pass left a free variable")
		}
		g.emit("mov %s, %s", reg, memOperand(addr))
	default:
		panic("codegen: unhandled ImmExp variant")
	}
}

// generateTypeCheck emits a check that reg holds a value of the
// expected tag, trampolining to snake_error(errorCode, reg) on
// mismatch. r10 is the dedicated scratch register; it must never be
// the register under test.
func (g *Generator) generateTypeCheck(reg string, snakeTag uint64, isNumberCheck bool, errCode int) {
	if reg == "r10" {
		panic("codegen: cannot type-check r10, it is the scratch register")
	}
	pass := g.label("typecheck_pass")
	g.comment(fmt.Sprintf("type check on %s", reg))
	if isNumberCheck {
		g.emit("mov r10, 1")
		g.emit("test %s, r10", reg)
		g.emit("jz %s", pass)
	} else {
		g.emit("mov r10, %d", runtime.TagMask)
		g.emit("and r10, %s", reg)
		g.emit("cmp r10, %d", snakeTag)
		g.emit("je %s", pass)
	}
	g.emit("mov rdi, %d", errCode)
	g.emit("mov rsi, %s", reg)
	g.emit("call snake_error")
	g.emitLabel(pass)
}

func (g *Generator) numberCheck(reg string, errCode int) {
	g.generateTypeCheck(reg, 0, true, errCode)
}

func (g *Generator) tagCheck(reg string, tag uint64, errCode int) {
	g.generateTypeCheck(reg, tag, false, errCode)
}

func (g *Generator) overflowCheck() {
	pass := g.label("overflowcheck_pass")
	g.comment("overflow check")
	g.emit("jno %s", pass)
	g.emit("mov rdi, %d", overflowError)
	g.emit("call snake_error")
	g.emitLabel(pass)
}

// generateArrayIndexChecks emits a 0 <= idxReg < [sizeReg] bounds
// check against an untagged array length cell.
func (g *Generator) generateArrayIndexChecks(idxReg, sizeReg string) {
	oob := g.label("index_out_of_bounds")
	inBounds := g.label("index_in_bounds")
	g.emit("cmp %s, 0", idxReg)
	g.emit("jl %s", oob)
	g.emit("cmp %s, [%s]", idxReg, sizeReg)
	g.emit("jge %s", oob)
	g.emit("jmp %s", inBounds)
	g.emitLabel(oob)
	g.emit("mov rdi, %d", indexOOBError)
	g.emit("mov rsi, %s", idxReg)
	g.emit("call snake_error")
	g.emitLabel(inBounds)
}

func (g *Generator) generateArityCheck(funPtrReg string, numArgs int) {
	done := g.label("arity_check_passed")
	g.comment(fmt.Sprintf("arity check: %s receives %d args", funPtrReg, numArgs))
	g.emit("mov r11, [%s]", funPtrReg)
	g.emit("cmp r11, %d", numArgs)
	g.emit("je %s", done)
	g.emit("mov rdi, %d", wrongArityError)
	g.emit("mov rsi, r11")
	g.emit("mov rdx, %d", numArgs)
	g.emit("call snake_error")
	g.emitLabel(done)
}

// compile emits frame-relative code for e. slots maps every bound
// name visible at this point to its stack slot; sfSize is the full
// stack frame size computed once per function, used to align the
// stack before a non-tail call or a Print; isTail marks a
// CallClosure in tail position for the jmp-not-call path.
func (g *Generator) compile(e ast.SeqExp, slots stackSlots, sfSize uint32, isTail bool) {
	switch n := e.(type) {
	case ast.SeqImm:
		g.compileImm(n.Val, slots, "rax")

	case ast.SeqPrim1:
		g.compileImm(n.Val, slots, "rax")
		switch n.Op {
		case ast.Add1, ast.Sub1:
			g.numberCheck("rax", arithError)
		case ast.Not:
			g.tagCheck("rax", runtime.BoolTag, logicError)
		case ast.Length:
			g.tagCheck("rax", runtime.ArrayTag, lengthNonArray)
		}
		switch n.Op {
		case ast.Add1:
			g.emit("add rax, 2")
			g.overflowCheck()
		case ast.Sub1:
			g.emit("sub rax, 2")
			g.overflowCheck()
		case ast.Not:
			tru := g.label("not_true")
			end := g.label("not_end")
			g.emit("mov r11, 0x%x", runtime.SnakeTrue)
			g.emit("cmp rax, r11")
			g.emit("je %s", tru)
			g.emit("mov rax, 0x%x", runtime.SnakeTrue)
			g.emit("jmp %s", end)
			g.emitLabel(tru)
			g.emit("mov rax, 0x%x", runtime.SnakeFalse)
			g.emitLabel(end)
		case ast.IsBool:
			g.emitTagPredicate(runtime.BoolTag)
		case ast.IsNum:
			g.emitNumberPredicate()
		case ast.IsArray:
			g.emitTagPredicate(runtime.ArrayTag)
		case ast.IsFun:
			g.emitTagPredicate(runtime.ClosureTag)
		case ast.Print:
			stackOffset := stackAlign(sfSize, systemVCC)
			g.emit("mov rdi, rax")
			g.emit("sub rsp, %d", stackOffset)
			g.emit("call print_snake_val")
			g.emit("add rsp, %d", stackOffset)
		case ast.Length:
			g.emit("sub rax, 1")
			g.emit("mov rax, [rax]")
			g.emit("shl rax, 1")
		}

	case ast.SeqPrim2:
		g.compileImm(n.Val1, slots, "rax")
		g.compileImm(n.Val2, slots, "r11")
		switch n.Op {
		case ast.Add, ast.Sub, ast.Mul:
			g.numberCheck("rax", arithError)
			g.numberCheck("r11", arithError)
		case ast.Lt, ast.Gt, ast.Le, ast.Ge:
			g.numberCheck("rax", comparisonError)
			g.numberCheck("r11", comparisonError)
		case ast.And, ast.Or:
			g.tagCheck("rax", runtime.BoolTag, logicError)
			g.tagCheck("r11", runtime.BoolTag, logicError)
		case ast.ArrayGet:
			g.tagCheck("rax", runtime.ArrayTag, notArrayError)
			g.numberCheck("r11", indexNotNumError)
		}
		switch n.Op {
		case ast.Add:
			g.emit("add rax, r11")
		case ast.Sub:
			g.emit("sub rax, r11")
		case ast.Mul:
			g.emit("sar rax, 1")
			g.emit("imul rax, r11")
		case ast.And:
			g.emitShortCircuit(true)
		case ast.Or:
			g.emitShortCircuit(false)
		case ast.Lt, ast.Gt, ast.Le, ast.Ge, ast.Eq, ast.Neq:
			g.emitComparison(n.Op)
		case ast.ArrayGet:
			g.emit("sub rax, 1")
			g.emit("sar r11, 1")
			g.generateArrayIndexChecks("r11", "rax")
			g.emit("mov rax, [rax + r11*8 + 8]")
		}
		switch n.Op {
		case ast.Add, ast.Sub, ast.Mul:
			g.overflowCheck()
		}

	case ast.SeqLet:
		g.compile(n.BoundExp, slots, sfSize, false)
		newSlots := slots.clone()
		addr := len(newSlots) + 1
		g.comment(fmt.Sprintf("storing %s into %s", n.Var, memOperand(addr)))
		g.emit("mov %s, rax", memOperand(addr))
		newSlots[n.Var] = addr
		g.compile(n.Body, newSlots, sfSize, isTail)

	case ast.SeqIf:
		g.compileImm(n.Cond, slots, "rax")
		g.tagCheck("rax", runtime.BoolTag, ifError)
		falseLbl := g.label("if_false")
		endLbl := g.label("if_end")
		g.emit("mov r11, 0x%x", runtime.SnakeFalse)
		g.emit("cmp rax, r11")
		g.emit("je %s", falseLbl)
		g.compile(n.Thn, slots, sfSize, isTail)
		g.emit("jmp %s", endLbl)
		g.emitLabel(falseLbl)
		g.compile(n.Els, slots, sfSize, isTail)
		g.emitLabel(endLbl)

	case ast.SeqArray:
		g.emit("mov [rbp + 0], %d", len(n.Vals))
		for i, v := range n.Vals {
			g.compileImm(v, slots, "rax")
			g.emit("mov [rbp + %d], rax", 8*(i+1))
		}
		g.emit("mov rax, rbp")
		g.emit("add rax, %d", runtime.ArrayTag)
		g.emit("add rbp, %d", 8*(len(n.Vals)+1))

	case ast.SeqArraySet:
		g.compileImm(n.Array, slots, "rax")
		g.tagCheck("rax", runtime.ArrayTag, notArrayError)
		g.emit("sub rax, %d", runtime.ArrayTag)
		g.compileImm(n.Index, slots, "r11")
		g.numberCheck("r11", indexNotNumError)
		g.emit("sar r11, 1")
		g.generateArrayIndexChecks("r11", "rax")
		g.compileImm(n.NewValue, slots, "r10")
		g.emit("mov [rax + r11*8 + 8], r10")
		g.emit("add rax, %d", runtime.ArrayTag)

	case ast.SeqCallClosure:
		g.compileImm(n.Fun, slots, "rax")
		g.tagCheck("rax", runtime.ClosureTag, notClosureError)
		g.emit("sub rax, %d", runtime.ClosureTag)
		g.generateArityCheck("rax", len(n.Args))
		stackOffset := stackAlign(sfSize, snakeCC)
		envOffset := -8
		if !isTail {
			envOffset = -int(8 + stackOffset + 8)
		}
		g.emit("mov r11, [rax + 16]")
		g.emit("mov [rsp + %d], r11", envOffset)
		for i, arg := range n.Args {
			argOffset := -8 * (i + 2)
			if !isTail {
				argOffset -= int(stackOffset + 8)
			}
			g.compileImm(arg, slots, "r11")
			g.emit("mov [rsp + %d], r11", argOffset)
		}
		if isTail {
			g.emit("mov r11, [rax + 8]")
			g.emit("jmp r11")
		} else {
			g.emit("sub rsp, %d", stackOffset)
			g.emit("mov r11, [rax + 8]")
			g.emit("call r11")
			g.emit("add rsp, %d", stackOffset)
		}

	case ast.SeqMakeClosure:
		g.emit("mov [rbp + 0], %d", n.Arity)
		g.emit("mov rax, %s", n.Label)
		g.emit("mov [rbp + 8], rax")
		g.compileImm(n.Env, slots, "rax")
		g.emit("mov [rbp + 16], rax")
		g.emit("mov rax, rbp")
		g.emit("add rax, %d", runtime.ClosureTag)
		g.emit("add rbp, 24")

	case ast.SeqMakeTypeInstance:
		g.emit("mov [rbp + 0], %d", n.Typetag)
		g.compileImm(n.Fields, slots, "rax")
		g.emit("mov [rbp + 8], rax")
		g.emit("mov rax, rbp")
		g.emit("add rax, %d", runtime.TypeTag)
		g.emit("add rbp, 16")

	case ast.SeqMatchType:
		// A non-instance matchee answers false instead of being
		// dereferenced: a match may mix custom arms with primitive
		// arms (or rely on the default), so the scrutinee is any
		// Snake value here.
		g.compileImm(n.Expr, slots, "rax")
		g.emit("mov r10, %d", runtime.TagMask)
		g.emit("and r10, rax")
		g.emit("cmp r10, %d", runtime.TypeTag)
		fls := g.label("matchtype_false")
		tru := g.label("matchtype_true")
		end := g.label("matchtype_end")
		g.emit("jne %s", fls)
		g.emit("sub rax, %d", runtime.TypeTag)
		g.emit("mov r10, [rax]")
		g.emit("mov r11, %d", n.Typetag)
		g.emit("cmp r10, r11")
		g.emit("je %s", tru)
		g.emitLabel(fls)
		g.emit("mov rax, 0x%x", runtime.SnakeFalse)
		g.emit("jmp %s", end)
		g.emitLabel(tru)
		g.emit("mov rax, 0x%x", runtime.SnakeTrue)
		g.emitLabel(end)

	case ast.SeqGetTypeFields:
		g.compileImm(n.Expr, slots, "rax")
		g.emit("mov r10, %d", runtime.TagMask)
		g.emit("and r10, rax")
		g.emit("cmp r10, %d", runtime.TypeTag)
		valid := g.label("getfields_valid")
		end := g.label("getfields_end")
		g.emit("je %s", valid)
		g.emit("mov rax, 0")
		g.emit("jmp %s", end)
		g.emitLabel(valid)
		g.emit("sub rax, %d", runtime.TypeTag)
		g.emit("mov rax, [rax + 8]")
		g.emitLabel(end)

	default:
		panic("codegen: unhandled SeqExp variant")
	}
}

func (g *Generator) emitTagPredicate(tag uint64) {
	g.emit("mov r10, %d", runtime.TagMask)
	g.emit("and r10, rax")
	g.emit("cmp r10, %d", tag)
	tru := g.label("tagpred_true")
	g.emit("mov rax, 0x%x", runtime.SnakeTrue)
	g.emit("je %s", tru)
	g.emit("mov rax, 0x%x", runtime.SnakeFalse)
	g.emitLabel(tru)
}

func (g *Generator) emitNumberPredicate() {
	g.emit("mov r11, 1")
	g.emit("test rax, r11")
	tru := g.label("isnum_true")
	end := g.label("isnum_end")
	g.emit("jz %s", tru)
	g.emit("mov rax, 0x%x", runtime.SnakeFalse)
	g.emit("jmp %s", end)
	g.emitLabel(tru)
	g.emit("mov rax, 0x%x", runtime.SnakeTrue)
	g.emitLabel(end)
}

// emitShortCircuit implements And/Or. Unlike Eq/Neq's bitwise
// compare, both are type-checked and dispatch by exact match against
// the true encoding rather than a bitwise test.
func (g *Generator) emitShortCircuit(isAnd bool) {
	truLbl := g.label("op1_true")
	endLbl := g.label("op_end")
	g.emit("mov r10, 0x%x", runtime.SnakeTrue)
	g.emit("cmp rax, r10")
	if isAnd {
		g.emit("je %s", truLbl)
		g.emit("mov rax, 0x%x", runtime.SnakeFalse)
		g.emit("jmp %s", endLbl)
	} else {
		g.emit("je %s", truLbl)
		g.emit("cmp r11, r10")
		g.emit("je %s", truLbl)
		g.emit("mov rax, 0x%x", runtime.SnakeFalse)
		g.emit("jmp %s", endLbl)
	}
	g.emitLabel(truLbl)
	if isAnd {
		op2true := g.label("op2_true")
		g.emit("cmp r11, r10")
		g.emit("je %s", op2true)
		g.emit("mov rax, 0x%x", runtime.SnakeFalse)
		g.emit("jmp %s", endLbl)
		g.emitLabel(op2true)
	}
	g.emit("mov rax, 0x%x", runtime.SnakeTrue)
	g.emitLabel(endLbl)
}

func (g *Generator) emitComparison(op ast.Prim2Op) {
	g.emit("sar rax, 1")
	g.emit("sar r11, 1")
	g.emit("cmp rax, r11")
	truLbl := g.label("cmp_true")
	endLbl := g.label("cmp_end")
	var jmp string
	switch op {
	case ast.Lt:
		jmp = "jl"
	case ast.Gt:
		jmp = "jg"
	case ast.Le:
		jmp = "jle"
	case ast.Ge:
		jmp = "jge"
	case ast.Eq:
		jmp = "je"
	case ast.Neq:
		jmp = "jne"
	default:
		panic("codegen: emitComparison called on a non-comparison op")
	}
	g.emit("%s %s", jmp, truLbl)
	g.emit("mov rax, 0x%x", runtime.SnakeFalse)
	g.emit("jmp %s", endLbl)
	g.emitLabel(truLbl)
	g.emit("mov rax, 0x%x", runtime.SnakeTrue)
	g.emitLabel(endLbl)
}

// TypeNamesSideFile renders the typetag -> constructor-name table as
// the textual side file the runtime's printer consumes: a string-
// slice literal whose element i is the name of the type whose tag
// is i.
func TypeNamesSideFile(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("[]string{%s}\n", strings.Join(quoted, ", "))
}
