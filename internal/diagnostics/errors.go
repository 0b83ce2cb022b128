// Package diagnostics defines the compiler's closed error taxonomy.
package diagnostics

import "fmt"

// ErrorCode is a stable, machine-readable identifier for one of the
// compiler's error kinds. Kept as a named string (not an iota) so a
// code survives being logged, cached, or compared across versions.
type ErrorCode string

const (
	UnboundVariable            ErrorCode = "E-UNBOUND-VAR"
	DuplicateBinding           ErrorCode = "E-DUP-BINDING"
	Overflow                   ErrorCode = "E-OVERFLOW"
	DuplicateFunName           ErrorCode = "E-DUP-FUN-NAME"
	DuplicateArgName           ErrorCode = "E-DUP-ARG-NAME"
	ShadowPrimType             ErrorCode = "E-SHADOW-PRIM-TYPE"
	DuplicateTypeDefs          ErrorCode = "E-DUP-TYPE-DEFS"
	UndefinedType              ErrorCode = "E-UNDEFINED-TYPE"
	WrongTypeArity             ErrorCode = "E-WRONG-TYPE-ARITY"
	DuplicateMatchArms         ErrorCode = "E-DUP-MATCH-ARMS"
	DuplicateMatchArmArguments ErrorCode = "E-DUP-MATCH-ARM-ARGS"
	WrongTypeCall              ErrorCode = "E-WRONG-TYPE-CALL"
)

// Span is a source location, carried on surface AST nodes so errors
// can point back at the offending text. The surface parser that
// produces these is outside this compiler's scope; this struct is
// the contract a parser must populate.
type Span struct {
	Line   int
	Column int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Error is the single concrete error type the compiler ever returns
// for an ill-formed program. Its Code identifies which of the
// checker's twelve rejection rules fired; Name carries the offending
// identifier (variable, type, function, or argument name) so the
// message and any tooling built on top of it don't need to re-parse
// the message string.
type Error struct {
	Code     ErrorCode
	Span     Span
	Name     string
	File     string
	Message  string
	Expected int // WrongTypeArity: arity the type declares
	Given    int // WrongTypeArity: number of binders at the match arm
	Num      int64 // Overflow: the literal that didn't fit
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%s: %s: %s", e.File, e.Span, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Code, e.Message)
}

// New builds an Error from its code, span, offending name and a
// message the caller has already rendered.
func New(code ErrorCode, span Span, name string, message string) *Error {
	return &Error{Code: code, Span: span, Name: name, Message: message}
}
