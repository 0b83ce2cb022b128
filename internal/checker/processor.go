package checker

import (
	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
)

// Processor runs the semantic checker as a pipeline stage. It leaves
// ctx.Program untouched on success — the checker only validates,
// later stages transform.
type Processor struct{}

func (Processor) Name() string { return "check" }

func (Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	prog, ok := ctx.Program.(*ast.Program)
	if !ok {
		panic("checker.Processor: expected *ast.Program")
	}
	if err := Check(prog); err != nil {
		err.File = ctx.File
		ctx.Errors = append(ctx.Errors, err)
	}
	return ctx
}
