package uniquify

import (
	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
)

// Processor runs α-renaming as a pipeline stage.
type Processor struct{}

func (Processor) Name() string { return "uniquify" }

func (Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	prog, ok := ctx.Program.(*ast.Program)
	if !ok {
		panic("uniquify.Processor: expected *ast.Program")
	}
	ctx.Program = Uniquify(ast.RetagProgram(prog))
	return ctx
}
