package codegen

import (
	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
)

// Processor runs code generation as the pipeline's final stage. It
// does not retag its input — SeqExp carries no tag, there is nothing
// left for a later stage to rename around, and Emit mints its own
// labels off a private counter (see Generator.label).
type Processor struct{}

func (Processor) Name() string { return "codegen" }

func (Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	prog, ok := ctx.Program.(*ast.SeqProgram)
	if !ok {
		panic("codegen.Processor: expected *ast.SeqProgram")
	}
	if ctx.HeapSlots > 0 {
		ctx.Program = EmitWithHeapSlots(prog, ctx.HeapSlots)
	} else {
		ctx.Program = Emit(prog)
	}
	return ctx
}
