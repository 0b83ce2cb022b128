package seq

import (
	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
)

// Processor runs the sequentializer as a pipeline stage. Like every
// earlier tag-sensitive stage it retags its input first — here under
// one shared counter spanning every lifted function plus main, since
// two functions lifted from unrelated call sites can otherwise carry
// overlapping tags.
type Processor struct{}

func (Processor) Name() string { return "sequentialize" }

func (Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	lp, ok := ctx.Program.(*ast.LiftedProgram)
	if !ok {
		panic("seq.Processor: expected *ast.LiftedProgram")
	}
	ctx.Program = Sequentialize(ast.RetagLifted(lp))
	return ctx
}
