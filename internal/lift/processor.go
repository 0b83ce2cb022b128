package lift

import (
	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
)

// Processor runs lambda lifting as a pipeline stage. Like uniquify
// and resolve, it retags its input immediately before running so the
// lifter's #env_<tag>/label naming can't collide with a tag a prior
// stage's synthesized node left at zero.
type Processor struct{}

func (Processor) Name() string { return "lift" }

func (Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	prog, ok := ctx.Program.(*ast.Program)
	if !ok {
		panic("lift.Processor: expected *ast.Program")
	}
	ctx.Program = Lift(ast.RetagProgram(prog))
	return ctx
}
