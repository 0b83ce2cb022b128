// Package pipeline chains the compiler's passes into a single run.
package pipeline

import "github.com/mohnishaggarwal/snake-compiler/internal/diagnostics"

// PipelineContext threads a single compilation's state through every
// processor. Program holds whatever shape the current stage produced
// (surface *ast.Program, then a uniquified *ast.Program, and so on
// down to the codegen stage's assembly string) — each Processor knows
// which shape it expects and asserts it.
type PipelineContext struct {
	File string
	Program any
	Errors  []*diagnostics.Error

	// TypeTags is populated by the resolver stage: every user type
	// name mapped to its assigned typetag. The code generator's
	// driver uses it to emit the typetag name side file.
	TypeTags map[string]uint64

	// HeapSlots overrides the code generator's static heap arena
	// size. Zero means the codegen package's own default
	// (runtime.HeapSlots).
	HeapSlots int
}

// Failed reports whether any processor has recorded an error.
func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0
}

func (c *PipelineContext) fail(err *diagnostics.Error) *PipelineContext {
	if err.File == "" {
		err.File = c.File
	}
	c.Errors = append(c.Errors, err)
	return c
}

// Processor is a single named pipeline stage.
type Processor interface {
	Name() string
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline is a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Unlike a language-server pipeline that
// wants diagnostics from every stage even after a failure, each of
// the compiler's stages depends on invariants the previous one
// established, so Run stops at the first stage that records an
// error instead of feeding a rejected tree into the next pass.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		if ctx.Failed() {
			return ctx
		}
	}
	return ctx
}
