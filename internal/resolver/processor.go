package resolver

import (
	"strings"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
)

// Processor runs type resolution as a pipeline stage, stashing the
// resolved name->typetag table in the context's TypeTags field so
// the driver can emit the typetag name side file.
type Processor struct{}

func (Processor) Name() string { return "resolve" }

// TypeNames renders the name->typetag table as the ordered
// constructor-name slice the side file requires: element i is the
// name of the type whose tag is i. By the time the resolver records
// a declaration, uniquify has already mangled its name to
// "__custom_type_<tag>_<name>"; the runtime's printer wants the
// source name back, so the mangling is stripped here.
func TypeNames(typeTags map[string]uint64) []string {
	names := make([]string, len(typeTags))
	for name, tag := range typeTags {
		names[tag] = sourceTypeName(name)
	}
	return names
}

// sourceTypeName undoes uniquify's "__custom_type_<tag>_<name>"
// mangling. The tag is all digits and the first underscore after it
// ends it, so any underscores in the source name itself survive. A
// name without the mangling prefix passes through unchanged.
func sourceTypeName(name string) string {
	trimmed, ok := strings.CutPrefix(name, "__custom_type_")
	if !ok {
		return name
	}
	_, rest, ok := strings.Cut(trimmed, "_")
	if !ok {
		return name
	}
	return rest
}

func (Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	prog, ok := ctx.Program.(*ast.Program)
	if !ok {
		panic("resolver.Processor: expected *ast.Program")
	}
	resolved, typeTags := Resolve(ast.RetagProgram(prog))
	ctx.Program = resolved
	if ctx.TypeTags == nil {
		ctx.TypeTags = typeTags
	}
	return ctx
}
