// Command snakec drives the compiler pipeline over one or more
// JSON-encoded surface programs (internal/ast's UnmarshalProgram),
// emitting NASM assembly and a typetag side file per input. Batch
// compilation fans the independent compilations out across goroutines
// with errgroup; the pipeline inside each one stays single-threaded
// end to end.
package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	_ "modernc.org/sqlite"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/mohnishaggarwal/snake-compiler/internal/ast"
	"github.com/mohnishaggarwal/snake-compiler/internal/checker"
	"github.com/mohnishaggarwal/snake-compiler/internal/codegen"
	"github.com/mohnishaggarwal/snake-compiler/internal/config"
	"github.com/mohnishaggarwal/snake-compiler/internal/diagnostics"
	"github.com/mohnishaggarwal/snake-compiler/internal/lift"
	"github.com/mohnishaggarwal/snake-compiler/internal/pipeline"
	"github.com/mohnishaggarwal/snake-compiler/internal/resolver"
	"github.com/mohnishaggarwal/snake-compiler/internal/seq"
	"github.com/mohnishaggarwal/snake-compiler/internal/uniquify"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("snakec", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to snakec.yaml (defaults to the nearest one found by walking up from cwd)")
	outFlag := fs.String("out", "", "output assembly path (single-file mode only)")
	dumpIRFlag := fs.Bool("dump-ir", false, "bundle every pipeline stage's IR as a txtar archive to stdout instead of compiling")
	dumpConfig := fs.Bool("dump-config", false, "print the resolved configuration as YAML and exit")
	explainCache := fs.Bool("explain-cache", false, "print each input's cache key and hit/miss status without writing output")
	noCache := fs.Bool("no-cache", false, "bypass the compile cache for this invocation")
	verbose := fs.Bool("v", false, "report emitted assembly and heap arena size in human-readable form")
	fmtFlag := fs.Bool("fmt", false, "column-align an already-emitted .s file's operands and print it to stdout, instead of compiling")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sessionID := uuid.New().String()
	cfg, cfgSrc, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *dumpConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "snakec: marshaling config:", err)
			return 1
		}
		os.Stdout.Write(out)
		return 0
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "snakec: no input files")
		return 2
	}

	colorOut := isatty.IsTerminal(os.Stdout.Fd())
	if cfg.Color != nil {
		colorOut = *cfg.Color
	}

	if *dumpIRFlag {
		if len(inputs) != 1 {
			fmt.Fprintln(os.Stderr, "snakec: -dump-ir requires exactly one input file")
			return 2
		}
		return dumpIR(inputs[0])
	}

	if *fmtFlag {
		if len(inputs) != 1 {
			fmt.Fprintln(os.Stderr, "snakec: -fmt requires exactly one input file")
			return 2
		}
		return fmtAsm(inputs[0])
	}

	var db *sql.DB
	if cfg.CacheEnabled() && !*noCache {
		db, err = openCache(cfg.CacheDB)
		if err != nil {
			fmt.Fprintln(os.Stderr, "snakec: opening compile cache:", err)
			return 1
		}
		defer db.Close()
	}

	if *explainCache {
		return explainCacheHits(inputs, cfg, cfgSrc, db)
	}

	g, ctx := errgroup.WithContext(context.Background())
	results := make([]error, len(inputs))
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			out := *outFlag
			if len(inputs) > 1 {
				out = "" // per-file default when batching
			}
			err := compileFile(ctx, in, out, cfg, cfgSrc, db, sessionID, colorOut, *verbose)
			results[i] = err
			return nil // collect per-file errors instead of aborting the batch
		})
	}
	_ = g.Wait()

	failed := false
	for i, err := range results {
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", inputs[i], err)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func loadConfig(explicitPath string) (*config.Config, []byte, error) {
	path := explicitPath
	if path == "" {
		found, err := config.Find(".")
		if err != nil {
			return nil, nil, err
		}
		path = found
	}
	if path == "" {
		return &config.Config{CacheDB: ".snakec-cache.sqlite"}, nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := config.Parse(data, path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, data, nil
}

func openCache(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS compiles (
		key TEXT PRIMARY KEY,
		asm TEXT,
		typenames TEXT,
		created_at INTEGER
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// cacheKey hashes the source text, the config file's raw bytes, and
// the compiler version together — any change to any of the three must
// invalidate a cached compile.
func cacheKey(source, cfgSrc []byte) string {
	h := sha256.New()
	h.Write(source)
	h.Write(cfgSrc)
	h.Write([]byte(config.Version))
	return hex.EncodeToString(h.Sum(nil))
}

func explainCacheHits(inputs []string, cfg *config.Config, cfgSrc []byte, db *sql.DB) int {
	if !cfg.CacheEnabled() {
		fmt.Println("cache disabled by configuration")
		return 0
	}
	status := 0
	for _, in := range inputs {
		source, err := os.ReadFile(in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", in, err)
			status = 1
			continue
		}
		key := cacheKey(source, cfgSrc)
		hit := false
		if db != nil {
			var count int
			if err := db.QueryRow(`SELECT count(*) FROM compiles WHERE key = ?`, key).Scan(&count); err == nil {
				hit = count > 0
			}
		}
		fmt.Printf("%s: key=%s cache=%s\n", in, key, hitLabel(hit))
	}
	return status
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// buildPipeline returns the six fixed pipeline stages in order.
func buildPipeline() *pipeline.Pipeline {
	return pipeline.New(
		checker.Processor{},
		uniquify.Processor{},
		resolver.Processor{},
		lift.Processor{},
		seq.Processor{},
		codegen.Processor{},
	)
}

func compileFile(ctx context.Context, in, outOverride string, cfg *config.Config, cfgSrc []byte, db *sql.DB, sessionID string, colorOut, verbose bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	source, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	outPath := outOverride
	if outPath == "" {
		outPath = cfg.OutPath(in)
	}
	typesOutPath := cfg.TypesOut
	if typesOutPath == "" {
		typesOutPath = filepath.Join(filepath.Dir(outPath), "custom_types.go")
	}

	key := cacheKey(source, cfgSrc)
	if db != nil {
		var asm, typenames string
		err := db.QueryRow(`SELECT asm, typenames FROM compiles WHERE key = ?`, key).Scan(&asm, &typenames)
		if err == nil {
			fmt.Fprintf(os.Stderr, "snakec[%s]: %s: cache hit (%s)\n", sessionID, in, key[:12])
			return writeOutputs(outPath, typesOutPath, asm, typenames, cfg.EffectiveHeapSlots(), verbose)
		}
	}

	prog, err := ast.UnmarshalProgram(source)
	if err != nil {
		return err
	}

	pctx := &pipeline.PipelineContext{File: in, Program: prog, HeapSlots: cfg.EffectiveHeapSlots()}
	pctx = buildPipeline().Run(pctx)
	if pctx.Failed() {
		return formatErrors(pctx.Errors, colorOut)
	}

	asm, ok := pctx.Program.(string)
	if !ok {
		return fmt.Errorf("internal error: pipeline did not end in assembly text")
	}
	typenames := codegen.TypeNamesSideFile(resolver.TypeNames(pctx.TypeTags))

	if db != nil {
		_, err = db.Exec(`INSERT OR REPLACE INTO compiles (key, asm, typenames, created_at) VALUES (?, ?, ?, ?)`,
			key, asm, typenames, time.Now().Unix())
		if err != nil {
			fmt.Fprintf(os.Stderr, "snakec[%s]: %s: warning: caching compile: %v\n", sessionID, in, err)
		}
	}

	return writeOutputs(outPath, typesOutPath, asm, typenames, cfg.EffectiveHeapSlots(), verbose)
}

func writeOutputs(outPath, typesOutPath, asm, typenames string, heapSlots int, verbose bool) error {
	if err := os.WriteFile(outPath, []byte(asm), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := os.WriteFile(typesOutPath, []byte(typenames), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", typesOutPath, err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s: %s assembly, heap arena %s\n",
			outPath, humanize.Bytes(uint64(len(asm))), humanize.Bytes(uint64(8*heapSlots)))
	}
	return nil
}

// fmtAsm column-aligns an emitted .s file's mnemonic, operand, and
// trailing-comment fields and writes the result to stdout. It is a
// debug aid for reading generated assembly side by side with its
// source, not a validating assembler frontend — label lines, blank
// lines, and bare directives pass through untouched.
// golang.org/x/tools has no column-alignment facility for non-Go
// text (its formatting packages are gofmt/goimports-specific), so
// this uses text/tabwriter, the same stdlib tool gofmt itself is
// built on.
func fmtAsm(in string) int {
	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 4, 2, ' ', 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasSuffix(trimmed, ":") || strings.HasPrefix(trimmed, ";") {
			fmt.Fprintln(tw, line)
			continue
		}
		fields := strings.SplitN(trimmed, " ", 2)
		mnemonic := fields[0]
		rest := ""
		if len(fields) == 2 {
			rest = strings.TrimSpace(fields[1])
		}
		if comment := strings.Index(rest, ";"); comment >= 0 {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", mnemonic, strings.TrimSpace(rest[:comment]), rest[comment:])
		} else {
			fmt.Fprintf(tw, "\t%s\t%s\n", mnemonic, rest)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// dumpIR runs the pipeline stage by stage, bundling every
// intermediate representation's debug dump into one txtar archive on
// stdout, the same archive format the pipeline's golden-fixture
// tests keep their multi-file cases in.
func dumpIR(in string) int {
	source, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	prog, err := ast.UnmarshalProgram(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var files []txtar.File
	pctx := &pipeline.PipelineContext{File: in, Program: prog}
	for _, proc := range []pipeline.Processor{
		checker.Processor{}, uniquify.Processor{}, resolver.Processor{},
		lift.Processor{}, seq.Processor{}, codegen.Processor{},
	} {
		pctx = proc.Process(pctx)
		if pctx.Failed() {
			for _, e := range pctx.Errors {
				files = append(files, txtar.File{Name: proc.Name() + ".error", Data: []byte(e.Error() + "\n")})
			}
			break
		}
		files = append(files, txtar.File{Name: proc.Name() + ".dump", Data: []byte(dumpStage(pctx.Program))})
	}
	os.Stdout.Write(txtar.Format(&txtar.Archive{Files: files}))
	return 0
}

// dumpStage renders whatever shape a pipeline stage's context holds
// as a readable s-expression — each IR variant gets a dedicated
// renderer rather than reflection dumping, so a "-dump-ir" archive
// reads like the program, not like Go syntax.
func dumpStage(program any) string {
	switch p := program.(type) {
	case *ast.Program:
		return ast.PrintSexpr(p) + "\n"
	case *ast.LiftedProgram:
		return ast.PrintLifted(p)
	case *ast.SeqProgram:
		return ast.PrintSeq(p)
	case string:
		return p
	default:
		return fmt.Sprintf("%#v\n", program)
	}
}

// formatErrors renders the checker's rejection as the process's
// returned error, coloring the error code red when stdout is a TTY.
func formatErrors(errs []*diagnostics.Error, colorOut bool) error {
	var msg string
	for _, e := range errs {
		code := string(e.Code)
		if colorOut {
			code = "\x1b[31m" + code + "\x1b[0m"
		}
		msg += fmt.Sprintf("%s:%s: %s: %s\n", e.File, e.Span, code, e.Message)
	}
	return fmt.Errorf("%s", msg)
}
