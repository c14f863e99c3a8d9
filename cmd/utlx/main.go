// Command utlx runs UTL-X transformation scripts.
//
// Usage:
//
//	utlx transform [flags] <script.utlx>   Transform a document
//	utlx repl [flags]                      Start an interactive session
//	utlx functions [-format text|json|yaml] List the function catalog
//	utlx version                           Print the version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	utlx "github.com/grauwen/utl-x-sub015"
	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/ext/extcrypto"
	"github.com/grauwen/utl-x-sub015/pkg/ext/extwasm"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
)

const appName = "utlx"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "transform":
		os.Exit(cmdTransform(args))
	case "repl":
		os.Exit(cmdRepl(args))
	case "functions":
		os.Exit(cmdFunctions(args, os.Stdout))
	case "version":
		fmt.Println(utlx.Version())
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `UTL-X %s

Usage:
  %s transform [flags] <script.utlx>      Transform a document
  %s repl [flags]                         Start an interactive session
  %s functions [-format text|json|yaml]   List the function catalog
  %s version                              Print the version

Run '%s <command> -h' for the flags of a command.
`, utlx.Version(), appName, appName, appName, appName, appName)
}

// runtimeFlags are shared by the commands that evaluate scripts.
type runtimeFlags struct {
	logLevel string
	debug    bool
	maxDepth int
	crypto   bool
	wasm     string
}

func (f *runtimeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.BoolVar(&f.debug, "debug", false, "log every evaluation step at debug level")
	fs.IntVar(&f.maxDepth, "max-depth", 0, "maximum function call depth (0 = unlimited)")
	fs.BoolVar(&f.crypto, "crypto", false, "enable the uuid, hash and hmac functions")
	fs.StringVar(&f.wasm, "wasm", "", "register the numeric exports of a WebAssembly module")
}

// setup installs the logger and builds the evaluator options. The returned
// cleanup releases the wasm module, if any.
func (f *runtimeFlags) setup(ctx context.Context) ([]evaluator.EvalOption, func(), error) {
	logger, err := newLogger(f.logLevel)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	cleanup := func() {}
	var exts []functions.Extension
	if f.crypto {
		exts = append(exts, extcrypto.Extension())
	}
	if f.wasm != "" {
		data, err := os.ReadFile(f.wasm)
		if err != nil {
			return nil, nil, fmt.Errorf("read wasm module: %w", err)
		}
		mod, err := extwasm.Load(ctx, data, extwasm.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = mod.Close(ctx) }
		exts = append(exts, mod.Extension())
	}

	reg, err := utlx.NewRegistry(exts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	opts := []evaluator.EvalOption{
		evaluator.WithRegistry(reg),
		evaluator.WithLogger(logger),
		evaluator.WithDebug(f.debug),
	}
	if f.maxDepth > 0 {
		opts = append(opts, evaluator.WithMaxDepth(f.maxDepth))
	}
	return opts, cleanup, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func cmdTransform(args []string) int {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	var rt runtimeFlags
	rt.register(fs)
	inPath := fs.String("input", "-", "input document (- for stdin, empty for none)")
	outPath := fs.String("output", "-", "output file (- for stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s transform [flags] <script.utlx>\n", appName)
		return 2
	}

	ctx := context.Background()
	evalOpts, cleanup, err := rt.setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	}
	defer cleanup()

	scriptPath := fs.Arg(0)
	src, err := os.ReadFile(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, scriptPath, err)
		return 1
	}
	input, err := readInput(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}

	out, err := utlx.Transform(ctx, string(src), input, utlx.WithEvalOptions(evalOpts...))
	if err != nil {
		reportError(os.Stderr, string(src), err)
		return 1
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	if err := writeOutput(*outPath, out); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 1
	}
	return 0
}

func readInput(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// reportError prints parse errors with a source excerpt and runtime errors
// with their position.
func reportError(w io.Writer, src string, err error) {
	var list types.ParseErrors
	if errors.As(err, &list) {
		for _, pe := range list {
			fmt.Fprintln(w, strings.TrimRight(pe.Snippet(src), "\n"))
		}
		return
	}
	var pe *types.ParseError
	if errors.As(err, &pe) {
		fmt.Fprintln(w, strings.TrimRight(pe.Snippet(src), "\n"))
		return
	}
	fmt.Fprintf(w, "%s: %v\n", appName, err)
}
