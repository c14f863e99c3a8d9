package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	utlx "github.com/grauwen/utl-x-sub015"
	"github.com/grauwen/utl-x-sub015/pkg/codec"
	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/parser"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

const (
	promptMain  = "utlx> "
	promptCont  = "...   "
	historyFile = ".utlx_history"
)

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	var rt runtimeFlags
	rt.register(fs)
	inPath := fs.String("input", "", "document bound to @input")
	format := fs.String("format", codec.JSON, "format of the -input document")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	evalOpts, cleanup, err := rt.setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	}
	defer cleanup()

	sess := newSession(evaluator.New(evalOpts...))
	if *inPath != "" {
		data, err := readInput(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
			return 1
		}
		if sess.input, err = codec.Decode(*format, data); err != nil {
			fmt.Fprintf(os.Stderr, "%s: decode input: %v\n", appName, err)
			return 1
		}
	}

	fmt.Printf("UTL-X %s. Type :help for help, :quit to exit.\n", utlx.Version())

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	var saveOnce sync.Once
	saveHistory := func() {
		saveOnce.Do(func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		})
	}
	defer saveHistory()

	// A pending Prompt cannot be interrupted, so a termination signal saves
	// the history itself before exiting.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigc)
		close(done)
	}()
	go handleSignals(sigc, done, func(os.Signal) {
		saveHistory()
		ln.Close()
		os.Exit(130)
	})

	for {
		src, ok := readByParseProbe(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		code := strings.TrimSpace(src)
		if code == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(code, ":") {
			if quit := sess.command(os.Stdout, code); quit {
				return 0
			}
			continue
		}

		v, err := sess.eval(ctx, src)
		if err != nil {
			reportError(os.Stderr, src, err)
			continue
		}
		if v != nil {
			fmt.Println(render(v))
		}
	}
}

// handleSignals calls onSignal for the first signal received on sigc. It
// returns without calling it once done is closed.
func handleSignals(sigc <-chan os.Signal, done <-chan struct{}, onSignal func(os.Signal)) {
	select {
	case sig := <-sigc:
		onSignal(sig)
	case <-done:
	}
}

// readByParseProbe reads lines until they form a complete script. Input is
// incomplete while the parser reports an unexpected end.
func readByParseProbe(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending entry.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, true
		}
	}
}

func incomplete(src string) bool {
	if strings.TrimSpace(src) == "" {
		return false
	}
	_, err := parser.Compile(src)
	var pe *types.ParseError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code {
	case types.ErrUnexpectedEnd, types.ErrStringNotClosed, types.ErrCommentNotClosed:
		return true
	}
	return false
}

// session keeps top-level definitions alive between entries.
type session struct {
	ev    *evaluator.Evaluator
	scope *env.Frame
	names []string
	input udm.Value
}

func newSession(ev *evaluator.Evaluator) *session {
	return &session{ev: ev, scope: env.New(), input: udm.NullValue}
}

// eval runs one entry. Top-level let bindings and function definitions
// without a result are kept in the session scope; the value of a trailing
// expression is returned. A nil value means nothing to print.
func (s *session) eval(ctx context.Context, src string) (udm.Value, error) {
	prog, err := parser.Compile(src)
	if err != nil {
		return nil, err
	}

	stmts := []types.Node{prog.Body()}
	if b, ok := prog.Body().(*types.Block); ok {
		stmts = append([]types.Node(nil), b.Statements...)
		if b.Result != nil {
			stmts = append(stmts, b.Result)
		}
	}

	var last udm.Value
	for _, stmt := range stmts {
		last = nil
		switch n := stmt.(type) {
		case *types.LetBinding:
			if n.Body == nil {
				v, err := s.run(ctx, prog, n.Value)
				if err != nil {
					return nil, err
				}
				s.define(n.Name, v)
				continue
			}
		case *types.FunctionDef:
			fn := &udm.Lambda{Name: n.Name, Params: n.Params, Body: n.Body}
			s.define(n.Name, fn)
			fn.Closure = s.scope
			continue
		}
		v, err := s.run(ctx, prog, stmt)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (s *session) run(ctx context.Context, prog *types.Program, node types.Node) (udm.Value, error) {
	p := types.NewProgram(prog.Header(), node, prog.Source())
	return s.ev.Evaluate(ctx, p, s.input, s.scope)
}

// define binds name in the session scope. Redefinitions open a new frame so
// that closures created earlier keep the value they captured.
func (s *session) define(name string, v udm.Value) {
	if s.scope.Has(name) {
		s.scope = s.scope.Child()
	} else {
		s.names = append(s.names, name)
	}
	s.scope.Bind(name, v)
}

// command handles a colon command and reports whether to quit.
func (s *session) command(w io.Writer, cmd string) bool {
	switch fields := strings.Fields(cmd); fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprintln(w, "  :env          list session bindings")
		fmt.Fprintln(w, "  :reset        drop session bindings")
		fmt.Fprintln(w, "  :funcs [cat]  list functions, optionally of one category")
		fmt.Fprintln(w, "  :quit         exit")
	case ":env":
		names := append([]string(nil), s.names...)
		sort.Strings(names)
		for _, name := range names {
			v, _ := s.scope.Get(name)
			fmt.Fprintf(w, "  %s = %s\n", name, render(v))
		}
	case ":reset":
		s.scope = env.New()
		s.names = nil
	case ":funcs":
		category := ""
		if len(fields) > 1 {
			category = fields[1]
		}
		for _, e := range s.ev.Registry().Catalog() {
			if category == "" || strings.EqualFold(e.Category, category) {
				fmt.Fprintf(w, "  %-14s %-9s %s\n", e.Name, e.Category, e.Description)
			}
		}
	default:
		fmt.Fprintf(w, "unknown command %s; type :help\n", fields[0])
	}
	return false
}

// render prints strings quoted so that they are distinguishable from
// numbers and keywords.
func render(v udm.Value) string {
	if s, ok := v.(udm.String); ok {
		data, err := codec.EncodeJSON(s)
		if err == nil {
			return string(data)
		}
	}
	return v.String()
}
