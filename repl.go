package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/compiler"
	"github.com/strager/cmmc/sexy"
)

const (
	historyFile = ".cmmc_history"
	promptMain  = "cmm> "
	promptCont  = "...  "
)

const replHelp = `Enter (decl ...) and (func ...) items; each one is compiled with
everything entered before it.

Commands:
  :program  Print the whole class
  :symbols  Print the symbol tables
  :reset    Forget every item
  :quit     Exit
`

// session holds the items accepted so far. An item that does not compile
// together with them is rejected and forgotten.
type session struct {
	opts  compiler.Options
	items []*sexy.Node
	last  *compiler.Result
}

func newSession(opts compiler.Options) *session {
	return &session{opts: opts}
}

func (s *session) compile(items []*sexy.Node) (*compiler.Result, error) {
	tree := sexy.NewList(append([]*sexy.Node{sexy.NewSymbol("unit")}, items...)...)
	unit, err := ast.FromSexy(tree)
	if err != nil {
		return nil, err
	}
	res, err := compiler.Compile(unit, s.opts)
	if err != nil {
		return nil, err
	}
	if res.Errors.HasErrors() {
		return nil, res.Errors
	}
	return res, nil
}

// eval compiles the items in source on top of the accepted ones and
// describes what they added.
func (s *session) eval(source string) (string, error) {
	entered, err := sexy.ParseAll(source)
	if err != nil {
		return "", err
	}
	if len(entered) == 0 {
		return "", nil
	}
	items := append(append([]*sexy.Node(nil), s.items...), entered...)
	res, err := s.compile(items)
	if err != nil {
		return "", err
	}
	s.items, s.last = items, res

	var out strings.Builder
	for _, item := range entered {
		switch item.Head() {
		case "func":
			if m := res.Program.Method(item.Items[2].Text); m != nil {
				out.WriteString(m.Text())
			}
		case "decl":
			for _, d := range item.Items[2:] {
				name := d
				if d.Type == sexy.NodeList {
					name = d.Items[0]
				}
				sym := res.Context.Global().LookupSymbol(name.Text)
				fmt.Fprintf(&out, "%s %s\n", sym.Type(), sym.Name())
			}
		}
	}
	return out.String(), nil
}

// command runs a :command and reports whether the session should end.
func (s *session) command(line string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case ":quit", ":q":
		return "", true
	case ":help":
		return replHelp, false
	case ":reset":
		s.items, s.last = nil, nil
		return "session cleared\n", false
	case ":symbols":
		if s.last == nil {
			return "no symbols yet\n", false
		}
		return s.last.Context.Dump(), false
	case ":program":
		if s.last == nil {
			return "no program yet\n", false
		}
		return s.last.Program.Text(), false
	default:
		return "unknown command. Type :help for a list.\n", false
	}
}

func runRepl(out io.Writer, opts compiler.Options) error {
	fmt.Fprintf(out, "cmmc REPL, class %s\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.\n", opts.Program)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		if _, ok := <-sigc; ok {
			ln.Close()
			os.Exit(130)
		}
	}()

	s := newSession(opts)
	for {
		source, ok := readItem(ln)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		if strings.TrimSpace(source) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(source, "\n", " "))

		if strings.HasPrefix(strings.TrimSpace(source), ":") {
			text, quit := s.command(source)
			fmt.Fprint(out, text)
			if quit {
				return nil
			}
			continue
		}

		text, err := s.eval(source)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		fmt.Fprint(out, text)
	}
}

// readItem reads lines until they form complete s-expressions.
func readItem(ln *liner.State) (string, bool) {
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
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if _, err := sexy.ParseAll(b.String()); errors.Is(err, sexy.ErrIncomplete) {
			continue
		}
		return b.String(), true
	}
}
