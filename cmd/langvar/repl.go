package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/GriffinCanCode/langvar-compiler/pkg/compiler"
	"github.com/GriffinCanCode/langvar-compiler/pkg/runtime"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

const (
	historyFile = ".langvar_history"
	prompt      = "var> "
)

const replHelp = `Statements are added to the session program when they compile.
    :wat     print the session program as WebAssembly text
    :run     execute the session program
    :undo    remove the last statement
    :reset   clear the session program
    :quit    leave the repl`

// session is the program built up in the repl, one accepted line at a time.
type session struct {
	lines []string
	cfg   compiler.Config
}

func (s *session) source(extra ...string) string {
	return strings.Join(append(append([]string{}, s.lines...), extra...), "\n")
}

// add compiles the session with line appended and keeps line if it compiles.
func (s *session) add(line string) error {
	if _, err := compiler.CompileSource("<repl>", s.source(line), s.cfg); err != nil {
		return err
	}
	s.lines = append(s.lines, line)
	return nil
}

func (s *session) module() (*wasm.Module, error) {
	return compiler.CompileSource("<repl>", s.source(), s.cfg)
}

func cmdRepl(args []string) int {
	var opts options
	fs := newFlagSet("repl", &opts)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := setup(&opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	fmt.Printf("langvar %s - type :help for commands\n", version)

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

	s := &session{cfg: cfg}
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if quit := s.command(line); quit {
				return 0
			}
			continue
		}

		if err := s.add(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// command runs a repl command and reports whether the repl should exit.
func (s *session) command(cmd string) bool {
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Println(replHelp)
	case ":reset":
		s.lines = nil
	case ":undo":
		if n := len(s.lines); n > 0 {
			s.lines = s.lines[:n-1]
		}
	case ":wat":
		m, err := s.module()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		_ = wasm.Print(os.Stdout, m)
	case ":run":
		m, err := s.module()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		if err := runtime.Run(context.Background(), m, runtime.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	default:
		fmt.Printf("unknown command %s. Type :help for commands.\n", cmd)
	}
	return false
}
