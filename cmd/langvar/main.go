// Package main implements the langvar compiler binary.
//
// Philosophy: Fast, minimal, elegant - one pass from source to WebAssembly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GriffinCanCode/langvar-compiler/pkg/compiler"
	"github.com/GriffinCanCode/langvar-compiler/pkg/frontend"
	"github.com/GriffinCanCode/langvar-compiler/pkg/logger"
	"github.com/GriffinCanCode/langvar-compiler/pkg/runtime"
	"github.com/GriffinCanCode/langvar-compiler/pkg/tychecker"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var code int
	switch cmd {
	case "compile":
		code = cmdCompile(os.Args[2:])
	case "run":
		code = cmdRun(os.Args[2:])
	case "check":
		code = cmdCheck(os.Args[2:])
	case "repl":
		code = cmdRepl(os.Args[2:])
	case "version":
		fmt.Printf("langvar compiler version %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		code = 1
	}
	os.Exit(code)
}

func usage() {
	fmt.Println(`langvar - Compile var programs to WebAssembly

Usage:
    langvar compile <source.py> [-o output]  Compile to WebAssembly
    langvar run <source.py>                  Compile and execute
    langvar check <source.py>                Parse and type check only
    langvar repl                             Interactive session
    langvar version                          Show compiler version
    langvar help                             Show this help message

Options:
    -o <file>        Output file, "-" for stdout (default: source name)
    -format <fmt>    Output format: wat or wasm (default: from -o, else wat)
    -maxmem <pages>  Maximum memory size in 64 KiB pages (default: 100)
    -verify          Validate the module's stack discipline before writing
    -v               Verbose output

Environment:
    LANGVAR_MAXMEM   Default for -maxmem`)
}

// options are the flags shared by the subcommands.
type options struct {
	output  string
	format  string
	maxMem  uint
	verify  bool
	verbose bool
}

func newFlagSet(name string, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.UintVar(&opts.maxMem, "maxmem", 0, "maximum memory size in pages")
	fs.BoolVar(&opts.verbose, "v", false, "verbose output")
	return fs
}

// parseSource parses flags before and after the single source argument.
func parseSource(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return "", errors.New("no input file")
	}
	source := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return "", err
	}
	if extra := fs.Args(); len(extra) > 0 {
		return "", fmt.Errorf("unexpected arguments: %s", strings.Join(extra, " "))
	}
	return source, nil
}

func setup(opts *options) (compiler.Config, error) {
	level := logger.LevelWarn
	if opts.verbose {
		level = logger.LevelDebug
	}
	if err := logger.Init(logger.Config{Level: level, Format: "text", Output: os.Stderr}); err != nil {
		return compiler.Config{}, err
	}

	cfg, err := compiler.DefaultConfig().FromEnv()
	if err != nil {
		return cfg, err
	}
	if opts.maxMem != 0 {
		cfg.MaxMemSize = uint32(opts.maxMem)
	}
	return cfg, cfg.Validate()
}

func compileFile(path string, cfg compiler.Config) (*wasm.Module, error) {
	logger.LogFileProcessing(path)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compiler.CompileSource(path, string(src), cfg)
}

func cmdCompile(args []string) int {
	var opts options
	fs := newFlagSet("compile", &opts)
	fs.StringVar(&opts.output, "o", "", "output file")
	fs.StringVar(&opts.format, "format", "", "output format (wat, wasm)")
	fs.BoolVar(&opts.verify, "verify", false, "validate before writing")

	source, err := parseSource(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	cfg, err := setup(&opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	start := time.Now()
	logger.LogCompilerStart(args)
	err = compileTo(source, &opts, cfg)
	logger.LogCompilerComplete(err == nil, time.Since(start).String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func compileTo(source string, opts *options, cfg compiler.Config) error {
	format, err := outputFormat(opts.format, opts.output)
	if err != nil {
		return err
	}

	m, err := compileFile(source, cfg)
	if err != nil {
		return err
	}
	if opts.verify {
		if err := wasm.Validate(m); err != nil {
			return err
		}
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(source, filepath.Ext(source)) + "." + format
	}

	var w io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if format == "wasm" {
		bin, err := wasm.Encode(m)
		if err != nil {
			return err
		}
		_, err = w.Write(bin)
		return err
	}
	return wasm.Print(w, m)
}

func outputFormat(format, output string) (string, error) {
	switch format {
	case "wat", "wasm":
		return format, nil
	case "":
		if filepath.Ext(output) == ".wasm" {
			return "wasm", nil
		}
		return "wat", nil
	default:
		return "", fmt.Errorf("unknown format %q (want wat or wasm)", format)
	}
}

func cmdRun(args []string) int {
	var opts options
	fs := newFlagSet("run", &opts)

	source, err := parseSource(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	cfg, err := setup(&opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	m, err := compileFile(source, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := runtime.Run(context.Background(), m, runtime.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func cmdCheck(args []string) int {
	var opts options
	fs := newFlagSet("check", &opts)

	source, err := parseSource(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if _, err := setup(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	src, err := os.ReadFile(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	mod, err := frontend.Parse(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", source, err)
		return 1
	}
	res, err := tychecker.Check(mod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", source, err)
		return 1
	}

	names := make([]string, len(res.Vars))
	for i, v := range res.Vars {
		names[i] = v.Name
	}
	fmt.Printf("%s: ok, %d statements, variables: [%s]\n", source, len(mod.Stmts), strings.Join(names, " "))
	return 0
}
