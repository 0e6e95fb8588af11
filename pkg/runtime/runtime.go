// Package runtime executes compiled modules.
//
// Design: The compiler never performs I/O; the routines a program imports
// are provided here as wazero host functions bound to an io.Reader and an
// io.Writer. Memory is provided by a separate one-memory module, since
// host modules cannot export memories.
package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"

	"github.com/GriffinCanCode/langvar-compiler/pkg/compiler"
	"github.com/GriffinCanCode/langvar-compiler/pkg/logger"
	"github.com/GriffinCanCode/langvar-compiler/pkg/wasm"
)

// ErrEndOfInput is returned when input_int finds no more input.
var ErrEndOfInput = errors.New("input_int: unexpected end of input")

// Config configures a program run.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	// MaxMemSize is the maximum size of the provided memory, in pages.
	// It must not exceed the maximum the program declares.
	MaxMemSize uint32
}

// DefaultConfig runs against the process's standard streams.
func DefaultConfig() Config {
	return Config{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		MaxMemSize: compiler.DefaultMaxMemSize,
	}
}

// Run encodes m and executes its main export. The provided memory is sized
// after the memory m imports.
func Run(ctx context.Context, m *wasm.Module, cfg Config) error {
	for _, imp := range m.Imports {
		if mem, ok := imp.Desc.(wasm.ImportMemory); ok && mem.Max > 0 {
			cfg.MaxMemSize = mem.Max
		}
	}
	bin, err := wasm.Encode(m)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return RunBinary(ctx, bin, cfg)
}

// RunBinary executes the main export of an encoded module.
func RunBinary(ctx context.Context, bin []byte, cfg Config) error {
	if cfg.MaxMemSize == 0 {
		cfg.MaxMemSize = compiler.DefaultMaxMemSize
	}
	out := bufio.NewWriter(cfg.Stdout)
	defer out.Flush()

	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer r.Close(ctx)

	h := &host{in: bufio.NewReader(cfg.Stdin), out: out}
	_, err := r.NewHostModuleBuilder(wasm.ConsoleModule).
		NewFunctionBuilder().WithFunc(h.printI64).Export("print_i64").
		NewFunctionBuilder().WithFunc(h.inputI64).Export("input_i64").
		Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate %s: %w", wasm.ConsoleModule, err)
	}

	memBin, err := wasm.Encode(memoryModule(cfg.MaxMemSize))
	if err != nil {
		return fmt.Errorf("encode memory module: %w", err)
	}
	if _, err := r.InstantiateWithConfig(ctx, memBin, wazero.NewModuleConfig().WithName(wasm.MemoryModule)); err != nil {
		return fmt.Errorf("instantiate %s: %w", wasm.MemoryModule, err)
	}

	logger.Debug("Instantiating program", "bytes", len(bin), "max_pages", cfg.MaxMemSize)
	mod, err := r.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithName("program"))
	if err != nil {
		return fmt.Errorf("instantiate program: %w", err)
	}

	mainFn := mod.ExportedFunction(compiler.MainExport)
	if mainFn == nil {
		return fmt.Errorf("program does not export %q", compiler.MainExport)
	}
	if _, err := mainFn.Call(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Debug("Program finished")
	return out.Flush()
}

// memoryModule defines and exports the memory programs import.
func memoryModule(maxPages uint32) *wasm.Module {
	return &wasm.Module{
		Memories: []wasm.Memory{{ID: wasm.Mem, Min: 1, Max: maxPages}},
		Exports:  []wasm.Export{{Name: wasm.MemoryName, Desc: wasm.ExportMemory{ID: wasm.Mem}}},
	}
}

// host implements the console routines. Errors are raised as panics, which
// wazero turns into an error returned from the call into the program.
type host struct {
	in  *bufio.Reader
	out *bufio.Writer
}

func (h *host) printI64(_ context.Context, v int64) {
	if _, err := fmt.Fprintln(h.out, v); err != nil {
		panic(fmt.Errorf("print_i64: %w", err))
	}
}

func (h *host) inputI64(_ context.Context) int64 {
	// Prompts and earlier output must be visible before blocking on input.
	if err := h.out.Flush(); err != nil {
		panic(fmt.Errorf("input_i64: %w", err))
	}
	line, err := h.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			panic(ErrEndOfInput)
		}
		panic(fmt.Errorf("input_int: %w", err))
	}
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		panic(fmt.Errorf("input_int: invalid integer %q", strings.TrimSpace(line)))
	}
	return v
}
