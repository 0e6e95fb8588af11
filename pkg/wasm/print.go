// Package wasm - WebAssembly text format printer
package wasm

import (
	"fmt"
	"io"
	"strings"
)

type printer struct {
	w     io.Writer
	depth int
	err   error
}

// Print writes m in the WebAssembly text format.
func Print(w io.Writer, m *Module) error {
	p := &printer{w: w}
	p.module(m)
	return p.err
}

// Text returns m in the WebAssembly text format.
func Text(m *Module) string {
	var b strings.Builder
	_ = Print(&b, m)
	return b.String()
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

func (p *printer) module(m *Module) {
	p.line("(module")
	p.depth++

	for _, imp := range m.Imports {
		p.line("(import %q %q %s)", imp.Module, imp.Name, importDescText(imp.Desc))
	}
	for _, mem := range m.Memories {
		p.line("(memory %s %s)", mem.ID, limitsText(mem.Min, mem.Max))
	}
	if m.FuncTable != nil {
		if len(m.FuncTable.Elems) == 0 {
			p.line("(table 0 funcref)")
		} else {
			p.line("(table funcref (elem %s))", joinIDs(m.FuncTable.Elems))
		}
	}
	for _, g := range m.Globals {
		typ := string(g.Type)
		if g.Mutable {
			typ = "(mut " + typ + ")"
		}
		p.line("(global %s %s (%s.const %d))", g.ID, typ, g.Type, g.Init)
	}
	for _, exp := range m.Exports {
		p.line("(export %q %s)", exp.Name, exportDescText(exp.Desc))
	}
	for _, fn := range m.Funcs {
		p.function(fn)
	}
	for _, d := range m.Data {
		p.line("(data (i32.const %d) \"%s\")", d.Offset, escapeBytes(d.Bytes))
	}

	p.depth--
	p.line(")")
}

func (p *printer) function(fn *Func) {
	var sig strings.Builder
	for _, param := range fn.Params {
		fmt.Fprintf(&sig, " (param %s %s)", param.ID, param.Type)
	}
	if len(fn.Results) > 0 {
		fmt.Fprintf(&sig, " (result %s)", joinTypes(fn.Results))
	}

	p.line("(func %s%s", fn.ID, sig.String())
	p.depth++
	for _, local := range fn.Locals {
		p.line("(local %s %s)", local.ID, local.Type)
	}
	for _, instr := range fn.Body {
		p.line("%s", InstrText(instr))
	}
	p.depth--
	p.line(")")
}

// InstrText renders a single instruction in text format.
func InstrText(instr Instr) string {
	switch in := instr.(type) {
	case Const:
		return fmt.Sprintf("%s.const %d", in.Type, in.Val)
	case LocalGet:
		return fmt.Sprintf("local.get %s", in.ID)
	case LocalSet:
		return fmt.Sprintf("local.set %s", in.ID)
	case NumBinOp:
		return fmt.Sprintf("%s.%s", in.Type, in.Op)
	case Call:
		return fmt.Sprintf("call %s", in.ID)
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf(";; unknown instruction %T", instr)
	}
}

func importDescText(desc ImportDesc) string {
	switch d := desc.(type) {
	case ImportFunc:
		var b strings.Builder
		fmt.Fprintf(&b, "(func %s", d.ID)
		if len(d.Type.Params) > 0 {
			fmt.Fprintf(&b, " (param %s)", joinTypes(d.Type.Params))
		}
		if len(d.Type.Results) > 0 {
			fmt.Fprintf(&b, " (result %s)", joinTypes(d.Type.Results))
		}
		b.WriteString(")")
		return b.String()
	case ImportMemory:
		return fmt.Sprintf("(memory %s %s)", d.ID, limitsText(d.Min, d.Max))
	default:
		return fmt.Sprintf(";; unknown import %T", desc)
	}
}

func exportDescText(desc ExportDesc) string {
	switch d := desc.(type) {
	case ExportFunc:
		return fmt.Sprintf("(func %s)", d.ID)
	case ExportMemory:
		return fmt.Sprintf("(memory %s)", d.ID)
	default:
		return fmt.Sprintf(";; unknown export %T", desc)
	}
}

func limitsText(min, max uint32) string {
	if max == 0 {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d %d", min, max)
}

func joinTypes(types []ValType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, " ")
}

func joinIDs(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " ")
}

func escapeBytes(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\%02x", c)
		}
	}
	return b.String()
}
