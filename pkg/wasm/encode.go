// Package wasm - WebAssembly binary format encoder
// Design: Sections are built into separate buffers and length-prefixed on
// assembly. Symbolic IDs are resolved against per-kind index spaces.
package wasm

import (
	"fmt"

	"github.com/GriffinCanCode/langvar-compiler/pkg/logger"
)

// Section IDs
const (
	secType     = 1
	secImport   = 2
	secFunction = 3
	secTable    = 4
	secMemory   = 5
	secGlobal   = 6
	secExport   = 7
	secElement  = 9
	secCode     = 10
	secData     = 11
)

// External kinds
const (
	extFunc   = 0x00
	extMemory = 0x02
)

// Opcodes
const (
	opEnd      = 0x0B
	opCall     = 0x10
	opDrop     = 0x1A
	opLocalGet = 0x20
	opLocalSet = 0x21
	opI32Const = 0x41
	opI64Const = 0x42
	opI32Add   = 0x6A
	opI32Sub   = 0x6B
	opI32Mul   = 0x6C
	opI64Add   = 0x7C
	opI64Sub   = 0x7D
	opI64Mul   = 0x7E
)

const (
	typeFunc    = 0x60
	typeFuncref = 0x70
)

var (
	wasmMagic   = []byte{0x00, 0x61, 0x73, 0x6d}
	wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}
)

type encoder struct {
	m         *Module
	types     []FuncType
	funcIdx   map[ID]uint32
	funcType  []uint32 // type index per defined function
	memIdx    map[ID]uint32
	globalIdx map[ID]uint32
}

// Encode produces the binary encoding of m.
func Encode(m *Module) ([]byte, error) {
	e := &encoder{
		m:         m,
		funcIdx:   make(map[ID]uint32),
		memIdx:    make(map[ID]uint32),
		globalIdx: make(map[ID]uint32),
	}
	if err := e.index(); err != nil {
		return nil, err
	}

	out := append([]byte{}, wasmMagic...)
	out = append(out, wasmVersion...)

	if len(e.types) > 0 {
		out = encodeSection(out, secType, e.typeSection())
	}
	if len(m.Imports) > 0 {
		sec, err := e.importSection()
		if err != nil {
			return nil, err
		}
		out = encodeSection(out, secImport, sec)
	}
	if len(m.Funcs) > 0 {
		out = encodeSection(out, secFunction, e.functionSection())
	}
	if m.FuncTable != nil {
		out = encodeSection(out, secTable, e.tableSection())
	}
	if len(m.Memories) > 0 {
		out = encodeSection(out, secMemory, e.memorySection())
	}
	if len(m.Globals) > 0 {
		out = encodeSection(out, secGlobal, e.globalSection())
	}
	if len(m.Exports) > 0 {
		sec, err := e.exportSection()
		if err != nil {
			return nil, err
		}
		out = encodeSection(out, secExport, sec)
	}
	if m.FuncTable != nil && len(m.FuncTable.Elems) > 0 {
		sec, err := e.elementSection()
		if err != nil {
			return nil, err
		}
		out = encodeSection(out, secElement, sec)
	}
	if len(m.Funcs) > 0 {
		sec, err := e.codeSection()
		if err != nil {
			return nil, err
		}
		out = encodeSection(out, secCode, sec)
	}
	if len(m.Data) > 0 {
		out = encodeSection(out, secData, e.dataSection())
	}

	logger.LogEncoding(len(out))
	return out, nil
}

// index assigns indices to every function, memory and global, and
// deduplicates function signatures.
func (e *encoder) index() error {
	var nextFunc, nextMem uint32
	define := func(space map[ID]uint32, id ID, idx uint32, kind string) error {
		if _, dup := space[id]; dup {
			return fmt.Errorf("duplicate %s id %s", kind, id)
		}
		space[id] = idx
		return nil
	}

	for _, imp := range e.m.Imports {
		switch d := imp.Desc.(type) {
		case ImportFunc:
			if err := define(e.funcIdx, d.ID, nextFunc, "function"); err != nil {
				return err
			}
			nextFunc++
			e.typeIndex(d.Type)
		case ImportMemory:
			if d.Max != 0 && d.Max < d.Min {
				return fmt.Errorf("memory %s: max %d below min %d", d.ID, d.Max, d.Min)
			}
			if err := define(e.memIdx, d.ID, nextMem, "memory"); err != nil {
				return err
			}
			nextMem++
		default:
			return fmt.Errorf("unsupported import %T", imp.Desc)
		}
	}
	for _, mem := range e.m.Memories {
		if mem.Max != 0 && mem.Max < mem.Min {
			return fmt.Errorf("memory %s: max %d below min %d", mem.ID, mem.Max, mem.Min)
		}
		if err := define(e.memIdx, mem.ID, nextMem, "memory"); err != nil {
			return err
		}
		nextMem++
	}
	if nextMem > 1 {
		return fmt.Errorf("at most one memory is supported, got %d", nextMem)
	}
	for _, fn := range e.m.Funcs {
		if err := define(e.funcIdx, fn.ID, nextFunc, "function"); err != nil {
			return err
		}
		nextFunc++
		e.funcType = append(e.funcType, e.typeIndex(fn.Type()))
	}
	for i, g := range e.m.Globals {
		if err := define(e.globalIdx, g.ID, uint32(i), "global"); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) typeIndex(ft FuncType) uint32 {
	for i, t := range e.types {
		if sameTypes(t.Params, ft.Params) && sameTypes(t.Results, ft.Results) {
			return uint32(i)
		}
	}
	e.types = append(e.types, ft)
	return uint32(len(e.types) - 1)
}

func sameTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func valTypeByte(t ValType) byte {
	switch t {
	case I32:
		return 0x7F
	default:
		return 0x7E
	}
}

func appendValTypes(buf []byte, types []ValType) []byte {
	buf = appendULEB128(buf, uint64(len(types)))
	for _, t := range types {
		buf = append(buf, valTypeByte(t))
	}
	return buf
}

func appendName(buf []byte, name string) []byte {
	buf = appendULEB128(buf, uint64(len(name)))
	return append(buf, name...)
}

func appendLimits(buf []byte, min, max uint32) []byte {
	if max > 0 {
		buf = append(buf, 0x01)
		buf = appendULEB128(buf, uint64(min))
		return appendULEB128(buf, uint64(max))
	}
	buf = append(buf, 0x00)
	return appendULEB128(buf, uint64(min))
}

func encodeSection(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = appendULEB128(out, uint64(len(payload)))
	return append(out, payload...)
}

func (e *encoder) typeSection() []byte {
	buf := appendULEB128(nil, uint64(len(e.types)))
	for _, t := range e.types {
		buf = append(buf, typeFunc)
		buf = appendValTypes(buf, t.Params)
		buf = appendValTypes(buf, t.Results)
	}
	return buf
}

func (e *encoder) importSection() ([]byte, error) {
	buf := appendULEB128(nil, uint64(len(e.m.Imports)))
	for _, imp := range e.m.Imports {
		buf = appendName(buf, imp.Module)
		buf = appendName(buf, imp.Name)
		switch d := imp.Desc.(type) {
		case ImportFunc:
			buf = append(buf, extFunc)
			buf = appendULEB128(buf, uint64(e.typeIndex(d.Type)))
		case ImportMemory:
			buf = append(buf, extMemory)
			buf = appendLimits(buf, d.Min, d.Max)
		default:
			return nil, fmt.Errorf("unsupported import %T", imp.Desc)
		}
	}
	return buf, nil
}

func (e *encoder) functionSection() []byte {
	buf := appendULEB128(nil, uint64(len(e.funcType)))
	for _, tidx := range e.funcType {
		buf = appendULEB128(buf, uint64(tidx))
	}
	return buf
}

func (e *encoder) tableSection() []byte {
	n := uint32(len(e.m.FuncTable.Elems))
	buf := appendULEB128(nil, 1)
	buf = append(buf, typeFuncref)
	buf = append(buf, 0x00) // no max
	return appendULEB128(buf, uint64(n))
}

func (e *encoder) memorySection() []byte {
	buf := appendULEB128(nil, uint64(len(e.m.Memories)))
	for _, mem := range e.m.Memories {
		buf = appendLimits(buf, mem.Min, mem.Max)
	}
	return buf
}

func (e *encoder) globalSection() []byte {
	buf := appendULEB128(nil, uint64(len(e.m.Globals)))
	for _, g := range e.m.Globals {
		buf = append(buf, valTypeByte(g.Type))
		if g.Mutable {
			buf = append(buf, 0x01)
		} else {
			buf = append(buf, 0x00)
		}
		buf = appendConst(buf, g.Type, g.Init)
		buf = append(buf, opEnd)
	}
	return buf
}

func (e *encoder) exportSection() ([]byte, error) {
	buf := appendULEB128(nil, uint64(len(e.m.Exports)))
	for _, exp := range e.m.Exports {
		buf = appendName(buf, exp.Name)
		switch d := exp.Desc.(type) {
		case ExportFunc:
			idx, ok := e.funcIdx[d.ID]
			if !ok {
				return nil, fmt.Errorf("export %q: unknown function %s", exp.Name, d.ID)
			}
			buf = append(buf, extFunc)
			buf = appendULEB128(buf, uint64(idx))
		case ExportMemory:
			idx, ok := e.memIdx[d.ID]
			if !ok {
				return nil, fmt.Errorf("export %q: unknown memory %s", exp.Name, d.ID)
			}
			buf = append(buf, extMemory)
			buf = appendULEB128(buf, uint64(idx))
		default:
			return nil, fmt.Errorf("export %q: unsupported export %T", exp.Name, exp.Desc)
		}
	}
	return buf, nil
}

func (e *encoder) elementSection() ([]byte, error) {
	buf := appendULEB128(nil, 1)
	buf = append(buf, 0x00) // active, table 0
	buf = append(buf, opI32Const, 0x00, opEnd)
	buf = appendULEB128(buf, uint64(len(e.m.FuncTable.Elems)))
	for _, id := range e.m.FuncTable.Elems {
		idx, ok := e.funcIdx[id]
		if !ok {
			return nil, fmt.Errorf("table element: unknown function %s", id)
		}
		buf = appendULEB128(buf, uint64(idx))
	}
	return buf, nil
}

func (e *encoder) codeSection() ([]byte, error) {
	buf := appendULEB128(nil, uint64(len(e.m.Funcs)))
	for _, fn := range e.m.Funcs {
		body, err := e.funcBody(fn)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.ID, err)
		}
		buf = appendULEB128(buf, uint64(len(body)))
		buf = append(buf, body...)
	}
	return buf, nil
}

type localGroup struct {
	count uint32
	vtype ValType
}

// compactLocals merges runs of same-typed locals into one declaration.
func compactLocals(locals []Local) []localGroup {
	var groups []localGroup
	for _, l := range locals {
		if n := len(groups); n > 0 && groups[n-1].vtype == l.Type {
			groups[n-1].count++
			continue
		}
		groups = append(groups, localGroup{count: 1, vtype: l.Type})
	}
	return groups
}

func (e *encoder) funcBody(fn *Func) ([]byte, error) {
	localIdx := make(map[ID]uint32)
	for i, l := range append(append([]Local{}, fn.Params...), fn.Locals...) {
		if _, dup := localIdx[l.ID]; dup {
			return nil, fmt.Errorf("duplicate local %s", l.ID)
		}
		localIdx[l.ID] = uint32(i)
	}

	groups := compactLocals(fn.Locals)
	buf := appendULEB128(nil, uint64(len(groups)))
	for _, g := range groups {
		buf = appendULEB128(buf, uint64(g.count))
		buf = append(buf, valTypeByte(g.vtype))
	}

	for i, instr := range fn.Body {
		var err error
		buf, err = e.appendInstr(buf, instr, localIdx)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, InstrText(instr), err)
		}
	}
	return append(buf, opEnd), nil
}

func (e *encoder) appendInstr(buf []byte, instr Instr, locals map[ID]uint32) ([]byte, error) {
	switch in := instr.(type) {
	case Const:
		return appendConst(buf, in.Type, in.Val), nil
	case LocalGet:
		return appendLocal(buf, opLocalGet, in.ID, locals)
	case LocalSet:
		return appendLocal(buf, opLocalSet, in.ID, locals)
	case NumBinOp:
		op, err := binOpcode(in)
		if err != nil {
			return nil, err
		}
		return append(buf, op), nil
	case Call:
		idx, ok := e.funcIdx[in.ID]
		if !ok {
			return nil, fmt.Errorf("unknown function %s", in.ID)
		}
		buf = append(buf, opCall)
		return appendULEB128(buf, uint64(idx)), nil
	case Drop:
		return append(buf, opDrop), nil
	default:
		return nil, fmt.Errorf("unsupported instruction %T", instr)
	}
}

func appendLocal(buf []byte, op byte, id ID, locals map[ID]uint32) ([]byte, error) {
	idx, ok := locals[id]
	if !ok {
		return nil, fmt.Errorf("unknown local %s", id)
	}
	buf = append(buf, op)
	return appendULEB128(buf, uint64(idx)), nil
}

func appendConst(buf []byte, t ValType, v int64) []byte {
	if t == I32 {
		buf = append(buf, opI32Const)
		return appendSLEB128(buf, int64(int32(v)))
	}
	buf = append(buf, opI64Const)
	return appendSLEB128(buf, v)
}

func binOpcode(in NumBinOp) (byte, error) {
	switch {
	case in.Type == I64 && in.Op == OpAdd:
		return opI64Add, nil
	case in.Type == I64 && in.Op == OpSub:
		return opI64Sub, nil
	case in.Type == I64 && in.Op == OpMul:
		return opI64Mul, nil
	case in.Type == I32 && in.Op == OpAdd:
		return opI32Add, nil
	case in.Type == I32 && in.Op == OpSub:
		return opI32Sub, nil
	case in.Type == I32 && in.Op == OpMul:
		return opI32Mul, nil
	}
	return 0, fmt.Errorf("unsupported operator %s.%s", in.Type, in.Op)
}

func (e *encoder) dataSection() []byte {
	buf := appendULEB128(nil, uint64(len(e.m.Data)))
	for _, d := range e.m.Data {
		buf = append(buf, 0x00) // active, memory 0
		buf = append(buf, opI32Const)
		buf = appendSLEB128(buf, int64(int32(d.Offset)))
		buf = append(buf, opEnd)
		buf = appendULEB128(buf, uint64(len(d.Bytes)))
		buf = append(buf, d.Bytes...)
	}
	return buf
}

func appendULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

func appendSLEB128(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
