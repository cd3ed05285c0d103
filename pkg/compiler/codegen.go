package compiler

import (
	"forthc/pkg/diag"
	"forthc/pkg/rom"
	"forthc/pkg/vm"
)

// EntryWord is the word the entry trampoline calls.
const EntryWord = "main"

const (
	// The image starts with CALL <main> HALT.
	entryOperand = 1

	// Longest backward distance a one-byte displacement can encode.
	shortBranchMax = 127

	// Displacement of the inverse conditional branch in a long conditional
	// repeat: its own 2 bytes plus the 3-byte Jump that follows.
	trampolineSkip = 2 + 3
)

// Options tunes code generation.
type Options struct {
	// ShadowWarnings reports user words that hide an instruction primitive.
	ShadowWarnings bool
}

// Output is the result of a successful generation pass.
type Output struct {
	Rom   *rom.Rom
	Words *WordTable
}

// CodeGen walks the token sequence once and emits bytecode.
type CodeGen struct {
	tokens []Token
	pos    int

	rom   *rom.Rom
	words *WordTable
	loops LoopStack
	diags *diag.Collector
	opts  Options

	defining      bool
	defName       string
	defLine       int
	mainDefined   bool
	imageFull     bool
	warnedOutside bool
}

func newCodeGen(tokens []Token, diags *diag.Collector, opts Options) *CodeGen {
	return &CodeGen{
		tokens: tokens,
		rom:    rom.New(),
		words:  NewWordTable(),
		diags:  diags,
		opts:   opts,
	}
}

// Generate compiles tokens in a single forward pass. Problems are reported to
// diags; if any error was reported the output is nil and ok is false.
func Generate(tokens []Token, diags *diag.Collector, opts Options) (out *Output, ok bool) {
	before := diags.ErrorCount()

	cg := newCodeGen(tokens, diags, opts)
	cg.run()

	if diags.ErrorCount() > before {
		return nil, false
	}
	return &Output{Rom: cg.rom, Words: cg.words}, true
}

func (cg *CodeGen) run() {
	cg.emitOp(vm.OpCall, 0)
	cg.emit16(0, 0) // patched when main is defined
	cg.emitOp(vm.OpHalt, 0)

	for cg.pos < len(cg.tokens) {
		tok := cg.tokens[cg.pos]
		cg.pos++

		if !cg.defining && tok.Kind != FuncStart && tok.Kind != FuncEnd {
			if !cg.warnedOutside {
				cg.diags.Warnf(diag.CategoryStructural, tok.Line, "code outside of a word definition is never executed")
				cg.warnedOutside = true
			}
		}

		switch tok.Kind {
		case FuncStart:
			cg.beginDefinition(tok)
		case FuncEnd:
			cg.endDefinition(tok)
		case NumDec, NumHex, NumOct, NumBin:
			cg.literal(tok)
		case LoopStart:
			cg.loops.Push(cg.rom.Size(), tok.Line)
		case LoopAgain:
			cg.closeLoop(tok, vm.OpBranch)
		case LoopWhile:
			cg.closeLoop(tok, vm.OpBranchIfNotZero)
		case LoopUntil:
			cg.closeLoop(tok, vm.OpBranchIfZero)
		case LoopLeave:
			cg.leave(tok)
		case Word:
			cg.word(tok)
		default:
			cg.diags.Errorf(diag.CategoryStructural, tok.Line, "unexpected token '%s' (%s)", tok.Lexeme, tok.Kind)
		}
	}

	if cg.defining {
		cg.diags.Errorf(diag.CategoryStructural, cg.defLine, "definition of '%s' is never closed with ';'", cg.defName)
	}
	cg.reportOpenLoops()

	if !cg.mainDefined {
		cg.diags.Warnf(diag.CategoryResolution, 0, "no '%s' word defined; the entry call targets 0x0000", EntryWord)
	}
}

func (cg *CodeGen) beginDefinition(tok Token) {
	if cg.defining {
		cg.diags.Errorf(diag.CategoryStructural, tok.Line, "':' inside the definition of '%s' (started on line %d); definitions do not nest", cg.defName, cg.defLine)
		return
	}
	cg.warnedOutside = false

	if cg.pos >= len(cg.tokens) {
		cg.diags.Errorf(diag.CategoryStructural, tok.Line, "':' at end of input is missing a word name")
		return
	}
	name := cg.tokens[cg.pos]
	cg.pos++

	cg.defining = true
	cg.defLine = tok.Line
	cg.defName = name.Lexeme

	if name.Kind != Word {
		cg.diags.Errorf(diag.CategoryStructural, name.Line, "invalid word name '%s' (%s)", name.Lexeme, name.Kind)
		return
	}

	if _, ok := vm.LookupPrimitive(name.Lexeme); ok && cg.opts.ShadowWarnings {
		cg.diags.Warnf(diag.CategoryResolution, name.Line, "word '%s' shadows the instruction primitive of the same name", name.Lexeme)
	}

	addr := cg.rom.Size()
	old, existed := cg.words.Lookup(name.Lexeme)
	if _, err := cg.words.Define(name.Lexeme, addr); err != nil {
		cg.diags.Errorf(diag.CategoryCapacity, name.Line, "cannot define '%s': %v", name.Lexeme, err)
		return
	}
	if existed {
		cg.diags.Warnf(diag.CategoryResolution, name.Line, "word '%s' redefined; calls already compiled still target 0x%04X", name.Lexeme, old)
	}

	if name.Lexeme == EntryWord {
		cg.patch(entryOperand, addr, name.Line)
		cg.mainDefined = true
	}
}

func (cg *CodeGen) endDefinition(tok Token) {
	if !cg.defining {
		cg.diags.Errorf(diag.CategoryStructural, tok.Line, "';' without a matching ':'")
		return
	}
	cg.emitOp(vm.OpReturn, tok.Line)
	cg.defining = false
	cg.reportOpenLoops()
}

// reportOpenLoops drains the loop stack with one error per unclosed loop.
func (cg *CodeGen) reportOpenLoops() {
	for _, l := range cg.loops.Drain() {
		cg.diags.Errorf(diag.CategoryStructural, l.Line, "unterminated loop: 'begin' is never closed by 'again', 'while' or 'until'")
	}
}

// literal emits PUSH followed by the big-endian value of a numeric token.
func (cg *CodeGen) literal(tok Token) {
	value, overflow := parseLiteral(tok)
	if overflow {
		cg.diags.Errorf(diag.CategoryRange, tok.Line, "number '%s' does not fit in 16 bits (max 0xFFFF)", tok.Lexeme)
	}
	cg.emitOp(vm.OpPush, tok.Line)
	cg.emit16(value, tok.Line)
}

// parseLiteral accumulates the digits of a numeric token by place value.
// It returns the low 16 bits of the value and whether the value exceeded 0xFFFF.
func parseLiteral(tok Token) (value uint16, overflow bool) {
	digits := tok.Lexeme
	var base uint64
	switch tok.Kind {
	case NumDec:
		base = 10
	case NumHex:
		base, digits = 16, digits[2:]
	case NumOct:
		base, digits = 8, digits[2:]
	case NumBin:
		base, digits = 2, digits[2:]
	}

	var full uint64 // saturates just above 0xFFFF
	for i := 0; i < len(digits); i++ {
		d := digitValue(digits[i])
		value = value*uint16(base) + uint16(d)
		if full <= 0xFFFF {
			full = full*base + d
		}
	}
	return value, full > 0xFFFF
}

func digitValue(c byte) uint64 {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0')
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10
	}
	return 0
}

// closeLoop emits the backward transfer for again, while or until, patches
// pending leave exits to the address after it, and pops the loop.
func (cg *CodeGen) closeLoop(tok Token, short vm.Opcode) {
	loop := cg.loops.Top()
	if loop == nil {
		cg.diags.Errorf(diag.CategoryStructural, tok.Line, "'%s' outside of any loop", tok.Lexeme)
		return
	}

	distance := int(cg.rom.Size()) - int(loop.Start)
	switch {
	case distance <= shortBranchMax:
		cg.emitOp(short, tok.Line)
		cg.emitByte(byte(int8(-distance)), tok.Line)
	case short == vm.OpBranch:
		cg.emitOp(vm.OpJump, tok.Line)
		cg.emit16(loop.Start, tok.Line)
	default:
		cg.emitOp(inverseBranch(short), tok.Line)
		cg.emitByte(trampolineSkip, tok.Line)
		cg.emitOp(vm.OpJump, tok.Line)
		cg.emit16(loop.Start, tok.Line)
	}

	exit := cg.rom.Size()
	for _, operand := range loop.Exits {
		cg.patch(operand, exit, tok.Line)
	}
	loop.Exits = nil
	cg.loops.Pop()
}

func inverseBranch(op vm.Opcode) vm.Opcode {
	if op == vm.OpBranchIfZero {
		return vm.OpBranchIfNotZero
	}
	return vm.OpBranchIfZero
}

// leave emits a Jump whose operand is filled in when the loop closes.
func (cg *CodeGen) leave(tok Token) {
	loop := cg.loops.Top()
	if loop == nil {
		cg.diags.Errorf(diag.CategoryStructural, tok.Line, "'leave' outside of any loop")
		return
	}

	cg.emitOp(vm.OpJump, tok.Line)
	if err := loop.AddExit(cg.rom.Size()); err != nil {
		cg.diags.Errorf(diag.CategoryCapacity, tok.Line, "loop started on line %d has more than %d 'leave' exits", loop.Line, MaxLoopExits)
	}
	if err := cg.rom.Skip(2); err != nil {
		cg.imageOverflow(tok.Line)
	}
}

// word emits a call to a user word or a primitive opcode. User words are
// looked up first and bind to the address they have right now.
func (cg *CodeGen) word(tok Token) {
	if addr, ok := cg.words.Lookup(tok.Lexeme); ok {
		cg.emitOp(vm.OpCall, tok.Line)
		cg.emit16(addr, tok.Line)
		return
	}
	if op, ok := vm.LookupPrimitive(tok.Lexeme); ok {
		cg.emitOp(op, tok.Line)
		return
	}
	cg.diags.Errorf(diag.CategoryResolution, tok.Line, "unknown word '%s'", tok.Lexeme)
}

func (cg *CodeGen) emitOp(op vm.Opcode, line int) {
	cg.emitByte(byte(op), line)
}

func (cg *CodeGen) emitByte(b byte, line int) {
	if err := cg.rom.Emit(b); err != nil {
		cg.imageOverflow(line)
	}
}

func (cg *CodeGen) emit16(v uint16, line int) {
	if err := cg.rom.Emit16(v); err != nil {
		cg.imageOverflow(line)
	}
}

// patch backpatches a 2-byte operand at addr with v.
func (cg *CodeGen) patch(addr, v uint16, line int) {
	if err := cg.rom.Patch16(addr, v); err != nil {
		cg.imageOverflow(line)
	}
}

// imageOverflow reports the capacity error once per pass.
func (cg *CodeGen) imageOverflow(line int) {
	if cg.imageFull {
		return
	}
	cg.imageFull = true
	cg.diags.Errorf(diag.CategoryCapacity, line, "program exceeds the image capacity of %d bytes", rom.Capacity)
}
