package compiler

import "fmt"

// MaxLexemeLength is the longest lexeme the scanner accepts.
const MaxLexemeLength = 32

// TokenKind identifies the category of a scanned token.
type TokenKind int

const (
	FuncStart TokenKind = iota // :
	FuncEnd                    // ;

	// Numeric literals
	NumDec // 42
	NumHex // 0x2a
	NumOct // 0o52
	NumBin // 0b101010

	// Loop keywords
	LoopStart // begin
	LoopAgain // again
	LoopWhile // while
	LoopUntil // until
	LoopLeave // leave

	Word // anything else: a user word or a primitive mnemonic
)

var tokenKindNames = [...]string{
	FuncStart: "FuncStart",
	FuncEnd:   "FuncEnd",
	NumDec:    "NumDec",
	NumHex:    "NumHex",
	NumOct:    "NumOct",
	NumBin:    "NumBin",
	LoopStart: "LoopStart",
	LoopAgain: "LoopAgain",
	LoopWhile: "LoopWhile",
	LoopUntil: "LoopUntil",
	LoopLeave: "LoopLeave",
	Word:      "Word",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// IsNumber reports whether k is one of the literal kinds.
func (k TokenKind) IsNumber() bool {
	return k >= NumDec && k <= NumBin
}

// loopKeywords maps case-folded source text to its loop TokenKind.
var loopKeywords = map[string]TokenKind{
	"begin": LoopStart,
	"again": LoopAgain,
	"while": LoopWhile,
	"until": LoopUntil,
	"leave": LoopLeave,
}

// Token is a single classified lexeme. Lexemes are lower case and at most
// MaxLexemeLength bytes long.
type Token struct {
	Line   int
	Kind   TokenKind
	Lexeme string
}

func (t Token) String() string {
	return fmt.Sprintf("| Line: %3d | Lexeme: %32s | Kind: %-9s |", t.Line, t.Lexeme, t.Kind)
}
