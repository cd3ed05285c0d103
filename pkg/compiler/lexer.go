package compiler

import (
	"strings"

	"forthc/pkg/diag"
)

// numberBases describes the prefixed literal forms: 0x, 0b and 0o.
var numberBases = map[byte]struct {
	kind   TokenKind
	name   string
	digits string
}{
	'x': {NumHex, "hexadecimal", "0123456789abcdef"},
	'b': {NumBin, "binary", "01"},
	'o': {NumOct, "octal", "01234567"},
}

// Scanner holds the mutable state of a single pass over the source.
type Scanner struct {
	src   string
	diags *diag.Collector

	line      int  // current 1-based line
	start     int  // start of the pending lexeme, -1 when none
	startLine int  // line the pending lexeme began on
	inComment bool // inside ( ... )

	tokens []Token
	failed bool
}

func newScanner(src string, diags *diag.Collector) *Scanner {
	return &Scanner{src: src, diags: diags, line: 1, start: -1}
}

// Scan splits src into classified tokens. Every lexical error in the input is
// reported to diags; when any occurred the returned slice is nil and ok is false.
func Scan(src string, diags *diag.Collector) (tokens []Token, ok bool) {
	s := newScanner(src, diags)
	s.run()
	if s.failed {
		return nil, false
	}
	return s.tokens, true
}

func (s *Scanner) run() {
	commentLine := 0

	for i := 0; i < len(s.src); i++ {
		ch := s.src[i]

		if s.inComment {
			switch ch {
			case ')':
				s.inComment = false
			case '\n':
				s.line++
			}
			continue
		}

		switch ch {
		case '(':
			s.flush(i)
			s.inComment = true
			commentLine = s.line
		case ' ', '\t', '\r':
			s.flush(i)
		case '\n':
			s.flush(i)
			s.line++
		default:
			if s.start < 0 {
				s.start = i
				s.startLine = s.line
			}
		}
	}
	s.flush(len(s.src))

	if s.inComment {
		s.diags.Warnf(diag.CategoryLexical, commentLine, "comment opened here is never closed")
	}
}

// flush turns src[start:end] into a token, if a lexeme is pending.
func (s *Scanner) flush(end int) {
	if s.start < 0 {
		return
	}
	lexeme := strings.ToLower(s.src[s.start:end])
	line := s.startLine
	s.start = -1

	if len(lexeme) > MaxLexemeLength {
		s.diags.Errorf(diag.CategoryLexical, line, "word '%s' exceeds max word length of %d characters", lexeme, MaxLexemeLength)
		s.failed = true
		return
	}

	kind, ok := s.classify(lexeme, line)
	if !ok {
		s.failed = true
		return
	}
	s.tokens = append(s.tokens, Token{Line: line, Kind: kind, Lexeme: lexeme})
}

// classify assigns a kind to a lower case lexeme. The first matching rule wins.
func (s *Scanner) classify(lexeme string, line int) (TokenKind, bool) {
	switch lexeme {
	case ":":
		return FuncStart, true
	case ";":
		return FuncEnd, true
	}

	if isDecimal(lexeme) {
		return NumDec, true
	}

	if len(lexeme) >= 2 && lexeme[0] == '0' {
		if base, ok := numberBases[lexeme[1]]; ok {
			digits := lexeme[2:]
			if digits == "" || strings.Trim(digits, base.digits) != "" {
				s.diags.Errorf(diag.CategoryLexical, line, "'%s' is not a valid %s number", lexeme, base.name)
				return 0, false
			}
			return base.kind, true
		}
	}

	if kind, ok := loopKeywords[lexeme]; ok {
		return kind, true
	}
	return Word, true
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
