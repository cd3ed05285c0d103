package asm

import (
	"strings"
	"testing"
)

// smallProgram is a countdown loop.
const smallProgram = `
    CALL main
    HALT
main:
    PUSH 10
loop:
    PUSH 1
    SUB
    DUP
    BIFN0 loop
    RET
`

// mediumProgram has several subroutines, forward and backward branches and
// a .STRING directive.
const mediumProgram = `
    CALL main
    HALT

double:
    DUP
    ADD
    RET

triple:
    DUP
    CALL double
    ADD
    RET

emit:
    PUSH 0xFF00
    STOREB
    RET

print:            ; ( addr -- )
ploop:
    DUP
    LOADB
    DUP
    BIF0 pdone
    CALL emit
    PUSH 1
    ADD
    BRANCH ploop
pdone:
    POP
    POP
    RET

count_down:       ; ( n -- 0 )
cd_loop:
    DUP
    BIF0 cd_done
    PUSH 1
    SUB
    JUMP cd_loop
cd_done:
    RET

main:
    PUSH 7
    CALL triple
    CALL double
    PUSH 0xFF01
    STORE
    PUSH msg
    CALL print
    PUSH 30
    CALL count_down
    POP
    RET

msg:
    .STRING "hello, world\n"
`

// largeProgram repeats a block of arithmetic with unique labels.
var largeProgram = func() string {
	var sb strings.Builder
	sb.WriteString("    CALL main\n    HALT\nmain:\n")
	for i := 0; i < 200; i++ {
		label := "blk" + strings.Repeat("x", i%7) + string(rune('a'+i%26)) + string(rune('a'+i/26))
		sb.WriteString(label + ":\n")
		sb.WriteString("    PUSH 1\n    PUSH 2\n    ADD\n    DUP\n    BIF0 " + label + "\n    POP\n")
	}
	sb.WriteString("    RET\n")
	return sb.String()
}()

func BenchmarkAssemble_Small(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(smallProgram); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Medium(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(mediumProgram); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Large(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := Assemble(largeProgram); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDisassemble_Medium(b *testing.B) {
	img, _, err := Assemble(mediumProgram)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Disassemble(img)
	}
}
