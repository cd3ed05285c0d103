// Package compiler translates Forth-dialect source into a bytecode image for
// the 16-bit stack machine in package vm.
//
// Pipeline: source → Scan → []Token → Generate (single pass) → rom.Rom
//
// The image starts with a CALL to the word named main followed by HALT. Word
// calls bind to the address a word has when the call is compiled; redefining a
// word later does not change calls that were already emitted.
package compiler
