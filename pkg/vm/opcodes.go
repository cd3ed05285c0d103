package vm

import "fmt"

// Opcode is a single instruction byte. The numeric value of each opcode is its
// position in the declaration below and is part of the image format.
type Opcode byte

const (
	OpNop Opcode = iota
	OpHalt
	OpPush
	OpDup
	OpOver
	OpPop
	OpNip
	OpSwap
	OpRot
	OpLoad
	OpStore
	OpLoadByte
	OpStoreByte
	OpAdd
	OpSub
	OpAddCarry
	OpSubCarry
	OpShl
	OpShr
	OpBitNand
	OpNand
	OpEqual
	OpMore
	OpLess
	OpJump
	OpBranch
	OpBranchIfZero
	OpBranchIfNotZero
	OpCall
	OpReturn

	opcodeCount
)

// opcodeNames is indexed by Opcode and used for listings.
var opcodeNames = [...]string{
	OpNop:             "NOP",
	OpHalt:            "HALT",
	OpPush:            "PUSH",
	OpDup:             "DUP",
	OpOver:            "OVER",
	OpPop:             "POP",
	OpNip:             "NIP",
	OpSwap:            "SWAP",
	OpRot:             "ROT",
	OpLoad:            "LOAD",
	OpStore:           "STORE",
	OpLoadByte:        "LOADB",
	OpStoreByte:       "STOREB",
	OpAdd:             "ADD",
	OpSub:             "SUB",
	OpAddCarry:        "ADDC",
	OpSubCarry:        "SUBC",
	OpShl:             "SHL",
	OpShr:             "SHR",
	OpBitNand:         "BNAND",
	OpNand:            "NAND",
	OpEqual:           "EQUAL",
	OpMore:            "MORE",
	OpLess:            "LESS",
	OpJump:            "JUMP",
	OpBranch:          "BRANCH",
	OpBranchIfZero:    "BIF0",
	OpBranchIfNotZero: "BIFN0",
	OpCall:            "CALL",
	OpReturn:          "RET",
}

// Primitives maps source mnemonics to opcodes. It is a parallel array of the
// opcode list: Primitives[i] is the mnemonic of Opcode(i). Control transfer
// opcodes have no mnemonic and are only produced by the code generator.
var Primitives = [...]string{
	OpNop:       "nop",
	OpHalt:      "halt",
	OpPush:      "push",
	OpDup:       "dup",
	OpOver:      "over",
	OpPop:       "pop",
	OpNip:       "nip",
	OpSwap:      "swap",
	OpRot:       "rot",
	OpLoad:      "load",
	OpStore:     "store",
	OpLoadByte:  "loadb",
	OpStoreByte: "storeb",
	OpAdd:       "+",
	OpSub:       "-",
	OpAddCarry:  "addc",
	OpSubCarry:  "subc",
	OpShl:       "shl",
	OpShr:       "shr",
	OpBitNand:   "bnand",
	OpNand:      "nand",
	OpEqual:     "=",
	OpMore:      ">",
	OpLess:      "<",
}

// compile-time checks that the tables cover exactly the opcode range
var _ [opcodeCount]struct{} = [len(opcodeNames)]struct{}{}
var _ [len(Primitives)]struct{} = [OpLess + 1]struct{}{}

func (op Opcode) String() string {
	if op < opcodeCount {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// Valid reports whether op is a defined instruction.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// Length returns the encoded size of op in bytes, including its operand.
func (op Opcode) Length() int {
	switch op {
	case OpPush, OpJump, OpCall:
		return 3
	case OpBranch, OpBranchIfZero, OpBranchIfNotZero:
		return 2
	default:
		return 1
	}
}

// LookupPrimitive returns the opcode bound to a source mnemonic.
// The mnemonic must already be lower case.
func LookupPrimitive(name string) (Opcode, bool) {
	if name == "" {
		return 0, false
	}
	for i, p := range Primitives {
		if p == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// LookupMnemonic returns the opcode for an upper case listing name such as "BIF0".
func LookupMnemonic(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}
