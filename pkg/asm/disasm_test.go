package asm

import (
	"bytes"
	"strings"
	"testing"

	"forthc/pkg/vm"
)

func TestDisassemble(t *testing.T) {
	img := []byte{0x1C, 0x00, 0x04, 0x01, 0x02, 0x00, 0x05, 0x02, 0x00, 0x03, 0x0D, 0x1A, 0xF9, 0x1D}
	want := strings.Join([]string{
		"0000  CALL   0x0004",
		"0003  HALT",
		"0004  PUSH   0x0005",
		"0007  PUSH   0x0003",
		"000A  ADD",
		"000B  BIF0   0x0004",
		"000D  RET",
	}, "\n") + "\n"

	if got := Disassemble(img); got != want {
		t.Errorf("Disassemble() =\n%s\nwant:\n%s", got, want)
	}
}

func TestDisassembleInvalid(t *testing.T) {
	tests := []struct {
		name string
		img  []byte
		want string
	}{
		{"Unknown Opcode", []byte{0xEE, byte(vm.OpNop)}, "0000  .BYTE 0xEE\n0001  NOP\n"},
		{"Truncated Operand", []byte{byte(vm.OpPush), 0x01}, "0000  .BYTE 0x02\n0001  HALT\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Disassemble(tt.img); got != tt.want {
				t.Errorf("Disassemble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	img, _, err := Assemble(mediumProgram)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Drop the address column and reassemble.
	var src strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(Disassemble(img)), "\n") {
		src.WriteString(strings.TrimSpace(line[4:]))
		src.WriteString("\n")
	}

	again, _, err := Assemble(src.String())
	if err != nil {
		t.Fatalf("reassemble: %v\n%s", err, src.String())
	}
	if !bytes.Equal(again, img) {
		t.Errorf("round trip mismatch\ngot:  % X\nwant: % X", again, img)
	}
}

func TestDecode(t *testing.T) {
	img := []byte{byte(vm.OpBranch), 0x00, byte(vm.OpBranch), 0x7F}
	if in := Decode(img, 0); !in.Valid || in.Operand != 0 || in.Length != 2 {
		t.Errorf("Decode(0) = %+v", in)
	}
	if in := Decode(img, 2); in.Operand != 2+0x7F {
		t.Errorf("Decode(2).Operand = 0x%04X, want 0x%04X", in.Operand, 2+0x7F)
	}
}
