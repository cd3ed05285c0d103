package compiler

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"forthc/pkg/diag"
	"forthc/pkg/vm"
)

// run compiles src and executes it on the reference machine.
func run(t *testing.T, src string) (*vm.Machine, string) {
	t.Helper()
	res, err := Compile(src, "test.fs", Options{})
	if err != nil {
		t.Fatalf("Compile failed: %v\n%s", err, res.Diagnostics.Report(false))
	}

	m, err := vm.New(res.Image)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	var out bytes.Buffer
	m.Output = &out
	if err := m.Run(100000); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return m, out.String()
}

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantStack []uint16
		wantOut   string
	}{
		{
			name:      "Add",
			src:       ": main 5 3 + ;",
			wantStack: []uint16{8},
		},
		{
			name:      "Nested Calls",
			src:       ": double dup + ; : quad double double ; : main 3 quad ;",
			wantStack: []uint16{12},
		},
		{
			name:      "Count Until",
			src:       ": main 0 begin 1 + dup 10 = until ;",
			wantStack: []uint16{10},
		},
		{
			name:      "Count While",
			src:       ": main 0 begin 1 + dup 5 < while ;",
			wantStack: []uint16{5},
		},
		{
			name:      "Leave Exits Again",
			src:       ": main 7 begin leave 1 again 9 ;",
			wantStack: []uint16{7, 9},
		},
		{
			name: "Long Until Loop",
			src: ": main 0 begin 1 + " + strings.Repeat("nop ", 150) +
				"dup 3 = until ;",
			wantStack: []uint16{3},
		},
		{
			name: "Long While Loop",
			src: ": main 0 begin 1 + " + strings.Repeat("nop ", 150) +
				"dup 4 < while ;",
			wantStack: []uint16{4},
		},
		{
			name: "Long Again With Leave",
			src: ": main 1 begin leave " + strings.Repeat("nop ", 150) +
				"again 2 ;",
			wantStack: []uint16{1, 2},
		},
		{
			name:    "Console Ports",
			src:     ": emit 0xff00 storeb ; : main 72 emit 105 emit 0xff01 1234 swap store ;",
			wantOut: "Hi1234",
		},
		{
			name:      "Memory Round Trip",
			src:       ": main 0xbeef 0x8000 store 0x8000 load 0x8001 loadb ;",
			wantStack: []uint16{0xBEEF, 0xEF},
		},
		{
			name:      "Redefined Word Keeps Old Binding",
			src:       ": f 1 ; : g f ; : f 2 ; : main g f ;",
			wantStack: []uint16{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, out := run(t, tt.src)
			got := m.Data.Slice()
			if tt.wantStack == nil {
				tt.wantStack = []uint16{}
			}
			if !reflect.DeepEqual(got, tt.wantStack) {
				t.Errorf("data stack = %v, want %v", got, tt.wantStack)
			}
			if out != tt.wantOut {
				t.Errorf("output = %q, want %q", out, tt.wantOut)
			}
		})
	}
}

func TestCompileResult(t *testing.T) {
	res, err := Compile(": sq dup + ;\n: main 2 sq ;", "prog.fs", Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(res.Tokens) != 10 {
		t.Errorf("len(Tokens) = %d, want 10", len(res.Tokens))
	}
	want := []WordEntry{{"sq", 4}, {"main", 7}}
	if !reflect.DeepEqual(res.Words, want) {
		t.Errorf("Words = %+v, want %+v", res.Words, want)
	}
	if res.Image[1] != 0 || res.Image[2] != 7 {
		t.Errorf("entry operand = %02X %02X, want 00 07", res.Image[1], res.Image[2])
	}
}

func TestCompileFailure(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"Lexical", ": main 0xzz ;"},
		{"Structural", ": main begin ;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compile(tt.src, "bad.fs", Options{})
			if err == nil {
				t.Fatal("Compile succeeded, want error")
			}
			var ce *diag.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error is %T, want *diag.CompileError", err)
			}
			if res == nil || res.Image != nil {
				t.Errorf("failed compile must return diagnostics without an image")
			}
			if !strings.HasPrefix(err.Error(), "bad.fs:1:") {
				t.Errorf("error = %q, want file:line prefix", err.Error())
			}
			if !strings.Contains(res.Diagnostics.Report(false), "1 | "+tt.src) {
				t.Errorf("report does not quote the source line:\n%s", res.Diagnostics.Report(false))
			}
		})
	}
}
