package main

import (
	"bytes"
	"os"
	"reflect"
	"testing"

	"forthc/pkg/compiler"
	"forthc/pkg/vm"
)

// runApp compiles a program from _fsapps and runs it until it halts.
func runApp(t *testing.T, name string, keys ...byte) (*vm.Machine, string) {
	t.Helper()

	srcPath := "_fsapps/" + name
	srcBytes, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}

	res, err := compiler.Compile(string(srcBytes), srcPath, compiler.Options{ShadowWarnings: true})
	if err != nil {
		t.Fatalf("Compile failed: %v\n%s", err, res.Diagnostics.Report(false))
	}
	if res.Diagnostics.WarningCount() != 0 {
		t.Errorf("unexpected warnings:\n%s", res.Diagnostics.Report(false))
	}

	m, err := vm.New(res.Image)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	for _, k := range keys {
		m.PushKey(k)
	}

	var output bytes.Buffer
	m.Output = &output

	if err := m.Run(1000000); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !m.Halted {
		t.Errorf("VM did not halt")
	}
	return m, output.String()
}

func TestHelloApp(t *testing.T) {
	m, out := runApp(t, "hello.fs")
	if out != "Hello\n" {
		t.Errorf("output = %q, want %q", out, "Hello\n")
	}
	if m.Data.Depth != 0 || m.Return.Depth != 0 {
		t.Errorf("stacks not empty: data=%v return=%v", m.Data.Slice(), m.Return.Slice())
	}
}

func TestCountdownApp(t *testing.T) {
	_, out := runApp(t, "countdown.fs")
	if want := "5 4 3 2 1 "; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestVRAMApp(t *testing.T) {
	m, _ := runApp(t, "vram.fs")
	screen := m.TextVRAM()
	if string(screen[:2]) != "OK" {
		t.Errorf("first row = %q, want \"OK\"", screen[:2])
	}
	if screen[vm.TextCols] != '!' {
		t.Errorf("second row starts with %q, want '!'", screen[vm.TextCols])
	}
}

func TestKeysApp(t *testing.T) {
	m, _ := runApp(t, "keys.fs", 'a', 'b', 'c')
	if got := m.Data.Slice(); !reflect.DeepEqual(got, []uint16{3}) {
		t.Errorf("stack = %v, want [3]", got)
	}
}

func TestLongLoopApp(t *testing.T) {
	m, _ := runApp(t, "longloop.fs")
	if got := m.Data.Slice(); !reflect.DeepEqual(got, []uint16{3}) {
		t.Errorf("stack = %v, want [3]", got)
	}
}
