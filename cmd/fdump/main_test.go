package main

import (
	"bytes"
	"strings"
	"testing"

	"forthc/pkg/compiler"
)

func TestDumpBuiltin(t *testing.T) {
	var out bytes.Buffer
	if err := dump(&out, testSource, "<builtin>"); err != nil {
		t.Fatalf("dump: %v", err)
	}

	// square occupies 4..6, so main starts at 7.
	for _, want := range []string{
		"Source:\n: square",
		"Tokens (",
		"Image (",
		"square:\n0004  DUP\n0005  ADD\n0006  RET\n",
		"main:\n0007  PUSH   0x0007\n000A  CALL   0x0004\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestDumpCompileError(t *testing.T) {
	var out bytes.Buffer
	err := dump(&out, ": main frob ;", "bad.fs")
	if err == nil {
		t.Fatal("dump succeeded on a program with an unknown word")
	}
	if !strings.Contains(out.String(), "unknown word 'frob'") {
		t.Errorf("diagnostics not printed:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Image (") {
		t.Errorf("image listed after a failed compile")
	}
}

func TestAnnotate(t *testing.T) {
	listing := "0000  CALL   0x0004\n0003  HALT\n0004  RET\n"
	got := annotate(listing, []compiler.WordEntry{{Name: "main", Address: 4}})
	want := "0000  CALL   0x0004\n0003  HALT\nmain:\n0004  RET\n"
	if got != want {
		t.Errorf("annotate() = %q, want %q", got, want)
	}
}
