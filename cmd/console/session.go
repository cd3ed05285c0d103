package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"forthc/pkg/asm"
	"forthc/pkg/compiler"
	"forthc/pkg/vm"
)

// session holds the dictionary built up by the user. Every input line is
// compiled together with all accepted definitions.
type session struct {
	defs     []string
	lastImg  []byte
	gas      int
	useColor bool
	out      io.Writer
}

func newSession(out io.Writer, gas int, useColor bool) *session {
	return &session{out: out, gas: gas, useColor: useColor}
}

// handle processes one input line. It returns false when the user asked to quit.
func (s *session) handle(line string) bool {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")

	switch strings.ToLower(cmd) {
	case "":
	case "bye":
		return false
	case ".words":
		s.words()
	case ".list":
		if s.lastImg == nil {
			fmt.Fprintln(s.out, "nothing compiled yet")
			break
		}
		fmt.Fprint(s.out, asm.Disassemble(s.lastImg))
	case ".reset":
		s.defs = nil
		s.lastImg = nil
		fmt.Fprintln(s.out, "dictionary cleared")
	case ".asm":
		s.assemble(rest)
	case ":":
		s.define(line)
	default:
		s.eval(line)
	}
	return true
}

func (s *session) source(extra string) string {
	return strings.Join(append(append([]string(nil), s.defs...), extra), "\n")
}

func (s *session) compile(src string) (*compiler.Result, bool) {
	res, err := compiler.Compile(src, "console", compiler.Options{ShadowWarnings: true})
	if err != nil {
		fmt.Fprint(s.out, res.Diagnostics.Report(s.useColor))
		return res, false
	}
	return res, true
}

// define accepts a line of definitions if the dictionary still compiles.
func (s *session) define(line string) {
	if _, ok := s.compile(s.source(line)); !ok {
		return
	}
	s.defs = append(s.defs, line)
	fmt.Fprintln(s.out, "ok")
}

// eval runs line as the body of a temporary main.
func (s *session) eval(line string) {
	res, ok := s.compile(s.source(": main " + line + " ;"))
	if !ok {
		return
	}
	s.lastImg = res.Image
	s.run(res.Image)
}

func (s *session) words() {
	res, ok := s.compile(s.source(""))
	if !ok {
		return
	}
	if len(res.Words) == 0 {
		fmt.Fprintln(s.out, "no words defined")
		return
	}
	for _, w := range res.Words {
		fmt.Fprintf(s.out, "%-32s 0x%04X\n", w.Name, w.Address)
	}
}

// assemble runs mnemonic text; instructions are separated by '|'.
func (s *session) assemble(text string) {
	img, _, err := asm.Assemble(strings.ReplaceAll(text, "|", "\n"))
	if err != nil {
		fmt.Fprintf(s.out, "assembly failed: %v\n", err)
		return
	}
	s.lastImg = img
	s.run(append(img, byte(vm.OpHalt)))
}

func (s *session) run(img []byte) {
	m, err := vm.New(img)
	if err != nil {
		fmt.Fprintf(s.out, "load failed: %v\n", err)
		return
	}

	var output bytes.Buffer
	m.Output = &output
	runErr := m.Run(s.gas)

	if output.Len() > 0 {
		fmt.Fprint(s.out, output.String())
		if !bytes.HasSuffix(output.Bytes(), []byte("\n")) {
			fmt.Fprintln(s.out)
		}
	}
	if runErr != nil {
		fmt.Fprintf(s.out, "error: %v\n", runErr)
	}
	fmt.Fprintf(s.out, "ok %v\n", m.Data.Slice())
}
