// Command fdump compiles a source file and prints every stage: the source,
// the token stream, the word table and an annotated listing of the image.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"forthc/pkg/asm"
	"forthc/pkg/compiler"
)

const testSource = `: square dup + ;
: main 7 square 0xff01 store ;
`

func main() {
	src := testSource
	file := "<builtin>"
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
		file = os.Args[1]
	}

	if err := dump(os.Stdout, src, file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dump(w io.Writer, src, file string) error {
	fmt.Fprintf(w, "Source:\n%s\n", src)

	res, err := compiler.Compile(src, file, compiler.Options{ShadowWarnings: true})

	fmt.Fprintf(w, "Tokens (%d)\n", len(res.Tokens))
	for _, tok := range res.Tokens {
		fmt.Fprintln(w, " ", tok)
	}
	fmt.Fprintln(w)

	if report := res.Diagnostics.Report(false); report != "" {
		fmt.Fprintf(w, "Diagnostics\n%s\n", report)
	}
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	words := compiler.NewWordTable()
	for _, e := range res.Words {
		words.Define(e.Name, e.Address)
	}
	fmt.Fprint(w, words)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Image (%d bytes)\n", len(res.Image))
	fmt.Fprint(w, annotate(asm.Disassemble(res.Image), res.Words))
	return nil
}

// annotate inserts a "name:" line before the listing line at each word's
// entry address.
func annotate(listing string, entries []compiler.WordEntry) string {
	labels := make(map[string][]string)
	for _, e := range entries {
		key := fmt.Sprintf("%04X", e.Address)
		labels[key] = append(labels[key], e.Name)
	}

	var sb strings.Builder
	for _, line := range strings.SplitAfter(listing, "\n") {
		if len(line) >= 4 {
			for _, name := range labels[line[:4]] {
				fmt.Fprintf(&sb, "%s:\n", name)
			}
		}
		sb.WriteString(line)
	}
	return sb.String()
}
