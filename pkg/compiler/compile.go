package compiler

import (
	"forthc/pkg/diag"
)

// Result is everything a compilation produced.
type Result struct {
	Image       []byte // nil when compilation failed
	Tokens      []Token
	Words       []WordEntry
	Diagnostics *diag.Collector
}

// Compile scans and generates src. file is only used to label diagnostics.
// On failure the returned error is a *diag.CompileError and Result.Image is nil;
// the Result is still returned so callers can print its diagnostics.
func Compile(src, file string, opts Options) (*Result, error) {
	diags := diag.NewCollector(file)
	diags.SetSource(src)
	res := &Result{Diagnostics: diags}

	tokens, ok := Scan(src, diags)
	if !ok {
		return res, diags.Err()
	}
	res.Tokens = tokens

	out, ok := Generate(tokens, diags, opts)
	if !ok {
		return res, diags.Err()
	}

	res.Image = out.Rom.Bytes()
	res.Words = out.Words.Entries()
	return res, nil
}
