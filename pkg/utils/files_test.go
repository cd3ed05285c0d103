package utils

import (
	"path/filepath"
	"testing"
)

func TestGetPathInfo(t *testing.T) {
	full, dir, err := GetPathInfo(filepath.Join("examples", "..", "prog.fs"))
	if err != nil {
		t.Fatalf("GetPathInfo: %v", err)
	}
	if !filepath.IsAbs(full) || filepath.Base(full) != "prog.fs" {
		t.Errorf("fullPath = %q", full)
	}
	if dir != filepath.Dir(full) {
		t.Errorf("parentDir = %q, want %q", dir, filepath.Dir(full))
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, ext, want string
	}{
		{"prog.fs", ".hex", "prog.hex"},
		{"dir/prog.forth", ".hex", "dir/prog.hex"},
		{"prog", ".hex", "prog.hex"},
		{"prog.hex", ".hex", "prog.hex.hex"},
		{"a.b/prog", ".rom", "a.b/prog.rom"},
	}
	for _, tc := range tests {
		if got := OutputPath(tc.in, tc.ext); got != tc.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tc.in, tc.ext, got, tc.want)
		}
	}
}
