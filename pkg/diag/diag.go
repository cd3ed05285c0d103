// Package diag accumulates compiler diagnostics so that a whole pass can run
// before deciding whether to abort.
package diag

import (
	"fmt"
	"strings"
)

// Level indicates the severity of a diagnostic.
type Level int

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Category classifies the problem.
type Category int

const (
	CategoryLexical Category = iota
	CategoryStructural
	CategoryRange
	CategoryCapacity
	CategoryResolution
)

func (c Category) String() string {
	switch c {
	case CategoryLexical:
		return "lexical"
	case CategoryStructural:
		return "structural"
	case CategoryRange:
		return "range"
	case CategoryCapacity:
		return "capacity"
	case CategoryResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// Location is a position in a source file.
type Location struct {
	File string
	Line int
}

func (loc Location) String() string {
	if loc.File == "" {
		return fmt.Sprintf("line %d", loc.Line)
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.Line)
}

// Diagnostic is a single reported problem.
type Diagnostic struct {
	Level      Level
	Category   Category
	Message    string
	Location   Location
	SourceLine string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Location, d.Message)
}

// Format renders the diagnostic with its source line, optionally in ANSI color.
func (d Diagnostic) Format(useColor bool) string {
	var sb strings.Builder

	if useColor {
		if d.Level == LevelWarning {
			sb.WriteString("\033[1;33m")
		} else {
			sb.WriteString("\033[1;31m")
		}
	}
	fmt.Fprintf(&sb, "%s[%s]: ", d.Level, d.Category)
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(d.Message)
	sb.WriteString("\n")

	if useColor {
		sb.WriteString("\033[1;34m")
	}
	sb.WriteString("  --> ")
	sb.WriteString(d.Location.String())
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString("\n")

	if d.SourceLine != "" {
		lineNum := fmt.Sprintf("%d", d.Location.Line)
		padding := strings.Repeat(" ", len(lineNum)+1)
		sb.WriteString(padding)
		sb.WriteString("|\n")
		sb.WriteString(lineNum)
		sb.WriteString(" | ")
		sb.WriteString(d.SourceLine)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Collector accumulates diagnostics for one compilation.
type Collector struct {
	file     string
	lines    []string
	errors   []Diagnostic
	warnings []Diagnostic
}

// NewCollector returns a collector attributing diagnostics to file.
func NewCollector(file string) *Collector {
	return &Collector{file: file}
}

// SetSource stores the source text so diagnostics can quote the offending line.
func (c *Collector) SetSource(src string) {
	c.lines = strings.Split(src, "\n")
}

func (c *Collector) sourceLine(n int) string {
	if n <= 0 || n > len(c.lines) {
		return ""
	}
	return strings.TrimRight(c.lines[n-1], "\r")
}

func (c *Collector) add(level Level, cat Category, line int, format string, args ...any) {
	d := Diagnostic{
		Level:      level,
		Category:   cat,
		Message:    fmt.Sprintf(format, args...),
		Location:   Location{File: c.file, Line: line},
		SourceLine: c.sourceLine(line),
	}
	if level == LevelError {
		c.errors = append(c.errors, d)
	} else {
		c.warnings = append(c.warnings, d)
	}
}

// Errorf records an error on line.
func (c *Collector) Errorf(cat Category, line int, format string, args ...any) {
	c.add(LevelError, cat, line, format, args...)
}

// Warnf records a warning on line.
func (c *Collector) Warnf(cat Category, line int, format string, args ...any) {
	c.add(LevelWarning, cat, line, format, args...)
}

func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *Collector) ErrorCount() int {
	return len(c.errors)
}

func (c *Collector) WarningCount() int {
	return len(c.warnings)
}

// Errors returns the recorded errors in report order.
func (c *Collector) Errors() []Diagnostic {
	return append([]Diagnostic(nil), c.errors...)
}

// Warnings returns the recorded warnings in report order.
func (c *Collector) Warnings() []Diagnostic {
	return append([]Diagnostic(nil), c.warnings...)
}

// Report formats all errors, then all warnings, followed by a summary line.
func (c *Collector) Report(useColor bool) string {
	var sb strings.Builder

	all := append(c.Errors(), c.warnings...)
	for i, d := range all {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.Format(useColor))
	}

	if len(all) > 0 {
		sb.WriteString("\n")
		if len(c.errors) > 0 {
			fmt.Fprintf(&sb, "%d error(s)", len(c.errors))
		}
		if len(c.warnings) > 0 {
			if len(c.errors) > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%d warning(s)", len(c.warnings))
		}
		sb.WriteString(" found\n")
	}
	return sb.String()
}

// Err returns a *CompileError when any error was recorded, nil otherwise.
func (c *Collector) Err() error {
	if !c.HasErrors() {
		return nil
	}
	return &CompileError{Collector: c}
}

// CompileError reports that a compilation failed.
type CompileError struct {
	Collector *Collector
}

func (e *CompileError) Error() string {
	first := e.Collector.errors[0]
	if n := len(e.Collector.errors); n > 1 {
		return fmt.Sprintf("%s (and %d more error(s))", first.Error(), n-1)
	}
	return first.Error()
}
