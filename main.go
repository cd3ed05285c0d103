//go:build !js

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"forthc/pkg/asm"
	"forthc/pkg/compiler"
	"forthc/pkg/config"
	"forthc/pkg/rom"
	"forthc/pkg/utils"
	"forthc/pkg/vm"
	"forthc/pkg/watch"
)

// options are the resolved command-line settings.
type options struct {
	source   string
	outPath  string
	run      bool
	runHex   string
	list     bool
	verbose  bool
	gas      int
	watch    bool
	snapshot string
	resume   string
	color    bool
	shadow   bool
	ext      string
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 2
	}

	opts, code := parseFlags(args, cfg, stderr)
	if code >= 0 {
		return code
	}

	switch {
	case opts.resume != "":
		if err := resumeSnapshot(opts, stdout); err != nil {
			fmt.Fprintf(stderr, "resume failed for %q: %v\n", opts.resume, err)
			return 1
		}
		return 0

	case opts.runHex != "":
		img, err := readHex(opts.runHex)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read image %q: %v\n", opts.runHex, err)
			return 1
		}
		if opts.list {
			fmt.Fprint(stdout, asm.Disassemble(img))
		}
		if err := runImage(img, opts, stdout); err != nil {
			fmt.Fprintf(stderr, "run failed for %q: %v\n", opts.runHex, err)
			return 1
		}
		return 0
	}

	img, ok := build(opts, stdout, stderr)
	if ok && opts.run {
		if err := runImage(img, opts, stdout); err != nil {
			fmt.Fprintf(stderr, "run failed: %v\n", err)
			ok = false
		}
	}
	if !opts.watch {
		if !ok {
			return 1
		}
		return 0
	}

	if err := watchSource(opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "watch failed: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, int) {
	fs := flag.NewFlagSet("forthc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: forthc [flags] <source>")
		fs.PrintDefaults()
	}

	opts := &options{ext: cfg.OutputExt, shadow: cfg.ShadowWarnings}
	fs.StringVar(&opts.outPath, "o", "", "output image path (default: source with "+cfg.OutputExt+" extension)")
	fs.BoolVar(&opts.run, "run", false, "run the compiled image on the virtual machine")
	fs.StringVar(&opts.runHex, "run-hex", "", "run an existing hex image on the virtual machine")
	fs.BoolVar(&opts.list, "list", false, "print a disassembly listing of the image")
	fs.BoolVar(&opts.verbose, "v", cfg.Verbose, "print the token and word tables")
	fs.IntVar(&opts.gas, "gas", cfg.Gas, "instruction budget for -run (0 means unlimited)")
	fs.BoolVar(&opts.watch, "watch", false, "recompile whenever the source changes")
	fs.StringVar(&opts.snapshot, "snapshot", "", "write a machine snapshot to this file after running")
	fs.StringVar(&opts.resume, "resume", "", "resume a machine snapshot")
	colorFlag := fs.String("color", string(cfg.Color), "color diagnostics: auto, always or never")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, 0
		}
		return nil, 2
	}

	mode, err := config.ParseColorMode(*colorFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, 2
	}
	cfg.Color = mode
	opts.color = cfg.UseColor(os.Stderr.Fd())

	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "only one source file may be given")
		return nil, 2
	}
	opts.source = fs.Arg(0)

	switch {
	case opts.source == "" && opts.runHex == "" && opts.resume == "":
		fmt.Fprintln(stderr, "nothing to do: provide a source file, -run-hex <file> or -resume <file>")
		fs.Usage()
		return nil, 2
	case opts.source != "" && (opts.runHex != "" || opts.resume != ""):
		fmt.Fprintln(stderr, "a source file cannot be combined with -run-hex or -resume")
		return nil, 2
	case opts.runHex != "" && opts.resume != "":
		fmt.Fprintln(stderr, "use either -run-hex or -resume, not both")
		return nil, 2
	case opts.watch && opts.source == "":
		fmt.Fprintln(stderr, "-watch requires a source file")
		return nil, 2
	case opts.gas < 0:
		fmt.Fprintln(stderr, "-gas must not be negative")
		return nil, 2
	}

	if opts.source != "" && opts.outPath == "" {
		opts.outPath = utils.OutputPath(opts.source, opts.ext)
	}
	return opts, -1
}

// build compiles the source file and writes the hex image. The output file is
// only written when compilation succeeds.
func build(opts *options, stdout, stderr io.Writer) ([]byte, bool) {
	fullPath, _, err := utils.GetPathInfo(opts.source)
	if err != nil {
		fmt.Fprintf(stderr, "invalid source path %q: %v\n", opts.source, err)
		return nil, false
	}
	src, err := os.ReadFile(fullPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read source file %q: %v\n", opts.source, err)
		return nil, false
	}

	res, err := compiler.Compile(string(src), opts.source, compiler.Options{ShadowWarnings: opts.shadow})
	if report := res.Diagnostics.Report(opts.color); report != "" {
		fmt.Fprint(stderr, report)
	}

	if opts.verbose {
		dumpTables(stdout, res)
	}
	if err != nil {
		fmt.Fprintf(stderr, "compilation failed: %v\n", err)
		return nil, false
	}

	if err := writeHex(opts.outPath, res.Image); err != nil {
		fmt.Fprintf(stderr, "failed to write image %q: %v\n", opts.outPath, err)
		return nil, false
	}
	fmt.Fprintf(stdout, "compiled %d bytes -> %s\n", len(res.Image), opts.outPath)

	if opts.list {
		fmt.Fprint(stdout, asm.Disassemble(res.Image))
	}
	return res.Image, true
}

func dumpTables(w io.Writer, res *compiler.Result) {
	fmt.Fprintf(w, "Tokens (%d)\n", len(res.Tokens))
	for _, tok := range res.Tokens {
		fmt.Fprintln(w, tok)
	}
	fmt.Fprintln(w)

	words := compiler.NewWordTable()
	for _, e := range res.Words {
		words.Define(e.Name, e.Address)
	}
	fmt.Fprint(w, words)
}

func writeHex(path string, img []byte) error {
	var buf bytes.Buffer
	if err := rom.Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func readHex(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return rom.Decode(f)
}

func runImage(img []byte, opts *options, stdout io.Writer) error {
	m, err := vm.New(img)
	if err != nil {
		return err
	}
	return execute(m, opts, stdout)
}

func resumeSnapshot(opts *options, stdout io.Writer) error {
	m := &vm.Machine{}
	if err := m.RestoreFromFile(opts.resume); err != nil {
		return err
	}
	return execute(m, opts, stdout)
}

// execute runs m to completion and prints a register summary. When a
// snapshot path is set the machine is saved even if the run stopped early.
func execute(m *vm.Machine, opts *options, stdout io.Writer) error {
	m.Output = stdout
	runErr := m.Run(opts.gas)

	if opts.snapshot != "" {
		if err := m.HibernateToFile(opts.snapshot); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	fmt.Fprintf(stdout, "\nrun complete: PC=0x%04X cycles=%d halted=%t stack=%v\n",
		m.PC, m.Cycles, m.Halted, m.Data.Slice())
	return runErr
}

func watchSource(opts *options, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w, err := watch.New(func(path string) {
		fmt.Fprintf(stdout, "%s changed, recompiling\n", path)
		if img, ok := build(opts, stdout, stderr); ok && opts.run {
			if err := runImage(img, opts, stdout); err != nil {
				fmt.Fprintf(stderr, "run failed: %v\n", err)
			}
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(opts.source); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "watching %s (Ctrl-C to stop)\n", opts.source)

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
