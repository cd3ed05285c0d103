package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	"forthc/pkg/config"
)

const banner = `forthc console
  : name ... ;   define a word
  <words>        run as the body of main
  .words .list .reset .asm <op|op|...>   bye to quit
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[32mforth>\033[0m ",
		HistoryFile:       filepath.Join(os.TempDir(), "forthc_console.history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "bye",
		HistorySearchFold: true,
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem(".words"),
			readline.PcItem(".list"),
			readline.PcItem(".reset"),
			readline.PcItem(".asm"),
			readline.PcItem("bye"),
		),
	})
	if err != nil {
		log.Fatalf("Failed to start line editor: %v", err)
	}
	defer l.Close()

	fmt.Fprint(l.Stdout(), banner)
	s := newSession(l.Stdout(), cfg.Gas, cfg.UseColor(os.Stdout.Fd()))

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			log.Fatalf("Read failed: %v", err)
		}

		if !s.handle(line) {
			break
		}
	}
}
