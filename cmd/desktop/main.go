package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"forthc/pkg/compiler"
	"forthc/pkg/config"
	"forthc/pkg/rom"
	"forthc/pkg/utils"
	"forthc/pkg/watch"
)

// loadProgram returns the image in path. Hex images are decoded; anything
// else is compiled as source.
func loadProgram(path string, cfg *config.Config) ([]byte, error) {
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(fullPath), cfg.OutputExt) {
		f, err := os.Open(fullPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return rom.Decode(f)
	}

	src, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	res, err := compiler.Compile(string(src), path, compiler.Options{ShadowWarnings: cfg.ShadowWarnings})
	if report := res.Diagnostics.Report(cfg.UseColor(os.Stderr.Fd())); report != "" {
		fmt.Fprint(os.Stderr, report)
	}
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

func main() {
	watchFlag := flag.Bool("watch", false, "reload the program when the file changes")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [-watch] <source.fs|image.hex>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	img, err := loadProgram(path, cfg)
	if err != nil {
		log.Fatalf("Failed to load program: %v", err)
	}

	game, err := NewGame(img)
	if err != nil {
		log.Fatalf("Failed to start machine: %v", err)
	}

	if *watchFlag {
		w, err := watch.New(func(string) {
			img, err := loadProgram(path, cfg)
			if err != nil {
				log.Printf("Reload failed: %v", err)
				return
			}
			game.Reload(img)
		})
		if err != nil {
			log.Fatalf("Failed to watch %s: %v", path, err)
		}
		defer w.Close()
		if err := w.Add(path); err != nil {
			log.Fatalf("Failed to watch %s: %v", path, err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)
	}

	w, h := game.Layout(0, 0)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(w*2, h*2)
	ebiten.SetWindowTitle("forthc monitor - " + filepath.Base(path))

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
