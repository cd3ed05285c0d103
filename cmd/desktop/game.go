package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"forthc/pkg/grid"
	"forthc/pkg/vm"
)

const (
	stepsPerFrame = 10000

	cellW = 7
	cellH = 13

	vramW    = vm.TextCols * cellW
	vramRows = vm.TextVRAMSize / vm.TextCols
	vramH    = vramRows * cellH
	paneW    = 32 * cellW
	statusH  = 16

	consoleLines = vramRows
)

var (
	vramColor    = color.White
	consoleColor = color.RGBA{0x60, 0xE0, 0x60, 0xFF}
	paneColor    = color.RGBA{0x18, 0x18, 0x20, 0xFF}
)

// consoleLog collects what the program prints through the console ports and
// keeps the most recent lines.
type consoleLog struct {
	lines   []string
	partial strings.Builder
	limit   int
}

func newConsoleLog(limit int) *consoleLog {
	return &consoleLog{limit: limit}
}

func (c *consoleLog) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			c.push(c.partial.String())
			c.partial.Reset()
			continue
		}
		if b >= 0x20 && b < 0x7F {
			c.partial.WriteByte(b)
		}
	}
	return len(p), nil
}

func (c *consoleLog) push(line string) {
	c.lines = append(c.lines, line)
	if len(c.lines) > c.limit {
		c.lines = c.lines[len(c.lines)-c.limit:]
	}
}

// Lines returns the visible lines, including an unterminated last line.
func (c *consoleLog) Lines() []string {
	out := append([]string(nil), c.lines...)
	if c.partial.Len() > 0 {
		out = append(out, c.partial.String())
	}
	if len(out) > c.limit {
		out = out[len(out)-c.limit:]
	}
	return out
}

type Game struct {
	vm      *vm.Machine
	image   []byte
	console *consoleLog
	reload  chan []byte
	err     error
}

func NewGame(img []byte) (*Game, error) {
	g := &Game{
		console: newConsoleLog(consoleLines),
		reload:  make(chan []byte, 1),
	}
	if err := g.load(img); err != nil {
		return nil, err
	}
	return g, nil
}

// load restarts the machine with img.
func (g *Game) load(img []byte) error {
	m, err := vm.New(img)
	if err != nil {
		return err
	}
	m.Output = g.console
	g.vm = m
	g.image = img
	g.err = nil
	return nil
}

// Reload queues a new image; it replaces the running program on the next frame.
func (g *Game) Reload(img []byte) {
	select {
	case g.reload <- img:
	default:
		<-g.reload
		g.reload <- img
	}
}

func (g *Game) Update() error {
	select {
	case img := <-g.reload:
		if err := g.load(img); err != nil {
			g.err = err
		}
	default:
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x100 {
			g.vm.PushKey(byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.vm.PushKey(10) // ASCII newline
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.vm.PushKey(8) // ASCII backspace
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.load(g.image)
	}

	g.tick(stepsPerFrame)
	return nil
}

// tick executes up to n instructions, stopping at halt or the first fault.
func (g *Game) tick(n int) {
	for i := 0; i < n; i++ {
		if g.vm.Halted || g.err != nil {
			return
		}
		if err := g.vm.Step(); err != nil {
			g.err = err
		}
	}
}

func (g *Game) status() string {
	state := "running"
	switch {
	case g.err != nil:
		state = g.err.Error()
	case g.vm.Halted:
		state = "halted (F5 restarts)"
	}
	return fmt.Sprintf("PC=%04X cycles=%d data=%v | %s", g.vm.PC, g.vm.Cycles, g.vm.Data.Slice(), state)
}

func (g *Game) Draw(screen *ebiten.Image) {
	face := basicfont.Face7x13

	for i, charCode := range g.vm.TextVRAM() {
		if charCode == 0 {
			continue
		}
		px, py := grid.CellOrigin(i, vm.TextCols, cellW, cellH)
		text.Draw(screen, string(rune(charCode)), face, px, py+face.Ascent, vramColor)
	}

	pane := screen.SubImage(image.Rect(vramW, 0, vramW+paneW, vramH)).(*ebiten.Image)
	pane.Fill(paneColor)
	for row, line := range g.console.Lines() {
		text.Draw(screen, line, face, vramW+2, row*cellH+face.Ascent, consoleColor)
	}

	ebitenutil.DebugPrintAt(screen, g.status(), 0, vramH)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return vramW + paneW, vramH + statusH
}
