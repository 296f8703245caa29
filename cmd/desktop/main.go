package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/colornames"

	"brain/pkg/compiler"
	"brain/pkg/grid"
	"brain/pkg/tape"
	"brain/pkg/utils"
)

const (
	cols       = 16
	cellWidth  = 32
	cellHeight = 24
	shownCells = 128

	statusHeight = 80
	screenWidth  = cols * cellWidth
)

// Game steps a tape machine and draws the cells around the head.
type Game struct {
	vm     *tape.Machine
	keys   *bytes.Buffer // typed input not yet read by the program
	out    *bytes.Buffer
	speed  int // steps per frame
	paused bool
	err    error
}

func NewGame(vm *tape.Machine, speed int) *Game {
	g := &Game{
		vm:    vm,
		keys:  new(bytes.Buffer),
		out:   new(bytes.Buffer),
		speed: speed,
	}
	vm.Input = g.keys
	vm.Output = g.out
	return g
}

// waiting reports whether the next instruction reads input that has not
// been typed yet.
func (g *Game) waiting() bool {
	return !g.vm.Halted && g.vm.Prog.Code[g.vm.PC] == tape.OpIn && g.keys.Len() == 0
}

// advance runs up to n steps, stopping early when the program halts,
// fails or waits for a key.
func (g *Game) advance(n int) {
	for i := 0; i < n && g.err == nil; i++ {
		if g.vm.Halted || g.waiting() {
			return
		}
		g.err = g.vm.Step()
	}
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 256 {
			g.keys.WriteByte(byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.keys.WriteByte('\n')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}

	switch {
	case g.paused && inpututil.IsKeyJustPressed(ebiten.KeyRight):
		g.advance(1)
	case !g.paused:
		g.advance(g.speed)
	}
	return nil
}

// cellColor picks the background of a cell.
func cellColor(value byte, head bool) color.Color {
	switch {
	case head:
		return colornames.Gold
	case value != 0:
		return colornames.Seagreen
	default:
		return colornames.Darkslategray
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)

	cells, first := g.vm.Window(g.vm.Head, shownCells)
	for i, v := range cells {
		x, y := grid.GetGridCoords(i, cols)
		px, py := x*cellWidth, y*cellHeight
		r := image.Rect(px+1, py+1, px+cellWidth-1, py+cellHeight-1)
		screen.SubImage(r).(*ebiten.Image).Fill(cellColor(v, first+i == g.vm.Head))
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%3d", v), px+4, py+4)
	}

	ebitenutil.DebugPrintAt(screen, g.status(first, len(cells)), 4, gridHeight()+4)
}

// status is the text shown under the tape.
func (g *Game) status(first, n int) string {
	var sb strings.Builder
	state := "running"
	switch {
	case g.err != nil:
		state = "error: " + g.err.Error()
	case g.vm.Halted:
		state = "halted"
	case g.waiting():
		state = "waiting for input"
	case g.paused:
		state = "paused (space resumes, right steps)"
	}
	fmt.Fprintf(&sb, "%s\nstep %d  head %d  line %d  cells %d-%d\n", state, g.vm.Steps, g.vm.Head, g.vm.Line(), first, first+n-1)

	out := strings.TrimSuffix(g.out.String(), "\n")
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	fmt.Fprintf(&sb, "> %s", out)
	return sb.String()
}

func gridHeight() int {
	return grid.Rows(shownCells, cols) * cellHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, gridHeight() + statusHeight
}

func main() {
	speed := flag.Int("speed", 2000, "steps per frame")
	cells := flag.Int("cells", tape.DefaultCells, "tape length")
	showProgram := flag.Bool("show", false, "print the generated program")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] <source file>")
		os.Exit(2)
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	src, err := utils.ReadSource(fullPath)
	if err != nil {
		log.Fatal(err)
	}
	text, err := compiler.Compile(src)
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	if *showProgram {
		fmt.Printf("Generated program:\n%s\n", text)
	}
	prog, err := tape.Assemble(text)
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth*2, (gridHeight()+statusHeight)*2)
	ebiten.SetWindowTitle("brain tape")

	game := NewGame(tape.NewMachine(prog, tape.WithCells(*cells)), *speed)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
