package render

import (
	"sync"

	"github.com/nsf/termbox-go"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

const actionLines = 4

var tankColors = map[int]termbox.Attribute{
	1: termbox.ColorGreen,
	2: termbox.ColorCyan,
}

// Terminal draws every turn on a termbox screen. Esc, Ctrl-C or q closes
// the channel returned by Done.
type Terminal struct {
	actions   []string
	done      chan struct{}
	polled    chan struct{}
	once      sync.Once
	closeOnce sync.Once
	mu        sync.Mutex
}

// OpenTerminal takes over the terminal. Callers must Close it.
func OpenTerminal() (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, err
	}
	termbox.SetInputMode(termbox.InputEsc)

	t := &Terminal{done: make(chan struct{}), polled: make(chan struct{})}
	go t.poll()
	return t, nil
}

func (t *Terminal) poll() {
	defer close(t.polled)
	for {
		ev := termbox.PollEvent()
		switch ev.Type {
		case termbox.EventKey:
			if ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC || ev.Ch == 'q' {
				t.stop()
			}
		case termbox.EventInterrupt:
			return
		case termbox.EventError:
			t.stop()
			return
		}
	}
}

func (t *Terminal) stop() {
	t.once.Do(func() { close(t.done) })
}

// Done is closed once the user asks to quit
func (t *Terminal) Done() <-chan struct{} {
	return t.done
}

// Close restores the terminal. It is safe to call more than once.
func (t *Terminal) Close() {
	t.closeOnce.Do(func() {
		t.stop()
		select {
		case <-t.polled:
		default:
			termbox.Interrupt()
			<-t.polled
		}
		termbox.Close()
	})
}

func (t *Terminal) OnAction(entry engine.ActionLogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions = append(t.actions, entry.String())
	if len(t.actions) > actionLines {
		t.actions = t.actions[len(t.actions)-actionLines:]
	}
}

func (t *Terminal) OnTurn(snap engine.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	g := snap.Grid
	if g == nil {
		termbox.Flush()
		return
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			ch, fg, bg := terrainCell(g.CellAt(x, y))
			termbox.SetCell(x, y, ch, fg, bg)
		}
	}
	for _, s := range snap.Shells {
		if p, ok := g.NormalizePos(s.Position); ok && s.Active {
			termbox.SetCell(p.X, p.Y, '•', termbox.ColorYellow, termbox.ColorDefault)
		}
	}
	for _, tank := range snap.Tanks {
		p, ok := g.NormalizePos(tank.Position)
		if !ok {
			continue
		}
		fg, ok := tankColors[tank.ID]
		if !ok {
			fg = termbox.ColorWhite
		}
		if !tank.Alive {
			termbox.SetCell(p.X, p.Y, GlyphWreck, termbox.ColorRed, termbox.ColorDefault)
			continue
		}
		termbox.SetCell(p.X, p.Y, arrow(tank.Facing), fg|termbox.AttrBold, termbox.ColorDefault)
	}

	row := g.Height + 1
	drawText(0, row, Status(snap), termbox.ColorWhite)
	for i, line := range t.actions {
		drawText(0, row+2+i, line, termbox.ColorDefault)
	}
	drawText(0, row+3+actionLines, "ESC/q:Exit", termbox.ColorWhite)

	termbox.Flush()
}

func terrainCell(t engine.Terrain) (rune, termbox.Attribute, termbox.Attribute) {
	switch t {
	case engine.Wall:
		return '█', termbox.ColorMagenta, termbox.ColorDefault
	case engine.WeakWall:
		return '▒', termbox.ColorMagenta, termbox.ColorDefault
	case engine.Mine:
		return GlyphMine, termbox.ColorRed, termbox.ColorDefault
	case engine.Boom:
		return '*', termbox.ColorYellow, termbox.ColorRed
	}
	return ' ', termbox.ColorDefault, termbox.ColorDefault
}

func arrow(d engine.Direction) rune {
	switch d.Rotate(0) {
	case engine.Up:
		return '↑'
	case engine.UpRight:
		return '↗'
	case engine.Right:
		return '→'
	case engine.DownRight:
		return '↘'
	case engine.Down:
		return '↓'
	case engine.DownLeft:
		return '↙'
	case engine.Left:
		return '←'
	case engine.UpLeft:
		return '↖'
	}
	return '?'
}

func drawText(x, y int, text string, fg termbox.Attribute) {
	i := 0
	for _, c := range text {
		termbox.SetCell(x+i, y, c, fg, termbox.ColorDefault)
		i++
	}
}
