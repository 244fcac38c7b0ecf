// Package chatui is the terminal collaborator surface: a scrollback
// pane plus an input line, driven by the same PollEvent-into-a-channel
// idiom the teacher's game loop used, merged here with the node's own
// stream of FrontendEvents and a redraw ticker.
package chatui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/dispatch"
)

// Line is one rendered row of scrollback: text plus the color to draw
// it in (peer-colored for chat, default for system notices).
type Line struct {
	Text  string
	Color tcell.Color
}

// UI owns the tcell screen, the scrollback buffer, and the input line.
// Send is called once per Enter keypress with the composed message.
type UI struct {
	screen tcell.Screen
	log    *logrus.Entry

	history []Line
	input   []rune
	cursor  int

	Send func(text string)
}

// New initializes and clears a tcell screen.
func New(log *logrus.Entry) (*UI, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.Clear()

	return &UI{
		screen: screen,
		log:    log.WithField("component", "chatui"),
	}, nil
}

// Close tears down the screen; safe to call once after Run returns.
func (u *UI) Close() {
	u.screen.Fini()
}

// System appends a system-colored notice line (peer joined/left, etc).
func (u *UI) System(text string) {
	u.history = append(u.history, Line{Text: text, Color: tcell.ColorGray})
	u.draw()
}

// Chat appends a chat line colored by the sender's node_id.
func (u *UI) Chat(nodeID, from, body string) {
	line := Line{Text: fmt.Sprintf("%s: %s", from, body), Color: peerColor(nodeID)}
	u.history = append(u.history, line)
	u.draw()
}

// HandleFrontendEvent renders one dispatch.FrontendEvent into scrollback.
func (u *UI) HandleFrontendEvent(ev dispatch.FrontendEvent) {
	switch ev.Kind {
	case dispatch.PeerJoined:
		u.System(fmt.Sprintf("* %s joined", ev.NodeID))
	case dispatch.PeerDisconnected:
		u.System(fmt.Sprintf("* %s left", ev.NodeID))
	case dispatch.MessageReceived:
		u.Chat(ev.NodeID, ev.From, ev.Content)
	}
}

// Run merges tcell key events with incoming FrontendEvents until the
// user quits (Escape or Ctrl+C) or frontend is closed, mirroring the
// teacher's eventChan-plus-select game loop.
func (u *UI) Run(frontend <-chan dispatch.FrontendEvent) {
	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	redraw := time.NewTicker(50 * time.Millisecond)
	defer redraw.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !u.handleInput(ev) {
				return
			}
		case ev, ok := <-frontend:
			if !ok {
				return
			}
			u.HandleFrontendEvent(ev)
		case <-redraw.C:
			u.draw()
		}
	}
}

func (u *UI) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyEnter:
			u.submit()
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			u.backspace()
		case tcell.KeyRune:
			u.insert(ev.Rune())
		}
	case *tcell.EventResize:
		u.screen.Sync()
	}
	return true
}

func (u *UI) insert(r rune) {
	u.input = append(u.input[:u.cursor], append([]rune{r}, u.input[u.cursor:]...)...)
	u.cursor++
	u.draw()
}

func (u *UI) backspace() {
	if u.cursor == 0 {
		return
	}
	u.input = append(u.input[:u.cursor-1], u.input[u.cursor:]...)
	u.cursor--
	u.draw()
}

func (u *UI) submit() {
	text := string(u.input)
	u.input = nil
	u.cursor = 0
	if text != "" && u.Send != nil {
		u.Send(text)
	}
}

func (u *UI) draw() {
	width, height := u.screen.Size()
	u.screen.Clear()

	historyHeight := height - 2
	wrapped := u.wrapHistory(width)
	start := 0
	if len(wrapped) > historyHeight {
		start = len(wrapped) - historyHeight
	}

	for row, line := range wrapped[start:] {
		drawString(u.screen, 0, row, line.Text, tcell.StyleDefault.Foreground(line.Color))
	}

	sepStyle := tcell.StyleDefault.Foreground(tcell.ColorTeal)
	for x := 0; x < width; x++ {
		u.screen.SetContent(x, height-2, tcell.RuneHLine, nil, sepStyle)
	}

	drawString(u.screen, 0, height-1, "> "+string(u.input), tcell.StyleDefault)
	u.screen.ShowCursor(2+uniseg.StringWidth(string(u.input[:u.cursor])), height-1)

	u.screen.Show()
}

func (u *UI) wrapHistory(width int) []Line {
	var out []Line
	for _, l := range u.history {
		for _, w := range wrapLine(l.Text, width) {
			out = append(out, Line{Text: w, Color: l.Color})
		}
	}
	return out
}

func drawString(screen tcell.Screen, x, y int, s string, style tcell.Style) {
	col := x
	for _, r := range s {
		screen.SetContent(col, y, r, nil, style)
		col++
	}
}
