package ui

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Screen owns the tcell screen and lays out the panel and the status line.
type Screen struct {
	screen tcell.Screen
	mu     sync.Mutex
}

// NewTerminalScreen creates a Screen on the controlling terminal.
func NewTerminalScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewScreen(s), nil
}

// NewScreen wraps an existing tcell screen, such as a simulation screen.
func NewScreen(s tcell.Screen) *Screen {
	return &Screen{screen: s}
}

// Init initializes the terminal.
func (s *Screen) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.screen.Init(); err != nil {
		return err
	}
	s.screen.HideCursor()
	return nil
}

// Fini restores the terminal. PollEvents returns afterwards.
func (s *Screen) Fini() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Fini()
}

// Size returns the screen size in cells.
func (s *Screen) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.screen.Size()
}

// Draw clears the screen, draws c at the top and status on the last row,
// and shows the result.
func (s *Screen) Draw(c *Collapsible, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Clear()
	w, h := s.screen.Size()
	if h <= 0 {
		return
	}

	body := h
	if status != "" && h > 1 {
		body = h - 1
		style := tcell.StyleDefault.Dim(true)
		fillRow(s.screen, 0, h-1, w, style)
		drawText(s.screen, 0, h-1, w, status, style)
	}
	c.Draw(s.screen, 0, 0, w, body)
	s.screen.Show()
}

// Sync redraws the whole terminal, e.g. after a resize.
func (s *Screen) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Sync()
}

// PollEvents calls handle for every terminal event until the screen is
// finalized. It blocks; run it on its own goroutine.
func (s *Screen) PollEvents(handle func(tcell.Event)) {
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}
		handle(ev)
	}
}

// Interrupt wakes PollEvents with an interrupt event carrying data.
func (s *Screen) Interrupt(data any) {
	_ = s.screen.PostEvent(tcell.NewEventInterrupt(data)) // best-effort; queue may be full
}
