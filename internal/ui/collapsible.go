// Package ui provides the terminal widgets that host the information panel.
package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/dshills/infopanel/internal/event"
)

// CollapsibleState is the toggle state of a Collapsible.
type CollapsibleState int

const (
	// Expanded shows the header and the body.
	Expanded CollapsibleState = iota
	// Collapsed shows only the header.
	Collapsed
)

// String returns the state name.
func (s CollapsibleState) String() string {
	if s == Collapsed {
		return "collapsed"
	}
	return "expanded"
}

// LineBreak separates lines in content passed to SetContent.
const LineBreak = "<br>"

// Options configure a Collapsible.
type Options struct {
	Label        string
	MinimumSize  int
	InitialState CollapsibleState
}

// Collapsible is a titled region whose body can be hidden.
type Collapsible struct {
	header  string
	lines   []string
	minSize int
	state   CollapsibleState
	changed event.Signal

	HeaderStyle tcell.Style
	BodyStyle   tcell.Style
}

// NewCollapsible creates a widget from opts.
func NewCollapsible(opts Options) *Collapsible {
	minSize := opts.MinimumSize
	if minSize < 0 {
		minSize = 0
	}
	return &Collapsible{
		header:      opts.Label,
		minSize:     minSize,
		state:       opts.InitialState,
		HeaderStyle: tcell.StyleDefault.Reverse(true),
		BodyStyle:   tcell.StyleDefault,
	}
}

// SetHeader sets the header label.
func (c *Collapsible) SetHeader(label string) {
	if c.header == label {
		return
	}
	c.header = label
	c.changed.Fire()
}

// Header returns the header label.
func (c *Collapsible) Header() string {
	return c.header
}

// SetContent replaces the body. Lines are separated by LineBreak.
func (c *Collapsible) SetContent(text string) {
	if text == "" {
		c.lines = nil
	} else {
		c.lines = strings.Split(text, LineBreak)
	}
	c.changed.Fire()
}

// Lines returns the body lines.
func (c *Collapsible) Lines() []string {
	return append([]string(nil), c.lines...)
}

// State returns the toggle state.
func (c *Collapsible) State() CollapsibleState {
	return c.state
}

// Collapsed reports whether the body is hidden.
func (c *Collapsible) Collapsed() bool {
	return c.state == Collapsed
}

// SetState changes the toggle state.
func (c *Collapsible) SetState(s CollapsibleState) {
	if c.state == s {
		return
	}
	c.state = s
	c.changed.Fire()
}

// Toggle flips between expanded and collapsed.
func (c *Collapsible) Toggle() {
	if c.state == Collapsed {
		c.SetState(Expanded)
	} else {
		c.SetState(Collapsed)
	}
}

// OnChange notifies after the header, body or state changes.
func (c *Collapsible) OnChange(fn func()) event.Subscription {
	return c.changed.Subscribe(fn)
}

// Height returns the rows the widget wants: the header plus, when expanded,
// at least the minimum body size.
func (c *Collapsible) Height() int {
	if c.state == Collapsed {
		return 1
	}
	return 1 + max(c.minSize, len(c.lines))
}

// Draw paints the widget into the rectangle at x, y of size w by h and
// returns the number of rows used.
func (c *Collapsible) Draw(s tcell.Screen, x, y, w, h int) int {
	if w <= 0 || h <= 0 {
		return 0
	}

	marker := "▾ "
	if c.state == Collapsed {
		marker = "▸ "
	}
	fillRow(s, x, y, w, c.HeaderStyle)
	drawText(s, x, y, w, marker+c.header, c.HeaderStyle)
	if c.state == Collapsed {
		return 1
	}

	rows := min(h, c.Height())
	for i := 1; i < rows; i++ {
		fillRow(s, x, y+i, w, c.BodyStyle)
		if i-1 < len(c.lines) {
			drawText(s, x+1, y+i, w-1, c.lines[i-1], c.BodyStyle)
		}
	}
	return rows
}

func fillRow(s tcell.Screen, x, y, w int, style tcell.Style) {
	for i := 0; i < w; i++ {
		s.SetContent(x+i, y, ' ', nil, style)
	}
}

// drawText writes text from x, clipped to w cells.
func drawText(s tcell.Screen, x, y, w int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if col+rw > w {
			return
		}
		s.SetContent(x+col, y, r, nil, style)
		col += rw
	}
}
