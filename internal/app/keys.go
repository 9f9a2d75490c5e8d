package app

import (
	"errors"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// binding maps a key to a debugger or panel action.
type binding struct {
	r      rune
	key    tcell.Key
	label  string
	action func(*Application) error
}

var bindings = []binding{
	{r: 'c', key: tcell.KeyF5, label: "continue", action: func(a *Application) error { return a.debug.Continue() }},
	{r: 'n', key: tcell.KeyF10, label: "next", action: func(a *Application) error { return a.debug.Next() }},
	{r: 's', key: tcell.KeyF11, label: "step in", action: func(a *Application) error { return a.debug.StepIn() }},
	{r: 'o', label: "step out", action: func(a *Application) error { return a.debug.StepOut() }},
	{r: 'p', key: tcell.KeyF6, label: "pause", action: func(a *Application) error { return a.debug.Pause() }},
	{r: ' ', key: tcell.KeyEnter, label: "toggle", action: func(a *Application) error {
		a.widget.Toggle()
		return nil
	}},
	{r: 'q', key: tcell.KeyCtrlC, label: "quit", action: func(*Application) error { return ErrQuit }},
}

func lookupBinding(ev *tcell.EventKey) (binding, bool) {
	for _, b := range bindings {
		if ev.Key() == tcell.KeyRune && ev.Rune() == b.r {
			return b, true
		}
		if b.key != 0 && ev.Key() == b.key {
			return b, true
		}
	}
	return binding{}, false
}

// handleEvent processes a terminal event on the loop.
func (a *Application) handleEvent(ev tcell.Event) {
	if a.stopping {
		return
	}
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
		a.dirty = true
	case *tcell.EventKey:
		if err := a.handleKey(ev); err != nil {
			if errors.Is(err, ErrQuit) {
				a.quit(ErrQuit)
				return
			}
			a.logger.Debug("key %s: %v", ev.Name(), err)
			a.setMessage(err.Error())
		}
	}
}

func (a *Application) handleKey(ev *tcell.EventKey) error {
	b, ok := lookupBinding(ev)
	if !ok {
		return nil
	}
	a.setMessage("")
	return b.action(a)
}

// statusLine shows the debugger state followed by the last message or the
// key help.
func (a *Application) statusLine() string {
	var sb strings.Builder
	sb.WriteString(a.debug.State().String())
	sb.WriteString(" | ")
	if a.message != "" {
		sb.WriteString(a.message)
		return sb.String()
	}
	for i, b := range bindings {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(keyName(b.r))
		sb.WriteByte(':')
		sb.WriteString(b.label)
	}
	return sb.String()
}

func keyName(r rune) string {
	if r == ' ' {
		return "space"
	}
	return string(r)
}
