package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

// row reads one screen row as text with trailing spaces removed.
func row(s tcell.Screen, y, w int) string {
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y) //nolint:staticcheck // GetContent is the correct API
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func TestCollapsible_SetContentSplitsLines(t *testing.T) {
	c := NewCollapsible(Options{Label: "Information", MinimumSize: 2})

	c.SetContent("state: Stopped<br>frame: main")
	assert.Equal(t, []string{"state: Stopped", "frame: main"}, c.Lines())

	c.SetContent("state: Running")
	assert.Equal(t, []string{"state: Running"}, c.Lines())

	c.SetContent("")
	assert.Empty(t, c.Lines())
}

func TestCollapsible_ToggleAndState(t *testing.T) {
	c := NewCollapsible(Options{InitialState: Collapsed})
	assert.True(t, c.Collapsed())
	assert.Equal(t, "collapsed", c.State().String())

	var changes int
	c.OnChange(func() { changes++ })

	c.Toggle()
	assert.False(t, c.Collapsed())
	assert.Equal(t, "expanded", c.State().String())

	c.SetState(Expanded)
	c.Toggle()
	assert.True(t, c.Collapsed())
	assert.Equal(t, 2, changes)
}

func TestCollapsible_Height(t *testing.T) {
	c := NewCollapsible(Options{MinimumSize: 2})
	assert.Equal(t, 3, c.Height())

	c.SetContent("a<br>b<br>c<br>d")
	assert.Equal(t, 5, c.Height())

	c.Toggle()
	assert.Equal(t, 1, c.Height())
}

func TestCollapsible_Draw(t *testing.T) {
	s := newSimScreen(t, 30, 6)
	c := NewCollapsible(Options{Label: "Information", MinimumSize: 2})
	c.SetContent("state: Stopped<br>frame: main<br>file: a.c<br>line: 10")

	rows := c.Draw(s, 0, 0, 30, 6)

	assert.Equal(t, 5, rows)
	assert.Equal(t, "▾ Information", row(s, 0, 30))
	assert.Equal(t, " state: Stopped", row(s, 1, 30))
	assert.Equal(t, " line: 10", row(s, 4, 30))
}

func TestCollapsible_DrawCollapsed(t *testing.T) {
	s := newSimScreen(t, 30, 6)
	c := NewCollapsible(Options{Label: "Information", InitialState: Collapsed})
	c.SetContent("state: Running")

	rows := c.Draw(s, 0, 0, 30, 6)

	assert.Equal(t, 1, rows)
	assert.Equal(t, "▸ Information", row(s, 0, 30))
	assert.Equal(t, "", row(s, 1, 30))
}

func TestCollapsible_DrawClips(t *testing.T) {
	s := newSimScreen(t, 10, 2)
	c := NewCollapsible(Options{Label: "Information"})
	c.SetContent("state: Initializing<br>frame: main")

	rows := c.Draw(s, 0, 0, 10, 2)

	assert.Equal(t, 2, rows)
	assert.Equal(t, " state: In", row(s, 1, 10))
}

func TestScreen_DrawWithStatus(t *testing.T) {
	sim := newSimScreen(t, 40, 5)
	scr := NewScreen(sim)
	c := NewCollapsible(Options{Label: "Information", MinimumSize: 2})
	c.SetContent("state: Running")

	scr.Draw(c, "q quit")

	w, h := scr.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 5, h)
	assert.Equal(t, "▾ Information", row(sim, 0, w))
	assert.Equal(t, " state: Running", row(sim, 1, w))
	assert.Equal(t, "q quit", row(sim, 4, w))
}

func TestScreen_PollEventsStopsOnFini(t *testing.T) {
	sim := tcell.NewSimulationScreen("")
	require.NoError(t, sim.Init())
	scr := NewScreen(sim)

	got := make(chan tcell.Event, 4)
	done := make(chan struct{})
	go func() {
		scr.PollEvents(func(ev tcell.Event) {
			select {
			case got <- ev:
			default:
			}
		})
		close(done)
	}()

	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	var key *tcell.EventKey
	for key == nil {
		select {
		case ev := <-got:
			key, _ = ev.(*tcell.EventKey)
		case <-time.After(2 * time.Second):
			t.Fatal("no key event")
		}
	}
	assert.Equal(t, 'q', key.Rune())

	scr.Fini()
	<-done
}
