package panel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPanelWith(t *testing.T, settings Settings) *Panel {
	t.Helper()
	p, err := New(Deps{Service: &fakeService{}, Settings: settings, Executor: &fakeExecutor{}})
	require.NoError(t, err)
	t.Cleanup(p.Dispose)
	return p
}

func TestPersist_ShutdownCollapsedRoundTrip(t *testing.T) {
	settings := newFakeSettings()
	first := newPanelWith(t, settings)
	assert.False(t, first.Options().Collapsed)

	c := &fakeContainer{collapsed: true}
	first.Mount(c)
	require.NoError(t, first.Shutdown())
	first.Dispose()

	assert.Equal(t, true, settings.values[MementoKey])

	second := newPanelWith(t, settings)
	assert.True(t, second.Options().Collapsed)
}

func TestPersist_ShutdownExpanded(t *testing.T) {
	settings := newFakeSettings()
	settings.values[MementoKey] = true

	p := newPanelWith(t, settings)
	p.Mount(&fakeContainer{collapsed: false})
	require.NoError(t, p.Shutdown())

	assert.Equal(t, false, settings.values[MementoKey])
}

func TestPersist_ShutdownWithoutContainerKeepsInitialState(t *testing.T) {
	settings := newFakeSettings()
	settings.values[MementoKey] = true

	p := newPanelWith(t, settings)
	require.NoError(t, p.Shutdown())

	assert.Equal(t, true, settings.values[MementoKey])
}

func TestPersist_ShutdownStoreError(t *testing.T) {
	settings := newFakeSettings()
	settings.storeErr = errors.New("read-only")

	p := newPanelWith(t, settings)
	err := p.Shutdown()

	require.Error(t, err)
	assert.Contains(t, err.Error(), MementoKey)
}

func TestPersist_InitialStateFromMemento(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		present   bool
		collapsed bool
	}{
		{"absent", nil, false, false},
		{"null", nil, true, false},
		{"true", true, true, true},
		{"false", false, true, false},
		{"non-zero number", float64(1), true, true},
		{"zero", float64(0), true, false},
		{"int", 3, true, true},
		{"string", "yes", true, true},
		{"empty string", "", true, false},
		{"object", map[string]any{}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := newFakeSettings()
			if tt.present {
				settings.values[MementoKey] = tt.value
			}
			p := newPanelWith(t, settings)
			assert.Equal(t, tt.collapsed, p.Options().Collapsed)
		})
	}
}
