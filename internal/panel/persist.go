package panel

import (
	"fmt"
)

// MementoKey is the settings key holding the collapsed flag.
const MementoKey = "informationview.memento"

// Settings is the host's persistent key-value store.
type Settings interface {
	Lookup(key string) (any, bool)
	Store(key string, value any) error
}

// loadCollapsed reports whether the panel should start collapsed.
func loadCollapsed(s Settings) bool {
	v, ok := s.Lookup(MementoKey)
	if !ok {
		return false
	}
	return truthy(v)
}

func saveCollapsed(s Settings, collapsed bool) error {
	if err := s.Store(MementoKey, collapsed); err != nil {
		return fmt.Errorf("store %s: %w", MementoKey, err)
	}
	return nil
}

// truthy follows loose JSON truthiness: false, zero, the empty string and
// null are false, everything else is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	case uint:
		return x != 0
	case uint64:
		return x != 0
	default:
		return true
	}
}
