package panel

import (
	"strconv"
	"strings"
)

// LineBreak separates rendered lines.
const LineBreak = "<br>"

// Render formats v as the panel body text. Lines appear in a fixed order:
// state, frame, file and line, hover. Absent values are omitted.
func Render(v ViewState) string {
	lines := make([]string, 0, 5)
	lines = append(lines, "state: "+v.State.String())

	if v.Frame != nil {
		lines = append(lines, "frame: "+v.Frame.Name)
	}
	if loc := v.Location(); loc != nil {
		lines = append(lines,
			"file: "+loc.File,
			"line: "+strconv.Itoa(loc.Line),
		)
	}
	if hover := v.Hover(); hover != nil {
		lines = append(lines, "hover: "+*hover)
	}

	return strings.Join(lines, LineBreak)
}
