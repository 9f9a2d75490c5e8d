package dap

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// CommandInfo is the adapter-specific request that reports the current
// source location of a stopped debuggee.
const CommandInfo = "infoRequest"

// EventCustom is the adapter-specific event carrying the expression under the
// editor's hover.
const EventCustom = "custom"

// InfoResponseBody is the body of a CommandInfo response.
type InfoResponseBody struct {
	CurrentFile string
	CurrentLine int
}

// HasLocation reports whether the response named a file. A line without a
// file is not a location.
func (b InfoResponseBody) HasLocation() bool {
	return b.CurrentFile != ""
}

// DecodeInfoResponse extracts an InfoResponseBody from a raw response body.
// Missing or mistyped fields decode to their zero value.
func DecodeInfoResponse(body json.RawMessage) InfoResponseBody {
	if !gjson.ValidBytes(body) {
		return InfoResponseBody{}
	}

	file := gjson.GetBytes(body, "currentFile")
	line := gjson.GetBytes(body, "currentLine")

	var out InfoResponseBody
	if file.Type == gjson.String {
		out.CurrentFile = file.Str
	}
	if line.Type == gjson.Number || line.Type == gjson.String {
		out.CurrentLine = int(line.Int())
	}
	return out
}

// CustomEventBody is the body of an EventCustom event.
type CustomEventBody struct {
	// HoverExpression is nil when the event carried no usable value.
	HoverExpression *string
}

// DecodeCustomEvent extracts a CustomEventBody from a raw event body. The
// hover value may be any truthy JSON scalar; it is kept as its display text.
// Null, false, zero, empty strings and structured values are treated as
// absent.
func DecodeCustomEvent(body json.RawMessage) CustomEventBody {
	if !gjson.ValidBytes(body) {
		return CustomEventBody{}
	}

	r := gjson.GetBytes(body, "hoverExpression")
	switch {
	case r.Type == gjson.String, r.Type == gjson.True:
	case r.Type == gjson.Number && r.Num != 0:
	default:
		return CustomEventBody{}
	}

	text := r.String()
	if text == "" {
		return CustomEventBody{}
	}
	return CustomEventBody{HoverExpression: &text}
}
