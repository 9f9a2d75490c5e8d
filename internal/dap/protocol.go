package dap

import (
	"encoding/json"
)

// Message types.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Standard event names the client decodes.
const (
	EventInitialized = "initialized"
	EventStopped     = "stopped"
	EventContinued   = "continued"
	EventExited      = "exited"
	EventTerminated  = "terminated"
	EventOutput      = "output"
)

// ProtocolMessage is the base for all DAP messages.
type ProtocolMessage struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`
}

// Request is an outgoing request with raw arguments.
type Request struct {
	ProtocolMessage
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response is an incoming response with a raw body.
type Response struct {
	ProtocolMessage
	RequestSeq int             `json:"request_seq"`
	Success    bool            `json:"success"`
	Command    string          `json:"command"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Event is an incoming event with a raw body. Bodies of standard events are
// decoded into go-dap types by the typed handlers on Client; custom events
// are left for the subscriber to decode.
type Event struct {
	ProtocolMessage
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}
