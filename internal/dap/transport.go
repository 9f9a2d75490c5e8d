// Package dap implements a Debug Adapter Protocol client.
//
// Framing and the standard request/response/event bodies come from
// github.com/google/go-dap. Envelopes are decoded here with raw bodies so that
// adapter-specific commands and events (see custom.go) pass through intact.
package dap

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os/exec"
	"sync"
	"time"

	godap "github.com/google/go-dap"
)

// Transport carries framed DAP messages to and from a debug adapter.
type Transport interface {
	// Send writes one message body.
	Send(content []byte) error

	// Receive reads the next message body.
	Receive() ([]byte, error)

	// Close closes the transport.
	Close() error
}

// StdioTransport talks to an adapter subprocess over stdin/stdout.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewStdioTransport starts cmd and connects to its stdio.
func NewStdioTransport(cmd *exec.Cmd) (*StdioTransport, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start command: %w", err)
	}

	return &StdioTransport{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		reader: bufio.NewReader(stdout),
	}, nil
}

// Send writes a message to the adapter.
func (t *StdioTransport) Send(content []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return godap.WriteBaseMessage(t.stdin, content)
}

// Receive reads a message from the adapter.
func (t *StdioTransport) Receive() ([]byte, error) {
	return godap.ReadBaseMessage(t.reader)
}

// Close closes the pipes and kills the adapter process.
func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stdin.Close()
	t.stdout.Close()

	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}

	return t.cmd.Wait()
}

// DefaultDialTimeout bounds how long NewSocketTransport waits for a connection.
const DefaultDialTimeout = 5 * time.Second

// SocketTransport talks to an adapter over TCP.
type SocketTransport struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewSocketTransport dials address.
func NewSocketTransport(address string) (*SocketTransport, error) {
	conn, err := net.DialTimeout("tcp", address, DefaultDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	return NewSocketTransportFromConn(conn), nil
}

// NewSocketTransportFromConn wraps an existing connection.
func NewSocketTransportFromConn(conn net.Conn) *SocketTransport {
	return &SocketTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Send writes a message.
func (t *SocketTransport) Send(content []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return godap.WriteBaseMessage(t.conn, content)
}

// Receive reads a message.
func (t *SocketTransport) Receive() ([]byte, error) {
	return godap.ReadBaseMessage(t.reader)
}

// Close closes the connection.
func (t *SocketTransport) Close() error {
	return t.conn.Close()
}

// RawTransport wraps any io.ReadWriteCloser as a Transport.
type RawTransport struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader
	mu     sync.Mutex
}

// NewRawTransport creates a transport from any ReadWriteCloser.
func NewRawTransport(rwc io.ReadWriteCloser) *RawTransport {
	return &RawTransport{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

// Send writes a message.
func (t *RawTransport) Send(content []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return godap.WriteBaseMessage(t.rwc, content)
}

// Receive reads a message.
func (t *RawTransport) Receive() ([]byte, error) {
	return godap.ReadBaseMessage(t.reader)
}

// Close closes the underlying connection.
func (t *RawTransport) Close() error {
	return t.rwc.Close()
}
