package dap

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	godap "github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn joins a reader and writer into an io.ReadWriteCloser.
type pipeConn struct {
	io.Reader
	io.Writer
	closed bool
}

func (p *pipeConn) Close() error {
	p.closed = true
	return nil
}

func TestRawTransportFraming(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("Content-Length: 13\r\n\r\n{\"seq\":1,\"a\"}")

	tr := NewRawTransport(&pipeConn{Reader: in, Writer: &out})

	require.NoError(t, tr.Send([]byte(`{"seq":1}`)))
	assert.Equal(t, "Content-Length: 9\r\n\r\n{\"seq\":1}", out.String())

	content, err := tr.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"seq":1,"a"}`, string(content))
}

func TestRawTransportMissingHeader(t *testing.T) {
	in := strings.NewReader("X-Other: 1\r\n\r\n{}")
	tr := NewRawTransport(&pipeConn{Reader: in, Writer: io.Discard})

	_, err := tr.Receive()
	assert.Error(t, err)
}

func TestRawTransportClose(t *testing.T) {
	conn := &pipeConn{Reader: strings.NewReader(""), Writer: io.Discard}
	tr := NewRawTransport(conn)

	require.NoError(t, tr.Close())
	assert.True(t, conn.closed)
}

func TestRawTransportMatchesGoDAPCodec(t *testing.T) {
	var out bytes.Buffer
	tr := NewRawTransport(&pipeConn{Reader: strings.NewReader(""), Writer: &out})
	require.NoError(t, tr.Send([]byte(`{"seq":3,"type":"request","command":"threads"}`)))

	msg, err := godap.ReadProtocolMessage(bufio.NewReader(&out))
	require.NoError(t, err)

	req, ok := msg.(*godap.ThreadsRequest)
	require.True(t, ok, "expected *ThreadsRequest, got %T", msg)
	assert.Equal(t, 3, req.Seq)
}

func TestSocketTransportRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverGot := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		server := NewSocketTransportFromConn(conn)
		content, err := server.Receive()
		if err != nil {
			return
		}
		serverGot <- content
		_ = server.Send([]byte(`{"seq":1,"type":"event","event":"initialized"}`))
	}()

	client, err := NewSocketTransport(ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send([]byte(`{"seq":1,"type":"request","command":"initialize"}`)))

	select {
	case content := <-serverGot:
		assert.Contains(t, string(content), `"initialize"`)
	case <-time.After(time.Second):
		t.Fatal("server did not receive request")
	}

	content, err := client.Receive()
	require.NoError(t, err)
	assert.Contains(t, string(content), `"initialized"`)
}

func TestSocketTransportDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewSocketTransport(addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}
