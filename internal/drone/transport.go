package drone

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

const maxDatagram = 1024

// Transport owns the two UDP endpoints of the vehicle link: an outbound
// socket dialed to the command port and an inbound socket bound locally for
// unsolicited telemetry. It provides raw send/receive primitives only; retry
// and correlation policy live in the Channel.
type Transport struct {
	droneAddr   string
	commandPort int
	statePort   int

	mu        sync.Mutex
	cmdConn   *net.UDPConn
	stateConn *net.UDPConn
	closed    bool
}

// NewTransport creates a Transport for the given vehicle address. statePort
// may be 0 to bind an ephemeral port (used by tests).
func NewTransport(droneAddr string, commandPort, statePort int) *Transport {
	return &Transport{
		droneAddr:   droneAddr,
		commandPort: commandPort,
		statePort:   statePort,
	}
}

// Open dials the command socket and binds the telemetry socket. On partial
// failure it releases whatever was opened so no socket leaks.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmdConn != nil || t.stateConn != nil {
		return &TransportError{Op: "open", Err: errors.New("already open")}
	}

	target, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", t.droneAddr, t.commandPort))
	if err != nil {
		return &TransportError{Op: "resolve", Err: err}
	}

	cmdConn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return &TransportError{Op: "dial command socket", Err: err}
	}

	stateConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: t.statePort})
	if err != nil {
		cmdConn.Close()
		return &TransportError{Op: "bind telemetry socket", Err: err}
	}

	t.cmdConn = cmdConn
	t.stateConn = stateConn
	t.closed = false
	return nil
}

// Close releases both sockets. It is idempotent and unblocks any in-progress
// receive, which then returns ErrClosed instead of hanging.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var err error
	if t.cmdConn != nil {
		err = t.cmdConn.Close()
		t.cmdConn = nil
	}
	if t.stateConn != nil {
		if cerr := t.stateConn.Close(); err == nil {
			err = cerr
		}
		t.stateConn = nil
	}
	return err
}

// Send writes one datagram to the command socket. No retries.
func (t *Transport) Send(b []byte) error {
	conn := t.commandConn()
	if conn == nil {
		return ErrClosed
	}

	if _, err := conn.Write(b); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// RecvReply reads one datagram from the command socket, waiting at most
// timeout. A deadline expiry maps to ErrTimeout, a closed socket to ErrClosed.
func (t *Transport) RecvReply(timeout time.Duration) (string, error) {
	return t.recv(t.commandConn(), timeout)
}

// RecvState reads one unsolicited telemetry datagram from the bound socket,
// waiting at most timeout.
func (t *Transport) RecvState(timeout time.Duration) (string, error) {
	return t.recv(t.stateSocket(), timeout)
}

// StateAddr returns the local address of the telemetry socket, or nil when
// the transport is not open. Tests use it to discover ephemeral ports.
func (t *Transport) StateAddr() *net.UDPAddr {
	conn := t.stateSocket()
	if conn == nil {
		return nil
	}
	addr, _ := conn.LocalAddr().(*net.UDPAddr)
	return addr
}

func (t *Transport) recv(conn *net.UDPConn, timeout time.Duration) (string, error) {
	if conn == nil {
		return "", ErrClosed
	}

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", &TransportError{Op: "set deadline", Err: err}
	}

	buf := make([]byte, maxDatagram)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return "", ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return "", ErrClosed
		}
		return "", &TransportError{Op: "recv", Err: err}
	}

	return string(buf[:n]), nil
}

func (t *Transport) commandConn() *net.UDPConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cmdConn
}

func (t *Transport) stateSocket() *net.UDPConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateConn
}
