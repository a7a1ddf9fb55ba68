package telemetry

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/pkg/log"
)

func newTestListener(t *testing.T) (*Listener, *net.UDPAddr) {
	t.Helper()

	tr := drone.NewTransport("127.0.0.1", 48889, 0)
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	link := drone.NewChannel(tr, drone.ChannelConfig{}, log.NewNopLogger())
	l := NewListener(tr, link, log.NewNopLogger())

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: tr.StateAddr().Port}
	return l, addr
}

func TestListenerDecodesAndPublishes(t *testing.T) {
	l, addr := newTestListener(t)
	sub := l.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("dial telemetry socket: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("bat:77 h:30")); err != nil {
		t.Fatalf("write datagram: %v", err)
	}

	select {
	case rec := <-sub:
		if rec.Battery == nil || *rec.Battery != 77 {
			t.Fatalf("Battery = %v, want 77", rec.Battery)
		}
		if rec.Altitude == nil || *rec.Altitude != 30 {
			t.Fatalf("Altitude = %v, want 30", rec.Altitude)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no record published")
	}

	last, ok := l.Last()
	if !ok || last.Battery == nil || *last.Battery != 77 {
		t.Fatalf("Last = %+v ok=%v, want the decoded record", last, ok)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil on cancel", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestListenerExitsOnClosedTransport(t *testing.T) {
	tr := drone.NewTransport("127.0.0.1", 48889, 0)
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	link := drone.NewChannel(tr, drone.ChannelConfig{}, log.NewNopLogger())
	l := NewListener(tr, link, log.NewNopLogger())

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	tr.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil on closed transport", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not exit after transport close")
	}
}
