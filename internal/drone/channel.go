package drone

import (
	"context"
	"sync"
	"time"

	"github.com/airlink-io/airlink/internal/pkg/metrics"
	"github.com/airlink-io/airlink/pkg/log"
)

const (
	// handshakeVerb doubles as the liveness probe: the protocol has no
	// dedicated ping, so the SDK-mode command serves both purposes.
	handshakeVerb = "command"

	probeTimeout    = 1 * time.Second
	replyPollSlice  = 100 * time.Millisecond
	asyncQueueSize  = 32
	responseLogSize = 64
	loopJoinTimeout = 3 * time.Second
)

// ChannelConfig carries the tunables of a command link.
type ChannelConfig struct {
	// ConnectTimeout bounds the handshake round-trip.
	ConnectTimeout time.Duration

	// HeartbeatInterval is the watchdog period. Telemetry silence beyond
	// twice this interval triggers a synchronous probe; a failed probe is
	// the only way a dead UDP link is ever detected.
	HeartbeatInterval time.Duration
}

// Channel provides request/response correlation and an asynchronous command
// queue on top of the raw Transport. The wire protocol has no request IDs,
// so the Channel admits at most one synchronous command at a time and funnels
// every outbound send through one owner.
type Channel struct {
	tr  *Transport
	cfg ChannelConfig
	log log.Logger

	// sendMu serializes all outbound traffic and reply correlation.
	sendMu sync.Mutex

	mu      sync.Mutex
	state   ConnState
	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup

	queue chan Command

	respMu    sync.Mutex
	responses []Response

	telemetryMu   sync.Mutex
	lastTelemetry time.Time

	subMu sync.Mutex
	subs  []chan ConnState
}

// NewChannel creates a Channel over the given transport.
func NewChannel(tr *Transport, cfg ChannelConfig, logger log.Logger) *Channel {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if logger == nil {
		logger = log.Std().WithName("channel")
	}

	return &Channel{
		tr:    tr,
		cfg:   cfg,
		log:   logger,
		state: StateDisconnected,
		queue: make(chan Command, asyncQueueSize),
	}
}

// Connect opens the transport, performs the SDK-mode handshake and, on
// success, starts the queued-command drain and the heartbeat watchdog. On
// any failure the transport is closed and the channel reverts to
// Disconnected with no partial state left behind.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.tr.Open(); err != nil {
		c.setState(StateDisconnected)
		return err
	}

	resp, err := c.exchange(ctx, Command{
		Verb:     handshakeVerb,
		IssuedAt: time.Now(),
		Timeout:  c.cfg.ConnectTimeout,
	})
	if err != nil {
		c.tr.Close()
		c.setState(StateDisconnected)
		return err
	}
	if !resp.OK {
		c.tr.Close()
		c.setState(StateDisconnected)
		return &RejectionError{Verb: handshakeVerb, Reply: resp.Raw}
	}

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.stopped = false
	c.wg.Add(2)
	stop := c.stopCh
	c.mu.Unlock()

	c.TouchTelemetry()
	c.setState(StateConnected)

	go c.drainLoop(stop)
	go c.heartbeatLoop(stop)

	c.log.Info("Connected to vehicle")
	return nil
}

// Disconnect tears the link down: it stops both background loops, closes the
// transport and publishes the state change. Safe to call from any goroutine,
// any number of times, including concurrently.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected && c.stopCh == nil {
		c.mu.Unlock()
		return
	}
	if c.stopCh != nil && !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
	wasDown := c.state == StateDisconnected
	c.state = StateDisconnected
	c.stopCh = nil
	c.mu.Unlock()

	c.tr.Close()

	if !c.waitLoops(loopJoinTimeout) {
		c.log.Warn("Background loops did not stop within join timeout")
	}

	// Drop anything still queued so a later Connect starts clean.
	for len(c.queue) > 0 {
		<-c.queue
	}

	if !wasDown {
		c.publishState(StateDisconnected)
		c.log.Info("Disconnected from vehicle")
	}
}

// SendSync sends one command and blocks the caller until a reply arrives or
// timeout elapses. A missing reply is reported as ErrTimeout and leaves the
// connection state untouched; deciding whether to retry is the caller's job.
func (c *Channel) SendSync(ctx context.Context, verb, arg string, timeout time.Duration) (Response, error) {
	switch c.State() {
	case StateConnected:
	case StateLost:
		return Response{}, ErrConnectionLost
	default:
		return Response{}, ErrNotConnected
	}

	return c.exchange(ctx, Command{
		Verb:     verb,
		Arg:      arg,
		IssuedAt: time.Now(),
		Timeout:  timeout,
	})
}

// SendAsync enqueues a fire-and-forget command for background draining. It
// never blocks the caller; when the queue is full the command is dropped and
// logged. Completion is observable only through the response log.
func (c *Channel) SendAsync(verb, arg string) {
	if c.State() != StateConnected {
		c.log.Warn("Dropping async command, not connected", "verb", verb)
		return
	}

	cmd := Command{Verb: verb, Arg: arg, IssuedAt: time.Now(), Timeout: 2 * time.Second}
	select {
	case c.queue <- cmd:
	default:
		c.log.Warn("Async command queue full, dropping command", "verb", verb)
	}
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StateChanges returns a buffered subscription to connection-state
// transitions. Slow subscribers miss updates rather than blocking the link.
func (c *Channel) StateChanges() <-chan ConnState {
	ch := make(chan ConnState, 4)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

// Responses returns a copy of the bounded response log, newest last.
func (c *Channel) Responses() []Response {
	c.respMu.Lock()
	defer c.respMu.Unlock()
	out := make([]Response, len(c.responses))
	copy(out, c.responses)
	return out
}

// TouchTelemetry records that inbound telemetry was just seen. The telemetry
// listener calls this on every decoded datagram; the heartbeat watchdog uses
// it to infer link liveness.
func (c *Channel) TouchTelemetry() {
	c.telemetryMu.Lock()
	c.lastTelemetry = time.Now()
	c.telemetryMu.Unlock()
}

// SinceTelemetry returns the elapsed time since the last inbound telemetry.
func (c *Channel) SinceTelemetry() time.Duration {
	c.telemetryMu.Lock()
	defer c.telemetryMu.Unlock()
	if c.lastTelemetry.IsZero() {
		return 0
	}
	return time.Since(c.lastTelemetry)
}

// exchange performs one serialized request/response round-trip. Replies are
// correlated purely by ordering, so the send mutex is held across the whole
// exchange.
func (c *Channel) exchange(ctx context.Context, cmd Command) (Response, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	start := time.Now()
	if err := c.tr.Send([]byte(cmd.wire())); err != nil {
		metrics.CommandsTotal.WithLabelValues(cmd.Verb, "transport_error").Inc()
		return Response{}, err
	}

	deadline := start.Add(cmd.Timeout)
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				metrics.CommandsTotal.WithLabelValues(cmd.Verb, "canceled").Inc()
				return Response{}, ctx.Err()
			default:
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.log.Warn("Command timed out", "verb", cmd.Verb, "timeout", cmd.Timeout)
			metrics.CommandsTotal.WithLabelValues(cmd.Verb, "timeout").Inc()
			return Response{}, ErrTimeout
		}
		if remaining > replyPollSlice {
			remaining = replyPollSlice
		}

		raw, err := c.tr.RecvReply(remaining)
		if err == ErrTimeout {
			continue
		}
		if err != nil {
			metrics.CommandsTotal.WithLabelValues(cmd.Verb, "transport_error").Inc()
			return Response{}, err
		}

		resp := Response{
			Command:    cmd,
			Raw:        raw,
			OK:         replyOK(raw),
			ReceivedAt: time.Now(),
		}
		c.recordResponse(resp)

		status := "rejected"
		if resp.OK {
			status = "ok"
		}
		metrics.CommandsTotal.WithLabelValues(cmd.Verb, status).Inc()
		metrics.CommandLatency.Observe(time.Since(start).Seconds())
		return resp, nil
	}
}

func (c *Channel) recordResponse(r Response) {
	c.respMu.Lock()
	c.responses = append(c.responses, r)
	if len(c.responses) > responseLogSize {
		c.responses = c.responses[len(c.responses)-responseLogSize:]
	}
	c.respMu.Unlock()
}

// drainLoop sends queued commands in FIFO submission order. Errors are
// logged and the loop keeps going; one bad command never stops the drain.
func (c *Channel) drainLoop(stop <-chan struct{}) {
	defer c.wg.Done()

	for {
		select {
		case <-stop:
			return
		case cmd := <-c.queue:
			resp, err := c.exchange(nil, cmd)
			if err != nil {
				c.log.Warn("Queued command failed", "verb", cmd.Verb, "error", err)
				continue
			}
			if !resp.OK {
				c.log.Warn("Queued command rejected", "verb", cmd.Verb, "reply", resp.Raw)
			}
		}
	}
}

// heartbeatLoop infers link health from telemetry silence. When the vehicle
// has been quiet for more than twice the interval it issues one synchronous
// probe; if that also fails the link is declared lost and torn down. UDP
// offers no transport-level disconnect signal, so this is the sole detector.
func (c *Channel) heartbeatLoop(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.SinceTelemetry() <= 2*c.cfg.HeartbeatInterval {
				continue
			}

			c.log.Warn("Telemetry silence exceeded threshold, probing vehicle")
			resp, err := c.exchange(nil, Command{
				Verb:     handshakeVerb,
				IssuedAt: time.Now(),
				Timeout:  probeTimeout,
			})
			if err == nil && resp.OK {
				continue
			}

			c.log.Error(err, "Liveness probe failed, declaring link lost")
			c.setState(StateLost)
			// Disconnect joins this goroutine, so it must run elsewhere.
			go c.Disconnect()
			return
		}
	}
}

func (c *Channel) setState(s ConnState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		c.publishState(s)
	}
}

func (c *Channel) publishState(s ConnState) {
	if s.Connected() {
		metrics.ConnectionStatus.Set(1)
	} else {
		metrics.ConnectionStatus.Set(0)
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (c *Channel) waitLoops(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
