package drone

import (
	"strings"
	"time"
)

// ConnState is the lifecycle state of the command link.
// It is owned exclusively by the Channel; observers receive transitions
// through Channel.StateChanges.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateLost
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateLost:
		return "lost"
	}
	return "unknown"
}

// Connected reports whether the state counts as an established link.
func (s ConnState) Connected() bool {
	return s == StateConnected
}

// Command is an immutable request to the vehicle. The wire protocol carries
// no sequence numbers, so correlation relies on single-outstanding-request
// discipline enforced by the Channel.
type Command struct {
	Verb     string
	Arg      string
	IssuedAt time.Time
	Timeout  time.Duration
}

// wire serializes the command into its protocol text form.
func (c Command) wire() string {
	if c.Arg == "" {
		return c.Verb
	}
	return c.Verb + " " + c.Arg
}

// Response pairs a command with the free-text reply the vehicle produced.
type Response struct {
	Command    Command
	Raw        string
	OK         bool
	ReceivedAt time.Time
}

// replyOK implements the protocol's only success signal: the reply
// case-insensitively contains the token "ok".
func replyOK(raw string) bool {
	return strings.Contains(strings.ToLower(raw), "ok")
}
