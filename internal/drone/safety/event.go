package safety

import (
	"sync"
	"time"
)

// Level grades how urgent a safety event is.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelCritical
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	}
	return "unknown"
}

// Kind names the condition that produced an event.
type Kind string

const (
	KindTakeoff        Kind = "takeoff"
	KindLanding        Kind = "landing"
	KindBatteryWarning Kind = "battery-warning"
	KindAutoLand       Kind = "auto-land"
	KindFlightTime     Kind = "flight-time"
	KindConnectionLoss Kind = "connection-loss"
	KindAltitudeLimit  Kind = "altitude-limit"
	KindEmergencyStop  Kind = "emergency-stop"
)

// Event is a single safety occurrence.
type Event struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"-"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Grade   string    `json:"level"`
}

// History keeps the most recent safety events. When the log exceeds its
// capacity it is trimmed down to the newest half so long sessions do not
// grow without bound.
type History struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

const (
	historyCap  = 100
	historyKeep = 50
)

func NewHistory() *History {
	return &History{cap: historyCap}
}

func (h *History) Append(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	if len(h.events) > h.cap {
		kept := make([]Event, historyKeep)
		copy(kept, h.events[len(h.events)-historyKeep:])
		h.events = kept
	}
}

// Recent returns up to n events, newest last. n <= 0 returns everything.
func (h *History) Recent(n int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.events) {
		n = len(h.events)
	}
	out := make([]Event, n)
	copy(out, h.events[len(h.events)-n:])
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
