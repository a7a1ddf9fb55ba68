package flight

import (
	"sync"
	"time"

	"github.com/airlink-io/airlink/internal/drone/telemetry"
)

// Status is the externally visible flight state, served by the status API
// and embedded in outbound MQTT payloads.
type Status struct {
	IsFlying        bool    `json:"isFlying"`
	Mode            string  `json:"mode"`
	Battery         int     `json:"battery"`
	Altitude        int     `json:"altitude"`
	Speed           int     `json:"speed"`
	EmergencyActive bool    `json:"emergencyActive"`
	Connected       bool    `json:"connected"`
	FlightSeconds   float64 `json:"flightSeconds"`
}

// Snapshot is the mutex-guarded flight state shared between the Supervisor,
// the telemetry feed and the safety monitor. All fields are accessed through
// methods; callers never see the struct mid-update.
type Snapshot struct {
	mu          sync.RWMutex
	flying      bool
	mode        Mode
	battery     int
	altitude    int
	speed       int
	emergency   bool
	connected   bool
	flightStart time.Time
}

// NewSnapshot returns a grounded snapshot. Battery starts at 100 so takeoff
// is not refused before the first telemetry record arrives.
func NewSnapshot() *Snapshot {
	return &Snapshot{battery: 100, mode: ModeManual}
}

func (s *Snapshot) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var elapsed float64
	if s.flying && !s.flightStart.IsZero() {
		elapsed = time.Since(s.flightStart).Seconds()
	}
	return Status{
		IsFlying:        s.flying,
		Mode:            s.mode.String(),
		Battery:         s.battery,
		Altitude:        s.altitude,
		Speed:           s.speed,
		EmergencyActive: s.emergency,
		Connected:       s.connected,
		FlightSeconds:   elapsed,
	}
}

func (s *Snapshot) Flying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flying
}

func (s *Snapshot) Battery() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.battery
}

func (s *Snapshot) Altitude() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.altitude
}

func (s *Snapshot) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Snapshot) EmergencyActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emergency
}

func (s *Snapshot) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// FlightStartedAt returns the start of the current flight, or the zero time
// when the vehicle is on the ground.
func (s *Snapshot) FlightStartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.flying {
		return time.Time{}
	}
	return s.flightStart
}

// ApplyTelemetry folds a decoded telemetry record into the snapshot. Only
// fields present in the record are updated.
func (s *Snapshot) ApplyTelemetry(rec telemetry.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Battery != nil {
		s.battery = *rec.Battery
	}
	if rec.Altitude != nil {
		s.altitude = *rec.Altitude
	}
}

func (s *Snapshot) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

func (s *Snapshot) setBattery(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = pct
}

func (s *Snapshot) setMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *Snapshot) setSpeed(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = v
}

func (s *Snapshot) beginFlight(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flying = true
	s.mode = ModeTakeoff
	s.emergency = false
	s.flightStart = now
}

func (s *Snapshot) endFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flying = false
	s.altitude = 0
	s.mode = ModeLand
	s.flightStart = time.Time{}
}

// forceDown records an immediate motor stop. Unlike endFlight it also raises
// the emergency latch so the operator sees why the vehicle is down.
func (s *Snapshot) forceDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flying = false
	s.altitude = 0
	s.mode = ModeLand
	s.emergency = true
	s.flightStart = time.Time{}
}

// adjustAltitude shifts the tracked altitude after a confirmed vertical move,
// clamping at ground level.
func (s *Snapshot) adjustAltitude(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.altitude += delta
	if s.altitude < 0 {
		s.altitude = 0
	}
}
