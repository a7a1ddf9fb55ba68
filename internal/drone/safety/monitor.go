package safety

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/internal/drone/flight"
	"github.com/airlink-io/airlink/internal/pkg/metrics"
	"github.com/airlink-io/airlink/pkg/log"
)

const tickInterval = time.Second

// FlightController is the slice of the flight supervisor the monitor drives.
type FlightController interface {
	Land(ctx context.Context) error
	EmergencyStop(ctx context.Context) error
}

// LinkStatus reports command-channel health.
type LinkStatus interface {
	State() drone.ConnState
	SinceTelemetry() time.Duration
}

// Config carries the safety thresholds. Battery levels are percentages and
// must satisfy Emergency < Critical < Warn; the options layer validates that.
type Config struct {
	WarnBattery      int
	CriticalBattery  int
	EmergencyBattery int
	MaxFlightTime    time.Duration
	ConnTimeout      time.Duration
	LossAction       string
	MaxAltitude      int
}

// LossAction values.
const (
	LossActionLand  = "land"
	LossActionHover = "hover"
)

// Monitor watches the shared flight state once per second and forces the
// vehicle down when a threshold is crossed. Each intervention fires at most
// once per flight; the latches re-arm on the next takeoff.
type Monitor struct {
	ctrl    FlightController
	snap    *flight.Snapshot
	link    LinkStatus
	cfg     Config
	history *History
	log     log.Logger

	subMu sync.Mutex
	subs  []chan Event

	// tick is single-goroutine, so these latches need no lock.
	wasFlying      bool
	batteryWarned  bool
	timeWarned     bool
	altitudeWarned bool
	connLost       bool
	autoLandFired  bool

	// emergencyFired is shared with the landing goroutine started by
	// autoLand and needs the lock.
	emMu           sync.Mutex
	emergencyFired bool
}

func NewMonitor(ctrl FlightController, snap *flight.Snapshot, link LinkStatus, cfg Config, logger log.Logger) *Monitor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.LossAction == "" {
		cfg.LossAction = LossActionLand
	}
	return &Monitor{
		ctrl:    ctrl,
		snap:    snap,
		link:    link,
		cfg:     cfg,
		history: NewHistory(),
		log:     logger.WithName("safety"),
	}
}

// History exposes the event log for the status API.
func (m *Monitor) History() *History {
	return m.history
}

// Subscribe returns a channel of safety events. Slow consumers drop events
// rather than stalling the monitor.
func (m *Monitor) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()
	return ch
}

// Run drives the monitor until the context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.tick(ctx, now)
		}
	}
}

// tick evaluates every safety rule against the current snapshot. Landings run
// on their own goroutine so a slow land never stops the rules from evaluating.
func (m *Monitor) tick(ctx context.Context, now time.Time) {
	flying := m.snap.Flying()
	if flying && !m.wasFlying {
		m.resetLatches()
		m.raise(now, LevelInfo, KindTakeoff, "flight started")
	}
	if !flying && m.wasFlying {
		m.raise(now, LevelInfo, KindLanding, "flight ended")
	}
	m.wasFlying = flying
	if !flying {
		return
	}

	bat := m.snap.Battery()
	switch {
	case bat <= m.cfg.EmergencyBattery:
		m.fireEmergency(ctx, now,
			fmt.Sprintf("battery %d%% at emergency floor %d%%, stopping motors", bat, m.cfg.EmergencyBattery))
	case bat <= m.cfg.CriticalBattery:
		if !m.autoLandFired {
			m.autoLandFired = true
			m.raise(now, LevelEmergency, KindAutoLand,
				fmt.Sprintf("battery %d%% below critical %d%%, landing", bat, m.cfg.CriticalBattery))
			m.autoLand(ctx)
		}
	case bat <= m.cfg.WarnBattery:
		if !m.batteryWarned {
			m.batteryWarned = true
			m.raise(now, LevelWarning, KindBatteryWarning,
				fmt.Sprintf("battery %d%% below warning threshold %d%%", bat, m.cfg.WarnBattery))
		}
	}
	if !m.snap.Flying() {
		return
	}

	if start := m.snap.FlightStartedAt(); !start.IsZero() && m.cfg.MaxFlightTime > 0 {
		elapsed := now.Sub(start)
		switch {
		case elapsed >= m.cfg.MaxFlightTime:
			if !m.autoLandFired {
				m.autoLandFired = true
				m.raise(now, LevelCritical, KindFlightTime,
					fmt.Sprintf("flight time %s reached limit %s, landing", elapsed.Round(time.Second), m.cfg.MaxFlightTime))
				m.autoLand(ctx)
			}
		case elapsed >= time.Duration(float64(m.cfg.MaxFlightTime)*0.8):
			if !m.timeWarned {
				m.timeWarned = true
				m.raise(now, LevelWarning, KindFlightTime,
					fmt.Sprintf("flight time %s approaching limit %s", elapsed.Round(time.Second), m.cfg.MaxFlightTime))
			}
		}
	}
	if !m.snap.Flying() {
		return
	}

	if m.link != nil {
		lost := !m.link.State().Connected() || m.link.SinceTelemetry() > 2*m.cfg.ConnTimeout
		if lost && !m.connLost {
			m.connLost = true
			m.raise(now, LevelCritical, KindConnectionLoss,
				fmt.Sprintf("link lost while flying, action %q", m.cfg.LossAction))
			if m.cfg.LossAction != LossActionHover {
				m.autoLand(ctx)
			}
		}
		if !lost {
			m.connLost = false
		}
	}
	if !m.snap.Flying() {
		return
	}

	if m.cfg.MaxAltitude > 0 && m.snap.Altitude() > m.cfg.MaxAltitude {
		if !m.altitudeWarned {
			m.altitudeWarned = true
			m.raise(now, LevelWarning, KindAltitudeLimit,
				fmt.Sprintf("altitude %dcm above ceiling %dcm", m.snap.Altitude(), m.cfg.MaxAltitude))
		}
	}
}

// autoLand lands the vehicle on its own goroutine so the tick loop keeps
// evaluating rules while the landing is in flight. Callers latch
// autoLandFired first, which prevents overlapping attempts. A failed landing
// escalates to an emergency stop.
func (m *Monitor) autoLand(ctx context.Context) {
	metrics.AutoLandsTotal.Inc()
	go func() {
		if err := m.ctrl.Land(ctx); err != nil {
			m.fireEmergency(ctx, time.Now(),
				fmt.Sprintf("automatic landing failed: %v", err))
		}
	}()
}

// fireEmergency stops the motors at most once per flight. The latch is shared
// between the tick loop and the landing goroutine.
func (m *Monitor) fireEmergency(ctx context.Context, now time.Time, message string) {
	m.emMu.Lock()
	fired := m.emergencyFired
	m.emergencyFired = true
	m.emMu.Unlock()
	if fired {
		return
	}
	m.raise(now, LevelEmergency, KindEmergencyStop, message)
	if err := m.ctrl.EmergencyStop(ctx); err != nil {
		m.log.Error(err, "Emergency stop failed")
	}
}

func (m *Monitor) resetLatches() {
	m.batteryWarned = false
	m.timeWarned = false
	m.altitudeWarned = false
	m.connLost = false
	m.autoLandFired = false
	m.emMu.Lock()
	m.emergencyFired = false
	m.emMu.Unlock()
}

// raise records an event in the history, logs it at the matching level and
// fans it out to subscribers without blocking.
func (m *Monitor) raise(now time.Time, level Level, kind Kind, message string) {
	ev := Event{Time: now, Level: level, Kind: kind, Message: message, Grade: level.String()}
	m.history.Append(ev)
	metrics.SafetyEventsTotal.WithLabelValues(level.String()).Inc()

	switch level {
	case LevelInfo:
		m.log.Info(message, "kind", kind)
	case LevelWarning:
		m.log.Warn(message, "kind", kind)
	default:
		m.log.Error(nil, message, "kind", kind, "level", level.String())
	}

	m.subMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	m.subMu.Unlock()
}
