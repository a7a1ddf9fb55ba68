package flight

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/internal/pkg/metrics"
	"github.com/airlink-io/airlink/pkg/log"
)

// Per-verb reply deadlines. Takeoff and landing involve motor spin-up and a
// descent phase, so they get far more slack than attitude commands.
const (
	takeoffTimeout = 10 * time.Second
	landTimeout    = 15 * time.Second
	moveTimeout    = 8 * time.Second
	rotateTimeout  = 5 * time.Second
	generalTimeout = 2 * time.Second
)

// Movement bounds accepted by the firmware, in centimeters and degrees.
const (
	minMoveCm  = 20
	maxMoveCm  = 500
	minRotate  = 1
	maxRotate  = 360
	minSpeed   = 10
	maxSpeed   = 100
	minBitrate = 1
	maxBitrate = 5
)

// Direction is a horizontal or vertical move axis.
type Direction int

const (
	Forward Direction = iota
	Back
	Left
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Back:
		return "back"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "unknown"
}

// Rotation is a yaw direction.
type Rotation int

const (
	Clockwise Rotation = iota
	CounterClockwise
)

func (r Rotation) String() string {
	if r == CounterClockwise {
		return "ccw"
	}
	return "cw"
}

// CommandSender is the slice of the command channel the supervisor needs.
// Satisfied by *drone.Channel; tests substitute a recording fake.
type CommandSender interface {
	SendSync(ctx context.Context, verb, arg string, timeout time.Duration) (drone.Response, error)
	SendAsync(verb, arg string)
}

// Config carries the flight limits enforced before any command reaches the
// vehicle.
type Config struct {
	MaxAltitude       int
	MinTakeoffBattery int
	DefaultSpeed      int
	StabilizeDelay    time.Duration
}

// Supervisor validates and issues flight commands, keeping the Snapshot and
// the mode machine consistent with what the vehicle acknowledged. State only
// changes after a confirmed reply, with the single exception of EmergencyStop.
type Supervisor struct {
	sender  CommandSender
	snap    *Snapshot
	machine *modeMachine
	cfg     Config
	log     log.Logger

	// transMu serializes takeoff and landing so the two transitions cannot
	// interleave. EmergencyStop deliberately does not take it.
	transMu sync.Mutex
}

// modeMachine pairs the fsm with its own lock; looplab's FSM guards Current
// and Event internally but we also flip the Snapshot mode under it.
type modeMachine struct {
	mu  sync.Mutex
	fsm *fsm.FSM
}

func NewSupervisor(sender CommandSender, snap *Snapshot, cfg Config, logger log.Logger) *Supervisor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.StabilizeDelay <= 0 {
		cfg.StabilizeDelay = 3 * time.Second
	}
	return &Supervisor{
		sender:  sender,
		snap:    snap,
		machine: &modeMachine{fsm: newModeMachine()},
		cfg:     cfg,
		log:     logger.WithName("flight"),
	}
}

// Snapshot exposes the shared flight state for the safety monitor and API.
func (s *Supervisor) Snapshot() *Snapshot {
	return s.snap
}

// Takeoff spins up the motors and waits for the vehicle to stabilize. It is
// refused while airborne or when the battery is below the takeoff minimum.
func (s *Supervisor) Takeoff(ctx context.Context) error {
	s.transMu.Lock()
	defer s.transMu.Unlock()

	if s.snap.Flying() {
		return &drone.PreconditionError{Op: "takeoff", Reason: "already flying"}
	}
	if bat := s.snap.Battery(); bat < s.cfg.MinTakeoffBattery {
		return &drone.PreconditionError{
			Op:     "takeoff",
			Reason: fmt.Sprintf("battery %d%% below takeoff minimum %d%%", bat, s.cfg.MinTakeoffBattery),
		}
	}

	if err := s.roundTrip(ctx, "takeoff", "", takeoffTimeout); err != nil {
		return err
	}

	s.transition(ctx, eventTakeoff)
	s.snap.beginFlight(time.Now())
	s.log.Info("Takeoff acknowledged, stabilizing", "delay", s.cfg.StabilizeDelay)

	select {
	case <-time.After(s.cfg.StabilizeDelay):
	case <-ctx.Done():
	}

	s.transition(ctx, eventStabilize)
	s.snap.setMode(ModeManual)
	return nil
}

// Land brings the vehicle down and marks the flight finished once the
// firmware acknowledges.
func (s *Supervisor) Land(ctx context.Context) error {
	s.transMu.Lock()
	defer s.transMu.Unlock()

	if !s.snap.Flying() {
		return &drone.PreconditionError{Op: "land", Reason: "not flying"}
	}
	if err := s.roundTrip(ctx, "land", "", landTimeout); err != nil {
		return err
	}

	s.transition(ctx, eventLand)
	s.snap.endFlight()
	s.log.Info("Landed")
	return nil
}

// Move translates the vehicle along one axis. Vertical moves are checked
// against the altitude ceiling before anything is sent.
func (s *Supervisor) Move(ctx context.Context, dir Direction, distanceCm int) error {
	if !s.snap.Flying() {
		return &drone.PreconditionError{Op: "move", Reason: "not flying"}
	}
	if distanceCm < minMoveCm || distanceCm > maxMoveCm {
		return &drone.PreconditionError{
			Op:     "move",
			Reason: fmt.Sprintf("distance %dcm outside %d-%dcm", distanceCm, minMoveCm, maxMoveCm),
		}
	}
	if dir == Up {
		if goal := s.snap.Altitude() + distanceCm; goal > s.cfg.MaxAltitude {
			return &drone.PreconditionError{
				Op:     "move",
				Reason: fmt.Sprintf("target altitude %dcm exceeds ceiling %dcm", goal, s.cfg.MaxAltitude),
			}
		}
	}

	if err := s.roundTrip(ctx, dir.String(), strconv.Itoa(distanceCm), moveTimeout); err != nil {
		return err
	}

	switch dir {
	case Up:
		s.snap.adjustAltitude(distanceCm)
	case Down:
		s.snap.adjustAltitude(-distanceCm)
	}
	return nil
}

// Rotate yaws the vehicle by the given number of degrees.
func (s *Supervisor) Rotate(ctx context.Context, rot Rotation, degrees int) error {
	if !s.snap.Flying() {
		return &drone.PreconditionError{Op: "rotate", Reason: "not flying"}
	}
	if degrees < minRotate || degrees > maxRotate {
		return &drone.PreconditionError{
			Op:     "rotate",
			Reason: fmt.Sprintf("angle %d outside %d-%d degrees", degrees, minRotate, maxRotate),
		}
	}
	return s.roundTrip(ctx, rot.String(), strconv.Itoa(degrees), rotateTimeout)
}

// SetSpeed changes the cruise speed in cm/s.
func (s *Supervisor) SetSpeed(ctx context.Context, speed int) error {
	if speed < minSpeed || speed > maxSpeed {
		return &drone.PreconditionError{
			Op:     "speed",
			Reason: fmt.Sprintf("speed %d outside %d-%d cm/s", speed, minSpeed, maxSpeed),
		}
	}
	if err := s.roundTrip(ctx, "speed", strconv.Itoa(speed), generalTimeout); err != nil {
		return err
	}
	s.snap.setSpeed(speed)
	return nil
}

// Hover holds the current position for the given duration, returning early
// if the context is canceled.
func (s *Supervisor) Hover(ctx context.Context, d time.Duration) error {
	if !s.snap.Flying() {
		return &drone.PreconditionError{Op: "hover", Reason: "not flying"}
	}
	s.log.Info("Hovering", "duration", d)
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmergencyStop cuts the motors immediately. The local state is forced down
// whether or not the vehicle acknowledged: when the link is gone the vehicle
// firmware stops on its own and our model must agree.
func (s *Supervisor) EmergencyStop(ctx context.Context) error {
	resp, err := s.sender.SendSync(ctx, "emergency", "", generalTimeout)
	if err != nil {
		s.log.Error(err, "Emergency stop unacknowledged, forcing local state")
	} else if !resp.OK {
		s.log.Error(nil, "Emergency stop rejected, forcing local state", "reply", resp.Raw)
	}

	s.transition(ctx, eventEmergency)
	s.snap.forceDown()
	metrics.EmergencyStopsTotal.Inc()
	s.log.Warn("Emergency stop applied")
	return nil
}

// Initialize puts the vehicle in command mode and applies the defaults.
// Video and speed setup failures are logged but do not fail initialization.
func (s *Supervisor) Initialize(ctx context.Context) error {
	if err := s.roundTrip(ctx, "command", "", generalTimeout); err != nil {
		return err
	}
	if err := s.StartVideoStream(ctx); err != nil {
		s.log.Warn("Video stream not started", "err", err)
	}
	if err := s.SetSpeed(ctx, s.cfg.DefaultSpeed); err != nil {
		s.log.Warn("Default speed not applied", "speed", s.cfg.DefaultSpeed, "err", err)
	}
	return nil
}

func (s *Supervisor) StartVideoStream(ctx context.Context) error {
	return s.roundTrip(ctx, "streamon", "", generalTimeout)
}

func (s *Supervisor) StopVideoStream(ctx context.Context) error {
	return s.roundTrip(ctx, "streamoff", "", generalTimeout)
}

// SetVideoBitrate selects a bitrate level between 1 (lowest) and 5.
func (s *Supervisor) SetVideoBitrate(ctx context.Context, level int) error {
	if level < minBitrate || level > maxBitrate {
		return &drone.PreconditionError{
			Op:     "setbitrate",
			Reason: fmt.Sprintf("level %d outside %d-%d", level, minBitrate, maxBitrate),
		}
	}
	return s.roundTrip(ctx, "setbitrate", strconv.Itoa(level), generalTimeout)
}

func (s *Supervisor) SetVideoResolution(ctx context.Context, res string) error {
	if res != "high" && res != "low" {
		return &drone.PreconditionError{Op: "setresolution", Reason: "resolution must be high or low"}
	}
	return s.roundTrip(ctx, "setresolution", res, generalTimeout)
}

func (s *Supervisor) SetVideoFPS(ctx context.Context, fps string) error {
	switch fps {
	case "high", "middle", "low":
	default:
		return &drone.PreconditionError{Op: "setfps", Reason: "fps must be high, middle or low"}
	}
	return s.roundTrip(ctx, "setfps", fps, generalTimeout)
}

// QueryBattery asks the vehicle for its battery level. The reply is a bare
// number rather than "ok", so it is parsed instead of checked for success.
func (s *Supervisor) QueryBattery(ctx context.Context) (int, error) {
	resp, err := s.sender.SendSync(ctx, "battery?", "", generalTimeout)
	if err != nil {
		return 0, err
	}
	pct, err := strconv.Atoi(strings.TrimSpace(resp.Raw))
	if err != nil {
		return 0, &drone.RejectionError{Verb: "battery?", Reply: resp.Raw}
	}
	s.snap.setBattery(pct)
	return pct, nil
}

// roundTrip sends a command and maps an unacknowledged reply to a rejection.
func (s *Supervisor) roundTrip(ctx context.Context, verb, arg string, timeout time.Duration) error {
	resp, err := s.sender.SendSync(ctx, verb, arg, timeout)
	if err != nil {
		return err
	}
	if !resp.OK {
		return &drone.RejectionError{Verb: verb, Reply: resp.Raw}
	}
	return nil
}

// transition fires a mode machine event and mirrors the result into the
// snapshot. An illegal transition is a bug in the caller's guards; it is
// logged rather than surfaced because the vehicle already acknowledged.
func (s *Supervisor) transition(ctx context.Context, event string) {
	s.machine.mu.Lock()
	defer s.machine.mu.Unlock()
	if err := s.machine.fsm.Event(ctx, event); err != nil {
		s.log.Warn("Mode transition refused", "event", event, "state", s.machine.fsm.Current(), "err", err)
	}
	s.snap.setMode(modeFromState(s.machine.fsm.Current()))
}
