package flight

import (
	"github.com/looplab/fsm"
)

// Mode is the flight mode of the vehicle. Exactly one mode is active at a
// time; the Supervisor owns all transitions.
type Mode int

const (
	ModeManual Mode = iota
	ModeAuto
	ModeTakeoff
	ModeLand
)

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAuto:
		return "auto"
	case ModeTakeoff:
		return "takeoff"
	case ModeLand:
		return "land"
	}
	return "unknown"
}

// FSM state and event names. The state machine enforces transition legality;
// the Snapshot carries the typed read model derived from it.
const (
	stateManual  = "manual"
	stateAuto    = "auto"
	stateTakeoff = "takeoff"
	stateLand    = "land"

	eventTakeoff   = "takeoff"
	eventStabilize = "stabilize"
	eventLand      = "land"
	eventEmergency = "emergency"
)

// newModeMachine builds the flight-mode state machine. The vehicle starts on
// the ground under manual control.
func newModeMachine() *fsm.FSM {
	return fsm.NewFSM(
		stateManual,
		fsm.Events{
			{Name: eventTakeoff, Src: []string{stateManual, stateAuto, stateLand}, Dst: stateTakeoff},
			{Name: eventStabilize, Src: []string{stateTakeoff}, Dst: stateManual},
			{Name: eventLand, Src: []string{stateManual, stateAuto, stateTakeoff}, Dst: stateLand},
			{Name: eventEmergency, Src: []string{stateManual, stateAuto, stateTakeoff, stateLand}, Dst: stateLand},
		},
		fsm.Callbacks{},
	)
}

func modeFromState(state string) Mode {
	switch state {
	case stateManual:
		return ModeManual
	case stateAuto:
		return ModeAuto
	case stateTakeoff:
		return ModeTakeoff
	case stateLand:
		return ModeLand
	}
	return ModeManual
}
