package flight

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeManual, "manual"},
		{ModeAuto, "auto"},
		{ModeTakeoff, "takeoff"},
		{ModeLand, "land"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestModeMachineTransitions(t *testing.T) {
	ctx := context.Background()
	m := newModeMachine()

	if got := m.Current(); got != stateManual {
		t.Fatalf("initial state = %q, want manual", got)
	}

	// Stabilize is only legal from takeoff.
	if err := m.Event(ctx, eventStabilize); err == nil {
		t.Fatal("stabilize from manual accepted, want refusal")
	}

	if err := m.Event(ctx, eventTakeoff); err != nil {
		t.Fatalf("takeoff: %v", err)
	}
	if err := m.Event(ctx, eventStabilize); err != nil {
		t.Fatalf("stabilize: %v", err)
	}
	// Emergency is legal from every airborne state.
	if err := m.Event(ctx, eventEmergency); err != nil {
		t.Fatalf("emergency from manual: %v", err)
	}
	if got := modeFromState(m.Current()); got != ModeLand {
		t.Fatalf("mode = %v, want land", got)
	}

	// Already landed: the event is a no-op, not an illegal transition.
	if err := m.Event(ctx, eventEmergency); err != nil {
		var noop fsm.NoTransitionError
		if !errors.As(err, &noop) {
			t.Fatalf("emergency from land = %v, want no-transition", err)
		}
	}
	if got := m.Current(); got != stateLand {
		t.Fatalf("state after emergency = %q, want land", got)
	}
}
