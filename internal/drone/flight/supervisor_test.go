package flight

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/airlink-io/airlink/internal/drone"
)

// fakeSender records the wire form of every command and answers with a
// configurable reply. The default reply acknowledges everything.
type fakeSender struct {
	mu      sync.Mutex
	calls   []string
	respond func(verb, arg string) (drone.Response, error)
}

func (f *fakeSender) SendSync(_ context.Context, verb, arg string, _ time.Duration) (drone.Response, error) {
	wire := verb
	if arg != "" {
		wire = verb + " " + arg
	}
	f.mu.Lock()
	f.calls = append(f.calls, wire)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(verb, arg)
	}
	return drone.Response{Raw: "ok", OK: true}, nil
}

func (f *fakeSender) SendAsync(verb, arg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if arg != "" {
		verb = verb + " " + arg
	}
	f.calls = append(f.calls, verb)
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestSupervisor(f *fakeSender) *Supervisor {
	return NewSupervisor(f, NewSnapshot(), Config{
		MaxAltitude:       500,
		MinTakeoffBattery: 20,
		DefaultSpeed:      50,
		StabilizeDelay:    time.Millisecond,
	}, nil)
}

func TestTakeoff(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)

	if err := s.Takeoff(context.Background()); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	if !s.snap.Flying() {
		t.Error("not flying after acknowledged takeoff")
	}
	if got := s.snap.Mode(); got != ModeManual {
		t.Errorf("mode after stabilize = %v, want manual", got)
	}
	if calls := f.sent(); len(calls) != 1 || calls[0] != "takeoff" {
		t.Errorf("calls = %v, want [takeoff]", calls)
	}
}

func TestTakeoffWhileFlying(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)

	if err := s.Takeoff(context.Background()); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	err := s.Takeoff(context.Background())
	if !drone.IsPrecondition(err) {
		t.Fatalf("second Takeoff = %v, want precondition error", err)
	}
	if calls := f.sent(); len(calls) != 1 {
		t.Errorf("calls = %v, the refused takeoff must not reach the network", calls)
	}
}

func TestTakeoffLowBattery(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)
	s.snap.setBattery(15)

	err := s.Takeoff(context.Background())
	if !drone.IsPrecondition(err) {
		t.Fatalf("Takeoff = %v, want precondition error", err)
	}
	if len(f.sent()) != 0 {
		t.Error("low-battery takeoff reached the network")
	}
}

func TestLandNotFlying(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)

	if err := s.Land(context.Background()); !drone.IsPrecondition(err) {
		t.Fatalf("Land = %v, want precondition error", err)
	}
	if len(f.sent()) != 0 {
		t.Error("land on ground reached the network")
	}
}

func TestLand(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)
	s.snap.beginFlight(time.Now())
	s.snap.adjustAltitude(100)

	if err := s.Land(context.Background()); err != nil {
		t.Fatalf("Land: %v", err)
	}
	if s.snap.Flying() {
		t.Error("still flying after acknowledged land")
	}
	if got := s.snap.Altitude(); got != 0 {
		t.Errorf("altitude = %d, want 0 after landing", got)
	}
}

func TestMoveValidation(t *testing.T) {
	tests := []struct {
		name     string
		flying   bool
		altitude int
		dir      Direction
		dist     int
		wantSend string
	}{
		{"not flying", false, 0, Forward, 100, ""},
		{"too short", true, 0, Forward, 19, ""},
		{"too far", true, 0, Forward, 501, ""},
		{"ceiling", true, 450, Up, 100, ""},
		{"forward ok", true, 0, Forward, 100, "forward 100"},
		{"back min", true, 0, Back, 20, "back 20"},
		{"left max", true, 0, Left, 500, "left 500"},
		{"up within ceiling", true, 100, Up, 100, "up 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeSender{}
			s := newTestSupervisor(f)
			if tt.flying {
				s.snap.beginFlight(time.Now())
				s.snap.adjustAltitude(tt.altitude)
			}

			err := s.Move(context.Background(), tt.dir, tt.dist)
			if tt.wantSend == "" {
				if !drone.IsPrecondition(err) {
					t.Fatalf("Move = %v, want precondition error", err)
				}
				if len(f.sent()) != 0 {
					t.Fatal("rejected move reached the network")
				}
				return
			}
			if err != nil {
				t.Fatalf("Move: %v", err)
			}
			if calls := f.sent(); len(calls) != 1 || calls[0] != tt.wantSend {
				t.Fatalf("calls = %v, want [%s]", calls, tt.wantSend)
			}
		})
	}
}

func TestMoveTracksAltitude(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)
	s.snap.beginFlight(time.Now())

	if err := s.Move(context.Background(), Up, 100); err != nil {
		t.Fatalf("Move up: %v", err)
	}
	if got := s.snap.Altitude(); got != 100 {
		t.Fatalf("altitude = %d, want 100", got)
	}

	if err := s.Move(context.Background(), Forward, 100); err != nil {
		t.Fatalf("Move forward: %v", err)
	}
	if got := s.snap.Altitude(); got != 100 {
		t.Fatalf("altitude = %d, horizontal move must not change it", got)
	}

	if err := s.Move(context.Background(), Down, 50); err != nil {
		t.Fatalf("Move down: %v", err)
	}
	if got := s.snap.Altitude(); got != 50 {
		t.Fatalf("altitude = %d, want 50", got)
	}
}

func TestRotateValidation(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)
	s.snap.beginFlight(time.Now())

	for _, deg := range []int{0, -10, 361} {
		if err := s.Rotate(context.Background(), Clockwise, deg); !drone.IsPrecondition(err) {
			t.Errorf("Rotate(%d) = %v, want precondition error", deg, err)
		}
	}
	if err := s.Rotate(context.Background(), CounterClockwise, 90); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if calls := f.sent(); len(calls) != 1 || calls[0] != "ccw 90" {
		t.Fatalf("calls = %v, want [ccw 90]", calls)
	}
}

func TestSetSpeed(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)

	for _, v := range []int{9, 101, 0} {
		if err := s.SetSpeed(context.Background(), v); !drone.IsPrecondition(err) {
			t.Errorf("SetSpeed(%d) = %v, want precondition error", v, err)
		}
	}
	if err := s.SetSpeed(context.Background(), 60); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if got := s.snap.Status().Speed; got != 60 {
		t.Fatalf("snapshot speed = %d, want 60", got)
	}
}

func TestRejectionPropagates(t *testing.T) {
	f := &fakeSender{respond: func(string, string) (drone.Response, error) {
		return drone.Response{Raw: "error", OK: false}, nil
	}}
	s := newTestSupervisor(f)
	s.snap.beginFlight(time.Now())

	err := s.Move(context.Background(), Forward, 100)
	if !drone.IsRejection(err) {
		t.Fatalf("Move = %v, want rejection error", err)
	}
	if got := s.snap.Altitude(); got != 0 {
		t.Fatalf("altitude = %d, rejected command must not change state", got)
	}
}

func TestEmergencyStopLocalStateWins(t *testing.T) {
	f := &fakeSender{respond: func(string, string) (drone.Response, error) {
		return drone.Response{}, drone.ErrTimeout
	}}
	s := newTestSupervisor(f)
	s.snap.beginFlight(time.Now())
	s.snap.adjustAltitude(200)

	if err := s.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("EmergencyStop = %v, want nil even when unacknowledged", err)
	}
	st := s.snap.Status()
	if st.IsFlying || st.Altitude != 0 || !st.EmergencyActive {
		t.Fatalf("status after emergency = %+v, want grounded with emergency latch", st)
	}
	if st.Mode != "land" {
		t.Fatalf("mode = %s, want land", st.Mode)
	}

	// A repeated stop from the land mode is still accepted.
	if err := s.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("repeated EmergencyStop = %v, want nil", err)
	}
	if got := s.snap.Mode(); got != ModeLand {
		t.Fatalf("mode after repeated stop = %s, want land", got)
	}
}

func TestQueryBattery(t *testing.T) {
	f := &fakeSender{respond: func(verb, _ string) (drone.Response, error) {
		return drone.Response{Raw: "87\r\n", OK: false}, nil
	}}
	s := newTestSupervisor(f)

	pct, err := s.QueryBattery(context.Background())
	if err != nil {
		t.Fatalf("QueryBattery: %v", err)
	}
	if pct != 87 {
		t.Fatalf("battery = %d, want 87", pct)
	}
	if got := s.snap.Battery(); got != 87 {
		t.Fatalf("snapshot battery = %d, want 87", got)
	}
}

func TestQueryBatteryGarbageReply(t *testing.T) {
	f := &fakeSender{respond: func(string, string) (drone.Response, error) {
		return drone.Response{Raw: "unknown command", OK: false}, nil
	}}
	s := newTestSupervisor(f)

	if _, err := s.QueryBattery(context.Background()); !drone.IsRejection(err) {
		t.Fatalf("QueryBattery = %v, want rejection error", err)
	}
}

func TestVideoSettingsValidation(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)

	if err := s.SetVideoBitrate(context.Background(), 0); !drone.IsPrecondition(err) {
		t.Errorf("SetVideoBitrate(0) = %v, want precondition error", err)
	}
	if err := s.SetVideoBitrate(context.Background(), 6); !drone.IsPrecondition(err) {
		t.Errorf("SetVideoBitrate(6) = %v, want precondition error", err)
	}
	if err := s.SetVideoResolution(context.Background(), "medium"); !drone.IsPrecondition(err) {
		t.Errorf("SetVideoResolution(medium) = %v, want precondition error", err)
	}
	if err := s.SetVideoFPS(context.Background(), "fast"); !drone.IsPrecondition(err) {
		t.Errorf("SetVideoFPS(fast) = %v, want precondition error", err)
	}
	if len(f.sent()) != 0 {
		t.Errorf("rejected video settings reached the network: %v", f.sent())
	}

	if err := s.SetVideoBitrate(context.Background(), 3); err != nil {
		t.Fatalf("SetVideoBitrate: %v", err)
	}
	if err := s.SetVideoFPS(context.Background(), "middle"); err != nil {
		t.Fatalf("SetVideoFPS: %v", err)
	}
	want := []string{"setbitrate 3", "setfps middle"}
	calls := f.sent()
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestInitialize(t *testing.T) {
	f := &fakeSender{}
	s := newTestSupervisor(f)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	want := []string{"command", "streamon", "speed 50"}
	calls := f.sent()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestInitializeVideoFailureIsSoft(t *testing.T) {
	f := &fakeSender{respond: func(verb, _ string) (drone.Response, error) {
		if verb == "streamon" {
			return drone.Response{Raw: "error", OK: false}, nil
		}
		return drone.Response{Raw: "ok", OK: true}, nil
	}}
	s := newTestSupervisor(f)

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize = %v, video failure must not abort initialization", err)
	}
}

func TestHoverNotFlying(t *testing.T) {
	s := newTestSupervisor(&fakeSender{})
	if err := s.Hover(context.Background(), time.Millisecond); !drone.IsPrecondition(err) {
		t.Fatalf("Hover = %v, want precondition error", err)
	}
}

func TestHoverCanceled(t *testing.T) {
	s := newTestSupervisor(&fakeSender{})
	s.snap.beginFlight(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Hover(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Hover = %v, want context.Canceled", err)
	}
}
