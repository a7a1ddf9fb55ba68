package options

import (
	"testing"
)

func TestSafetyOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SafetyOptions)
		wantErr int
	}{
		{"defaults", func(*SafetyOptions) {}, 0},
		{"emergency above critical", func(o *SafetyOptions) { o.EmergencyBattery = 15 }, 1},
		{"critical above warning", func(o *SafetyOptions) { o.CriticalBattery = 25 }, 1},
		{"inverted ordering", func(o *SafetyOptions) {
			o.WarnBattery, o.EmergencyBattery = 5, 20
		}, 2},
		{"zero flight time", func(o *SafetyOptions) { o.MaxFlightTime = 0 }, 1},
		{"bad loss action", func(o *SafetyOptions) { o.LossAction = "panic" }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewSafetyOptions()
			tt.mutate(o)
			if errs := o.Validate(); len(errs) != tt.wantErr {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErr)
			}
		})
	}
}

func TestDroneOptionsValidate(t *testing.T) {
	o := NewDroneOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("default options invalid: %v", errs)
	}

	o.CommandPort = 70000
	o.Addr = ""
	if errs := o.Validate(); len(errs) != 2 {
		t.Fatalf("Validate() = %v, want 2 errors", errs)
	}
}

func TestMqttOptionsDisabled(t *testing.T) {
	o := NewMqttOptions()
	if o.Enabled() {
		t.Fatal("mqtt enabled without a broker")
	}
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("disabled mqtt must validate clean, got %v", errs)
	}

	o.Broker = "tcp://127.0.0.1:1883"
	if !o.Enabled() {
		t.Fatal("mqtt not enabled with a broker set")
	}
}

func TestFlightOptionsValidate(t *testing.T) {
	o := NewFlightOptions()
	if errs := o.Validate(); len(errs) != 0 {
		t.Fatalf("default options invalid: %v", errs)
	}

	o.DefaultSpeed = 500
	o.MaxAltitude = -1
	if errs := o.Validate(); len(errs) != 2 {
		t.Fatalf("Validate() = %v, want 2 errors", errs)
	}
}
