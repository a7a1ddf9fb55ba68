package topic

import "testing"

func TestBuilder(t *testing.T) {
	b := NewBuilder("airlink/v1")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"telemetry", b.Telemetry("drone-001"), "airlink/v1/telemetry/drone-001"},
		{"telemetry wildcard", b.TelemetryWildcard(), "airlink/v1/telemetry/+"},
		{"safety", b.Safety("drone-001"), "airlink/v1/safety/drone-001"},
		{"safety wildcard", b.SafetyWildcard(), "airlink/v1/safety/+"},
		{"connection", b.Connection("drone-001"), "airlink/v1/connection/drone-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
