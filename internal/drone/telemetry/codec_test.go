package telemetry

import (
	"testing"
)

func intp(v int) *int          { return &v }
func floatp(v float64) *float64 { return &v }

func TestDecodeBasicFields(t *testing.T) {
	rec := Decode("bat:85 h:120 temp:32")

	if rec.Battery == nil || *rec.Battery != 85 {
		t.Errorf("Battery = %v, want 85", rec.Battery)
	}
	if rec.Altitude == nil || *rec.Altitude != 120 {
		t.Errorf("Altitude = %v, want 120", rec.Altitude)
	}
	if rec.Temperature == nil || *rec.Temperature != 32 {
		t.Errorf("Temperature = %v, want 32", rec.Temperature)
	}
	if rec.SpeedX != nil || rec.Pitch != nil || rec.Barometer != nil {
		t.Errorf("unexpected fields decoded: %+v", rec)
	}
	if rec.CapturedAt.IsZero() {
		t.Error("CapturedAt not stamped")
	}
}

func TestDecodeSpeedTotal(t *testing.T) {
	tests := []struct {
		name string
		line string
		x, y *int
		tot  *float64
	}{
		{"both axes", "vgx:10 vgy:0", intp(10), intp(0), floatp(10)},
		{"diagonal", "vgx:3 vgy:4", intp(3), intp(4), floatp(5)},
		{"rounded", "vgx:1 vgy:1", intp(1), intp(1), floatp(1.41)},
		{"negative", "vgx:-3 vgy:4", intp(-3), intp(4), floatp(5)},
		{"x only", "vgx:10", intp(10), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Decode(tt.line)
			checkInt(t, "SpeedX", rec.SpeedX, tt.x)
			checkInt(t, "SpeedY", rec.SpeedY, tt.y)
			checkFloat(t, "SpeedTotal", rec.SpeedTotal, tt.tot)
		})
	}
}

func TestDecodeAttitude(t *testing.T) {
	rec := Decode("pitch:-5;roll:12;yaw:-180")

	checkInt(t, "Pitch", rec.Pitch, intp(-5))
	checkInt(t, "Roll", rec.Roll, intp(12))
	checkInt(t, "Yaw", rec.Yaw, intp(-180))
	// "pitch:" must not be mistaken for an altitude reading.
	if rec.Altitude != nil {
		t.Errorf("Altitude = %d, want nil", *rec.Altitude)
	}
}

func TestDecodeFullStateLine(t *testing.T) {
	line := "pitch:0;roll:1;yaw:-2;vgx:5;vgy:0;vgz:-1;temp:48;tof:65;h:40;bat:72;baro:163.21;time:133;agx:-4.00;agy:1.21;agz:-999.85;"
	rec := Decode(line)

	checkInt(t, "Altitude", rec.Altitude, intp(40))
	checkInt(t, "Battery", rec.Battery, intp(72))
	checkInt(t, "SpeedZ", rec.SpeedZ, intp(-1))
	checkInt(t, "TimeOfFlight", rec.TimeOfFlight, intp(65))
	checkInt(t, "MotorTime", rec.MotorTime, intp(133))
	checkFloat(t, "Barometer", rec.Barometer, floatp(163.21))
	checkFloat(t, "AccelX", rec.AccelX, floatp(-4.00))
	checkFloat(t, "AccelZ", rec.AccelZ, floatp(-999.85))
	checkFloat(t, "SpeedTotal", rec.SpeedTotal, floatp(5))
}

func TestDecodeMalformedFieldsSkipped(t *testing.T) {
	rec := Decode("bat:abc h:120 vgx:?? temp:")

	if rec.Battery != nil {
		t.Errorf("Battery = %d, want nil for malformed value", *rec.Battery)
	}
	checkInt(t, "Altitude", rec.Altitude, intp(120))
	if rec.SpeedX != nil || rec.Temperature != nil {
		t.Errorf("malformed fields decoded: %+v", rec)
	}
}

func TestDecodeEmptyLine(t *testing.T) {
	rec := Decode("")
	if rec.Battery != nil || rec.Altitude != nil || rec.SpeedTotal != nil {
		t.Errorf("empty line produced values: %+v", rec)
	}
}

func checkInt(t *testing.T, name string, got, want *int) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %d, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %d", name, *want)
	case want != nil && *got != *want:
		t.Errorf("%s = %d, want %d", name, *got, *want)
	}
}

func checkFloat(t *testing.T, name string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", name, *want)
	case want != nil && *got != *want:
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}
