package telemetry

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// Record is a sparse view of one telemetry line. Fields absent from the line
// stay nil so a missing reading is distinguishable from a real zero.
type Record struct {
	Battery      *int     `json:"battery,omitempty"`
	Altitude     *int     `json:"altitude,omitempty"`
	SpeedX       *int     `json:"speedX,omitempty"`
	SpeedY       *int     `json:"speedY,omitempty"`
	SpeedZ       *int     `json:"speedZ,omitempty"`
	SpeedTotal   *float64 `json:"speedTotal,omitempty"`
	Temperature  *int     `json:"temperature,omitempty"`
	Pitch        *int     `json:"pitch,omitempty"`
	Roll         *int     `json:"roll,omitempty"`
	Yaw          *int     `json:"yaw,omitempty"`
	AccelX       *float64 `json:"accelX,omitempty"`
	AccelY       *float64 `json:"accelY,omitempty"`
	AccelZ       *float64 `json:"accelZ,omitempty"`
	Barometer    *float64 `json:"barometer,omitempty"`
	TimeOfFlight *int     `json:"timeOfFlight,omitempty"`
	MotorTime    *int     `json:"motorTime,omitempty"`

	CapturedAt time.Time `json:"capturedAt"`
}

// The vehicle has no onboard clock sync, so each field is matched
// independently; one malformed key never aborts the rest of the line.
var (
	batteryPat   = regexp.MustCompile(`bat:(\d+)`)
	// "h:" anchored so it cannot match the tail of "pitch:" or "temph:".
	altitudePat  = regexp.MustCompile(`(?:^|[;\s])h:(-?\d+)`)
	speedPat     = regexp.MustCompile(`vg([xyz]):(-?\d+)`)
	tempPat      = regexp.MustCompile(`temp:(-?\d+)`)
	attitudePat  = regexp.MustCompile(`pitch:(-?\d+);roll:(-?\d+);yaw:(-?\d+)`)
	accelPat     = regexp.MustCompile(`ag([xyz]):(-?\d+\.\d+)`)
	barometerPat = regexp.MustCompile(`baro:(-?\d+\.\d+)`)
	tofPat       = regexp.MustCompile(`tof:(\d+)`)
	motorTimePat = regexp.MustCompile(`time:(\d+)`)
)

// Decode parses one raw telemetry line into a Record, stamping it with the
// local capture time.
func Decode(line string) Record {
	rec := Record{CapturedAt: time.Now()}

	if m := batteryPat.FindStringSubmatch(line); m != nil {
		rec.Battery = atoiPtr(m[1])
	}
	if m := altitudePat.FindStringSubmatch(line); m != nil {
		rec.Altitude = atoiPtr(m[1])
	}
	if m := tempPat.FindStringSubmatch(line); m != nil {
		rec.Temperature = atoiPtr(m[1])
	}

	for _, m := range speedPat.FindAllStringSubmatch(line, -1) {
		v := atoiPtr(m[2])
		switch m[1] {
		case "x":
			rec.SpeedX = v
		case "y":
			rec.SpeedY = v
		case "z":
			rec.SpeedZ = v
		}
	}
	if rec.SpeedX != nil && rec.SpeedY != nil {
		total := math.Hypot(float64(*rec.SpeedX), float64(*rec.SpeedY))
		total = math.Round(total*100) / 100
		rec.SpeedTotal = &total
	}

	if m := attitudePat.FindStringSubmatch(line); m != nil {
		rec.Pitch = atoiPtr(m[1])
		rec.Roll = atoiPtr(m[2])
		rec.Yaw = atoiPtr(m[3])
	}

	for _, m := range accelPat.FindAllStringSubmatch(line, -1) {
		v := atofPtr(m[2])
		switch m[1] {
		case "x":
			rec.AccelX = v
		case "y":
			rec.AccelY = v
		case "z":
			rec.AccelZ = v
		}
	}

	if m := barometerPat.FindStringSubmatch(line); m != nil {
		rec.Barometer = atofPtr(m[1])
	}
	if m := tofPat.FindStringSubmatch(line); m != nil {
		rec.TimeOfFlight = atoiPtr(m[1])
	}
	if m := motorTimePat.FindStringSubmatch(line); m != nil {
		rec.MotorTime = atoiPtr(m[1])
	}

	return rec
}

func atoiPtr(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func atofPtr(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
