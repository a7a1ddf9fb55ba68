package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*FlightOptions)(nil)

// FlightOptions contains validated flight envelope parameters.
type FlightOptions struct {
	// MaxAltitude is the altitude ceiling in centimeters; vertical moves
	// that would exceed it are rejected before any network call.
	MaxAltitude int `json:"max-altitude" mapstructure:"max-altitude"`

	// MinTakeoffBattery is the battery percentage below which takeoff is refused.
	MinTakeoffBattery int `json:"min-takeoff-battery" mapstructure:"min-takeoff-battery"`

	// DefaultSpeed is the speed applied during initialization.
	DefaultSpeed int `json:"default-speed" mapstructure:"default-speed"`

	// StabilizeDelay is the settle interval after an acknowledged takeoff
	// before the vehicle is handed back to manual mode.
	StabilizeDelay time.Duration `json:"stabilize-delay" mapstructure:"stabilize-delay"`
}

// NewFlightOptions creates a FlightOptions object with default parameters.
func NewFlightOptions() *FlightOptions {
	return &FlightOptions{
		MaxAltitude:       500,
		MinTakeoffBattery: 20,
		DefaultSpeed:      50,
		StabilizeDelay:    3 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *FlightOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.MaxAltitude <= 0 {
		errs = append(errs, fmt.Errorf("max altitude must be positive"))
	}
	if o.MinTakeoffBattery < 0 || o.MinTakeoffBattery > 100 {
		errs = append(errs, fmt.Errorf("min takeoff battery %d out of range 0-100", o.MinTakeoffBattery))
	}
	if o.DefaultSpeed < 10 || o.DefaultSpeed > 100 {
		errs = append(errs, fmt.Errorf("default speed %d out of range 10-100", o.DefaultSpeed))
	}

	return errs
}

// AddFlags adds flags for FlightOptions to the specified FlagSet.
func (o *FlightOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.MaxAltitude, "flight.max-altitude", o.MaxAltitude, "Altitude ceiling in centimeters.")
	fs.IntVar(&o.MinTakeoffBattery, "flight.min-takeoff-battery", o.MinTakeoffBattery, "Battery percentage below which takeoff is refused.")
	fs.IntVar(&o.DefaultSpeed, "flight.default-speed", o.DefaultSpeed, "Speed applied during initialization.")
	fs.DurationVar(&o.StabilizeDelay, "flight.stabilize-delay", o.StabilizeDelay, "Settle interval after an acknowledged takeoff.")
}
