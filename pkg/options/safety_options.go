package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SafetyOptions)(nil)

// SafetyOptions contains thresholds and policies for the safety monitor.
type SafetyOptions struct {
	// WarnBattery is the battery percentage at which a Warning is raised.
	WarnBattery int `json:"warn-battery" mapstructure:"warn-battery"`

	// CriticalBattery is the percentage at which an auto-land is forced.
	CriticalBattery int `json:"critical-battery" mapstructure:"critical-battery"`

	// EmergencyBattery is the percentage at which motors are cut outright.
	EmergencyBattery int `json:"emergency-battery" mapstructure:"emergency-battery"`

	// MaxFlightTime is the hard flight duration limit.
	MaxFlightTime time.Duration `json:"max-flight-time" mapstructure:"max-flight-time"`

	// ConnTimeout is the telemetry silence threshold; silence beyond twice
	// this value while flying counts as a lost link.
	ConnTimeout time.Duration `json:"conn-timeout" mapstructure:"conn-timeout"`

	// LossAction selects what to do on a lost link while flying:
	// "land" forces an auto-land, "hover" holds position.
	LossAction string `json:"loss-action" mapstructure:"loss-action"`
}

// NewSafetyOptions creates a SafetyOptions object with default parameters.
func NewSafetyOptions() *SafetyOptions {
	return &SafetyOptions{
		WarnBattery:      20,
		CriticalBattery:  10,
		EmergencyBattery: 5,
		MaxFlightTime:    1200 * time.Second,
		ConnTimeout:      5 * time.Second,
		LossAction:       "land",
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *SafetyOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.EmergencyBattery > o.CriticalBattery {
		errs = append(errs, fmt.Errorf("emergency battery threshold %d must not exceed critical threshold %d", o.EmergencyBattery, o.CriticalBattery))
	}
	if o.CriticalBattery > o.WarnBattery {
		errs = append(errs, fmt.Errorf("critical battery threshold %d must not exceed warning threshold %d", o.CriticalBattery, o.WarnBattery))
	}
	if o.MaxFlightTime <= 0 {
		errs = append(errs, fmt.Errorf("max flight time must be positive"))
	}
	if o.LossAction != "land" && o.LossAction != "hover" {
		errs = append(errs, fmt.Errorf("loss action must be 'land' or 'hover', got %q", o.LossAction))
	}

	return errs
}

// AddFlags adds flags for SafetyOptions to the specified FlagSet.
func (o *SafetyOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.WarnBattery, "safety.warn-battery", o.WarnBattery, "Battery percentage at which a warning is raised.")
	fs.IntVar(&o.CriticalBattery, "safety.critical-battery", o.CriticalBattery, "Battery percentage at which an auto-land is forced.")
	fs.IntVar(&o.EmergencyBattery, "safety.emergency-battery", o.EmergencyBattery, "Battery percentage at which motors are cut outright.")
	fs.DurationVar(&o.MaxFlightTime, "safety.max-flight-time", o.MaxFlightTime, "Hard flight duration limit.")
	fs.DurationVar(&o.ConnTimeout, "safety.conn-timeout", o.ConnTimeout, "Telemetry silence threshold for the link check.")
	fs.StringVar(&o.LossAction, "safety.loss-action", o.LossAction, "Action on lost link while flying: 'land' or 'hover'.")
}
