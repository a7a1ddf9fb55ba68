package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*DroneOptions)(nil)

// DroneOptions contains the network parameters of the vehicle link.
type DroneOptions struct {
	// DroneID identifies this vehicle in outward topics and APIs.
	DroneID string `json:"drone-id" mapstructure:"drone-id"`

	// Addr is the IP address of the drone on the tethered WiFi network.
	Addr string `json:"addr" mapstructure:"addr"`

	// CommandPort is the UDP port the drone listens on for text commands.
	CommandPort int `json:"command-port" mapstructure:"command-port"`

	// StatePort is the local UDP port bound for inbound telemetry.
	StatePort int `json:"state-port" mapstructure:"state-port"`

	// ConnectTimeout bounds the initial handshake round-trip.
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`

	// HeartbeatInterval is the period of the link watchdog. Telemetry
	// silence longer than twice this interval triggers a probe.
	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`
}

// NewDroneOptions creates a DroneOptions object with default parameters.
func NewDroneOptions() *DroneOptions {
	return &DroneOptions{
		DroneID:           "drone-001",
		Addr:              "192.168.1.1",
		CommandPort:       8889,
		StatePort:         8890,
		ConnectTimeout:    5 * time.Second,
		HeartbeatInterval: 5 * time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *DroneOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("drone address is required"))
	}
	if err := ValidatePort(o.CommandPort); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePort(o.StatePort); err != nil {
		errs = append(errs, err)
	}
	if o.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat interval must be positive"))
	}

	return errs
}

// AddFlags adds flags for DroneOptions to the specified FlagSet.
func (o *DroneOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.DroneID, "drone.id", o.DroneID, "Identifier of the vehicle in outward topics and APIs.")
	fs.StringVar(&o.Addr, "drone.addr", o.Addr, "IP address of the drone on the tethered WiFi network.")
	fs.IntVar(&o.CommandPort, "drone.command-port", o.CommandPort, "UDP port the drone listens on for commands.")
	fs.IntVar(&o.StatePort, "drone.state-port", o.StatePort, "Local UDP port bound for inbound telemetry.")
	fs.DurationVar(&o.ConnectTimeout, "drone.connect-timeout", o.ConnectTimeout, "Timeout for the initial handshake.")
	fs.DurationVar(&o.HeartbeatInterval, "drone.heartbeat-interval", o.HeartbeatInterval, "Period of the link watchdog.")
}
