// Package options aggregates the flag groups of the airlink agent.
package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/airlink-io/airlink/internal/agent"
	"github.com/airlink-io/airlink/pkg/log"
	"github.com/airlink-io/airlink/pkg/options"
)

// AgentOptions composes every configurable aspect of the agent binary.
type AgentOptions struct {
	Drone  *options.DroneOptions  `json:"drone" mapstructure:"drone"`
	Flight *options.FlightOptions `json:"flight" mapstructure:"flight"`
	Safety *options.SafetyOptions `json:"safety" mapstructure:"safety"`
	Mqtt   *options.MqttOptions   `json:"mqtt" mapstructure:"mqtt"`
	Http   *options.HttpOptions   `json:"http" mapstructure:"http"`
	Log    *log.Options           `json:"log" mapstructure:"log"`
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		Drone:  options.NewDroneOptions(),
		Flight: options.NewFlightOptions(),
		Safety: options.NewSafetyOptions(),
		Mqtt:   options.NewMqttOptions(),
		Http:   options.NewHttpOptions(),
		Log:    log.NewOptions(),
	}
}

func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	o.Drone.AddFlags(fs)
	o.Flight.AddFlags(fs)
	o.Safety.AddFlags(fs)
	o.Mqtt.AddFlags(fs)
	o.Http.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *AgentOptions) Complete() error {
	return nil
}

func (o *AgentOptions) Validate() error {
	var errs []error

	errs = append(errs, o.Drone.Validate()...)
	errs = append(errs, o.Flight.Validate()...)
	errs = append(errs, o.Safety.Validate()...)
	errs = append(errs, o.Mqtt.Validate()...)
	errs = append(errs, o.Http.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	return errors.Join(errs...)
}

// Config builds the runtime configuration consumed by the agent.
func (o *AgentOptions) Config() *agent.Config {
	return &agent.Config{
		Drone:  o.Drone,
		Flight: o.Flight,
		Safety: o.Safety,
		Mqtt:   o.Mqtt,
		Http:   o.Http,
	}
}
