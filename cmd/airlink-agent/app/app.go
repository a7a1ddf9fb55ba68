// Package app builds the airlink-agent command line application.
package app

import (
	"context"

	"github.com/airlink-io/airlink/cmd/airlink-agent/app/options"
	"github.com/airlink-io/airlink/pkg/app"
	"github.com/airlink-io/airlink/pkg/log"
)

const description = `The airlink agent maintains the UDP command and telemetry link to a single
WiFi-controlled drone. It validates and issues flight commands, decodes the
telemetry stream, enforces the safety policy (battery, flight time, link
loss, altitude), and optionally publishes events over MQTT while serving a
local status and metrics API.`

// NewApp creates the airlink-agent application.
func NewApp(name string) *app.App {
	opts := options.NewAgentOptions()

	return app.NewApp(name, "Flight link agent for WiFi drones",
		app.WithDescription(description),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.AgentOptions) app.RunFunc {
	return func(ctx context.Context) error {
		log.Init(opts.Log)

		a, err := opts.Config().New()
		if err != nil {
			return err
		}
		return a.Run(ctx)
	}
}
