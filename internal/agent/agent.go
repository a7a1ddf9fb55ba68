// Package agent wires the command channel, telemetry feed, flight supervisor
// and safety monitor into one runnable unit.
package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/airlink-io/airlink/internal/api"
	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/internal/drone/flight"
	"github.com/airlink-io/airlink/internal/drone/safety"
	"github.com/airlink-io/airlink/internal/drone/telemetry"
	"github.com/airlink-io/airlink/pkg/log"
)

// Agent owns the full lifecycle of one vehicle link.
type Agent struct {
	droneID   string
	link      *drone.Channel
	feed      *telemetry.Listener
	snap      *flight.Snapshot
	flight    *flight.Supervisor
	safety    *safety.Monitor
	publisher *publisher
	api       *api.Server
	log       log.Logger
}

// Flight exposes the supervisor for embedders that script missions on top of
// a running agent.
func (a *Agent) Flight() *flight.Supervisor {
	return a.flight
}

// Run connects to the vehicle and blocks until the context is canceled or a
// component fails. The command link is always torn down on the way out.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("Starting agent", "droneId", a.droneID)

	if err := a.link.Connect(ctx); err != nil {
		return err
	}
	defer a.link.Disconnect()

	// Initialization is best effort: a vehicle that rejects the video or
	// speed defaults is still flyable.
	if err := a.flight.Initialize(ctx); err != nil {
		a.log.Warn("Vehicle initialization incomplete", "err", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.feed.Run(ctx) })
	g.Go(func() error { return a.safety.Run(ctx) })
	g.Go(func() error { return a.syncSnapshot(ctx) })

	if a.publisher != nil {
		g.Go(func() error { return a.publisher.Run(ctx) })
	}
	if a.api != nil {
		g.Go(func() error { return a.api.Start(ctx) })
	}

	err := g.Wait()
	a.log.Info("Agent stopped", "droneId", a.droneID)
	return err
}

// syncSnapshot folds telemetry records and link-state transitions into the
// shared flight snapshot.
func (a *Agent) syncSnapshot(ctx context.Context) error {
	records := a.feed.Subscribe(0)
	states := a.link.StateChanges()
	a.snap.SetConnected(a.link.State().Connected())

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-records:
			a.snap.ApplyTelemetry(rec)
		case st := <-states:
			a.snap.SetConnected(st.Connected())
		}
	}
}
