package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/internal/drone/safety"
	"github.com/airlink-io/airlink/internal/drone/telemetry"
	"github.com/airlink-io/airlink/pkg/log"
	"github.com/airlink-io/airlink/pkg/mqtt"
	"github.com/airlink-io/airlink/pkg/mqtt/topic"
)

// Outbound payload envelopes. Every message names the vehicle so fleet
// consumers can subscribe with a wildcard and still attribute records.
type telemetryPayload struct {
	DroneID string           `json:"droneId"`
	Record  telemetry.Record `json:"record"`
}

type safetyPayload struct {
	DroneID string       `json:"droneId"`
	Event   safety.Event `json:"event"`
}

type connectionPayload struct {
	DroneID   string    `json:"droneId"`
	Connected bool      `json:"connected"`
	State     string    `json:"state"`
	Time      time.Time `json:"time,omitzero"`
}

// publisher forwards telemetry records, safety events and link-state
// transitions to the MQTT broker. It is purely outward; the agent accepts no
// commands over MQTT.
type publisher struct {
	client  mqtt.Client
	topics  *topic.Builder
	droneID string
	records <-chan telemetry.Record
	events  <-chan safety.Event
	states  <-chan drone.ConnState
	log     log.Logger
}

// Run pumps the subscriptions into the broker until the context is canceled.
// A graceful exit publishes a retained offline status so the will message is
// reserved for crashes.
func (p *publisher) Run(ctx context.Context) error {
	if err := p.client.Start(ctx); err != nil {
		return err
	}
	defer p.client.Disconnect(context.Background())

	for {
		select {
		case <-ctx.Done():
			p.publishOffline()
			return nil
		case rec := <-p.records:
			p.publish(ctx, p.topics.Telemetry(p.droneID), 0, false, telemetryPayload{DroneID: p.droneID, Record: rec})
		case ev := <-p.events:
			p.publish(ctx, p.topics.Safety(p.droneID), 1, false, safetyPayload{DroneID: p.droneID, Event: ev})
		case st := <-p.states:
			p.publish(ctx, p.topics.Connection(p.droneID), 1, true, connectionPayload{
				DroneID:   p.droneID,
				Connected: st.Connected(),
				State:     st.String(),
				Time:      time.Now(),
			})
		}
	}
}

func (p *publisher) publish(ctx context.Context, topic string, qos int, retain bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		p.log.Error(err, "Failed to marshal payload", "topic", topic)
		return
	}
	if err := p.client.Publish(ctx, topic, qos, retain, b); err != nil {
		p.log.Warn("Failed to publish", "topic", topic, "err", err)
	}
}

func (p *publisher) publishOffline() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.publish(ctx, p.topics.Connection(p.droneID), 1, true, connectionPayload{
		DroneID:   p.droneID,
		Connected: false,
		State:     "agent-offline",
		Time:      time.Now(),
	})
}
