package agent

import (
	"encoding/json"
	"fmt"

	"github.com/airlink-io/airlink/internal/api"
	"github.com/airlink-io/airlink/internal/drone"
	"github.com/airlink-io/airlink/internal/drone/flight"
	"github.com/airlink-io/airlink/internal/drone/safety"
	"github.com/airlink-io/airlink/internal/drone/telemetry"
	"github.com/airlink-io/airlink/pkg/log"
	"github.com/airlink-io/airlink/pkg/mqtt"
	"github.com/airlink-io/airlink/pkg/mqtt/topic"
	"github.com/airlink-io/airlink/pkg/options"
)

// Config is the fully validated agent configuration, produced by the
// command-line options layer.
type Config struct {
	Drone  *options.DroneOptions
	Flight *options.FlightOptions
	Safety *options.SafetyOptions
	Mqtt   *options.MqttOptions
	Http   *options.HttpOptions
}

// New assembles an Agent from the configuration. Nothing touches the network
// yet; connections are established in Agent.Run.
func (c *Config) New() (*Agent, error) {
	logger := log.WithName("agent")

	tr := drone.NewTransport(c.Drone.Addr, c.Drone.CommandPort, c.Drone.StatePort)
	link := drone.NewChannel(tr, drone.ChannelConfig{
		ConnectTimeout:    c.Drone.ConnectTimeout,
		HeartbeatInterval: c.Drone.HeartbeatInterval,
	}, logger)

	feed := telemetry.NewListener(tr, link, logger)
	snap := flight.NewSnapshot()

	sup := flight.NewSupervisor(link, snap, flight.Config{
		MaxAltitude:       c.Flight.MaxAltitude,
		MinTakeoffBattery: c.Flight.MinTakeoffBattery,
		DefaultSpeed:      c.Flight.DefaultSpeed,
		StabilizeDelay:    c.Flight.StabilizeDelay,
	}, logger)

	mon := safety.NewMonitor(sup, snap, link, safety.Config{
		WarnBattery:      c.Safety.WarnBattery,
		CriticalBattery:  c.Safety.CriticalBattery,
		EmergencyBattery: c.Safety.EmergencyBattery,
		MaxFlightTime:    c.Safety.MaxFlightTime,
		ConnTimeout:      c.Safety.ConnTimeout,
		LossAction:       c.Safety.LossAction,
		MaxAltitude:      c.Flight.MaxAltitude,
	}, logger)

	a := &Agent{
		droneID: c.Drone.DroneID,
		link:    link,
		feed:    feed,
		snap:    snap,
		flight:  sup,
		safety:  mon,
		log:     logger,
	}

	if c.Mqtt.Enabled() {
		pub, err := c.newPublisher(a, logger)
		if err != nil {
			return nil, err
		}
		a.publisher = pub
	}

	if c.Http.Enabled() {
		a.api = api.NewServer(c.Http.Addr, c.Http.Timeout, snap, mon.History(), feed, logger)
	}

	return a, nil
}

// newPublisher wires the MQTT client with a retained last-will so consumers
// learn about an ungraceful agent death from the broker itself.
func (c *Config) newPublisher(a *Agent, logger log.Logger) (*publisher, error) {
	topics := topic.NewBuilder(c.Mqtt.TopicRoot)

	clientCfg := c.Mqtt.ToClientConfig()
	if clientCfg.ClientID == "" {
		clientCfg.ClientID = "airlink-" + c.Drone.DroneID
	}

	will, err := json.Marshal(connectionPayload{
		DroneID:   c.Drone.DroneID,
		Connected: false,
		State:     "agent-offline",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal will payload: %w", err)
	}
	clientCfg.WillTopic = topics.Connection(c.Drone.DroneID)
	clientCfg.WillPayload = will
	clientCfg.WillQoS = 1
	clientCfg.WillRetain = true

	client, err := mqtt.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create mqtt client: %w", err)
	}

	return &publisher{
		client:  client,
		topics:  topics,
		droneID: c.Drone.DroneID,
		records: a.feed.Subscribe(0),
		events:  a.safety.Subscribe(0),
		states:  a.link.StateChanges(),
		log:     logger.WithName("publisher"),
	}, nil
}
