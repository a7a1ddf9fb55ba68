package topic

import (
	"fmt"
)

// Constants defining the standard topic segments. These act as the protocol
// contract between the agent and any ground-station consumers; changing them
// breaks existing subscribers.
const (
	// SuffixTelemetry carries each decoded telemetry record.
	// Structure: {root}/telemetry/{droneID}
	SuffixTelemetry = "telemetry"

	// SuffixSafety carries safety events raised by the policy loop.
	// Structure: {root}/safety/{droneID}
	SuffixSafety = "safety"

	// SuffixConnection carries retained link status updates.
	// Structure: {root}/connection/{droneID}
	SuffixConnection = "connection"
)

// Builder encapsulates the construction of MQTT topic strings so every
// component derives them from one place.
type Builder struct {
	// root is the base namespace for all topics (e.g. "airlink/v1").
	root string
}

// NewBuilder creates a Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Telemetry returns the topic for a vehicle's telemetry stream.
func (b *Builder) Telemetry(droneID string) string {
	return b.build(SuffixTelemetry, droneID)
}

// TelemetryWildcard returns the filter matching telemetry from all vehicles.
func (b *Builder) TelemetryWildcard() string {
	return b.build(SuffixTelemetry, Wildcard)
}

// Safety returns the topic for a vehicle's safety events.
func (b *Builder) Safety(droneID string) string {
	return b.build(SuffixSafety, droneID)
}

// SafetyWildcard returns the filter matching safety events from all vehicles.
func (b *Builder) SafetyWildcard() string {
	return b.build(SuffixSafety, Wildcard)
}

// Connection returns the topic for a vehicle's retained link status.
func (b *Builder) Connection(droneID string) string {
	return b.build(SuffixConnection, droneID)
}

// build constructs the final topic string: {root}/{suffix}/{identifier}.
func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
