// Package devices publishes switch commands to the home device bus.
// Commands are fire-and-forget: a publish that reaches the broker
// counts as success, delivery to the device itself is the bus's job.
package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Registry publishes on/off commands for devices by id.
type Registry struct {
	conn          *nats.Conn
	subjectPrefix string
	log           zerolog.Logger
}

// NewRegistry wraps an established NATS connection. conn may be nil
// when the bus is unreachable; commands then fail with an error instead
// of panicking.
func NewRegistry(conn *nats.Conn, subjectPrefix string, log zerolog.Logger) *Registry {
	if subjectPrefix == "" {
		subjectPrefix = "home.device"
	}
	return &Registry{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		log:           log.With().Str("component", "devices").Logger(),
	}
}

type switchCommand struct {
	State string    `json:"state"` // "on" or "off"
	At    time.Time `json:"at"`
}

// TurnOn publishes an on command for the device.
func (r *Registry) TurnOn(ctx context.Context, deviceID string) error {
	return r.publish(ctx, deviceID, "on")
}

// TurnOff publishes an off command for the device.
func (r *Registry) TurnOff(ctx context.Context, deviceID string) error {
	return r.publish(ctx, deviceID, "off")
}

func (r *Registry) publish(_ context.Context, deviceID, state string) error {
	if r.conn == nil {
		return fmt.Errorf("device bus not connected")
	}
	if deviceID == "" {
		return fmt.Errorf("empty device id")
	}

	payload, err := json.Marshal(switchCommand{State: state, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal switch command: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.set", r.subjectPrefix, deviceID)
	if err := r.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	r.log.Debug().Str("device_id", deviceID).Str("state", state).Msg("switch command published")
	return nil
}
