package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// RelayConfig holds configuration for the NATS relay.
type RelayConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		URL:           nats.DefaultURL,
		Subject:       "scoreboard.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Relay bridges a LocalBus to other server instances over NATS, so viewers
// connected to different processes sharing one remote file stay consistent.
type Relay struct {
	bus      *LocalBus
	nc       *nats.Conn
	sub      *nats.Subscription
	local    *Subscription
	subject  string
	instance string
}

func NewRelay(bus *LocalBus, cfg RelayConfig) (*Relay, error) {
	opts := []nats.Option{
		nats.Name("scoreboard"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	r := &Relay{
		bus:      bus,
		nc:       nc,
		subject:  cfg.Subject,
		instance: uuid.NewString()[:8],
	}

	r.sub, err = nc.Subscribe(cfg.Subject, r.receive)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}

	r.local = bus.Subscribe(64)

	log.Info().
		Str("subject", cfg.Subject).
		Str("instance", r.instance).
		Msg("broadcast relay connected")

	return r, nil
}

// Run forwards locally published events until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	defer r.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-r.local.C:
			if !ok {
				return
			}
			if !r.forward(e) {
				continue
			}

			data, err := r.encode(e)
			if err != nil {
				log.Error().Err(err).Msg("failed to encode relayed event")
				continue
			}

			if err := r.nc.Publish(r.subject, data); err != nil {
				log.Error().Err(err).Str("topic", string(e.Topic)).Msg("failed to relay event")
			}
		}
	}
}

func (r *Relay) Close() {
	r.local.Close()
	_ = r.sub.Unsubscribe()
	r.nc.Close()
}

func (r *Relay) receive(msg *nats.Msg) {
	e, ok := r.decode(msg.Data)
	if !ok {
		return
	}

	log.Debug().Str("topic", string(e.Topic)).Str("origin", e.Origin).Msg("relayed event received")

	r.bus.Publish(e)
}

// forward reports whether e originated in this process.
func (r *Relay) forward(e Event) bool {
	return e.Origin == ""
}

func (r *Relay) encode(e Event) ([]byte, error) {
	e.Origin = r.instance

	return json.Marshal(e)
}

// decode drops malformed events and this instance's own echoes.
func (r *Relay) decode(data []byte) (Event, bool) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		log.Warn().Err(err).Msg("dropping malformed relayed event")
		return Event{}, false
	}

	if e.Origin == "" || e.Origin == r.instance || !e.Topic.Valid() {
		return Event{}, false
	}

	return e, true
}
