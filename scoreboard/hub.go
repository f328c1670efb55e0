/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package scoreboard coordinates viewers of the shared board: it accepts
// commands over a websocket per viewer, drives the remote store, and fans
// operation lifecycle notifications out to every connected viewer.
package scoreboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/scoreboard/broadcast"
	"github.com/Seednode/scoreboard/protocol"
)

// Store is the persistence gateway the hub writes through.
type Store interface {
	ReadDocument(ctx context.Context) ([]byte, string, error)
	WriteDocument(ctx context.Context, content []byte, message string) (string, error)
}

// Config holds configuration for viewer connections.
type Config struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1 << 20,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

type delivery struct {
	client *Client
	frame  []byte
	done   chan struct{}
}

type Hub struct {
	store    Store
	bus      broadcast.Bus
	cfg      Config
	upgrader websocket.Upgrader

	clients map[*Client]bool
	mu      sync.RWMutex

	register chan *Client
	unreg    chan *Client
	direct   chan delivery

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(store Store, bus broadcast.Bus, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		store: store,
		bus:   bus,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		direct:   make(chan delivery),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run owns the client set and fans bus events out until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	events := h.bus.Subscribe(256)
	defer events.Close()
	defer h.closeAll()
	defer h.cancel()

	log.Info().Msg("scoreboard hub started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scoreboard hub shutting down")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()

			log.Info().
				Str("connection_id", c.id).
				Int("total_connections", total).
				Msg("viewer connected")

		case c := <-h.unreg:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			total := len(h.clients)
			h.mu.Unlock()

			log.Info().
				Str("connection_id", c.id).
				Int("total_connections", total).
				Msg("viewer disconnected")

		case d := <-h.direct:
			// Anything published before the unicast was requested goes out first.
			h.drain(events.C)
			if !d.client.enqueue(d.frame) {
				log.Warn().Str("connection_id", d.client.id).Msg("dropping unicast to slow viewer")
			}
			close(d.done)

		case e, ok := <-events.C:
			if !ok {
				return
			}
			h.fanOut(e)
		}
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) drain(events <-chan broadcast.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			h.fanOut(e)
		default:
			return
		}
	}
}

func (h *Hub) fanOut(e broadcast.Event) {
	frame, err := eventFrame(e)
	if err != nil {
		log.Error().Err(err).Str("topic", string(e.Topic)).Msg("failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.enqueue(frame) {
			log.Warn().Str("connection_id", c.id).Msg("viewer send buffer full, closing connection")
			delete(h.clients, c)
			c.close()
		}
	}

	log.Debug().
		Str("topic", string(e.Topic)).
		Int("connections", len(h.clients)).
		Msg("event broadcasted")
}

// unicast hands frame to the hub loop and waits until it is queued on c.
func (h *Hub) unicast(c *Client, frame []byte) {
	d := delivery{client: c, frame: frame, done: make(chan struct{})}

	select {
	case h.direct <- d:
	case <-h.ctx.Done():
		return
	}

	select {
	case <-d.done:
	case <-h.ctx.Done():
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.close()
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

func eventFrame(e broadcast.Event) ([]byte, error) {
	switch e.Topic {
	case broadcast.TopicStart:
		return protocol.Encode(protocol.OperationStart, protocol.OperationPayload{Message: e.Message})
	case broadcast.TopicEnd:
		return protocol.Encode(protocol.OperationEnd, protocol.OperationPayload{Message: e.Message})
	case broadcast.TopicError:
		return protocol.Encode(protocol.OperationError, protocol.OperationPayload{Message: e.Message})
	default:
		return protocol.Encode(protocol.SaveComplete, protocol.SaveCompletePayload{OK: true})
	}
}

// ServeWS upgrades the request and serves one viewer until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		hub:  h,
	}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}
