package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/scoreboard/document"
	"github.com/Seednode/scoreboard/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Handler receives server frames. App implements it.
type Handler interface {
	HandleStart(message string)
	HandleEnd(message string)
	HandleError(message string)
	HandleLatest(doc document.Document)
	HandleSaveComplete()
}

// Conn is a websocket Transport. Writes are serialized; a single goroutine
// reads inside Run.
type Conn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	ws.SetReadLimit(maxMessageSize)

	return &Conn{ws: ws, done: make(chan struct{})}, nil
}

func (c *Conn) RequestLatest() error {
	return c.send(protocol.RequestLatest, nil)
}

func (c *Conn) Save(doc document.Document, message string) error {
	return c.send(protocol.SaveData, protocol.SavePayload{Data: doc, Message: message})
}

func (c *Conn) Clear() error {
	return c.send(protocol.ClearData, nil)
}

func (c *Conn) send(event string, payload any) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err = c.ws.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()

	if err != nil {
		_ = c.Close()

		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}

	return nil
}

// Run dispatches frames to h until the connection drops or ctx is done.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	defer c.Close()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed frame")

			continue
		}

		dispatch(env, h)
	}
}

// Run attaches conn to the App, loads the current document and processes
// server frames until the connection ends. The App is local-only afterwards.
func (a *App) Run(ctx context.Context, conn *Conn) error {
	a.Attach(conn)
	defer a.Detach()

	a.RequestLatest()

	return conn.Run(ctx, a)
}

// Close is safe to call more than once and from any goroutine.
func (c *Conn) Close() error {
	var err error

	c.closeOnce.Do(func() {
		close(c.done)

		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))

		err = c.ws.Close()
	})

	return err
}

func dispatch(env protocol.Envelope, h Handler) {
	switch env.Event {
	case protocol.OperationStart:
		h.HandleStart(operationMessage(env))
	case protocol.OperationEnd:
		h.HandleEnd(operationMessage(env))
	case protocol.OperationError:
		h.HandleError(operationMessage(env))
	case protocol.LatestData:
		var doc document.Document
		if err := env.DecodeData(&doc); err != nil {
			log.Debug().Err(err).Msg("treating unreadable document as empty")
			doc = document.Document{}
		}

		h.HandleLatest(doc)
	case protocol.SaveComplete:
		h.HandleSaveComplete()
	default:
		log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

func operationMessage(env protocol.Envelope) string {
	var p protocol.OperationPayload
	_ = env.DecodeData(&p)

	return p.Message
}
