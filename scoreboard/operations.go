package scoreboard

import (
	"github.com/rs/zerolog/log"

	"github.com/Seednode/scoreboard/broadcast"
	"github.com/Seednode/scoreboard/document"
	"github.com/Seednode/scoreboard/protocol"
)

const defaultSaveMessage = "Update score-tracker"

// Every operation announces Start to all viewers, then either End or Error.
// There is no retry; the next viewer action starts a fresh attempt.

func (h *Hub) requestLatest(c *Client) {
	h.publish(broadcast.TopicStart, "Reading data...")

	content, revision, err := h.store.ReadDocument(h.ctx)
	if err != nil {
		h.fail("read", err)
		return
	}

	doc := document.Parse(content)

	frame, err := protocol.Encode(protocol.LatestData, doc)
	if err != nil {
		h.fail("read", err)
		return
	}

	h.unicast(c, frame)

	log.Debug().
		Str("connection_id", c.id).
		Str("revision", revision).
		Int("players", len(doc)).
		Msg("latest data sent")

	h.publish(broadcast.TopicEnd, "Done")
}

func (h *Hub) save(doc document.Document, message string) {
	if message == "" {
		message = defaultSaveMessage
	}

	h.publish(broadcast.TopicStart, "Saving data...")

	if !h.write(doc.Sanitize(), message) {
		return
	}

	h.publish(broadcast.TopicInvalidate, "")
	h.publish(broadcast.TopicEnd, "Saved")
}

func (h *Hub) clear() {
	h.publish(broadcast.TopicStart, "Clearing data...")

	if !h.write(document.Document{}, "Clear data") {
		return
	}

	h.publish(broadcast.TopicInvalidate, "")
	h.publish(broadcast.TopicEnd, "Cleared")
}

// reject reports a command that could not start, so the sender's busy
// state is released like any other failed operation.
func (h *Hub) reject(op, start string, err error) {
	h.publish(broadcast.TopicStart, start)
	h.fail(op, err)
}

func (h *Hub) write(doc document.Document, message string) bool {
	content, err := doc.Encode()
	if err != nil {
		h.fail("write", err)
		return false
	}

	revision, err := h.store.WriteDocument(h.ctx, content, message)
	if err != nil {
		h.fail("write", err)
		return false
	}

	log.Info().
		Str("revision", revision).
		Str("message", message).
		Int("players", len(doc)).
		Msg("document saved")

	return true
}

func (h *Hub) publish(topic broadcast.Topic, message string) {
	h.bus.Publish(broadcast.Event{Topic: topic, Message: message})
}

func (h *Hub) fail(op string, err error) {
	log.Error().Err(err).Str("operation", op).Msg("operation failed")

	h.publish(broadcast.TopicError, err.Error())
}
