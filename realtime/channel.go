package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
)

// Handler receives the raw payload for one change event.
type Handler func(payload json.RawMessage)

// Topic builds the `scope:entity:id` convention used by the backend, the
// id segment is optional.
func Topic(scope, entity, id string) string {
	if id == "" {
		return fmt.Sprintf("%s:%s", scope, entity)
	}
	return fmt.Sprintf("%s:%s:%s", scope, entity, id)
}

// ChangeEvent builds the `entity_action` event name, e.g. "todos_insert".
func ChangeEvent(entity, action string) string {
	return fmt.Sprintf("%s_%s", strings.ToLower(entity), strings.ToLower(action))
}

// Channel is one topic subscription. Handlers are registered per event
// name, with "*" matching everything.
type Channel struct {
	client *Client
	topic  string

	mu       sync.Mutex
	joined   bool
	handlers map[string][]Handler
}

func newChannel(client *Client, topic string) *Channel {
	return &Channel{
		client:   client,
		topic:    topic,
		handlers: map[string][]Handler{},
	}
}

func (ch *Channel) Topic() string { return ch.topic }

func (ch *Channel) Joined() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.joined
}

// On registers a handler for an event name. Registration is allowed before
// and after Subscribe.
func (ch *Channel) On(event string, handler Handler) *Channel {
	if handler == nil {
		return ch
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.handlers[event] = append(ch.handlers[event], handler)
	return ch
}

// Subscribe joins the topic on the wire.
func (ch *Channel) Subscribe() error {
	ch.mu.Lock()
	if ch.joined {
		ch.mu.Unlock()
		return nil
	}
	ch.mu.Unlock()

	err := ch.client.send(Message{
		Topic:   ch.topic,
		Event:   joinEvent,
		Payload: json.RawMessage(`{}`),
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to join "+ch.topic)
	}

	ch.mu.Lock()
	ch.joined = true
	ch.mu.Unlock()

	return nil
}

// Unsubscribe leaves the topic. Handlers stay registered so a later
// Subscribe picks up where it left off.
func (ch *Channel) Unsubscribe() error {
	ch.mu.Lock()
	if !ch.joined {
		ch.mu.Unlock()
		return nil
	}
	ch.mu.Unlock()

	err := ch.client.send(Message{
		Topic:   ch.topic,
		Event:   leaveEvent,
		Payload: json.RawMessage(`{}`),
	})

	ch.markLeft()

	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "failed to leave "+ch.topic)
	}
	return nil
}

func (ch *Channel) markLeft() {
	ch.mu.Lock()
	ch.joined = false
	ch.mu.Unlock()
}

func (ch *Channel) deliver(msg Message) {
	ch.mu.Lock()
	if !ch.joined {
		ch.mu.Unlock()
		return
	}
	handlers := append([]Handler{}, ch.handlers[msg.Event]...)
	handlers = append(handlers, ch.handlers["*"]...)
	ch.mu.Unlock()

	for _, handler := range handlers {
		handler(msg.Payload)
	}
}
