// Package realtime implements a small phoenix style channel client for the
// backend's realtime endpoint. Topics follow the `scope:entity:id`
// convention and change events arrive as `entity_action` payloads.
//
// The client is deliberately dumb about failures: a dropped socket closes
// every channel and callers decide whether to dial again.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/gorilla/websocket"
)

const (
	joinEvent      = "phx_join"
	leaveEvent     = "phx_leave"
	replyEvent     = "phx_reply"
	heartbeatTopic = "phoenix"
	heartbeatEvent = "heartbeat"

	defaultHeartbeat = 30 * time.Second
)

// Message is the phoenix wire frame.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// Logger is the minimal logging surface the client needs.
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type Client struct {
	endpoint  string
	apiKey    string
	heartbeat time.Duration
	logger    Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	channels map[string]*Channel
	nextRef  int
	done     chan struct{}
	closed   bool
}

type Option func(*Client)

func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithHeartbeat(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.heartbeat = interval
		}
	}
}

// NewClient builds a client for the backend's websocket endpoint. The
// backend URL is the same HTTP base the rest of the template uses, the
// scheme is rewritten here.
func NewClient(backendURL, apiKey string, opts ...Option) (*Client, error) {
	endpoint, err := websocketEndpoint(backendURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		heartbeat: defaultHeartbeat,
		logger:    noopLogger{},
		channels:  map[string]*Channel{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func websocketEndpoint(backendURL string) (string, error) {
	parsed, err := url.Parse(backendURL)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryBadInput, "invalid backend URL")
	}

	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", errors.New(
			fmt.Sprintf("unsupported backend scheme %q", parsed.Scheme),
			errors.CategoryBadInput,
		)
	}

	parsed.Path = "/realtime/v1/websocket"
	return parsed.String(), nil
}

// Connect dials the socket and starts the read and heartbeat loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("realtime client is closed", errors.CategoryOperation)
	}
	if c.conn != nil {
		return nil
	}

	endpoint := c.endpoint
	if c.apiKey != "" {
		endpoint = endpoint + "?apikey=" + url.QueryEscape(c.apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "realtime dial failed")
	}

	c.conn = conn
	c.done = make(chan struct{})

	go c.readLoop(conn, c.done)
	go c.heartbeatLoop(c.done)

	return nil
}

// Channel returns the channel for a topic, creating it unjoined on first
// use.
func (c *Client) Channel(topic string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.channels[topic]; ok {
		return ch
	}

	ch := newChannel(c, topic)
	c.channels[topic] = ch
	return ch
}

// Close tears the socket down and marks every channel left. The client is
// not reusable afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.teardownLocked()
}

func (c *Client) teardownLocked() error {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	for _, ch := range c.channels {
		ch.markLeft()
	}

	return err
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("realtime client is not connected", errors.CategoryOperation)
	}

	c.nextRef++
	msg.Ref = strconv.Itoa(c.nextRef)

	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-done:
			default:
				c.logger.Error("realtime socket closed", "error", err)
				c.mu.Lock()
				if c.conn == conn {
					c.teardownLocked()
				}
				c.mu.Unlock()
			}
			return
		}

		if msg.Topic == heartbeatTopic || msg.Event == replyEvent {
			continue
		}

		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	c.mu.Lock()
	ch := c.channels[msg.Topic]
	c.mu.Unlock()

	if ch == nil {
		return
	}

	ch.deliver(msg)
}

func (c *Client) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := c.send(Message{
				Topic:   heartbeatTopic,
				Event:   heartbeatEvent,
				Payload: json.RawMessage(`{}`),
			})
			if err != nil {
				c.logger.Error("realtime heartbeat failed", "error", err)
				return
			}
		}
	}
}
