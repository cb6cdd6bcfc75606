package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/embed"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer
	defaultMaxMessageSize = 4096

	sendBuffer = 32

	// Heights a surface may queue ahead of the hub; older ones are dropped
	outboxSize = 4
)

var (
	newline   = []byte{'\n'}
	space     = []byte{' '}
	heartbeat = []byte(`{"type":"heartbeat"}`)
)

// ClientOptions tune a client's pumps
type ClientOptions struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	FrameInterval  time.Duration
	TraceID        string
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	return o
}

// Client is a middleman between the websocket connection and the hub. Surface
// clients own an embed session that turns their observations into heights.
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages, closed by the hub
	send chan []byte

	id          string
	chartID     string
	role        Role
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	opts        ClientOptions

	session *embed.Session
	outbox  *embed.Queue

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewClient creates a client for chartID speaking as role
func NewClient(hub *Hub, conn Connection, chartID string, role Role, opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	opts = opts.withDefaults()
	id := uuid.New().String()

	c := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		chartID:     chartID,
		role:        role,
		traceID:     opts.TraceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		opts:        opts,
		logger: infrastructure.WithComponent(logger, "websocket.client").With(
			slog.String("client_id", id),
			slog.String("chart_id", chartID),
			slog.String("role", string(role))),
		metrics: hub.metrics,
	}

	if role == RoleSurface {
		c.outbox = embed.NewQueue(outboxSize)
		c.session = embed.NewSession(chartID, embed.NewTimerFrames(opts.FrameInterval), c.outbox)
		reporter := c.session.Reporter()
		reporter.OnReport = func(msg embed.HeightMessage) {
			infrastructure.RecordEmbedReport(context.Background(), c.metrics, msg.ChartID, "emitted")
		}
		reporter.OnSuppress = func(reason string) {
			infrastructure.RecordEmbedReport(context.Background(), c.metrics, chartID, "suppressed_"+reason)
		}
	}
	return c
}

// ID returns the client id
func (c *Client) ID() string { return c.id }

// ChartID returns the chart the client is attached to
func (c *Client) ChartID() string { return c.chartID }

// Role returns the client's role
func (c *Client) Role() Role { return c.role }

func (c *Client) context() context.Context { return contextFor(c.traceID) }

// trySend queues data without blocking. Only the hub loop calls it.
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReadPump pumps observations from the websocket connection into the session
func (c *Client) ReadPump() {
	var received int64
	defer func() {
		c.closeSession()
		c.logger.InfoContext(c.context(), "websocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", received))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.context(), "unexpected websocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		received++

		if bytes.Equal(message, heartbeat) {
			continue
		}
		if c.role != RoleSurface {
			// hosts only listen
			continue
		}
		if done := c.observe(message); done {
			return
		}
	}
}

// observe applies one surface message and reports whether the surface tore down
func (c *Client) observe(message []byte) bool {
	var obs embed.Observation
	if err := json.Unmarshal(message, &obs); err != nil {
		c.fail("malformed observation", err)
		return false
	}
	if err := c.session.Handle(obs); err != nil {
		c.fail("rejected observation", err)
		return false
	}
	return obs.Event == embed.EventTeardown
}

func (c *Client) fail(msg string, err error) {
	c.logger.DebugContext(c.context(), msg, slog.String("error", err.Error()))
	infrastructure.RecordSystemError(c.context(), c.metrics, "websocket", "bad_observation")
	c.hub.SendTo(c, encodeFrame(Frame{Kind: KindError, ChartID: c.chartID, Message: err.Error()}))
}

// forward relays queued heights to the hub until the outbox closes
func (c *Client) forward() {
	for msg := range c.outbox.Messages() {
		c.hub.Deliver(msg)
	}
}

func (c *Client) closeSession() {
	if c.session != nil {
		c.session.Close()
		c.outbox.Close()
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	var sent int64
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.context(), "websocket write pump stopped",
			slog.Int64("messages_sent", sent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "error writing message to websocket",
					slog.String("error", err.Error()))
				return
			}
			sent++

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Serve registers the client and starts its pumps
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		c.closeSession()
		c.conn.Close()
		return
	}
	if c.outbox != nil {
		go c.forward()
	}
	go c.WritePump()
	go c.ReadPump()
}
