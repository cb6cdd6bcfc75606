package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/embed"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
)

// Role is the side of the embed a client speaks for
type Role string

const (
	// RoleSurface is the embedded chart reporting its measurements
	RoleSurface Role = "surface"
	// RoleHost is the document framing the chart, receiving heights
	RoleHost Role = "host"
)

// ParseRole validates a role query value. An empty value means host.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSurface:
		return RoleSurface, true
	case RoleHost, "":
		return RoleHost, true
	default:
		return "", false
	}
}

// Frame kinds sent besides chart-height messages
const (
	KindConnected = "connected"
	KindError     = "error"
)

// Frame is a control message sent to a client
type Frame struct {
	Kind     string `json:"kind"`
	ChartID  string `json:"chartId,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Hub relays chart-height messages from embed surfaces to the host clients
// subscribed to the same chart id
type Hub struct {
	// Host subscribers and surfaces keyed by chart id
	hosts    map[string]map[*Client]struct{}
	surfaces map[string]map[*Client]struct{}

	// Last delivered height per chart, replayed to hosts that join later
	last map[string]embed.HeightMessage

	register   chan *Client
	unregister chan *Client
	deliver    chan embed.HeightMessage
	replies    chan reply

	// Guards the maps for readers outside Run
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	quit    chan struct{}
	done    chan struct{}
	running atomic.Bool
	stop    sync.Once
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		hosts:      make(map[string]map[*Client]struct{}),
		surfaces:   make(map[string]map[*Client]struct{}),
		last:       make(map[string]embed.HeightMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan embed.HeightMessage, 64),
		replies:    make(chan reply, 16),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	if h.running.CompareAndSwap(false, true) {
		go h.Run()
	}
}

// Run is the hub's main loop. It owns every client's send channel.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.deliver:
			h.route(msg)

		case r := <-h.replies:
			if h.registered(r.client) {
				r.client.trySend(r.data)
			}
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set := h.hosts
	if c.role == RoleSurface {
		set = h.surfaces
	}
	if set[c.chartID] == nil {
		set[c.chartID] = make(map[*Client]struct{})
	}
	set[c.chartID][c] = struct{}{}
	last, replay := h.last[c.chartID]
	h.mu.Unlock()

	h.totalConnections.Add(1)
	ctx := c.context()
	infrastructure.TrackWebSocketConnection(ctx, h.metrics, string(c.role), 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", c.id),
		slog.String("chart_id", c.chartID),
		slog.String("role", string(c.role)),
		slog.String("remote_addr", c.remoteAddr))

	c.trySend(encodeFrame(Frame{Kind: KindConnected, ChartID: c.chartID, ClientID: c.id, Role: c.role}))
	if replay && c.role == RoleHost {
		c.trySend(last.Encode())
	}
}

// reply is a frame addressed to a single client
type reply struct {
	client *Client
	data   []byte
}

func (h *Hub) registered(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.hosts
	if c.role == RoleSurface {
		set = h.surfaces
	}
	_, ok := set[c.chartID][c]
	return ok
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	set := h.hosts
	if c.role == RoleSurface {
		set = h.surfaces
	}
	clients, ok := set[c.chartID]
	if ok {
		_, ok = clients[c]
	}
	if ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(set, c.chartID)
		}
		close(c.send)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	ctx := c.context()
	infrastructure.TrackWebSocketConnection(ctx, h.metrics, string(c.role), -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", c.id),
		slog.String("chart_id", c.chartID),
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

func (h *Hub) route(msg embed.HeightMessage) {
	data := msg.Encode()

	h.mu.Lock()
	h.last[msg.ChartID] = msg
	hosts := make([]*Client, 0, len(h.hosts[msg.ChartID]))
	for c := range h.hosts[msg.ChartID] {
		hosts = append(hosts, c)
	}
	h.mu.Unlock()

	for _, c := range hosts {
		if c.trySend(data) {
			h.messagesSent.Add(1)
			continue
		}
		// host is not draining its buffer, drop it
		h.messagesDropped.Add(1)
		h.logger.WarnContext(c.context(), "host send buffer full, disconnecting",
			slog.String("client_id", c.id),
			slog.String("chart_id", c.chartID))
		h.remove(c)
	}

	h.logger.Debug("height relayed",
		slog.String("chart_id", msg.ChartID),
		slog.Int("height", msg.Height),
		slog.Int("hosts", len(hosts)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range []map[string]map[*Client]struct{}{h.hosts, h.surfaces} {
		for id, clients := range set {
			for c := range clients {
				close(c.send)
			}
			delete(set, id)
		}
	}
}

// Register adds a client to the hub. It reports false once the hub stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Deliver queues msg for the hosts of msg.ChartID
func (h *Hub) Deliver(msg embed.HeightMessage) {
	select {
	case h.deliver <- msg:
	case <-h.quit:
	}
}

// SendTo queues data for one client. Only the hub loop writes to send
// channels, so replies from a client's read pump go through here.
func (h *Hub) SendTo(c *Client, data []byte) {
	select {
	case h.replies <- reply{client: c, data: data}:
	case <-h.quit:
	}
}

// Stop ends the hub loop and closes every client's send channel
func (h *Hub) Stop() {
	h.stop.Do(func() {
		close(h.quit)
		if h.running.Load() {
			<-h.done
		}
	})
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	hosts, surfaces := 0, 0
	for _, set := range h.hosts {
		hosts += len(set)
	}
	for _, set := range h.surfaces {
		surfaces += len(set)
	}
	charts := len(h.last)
	h.mu.RUnlock()

	return map[string]interface{}{
		"hosts":             hosts,
		"surfaces":          surfaces,
		"charts_reported":   charts,
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}

func encodeFrame(f Frame) []byte {
	data, _ := json.Marshal(f)
	return data
}

// contextFor attaches the client's trace id for log correlation
func contextFor(traceID string) context.Context {
	ctx := context.Background()
	if traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}
	return ctx
}
