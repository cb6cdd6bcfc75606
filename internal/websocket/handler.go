package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
)

// ChartLookup reports whether a chart id is registered
type ChartLookup func(chartID string) bool

// Handler upgrades /ws/embed/{chartId} requests and attaches the connection
// to the hub
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	opts     ClientOptions
	known    ChartLookup
	logger   *slog.Logger
}

// NewHandler builds the embed bridge endpoint. Origins are checked against
// security.AllowedOrigins; "*" allows any.
func NewHandler(hub *Hub, cfg *config.Config, known ChartLookup, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "websocket.handler")

	h := &Handler{
		hub: hub,
		opts: ClientOptions{
			PingPeriod:     cfg.WebSocket.PingPeriod,
			PongWait:       cfg.WebSocket.PongWait,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			FrameInterval:  cfg.Embed.FrameInterval,
		},
		known:  known,
		logger: logger,
	}
	origins := cfg.Security.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, origins)
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.WarnContext(r.Context(), "websocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chartID := chi.URLParam(r, "chartId")
	if h.known != nil && !h.known(chartID) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "unknown chart", "chart_id": chartID})
		return
	}
	role, ok := ParseRole(r.URL.Query().Get("role"))
	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "role must be surface or host"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		return
	}

	opts := h.opts
	opts.TraceID = infrastructure.GetTraceID(ctx)
	client := NewClient(h.hub, NewConnectionWrapper(conn), chartID, role, opts, h.logger)
	client.Serve()
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
			return true
		}
	}
	return false
}
