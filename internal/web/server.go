// Package web serves the detection dashboard over HTTP.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sweeney/detection-dashboard/internal/metrics"
	"github.com/sweeney/detection-dashboard/internal/status"
)

// Toggle requests allowed per client IP per minute.
const ToggleRateLimit = 20

// DefaultToggleTimeout bounds how long a toggle request waits for the run loop.
const DefaultToggleTimeout = 2 * time.Second

// Controller accepts start/stop requests on behalf of the run loop.
// RequestDetection returns once the request has been handed over, or with
// an error if ctx ends first.
type Controller interface {
	RequestDetection(ctx context.Context, enabled bool) error
}

// Server serves the dashboard page, status JSON, live feed and metrics.
type Server struct {
	log           logs.Log
	httpServer    *http.Server
	tracker       *status.Tracker
	ctrl          Controller
	hub           *Hub
	refresh       time.Duration
	toggleTimeout time.Duration
	wsUpgrader    websocket.Upgrader
}

// New creates a Server that reads state from tracker and forwards start/stop
// requests to ctrl. m may be nil, in which case /metrics is not served.
func New(log logs.Log, addr string, tracker *status.Tracker, ctrl Controller, m *metrics.Metrics, refresh time.Duration) *Server {
	s := &Server{
		log:           log,
		tracker:       tracker,
		ctrl:          ctrl,
		hub:           NewHub(log),
		refresh:       refresh,
		toggleTimeout: DefaultToggleTimeout,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	router := httprouter.New()
	router.GET("/", s.httpIndex)
	router.GET("/index.html", s.httpIndex)
	router.GET("/index.json", s.httpJSON)
	router.GET("/stats", s.httpJSON)
	router.GET("/ws", s.httpLive)

	limited := httprate.Limit(ToggleRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	router.POST("/toggle_detection/:state", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.httpToggle(w, r, params.ByName("state"))
		})).ServeHTTP(w, r)
	})

	if m != nil {
		router.Handler("GET", "/metrics", m.Handler())
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RunLive runs the websocket hub and pushes the status JSON to every live
// client once per refresh interval. It blocks until ctx is done.
func (s *Server) RunLive(ctx context.Context) {
	go s.hub.Run(ctx)

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.Clients() == 0 {
				continue
			}
			s.hub.Broadcast(status.FormatJSON(s.tracker.Snapshot()))
		}
	}
}

func (s *Server) httpIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.Errorf("Rendering dashboard: %v", err)
	}
}

func (s *Server) httpJSON(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// ToggleResponse is returned by the toggle endpoint.
type ToggleResponse struct {
	Success   bool `json:"success"`
	Detecting bool `json:"is_detecting"`
}

func parseToggleState(state string) (enabled, ok bool) {
	switch state {
	case "true", "start":
		return true, true
	case "false", "stop":
		return false, true
	}
	return false, false
}

func (s *Server) httpToggle(w http.ResponseWriter, r *http.Request, state string) {
	enabled, ok := parseToggleState(state)
	if !ok {
		http.Error(w, "state must be one of true, false, start, stop", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.toggleTimeout)
	defer cancel()
	if err := s.ctrl.RequestDetection(ctx, enabled); err != nil {
		s.log.Warnf("Toggle detection to %v not accepted: %v", enabled, err)
		http.Error(w, "detection loop unavailable", http.StatusServiceUnavailable)
		return
	}

	s.log.Infof("Detection %s requested by %v", stateWord(enabled), r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ToggleResponse{Success: true, Detecting: enabled})
}

func (s *Server) httpLive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("Live feed upgrade failed: %v", err)
		return
	}

	// Send the current state right away; the hub owns all writes after Register.
	c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteMessage(websocket.TextMessage, status.FormatJSON(s.tracker.Snapshot())); err != nil {
		c.Close()
		return
	}
	if !s.hub.Register(c) {
		c.Close()
		return
	}

	// Drain client messages so close frames and pings are processed.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.Unregister(c)
}

func stateWord(enabled bool) string {
	if enabled {
		return "start"
	}
	return "stop"
}
