package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second

	defaultWSRate = 15 // snapshots per second
	maxWSRate     = 60
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	// Stream consumers are authenticated by the relay key, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket pushes the latest snapshot to the client at a fixed rate
// (?rate=N per second). Frames that have not changed since the last push are
// skipped.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.relayOnly(w, r) {
		return
	}

	current := atomic.AddInt32(&s.wsConns, 1)
	if current > maxWSConns {
		atomic.AddInt32(&s.wsConns, -1)
		http.Error(w, "too many websocket connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.wsConns, -1)

	rate := defaultWSRate
	if v, err := strconv.Atoi(r.URL.Query().Get("rate")); err == nil && v > 0 && v <= maxWSRate {
		rate = v
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	slog.Info("websocket client connected", "remote", r.RemoteAddr, "rate", rate)

	// Reader: only control frames are expected; it notices disconnects.
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	frames := time.NewTicker(time.Second / time.Duration(rate))
	defer frames.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	var lastTick uint64
	sent := false
	for {
		select {
		case <-frames.C:
			snap := s.Sim.Latest()
			if snap == nil || (sent && snap.Tick == lastTick) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				slog.Info("websocket write failed", "error", err)
				return
			}
			lastTick, sent = snap.Tick, true
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			slog.Info("websocket client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}
