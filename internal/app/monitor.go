// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/config"
	"github.com/mayele-labs/mems_logger/internal/telemetry"
)

const (
	wsWriteWait    = 5 * time.Second
	wsClientBuffer = 8
	shutdownGrace  = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Monitor keeps the latest published sample and pushes every new one to
// connected websocket clients.
type Monitor struct {
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	last    telemetry.Payload
	have    bool
	clients map[chan telemetry.Payload]struct{}
}

// NewMonitor returns an empty monitor.
func NewMonitor(logger *zap.SugaredLogger) *Monitor {
	return &Monitor{
		logger:  logger,
		clients: make(map[chan telemetry.Payload]struct{}),
	}
}

// Update records p as the latest sample and fans it out. Slow clients miss
// samples rather than block the subscriber.
func (m *Monitor) Update(p telemetry.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = p
	m.have = true
	for ch := range m.clients {
		select {
		case ch <- p:
		default:
			m.logger.Debug("websocket client lagging, sample dropped")
		}
	}
}

// Latest returns the most recent sample; ok is false until one arrives.
func (m *Monitor) Latest() (p telemetry.Payload, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.have
}

// Handler serves GET /api/sample and the /ws stream.
func (m *Monitor) Handler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), m.logRequests())

	r.GET("/api/sample", m.handleSample)
	r.GET("/ws", m.handleWS)
	return r
}

func (m *Monitor) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.logger.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

func (m *Monitor) handleSample(c *gin.Context) {
	p, ok := m.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "no data yet"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (m *Monitor) register() chan telemetry.Payload {
	ch := make(chan telemetry.Payload, wsClientBuffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.have {
		ch <- m.last
	}
	m.clients[ch] = struct{}{}
	return ch
}

func (m *Monitor) unregister(ch chan telemetry.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, ch)
}

func (m *Monitor) handleWS(c *gin.Context) {
	// Registered before the handshake completes so no sample published after
	// the client connects is missed.
	send := m.register()
	defer m.unregister(send)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Warnw("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					m.logger.Warnw("websocket error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case p := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(p); err != nil {
				m.logger.Debugw("websocket write error", "error", err)
				return
			}
		}
	}
}

// RunMonitor subscribes to the sample topic and serves the monitor web view
// until ctx is done.
func RunMonitor(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	if cfg.MQTTBroker == "" {
		return errors.New("monitor: MQTT_BROKER is not configured")
	}
	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientIDMonitor, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	m := NewMonitor(logger)
	if err := telemetry.Subscribe(client, cfg.TopicSample, logger, m.Update); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("web server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	logger.Info("monitor stopped")
	return nil
}
