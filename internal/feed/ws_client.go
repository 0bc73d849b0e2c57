// Package feed consumes the dashboard event stream over WebSocket and
// dispatches trade outcomes and regime signals to the sizing engine.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/observability"
)

// Handler receives decoded feed events. The engine implements it.
type Handler interface {
	OnTradeClosed(ctx context.Context, outcome domain.TradeOutcome) error
	OnRegimeSignal(signal domain.RegimeSignal)
}

// ClientConfig configures WebSocket client behavior.
type ClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultClientConfig returns default WebSocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client maintains a WebSocket connection to the event stream,
// reconnecting with exponential backoff on failure.
type Client struct {
	endpoint string
	config   ClientConfig
	handler  Handler
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient creates a feed client and connects to the endpoint.
func NewClient(ctx context.Context, endpoint string, handler Handler, config *ClientConfig, logger *log.Logger) (*Client, error) {
	if handler == nil {
		return nil, fmt.Errorf("feed: handler is required")
	}

	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[feed] ", log.LstdFlags)
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		handler:  handler,
		logger:   logger,
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Close closes the WebSocket connection and stops all loops.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches them, reconnecting on error.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and redials.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	observability.DefaultMetrics.FeedReconnects.Inc()
	c.logger.Printf("Reconnected to %s", c.endpoint)
}

// Feed message envelope. Data stays raw until the type is known.
type feedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type tradeClosedPayload struct {
	UserID    string  `json:"user_id"`
	Profit    float64 `json:"profit"`
	IsWin     bool    `json:"is_win"`
	Timestamp int64   `json:"timestamp"`
}

type regimePayload struct {
	Label     string  `json:"label"`
	Deviation float64 `json:"deviation"`
}

// handleMessage decodes one feed envelope and dispatches it. Malformed
// messages are counted and skipped; the stream keeps flowing.
func (c *Client) handleMessage(message []byte) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		observability.DefaultMetrics.FeedErrors.Inc()
		c.logger.Printf("Malformed feed message: %v", err)
		return
	}

	switch msg.Type {
	case "trade_closed":
		var p tradeClosedPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			observability.DefaultMetrics.FeedErrors.Inc()
			c.logger.Printf("Malformed trade_closed payload: %v", err)
			return
		}
		observability.RecordFeedMessage("trade_closed")
		outcome := domain.TradeOutcome{
			UserID:    p.UserID,
			Profit:    p.Profit,
			IsWin:     p.IsWin,
			Timestamp: p.Timestamp,
		}
		if err := c.handler.OnTradeClosed(context.Background(), outcome); err != nil {
			c.logger.Printf("Failed to apply trade outcome: %v", err)
		}

	case "regime":
		var p regimePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			observability.DefaultMetrics.FeedErrors.Inc()
			c.logger.Printf("Malformed regime payload: %v", err)
			return
		}
		observability.RecordFeedMessage("regime")
		c.handler.OnRegimeSignal(domain.RegimeSignal{
			Label:     p.Label,
			Deviation: p.Deviation,
		})

	default:
		observability.RecordFeedMessage("unknown")
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}
