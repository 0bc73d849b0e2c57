package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"position-sizing-engine/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// captureHandler collects dispatched events for assertions.
type captureHandler struct {
	mu       sync.Mutex
	outcomes []domain.TradeOutcome
	signals  []domain.RegimeSignal
}

func (h *captureHandler) OnTradeClosed(_ context.Context, outcome domain.TradeOutcome) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes = append(h.outcomes, outcome)
	return nil
}

func (h *captureHandler) OnRegimeSignal(signal domain.RegimeSignal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, signal)
}

func (h *captureHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.outcomes), len(h.signals)
}

func echoServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}

		// Keep connection open
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}

func TestClient_Connect(t *testing.T) {
	server := echoServer(t, nil)
	defer server.Close()

	handler := &captureHandler{}
	client, err := NewClient(context.Background(), wsURL(server), handler, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestClient_RequiresHandler(t *testing.T) {
	_, err := NewClient(context.Background(), "ws://localhost:1", nil, nil, nil)
	if err == nil {
		t.Error("expected error for nil handler")
	}
}

func TestClient_DispatchesTradeClosed(t *testing.T) {
	server := echoServer(t, []string{
		`{"type":"trade_closed","data":{"user_id":"user-1","profit":12.5,"is_win":true,"timestamp":1700000000000}}`,
	})
	defer server.Close()

	handler := &captureHandler{}
	client, err := NewClient(context.Background(), wsURL(server), handler, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	waitFor(t, func() bool {
		n, _ := handler.counts()
		return n == 1
	})

	handler.mu.Lock()
	outcome := handler.outcomes[0]
	handler.mu.Unlock()

	if outcome.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", outcome.UserID)
	}
	if outcome.Profit != 12.5 || !outcome.IsWin {
		t.Errorf("expected profit 12.5 win, got %f/%v", outcome.Profit, outcome.IsWin)
	}
	if outcome.Timestamp != 1700000000000 {
		t.Errorf("expected timestamp 1700000000000, got %d", outcome.Timestamp)
	}
}

func TestClient_DispatchesRegimeSignal(t *testing.T) {
	server := echoServer(t, []string{
		`{"type":"regime","data":{"label":"BULL","deviation":0.02}}`,
	})
	defer server.Close()

	handler := &captureHandler{}
	client, err := NewClient(context.Background(), wsURL(server), handler, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	waitFor(t, func() bool {
		_, n := handler.counts()
		return n == 1
	})

	handler.mu.Lock()
	signal := handler.signals[0]
	handler.mu.Unlock()

	if signal.Label != domain.RegimeBull {
		t.Errorf("expected BULL, got %s", signal.Label)
	}
	if signal.Deviation != 0.02 {
		t.Errorf("expected deviation 0.02, got %f", signal.Deviation)
	}
}

func TestClient_SkipsMalformedMessages(t *testing.T) {
	server := echoServer(t, []string{
		`not json at all`,
		`{"type":"trade_closed","data":"not an object"}`,
		`{"type":"something_else","data":{}}`,
		`{"type":"regime","data":{"label":"BEAR","deviation":-0.01}}`,
	})
	defer server.Close()

	handler := &captureHandler{}
	client, err := NewClient(context.Background(), wsURL(server), handler, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	// The valid regime message after the garbage still arrives.
	waitFor(t, func() bool {
		_, n := handler.counts()
		return n == 1
	})

	outcomes, _ := handler.counts()
	if outcomes != 0 {
		t.Errorf("expected no trade outcomes from malformed payloads, got %d", outcomes)
	}
}

func TestClient_Close(t *testing.T) {
	server := echoServer(t, nil)
	defer server.Close()

	handler := &captureHandler{}
	client, err := NewClient(context.Background(), wsURL(server), handler, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestClient_CustomConfig(t *testing.T) {
	server := echoServer(t, nil)
	defer server.Close()

	config := &ClientConfig{
		ReconnectDelay:    100 * time.Millisecond,
		MaxReconnectDelay: 1 * time.Second,
		PingInterval:      5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Second,
	}

	handler := &captureHandler{}
	client, err := NewClient(context.Background(), wsURL(server), handler, config, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if client.config.PingInterval != 5*time.Second {
		t.Errorf("expected PingInterval 5s, got %v", client.config.PingInterval)
	}
}
