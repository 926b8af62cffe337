package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSProvider_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	provider, err := NewWSProvider(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSProvider: %v", err)
	}
	defer provider.Close()

	if provider.closed.Load() {
		t.Error("provider should not be closed")
	}
}

func TestWSProvider_SubscribeAndCache(t *testing.T) {
	subject := "So11111111111111111111111111111111111111112"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		// Read subscribe request.
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "marketSubscribe" || len(req.Params) != 1 || req.Params[0] != subject {
			t.Errorf("unexpected subscribe request: %+v", req)
		}

		// Push one market update.
		update := wsMessage{
			Method: "marketUpdate",
			Update: &snapshotPayload{
				SubjectKey:         subject,
				Price:              0.042,
				SpreadBps:          85,
				RollingVolume:      12000,
				LiquidityReserves:  90000,
				Volatility:         0.2,
				OrderBookImbalance: -0.1,
				TimestampMs:        1700000000000,
			},
		}
		if err := c.WriteJSON(update); err != nil {
			return
		}

		// Keep the connection open.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	provider, err := NewWSProvider(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSProvider: %v", err)
	}
	defer provider.Close()

	if err := provider.Subscribe(subject); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Wait for the pushed update to land in the cache.
	deadline := time.Now().Add(2 * time.Second)
	for {
		snapshot, err := provider.GetMarketSnapshot(context.Background(), subject)
		if err == nil {
			if snapshot.Price != 0.042 || snapshot.SpreadBps != 85 {
				t.Errorf("cached snapshot mismatch: %+v", snapshot)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no snapshot cached before deadline: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSProvider_UnknownSubjectUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	provider, err := NewWSProvider(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSProvider: %v", err)
	}
	defer provider.Close()

	if _, err := provider.GetMarketSnapshot(context.Background(), "never-subscribed"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestWSProvider_StaleSnapshotUnavailable(t *testing.T) {
	subject := "So11111111111111111111111111111111111111112"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		update := wsMessage{
			Method: "marketUpdate",
			Update: &snapshotPayload{SubjectKey: subject, Price: 1.0},
		}
		if err := c.WriteJSON(update); err != nil {
			return
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SnapshotMaxAge = 50 * time.Millisecond

	provider, err := NewWSProvider(context.Background(), wsURL(server), &cfg)
	if err != nil {
		t.Fatalf("NewWSProvider: %v", err)
	}
	defer provider.Close()

	// Wait for the update, then let it expire.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := provider.GetMarketSnapshot(context.Background(), subject); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("update never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := provider.GetMarketSnapshot(context.Background(), subject); !errors.Is(err, ErrUnavailable) {
		t.Errorf("stale snapshot: err = %v, want ErrUnavailable", err)
	}
}
