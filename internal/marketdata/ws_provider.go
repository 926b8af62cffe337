package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"launch-sentinel/internal/domain"
)

// WSConfig configures the feed client.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential reconnect backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// WriteTimeout is the per-message write deadline.
	WriteTimeout time.Duration
	// SnapshotMaxAge is how old a cached snapshot may be before
	// GetMarketSnapshot reports ErrUnavailable.
	SnapshotMaxAge time.Duration
}

// DefaultWSConfig returns the default feed configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SnapshotMaxAge:    30 * time.Second,
	}
}

// wsRequest is the feed's subscribe frame.
type wsRequest struct {
	ID     uint64   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// wsMessage is one inbound feed frame: either a subscribe ack or a market
// update.
type wsMessage struct {
	ID     uint64           `json:"id,omitempty"`
	Method string           `json:"method,omitempty"`
	Update *snapshotPayload `json:"update,omitempty"`
}

// snapshotPayload is the feed's market update shape.
type snapshotPayload struct {
	SubjectKey         string    `json:"subjectKey"`
	Price              float64   `json:"price"`
	PriceHistory       []float64 `json:"priceHistory"`
	SpreadBps          float64   `json:"spreadBps"`
	RollingVolume      float64   `json:"rollingVolume"`
	LiquidityReserves  float64   `json:"liquidityReserves"`
	Volatility         float64   `json:"volatility"`
	OrderBookImbalance float64   `json:"orderBookImbalance"`
	TimestampMs        int64     `json:"timestampMs"`
}

type cachedSnapshot struct {
	snapshot   domain.MarketSnapshot
	receivedAt time.Time
}

// WSProvider implements Provider over a push-based WebSocket market feed.
// The latest update per subject is cached; GetMarketSnapshot serves from
// the cache and reports ErrUnavailable for missing or stale subjects.
type WSProvider struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// cache holds the latest snapshot per subject key.
	cache   map[string]cachedSnapshot
	cacheMu sync.RWMutex

	// subscribed tracks subject keys for resubscription after reconnect.
	subscribed   map[string]struct{}
	subscribedMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSProvider connects to the feed endpoint and starts the read and
// ping loops.
func NewWSProvider(ctx context.Context, endpoint string, config *WSConfig) (*WSProvider, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	p := &WSProvider{
		endpoint:   endpoint,
		config:     cfg,
		cache:      make(map[string]cachedSnapshot),
		subscribed: make(map[string]struct{}),
		done:       make(chan struct{}),
	}

	if err := p.connect(ctx); err != nil {
		return nil, err
	}

	p.wg.Add(1)
	go p.readLoop()

	p.wg.Add(1)
	go p.pingLoop()

	return p, nil
}

// connect establishes the WebSocket connection.
func (p *WSProvider) connect(ctx context.Context) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, p.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	p.conn = conn
	return nil
}

// Subscribe asks the feed to push updates for a subject key.
func (p *WSProvider) Subscribe(subjectKey string) error {
	if p.closed.Load() {
		return fmt.Errorf("provider closed")
	}

	if err := p.sendSubscribe(subjectKey); err != nil {
		return err
	}

	p.subscribedMu.Lock()
	p.subscribed[subjectKey] = struct{}{}
	p.subscribedMu.Unlock()
	return nil
}

func (p *WSProvider) sendSubscribe(subjectKey string) error {
	req := wsRequest{
		ID:     p.requestID.Add(1),
		Method: "marketSubscribe",
		Params: []string{subjectKey},
	}

	p.connMu.Lock()
	defer p.connMu.Unlock()

	if p.conn == nil {
		return fmt.Errorf("not connected")
	}
	p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	if err := p.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// GetMarketSnapshot serves the latest cached update for the subject.
func (p *WSProvider) GetMarketSnapshot(_ context.Context, subjectKey string) (*domain.MarketSnapshot, error) {
	p.cacheMu.RLock()
	cached, ok := p.cache[subjectKey]
	p.cacheMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no update for %s", ErrUnavailable, subjectKey)
	}
	if p.config.SnapshotMaxAge > 0 && time.Since(cached.receivedAt) > p.config.SnapshotMaxAge {
		return nil, fmt.Errorf("%w: stale update for %s", ErrUnavailable, subjectKey)
	}

	snapshot := cached.snapshot
	return &snapshot, nil
}

// Close closes the connection and stops the background loops.
func (p *WSProvider) Close() error {
	if p.closed.Swap(true) {
		return nil // already closed
	}

	close(p.done)

	p.connMu.Lock()
	if p.conn != nil {
		p.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.conn.Close()
	}
	p.connMu.Unlock()

	p.wg.Wait()
	return nil
}

// readLoop reads feed frames and refreshes the cache, reconnecting with
// exponential backoff on connection errors.
func (p *WSProvider) readLoop() {
	defer p.wg.Done()

	reconnectDelay := p.config.ReconnectDelay

	for !p.closed.Load() {
		p.connMu.Lock()
		conn := p.conn
		p.connMu.Unlock()

		if conn == nil {
			select {
			case <-p.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if p.closed.Load() {
				return
			}

			if !p.reconnecting.Swap(true) {
				go p.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > p.config.MaxReconnectDelay {
				reconnectDelay = p.config.MaxReconnectDelay
			}

			select {
			case <-p.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = p.config.ReconnectDelay
		p.handleMessage(message)
	}
}

// handleMessage parses one frame and caches market updates. Unknown or
// malformed frames are ignored; a bad frame must not kill the loop.
func (p *WSProvider) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Method != "marketUpdate" || msg.Update == nil {
		return
	}

	u := msg.Update
	p.cacheMu.Lock()
	p.cache[u.SubjectKey] = cachedSnapshot{
		snapshot: domain.MarketSnapshot{
			SubjectKey:         u.SubjectKey,
			Price:              u.Price,
			PriceHistory:       u.PriceHistory,
			SpreadBps:          u.SpreadBps,
			RollingVolume:      u.RollingVolume,
			LiquidityReserves:  u.LiquidityReserves,
			Volatility:         u.Volatility,
			OrderBookImbalance: u.OrderBookImbalance,
			TimestampMs:        u.TimestampMs,
		},
		receivedAt: time.Now(),
	}
	p.cacheMu.Unlock()
}

// reconnect re-dials and resubscribes all tracked subjects.
func (p *WSProvider) reconnect(delay time.Duration) {
	defer p.reconnecting.Store(false)

	if p.closed.Load() {
		return
	}

	select {
	case <-p.done:
		return
	case <-time.After(delay):
	}

	p.connMu.Lock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.connect(ctx); err != nil {
		// Next read error retries.
		return
	}

	p.subscribedMu.RLock()
	keys := make([]string, 0, len(p.subscribed))
	for k := range p.subscribed {
		keys = append(keys, k)
	}
	p.subscribedMu.RUnlock()

	for _, k := range keys {
		if err := p.sendSubscribe(k); err != nil {
			return
		}
	}
}

// pingLoop keeps the connection alive.
func (p *WSProvider) pingLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.connMu.Lock()
			if p.conn != nil {
				p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
				p.conn.WriteMessage(websocket.PingMessage, nil)
			}
			p.connMu.Unlock()
		}
	}
}

var _ Provider = (*WSProvider)(nil)
