package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CoinPilot/internal/domain/models"
	drepo "CoinPilot/internal/domain/repository"
)

// Stream implements a MarketStream over the Bybit v5 public kline topics.
// Only confirmed candles are forwarded; forming buckets are dropped so the
// rolling window never ingests a half-built bar twice with different values.
//
// gorilla/websocket allows one concurrent writer per connection, so every
// write (subscribe, ping) goes through writeMu. The keepalive goroutine is
// bound to one connection and stops when that connection is replaced.
type Stream struct {
	websocketURL   string
	symbols        []string
	intervals      []drepo.Interval
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex // guards conn, connected, pingDone
	writeMu   sync.Mutex // serializes writes on the active conn
	conn      *websocket.Conn
	connected bool
	pingDone  chan struct{}
}

// NewStream creates a kline WebSocket stream for the given keys.
func NewStream(websocketURL string, symbols []string, intervals []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	ivs := make([]drepo.Interval, 0, len(intervals))
	for _, s := range intervals {
		ivs = append(ivs, drepo.NormalizeInterval(s))
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Stream{
		websocketURL:   websocketURL,
		symbols:        symbols,
		intervals:      ivs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection and starts its keepalive.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("bybit connect: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.pingDone != nil {
		close(s.pingDone)
	}
	s.conn = conn
	s.connected = true
	s.pingDone = done
	s.mu.Unlock()

	go s.keepalive(ctx, conn, done)
	return nil
}

// keepalive pings one connection until it is replaced or ctx ends.
func (s *Stream) keepalive(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			_ = conn.WriteJSON(map[string]string{"op": "ping"})
			s.writeMu.Unlock()
		}
	}
}

// Subscribe subscribes to kline topics for all configured keys.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("bybit not connected")
	}

	args := make([]string, 0, len(s.symbols)*len(s.intervals))
	for _, sym := range s.symbols {
		for _, iv := range s.intervals {
			args = append(args, fmt.Sprintf("kline.%s.%s", wsInterval(iv), sym))
		}
	}
	msg := map[string]interface{}{"op": "subscribe", "args": args}

	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

type wsKline struct {
	Start   int64  `json:"start"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

type wsMessage struct {
	Topic string    `json:"topic"`
	Data  []wsKline `json:"data"`
}

// Read streams confirmed candle events and errors. The read loop is bound
// to the connection active at call time; after a Reconnect the caller
// obtains fresh channels by calling Read again.
func (s *Stream) Read(ctx context.Context) (<-chan *models.CandleEvent, <-chan error) {
	events := make(chan *models.CandleEvent, 256)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	go func() {
		defer close(events)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("bybit conn nil")
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("bybit read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil || m.Topic == "" {
					// op acks, pongs and other non-kline frames
					continue
				}
				symbol, iv, ok := parseTopic(m.Topic)
				if !ok {
					continue
				}
				for _, k := range m.Data {
					if !k.Confirm {
						continue
					}
					candle, err := parseWSKline(k)
					if err != nil {
						continue
					}
					select {
					case events <- &models.CandleEvent{Symbol: symbol, Interval: string(iv), Candle: candle}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return events, errs
}

// Reconnect closes and re-establishes the connection after the delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.connected = false
	if s.pingDone != nil {
		close(s.pingDone)
		s.pingDone = nil
	}
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if s.reconnectDelay > 0 {
		select {
		case <-time.After(s.reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

func (s *Stream) Close() error {
	s.mu.Lock()
	s.connected = false
	if s.pingDone != nil {
		close(s.pingDone)
		s.pingDone = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// parseTopic splits "kline.15.BTCUSDT" into its key parts.
func parseTopic(topic string) (symbol string, iv drepo.Interval, ok bool) {
	parts := strings.Split(topic, ".")
	if len(parts) != 3 || parts[0] != "kline" {
		return "", "", false
	}
	switch parts[1] {
	case "1":
		iv = drepo.IV1m
	case "5":
		iv = drepo.IV5m
	case "15":
		iv = drepo.IV15m
	case "60":
		iv = drepo.IV1h
	default:
		return "", "", false
	}
	return parts[2], iv, true
}

func parseWSKline(k wsKline) (models.Candle, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("kline field: %w", err)
		}
		vals[i] = v
	}
	return models.Candle{
		Timestamp: time.UnixMilli(k.Start).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
