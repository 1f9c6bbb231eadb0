package service

import (
	"context"
	"sync"
	"time"

	"copier_bot/internal/modules/config"
	"copier_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// HealthSink — куда докладываем о состоянии стрима.
type HealthSink interface {
	SetWSConnected(v bool)
	TouchQuote(t time.Time)
}

// Stream держит WebSocket к ценовому шлюзу и кэш последних цен.
// Цены здесь справочные (статус, прогресс в отчётах), решения по
// позициям принимает REST-опрос — он остаётся источником истины.
type Stream struct {
	cfg    *config.Config
	health HealthSink

	dialer *websocket.Dialer

	mu     sync.RWMutex
	prices map[string]Quote
	watch  map[string]struct{}
}

// Quote — последняя котировка инструмента.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	At     time.Time
}

// Mid — середина спреда, ей меряем прогресс сигнала.
func (q Quote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	if q.Bid > 0 {
		return q.Bid
	}
	return q.Ask
}

func NewStream(cfg *config.Config, health HealthSink) *Stream {
	return &Stream{
		cfg:    cfg,
		health: health,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		prices: make(map[string]Quote),
		watch:  make(map[string]struct{}),
	}
}

// Watch добавляет инструмент в подписку. Вступает в силу при
// следующем реконнекте, активных сигналов это не блокирует.
func (s *Stream) Watch(symbol string) {
	s.mu.Lock()
	s.watch[symbol] = struct{}{}
	s.mu.Unlock()
}

// LastPrice — последняя известная цена инструмента.
func (s *Stream) LastPrice(symbol string) (Quote, bool) {
	s.mu.RLock()
	q, ok := s.prices[symbol]
	s.mu.RUnlock()
	return q, ok
}

type priceFrame struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// Start гоняет connect/subscribe/read в цикле с реконнектом.
func (s *Stream) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.runOnce(ctx); err != nil {
			logger.Warn("market stream: %v", err)
		}
		s.health.SetWSConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Stream) runOnce(ctx context.Context) error {
	header := map[string][]string{"auth-token": {s.cfg.MetaAPI.Token}}
	conn, _, err := s.dialer.Dial(s.cfg.MetaAPI.StreamURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.health.SetWSConnected(true)

	if err := s.subscribe(conn); err != nil {
		return err
	}

	// keepalive ping, иначе шлюз закрывает простаивающее соединение
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopPing:
				return
			case <-t.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame priceFrame
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Symbol == "" || (frame.Bid <= 0 && frame.Ask <= 0) {
			continue
		}

		now := time.Now()
		s.mu.Lock()
		s.prices[frame.Symbol] = Quote{
			Symbol: frame.Symbol,
			Bid:    frame.Bid,
			Ask:    frame.Ask,
			At:     now,
		}
		s.mu.Unlock()
		s.health.TouchQuote(now)
	}
}

func (s *Stream) subscribe(conn *websocket.Conn) error {
	s.mu.RLock()
	symbols := make([]string, 0, len(s.watch))
	for sym := range s.watch {
		symbols = append(symbols, sym)
	}
	s.mu.RUnlock()

	for _, sym := range symbols {
		req := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(req); err != nil {
			return err
		}
	}
	return nil
}
