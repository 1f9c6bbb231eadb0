package copier

import (
	"context"
	"sync"
	"time"

	"copier_bot/internal/models"
	"copier_bot/internal/modules/config"
	marketdata "copier_bot/internal/modules/marketdata/service"
	metaapi "copier_bot/internal/modules/metaapi/service"

	"copier_bot/pkg/logger"
)

// PriceSource — кэш последних котировок (WebSocket-стрим). Опорная
// цена для прогресса; если позиция сама несёт currentPrice, он важнее.
type PriceSource interface {
	LastPrice(symbol string) (marketdata.Quote, bool)
	Watch(symbol string)
}

// ActiveChecker — «жив ли ещё подписчик»: задача сверяется с флагом на
// каждом тике и сама гаснет, если профиль выключили.
type ActiveChecker interface {
	IsActive(subscriberID int64) bool
}

// Task — одна отслеживаемая позиция.
type Task struct {
	SubscriberID int64
	AccountID    string
	PositionID   string
	Symbol       string

	Action models.Action

	// Entry == 0 для immediate-сигналов: берём openPrice позиции.
	Entry      float64
	Target1    float64
	TriggerPct float64

	// Закрыть половину объёма, если к моменту срабатывания цена уже
	// дошла до первой цели.
	PartialAtTP1 bool
}

type taskKey struct {
	accountID  string
	positionID string
}

// Supervisor владеет всеми задачами мониторинга: их можно перечислить
// (для /stats) и дождаться на shutdown. Свободных таймеров нет.
type Supervisor struct {
	api      TradingAPI
	prices   PriceSource
	active   ActiveChecker
	notifier TelegramNotifier

	poll    time.Duration
	timeout time.Duration

	mu    sync.Mutex
	tasks map[taskKey]context.CancelFunc
	wg    sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewSupervisor(cfg *config.Config, api TradingAPI, prices PriceSource, active ActiveChecker, n TelegramNotifier) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		api:      api,
		prices:   prices,
		active:   active,
		notifier: n,
		poll:     cfg.MonitorPollInterval,
		timeout:  cfg.MonitorTimeout,
		tasks:    make(map[taskKey]context.CancelFunc),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Spawn запускает наблюдение за позицией. Повторный Spawn той же
// позиции — no-op.
func (s *Supervisor) Spawn(t Task) {
	key := taskKey{accountID: t.AccountID, positionID: t.PositionID}

	if s.prices != nil {
		s.prices.Watch(t.Symbol)
	}

	s.mu.Lock()
	if _, running := s.tasks[key]; running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	s.tasks[key] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.tasks, key)
			s.mu.Unlock()
			s.wg.Done()
		}()
		s.watch(ctx, t)
	}()
}

// Len — активных задач (для /stats).
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop гасит все задачи и ждёт их завершения.
func (s *Supervisor) Stop() {
	s.cancel()
	s.wg.Wait()
}

// watch — цикл одной задачи: тикаем, пока позиция жива и безубыток не
// применён. Ошибки опроса не фатальны, следующий тик повторит.
func (s *Supervisor) watch(ctx context.Context, t Task) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.active != nil && !s.active.IsActive(t.SubscriberID) {
			return
		}

		done, err := s.tick(ctx, t)
		if err != nil {
			logger.Error("monitor %s/%s: %v", t.AccountID, t.PositionID, err)
			continue
		}
		if done {
			return
		}
	}
}

// tick — один опрос. done=true означает терминальное состояние
// (позиции нет, цель некорректна или безубыток применён).
func (s *Supervisor) tick(ctx context.Context, t Task) (bool, error) {
	positions, err := s.api.Positions(ctx, t.AccountID)
	if err != nil {
		return false, err
	}

	var live *metaapi.Position
	for i := range positions {
		if positions[i].ID == t.PositionID {
			live = &positions[i]
			break
		}
	}
	if live == nil {
		// закрыта извне
		return true, nil
	}

	entry := t.Entry
	if entry <= 0 {
		entry = live.OpenPrice
	}
	if t.Target1 == entry {
		// цель совпала со входом, следить не за чем
		return true, nil
	}

	price := live.CurrentPrice
	if price <= 0 && s.prices != nil {
		if q, ok := s.prices.LastPrice(t.Symbol); ok {
			price = q.Mid()
		}
	}
	if price <= 0 || entry <= 0 {
		return false, nil
	}

	progress := progressPct(t.Action, entry, t.Target1, price)
	if progress < t.TriggerPct {
		return false, nil
	}
	if live.StopLoss == entry {
		// безубыток уже стоит (поставлен диспетчером или вручную)
		return true, nil
	}

	if err := s.api.ModifyPosition(ctx, t.AccountID, t.PositionID, entry, 0); err != nil {
		return false, err
	}
	s.notifier.SendF(ctx, t.SubscriberID,
		"🛡 [%s] Стоп переведён в безубыток @ %.2f (прогресс %.0f%%)", t.Symbol, entry, progress)

	if t.PartialAtTP1 && progress >= 100 && live.Volume > 0 {
		half := live.Volume / 2
		if err := s.api.ClosePartially(ctx, t.AccountID, t.PositionID, half); err != nil {
			logger.Error("monitor partial close %s/%s: %v", t.AccountID, t.PositionID, err)
		} else {
			s.notifier.SendF(ctx, t.SubscriberID,
				"💰 [%s] Цель 1 достигнута, закрыта половина объёма (%.2f)", t.Symbol, half)
		}
	}

	// one-shot: после безубытка задача не перевзводится на TP2/TP3
	return true, nil
}

// progressPct — подписанный прогресс к первой цели в процентах.
func progressPct(action models.Action, entry, target1, current float64) float64 {
	denom := target1 - entry
	if action == models.ActionSell {
		denom = entry - target1
	}
	if denom == 0 {
		return -1
	}

	num := current - entry
	if action == models.ActionSell {
		num = entry - current
	}
	return num / denom * 100
}
