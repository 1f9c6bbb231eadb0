package copier

import (
	"context"
	"time"

	"copier_bot/internal/models"
	"copier_bot/internal/modules/config"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/internal/registry"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/opentracing/opentracing-go"
)

// TradingAPI — торговый шлюз глазами ядра. Реализация — metaapi-клиент,
// в тестах — фейк.
type TradingAPI interface {
	PlaceOrder(ctx context.Context, accountID string, req metaapi.TradeRequest) (*metaapi.TradeResponse, error)
	Positions(ctx context.Context, accountID string) ([]metaapi.Position, error)
	ModifyPosition(ctx context.Context, accountID, positionID string, stopLoss, takeProfit float64) error
	ClosePartially(ctx context.Context, accountID, positionID string, volume float64) error
	ClosePosition(ctx context.Context, accountID, positionID string) error
}

type TelegramNotifier interface {
	SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error)
	Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error)
}

// Engine раскладывает новый сигнал в ордера по всем счетам подписчика.
type Engine struct {
	api      TradingAPI
	reg      *registry.Store
	notifier TelegramNotifier
	monitors *Supervisor

	orderDelay time.Duration
}

func NewEngine(cfg *config.Config, api TradingAPI, reg *registry.Store, n TelegramNotifier, monitors *Supervisor) *Engine {
	return &Engine{
		api:        api,
		reg:        reg,
		notifier:   n,
		monitors:   monitors,
		orderDelay: cfg.OrderDelay,
	}
}

// Execute вызывается только для не-update сигналов. Счета обходим
// последовательно, ошибка одного счёта не трогает остальные.
func (e *Engine) Execute(ctx context.Context, sub models.Subscriber, channelID int64, sig models.Signal) models.ExecutionReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.execute")
	span.SetTag("symbol", sig.Symbol)
	span.SetTag("subscriber", sub.ID)
	defer span.Finish()

	report := models.ExecutionReport{Symbol: sig.Symbol}

	if len(sub.Accounts) == 0 {
		report.NoTargets = true
		e.notifier.SendF(ctx, sub.ID,
			"⚠️ [%s] Сигнал распознан, но нет привязанных счетов — /add_mt4 или /add_mt5", sig.Symbol)
		return report
	}

	// Запись в реестр создаём ДО выставления ордеров: тикет защищает
	// от дописывания позиций в уже заменённую запись.
	key := registry.Key{SubscriberID: sub.ID, ChannelID: channelID, Symbol: sig.Symbol}
	ticket := e.reg.Put(key, sig)

	for _, acc := range sub.Accounts {
		res := e.executeOnAccount(ctx, sub, acc, sig, ticket)
		report.Accounts = append(report.Accounts, res)
	}

	e.notifyReport(ctx, sub.ID, sig, report)
	return report
}

func (e *Engine) executeOnAccount(ctx context.Context, sub models.Subscriber, acc models.Account, sig models.Signal, ticket registry.Ticket) models.AccountResult {
	res := models.AccountResult{AccountID: acc.ID, Login: acc.Login}

	req := buildTradeRequest(sig, sub.Settings)

	for i := 0; i < sub.Settings.NumberOfOrders; i++ {
		resp, err := e.api.PlaceOrder(ctx, acc.ID, req)
		if err != nil {
			res.Err = err
			if metaapi.IsFunding(err) {
				e.notifier.SendF(ctx, sub.ID,
					"💳 [%s] Счёт %s: брокер отклонил ордер по биллингу (пополните счёт)", sig.Symbol, acc.Login)
			}
			// остаток ордеров на этом счёте не шлём, остальные счета не трогаем
			return res
		}

		res.Orders++
		res.Volume += req.Volume

		if resp.PositionID != "" {
			ref := models.PositionRef{AccountID: acc.ID, PositionID: resp.PositionID, Symbol: sig.Symbol}
			e.reg.AttachPosition(ticket, ref)

			if sub.Settings.MoveToBreakeven && sig.TP1 > 0 {
				e.monitors.Spawn(Task{
					SubscriberID: sub.ID,
					AccountID:    acc.ID,
					PositionID:   resp.PositionID,
					Symbol:       sig.Symbol,
					Action:       sig.Action,
					Entry:        sig.Entry,
					Target1:      sig.TP1,
					TriggerPct:   sub.Settings.BreakEvenTriggerPct,
					PartialAtTP1: sub.Settings.AutoCloseAtTP1,
				})
			}
		}

		// пауза между ордерами одного счёта (rate limit шлюза)
		if i+1 < sub.Settings.NumberOfOrders {
			select {
			case <-ctx.Done():
				return res
			case <-time.After(e.orderDelay):
			}
		}
	}

	return res
}

// buildTradeRequest собирает тело ордера по сигналу и настройкам.
func buildTradeRequest(sig models.Signal, set models.CopySettings) metaapi.TradeRequest {
	req := metaapi.TradeRequest{
		Symbol: sig.Symbol,
		Volume: set.OrderVolume(),
	}

	switch {
	case sig.Action == models.ActionBuy && sig.HasEntry():
		req.ActionType = metaapi.ActionBuyLimit
		req.OpenPrice = sig.Entry
	case sig.Action == models.ActionBuy:
		req.ActionType = metaapi.ActionBuy
	case sig.HasEntry():
		req.ActionType = metaapi.ActionSellLimit
		req.OpenPrice = sig.Entry
	default:
		req.ActionType = metaapi.ActionSell
	}

	if set.CopyStopLoss && sig.StopLoss > 0 {
		req.StopLoss = sig.StopLoss
	}
	if set.CopyTakeProfit && sig.TP1 > 0 {
		req.TakeProfit = sig.TP1
	}

	return req
}

func (e *Engine) notifyReport(ctx context.Context, chatID int64, sig models.Signal, r models.ExecutionReport) {
	entry := "market"
	if sig.HasEntry() {
		entry = "limit"
	}

	for _, a := range r.Accounts {
		if a.Err != nil {
			e.notifier.SendF(ctx, chatID,
				"❗️ [%s] Счёт %s: %v", sig.Symbol, a.Login, a.Err)
			continue
		}
		e.notifier.SendF(ctx, chatID,
			"✅ [%s] %s %s | счёт %s | ордеров=%d объём=%.2f SL=%.2f TP=%.2f",
			sig.Symbol, sig.Action, entry, a.Login, a.Orders, a.Volume, sig.StopLoss, sig.TP1)
	}
}
