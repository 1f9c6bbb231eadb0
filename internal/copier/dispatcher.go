package copier

import (
	"context"

	"copier_bot/internal/models"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/internal/parser"
	"copier_bot/internal/registry"

	"github.com/opentracing/opentracing-go"
)

// Dispatcher применяет follow-up сообщения (TP HIT / CLOSE / ...) к
// позициям, записанным в реестре за их сигналом.
type Dispatcher struct {
	api      TradingAPI
	reg      *registry.Store
	notifier TelegramNotifier
}

func NewDispatcher(api TradingAPI, reg *registry.Store, n TelegramNotifier) *Dispatcher {
	return &Dispatcher{api: api, reg: reg, notifier: n}
}

// Dispatch вызывается только для update-сигналов. Какая мутация бежит,
// решает повторный скан сырого текста, а не флаги сигнала.
func (d *Dispatcher) Dispatch(ctx context.Context, sub models.Subscriber, channelID int64, sig models.Signal) models.UpdateReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatcher.dispatch")
	span.SetTag("symbol", sig.Symbol)
	span.SetTag("subscriber", sub.ID)
	defer span.Finish()

	report := models.UpdateReport{Symbol: sig.Symbol}

	key := registry.Key{SubscriberID: sub.ID, ChannelID: channelID, Symbol: sig.Symbol}
	entry, ok := d.reg.Get(key)
	if !ok || len(entry.Positions) == 0 {
		report.NothingToUpdate = true
		return report
	}

	tpHit, closeAll := parser.UpdateKind(sig.RawText)
	if !tpHit && !closeAll {
		report.NothingToUpdate = true
		return report
	}

	// позиции группируем по счёту: один запрос живых позиций на счёт
	byAccount := make(map[string][]models.PositionRef)
	for _, ref := range entry.Positions {
		byAccount[ref.AccountID] = append(byAccount[ref.AccountID], ref)
	}

	for accountID, refs := range byAccount {
		positions, err := d.api.Positions(ctx, accountID)
		if err != nil {
			for _, ref := range refs {
				report.Updates = append(report.Updates, models.PositionUpdate{
					AccountID:  accountID,
					PositionID: ref.PositionID,
					Err:        err,
				})
			}
			continue
		}

		liveByID := make(map[string]*metaapi.Position, len(positions))
		for i := range positions {
			liveByID[positions[i].ID] = &positions[i]
		}

		for _, ref := range refs {
			live, stillOpen := liveByID[ref.PositionID]
			if !stillOpen {
				continue
			}
			// оба действия могут сработать по одной позиции в один проход
			if tpHit {
				report.Updates = append(report.Updates, d.applyTPHit(ctx, sub, accountID, live)...)
			}
			if closeAll {
				err := d.api.ClosePosition(ctx, accountID, ref.PositionID)
				report.Updates = append(report.Updates, models.PositionUpdate{
					AccountID:  accountID,
					PositionID: ref.PositionID,
					Action:     models.UpdateFullClose,
					Err:        err,
				})
			}
		}
	}

	if len(report.Updates) == 0 {
		report.NothingToUpdate = true
	}

	d.notify(ctx, sub.ID, report)
	return report
}

func (d *Dispatcher) applyTPHit(ctx context.Context, sub models.Subscriber, accountID string, live *metaapi.Position) []models.PositionUpdate {
	var out []models.PositionUpdate

	if sub.Settings.AutoCloseAtTP1 && live.Volume > 0 {
		err := d.api.ClosePartially(ctx, accountID, live.ID, live.Volume/2)
		out = append(out, models.PositionUpdate{
			AccountID:  accountID,
			PositionID: live.ID,
			Action:     models.UpdatePartialClose,
			Err:        err,
		})
	}

	if sub.Settings.MoveToBreakeven {
		err := d.api.ModifyPosition(ctx, accountID, live.ID, live.OpenPrice, 0)
		out = append(out, models.PositionUpdate{
			AccountID:  accountID,
			PositionID: live.ID,
			Action:     models.UpdateBreakeven,
			Err:        err,
		})
	}

	return out
}

func (d *Dispatcher) notify(ctx context.Context, chatID int64, r models.UpdateReport) {
	if r.NothingToUpdate {
		d.notifier.SendF(ctx, chatID, "ℹ️ [%s] Обновление получено, но обновлять нечего", r.Symbol)
		return
	}

	for _, u := range r.Updates {
		if u.Err != nil {
			d.notifier.SendF(ctx, chatID, "❗️ [%s] %s %s: %v", r.Symbol, u.Action, u.PositionID, u.Err)
			continue
		}
		switch u.Action {
		case models.UpdatePartialClose:
			d.notifier.SendF(ctx, chatID, "💰 [%s] Закрыта половина позиции %s", r.Symbol, u.PositionID)
		case models.UpdateBreakeven:
			d.notifier.SendF(ctx, chatID, "🛡 [%s] Стоп позиции %s переведён в безубыток", r.Symbol, u.PositionID)
		case models.UpdateFullClose:
			d.notifier.SendF(ctx, chatID, "🔒 [%s] Позиция %s закрыта", r.Symbol, u.PositionID)
		}
	}
}
