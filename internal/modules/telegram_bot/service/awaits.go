package service

import (
	"context"
	"strconv"
	"strings"

	"copier_bot/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	awaitMT4          = "mt4"
	awaitMT5          = "mt5"
	awaitChannel      = "channel"
	awaitLotSize      = "lot_size"
	awaitNumOrders    = "num_orders"
	awaitMultiplier   = "lot_multiplier"
	awaitMaxRisk      = "max_risk"
	awaitBreakevenPct = "breakeven_pct"
)

func (t *Telegram) handleAwaited(ctx context.Context, chatID int64, what string, msg *tgbot.Message) {
	switch what {
	case awaitMT4:
		t.handleAddAccount(ctx, chatID, models.PlatformMT4, msg.Text)
	case awaitMT5:
		t.handleAddAccount(ctx, chatID, models.PlatformMT5, msg.Text)
	case awaitChannel:
		t.handleAddChannel(ctx, chatID, msg)
	case awaitLotSize:
		t.handleNumericSetting(ctx, chatID, msg.Text, func(s *models.CopySettings, v float64) bool {
			if v <= 0 {
				return false
			}
			s.BaseLotSize = v
			return true
		}, "Базовый лот")
	case awaitNumOrders:
		t.handleNumericSetting(ctx, chatID, msg.Text, func(s *models.CopySettings, v float64) bool {
			n := int(v)
			if n < 1 || n > 10 {
				return false
			}
			s.NumberOfOrders = n
			return true
		}, "Число ордеров")
	case awaitMultiplier:
		t.handleNumericSetting(ctx, chatID, msg.Text, func(s *models.CopySettings, v float64) bool {
			if v <= 0 {
				return false
			}
			s.LotMultiplier = v
			return true
		}, "Множитель лота")
	case awaitMaxRisk:
		t.handleNumericSetting(ctx, chatID, msg.Text, func(s *models.CopySettings, v float64) bool {
			if v <= 0 || v > 100 {
				return false
			}
			s.MaxRiskPct = v
			return true
		}, "Максимальный риск")
	case awaitBreakevenPct:
		t.handleNumericSetting(ctx, chatID, msg.Text, func(s *models.CopySettings, v float64) bool {
			if v <= 0 || v > 100 {
				return false
			}
			s.BreakEvenTriggerPct = v
			return true
		}, "Порог безубытка")
	}
}

func (t *Telegram) handleNumericSetting(
	ctx context.Context,
	chatID int64,
	text string,
	apply func(*models.CopySettings, float64) bool,
	label string,
) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		t.Send(ctx, chatID, "Не понял число, попробуй ещё раз")
		return
	}

	applied := false
	_, ok := t.profs.Mutate(ctx, chatID, func(sub *models.Subscriber) {
		applied = apply(&sub.Settings, v)
	})
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}
	if !applied {
		t.Send(ctx, chatID, "Значение вне допустимого диапазона")
		return
	}

	t.SendF(ctx, chatID, "✅ %s: %s", label, strings.TrimSpace(text))
}
