package service

import (
	"context"
	"fmt"

	"copier_bot/internal/models"
	"copier_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func onOff(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

func settingsText(sub models.Subscriber) string {
	s := sub.Settings
	return fmt.Sprintf(
		"*Настройки копирования*\n\n"+
			"Базовый лот: `%.2f`\n"+
			"Множитель: `%.2f`\n"+
			"Ордеров на сигнал: `%d`\n"+
			"Макс. риск: `%.1f%%`\n"+
			"Порог безубытка: `%.0f%%` пути до TP1\n\n"+
			"%s Копировать SL\n"+
			"%s Копировать TP\n"+
			"%s Реверс сигналов\n"+
			"%s Закрывать половину на TP1\n"+
			"%s Переводить в безубыток\n\n"+
			"Счетов: %d | Каналов: %d",
		s.BaseLotSize, s.LotMultiplier, s.NumberOfOrders, s.MaxRiskPct, s.BreakEvenTriggerPct,
		onOff(s.CopyStopLoss), onOff(s.CopyTakeProfit), onOff(s.ReverseSignals),
		onOff(s.AutoCloseAtTP1), onOff(s.MoveToBreakeven),
		len(sub.Accounts), len(sub.Channels),
	)
}

func settingsKeyboard() tgbot.InlineKeyboardMarkup {
	return tgbot.NewInlineKeyboardMarkup(
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("📏 Лот", "set_lot_size"),
			tgbot.NewInlineKeyboardButtonData("✖️ Множитель", "set_multiplier"),
			tgbot.NewInlineKeyboardButtonData("#️⃣ Ордера", "set_num_orders"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("SL", "toggle:copy_sl"),
			tgbot.NewInlineKeyboardButtonData("TP", "toggle:copy_tp"),
			tgbot.NewInlineKeyboardButtonData("Реверс", "toggle:reverse"),
		),
		tgbot.NewInlineKeyboardRow(
			tgbot.NewInlineKeyboardButtonData("½ на TP1", "toggle:auto_close"),
			tgbot.NewInlineKeyboardButtonData("Безубыток", "toggle:breakeven"),
			tgbot.NewInlineKeyboardButtonData("🎯 Порог", "set_breakeven_pct"),
		),
	)
}

func (t *Telegram) handleSettingsMenu(ctx context.Context, chatID int64) {
	sub, ok := t.profs.Get(chatID)
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}

	msg := tgbot.NewMessage(chatID, settingsText(sub))
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = settingsKeyboard()
	t.SendMessage(ctx, msg)
}

func (t *Telegram) handleToggle(ctx context.Context, chatID int64, msg *tgbot.Message, what string) {
	sub, ok := t.profs.Mutate(ctx, chatID, func(sub *models.Subscriber) {
		s := &sub.Settings
		switch what {
		case "copy_sl":
			s.CopyStopLoss = !s.CopyStopLoss
		case "copy_tp":
			s.CopyTakeProfit = !s.CopyTakeProfit
		case "reverse":
			s.ReverseSignals = !s.ReverseSignals
		case "auto_close":
			s.AutoCloseAtTP1 = !s.AutoCloseAtTP1
		case "breakeven":
			s.MoveToBreakeven = !s.MoveToBreakeven
		}
	})
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}

	if msg == nil {
		return
	}
	// перерисовываем то же сообщение
	edit := tgbot.NewEditMessageTextAndMarkup(chatID, msg.MessageID, settingsText(sub), settingsKeyboard())
	edit.ParseMode = "Markdown"
	if _, err := t.bot.Send(edit); err != nil {
		logger.Error("settings edit: %v", err)
	}
}
