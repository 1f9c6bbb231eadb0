package service

import (
	"context"
	"fmt"
	"strings"

	"copier_bot/pkg/logger"
)

// handleStatus — счета с их состоянием в облаке и открытые позиции.
func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	sub, ok := t.profs.Get(chatID)
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}
	if len(sub.Accounts) == 0 {
		t.Send(ctx, chatID, "📭 Счета не привязаны. /add_mt4 или /add_mt5")
		return
	}

	var b strings.Builder
	state := "⏹ выключено"
	if sub.Active {
		state = "▶️ включено"
	}
	fmt.Fprintf(&b, "Копирование: %s\n\n", state)

	for _, acc := range sub.Accounts {
		fmt.Fprintf(&b, "💼 %s (%s)\n", acc.Login, strings.ToUpper(string(acc.Platform)))

		cloud, err := t.trading.GetAccount(ctx, acc.ID)
		if err != nil {
			logger.Error("status account %s: %v", acc.ID, err)
			fmt.Fprintf(&b, "  ⚠️ состояние недоступно: %v\n", err)
			continue
		}
		fmt.Fprintf(&b, "  состояние: %s / %s\n", cloud.State, cloud.ConnectionStatus)

		positions, err := t.trading.Positions(ctx, acc.ID)
		if err != nil {
			fmt.Fprintf(&b, "  ⚠️ позиции недоступны: %v\n", err)
			continue
		}
		if len(positions) == 0 {
			b.WriteString("  открытых позиций нет\n")
			continue
		}
		for _, p := range positions {
			side := "SELL"
			if p.IsBuy() {
				side = "BUY"
			}
			fmt.Fprintf(&b, "  • %s %s %.2f @ %.2f | SL=%.2f TP=%.2f | P/L %.2f\n",
				p.Symbol, side, p.Volume, p.OpenPrice, p.StopLoss, p.TakeProfit, p.Profit)
		}
	}

	t.Send(ctx, chatID, b.String())
}
