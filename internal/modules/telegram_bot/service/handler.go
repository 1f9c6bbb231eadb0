package service

import (
	"context"
	"strings"

	"copier_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	// 1) Посты в отслеживаемых каналах
	if post := update.ChannelPost; post != nil {
		t.handleChannelPost(post)
		return
	}

	// 2) Личные сообщения
	if msg := update.Message; msg != nil {
		chatID := msg.Chat.ID
		t.profs.Touch(chatID)

		if msg.IsCommand() {
			t.handleCommand(ctx, chatID, msg)
			return
		}
		t.handleTextMessage(ctx, msg)
		return
	}

	// 3) Inline-кнопки
	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		t.handleCallback(ctx, cb.Message.Chat.ID, cb)
		return
	}
}

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, msg *tgbot.Message) {
	switch msg.Command() {
	case "start":
		t.handleStart(ctx, chatID, msg.From)
	case "help":
		t.handleHelp(ctx, chatID)
	case "status":
		t.handleStatus(ctx, chatID)
	case "add_mt4":
		t.setAwaiting(chatID, awaitMT4)
		t.Send(ctx, chatID, "Пришли данные счёта MT4 одной строкой:\n`логин; пароль; сервер`\nили id уже заведённого счёта MetaApi.")
	case "add_mt5":
		t.setAwaiting(chatID, awaitMT5)
		t.Send(ctx, chatID, "Пришли данные счёта MT5 одной строкой:\n`логин; пароль; сервер`\nили id уже заведённого счёта MetaApi.")
	case "add_channel":
		t.setAwaiting(chatID, awaitChannel)
		t.Send(ctx, chatID, "Перешли сюда любой пост из канала, пришли его @username или числовой ID.")
	case "list_channels":
		t.handleListChannels(ctx, chatID)
	case "lot_size":
		t.setAwaiting(chatID, awaitLotSize)
		t.Send(ctx, chatID, "Введи базовый лот, например `0.01`")
	case "num_orders":
		t.setAwaiting(chatID, awaitNumOrders)
		t.Send(ctx, chatID, "Введи число ордеров на сигнал, например `1`")
	case "lot_multiplier":
		t.setAwaiting(chatID, awaitMultiplier)
		t.Send(ctx, chatID, "Введи множитель лота, например `1`")
	case "max_risk":
		t.setAwaiting(chatID, awaitMaxRisk)
		t.Send(ctx, chatID, "Введи максимальный риск в процентах, например `5`")
	default:
		t.Send(ctx, chatID, "Не знаю такую команду, смотри /help")
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64, from *tgbot.User) {
	name := ""
	if from != nil {
		name = from.UserName
		if name == "" {
			name = from.FirstName
		}
	}

	sub := t.profs.GetOrCreate(ctx, chatID, name)
	if c := t.copierRef(); c != nil && sub.Active {
		c.EnableSubscriber(sub)
	}

	replyKb := tgbot.NewReplyKeyboard(
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton("▶️ Включить копирование"),
			tgbot.NewKeyboardButton("⏹ Выключить копирование"),
		),
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton("⚙️ Настройки"),
			tgbot.NewKeyboardButton("📊 Статус"),
		),
	)

	msgText := "Привет! Я копирую сигналы из каналов на твои счета MT4/MT5.\n\n" +
		"1️⃣ Привяжи счёт: /add_mt4 или /add_mt5\n" +
		"2️⃣ Подключи канал с сигналами: /add_channel\n" +
		"3️⃣ Настрой лот и риск: ⚙️ Настройки\n\n" +
		"Дальше бот сам разбирает сигналы и раскладывает ордера."

	out := tgbot.NewMessage(chatID, msgText)
	out.ReplyMarkup = replyKb
	t.SendMessage(ctx, out)
}

func (t *Telegram) handleHelp(ctx context.Context, chatID int64) {
	t.Send(ctx, chatID,
		"/start — главное меню\n"+
			"/add_mt4, /add_mt5 — привязать счёт\n"+
			"/add_channel — подключить канал с сигналами\n"+
			"/list_channels — подключённые каналы\n"+
			"/lot_size, /num_orders, /lot_multiplier, /max_risk — параметры копирования\n"+
			"/status — счета и открытые позиции")
}

func (t *Telegram) handleTextMessage(ctx context.Context, msg *tgbot.Message) {
	chatID := msg.Chat.ID

	// ждали ввод после команды?
	if what := t.takeAwaiting(chatID); what != "" {
		t.handleAwaited(ctx, chatID, what, msg)
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case "▶️ Включить копирование":
		if ok := t.profs.SetActive(ctx, chatID, true); !ok {
			t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
			return
		}
		if sub, ok := t.profs.Get(chatID); ok {
			if c := t.copierRef(); c != nil {
				c.EnableSubscriber(sub)
			}
		}
		t.Send(ctx, chatID, "✅ Копирование включено.")

	case "⏹ Выключить копирование":
		if ok := t.profs.SetActive(ctx, chatID, false); !ok {
			t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
			return
		}
		if c := t.copierRef(); c != nil {
			c.DisableSubscriber(chatID)
		}
		t.Send(ctx, chatID, "🛑 Копирование выключено. Открытые позиции не трогаю.")

	case "⚙️ Настройки":
		t.handleSettingsMenu(ctx, chatID)

	case "📊 Статус":
		t.handleStatus(ctx, chatID)

	default:
		// прочий текст игнорируем
	}
}

func (t *Telegram) handleCallback(ctx context.Context, chatID int64, cb *tgbot.CallbackQuery) {
	// убираем "часики" на кнопке
	_, _ = t.bot.Request(tgbot.NewCallback(cb.ID, ""))

	data := cb.Data
	if strings.HasPrefix(data, "toggle:") {
		t.handleToggle(ctx, chatID, cb.Message, strings.TrimPrefix(data, "toggle:"))
		return
	}

	switch data {
	case "set_lot_size":
		t.setAwaiting(chatID, awaitLotSize)
		t.Send(ctx, chatID, "Введи базовый лот, например `0.01`")
	case "set_num_orders":
		t.setAwaiting(chatID, awaitNumOrders)
		t.Send(ctx, chatID, "Введи число ордеров на сигнал, например `1`")
	case "set_multiplier":
		t.setAwaiting(chatID, awaitMultiplier)
		t.Send(ctx, chatID, "Введи множитель лота, например `1`")
	case "set_breakeven_pct":
		t.setAwaiting(chatID, awaitBreakevenPct)
		t.Send(ctx, chatID, "Введи процент пути до TP1 для безубытка, например `50`")
	default:
		logger.Info("telegram: unknown callback %q from %d", data, chatID)
	}
}
