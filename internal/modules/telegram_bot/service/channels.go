package service

import (
	"context"
	"strconv"
	"strings"

	"copier_bot/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleChannelPost — пост из канала, где бот состоит. Раздаём его
// всем подписанным на канал сессиям.
func (t *Telegram) handleChannelPost(post *tgbot.Message) {
	c := t.copierRef()
	if c == nil || post.Chat == nil || post.Text == "" {
		return
	}

	c.OnChannelPost(models.ChannelEvent{
		ChannelID: post.Chat.ID,
		MessageID: post.MessageID,
		Text:      post.Text,
	})
}

// handleAddChannel принимает форвард поста из канала, @username или
// голый числовой ID.
func (t *Telegram) handleAddChannel(ctx context.Context, chatID int64, msg *tgbot.Message) {
	var ch models.Channel

	text := strings.TrimSpace(msg.Text)
	switch {
	case msg.ForwardFromChat != nil:
		fw := msg.ForwardFromChat
		ch = models.Channel{ID: fw.ID, Title: fw.Title, Username: fw.UserName}
	case strings.HasPrefix(text, "@"):
		chat, err := t.bot.GetChat(tgbot.ChatInfoConfig{
			ChatConfig: tgbot.ChatConfig{SuperGroupUsername: text},
		})
		if err != nil {
			t.SendF(ctx, chatID, "Не нашёл канал %s: %v", text, err)
			return
		}
		ch = models.Channel{ID: chat.ID, Title: chat.Title, Username: chat.UserName}
	default:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			t.Send(ctx, chatID, "Это не похоже ни на форвард, ни на @username, ни на ID канала. Начни заново: /add_channel")
			return
		}
		ch = models.Channel{ID: id}
	}

	if ok := t.profs.AddChannel(ctx, chatID, ch); !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}
	if c := t.copierRef(); c != nil {
		c.Subscribe(chatID, ch.ID)
	}

	title := ch.Title
	if title == "" {
		title = strconv.FormatInt(ch.ID, 10)
	}
	t.SendF(ctx, chatID, "✅ Канал «%s» подключён. Не забудь добавить бота в канал, иначе посты не видны.", title)
}

func (t *Telegram) handleListChannels(ctx context.Context, chatID int64) {
	sub, ok := t.profs.Get(chatID)
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}
	if len(sub.Channels) == 0 {
		t.Send(ctx, chatID, "📭 Каналы не подключены. /add_channel")
		return
	}

	var b strings.Builder
	b.WriteString("📡 Подключённые каналы:\n")
	for _, ch := range sub.Channels {
		title := ch.Title
		if title == "" {
			title = strconv.FormatInt(ch.ID, 10)
		}
		if ch.Username != "" {
			title += " (@" + ch.Username + ")"
		}
		b.WriteString("• " + title + "\n")
	}
	t.Send(ctx, chatID, b.String())
}
