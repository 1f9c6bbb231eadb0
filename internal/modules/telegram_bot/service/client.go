package service

import (
	"context"
	"fmt"
	"sync"

	"copier_bot/internal/models"
	"copier_bot/internal/modules/config"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/internal/profile"
	"copier_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Copier — ядро копирования глазами бота. Привязывается после сборки
// (BindCopier), чтобы не заворачивать конструкторы в цикл.
type Copier interface {
	OnChannelPost(ev models.ChannelEvent)
	EnableSubscriber(sub models.Subscriber)
	DisableSubscriber(subscriberID int64)
	Subscribe(subscriberID, channelID int64)
}

// Telegram — бот: команды, меню, приём постов из каналов.
type Telegram struct {
	bot     *tgbot.BotAPI
	cfg     *config.Config
	profs   *profile.Store
	trading *metaapi.Client

	mu     sync.Mutex
	copier Copier
	// chatID -> чего ждём следующим сообщением (логин счёта, id канала...)
	awaiting map[int64]string
}

func NewTelegram(cfg *config.Config, profs *profile.Store, trading *metaapi.Client) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:      b,
		cfg:      cfg,
		profs:    profs,
		trading:  trading,
		awaiting: make(map[int64]string),
	}, nil
}

func (t *Telegram) BindCopier(c Copier) {
	t.mu.Lock()
	t.copier = c
	t.mu.Unlock()
}

func (t *Telegram) copierRef() Copier {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copier
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendMessage(_ context.Context, message tgbot.MessageConfig) (tgbot.Message, error) {
	return t.bot.Send(message)
}

// Probe — стартовая проверка: токен бота и связность с торговым шлюзом.
func (t *Telegram) Probe(ctx context.Context) error {
	me, err := t.bot.GetMe()
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.Info("telegram: authorized as @%s", me.UserName)

	accs, err := t.trading.ListAccounts(ctx)
	if err != nil {
		if metaapi.IsFunding(err) {
			logger.Error("metaapi probe: баланс аккаунта MetaApi исчерпан, пополните его")
		}
		return fmt.Errorf("metaapi probe: %w", err)
	}
	logger.Info("metaapi: reachable, %d accounts provisioned", len(accs))
	return nil
}

// Start крутит long-poll апдейтов, пока канал не закрыт.
func (t *Telegram) Start(ctx context.Context) error {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query"}

	updates := t.bot.GetUpdatesChan(u)
	for update := range updates {
		t.handleUpdate(ctx, update)
	}
	return nil
}

func (t *Telegram) Stop() {
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) setAwaiting(chatID int64, what string) {
	t.mu.Lock()
	if what == "" {
		delete(t.awaiting, chatID)
	} else {
		t.awaiting[chatID] = what
	}
	t.mu.Unlock()
}

func (t *Telegram) takeAwaiting(chatID int64) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	what := t.awaiting[chatID]
	delete(t.awaiting, chatID)
	return what
}
