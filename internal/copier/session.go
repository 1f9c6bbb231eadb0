package copier

import (
	"context"

	"copier_bot/internal/models"
	"copier_bot/internal/parser"
	"copier_bot/pkg/logger"
)

// держим последние обработанные сообщения для защиты от дублей доставки
const dedupWindow = 256

// message id в Telegram уникален только внутри канала, поэтому ключ
// дедупликации парный.
type messageKey struct {
	channelID int64
	messageID int
}

// session — воркер одного подписчика. Все его события идут через одну
// очередь, поэтому порядок по (канал, символ) совпадает с порядком
// прихода и реестр не ловит гонку put/attach между сообщениями.
type session struct {
	subscriberID int64

	profiles   ProfileSource
	engine     *Engine
	dispatcher *Dispatcher

	queue chan models.ChannelEvent

	// отмена живёт в сессии: очередь не закрываем, чтобы отправители
	// с устаревшим снапшотом индекса не падали на send.
	ctx    context.Context
	cancel context.CancelFunc

	seen     map[messageKey]struct{}
	seenRing []messageKey
}

func newSession(subscriberID int64, profiles ProfileSource, e *Engine, d *Dispatcher) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		subscriberID: subscriberID,
		profiles:     profiles,
		engine:       e,
		dispatcher:   d,
		queue:        make(chan models.ChannelEvent, 64),
		ctx:          ctx,
		cancel:       cancel,
		seen:         make(map[messageKey]struct{}, dedupWindow),
	}
}

// worker крутится до отмены сессии (DisableSubscriber).
func (s *session) worker() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.queue:
			s.handle(s.ctx, ev)
		}
	}
}

func (s *session) handle(ctx context.Context, ev models.ChannelEvent) {
	// select в worker может вытащить событие и после отмены
	if ctx.Err() != nil {
		return
	}
	if s.duplicate(ev.ChannelID, ev.MessageID) {
		return
	}

	sub, ok := s.profiles.Get(s.subscriberID)
	if !ok || !sub.Active {
		return
	}

	sig := parser.Parse(ev.Text)
	if sig == nil {
		return
	}

	if sub.Settings.ReverseSignals && !sig.IsUpdate {
		sig.Action = sig.Action.Reverse()
	}

	if sig.IsUpdate {
		s.dispatcher.Dispatch(ctx, sub, ev.ChannelID, *sig)
		return
	}

	logger.Info("signal %s %s from channel %d for subscriber %d",
		sig.Action, sig.Symbol, ev.ChannelID, s.subscriberID)
	s.engine.Execute(ctx, sub, ev.ChannelID, *sig)
}

func (s *session) duplicate(channelID int64, messageID int) bool {
	if messageID == 0 {
		return false
	}
	key := messageKey{channelID: channelID, messageID: messageID}
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = struct{}{}
	s.seenRing = append(s.seenRing, key)
	if len(s.seenRing) > dedupWindow {
		delete(s.seen, s.seenRing[0])
		s.seenRing = s.seenRing[1:]
	}
	return false
}
