package copier

import (
	"sync"

	"copier_bot/internal/models"
	"copier_bot/pkg/logger"
)

// ProfileSource — профили подписчиков глазами ядра (читаем, не пишем).
type ProfileSource interface {
	Get(subscriberID int64) (models.Subscriber, bool)
	IsActive(subscriberID int64) bool
}

// Router держит активные сессии и раздаёт события каналов.
type Router struct {
	profiles   ProfileSource
	engine     *Engine
	dispatcher *Dispatcher

	mu       sync.RWMutex
	sessions map[int64]*session
	// channelID -> сессии, подписанные на канал
	index map[int64][]*session
}

func NewRouter(profiles ProfileSource, e *Engine, d *Dispatcher) *Router {
	return &Router{
		profiles:   profiles,
		engine:     e,
		dispatcher: d,
		sessions:   make(map[int64]*session),
		index:      make(map[int64][]*session),
	}
}

// EnableSubscriber поднимает воркер подписчика и индексирует его каналы.
func (r *Router) EnableSubscriber(sub models.Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sub.ID]; ok {
		return
	}

	sess := newSession(sub.ID, r.profiles, r.engine, r.dispatcher)
	r.sessions[sub.ID] = sess
	for _, ch := range sub.Channels {
		r.index[ch.ID] = append(r.index[ch.ID], sess)
	}

	go sess.worker()
}

// DisableSubscriber гасит воркер и вырезает сессию из индекса каналов.
func (r *Router) DisableSubscriber(subscriberID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[subscriberID]
	if !ok {
		return
	}
	delete(r.sessions, subscriberID)

	for chID, list := range r.index {
		n := list[:0]
		for _, s := range list {
			if s.subscriberID != subscriberID {
				n = append(n, s)
			}
		}
		if len(n) == 0 {
			delete(r.index, chID)
		} else {
			r.index[chID] = n
		}
	}

	// очередь не закрываем: отправитель с устаревшим снапшотом индекса
	// может ещё держать сессию, send в закрытый канал — паника
	sess.cancel()
}

// Subscribe дописывает канал в индекс работающей сессии (после
// /add_channel перезапуск не нужен).
func (r *Router) Subscribe(subscriberID, channelID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[subscriberID]
	if !ok {
		return
	}
	for _, s := range r.index[channelID] {
		if s == sess {
			return
		}
	}
	r.index[channelID] = append(r.index[channelID], sess)
}

// OnChannelPost раздаёт событие всем подписанным сессиям. Очередь
// забита — дропаем с логом, пост канала не повод блокировать бота.
func (r *Router) OnChannelPost(ev models.ChannelEvent) {
	r.mu.RLock()
	targets := r.index[ev.ChannelID]
	r.mu.RUnlock()

	for _, sess := range targets {
		ev := ev
		ev.SubscriberID = sess.subscriberID
		select {
		case sess.queue <- ev:
		default:
			logger.Error("subscriber %d: event queue full, dropped message %d",
				sess.subscriberID, ev.MessageID)
		}
	}
}

// Len — активных сессий (для /stats).
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
