// Package profile хранит профили подписчиков: счета, каналы, настройки
// копирования. Мапа в памяти + write-through в postgres (если задан DSN),
// чтобы профили переживали рестарт.
package profile

import (
	"context"
	"sync"
	"time"

	"copier_bot/internal/models"
	"copier_bot/internal/modules/config"
	"copier_bot/pkg/db"
	"copier_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type Store struct {
	cfg *config.Config
	db  *db.PgTxManager // nil — работаем только в памяти

	mu   sync.RWMutex
	subs map[int64]*models.Subscriber
}

func NewStore(cfg *config.Config, manager *db.PgTxManager) (*Store, error) {
	s := &Store{
		cfg:  cfg,
		db:   manager,
		subs: make(map[int64]*models.Subscriber),
	}
	if manager != nil {
		if err := s.load(context.Background()); err != nil {
			return nil, errors.Wrap(err, "profile: load subscribers")
		}
		logger.Info("profile: loaded %d subscribers", len(s.subs))
	}
	return s, nil
}

// defaults — настройки нового подписчика из конфига.
func (s *Store) defaults() models.CopySettings {
	return models.CopySettings{
		NumberOfOrders:      s.cfg.DefaultNumberOfOrders,
		BaseLotSize:         s.cfg.DefaultBaseLotSize,
		LotMultiplier:       s.cfg.DefaultLotMultiplier,
		MaxRiskPct:          s.cfg.DefaultMaxRiskPct,
		CopyStopLoss:        s.cfg.DefaultCopyStopLoss,
		CopyTakeProfit:      s.cfg.DefaultCopyTakeProfit,
		ReverseSignals:      s.cfg.DefaultReverseSignals,
		AutoCloseAtTP1:      s.cfg.DefaultAutoCloseAtTP1,
		MoveToBreakeven:     s.cfg.DefaultMoveToBreakeven,
		BreakEvenTriggerPct: s.cfg.DefaultBreakEvenTriggerPct,
	}
}

// Get возвращает снапшот профиля.
func (s *Store) Get(subscriberID int64) (models.Subscriber, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[subscriberID]
	if !ok {
		return models.Subscriber{}, false
	}
	return sub.Snapshot(), true
}

func (s *Store) IsActive(subscriberID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[subscriberID]
	return ok && sub.Active
}

// GetOrCreate заводит профиль при первом /start. При переполнении
// выселяется самый давно неактивный подписчик.
func (s *Store) GetOrCreate(ctx context.Context, subscriberID int64, name string) models.Subscriber {
	s.mu.Lock()
	if sub, ok := s.subs[subscriberID]; ok {
		sub.LastActiveAt = time.Now()
		snap := sub.Snapshot()
		s.mu.Unlock()
		s.persist(ctx, snap)
		return snap
	}

	if len(s.subs) >= s.cfg.MaxSubscribers {
		s.evictOldestLocked()
	}

	now := time.Now()
	sub := &models.Subscriber{
		ID:           subscriberID,
		Name:         name,
		Settings:     s.defaults(),
		Active:       true,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.subs[subscriberID] = sub
	snap := sub.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return snap
}

// Touch отмечает активность (любая команда боту).
func (s *Store) Touch(subscriberID int64) {
	s.mu.Lock()
	if sub, ok := s.subs[subscriberID]; ok {
		sub.LastActiveAt = time.Now()
	}
	s.mu.Unlock()
}

// Mutate применяет правку под локом и пишет результат в базу.
func (s *Store) Mutate(ctx context.Context, subscriberID int64, fn func(*models.Subscriber)) (models.Subscriber, bool) {
	s.mu.Lock()
	sub, ok := s.subs[subscriberID]
	if !ok {
		s.mu.Unlock()
		return models.Subscriber{}, false
	}
	fn(sub)
	sub.LastActiveAt = time.Now()
	snap := sub.Snapshot()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return snap, true
}

func (s *Store) AddAccount(ctx context.Context, subscriberID int64, acc models.Account) bool {
	_, ok := s.Mutate(ctx, subscriberID, func(sub *models.Subscriber) {
		sub.Accounts = append(sub.Accounts, acc)
	})
	return ok
}

func (s *Store) AddChannel(ctx context.Context, subscriberID int64, ch models.Channel) bool {
	_, ok := s.Mutate(ctx, subscriberID, func(sub *models.Subscriber) {
		if !sub.HasChannel(ch.ID) {
			sub.Channels = append(sub.Channels, ch)
		}
	})
	return ok
}

func (s *Store) SetActive(ctx context.Context, subscriberID int64, active bool) bool {
	_, ok := s.Mutate(ctx, subscriberID, func(sub *models.Subscriber) {
		sub.Active = active
	})
	return ok
}

// EvictInactive выселяет подписчиков, молчащих дольше TTL.
// Возвращает их id, чтобы ядро сняло их записи из реестра.
func (s *Store) EvictInactive(ctx context.Context, ttl time.Duration) []int64 {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	var dropped []int64
	for id, sub := range s.subs {
		if sub.LastActiveAt.Before(cutoff) {
			delete(s.subs, id)
			dropped = append(dropped, id)
		}
	}
	s.mu.Unlock()

	for _, id := range dropped {
		s.remove(ctx, id)
	}
	return dropped
}

// All — снапшоты всех профилей (старт сессий при загрузке).
func (s *Store) All() []models.Subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub.Snapshot())
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sub := range s.subs {
		if sub.Active {
			n++
		}
	}
	return n
}

// evictOldestLocked — вызывается под s.mu.
func (s *Store) evictOldestLocked() {
	var oldestID int64
	var oldestAt time.Time
	for id, sub := range s.subs {
		if oldestAt.IsZero() || sub.LastActiveAt.Before(oldestAt) {
			oldestID = id
			oldestAt = sub.LastActiveAt
		}
	}
	if oldestID != 0 {
		delete(s.subs, oldestID)
		logger.Info("profile: capacity reached, evicted subscriber %d", oldestID)
	}
}

// --- постгрес ---

// Схема: subscribers(id bigint primary key, profile jsonb, updated_at timestamptz).
const (
	upsertSQL = `INSERT INTO subscribers (id, profile, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = now()`
	deleteSQL = `DELETE FROM subscribers WHERE id = $1`
	selectSQL = `SELECT profile FROM subscribers`
)

func (s *Store) persist(ctx context.Context, sub models.Subscriber) {
	if s.db == nil {
		return
	}
	raw, err := sonic.Marshal(sub)
	if err != nil {
		logger.Error("profile: marshal subscriber %d: %v", sub.ID, err)
		return
	}
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, upsertSQL, sub.ID, raw)
		return err
	})
	if err != nil {
		// база недоступна — профиль остаётся в памяти, бот живёт дальше
		logger.Error("profile: persist subscriber %d: %v", sub.ID, err)
	}
}

func (s *Store) remove(ctx context.Context, subscriberID int64) {
	if s.db == nil {
		return
	}
	err := s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, deleteSQL, subscriberID)
		return err
	})
	if err != nil {
		logger.Error("profile: delete subscriber %d: %v", subscriberID, err)
	}
}

func (s *Store) load(ctx context.Context) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, selectSQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				return err
			}
			var sub models.Subscriber
			if err := sonic.Unmarshal(raw, &sub); err != nil {
				logger.Error("profile: skip broken row: %v", err)
				continue
			}
			s.subs[sub.ID] = &sub
		}
		return rows.Err()
	})
}
