// Package registry хранит последние открытые сигналы и позиции,
// которые они породили, для последующих update-сообщений.
package registry

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"copier_bot/internal/models"
)

const shardCount = 16

// Key — один открытый сигнал на (подписчик, канал, символ).
type Key struct {
	SubscriberID int64
	ChannelID    int64
	Symbol       string
}

// Entry — снапшот записи. Positions копируется, мутировать безопасно.
type Entry struct {
	Signal    models.Signal
	CreatedAt time.Time
	Positions []models.PositionRef
}

// Ticket выдаётся Put'ом и привязывает AttachPosition к конкретному
// поколению записи: если запись заменили или выселили, отставший
// исполнитель ничего не допишет.
type Ticket struct {
	key Key
	gen uint64
}

func (t Ticket) Key() Key { return t.key }

type entry struct {
	gen       uint64
	signal    models.Signal
	createdAt time.Time
	positions []models.PositionRef
}

type shard struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// Store — шардированная мапа: операции по разным ключам не блокируют
// друг друга, по одному ключу — last-writer-wins без слияния списков.
type Store struct {
	now    func() time.Time
	gen    uint64
	genMu  sync.Mutex
	shards [shardCount]shard
}

// New создаёт store с инжектированными часами (в тестах — фейковые).
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{now: now}
	for i := range s.shards {
		s.shards[i].entries = make(map[Key]*entry)
	}
	return s
}

func (s *Store) shard(k Key) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(k.SubscriberID, 10)))
	_, _ = h.Write([]byte(strconv.FormatInt(k.ChannelID, 10)))
	_, _ = h.Write([]byte(k.Symbol))
	return &s.shards[h.Sum32()%shardCount]
}

func (s *Store) nextGen() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gen++
	return s.gen
}

// Put записывает сигнал, замещая прежнюю запись по этому ключу вместе
// со списком её позиций.
func (s *Store) Put(k Key, sig models.Signal) Ticket {
	gen := s.nextGen()
	sh := s.shard(k)
	sh.mu.Lock()
	sh.entries[k] = &entry{
		gen:       gen,
		signal:    sig,
		createdAt: s.now(),
	}
	sh.mu.Unlock()
	return Ticket{key: k, gen: gen}
}

// Get возвращает копию записи.
func (s *Store) Get(k Key) (Entry, bool) {
	sh := s.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[k]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Signal:    e.signal,
		CreatedAt: e.createdAt,
		Positions: append([]models.PositionRef(nil), e.positions...),
	}, true
}

// AttachPosition дописывает позицию к записи тикета. No-op (false),
// если запись выселена или заменена более новым сигналом.
func (s *Store) AttachPosition(t Ticket, ref models.PositionRef) bool {
	sh := s.shard(t.key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[t.key]
	if !ok || e.gen != t.gen {
		return false
	}
	e.positions = append(e.positions, ref)
	return true
}

// EvictOlderThan выселяет записи старше окна. Возвращает число удалённых.
func (s *Store) EvictOlderThan(window time.Duration) int {
	cutoff := s.now().Add(-window)
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.createdAt.Before(cutoff) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// DropSubscriber удаляет все записи пользователя (чистка по TTL профиля).
func (s *Store) DropSubscriber(subscriberID int64) int {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k := range sh.entries {
			if k.SubscriberID == subscriberID {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len — всего записей (для /stats).
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
