package registry

import (
	"sync"
	"testing"
	"time"

	"copier_bot/internal/models"
)

var testKey = Key{SubscriberID: 7, ChannelID: -100123, Symbol: "XAUUSD"}

func sig(action models.Action) models.Signal {
	return models.Signal{Action: action, Symbol: "XAUUSD"}
}

func TestPutGetAttach(t *testing.T) {
	s := New(nil)
	ticket := s.Put(testKey, sig(models.ActionBuy))

	if !s.AttachPosition(ticket, models.PositionRef{AccountID: "a1", PositionID: "p1", Symbol: "XAUUSD"}) {
		t.Fatal("AttachPosition returned false for live ticket")
	}

	e, ok := s.Get(testKey)
	if !ok {
		t.Fatal("Get: entry missing")
	}
	if e.Signal.Action != models.ActionBuy || len(e.Positions) != 1 {
		t.Fatalf("entry = %+v", e)
	}
	if e.Positions[0].PositionID != "p1" {
		t.Errorf("position = %+v", e.Positions[0])
	}
}

func TestReplaceDiscardsPositions(t *testing.T) {
	s := New(nil)
	old := s.Put(testKey, sig(models.ActionBuy))
	s.AttachPosition(old, models.PositionRef{AccountID: "a1", PositionID: "p1"})

	// новый сигнал по тому же ключу замещает запись целиком
	fresh := s.Put(testKey, sig(models.ActionSell))
	s.AttachPosition(fresh, models.PositionRef{AccountID: "a1", PositionID: "p2"})

	e, ok := s.Get(testKey)
	if !ok {
		t.Fatal("Get: entry missing")
	}
	if e.Signal.Action != models.ActionSell {
		t.Errorf("signal not replaced: %+v", e.Signal)
	}
	if len(e.Positions) != 1 || e.Positions[0].PositionID != "p2" {
		t.Errorf("positions = %+v, want only p2", e.Positions)
	}

	// отставший исполнитель старого сигнала ничего не дописывает
	if s.AttachPosition(old, models.PositionRef{AccountID: "a1", PositionID: "p3"}) {
		t.Error("stale ticket attach must be a no-op")
	}
	e, _ = s.Get(testKey)
	if len(e.Positions) != 1 {
		t.Errorf("positions after stale attach = %+v", e.Positions)
	}
}

func TestAttachAfterEvict(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s := New(clock)

	ticket := s.Put(testKey, sig(models.ActionBuy))
	now = now.Add(8 * 24 * time.Hour)
	if removed := s.EvictOlderThan(7 * 24 * time.Hour); removed != 1 {
		t.Fatalf("EvictOlderThan removed %d, want 1", removed)
	}
	if s.AttachPosition(ticket, models.PositionRef{PositionID: "p1"}) {
		t.Error("attach to evicted entry must be a no-op")
	}
	if _, ok := s.Get(testKey); ok {
		t.Error("entry must be gone after eviction")
	}
}

func TestEvictKeepsFresh(t *testing.T) {
	now := time.Now()
	s := New(func() time.Time { return now })

	oldKey := Key{SubscriberID: 1, ChannelID: 1, Symbol: "XAUUSD"}
	s.Put(oldKey, sig(models.ActionBuy))

	now = now.Add(48 * time.Hour)
	freshKey := Key{SubscriberID: 1, ChannelID: 1, Symbol: "BTCUSD"}
	s.Put(freshKey, sig(models.ActionSell))

	if removed := s.EvictOlderThan(24 * time.Hour); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := s.Get(freshKey); !ok {
		t.Error("fresh entry must survive eviction")
	}
}

func TestDropSubscriber(t *testing.T) {
	s := New(nil)
	s.Put(Key{SubscriberID: 1, ChannelID: 1, Symbol: "XAUUSD"}, sig(models.ActionBuy))
	s.Put(Key{SubscriberID: 1, ChannelID: 2, Symbol: "BTCUSD"}, sig(models.ActionBuy))
	s.Put(Key{SubscriberID: 2, ChannelID: 1, Symbol: "XAUUSD"}, sig(models.ActionBuy))

	if n := s.DropSubscriber(1); n != 2 {
		t.Fatalf("DropSubscriber = %d, want 2", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestConcurrentDistinctKeys(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := Key{SubscriberID: int64(i), ChannelID: 1, Symbol: "XAUUSD"}
			tk := s.Put(k, sig(models.ActionBuy))
			for j := 0; j < 10; j++ {
				s.AttachPosition(tk, models.PositionRef{PositionID: "p"})
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 32 {
		t.Fatalf("Len = %d, want 32", s.Len())
	}
}
