package service

import (
	"sync/atomic"
	"time"
)

// State — общее здоровье процесса: готовность, поток котировок.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected   atomic.Bool
	lastQuoteUnix atomic.Int64 // unix seconds
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchQuote(t time.Time) { s.lastQuoteUnix.Store(t.Unix()) }
func (s *State) LastQuote() time.Time {
	u := s.lastQuoteUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

// QuoteStale: поток подключён, но котировок нет дольше maxAge.
// Пока не было ни одной котировки, за staleness не считаем.
func (s *State) QuoteStale(maxAge time.Duration) bool {
	t := s.LastQuote()
	if t.IsZero() {
		return false
	}
	return time.Since(t) > maxAge
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
