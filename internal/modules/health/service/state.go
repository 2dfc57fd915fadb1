package service

import (
	"sync"
	"sync/atomic"
	"time"
)

// State живое состояние раннера для /healthz и /status в Telegram.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastCycleUnix atomic.Int64 // unix seconds
	lastFeedUnix  atomic.Int64 // последний непустой ответ фида

	mu        sync.RWMutex
	model     string
	matched   bool
	symbols   int
	lastError string
}

// Snapshot копия State на момент чтения.
type Snapshot struct {
	Ready     bool
	Uptime    time.Duration
	LastCycle time.Time
	LastFeed  time.Time
	Model     string
	Matched   bool
	Symbols   int
	LastError string
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) TouchCycle(t time.Time) { s.lastCycleUnix.Store(t.Unix()) }
func (s *State) LastCycle() time.Time   { return fromUnix(s.lastCycleUnix.Load()) }

func (s *State) TouchFeed(t time.Time) { s.lastFeedUnix.Store(t.Unix()) }
func (s *State) LastFeed() time.Time   { return fromUnix(s.lastFeedUnix.Load()) }

// SetMatch итог выбора блока модели в последнем цикле.
func (s *State) SetMatch(model string, matched bool, symbols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model, s.matched, s.symbols = model, matched, symbols
}

func (s *State) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastError = ""
		return
	}
	s.lastError = err.Error()
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Ready:     s.Ready(),
		Uptime:    s.Uptime(),
		LastCycle: s.LastCycle(),
		LastFeed:  s.LastFeed(),
		Model:     s.model,
		Matched:   s.matched,
		Symbols:   s.symbols,
		LastError: s.lastError,
	}
}

func fromUnix(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}
