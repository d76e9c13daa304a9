package application

import (
	"sync"
	"time"

	"jarvis/internal/domain"
)

const subscriberBuffer = 16

// StateStore owns the screen state and fans snapshots out to subscribers.
// Every request opens a new generation; updates carrying an older generation
// are dropped, so a superseded request's timer or completion cannot touch the
// state of the one that replaced it.
type StateStore struct {
	mu      sync.Mutex
	state   domain.State
	gen     uint64
	subs    map[int]chan domain.State
	nextSub int
	closed  bool
	now     func() time.Time
}

func NewStateStore(query string) *StateStore {
	s := &StateStore{
		subs: make(map[int]chan domain.State),
		now:  time.Now,
	}
	s.state = domain.State{Query: query, Playback: domain.PlaybackIdle, UpdatedAt: s.now()}
	return s
}

func (s *StateStore) Snapshot() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin opens a generation for a new request: loading, transcript and error
// cleared.
func (s *StateStore) Begin(requestID, query string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.state = domain.State{
		RequestID: requestID,
		Query:     query,
		Playback:  domain.PlaybackLoading,
	}
	s.publishLocked()
	return s.gen
}

// Update applies fn if gen is still current and reports whether it did.
func (s *StateStore) Update(gen uint64, fn func(*domain.State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		return false
	}

	next := s.state
	fn(&next)
	if next == s.state {
		return true
	}
	s.state = next
	s.publishLocked()
	return true
}

func (s *StateStore) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state.Query == query {
		return
	}
	s.state.Query = query
	s.publishLocked()
}

// Subscribe returns a channel that receives the current state immediately
// and every later one. Slow readers lose intermediate snapshots, never the
// latest.
func (s *StateStore) Subscribe() (<-chan domain.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.State, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Close settles the state to idle, invalidates the current generation and
// closes every subscriber.
func (s *StateStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.gen++
	if s.state.Playback != domain.PlaybackIdle {
		s.state.Playback = domain.PlaybackIdle
		s.publishLocked()
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *StateStore) publishLocked() {
	s.state.UpdatedAt = s.now()
	snap := s.state

	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
