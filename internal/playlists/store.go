package playlists

import (
	"sync"

	"github.com/desertthunder/ytdeck/internal/models"
)

// Store owns the live aggregate and serializes every mutation.
type Store struct {
	mu      sync.RWMutex
	current *Playlists
	subs    map[int]chan *Playlists
	nextSub int
}

// NewStore wraps p. A nil p starts empty.
func NewStore(p *Playlists) *Store {
	if p == nil {
		p = New(nil)
	}
	return &Store{current: p, subs: make(map[int]chan *Playlists)}
}

// Update runs fn against a working copy and commits it when fn returns nil.
//
// A failing fn leaves the store untouched. fn must not call back into the store.
func (s *Store) Update(fn func(*Playlists) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.current.Snapshot()
	if err := fn(work); err != nil {
		return err
	}
	s.current = work
	s.publishLocked()
	return nil
}

// Replace swaps the whole collection, as after a fresh fetch, and selects the first playlist.
func (s *Store) Replace(items []models.Playlist) {
	next := New(items)
	if next.Len() > 0 {
		next.activeID = next.items[0].ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	s.publishLocked()
}

// View runs fn with read access to the live aggregate. fn must not retain p or mutate it.
func (s *Store) View(fn func(p *Playlists)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.current)
}

// Snapshot returns a deep copy of the current aggregate.
func (s *Store) Snapshot() *Playlists {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Snapshot()
}

// Subscribe returns a channel that receives a snapshot after every commit and a function to stop receiving.
//
// Slow readers only see the most recent snapshot.
func (s *Store) Subscribe() (<-chan *Playlists, func()) {
	ch := make(chan *Playlists, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publishLocked() {
	for _, ch := range s.subs {
		snap := s.current.Snapshot()
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
