package playlists

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytdeck/internal/models"
)

func TestStore(t *testing.T) {
	t.Run("Replace selects first playlist", func(t *testing.T) {
		s := NewStore(nil)
		s.Replace([]models.Playlist{{ID: "A"}, {ID: "B"}})

		if got := s.Snapshot().ActiveID(); got != "A" {
			t.Errorf("expected A to be active, got %q", got)
		}

		s.Replace(nil)
		if got := s.Snapshot().ActiveID(); got != "" {
			t.Errorf("expected no active playlist, got %q", got)
		}
	})

	t.Run("Update commits on success", func(t *testing.T) {
		s := NewStore(fixture())
		err := s.Update(func(p *Playlists) error {
			return p.Reorder("X", 0, 2)
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got := ids(s.Snapshot().MustGet("X")); !equal(got, []string{"b", "c", "a"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("Update discards partial work on error", func(t *testing.T) {
		s := NewStore(fixture())
		boom := errors.New("boom")
		err := s.Update(func(p *Playlists) error {
			if _, err := p.Remove("X", 0); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if got := ids(s.Snapshot().MustGet("X")); !equal(got, []string{"a", "b", "c"}) {
			t.Errorf("store should be untouched, got %v", got)
		}
	})

	t.Run("Update releases the lock when fn panics", func(t *testing.T) {
		s := NewStore(fixture())
		func() {
			defer func() {
				if recover() == nil {
					t.Fatal("expected a panic")
				}
			}()
			_ = s.Update(func(p *Playlists) error {
				p.MustGet("missing")
				return nil
			})
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = s.Update(func(p *Playlists) error { return p.Reorder("X", 0, 1) })
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("store stayed locked after a panic")
		}
		if got := ids(s.Snapshot().MustGet("X")); !equal(got, []string{"b", "a", "c"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("View sees live state", func(t *testing.T) {
		s := NewStore(fixture())
		var n int
		s.View(func(p *Playlists) { n = p.Len() })
		if n != 2 {
			t.Errorf("expected 2 playlists, got %d", n)
		}
	})

	t.Run("Subscribe receives latest snapshot", func(t *testing.T) {
		s := NewStore(fixture())
		ch, cancel := s.Subscribe()
		defer cancel()

		for i := range 3 {
			_ = s.Update(func(p *Playlists) error { return p.SetIndex("X", i) })
		}

		select {
		case snap := <-ch:
			if got := snap.MustGet("X").Index; got != 2 {
				t.Errorf("expected latest index 2, got %d", got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		s := NewStore(fixture())
		ch, cancel := s.Subscribe()
		cancel()
		cancel()

		if _, ok := <-ch; ok {
			t.Error("expected closed channel")
		}
		_ = s.Update(func(p *Playlists) error { return nil })
	})
}
