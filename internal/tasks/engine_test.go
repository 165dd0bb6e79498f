package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/repositories"
	"github.com/desertthunder/ytdeck/internal/shared"
	tu "github.com/desertthunder/ytdeck/internal/testing"
)

type engineFixture struct {
	engine   *Engine
	store    *playlists.Store
	catalog  *tu.MockCatalog
	journal  *repositories.SyncJournalRepository
	trash    *repositories.TrashRepository
	progress chan SyncUpdate
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newEngineFixture(t *testing.T, token string) *engineFixture {
	t.Helper()

	db := setupTestDB(t)
	f := &engineFixture{
		store:    playlists.NewStore(fixture(t)),
		catalog:  tu.NewMockCatalog(),
		journal:  repositories.NewSyncJournalRepository(db),
		trash:    repositories.NewTrashRepository(db),
		progress: make(chan SyncUpdate, 32),
	}
	f.engine = NewEngine(EngineOpts{
		Store:       f.store,
		Catalog:     f.catalog,
		Credentials: StaticToken(token),
		Journal:     f.journal,
		Trash:       f.trash,
		Progress:    f.progress,
	})
	return f
}

func (f *engineFixture) apply(t *testing.T, m Move) Outcome {
	t.Helper()
	outcome, err := f.engine.Apply(context.Background(), m)
	if err != nil {
		t.Fatalf("Apply(%v -> %v): %v", m.Source, m.Destination, err)
	}
	f.engine.Wait()
	return outcome
}

func (f *engineFixture) records(t *testing.T, status models.SyncStatus) []*models.SyncRecord {
	t.Helper()
	records, err := f.journal.List(map[string]any{"status": string(status)})
	if err != nil {
		t.Fatalf("failed to list journal: %v", err)
	}
	return records
}

func sameOps(got []string, want ...string) bool { return sameIDs(got, want) }

func TestEngineScenarios(t *testing.T) {
	t.Run("reorder before the playing item", func(t *testing.T) {
		f := newEngineFixture(t, "tok")

		if got := f.apply(t, Move{Source: Location{"X", 0}, Destination: to("X", 2)}); got != OutcomeReordered {
			t.Errorf("expected reordered, got %s", got)
		}

		snap := f.store.Snapshot()
		x := snap.MustGet("X")
		if !sameIDs(itemIDs(x), []string{"b", "c", "a"}) {
			t.Errorf("expected X=[b c a], got %v", itemIDs(x))
		}
		if x.Index != 0 {
			t.Errorf("expected play index 0, got %d", x.Index)
		}

		calls := f.catalog.Calls()
		if len(calls) != 1 || calls[0].Op != "update" || calls[0].ItemID != "a" || calls[0].Position != 2 || calls[0].PlaylistID != "X" {
			t.Errorf("expected one update of a to 2, got %+v", calls)
		}
		if calls[0].Token != "tok" {
			t.Errorf("expected token tok, got %q", calls[0].Token)
		}
		if n := len(f.records(t, models.SyncConfirmed)); n != 1 {
			t.Errorf("expected 1 confirmed record, got %d", n)
		}
	})

	t.Run("move the playing item to another playlist", func(t *testing.T) {
		f := newEngineFixture(t, "tok")

		if got := f.apply(t, Move{Source: Location{"X", 1}, Destination: to("Y", 0)}); got != OutcomeMoved {
			t.Errorf("expected moved, got %s", got)
		}

		snap := f.store.Snapshot()
		if !sameIDs(itemIDs(snap.MustGet("X")), []string{"a", "c"}) {
			t.Errorf("expected X=[a c], got %v", itemIDs(snap.MustGet("X")))
		}
		y := snap.MustGet("Y")
		if snap.ActiveID() != "Y" || y.Index != 0 {
			t.Errorf("expected Y active at 0, got %s at %d", snap.ActiveID(), y.Index)
		}
		if y.Items[0].Resource.VideoID != "v-b" || y.Items[0].PlaylistID != "Y" {
			t.Errorf("expected b relabelled into Y, got %+v", y.Items[0])
		}
		if y.Items[0].ID != "new-1" {
			t.Errorf("expected provider id new-1 to replace b, got %s", y.Items[0].ID)
		}
		if len(y.Items) != 3 {
			t.Errorf("expected Y to have 3 items, got %d", len(y.Items))
		}

		calls := f.catalog.Calls()
		if !sameOps(f.catalog.Ops(), "insert", "delete") {
			t.Fatalf("expected insert then delete, got %v", f.catalog.Ops())
		}
		if calls[0].PlaylistID != "Y" || calls[0].Position != 0 || calls[0].Resource.VideoID != "v-b" {
			t.Errorf("unexpected insert %+v", calls[0])
		}
		if calls[1].ItemID != "b" {
			t.Errorf("expected delete of the original membership b, got %s", calls[1].ItemID)
		}
	})

	t.Run("trash an item after the playing item", func(t *testing.T) {
		f := newEngineFixture(t, "tok")

		if got := f.apply(t, Move{Source: Location{"X", 2}, Destination: to(TrashID, 0)}); got != OutcomeTrashed {
			t.Errorf("expected trashed, got %s", got)
		}

		x := f.store.Snapshot().MustGet("X")
		if !sameIDs(itemIDs(x), []string{"a", "b"}) || x.Index != 1 {
			t.Errorf("expected X=[a b] playing 1, got %v playing %d", itemIDs(x), x.Index)
		}

		calls := f.catalog.Calls()
		if len(calls) != 1 || calls[0].Op != "delete" || calls[0].ItemID != "c" {
			t.Errorf("expected exactly one delete of c, got %+v", calls)
		}

		entries, err := f.trash.List(nil)
		if err != nil {
			t.Fatalf("failed to list trash: %v", err)
		}
		if len(entries) != 1 || entries[0].Item.ID != "c" || entries[0].PlaylistID != "X" || entries[0].Position != 2 {
			t.Errorf("unexpected trash contents %+v", entries)
		}
	})

	t.Run("drop on the same slot", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		before := f.store.Snapshot()

		if got := f.apply(t, Move{Source: Location{"X", 0}, Destination: to("X", 0)}); got != OutcomeNoop {
			t.Errorf("expected noop, got %s", got)
		}

		after := f.store.Snapshot()
		if !sameIDs(itemIDs(after.MustGet("X")), itemIDs(before.MustGet("X"))) || after.MustGet("X").Index != 1 {
			t.Error("expected no local change")
		}
		if len(f.catalog.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", f.catalog.Ops())
		}
	})

	t.Run("drop outside any target", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		if got := f.apply(t, Move{Source: Location{"X", 0}}); got != OutcomeNoop {
			t.Errorf("expected noop, got %s", got)
		}
		if len(f.catalog.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", f.catalog.Ops())
		}
	})

	t.Run("move before the playing item shifts it", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		f.apply(t, Move{Source: Location{"X", 2}, Destination: to("X", 0)})

		x := f.store.Snapshot().MustGet("X")
		if !sameIDs(itemIDs(x), []string{"c", "a", "b"}) || x.Index != 2 {
			t.Errorf("expected X=[c a b] playing 2, got %v playing %d", itemIDs(x), x.Index)
		}
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("no token changes nothing", func(t *testing.T) {
		f := newEngineFixture(t, "")
		before := itemIDs(f.store.Snapshot().MustGet("X"))

		_, err := f.engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to("X", 2)})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		f.engine.Wait()

		if got := itemIDs(f.store.Snapshot().MustGet("X")); !sameIDs(got, before) {
			t.Errorf("expected no local change, got %v", got)
		}
		if len(f.catalog.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", f.catalog.Ops())
		}
	})

	t.Run("invalid move leaves the store untouched", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		_, err := f.engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to("Y", 9)})
		if !errors.Is(err, shared.ErrInvalidMove) {
			t.Fatalf("expected ErrInvalidMove, got %v", err)
		}
		f.engine.Wait()

		snap := f.store.Snapshot()
		if len(snap.MustGet("X").Items) != 3 || len(snap.MustGet("Y").Items) != 2 {
			t.Error("expected partial removal to be discarded")
		}
		if len(f.catalog.Calls()) != 0 {
			t.Errorf("expected no remote calls, got %v", f.catalog.Ops())
		}
	})

	t.Run("remote writes run in order", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		if _, err := f.engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to("X", 2)}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if _, err := f.engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to(TrashID, 0)}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if _, err := f.engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to("Y", 2)}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		f.engine.Wait()

		if !sameOps(f.catalog.Ops(), "update", "delete", "insert", "delete") {
			t.Errorf("unexpected call order %v", f.catalog.Ops())
		}
	})

	t.Run("failed insert skips the delete", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		f.catalog.SetError("insert", errors.New("quota exceeded"))

		f.apply(t, Move{Source: Location{"X", 0}, Destination: to("Y", 0)})

		if !sameOps(f.catalog.Ops(), "insert") {
			t.Errorf("expected only the insert to be attempted, got %v", f.catalog.Ops())
		}

		failed := f.records(t, models.SyncFailed)
		if len(failed) != 2 {
			t.Fatalf("expected 2 failed records, got %d", len(failed))
		}
		if failed[0].Op != models.OpInsert || failed[0].LastError != "quota exceeded" {
			t.Errorf("unexpected insert record %+v", failed[0])
		}
		if failed[1].Op != models.OpDelete || failed[1].LastError != errInsertFailed.Error() {
			t.Errorf("unexpected delete record %+v", failed[1])
		}

		if got := itemIDs(f.store.Snapshot().MustGet("Y")); !sameIDs(got, []string{"a", "d", "e"}) {
			t.Errorf("expected the local move to stay applied, got %v", got)
		}

		var sawFailure bool
		for len(f.progress) > 0 {
			if u := <-f.progress; u.Err != nil {
				sawFailure = true
			}
		}
		if !sawFailure {
			t.Error("expected a failed progress update")
		}
	})

	t.Run("Retry re-issues failed writes", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		f.catalog.SetError("insert", errors.New("quota exceeded"))
		f.apply(t, Move{Source: Location{"X", 0}, Destination: to("Y", 0)})
		f.catalog.SetError("insert", nil)

		result, err := f.engine.Retry(ctx)
		if err != nil {
			t.Fatalf("Retry: %v", err)
		}
		if result.Attempted != 2 || result.Confirmed != 2 || result.Failed != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if !sameOps(f.catalog.Ops(), "insert", "insert", "delete") {
			t.Errorf("unexpected calls %v", f.catalog.Ops())
		}
		if n := len(f.records(t, models.SyncFailed)); n != 0 {
			t.Errorf("expected no failed records, got %d", n)
		}

		calls := f.catalog.Calls()
		if calls[2].ItemID != "a" {
			t.Errorf("expected delete of the original membership a, got %s", calls[2].ItemID)
		}
		if got := f.store.Snapshot().MustGet("Y").Items[0].ID; got != "new-1" {
			t.Errorf("expected adopted id new-1, got %s", got)
		}
	})

	t.Run("Retry without failures", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		result, err := f.engine.Retry(ctx)
		if err != nil {
			t.Fatalf("Retry: %v", err)
		}
		if result.Attempted != 0 {
			t.Errorf("expected nothing to retry, got %+v", result)
		}
	})

	t.Run("Wait on an idle engine returns", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		done := make(chan struct{})
		go func() {
			defer close(done)
			f.engine.Wait()
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Wait blocked with nothing queued")
		}
	})

	t.Run("Retry while moves are being queued", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		const moves = 20

		errs := make(chan error, 1)
		go func() {
			defer close(errs)
			for range moves {
				if _, err := f.engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to("X", 1)}); err != nil {
					errs <- err
					return
				}
			}
		}()
		for range moves {
			if _, err := f.engine.Retry(ctx); err != nil {
				t.Fatalf("Retry: %v", err)
			}
			f.engine.Wait()
		}
		if err := <-errs; err != nil {
			t.Fatalf("Apply: %v", err)
		}
		f.engine.Wait()

		if n := len(f.records(t, models.SyncConfirmed)); n != moves {
			t.Errorf("expected %d confirmed records, got %d", moves, n)
		}
		if n := len(f.records(t, models.SyncPending)); n != 0 {
			t.Errorf("expected no pending records, got %d", n)
		}
	})

	t.Run("later moves address the adopted id", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		f.apply(t, Move{Source: Location{"X", 1}, Destination: to("Y", 0)})
		f.apply(t, Move{Source: Location{"Y", 0}, Destination: to("Y", 2)})

		calls := f.catalog.Calls()
		if len(calls) != 3 || calls[2].Op != "update" || calls[2].ItemID != "new-1" {
			t.Errorf("expected update of new-1, got %+v", calls)
		}

		y := f.store.Snapshot().MustGet("Y")
		if y.Index != 2 || y.Items[2].ID != "new-1" {
			t.Errorf("expected the playing item to follow to 2, got index %d", y.Index)
		}
	})

	t.Run("Restore re-inserts a trashed item", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		f.apply(t, Move{Source: Location{"X", 0}, Destination: to(TrashID, 0)})

		entries, err := f.trash.List(map[string]any{"restored": false})
		if err != nil || len(entries) != 1 {
			t.Fatalf("expected one trash entry, got %d (%v)", len(entries), err)
		}

		entry, err := f.engine.Restore(ctx, entries[0].ID())
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		f.engine.Wait()

		if !entry.Restored() {
			t.Error("expected entry to be marked restored")
		}

		x := f.store.Snapshot().MustGet("X")
		if x.Items[0].Resource.VideoID != "v-a" || x.Index != 1 {
			t.Errorf("expected a back at 0 with b still playing, got %v playing %d", itemIDs(x), x.Index)
		}
		if x.Items[0].ID != "new-1" {
			t.Errorf("expected restored membership to carry the new id, got %s", x.Items[0].ID)
		}

		if !sameOps(f.catalog.Ops(), "delete", "insert") {
			t.Errorf("unexpected calls %v", f.catalog.Ops())
		}
		if call := f.catalog.Calls()[1]; call.PlaylistID != "X" || call.Position != 0 {
			t.Errorf("unexpected insert %+v", call)
		}

		if _, err := f.engine.Restore(ctx, entries[0].ID()); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput on second restore, got %v", err)
		}
	})

	t.Run("Restore clamps to the end", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		f.apply(t, Move{Source: Location{"X", 2}, Destination: to(TrashID, 0)})
		f.apply(t, Move{Source: Location{"X", 1}, Destination: to("Y", 0)})

		entries, err := f.trash.List(nil)
		if err != nil || len(entries) != 1 {
			t.Fatalf("expected one trash entry, got %d (%v)", len(entries), err)
		}
		if _, err := f.engine.Restore(ctx, entries[0].ID()); err != nil {
			t.Fatalf("Restore: %v", err)
		}
		f.engine.Wait()

		x := f.store.Snapshot().MustGet("X")
		if len(x.Items) != 2 || x.Items[1].Resource.VideoID != "v-c" {
			t.Errorf("expected c appended to X, got %v", itemIDs(x))
		}
	})

	t.Run("Restore unknown entry", func(t *testing.T) {
		f := newEngineFixture(t, "tok")
		if _, err := f.engine.Restore(ctx, "missing"); !errors.Is(err, shared.ErrTrashNotFound) {
			t.Errorf("expected ErrTrashNotFound, got %v", err)
		}
	})

	t.Run("without journal or trash", func(t *testing.T) {
		store := playlists.NewStore(fixture(t))
		catalog := tu.NewMockCatalog()
		engine := NewEngine(EngineOpts{Store: store, Catalog: catalog, Credentials: StaticToken("tok")})

		if _, err := engine.Apply(ctx, Move{Source: Location{"X", 0}, Destination: to(TrashID, 0)}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		engine.Wait()

		if !sameOps(catalog.Ops(), "delete") {
			t.Errorf("expected the delete to be issued, got %v", catalog.Ops())
		}
		if _, err := engine.Retry(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable from Retry, got %v", err)
		}
		if _, err := engine.Restore(ctx, "x"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable from Restore, got %v", err)
		}
	})
}

func TestGroupByMove(t *testing.T) {
	ref := models.ResourceRef{Kind: "youtube#video", VideoID: "v"}
	del := models.NewSyncRecord("m1", models.OpDelete, "a", "X", 0, ref)
	ins := models.NewSyncRecord("m1", models.OpInsert, "a", "Y", 0, ref)
	upd := models.NewSyncRecord("m2", models.OpUpdate, "b", "X", 1, ref)
	upd.SetCreatedAt(del.CreatedAt().Add(time.Hour))

	groups := groupByMove([]*models.SyncRecord{upd, del, ins})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0][0] != ins || groups[0][1] != del {
		t.Errorf("expected insert before delete within a move")
	}
	if groups[1][0] != upd {
		t.Errorf("expected the later move second")
	}
}
