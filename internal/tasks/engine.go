package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/services"
	"github.com/desertthunder/ytdeck/internal/shared"
)

var errInsertFailed = errors.New("skipped: insert into destination failed")

// Credentials supplies the current OAuth access token. An empty token means signed out.
type Credentials interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a fixed access token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) { return string(t), nil }

// Journal persists remote writes so failures can be listed and retried.
type Journal = models.Repository[*models.SyncRecord]

// TrashBin persists trashed items so they can be restored.
type TrashBin = models.Repository[*models.TrashEntry]

// EngineOpts contains the collaborators of an [Engine].
type EngineOpts struct {
	Store       *playlists.Store
	Catalog     services.Catalog
	Credentials Credentials
	Journal     Journal           // Optional; writes are still issued without it
	Trash       TrashBin          // Optional; trashed items cannot be restored without it
	Logger      *log.Logger       // Optional
	Progress    chan<- SyncUpdate // Optional; updates are dropped when full
}

// alias maps a local membership id to the id the provider assigned on insert.
type alias struct {
	newID  string
	moveID string
}

// Engine applies move transactions to the playlist store and writes them back to the catalog.
type Engine struct {
	store    *playlists.Store
	catalog  services.Catalog
	creds    Credentials
	journal  Journal
	trash    TrashBin
	logger   *log.Logger
	progress chan<- SyncUpdate

	mu   sync.Mutex
	last chan struct{} // closed when the most recently queued transaction finishes

	aliasMu sync.Mutex
	aliases map[string]alias
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Engine{
		store:    opts.Store,
		catalog:  opts.Catalog,
		creds:    opts.Credentials,
		journal:  opts.Journal,
		trash:    opts.Trash,
		logger:   opts.Logger,
		progress: opts.Progress,
		aliases:  make(map[string]alias),
	}
}

// token resolves the access token or fails with [shared.ErrNotAuthenticated].
func (e *Engine) token(ctx context.Context) (string, error) { return accessToken(ctx, e.creds) }

func accessToken(ctx context.Context, creds Credentials) (string, error) {
	if creds == nil {
		return "", shared.ErrNotAuthenticated
	}
	token, err := creds.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}
	return token, nil
}

// Apply runs one move transaction.
//
// No-op moves return [OutcomeNoop] without touching anything. Otherwise the local change is committed atomically
// and the remote writes are queued; they complete after Apply returns and are observable through the journal,
// the progress channel and [Engine.Wait].
func (e *Engine) Apply(ctx context.Context, m Move) (Outcome, error) {
	if m.Noop() {
		return OutcomeNoop, nil
	}

	token, err := e.token(ctx)
	if err != nil {
		return OutcomeNoop, err
	}

	moveID := shared.GenerateID()
	var p plan
	err = e.store.Update(func(pl *playlists.Playlists) error {
		var err error
		p, err = applyLocal(pl, m, moveID)
		return err
	})
	if err != nil {
		return OutcomeNoop, err
	}

	e.logger.Info("applied move", "outcome", p.outcome, "item", p.item.ID, "video", p.item.Resource.VideoID,
		"from", m.Source, "to", m.Destination.String())

	if p.trashed != nil && e.trash != nil {
		if err := e.trash.Create(p.trashed); err != nil {
			e.logger.Error("failed to save trash entry", "item", p.item.ID, "error", err)
		}
	}

	e.dispatch(ctx, token, p.records)
	return p.outcome, nil
}

// Wait blocks until every remote write queued before the call has finished.
func (e *Engine) Wait() {
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()
	if last != nil {
		<-last
	}
}

// dispatch journals records as pending and runs them in the background after all earlier transactions.
func (e *Engine) dispatch(ctx context.Context, token string, records []*models.SyncRecord) {
	for _, r := range records {
		e.create(r)
	}

	e.mu.Lock()
	prev := e.last
	done := make(chan struct{})
	e.last = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		e.run(context.WithoutCancel(ctx), token, records, remoteUpdate)
	}()
}

// run executes one transaction's records in order. A failed insert skips the delete that follows it
// so a cross-playlist move never loses the video on the provider.
func (e *Engine) run(ctx context.Context, token string, records []*models.SyncRecord, update func(int, int, *models.SyncRecord) SyncUpdate) (confirmed, failed int) {
	insertFailed := false
	for i, r := range records {
		r.Attempts++
		switch {
		case r.Op == models.OpDelete && insertFailed:
			r.Fail(errInsertFailed)
		default:
			if err := e.execute(ctx, token, r); err != nil {
				r.Fail(err)
				if r.Op == models.OpInsert {
					insertFailed = true
				}
			} else {
				r.Confirm()
			}
		}

		if r.Status == models.SyncFailed {
			failed++
			e.logger.Warn("remote write failed", "op", r.Op, "item", r.ItemID, "playlist", r.PlaylistID, "error", r.LastError)
		} else {
			confirmed++
		}

		e.save(r)
		sendProgress(e.progress, update(i+1, len(records), r))
	}
	return confirmed, failed
}

func (e *Engine) execute(ctx context.Context, token string, r *models.SyncRecord) error {
	switch r.Op {
	case models.OpInsert:
		newID, err := e.catalog.InsertItem(ctx, token, r.PlaylistID, r.Resource, r.Position)
		if err != nil {
			return err
		}
		e.adopt(r, newID)
		return nil
	case models.OpUpdate:
		return e.catalog.UpdateItemPosition(ctx, token, e.resolve(r), r.PlaylistID, r.Resource, r.Position)
	case models.OpDelete:
		return e.catalog.DeleteItem(ctx, token, e.resolve(r))
	default:
		return fmt.Errorf("%w: unknown op %q", shared.ErrInvalidInput, r.Op)
	}
}

// adopt replaces the local placeholder id of an inserted item with the provider's id.
func (e *Engine) adopt(r *models.SyncRecord, newID string) {
	oldID := r.ItemID
	if newID == "" || newID == oldID {
		return
	}
	r.ItemID = newID

	if oldID == "" {
		return
	}
	e.aliasMu.Lock()
	e.aliases[oldID] = alias{newID: newID, moveID: r.MoveID}
	e.aliasMu.Unlock()

	_ = e.store.Update(func(p *playlists.Playlists) error {
		p.ReplaceItemID(oldID, newID)
		return nil
	})
}

// resolve returns the provider id for r's item. Records of the move that performed an insert
// still address the original membership.
func (e *Engine) resolve(r *models.SyncRecord) string {
	e.aliasMu.Lock()
	defer e.aliasMu.Unlock()

	id := r.ItemID
	for {
		a, ok := e.aliases[id]
		if !ok || a.moveID == r.MoveID {
			return id
		}
		id = a.newID
	}
}

func (e *Engine) create(r *models.SyncRecord) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Create(r); err != nil {
		e.logger.Error("failed to journal remote write", "op", r.Op, "item", r.ItemID, "error", err)
	}
}

func (e *Engine) save(r *models.SyncRecord) {
	if e.journal == nil || r.ID() == "" {
		return
	}
	if err := e.journal.Update(r); err != nil {
		e.logger.Error("failed to update journal", "id", r.ID(), "error", err)
	}
}

// RetryResult summarizes a [Engine.Retry] run.
type RetryResult struct {
	Attempted int
	Confirmed int
	Failed    int
}

// Retry re-issues every failed remote write, grouped by move in creation order.
//
// Unlike [Engine.Apply] it runs inline and returns once every record has been attempted.
func (e *Engine) Retry(ctx context.Context) (*RetryResult, error) {
	if e.journal == nil {
		return nil, fmt.Errorf("%w: no sync journal configured", shared.ErrServiceUnavailable)
	}
	token, err := e.token(ctx)
	if err != nil {
		return nil, err
	}

	failed, err := e.journal.List(map[string]any{"status": string(models.SyncFailed)})
	if err != nil {
		return nil, fmt.Errorf("failed to list failed writes: %w", err)
	}

	// Earlier background writes must land first.
	e.Wait()

	result := &RetryResult{}
	for _, group := range groupByMove(failed) {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		confirmed, failedCount := e.run(ctx, token, group, retryUpdate)
		result.Attempted += len(group)
		result.Confirmed += confirmed
		result.Failed += failedCount
	}

	e.logger.Info("retried remote writes", "attempted", result.Attempted, "confirmed", result.Confirmed, "failed", result.Failed)
	return result, nil
}

// groupByMove keeps records of the same move together and orders groups by their oldest record.
func groupByMove(records []*models.SyncRecord) [][]*models.SyncRecord {
	sorted := make([]*models.SyncRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt().Before(sorted[j].CreatedAt())
	})

	index := make(map[string]int)
	var groups [][]*models.SyncRecord
	for _, r := range sorted {
		i, ok := index[r.MoveID]
		if !ok {
			i = len(groups)
			index[r.MoveID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}

	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return opOrder(g[i].Op) < opOrder(g[j].Op) })
	}
	return groups
}

func opOrder(op models.SyncOp) int {
	switch op {
	case models.OpInsert:
		return 0
	case models.OpUpdate:
		return 1
	default:
		return 2
	}
}

// Restore puts a trashed item back into its origin playlist as a new membership.
//
// The position is clamped to the end of the playlist. The origin playlist must be loaded.
func (e *Engine) Restore(ctx context.Context, entryID string) (*models.TrashEntry, error) {
	if e.trash == nil {
		return nil, fmt.Errorf("%w: no trash configured", shared.ErrServiceUnavailable)
	}
	token, err := e.token(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := e.trash.Get(entryID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrTrashNotFound, entryID, err)
	}
	if entry.Restored() {
		return nil, fmt.Errorf("%w: %s already restored", shared.ErrInvalidInput, entryID)
	}

	moveID := shared.GenerateID()
	var record *models.SyncRecord
	err = e.store.Update(func(p *playlists.Playlists) error {
		pl, ok := p.Get(entry.PlaylistID)
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, entry.PlaylistID)
		}

		at := min(entry.Position, len(pl.Items))
		if err := p.Insert(pl.ID, at, entry.Item); err != nil {
			return err
		}
		if p.IsActive(pl.ID) && len(pl.Items) > 1 && at <= pl.Index {
			pl.Index++
		}

		record = models.NewSyncRecord(moveID, models.OpInsert, entry.Item.ID, pl.ID, at, entry.Item.Resource)
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry.MarkRestored()
	if err := e.trash.Update(entry); err != nil {
		e.logger.Error("failed to mark trash entry restored", "id", entry.ID(), "error", err)
	}

	sendProgress(e.progress, restoreUpdate(entry))
	e.logger.Info("restoring trashed item", "entry", entry.ID(), "playlist", entry.PlaylistID, "position", record.Position)
	e.dispatch(ctx, token, []*models.SyncRecord{record})
	return entry, nil
}
