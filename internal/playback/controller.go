package playback

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
)

const (
	defaultPollInterval  = 300 * time.Millisecond
	defaultReadyInterval = 250 * time.Millisecond
	repeatThreshold      = 0.99
	progressBuffer       = 16
)

// State of the controller.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Player is the embedded player as the controller uses it.
type Player interface {
	Ready(ctx context.Context) bool
	LoadPlaylistAt(ctx context.Context, urls []string, index int) error
	PlayVideoAt(ctx context.Context, index int) error
	NextVideo(ctx context.Context) error
	PreviousVideo(ctx context.Context) error
	SeekTo(ctx context.Context, seconds float64) error
	CurrentTime(ctx context.Context) (float64, error)
	Duration(ctx context.Context) (float64, error)
	SetShuffle(ctx context.Context, on bool) error
	SetPaused(ctx context.Context, paused bool) error
	SetVolume(ctx context.Context, volume float64) error
	SetMuted(ctx context.Context, muted bool) error
}

// Options configures a [Controller].
type Options struct {
	PollInterval  time.Duration // default 300ms
	ReadyInterval time.Duration // default 250ms
	Loop          bool
	Volume        float64 // [0, 1]
	Logger        *log.Logger
}

// Progress is a snapshot published to the UI on state changes and every poll.
type Progress struct {
	State      State
	PlaylistID string
	Index      int
	Current    float64
	Duration   float64
}

// Controller drives a [Player] for the playlists in a store.
type Controller struct {
	player   Player
	store    *playlists.Store
	opts     Options
	logger   *log.Logger
	progress chan Progress

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	loadedID  string
	loaded    []entry // the items in the order the player holds them
	rewind    bool     // the loaded playlist ended; playing restarts it
	loop      bool
	shuffle   bool
	muted     bool
	volume    float64
	readyGen  int
	pollStop  context.CancelFunc
	pollDone  chan struct{}
	closed    bool
	repeatOne atomic.Bool

	posMu    sync.Mutex
	current  float64
	duration float64
}

// entry is one item of the player's queue.
type entry struct {
	item  string
	video string
}

// NewController creates an idle controller.
func NewController(player Player, store *playlists.Store, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReadyInterval <= 0 {
		opts.ReadyInterval = defaultReadyInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		player:   player,
		store:    store,
		opts:     opts,
		logger:   opts.Logger,
		progress: make(chan Progress, progressBuffer),
		ctx:      ctx,
		cancel:   cancel,
		loop:     opts.Loop,
		volume:   clamp(opts.Volume, 0, 1),
	}
}

// Progress returns the channel progress snapshots are published on. Snapshots are dropped when it is full.
func (c *Controller) Progress() <-chan Progress { return c.progress }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentTime returns the last polled playback time in seconds.
func (c *Controller) CurrentTime() float64 {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	return c.current
}

// Duration returns the last polled duration of the current video in seconds.
func (c *Controller) Duration() float64 {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	return c.duration
}

func (c *Controller) Loop() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.loop }
func (c *Controller) Shuffle() bool   { c.mu.Lock(); defer c.mu.Unlock(); return c.shuffle }
func (c *Controller) Muted() bool     { c.mu.Lock(); defer c.mu.Unlock(); return c.muted }
func (c *Controller) Volume() float64 { c.mu.Lock(); defer c.mu.Unlock(); return c.volume }
func (c *Controller) RepeatOne() bool { return c.repeatOne.Load() }

// URL returns the provider URL of the active playlist, or "" when none is active.
func (c *Controller) URL() string {
	id := c.store.Snapshot().ActiveID()
	if id == "" {
		return ""
	}
	return shared.PlaylistURL(id)
}

// LoadPlaylist selects playlistID at start and loads it into the player once the player is ready.
//
// It returns immediately in the Loading state; a pending load for another playlist is superseded.
func (c *Controller) LoadPlaylist(playlistID string, start int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(playlistID, start)
}

func (c *Controller) loadLocked(playlistID string, start int) error {
	if c.closed {
		return fmt.Errorf("%w: controller closed", shared.ErrPlayerNotReady)
	}

	err := c.store.Update(func(p *playlists.Playlists) error {
		if err := p.SetActive(playlistID); err != nil {
			return err
		}
		return p.SetIndex(playlistID, start)
	})
	if err != nil {
		return err
	}

	c.stopPollingLocked()
	c.readyGen++
	c.state = Loading
	c.rewind = false
	c.setPosition(0, 0)
	c.emitLocked()

	c.logger.Debug("loading playlist", "playlist", playlistID, "index", start)
	go c.readyLoop(c.readyGen, playlistID)
	return nil
}

// readyLoop retries until the player accepts the playlist or the load is superseded.
func (c *Controller) readyLoop(gen int, playlistID string) {
	ticker := time.NewTicker(c.opts.ReadyInterval)
	defer ticker.Stop()

	for {
		if c.tryLoad(gen, playlistID) {
			return
		}
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tryLoad reports whether the loop is finished.
func (c *Controller) tryLoad(gen int, playlistID string) bool {
	if c.superseded(gen) {
		return true
	}
	if !c.player.Ready(c.ctx) {
		return false
	}

	urls, entries, index, ok := c.queue(playlistID)
	if !ok {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen == c.readyGen {
			c.logger.Warn("nothing to play", "playlist", playlistID)
			c.state = Idle
			c.emitLocked()
		}
		return true
	}

	if err := c.player.LoadPlaylistAt(c.ctx, urls, index); err != nil {
		c.logger.Debug("player not ready for playlist", "playlist", playlistID, "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.readyGen || c.closed {
		return true
	}

	c.loadedID = playlistID
	c.loaded = entries
	c.state = Playing
	c.applySettingsLocked()
	c.startPollingLocked()
	c.emitLocked()
	c.logger.Info("playing playlist", "playlist", playlistID, "index", index, "items", len(urls))
	return true
}

func (c *Controller) superseded(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.readyGen || c.closed
}

// queue returns the playlist's video urls and ids with its play index.
func (c *Controller) queue(playlistID string) (urls []string, entries []entry, index int, ok bool) {
	c.store.View(func(p *playlists.Playlists) {
		pl, found := p.Get(playlistID)
		if !found || len(pl.Items) == 0 {
			return
		}
		for _, it := range pl.Items {
			urls = append(urls, shared.VideoURL(it.Resource.VideoID, ""))
			entries = append(entries, entry{item: it.ID, video: it.Resource.VideoID})
		}
		index, ok = pl.Index, true
	})
	return urls, entries, index, ok
}

func (c *Controller) applySettingsLocked() {
	if err := c.player.SetVolume(c.ctx, c.volume); err != nil {
		c.logger.Warn("failed to apply volume", "error", err)
	}
	if c.muted {
		if err := c.player.SetMuted(c.ctx, true); err != nil {
			c.logger.Warn("failed to apply mute", "error", err)
		}
	}
	if c.shuffle {
		if err := c.player.SetShuffle(c.ctx, true); err != nil {
			c.logger.Warn("failed to apply shuffle", "error", err)
		}
	}
}

// PlayAt plays index of playlistID, jumping within the loaded playlist when the video is already queued in the player.
func (c *Controller) PlayAt(ctx context.Context, playlistID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if playlistID != c.loadedID || !c.loadedLocked() {
		return c.loadLocked(playlistID, index)
	}

	err := c.store.Update(func(p *playlists.Playlists) error {
		if err := p.SetActive(playlistID); err != nil {
			return err
		}
		return p.SetIndex(playlistID, index)
	})
	if err != nil {
		return err
	}
	return c.playIndexLocked(ctx, playlistID)
}

// loadedLocked reports whether the player holds a playlist it can jump within.
func (c *Controller) loadedLocked() bool {
	return c.loadedID != "" && (c.state == Playing || c.state == Paused)
}

// playIndexLocked plays the stored play index of the loaded playlist, reloading when the player does not hold that video.
func (c *Controller) playIndexLocked(ctx context.Context, playlistID string) error {
	var item models.PlaylistItem
	var index int
	var ok bool
	c.store.View(func(p *playlists.Playlists) {
		if pl, found := p.Get(playlistID); found {
			index = pl.Index
			item, ok = pl.ItemAt(index)
		}
	})
	if !ok {
		return fmt.Errorf("%w: nothing to play in %s", shared.ErrIndexOutRange, playlistID)
	}

	pos := queuePosition(c.loaded, item, index)
	if pos < 0 || c.shuffle {
		return c.loadLocked(playlistID, index)
	}

	if err := c.player.PlayVideoAt(ctx, pos); err != nil {
		return err
	}
	c.state = Playing
	c.rewind = false
	c.setPosition(0, 0)
	c.startPollingLocked()
	c.emitLocked()
	return nil
}

// SetPlaying plays or pauses.
//
// Playing from Idle loads the active playlist at its play index. Pausing while Loading abandons the load.
func (c *Controller) SetPlaying(ctx context.Context, playing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !playing {
		switch c.state {
		case Playing:
			if err := c.player.SetPaused(ctx, true); err != nil {
				return err
			}
			c.state = Paused
			c.stopPollingLocked()
			c.emitLocked()
		case Loading:
			c.readyGen++
			c.state = Idle
			c.emitLocked()
		}
		return nil
	}

	switch c.state {
	case Playing, Loading:
		return nil
	case Paused:
		if c.rewind {
			return c.loadLocked(c.loadedID, 0)
		}
		if err := c.player.SetPaused(ctx, false); err != nil {
			return err
		}
		c.state = Playing
		c.startPollingLocked()
		c.emitLocked()
		return nil
	default:
		active, ok := c.store.Snapshot().Active()
		if !ok {
			return fmt.Errorf("%w: no active playlist", shared.ErrPlaylistNotFound)
		}
		return c.loadLocked(active.ID, active.Index)
	}
}

// Toggle flips between playing and paused.
func (c *Controller) Toggle(ctx context.Context) error {
	s := c.State()
	return c.SetPlaying(ctx, s != Playing && s != Loading)
}

// Next advances one item, wrapping to the start, and persists the play index.
func (c *Controller) Next(ctx context.Context) error { return c.step(ctx, 1) }

// Previous goes back one item, wrapping to the end, and persists the play index.
func (c *Controller) Previous(ctx context.Context) error { return c.step(ctx, -1) }

func (c *Controller) step(ctx context.Context, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuffle && c.loadedLocked() {
		var err error
		if delta > 0 {
			err = c.player.NextVideo(ctx)
		} else {
			err = c.player.PreviousVideo(ctx)
		}
		if err != nil {
			return err
		}
		c.state = Playing
		c.startPollingLocked()
		c.emitLocked()
		return nil
	}

	var playlistID string
	var index int
	err := c.store.Update(func(p *playlists.Playlists) error {
		pl, ok := p.Active()
		if !ok {
			return fmt.Errorf("%w: no active playlist", shared.ErrPlaylistNotFound)
		}
		n := len(pl.Items)
		if n == 0 {
			return fmt.Errorf("%w: %s is empty", shared.ErrIndexOutRange, pl.ID)
		}
		playlistID = pl.ID
		pl.Index = ((pl.Index+delta)%n + n) % n
		index = pl.Index
		return nil
	})
	if err != nil {
		return err
	}

	if playlistID != c.loadedID || !c.loadedLocked() {
		return c.loadLocked(playlistID, index)
	}
	return c.playIndexLocked(ctx, playlistID)
}

// Seek jumps to an absolute time in seconds and resumes playback.
func (c *Controller) Seek(ctx context.Context, seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loadedLocked() {
		return fmt.Errorf("%w: nothing loaded", shared.ErrPlayerNotReady)
	}

	seconds = max(0, seconds)
	if d := c.Duration(); d > 0 {
		seconds = min(seconds, d)
	}
	if err := c.player.SeekTo(ctx, seconds); err != nil {
		return err
	}
	c.posMu.Lock()
	c.current = seconds
	c.posMu.Unlock()

	if c.state == Paused {
		if err := c.player.SetPaused(ctx, false); err != nil {
			return err
		}
		c.state = Playing
		c.rewind = false
		c.startPollingLocked()
	}
	c.emitLocked()
	return nil
}

// SeekBy skips delta seconds from the last polled time.
func (c *Controller) SeekBy(ctx context.Context, delta float64) error {
	return c.Seek(ctx, c.CurrentTime()+delta)
}

// Replay restarts the current video.
func (c *Controller) Replay(ctx context.Context) error { return c.Seek(ctx, 0) }

// SetLoop controls whether the end of the playlist leaves the controller Paused (ready to restart) or Idle.
func (c *Controller) SetLoop(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = on
}

// SetRepeatOne restarts the current video when it is about to finish.
func (c *Controller) SetRepeatOne(on bool) { c.repeatOne.Store(on) }

// SetShuffle is applied immediately when a playlist is loaded, else on the next load.
func (c *Controller) SetShuffle(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffle = on
	if c.loadedLocked() {
		return c.player.SetShuffle(ctx, on)
	}
	return nil
}

// SetVolume takes a volume in [0, 1].
func (c *Controller) SetVolume(ctx context.Context, volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clamp(volume, 0, 1)
	if c.loadedLocked() {
		return c.player.SetVolume(ctx, c.volume)
	}
	return nil
}

func (c *Controller) SetMuted(ctx context.Context, muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	if c.loadedLocked() {
		return c.player.SetMuted(ctx, muted)
	}
	return nil
}

// HandlePlay mirrors playback started from the player itself.
func (c *Controller) HandlePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused {
		return
	}
	c.state = Playing
	c.rewind = false
	c.startPollingLocked()
	c.emitLocked()
}

// HandlePause mirrors a pause from the player itself.
func (c *Controller) HandlePause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Playing {
		return
	}
	c.state = Paused
	c.stopPollingLocked()
	c.emitLocked()
}

// HandleEnded stops polling and leaves the controller Paused when looping, else Idle.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Playing && c.state != Paused {
		return
	}

	c.stopPollingLocked()
	if c.loop {
		c.state = Paused
		c.rewind = true
	} else {
		c.state = Idle
		c.loadedID = ""
		c.loaded = nil
	}
	c.emitLocked()
	c.logger.Debug("playlist ended", "loop", c.loop)
}

// HandleIndex records that the player moved on to entry pos of the loaded playlist by itself.
func (c *Controller) HandleIndex(pos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shuffle || pos < 0 || pos >= len(c.loaded) || c.loadedID == "" {
		return
	}

	e := c.loaded[pos]
	playlistID := c.loadedID
	err := c.store.Update(func(p *playlists.Playlists) error {
		pl, ok := p.Get(playlistID)
		if !ok {
			return shared.ErrPlaylistNotFound
		}
		i := itemPosition(pl.Items, e, pos)
		if i < 0 {
			return fmt.Errorf("%w: %s no longer in %s", shared.ErrItemNotFound, e.video, playlistID)
		}
		pl.Index = i
		return nil
	})
	if err != nil {
		c.logger.Debug("player index not persisted", "pos", pos, "error", err)
		return
	}
	c.emitLocked()
}

// queuePosition finds item in the player's queue by membership id. When the id is gone, as after a
// provider insert, the occurrence of its video closest to near is used.
func queuePosition(queue []entry, item models.PlaylistItem, near int) int {
	if i := slices.IndexFunc(queue, func(e entry) bool { return e.item == item.ID }); i >= 0 {
		return i
	}
	return nearest(len(queue), near, func(i int) bool { return queue[i].video == item.Resource.VideoID })
}

// itemPosition is the inverse of [queuePosition] for the playlist's items.
func itemPosition(items []models.PlaylistItem, e entry, near int) int {
	if i := slices.IndexFunc(items, func(it models.PlaylistItem) bool { return it.ID == e.item }); i >= 0 {
		return i
	}
	return nearest(len(items), near, func(i int) bool { return items[i].Resource.VideoID == e.video })
}

// nearest returns the index in [0, n) closest to near that matches, or -1.
func nearest(n, near int, match func(int) bool) int {
	best := -1
	for i := range n {
		if !match(i) {
			continue
		}
		if best < 0 || abs(i-near) < abs(best-near) {
			best = i
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Close stops both loops. The controller cannot be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readyGen++
	c.stopPollingLocked()
	c.cancel()
	c.state = Idle
}

func (c *Controller) startPollingLocked() {
	c.stopPollingLocked()

	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.pollStop, c.pollDone = cancel, done
	go c.poll(ctx, done, c.loadedID)
}

func (c *Controller) stopPollingLocked() {
	if c.pollStop == nil {
		return
	}
	c.pollStop()
	<-c.pollDone
	c.pollStop, c.pollDone = nil, nil
}

// poll never takes c.mu, so stopPollingLocked can wait for it.
func (c *Controller) poll(ctx context.Context, done chan struct{}, playlistID string) {
	defer close(done)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		c.pollOnce(ctx, playlistID)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) pollOnce(ctx context.Context, playlistID string) {
	current, err := c.player.CurrentTime(ctx)
	if err != nil {
		c.logger.Debug("poll failed", "error", err)
		return
	}
	duration, err := c.player.Duration(ctx)
	if err != nil {
		c.logger.Debug("poll failed", "error", err)
		return
	}
	if ctx.Err() != nil {
		return
	}
	c.setPosition(current, duration)

	if c.repeatOne.Load() && duration > 0 && current/duration >= repeatThreshold {
		if err := c.player.SeekTo(ctx, 0); err != nil {
			c.logger.Debug("repeat failed", "error", err)
		} else {
			c.setPosition(0, duration)
			current = 0
		}
	}

	index := 0
	c.store.View(func(p *playlists.Playlists) {
		if pl, ok := p.Get(playlistID); ok {
			index = pl.Index
		}
	})
	c.send(Progress{State: Playing, PlaylistID: playlistID, Index: index, Current: current, Duration: duration})
}

func (c *Controller) setPosition(current, duration float64) {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	c.current, c.duration = current, duration
}

func (c *Controller) emitLocked() {
	p := Progress{State: c.state, PlaylistID: c.loadedID, Current: c.CurrentTime(), Duration: c.Duration()}
	c.store.View(func(pl *playlists.Playlists) {
		if p.PlaylistID == "" {
			p.PlaylistID = pl.ActiveID()
		}
		if cur, ok := pl.Get(p.PlaylistID); ok {
			p.Index = cur.Index
		}
	})
	c.send(p)
}

func (c *Controller) send(p Progress) {
	select {
	case c.progress <- p:
	default:
	}
}

func clamp(v, lo, hi float64) float64 { return max(lo, min(v, hi)) }
