package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/playback"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/desertthunder/ytdeck/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistView ViewState = iota
	ItemView
	TrashView
)

const (
	seekStep   = 5
	jumpStep   = 30
	volumeStep = 0.1
	chrome     = 8 // rows taken by the status line, player bar and help
)

// Deps are the collaborators the TUI drives.
type Deps struct {
	Store   *playlists.Store
	Engine  *tasks.Engine
	Loader  *tasks.Loader        // nil skips the initial fetch
	Player  *playback.Controller // nil hides the player bar
	Trash   tasks.TrashBin       // nil disables the trash view
	Updates chan tasks.SyncUpdate
	Copy    func(string) error // defaults to the system clipboard
	Logger  *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	deps   Deps
	logger *log.Logger

	view    ViewState
	width   int
	height  int
	loading bool

	playlistList list.Model
	itemList     list.Model
	trashList    list.Model

	snapshot *playlists.Playlists
	current  string          // playlist shown in ItemView
	grabbed  *tasks.Location // item picked up with the grab key
	status   string
	failed   bool
	sync     tasks.SyncUpdate
	playback playback.Progress

	storeCh     <-chan *playlists.Playlists
	unsubscribe func()

	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Copy == nil {
		deps.Copy = clipboard.WriteAll
	}
	if deps.Logger == nil {
		deps.Logger = shared.DiscardLogger()
	}

	storeCh, unsubscribe := deps.Store.Subscribe()
	m := &Model{
		ctx:          ctx,
		deps:         deps,
		logger:       deps.Logger,
		view:         PlaylistView,
		loading:      deps.Loader != nil,
		playlistList: newList("Playlists"),
		itemList:     newList(""),
		trashList:    newList("Trash"),
		snapshot:     deps.Store.Snapshot(),
		storeCh:      storeCh,
		unsubscribe:  unsubscribe,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.refresh()
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Close stops listening to the store.
func (m *Model) Close() { m.unsubscribe() }

// Init starts the initial fetch and the listeners for store, sync and playback changes.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitStore()}
	if m.loading {
		cmds = append(cmds, m.spinner.Tick, m.load())
	}
	if m.deps.Updates != nil {
		cmds = append(cmds, m.waitSync())
	}
	if m.deps.Player != nil {
		cmds = append(cmds, m.waitPlayback())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoaded:
		m.loading = false
		if err := msg.data.(loadedData).err; err != nil {
			m.setStatus("", err)
		} else {
			m.setStatus(fmt.Sprintf("loaded %d playlists", m.snapshot.Len()), nil)
		}
		return m, nil

	case MsgStoreChanged:
		if snap, ok := msg.data.(*playlists.Playlists); ok && snap != nil {
			m.snapshot = snap
			m.refresh()
		}
		return m, m.waitStore()

	case MsgSyncUpdate:
		m.sync = msg.data.(tasks.SyncUpdate)
		if m.sync.Err != nil {
			m.setStatus("", fmt.Errorf("%s: %w", m.sync.Message, m.sync.Err))
		}
		return m, m.waitSync()

	case MsgPlayback:
		m.playback = msg.data.(playback.Progress)
		return m, m.waitPlayback()

	case MsgMoved:
		d := msg.data.(movedData)
		m.setStatus(d.outcome.String(), d.err)
		return m, nil

	case MsgTrashListed:
		d := msg.data.(trashListedData)
		if d.err != nil {
			m.setStatus("", d.err)
			return m, nil
		}
		entries := make([]list.Item, len(d.entries))
		for i, e := range d.entries {
			entries[i] = trashEntry{entry: e}
		}
		m.trashList.SetItems(entries)
		return m, nil

	case MsgRestored:
		d := msg.data.(restoredData)
		if d.err != nil {
			m.setStatus("", d.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("restored %q to %s", d.entry.Item.Title, d.entry.PlaylistID), nil)
		return m, m.listTrash()

	case MsgRetried:
		d := msg.data.(retriedData)
		if d.err != nil {
			m.setStatus("", d.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("retried %d writes: %d confirmed, %d failed", d.result.Attempted, d.result.Confirmed, d.result.Failed), nil)
		return m, nil

	case MsgStatus:
		d := msg.data.(statusData)
		m.setStatus(d.text, d.err)
		return m, nil
	}
	return m, nil
}

func (m *Model) setStatus(text string, err error) {
	if err != nil {
		m.logger.Warn("tui action failed", "error", err)
		m.status, m.failed = err.Error(), true
		return
	}
	m.status, m.failed = text, false
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activeList().SettingFilter() {
		return m.updateList(msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.quit):
		return m, tea.Quit
	case key.Matches(msg, k.help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(msg, k.retry):
		return m, m.retry()
	}

	if cmd, ok := m.playerKey(msg); ok {
		return m, cmd
	}

	switch m.view {
	case ItemView:
		return m.handleItemKeys(msg)
	case TrashView:
		return m.handleTrashKeys(msg)
	default:
		return m.handlePlaylistKeys(msg)
	}
}

// playerKey handles the transport keys, which work in every view.
func (m *Model) playerKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	p := m.deps.Player
	if p == nil {
		return nil, false
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.toggle):
		return m.playerCmd(p.Toggle), true
	case key.Matches(msg, k.next):
		return m.playerCmd(p.Next), true
	case key.Matches(msg, k.previous):
		return m.playerCmd(p.Previous), true
	case key.Matches(msg, k.seekBack):
		return m.seek(-seekStep), true
	case key.Matches(msg, k.seekFwd):
		return m.seek(seekStep), true
	case key.Matches(msg, k.jumpBack):
		return m.seek(-jumpStep), true
	case key.Matches(msg, k.jumpFwd):
		return m.seek(jumpStep), true
	case key.Matches(msg, k.repeat):
		p.SetRepeatOne(!p.RepeatOne())
		m.setStatus(fmt.Sprintf("repeat one %s", onOff(p.RepeatOne())), nil)
		return nil, true
	case key.Matches(msg, k.loop):
		p.SetLoop(!p.Loop())
		m.setStatus(fmt.Sprintf("loop %s", onOff(p.Loop())), nil)
		return nil, true
	case key.Matches(msg, k.shuffle):
		on := !p.Shuffle()
		return m.playerCmd(func(ctx context.Context) error { return p.SetShuffle(ctx, on) }), true
	case key.Matches(msg, k.louder):
		v := p.Volume() + volumeStep
		return m.playerCmd(func(ctx context.Context) error { return p.SetVolume(ctx, v) }), true
	case key.Matches(msg, k.quieter):
		v := p.Volume() - volumeStep
		return m.playerCmd(func(ctx context.Context) error { return p.SetVolume(ctx, v) }), true
	case key.Matches(msg, k.mute):
		muted := !p.Muted()
		return m.playerCmd(func(ctx context.Context) error { return p.SetMuted(ctx, muted) }), true
	}
	return nil, false
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	selected, ok := m.playlistList.SelectedItem().(playlistEntry)

	switch {
	case key.Matches(msg, k.enter):
		if ok {
			m.open(selected.playlist.ID)
		}
		return m, nil
	case key.Matches(msg, k.grab):
		if ok && m.grabbed != nil {
			to := len(selected.playlist.Items)
			if m.grabbed.PlaylistID == selected.playlist.ID {
				to--
			}
			return m, m.move(*m.grabbed, tasks.Location{PlaylistID: selected.playlist.ID, Index: to})
		}
		return m, nil
	case key.Matches(msg, k.back):
		if m.grabbed != nil {
			m.grabbed = nil
			m.refresh()
			m.setStatus("move cancelled", nil)
		}
		return m, nil
	case key.Matches(msg, k.bin):
		return m, m.openTrash()
	case key.Matches(msg, k.copy):
		if ok {
			return m, m.copy(shared.PlaylistURL(selected.playlist.ID))
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) handleItemKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	selected, ok := m.itemList.SelectedItem().(itemEntry)

	switch {
	case key.Matches(msg, k.back):
		m.view = PlaylistView
		return m, nil
	case key.Matches(msg, k.enter):
		if ok && m.deps.Player != nil {
			id, index := m.current, selected.index
			return m, m.playerCmd(func(ctx context.Context) error { return m.deps.Player.PlayAt(ctx, id, index) })
		}
		return m, nil
	case key.Matches(msg, k.grab):
		if !ok {
			return m, nil
		}
		here := tasks.Location{PlaylistID: m.current, Index: selected.index}
		if m.grabbed == nil {
			m.grabbed = &here
			m.refresh()
			m.setStatus(fmt.Sprintf("grabbed %q, move the cursor and press m to drop", selected.item.Title), nil)
			return m, nil
		}
		return m, m.move(*m.grabbed, here)
	case key.Matches(msg, k.trash):
		if ok {
			return m, m.move(tasks.Location{PlaylistID: m.current, Index: selected.index}, tasks.Location{PlaylistID: tasks.TrashID})
		}
		return m, nil
	case key.Matches(msg, k.bin):
		return m, m.openTrash()
	case key.Matches(msg, k.copy):
		return m, m.copy(shared.PlaylistURL(m.current))
	}

	return m.updateList(msg)
}

func (m *Model) handleTrashKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistView
		return m, nil
	case key.Matches(msg, m.keys.restore):
		if selected, ok := m.trashList.SelectedItem().(trashEntry); ok {
			return m, m.restore(selected.entry.ID())
		}
		return m, nil
	}
	return m.updateList(msg)
}

// open shows the items of playlist id with the cursor on its play index.
func (m *Model) open(id string) {
	m.current = id
	m.view = ItemView
	m.refresh()
	if pl, ok := m.snapshot.Get(id); ok {
		m.itemList.Select(pl.Index)
	}
}

func (m *Model) activeList() *list.Model {
	switch m.view {
	case ItemView:
		return &m.itemList
	case TrashView:
		return &m.trashList
	default:
		return &m.playlistList
	}
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.activeList()
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, cmd
}

// refresh rebuilds the playlist and item lists from the latest snapshot.
func (m *Model) refresh() {
	snap := m.snapshot

	entries := make([]list.Item, 0, snap.Len())
	for _, pl := range snap.All() {
		entries = append(entries, playlistEntry{playlist: pl, active: snap.IsActive(pl.ID)})
	}
	m.playlistList.SetItems(entries)

	if m.current == "" {
		return
	}
	pl, ok := snap.Get(m.current)
	if !ok {
		m.current = ""
		if m.view == ItemView {
			m.view = PlaylistView
		}
		return
	}

	items := make([]list.Item, len(pl.Items))
	for i, it := range pl.Items {
		here := tasks.Location{PlaylistID: pl.ID, Index: i}
		items[i] = itemEntry{
			item:    it,
			index:   i,
			playing: snap.IsActiveAt(pl.ID, i),
			grabbed: m.grabbed != nil && *m.grabbed == here,
		}
	}
	m.itemList.SetItems(items)
	m.itemList.Title = pl.Title
}

func (m *Model) resize() {
	h := max(m.height-chrome, 4)
	if m.help.ShowAll {
		h = max(h-4, 4)
	}
	for _, l := range []*list.Model{&m.playlistList, &m.itemList, &m.trashList} {
		l.SetSize(m.width, h)
	}
	m.bar.Width = min(max(m.width-24, 10), 60)
	m.help.Width = m.width
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg(m.deps.Loader.Load(m.ctx, m.deps.Updates))
	}
}

func (m *Model) waitStore() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.storeCh
		if !ok {
			return nil
		}
		return storeChangedMsg(snap)
	}
}

func (m *Model) waitSync() tea.Cmd {
	if m.deps.Updates == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-m.deps.Updates
		if !ok {
			return nil
		}
		return syncUpdateMsg(update)
	}
}

func (m *Model) waitPlayback() tea.Cmd {
	if m.deps.Player == nil {
		return nil
	}
	return func() tea.Msg {
		return playbackMsg(<-m.deps.Player.Progress())
	}
}

func (m *Model) move(src, dst tasks.Location) tea.Cmd {
	m.grabbed = nil
	m.refresh()
	if m.deps.Engine == nil {
		return func() tea.Msg { return movedMsg(tasks.OutcomeNoop, shared.ErrServiceUnavailable) }
	}

	mv := tasks.Move{Source: src, Destination: &dst}
	return func() tea.Msg {
		outcome, err := m.deps.Engine.Apply(m.ctx, mv)
		return movedMsg(outcome, err)
	}
}

func (m *Model) openTrash() tea.Cmd {
	m.view = TrashView
	return m.listTrash()
}

func (m *Model) listTrash() tea.Cmd {
	return func() tea.Msg {
		if m.deps.Trash == nil {
			return trashListedMsg(nil, fmt.Errorf("%w: no trash configured", shared.ErrServiceUnavailable))
		}
		entries, err := m.deps.Trash.List(map[string]any{"restored": false})
		return trashListedMsg(entries, err)
	}
}

func (m *Model) restore(id string) tea.Cmd {
	return func() tea.Msg {
		if m.deps.Engine == nil {
			return restoredMsg(nil, shared.ErrServiceUnavailable)
		}
		entry, err := m.deps.Engine.Restore(m.ctx, id)
		return restoredMsg(entry, err)
	}
}

func (m *Model) retry() tea.Cmd {
	return func() tea.Msg {
		if m.deps.Engine == nil {
			return retriedMsg(nil, shared.ErrServiceUnavailable)
		}
		result, err := m.deps.Engine.Retry(m.ctx)
		return retriedMsg(result, err)
	}
}

func (m *Model) copy(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Copy(url); err != nil {
			return statusMsg("", fmt.Errorf("failed to copy url: %w", err))
		}
		return statusMsg("copied "+url, nil)
	}
}

func (m *Model) seek(delta float64) tea.Cmd {
	return m.playerCmd(func(ctx context.Context) error { return m.deps.Player.SeekBy(ctx, delta) })
}

func (m *Model) playerCmd(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(m.ctx); err != nil {
			return statusMsg("", err)
		}
		return nil
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	parts := []string{m.activeList().View(), m.renderStatus()}
	if m.deps.Player != nil {
		parts = append(parts, m.renderPlayer())
	}
	parts = append(parts, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderStatus() string {
	if m.loading {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.sync.Message)
	}

	var line string
	switch {
	case m.status == "":
	case m.failed:
		line = styles.err.Render("✗ " + m.status)
	default:
		line = styles.ok.Render("✓ ") + m.status
	}
	if m.sync.Total > 0 && m.sync.Err == nil && m.sync.Step < m.sync.Total {
		line += styles.help.Render(fmt.Sprintf("  syncing %d/%d", m.sync.Step, m.sync.Total))
	}
	return line
}

func (m *Model) renderPlayer() string {
	p := m.deps.Player
	state := m.playback

	title := "nothing playing"
	if item, ok := m.snapshot.ActiveItem(); ok && state.State != playback.Idle {
		title = item.Title
	}

	pct := 0.0
	if state.Duration > 0 {
		pct = min(state.Current/state.Duration, 1)
	}

	var flags []string
	if p.Loop() {
		flags = append(flags, "loop")
	}
	if p.RepeatOne() {
		flags = append(flags, "repeat")
	}
	if p.Shuffle() {
		flags = append(flags, "shuffle")
	}
	volume := fmt.Sprintf("vol %d%%", int(p.Volume()*100+0.5))
	if p.Muted() {
		volume = "muted"
	}
	flags = append(flags, volume)

	return styles.bar.Render(lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %s", stateIcon(state.State), styles.playing.Render(title)),
		fmt.Sprintf("%s %s / %s", m.bar.ViewAs(pct), clock(state.Current), clock(state.Duration)),
		styles.help.Render(strings.Join(flags, " • ")),
	))
}

func stateIcon(s playback.State) string {
	switch s {
	case playback.Playing:
		return "▶"
	case playback.Paused:
		return "⏸"
	case playback.Loading:
		return "…"
	default:
		return "■"
	}
}

// clock formats seconds as m:ss, or h:mm:ss past an hour.
func clock(seconds float64) string {
	s := int(max(seconds, 0))
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
