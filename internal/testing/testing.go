// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// CatalogCall is one request received by a [MockCatalog].
type CatalogCall struct {
	Op         string
	Token      string
	ItemID     string
	PlaylistID string
	Resource   models.ResourceRef
	Position   int
}

// MockCatalog is an in-memory test double for [services.Catalog].
//
// It records every write and assigns sequential ids ("new-1", "new-2", ...) to inserted items.
type MockCatalog struct {
	mu        sync.Mutex
	playlists []models.PlaylistSummary
	items     map[string][]models.PlaylistItem
	errs      map[string]error
	calls     []CatalogCall
	nextID    int
}

// NewMockCatalog creates a catalog serving the given playlists.
func NewMockCatalog(playlists ...models.Playlist) *MockCatalog {
	m := &MockCatalog{items: make(map[string][]models.PlaylistItem), errs: make(map[string]error)}
	for _, p := range playlists {
		m.playlists = append(m.playlists, models.PlaylistSummary{ID: p.ID, Title: p.Title, Thumbnail: p.Thumbnail})
		m.items[p.ID] = append([]models.PlaylistItem(nil), p.Items...)
	}
	return m
}

// SetError makes op ("list", "items", "insert", "update", "delete") fail with err. A nil err clears it.
// For "items:<playlistID>" only that playlist's item listing fails.
func (m *MockCatalog) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// Calls returns the writes received so far.
func (m *MockCatalog) Calls() []CatalogCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CatalogCall(nil), m.calls...)
}

// Ops returns the op names of the writes received so far.
func (m *MockCatalog) Ops() []string {
	calls := m.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func (m *MockCatalog) ListPlaylists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["list"]; err != nil {
		return nil, err
	}
	return append([]models.PlaylistSummary(nil), m.playlists...), nil
}

func (m *MockCatalog) ListPlaylistItems(ctx context.Context, token, playlistID string) ([]models.PlaylistItem, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["items"]; err != nil {
		return nil, err
	}
	if err := m.errs["items:"+playlistID]; err != nil {
		return nil, err
	}
	return append([]models.PlaylistItem(nil), m.items[playlistID]...), nil
}

func (m *MockCatalog) InsertItem(ctx context.Context, token, playlistID string, ref models.ResourceRef, position int) (string, error) {
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CatalogCall{Op: "insert", Token: token, PlaylistID: playlistID, Resource: ref, Position: position})
	if err := m.errs["insert"]; err != nil {
		return "", err
	}
	m.nextID++
	return fmt.Sprintf("new-%d", m.nextID), nil
}

func (m *MockCatalog) UpdateItemPosition(ctx context.Context, token, itemID, playlistID string, ref models.ResourceRef, position int) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CatalogCall{Op: "update", Token: token, ItemID: itemID, PlaylistID: playlistID, Resource: ref, Position: position})
	return m.errs["update"]
}

func (m *MockCatalog) DeleteItem(ctx context.Context, token, itemID string) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, CatalogCall{Op: "delete", Token: token, ItemID: itemID})
	return m.errs["delete"]
}

// MockPlayer is a test double for the embedded player.
//
// It starts not ready; tests flip readiness with SetReady.
type MockPlayer struct {
	mu       sync.Mutex
	ready    bool
	urls     []string
	index    int
	time     float64
	duration float64
	paused   bool
	shuffle  bool
	volume   float64
	muted    bool
	err      error
	calls    []string
}

// NewMockPlayer creates a player that is not ready yet.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{paused: true, volume: 1}
}

// SetReady controls what Ready reports.
func (p *MockPlayer) SetReady(ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = ready
}

// SetPosition sets the values reported by CurrentTime and Duration.
func (p *MockPlayer) SetPosition(t, d float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.time, p.duration = t, d
}

// SetError makes every subsequent command fail with err.
func (p *MockPlayer) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls returns the names of the commands received so far.
func (p *MockPlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Count returns how many times the command name was received.
func (p *MockPlayer) Count(name string) int {
	n := 0
	for _, c := range p.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// Loaded returns the urls of the last loaded playlist and the current index.
func (p *MockPlayer) Loaded() ([]string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...), p.index
}

// State returns the paused, shuffle, volume and muted flags.
func (p *MockPlayer) State() (paused, shuffle bool, volume float64, muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused, p.shuffle, p.volume, p.muted
}

func (p *MockPlayer) record(name string) error {
	p.calls = append(p.calls, name)
	return p.err
}

func (p *MockPlayer) Ready(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *MockPlayer) LoadPlaylistAt(ctx context.Context, urls []string, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return shared.ErrPlayerNotReady
	}
	if err := p.record("load"); err != nil {
		return err
	}
	p.urls = append([]string(nil), urls...)
	p.index = index
	p.time = 0
	p.paused = false
	return nil
}

func (p *MockPlayer) PlayVideoAt(ctx context.Context, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("play"); err != nil {
		return err
	}
	p.index = index
	p.time = 0
	p.paused = false
	return nil
}

func (p *MockPlayer) NextVideo(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record("next")
}

func (p *MockPlayer) PreviousVideo(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record("previous")
}

func (p *MockPlayer) SeekTo(ctx context.Context, seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("seek"); err != nil {
		return err
	}
	p.time = seconds
	return nil
}

func (p *MockPlayer) CurrentTime(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.time, p.err
}

func (p *MockPlayer) Duration(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, p.err
}

func (p *MockPlayer) SetShuffle(ctx context.Context, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("shuffle"); err != nil {
		return err
	}
	p.shuffle = on
	return nil
}

func (p *MockPlayer) SetPaused(ctx context.Context, paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("pause"); err != nil {
		return err
	}
	p.paused = paused
	return nil
}

func (p *MockPlayer) SetVolume(ctx context.Context, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("volume"); err != nil {
		return err
	}
	p.volume = volume
	return nil
}

func (p *MockPlayer) SetMuted(ctx context.Context, muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("mute"); err != nil {
		return err
	}
	p.muted = muted
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
