package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/shared"
)

const defaultTimeout = 2 * time.Second

var errUnavailable = fmt.Errorf("%w: property unavailable", shared.ErrPlayerCommand)

// Events receives player state changes observed by [MPV.Watch].
type Events interface {
	HandlePlay()
	HandlePause()
	HandleEnded()
	HandleIndex(index int)
}

// MPV controls mpv through its IPC socket. Each command uses its own connection.
type MPV struct {
	socket  string
	timeout time.Duration
	logger  *log.Logger
	nextID  atomic.Int64
}

// NewMPV creates a client for the socket at path. A zero timeout uses two seconds.
func NewMPV(socket string, timeout time.Duration, logger *log.Logger) *MPV {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &MPV{socket: socket, timeout: timeout, logger: logger}
}

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// message is either a reply or an event.
type message struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Name      string          `json:"name"`
}

func (m *MPV) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", m.socket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPlayerNotReady, err)
	}
	return conn, nil
}

// command sends one command and returns the data of its reply, skipping any events in between.
func (m *MPV) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	conn, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(m.timeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPlayerCommand, err)
	}

	id := m.nextID.Add(1)
	if err := json.NewEncoder(conn).Encode(request{Command: args, RequestID: id}); err != nil {
		return nil, fmt.Errorf("%w: %v: %v", shared.ErrPlayerCommand, args[0], err)
	}

	dec := json.NewDecoder(conn)
	for {
		var msg message
		if err := dec.Decode(&msg); err != nil {
			return nil, fmt.Errorf("%w: %v: %v", shared.ErrPlayerCommand, args[0], err)
		}
		if msg.Event != "" || msg.RequestID != id {
			continue
		}

		switch msg.Error {
		case "", "success":
			return msg.Data, nil
		case "property unavailable":
			return nil, errUnavailable
		default:
			return nil, fmt.Errorf("%w: %v: %s", shared.ErrPlayerCommand, args[0], msg.Error)
		}
	}
}

func (m *MPV) set(ctx context.Context, name string, value any) error {
	_, err := m.command(ctx, "set_property", name, value)
	return err
}

// float reads a numeric property. Properties mpv has no value for yet read as zero.
func (m *MPV) float(ctx context.Context, name string) (float64, error) {
	data, err := m.command(ctx, "get_property", name)
	if errors.Is(err, errUnavailable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", shared.ErrPlayerCommand, name, err)
	}
	return v, nil
}

// Ready reports whether mpv answers on the socket.
func (m *MPV) Ready(ctx context.Context) bool {
	_, err := m.command(ctx, "get_property", "idle-active")
	return err == nil
}

// LoadPlaylistAt replaces mpv's playlist with urls and starts playing at index.
func (m *MPV) LoadPlaylistAt(ctx context.Context, urls []string, index int) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: empty playlist", shared.ErrInvalidInput)
	}
	index = max(0, min(index, len(urls)-1))

	for i, u := range urls {
		mode := "append"
		if i == 0 {
			mode = "replace"
		}
		if _, err := m.command(ctx, "loadfile", u, mode); err != nil {
			return err
		}
	}

	m.logger.Debug("loaded playlist", "entries", len(urls), "index", index)
	if err := m.set(ctx, "playlist-pos", index); err != nil {
		return err
	}
	return m.set(ctx, "pause", false)
}

// PlayVideoAt jumps to entry index of the loaded playlist and resumes.
func (m *MPV) PlayVideoAt(ctx context.Context, index int) error {
	if err := m.set(ctx, "playlist-pos", index); err != nil {
		return err
	}
	return m.set(ctx, "pause", false)
}

func (m *MPV) NextVideo(ctx context.Context) error {
	_, err := m.command(ctx, "playlist-next", "force")
	return err
}

func (m *MPV) PreviousVideo(ctx context.Context) error {
	_, err := m.command(ctx, "playlist-prev", "force")
	return err
}

// SeekTo seeks to an absolute position in seconds.
func (m *MPV) SeekTo(ctx context.Context, seconds float64) error {
	_, err := m.command(ctx, "seek", max(0, seconds), "absolute")
	return err
}

func (m *MPV) CurrentTime(ctx context.Context) (float64, error) { return m.float(ctx, "time-pos") }

func (m *MPV) Duration(ctx context.Context) (float64, error) { return m.float(ctx, "duration") }

func (m *MPV) SetShuffle(ctx context.Context, on bool) error {
	cmd := "playlist-unshuffle"
	if on {
		cmd = "playlist-shuffle"
	}
	_, err := m.command(ctx, cmd)
	return err
}

func (m *MPV) SetPaused(ctx context.Context, paused bool) error { return m.set(ctx, "pause", paused) }

// SetVolume takes a volume in [0, 1]; mpv's scale is 0 to 100.
func (m *MPV) SetVolume(ctx context.Context, volume float64) error {
	return m.set(ctx, "volume", max(0, min(volume, 1))*100)
}

func (m *MPV) SetMuted(ctx context.Context, muted bool) error { return m.set(ctx, "mute", muted) }

// observed lists the properties Watch subscribes to; the observer id is the index plus one.
var observed = []string{"pause", "idle-active", "playlist-pos"}

// Watch observes playback properties and forwards changes to events until ctx is done.
//
// It returns nil when ctx is cancelled and an error when the connection drops.
func (m *MPV) Watch(ctx context.Context, events Events) error {
	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	enc := json.NewEncoder(conn)
	for i, name := range observed {
		req := request{Command: []any{"observe_property", i + 1, name}, RequestID: m.nextID.Add(1)}
		if err := enc.Encode(req); err != nil {
			return fmt.Errorf("%w: observe %s: %v", shared.ErrPlayerCommand, name, err)
		}
	}

	dec := json.NewDecoder(conn)
	for {
		var msg message
		if err := dec.Decode(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: watch: %v", shared.ErrPlayerCommand, err)
		}
		if msg.Event == "property-change" {
			m.dispatch(msg, events)
		}
	}
}

func (m *MPV) dispatch(msg message, events Events) {
	switch msg.Name {
	case "pause":
		var paused bool
		if json.Unmarshal(msg.Data, &paused) != nil {
			return
		}
		if paused {
			events.HandlePause()
		} else {
			events.HandlePlay()
		}
	case "idle-active":
		var idle bool
		if json.Unmarshal(msg.Data, &idle) == nil && idle {
			events.HandleEnded()
		}
	case "playlist-pos":
		var pos int
		if json.Unmarshal(msg.Data, &pos) == nil && pos >= 0 {
			events.HandleIndex(pos)
		}
	default:
		m.logger.Debug("ignoring property change", "name", msg.Name)
	}
}
