package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// Launcher runs mpv in idle mode with its IPC server on a socket
type Launcher struct {
	command string   // player binary, "mpv" when empty
	args    []string // extra arguments from config
	socket  string
	logger  *log.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewLauncher creates a Launcher for the configured command
func NewLauncher(command string, args []string, socket string, logger *log.Logger) *Launcher {
	if command == "" {
		command = "mpv"
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Launcher{command: command, args: args, socket: socket, logger: logger}
}

// Args returns the full argument list passed to the player
func (l *Launcher) Args() []string {
	args := []string{"--idle=yes", "--force-window=no", "--input-ipc-server=" + l.socket}
	return append(args, l.args...)
}

// Start launches the player without waiting for its socket.
//
// A stale socket file left by a crashed player is removed first.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return nil
	}

	path, err := exec.LookPath(l.command)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %v", shared.ErrPlayerNotReady, l.command, err)
	}

	if err := os.Remove(l.socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("failed to remove stale socket", "socket", l.socket, "error", err)
	}

	cmd := exec.CommandContext(ctx, path, l.Args()...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.command, err)
	}

	l.logger.Info("launched player", "command", path, "socket", l.socket, "pid", cmd.Process.Pid)
	l.cmd = cmd
	l.done = make(chan struct{})

	go func(cmd *exec.Cmd, done chan struct{}) {
		defer close(done)
		if err := cmd.Wait(); err != nil {
			l.logger.Debug("player exited", "error", err)
		}
	}(cmd, l.done)

	return nil
}

// Stop asks the player to quit and kills it if it has not exited within timeout
func (l *Launcher) Stop(timeout time.Duration) error {
	l.mu.Lock()
	cmd, done := l.cmd, l.done
	l.cmd, l.done = nil, nil
	l.mu.Unlock()

	if cmd == nil {
		return nil
	}
	defer os.Remove(l.socket)

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		l.logger.Debug("interrupt failed, killing player", "error", err)
		return cmd.Process.Kill()
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("player did not exit, killing", "pid", cmd.Process.Pid)
		return cmd.Process.Kill()
	}
}
