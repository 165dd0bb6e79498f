package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/playback"
	"github.com/desertthunder/ytdeck/internal/player"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/desertthunder/ytdeck/internal/ui"
	"github.com/urfave/cli/v3"
)

var _ player.Events = (*playback.Controller)(nil)

// Play launches mpv and the interactive terminal UI.
//
// With a playlist argument the playlists are loaded first and playback starts right away.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	s, err := r.newSession()
	if err != nil {
		return err
	}

	pc := r.config.Player
	if !cmd.Bool("no-launch") {
		launcher := player.NewLauncher(pc.Command, pc.Args, pc.Socket, shared.WithLogger(r.logger, "component", "launcher"))
		if err := launcher.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := launcher.Stop(3 * time.Second); err != nil {
				r.logger.Warn("failed to stop player", "error", err)
			}
		}()
	}

	mpv := player.NewMPV(pc.Socket, 0, shared.WithLogger(r.logger, "component", "mpv"))
	controller := playback.NewController(mpv, s.store, playback.Options{
		PollInterval:  pc.PollInterval,
		ReadyInterval: pc.ReadyInterval,
		Loop:          pc.Loop,
		Volume:        pc.Volume,
		Logger:        shared.WithLogger(r.logger, "component", "playback"),
	})
	defer controller.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchPlayer(watchCtx, mpv, controller, pc.ReadyInterval, r.logger)

	loader := s.loader
	if name := cmd.StringArg("playlist"); name != "" {
		if err := s.loader.Load(ctx, s.updates); err != nil {
			return fmt.Errorf("failed to load playlists: %w", err)
		}
		pl, err := resolvePlaylist(s.store.Snapshot(), name)
		if err != nil {
			return err
		}
		if err := controller.LoadPlaylist(pl.ID, pl.Index); err != nil {
			return err
		}
		loader = nil
	}

	model := ui.NewModel(ctx, ui.Deps{
		Store:   s.store,
		Engine:  s.engine,
		Loader:  loader,
		Player:  controller,
		Trash:   s.trash,
		Updates: s.updates,
		Copy:    r.copy,
		Logger:  r.logger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()

	s.engine.Wait()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// watchPlayer forwards player events until ctx is done, reconnecting while the player starts or restarts.
func watchPlayer(ctx context.Context, mpv *player.MPV, events player.Events, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := mpv.Watch(ctx, events)
		if ctx.Err() != nil {
			return
		}
		logger.Debug("player event stream closed", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
