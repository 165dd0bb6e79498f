package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/repositories"
	"github.com/desertthunder/ytdeck/internal/services"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/desertthunder/ytdeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// tokenProvider keys the stored OAuth token.
const tokenProvider = "youtube"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	copy       func(string) error
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Copy       func(string) error
	DB         *sql.DB // Optional; opened from Config.Database on first use
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewYouTubeCatalog(services.YouTubeCatalogOpts{
			Endpoint:          opts.Config.Credentials.YouTube.Endpoint,
			HTTPClient:        opts.HTTPClient,
			RequestsPerSecond: opts.Config.Sync.RequestsPerSecond,
			Burst:             opts.Config.Sync.Burst,
			Logger:            opts.Logger,
		})
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		copy:       opts.Copy,
		db:         opts.DB,
	}
}

// SetLogger replaces the runner's logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }

// Close releases the database handle if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, moveCommand, trashCommand, syncCommand, urlCommand, playCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens and migrates the configured database once.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// tokens returns the token store. Refresh is only available when OAuth credentials are configured.
func (r *Runner) tokens() (*repositories.TokenRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	repo := repositories.NewTokenRepository(db, tokenProvider)
	if cfg, err := services.NewOAuthConfig(r.config.Credentials.YouTube); err == nil {
		repo = repo.WithConfig(cfg)
	} else {
		r.logger.Debug("token refresh disabled", "error", err)
	}
	return repo, nil
}

// session wires the store to the loader and sync engine for one command.
type session struct {
	store   *playlists.Store
	loader  *tasks.Loader
	engine  *tasks.Engine
	journal *repositories.SyncJournalRepository
	trash   *repositories.TrashRepository
	updates chan tasks.SyncUpdate
}

func (r *Runner) newSession() (*session, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	creds, err := r.tokens()
	if err != nil {
		return nil, err
	}

	s := &session{
		store:   playlists.NewStore(playlists.New(nil)),
		journal: repositories.NewSyncJournalRepository(db),
		trash:   repositories.NewTrashRepository(db),
		updates: make(chan tasks.SyncUpdate, 64),
	}
	s.loader = tasks.NewLoader(s.store, r.catalog, creds, tasks.LoaderOpts{Logger: shared.WithLogger(r.logger, "component", "loader")})
	s.engine = tasks.NewEngine(tasks.EngineOpts{
		Store:       s.store,
		Catalog:     r.catalog,
		Credentials: creds,
		Journal:     s.journal,
		Trash:       s.trash,
		Logger:      shared.WithLogger(r.logger, "component", "sync"),
		Progress:    s.updates,
	})
	return s, nil
}

// loadSession creates a session and fetches the user's playlists into it.
func (r *Runner) loadSession(ctx context.Context) (*session, error) {
	s, err := r.newSession()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("fetching playlists")
	if err := s.loader.Load(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	return s, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
