// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Google account link
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Link or unlink your YouTube account",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize ytdeck in the browser using OAuth2",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 2 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Revoke and delete the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a token is stored",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Inspect and export your playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  outputFlags(),
				Action: r.PlaylistsList,
			},
			{
				Name:  "show",
				Usage: "Show the items of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "playlist",
						UsageText: "Playlist id or title",
					},
				},
				Flags:  outputFlags(),
				Action: r.PlaylistsShow,
			},
			{
				Name:  "export",
				Usage: "Export playlists to files",
				Arguments: []cli.Argument{
					&cli.StringArgs{
						Name:      "playlists",
						UsageText: "Playlist ids or titles; all playlists when omitted",
						Min:       0,
						Max:       -1,
					},
				},
				Flags: append(outputFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown (md), txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: ytdeck_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent exports",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download playlist thumbnails for markdown exports",
					},
				),
				Action: r.PlaylistsExport,
			},
		},
	}
}

func moveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "move",
		Aliases:   []string{"mv"},
		Usage:     "Move an item within or between playlists, or to the trash",
		UsageText: "ytdeck move --from \"Road Trip:3\" --to \"Road Trip:1\"\nytdeck move --from \"Road Trip:3\" --to trash",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Source as PLAYLIST:POSITION (1-based)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Destination as PLAYLIST:POSITION or trash; omit to leave the item in place",
			},
		},
		Action: r.Move,
	}
}

func trashCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "trash",
		Usage: "List or restore trashed items",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List trashed items",
				Flags: append(outputFlags(),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include restored items",
					},
				),
				Action: r.TrashList,
			},
			{
				Name:  "restore",
				Usage: "Re-insert a trashed item into its playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "id",
						UsageText: "Trash entry id from 'ytdeck trash list'",
					},
				},
				Action: r.TrashRestore,
			},
		},
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Inspect and retry remote writes",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show journal counts and failed writes",
				Flags:  outputFlags(),
				Action: r.SyncStatus,
			},
			{
				Name:   "retry",
				Usage:  "Re-issue failed writes",
				Flags:  outputFlags(),
				Action: r.SyncRetry,
			},
			{
				Name:  "purge",
				Usage: "Delete old confirmed journal records",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Minimum age of purged records",
						Value: 7 * 24 * time.Hour,
					},
				},
				Action: r.SyncPurge,
			},
		},
	}
}

func urlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "url",
		Usage: "Print the share URL of a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "playlist",
				UsageText: "Playlist id or title",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the URL to the clipboard",
			},
		},
		Action: r.URL,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Open the playlist deck and player",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "playlist",
				UsageText: "Playlist to start playing",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-launch",
				Usage: "Connect to an mpv already listening on the configured socket",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file path",
				Value: "./tmp/ytdeck-tui.log",
			},
		},
		Action: r.Play,
	}
}
