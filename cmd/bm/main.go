package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nikbrunner/bmtree/internal/config"
	"github.com/nikbrunner/bmtree/internal/exporter"
	"github.com/nikbrunner/bmtree/internal/importer"
	"github.com/nikbrunner/bmtree/internal/server"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
	"github.com/nikbrunner/bmtree/internal/tui"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		case "serve":
			if err := runServe(loadConfig()); err != nil {
				fatal("serving", err)
			}
			return
		case "ls":
			var folder string
			if len(os.Args) >= 3 {
				folder = os.Args[2]
			}
			if err := runList(loadConfig(), os.Stdout, folder); err != nil {
				fatal("listing folder", err)
			}
			return
		case "import":
			if len(os.Args) < 3 {
				fmt.Fprintf(os.Stderr, "Usage: bm import <file.html> [folder-id]\n")
				os.Exit(1)
			}
			var folder string
			if len(os.Args) >= 4 {
				folder = os.Args[3]
			}
			res, err := runImport(loadConfig(), os.Args[2], folder)
			if err != nil {
				if res.Folders > 0 || res.Bookmarks > 0 {
					fmt.Fprintf(os.Stderr, "Imported %d bookmarks, %d folders before failing\n", res.Bookmarks, res.Folders)
				}
				fatal("importing", err)
			}
			fmt.Printf("Imported %d bookmarks, %d folders\n", res.Bookmarks, res.Folders)
			return
		case "export":
			var outputPath string
			if len(os.Args) >= 3 {
				outputPath = os.Args[2]
			}
			path, err := runExport(loadConfig(), outputPath)
			if err != nil {
				fatal("exporting", err)
			}
			fmt.Printf("Exported bookmarks to %s\n", path)
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	// No args - run full TUI
	if err := runTUI(loadConfig()); err != nil {
		fatal("running app", err)
	}
}

func printHelp() {
	help := `bm - vim-style bookmark tree

Usage:
  bm                    Open interactive TUI
  bm serve              Serve storage and sessions over HTTP
  bm ls [folder-id]     List a folder (root if omitted)
  bm import <file> [id] Import bookmarks from HTML into a folder (root if omitted)
  bm export [path]      Export bookmarks to HTML
  bm help               Show this help

TUI Keybindings:
  j/k         Move down/up
  l/Enter     Enter folder
  h           Go back
  gg/G        Jump to top/bottom
  a/A         Add bookmark/folder
  e           Rename folder / edit bookmark
  d           Delete
  Y           Copy URL to clipboard
  r           Refresh
  ?           Show help overlay
  q           Quit

Configuration:
  ~/.config/bm/config.json (YAML if BM_CONFIG ends in .yaml/.yml)
  Environment: BM_CONFIG, BM_STORAGE, BM_DATA_PATH, BM_REMOTE_URL,
  BM_DELETE_POLICY, BM_HISTORY_LIMIT, BM_ADDR, BM_CORS_ORIGIN, BM_MAX_SESSIONS,
  BM_LOG_LEVEL
`
	fmt.Print(help)
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	os.Exit(1)
}

// loadConfig reads BM_CONFIG or the default config file.
func loadConfig() *config.Config {
	path := os.Getenv("BM_CONFIG")
	if path == "" {
		var err error
		path, err = config.DefaultConfigFilePath()
		if err != nil {
			fatal("getting config path", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fatal("loading config", err)
	}
	return cfg
}

// openStorage is swapped out in tests.
var openStorage = storage.OpenStorage

// withStorage opens the configured storage, runs fn and closes the storage
// before returning fn's error, so failing commands still release it.
func withStorage(opts storage.Options, fn func(storage.Storage) error) error {
	s, err := openStorage(opts)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer storage.Close(s)
	return fn(s)
}

// consoleLogger writes human-readable logs to stderr for the CLI commands.
func consoleLogger(cfg *config.Config) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
}

// tuiLogger writes to bm.log next to the data when debugging; the terminal
// belongs to the TUI. The returned func closes the log file.
func tuiLogger(cfg *config.Config) (zerolog.Logger, func()) {
	nop := func() {}
	if cfg.Level() > zerolog.DebugLevel {
		return zerolog.Nop(), nop
	}
	dataPath, err := storage.DefaultConfigPath()
	if err != nil {
		return zerolog.Nop(), nop
	}
	f, err := os.OpenFile(filepath.Join(filepath.Dir(dataPath), "bm.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nop
	}
	return zerolog.New(f).Level(cfg.Level()).With().Timestamp().Logger(), func() { f.Close() }
}

// opContext bounds a one-shot CLI command by the storage request timeout.
func opContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	if timeout := cfg.StorageOptions().Timeout; timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// runTUI runs the full interactive TUI.
func runTUI(cfg *config.Config) error {
	return withStorage(cfg.StorageOptions(), func(s storage.Storage) error {
		logger, closeLog := tuiLogger(cfg)
		defer closeLog()

		sess := session.New(session.Params{
			Storage:      s,
			HistoryLimit: cfg.HistoryLimit,
			Logger:       &logger,
		})
		app := tui.NewApp(tui.AppParams{
			Session: sess,
			Timeout: cfg.StorageOptions().Timeout,
		})

		_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
		return err
	})
}

// runServe serves the storage until SIGINT or SIGTERM.
func runServe(cfg *config.Config) error {
	return withStorage(cfg.StorageOptions(), func(s storage.Storage) error {
		logger := zerolog.New(os.Stdout).Level(cfg.Level()).With().Timestamp().Logger()
		srv := server.New(s, server.Options{
			Address:      cfg.Server.Address,
			CORSOrigin:   cfg.Server.CORSOrigin,
			HistoryLimit: cfg.HistoryLimit,
			MaxSessions:  cfg.Server.MaxSessions,
			Logger:       logger,
		})

		errc := make(chan error, 1)
		go func() {
			errc <- srv.Start()
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case err := <-errc:
			return err
		case <-sigChan:
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			if err := srv.Stop(ctx); err != nil {
				logger.Error().Err(err).Msg("server forced to shutdown")
			}
			<-errc
			return nil
		}
	})
}

func parseFolderID(s string) (*int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing folder id: %w", err)
	}
	return &id, nil
}

// runList writes one folder's listing to w.
func runList(cfg *config.Config, w io.Writer, folder string) error {
	return withStorage(cfg.StorageOptions(), func(s storage.Storage) error {
		logger := consoleLogger(cfg)
		sess := session.New(session.Params{Storage: s, HistoryLimit: cfg.HistoryLimit, Logger: &logger})

		ctx, cancel := opContext(cfg)
		defer cancel()

		var view session.View
		var err error
		if folder == "" {
			view, err = sess.Refresh(ctx)
		} else {
			id, perr := parseFolderID(folder)
			if perr != nil {
				return perr
			}
			view, err = sess.Enter(ctx, *id)
		}
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range view.Folders {
			fmt.Fprintf(tw, "%d\t%s/\t\n", f.ID, f.Name)
		}
		for _, b := range view.Bookmarks {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Title, b.URL)
		}
		return tw.Flush()
	})
}

// runImport imports an HTML bookmarks file into folder (root if empty).
// The result counts what was written even when the import fails part way.
func runImport(cfg *config.Config, filePath, folder string) (importer.Result, error) {
	var target *int64
	if folder != "" {
		id, err := parseFolderID(folder)
		if err != nil {
			return importer.Result{}, err
		}
		target = id
	}

	file, err := os.Open(filePath)
	if err != nil {
		return importer.Result{}, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	tree, err := importer.ParseHTML(file)
	if err != nil {
		return importer.Result{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var res importer.Result
	err = withStorage(cfg.StorageOptions(), func(s storage.Storage) error {
		var ierr error
		res, ierr = importer.Import(context.Background(), s, tree, target)
		return ierr
	})
	return res, err
}

// runExport writes the whole tree to outputPath (the default export path
// if empty) and returns the path written.
func runExport(cfg *config.Config, outputPath string) (string, error) {
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			return "", fmt.Errorf("getting default export path: %w", err)
		}
	}

	err := withStorage(cfg.StorageOptions(), func(s storage.Storage) error {
		return exporter.WriteFile(context.Background(), s, outputPath)
	})
	return outputPath, err
}
