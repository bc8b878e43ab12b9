package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ritzau/promptgraph/pkg/catalog"
	"github.com/ritzau/promptgraph/pkg/config"
	"github.com/ritzau/promptgraph/pkg/logging"
	"github.com/ritzau/promptgraph/pkg/watcher"
	"github.com/ritzau/promptgraph/pkg/web"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1 // at least one response failed validation
	exitError   = 2 // configuration or I/O failure
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("promptgraph", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: promptgraph [flags] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Validates LLM graph responses. With no files, reads stdin.\n")
		fmt.Fprintf(os.Stderr, "With --web, serves the responses under --dir in a graph viewer.\n\n")
		flags.PrintDefaults()
	}
	configPath := flags.String("config", config.DefaultFile, "Path to a TOML config file")
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: failed to load .env: %v\n", err)
		return exitError
	}

	cfg, err := config.Load(flags, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	logging.Setup(os.Stderr, cfg.LogLevel(), cfg.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.WebMode {
		return runCheck(flags.Args(), os.Stdin, os.Stdout, cfg.Strict)
	}

	if err := runWeb(ctx, cfg); err != nil {
		logging.Error("web mode failed", "error", err)
		return exitError
	}
	return exitOK
}

func runWeb(ctx context.Context, cfg *config.Config) error {
	var srv *web.Server
	cat := catalog.New(cfg.Dir,
		catalog.WithStrict(cfg.Strict),
		catalog.WithListener(func(ch catalog.Change) { srv.PublishChange(ch) }),
	)
	srv = web.NewServer(cat, web.WithStrict(cfg.Strict))

	if info, err := os.Stat(cfg.Dir); err != nil {
		return fmt.Errorf("outputs directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("outputs directory: %s is not a directory", cfg.Dir)
	}
	if _, err := cat.LoadDir(cfg.Dir); err != nil {
		logging.Warn("some documents could not be read", "error", err)
	}
	srv.PublishSummary()

	if cfg.Watch {
		if err := startWatching(ctx, cfg, cat); err != nil {
			return err
		}
	}

	if cfg.OpenBrowser {
		go func() {
			// Give the listener a moment to come up.
			time.Sleep(500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
		}()
	}

	return srv.Start(ctx, cfg.Port)
}

func startWatching(ctx context.Context, cfg *config.Config, cat *catalog.Catalog) error {
	fw, err := watcher.NewFileWatcher(cfg.Dir, catalog.Eligible)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), cfg.Debounce.Quiet, cfg.Debounce.Max)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			logging.Info("reloading changed documents", "count", len(event.Paths))
			logging.Debug("changed paths", "paths", event.Paths)
			for _, path := range event.Paths {
				if err := cat.Sync(path); err != nil {
					logging.Warn("failed to reload document", "path", path, "error", err)
				}
			}
		}
	}()
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
