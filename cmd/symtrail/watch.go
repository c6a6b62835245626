package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"symtrail/internal/engine"
	"symtrail/internal/history"
	"symtrail/internal/metrics"
	"symtrail/internal/watcher"
)

var (
	watchMetricsAddr string
	watchHistoryDB   string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and log symbol history as files change",
	Long: `Index every TypeScript and JavaScript file under a directory, then keep
the index current as files change on disk. Each recorded history event is
logged. Press Ctrl-C to stop.

Examples:
  symtrail watch .
  symtrail watch --metrics-addr=:9464 src
  symtrail watch --history-db=.symtrail/history.db .`,
	Args: cobra.ExactArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address")
	watchCmd.Flags().StringVar(&watchHistoryDB, "history-db", "", "Mirror history events to this sqlite file")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	logger := newLogger()
	if verbosity == 0 && !quiet {
		// history events are the output of this command
		logger = newLoggerAt(slog.LevelInfo)
	}

	root, err := filepath.Abs(args[0])
	if err != nil {
		exitWith(err)
	}
	cfg, err := loadConfig(root, logger)
	if err != nil {
		exitWith(err)
	}
	if watchMetricsAddr != "" {
		cfg.Telemetry.MetricsAddr = watchMetricsAddr
	}
	if watchHistoryDB != "" {
		cfg.History.DatabasePath = watchHistoryDB
	}

	eng, err := engine.New(engine.OptionsFromConfig(cfg), logger)
	if err != nil {
		exitWith(err)
	}
	defer eng.Close()

	eng.History.OnEventRecorded(func(e history.Event) {
		logger.Info(e.Summary,
			"kind", string(e.Kind),
			"file", e.FileID,
			"version", e.SnapshotRef.Version,
		)
	})

	wcfg := watcher.DefaultConfig()
	wcfg.IgnorePatterns = cfg.Watch.IgnorePatterns
	wcfg.Extensions = cfg.Watch.Extensions

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watchTree(ctx, eng, root, wcfg, cfg.Telemetry.MetricsAddr, logger); err != nil {
		exitWith(err)
	}
}

// watchTree indexes root, then applies filesystem changes until ctx is done.
func watchTree(ctx context.Context, eng *engine.Engine, root string, wcfg watcher.Config, metricsAddr string, logger *slog.Logger) error {
	w, err := watcher.New(root, wcfg, logger.With("component", "watcher"), func(changes []watcher.Change) {
		applyChanges(eng, root, changes, logger)
	})
	if err != nil {
		return err
	}

	n := openTree(eng, root, w.Filter, logger)
	logger.Info("Initial index complete", "root", root, "files", n)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		w.Stop()
		eng.Flush()
		return nil
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("Serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// openTree opens every watched, non-ignored file under root and returns how
// many were opened.
func openTree(eng *engine.Engine, root string, f *watcher.Filter, logger *slog.Logger) int {
	var n int
	_ = f.Walk(func(path string) error {
		if _, err := openFile(eng, root, path); err != nil {
			logger.Debug("Skipping file", "path", path, "error", err.Error())
			return nil
		}
		n++
		return nil
	})
	return n
}

// applyChanges feeds one batch of filesystem changes into the buffer. A file
// that can no longer be read is closed.
func applyChanges(eng *engine.Engine, root string, changes []watcher.Change, logger *slog.Logger) {
	for _, c := range changes {
		switch c.Op {
		case watcher.OpRemove, watcher.OpRename:
			// atomic saves rename over the target, which still exists
			if !fileExists(c.Path) {
				closePath(eng, root, c.Path, logger)
				continue
			}
			if _, err := openFile(eng, root, c.Path); err != nil {
				closePath(eng, root, c.Path, logger)
			}
		default:
			if _, err := openFile(eng, root, c.Path); err != nil {
				logger.Debug("Cannot read changed file", "path", c.Path, "error", err.Error())
				closePath(eng, root, c.Path, logger)
			}
		}
	}
}

func closePath(eng *engine.Engine, root, path string, logger *slog.Logger) {
	id, err := fileID(path, root)
	if err != nil {
		return
	}
	if eng.CloseDocument(id) {
		logger.Debug("Document closed", "file", id)
	}
}
