package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"symtrail/internal/config"
	"symtrail/internal/engine"
	"symtrail/internal/errors"
	"symtrail/internal/paths"
	"symtrail/internal/slogutil"
	"symtrail/internal/version"
)

var (
	// configPath is the --config flag value; empty means <cwd>/.symtrail/config.json
	configPath string
	verbosity  int
	quiet      bool
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "symtrail",
	Short: "symtrail - incremental symbols, call graph and history for TS/JS",
	Long: `symtrail derives a structural model of TypeScript and JavaScript files:
the symbols each file declares, the calls between them, and a symbol-level
history of how they change while you edit.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("symtrail version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .symtrail/config.json)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
}

// newLogger builds the CLI logger from the verbosity flags. Logs go to stderr so
// they never mix with command output.
func newLogger() *slog.Logger {
	return newLoggerAt(slogutil.LevelFromVerbosity(verbosity, quiet))
}

func newLoggerAt(level slog.Level) *slog.Logger {
	if logFile == "" {
		return slogutil.NewLogger(os.Stderr, level)
	}
	fileLogger, _, err := slogutil.NewFileLogger(logFile, slog.LevelDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", logFile, err)
		return slogutil.NewLogger(os.Stderr, level)
	}
	return slog.New(slogutil.NewTeeHandler(
		slogutil.NewHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		fileLogger.Handler(),
	))
}

// loadConfig loads --config if given, else the project config under root.
// A config that fails validation is an error; a missing one is not.
func loadConfig(root string, logger *slog.Logger) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadConfig(root)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, err, "invalid configuration")
	}
	logger.Debug("Configuration loaded", "root", root, "debounceMs", cfg.Index.DebounceMs)
	return cfg, nil
}

// newEngine loads configuration and builds an engine. One-shot commands index
// each file once, so they never wait on the debounce.
func newEngine(root string, logger *slog.Logger, withSinks bool) (*engine.Engine, *config.Config, error) {
	cfg, err := loadConfig(root, logger)
	if err != nil {
		return nil, nil, err
	}
	opts := engine.OptionsFromConfig(cfg)
	if !withSinks {
		opts.HistoryDB = ""
		opts.Metrics = false
	}
	eng, err := engine.New(opts, logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, cfg, nil
}

// workingRoot returns the directory file ids are relative to.
func workingRoot() (string, error) {
	return os.Getwd()
}

// openFiles reads each path from disk into eng. It returns the file ids in
// argument order.
func openFiles(eng *engine.Engine, root string, files []string) ([]string, error) {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		id, err := openFile(eng, root, f)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func openFile(eng *engine.Engine, root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(errors.DocumentNotFound, err, "cannot resolve %s", path)
	}
	lang := paths.LanguageFromPath(abs)
	if lang == "" {
		return "", errors.New(errors.UnsupportedLanguage,
			fmt.Sprintf("%s is not a TypeScript or JavaScript file", path), nil, nil)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", errors.Wrap(errors.DocumentNotFound, err, "cannot read %s", path)
	}
	id, err := fileID(abs, root)
	if err != nil {
		return "", err
	}
	eng.Open(id, lang, string(content))
	return id, nil
}

// fileID maps an absolute path to a root-relative, forward-slash id. Paths
// outside root keep their cleaned absolute form.
func fileID(abs, root string) (string, error) {
	if !paths.IsWithinRoot(abs, root) {
		return paths.NormalizePath(abs), nil
	}
	id, err := paths.CanonicalizePath(abs, root)
	if err != nil {
		return "", errors.Wrap(errors.DocumentNotFound, err, "cannot map %s to a file id", abs)
	}
	return id, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func exitWith(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
