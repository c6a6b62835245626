package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"symtrail/internal/config"
	"symtrail/internal/engine"
	"symtrail/internal/errors"
	"symtrail/internal/export"
	"symtrail/internal/history"
	"symtrail/internal/paths"
	"symtrail/internal/watcher"
)

var (
	scipOutput    string
	historyOutput string
	exportAgainst string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index or its history",
}

var exportSCIPCmd = &cobra.Command{
	Use:   "scip <file>...",
	Short: "Write a SCIP index of symbols and call references",
	Long: `Index the given files and write a SCIP protobuf index with one document
per file, a definition occurrence per symbol and a reference occurrence per
call edge.

Examples:
  symtrail export scip src/*.ts -o index.scip`,
	Args: cobra.MinimumNArgs(1),
	Run:  runExportSCIP,
}

var exportHistoryCmd = &cobra.Command{
	Use:   "history <dir> --against <dir>",
	Short: "Replay two trees as one edit session and write its history",
	Long: `Index every file under <dir> as the baseline, then apply the files under
--against as edits to the same file ids, and write every recorded history
event as zstd-compressed JSON lines. Files present on only one side are
treated as empty on the other.

Examples:
  symtrail export history old/ --against new/ -o history.jsonl.zst`,
	Args: cobra.ExactArgs(1),
	Run:  runExportHistory,
}

func init() {
	exportSCIPCmd.Flags().StringVarP(&scipOutput, "output", "o", "index.scip", "Output file (- for stdout)")
	exportHistoryCmd.Flags().StringVarP(&historyOutput, "output", "o", "history.jsonl.zst", "Output file (- for stdout)")
	exportHistoryCmd.Flags().StringVar(&exportAgainst, "against", "", "Directory holding the edited tree")
	_ = exportHistoryCmd.MarkFlagRequired("against")

	exportCmd.AddCommand(exportSCIPCmd)
	exportCmd.AddCommand(exportHistoryCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportSCIP(cmd *cobra.Command, args []string) {
	logger := newLogger()

	root, err := workingRoot()
	if err != nil {
		exitWith(err)
	}
	eng, _, err := newEngine(root, logger, false)
	if err != nil {
		exitWith(err)
	}
	defer eng.Close()

	if _, err := openFiles(eng, root, args); err != nil {
		exitWith(err)
	}

	index := export.SCIP(eng.Snapshots(), eng.Edges(), root)
	if err := writeOutput(scipOutput, cmd.OutOrStdout(), func(w io.Writer) error {
		return export.WriteSCIP(w, index)
	}); err != nil {
		exitWith(err)
	}

	logger.Info("SCIP index written",
		"output", scipOutput,
		"documents", len(index.Documents),
	)
}

func runExportHistory(cmd *cobra.Command, args []string) {
	logger := newLogger()

	base, err := filepath.Abs(args[0])
	if err != nil {
		exitWith(err)
	}
	against, err := filepath.Abs(exportAgainst)
	if err != nil {
		exitWith(err)
	}
	eng, cfg, err := newEngine(base, logger, false)
	if err != nil {
		exitWith(err)
	}
	defer eng.Close()

	events, err := replayHistory(eng, base, against, cfg, logger)
	if err != nil {
		exitWith(err)
	}
	if err := writeOutput(historyOutput, cmd.OutOrStdout(), func(w io.Writer) error {
		return export.WriteHistory(w, events)
	}); err != nil {
		exitWith(err)
	}

	logger.Info("History written",
		"output", historyOutput,
		"session", eng.History.Session(),
		"events", len(events),
	)
}

// replayHistory opens the union of both trees at base's content, then moves
// every file to against's content and returns the recorded events.
func replayHistory(eng *engine.Engine, base, against string, cfg *config.Config, logger *slog.Logger) ([]history.Event, error) {
	before, err := readTree(base, cfg)
	if err != nil {
		return nil, err
	}
	after, err := readTree(against, cfg)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(before)+len(after))
	for id := range before {
		ids = append(ids, id)
	}
	for id := range after {
		if _, ok := before[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		eng.Open(id, paths.LanguageFromPath(id), before[id])
	}
	for _, id := range ids {
		eng.Update(id, after[id])
	}
	eng.Flush()

	logger.Debug("Replayed trees", "base", base, "against", against, "files", len(ids))
	return eng.History.All(), nil
}

// readTree reads every watched source file under root, keyed by file id.
func readTree(root string, cfg *config.Config) (map[string]string, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, errors.New(errors.DocumentNotFound, fmt.Sprintf("%s is not a directory", root), err, nil)
	}

	wcfg := watcher.DefaultConfig()
	wcfg.IgnorePatterns = cfg.Watch.IgnorePatterns
	wcfg.Extensions = cfg.Watch.Extensions

	out := make(map[string]string)
	err := watcher.NewFilter(root, wcfg).Walk(func(path string) error {
		if paths.LanguageFromPath(path) == "" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.DocumentNotFound, err, "cannot read %s", path)
		}
		id, err := fileID(path, root)
		if err != nil {
			return err
		}
		out[id] = string(content)
		return nil
	})
	return out, err
}

// writeOutput writes to path, or to stdout when path is "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ExportFailed, err, "cannot create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ExportFailed, err, "cannot close %s", path)
	}
	return nil
}
