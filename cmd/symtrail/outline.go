package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"symtrail/internal/engine"
	"symtrail/internal/errors"
	"symtrail/internal/symbols"
)

var outlineFormat string

var outlineCmd = &cobra.Command{
	Use:   "outline <file>...",
	Short: "Print the symbols declared in each file",
	Long: `Index each file once and print its symbols in declaration order.

Examples:
  symtrail outline src/app.ts
  symtrail outline --format=human src/*.tsx
  symtrail outline --format=yaml lib/index.js`,
	Args: cobra.MinimumNArgs(1),
	Run:  runOutline,
}

func init() {
	outlineCmd.Flags().StringVar(&outlineFormat, "format", "json", "Output format (json, human, yaml, toml)")
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) {
	start := time.Now()
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

	ids, err := openFiles(eng, root, args)
	if err != nil {
		exitWith(err)
	}
	resp, err := buildOutline(eng, ids)
	if err != nil {
		exitWith(err)
	}

	output, err := FormatResponse(resp, OutputFormat(outlineFormat))
	if err != nil {
		exitWith(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	logger.Debug("Outline completed",
		"files", len(ids),
		"duration", time.Since(start).Milliseconds(),
	)
}

// OutlineResponseCLI is the outline command output
type OutlineResponseCLI struct {
	Files []OutlineFileCLI `json:"files" yaml:"files" toml:"files"`
}

// OutlineFileCLI is one file's snapshot
type OutlineFileCLI struct {
	FileID     string      `json:"fileId" yaml:"fileId" toml:"fileId"`
	LanguageID string      `json:"languageId" yaml:"languageId" toml:"languageId"`
	Version    int         `json:"version" yaml:"version" toml:"version"`
	Symbols    []SymbolCLI `json:"symbols" yaml:"symbols" toml:"symbols"`
}

// SymbolCLI is a flattened symbol for output
type SymbolCLI struct {
	ID          string `json:"id" yaml:"id" toml:"id"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Kind        string `json:"kind" yaml:"kind" toml:"kind"`
	Container   string `json:"container,omitempty" yaml:"container,omitempty" toml:"container,omitempty"`
	Depth       int    `json:"depth" yaml:"depth" toml:"depth"`
	Line        int    `json:"line" yaml:"line" toml:"line"`
	Column      int    `json:"column" yaml:"column" toml:"column"`
	EndLine     int    `json:"endLine" yaml:"endLine" toml:"endLine"`
	EndColumn   int    `json:"endColumn" yaml:"endColumn" toml:"endColumn"`
	Summary     string `json:"summary,omitempty" yaml:"summary,omitempty" toml:"summary,omitempty"`
	LinesOfCode int    `json:"linesOfCode,omitempty" yaml:"linesOfCode,omitempty" toml:"linesOfCode,omitempty"`
	Complexity  *int   `json:"complexity,omitempty" yaml:"complexity,omitempty" toml:"complexity,omitempty"`
}

func buildOutline(eng *engine.Engine, ids []string) (*OutlineResponseCLI, error) {
	resp := &OutlineResponseCLI{Files: make([]OutlineFileCLI, 0, len(ids))}
	for _, id := range ids {
		snap, ok := eng.Indexer.Snapshot(id)
		if !ok {
			return nil, errors.New(errors.FileTooLarge,
				fmt.Sprintf("no snapshot for %s; it may exceed index.maxFileBytes", id), nil, nil)
		}
		resp.Files = append(resp.Files, convertSnapshot(snap))
	}
	return resp, nil
}

func convertSnapshot(snap *symbols.Snapshot) OutlineFileCLI {
	out := OutlineFileCLI{
		FileID:     snap.FileID,
		LanguageID: snap.LanguageID,
		Version:    snap.Version,
		Symbols:    make([]SymbolCLI, 0, len(snap.Symbols)),
	}
	depth := make(map[string]int, len(snap.Symbols))
	for _, s := range snap.Symbols {
		sc := SymbolCLI{
			ID:        s.ID,
			Name:      s.Name,
			Kind:      string(s.Kind),
			Line:      s.SelectionRange.Start.Line,
			Column:    s.SelectionRange.Start.Column,
			EndLine:   s.Range.End.Line,
			EndColumn: s.Range.End.Column,
			Summary:   s.Summary,
		}
		if s.ContainerID != "" {
			depth[s.ID] = depth[s.ContainerID] + 1
			sc.Depth = depth[s.ID]
			if c, ok := snap.Lookup(s.ContainerID); ok {
				sc.Container = c.Name
			}
		}
		if s.Metrics != nil {
			sc.LinesOfCode = s.Metrics.LinesOfCode
			sc.Complexity = s.Metrics.Complexity
		}
		out.Symbols = append(out.Symbols, sc)
	}
	return out
}
