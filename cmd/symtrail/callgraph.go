package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"symtrail/internal/engine"
	"symtrail/internal/errors"
	"symtrail/internal/symbols"
)

var (
	callgraphSymbol    string
	callgraphDirection string
	callgraphFormat    string
)

var callgraphCmd = &cobra.Command{
	Use:   "callgraph <file>",
	Short: "Print the call edges within a file",
	Long: `Build the intra-file call graph of a TypeScript or JavaScript file.

Without --symbol every edge in the file is printed. With --symbol only the
edges touching symbols of that name are printed, filtered by direction:
  - callers: edges into the symbol
  - callees: edges out of the symbol
  - both: both (default)

Examples:
  symtrail callgraph src/app.ts
  symtrail callgraph --symbol=render --direction=callers src/view.tsx`,
	Args: cobra.ExactArgs(1),
	Run:  runCallgraph,
}

func init() {
	callgraphCmd.Flags().StringVar(&callgraphSymbol, "symbol", "", "Only edges touching symbols with this name")
	callgraphCmd.Flags().StringVar(&callgraphDirection, "direction", "both", "Direction with --symbol (callers, callees, both)")
	callgraphCmd.Flags().StringVar(&callgraphFormat, "format", "json", "Output format (json, human, yaml, toml)")
	rootCmd.AddCommand(callgraphCmd)
}

func runCallgraph(cmd *cobra.Command, args []string) {
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

	id, err := openFile(eng, root, args[0])
	if err != nil {
		exitWith(err)
	}
	resp, err := buildCallgraph(eng, id, callgraphSymbol, callgraphDirection)
	if err != nil {
		exitWith(err)
	}

	output, err := FormatResponse(resp, OutputFormat(callgraphFormat))
	if err != nil {
		exitWith(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	logger.Debug("Callgraph query completed",
		"file", id,
		"symbol", callgraphSymbol,
		"direction", callgraphDirection,
		"edges", len(resp.Edges),
		"duration", time.Since(start).Milliseconds(),
	)
}

// CallgraphResponseCLI contains call graph results for CLI output
type CallgraphResponseCLI struct {
	FileID    string             `json:"fileId" yaml:"fileId" toml:"fileId"`
	Symbol    string             `json:"symbol,omitempty" yaml:"symbol,omitempty" toml:"symbol,omitempty"`
	Direction string             `json:"direction,omitempty" yaml:"direction,omitempty" toml:"direction,omitempty"`
	Edges     []CallgraphEdgeCLI `json:"edges" yaml:"edges" toml:"edges"`
}

// CallgraphEdgeCLI represents an edge in the call graph
type CallgraphEdgeCLI struct {
	From     string `json:"from" yaml:"from" toml:"from"`
	FromName string `json:"fromName" yaml:"fromName" toml:"fromName"`
	FromLine int    `json:"fromLine" yaml:"fromLine" toml:"fromLine"`
	To       string `json:"to" yaml:"to" toml:"to"`
	ToName   string `json:"toName" yaml:"toName" toml:"toName"`
	ToLine   int    `json:"toLine" yaml:"toLine" toml:"toLine"`
	Kind     string `json:"kind" yaml:"kind" toml:"kind"`
}

func buildCallgraph(eng *engine.Engine, fileID, symbol, direction string) (*CallgraphResponseCLI, error) {
	snap, ok := eng.Indexer.Snapshot(fileID)
	if !ok {
		return nil, errors.New(errors.FileTooLarge,
			fmt.Sprintf("no snapshot for %s; it may exceed index.maxFileBytes", fileID), nil, nil)
	}

	resp := &CallgraphResponseCLI{FileID: fileID, Edges: []CallgraphEdgeCLI{}}

	var edges []symbols.Edge
	if symbol == "" {
		edges = eng.Graph.EdgesForFile(fileID)
	} else {
		resp.Symbol, resp.Direction = symbol, direction
		var matched bool
		for _, s := range snap.Symbols {
			if s.Name != symbol || s.Kind == symbols.KindFile {
				continue
			}
			matched = true
			switch direction {
			case "callers":
				edges = append(edges, eng.Graph.Callers(s.ID)...)
			case "callees":
				edges = append(edges, eng.Graph.Callees(s.ID)...)
			case "both":
				edges = append(edges, eng.Graph.Callers(s.ID)...)
				edges = append(edges, eng.Graph.Callees(s.ID)...)
			default:
				return nil, fmt.Errorf("unsupported direction: %s", direction)
			}
		}
		if !matched {
			return nil, errors.New(errors.SymbolNotFound,
				fmt.Sprintf("no symbol named %q in %s", symbol, fileID), nil, nil)
		}
	}

	seen := make(map[symbols.Edge]bool, len(edges))
	for _, e := range edges {
		// a recursive call appears as both a caller and a callee edge
		if seen[e] {
			continue
		}
		seen[e] = true
		resp.Edges = append(resp.Edges, convertEdge(snap, e))
	}
	return resp, nil
}

func convertEdge(snap *symbols.Snapshot, e symbols.Edge) CallgraphEdgeCLI {
	out := CallgraphEdgeCLI{From: e.From, To: e.To, Kind: string(e.Kind)}
	if s, ok := snap.Lookup(e.From); ok {
		out.FromName, out.FromLine = s.Name, s.SelectionRange.Start.Line
	}
	if s, ok := snap.Lookup(e.To); ok {
		out.ToName, out.ToLine = s.Name, s.SelectionRange.Start.Line
	}
	return out
}
