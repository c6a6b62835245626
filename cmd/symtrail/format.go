package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatTOML:
		return formatTOML(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatTOML(resp interface{}) (string, error) {
	data, err := toml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *OutlineResponseCLI:
		return formatOutlineHuman(v)
	case *CallgraphResponseCLI:
		return formatCallgraphHuman(v)
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatOutlineHuman(resp *OutlineResponseCLI) (string, error) {
	var b strings.Builder

	for i, f := range resp.Files {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s (%s, v%d)\n", f.FileID, f.LanguageID, f.Version))
		b.WriteString(strings.Repeat("=", 60) + "\n")
		for _, s := range f.Symbols {
			indent := strings.Repeat("  ", s.Depth)
			b.WriteString(fmt.Sprintf("%s%s %s  %d:%d-%d:%d", indent, s.Kind, s.Name,
				s.Line, s.Column, s.EndLine, s.EndColumn))
			if s.Complexity != nil {
				b.WriteString(fmt.Sprintf("  [cc %d]", *s.Complexity))
			}
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}

func formatCallgraphHuman(resp *CallgraphResponseCLI) (string, error) {
	var b strings.Builder

	title := resp.FileID
	if resp.Symbol != "" {
		title = fmt.Sprintf("%s :: %s (%s)", resp.FileID, resp.Symbol, resp.Direction)
	}
	b.WriteString(fmt.Sprintf("Call graph: %s\n", title))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	if len(resp.Edges) == 0 {
		b.WriteString("No calls found\n")
		return b.String(), nil
	}
	for _, e := range resp.Edges {
		b.WriteString(fmt.Sprintf("  %s (line %d) -> %s (line %d)\n", e.FromName, e.FromLine, e.ToName, e.ToLine))
	}
	b.WriteString(fmt.Sprintf("\n%d edges\n", len(resp.Edges)))

	return b.String(), nil
}
