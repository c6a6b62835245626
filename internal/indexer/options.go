package indexer

import (
	"time"

	"symtrail/internal/config"
)

// Options controls recomputation.
type Options struct {
	// Debounce is the quiet period after the last change before a pass runs.
	Debounce time.Duration
	// MaxFileBytes is the size ceiling; larger documents get no snapshot.
	MaxFileBytes int
	// Languages is the set of tracked language ids.
	Languages []string
	// Complexity enables tree-sitter complexity metrics where available.
	Complexity bool
}

// DefaultOptions mirrors config.DefaultConfig().Index.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Index)
}

// OptionsFromConfig converts the index section of the configuration.
func OptionsFromConfig(c config.IndexConfig) Options {
	return Options{
		Debounce:     c.Debounce(),
		MaxFileBytes: c.MaxFileBytes,
		Languages:    append([]string(nil), c.Languages...),
		Complexity:   c.Complexity,
	}
}
