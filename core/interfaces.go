package core

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// AddonSource resolves project metadata and download URLs from an addon API.
type AddonSource interface {
	GetName() string
	// GetAddonInfo fetches the metadata of a project.
	GetAddonInfo(ctx context.Context, projectID uint32) (AddonInfo, error)
	// GetDownloadURL returns the direct URL of a project file, after any
	// CDN rewriting the source needs.
	GetDownloadURL(ctx context.Context, projectID, fileID uint32) (string, error)
}

// SourceConfig is handed to a SourceFactory when a source is selected.
type SourceConfig struct {
	// BaseURL overrides the API root when not empty.
	BaseURL string
	APIKey  string
	Fetcher *Fetcher
}

type SourceFactory func(cfg SourceConfig) (AddonSource, error)

// sources stores all the addon APIs that can be selected by name. Register
// your own by calling AddSource from an init function.
var sources = make(map[string]SourceFactory)

func AddSource(name string, factory SourceFactory) {
	sources[name] = factory
}

func SourceNames() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func NewSource(name string, cfg SourceConfig) (AddonSource, error) {
	factory, ok := sources[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown addon API %q (available: %s)", name, strings.Join(SourceNames(), ", "))
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewFetcher()
	}
	return factory(cfg)
}
