package core

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const DefaultConcurrency = 4

// Converter turns manifest entries into mod list entries.
type Converter struct {
	source      AddonSource
	fetcher     *Fetcher
	concurrency int
	inspect     InspectOptions
	progress    io.Writer

	addons singleflight.Group
}

type ConverterOption func(*Converter)

// WithConcurrency sets how many mods are processed at once; 1 processes
// the manifest strictly in order.
func WithConcurrency(n int) ConverterOption {
	return func(c *Converter) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

func WithInspectOptions(opts InspectOptions) ConverterOption {
	return func(c *Converter) {
		c.inspect = opts
	}
}

// WithProgress draws a progress bar of completed mods on w.
func WithProgress(w io.Writer) ConverterOption {
	return func(c *Converter) {
		c.progress = w
	}
}

func NewConverter(source AddonSource, fetcher *Fetcher, opts ...ConverterOption) *Converter {
	c := &Converter{
		source:      source,
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert processes every file of the manifest. Entries keep manifest order
// whatever order the workers finish in. The first failure cancels the rest
// and no partial result is returned.
func (c *Converter) Convert(ctx context.Context, manifest Manifest) (OutputManifest, error) {
	logger := zerolog.Ctx(ctx)
	files := manifest.Files
	entries := make([]ModEntry, len(files))

	var progress *mpb.Progress
	var bar *mpb.Bar
	if c.progress != nil && len(files) > 0 {
		progress = mpb.New(mpb.WithOutput(c.progress), mpb.WithWidth(40))
		bar = progress.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("mods "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	logger.Info().Int("mods", len(files)).Int("workers", c.concurrency).Msg("retrieving mod data")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if bar != nil {
				// Every job counts, even skipped ones, so the bar always completes
				defer bar.Increment()
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := c.ModEntry(gctx, file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			entries[i] = entry
			return nil
		})
	}
	err := g.Wait()
	if progress != nil {
		progress.Wait()
	}
	if err != nil {
		return OutputManifest{}, err
	}

	if err := checkDuplicateSlugs(entries); err != nil {
		return OutputManifest{}, err
	}

	return OutputManifest{
		Version: manifest.Minecraft.Version,
		Mods:    entries,
	}, nil
}

// ModEntry fetches, downloads and formats a single manifest file.
func (c *Converter) ModEntry(ctx context.Context, file ManifestFile) (ModEntry, error) {
	logger := zerolog.Ctx(ctx).With().
		Uint32("project", file.ProjectID).
		Uint32("file", file.FileID).
		Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Msg("fetching mod data")

	addon, err := c.addonInfo(ctx, file.ProjectID)
	if err != nil {
		return ModEntry{}, fmt.Errorf("failed to get addon info: %w", err)
	}

	downloadURL, err := c.source.GetDownloadURL(ctx, file.ProjectID, file.FileID)
	if err != nil {
		return ModEntry{}, fmt.Errorf("failed to get download URL: %w", err)
	}

	info, err := InspectFile(ctx, c.fetcher, downloadURL, c.inspect)
	if err != nil {
		return ModEntry{}, err
	}

	return NewModEntry(file.ProjectID, file.FileID, addon, info, downloadURL)
}

// addonInfo shares one lookup between workers asking for the same project.
func (c *Converter) addonInfo(ctx context.Context, projectID uint32) (AddonInfo, error) {
	v, err, _ := c.addons.Do(strconv.FormatUint(uint64(projectID), 10), func() (interface{}, error) {
		return c.source.GetAddonInfo(ctx, projectID)
	})
	if err != nil {
		return AddonInfo{}, err
	}
	return v.(AddonInfo), nil
}

// checkDuplicateSlugs rejects lists Nix would refuse to evaluate.
func checkDuplicateSlugs(entries []ModEntry) error {
	seen := make(map[string]ModEntry, len(entries))
	for _, e := range entries {
		if prev, ok := seen[e.Slug]; ok {
			return fmt.Errorf("projects %d and %d both use the slug %q", prev.ProjectID, e.ProjectID, e.Slug)
		}
		seen[e.Slug] = e
	}
	return nil
}
