package curse2nix

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/leocov-dev/curse2nix/core"
)

// Options controls a conversion. The zero value queries the legacy API with
// the default retry policy and concurrency, and writes Nix.
type Options struct {
	API     string
	BaseURL string
	APIKey  string

	Concurrency int
	Retry       RetryPolicy
	// RateLimit caps API and download requests per second; 0 disables it.
	RateLimit float64

	Format      string
	Fingerprint bool
	// Progress receives a progress bar when not nil.
	Progress io.Writer
}

func (o Options) withDefaults() Options {
	if o.API == "" {
		o.API = "legacy"
	}
	if o.Concurrency == 0 {
		o.Concurrency = core.DefaultConcurrency
	}
	o.Retry = o.Retry.WithDefaults()
	if o.Format == "" {
		o.Format = core.FormatNix
	}
	return o
}

// Convert resolves and inspects every file of manifest.
func Convert(ctx context.Context, manifest Manifest, opts Options) (OutputManifest, error) {
	opts = opts.withDefaults()

	fetcherOpts := []core.FetcherOption{core.WithRetryPolicy(opts.Retry)}
	if opts.RateLimit > 0 {
		fetcherOpts = append(fetcherOpts, core.WithRateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), 1)))
	}
	fetcher := core.NewFetcher(fetcherOpts...)

	source, err := core.NewSource(opts.API, core.SourceConfig{
		BaseURL: opts.BaseURL,
		APIKey:  opts.APIKey,
		Fetcher: fetcher,
	})
	if err != nil {
		return OutputManifest{}, err
	}

	convOpts := []core.ConverterOption{
		core.WithConcurrency(opts.Concurrency),
		core.WithInspectOptions(core.InspectOptions{Fingerprint: opts.Fingerprint}),
	}
	if opts.Progress != nil {
		convOpts = append(convOpts, core.WithProgress(opts.Progress))
	}

	zerolog.Ctx(ctx).Debug().Str("api", source.GetName()).Msg("using addon API")
	return core.NewConverter(source, fetcher, convOpts...).Convert(ctx, manifest)
}

// ConvertFile loads the manifest at manifestPath and writes the mod list to
// outputPath. Nothing is written unless every mod converted.
func ConvertFile(ctx context.Context, manifestPath, outputPath string, opts Options) (OutputManifest, error) {
	opts = opts.withDefaults()

	// Fail on a bad format before spending any time on the network
	if _, err := (OutputManifest{}).Render(opts.Format); err != nil {
		return OutputManifest{}, err
	}

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return OutputManifest{}, err
	}

	out, err := Convert(ctx, manifest, opts)
	if err != nil {
		return OutputManifest{}, err
	}

	if err := WriteManifest(outputPath, out, opts.Format); err != nil {
		return OutputManifest{}, err
	}
	return out, nil
}
