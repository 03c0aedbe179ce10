package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/leocov-dev/curse2nix/core"
	"github.com/leocov-dev/curse2nix/curse2nix"
	"github.com/leocov-dev/curse2nix/internal/shared"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "curse2nix <manifest> <output>",
	Short: "Convert a CurseForge modpack manifest into a Nix mod list",
	Long: `curse2nix reads a CurseForge modpack manifest (a manifest.json file, a
directory containing one, or a modpack zip), resolves every mod through the
CurseForge API, downloads each file to compute its digests and writes a Nix
expression describing the mod list.`,
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		err := runConvert(cmd.Context(), optionsFromConfig(), args[0], args[1])
		if err != nil {
			shared.Exitln(err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signalContext(context.Background())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		shared.Exitln(err)
	}
}

// signalContext is cancelled on Ctrl-C or when a service manager stops us.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.curse2nix.toml)")

	flags.IntP("concurrency", "j", core.DefaultConcurrency, "Number of mods to process at once")
	flags.Int("max-attempts", core.DefaultRetryPolicy.MaxAttempts, "Attempts per request before giving up")
	flags.Duration("retry-delay", core.DefaultRetryPolicy.BaseDelay, "Delay before the first retry, doubled on every attempt")
	flags.Duration("max-retry-delay", core.DefaultRetryPolicy.MaxDelay, "Upper bound on the delay between retries")
	flags.String("api", "legacy", "Addon API to query ("+strings.Join(curse2nix.SourceNames(), ", ")+")")
	flags.String("base-url", "", "Override the root URL of the addon API")
	flags.String("api-key", "", "CurseForge API key for the v1 API")
	flags.String("format", core.FormatNix, "Output format (nix, toml)")
	flags.Bool("fingerprint", false, "Also compute the CurseForge murmur2 fingerprint of every file")
	flags.Bool("progress", false, "Show a progress bar on stderr")
	flags.Float64("rate-limit", 0, "Maximum API requests per second, 0 for no limit")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	bindFlags(flags, "concurrency", "max-attempts", "retry-delay", "max-retry-delay", "api", "base-url",
		"api-key", "format", "fingerprint", "progress", "rate-limit", "log-level")
}

// bindFlags exposes flags to viper under their own names, so config files
// and CURSE2NIX_* variables can set them too.
func bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("curse2nix")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".curse2nix")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			shared.Exitf("Error reading config file %s: %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

type convertOptions struct {
	Concurrency    int
	Retry          core.RetryPolicy
	API            string
	BaseURL        string
	APIKey         string
	Format         string
	Fingerprint    bool
	Progress       bool
	RateLimit      float64
	LogLevel       string
	LogOutput      io.Writer
	ProgressOutput io.Writer
}

func optionsFromConfig() convertOptions {
	return convertOptions{
		Concurrency: viper.GetInt("concurrency"),
		Retry: core.RetryPolicy{
			MaxAttempts: viper.GetInt("max-attempts"),
			BaseDelay:   viper.GetDuration("retry-delay"),
			MaxDelay:    viper.GetDuration("max-retry-delay"),
		},
		API:            viper.GetString("api"),
		BaseURL:        viper.GetString("base-url"),
		APIKey:         viper.GetString("api-key"),
		Format:         viper.GetString("format"),
		Fingerprint:    viper.GetBool("fingerprint"),
		Progress:       viper.GetBool("progress"),
		RateLimit:      viper.GetFloat64("rate-limit"),
		LogLevel:       viper.GetString("log-level"),
		LogOutput:      os.Stderr,
		ProgressOutput: os.Stderr,
	}
}

func (o convertOptions) logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(o.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", o.LogLevel, err)
	}
	// Log lines would tear the progress bar apart
	if o.Progress && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}

	out := o.LogOutput
	if out == nil {
		out = io.Discard
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: zerolog.SyncWriter(out), TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger(), nil
}

func runConvert(ctx context.Context, opts convertOptions, manifestPath, outputPath string) error {
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx)

	libOpts := curse2nix.Options{
		API:         opts.API,
		BaseURL:     opts.BaseURL,
		APIKey:      opts.APIKey,
		Concurrency: opts.Concurrency,
		Retry:       opts.Retry,
		RateLimit:   opts.RateLimit,
		Format:      opts.Format,
		Fingerprint: opts.Fingerprint,
	}
	if opts.Progress {
		libOpts.Progress = opts.ProgressOutput
	}

	out, err := curse2nix.ConvertFile(ctx, manifestPath, outputPath, libOpts)
	if err != nil {
		return err
	}

	logger.Info().Int("mods", len(out.Mods)).Str("output", outputPath).Msg("mod list written")
	fmt.Printf("Wrote %d mods to %s\n", len(out.Mods), outputPath)
	return nil
}
