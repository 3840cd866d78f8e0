package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/angelospk/subdivx-dl/pkg/config"
	"github.com/angelospk/subdivx-dl/pkg/core/i18n"
	"github.com/angelospk/subdivx-dl/pkg/core/subdivx"
	"github.com/angelospk/subdivx-dl/pkg/core/version"
)

var (
	// Used for flags.
	cfgFile string

	showVersion      bool
	checkUpdate      bool
	orderByDates     bool
	orderByDownloads bool
	layoutMinimal    bool
	layoutAlt        bool
	layoutCompact    bool
	saveConfig       bool
	loadConfig       bool
	dumpConfig       bool

	// RootCmd represents the base command when called without any subcommands
	// Exported for use in tests
	RootCmd = &cobra.Command{
		Use:   "subdivx-dl [OPTIONS] [SEARCH]",
		Short: "Subtitle downloader for subdivx.com",
		Long: `subdivx-dl searches subdivx.com for subtitles of a movie or TV series,
lets you pick one from a paginated list (or picks the best match with --fast)
and saves it next to your media.

Disclaimer: subdivx.com is not involved in this development.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runRoot,
	}
)

// flagKeys binds flags that map one to one onto configuration keys.
var flagKeys = map[string]string{
	"location":      config.KeyLocation,
	"season":        config.KeySeason,
	"no-rename":     config.KeyNoRename,
	"fast":          config.KeyFast,
	"lines":         config.KeyLines,
	"comments":      config.KeyComments,
	"style":         config.KeyStyle,
	"disable-help":  config.KeyDisableHelp,
	"no-exit":       config.KeyNoExit,
	"new-session":   config.KeyNewSession,
	"user-agent":    config.KeyUserAgent,
	"language-code": config.KeyLanguageCode,
	"verbose":       config.KeyVerbose,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/subdivx-dl/config.json)")

	f := RootCmd.Flags()
	f.SortFlags = false

	// Startup
	f.BoolVarP(&showVersion, "version", "V", false, "show program version and exit")
	f.BoolP("verbose", "v", false, "enable verbose output")
	f.BoolVar(&checkUpdate, "check-update", false, "check availability of updates")

	// Download
	f.BoolP("season", "s", false, "download subtitles for the entire season")
	f.StringP("location", "l", "", "specify the destination directory")
	f.Bool("no-rename", false, "disable file renaming")
	f.BoolP("fast", "f", false, "directly download the best matching subtitle")

	// Order-by
	f.BoolVar(&orderByDates, "order-by-dates", false, "order results by dates")
	f.BoolVar(&orderByDownloads, "order-by-downloads", false, "order results by number of downloads")

	// Results
	f.IntP("lines", "n", 0, "limit the number of results")
	f.BoolP("comments", "c", false, "display comments")

	// Layout
	f.BoolVarP(&layoutMinimal, "minimal", "m", false, "use a minimal layout for results")
	f.BoolVarP(&layoutAlt, "alternative", "a", false, "use an alternative layout for results")
	f.BoolVar(&layoutCompact, "compact", false, "use a compact layout for results")
	f.String("style", "", "show results in the selected style (rounded_grid, grid, fancy_grid, heavy_grid, ...)")

	// Miscellaneous
	f.Bool("disable-help", false, "disable help messages")
	f.Bool("no-exit", false, "disable automatic exit")
	f.Bool("new-session", false, "create a new session")
	f.String("user-agent", "", "specify a custom user agent")
	f.String("language-code", "", "specify a custom language code (es, en)")

	// Configuration
	f.BoolVar(&saveConfig, "save-config", false, "save configuration")
	f.BoolVar(&loadConfig, "load-config", false, "load configuration")
	f.BoolVar(&dumpConfig, "dump-config", false, "dump configuration")

	RootCmd.MarkFlagsMutuallyExclusive("version", "verbose", "check-update")
	RootCmd.MarkFlagsMutuallyExclusive("order-by-dates", "order-by-downloads")
	RootCmd.MarkFlagsMutuallyExclusive("minimal", "alternative", "compact")
	RootCmd.MarkFlagsMutuallyExclusive("save-config", "load-config", "dump-config")
}

// initConfig loads a .env file from the working directory, if any, so its
// SUBDIVX_* variables take part in the environment layer.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error reading .env file: %v\n", err)
	}
}

// configPath returns the --config value or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// buildConfig merges defaults, the config file, the environment and the
// command line flags, in increasing priority.
func buildConfig(flags *pflag.FlagSet, path string) (config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	if err := config.ReadFile(v, path, loadConfig); err != nil {
		return config.Config{}, err
	}
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return config.Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	switch {
	case orderByDates:
		v.Set(config.KeyOrderBy, string(subdivx.OrderDates))
	case orderByDownloads:
		v.Set(config.KeyOrderBy, string(subdivx.OrderDownloads))
	}
	switch {
	case layoutMinimal:
		v.Set(config.KeyLayout, config.LayoutMinimal)
	case layoutAlt:
		v.Set(config.KeyLayout, config.LayoutAlternative)
	case layoutCompact:
		v.Set(config.KeyLayout, config.LayoutCompact)
	}

	return config.FromViper(v)
}

func runRoot(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if showVersion {
		fmt.Fprintln(out, version.Version)
		return nil
	}
	if cmd.Flags().Changed("lines") {
		if n, _ := cmd.Flags().GetInt("lines"); n <= 0 {
			return fmt.Errorf("%d should be greater than zero", n)
		}
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := buildConfig(cmd.Flags(), path)
	if err != nil {
		return err
	}
	tr := i18n.New(cfg.LanguageCode)

	if dumpConfig {
		fmt.Fprintln(out, tr.T("config_file", path))
		fmt.Fprintln(out)
		found, err := config.Dump(out, path)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, tr.T("config_not_found"))
		}
		return nil
	}

	logger, closeLog := newLogger(cfg.Verbose, cmd.ErrOrStderr())
	defer closeLog()

	if checkUpdate {
		return runCheckUpdate(cmd.Context(), cmd, tr, cfg, logger)
	}

	if len(args) == 0 {
		return errors.New("requires a SEARCH term")
	}
	query := args[0]

	if saveConfig {
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Fprintln(out, tr.T("config_saved", path))
	}

	runner, err := NewRunnerFunc(cfg, logger, cmd.InOrStdin(), out)
	if err != nil {
		return err
	}
	logger.WithField("query", query).Info("Starting search")
	return reportRunError(cmd, tr, query, runner.Run(cmd.Context(), query))
}
