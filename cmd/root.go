// Package cmd wires the CLI: flag parsing, config and logging setup, and
// construction of the enrichment pipeline.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/yourflix/enrich/internal/catalog"
	"github.com/yourflix/enrich/internal/config"
	"github.com/yourflix/enrich/internal/covers"
	"github.com/yourflix/enrich/internal/enrich"
	"github.com/yourflix/enrich/internal/provider"
	"github.com/yourflix/enrich/internal/provider/lddb"
	"github.com/yourflix/enrich/internal/provider/tmdb"
	"github.com/yourflix/enrich/internal/ratelimit"
)

// CLI represents the complete command structure for the enrich application.
type CLI struct {
	// Global flags
	Database string `help:"Path to catalog SQLite database file"`
	NoTMDB   bool   `help:"Disable the TMDB title-search provider"`
	Verbose  bool   `short:"v" help:"Enable debug logging"`

	Run    RunCmd    `cmd:"" help:"Run a batch enrichment over entries missing metadata"`
	Lookup LookupCmd `cmd:"" help:"Resolve a single catalogue number against the provider chain"`
	Add    AddCmd    `cmd:"" help:"Add a catalog entry"`
}

// RunCmd runs one batch enrichment and reports the outcome.
type RunCmd struct {
	Limit          int      `help:"Maximum number of entries to process (defaults to batch.size)"`
	Fields         []string `help:"Target fields to fill (empty = all enrichable fields)"`
	Concurrency    int      `help:"Worker pool size (defaults to batch.concurrency)"`
	ReportFile     string   `help:"Write the run report to this file as YAML"`
	DownloadCovers bool     `help:"Download applied posters to the covers directory"`
	CoversDir      string   `help:"Directory for downloaded covers (defaults to covers.dir)"`
}

// LookupCmd resolves one catalogue number and prints the candidate fields.
type LookupCmd struct {
	CatalogueNumber string `arg:"" help:"Catalogue number to look up (e.g. PILF-1618)"`
	Title           string `help:"Optional title for the title-search fallback"`
	Year            int    `help:"Optional release year"`
}

// AddCmd inserts a new catalog entry, for operator seeding and testing.
type AddCmd struct {
	Title           string `help:"Title"`
	Year            int    `help:"Release year"`
	CatalogueNumber string `help:"Catalogue number (e.g. PILF-1618)"`
}

// Execute runs the Kong-based CLI.
func Execute() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("enrich"),
		kong.Description("Fills missing catalog metadata from external providers without touching user edits."),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)
	initConfig(&cli)

	if err := ctx.Run(&cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig(cli *CLI) {
	config.SetDefaults()

	viper.AutomaticEnv()
	if err := viper.BindEnv("tmdb.apikey", "TMDB_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("Config file not found, using defaults")
		} else {
			slog.Error("Fatal error reading config file", "error", err)
			os.Exit(1)
		}
	}

	if cli.Database != "" {
		viper.Set("database", cli.Database)
	}
}

// buildChain assembles the provider chain in priority order: catalogue lookup
// first, then title search. A missing TMDB API key is a startup error unless
// the provider is disabled outright.
func buildChain(cli *CLI) ([]provider.Provider, error) {
	timeout := config.RequestTimeout()

	chain := []provider.Provider{
		lddb.NewProvider(
			lddb.WithBaseURL(config.LDDBBaseURL()),
			lddb.WithTimeout(timeout),
		),
	}

	if cli.NoTMDB {
		slog.Warn("TMDB provider disabled; entries without catalogue numbers will not resolve")
		return chain, nil
	}

	apiKey := config.TMDBAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("TMDB API key missing: set TMDB_API_KEY or tmdb.apikey, or pass --no-tmdb")
	}

	client := tmdb.NewClient(apiKey,
		tmdb.WithBaseURL(config.TMDBBaseURL()),
		tmdb.WithImageBaseURL(config.TMDBImageBaseURL()),
		tmdb.WithTimeout(timeout),
	)
	chain = append(chain, tmdb.NewProvider(client))
	return chain, nil
}

func buildResolver(cli *CLI) (*enrich.Resolver, error) {
	chain, err := buildChain(cli)
	if err != nil {
		return nil, err
	}
	limiters := ratelimit.NewRegistry(config.ProviderDelay(), config.ProviderMaxInFlight())
	return enrich.NewResolver(chain, limiters), nil
}

// Run executes a batch enrichment.
func (r *RunCmd) Run(cli *CLI) error {
	resolver, err := buildResolver(cli)
	if err != nil {
		return err
	}

	store, err := catalog.Open(config.DatabasePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limit := r.Limit
	if limit == 0 {
		limit = config.BatchSize()
	}
	concurrency := r.Concurrency
	if concurrency == 0 {
		concurrency = config.BatchConcurrency()
	}

	opts := []enrich.RunnerOption{enrich.WithConcurrency(concurrency)}
	if r.DownloadCovers {
		dir := r.CoversDir
		if dir == "" {
			dir = config.CoversDir()
		}
		opts = append(opts, enrich.WithCoverDownloader(
			covers.NewDownloader(dir, covers.WithMaxWidth(config.CoversMaxWidth())),
		))
	}

	runner := enrich.NewRunner(store, resolver, opts...)
	report, err := runner.RunBatch(context.Background(), limit, r.Fields)
	if err != nil {
		return err
	}

	report.Log()

	if r.ReportFile != "" {
		if err := writeReportFile(r.ReportFile, report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		slog.Info("Report written", "path", r.ReportFile)
	}
	return nil
}

// Run resolves one catalogue number and prints what the chain found.
func (l *LookupCmd) Run(cli *CLI) error {
	resolver, err := buildResolver(cli)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	entry := &catalog.Entry{
		CatalogueNumber: l.CatalogueNumber,
		Title:           l.Title,
		Year:            l.Year,
	}
	outcome := resolver.ResolveOne(ctx, entry)

	switch outcome.Status {
	case enrich.StatusMatched:
		slog.Info("Match found", "provider", outcome.Provider, "fields", outcome.Applied)
		return printOutcome(outcome)
	case enrich.StatusNoMatch:
		slog.Info("No match", "catalogue_number", l.CatalogueNumber)
		return nil
	default:
		return fmt.Errorf("lookup failed: %w", outcome.Err)
	}
}

// Run inserts a new catalog entry.
func (a *AddCmd) Run(cli *CLI) error {
	if a.Title == "" && a.CatalogueNumber == "" {
		return fmt.Errorf("an entry needs at least a title or a catalogue number")
	}

	store, err := catalog.Open(config.DatabasePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entry, err := store.InsertEntry(context.Background(), catalog.Entry{
		Title:           a.Title,
		Year:            a.Year,
		CatalogueNumber: a.CatalogueNumber,
	})
	if err != nil {
		return err
	}

	slog.Info("Entry added", "entry_id", entry.ID, "title", entry.Title,
		"catalogue_number", entry.CatalogueNumber)
	return nil
}
