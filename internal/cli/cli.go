package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/eventscout/internal/config"
	"github.com/pfrederiksen/eventscout/internal/logger"
	"github.com/pfrederiksen/eventscout/internal/metrics"
	"github.com/pfrederiksen/eventscout/internal/pipeline"
	"github.com/pfrederiksen/eventscout/internal/scraper"
	"github.com/pfrederiksen/eventscout/internal/storage"
	"github.com/pfrederiksen/eventscout/internal/summarizer"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// app holds the flag values and the per-invocation state built from them
type app struct {
	configPath string
	dataDir    string
	logLevel   string
	logFormat  string

	cfg     *config.Config
	store   *storage.Storage
	metrics *metrics.Metrics
	runID   string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "eventscout",
		Short: "Collect and summarize events from a saved calendar listing",
		Long: `A batch pipeline that turns a saved event calendar page into a JSON file
of summarized events. Each stage can be run on its own, or all of them in one pass.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Directory holding the listing and pipeline files")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json or console")

	cmd.AddCommand(
		newOverviewCmd(a),
		newFetchCmd(a),
		newSummarizeCmd(a),
		newRunCmd(a),
		newListCmd(a),
		newExportCmd(a),
	)
	a.recordRuns(cmd)

	return cmd
}

// setup loads configuration and builds the logger, storage and metrics
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(a.logLevel)
	}
	if a.logFormat != "" {
		cfg.Logging.Format = strings.ToLower(a.logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.runID = uuid.New().String()
	log := logger.NewWithFormat(level, logger.Format(cfg.Logging.Format), cmd.ErrOrStderr())
	logger.SetDefault(log.With(logger.Fields{"run_id": a.runID}))

	store, err := storage.New(cfg.DataDir, storage.Files{
		Overviews: cfg.Files.Overviews,
		Contents:  cfg.Files.Contents,
		Details:   cfg.Files.Details,
	})
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	a.cfg = cfg
	a.store = store
	a.metrics = metrics.New()

	logger.Debug("Configuration loaded", logger.Fields{
		"config":   cfg.String(),
		"data_dir": store.DataDir(),
		"command":  cmd.Name(),
	})

	return nil
}

// recordRuns wraps the RunE of c and its subcommands so the metrics textfile
// is written whether or not the command succeeds
func (a *app) recordRuns(c *cobra.Command) {
	for _, child := range c.Commands() {
		a.recordRuns(child)
	}
	if c.RunE == nil {
		return
	}

	run := c.RunE
	c.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		return errors.Join(err, a.finish())
	}
}

// finish stamps the run and writes the metrics textfile when configured
func (a *app) finish() error {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}

	a.metrics.RunFinished(a.runID, time.Now())
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func (a *app) newScraper() *scraper.Scraper {
	return scraper.New(scraper.Options{
		Timeout:      a.cfg.Fetch.Timeout,
		UserAgent:    a.cfg.Fetch.UserAgent,
		ContentMode:  a.cfg.Fetch.ContentMode,
		CardSelector: a.cfg.Overview.CardSelector,
	})
}

func (a *app) newSummarizer() (*summarizer.Client, error) {
	if err := a.cfg.ValidateSummarizer(); err != nil {
		return nil, err
	}

	s := a.cfg.Summarizer
	return summarizer.New(summarizer.Options{
		BaseURL:         s.BaseURL,
		APIKey:          s.APIKey,
		Model:           s.Model,
		MaxTokens:       s.MaxTokens,
		Timeout:         s.Timeout,
		MaxRetries:      s.MaxRetries,
		MaxContentChars: s.MaxContentChars,
		Metrics:         a.metrics,
	}), nil
}

func (a *app) newPipeline(fetcher pipeline.PageFetcher, sum pipeline.Summarizer) *pipeline.Pipeline {
	return pipeline.New(pipeline.Config{
		PacingDelay: a.cfg.Pacing.Delay,
		Metrics:     a.metrics,
	}, fetcher, sum, a.store)
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
