package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/eventscout/internal/calendar"
	"github.com/pfrederiksen/eventscout/internal/export"
	"github.com/pfrederiksen/eventscout/internal/logger"
	"github.com/pfrederiksen/eventscout/internal/pipeline"
)

func newOverviewCmd(a *app) *cobra.Command {
	var listing string

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Parse the saved listing page into event overviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.parseOverview(listing)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d events into %s\n", n, a.store.OverviewsPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&listing, "listing", "", "Saved listing HTML (default: files.listing in the data directory)")

	return cmd
}

// parseOverview parses the listing and overwrites the overviews file
func (a *app) parseOverview(listing string) (int, error) {
	if listing == "" {
		listing = a.store.Path(a.cfg.Files.Listing)
	}

	stubs, err := a.newScraper().ParseOverviewFile(listing)
	if err != nil {
		return 0, err
	}
	if err := a.store.SaveOverviews(stubs); err != nil {
		return 0, err
	}

	logger.Info("Parsed event overviews", logger.Fields{
		"listing": listing,
		"events":  len(stubs),
	})
	return len(stubs), nil
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every overview's event page and extract its content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.newPipeline(a.newScraper(), nil).FetchContents(cmd.Context())
			return a.report(cmd, res, err, a.store.ContentsPath())
		},
	}
}

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Summarize every fetched event and write the final records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.newSummarizer()
			if err != nil {
				return err
			}
			res, err := a.newPipeline(nil, sum).Summarize(cmd.Context())
			return a.report(cmd, res, err, a.store.DetailsPath())
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	var skipOverview bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Parse the listing, then fetch and summarize each event in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.newSummarizer()
			if err != nil {
				return err
			}
			if !skipOverview {
				if _, err := a.parseOverview(""); err != nil {
					return err
				}
			}
			res, err := a.newPipeline(a.newScraper(), sum).Run(cmd.Context())
			return a.report(cmd, res, err, a.store.DetailsPath())
		},
	}

	cmd.Flags().BoolVar(&skipOverview, "skip-overview", false, "Reuse the existing overviews file")

	return cmd
}

// report logs a stage result and prints a one-line summary
func (a *app) report(cmd *cobra.Command, res *pipeline.Result, err error, output string) error {
	if res != nil {
		logger.Info("Stage finished", res.Fields())
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d persisted, %d skipped of %d -> %s\n",
			res.Stage, res.Count(pipeline.StatePersisted), res.Count(pipeline.StateSkipped), res.Total, output)
	}
	if err != nil {
		if cmd.Context().Err() != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	var format, sortOrder string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the summarized events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := OutputFormat(strings.ToLower(format))
			if f != FormatText && f != FormatJSON {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", format)
			}
			order := SortOrder(strings.ToLower(sortOrder))
			if !order.valid() {
				return fmt.Errorf("invalid sort: %s (must be 'id', 'date' or 'name')", sortOrder)
			}

			records, err := a.store.LoadDetails()
			if err != nil {
				return err
			}
			sortRecords(records, order)

			return WriteOutput(cmd.OutOrStdout(), records, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&sortOrder, "sort", "id", "Sort order: id, date or name")

	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the summarized events to other formats",
	}

	var dbPath string
	sqliteCmd := &cobra.Command{
		Use:   "sqlite",
		Short: "Load the summarized events into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store.LoadDetails()
			if err != nil {
				return err
			}

			db, err := export.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.WriteRecords(cmd.Context(), records); err != nil {
				return err
			}

			logger.Info("Exported events to SQLite", logger.Fields{
				"db":     dbPath,
				"events": len(records),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", len(records), dbPath)
			return nil
		},
	}
	sqliteCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (required)")
	_ = sqliteCmd.MarkFlagRequired("db")

	var outPath string
	icsCmd := &cobra.Command{
		Use:   "ics",
		Short: "Write the summarized events as an iCalendar feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store.LoadDetails()
			if err != nil {
				return err
			}

			feed := calendar.GenerateICS(records)
			if outPath == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), feed)
				return err
			}
			if err := os.WriteFile(outPath, []byte(feed), 0644); err != nil {
				return fmt.Errorf("writing calendar: %w", err)
			}

			n := calendar.Count(records)
			logger.Info("Exported events to iCalendar", logger.Fields{
				"out":     outPath,
				"events":  n,
				"undated": len(records) - n,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events to %s\n", n, outPath)
			return nil
		},
	}
	icsCmd.Flags().StringVar(&outPath, "out", "", "Output .ics file, or - for stdout (required)")
	_ = icsCmd.MarkFlagRequired("out")

	cmd.AddCommand(sqliteCmd, icsCmd)

	return cmd
}
