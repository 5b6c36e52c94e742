package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendsim/journal"
	"github.com/rustyeddy/trendsim/market"
	"github.com/rustyeddy/trendsim/report"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled backtest runs",
	Long: `Query and display backtest runs recorded in a SQLite journal.

Subcommands:
  runs   - List every recorded run
  show   - Print the summary of one run
  nav    - Print the NAV history of a run
  fills  - Print the fills of a run, optionally within a date range
  org    - Print a run as an Org-mode entry

Examples:
  trendsim journal runs
  trendsim journal fills <run-id> --from 2020-01-01 --to 2020-12-31
  trendsim journal org <run-id> > run.org`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List every recorded run",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the summary of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalNAVCmd = &cobra.Command{
	Use:   "nav <run-id>",
	Short: "Print the NAV history of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalNAV,
}

var journalFillsCmd = &cobra.Command{
	Use:   "fills <run-id>",
	Short: "Print the fills of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalFills,
}

var journalOrgCmd = &cobra.Command{
	Use:   "org <run-id>",
	Short: "Print a run as an Org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrg,
}

var (
	journalDBPath string
	journalFrom   string
	journalTo     string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalNAVCmd)
	journalCmd.AddCommand(journalFillsCmd)
	journalCmd.AddCommand(journalOrgCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./trendsim.sqlite", "path to SQLite journal DB")
	journalFillsCmd.Flags().StringVar(&journalFrom, "from", "", "first day (YYYY-MM-DD)")
	journalFillsCmd.Flags().StringVar(&journalTo, "to", "", "last day, inclusive (YYYY-MM-DD)")
}

func openRuns() (*journal.SQLiteJournal, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-26s  %-10s  %-10s  %10s  %8s  %8s  %6s\n",
		"RUN", "START", "END", "FINAL NAV", "CAGR", "MAX DD", "FILLS")
	for _, r := range runs {
		fmt.Fprintf(out, "%-26s  %-10s  %-10s  %10.0f  %7.2f%%  %7.2f%%  %6d\n",
			r.RunID, market.FormatDate(r.Start), market.FormatDate(r.End),
			r.FinalNAV, r.CAGR*100, r.MaxDrawdown*100, r.Fills)
	}
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	r, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	report.PrintRun(cmd.OutOrStdout(), r)
	return nil
}

func runJournalNAV(cmd *cobra.Command, args []string) error {
	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	navs, err := j.ListNAV(args[0])
	if err != nil {
		return fmt.Errorf("query nav: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatNAVOrg(navs))
	return nil
}

// fillBounds converts inclusive day flags to the [start, end) query window.
func fillBounds(from, to string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if from != "" {
		d, err := market.ParseDate(from)
		if err != nil {
			return start, end, err
		}
		start = d
	}
	if to != "" {
		d, err := market.ParseDate(to)
		if err != nil {
			return start, end, err
		}
		end = d.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func runJournalFills(cmd *cobra.Command, args []string) error {
	start, end, err := fillBounds(journalFrom, journalTo)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	fills, err := j.ListFillsBetween(args[0], start, end)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatFillsOrg(fills))
	return nil
}

func runJournalOrg(cmd *cobra.Command, args []string) error {
	j, err := openRuns()
	if err != nil {
		return err
	}
	defer j.Close()

	r, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	s, err := journal.FormatRunOrg(r)
	if err != nil {
		return fmt.Errorf("format run: %w", err)
	}

	fills, err := j.ListFillsBetween(r.RunID, time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, s)
	fmt.Fprintf(out, "\n** Fills (%s)\n", journal.ShortID(r.RunID))
	fmt.Fprint(out, journal.FormatFillsOrg(fills))
	return nil
}
