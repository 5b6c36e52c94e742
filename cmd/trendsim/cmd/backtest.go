package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendsim/config"
	"github.com/rustyeddy/trendsim/dataset"
	"github.com/rustyeddy/trendsim/internal/id"
	"github.com/rustyeddy/trendsim/journal"
	"github.com/rustyeddy/trendsim/metrics"
	"github.com/rustyeddy/trendsim/report"
	"github.com/rustyeddy/trendsim/sim"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the trend-following backtest",
	Long: `Backtest loads one CSV file per instrument from the data directory,
computes the indicator columns, and simulates the strategy day by day.

Flags override the matching configuration values.

Example:
  trendsim backtest -f backtest.yaml --from 2016-01-01 --to 2025-03-31 --nav-out nav.csv`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btDataDir    string
	btFrom       string
	btTo         string
	btNAVOut     string
	btDBPath     string
	btOrgPath    string
	btMetricsOut string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "file", "f", "", "path to config file (required)")
	backtestCmd.Flags().StringVar(&btDataDir, "data", "", "directory of per-instrument CSV files")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "first day to simulate (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "last day to simulate, inclusive (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btNAVOut, "nav-out", "", "write the NAV history as CSV")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "journal the run to this SQLite DB")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode run summary")
	backtestCmd.Flags().StringVar(&btMetricsOut, "metrics-out", "", "write Prometheus textfile metrics")

	backtestCmd.MarkFlagRequired("file")
}

func applyBacktestFlags(cfg *config.Config) {
	if btDataDir != "" {
		cfg.Data.Dir = btDataDir
	}
	if btFrom != "" {
		cfg.Run.From = btFrom
	}
	if btTo != "" {
		cfg.Run.To = btTo
	}
	if btDBPath != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = btDBPath
	}
	if btOrgPath != "" {
		cfg.Journal.OrgPath = btOrgPath
	}
	if btMetricsOut != "" {
		cfg.Metrics.Textfile = btMetricsOut
	}
}

// openJournal returns the configured journal, and the SQLite journal again
// when runs can be recorded. Both are nil for type "none".
func openJournal(jc config.JournalConfig) (journal.Journal, *journal.SQLiteJournal, error) {
	switch jc.Type {
	case "csv":
		j, err := journal.NewCSV(jc.NAVFile, jc.FillsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil, nil
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		return j, j, nil
	}
	return nil, nil, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(btConfigPath)
	if err != nil {
		return err
	}
	applyBacktestFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	from, to, err := cfg.Run.DateRange()
	if err != nil {
		log.Warn("invalid date range, using full history", zap.Error(err))
		from, to = time.Time{}, time.Time{}
	}

	ctx := cmd.Context()
	view, stats, err := dataset.LoadDir(ctx, cfg.Data.Dir, dataset.Options{
		Windows: cfg.Strategy.Windows(),
		Scale:   cfg.Data.PriceScale,
		Workers: cfg.Data.Workers,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	j, runs, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	runID := id.NewRunID()
	rec := metrics.New()

	res, runErr := sim.Run(ctx, view, cfg.Strategy.Rules(), sim.Options{
		From:          from,
		To:            to,
		RunID:         runID,
		Logger:        log,
		Journal:       j,
		Metrics:       rec,
		ProgressEvery: cfg.Run.ProgressEvery,
	})
	if runErr != nil && !errors.Is(runErr, sim.ErrNonPositiveNAV) {
		return fmt.Errorf("backtest: %w", runErr)
	}

	strategyYAML, err := yaml.Marshal(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}

	run := journal.RunRecord{
		RunID:    runID,
		Created:  time.Now().UTC(),
		Strategy: cfg.Strategy.Name,
		Dataset:  cfg.Data.Dir,
		Config:   strategyYAML,
		Fills:    len(res.Fills),
		Halted:   res.Halted,
		OrgPath:  cfg.Journal.OrgPath,
	}
	report.Summarize(res.History, cfg.Strategy.InitialCapital).Fill(&run)
	if n := len(stats.Skipped); n > 0 {
		run.Notes = append(run.Notes, fmt.Sprintf("%d of %d data files skipped", n, stats.Files))
	}
	if res.Halted {
		run.Notes = append(run.Notes, runErr.Error())
	}

	if runs != nil {
		if err := runs.RecordRun(run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	if run.OrgPath != "" {
		if err := run.WriteRunOrg(); err != nil {
			return fmt.Errorf("write org: %w", err)
		}
	}
	if btNAVOut != "" {
		if err := writeNAV(btNAVOut, res); err != nil {
			return fmt.Errorf("write nav: %w", err)
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	report.PrintRun(cmd.OutOrStdout(), run)
	return nil
}

func writeNAV(path string, res sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteNAVCSV(f, res.History); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
