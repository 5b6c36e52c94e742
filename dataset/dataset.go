// Package dataset loads a directory of per-instrument daily CSV files into
// a market view, computing the indicator columns on the way in.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/trendsim/indicators"
	"github.com/rustyeddy/trendsim/internal/logging"
	"github.com/rustyeddy/trendsim/market"
)

// Options control LoadDir.
type Options struct {
	Windows indicators.Windows
	Scale   float64 // OHLC multiplier, 0 means 1
	Workers int     // parallel files, 0 means GOMAXPROCS
	Logger  *zap.Logger
}

// Stats describes what a load did.
type Stats struct {
	Files   int
	Loaded  int
	Skipped []string
	Rows    int
}

// LoadDir reads every *.csv file in dir. The file stem is the instrument
// id. Files that fail to parse are logged and skipped; LoadDir fails only
// when nothing could be loaded.
func LoadDir(ctx context.Context, dir string, opts Options) (*market.View, Stats, error) {
	log := logging.OrNop(opts.Logger)

	if err := opts.Windows.Validate(); err != nil {
		return nil, Stats{}, err
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, Stats{}, fmt.Errorf("dataset: %w", err)
	}
	sort.Strings(paths)

	st := Stats{Files: len(paths)}
	if len(paths) == 0 {
		return nil, st, fmt.Errorf("dataset: no csv files in %s", dir)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]market.InstrumentDay, len(paths))
	failed := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := LoadFile(path, opts.Windows, opts.Scale)
			if err != nil {
				failed[i] = err
				return nil
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, st, err
	}

	var all []market.InstrumentDay
	for i, rows := range results {
		if failed[i] != nil {
			log.Warn("skipping file", zap.String("path", paths[i]), zap.Error(failed[i]))
			st.Skipped = append(st.Skipped, paths[i])
			continue
		}
		if len(rows) == 0 {
			st.Skipped = append(st.Skipped, paths[i])
			continue
		}
		st.Loaded++
		all = append(all, rows...)
	}
	if st.Loaded == 0 {
		return nil, st, fmt.Errorf("dataset: no usable files in %s", dir)
	}

	v, err := market.NewView(all)
	if err != nil {
		return nil, st, fmt.Errorf("dataset: %w", err)
	}
	st.Rows = v.Len()

	log.Info("dataset loaded",
		zap.String("dir", dir),
		zap.Int("files", st.Files),
		zap.Int("loaded", st.Loaded),
		zap.Int("skipped", len(st.Skipped)),
		zap.Int("rows", st.Rows),
		zap.Int("days", len(v.Dates())))
	return v, st, nil
}

// LoadFile reads and preprocesses a single instrument file.
func LoadFile(path string, w indicators.Windows, scale float64) ([]market.InstrumentDay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inst := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	bars, err := market.ReadBarsCSV(f, inst, scale)
	if err != nil {
		return nil, err
	}
	return indicators.Preprocess(bars, w)
}
