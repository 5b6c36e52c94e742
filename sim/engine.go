// Package sim runs the day-stepping backtest: trades decided at one close
// execute at the next open, and every day is processed in a fixed order of
// execute, mark, exits, signals, target, weights, deltas, stops.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/trendsim/internal/logging"
	"github.com/rustyeddy/trendsim/journal"
	"github.com/rustyeddy/trendsim/market"
	"github.com/rustyeddy/trendsim/metrics"
	"github.com/rustyeddy/trendsim/portfolio"
)

// ErrNonPositiveNAV halts a run. The history up to and including the
// offending day is still returned.
var ErrNonPositiveNAV = errors.New("nav is not positive")

// ErrInvalidDateRange reports bounds with From after To.
var ErrInvalidDateRange = errors.New("invalid date range")

const DefaultProgressEvery = 100

// Options are the per-run collaborators. All fields are optional.
type Options struct {
	// Inclusive date bounds; zero means open-ended. Reversed bounds fall
	// back to the full history with a warning.
	From, To time.Time

	RunID         string
	Logger        *zap.Logger
	Journal       journal.Journal
	Metrics       *metrics.Recorder
	ProgressEvery int // 0 uses DefaultProgressEvery, <0 disables

	hooks *hooks
}

// hooks let tests observe the engine without changing it.
type hooks struct {
	phase    func(date time.Time, p Phase)
	weights  func(date time.Time, w map[string]float64)
	endOfDay func(date time.Time, l *portfolio.Ledger)
}

// Result is the outcome of a run.
type Result struct {
	RunID   string
	History []portfolio.Snapshot
	Fills   []Fill
	Halted  bool
	Start   time.Time
	End     time.Time
	Days    int
}

// Final returns the last NAV snapshot, or false for an empty run.
func (r Result) Final() (portfolio.Snapshot, bool) {
	if len(r.History) == 0 {
		return portfolio.Snapshot{}, false
	}
	return r.History[len(r.History)-1], true
}

type engine struct {
	view    *market.View
	rules   Rules
	opts    Options
	log     *zap.Logger
	ledger  *portfolio.Ledger
	pending []Intent
	fills   []Fill
}

// day is the working state of one simulated date.
type day struct {
	index  int
	date   time.Time
	rows   map[string]market.InstrumentDay
	order  []market.InstrumentDay // by instrument
	closes map[string]float64
	nav    float64

	exits   map[string]bool
	signals map[string]bool
	target  []string
	weights map[string]float64
}

// Run simulates rules over the dates of view within opts.From..opts.To.
// An empty range yields an empty Result and no error. When NAV falls to
// zero or below the run stops and the partial Result is returned together
// with an error wrapping ErrNonPositiveNAV.
func Run(ctx context.Context, view *market.View, rules Rules, opts Options) (Result, error) {
	if view == nil {
		return Result{}, fmt.Errorf("sim: view is required")
	}
	if err := rules.Validate(); err != nil {
		return Result{}, err
	}
	if opts.ProgressEvery == 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}

	e := &engine{
		view:   view,
		rules:  rules,
		opts:   opts,
		log:    logging.OrNop(opts.Logger),
		ledger: portfolio.New(rules.Costs, rules.ATRMultiplier, rules.InitialCapital),
	}

	dates := e.dates()
	res := Result{RunID: opts.RunID}
	if len(dates) == 0 {
		e.log.Warn("no trading days in range",
			zap.Time("from", opts.From), zap.Time("to", opts.To))
		return res, nil
	}

	e.log.Info("backtest starting",
		zap.String("run_id", opts.RunID),
		zap.String("from", market.FormatDate(dates[0])),
		zap.String("to", market.FormatDate(dates[len(dates)-1])),
		zap.Int("days", len(dates)))

	var runErr error
	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := e.step(i, date); err != nil {
			if errors.Is(err, ErrNonPositiveNAV) {
				res.Halted = true
			}
			runErr = err
			break
		}
		if h := e.opts.hooks; h != nil && h.endOfDay != nil {
			h.endOfDay(date, e.ledger)
		}
	}

	res.History = e.ledger.History()
	res.Fills = e.fills
	res.Days = len(res.History)
	if res.Days > 0 {
		res.Start = res.History[0].Date
		res.End = res.History[res.Days-1].Date
	}
	return res, runErr
}

// dates applies the run bounds to the view's calendar.
func (e *engine) dates() []time.Time {
	from, to := e.opts.From, e.opts.To
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		err := fmt.Errorf("from %s after to %s: %w",
			market.FormatDate(from), market.FormatDate(to), ErrInvalidDateRange)
		e.log.Warn("invalid date range, using full history", zap.Error(err))
		e.opts.Metrics.Warning("date_range")
		from, to = time.Time{}, time.Time{}
	}
	return e.view.Between(from, to)
}

func (e *engine) phase(d *day, p Phase) {
	if e.opts.hooks != nil && e.opts.hooks.phase != nil {
		e.opts.hooks.phase(d.date, p)
	}
}

// step runs one trading day. Steps after the target phase are skipped
// when the target set is empty.
func (e *engine) step(i int, date time.Time) error {
	d := e.newDay(i, date)

	e.phase(d, PhaseExecute)
	if err := e.execute(d); err != nil {
		return err
	}

	e.phase(d, PhaseMark)
	if err := e.mark(d); err != nil {
		return err
	}

	e.phase(d, PhaseExits)
	e.findExits(d)

	e.phase(d, PhaseSignals)
	e.scanSignals(d)

	e.phase(d, PhaseTarget)
	if !e.buildTarget(d) {
		sortIntents(e.pending)
		return nil
	}

	e.phase(d, PhaseWeights)
	e.weigh(d)

	e.phase(d, PhaseDeltas)
	e.planDeltas(d)
	sortIntents(e.pending)

	e.phase(d, PhaseStops)
	e.trailStops(d)

	return nil
}

func (e *engine) newDay(i int, date time.Time) *day {
	order := e.view.Day(date)
	d := &day{
		index:   i,
		date:    date,
		rows:    make(map[string]market.InstrumentDay, len(order)),
		order:   order,
		closes:  make(map[string]float64, len(order)),
		exits:   make(map[string]bool),
		signals: make(map[string]bool),
		weights: make(map[string]float64),
	}
	for _, r := range order {
		d.rows[r.Instrument] = r
		d.closes[r.Instrument] = r.Close
	}
	return d
}

// execute fills yesterday's plan at today's open. Intents without an open
// price today are dropped.
func (e *engine) execute(d *day) error {
	plan := e.pending
	e.pending = nil

	for _, in := range plan {
		row, ok := d.rows[in.Instrument]
		if !ok {
			e.log.Warn("missing open price",
				zap.String("date", market.FormatDate(d.date)),
				zap.String("instrument", in.Instrument),
				zap.Int64("delta", in.Delta))
			e.opts.Metrics.Warning("missing_open")
			continue
		}

		var (
			f   portfolio.Fill
			err error
		)
		if in.Delta < 0 {
			f, err = e.ledger.Sell(in.Instrument, row.Open, -in.Delta)
			if err != nil {
				e.log.Error("sell rejected",
					zap.String("instrument", in.Instrument),
					zap.Int64("quantity", -in.Delta),
					zap.Error(err))
				e.opts.Metrics.Rejected(rejectReason(err))
				continue
			}
		} else {
			f, err = e.ledger.Buy(in.Instrument, row.Open, in.Delta, in.Seed)
			if err != nil {
				e.log.Warn("buy rejected",
					zap.String("instrument", in.Instrument),
					zap.Int64("quantity", in.Delta),
					zap.Float64("price", row.Open),
					zap.Error(err))
				e.opts.Metrics.Rejected(rejectReason(err))
				continue
			}
		}

		if err := e.recordFill(d.date, f, in.Reason); err != nil {
			return err
		}
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrInsufficientCash):
		return "insufficient_cash"
	case errors.Is(err, portfolio.ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, portfolio.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, portfolio.ErrInvalidPrice):
		return "invalid_price"
	}
	return "other"
}

func (e *engine) recordFill(date time.Time, f portfolio.Fill, reason string) error {
	e.fills = append(e.fills, Fill{Date: date, Fill: f, Reason: reason})
	e.opts.Metrics.Fill(string(f.Side), f.Amount)

	if e.opts.Journal == nil {
		return nil
	}
	if err := e.opts.Journal.RecordFill(journal.FillRecord{
		RunID:      e.opts.RunID,
		Date:       date,
		Instrument: f.Instrument,
		Side:       string(f.Side),
		Quantity:   f.Quantity,
		Price:      f.Price,
		Amount:     f.Amount,
		StopLoss:   f.StopLoss,
		Reason:     reason,
	}); err != nil {
		return fmt.Errorf("journal fill: %w", err)
	}
	return nil
}

// mark records the closing snapshot and halts on non-positive NAV.
func (e *engine) mark(d *day) error {
	snap := e.ledger.RecordSnapshot(d.date, d.closes)
	d.nav = snap.NAV
	e.opts.Metrics.Day(snap.NAV, snap.Cash, snap.Positions)

	if e.opts.Journal != nil {
		if err := e.opts.Journal.RecordNAV(journal.NAVRecord{
			RunID:     e.opts.RunID,
			Date:      d.date,
			NAV:       snap.NAV,
			Cash:      snap.Cash,
			Exposure:  snap.Exposure,
			Positions: snap.Positions,
		}); err != nil {
			return fmt.Errorf("journal nav: %w", err)
		}
	}

	if e.opts.ProgressEvery > 0 && d.index%e.opts.ProgressEvery == 0 {
		e.log.Info("progress",
			zap.String("date", market.FormatDate(d.date)),
			zap.Float64("nav", snap.NAV),
			zap.Float64("cash", snap.Cash),
			zap.Float64("unrealized_pl", e.ledger.UnrealizedPL(d.closes)),
			zap.Int("positions", snap.Positions))
	}

	if d.nav <= 0 {
		e.log.Error("non-positive nav, halting",
			zap.String("date", market.FormatDate(d.date)),
			zap.Float64("nav", d.nav))
		return fmt.Errorf("%s: nav %.2f: %w", market.FormatDate(d.date), d.nav, ErrNonPositiveNAV)
	}
	return nil
}

// findExits flags holdings that closed below their stop. Holdings absent
// from today's data are skipped.
func (e *engine) findExits(d *day) {
	for _, inst := range e.ledger.Instruments() {
		row, ok := d.rows[inst]
		if !ok {
			e.log.Warn("holding missing from day",
				zap.String("date", market.FormatDate(d.date)),
				zap.String("instrument", inst))
			e.opts.Metrics.Warning("missing_holding")
			continue
		}
		if stop, ok := e.ledger.StopLoss(inst); ok && row.Close < stop {
			d.exits[inst] = true
		}
	}
	e.opts.Metrics.StopExits(len(d.exits))
}

func (e *engine) eligible(r market.InstrumentDay) bool {
	return r.Close > e.rules.MinPrice &&
		r.AvgVolume != nil && *r.AvgVolume > e.rules.MinAvgVolume &&
		r.HasVolatility()
}

// scanSignals fires on eligible, unheld instruments closing at a new high.
func (e *engine) scanSignals(d *day) {
	for _, r := range d.order {
		if !e.eligible(r) || e.ledger.Holds(r.Instrument) {
			continue
		}
		if r.Close >= r.AllTimeHigh {
			d.signals[r.Instrument] = true
		}
	}
}

// buildTarget is held-minus-exits plus signals, sorted. An empty target
// queues a full liquidation and returns false.
func (e *engine) buildTarget(d *day) bool {
	for _, inst := range e.ledger.Instruments() {
		if !d.exits[inst] {
			d.target = append(d.target, inst)
		}
	}
	for inst := range d.signals {
		d.target = append(d.target, inst)
	}
	sort.Strings(d.target)

	if len(d.target) > 0 {
		return true
	}

	for _, p := range e.ledger.Positions() {
		e.pending = append(e.pending, Intent{
			Instrument: p.Instrument,
			Delta:      -p.Quantity,
			Reason:     exitReason(d, p.Instrument),
		})
	}
	return false
}

func exitReason(d *day, inst string) string {
	if d.exits[inst] {
		return journal.ReasonStopLoss
	}
	return journal.ReasonExit
}

// weigh sizes each target by inverse volatility, then scales all weights
// down together when their sum exceeds MaxLeverage.
func (e *engine) weigh(d *day) {
	n := len(d.target)
	if n < e.rules.MinAssumedHoldings {
		n = e.rules.MinAssumedHoldings
	}

	sum := 0.0
	for _, inst := range d.target {
		row, ok := d.rows[inst]
		if !ok {
			continue
		}
		if !row.HasVolatility() {
			e.log.Info("volatility undefined, excluded from weighting",
				zap.String("date", market.FormatDate(d.date)),
				zap.String("instrument", inst))
			continue
		}
		w := (e.rules.TargetVolatility / *row.Volatility) / float64(n)
		d.weights[inst] = w
		sum += w
	}

	if sum > e.rules.MaxLeverage {
		f := e.rules.MaxLeverage / sum
		sum = 0
		for inst, w := range d.weights {
			d.weights[inst] = w * f
			sum += d.weights[inst]
		}
	}
	e.log.Debug("weights",
		zap.String("date", market.FormatDate(d.date)),
		zap.Int("targets", len(d.target)),
		zap.Int("weighted", len(d.weights)),
		zap.Float64("gross", sum))

	if e.opts.hooks != nil && e.opts.hooks.weights != nil {
		e.opts.hooks.weights(d.date, d.weights)
	}
}

// planDeltas turns weights into share deltas for tomorrow's open.
func (e *engine) planDeltas(d *day) {
	seen := make(map[string]bool, len(d.target))
	insts := append([]string(nil), d.target...)
	for _, inst := range d.target {
		seen[inst] = true
	}
	for _, inst := range e.ledger.Instruments() {
		if !seen[inst] {
			insts = append(insts, inst)
		}
	}
	sort.Strings(insts)

	threshold := e.rules.RebalanceThreshold * d.nav

	for _, inst := range insts {
		held := e.ledger.Quantity(inst)
		row, ok := d.rows[inst]
		if !ok {
			// Unpriced holdings are left alone until they trade again.
			continue
		}

		var desired int64
		if row.Close > 0 {
			desired = int64(math.Floor(d.weights[inst] * d.nav / row.Close))
		}
		delta := desired - held
		if delta == 0 {
			continue
		}

		if e.rules.TurnoverControl && held > 0 && desired > 0 {
			notional := math.Abs(float64(delta)) * row.Close
			if notional < threshold {
				e.log.Debug("rebalance suppressed",
					zap.String("instrument", inst),
					zap.Float64("notional", notional),
					zap.Float64("threshold", threshold))
				continue
			}
		}

		in := Intent{Instrument: inst, Delta: delta, Reason: journal.ReasonRebalance}
		switch {
		case delta > 0 && d.signals[inst]:
			in.Reason = journal.ReasonEntry
			in.Seed = &portfolio.StopLossSeed{
				AllTimeHigh: row.AllTimeHigh,
				ATR:         copyFloat(row.ATR),
				Close:       row.Close,
			}
		case desired == 0:
			in.Reason = exitReason(d, inst)
		}
		e.pending = append(e.pending, in)
	}
}

// trailStops ratchets the stop of every retained holding.
func (e *engine) trailStops(d *day) {
	for _, inst := range e.ledger.Instruments() {
		if d.exits[inst] {
			continue
		}
		row, ok := d.rows[inst]
		if !ok {
			continue
		}
		if stop, ok := portfolio.StopPrice(row.AllTimeHigh, row.ATR, row.Close, e.rules.ATRMultiplier); ok {
			e.ledger.RaiseStopLoss(inst, stop)
		}
	}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
