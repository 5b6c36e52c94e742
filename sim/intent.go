package sim

import (
	"sort"
	"time"

	"github.com/rustyeddy/trendsim/portfolio"
)

// Intent is a trade decided at one close and executed at the next open.
// Seed is set only on buys that open a position from a fresh signal; it
// carries the signal day's indicators so the initial stop is not
// recomputed from the execution day's values.
type Intent struct {
	Instrument string
	Delta      int64 // >0 buy, <0 sell
	Seed       *portfolio.StopLossSeed
	Reason     string
}

// sortIntents orders a plan for execution: sells first (most negative
// delta), then buys; equal deltas by instrument.
func sortIntents(plan []Intent) {
	sort.Slice(plan, func(i, j int) bool {
		if plan[i].Delta != plan[j].Delta {
			return plan[i].Delta < plan[j].Delta
		}
		return plan[i].Instrument < plan[j].Instrument
	})
}

// Fill is an executed intent.
type Fill struct {
	Date time.Time
	portfolio.Fill
	Reason string
}

// Phase names the steps of a simulated day, in execution order.
type Phase int

const (
	PhaseExecute Phase = iota + 1
	PhaseMark
	PhaseExits
	PhaseSignals
	PhaseTarget
	PhaseWeights
	PhaseDeltas
	PhaseStops
)

var phaseNames = map[Phase]string{
	PhaseExecute: "execute",
	PhaseMark:    "mark",
	PhaseExits:   "exits",
	PhaseSignals: "signals",
	PhaseTarget:  "target",
	PhaseWeights: "weights",
	PhaseDeltas:  "deltas",
	PhaseStops:   "stops",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}
