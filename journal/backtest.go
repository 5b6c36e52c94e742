package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// RunRecord mirrors the runs table: one row per simulation run.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Strategy string
	Dataset  string
	Config   []byte // strategy config as YAML

	Start time.Time
	End   time.Time
	Days  int

	InitialCapital float64
	FinalNAV       float64
	TotalReturn    float64 // fraction, 0.25 = +25%
	CAGR           float64
	MaxDrawdown    float64
	AvgExposure    float64
	AvgPositions   float64

	Fills  int
	Halted bool

	OrgPath string
	Notes   []string
}

var runOrgFuncs = template.FuncMap{
	"pct": func(x float64) string { return fmt.Sprintf("%.2f%%", x*100) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrgTemplate = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// FormatRunOrg renders a run summary as an Org-mode block.
func FormatRunOrg(r RunRecord) (string, error) {
	buf := new(bytes.Buffer)
	if err := runOrgTemplate.Execute(buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteRunOrg renders the run and writes it to r.OrgPath.
func (r *RunRecord) WriteRunOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("write run org: no org path")
	}
	s, err := FormatRunOrg(*r)
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const RunOrgTemplate = `
* BACKTEST: {{.Strategy}} {{.Start.Format "2006-01-02"}} .. {{.End.Format "2006-01-02"}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:DAYS:        {{.Days}}
:START_NAV:   {{printf "%.0f" .InitialCapital}}
:END_NAV:     {{printf "%.0f" .FinalNAV}}
:RETURN:      {{pct .TotalReturn}}
:CAGR:        {{pct .CAGR}}
:MAX_DD:      {{pct .MaxDrawdown}}
:FILLS:       {{.Fills}}
:HALTED:      {{.Halted}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src

** Performance Summary
- Final NAV:        *{{printf "%.0f" .FinalNAV}}*
- Total Return:     *{{pct .TotalReturn}}*
- CAGR:             *{{pct .CAGR}}*
- Max Drawdown:     *{{pct .MaxDrawdown}}*
- Avg Exposure:     *{{pct .AvgExposure}}*
- Avg Positions:    *{{printf "%.1f" .AvgPositions}}*

{{- if .Halted }}

Run halted early: NAV fell to zero or below.
{{- end }}

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
