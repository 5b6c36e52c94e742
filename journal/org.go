package journal

import (
	"fmt"
	"strings"
)

// FormatFillsOrg renders fills as an Org table, one row per fill.
func FormatFillsOrg(fills []FillRecord) string {
	var b strings.Builder
	b.WriteString("| Date | Instrument | Side | Qty | Price | Amount | Stop | Reason |\n")
	b.WriteString("|------+------------+------+-----+-------+--------+------+--------|\n")
	for _, r := range fills {
		stop := ""
		if r.StopLoss > 0 {
			stop = fmt.Sprintf("%.2f", r.StopLoss)
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.2f | %.2f | %s | %s |\n",
			r.Date.Format("2006-01-02"), r.Instrument, r.Side, r.Quantity,
			r.Price, r.Amount, stop, r.Reason))
	}
	return b.String()
}

// FormatNAVOrg renders a NAV history as an Org table.
func FormatNAVOrg(navs []NAVRecord) string {
	var b strings.Builder
	b.WriteString("| Date | NAV | Cash | Exposure | Positions |\n")
	b.WriteString("|------+-----+------+----------+-----------|\n")
	for _, r := range navs {
		b.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f%% | %d |\n",
			r.Date.Format("2006-01-02"), r.NAV, r.Cash, r.Exposure*100, r.Positions))
	}
	return b.String()
}

// ShortID trims a run ID for display.
func ShortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
