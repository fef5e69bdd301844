package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wonny/signalscreen/backend/internal/contracts"
	"github.com/wonny/signalscreen/backend/internal/selection"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	singleLine = "───────────────────────────────────────────────────────────"
	doubleLine = "═══════════════════════════════════════════════════════════"
)

// PrintJobHeader prints a formatted header for a scan or analysis
func PrintJobHeader(w io.Writer, title string, fields map[string]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-10s: %s\n", k, fields[k])
	}
	fmt.Fprintln(w, singleLine)
}

// PrintProgress prints one terminal ticker
// Example: [Scan] AAPL BUY (0.62, conf 1.00) [12/503]
func PrintProgress(w io.Writer, e selection.Event) {
	switch {
	case e.Result != nil:
		rec := e.Result.Recommendation
		fmt.Fprintf(w, "[Scan] %-6s %-4s (%+.2f, conf %.2f) [%d/%d]\n",
			e.Ticker, rec.Action, rec.Composite, rec.Confidence, e.Done, e.Total)
	case e.Failure != nil:
		fmt.Fprintf(w, "[Scan] %-6s ❌ %s [%d/%d]\n", e.Ticker, e.Failure.Reason, e.Done, e.Total)
	default:
		fmt.Fprintf(w, "[Scan] %-6s %s [%d/%d]\n", e.Ticker, e.State, e.Done, e.Total)
	}
}

// PrintReport prints the scan summary and the top successes
func PrintReport(w io.Writer, report *contracts.ScreenerReport, top int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  Scan %s (%s)\n", report.ID, report.Universe)
	fmt.Fprintln(w, singleLine)
	PrintKeyValue(w, "Duration", report.Duration().Round(time.Millisecond).String(), 10)
	PrintKeyValue(w, "Screened", fmt.Sprintf("%d", report.Total()), 10)

	counts := report.CountByAction()
	PrintKeyValue(w, "Actions", fmt.Sprintf("BUY %d / HOLD %d / SELL %d",
		counts[contracts.ActionBuy], counts[contracts.ActionHold], counts[contracts.ActionSell]), 10)

	if len(report.Failures) > 0 {
		reasons := report.FailuresByReason()
		parts := make([]string, 0, len(reasons))
		for reason, n := range reasons {
			parts = append(parts, fmt.Sprintf("%s %d", reason, n))
		}
		sort.Strings(parts)
		PrintKeyValue(w, "Failures", strings.Join(parts, ", "), 10)
	}
	if report.Cancelled {
		PrintKeyValue(w, "Cancelled", fmt.Sprintf("%d unresolved", len(report.Unresolved)), 10)
	}
	fmt.Fprintln(w, singleLine)

	if len(report.Successes) == 0 {
		PrintWarning(w, "No ticker could be screened")
		return
	}

	n := top
	if n <= 0 || n > len(report.Successes) {
		n = len(report.Successes)
	}

	widths := []int{4, 8, 6, 10, 10, 10, 10, 10}
	PrintTableHeader(w, []string{"#", "Ticker", "Action", "Composite", "Conf", "Tech", "Sent", "Fund"}, widths)
	for i, r := range report.Successes[:n] {
		rec := r.Recommendation
		PrintTableRow(w, []string{
			fmt.Sprintf("%d", i+1),
			r.Ticker,
			string(rec.Action),
			fmt.Sprintf("%+.3f", rec.Composite),
			fmt.Sprintf("%.2f", rec.Confidence),
			formatScore(r.Technical),
			formatScore(r.Sentiment),
			formatScore(r.Fundamental),
		}, widths)
	}
}

// PrintResult prints one analyzed ticker with its details
func PrintResult(w io.Writer, r *contracts.ScreenerResult) {
	rec := r.Recommendation
	PrintJobHeader(w, "Analysis: "+r.Ticker, map[string]string{
		"Action":     string(rec.Action),
		"Composite":  fmt.Sprintf("%+.3f", rec.Composite),
		"Confidence": fmt.Sprintf("%.2f", rec.Confidence),
	})

	PrintKeyValue(w, "Technical", formatScore(r.Technical), 12)
	PrintKeyValue(w, "Sentiment", formatScore(r.Sentiment), 12)
	PrintKeyValue(w, "Fundamental", formatScore(r.Fundamental), 12)

	if t := r.Details.Technical; t != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "   Close %.2f  SMA %.2f/%.2f  RSI %.1f  (%d bars)\n",
			t.LastClose, t.SMAShort, t.SMALong, t.RSI, t.Bars)
		if t.MomentumPct != nil {
			fmt.Fprintf(w, "   Momentum %+.1f%%\n", *t.MomentumPct*100)
		}
	}
	if s := r.Details.Sentiment; s != nil {
		fmt.Fprintf(w, "   Headlines %d (+%d / -%d / =%d)\n", s.Considered, s.Positive, s.Negative, s.Neutral)
		for _, h := range s.Headlines {
			fmt.Fprintf(w, "     %+.2f  %s\n", h.Compound, h.Text)
		}
	}
	if f := r.Details.Fundamental; f != nil {
		fmt.Fprintf(w, "   Quarter %s  score %.2f  awarded: %s\n",
			f.PeriodEnd.Format("2006-01-02"), f.Normalized, strings.Join(f.Awarded, ", "))
		fmt.Fprintf(w, "   P/E %s  P/B %s  ROCE %s  F-score %s\n",
			formatRatio(f.PE), formatRatio(f.PB), formatPct(f.ROCE), formatInt(f.Piotroski))
	}
	fmt.Fprintln(w, singleLine)
}

func formatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func formatInt(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d/9", *v)
}

func formatScore(s contracts.SignalScore) string {
	v, ok := s.Value()
	if !ok {
		return "n/a"
	}
	if s.IsLowConfidence() {
		return fmt.Sprintf("%+.2f*", v)
	}
	return fmt.Sprintf("%+.2f", v)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}
