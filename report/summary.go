// Package report renders an analysis as text: tables for chat and terminal,
// markdown, HTML fragments and CSV.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pivolan/benford_analyzer/benford"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatMarkdown, FormatCSV, FormatHTML:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Render writes the summary of a in the given format.
func Render(a *benford.Analyzer, f Format) (string, error) {
	switch f {
	case FormatTable, "":
		return SummaryTable(a), nil
	case FormatMarkdown:
		return SummaryMarkdown(a), nil
	case FormatCSV:
		return SummaryCSV(a), nil
	case FormatHTML:
		return SummaryHTML(a), nil
	}
	return "", fmt.Errorf("unknown report format %q", f)
}

func SummaryTable(a *benford.Analyzer) string {
	t := summaryWriter(a)
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func SummaryMarkdown(a *benford.Analyzer) string {
	return summaryWriter(a).RenderMarkdown()
}

func SummaryHTML(a *benford.Analyzer) string {
	t := summaryWriter(a)
	t.SetTitle("")
	t.Style().HTML.CSSClass = "benford-summary"
	return t.RenderHTML()
}

// SummaryCSV has one line per digit and no totals.
func SummaryCSV(a *benford.Analyzer) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"digit", "occurrences", "percentage", "expected_percentage"})
	appendDigits(t, a)
	return t.RenderCSV()
}

// Verdict is a one line conclusion of the chi-square test.
func Verdict(a *benford.Analyzer) string {
	res := a.Test()
	threshold := a.Config().Threshold
	if a.TotalOccurrences() == 0 {
		return "No significant digits found"
	}
	if a.IsCompliant() {
		return fmt.Sprintf("Follows Benford's law (chi-square %.2f <= %.2f)", res.Statistic, threshold)
	}
	return fmt.Sprintf("Deviates from Benford's law (chi-square %.2f > %.2f)", res.Statistic, threshold)
}

func summaryWriter(a *benford.Analyzer) table.Writer {
	t := table.NewWriter()
	if a.Title() != "" {
		t.SetTitle("%s", a.Title())
	}
	t.AppendHeader(table.Row{"Digit", "Occurrences", "Observed %", "Benford %"})
	appendDigits(t, a)

	res := a.Test()
	t.AppendFooter(table.Row{"Total", a.TotalOccurrences(), "chi2 " + strconv.FormatFloat(res.Statistic, 'f', 2, 64), "p " + formatPValue(res.PValue)})
	t.SetCaption("%s. Rows: %d, without digit: %d.", Verdict(a), a.RowCount(), a.ErrorCount())
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return t
}

func appendDigits(t table.Writer, a *benford.Analyzer) {
	places := a.Config().DecimalPlaces
	for _, row := range a.Summary() {
		t.AppendRow(table.Row{
			row.Digit,
			row.Occurrences,
			row.Percentage.StringFixed(places),
			row.ExpectedPercentage.StringFixed(benford.DefaultDecimalPlaces),
		})
	}
}

func formatPValue(p float64) string {
	switch {
	case math.IsNaN(p):
		return "n/a"
	case p < 0.0001:
		return strconv.FormatFloat(p, 'e', 2, 64)
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}
