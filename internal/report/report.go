// Package report renders run results for human consumption. It is a sink:
// it consumes the core's outputs and is never called from scoring logic.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"

	"permsig/domain/sig"
)

// NullSummary condenses a null-distribution sample for display
type NullSummary struct {
	Mean         float64
	StdDev       float64
	Min          float64
	Max          float64
	Median       float64
	Percentile95 float64
	Percentile99 float64
}

// SummarizeNull computes descriptive statistics over a null sample
func SummarizeNull(null sig.NullSample) NullSummary {
	data := stats.Float64Data(null)
	mean, _ := stats.Mean(data)
	stdDev, _ := stats.StandardDeviation(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)
	median, _ := stats.Median(data)
	p95, _ := stats.Percentile(data, 95)
	p99, _ := stats.Percentile(data, 99)

	return NullSummary{
		Mean:         mean,
		StdDev:       stdDev,
		Min:          min,
		Max:          max,
		Median:       median,
		Percentile95: p95,
		Percentile99: p99,
	}
}

// RenderMarkdown builds the run report: manifest header, observed
// performance, null-distribution summary, and the significance table.
func RenderMarkdown(title string, manifest *sig.RunManifest, observed *sig.PerformanceRecord,
	summary *NullSummary, records []sig.SignificanceRecord) string {

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Run `%s` | seed %d | %d trials | alpha %.3g | statistic %s | %d rows | %d ms\n\n",
		manifest.RunID, manifest.Seed, manifest.Trials, manifest.Alpha,
		manifest.Statistic, manifest.RowCount, manifest.RuntimeMs)

	if observed != nil {
		b.WriteString("## Observed performance\n\n")
		b.WriteString("| deviance | accuracy | precision | recall |\n")
		b.WriteString("|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %.4f | %.4f | %.4f | %.4f |\n\n",
			observed.Deviance, observed.Accuracy, observed.Precision, observed.Recall)
	}

	if summary != nil {
		b.WriteString("## Permutation null distribution\n\n")
		b.WriteString("| mean | stddev | min | median | p95 | p99 | max |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n\n",
			summary.Mean, summary.StdDev, summary.Min, summary.Median,
			summary.Percentile95, summary.Percentile99, summary.Max)
	}

	if len(records) > 0 {
		b.WriteString("## Significance\n\n")
		b.WriteString("| target | statistic | observed | empirical tail | chi-square p | selected |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, rec := range records {
			target := rec.Target.String()
			if target == "" {
				target = "(model)"
			}
			fmt.Fprintf(&b, "| %s | %s | %.4f | %.4g | %.4g | %v |\n",
				target, rec.Statistic, rec.Observed, rec.EmpiricalTail, rec.ChiSquareP, rec.Selected)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderHTML converts a Markdown report to a standalone HTML fragment
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}
