package report

import (
	"math"
	"strings"
	"testing"

	"permsig/domain/sig"
)

func TestSummarizeNull(t *testing.T) {
	null := sig.NullSample{1, 2, 3, 4, 5}
	summary := SummarizeNull(null)

	if summary.Mean != 3 {
		t.Errorf("Expected mean 3, got %f", summary.Mean)
	}
	if summary.Median != 3 {
		t.Errorf("Expected median 3, got %f", summary.Median)
	}
	if summary.Min != 1 || summary.Max != 5 {
		t.Errorf("Expected range [1, 5], got [%f, %f]", summary.Min, summary.Max)
	}
	if math.Abs(summary.StdDev-math.Sqrt(2)) > 1e-9 {
		t.Errorf("Expected population stddev sqrt(2), got %f", summary.StdDev)
	}
	if summary.Percentile95 < summary.Median || summary.Percentile99 < summary.Percentile95 {
		t.Errorf("Percentiles out of order: median=%f p95=%f p99=%f",
			summary.Median, summary.Percentile95, summary.Percentile99)
	}
}

func TestRenderMarkdown_FullReport(t *testing.T) {
	manifest := sig.NewRunManifest(25325, 500, 1000, 10, 3, 0.05, sig.StatDeviance)
	manifest.RuntimeMs = 1234

	observed := &sig.PerformanceRecord{
		Name: "whole model", Deviance: 812.5, Accuracy: 0.84, Precision: 0.8, Recall: 0.75,
	}
	summary := SummarizeNull(sig.NullSample{1350, 1360, 1370})

	record, err := sig.NewSignificanceRecord("", sig.StatDeviance, 812.5, 0.0, 0.001, 500, 0.05)
	if err != nil {
		t.Fatalf("NewSignificanceRecord failed: %v", err)
	}

	md := RenderMarkdown("Permutation experiment", manifest, observed, &summary,
		[]sig.SignificanceRecord{*record})

	for _, want := range []string{
		"# Permutation experiment",
		manifest.RunID.String(),
		"seed 25325",
		"500 trials",
		"## Observed performance",
		"## Permutation null distribution",
		"## Significance",
		"(model)",
		"deviance",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Report missing %q", want)
		}
	}
}

func TestRenderMarkdown_ScreeningOmitsModelSections(t *testing.T) {
	manifest := sig.NewRunManifest(1, 100, 200, 2, 0, 0.05, sig.StatAccuracy)

	record, err := sig.NewSignificanceRecord("g_1", sig.StatAccuracy, 0.9, 0.01, 0.02, 100, 0.05)
	if err != nil {
		t.Fatalf("NewSignificanceRecord failed: %v", err)
	}

	md := RenderMarkdown("Feature screening", manifest, nil, nil, []sig.SignificanceRecord{*record})

	if strings.Contains(md, "## Observed performance") {
		t.Error("Screening report must not carry the whole-model performance table")
	}
	if strings.Contains(md, "## Permutation null distribution") {
		t.Error("Screening report must not carry the null summary table")
	}
	if !strings.Contains(md, "g_1") || !strings.Contains(md, "true") {
		t.Errorf("Screening report missing the selected feature row:\n%s", md)
	}
}

func TestRenderHTML(t *testing.T) {
	md := RenderMarkdown("Smoke", sig.NewRunManifest(1, 10, 20, 1, 0, 0.05, sig.StatDeviance),
		nil, nil, nil)

	out := string(RenderHTML(md))
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Smoke") {
		t.Errorf("Expected an HTML heading, got:\n%s", out)
	}
}
