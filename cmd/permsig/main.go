package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"permsig/adapters/excel"
	"permsig/adapters/glm"
	"permsig/adapters/postgres"
	"permsig/adapters/rng"
	"permsig/app"
	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/domain/sig"
	"permsig/internal"
	"permsig/internal/config"
	"permsig/internal/report"
	"permsig/internal/synth"
	"permsig/ports"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "permsig",
		Short: "Permutation-based significance testing for binary classifiers",
	}

	rootCmd.AddCommand(
		newExperimentCmd(),
		newScreenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newExperimentCmd() *cobra.Command {
	var (
		title   string
		rows    int
		signal  int
		noise   int
		trials  int
		alpha   float64
		seed    int64
		stat    string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run a whole-model permutation experiment on synthetic data",
		Long: `Generate a labeled synthetic table, fit a logistic model, and compare its
performance against an empirical null distribution built by refitting on
randomly permuted labels.

Example: permsig experiment --rows 1000 --signal 10 --noise 3 --trials 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyDefaults(cfg, &trials, &alpha, &seed)

			svc := app.NewExperimentService(glm.NewTrainer(), rng.NewAdapter(), openArchive(cfg))
			result, err := svc.Run(cmd.Context(), app.ExperimentRequest{
				Title:       title,
				RowCount:    rows,
				SignalCount: signal,
				NoiseCount:  noise,
				Trials:      trials,
				Alpha:       alpha,
				Statistic:   sig.Statistic(stat),
				Seed:        seed,
				Workers:     workers,
			})
			if err != nil {
				return err
			}

			summary := report.SummarizeNull(result.Null)
			md := report.RenderMarkdown(title, result.Manifest, &result.Observed,
				&summary, []sig.SignificanceRecord{result.Significance})
			return emit(cfg, result.Manifest.RunID.String(), md)
		},
	}

	cmd.Flags().StringVar(&title, "title", "Permutation experiment", "Display title for the report")
	cmd.Flags().IntVar(&rows, "rows", 1000, "Row count of the synthetic table")
	cmd.Flags().IntVar(&signal, "signal", 10, "Number of signal-bearing features")
	cmd.Flags().IntVar(&noise, "noise", 3, "Number of pure-noise features")
	cmd.Flags().IntVar(&trials, "trials", 0, "Permutation trial count (default from PERM_TRIALS)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Selection threshold (default from ALPHA)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from SEED)")
	cmd.Flags().StringVar(&stat, "statistic", string(sig.StatDeviance), "Statistic to collect: deviance, accuracy, precision or recall")
	cmd.Flags().IntVar(&workers, "workers", 1, "Parallel permutation workers (1 = sequential)")

	return cmd
}

func newScreenCmd() *cobra.Command {
	var (
		input  string
		label  string
		trials int
		alpha  float64
		seed   int64
		stat   string
		rows   int
		signal int
		noise  int
		shared bool
	)

	cmd := &cobra.Command{
		Use:   "screen [features...]",
		Short: "Screen features with independent single-feature permutation runs",
		Long: `Score each feature with a single-feature permutation run plus the
one-degree-of-freedom chi-square cross-check. Without --input a synthetic
table is generated; with --input the first sheet of an .xlsx workbook is
screened and --label names its class column.

Example: permsig screen --input churn.xlsx --label churned --trials 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyDefaults(cfg, &trials, &alpha, &seed)

			rngAdapter := rng.NewAdapter()
			var (
				table         *frame.Frame
				positiveClass = frame.ClassPositive
			)
			if input != "" {
				var reader ports.FrameReader = excel.NewReader()
				table, err = reader.Read(cmd.Context(), input, core.FeatureKey(label))
				if err != nil {
					return err
				}
				positiveClass, err = pickPositiveClass(table, label)
				if err != nil {
					return err
				}
			} else {
				table, err = generateScreeningTable(cmd, rngAdapter, rows, signal, noise, seed)
				if err != nil {
					return err
				}
			}

			features := make([]core.FeatureKey, 0, len(args))
			for _, arg := range args {
				key, err := core.ParseFeatureKey(arg)
				if err != nil {
					return err
				}
				features = append(features, key)
			}

			svc := app.NewScreeningService(glm.NewTrainer(), rngAdapter, openArchive(cfg))
			result, err := svc.Screen(cmd.Context(), app.ScreeningRequest{
				Frame:             table,
				PositiveClass:     positiveClass,
				Features:          features,
				Trials:            trials,
				Alpha:             alpha,
				Statistic:         sig.Statistic(stat),
				Seed:              seed,
				SharePermutations: shared,
			})
			if err != nil {
				return err
			}

			md := report.RenderMarkdown("Feature screening", result.Manifest, nil, nil, result.Records)
			return emit(cfg, result.Manifest.RunID.String(), md)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Optional .xlsx workbook to screen")
	cmd.Flags().StringVar(&label, "label", "label", "Label column name for --input")
	cmd.Flags().IntVar(&trials, "trials", 0, "Permutation trial count (default from PERM_TRIALS)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Selection threshold (default from ALPHA)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default from SEED)")
	cmd.Flags().StringVar(&stat, "statistic", string(sig.StatDeviance), "Statistic to collect")
	cmd.Flags().IntVar(&rows, "rows", 1000, "Synthetic row count (ignored with --input)")
	cmd.Flags().IntVar(&signal, "signal", 10, "Synthetic signal features (ignored with --input)")
	cmd.Flags().IntVar(&noise, "noise", 3, "Synthetic noise features (ignored with --input)")
	cmd.Flags().BoolVar(&shared, "share-permutations", false, "Reuse one permutation sequence across features")

	return cmd
}

// applyDefaults fills unset flags from the environment-backed config
func applyDefaults(cfg *config.Config, trials *int, alpha *float64, seed *int64) {
	if *trials == 0 {
		*trials = cfg.Experiment.Trials
	}
	if *alpha == 0 {
		*alpha = cfg.Experiment.Alpha
	}
	if *seed == 0 {
		*seed = cfg.Experiment.Seed
	}
}

// openArchive connects the optional Postgres archive; a missing DATABASE_URL
// simply disables archiving.
func openArchive(cfg *config.Config) ports.ResultRepository {
	if cfg.Database.URL == "" {
		return nil
	}
	repo, err := postgres.NewResultRepository(cfg.Database.URL)
	if err != nil {
		internal.DefaultLogger.Warn("experiment archive unavailable: %v", err)
		return nil
	}
	return repo
}

// generateScreeningTable builds a synthetic table for screening demos
func generateScreeningTable(cmd *cobra.Command, adapter ports.RNG, rows, signal, noise int, seed int64) (*frame.Frame, error) {
	stream, err := adapter.SeededStream(cmd.Context(), "screen-generate", seed)
	if err != nil {
		return nil, err
	}
	generator := synth.NewGenerator(stream)
	return generator.Generate(rows, generator.SignalCoefficients(signal), noise)
}

// pickPositiveClass chooses the rarer class as positive, the usual screening
// convention for imbalanced outcome columns.
func pickPositiveClass(f *frame.Frame, label string) (string, error) {
	counts := f.LabelCounts()
	if len(counts) != 2 {
		return "", fmt.Errorf("label column %s must carry exactly 2 classes, found %d", label, len(counts))
	}
	positive := ""
	best := -1
	for class, count := range counts {
		if best == -1 || count < best || (count == best && class < positive) {
			positive = class
			best = count
		}
	}
	return positive, nil
}

// emit writes the Markdown report (and optional HTML twin) to the report dir
// and echoes it to stdout.
func emit(cfg *config.Config, runID, md string) error {
	fmt.Print(md)

	path := filepath.Join(cfg.Report.Dir, runID+".md")
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return err
	}
	if cfg.Report.HTML {
		htmlPath := filepath.Join(cfg.Report.Dir, runID+".html")
		if err := os.WriteFile(htmlPath, report.RenderHTML(md), 0o644); err != nil {
			return err
		}
	}
	internal.DefaultLogger.Info("report written to %s", path)
	return nil
}
