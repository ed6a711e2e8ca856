package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/pipeline"
	"github.com/ppiankov/factsift/internal/score"
	"github.com/ppiankov/factsift/internal/worker"
)

const (
	resultsFile = "results.csv"
	reportFile  = "class_report.csv"
)

// Options configures an evaluation run
type Options struct {
	// Mode names the run directory, e.g. "rag" or "baseline"
	Mode        string
	OutputDir   string // Empty skips writing artifacts
	Concurrency int
	Logger      *zap.Logger
}

// Summary is the outcome of an evaluation run
type Summary struct {
	RunID       string
	Results     []*model.ClaimResult
	Report      score.Report
	Correct     int
	Answered    int
	Accuracy    float64
	Outcomes    map[model.Outcome]int
	ResultsPath string
	ReportPath  string
}

// Runner evaluates a checker over a set of claims
type Runner struct {
	checker worker.Checker
	opts    Options
	logger  *zap.Logger
}

// NewRunner creates a runner
func NewRunner(checker worker.Checker, opts Options) *Runner {
	if opts.Mode == "" {
		opts.Mode = "rag"
	}
	return &Runner{checker: checker, opts: opts, logger: logging.OrNop(opts.Logger)}
}

// Run checks every claim, scores the answered ones and writes the
// artifacts under OutputDir/<mode>-<run id>/. Per-claim failures are
// recorded in the results, not returned.
func (r *Runner) Run(ctx context.Context, claims []model.Claim) (*Summary, error) {
	summary := &Summary{
		RunID:    uuid.NewString(),
		Outcomes: make(map[model.Outcome]int),
	}
	logger := r.logger.With(zap.String("run", summary.RunID), zap.String("mode", r.opts.Mode))
	logger.Info("evaluation started", zap.Int("claims", len(claims)))

	processor := worker.NewBatchProcessor(r.checker, r.opts.Concurrency, logger)
	for _, outcome := range processor.ProcessClaims(ctx, claims) {
		if outcome.Error != nil {
			level := logger.Warn
			if errors.Is(outcome.Error, pipeline.ErrNoEvidence) {
				level = logger.Info
			}
			level("claim unresolved", zap.String("claim", outcome.Claim.ID), zap.Error(outcome.Error))
		}
		if outcome.Result == nil {
			continue
		}
		summary.Results = append(summary.Results, outcome.Result)
		summary.Outcomes[outcome.Result.Outcome]++

		logger.Info("claim processed",
			zap.String("claim", outcome.Result.ClaimID),
			zap.String("predicted", string(outcome.Result.PredictedLabel)),
			zap.Duration("took", outcome.Result.TimeTaken))
	}

	summary.Correct, summary.Answered, summary.Accuracy = Accuracy(summary.Results)
	summary.Report = score.NewScorer().Calculate(Pairs(summary.Results))

	if r.opts.OutputDir != "" {
		if err := r.writeArtifacts(summary); err != nil {
			return summary, err
		}
	}

	logger.Info("evaluation finished",
		zap.Int("results", len(summary.Results)),
		zap.Int("answered", summary.Answered),
		zap.Float64("accuracy", summary.Accuracy))
	return summary, nil
}

func (r *Runner) writeArtifacts(summary *Summary) error {
	dir := filepath.Join(r.opts.OutputDir, r.opts.Mode+"-"+summary.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	summary.ResultsPath = filepath.Join(dir, resultsFile)
	if err := writeFile(summary.ResultsPath, func(w io.Writer) error {
		return WriteResults(w, summary.Results)
	}); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	summary.ReportPath = filepath.Join(dir, reportFile)
	if err := writeFile(summary.ReportPath, summary.Report.WriteCSV); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
