package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factsift/internal/evaluate"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/pipeline"
	"github.com/ppiankov/factsift/internal/worker"
)

var (
	evalLimit       int
	evalIDsFile     string
	evalBaseline    bool
	evalSaveIndex   string
	evalOutputDir   string
	evalConcurrency int
	evalTimeout     time.Duration
)

// evalCmd represents the eval command
var evalCmd = &cobra.Command{
	Use:   "eval <liar.tsv>",
	Short: "Evaluate against a labelled LIAR split",
	Long: `Eval checks every claim of a LIAR split and scores the predicted labels:
- Load the headerless 14-column TSV
- Check the first --limit claims (or those listed in --ids)
- Write per-claim results and a per-label classification report
- Print overall accuracy

With --baseline the model labels each statement without any retrieval.

Example:
  factsift eval liar/test.tsv
  factsift eval liar/test.tsv --limit 20 --output ./runs
  factsift eval liar/test.tsv --baseline --limit 0
  factsift eval liar/test.tsv --ids ids.txt --save-index ./runs/index.db`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().IntVar(&evalLimit, "limit", 100, "check only the first N claims (0 for all)")
	evalCmd.Flags().StringVar(&evalIDsFile, "ids", "", "file of claim IDs to check, one per line")
	evalCmd.Flags().BoolVar(&evalBaseline, "baseline", false, "label statements without retrieval")
	evalCmd.Flags().StringVar(&evalSaveIndex, "save-index", "", "save each claim's chunk index to this SQLite file")
	evalCmd.Flags().StringVar(&evalOutputDir, "output", "", "output directory (default: output.dir from config)")
	evalCmd.Flags().IntVar(&evalConcurrency, "concurrency", 0, "claims checked in parallel (default: concurrency.claim_workers)")
	evalCmd.Flags().DurationVar(&evalTimeout, "timeout", 24*time.Hour, "total timeout for the run")
}

func runEval(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), evalTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if evalOutputDir != "" {
		cfg.Output.Dir = evalOutputDir
	}
	if evalConcurrency > 0 {
		cfg.Concurrency.ClaimWorkers = evalConcurrency
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	startMetrics(ctx, cfg, logger)

	claims, err := evaluate.LoadLIAR(file)
	if err != nil {
		return err
	}
	if evalIDsFile != "" {
		ids, err := worker.ReadIDsFromFile(evalIDsFile)
		if err != nil {
			return fmt.Errorf("read ids: %w", err)
		}
		claims = evaluate.SelectIDs(claims, ids)
	} else {
		claims = evaluate.Head(claims, evalLimit)
	}

	mode := "rag"
	if evalBaseline {
		mode = "baseline"
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  factsift evaluation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Dataset:      %s\n", file)
	fmt.Fprintf(os.Stderr, "  Claims:       %d\n", len(claims))
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", mode)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	if !evalBaseline {
		fmt.Fprintf(os.Stderr, "  Embedding:    %s/%s\n", cfg.Embedding.Provider, cfg.Embedding.Model)
		fmt.Fprintf(os.Stderr, "  Strategy:     %s, %s\n", cfg.Extraction.ThemeStrategy, cfg.Retrieval.Policy)
	}
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.ClaimWorkers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	var checker worker.Checker
	if evalBaseline {
		checker = pipeline.NewBaselineChecker(provider, logger)
	} else {
		p, cleanup, err := buildPipeline(ctx, cfg, provider, evalSaveIndex, logger)
		if err != nil {
			return err
		}
		defer cleanup.Close()
		checker = p
	}

	runner := evaluate.NewRunner(checker, evaluate.Options{
		Mode:        mode,
		OutputDir:   cfg.Output.Dir,
		Concurrency: cfg.Concurrency.ClaimWorkers,
		Logger:      logger,
	})
	summary, err := runner.Run(ctx, claims)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *evaluate.Summary) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Evaluation Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:          %s\n", s.RunID)
	fmt.Fprintf(os.Stderr, "  Results:      %d\n", len(s.Results))
	for _, o := range []model.Outcome{model.OutcomeLabelled, model.OutcomeUnparsed, model.OutcomeNoEvidence, model.OutcomeFailed} {
		fmt.Fprintf(os.Stderr, "    %-12s %d\n", o, s.Outcomes[o])
	}
	if s.ResultsPath != "" {
		fmt.Fprintf(os.Stderr, "  Results CSV:  %s\n", s.ResultsPath)
		fmt.Fprintf(os.Stderr, "  Report CSV:   %s\n", s.ReportPath)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if s.Answered > 0 {
		fmt.Printf("Accuracy: %.2f (%d/%d)\n", s.Accuracy, s.Correct, s.Answered)
	} else {
		fmt.Println("No answered claims to score.")
	}
}
