package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/pipeline"
)

var (
	checkSpeaker   string
	checkSubject   string
	checkContext   string
	checkJSON      bool
	checkTimeout   time.Duration
	checkSaveIndex string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <statement>",
	Short: "Check a single statement against recent news coverage",
	Long: `Check runs the full retrieval pipeline for one statement:
- Extract people, places, organizations and topics
- Query the GDELT GKG with a filter built from them
- Pre-rank candidate articles by title similarity
- Fetch, chunk and index the best articles
- Ask the language model for a label grounded in the top chunks

Example:
  factsift check "Germany will phase out coal by 2030" --subject energy
  factsift check "Says the economy added 200,000 jobs" --speaker barack-obama --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkSpeaker, "speaker", "", "who made the statement")
	checkCmd.Flags().StringVar(&checkSubject, "subject", "", "subject of the statement")
	checkCmd.Flags().StringVar(&checkContext, "context", "", "where the statement was made")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the full result as JSON")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Minute, "overall timeout")
	checkCmd.Flags().StringVar(&checkSaveIndex, "save-index", "", "save the chunk index to this SQLite file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	startMetrics(ctx, cfg, logger)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	p, cleanup, err := buildPipeline(ctx, cfg, provider, checkSaveIndex, logger)
	if err != nil {
		return err
	}
	defer cleanup.Close()

	claim := model.Claim{
		ID:        "cli",
		Statement: args[0],
		Speaker:   checkSpeaker,
		Subject:   checkSubject,
		Context:   checkContext,
	}

	result, err := p.Check(ctx, claim)
	if err != nil && !errors.Is(err, pipeline.ErrNoEvidence) {
		return fmt.Errorf("check failed: %w", err)
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(r *model.ClaimResult) {
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Label:    %s\n", r.PredictedLabel)
	fmt.Printf("  Outcome:  %s\n", r.Outcome)
	if r.Reason != "" {
		fmt.Printf("  Reason:   %s\n", r.Reason)
	}
	fmt.Printf("  Funnel:   %d candidates → %d titles → %d articles → %d chunks\n",
		r.Candidates, r.Titles, r.Documents, len(r.Chunks))
	if r.Relaxed {
		fmt.Println("  Filter:   relaxed after an empty strict query")
	}
	fmt.Printf("  Took:     %s\n", r.TimeTaken.Round(time.Millisecond))
	fmt.Println("═══════════════════════════════════════════════════════════")

	if r.Justification != "" {
		fmt.Println()
		fmt.Println(r.Justification)
	}

	if len(r.Chunks) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, c := range r.Chunks {
			fmt.Printf("  [%d] %s (%s)\n", i+1, c.SourceTitle, c.SourceURL)
		}
	}
}
