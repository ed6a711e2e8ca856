package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/model"
)

// Checker resolves a single claim
type Checker interface {
	Check(ctx context.Context, claim model.Claim) (*model.ClaimResult, error)
}

// ClaimJob checks one claim of a batch
type ClaimJob struct {
	Index   int
	Claim   model.Claim
	Checker Checker
}

// Execute executes the claim job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	result, err := j.Checker.Check(ctx, j.Claim)
	return &ClaimOutcome{
		Index:  j.Index,
		Claim:  j.Claim,
		Result: result,
		Error:  err,
	}
}

// ClaimOutcome is the result of a claim job. Result may be set even when
// Error is, carrying whatever the checker recorded before failing.
type ClaimOutcome struct {
	Index  int
	Claim  model.Claim
	Result *model.ClaimResult
	Error  error
}

// GetError returns the error from the claim outcome
func (r *ClaimOutcome) GetError() error {
	return r.Error
}

// BatchProcessor checks many claims. Claims share nothing but the
// append-only result list, so concurrency only changes wall time.
type BatchProcessor struct {
	checker     Checker
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a batch processor. A concurrency of 1 checks
// claims strictly one after another.
func NewBatchProcessor(checker Checker, concurrency int, logger *zap.Logger) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessClaims checks every claim and returns outcomes in input order.
// Claims not started before ctx is cancelled are absent from the result.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []model.Claim) []*ClaimOutcome {
	if len(claims) == 0 {
		return []*ClaimOutcome{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(&ClaimJob{Index: i, Claim: claim, Checker: b.checker})
	}

	// A cancelled run drops queued claims and keeps only those already running
	var results []Result
	if ctx.Err() != nil {
		results = pool.Shutdown()
	} else {
		results = pool.Wait()
	}

	outcomes := make([]*ClaimOutcome, 0, len(results))
	for _, r := range results {
		outcomes = append(outcomes, r.(*ClaimOutcome))
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

	if len(outcomes) < len(claims) {
		b.logger.Warn("batch interrupted",
			zap.Int("completed", len(outcomes)),
			zap.Int("total", len(claims)))
	}
	return outcomes
}

// ReadIDsFromFile reads claim IDs from a file, one per line. Blank lines and
// '#' comments are skipped and duplicates dropped.
func ReadIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return ids, nil
}
