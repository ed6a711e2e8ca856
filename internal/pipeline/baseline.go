package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/answer"
	"github.com/ppiankov/factsift/internal/llm"
	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/metrics"
	"github.com/ppiankov/factsift/internal/model"
)

// BaselineChecker asks the model about the bare statement, without retrieval
type BaselineChecker struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewBaselineChecker creates a baseline checker
func NewBaselineChecker(provider llm.Provider, logger *zap.Logger) *BaselineChecker {
	return &BaselineChecker{provider: provider, logger: logging.OrNop(logger)}
}

// Check classifies the claim from the model's prior knowledge alone
func (b *BaselineChecker) Check(ctx context.Context, claim model.Claim) (*model.ClaimResult, error) {
	start := time.Now()
	result := &model.ClaimResult{
		ClaimID:        claim.ID,
		Statement:      claim.Statement,
		TrueLabel:      claim.Label,
		PredictedLabel: model.LabelUnparseable,
	}

	reply, err := llm.Complete(ctx, b.provider, answer.BuildBaselinePrompt(claim))
	metrics.ObserveStage("generate", start)
	result.TimeTaken = time.Since(start)
	if err != nil {
		result.Outcome = model.OutcomeFailed
		result.Reason = err.Error()
		metrics.ClaimOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		return result, fmt.Errorf("generate: %w", err)
	}

	result.PredictedLabel = answer.ParseBaseline(reply)
	result.Justification = reply
	if result.PredictedLabel.IsValid() {
		result.Outcome = model.OutcomeLabelled
	} else {
		result.Outcome = model.OutcomeUnparsed
	}
	metrics.ClaimOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	b.logger.Debug("baseline answered",
		zap.String("claim", claim.ID),
		zap.String("predicted", string(result.PredictedLabel)))
	return result, nil
}
