// Package extract derives filter signals from a claim: named entities grouped
// by category and theme constraints chosen by one of two strategies.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
)

// Analysis is everything the filter builder needs for one claim
type Analysis struct {
	Entities model.EntitySet
	Themes   model.ThemeSelection
	Strategy model.ThemeStrategy
}

// Analyzer runs entity extraction and the configured theme strategy
type Analyzer struct {
	entities *EntityExtractor
	issues   *IssueClassifier
	themes   *ThemeSelector
	strategy model.ThemeStrategy
	logger   *zap.Logger
}

// NewAnalyzer creates an analyzer. Only the selector for the chosen strategy is required.
func NewAnalyzer(strategy model.ThemeStrategy, entities *EntityExtractor, issues *IssueClassifier, themes *ThemeSelector, logger *zap.Logger) (*Analyzer, error) {
	switch strategy {
	case model.ThemeStrategyIssues:
		if issues == nil {
			return nil, fmt.Errorf("theme strategy %q needs an issue classifier", strategy)
		}
	case model.ThemeStrategyDirect:
		if themes == nil {
			return nil, fmt.Errorf("theme strategy %q needs a theme selector", strategy)
		}
	default:
		return nil, fmt.Errorf("unknown theme strategy %q (supported: issues, direct)", strategy)
	}

	return &Analyzer{
		entities: entities,
		issues:   issues,
		themes:   themes,
		strategy: strategy,
		logger:   logging.OrNop(logger),
	}, nil
}

// Analyze extracts entities from the claim's own text and themes from the
// formulated query. Entities never come from the query wording itself. A
// failed model call leaves the theme side empty rather than failing the claim.
func (a *Analyzer) Analyze(ctx context.Context, query, claimText string) (Analysis, error) {
	entities, err := a.entities.Extract(claimText)
	if err != nil {
		return Analysis{}, fmt.Errorf("extract entities: %w", err)
	}

	out := Analysis{Entities: entities, Strategy: a.strategy}

	switch a.strategy {
	case model.ThemeStrategyIssues:
		groups, err := a.issues.Classify(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return Analysis{}, ctx.Err()
			}
			a.logger.Warn("issue classification failed, continuing without themes", zap.Error(err))
		}
		out.Themes = model.ThemeSelection{Groups: groups}

	case model.ThemeStrategyDirect:
		sel, err := a.themes.Select(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return Analysis{}, ctx.Err()
			}
			a.logger.Warn("theme selection failed, continuing without themes", zap.Error(err))
		}
		out.Themes = sel
	}

	return out, nil
}
