package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/llm"
	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/refdata"
)

// DefaultFuzzyThreshold is the minimum normalized similarity for recovering a theme
const DefaultFuzzyThreshold = 0.6

// ThemeSelector picks raw themes straight from the curated list and
// recovers near-miss model output against the full theme vocabulary
type ThemeSelector struct {
	provider   llm.Provider
	tables     *refdata.Tables
	vocabulary []string
	threshold  float64
	logger     *zap.Logger
}

// NewThemeSelector creates a selector. vocabulary may be empty, which disables recovery.
func NewThemeSelector(provider llm.Provider, tables *refdata.Tables, vocabulary []string, threshold float64, logger *zap.Logger) *ThemeSelector {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &ThemeSelector{
		provider:   provider,
		tables:     tables,
		vocabulary: vocabulary,
		threshold:  threshold,
		logger:     logging.OrNop(logger),
	}
}

// Select returns the validated core themes and the fuzzy-recovered ones
func (s *ThemeSelector) Select(ctx context.Context, text string) (model.ThemeSelection, error) {
	reply, err := llm.Complete(ctx, s.provider, s.Prompt(text))
	if err != nil {
		return model.ThemeSelection{}, fmt.Errorf("select themes: %w", err)
	}

	core, invalid := s.split(reply)
	expanded := s.recover(invalid)

	s.logger.Debug("themes selected",
		zap.Strings("core", core),
		zap.Strings("invalid", invalid),
		zap.Strings("expanded", expanded))

	return model.ThemeSelection{Core: core, Expanded: expanded}, nil
}

// Prompt builds the direct theme selection prompt
func (s *ThemeSelector) Prompt(text string) string {
	return fmt.Sprintf(`You are an expert system designed to map user queries to a concise and highly relevant set of GDELT news themes.

VALID GDELT THEMES:
%s

USER QUERY: '%s'

Instructions:
1. Analyze the USER QUERY to understand its main subject, specific entities, and key aspects.
2. From the VALID GDELT THEMES, select a small set that are MOST DIRECTLY and SPECIFICALLY relevant to the query's core focus.
3. Output ONLY a COMMA-SEPARATED list of the chosen GDELT themes.
4. Ensure all outputted themes are verbatim from the VALID GDELT THEMES list.`,
		strings.Join(s.tables.CuratedThemes(), ", "), text)
}

// split separates reply tokens into curated themes and everything else
func (s *ThemeSelector) split(reply string) (valid, invalid []string) {
	seen := make(map[string]bool)
	for _, tok := range strings.Split(reply, ",") {
		theme := strings.ToUpper(strings.Trim(strings.TrimSpace(tok), `"'.`))
		if theme == "" || seen[theme] {
			continue
		}
		seen[theme] = true
		if s.tables.IsCuratedTheme(theme) {
			valid = append(valid, theme)
		} else {
			invalid = append(invalid, theme)
		}
	}
	return valid, invalid
}

func (s *ThemeSelector) recover(invalid []string) []string {
	if len(invalid) == 0 || len(s.vocabulary) == 0 {
		return nil
	}

	found := make(map[string]bool)
	for _, bad := range invalid {
		for _, candidate := range s.vocabulary {
			if Similarity(bad, candidate) >= s.threshold {
				found[candidate] = true
			}
		}
	}

	out := make([]string, 0, len(found))
	for t := range found {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Similarity is 1 minus the Levenshtein distance over the longer length, in [0,1]
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
