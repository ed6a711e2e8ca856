package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/llm"
	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/refdata"
)

// NoCategoryMatch is the reply the model gives when no issue applies
const NoCategoryMatch = "NO_CATEGORY_MATCH"

// IssueClassifier maps a claim onto the fixed issue categories with a model call
type IssueClassifier struct {
	provider llm.Provider
	tables   *refdata.Tables
	logger   *zap.Logger
}

// NewIssueClassifier creates a classifier
func NewIssueClassifier(provider llm.Provider, tables *refdata.Tables, logger *zap.Logger) *IssueClassifier {
	return &IssueClassifier{provider: provider, tables: tables, logger: logging.OrNop(logger)}
}

// Classify returns the matched issue keys, each expanded to its theme tags
func (c *IssueClassifier) Classify(ctx context.Context, text string) ([]model.ThemeGroup, error) {
	reply, err := llm.Complete(ctx, c.provider, c.Prompt(text))
	if err != nil {
		return nil, fmt.Errorf("classify issues: %w", err)
	}

	keys := ParseIssueKeys(reply, c.tables.IssueKeys())
	c.logger.Debug("issue categories matched", zap.String("reply", reply), zap.Strings("keys", keys))

	groups := make([]model.ThemeGroup, 0, len(keys))
	for _, key := range keys {
		themes, ok := c.tables.IssueThemes(key)
		if !ok || len(themes) == 0 {
			continue
		}
		groups = append(groups, model.ThemeGroup{Issue: key, Themes: themes})
	}
	return groups, nil
}

// Prompt builds the classification prompt listing every category key
func (c *IssueClassifier) Prompt(text string) string {
	return fmt.Sprintf(`Given the user query: "%s"
And the following available high-level issue categories: %s

Which of these issue categories are MOST relevant to the user query?
Consider the primary subject and any specific aspects mentioned.
Return the smallest comma-separated list of the most CENTRAL and DOMINANT category keys from the provided list.
For example, for "German energy policy", relevant categories might be "energy, partypolitics, internationalrelations".
For "Impact of new tariffs on US steel imports", relevant categories might be "trade, domesticeconomy".
Output only the comma-separated keys. If no categories seem relevant, output '%s'.`,
		text, strings.Join(c.tables.IssueKeys(), ", "), NoCategoryMatch)
}

// ParseIssueKeys keeps the reply tokens that are known keys, in reply order.
// Unknown tokens are dropped. Keys may come back with "_" in place of "/".
func ParseIssueKeys(reply string, known []string) []string {
	if strings.Contains(strings.ToUpper(reply), NoCategoryMatch) {
		return nil
	}

	index := make(map[string]string, len(known)*2)
	for _, k := range known {
		norm := normalizeIssueKey(k)
		index[norm] = k
		index[strings.ReplaceAll(norm, "/", "_")] = k
	}

	var keys []string
	seen := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(reply, func(r rune) bool { return r == ',' || r == '\n' }) {
		key, ok := index[normalizeIssueKey(tok)]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

func normalizeIssueKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Trim(s, `"'.*- `)
}
