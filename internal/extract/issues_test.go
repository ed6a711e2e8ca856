package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIssueKeys(t *testing.T) {
	known := []string{"energy", "trade", "immigration/refugees", "media/internet"}

	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"exact", "energy, trade", []string{"energy", "trade"}},
		{"case and whitespace", "  Energy ,TRADE\n", []string{"energy", "trade"}},
		{"hallucinated keys dropped", "energy, astrology, climate", []string{"energy"}},
		{"slash keys", "immigration/refugees, media_internet", []string{"immigration/refugees", "media/internet"}},
		{"duplicates", "trade, trade", []string{"trade"}},
		{"sentinel", "NO_CATEGORY_MATCH", nil},
		{"sentinel mixed case", "no_category_match.", nil},
		{"quoted", `"energy"`, []string{"energy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIssueKeys(tt.reply, known))
		})
	}
}

func TestClassifyExpandsToThemes(t *testing.T) {
	provider := &cannedProvider{reply: "energy"}
	c := NewIssueClassifier(provider, testTables(t), nil)

	groups, err := c.Classify(context.Background(), "Germany will phase out coal by 2030")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "energy", groups[0].Issue)
	assert.Contains(t, groups[0].Themes, "ENV_COAL")

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Germany will phase out coal by 2030")
	assert.Contains(t, provider.prompts[0], "immigration/refugees")
	assert.Contains(t, provider.prompts[0], NoCategoryMatch)
}

func TestClassifyModelError(t *testing.T) {
	c := NewIssueClassifier(&cannedProvider{err: errModelDown}, testTables(t), nil)
	_, err := c.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, errModelDown)
}
