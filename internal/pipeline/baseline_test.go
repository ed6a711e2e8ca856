package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/model"
)

func TestFormulateQuery(t *testing.T) {
	full := model.Claim{
		Statement: "Germany will phase out coal by 2030",
		Speaker:   "angela-merkel",
		Subject:   "energy,environment",
		Context:   "a press conference",
	}
	assert.Equal(t,
		`Gather information and evidence regarding this claim made by angela-merkel on the subject of energy,environment with the context of a press conference : "Germany will phase out coal by 2030"`,
		FormulateQuery(full))

	bare := model.Claim{Statement: " Germany will phase out coal by 2030 ", Speaker: "  "}
	assert.Equal(t,
		`Gather information and evidence regarding this claim : "Germany will phase out coal by 2030"`,
		FormulateQuery(bare))
}

func TestEntityText(t *testing.T) {
	full := model.Claim{
		Statement: "Germany will phase out coal by 2030",
		Speaker:   "angela-merkel",
		Subject:   "energy,environment",
		Context:   "a press conference",
	}
	assert.Equal(t, "Germany will phase out coal by 2030\nAngela Merkel\na press conference", EntityText(full))
	assert.NotContains(t, EntityText(full), "Gather")

	bare := model.Claim{Statement: " The United Nations approved the budget ", Speaker: " "}
	assert.Equal(t, "The United Nations approved the budget", EntityText(bare))
}

func TestBaselineChecker(t *testing.T) {
	tests := []struct {
		reply   string
		label   model.Label
		outcome model.Outcome
	}{
		{"mostly-true", model.LabelMostlyTrue, model.OutcomeLabelled},
		{"I would say this is pants-fire.", model.LabelPantsFire, model.OutcomeLabelled},
		{"Unsure.", model.LabelUnparseable, model.OutcomeUnparsed},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			provider := &cannedProvider{reply: tt.reply}
			checker := NewBaselineChecker(provider, nil)

			result, err := checker.Check(context.Background(), germanyClaim)
			require.NoError(t, err)
			assert.Equal(t, tt.label, result.PredictedLabel)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, tt.reply, result.Justification)
			assert.Equal(t, germanyClaim.Label, result.TrueLabel)

			require.Len(t, provider.prompts, 1)
			assert.Contains(t, provider.prompts[0], germanyClaim.Statement)
		})
	}
}

func TestBaselineCheckerFailure(t *testing.T) {
	checker := NewBaselineChecker(&cannedProvider{err: errors.New("model unavailable")}, nil)

	result, err := checker.Check(context.Background(), germanyClaim)
	require.Error(t, err)
	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, model.LabelUnparseable, result.PredictedLabel)
}
