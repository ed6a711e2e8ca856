package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/model"
)

func newTestExtractor(t *testing.T, mentions ...Mention) *EntityExtractor {
	return NewEntityExtractor(fakeRecognizer{mentions: mentions}, testTables(t), nil)
}

func TestExtractMapsLocationsToCodes(t *testing.T) {
	e := newTestExtractor(t,
		Mention{Text: "Germany", Label: "GPE"},
		Mention{Text: "Springfield", Label: "GPE"},
		Mention{Text: "Germany", Label: "GPE"},
	)

	set, err := e.Extract("ignored")
	require.NoError(t, err)

	locs := set[model.CategoryLocation]
	require.Len(t, locs, 2, "duplicate (text, code) pairs collapse")
	assert.Equal(t, "GM", locs[0].Code)
	assert.Equal(t, "Springfield", locs[1].Text)
	assert.Empty(t, locs[1].Code, "unmapped location keeps its raw text")
}

func TestExtractDropsUnmappedLabels(t *testing.T) {
	e := newTestExtractor(t,
		Mention{Text: "2030", Label: "DATE"},
		Mention{Text: "Acme Corp", Label: "ORGANIZATION"},
		Mention{Text: "Globex", Label: "ORG"},
	)

	set, err := e.Extract("ignored")
	require.NoError(t, err)
	assert.Equal(t, 2, set.Count())
	orgs := set[model.CategoryOrganization]
	require.Len(t, orgs, 2)
	assert.Equal(t, "Acme Corp", orgs[0].Text)
	assert.Equal(t, "Globex", orgs[1].Text)
}

func TestExtractWithProseRecognizer(t *testing.T) {
	e := NewEntityExtractor(NewProseRecognizer(), testTables(t), nil)

	set, err := e.Extract("The United Nations approved the budget")
	require.NoError(t, err)

	orgs := set[model.CategoryOrganization]
	require.Len(t, orgs, 1, "%v", set)
	assert.Equal(t, "United Nations", orgs[0].Text)
	assert.Empty(t, set[model.CategoryLocation])
}

func TestExtractCompoundGeoOrganization(t *testing.T) {
	e := newTestExtractor(t,
		Mention{Text: "United States and China Relations", Label: "ORGANIZATION"},
		Mention{Text: "India-Pakistan", Label: "ORGANIZATION"},
		Mention{Text: "Guinea-Bissau", Label: "ORGANIZATION"},
		Mention{Text: "Oxford and Cambridge", Label: "ORGANIZATION"},
	)

	set, err := e.Extract("ignored")
	require.NoError(t, err)

	var codes []string
	for _, l := range set[model.CategoryLocation] {
		codes = append(codes, l.Code)
	}
	assert.Equal(t, []string{"US", "CH", "IN", "PK", "PU"}, codes)

	orgs := set[model.CategoryOrganization]
	require.Len(t, orgs, 1, "decomposed organizations are not also kept as organizations")
	assert.Equal(t, "Oxford and Cambridge", orgs[0].Text)
}

func TestExtractPersonVariants(t *testing.T) {
	e := newTestExtractor(t, Mention{Text: "Barack Obama", Label: "PERSON"})

	set, err := e.Extract("ignored")
	require.NoError(t, err)

	persons := set[model.CategoryPerson]
	require.Len(t, persons, 1)
	assert.Equal(t, []string{"Barack Obama", "Obama", "Barack"}, persons[0].MatchValues())
}

func TestExtractPropagatesRecognizerError(t *testing.T) {
	e := NewEntityExtractor(fakeRecognizer{err: errors.New("boom")}, testTables(t), nil)
	_, err := e.Extract("x")
	assert.Error(t, err)
}

func TestNameVariants(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Obama", []string{"Obama"}},
		{"J. Smith", []string{"J. Smith", "Smith"}},
		{"Nancy  Pelosi", []string{"Nancy Pelosi", "Pelosi", "Nancy"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameVariants(tt.in), tt.in)
	}
}
