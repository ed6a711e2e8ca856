package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/model"
)

// literals returns the decoded string literals of sql and whether every
// literal was closed
func literals(sql string) ([]string, bool) {
	var (
		out     []string
		cur     strings.Builder
		inside  bool
		escaped bool
	)
	for _, r := range sql {
		switch {
		case !inside && r == '\'':
			inside = true
			cur.Reset()
		case inside && escaped:
			cur.WriteRune(r)
			escaped = false
		case inside && r == '\\':
			escaped = true
		case inside && r == '\'':
			inside = false
			out = append(out, cur.String())
		case inside:
			cur.WriteRune(r)
		}
	}
	return out, !inside
}

func balancedParens(sql string) bool {
	depth := 0
	lits, _ := literals(sql)
	stripped := sql
	for _, l := range lits {
		stripped = strings.Replace(stripped, Quote(l), "''", 1)
	}
	for _, r := range stripped {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func germanyCoal() (model.EntitySet, model.ThemeSelection) {
	entities := model.EntitySet{
		model.CategoryLocation: {{Text: "Germany", Category: model.CategoryLocation, Code: "GM"}},
	}
	themes := model.ThemeSelection{Groups: []model.ThemeGroup{
		{Issue: "energy", Themes: []string{"ENV_COAL", "ENV_SOLAR"}},
		{Issue: "environment", Themes: []string{"ENV_CLIMATECHANGE"}},
	}}
	return entities, themes
}

func TestBuildStrictIssues(t *testing.T) {
	entities, themes := germanyCoal()
	expr := NewBuilder(nil).Build(entities, themes, Options{Strategy: model.ThemeStrategyIssues, Mode: Strict})

	want := "((EXISTS (SELECT 1 FROM UNNEST(SPLIT(V2Locations, ';')) AS loc_item WHERE TRIM(SPLIT(loc_item, '#')[SAFE_OFFSET(2)]) = 'GM'))) AND " +
		"(((V2Themes LIKE '%ENV_COAL%' OR V2Themes LIKE '%ENV_SOLAR%') AND (V2Themes LIKE '%ENV_CLIMATECHANGE%')))"
	assert.Equal(t, want, expr.SQL)
	assert.False(t, expr.Unfiltered)
	assert.True(t, balancedParens(expr.SQL))
}

func TestBuildLooseOrsThemeGroups(t *testing.T) {
	entities, themes := germanyCoal()
	expr := NewBuilder(nil).Build(entities, themes, Options{Strategy: model.ThemeStrategyIssues, Mode: Loose})

	assert.Contains(t, expr.SQL, "(V2Themes LIKE '%ENV_COAL%' OR V2Themes LIKE '%ENV_SOLAR%') OR (V2Themes LIKE '%ENV_CLIMATECHANGE%')")
}

func TestBuildEnergyScenarioContainsCoal(t *testing.T) {
	themes := model.ThemeSelection{Groups: []model.ThemeGroup{{Issue: "energy", Themes: []string{"ENV_BIOFUEL", "ENV_COAL"}}}}
	expr := NewBuilder(nil).Build(nil, themes, Options{Strategy: model.ThemeStrategyIssues})

	assert.Equal(t, "((V2Themes LIKE '%ENV_BIOFUEL%' OR V2Themes LIKE '%ENV_COAL%'))", expr.SQL)
	assert.Contains(t, expr.SQL, "V2Themes LIKE '%ENV_COAL%'")
}

func TestBuildEntityCategories(t *testing.T) {
	entities := model.EntitySet{
		model.CategoryPerson: {{Text: "Barack Obama", Category: model.CategoryPerson, Variants: []string{"Barack Obama", "Obama"}}},
		model.CategoryLocation: {
			{Text: "Springfield", Category: model.CategoryLocation},
			{Text: "Germany", Category: model.CategoryLocation, Code: "GM"},
		},
		model.CategoryOrganization: {{Text: "NATO", Category: model.CategoryOrganization}},
	}
	expr := NewBuilder(nil).Build(entities, model.ThemeSelection{}, Options{Strategy: model.ThemeStrategyDirect})

	want := "(V2Persons LIKE '%Barack Obama%' OR V2Persons LIKE '%Obama%') AND " +
		"(V2Locations LIKE '%Springfield%' OR V2Locations LIKE '%#GM#%') AND " +
		"(V2Organizations LIKE '%NATO%')"
	assert.Equal(t, want, expr.SQL)
}

func TestBuildDirectThemes(t *testing.T) {
	themes := model.ThemeSelection{Core: []string{"ENV_COAL", "ECON_TAXATION"}, Expanded: []string{"ENV_COALMINE"}}

	strict := NewBuilder(nil).Build(nil, themes, Options{Strategy: model.ThemeStrategyDirect, Mode: Strict})
	assert.Equal(t, "((V2Themes LIKE '%ENV_COAL%' AND V2Themes LIKE '%ECON_TAXATION%') AND (V2Themes LIKE '%ENV_COALMINE%'))", strict.SQL)

	single := NewBuilder(nil).Build(nil, model.ThemeSelection{Core: []string{"ENV_COAL"}}, Options{Strategy: model.ThemeStrategyDirect})
	assert.Equal(t, "((V2Themes LIKE '%ENV_COAL%'))", single.SQL)
}

func TestBuildEmptyIsAlwaysTrue(t *testing.T) {
	expr := NewBuilder(nil).Build(model.EntitySet{}, model.ThemeSelection{}, Options{})
	assert.Equal(t, AlwaysTrue, expr.SQL)
	assert.True(t, expr.Unfiltered)

	expr = NewBuilder(nil).Build(nil, model.ThemeSelection{}, Options{ExcludedSources: []string{"example.com"}})
	assert.True(t, expr.Unfiltered)
	assert.Equal(t, "SourceCommonName NOT IN ('example.com')", expr.SQL)
}

func TestBuildExcludedSources(t *testing.T) {
	entities, themes := germanyCoal()
	expr := NewBuilder(nil).Build(entities, themes, Options{
		Strategy:        model.ThemeStrategyIssues,
		ExcludedSources: []string{"satire.example", " ", "o'reilly.example"},
	})
	assert.True(t, strings.HasSuffix(expr.SQL, ") AND SourceCommonName NOT IN ('satire.example', 'o\\'reilly.example')"))
}

func TestBuildEscapesHostileInput(t *testing.T) {
	hostile := []string{
		"O'Brien",
		"x') OR 1=1 --",
		`back\slash'`,
		"'",
		`\'`,
		"multi\nline",
	}
	for _, h := range hostile {
		entities := model.EntitySet{
			model.CategoryOrganization: {{Text: h, Category: model.CategoryOrganization}},
			model.CategoryLocation:     {{Text: h, Category: model.CategoryLocation}},
		}
		expr := NewBuilder(nil).Build(entities, model.ThemeSelection{}, Options{Strategy: model.ThemeStrategyIssues})

		lits, closed := literals(expr.SQL)
		require.True(t, closed, "unterminated literal for %q: %s", h, expr.SQL)
		require.Len(t, lits, 2, "input must stay inside its literals: %s", expr.SQL)
		want := Contains(strings.ReplaceAll(h, "\n", " "))
		assert.Equal(t, want, lits[0])
		assert.Equal(t, want, lits[1])
		assert.True(t, balancedParens(expr.SQL), expr.SQL)
	}
}

func TestBuildEscapesLikeWildcards(t *testing.T) {
	entities := model.EntitySet{
		model.CategoryOrganization: {{Text: "100% Fed_Up", Category: model.CategoryOrganization}},
	}
	expr := NewBuilder(nil).Build(entities, model.ThemeSelection{}, Options{Strategy: model.ThemeStrategyIssues})

	assert.Equal(t, `(V2Organizations LIKE '%100\\% Fed\\_Up%')`, expr.SQL)

	lits, closed := literals(expr.SQL)
	require.True(t, closed)
	assert.Equal(t, []string{`%100\% Fed\_Up%`}, lits)
}

func TestContains(t *testing.T) {
	assert.Equal(t, "%Obama%", Contains("Obama"))
	assert.Equal(t, `%a\%b\_c\\d%`, Contains(`a%b_c\d`))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'it\'s'`, Quote("it's"))
	assert.Equal(t, `'a\\b'`, Quote(`a\b`))
}

func TestRelax(t *testing.T) {
	entities := model.EntitySet{
		model.CategoryOrganization: {{Text: "NATO", Category: model.CategoryOrganization}},
		model.CategoryPerson:       {{Text: "Merkel", Category: model.CategoryPerson}},
	}
	_, themes := germanyCoal()

	relEntities, relThemes := Relax(entities, themes)
	assert.NotContains(t, relEntities, model.CategoryOrganization)
	assert.Len(t, relEntities[model.CategoryPerson], 1)
	require.Len(t, relThemes.Groups, 1)
	assert.Equal(t, "energy", relThemes.Groups[0].Issue)

	// original untouched
	assert.Len(t, entities[model.CategoryOrganization], 1)
	assert.Len(t, themes.Groups, 2)

	_, direct := Relax(nil, model.ThemeSelection{Core: []string{"A", "B"}, Expanded: []string{"C"}})
	assert.Equal(t, []string{"A"}, direct.Core)
	assert.Empty(t, direct.Expanded)
}
