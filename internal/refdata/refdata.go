// Package refdata holds the static lookup tables used to translate claims into
// GKG filters: country names to FIPS codes, issue categories to theme tags and
// the curated theme list. Tables are embedded, parsed once and never mutated.
package refdata

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

//go:embed issues.yaml
var issuesYAML []byte

//go:embed themes.yaml
var themesYAML []byte

// Tables is the immutable set of reference tables
type Tables struct {
	countries map[string]string
	issues    map[string][]string
	issueKeys []string // File order, used when listing categories to the model
	curated   []string
	curatedIx map[string]bool
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the embedded tables, parsing them on first use
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = Parse(countriesYAML, issuesYAML, themesYAML)
	})
	return defaultTables, defaultErr
}

// Parse builds tables from YAML documents
func Parse(countries, issues, themes []byte) (*Tables, error) {
	t := &Tables{
		countries: make(map[string]string),
		issues:    make(map[string][]string),
		curatedIx: make(map[string]bool),
	}

	var rawCountries map[string]string
	if err := yaml.Unmarshal(countries, &rawCountries); err != nil {
		return nil, fmt.Errorf("parse countries: %w", err)
	}
	for name, code := range rawCountries {
		t.countries[normalizeName(name)] = strings.ToUpper(strings.TrimSpace(code))
	}

	// Decode through a node to keep category order stable
	var doc yaml.Node
	if err := yaml.Unmarshal(issues, &doc); err != nil {
		return nil, fmt.Errorf("parse issues: %w", err)
	}
	if len(doc.Content) == 1 && doc.Content[0].Kind == yaml.MappingNode {
		m := doc.Content[0]
		for i := 0; i+1 < len(m.Content); i += 2 {
			key := strings.ToLower(strings.TrimSpace(m.Content[i].Value))
			var themeList []string
			if err := m.Content[i+1].Decode(&themeList); err != nil {
				return nil, fmt.Errorf("parse issue %q: %w", key, err)
			}
			t.issues[key] = cleanThemes(themeList)
			t.issueKeys = append(t.issueKeys, key)
		}
	}

	var rawThemes []string
	if err := yaml.Unmarshal(themes, &rawThemes); err != nil {
		return nil, fmt.Errorf("parse themes: %w", err)
	}
	for _, theme := range cleanThemes(rawThemes) {
		if !t.curatedIx[theme] {
			t.curatedIx[theme] = true
			t.curated = append(t.curated, theme)
		}
	}

	return t, nil
}

// CountryCode returns the FIPS code for a country name, case-insensitively
func (t *Tables) CountryCode(name string) (string, bool) {
	code, ok := t.countries[normalizeName(name)]
	return code, ok
}

// countryNames returns all known country names (upper case)
func (t *Tables) countryNames() []string {
	names := make([]string, 0, len(t.countries))
	for name := range t.countries {
		names = append(names, name)
	}
	return names
}

// IssueKeys returns the issue categories in table order
func (t *Tables) IssueKeys() []string {
	return append([]string(nil), t.issueKeys...)
}

// IssueThemes returns the theme tags of an issue category
func (t *Tables) IssueThemes(key string) ([]string, bool) {
	themes, ok := t.issues[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return nil, false
	}
	return append([]string(nil), themes...), true
}

// CuratedThemes returns the curated theme list
func (t *Tables) CuratedThemes() []string {
	return append([]string(nil), t.curated...)
}

// IsCuratedTheme reports whether a theme is on the curated list
func (t *Tables) IsCuratedTheme(theme string) bool {
	return t.curatedIx[strings.ToUpper(strings.TrimSpace(theme))]
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

func cleanThemes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, theme := range in {
		if theme = strings.ToUpper(strings.TrimSpace(theme)); theme != "" {
			out = append(out, theme)
		}
	}
	return out
}
