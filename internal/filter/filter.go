// Package filter renders extracted entities and themes into a boolean
// expression over the GKG columns, used verbatim as a WHERE clause.
package filter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
)

// AlwaysTrue is the placeholder for an empty side of the expression
const AlwaysTrue = "1=1"

// Mode controls how theme groups combine
type Mode int

const (
	// Strict requires a hit in every matched theme group
	Strict Mode = iota
	// Loose accepts a hit in any theme group
	Loose
)

func (m Mode) String() string {
	if m == Loose {
		return "loose"
	}
	return "strict"
}

// Options selects the rendering policy
type Options struct {
	Strategy        model.ThemeStrategy
	Mode            Mode
	ExcludedSources []string
}

// Expression is a rendered filter
type Expression struct {
	SQL string
	// Unfiltered is set when neither entities nor themes constrained the
	// expression; the caller is looking at a full scan.
	Unfiltered bool
}

func (e Expression) String() string {
	return e.SQL
}

// Builder renders filter expressions
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a builder
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logging.OrNop(logger)}
}

// Build renders entities and themes. Entity categories are AND'ed, values
// within a category OR'ed; theme groups follow opts.Mode.
func (b *Builder) Build(entities model.EntitySet, themes model.ThemeSelection, opts Options) Expression {
	entityPart := b.entityClause(entities, opts.Strategy)
	themePart := themeClause(themes, opts.Mode)

	var sql string
	switch {
	case entityPart != AlwaysTrue && themePart != AlwaysTrue:
		sql = "(" + entityPart + ") AND (" + themePart + ")"
	case entityPart != AlwaysTrue:
		sql = entityPart
	case themePart != AlwaysTrue:
		sql = themePart
	default:
		sql = AlwaysTrue
	}

	expr := Expression{SQL: sql, Unfiltered: sql == AlwaysTrue}
	if expr.Unfiltered {
		b.logger.Warn("no entity or theme constraints, filter is always true")
	}

	if excl := excludedSourcesClause(opts.ExcludedSources); excl != "" {
		if expr.Unfiltered {
			expr.SQL = excl
		} else {
			expr.SQL = "(" + expr.SQL + ") AND " + excl
		}
	}

	b.logger.Debug("filter built",
		zap.String("mode", opts.Mode.String()),
		zap.String("strategy", string(opts.Strategy)),
		zap.String("filter", expr.SQL))
	return expr
}

func (b *Builder) entityClause(entities model.EntitySet, strategy model.ThemeStrategy) string {
	var groups []string
	for _, category := range model.Categories() {
		column := category.Column()

		var likes []string
		for _, ent := range entities[category] {
			if category == model.CategoryLocation && ent.Code != "" {
				likes = append(likes, locationCodeCheck(ent.Code, strategy))
				continue
			}
			for _, v := range ent.MatchValues() {
				likes = append(likes, column+" LIKE "+Quote(Contains(v)))
			}
		}
		if len(likes) > 0 {
			groups = append(groups, "("+strings.Join(likes, " OR ")+")")
		}
	}

	if len(groups) == 0 {
		return AlwaysTrue
	}
	return strings.Join(groups, " AND ")
}

// locationCodeCheck matches the FIPS code as the third '#' component of a
// V2Locations element (type#name#code#adm1#...). The direct strategy uses a
// cheaper substring form.
func locationCodeCheck(code string, strategy model.ThemeStrategy) string {
	if strategy == model.ThemeStrategyDirect {
		return "V2Locations LIKE " + Quote("%#"+code+"#%")
	}
	return "EXISTS (SELECT 1 FROM UNNEST(SPLIT(V2Locations, ';')) AS loc_item " +
		"WHERE TRIM(SPLIT(loc_item, '#')[SAFE_OFFSET(2)]) = " + Quote(code) + ")"
}

func themeClause(themes model.ThemeSelection, mode Mode) string {
	var groups []string

	for _, g := range themes.Groups {
		if len(g.Themes) > 0 {
			groups = append(groups, "("+joinThemes(g.Themes, " OR ")+")")
		}
	}

	// Direct strategy: core themes are all required, expanded ones are alternatives
	if len(themes.Core) > 0 {
		sep := " AND "
		if mode == Loose {
			sep = " OR "
		}
		groups = append(groups, "("+joinThemes(themes.Core, sep)+")")
	}
	if len(themes.Expanded) > 0 {
		groups = append(groups, "("+joinThemes(themes.Expanded, " OR ")+")")
	}

	if len(groups) == 0 {
		return AlwaysTrue
	}

	sep := " AND "
	if mode == Loose {
		sep = " OR "
	}
	return "(" + strings.Join(groups, sep) + ")"
}

func joinThemes(themes []string, sep string) string {
	likes := make([]string, 0, len(themes))
	for _, t := range themes {
		likes = append(likes, "V2Themes LIKE "+Quote("%"+t+"%"))
	}
	return strings.Join(likes, sep)
}

func excludedSourcesClause(sources []string) string {
	var quoted []string
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			quoted = append(quoted, Quote(s))
		}
	}
	if len(quoted) == 0 {
		return ""
	}
	return "SourceCommonName NOT IN (" + strings.Join(quoted, ", ") + ")"
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", " ",
	"\r", " ",
)

// Quote renders s as a single-quoted SQL string literal with backslash escapes
func Quote(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// Contains returns a LIKE pattern matching s anywhere in a column, with the
// wildcards inside s matching only themselves. Theme tags keep plain %TAG% patterns.
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Relax loosens a claim's constraints for the single fallback query: the
// organization category is dropped and at most one theme group survives.
// The caller pairs it with Loose mode.
func Relax(entities model.EntitySet, themes model.ThemeSelection) (model.EntitySet, model.ThemeSelection) {
	relaxed := model.ThemeSelection{}
	switch {
	case len(themes.Groups) > 0:
		relaxed.Groups = themes.Groups[:1]
	case len(themes.Core) > 0:
		relaxed.Core = themes.Core[:1]
	case len(themes.Expanded) > 0:
		relaxed.Expanded = themes.Expanded
	}
	return entities.Without(model.CategoryOrganization), relaxed
}
