package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/refdata"
)

// labelCategory is the closed NER-label to category dispatch. Labels absent here are dropped.
// prose tags organizations as ORGANIZATION; the short forms come from other taggers.
var labelCategory = map[string]model.Category{
	"PERSON":       model.CategoryPerson,
	"GPE":          model.CategoryLocation,
	"LOC":          model.CategoryLocation,
	"LOCATION":     model.CategoryLocation,
	"ORG":          model.CategoryOrganization,
	"ORGANIZATION": model.CategoryOrganization,
}

// compoundSplit separates the two halves of names like "India-Pakistan" or "US and China Relations"
var compoundSplit = regexp.MustCompile(`(?i)\s+and\s+|\s*&\s*|\s*-\s*`)

// EntityExtractor turns NER output into filterable entities
type EntityExtractor struct {
	ner    Recognizer
	tables *refdata.Tables
	logger *zap.Logger
}

// NewEntityExtractor creates an extractor
func NewEntityExtractor(ner Recognizer, tables *refdata.Tables, logger *zap.Logger) *EntityExtractor {
	return &EntityExtractor{ner: ner, tables: tables, logger: logging.OrNop(logger)}
}

// Extract recognizes entities in text and groups them by category
func (e *EntityExtractor) Extract(text string) (model.EntitySet, error) {
	mentions, err := e.ner.Recognize(text)
	if err != nil {
		return nil, err
	}

	set := make(model.EntitySet)
	seenLoc := make(map[[2]string]bool)
	seenOther := make(map[string]bool)

	addLocation := func(ent model.ExtractedEntity) {
		key := [2]string{ent.Text, ent.Code}
		if ent.Code == "" {
			key[1] = ent.Text
		}
		if seenLoc[key] {
			return
		}
		seenLoc[key] = true
		set[model.CategoryLocation] = append(set[model.CategoryLocation], ent)
	}

	for _, m := range mentions {
		category, ok := labelCategory[strings.ToUpper(m.Label)]
		if !ok {
			continue
		}

		switch category {
		case model.CategoryLocation:
			addLocation(e.location(m.Text))

		case model.CategoryOrganization:
			if parts, ok := e.compoundGeo(m.Text); ok {
				e.logger.Debug("organization decomposed into locations",
					zap.String("org", m.Text), zap.Int("parts", len(parts)))
				for _, p := range parts {
					addLocation(p)
				}
				continue
			}
			if !seenOther["o:"+m.Text] {
				seenOther["o:"+m.Text] = true
				set[category] = append(set[category], model.ExtractedEntity{Text: m.Text, Category: category})
			}

		case model.CategoryPerson:
			if !seenOther["p:"+m.Text] {
				seenOther["p:"+m.Text] = true
				set[category] = append(set[category], model.ExtractedEntity{
					Text:     m.Text,
					Category: category,
					Variants: NameVariants(m.Text),
				})
			}
		}
	}

	e.logger.Debug("entities extracted",
		zap.Int("persons", len(set[model.CategoryPerson])),
		zap.Int("locations", len(set[model.CategoryLocation])),
		zap.Int("organizations", len(set[model.CategoryOrganization])))

	return set, nil
}

func (e *EntityExtractor) location(text string) model.ExtractedEntity {
	ent := model.ExtractedEntity{Text: text, Category: model.CategoryLocation}
	if code, ok := e.tables.CountryCode(text); ok {
		ent.Code = code
	} else if code, ok := e.tables.CountryCode(strings.TrimPrefix(strings.ToUpper(text), "THE ")); ok {
		ent.Code = code
	}
	return ent
}

// compoundGeo resolves an organization name into two locations when both halves
// of a compound name are countries. A trailing qualifier like "Relations" is ignored.
func (e *EntityExtractor) compoundGeo(text string) ([]model.ExtractedEntity, bool) {
	// "Guinea-Bissau" is one country, not two
	if whole := e.matchCountryPrefix(text, false); whole != nil {
		return []model.ExtractedEntity{*whole}, true
	}

	parts := compoundSplit.Split(strings.TrimSpace(text), 2)
	if len(parts) != 2 {
		return nil, false
	}

	left := e.matchCountryPrefix(parts[0], false)
	right := e.matchCountryPrefix(parts[1], true)
	if left == nil || right == nil {
		return nil, false
	}
	return []model.ExtractedEntity{*left, *right}, true
}

// matchCountryPrefix finds the longest run of words that names a country.
// The left half must match as a whole (minus a leading "the"); the right half
// may carry trailing words.
func (e *EntityExtractor) matchCountryPrefix(s string, allowTrailing bool) *model.ExtractedEntity {
	words := strings.Fields(s)
	if len(words) > 0 && strings.EqualFold(words[0], "the") {
		words = words[1:]
	}
	if len(words) == 0 {
		return nil
	}

	minLen := len(words)
	if allowTrailing {
		minLen = 1
	}
	for n := len(words); n >= minLen; n-- {
		name := strings.Join(words[:n], " ")
		if code, ok := e.tables.CountryCode(name); ok {
			return &model.ExtractedEntity{Text: name, Category: model.CategoryLocation, Code: code}
		}
	}
	return nil
}

// NameVariants returns the full name, the last token and, unless it is an
// initial, the first token. Duplicates are removed preserving order.
func NameVariants(name string) []string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil
	}

	variants := []string{name}
	tokens := strings.Fields(name)
	if len(tokens) > 1 {
		variants = append(variants, tokens[len(tokens)-1])
		if first := tokens[0]; !isInitial(first) {
			variants = append(variants, first)
		}
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func isInitial(token string) bool {
	t := strings.TrimSuffix(token, ".")
	return len([]rune(t)) <= 1
}
