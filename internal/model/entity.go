package model

// Category classifies an extracted entity and selects the corpus column it filters
type Category string

const (
	CategoryPerson       Category = "person"
	CategoryLocation     Category = "location"
	CategoryOrganization Category = "organization"
)

// Categories returns the entity categories in filter order
func Categories() []Category {
	return []Category{CategoryPerson, CategoryLocation, CategoryOrganization}
}

// Column returns the GKG column holding values of this category
func (c Category) Column() string {
	switch c {
	case CategoryPerson:
		return "V2Persons"
	case CategoryLocation:
		return "V2Locations"
	case CategoryOrganization:
		return "V2Organizations"
	default:
		return ""
	}
}

// ExtractedEntity is a named entity recognized in a claim
type ExtractedEntity struct {
	Text     string   `json:"text"`               // Surface text as recognized
	Category Category `json:"category"`           // person, location, organization
	Code     string   `json:"code,omitempty"`     // FIPS country code (locations only, empty if unmapped)
	Variants []string `json:"variants,omitempty"` // Name variants (persons only)
}

// MatchValues returns the strings used for substring matching against the corpus
func (e ExtractedEntity) MatchValues() []string {
	if len(e.Variants) > 0 {
		return e.Variants
	}
	return []string{e.Text}
}

// EntitySet groups extracted entities by category
type EntitySet map[Category][]ExtractedEntity

// IsEmpty reports whether no category holds an entity
func (s EntitySet) IsEmpty() bool {
	for _, ents := range s {
		if len(ents) > 0 {
			return false
		}
	}
	return true
}

// Count returns the total number of entities across categories
func (s EntitySet) Count() int {
	n := 0
	for _, ents := range s {
		n += len(ents)
	}
	return n
}

// Without returns a copy of the set with the given category removed
func (s EntitySet) Without(c Category) EntitySet {
	out := make(EntitySet, len(s))
	for cat, ents := range s {
		if cat == c {
			continue
		}
		out[cat] = append([]ExtractedEntity(nil), ents...)
	}
	return out
}

// ThemeGroup is a set of raw GKG theme tags matched for one issue category
type ThemeGroup struct {
	Issue  string   `json:"issue"`
	Themes []string `json:"themes"`
}

// ThemeSelection is the theme side of a claim analysis.
// Issue-based analysis fills Groups; direct analysis fills Core and Expanded.
type ThemeSelection struct {
	Groups   []ThemeGroup `json:"groups,omitempty"`
	Core     []string     `json:"core,omitempty"`
	Expanded []string     `json:"expanded,omitempty"`
}

// IsEmpty reports whether no theme constraint was derived
func (t ThemeSelection) IsEmpty() bool {
	for _, g := range t.Groups {
		if len(g.Themes) > 0 {
			return false
		}
	}
	return len(t.Core) == 0 && len(t.Expanded) == 0
}
