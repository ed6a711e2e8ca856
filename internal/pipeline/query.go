package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/factsift/internal/model"
)

// FormulateQuery turns a claim into the question used for theme selection,
// embedding and the final prompt. Empty metadata fields are left out.
func FormulateQuery(claim model.Claim) string {
	parts := []string{"Gather information and evidence regarding this claim"}
	if s := strings.TrimSpace(claim.Speaker); s != "" {
		parts = append(parts, "made by "+s)
	}
	if s := strings.TrimSpace(claim.Subject); s != "" {
		parts = append(parts, "on the subject of "+s)
	}
	if s := strings.TrimSpace(claim.Context); s != "" {
		parts = append(parts, "with the context of "+s)
	}
	return strings.Join(parts, " ") + ` : "` + strings.TrimSpace(claim.Statement) + `"`
}

// EntityText is the text named entities are recognized in: the statement,
// the speaker and the context, one per line. The wording FormulateQuery adds
// around them is left out so it can never surface as an entity.
func EntityText(claim model.Claim) string {
	var lines []string
	if s := strings.TrimSpace(claim.Statement); s != "" {
		lines = append(lines, s)
	}
	if s := speakerName(claim.Speaker); s != "" {
		lines = append(lines, s)
	}
	if s := strings.TrimSpace(claim.Context); s != "" {
		lines = append(lines, s)
	}
	return strings.Join(lines, "\n")
}

// speakerName turns a dataset slug like "barack-obama" into "Barack Obama"
func speakerName(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
