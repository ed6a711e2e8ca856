package extract

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// Mention is one named entity span produced by a recognizer
type Mention struct {
	Text  string
	Label string // PERSON, GPE, ORGANIZATION, ...
}

// Recognizer finds named entities in text
type Recognizer interface {
	Recognize(text string) ([]Mention, error)
}

// ProseRecognizer runs the prose averaged-perceptron NER model
type ProseRecognizer struct{}

// NewProseRecognizer returns a recognizer backed by prose
func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

// Recognize implements Recognizer
func (ProseRecognizer) Recognize(text string) ([]Mention, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(true))
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}

	var mentions []Mention
	for _, ent := range doc.Entities() {
		if t := strings.TrimSpace(ent.Text); t != "" {
			mentions = append(mentions, Mention{Text: t, Label: ent.Label})
		}
	}
	return mentions, nil
}
