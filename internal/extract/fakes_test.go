package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/llm"
	"github.com/ppiankov/factsift/internal/refdata"
)

func testTables(t *testing.T) *refdata.Tables {
	t.Helper()
	tables, err := refdata.Default()
	require.NoError(t, err)
	return tables
}

type fakeRecognizer struct {
	mentions []Mention
	err      error
}

func (f fakeRecognizer) Recognize(string) ([]Mention, error) {
	return f.mentions, f.err
}

// echoRecognizer reports its whole input as one organization
type echoRecognizer struct{}

func (echoRecognizer) Recognize(text string) ([]Mention, error) {
	return []Mention{{Text: text, Label: "ORGANIZATION"}}, nil
}

// cannedProvider answers every prompt with the same reply
type cannedProvider struct {
	reply   string
	err     error
	prompts []string
}

func (p *cannedProvider) Name() string                     { return "canned" }
func (p *cannedProvider) IsAvailable(context.Context) bool { return true }
func (p *cannedProvider) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.prompts = append(p.prompts, req.Prompt)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Text: p.reply}, nil
}

var errModelDown = errors.New("model unavailable")
