// Package answer builds generation prompts and recovers labels from the
// model's free-text replies.
package answer

import (
	"fmt"
	"strings"

	"github.com/ppiankov/factsift/internal/model"
)

// NoContext replaces the snippet list when nothing was retrieved
const NoContext = "No relevant information was found in the available documents.\n"

// BuildPrompt renders the retrieved chunks as numbered, attributed snippets
// followed by the question and the answering rules
func BuildPrompt(question string, chunks []model.TextChunk) string {
	var b strings.Builder

	if len(chunks) == 0 {
		b.WriteString(NoContext)
	} else {
		b.WriteString("Based ONLY on the following snippets:\n\n")
		for i, c := range chunks {
			fmt.Fprintf(&b, "--- Snippet %d ---\n", i+1)
			fmt.Fprintf(&b, "Source: %s (%s)\n", c.SourceTitle, c.SourceURL)
			fmt.Fprintf(&b, "Date: %s\n", c.SourceDate)
			fmt.Fprintf(&b, "Content Snippet:\n%s\n\n", c.Text)
		}
	}

	b.WriteString("--- End of Snippets ---\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Instruction: You are a critical news analyst. Answer the question above based ONLY on the information " +
		"contained in the 'Content Snippet' sections provided. Synthesize the information accurately and concisely. " +
		"Do not add information beyond what is provided in the snippets. If the snippets provide sufficient information, " +
		"answer the question directly. If the snippets do not contain enough information to answer the question fully, " +
		"state that the provided context is insufficient or doesn't contain the answer.\n\n")
	b.WriteString("IMPORTANT NOTE: When referring to any information, also provide the source. It should be noted like so: " +
		"(Source - Chunk [insert number here]: [chunk title] [chunk url]).\n")
	fmt.Fprintf(&b, "CRUCIAL: Write your reasoning after \"Justification:\" and end the answer with an evaluation, "+
		"like so \"Label: [evaluation]\". The available labels are: %s.\n", quotedLabels())
	b.WriteString("Answer:")

	return b.String()
}

// BuildBaselinePrompt asks for a label from the claim alone, with no retrieved context
func BuildBaselinePrompt(claim model.Claim) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Please classify the following statement: %q.", claim.Statement)
	if claim.Speaker != "" {
		fmt.Fprintf(&b, " The statement was made by %s.", claim.Speaker)
	}
	if claim.Subject != "" {
		fmt.Fprintf(&b, " It concerns the subject of %s.", claim.Subject)
	}
	if claim.Context != "" {
		fmt.Fprintf(&b, " Additional context: %s.", claim.Context)
	}

	b.WriteString("\nBased on the information, your task is to determine the veracity of the statement. ")
	fmt.Fprintf(&b, "CRUCIAL: Respond with ONLY one of the following labels: %s.\nLabel:", quotedLabels())

	return b.String()
}

func quotedLabels() string {
	labels := model.Labels()
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = `"` + string(l) + `"`
	}
	return strings.Join(quoted, ", ")
}
