package model

import "time"

// Outcome describes how processing of a claim ended
type Outcome string

const (
	OutcomeLabelled   Outcome = "labelled"    // Model answered and a label was parsed
	OutcomeUnparsed   Outcome = "unparseable" // Model answered but no label could be parsed
	OutcomeNoEvidence Outcome = "no_evidence" // Corpus, fetch or chunking yielded nothing to judge from
	OutcomeFailed     Outcome = "failed"      // An external service call failed
)

// ClaimResult is the audit record of one processed claim
type ClaimResult struct {
	ClaimID        string        `json:"id"`
	Statement      string        `json:"statement"`
	TrueLabel      Label         `json:"true_label,omitempty"`
	PredictedLabel Label         `json:"predicted_label"`
	Justification  string        `json:"justification,omitempty"`
	Outcome        Outcome       `json:"outcome"`
	Reason         string        `json:"reason,omitempty"` // Why the claim ended without a label
	TimeTaken      time.Duration `json:"time_taken"`

	// Audit trail
	Query      string      `json:"query,omitempty"`
	Filter     string      `json:"filter,omitempty"`
	Relaxed    bool        `json:"relaxed,omitempty"` // Whether the fallback filter was used
	Entities   EntitySet   `json:"entities,omitempty"`
	Candidates int         `json:"candidates"`
	Titles     int         `json:"titles"`
	Documents  int         `json:"documents"`
	Chunks     []TextChunk `json:"chunks,omitempty"` // Retrieved chunks given to the model
}
