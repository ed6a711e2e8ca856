package model

import "strings"

// Claim is a labelled statement from the LIAR dataset
type Claim struct {
	ID        string `json:"id"`
	Label     Label  `json:"label,omitempty"` // Ground truth, evaluation only
	Statement string `json:"statement"`
	Subject   string `json:"subject,omitempty"`
	Speaker   string `json:"speaker,omitempty"`
	JobTitle  string `json:"job_title,omitempty"`
	State     string `json:"state,omitempty"`
	Party     string `json:"party,omitempty"`
	Context   string `json:"context,omitempty"`

	// Historical truthfulness counters of the speaker
	BarelyTrueCount int `json:"barely_true_count,omitempty"`
	FalseCount      int `json:"false_count,omitempty"`
	HalfTrueCount   int `json:"half_true_count,omitempty"`
	MostlyTrueCount int `json:"mostly_true_count,omitempty"`
	PantsFireCount  int `json:"pants_fire_count,omitempty"`
}

// Label is a veracity rating on the six-point LIAR scale
type Label string

const (
	LabelTrue        Label = "true"
	LabelMostlyTrue  Label = "mostly-true"
	LabelHalfTrue    Label = "half-true"
	LabelBarelyTrue  Label = "barely-true"
	LabelFalse       Label = "false"
	LabelPantsFire   Label = "pants-fire"
	LabelUnparseable Label = "N/A_PARSE_ERROR" // No label could be recovered from the model answer
)

// Labels returns the six substantive labels in parse priority order
func Labels() []Label {
	return []Label{
		LabelTrue,
		LabelMostlyTrue,
		LabelHalfTrue,
		LabelBarelyTrue,
		LabelFalse,
		LabelPantsFire,
	}
}

// IsValid reports whether l is one of the six substantive labels
func (l Label) IsValid() bool {
	for _, known := range Labels() {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLabel normalizes a dataset label; unknown values map to LabelUnparseable
func ParseLabel(s string) Label {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if l.IsValid() {
		return l
	}
	return LabelUnparseable
}
