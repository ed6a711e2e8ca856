package model

import "strings"

// CandidateRow is a raw record returned by the GKG corpus query
type CandidateRow struct {
	// DocumentIdentifier is the article URL
	DocumentIdentifier string `json:"document_identifier"`
	V2Themes           string `json:"v2_themes"`
	V2Tone             string `json:"v2_tone"`
	Date               int64  `json:"date"`
	V2Persons          string `json:"v2_persons"`
	V2Locations        string `json:"v2_locations"`
	V2Organizations    string `json:"v2_organizations"`
	SourceCommonName   string `json:"source_common_name"`
}

// Themes splits the semicolon-delimited theme field
func (r CandidateRow) Themes() []string {
	if r.V2Themes == "" {
		return nil
	}
	var themes []string
	for _, t := range strings.Split(r.V2Themes, ";") {
		if t = strings.TrimSpace(t); t != "" {
			themes = append(themes, t)
		}
	}
	return themes
}

// ScoredTitle is a candidate whose page title was fetched for pre-ranking
type ScoredTitle struct {
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Row      CandidateRow `json:"-"`
	Distance float32      `json:"distance"` // Squared L2 distance to the claim, lower is closer
}

// Document is a fully fetched article
type Document struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Themes  []string `json:"themes,omitempty"`
	Tone    string   `json:"tone,omitempty"`
	RawText string   `json:"-"`
	Date    string   `json:"date"`
}

// TextChunk is a retrievable passage of a document
type TextChunk struct {
	Text        string `json:"text"`
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
	SourceDate  string `json:"source_date"`
}
