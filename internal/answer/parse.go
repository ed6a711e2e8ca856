package answer

import (
	"sort"
	"strings"

	"github.com/ppiankov/factsift/internal/model"
)

const (
	labelMarker         = "label:"
	justificationMarker = "justification:"
)

// Answer is the structure recovered from a model reply
type Answer struct {
	Label         model.Label
	Justification string
}

// Parse reads the label after the last "Label:" marker. The text after the
// marker must start with one of the six labels, tried in model.Labels order;
// otherwise the label is model.LabelUnparseable. The justification is the
// text between "Justification:" and "Label:" when present, else the whole reply.
func Parse(reply string) Answer {
	ans := Answer{Label: model.LabelUnparseable, Justification: strings.TrimSpace(reply)}

	if at := lastIndexFold(reply, labelMarker); at >= 0 {
		rest := strings.ToLower(strings.TrimLeft(reply[at+len(labelMarker):], " \t\r\n*[\"'`"))
		for _, l := range model.Labels() {
			if strings.HasPrefix(rest, string(l)) {
				ans.Label = l
				break
			}
		}
	}

	if at := indexFold(reply, justificationMarker); at >= 0 {
		body := reply[at+len(justificationMarker):]
		if end := indexFold(body, labelMarker); end >= 0 {
			body = body[:end]
		}
		ans.Justification = strings.TrimSpace(body)
	}

	return ans
}

// indexFold is strings.Index ignoring ASCII case in an ASCII needle
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func lastIndexFold(s, needle string) int {
	for i := len(s) - len(needle); i >= 0; i-- {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// ParseBaseline returns the label that appears earliest anywhere in reply.
// At the same position the longer label wins, so "mostly-true" is never
// read as "true".
func ParseBaseline(reply string) model.Label {
	lower := strings.ToLower(reply)

	type hit struct {
		label model.Label
		pos   int
	}
	var hits []hit
	for _, l := range model.Labels() {
		if pos := strings.Index(lower, string(l)); pos >= 0 {
			hits = append(hits, hit{l, pos})
		}
	}
	if len(hits) == 0 {
		return model.LabelUnparseable
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return len(hits[i].label) > len(hits[j].label)
	})
	return hits[0].label
}
