// Package score computes per-label classification metrics for an
// evaluation run.
package score

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ppiankov/factsift/internal/model"
)

// Pair is one scored prediction
type Pair struct {
	True      model.Label
	Predicted model.Label
}

// Row holds the metrics of one label or average
type Row struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report is a classification report over the six labels. Pairs with an
// unparseable prediction or an unknown true label are counted in Excluded
// and contribute nothing else.
type Report struct {
	Labels      []Row   `json:"labels"`
	Accuracy    float64 `json:"accuracy"`
	MacroAvg    Row     `json:"macro_avg"`
	WeightedAvg Row     `json:"weighted_avg"`
	Scored      int     `json:"scored"`
	Excluded    int     `json:"excluded"`
}

// Scorer builds classification reports
type Scorer struct {
	labels []model.Label
}

// NewScorer creates a scorer over the six substantive labels
func NewScorer() *Scorer {
	return &Scorer{labels: model.Labels()}
}

// Calculate computes precision, recall and F1 per label plus accuracy and
// macro and support-weighted averages. Divisions by zero yield 0.
func (s *Scorer) Calculate(pairs []Pair) Report {
	var (
		truePositives = make(map[model.Label]int)
		predicted     = make(map[model.Label]int)
		support       = make(map[model.Label]int)
		report        Report
		correct       int
	)

	for _, p := range pairs {
		if !p.Predicted.IsValid() || !p.True.IsValid() {
			report.Excluded++
			continue
		}
		report.Scored++
		predicted[p.Predicted]++
		support[p.True]++
		if p.True == p.Predicted {
			truePositives[p.True]++
			correct++
		}
	}

	report.Accuracy = ratio(correct, report.Scored)
	report.MacroAvg = Row{Label: "macro avg", Support: report.Scored}
	report.WeightedAvg = Row{Label: "weighted avg", Support: report.Scored}

	for _, l := range s.labels {
		row := Row{
			Label:     string(l),
			Precision: ratio(truePositives[l], predicted[l]),
			Recall:    ratio(truePositives[l], support[l]),
			Support:   support[l],
		}
		if row.Precision+row.Recall > 0 {
			row.F1 = 2 * row.Precision * row.Recall / (row.Precision + row.Recall)
		}
		report.Labels = append(report.Labels, row)

		n := float64(len(s.labels))
		report.MacroAvg.Precision += row.Precision / n
		report.MacroAvg.Recall += row.Recall / n
		report.MacroAvg.F1 += row.F1 / n

		if report.Scored > 0 {
			w := float64(row.Support) / float64(report.Scored)
			report.WeightedAvg.Precision += row.Precision * w
			report.WeightedAvg.Recall += row.Recall * w
			report.WeightedAvg.F1 += row.F1 * w
		}
	}

	return report
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// WriteCSV writes the report as a table with one row per label, then the
// accuracy and average rows
func (r Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	records := [][]string{{"", "precision", "recall", "f1-score", "support"}}
	for _, row := range r.Labels {
		records = append(records, row.record())
	}
	records = append(records,
		[]string{"accuracy", "", "", formatFloat(r.Accuracy), strconv.Itoa(r.Scored)},
		r.MacroAvg.record(),
		r.WeightedAvg.record(),
	)

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (row Row) record() []string {
	return []string{
		row.Label,
		formatFloat(row.Precision),
		formatFloat(row.Recall),
		formatFloat(row.F1),
		strconv.Itoa(row.Support),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
