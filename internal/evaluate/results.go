package evaluate

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ppiankov/factsift/internal/model"
	"github.com/ppiankov/factsift/internal/score"
)

var resultsHeader = []string{"id", "statement", "true_label", "predicted_label", "justification", "time_taken", "outcome"}

// WriteResults writes one CSV row per claim result. time_taken is in seconds.
func WriteResults(w io.Writer, results []*model.ClaimResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.ClaimID,
			r.Statement,
			string(r.TrueLabel),
			string(r.PredictedLabel),
			r.Justification,
			strconv.FormatFloat(r.TimeTaken.Seconds(), 'f', 3, 64),
			string(r.Outcome),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Answered reports whether the model produced a reply for the result,
// parseable or not
func Answered(r *model.ClaimResult) bool {
	return r.Outcome == model.OutcomeLabelled || r.Outcome == model.OutcomeUnparsed
}

// Accuracy counts exact label matches over every answered result.
// Unparseable replies stay in the denominator; claims that never reached
// the model do not.
func Accuracy(results []*model.ClaimResult) (correct, total int, accuracy float64) {
	for _, r := range results {
		if !Answered(r) {
			continue
		}
		total++
		if r.PredictedLabel == r.TrueLabel {
			correct++
		}
	}
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	return correct, total, accuracy
}

// Pairs converts results into scorer input. Unparseable predictions are
// excluded by the scorer itself.
func Pairs(results []*model.ClaimResult) []score.Pair {
	pairs := make([]score.Pair, 0, len(results))
	for _, r := range results {
		if !Answered(r) {
			continue
		}
		pairs = append(pairs, score.Pair{True: r.TrueLabel, Predicted: r.PredictedLabel})
	}
	return pairs
}
