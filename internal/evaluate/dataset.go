// Package evaluate runs a checker over a labelled LIAR split and writes
// the per-claim results and the classification report.
package evaluate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/factsift/internal/model"
)

// liarColumns is the fixed LIAR schema: id, label, statement, subject,
// speaker, job title, state, party, five counters, context
const liarColumns = 14

// LoadLIAR reads a LIAR split from a headerless tab-separated file
func LoadLIAR(path string) ([]model.Claim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	claims, err := ReadLIAR(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return claims, nil
}

// ReadLIAR parses LIAR rows. Unknown labels become model.LabelUnparseable;
// blank counters read as zero.
func ReadLIAR(r io.Reader) ([]model.Claim, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var claims []model.Claim
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < liarColumns {
			return nil, fmt.Errorf("line %d: %d columns, want %d", line, len(record), liarColumns)
		}

		claim, err := claimFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

func claimFromRecord(rec []string) (model.Claim, error) {
	claim := model.Claim{
		ID:        strings.TrimSpace(rec[0]),
		Label:     model.ParseLabel(rec[1]),
		Statement: strings.TrimSpace(rec[2]),
		Subject:   strings.TrimSpace(rec[3]),
		Speaker:   strings.TrimSpace(rec[4]),
		JobTitle:  strings.TrimSpace(rec[5]),
		State:     strings.TrimSpace(rec[6]),
		Party:     strings.TrimSpace(rec[7]),
		Context:   strings.TrimSpace(rec[13]),
	}

	counters := []*int{
		&claim.BarelyTrueCount,
		&claim.FalseCount,
		&claim.HalfTrueCount,
		&claim.MostlyTrueCount,
		&claim.PantsFireCount,
	}
	for i, dst := range counters {
		n, err := parseCounter(rec[8+i])
		if err != nil {
			return model.Claim{}, fmt.Errorf("counter column %d: %w", 9+i, err)
		}
		*dst = n
	}
	return claim, nil
}

// parseCounter accepts "12" as well as the "12.0" some exports carry
func parseCounter(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, nil
	}
	return int(f), nil
}

// Head returns at most the first n claims; n <= 0 keeps all
func Head(claims []model.Claim, n int) []model.Claim {
	if n <= 0 || n >= len(claims) {
		return claims
	}
	return claims[:n]
}

// SelectIDs keeps the claims whose ID is listed, in dataset order
func SelectIDs(claims []model.Claim, ids []string) []model.Claim {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Claim
	for _, c := range claims {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
