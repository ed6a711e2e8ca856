package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/factsift/internal/model"
)

type fakeBackend struct {
	estimate  int64
	dryErr    error
	rows      []model.CandidateRow
	readCalls int
	lastSQL   string
	params    []bigquery.QueryParameter
}

func (f *fakeBackend) DryRun(_ context.Context, sql string, params []bigquery.QueryParameter) (int64, error) {
	f.lastSQL = sql
	f.params = params
	return f.estimate, f.dryErr
}

func (f *fakeBackend) Read(_ context.Context, sql string, _ []bigquery.QueryParameter) ([]model.CandidateRow, error) {
	f.readCalls++
	return f.rows, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)
}

func TestSearchRunsUnderBudget(t *testing.T) {
	backend := &fakeBackend{
		estimate: 5 << 30,
		rows:     []model.CandidateRow{{DocumentIdentifier: "https://news.example/a"}},
	}
	var observed int64
	c, err := NewClient(backend, Options{Now: fixedNow, Observe: func(b int64) { observed = b }})
	require.NoError(t, err)

	rows, err := c.Search(context.Background(), Query{Filter: "V2Themes LIKE '%ENV_COAL%'", Limit: 50, LookbackDays: 90})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, backend.readCalls)
	assert.Equal(t, int64(5<<30), observed)

	assert.Contains(t, backend.lastSQL, "AND (V2Themes LIKE '%ENV_COAL%')")
	assert.Contains(t, backend.lastSQL, "LIMIT 50")
	assert.Contains(t, backend.lastSQL, "`gdelt-bq.gdeltv2.gkg_partitioned`")
	require.Len(t, backend.params, 1)
	assert.Equal(t, "2024-01-01", backend.params[0].Value)
}

func TestSearchAbortsOverBudget(t *testing.T) {
	backend := &fakeBackend{estimate: 101 << 30}
	c, err := NewClient(backend, Options{})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Query{Filter: "1=1"})
	assert.ErrorIs(t, err, ErrCostBudgetExceeded)
	assert.Zero(t, backend.readCalls, "over-budget queries must not run")
}

func TestSearchAbortsWhenDryRunFails(t *testing.T) {
	backend := &fakeBackend{dryErr: errors.New("quota")}
	c, err := NewClient(backend, Options{})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Query{Filter: "1=1"})
	assert.ErrorContains(t, err, "quota")
	assert.Zero(t, backend.readCalls)
}

func TestRenderAlwaysBoundsUnfilteredScans(t *testing.T) {
	c, err := NewClient(&fakeBackend{}, Options{Now: fixedNow})
	require.NoError(t, err)

	sql, _ := c.Render(Query{})
	assert.Contains(t, sql, "AND (1=1)")
	assert.Contains(t, sql, "LIMIT 500")
	assert.Contains(t, sql, "_PARTITIONTIME >= TIMESTAMP(@partition_start)")
}

func TestNewClientRejectsBadTable(t *testing.T) {
	_, err := NewClient(&fakeBackend{}, Options{Table: "x`; DROP TABLE y; --"})
	assert.Error(t, err)

	_, err = NewClient(&fakeBackend{}, Options{Table: "my-project.gdelt.gkg"})
	assert.NoError(t, err)
}
