package corpus

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ppiankov/factsift/internal/model"
)

// BigQueryBackend runs queries with the BigQuery client
type BigQueryBackend struct {
	client *bigquery.Client
}

// NewBigQueryBackend connects with application default credentials unless opts say otherwise
func NewBigQueryBackend(ctx context.Context, projectID string, opts ...option.ClientOption) (*BigQueryBackend, error) {
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQueryBackend{client: client}, nil
}

// Close releases the client
func (b *BigQueryBackend) Close() error {
	return b.client.Close()
}

// DryRun returns the estimated bytes processed
func (b *BigQueryBackend) DryRun(ctx context.Context, sql string, params []bigquery.QueryParameter) (int64, error) {
	q := b.client.Query(sql)
	q.Parameters = params
	q.DryRun = true
	q.DisableQueryCache = true

	job, err := q.Run(ctx)
	if err != nil {
		return 0, err
	}
	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return 0, errors.New("dry run returned no statistics")
	}
	if err := status.Err(); err != nil {
		return 0, err
	}
	return status.Statistics.TotalBytesProcessed, nil
}

// gkgRow mirrors the selected columns; every GKG column is nullable
type gkgRow struct {
	DocumentIdentifier bigquery.NullString `bigquery:"DocumentIdentifier"`
	V2Themes           bigquery.NullString `bigquery:"V2Themes"`
	V2Tone             bigquery.NullString `bigquery:"V2Tone"`
	Date               bigquery.NullInt64  `bigquery:"DATE"`
	V2Persons          bigquery.NullString `bigquery:"V2Persons"`
	V2Locations        bigquery.NullString `bigquery:"V2Locations"`
	V2Organizations    bigquery.NullString `bigquery:"V2Organizations"`
	SourceCommonName   bigquery.NullString `bigquery:"SourceCommonName"`
}

func (r gkgRow) candidate() model.CandidateRow {
	return model.CandidateRow{
		DocumentIdentifier: r.DocumentIdentifier.StringVal,
		V2Themes:           r.V2Themes.StringVal,
		V2Tone:             r.V2Tone.StringVal,
		Date:               r.Date.Int64,
		V2Persons:          r.V2Persons.StringVal,
		V2Locations:        r.V2Locations.StringVal,
		V2Organizations:    r.V2Organizations.StringVal,
		SourceCommonName:   r.SourceCommonName.StringVal,
	}
}

// Read runs the query and returns rows that carry a document URL
func (b *BigQueryBackend) Read(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]model.CandidateRow, error) {
	q := b.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.CandidateRow
	for {
		var r gkgRow
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if r.DocumentIdentifier.StringVal == "" {
			continue
		}
		rows = append(rows, r.candidate())
	}
	return rows, nil
}
