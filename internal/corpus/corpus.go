// Package corpus queries the GDELT GKG table for candidate articles.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/logging"
	"github.com/ppiankov/factsift/internal/model"
)

// ErrCostBudgetExceeded is returned when the dry-run estimate is over the scan budget
var ErrCostBudgetExceeded = errors.New("query cost estimate exceeds budget")

const (
	// DefaultTable is the partitioned public GKG table
	DefaultTable = "gdelt-bq.gdeltv2.gkg_partitioned"
	// DefaultMaxScanBytes is the 100 GiB scan budget
	DefaultMaxScanBytes int64 = 100 << 30
	// DefaultLimit bounds rows per query
	DefaultLimit = 500
)

var tableName = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+){1,2}$`)

// Query is one corpus search
type Query struct {
	Filter       string // Boolean expression over GKG columns
	Limit        int
	LookbackDays int
}

// Searcher returns candidate rows for a filter
type Searcher interface {
	Search(ctx context.Context, q Query) ([]model.CandidateRow, error)
}

// Backend executes SQL against the warehouse. BigQueryBackend is the production one.
type Backend interface {
	DryRun(ctx context.Context, sql string, params []bigquery.QueryParameter) (int64, error)
	Read(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]model.CandidateRow, error)
}

// Options configures a Client
type Options struct {
	Table        string
	MaxScanBytes int64
	Now          func() time.Time
	Logger       *zap.Logger
	// Observe receives each dry-run estimate, for metrics
	Observe func(bytes int64)
}

// Client guards every query with a dry-run cost check before running it
type Client struct {
	backend  Backend
	table    string
	maxBytes int64
	now      func() time.Time
	observe  func(int64)
	logger   *zap.Logger
}

// NewClient creates a corpus client over backend
func NewClient(backend Backend, opts Options) (*Client, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if !tableName.MatchString(opts.Table) {
		return nil, fmt.Errorf("invalid table name %q", opts.Table)
	}
	if opts.MaxScanBytes <= 0 {
		opts.MaxScanBytes = DefaultMaxScanBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		backend:  backend,
		table:    opts.Table,
		maxBytes: opts.MaxScanBytes,
		now:      opts.Now,
		observe:  opts.Observe,
		logger:   logging.OrNop(opts.Logger),
	}, nil
}

// Search runs the dry-run guard and then the query
func (c *Client) Search(ctx context.Context, q Query) ([]model.CandidateRow, error) {
	sql, params := c.Render(q)

	estimated, err := c.backend.DryRun(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	if c.observe != nil {
		c.observe(estimated)
	}

	c.logger.Info("corpus query estimated",
		zap.Float64("gib", float64(estimated)/float64(1<<30)),
		zap.Int64("budget_bytes", c.maxBytes))

	if estimated > c.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrCostBudgetExceeded, estimated, c.maxBytes)
	}

	rows, err := c.backend.Read(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("corpus query: %w", err)
	}

	c.logger.Info("corpus query finished", zap.Int("rows", len(rows)))
	return rows, nil
}

// Render produces the SQL text and its parameters. The filter is inlined;
// everything else is a parameter or validated.
func (c *Client) Render(q Query) (string, []bigquery.QueryParameter) {
	filter := strings.TrimSpace(q.Filter)
	if filter == "" {
		filter = "1=1"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	lookback := q.LookbackDays
	if lookback <= 0 {
		lookback = 7
	}

	start := c.now().UTC().AddDate(0, 0, -lookback).Format("2006-01-02")

	sql := fmt.Sprintf(`SELECT
  DocumentIdentifier,
  V2Themes,
  V2Tone,
  DATE,
  V2Persons,
  V2Locations,
  V2Organizations,
  SourceCommonName
FROM
  `+"`%s`"+`
WHERE
  _PARTITIONTIME >= TIMESTAMP(@partition_start)
  AND (%s)
LIMIT %d`, c.table, filter, limit)

	return sql, []bigquery.QueryParameter{{Name: "partition_start", Value: start}}
}
