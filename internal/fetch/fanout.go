package fetch

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/metrics"
	"github.com/ppiankov/factsift/internal/model"
)

// each runs fn for every index in [0, n) with at most workers in flight.
// Indexes not started before ctx is done are skipped.
func each(ctx context.Context, n, workers int, fn func(i int)) {
	if workers <= 0 || workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			fn(idx)
		}(i)
	}

	wg.Wait()
}

// FetchTitles fetches the title of every row concurrently. Rows whose fetch
// fails or whose title is unusable are dropped; the rest keep input order.
func (f *Fetcher) FetchTitles(ctx context.Context, rows []model.CandidateRow, workers int) []model.ScoredTitle {
	titles := make([]string, len(rows))

	each(ctx, len(rows), workers, func(i int) {
		url := rows[i].DocumentIdentifier
		if url == "" {
			return
		}
		title, err := f.FetchTitle(ctx, url)
		if err != nil {
			f.recordFailure("title", url, err)
			return
		}
		titles[i] = title
	})

	out := make([]model.ScoredTitle, 0, len(rows))
	for i, title := range titles {
		if title == "" {
			continue
		}
		out = append(out, model.ScoredTitle{URL: rows[i].DocumentIdentifier, Title: title, Row: rows[i]})
	}

	f.logger.Info("titles fetched", zap.Int("candidates", len(rows)), zap.Int("usable", len(out)))
	return out
}

// FetchDocuments fetches the full article of every row concurrently.
// Failed and empty pages are dropped; the rest keep input order.
func (f *Fetcher) FetchDocuments(ctx context.Context, rows []model.CandidateRow, workers int) []model.Document {
	pages := make([]*Page, len(rows))

	each(ctx, len(rows), workers, func(i int) {
		url := rows[i].DocumentIdentifier
		if url == "" {
			return
		}
		page, err := f.FetchArticle(ctx, url)
		if err != nil {
			f.recordFailure("article", url, err)
			return
		}
		pages[i] = page
	})

	docs := make([]model.Document, 0, len(rows))
	for i, page := range pages {
		if page == nil {
			continue
		}
		row := rows[i]
		docs = append(docs, model.Document{
			Title:   page.Title,
			URL:     row.DocumentIdentifier,
			Themes:  row.Themes(),
			Tone:    row.V2Tone,
			RawText: page.Text,
			Date:    strconv.FormatInt(row.Date, 10),
		})
	}

	f.logger.Info("articles fetched", zap.Int("requested", len(rows)), zap.Int("usable", len(docs)))
	return docs
}

func (f *Fetcher) recordFailure(kind, url string, err error) {
	class := ClassOf(err)
	if class == "" {
		class = ClassNetwork
	}
	metrics.FetchFailures.WithLabelValues(kind, string(class)).Inc()
	f.logger.Debug("fetch failed",
		zap.String("kind", kind),
		zap.String("class", string(class)),
		zap.String("url", url),
		zap.Error(err))
}
