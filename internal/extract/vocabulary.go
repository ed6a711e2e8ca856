package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/factsift/internal/cache"
	"github.com/ppiankov/factsift/internal/logging"
)

// DefaultVocabularyURL is the published GKG theme lookup table
const DefaultVocabularyURL = "http://data.gdeltproject.org/api/v2/guides/LOOKUP-GKGTHEMES.TXT"

// VocabularyLoader downloads the full GKG theme list used for fuzzy recovery
type VocabularyLoader struct {
	url      string
	minCount int
	client   *http.Client
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewVocabularyLoader creates a loader. c may be nil to always download.
func NewVocabularyLoader(url string, minCount int, client *http.Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) *VocabularyLoader {
	if url == "" {
		url = DefaultVocabularyURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &VocabularyLoader{
		url:      url,
		minCount: minCount,
		client:   client,
		cache:    c,
		ttl:      ttl,
		logger:   logging.OrNop(logger),
	}
}

// Load returns upper-cased themes whose corpus count exceeds the minimum
func (l *VocabularyLoader) Load(ctx context.Context) ([]string, error) {
	raw, hit, err := cache.GetOrLoad(l.cache, cache.Key("themes", l.url), l.ttl, func() ([]byte, error) {
		return l.download(ctx)
	})
	if err != nil {
		return nil, err
	}

	themes, err := ParseVocabulary(bytes.NewReader(raw), l.minCount)
	if err != nil {
		return nil, err
	}
	l.logger.Info("theme vocabulary loaded", zap.Int("themes", len(themes)), zap.Bool("cached", hit))
	return themes, nil
}

func (l *VocabularyLoader) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download theme vocabulary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download theme vocabulary: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read theme vocabulary: %w", err)
	}
	return body, nil
}

// ParseVocabulary reads THEME<TAB>COUNT lines. Malformed lines are skipped.
func ParseVocabulary(r io.Reader, minCount int) ([]string, error) {
	var themes []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		theme := strings.ToUpper(strings.TrimSpace(fields[0]))
		count, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if theme == "" || err != nil || count <= minCount || seen[theme] {
			continue
		}
		seen[theme] = true
		themes = append(themes, theme)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse theme vocabulary: %w", err)
	}
	return themes, nil
}
