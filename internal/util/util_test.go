package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsCheckerHonoursDisallow(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("factsift/1.0", time.Second, nil)
	ctx := context.Background()

	ok, err := checker.CanFetch(ctx, server.URL+"/news/story")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.CanFetch(ctx, server.URL+"/private/page")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be fetched once per origin")
}

func TestRobotsCheckerMissingFileAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("factsift/1.0", time.Second, nil)
	ok, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRobotsCheckerRejectsBadURL(t *testing.T) {
	checker := NewRobotsChecker("factsift/1.0", time.Second, nil)
	_, err := checker.CanFetch(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "Mozilla", NormalizeUserAgent("Mozilla/5.0 (X11; Linux x86_64)"))
	assert.Equal(t, "factsift", NormalizeUserAgent("factsift"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.example")

	req := httptest.NewRequest(http.MethodGet, "https://news.example.com/a", nil)
	u, err := proxy(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req = httptest.NewRequest(http.MethodGet, "http://internal.example/a", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}
