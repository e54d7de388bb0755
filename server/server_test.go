package server

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrisvdg/zerver/cache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, files map[string]string, c *Config) *Server {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		file := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
		require.NoError(t, ioutil.WriteFile(file, []byte(content), 0644))
	}
	c.Cache.Root = root
	s, err := New(c)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServeGzipNegotiation(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, map[string]string{"main.js": "var a = 1;"}, &Config{
		Cache: cache.Options{MemoryCache: true, Gzip: true},
	})

	rec := do(s, http.MethodGet, "/main.js", map[string]string{"Accept-Encoding": "gzip, deflate"})
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal("Accept-Encoding", rec.Header().Get("Vary"))
	plain, err := cache.Gunzip(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal("var a = 1;", string(plain))

	rec = do(s, http.MethodGet, "/main.js", nil)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Empty(rec.Header().Get("Content-Encoding"))
	assert.Equal("var a = 1;", rec.Body.String())
	assert.Equal("10", rec.Header().Get("Content-Length"))

	// the cached entry is untouched by the decoded response
	resp, err := s.Cache().Get("/main.js")
	require.NoError(t, err)
	assert.Equal("gzip", resp.Headers.Get("Content-Encoding"))
}

func TestServeHeadAndNotModified(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, map[string]string{"index.html": "<p>hi</p>"}, &Config{
		Cache: cache.Options{MemoryCache: true},
	})

	rec := do(s, http.MethodHead, "/", nil)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("text/html", rec.Header().Get("Content-Type"))
	assert.Equal("9", rec.Header().Get("Content-Length"))
	assert.Empty(rec.Body.String())

	etag := rec.Header().Get("ETag")
	rec = do(s, http.MethodGet, "/index.html", map[string]string{"If-None-Match": "W/" + etag})
	assert.Equal(http.StatusNotModified, rec.Code)
	assert.Equal(etag, rec.Header().Get("ETag"))
	assert.Empty(rec.Body.String())
}

func TestServeMissing(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, map[string]string{"404.html": "gone"}, &Config{
		Cache:   cache.Options{MemoryCache: true},
		Missing: "/404.html",
	})

	rec := do(s, http.MethodGet, "/nope", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Equal("gone", rec.Body.String())

	s.c.Missing = ""
	rec = do(s, http.MethodGet, "/nope", nil)
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Contains(rec.Body.String(), "404 page not found")
}

func TestServeMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.js": "1"}, &Config{})

	rec := do(s, http.MethodPost, "/a.js", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestServeUncached(t *testing.T) {
	s := newTestServer(t, map[string]string{"a.js": "1"}, &Config{})

	rec := do(s, http.MethodGet, "/a.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Body.String())
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestMetrics(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, map[string]string{"a.js": "1"}, &Config{
		Cache:       cache.Options{MemoryCache: true},
		MetricsPath: "/_zerver/metrics",
	})

	do(s, http.MethodGet, "/a.js", nil)
	do(s, http.MethodGet, "/b.js", nil)
	assert.Equal(1.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("hit")))
	assert.Equal(1.0, testutil.ToFloat64(s.metrics.requests.WithLabelValues("missing")))
	assert.Equal(1.0, testutil.ToFloat64(s.metrics.entries))

	rec := do(s, http.MethodGet, "/_zerver/metrics", nil)
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `zerver_requests_total{result="hit"} 1`)
}

func TestRebuiltKeepsPreviousOnError(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t, map[string]string{"a.js": "1"}, &Config{
		Cache: cache.Options{MemoryCache: true},
	})
	before := s.Cache()

	s.rebuilt(nil, errors.New("boom"))
	assert.Same(before, s.Cache())
	assert.Equal(1.0, testutil.ToFloat64(s.metrics.rebuilds.WithLabelValues("failed")))

	opts := before.Options()
	next, err := cache.New(&opts)
	require.NoError(t, err)
	s.rebuilt(next, nil)
	assert.Same(next, s.Cache())
}

func TestNewFailsOnBrokenBuild(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "index.html"), []byte(`<script src="x.js?inline"></script>`), 0644))

	_, err := New(&Config{Cache: cache.Options{Root: root, MemoryCache: true, Inline: true}})
	var missing *cache.MissingDependencyError
	assert.True(t, errors.As(err, &missing))

	_, err = New(&Config{})
	assert.Error(t, err)
}

func TestAcceptsGzip(t *testing.T) {
	assert := assert.New(t)

	assert.True(acceptsGzip("gzip"))
	assert.True(acceptsGzip("deflate, gzip;q=0.5"))
	assert.True(acceptsGzip("*"))
	assert.False(acceptsGzip(""))
	assert.False(acceptsGzip("deflate, br"))
	assert.False(acceptsGzip("gzip;q=0"))
	assert.False(acceptsGzip("gzip; q=0.0"))
}

func TestEtagMatches(t *testing.T) {
	assert := assert.New(t)

	assert.True(etagMatches(`"a"`, `"a"`))
	assert.True(etagMatches(`"b", "a"`, `"a"`))
	assert.True(etagMatches(`W/"a"`, `"a"`))
	assert.True(etagMatches(`*`, `"a"`))
	assert.False(etagMatches(`"b"`, `"a"`))
	assert.False(etagMatches("", `"a"`))
}

func TestConfigFile(t *testing.T) {
	assert := assert.New(t)
	file := filepath.Join(t.TempDir(), "zerver.yml")
	require.NoError(t, ioutil.WriteFile(file, []byte(strings.Join([]string{
		"root: ./public",
		"memoryCache: true",
		"gzip: true",
		"concat: false",
		"cache:",
		"  - \"300\"",
		"  - /js/:86400",
		"ignores: [/drafts/]",
		"missing: /404.html",
	}, "\n")), 0644))

	fc, err := LoadConfigFile(file)
	require.NoError(t, err)

	c := &Config{ListenAddr: ":8080", Cache: cache.Options{Concat: true, Inline: true}}
	require.NoError(t, fc.Apply(c))
	assert.Equal("./public", c.Cache.Root)
	assert.Equal(":8080", c.ListenAddr)
	assert.True(c.Cache.MemoryCache)
	assert.True(c.Cache.Gzip)
	assert.False(c.Cache.Concat)
	assert.True(c.Cache.Inline)
	assert.Equal([]string{"/drafts/"}, c.Cache.Ignores)
	assert.Equal("/404.html", c.Missing)
	assert.Equal(300, c.Cache.CacheControl.Default)
	assert.Equal(86400, c.Cache.CacheControl.TTL("/js/a.js"))

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(err)
}
