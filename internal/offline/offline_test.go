package offline

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexHTML = `<!doctype html><html><head>
<link rel="stylesheet" href="/style.css">
<link rel="icon" href="favicon.ico">
<script src="https://cdn.example.com/lib.js"></script>
<script src="/app.js"></script>
</head><body><div id="root"></div></body></html>`

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(64)
	require.NoError(t, err)
	return c
}

func shellUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, indexHTML)
		case "/app.js":
			io.WriteString(w, "console.log('app')")
		case "/style.css":
			io.WriteString(w, "body{}")
		case "/favicon.ico":
			io.WriteString(w, "ico")
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(mux)
}

func get(h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestClassify(t *testing.T) {
	p := NewPolicy("api/", []string{"/app.js", "manifest.json"})
	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		want   Strategy
	}{
		{"api get", http.MethodGet, "/api/posts", nil, APINetwork},
		{"api root", http.MethodGet, "/api", nil, APINetwork},
		{"api post", http.MethodPost, "/api/posts/1/comments", nil, APINetwork},
		{"api lookalike", http.MethodGet, "/apix", map[string]string{"Accept": "text/html"}, NetworkFirst},
		{"shell asset", http.MethodGet, "/app.js", nil, CacheFirst},
		{"shell relative", http.MethodGet, "/manifest.json", nil, CacheFirst},
		{"navigate", http.MethodGet, "/posts/7", map[string]string{"Sec-Fetch-Mode": "navigate"}, NetworkFirst},
		{"fetch mode wins", http.MethodGet, "/posts/7", map[string]string{"Sec-Fetch-Mode": "cors", "Accept": "text/html"}, Passthrough},
		{"accept html", http.MethodGet, "/profile/3", map[string]string{"Accept": "text/html,application/xhtml+xml"}, NetworkFirst},
		{"other get", http.MethodGet, "/robots.txt", nil, Passthrough},
		{"non get", http.MethodPost, "/app.js", nil, Passthrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, p.Classify(req))
		})
	}
}

func TestDiscoverAssets(t *testing.T) {
	assets, err := DiscoverAssets(strings.NewReader(indexHTML))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/style.css", "/favicon.ico", "/app.js"}, assets)
}

func TestCacheFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexHTML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("v1"), 0o644))

	shell, err := ShellOrigin(dir)
	require.NoError(t, err)
	g := NewGateway(NewPolicy("/api", []string{"/app.js", ShellDocument}), newCache(t), shell, http.NotFoundHandler())

	w := get(g, "/app.js", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "v1", w.Body.String())

	// 缓存优先：文件变了也返回缓存
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("v2"), 0o644))
	w = get(g, "/app.js", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "v1", w.Body.String())

	// index.html 不会被文件服务器重定向
	w = get(g, ShellDocument, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="root"`)
}

func TestCacheFirstMissingAssetNotCached(t *testing.T) {
	dir := t.TempDir()
	shell, err := ShellOrigin(dir)
	require.NoError(t, err)
	cache := newCache(t)
	g := NewGateway(NewPolicy("/api", []string{"/missing.js"}), cache, shell, http.NotFoundHandler())

	w := get(g, "/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, cache.Len())
}

func TestShellOriginRejectsMissingDir(t *testing.T) {
	_, err := ShellOrigin(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPrecacheAndNavigationFallback(t *testing.T) {
	up := shellUpstream(t)
	u, _ := url.Parse(up.URL)
	cache := newCache(t)
	policy := NewPolicy("/api", nil)
	g := NewGateway(policy, cache, NewProxy(u, ""), http.NotFoundHandler())

	n, err := g.Precache(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, policy.IsShell("/app.js"))
	assert.True(t, policy.IsShell("/style.css"))
	assert.False(t, policy.IsShell("/lib.js"))

	nav := map[string]string{"Sec-Fetch-Mode": "navigate"}

	// 在线时未知前端路由返回壳
	w := get(g, "/posts/42", nav)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="root"`)

	up.Close()

	w = get(g, "/posts/42", nav)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FALLBACK", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `id="root"`)

	w = get(g, "/app.js", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "console.log('app')", w.Body.String())
}

func TestNavigationWithoutCachedShell(t *testing.T) {
	up := shellUpstream(t)
	u, _ := url.Parse(up.URL)
	up.Close()
	g := NewGateway(NewPolicy("/api", nil), newCache(t), NewProxy(u, ""), http.NotFoundHandler())

	w := get(g, "/posts/1", map[string]string{"Accept": "text/html"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, err := g.Precache(t.Context())
	assert.Error(t, err)
}

func TestAPINetworkFallback(t *testing.T) {
	var calls atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/posts", r.URL.Path, "prefix must be stripped")
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "Bearer broken" {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"boom"}`)
			return
		}
		io.WriteString(w, `[{"id":1,"message":"hi `+r.Header.Get("Authorization")+`"}]`)
	}))
	u, _ := url.Parse(backend.URL)
	g := NewGateway(NewPolicy("/api", nil), newCache(t), http.NotFoundHandler(), NewProxy(u, "/api"))

	alice := map[string]string{"Authorization": "Bearer alice"}
	bob := map[string]string{"Authorization": "Bearer bob"}

	w := get(g, "/api/posts", alice)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	// 网络正常时总是走网络
	w = get(g, "/api/posts", alice)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.EqualValues(t, 2, calls.Load())

	// 上游错误原样返回，不回退
	w = get(g, "/api/posts", map[string]string{"Authorization": "Bearer broken"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEqual(t, "FALLBACK", w.Header().Get("X-Cache"))

	backend.Close()

	w = get(g, "/api/posts", alice)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FALLBACK", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "Bearer alice")

	// 不同用户的记录互不可见
	w = get(g, "/api/posts", bob)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"code":"NETWORK","message":"network unavailable"}`, w.Body.String())
}

func TestAPIWritesAreNeverReplayed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"created":{"id":9}}`)
	}))
	u, _ := url.Parse(backend.URL)
	g := NewGateway(NewPolicy("/api", nil), newCache(t), http.NotFoundHandler(), NewProxy(u, "/api"))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/posts/1/comments", strings.NewReader(`{"message":"x"}`))
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		return w
	}
	assert.Equal(t, http.StatusOK, post().Code)
	backend.Close()
	assert.Equal(t, http.StatusServiceUnavailable, post().Code)
}

func TestCacheSkipsOversizedBodies(t *testing.T) {
	c := newCache(t)
	c.maxBody = 4
	assert.False(t, c.Put("big", Entry{Status: 200, Body: []byte("12345")}))
	assert.True(t, c.Put("small", Entry{Status: 200, Body: []byte("1234")}))
	e, ok := c.Get("small")
	require.True(t, ok)
	assert.False(t, e.StoredAt.IsZero())
}
