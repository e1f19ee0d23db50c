package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"carelink/internal/observability"
)

// Gateway applies the policy in front of two origins: the shell (static
// files or a frontend server) and the REST backend.
type Gateway struct {
	policy *Policy
	cache  *Cache
	shell  http.Handler
	api    http.Handler
}

func NewGateway(policy *Policy, cache *Cache, shell, api http.Handler) *Gateway {
	return &Gateway{policy: policy, cache: cache, shell: shell, api: api}
}

// ShellOrigin returns a file server for a directory or a reverse proxy for
// an http(s) URL.
func ShellOrigin(location string) (http.Handler, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, err
		}
		return NewProxy(u, ""), nil
	}
	if st, err := os.Stat(location); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("shell directory %q not found", location)
	}
	return http.FileServer(http.Dir(location)), nil
}

// NewProxy forwards to target, removing stripPrefix from the request path.
// Transport failures are reported to the offline recorder instead of being
// written as a 502.
func NewProxy(target *url.URL, stripPrefix string) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			if stripPrefix != "" {
				p := strings.TrimPrefix(pr.In.URL.Path, stripPrefix)
				pr.Out.URL.Path = strings.TrimRight(target.Path, "/") + "/" + strings.TrimLeft(p, "/")
				pr.Out.URL.RawPath = ""
			}
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if rec, ok := w.(*recorder); ok {
				rec.err = err
				return
			}
			observability.FromContext(r.Context()).Warn("upstream unreachable", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch g.policy.Classify(r) {
	case CacheFirst:
		g.cacheFirst(w, r)
	case NetworkFirst:
		g.networkFirst(w, r)
	case APINetwork:
		g.apiNetwork(w, r)
	default:
		g.shell.ServeHTTP(w, r)
	}
}

func (g *Gateway) cacheFirst(w http.ResponseWriter, r *http.Request) {
	key := cleanPath(r.URL.Path)
	if e, ok := g.cache.Get(key); ok {
		observability.OfflineCacheHits.WithLabelValues(string(CacheFirst)).Inc()
		e.write(w, "HIT")
		return
	}
	rec := newRecorder()
	g.shell.ServeHTTP(rec, originRequest(r))
	if rec.err != nil {
		http.Error(w, "shell asset unavailable", http.StatusServiceUnavailable)
		return
	}
	e := rec.entry()
	if e.Status == http.StatusOK {
		g.cache.Put(key, e)
	}
	e.write(w, "MISS")
}

func (g *Gateway) networkFirst(w http.ResponseWriter, r *http.Request) {
	rec := newRecorder()
	g.shell.ServeHTTP(rec, r)
	if !rec.failed() {
		e := rec.entry()
		if e.Status == http.StatusNotFound {
			// 前端路由：未知路径交给壳处理
			if shell, ok := g.cache.Get(ShellDocument); ok {
				shell.write(w, "HIT")
				return
			}
		}
		e.write(w, "MISS")
		return
	}
	if e, ok := g.cache.Get(ShellDocument); ok {
		observability.OfflineCacheHits.WithLabelValues(string(NetworkFirst)).Inc()
		e.write(w, "FALLBACK")
		return
	}
	http.Error(w, "offline and no cached shell", http.StatusServiceUnavailable)
}

func (g *Gateway) apiNetwork(w http.ResponseWriter, r *http.Request) {
	cacheable := r.Method == http.MethodGet
	// 带 Authorization 的响应按用户区分
	key := r.URL.RequestURI() + "\x00" + r.Header.Get("Authorization")

	rec := newRecorder()
	g.api.ServeHTTP(rec, r)
	if rec.err == nil {
		e := rec.entry()
		if cacheable && e.Status == http.StatusOK {
			g.cache.Put(key, e)
		}
		e.write(w, "MISS")
		return
	}
	if errors.Is(rec.err, context.Canceled) {
		return
	}
	if cacheable {
		if e, ok := g.cache.Get(key); ok {
			observability.OfflineCacheHits.WithLabelValues(string(APINetwork)).Inc()
			e.write(w, "FALLBACK")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"code":"NETWORK","message":"network unavailable"}`))
}

// Precache fills the cache with the configured shell assets plus every
// asset referenced by the shell document.
func (g *Gateway) Precache(ctx context.Context) (int, error) {
	index := g.fetch(ctx, "/")
	if index == nil {
		return 0, fmt.Errorf("shell document %s unavailable", ShellDocument)
	}
	g.cache.Put(ShellDocument, *index)
	if found, err := DiscoverAssets(bytes.NewReader(index.Body)); err == nil {
		g.policy.AddShell(found...)
	}
	g.policy.AddShell(ShellDocument)

	n := 1
	for _, a := range g.policy.ShellAssets() {
		if a == ShellDocument {
			continue
		}
		if e := g.fetch(ctx, a); e != nil {
			g.cache.Put(a, *e)
			n++
		} else {
			observability.FromContext(ctx).Warn("precache asset failed", "path", a)
		}
	}
	return n, nil
}

// originRequest maps the shell document to "/", since file servers
// redirect /index.html.
func originRequest(r *http.Request) *http.Request {
	if cleanPath(r.URL.Path) != ShellDocument {
		return r
	}
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/"
	r2.URL.RawPath = ""
	return r2
}

func (g *Gateway) fetch(ctx context.Context, p string) *Entry {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil
	}
	rec := newRecorder()
	g.shell.ServeHTTP(rec, originRequest(req))
	e := rec.entry()
	if rec.err != nil || e.Status != http.StatusOK {
		return nil
	}
	return &e
}
