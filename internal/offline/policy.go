// Package offline serves the browser shell with an offline-friendly cache
// policy: shell assets cache-first, navigations network-first with the
// cached shell as fallback, and API calls network-only with a recorded
// response as last resort.
package offline

import (
	"net/http"
	"path"
	"strings"
	"sync"
)

type Strategy string

const (
	// CacheFirst 预缓存的壳资源
	CacheFirst Strategy = "cache_first"
	// NetworkFirst 页面导航，失败时回退到缓存的壳
	NetworkFirst Strategy = "network_first"
	// APINetwork API 请求总是走网络，只有网络失败才回退到之前记录的响应
	APINetwork Strategy = "api_network"
	// Passthrough 其他请求原样转发，不缓存
	Passthrough Strategy = "passthrough"
)

// ShellDocument is the cache key of the app shell used as navigation fallback.
const ShellDocument = "/index.html"

// Policy decides the strategy for a request.
type Policy struct {
	// APIPrefix is the gateway path the backend is proxied under, e.g. "/api".
	APIPrefix string

	mu    sync.RWMutex
	shell map[string]bool
}

func NewPolicy(apiPrefix string, shellAssets []string) *Policy {
	p := &Policy{APIPrefix: "/" + strings.Trim(apiPrefix, "/"), shell: make(map[string]bool)}
	p.AddShell(shellAssets...)
	return p
}

// AddShell registers precached shell paths.
func (p *Policy) AddShell(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range paths {
		if a = cleanPath(a); a != "" {
			p.shell[a] = true
		}
	}
}

func (p *Policy) ShellAssets() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.shell))
	for a := range p.shell {
		out = append(out, a)
	}
	return out
}

func (p *Policy) IsShell(urlPath string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.shell[cleanPath(urlPath)]
}

// IsAPI reports whether the request path goes to the backend.
func (p *Policy) IsAPI(urlPath string) bool {
	return urlPath == p.APIPrefix || strings.HasPrefix(urlPath, p.APIPrefix+"/")
}

func (p *Policy) Classify(r *http.Request) Strategy {
	switch {
	case p.IsAPI(r.URL.Path):
		return APINetwork
	case r.Method != http.MethodGet && r.Method != http.MethodHead:
		return Passthrough
	case p.IsShell(r.URL.Path):
		return CacheFirst
	case isNavigation(r):
		return NetworkFirst
	}
	return Passthrough
}

// isNavigation 浏览器的页面导航请求
func isNavigation(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	c := path.Clean(p)
	if c == "/" {
		return "/"
	}
	return c
}
