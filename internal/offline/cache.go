package offline

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"carelink/internal/utils"
)

// Entry is a recorded response.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Cache 记录的响应，LRU 淘汰
type Cache struct {
	entries *utils.TTLCache[Entry]
	maxBody int
}

func NewCache(size int) (*Cache, error) {
	c, err := utils.NewTTLCache[Entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: c, maxBody: 4 << 20}, nil
}

func (c *Cache) Get(key string) (Entry, bool) {
	return c.entries.Get(key)
}

// Put stores a copy of rec; oversized bodies are skipped.
func (c *Cache) Put(key string, e Entry) bool {
	if len(e.Body) > c.maxBody {
		return false
	}
	e.Header = e.Header.Clone()
	e.Body = bytes.Clone(e.Body)
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}
	c.entries.Set(key, e, 0)
	return true
}

func (c *Cache) Len() int { return c.entries.Len() }

// write replays e, marking the response with source.
func (e Entry) write(w http.ResponseWriter, source string) {
	h := w.Header()
	for k, vs := range e.Header {
		h[k] = append([]string(nil), vs...)
	}
	h.Set("X-Cache", source)
	h.Set("Content-Length", strconv.Itoa(len(e.Body)))
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}

// recorder captures an upstream response so it can be cached before it is
// written to the client.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
	err    error
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header)}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

// failed 上游不可达（代理报错）或返回 5xx
func (r *recorder) failed() bool {
	return r.err != nil || r.status >= 500
}

func (r *recorder) entry() Entry {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	h := r.header.Clone()
	h.Del("Content-Length")
	return Entry{Status: status, Header: h, Body: r.body.Bytes(), StoredAt: time.Now()}
}
