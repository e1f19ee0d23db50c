package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache(t *testing.T) {
	c, err := NewTTLCache[string](2)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("a", "1", time.Minute)
	c.Set("b", "2", 0)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired")
	_, ok = c.Get("b")
	assert.True(t, ok, "no ttl never expires")

	c.Set("c", "3", 0)
	c.Set("d", "4", 0)
	_, ok = c.Get("b")
	assert.False(t, ok, "evicted by LRU")
	assert.Equal(t, 2, c.Len())
}

func TestGetCache_Singleton(t *testing.T) {
	assert.Same(t, GetCache(), GetCache())
}

func TestParseID(t *testing.T) {
	n, ok := ParseID(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
	for _, bad := range []string{"", "0", "-3", "p_1", "1.5"} {
		_, ok := ParseID(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, 0, StringToInt("x"))
}

func TestRenderMarkdown_Sanitises(t *testing.T) {
	out := string(RenderMarkdown("**Rest** and drink water.\n\n<script>alert(1)</script>\n\n[info](https://who.int)"))
	assert.Contains(t, out, "<strong>Rest</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "noopener")

	out = string(RenderMarkdown("![x](https://evil.example/pixel.png) see https://who.int"))
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, `href="https://who.int"`)

	out = string(RenderMarkdown("| dose | when |\n|---|---|\n| 5mg | night |\n\n<iframe src=\"https://evil.example\"></iframe>"))
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>5mg</td>")
	assert.NotContains(t, out, "<iframe")
}

func TestMarkdownText(t *testing.T) {
	assert.Equal(t, "Rest & drink water.\nSee a doctor", MarkdownText("**Rest** & drink water.\n\nSee a *doctor*"))
	assert.Equal(t, "one\ntwo", MarkdownText("- one\n- two"))
}

func TestLocalAssets(t *testing.T) {
	const page = `<!doctype html><html><head>
<link rel="stylesheet" href="/static/app.css">
<link rel="icon" href="favicon.ico">
<link rel="manifest" href="/manifest.json">
<link rel="canonical" href="/home">
<script src="/static/app.js"></script>
<script src="https://cdn.example.com/x.js"></script>
</head><body><img src="/img/logo.png"><img src="data:image/png;base64,AA=="><script src="/static/app.js"></script></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"/static/app.js", "/static/app.css", "/favicon.ico", "/manifest.json", "/img/logo.png"},
		LocalAssets(doc))
}
