package utils

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// 助手回复里的 Markdown：保留文字排版、列表、表格和链接；图片、iframe 等嵌入内容一律去掉
var (
	replyMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough, extension.Table),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	replyPolicy = newReplyPolicy()
	textPolicy  = bluemonday.StrictPolicy()
)

func newReplyPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements("p", "br", "em", "strong", "del", "code", "pre", "blockquote",
		"ul", "ol", "li", "h1", "h2", "h3", "h4", "table", "thead", "tbody", "tr", "th", "td", "hr")
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// RenderMarkdown 把助手回复转换成净化后的 HTML，外链新窗口打开
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := replyMarkdown.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return EnhanceHTMLContent(string(replyPolicy.SanitizeBytes(buf.Bytes())))
}

// MarkdownText strips a reply down to plain text for terminals.
func MarkdownText(source string) string {
	var buf bytes.Buffer
	if err := replyMarkdown.Convert([]byte(source), &buf); err != nil {
		return source
	}
	var lines []string
	for _, line := range strings.Split(html.UnescapeString(textPolicy.Sanitize(buf.String())), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
