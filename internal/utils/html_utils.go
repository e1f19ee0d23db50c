package utils

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTMLContent 为 HTML 中的绝对链接增加新窗口和安全属性
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if u, err := url.Parse(href); err == nil && u.IsAbs() {
			s.SetAttr("target", "_blank")
			s.SetAttr("rel", "nofollow noopener noreferrer")
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return template.HTML(htmlStr)
	}
	return template.HTML(out)
}

// LocalAssets 从 HTML 文档中提取同源静态资源路径（script、stylesheet、icon、manifest、img）
func LocalAssets(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "//") {
			return
		}
		u, err := url.Parse(ref)
		if err != nil || u.IsAbs() {
			return
		}
		p := u.Path
		if p == "" {
			return
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + strings.TrimPrefix(p, "./")
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	doc.Find("script[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})
	doc.Find("link[href]").Each(func(i int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		if strings.Contains(rel, "stylesheet") || strings.Contains(rel, "icon") ||
			strings.Contains(rel, "manifest") || strings.Contains(rel, "preload") {
			href, _ := s.Attr("href")
			add(href)
		}
	})
	doc.Find("img[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})
	return out
}
