package models

import "strings"

// Category 受控词表里的分类名
type Category struct {
	Name string `json:"name"`
}

// MatchCategory 在词表里查找分类（忽略大小写和首尾空格），返回规范写法
func MatchCategory(vocab []Category, label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	for _, c := range vocab {
		if strings.EqualFold(c.Name, label) {
			return c.Name, true
		}
	}
	return "", false
}
