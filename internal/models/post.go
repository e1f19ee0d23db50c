package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// DateLayout 发布日期只精确到天
const DateLayout = "2006-01-02"

// Post 帖子原始记录。评论与帖子共用同一个 ID 空间，评论就是带 ParentID 的 Post
type Post struct {
	ID            int64           `json:"id"`
	AuthorID      UserID          `json:"authorId"`
	Message       string          `json:"message"`
	UploadDate    string          `json:"uploadDate"`
	Category      string          `json:"category,omitempty"`
	ParentID      *int64          `json:"parentId,omitempty"`
	LikedUsers    []UserID        `json:"likedUsers"`
	DislikedUsers []UserID        `json:"dislikedUsers"`
	Reactions     []Reaction      `json:"reactions"`
	Comments      json.RawMessage `json:"comments,omitempty"`
}

// Day returns the upload date truncated to the calendar day; zero if unparsable.
func (p Post) Day() time.Time {
	if len(p.UploadDate) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, p.UploadDate[:len(DateLayout)]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NestedComments 解析嵌套评论。字段缺失或格式不对时返回空列表，单条坏记录直接跳过
func (p Post) NestedComments() []Post {
	raw := bytes.TrimSpace(p.Comments)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]Post, 0, len(items))
	for _, item := range items {
		var c Post
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NewPost is the add-post request body.
type NewPost struct {
	Message  string `json:"message" validate:"required,max=10000"`
	Category string `json:"category,omitempty" validate:"max=64"`
}
