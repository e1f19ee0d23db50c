package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// UserID 用户 ID。后端有时返回数字，有时返回字符串，统一归一为 int64 比较
type UserID int64

func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*u = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*u = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*u = UserID(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		i = int64(f)
	}
	*u = UserID(i)
	return nil
}

// Reaction 单条点赞/点踩记录。ID 只用于取消这条记录，记录本身从不原地修改
type Reaction struct {
	ID     int64  `json:"id"`
	UserID UserID `json:"userId"`
	PostID int64  `json:"postId"`
	IsLike bool   `json:"isLike"`
}

// NewReaction is the add-reaction request body.
type NewReaction struct {
	PostID int64 `json:"postId"`
	IsLike bool  `json:"isLike"`
}
