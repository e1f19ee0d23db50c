// Package ident provides tagged identifiers for nodes of a post/comment tree.
//
// A node is either a server-known post, a server-known comment, or a comment
// that only exists locally while its create request is pending. The string
// forms (p_12, c_55, tmp-<uuid>) are used at the edges (JSON, routes, CLI);
// everything inside the module compares NodeID values directly.
package ident

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Kind uint8

const (
	KindInvalid Kind = iota
	KindPost
	KindComment
	KindTemp
)

const (
	postPrefix    = "p_"
	commentPrefix = "c_"
	tempPrefix    = "tmp-"
)

var ErrInvalid = errors.New("invalid node id")

// NodeID is comparable and safe to use as a map key.
type NodeID struct {
	kind Kind
	num  int64
	temp string
}

func Post(n int64) NodeID    { return NodeID{kind: KindPost, num: n} }
func Comment(n int64) NodeID { return NodeID{kind: KindComment, num: n} }

// NewTemp 生成临时 ID（UUID，避免计数器复用导致的冲突）
func NewTemp() NodeID {
	return NodeID{kind: KindTemp, temp: uuid.NewString()}
}

// Temp wraps an existing temporary token, e.g. one echoed back by a client.
func Temp(token string) NodeID {
	return NodeID{kind: KindTemp, temp: token}
}

func (id NodeID) Kind() Kind      { return id.kind }
func (id NodeID) IsZero() bool    { return id.kind == KindInvalid }
func (id NodeID) IsTemp() bool    { return id.kind == KindTemp }
func (id NodeID) IsPost() bool    { return id.kind == KindPost }
func (id NodeID) IsComment() bool { return id.kind == KindComment }

// Numeric returns the server id. Temporary ids have none.
func (id NodeID) Numeric() (int64, bool) {
	if id.kind == KindPost || id.kind == KindComment {
		return id.num, true
	}
	return 0, false
}

func (id NodeID) String() string {
	switch id.kind {
	case KindPost:
		return postPrefix + strconv.FormatInt(id.num, 10)
	case KindComment:
		return commentPrefix + strconv.FormatInt(id.num, 10)
	case KindTemp:
		return tempPrefix + id.temp
	}
	return ""
}

// Parse 解析 p_<n> / c_<n> / tmp-<token>
func Parse(s string) (NodeID, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, postPrefix):
		n, err := parseNum(s[len(postPrefix):])
		if err != nil {
			return NodeID{}, fmt.Errorf("%w %q", ErrInvalid, s)
		}
		return Post(n), nil
	case strings.HasPrefix(s, commentPrefix):
		n, err := parseNum(s[len(commentPrefix):])
		if err != nil {
			return NodeID{}, fmt.Errorf("%w %q", ErrInvalid, s)
		}
		return Comment(n), nil
	case strings.HasPrefix(s, tempPrefix) && len(s) > len(tempPrefix):
		return Temp(s[len(tempPrefix):]), nil
	}
	return NodeID{}, fmt.Errorf("%w %q", ErrInvalid, s)
}

func parseNum(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalid
	}
	return n, nil
}

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
