// Package tree maps raw post/comment records into UI-ready nodes and offers
// immutable traversal helpers over the resulting forest.
//
// Nodes are values. Every helper that changes a forest returns a new slice and
// copies only the path from the root to the changed node; slices reachable from
// a previously returned forest are never written to. A snapshot for rollback is
// therefore just the old slice.
package tree

import (
	"encoding/json"
	"sort"

	"carelink/internal/ident"
	"carelink/internal/models"
)

// Vote 当前用户的三态投票
type Vote int8

const (
	None    Vote = 0
	Like    Vote = 1
	Dislike Vote = -1
)

func (v Vote) String() string {
	switch v {
	case Like:
		return "like"
	case Dislike:
		return "dislike"
	}
	return "none"
}

// MaxRenderDepth 评论内联展开的最大深度，更深的只显示“查看更多”
const MaxRenderDepth = 6

// DepthFull maps the whole nested tree.
const DepthFull = -1

type Node struct {
	ID         ident.NodeID
	AuthorID   int64
	Author     string
	Message    string
	Date       string
	Category   string
	LikedBy    []int64
	DislikedBy []int64
	Vote       Vote
	Reactions  []models.Reaction
	Comments   []Node
	// HasMore is set when children exist on the server but were not mapped.
	HasMore bool
	// Pending marks a locally created comment waiting for its server id.
	Pending bool
}

func (n Node) Likes() int    { return len(n.LikedBy) }
func (n Node) Dislikes() int { return len(n.DislikedBy) }

// ReactionOf 查找某个用户某种投票对应的记录
func (n Node) ReactionOf(user int64, v Vote) (models.Reaction, bool) {
	for _, r := range n.Reactions {
		if int64(r.UserID) != user {
			continue
		}
		if (v == Like && r.IsLike) || (v == Dislike && !r.IsLike) {
			return r, true
		}
	}
	return models.Reaction{}, false
}

type nodeJSON struct {
	ID       ident.NodeID `json:"id"`
	AuthorID int64        `json:"authorId"`
	Author   string       `json:"author"`
	Message  string       `json:"message"`
	Date     string       `json:"date"`
	Category string       `json:"category,omitempty"`
	Likes    int          `json:"likes"`
	Dislikes int          `json:"dislikes"`
	Vote     Vote         `json:"vote"`
	Comments []Node       `json:"comments"`
	HasMore  bool         `json:"hasMore,omitempty"`
	Pending  bool         `json:"pending,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	comments := n.Comments
	if comments == nil {
		comments = []Node{}
	}
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		AuthorID: n.AuthorID,
		Author:   n.Author,
		Message:  n.Message,
		Date:     n.Date,
		Category: n.Category,
		Likes:    n.Likes(),
		Dislikes: n.Dislikes(),
		Vote:     n.Vote,
		Comments: comments,
		HasMore:  n.HasMore,
		Pending:  n.Pending,
	})
}

// MapOptions controls MapPost / MapComment.
type MapOptions struct {
	// Names resolves author ids; missing entries fall back to "User #<id>".
	Names map[int64]string
	// Viewer is the current user id, 0 when anonymous.
	Viewer int64
	// Depth bounds recursion: DepthFull for everything, 1 for direct replies only.
	Depth int
}

// MapPost 把帖子记录映射为节点，ID 为 p_<n>
func MapPost(rec models.Post, opts MapOptions) Node {
	return mapRecord(rec, ident.Post(rec.ID), opts)
}

// MapComment 把评论记录映射为节点，ID 为 c_<n>
func MapComment(rec models.Post, opts MapOptions) Node {
	return mapRecord(rec, ident.Comment(rec.ID), opts)
}

// MapPosts maps a page of posts.
func MapPosts(recs []models.Post, opts MapOptions) []Node {
	if len(recs) == 0 {
		return nil
	}
	out := make([]Node, 0, len(recs))
	for _, rec := range recs {
		out = append(out, MapPost(rec, opts))
	}
	return out
}

func mapRecord(rec models.Post, id ident.NodeID, opts MapOptions) Node {
	author := int64(rec.AuthorID)
	n := Node{
		ID:         id,
		AuthorID:   author,
		Author:     resolveName(opts.Names, author),
		Message:    rec.Message,
		Date:       rec.UploadDate,
		Category:   rec.Category,
		LikedBy:    dedup(rec.LikedUsers),
		DislikedBy: dedup(rec.DislikedUsers),
		Reactions:  append([]models.Reaction(nil), rec.Reactions...),
	}
	if d := rec.Day(); !d.IsZero() {
		n.Date = d.Format(models.DateLayout)
	}
	n.Vote = voteOf(n, opts.Viewer)

	children := rec.NestedComments()
	if len(children) == 0 {
		return n
	}
	if opts.Depth == 0 {
		n.HasMore = true
		return n
	}
	next := opts
	if next.Depth > 0 {
		next.Depth--
	}
	n.Comments = make([]Node, 0, len(children))
	for _, c := range children {
		n.Comments = append(n.Comments, MapComment(c, next))
	}
	return n
}

func resolveName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return models.FallbackName(models.UserID(id))
}

func voteOf(n Node, viewer int64) Vote {
	if viewer == 0 {
		return None
	}
	if contains(n.LikedBy, viewer) {
		return Like
	}
	if contains(n.DislikedBy, viewer) {
		return Dislike
	}
	return None
}

func dedup(ids []models.UserID) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		v := int64(id)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// WithUser returns a copy of ids containing id.
func WithUser(ids []int64, id int64) []int64 {
	if contains(ids, id) {
		return ids
	}
	out := make([]int64, 0, len(ids)+1)
	out = append(out, ids...)
	out = append(out, id)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WithoutUser returns a copy of ids without id.
func WithoutUser(ids []int64, id int64) []int64 {
	if !contains(ids, id) {
		return ids
	}
	out := make([]int64, 0, len(ids)-1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// AuthorIDs 收集树中出现过的所有作者 ID，用于批量解析名字
func AuthorIDs(recs []models.Post) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	var visit func(models.Post)
	visit = func(p models.Post) {
		id := int64(p.AuthorID)
		if _, ok := seen[id]; !ok && id != 0 {
			seen[id] = struct{}{}
			out = append(out, id)
		}
		for _, c := range p.NestedComments() {
			visit(c)
		}
	}
	for _, r := range recs {
		visit(r)
	}
	return out
}
