// Package reaction reconciles like/dislike votes: it applies the viewer's vote
// to the local tree at once, issues the matching add/cancel requests, and
// either keeps the result or restores the exact pre-vote state.
package reaction

import (
	"fmt"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/tree"
)

// Plan is the pure outcome of a vote intent against one node.
type Plan struct {
	Target ident.NodeID
	// TargetID is the numeric post/comment id sent to the backend.
	TargetID int64
	Before   tree.Node
	After    tree.Node
	// CancelID is the reaction record to cancel first; 0 when none.
	CancelID int64
	// Add is set when a new reaction must be created.
	Add    bool
	IsLike bool
}

// NewPlan 计算投票结果，不产生任何副作用
//
//	同票再点  → 取消原记录（必须有记录 ID）
//	无票      → 新增
//	改票      → 取消原记录后新增（同样需要记录 ID）
func NewPlan(n tree.Node, delta tree.Vote, viewer int64) (Plan, error) {
	if delta != tree.Like && delta != tree.Dislike {
		return Plan{}, models.NewValidationError(fmt.Sprintf("unknown vote %d", delta))
	}
	if viewer == 0 {
		return Plan{}, models.NewUnauthorizedError("sign in to react")
	}
	target, ok := n.ID.Numeric()
	if !ok || n.Pending {
		return Plan{}, models.NewValidationError("cannot react before the comment is saved")
	}

	p := Plan{Target: n.ID, TargetID: target, Before: n}
	after := n

	if n.Vote == delta {
		r, ok := n.ReactionOf(viewer, delta)
		if !ok || r.ID == 0 {
			return Plan{}, fmt.Errorf("%s: %w", n.ID, models.ErrReactionIDMissing)
		}
		p.CancelID = r.ID
		after = withVote(after, delta, viewer, false)
		after.Vote = tree.None
		p.After = after
		return p, nil
	}

	if n.Vote != tree.None {
		r, ok := n.ReactionOf(viewer, n.Vote)
		if !ok || r.ID == 0 {
			return Plan{}, fmt.Errorf("%s: %w", n.ID, models.ErrReactionIDMissing)
		}
		p.CancelID = r.ID
		after = withVote(after, n.Vote, viewer, false)
	}
	after = withVote(after, delta, viewer, true)
	after.Vote = delta
	p.Add = true
	p.IsLike = delta == tree.Like
	p.After = after
	return p, nil
}

func withVote(n tree.Node, v tree.Vote, viewer int64, on bool) tree.Node {
	switch v {
	case tree.Like:
		if on {
			n.LikedBy = tree.WithUser(n.LikedBy, viewer)
		} else {
			n.LikedBy = tree.WithoutUser(n.LikedBy, viewer)
		}
	case tree.Dislike:
		if on {
			n.DislikedBy = tree.WithUser(n.DislikedBy, viewer)
		} else {
			n.DislikedBy = tree.WithoutUser(n.DislikedBy, viewer)
		}
	}
	return n
}

// restoreVote copies the vote-related fields of snap onto cur, leaving the
// rest of cur (replies added meanwhile, for instance) alone.
func restoreVote(cur, snap tree.Node) tree.Node {
	cur.Vote = snap.Vote
	cur.LikedBy = snap.LikedBy
	cur.DislikedBy = snap.DislikedBy
	cur.Reactions = snap.Reactions
	return cur
}

// recordReactions swaps the cancelled record for the created one.
func recordReactions(cur tree.Node, cancelID int64, created *models.Reaction) tree.Node {
	out := make([]models.Reaction, 0, len(cur.Reactions)+1)
	for _, r := range cur.Reactions {
		if cancelID != 0 && r.ID == cancelID {
			continue
		}
		out = append(out, r)
	}
	if created != nil {
		out = append(out, *created)
	}
	if len(out) == 0 {
		out = nil
	}
	cur.Reactions = out
	return cur
}
