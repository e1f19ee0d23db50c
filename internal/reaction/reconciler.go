package reaction

import (
	"context"
	"fmt"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/observability"
	"carelink/internal/optimistic"
	"carelink/internal/tree"
)

// Service is the part of the backend API the reconciler talks to.
// Posts and comments share one id space, so both use the same calls.
type Service interface {
	AddReaction(ctx context.Context, targetID int64, isLike bool) (models.Reaction, error)
	CancelReaction(ctx context.Context, reactionID int64) error
}

// ResyncFunc re-fetches the authoritative record(s) and replaces the local copy.
type ResyncFunc func(ctx context.Context) error

type Reconciler struct {
	svc    Service
	locks  *optimistic.Locks
	viewer int64
}

// NewReconciler; locks may be shared with other engines of the same page.
func NewReconciler(svc Service, locks *optimistic.Locks, viewer int64) *Reconciler {
	if locks == nil {
		locks = optimistic.NewLocks()
	}
	return &Reconciler{svc: svc, locks: locks, viewer: viewer}
}

// Pending reports whether a vote on id is still waiting for the server.
func (r *Reconciler) Pending(id ident.NodeID) bool {
	return r.locks.Busy(lockKey(id))
}

// Vote applies delta (tree.Like / tree.Dislike) to the node id in store.
//
// The local tree changes before any request is sent. On success the
// reaction records of the node are updated so that a later toggle-off
// cancels exactly the record created here, then resync (optional) reloads
// the authoritative state. On failure the node's vote and both user sets
// are put back as they were and the error is returned.
func (r *Reconciler) Vote(ctx context.Context, store *tree.Store, id ident.NodeID, delta tree.Vote, resync ResyncFunc) (tree.Node, error) {
	release, err := r.locks.Acquire(lockKey(id))
	if err != nil {
		return tree.Node{}, err
	}
	defer release()

	var plan Plan
	_, err = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		n, ok := tree.Find(nodes, id)
		if !ok {
			return nil, models.NewNotFoundError("post", id)
		}
		p, err := NewPlan(n, delta, r.viewer)
		if err != nil {
			return nil, err
		}
		plan = p
		out, _ := tree.Update(nodes, id, func(tree.Node) tree.Node { return p.After })
		return out, nil
	})
	if err != nil {
		return tree.Node{}, err
	}

	m := optimistic.Begin("vote", plan.Before)
	log := observability.FromContext(ctx)

	cancelled := false
	if plan.CancelID != 0 {
		if err := r.svc.CancelReaction(ctx, plan.CancelID); err != nil {
			return tree.Node{}, r.rollback(ctx, store, m, resync, false, err)
		}
		cancelled = true
	}

	var created *models.Reaction
	if plan.Add {
		rec, err := r.svc.AddReaction(ctx, plan.TargetID, plan.IsLike)
		if err != nil {
			return tree.Node{}, r.rollback(ctx, store, m, resync, cancelled, err)
		}
		if rec.ID != 0 {
			if rec.UserID == 0 {
				rec.UserID = models.UserID(r.viewer)
			}
			if rec.PostID == 0 {
				rec.PostID = plan.TargetID
			}
			rec.IsLike = plan.IsLike
			created = &rec
		}
	}

	m.Confirm()
	_, _ = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		out, _ := tree.Update(nodes, id, func(cur tree.Node) tree.Node {
			return recordReactions(cur, plan.CancelID, created)
		})
		return out, nil
	})

	if resync != nil {
		if err := resync(ctx); err != nil {
			// 乐观状态已被确认，刷新失败只记录
			log.Warn("resync after vote failed", "node", id.String(), "error", err)
		}
	}

	cur, _ := store.Find(id)
	return cur, nil
}

func (r *Reconciler) rollback(ctx context.Context, store *tree.Store, m *optimistic.Mutation[tree.Node], resync ResyncFunc, partial bool, cause error) error {
	snap, _ := m.Rollback()
	_, _ = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		out, _ := tree.Update(nodes, snap.ID, func(cur tree.Node) tree.Node {
			return restoreVote(cur, snap)
		})
		return out, nil
	})
	if partial && resync != nil {
		// 取消已经成功而新增失败，服务端状态已变，只能重新拉取
		if err := resync(ctx); err != nil {
			observability.FromContext(ctx).Warn("resync after partial vote failed", "node", snap.ID.String(), "error", err)
		}
	}
	return fmt.Errorf("vote on %s: %w", snap.ID, cause)
}

func lockKey(id ident.NodeID) string {
	return "vote:" + id.String()
}
