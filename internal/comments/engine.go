// Package comments adds and deletes comments inside a nested tree with
// optimistic updates.
package comments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/optimistic"
	"carelink/internal/tree"
)

// Service is the comment part of the backend API.
type Service interface {
	AddComment(ctx context.Context, parentID int64, message string) (int64, error)
	DeleteComment(ctx context.Context, commentID int64) error
}

// Author is the viewer as shown on locally created comments.
type Author struct {
	ID   int64
	Name string
}

type Engine struct {
	svc    Service
	locks  *optimistic.Locks
	author Author
	now    func() time.Time
	newID  func() ident.NodeID
}

func NewEngine(svc Service, locks *optimistic.Locks, author Author) *Engine {
	if locks == nil {
		locks = optimistic.NewLocks()
	}
	return &Engine{
		svc:    svc,
		locks:  locks,
		author: author,
		now:    time.Now,
		newID:  ident.NewTemp,
	}
}

// Add 乐观地插入一条评论：先用临时 ID 插到父节点最前面，成功后原地换成服务端 ID，失败则移除
func (e *Engine) Add(ctx context.Context, store *tree.Store, parentID ident.NodeID, text string) (ident.NodeID, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ident.NodeID{}, models.NewValidationError("comment text is required")
	}
	if e.author.ID == 0 {
		return ident.NodeID{}, models.NewUnauthorizedError("sign in to comment")
	}
	if parentID.IsTemp() {
		return ident.NodeID{}, models.ErrParentPending
	}
	parentNum, ok := parentID.Numeric()
	if !ok {
		return ident.NodeID{}, models.NewValidationError("invalid parent id")
	}

	name := e.author.Name
	if name == "" {
		name = models.FallbackName(models.UserID(e.author.ID))
	}
	tmp := tree.Node{
		ID:       e.newID(),
		AuthorID: e.author.ID,
		Author:   name,
		Message:  text,
		Date:     e.now().Format(models.DateLayout),
		Pending:  true,
	}

	// 回复确认之前，父节点及其祖先不能被删除
	release, err := e.locks.Share(deleteKeys(store.Load(), parentID)...)
	if err != nil {
		return ident.NodeID{}, err
	}
	defer release()

	_, err = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		parent, found := tree.Find(nodes, parentID)
		if !found {
			return nil, models.NewNotFoundError("post", parentID)
		}
		if parent.Pending {
			return nil, models.ErrParentPending
		}
		if _, dup := tree.Find(nodes, tmp.ID); dup {
			return nil, fmt.Errorf("%w: %s", tree.ErrDuplicateID, tmp.ID)
		}
		out, _ := tree.InsertChild(nodes, parentID, tmp)
		return out, nil
	})
	if err != nil {
		return ident.NodeID{}, err
	}

	m := optimistic.Begin("comment_add", tmp.ID)
	serverID, err := e.svc.AddComment(ctx, parentNum, text)
	if err == nil && serverID <= 0 {
		err = models.NewInternalError(fmt.Errorf("server returned comment id %d", serverID))
	}
	if err != nil {
		tmpID, _ := m.Rollback()
		_, _ = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
			out, _ := tree.Remove(nodes, tmpID)
			return out, nil
		})
		return ident.NodeID{}, fmt.Errorf("add comment: %w", err)
	}

	m.Confirm()
	confirmed := ident.Comment(serverID)
	_, _ = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		out, _ := tree.Update(nodes, tmp.ID, func(n tree.Node) tree.Node {
			n.ID = confirmed
			n.Pending = false
			return n
		})
		return out, nil
	})
	return confirmed, nil
}

// Delete 乐观删除节点及其子树；失败时把子树放回原来的位置
func (e *Engine) Delete(ctx context.Context, store *tree.Store, id ident.NodeID) error {
	num, ok := id.Numeric()
	if !ok {
		return models.ErrParentPending
	}
	release, err := e.locks.Acquire(DeleteKey(id))
	if err != nil {
		return err
	}
	defer release()
	// 祖先节点持共享锁：删除进行中时不能整体重载或删除上层
	keys := deleteKeys(store.Load(), id)
	shared, err := e.locks.Share(keys[:len(keys)-1]...)
	if err != nil {
		return err
	}
	defer shared()

	type slot struct {
		parent ident.NodeID
		index  int
		node   tree.Node
	}
	var removed slot
	_, err = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
		parent, index, found := tree.Locate(nodes, id)
		if !found {
			return nil, models.NewNotFoundError("comment", id)
		}
		removed = slot{parent: parent, index: index}
		removed.node, _ = tree.Find(nodes, id)
		out, _ := tree.Remove(nodes, id)
		return out, nil
	})
	if err != nil {
		return err
	}

	m := optimistic.Begin("comment_delete", removed)
	if err := e.svc.DeleteComment(ctx, num); err != nil {
		back, _ := m.Rollback()
		// 只放回被删的子树，期间别处确认的回复保持不变
		_, _ = store.Apply(func(nodes []tree.Node) ([]tree.Node, error) {
			out, _ := tree.InsertAt(nodes, back.parent, back.index, back.node)
			return out, nil
		})
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	m.Confirm()
	return nil
}

// DeleteKey is the lock key a delete of id holds exclusively.
func DeleteKey(id ident.NodeID) string {
	return "delete:" + id.String()
}

// deleteKeys 从根到 id 的每个节点的删除锁
func deleteKeys(nodes []tree.Node, id ident.NodeID) []string {
	path, ok := tree.Path(nodes, id)
	if !ok {
		return []string{DeleteKey(id)}
	}
	keys := make([]string, 0, len(path))
	level := nodes
	for _, i := range path {
		keys = append(keys, DeleteKey(level[i].ID))
		level = level[i].Comments
	}
	return keys
}
