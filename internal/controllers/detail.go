package controllers

import (
	"context"

	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/tree"
)

// PostDetailController shows one post, or one comment opened on its own,
// with its whole reply tree. The root keeps its p_/c_ tag.
type PostDetailController struct {
	page
	id ident.NodeID
}

func NewPostDetailController(api Backend, env Env, id ident.NodeID) *PostDetailController {
	return &PostDetailController{page: newPage(api, env, tree.DepthFull), id: id}
}

func (c *PostDetailController) ID() ident.NodeID { return c.id }

func (c *PostDetailController) Load(ctx context.Context) error {
	c.status.loading()
	if err := c.load(ctx); err != nil {
		c.status.fail(err)
		return err
	}
	c.status.ready()
	return nil
}

func (c *PostDetailController) Retry(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *PostDetailController) load(ctx context.Context) error {
	num, ok := c.id.Numeric()
	if !ok || num <= 0 {
		return models.NewValidationError("invalid post id")
	}
	rec, err := c.api.Post(ctx, num)
	if err != nil {
		return err
	}
	root, err := c.mapRoot(ctx, rec, c.id)
	if err != nil {
		return err
	}
	c.store.Set([]tree.Node{root})
	return nil
}

// Post returns the loaded root node.
func (c *PostDetailController) Post() (tree.Node, bool) {
	return c.store.Find(c.ID())
}
