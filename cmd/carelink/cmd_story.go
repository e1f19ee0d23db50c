package main

import (
	"fmt"
	"strings"

	"carelink/internal/controllers"
	"carelink/internal/ident"
	"carelink/internal/models"
	"carelink/internal/tree"

	"github.com/spf13/cobra"
)

func runFeed(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	feed, err := ws.Feed(cmd.Context(), strings.TrimSpace(feedCategory))
	if err != nil {
		return err
	}
	if err := feed.Load(cmd.Context()); err != nil {
		return err
	}
	return render(cmd, feed)
}

func runCategories(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	cats, err := ws.API.Categories(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), cats)
	}
	for _, c := range cats {
		fmt.Fprintln(cmd.OutOrStdout(), c.Name)
	}
	return nil
}

func runPost(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	feed, err := ws.Feed(cmd.Context(), "")
	if err != nil {
		return err
	}
	n, err := feed.CreatePost(cmd.Context(), strings.Join(args, " "), postCategory)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", n.ID)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	detail, err := loadDetail(cmd, args[0])
	if err != nil {
		return err
	}
	return render(cmd, detail)
}

func runLike(cmd *cobra.Command, args []string) error {
	return vote(cmd, args, tree.Like)
}

func runDislike(cmd *cobra.Command, args []string) error {
	return vote(cmd, args, tree.Dislike)
}

// vote 同一票再投一次就是取消
func vote(cmd *cobra.Command, args []string, delta tree.Vote) error {
	detail, err := loadDetail(cmd, args[0])
	if err != nil {
		return err
	}
	id, err := parseNode(args[1])
	if err != nil {
		return err
	}
	n, err := detail.Vote(cmd.Context(), id, delta)
	if err != nil {
		printToasts(cmd.ErrOrStderr(), detail.Toasts())
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (+%d/-%d)\n", n.ID, n.Vote, n.Likes(), n.Dislikes())
	return nil
}

func runReply(cmd *cobra.Command, args []string) error {
	detail, err := loadDetail(cmd, args[0])
	if err != nil {
		return err
	}
	parent, err := parseNode(args[1])
	if err != nil {
		return err
	}
	id, err := detail.AddComment(cmd.Context(), parent, strings.Join(args[2:], " "))
	if err != nil {
		printToasts(cmd.ErrOrStderr(), detail.Toasts())
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "replied %s\n", id)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	detail, err := loadDetail(cmd, args[0])
	if err != nil {
		return err
	}
	id, err := parseNode(args[1])
	if err != nil {
		return err
	}
	if id.IsPost() {
		err = detail.DeletePost(cmd.Context(), id)
	} else {
		err = detail.DeleteComment(cmd.Context(), id)
	}
	if err != nil {
		printToasts(cmd.ErrOrStderr(), detail.Toasts())
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}

func runLikers(cmd *cobra.Command, args []string) error {
	detail, err := loadDetail(cmd, args[0])
	if err != nil {
		return err
	}
	id, err := parseNode(args[1])
	if err != nil {
		return err
	}
	users, err := detail.Reactors(cmd.Context(), id, !likersDislike)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), users)
	}
	printUsers(cmd.OutOrStdout(), users)
	return nil
}

func loadDetail(cmd *cobra.Command, arg string) (*controllers.PostDetailController, error) {
	if err := requireSession(cmd); err != nil {
		return nil, err
	}
	id, err := controllers.ParseDetailID(arg)
	if err != nil {
		return nil, err
	}
	detail, err := ws.Detail(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := detail.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return detail, nil
}

func parseNode(s string) (ident.NodeID, error) {
	id, err := ident.Parse(s)
	if err != nil {
		return ident.NodeID{}, models.NewValidationError("invalid node id " + s + " (want p_<n> or c_<n>)")
	}
	return id, nil
}

func render(cmd *cobra.Command, v treeView) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, v.Rows())
	}
	printTree(out, v)
	return nil
}
