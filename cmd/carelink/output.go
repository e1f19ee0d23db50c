package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"carelink/internal/controllers"
	"carelink/internal/models"
	"carelink/internal/tree"
)

// treeView is the read side shared by the feed, detail and profile pages.
type treeView interface {
	Rows() []tree.Row
	CanDelete(tree.Node) bool
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTree 每层缩进两格；折叠的节点提示用 show 查看
func printTree(w io.Writer, v treeView) {
	rows := v.Rows()
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no posts)")
		return
	}
	for _, r := range rows {
		n := r.Node
		indent := strings.Repeat("  ", r.Depth)
		mark := ""
		switch n.Vote {
		case tree.Like:
			mark = " [liked]"
		case tree.Dislike:
			mark = " [disliked]"
		}
		if n.Pending {
			mark += " [sending]"
		}
		if v.CanDelete(n) {
			mark += " [yours]"
		}
		head := fmt.Sprintf("%s%s  %s", indent, n.ID, n.Author)
		if n.Category != "" {
			head += "  #" + n.Category
		}
		if n.Date != "" {
			head += "  " + n.Date
		}
		fmt.Fprintf(w, "%s  +%d/-%d%s\n", head, n.Likes(), n.Dislikes(), mark)
		for _, line := range strings.Split(n.Message, "\n") {
			fmt.Fprintf(w, "%s  %s\n", indent, line)
		}
		if r.Collapsed {
			fmt.Fprintf(w, "%s  ... more replies: carelink show %s\n", indent, strings.TrimPrefix(controllers.DetailRoute(n.ID), "/posts/"))
		}
	}
}

func printToasts(w io.Writer, t *controllers.Toasts) {
	for _, toast := range t.Active() {
		fmt.Fprintf(w, "%s: %s\n", toast.Level, toast.Message)
	}
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "(nobody)")
		return
	}
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.DisplayName(), u.Role)
	}
}

func printProfile(w io.Writer, p models.Profile) {
	fmt.Fprintf(w, "%s (%s)\n", p.User.DisplayName(), p.User.Role)
	for _, d := range p.Diseases {
		fmt.Fprintf(w, "  disease #%d: %s since %s\n", d.ID, d.Name, d.DiagnosisDate)
	}
	for _, s := range p.Specializations {
		fmt.Fprintf(w, "  specialization #%d: %s, %d years\n", s.ID, s.Name, s.YearsOfExperience)
	}
	for _, a := range p.Addresses {
		fmt.Fprintf(w, "  address #%d: %s %s\n", a.ID, a.Address, a.City)
	}
	for _, c := range p.Contacts {
		fmt.Fprintf(w, "  contact #%d: %s %s\n", c.ID, c.Type, c.Value)
	}
	for _, a := range p.Announcements {
		fmt.Fprintf(w, "  announcement #%d: %s\n", a.ID, a.Text)
	}
}
