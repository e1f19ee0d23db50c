package main

import (
	"fmt"
	"strings"

	"carelink/internal/models"
	"carelink/internal/utils"

	"github.com/spf13/cobra"
)

func runProfile(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	uid, ok := utils.ParseID(args[0])
	if !ok {
		return models.NewValidationError("invalid user id " + args[0])
	}
	profile, err := ws.Profile(cmd.Context(), uid)
	if err != nil {
		return err
	}
	if err := profile.Load(cmd.Context()); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, map[string]any{
			"profile": profile.Profile(),
			"isOwner": profile.IsOwner(),
			"rows":    profile.Rows(),
		})
	}
	printProfile(out, profile.Profile())
	fmt.Fprintln(out)
	printTree(out, profile)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	sc, err := ws.Search(cmd.Context())
	if err != nil {
		return err
	}
	users, err := sc.Search(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), users)
	}
	printUsers(cmd.OutOrStdout(), users)
	return nil
}

func runRecent(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	sc, err := ws.Search(cmd.Context())
	if err != nil {
		return err
	}
	queries, err := sc.Recent(cmd.Context())
	if err != nil {
		return err
	}
	profiles, err := sc.RecentProfiles(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, map[string]any{"searches": queries, "profiles": profiles})
	}
	fmt.Fprintln(out, "searches:", strings.Join(queries, ", "))
	fmt.Fprintln(out, "profiles:", strings.Join(profiles, ", "))
	return nil
}

// runAsk 每次调用都是新的对话，不保留历史
func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	ac, err := ws.Assistant(cmd.Context())
	if err != nil {
		return err
	}
	msg, err := ac.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), msg)
	}
	fmt.Fprintln(cmd.OutOrStdout(), utils.MarkdownText(msg.Content))
	return nil
}
