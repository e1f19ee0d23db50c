package main

import (
	"github.com/spf13/cobra"
)

var (
	// global flags
	apiURL  string
	verbose bool
	asJSON  bool

	// login / register
	loginEmail    string
	loginPassword string
	loginRemember bool
	regName       string
	regSurname    string
	regBirth      string
	regRole       string

	feedCategory  string
	postCategory  string
	likersDislike bool

	rootCmd = &cobra.Command{
		Use:   "carelink",
		Short: "Terminal client for the CareLink health community",
		Long: `carelink talks to the CareLink REST backend with the same session,
optimistic voting and comment handling as the web gateway.

Sessions saved with --remember survive between runs; the others end
with the process.`,
		SilenceUsage: true,
	}

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE:  runRegister,
	}
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}

	feedCmd = &cobra.Command{
		Use:   "feed",
		Short: "List posts, optionally filtered by category",
		Args:  cobra.NoArgs,
		RunE:  runFeed,
	}
	categoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "List the post categories",
		Args:  cobra.NoArgs,
		RunE:  runCategories,
	}
	postCmd = &cobra.Command{
		Use:   "post [message]",
		Short: "Publish a new post",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPost,
	}
	showCmd = &cobra.Command{
		Use:   "show [post-id]",
		Short: "Show a post with its full comment tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	likeCmd = &cobra.Command{
		Use:   "like [post-id] [node]",
		Short: "Toggle a like on a post or comment (node like p_1 or c_7)",
		Args:  cobra.ExactArgs(2),
		RunE:  runLike,
	}
	dislikeCmd = &cobra.Command{
		Use:   "dislike [post-id] [node]",
		Short: "Toggle a dislike on a post or comment",
		Args:  cobra.ExactArgs(2),
		RunE:  runDislike,
	}
	replyCmd = &cobra.Command{
		Use:   "reply [post-id] [parent-node] [text]",
		Short: "Reply to a post or comment",
		Args:  cobra.MinimumNArgs(3),
		RunE:  runReply,
	}
	rmCmd = &cobra.Command{
		Use:   "rm [post-id] [node]",
		Short: "Delete your post or comment",
		Args:  cobra.ExactArgs(2),
		RunE:  runRemove,
	}
	likersCmd = &cobra.Command{
		Use:   "likers [post-id] [node]",
		Short: "List who liked (or with --dislikes, disliked) a node",
		Args:  cobra.ExactArgs(2),
		RunE:  runLikers,
	}

	profileCmd = &cobra.Command{
		Use:   "profile [user-id]",
		Short: "Show a user's profile and posts",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfile,
	}
	searchCmd = &cobra.Command{
		Use:   "search [query]",
		Short: "Search users by name",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	recentCmd = &cobra.Command{
		Use:   "recent",
		Short: "Show recent searches and recently viewed profiles",
		Args:  cobra.NoArgs,
		RunE:  runRecent,
	}
	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the health assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "backend base URL (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of text")

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", true, "keep the session between runs")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	registerCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	registerCmd.Flags().StringVar(&regName, "name", "", "first name")
	registerCmd.Flags().StringVar(&regSurname, "surname", "", "last name")
	registerCmd.Flags().StringVar(&regBirth, "birth", "", "date of birth (YYYY-MM-DD)")
	registerCmd.Flags().StringVar(&regRole, "role", "user", "doctor or user")
	registerCmd.Flags().BoolVar(&loginRemember, "remember", true, "keep the session between runs")

	feedCmd.Flags().StringVarP(&feedCategory, "category", "c", "", "only posts of this category")
	postCmd.Flags().StringVarP(&postCategory, "category", "c", "", "post category")
	likersCmd.Flags().BoolVar(&likersDislike, "dislikes", false, "list dislikes instead of likes")

	rootCmd.AddCommand(
		loginCmd, registerCmd, logoutCmd, whoamiCmd,
		feedCmd, categoriesCmd, postCmd, showCmd,
		likeCmd, dislikeCmd, replyCmd, rmCmd, likersCmd,
		profileCmd, searchCmd, recentCmd, askCmd,
	)
}
