package main

import (
	"strings"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	feedPage     int
	feedLimit    int
	feedSort     string
	feedCategory string

	postTitle    string
	postContent  string
	postPassage  string
	postCategory string

	forceDelete bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Community discussions",
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discussions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Feed(cmd.Context(), api.ListParams{
			CategoryID: feedCategory,
			Page:       feedPage,
			Limit:      feedLimit,
			Sort:       feedSort,
		})
	},
}

var feedShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a discussion with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Show(cmd.Context(), args[0])
	},
}

var feedPostCmd = &cobra.Command{
	Use:   "post",
	Short: "Start a discussion",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := api.DiscussionInput{
			Title:            postTitle,
			Content:          postContent,
			PassageReference: postPassage,
		}
		if postCategory != "" {
			in.CategoryID = &postCategory
		}
		return service.NewCommunityService(session).Post(cmd.Context(), in)
	},
}

var feedEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit one of your discussions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var update api.DiscussionUpdate
		flags := cmd.Flags()
		if flags.Changed("title") {
			update.Title = &postTitle
		}
		if flags.Changed("content") {
			update.Content = &postContent
		}
		if flags.Changed("passage") {
			update.PassageReference = &postPassage
		}
		if flags.Changed("category") {
			update.CategoryID = &postCategory
		}
		return service.NewCommunityService(session).Edit(cmd.Context(), args[0], update)
	},
}

var feedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your discussions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Delete(cmd.Context(), args[0], forceDelete)
	},
}

var feedLikeCmd = &cobra.Command{
	Use:   "like <id>",
	Short: "Like or unlike a discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Like(cmd.Context(), args[0])
	},
}

var feedBookmarkCmd = &cobra.Command{
	Use:   "bookmark <id>",
	Short: "Bookmark or unbookmark a discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Bookmark(cmd.Context(), args[0])
	},
}

var feedBookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List your bookmarked discussions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Bookmarks(cmd.Context(), feedPage)
	},
}

var feedSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search discussion titles and content",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Search(cmd.Context(), strings.Join(args, " "), feedPage)
	},
}

var feedCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List discussion categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommunityService(session).Categories(cmd.Context())
	},
}

func init() {
	feedCmd.PersistentFlags().IntVar(&feedPage, "page", 1, "Page number")
	feedListCmd.Flags().IntVar(&feedLimit, "limit", 20, "Discussions per page (max 50)")
	feedListCmd.Flags().StringVar(&feedSort, "sort", "latest", "Sort order: latest, popular, oldest")
	feedListCmd.Flags().StringVar(&feedCategory, "category", "", "Only this category id")

	for _, c := range []*cobra.Command{feedPostCmd, feedEditCmd} {
		c.Flags().StringVar(&postTitle, "title", "", "Title")
		c.Flags().StringVar(&postContent, "content", "", "Body (prompted when omitted on post)")
		c.Flags().StringVar(&postPassage, "passage", "", "Passage reference, e.g. \"Genesis 1:1-5\"")
		c.Flags().StringVar(&postCategory, "category", "", "Category id")
	}
	feedDeleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation")

	feedCmd.AddCommand(feedListCmd)
	feedCmd.AddCommand(feedShowCmd)
	feedCmd.AddCommand(feedPostCmd)
	feedCmd.AddCommand(feedEditCmd)
	feedCmd.AddCommand(feedDeleteCmd)
	feedCmd.AddCommand(feedLikeCmd)
	feedCmd.AddCommand(feedBookmarkCmd)
	feedCmd.AddCommand(feedBookmarksCmd)
	feedCmd.AddCommand(feedSearchCmd)
	feedCmd.AddCommand(feedCategoriesCmd)
}
