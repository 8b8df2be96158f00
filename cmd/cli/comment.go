package main

import (
	"strings"

	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	commentParent string
	forceComment  bool
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Comments on discussions",
}

var commentListCmd = &cobra.Command{
	Use:   "list <discussionId>",
	Short: "Show the comment thread of a discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommentService(session).List(cmd.Context(), args[0])
	},
}

var commentAddCmd = &cobra.Command{
	Use:   "add <discussionId> [text...]",
	Short: "Comment on a discussion",
	Long:  "Comment on a discussion. Use --reply-to to answer another comment. Without text the comment is read from the terminal.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommentService(session).Add(cmd.Context(), args[0], strings.Join(args[1:], " "), commentParent)
	},
}

var commentEditCmd = &cobra.Command{
	Use:   "edit <commentId> <text...>",
	Short: "Edit one of your comments",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommentService(session).Edit(cmd.Context(), args[0], strings.Join(args[1:], " "))
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <commentId>",
	Short: "Delete one of your comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommentService(session).Delete(cmd.Context(), args[0], forceComment)
	},
}

var commentLikeCmd = &cobra.Command{
	Use:   "like <commentId>",
	Short: "Like or unlike a comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewCommentService(session).Like(cmd.Context(), args[0])
	},
}

func init() {
	commentAddCmd.Flags().StringVar(&commentParent, "reply-to", "", "Parent comment id")
	commentDeleteCmd.Flags().BoolVarP(&forceComment, "force", "f", false, "Skip confirmation")

	commentCmd.AddCommand(commentListCmd)
	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentEditCmd)
	commentCmd.AddCommand(commentDeleteCmd)
	commentCmd.AddCommand(commentLikeCmd)
}
