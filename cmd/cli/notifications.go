package main

import (
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	unreadOnly        bool
	notificationLimit int
	notificationSkip  int
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Your notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewNotificationService(session).List(cmd.Context(), unreadOnly, notificationLimit, notificationSkip)
	},
}

var notificationsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Number of unread notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewNotificationService(session).Count(cmd.Context())
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewNotificationService(session).Read(cmd.Context(), args[0])
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewNotificationService(session).ReadAll(cmd.Context())
	},
}

func init() {
	notificationsListCmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	notificationsListCmd.Flags().IntVar(&notificationLimit, "limit", 20, "Maximum results")
	notificationsListCmd.Flags().IntVar(&notificationSkip, "offset", 0, "Skip this many")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsCountCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsReadAllCmd)
}
