package main

import (
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	watchTables []string
	watchFeed   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream realtime changes",
	Long: `Stream realtime changes until interrupted. Row changes are applied to the
local cache; with --feed the first feed page is kept up to date on screen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewWatchService(session).Watch(cmd.Context(), watchTables, watchFeed)
	},
}

var (
	forceClear bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send changes saved while offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewSyncService(session).Sync(cmd.Context())
	},
}

var syncPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List changes waiting to be sent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewSyncService(session).Pending()
	},
}

var syncClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard changes waiting to be sent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewSyncService(session).Clear(forceClear)
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchTables, "tables", nil, "Only these tables (default all)")
	watchCmd.Flags().BoolVar(&watchFeed, "feed", false, "Show a live feed view")

	syncClearCmd.Flags().BoolVarP(&forceClear, "force", "f", false, "Skip confirmation")
	syncCmd.AddCommand(syncPendingCmd)
	syncCmd.AddCommand(syncClearCmd)
}
