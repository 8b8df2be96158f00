package main

import (
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var statsPeriod int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Reading statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewStatsService(session).Summary(cmd.Context(), statsPeriod)
	},
}

var statsPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "When you read, by weekday",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewStatsService(session).Patterns(cmd.Context(), statsPeriod)
	},
}

var statsGrowthCmd = &cobra.Command{
	Use:   "growth",
	Short: "This period compared with the previous one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewStatsService(session).Growth(cmd.Context(), statsPeriod)
	},
}

func init() {
	statsCmd.PersistentFlags().IntVar(&statsPeriod, "period", 30, "Period in days (7-365)")
	statsCmd.AddCommand(statsPatternsCmd)
	statsCmd.AddCommand(statsGrowthCmd)
}
