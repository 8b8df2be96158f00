package main

import (
	"fmt"
	"strconv"

	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	historyFrom string
	historyTo   string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show readings from the plan",
}

var planTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Today's readings and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewPlanService(session).Today(cmd.Context())
	},
}

var planDayCmd = &cobra.Command{
	Use:   "day <n>",
	Short: "Readings for plan day n (1-365)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("day must be a number: %w", err)
		}
		return service.NewPlanService(session).Day(cmd.Context(), n)
	},
}

var planDateCmd = &cobra.Command{
	Use:   "date <YYYY-MM-DD>",
	Short: "Readings and progress for a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewPlanService(session).Date(cmd.Context(), args[0])
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Mark readings and review your history",
}

var progressDoneCmd = &cobra.Command{
	Use:   "done <date> <readingId>",
	Short: "Mark a reading as read",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProgress(cmd, args, true)
	},
}

var progressUndoCmd = &cobra.Command{
	Use:   "undo <date> <readingId>",
	Short: "Mark a reading as unread",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProgress(cmd, args, false)
	},
}

var progressHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Completed readings per day",
	Long:  "Completed readings per day. Without --from and --to the last 30 days are shown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewPlanService(session).History(cmd.Context(), historyFrom, historyTo)
	},
}

var progressMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Current plan day and streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewPlanService(session).Progress(cmd.Context())
	},
}

func setProgress(cmd *cobra.Command, args []string, done bool) error {
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("reading id must be a number: %w", err)
	}
	date := args[0]
	if date == "today" {
		date = ""
	}
	return service.NewPlanService(session).SetDone(cmd.Context(), date, id, done)
}

func init() {
	planCmd.AddCommand(planTodayCmd)
	planCmd.AddCommand(planDayCmd)
	planCmd.AddCommand(planDateCmd)

	progressHistoryCmd.Flags().StringVar(&historyFrom, "from", "", "First date (YYYY-MM-DD)")
	progressHistoryCmd.Flags().StringVar(&historyTo, "to", "", "Last date (YYYY-MM-DD)")

	progressCmd.AddCommand(progressDoneCmd)
	progressCmd.AddCommand(progressUndoCmd)
	progressCmd.AddCommand(progressHistoryCmd)
	progressCmd.AddCommand(progressMeCmd)
}
