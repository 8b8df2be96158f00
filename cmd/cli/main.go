package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/macchain/backend/pkg/config"
	"github.com/macchain/backend/pkg/logger"
	"github.com/macchain/backend/pkg/output"
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
	authToken  string

	session *service.Session
)

var rootCmd = &cobra.Command{
	Use:   "macchain",
	Short: "MacChain CLI - daily Bible reading from the terminal",
	Long: `MacChain CLI gives command-line access to the MacChain reading plan.
Track today's readings, review your statistics, take part in community
discussions and watch changes arrive in real time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("initializing config: %w", err)
		}
		logger.Init(verbose)

		if !output.ValidateOutputFormat(outputFmt) {
			return fmt.Errorf("unknown output format %q (text, table, json, yaml)", outputFmt)
		}
		config.Set("output.format", outputFmt)

		if authToken == "" {
			authToken = os.Getenv("MACCHAIN_TOKEN")
		}
		s, err := service.NewSession(authToken)
		if err != nil {
			return err
		}
		session = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.macchain/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Access token (defaults to stored credentials or MACCHAIN_TOKEN)")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(analysisCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(consentCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if session != nil {
		session.Close()
	}
	logger.Close()
	if err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
}
