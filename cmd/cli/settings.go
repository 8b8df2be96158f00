package main

import (
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var (
	acceptTerms     bool
	acceptPrivacy   bool
	acceptMarketing bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Notification and display settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show your settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewSettingsService(session).Get(cmd.Context())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Example: `  macchain settings set reminder_time 06:30
  macchain settings set email_enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewSettingsService(session).Set(cmd.Context(), args[0], args[1])
	},
}

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Terms, privacy and marketing consent",
}

var consentGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show your consent",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewSettingsService(session).Consent(cmd.Context())
	},
}

var consentAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Record consent",
	RunE: func(cmd *cobra.Command, args []string) error {
		var marketing *bool
		if cmd.Flags().Changed("marketing") {
			marketing = &acceptMarketing
		}
		return service.NewSettingsService(session).Accept(cmd.Context(), acceptTerms, acceptPrivacy, marketing)
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	consentAcceptCmd.Flags().BoolVar(&acceptTerms, "terms", false, "Accept the terms of service")
	consentAcceptCmd.Flags().BoolVar(&acceptPrivacy, "privacy", false, "Accept the privacy policy")
	consentAcceptCmd.Flags().BoolVar(&acceptMarketing, "marketing", false, "Opt in or out (--marketing=false) of marketing")
	consentCmd.AddCommand(consentGetCmd)
	consentCmd.AddCommand(consentAcceptCmd)
}
