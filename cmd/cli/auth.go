package main

import (
	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/service"
	"github.com/spf13/cobra"
)

var loginEmail string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Sign in to MacChain, create an account or reset a password",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAuthService(session).Login(cmd.Context(), loginEmail)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new MacChain account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAuthService(session).Register(cmd.Context())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAuthService(session).Logout()
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"me"},
	Short:   "Display the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAuthService(session).WhoAmI(cmd.Context())
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password [email]",
	Short: "Email a password reset link",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := ""
		if len(args) == 1 {
			email = args[0]
		}
		return service.NewAuthService(session).RequestReset(cmd.Context(), email)
	},
}

var confirmResetCmd = &cobra.Command{
	Use:   "confirm-reset [token]",
	Short: "Set a new password with a reset token",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := ""
		if len(args) == 1 {
			token = args[0]
		}
		return service.NewAuthService(session).ConfirmReset(cmd.Context(), token)
	},
}

var (
	profileDisplayName string
	profileBio         string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View or update your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return service.NewAuthService(session).WhoAmI(cmd.Context())
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your display name or bio",
	RunE: func(cmd *cobra.Command, args []string) error {
		var update api.ProfileUpdate
		if cmd.Flags().Changed("display-name") {
			update.DisplayName = &profileDisplayName
		}
		if cmd.Flags().Changed("bio") {
			update.Bio = &profileBio
		}
		return service.NewAuthService(session).UpdateProfile(cmd.Context(), update)
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")

	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
	authCmd.AddCommand(resetPasswordCmd)
	authCmd.AddCommand(confirmResetCmd)

	profileUpdateCmd.Flags().StringVar(&profileDisplayName, "display-name", "", "New display name")
	profileUpdateCmd.Flags().StringVar(&profileBio, "bio", "", "New bio")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
}
