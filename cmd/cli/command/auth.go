package command

import (
	"fmt"
	"time"

	"lecturehub/cmd/cli/authentication"
	"lecturehub/cmd/cli/command/client"
	"lecturehub/cmd/cli/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Register, login and logout. Tokens are kept in the system keyring.`,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.RegisterRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")
		req.Email, _ = cmd.Flags().GetString("email")

		resp, err := client.NewHTTPClient(apiURL).Register(cmd.Context(), &req)
		if err != nil {
			return err
		}

		color.Green("✓ Registration successful! Please login to continue.")
		fmt.Printf("UserID: %s\n", resp.UserID)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.LoginRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")

		resp, err := client.NewHTTPClient(apiURL).Login(cmd.Context(), &req)
		if err != nil {
			return err
		}

		err = authentication.StoreTokens(&authentication.StoredCredentials{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			Username:     resp.Username,
			UserID:       resp.UserID,
			ExpiresAt:    time.Now().Unix() + resp.ExpiresIn,
		})
		if err != nil {
			return fmt.Errorf("failed to store tokens: %w", err)
		}

		color.Green("✓ Logged in as %s", resp.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout and forget stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if err == nil && creds.RefreshToken != "" {
			// revoke is best effort, the local tokens go regardless
			if err := client.NewHTTPClient(apiURL).RevokeToken(cmd.Context(), creds.RefreshToken); err != nil {
				color.Yellow("⚠ could not revoke session on server: %v", err)
			}
		}
		if err := authentication.DeleteTokens(); err != nil {
			return fmt.Errorf("failed to clear tokens: %w", err)
		}
		color.Green("✓ Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if err != nil {
			return err
		}
		fmt.Printf("User: %s\nUserID: %s\n", creds.Username, creds.UserID)
		fmt.Printf("Access token expires: %s\n", time.Unix(creds.ExpiresAt, 0).Format(time.RFC1123))
		return nil
	},
}

func init() {
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username for the new account")
	registerCmd.Flags().StringP("password", "p", "", "Password for the new account")
	registerCmd.Flags().StringP("email", "e", "", "Email address for the new account")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("password")
	_ = registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringP("username", "u", "", "Username for the account")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
}
