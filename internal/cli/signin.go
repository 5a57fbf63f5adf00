package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewSignInCommand creates the signin command.
func NewSignInCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in as an administrator",
		Long: `Exchange email and password for an administrative session.

The password is read from --password, then $` + EnvPassword + `, then the
first line of standard input. Only administrator accounts can sign in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(EnvPassword)
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			console, _, err := openConsole(cmd, rootOpts, nil)
			if err != nil {
				return err
			}
			defer console.Close()

			user, err := console.SignIn(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			return printUser(cmd.OutOrStdout(), rootOpts.Format, "signed in as ", user)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prefer $"+EnvPassword+")")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// NewSignOutCommand creates the signout command.
func NewSignOutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console, _, err := openConsole(cmd, rootOpts, nil)
			if err != nil {
				return err
			}
			defer console.Close()

			console.SignOut(cmd.Context())
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"signed_out": true})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return err
		},
	}
}

// NewWhoAmICommand creates the whoami command.
func NewWhoAmICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console, _, err := openConsole(cmd, rootOpts, nil)
			if err != nil {
				return err
			}
			defer console.Close()

			snap := console.Session()
			if !snap.Authenticated() {
				return errors.New("not signed in")
			}
			return printUser(cmd.OutOrStdout(), rootOpts.Format, "", snap.User)
		},
	}
}
