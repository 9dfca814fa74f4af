package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/handlers"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/validation"
	"github.com/vertixec/THEARCHIVE/internal/session"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			req := api.SignInRequest{Email: strings.TrimSpace(email), Password: password}
			if err := validation.GetValidator().Validate(req); err != nil {
				return writeCommandError(cmd, err)
			}

			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			identity, err := ctx.Auth.SignIn(cmd.Context(), req.Email, req.Password)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(handlers.SessionResponse(session.State{Identity: identity}))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ACCESS GRANTED: %s\n", identity.Email)
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.Auth.SignOut(cmd.Context()); err != nil {
				return writeCommandError(cmd, err)
			}
			if !ctx.JSONMode {
				fmt.Fprintln(cmd.OutOrStdout(), "SESSION TERMINATED")
			}
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			resp := handlers.SessionResponse(ctx.Sessions.Snapshot())
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
			}
			if !resp.Authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", resp.Email, resp.UserID)
			return nil
		},
	}
}
