package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/memorial/internal/client"
)

func (c *cli) newLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Long: `Sign in with email and password. The token is written to the credentials
file and used by create, update and delete.

When --password is omitted the password is read from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = p
			}

			req := client.LoginRequest{Email: strings.TrimSpace(email), Password: password}
			if err := req.Validate(); err != nil {
				return err
			}

			resp, err := c.session.Login(cmd.Context(), req.Email, req.Password)
			if err != nil {
				if client.IsUnauthorized(err) {
					return errors.New("invalid email or password")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (token expires %s)\n",
				resp.Email, resp.Expires.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default: read from stdin)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (c *cli) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) newRegisterCommand() *cobra.Command {
	var req client.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Email = strings.TrimSpace(req.Email)
			if err := req.Validate(); err != nil {
				return err
			}
			if err := c.session.Register(cmd.Context(), req); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s; run 'memorialctl login' to sign in\n", req.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password, at least 6 characters")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "Password again")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("confirm-password")

	return cmd
}

func (c *cli) newWhoamiCommand() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Show who is signed in according to the credentials file. The token is not
checked; pass --remote to ask the server, which verifies it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !remote {
				id := c.state.CurrentUser()
				if !id.Authenticated {
					fmt.Fprintln(out, "anonymous")
					return nil
				}
				fmt.Fprintln(out, id.Name)
				return nil
			}

			cred, err := c.credential(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := c.session.Client().Me(cmd.Context(), cred)
			if err != nil {
				if client.IsUnauthorized(err) {
					return errors.New("stored token was rejected; run 'memorialctl login' again")
				}
				return err
			}
			return printJSON(out, profile)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Verify the token with the server")

	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty input")
	}
	return line, nil
}
