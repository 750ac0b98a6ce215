package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ziyad188/sentinel-bot-webwic/internal/sentinel"
)

func newLoginCmd() *cobra.Command {
	var (
		email    string
		password string
		noSave   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if email == "" {
				return fmt.Errorf("login requires --email")
			}

			if password == "" {
				password, err = promptSecret("Password: ")
				if err != nil {
					return err
				}
			}

			persist := a.cfg.PersistSession && !noSave

			ident, err := a.auth.Login(cmd.Context(), email, password, persist)
			if err != nil {
				return err
			}

			// A fresh session re-arms the expiry notification.
			a.api.SessionEstablished()

			statusf("Logged in as %s\n", ident.Email)

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "keep the session for this process only")

	return cmd
}

func newSignupCmd() *cobra.Command {
	var (
		email    string
		password string
		fullName string
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if email == "" {
				return fmt.Errorf("signup requires --email")
			}

			if password == "" {
				password, err = promptSecret("Password: ")
				if err != nil {
					return err
				}
			}

			params := sentinel.SignupParams{Email: email, Password: password, FullName: fullName}

			ident, err := a.auth.Signup(cmd.Context(), params, a.cfg.PersistSession)
			if errors.Is(err, sentinel.ErrConfirmationRequired) {
				statusf("Account created for %s. Check your email to confirm, then run `sentinelctl login`.\n", ident.Email)

				return nil
			}

			if err != nil {
				return err
			}

			a.api.SessionEstablished()

			statusf("Signed up and logged in as %s\n", ident.Email)

			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and clear local state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if err := a.auth.Logout(cmd.Context()); err != nil {
				// Local state is already cleared; the server-side failure
				// is worth reporting but the logout stands.
				statusf("Warning: %v\n", err)
			}

			statusf("Logged out.\n")

			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newLocalApp()
			if err != nil {
				return err
			}

			rec := a.store.Load()
			if rec == nil {
				fmt.Println("Not logged in.")

				return nil
			}

			cred := rec.Credential

			if flagJSON {
				return printJSON(map[string]any{
					"user_id":    cred.SubjectID,
					"email":      cred.Email,
					"expires_at": cred.ExpiresAt,
					"persist":    rec.Persist,
				})
			}

			fmt.Printf("User:    %s\n", cred.Email)
			fmt.Printf("ID:      %s\n", cred.SubjectID)

			ttl := cred.TTL(time.Now())
			if ttl > 0 {
				fmt.Printf("Expires: %s (in %s)\n", cred.ExpiresAt.Format(time.RFC3339), ttl.Truncate(time.Second))
			} else {
				fmt.Printf("Expires: %s (expired, will renew on next call)\n", cred.ExpiresAt.Format(time.RFC3339))
			}

			fmt.Printf("Persist: %v\n", rec.Persist)

			return nil
		},
	}
}

// promptSecret reads a secret from stdin with a stderr prompt. On a
// terminal the input is read without echo; piped input falls back to a
// plain line read.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)

		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}

		return string(secret), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}

	return strings.TrimSpace(line), nil
}
