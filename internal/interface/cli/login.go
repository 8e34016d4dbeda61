package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ruleref/ruleref/internal/core/api"
	"github.com/ruleref/ruleref/internal/core/session"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the rules API",
	Long: `Authenticate against the backend and store the bearer token locally.

The password is always prompted, never taken from arguments.

Examples:
  ruleref login
  ruleref login --username admin`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted if omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	username := loginUsername
	if username == "" {
		fmt.Print("Username: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	token, err := app.client.Login(context.Background(), username, password)
	if err != nil {
		if errors.Is(err, api.ErrAuthenticationFailed) {
			return fmt.Errorf("authentication failed: check your credentials")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	err = app.session.Login(token.AccessToken, token.User)
	if errors.Is(err, session.ErrNoIdentity) {
		fmt.Println("Logged in, but the server reported no user identity.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Printf("Logged in as %s\n", token.User.Username)
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
