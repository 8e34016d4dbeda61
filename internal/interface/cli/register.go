package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	registerUsername string
	registerEmail    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Register a new account with the rules API.

Examples:
  ruleref register
  ruleref register --username newbie --email n@example.com`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username (prompted if omitted)")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Email address (prompted if omitted)")
}

func runRegister(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	reader := bufio.NewReader(os.Stdin)

	username := registerUsername
	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	email := registerEmail
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if username == "" || email == "" {
		return fmt.Errorf("username and email are required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	reg, err := app.client.Register(context.Background(), username, email, password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if reg.Message != "" {
		fmt.Println(reg.Message)
	} else {
		fmt.Println("Account created.")
	}
	fmt.Println("Run 'ruleref login' to sign in.")
	return nil
}
