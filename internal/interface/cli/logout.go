package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear local state",
	Long: `Clear the stored token and identity.

Conversation history and the game selection are reset explicitly here;
the session store itself never reaches into other stores.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.session.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := app.catalog.Reset(); err != nil {
		return fmt.Errorf("failed to reset catalog: %w", err)
	}
	if err := app.convs.Reset(); err != nil {
		return fmt.Errorf("failed to reset conversations: %w", err)
	}

	fmt.Println("Logged out.")
	return nil
}
