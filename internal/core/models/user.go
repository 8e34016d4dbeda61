package models

// Theme is the user's display preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Preferences are the user-tunable settings attached to an account.
type Preferences struct {
	SelectedGameID string `json:"selected_game_id,omitempty"`
	Theme          Theme  `json:"theme,omitempty"`
}

// User is the authenticated identity as supplied by the backend.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Preferences Preferences `json:"preferences"`
}
