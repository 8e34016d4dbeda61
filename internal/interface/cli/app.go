package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/ruleref/ruleref/internal/core/api"
	"github.com/ruleref/ruleref/internal/core/catalog"
	"github.com/ruleref/ruleref/internal/core/chat"
	"github.com/ruleref/ruleref/internal/core/config"
	"github.com/ruleref/ruleref/internal/core/conversation"
	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/session"
)

// app wires the stores, the API client, and the chat service together.
// Constructed once per command invocation and passed down explicitly;
// nothing here is a package-level singleton.
type app struct {
	cfg      *config.Config
	db       *db.DB
	session  *session.Store
	catalog  *catalog.Store
	convs    *conversation.Store
	client   *api.Client
	chat     *chat.Service
	log      *log.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := log.New(io.Discard)
	if verbose {
		logger = log.New(os.Stderr)
		logger.SetLevel(log.DebugLevel)
	}

	configDir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}

	sess, err := session.Open(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := api.New(cfg.BaseURL, sess, logger)

	cat, err := catalog.New(database, client)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	convs, err := conversation.New(database)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	return &app{
		cfg:     cfg,
		db:      database,
		session: sess,
		catalog: cat,
		convs:   convs,
		client:  client,
		chat:    chat.New(convs, client, sess, logger),
		log:     logger,
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

// requireAuth errors out early with a friendly hint instead of letting a
// command fail on the first 401.
func (a *app) requireAuth() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in. Run 'ruleref login' first")
	}
	return nil
}
