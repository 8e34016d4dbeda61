package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ruleref/ruleref/internal/core/api"
	"github.com/ruleref/ruleref/internal/core/catalog"
	"github.com/ruleref/ruleref/internal/core/chat"
	"github.com/ruleref/ruleref/internal/core/config"
	"github.com/ruleref/ruleref/internal/core/conversation"
	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/models"
	"github.com/ruleref/ruleref/internal/core/session"
)

// GameSummary is a catalog entry in the list_games output.
type GameSummary struct {
	GameID      string   `json:"game_id"`
	Name        string   `json:"name"`
	Complexity  string   `json:"complexity"`
	MinPlayers  int      `json:"min_players"`
	MaxPlayers  int      `json:"max_players"`
	Categories  []string `json:"categories,omitempty"`
	Description string   `json:"description,omitempty"`
}

// RulesAnswer is the ask_rules output: the assistant's answer plus its
// cited sources and the conversation it was appended to.
type RulesAnswer struct {
	ConversationID string         `json:"conversation_id"`
	Answer         string         `json:"answer"`
	Confidence     float64        `json:"confidence,omitempty"`
	Sources        []AnswerSource `json:"sources,omitempty"`
}

// AnswerSource cites where an answer came from.
type AnswerSource struct {
	Type      string `json:"type"`
	Reference string `json:"reference"`
	Page      int    `json:"page,omitempty"`
}

// ConversationSummary is a conversation in the list_conversations output.
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	GameID         string `json:"game_id"`
	GameName       string `json:"game_name"`
	MessageCount   int    `json:"message_count"`
	LastMessageAt  string `json:"last_message_at,omitempty"`
	Active         bool   `json:"active"`
}

// SearchMatch is a message hit in the search_conversations output.
type SearchMatch struct {
	ConversationID    string `json:"conversation_id"`
	ConversationTitle string `json:"conversation_title"`
	Role              string `json:"role"`
	Snippet           string `json:"snippet"`
	Timestamp         string `json:"timestamp"`
}

// deps bundles everything the tool handlers need.
type deps struct {
	db      *db.DB
	catalog *catalog.Store
	convs   *conversation.Store
	chat    *chat.Service
	session *session.Store
}

// StartServer wires up the stores and serves MCP tools over stdio.
func StartServer(dbPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configDir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("failed to resolve config directory: %w", err)
	}

	sess, err := session.Open(configDir)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	// Stdio transport owns stdout, so logging stays off entirely.
	logger := charmlog.New(io.Discard)
	client := api.New(cfg.BaseURL, sess, logger)

	cat, err := catalog.New(database, client)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	convs, err := conversation.New(database)
	if err != nil {
		return fmt.Errorf("failed to open conversation store: %w", err)
	}

	d := &deps{
		db:      database,
		catalog: cat,
		convs:   convs,
		chat:    chat.New(convs, client, sess, logger),
		session: sess,
	}

	s := server.NewMCPServer(
		"ruleref",
		"1.0.0",
	)

	listGamesTool := mcp.NewTool("list_games",
		mcp.WithDescription("List the tabletop games available for rules questions, with complexity and player counts. Refreshes the catalog from the backend when logged in."),
		mcp.WithString("search",
			mcp.Description("Case-insensitive filter over name, description, and categories")),
		mcp.WithString("complexity",
			mcp.Description("Filter by complexity: easy, medium, or hard")),
	)
	s.AddTool(listGamesTool, d.handleListGames)

	askTool := mcp.NewTool("ask_rules",
		mcp.WithDescription("Ask a natural-language question about a game's rules. Requires a prior 'ruleref login'. The exchange is appended to the local conversation history."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The rules question to ask")),
		mcp.WithString("game_id",
			mcp.Required(),
			mcp.Description("Game to ask about (see list_games)")),
		mcp.WithBoolean("new_conversation",
			mcp.Description("Start a fresh conversation instead of continuing the active one")),
	)
	s.AddTool(askTool, d.handleAskRules)

	listConvsTool := mcp.NewTool("list_conversations",
		mcp.WithDescription("List saved rules conversations, newest first"),
		mcp.WithString("game_id",
			mcp.Description("Filter by game id")),
		mcp.WithNumber("limit",
			mcp.Description("Max conversations to return (default: 20)")),
	)
	s.AddTool(listConvsTool, d.handleListConversations)

	searchTool := mcp.NewTool("search_conversations",
		mcp.WithDescription("Full-text search over saved conversation messages. Supports FTS5 syntax: words, quoted phrases, AND/OR/NOT."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query to match against message content")),
		mcp.WithNumber("limit",
			mcp.Description("Max matches to return (default: 10)")),
	)
	s.AddTool(searchTool, d.handleSearchConversations)

	return server.ServeStdio(s)
}

func (d *deps) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Search     string `json:"search"`
		Complexity string `json:"complexity"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	// Best effort: a failed refresh still serves the cached catalog.
	if d.session.IsAuthenticated() {
		_ = d.catalog.LoadGames(ctx)
	}

	games := d.catalog.Filtered(args.Search, models.Complexity(args.Complexity))
	summaries := make([]GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, GameSummary{
			GameID:      g.GameID,
			Name:        g.Name,
			Complexity:  string(g.Complexity),
			MinPlayers:  g.MinPlayers,
			MaxPlayers:  g.MaxPlayers,
			Categories:  g.Categories,
			Description: g.Description,
		})
	}
	return jsonResult(map[string]interface{}{"games": summaries})
}

func (d *deps) handleAskRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Question        string `json:"question"`
		GameID          string `json:"game_id"`
		NewConversation bool   `json:"new_conversation"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Question == "" || args.GameID == "" {
		return mcp.NewToolResultError("question and game_id are required"), nil
	}
	if !d.session.IsAuthenticated() {
		return mcp.NewToolResultError("not logged in: run 'ruleref login' first"), nil
	}

	gameName := args.GameID
	if game, ok := d.catalog.Game(args.GameID); ok {
		gameName = game.Name
	}

	needNew := args.NewConversation ||
		d.convs.ActiveConversationID() == "" ||
		d.convs.CurrentGameID() != args.GameID
	if needNew {
		if _, err := d.convs.NewConversation(args.GameID, gameName); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to start conversation: %v", err)), nil
		}
	}

	answer, err := d.chat.Send(ctx, args.Question, args.GameID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	result := RulesAnswer{
		ConversationID: d.convs.ActiveConversationID(),
		Answer:         answer.Content,
	}
	if answer.Structured != nil {
		result.Confidence = answer.Structured.Content.Summary.Confidence
		for _, src := range answer.Structured.Content.Sources {
			as := AnswerSource{Type: src.Type, Reference: src.Reference}
			if src.Page != nil {
				as.Page = *src.Page
			}
			result.Sources = append(result.Sources, as)
		}
	}
	return jsonResult(result)
}

func (d *deps) handleListConversations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		GameID string  `json:"game_id"`
		Limit  float64 `json:"limit"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	limit := int(args.Limit)
	if limit <= 0 {
		limit = 20
	}

	conversations, err := d.convs.List(args.GameID, time.Time{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(conversations) > limit {
		conversations = conversations[:limit]
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		cs := ConversationSummary{
			ConversationID: c.ID,
			Title:          c.Title,
			GameID:         c.GameID,
			GameName:       c.GameName,
			MessageCount:   c.MessageCount,
			Active:         c.IsActive,
		}
		if !c.LastMessageAt.IsZero() {
			cs.LastMessageAt = c.LastMessageAt.Format("2006-01-02 15:04:05")
		}
		summaries = append(summaries, cs)
	}
	return jsonResult(map[string]interface{}{"conversations": summaries})
}

func (d *deps) handleSearchConversations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query string  `json:"query"`
		Limit float64 `json:"limit"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	limit := int(args.Limit)
	if limit <= 0 {
		limit = 10
	}

	results, err := d.db.SearchMessages(args.Query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	matches := make([]SearchMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, SearchMatch{
			ConversationID:    r.Message.ConversationID,
			ConversationTitle: r.ConversationTitle,
			Role:              string(r.Message.Role),
			Snippet:           r.Snippet,
			Timestamp:         r.Message.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}
	return jsonResult(map[string]interface{}{"matches": matches})
}

func decodeArgs(request mcp.CallToolRequest, out interface{}) error {
	raw, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
