package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ruleref/ruleref/internal/core/config"
	"github.com/ruleref/ruleref/internal/core/models"
)

// TokenSource supplies the bearer credential for authenticated calls.
// The session store implements it.
type TokenSource interface {
	Token() (string, bool)
}

// Client talks to the tabletop-rules backend. It owns no state beyond
// configuration; every call is an independent request.
type Client struct {
	baseURL string
	tokens  TokenSource

	// Chat queries run retrieval + inference server-side and need a
	// longer deadline than simple calls.
	httpClient  *http.Client
	queryClient *http.Client

	log *log.Logger
}

// New creates a client against the given base URL. tokens may be nil for
// unauthenticated use (login/register only).
func New(baseURL string, tokens TokenSource, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: config.RequestTimeout},
		queryClient: &http.Client{Timeout: config.QueryTimeout},
		log:         logger,
	}
}

// TokenResponse is the body of a successful POST /token.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in,omitempty"`
	User        *models.User `json:"user,omitempty"`
}

// RegisterResponse is the body of a successful POST /api/auth/register.
type RegisterResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
}

// Login exchanges credentials for a bearer token. 401 and 422 both map to
// ErrAuthenticationFailed; anything else non-2xx is a ServerError.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug("login request", "url", req.URL.String(), "username", username)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusUnprocessableEntity:
		c.log.Debug("login rejected", "status", resp.StatusCode)
		return nil, ErrAuthenticationFailed
	default:
		return nil, &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &token, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, username, email, password string) (*RegisterResponse, error) {
	payload := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}{username, email, password}

	body, err := c.postJSON(ctx, c.httpClient, "/api/auth/register", payload, false)
	if err != nil {
		return nil, err
	}

	var reg RegisterResponse
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &reg, nil
}

// Games fetches the full catalog. The API wraps the list: {"games": [...]}.
func (c *Client) Games(ctx context.Context) ([]models.Game, error) {
	body, err := c.get(ctx, "/api/games/")
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Games []models.Game `json:"games"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, &DecodeError{Err: err}
	}
	c.log.Debug("fetched games", "count", len(wrapper.Games))
	return wrapper.Games, nil
}

// Game fetches a single catalog entry by id.
func (c *Client) Game(ctx context.Context, gameID string) (*models.Game, error) {
	body, err := c.get(ctx, "/api/games/"+url.PathEscape(gameID))
	if err != nil {
		return nil, err
	}

	var game models.Game
	if err := json.Unmarshal(body, &game); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &game, nil
}

// StructuredChatResponse is the preferred wire shape for chat answers.
type StructuredChatResponse struct {
	Query        string                     `json:"query"`
	GameSystem   string                     `json:"game_system"`
	Structured   *models.StructuredResponse `json:"structured_response"`
	SearchMethod string                     `json:"search_method"`
	Timestamp    string                     `json:"timestamp"`
}

// legacyQueryResponse is the pre-structured wire shape: a flat chunk list.
type legacyQueryResponse struct {
	Results []models.RuleChunk `json:"results"`
	Query   string             `json:"query"`
}

// Query sends a chat question for one game system. Requires a token.
//
// The endpoint can answer in two shapes. The discriminant is the presence
// of the structured_response key; when it is absent the legacy chunk list
// is converted into an equivalent structured response. Decode failures of
// whichever shape was detected are real errors, not a reason to try the
// other shape.
func (c *Client) Query(ctx context.Context, query, gameSystem string) (*StructuredChatResponse, error) {
	payload := struct {
		Query      string `json:"query"`
		GameSystem string `json:"game_system"`
	}{query, gameSystem}

	body, err := c.postJSON(ctx, c.queryClient, "/api/chat/query", payload, true)
	if err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if _, ok := probe["structured_response"]; ok {
		var structured StructuredChatResponse
		if err := json.Unmarshal(body, &structured); err != nil {
			return nil, &DecodeError{Err: err}
		}
		if structured.Structured == nil {
			return nil, &DecodeError{Err: fmt.Errorf("structured_response is null")}
		}
		c.log.Debug("chat answer", "method", structured.SearchMethod, "sections", len(structured.Structured.Content.Sections))
		return &structured, nil
	}

	var legacy legacyQueryResponse
	if err := json.Unmarshal(body, &legacy); err != nil {
		return nil, &DecodeError{Err: err}
	}
	c.log.Debug("chat answer (legacy)", "chunks", len(legacy.Results))
	return convertLegacyResponse(legacy, query, gameSystem), nil
}

// get performs an authenticated-if-possible GET and returns the body on 200.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	c.authorize(req, false)
	return c.do(c.httpClient, req)
}

// postJSON performs a JSON POST. requireToken makes a missing credential an
// ErrNoToken instead of an anonymous request.
func (c *Client) postJSON(ctx context.Context, hc *http.Client, path string, payload any, requireToken bool) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if requireToken {
		if ok := c.authorize(req, true); !ok {
			return nil, ErrNoToken
		}
	}
	return c.do(hc, req)
}

// authorize attaches the bearer header when a token is available.
func (c *Client) authorize(req *http.Request, required bool) bool {
	if c.tokens == nil {
		return !required
	}
	token, ok := c.tokens.Token()
	if !ok {
		return !required
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return true
}

func (c *Client) do(hc *http.Client, req *http.Request) ([]byte, error) {
	c.log.Debug("request", "method", req.Method, "url", req.URL.String())

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	c.log.Debug("response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
