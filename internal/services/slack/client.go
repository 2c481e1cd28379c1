package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"convoy/internal/logging"
	"convoy/internal/services"
)

// DefaultAPIRoot is the public Slack Web API base URL.
const DefaultAPIRoot = "https://slack.com/api"

const (
	historyPageSize = 100
	usersPageSize   = 200
	maxErrorBody    = 512
)

// Config holds the Slack credentials and pacing.
type Config struct {
	Token             string
	DCookie           string
	APIRoot           string
	RequestsPerSecond float64
}

// Client is a read-only Slack Web API client. Every request waits on a
// shared rate limiter; nothing retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for skipped-thread warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client. A RequestsPerSecond of zero disables pacing.
func New(cfg Config, opts ...Option) *Client {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.DCookie = strings.TrimSpace(cfg.DCookie)
	cfg.APIRoot = strings.TrimRight(strings.TrimSpace(cfg.APIRoot), "/")
	if cfg.APIRoot == "" {
		cfg.APIRoot = DefaultAPIRoot
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "slack")
	return client
}

// APIError reports an {"ok": false} response.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

// Unwrap classifies Slack API failures as external errors.
func (e *APIError) Unwrap() error {
	return services.ErrExternal
}

// Message is a channel message or thread reply as Convoy stores it.
// ThreadTS is empty for top-level messages.
type Message struct {
	TS        string
	ThreadTS  string
	User      string
	Text      string
	Subtype   string
	Timestamp time.Time
}

// User is a workspace member.
type User struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
}

// Identity describes the workspace the token belongs to.
type Identity struct {
	TeamID string
	Team   string
	URL    string
	UserID string
}

type envelope struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error"`
	HasMore          bool   `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type apiMessage struct {
	TS         string `json:"ts"`
	ThreadTS   string `json:"thread_ts"`
	User       string `json:"user"`
	Text       string `json:"text"`
	Subtype    string `json:"subtype"`
	BotID      string `json:"bot_id"`
	ReplyCount int    `json:"reply_count"`
}

func (m apiMessage) isBot() bool {
	return m.BotID != "" || m.Subtype == "bot_message"
}

func (m apiMessage) toMessage(threadTS string) Message {
	user := m.User
	if user == "" {
		user = "unknown"
	}
	return Message{
		TS:        m.TS,
		ThreadTS:  threadTS,
		User:      user,
		Text:      m.Text,
		Subtype:   m.Subtype,
		Timestamp: ParseTS(m.TS),
	}
}

// ParseTS converts a Slack timestamp such as "1700000000.123456" to a time.
// Malformed values give the zero time.
func ParseTS(ts string) time.Time {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nanos int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		frac, err := strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return time.Time{}
		}
		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nanos = frac
	}
	return time.Unix(sec, nanos).UTC()
}

func formatTS(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10) + ".000000"
}

// History returns the channel's top-level messages posted between start and
// end, each followed by its thread replies. Replies that fail to load are
// logged and skipped so one bad thread does not lose the page.
func (c *Client) History(ctx context.Context, channelID string, start, end time.Time, includeBots bool) ([]Message, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, services.Wrap(services.ErrValidation, "slack", "history", "channel id is required", nil)
	}
	var (
		out    []Message
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("channel", channelID)
		params.Set("limit", strconv.Itoa(historyPageSize))
		params.Set("oldest", formatTS(start))
		params.Set("latest", formatTS(end))
		params.Set("inclusive", "true")
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var page struct {
			envelope
			Messages []apiMessage `json:"messages"`
		}
		if err := c.call(ctx, "conversations.history", params, &page); err != nil {
			return nil, err
		}
		for _, msg := range page.Messages {
			if msg.ThreadTS != "" && msg.ThreadTS != msg.TS {
				continue
			}
			if !includeBots && msg.isBot() {
				continue
			}
			out = append(out, msg.toMessage(""))
			if msg.ReplyCount == 0 {
				continue
			}
			replies, err := c.Replies(ctx, channelID, msg.TS, includeBots)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logging.WarnWithContext(logging.WithContext(ctx, c.logger), "thread replies skipped", "slack_replies_failed",
					logging.String("thread_ts", msg.TS),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the thread will be missing its replies until the next sync"),
					logging.String(logging.FieldImpact, "thread synced without replies"),
				)
				continue
			}
			out = append(out, replies...)
		}
		cursor = page.ResponseMetadata.NextCursor
		if !page.HasMore || cursor == "" {
			break
		}
	}
	return out, nil
}

// Replies returns the replies of one thread, without the parent message.
func (c *Client) Replies(ctx context.Context, channelID, threadTS string, includeBots bool) ([]Message, error) {
	var (
		out    []Message
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("channel", channelID)
		params.Set("ts", threadTS)
		params.Set("limit", strconv.Itoa(historyPageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var page struct {
			envelope
			Messages []apiMessage `json:"messages"`
		}
		if err := c.call(ctx, "conversations.replies", params, &page); err != nil {
			return nil, err
		}
		for _, msg := range page.Messages {
			if msg.TS == threadTS {
				continue
			}
			if !includeBots && msg.isBot() {
				continue
			}
			out = append(out, msg.toMessage(threadTS))
		}
		cursor = page.ResponseMetadata.NextCursor
		if !page.HasMore || cursor == "" {
			break
		}
	}
	return out, nil
}

// Users lists the workspace's active human members.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var (
		out    []User
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(usersPageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var page struct {
			envelope
			Members []struct {
				ID       string `json:"id"`
				Name     string `json:"name"`
				RealName string `json:"real_name"`
				Deleted  bool   `json:"deleted"`
				IsBot    bool   `json:"is_bot"`
				Profile  struct {
					DisplayName string `json:"display_name"`
				} `json:"profile"`
			} `json:"members"`
		}
		if err := c.call(ctx, "users.list", params, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Members {
			if m.Deleted || m.IsBot {
				continue
			}
			out = append(out, User{
				ID:          m.ID,
				Name:        m.Name,
				RealName:    m.RealName,
				DisplayName: m.Profile.DisplayName,
			})
		}
		// users.list signals more pages with the cursor alone.
		cursor = page.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}
	return out, nil
}

// AuthTest reports which workspace and user the token belongs to.
func (c *Client) AuthTest(ctx context.Context) (Identity, error) {
	var resp struct {
		envelope
		TeamID string `json:"team_id"`
		Team   string `json:"team"`
		URL    string `json:"url"`
		UserID string `json:"user_id"`
	}
	if err := c.call(ctx, "auth.test", url.Values{}, &resp); err != nil {
		return Identity{}, err
	}
	return Identity{TeamID: resp.TeamID, Team: resp.Team, URL: resp.URL, UserID: resp.UserID}, nil
}

type okResponse interface {
	result() envelope
}

func (e envelope) result() envelope { return e }

func (c *Client) call(ctx context.Context, method string, params url.Values, out okResponse) error {
	if c.cfg.Token == "" {
		return services.Wrap(services.ErrConfiguration, "slack", method, "slack token is not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("slack %s: wait for rate limiter: %w", method, err)
	}
	endpoint := c.cfg.APIRoot + "/" + method
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("slack %s: new request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if c.cfg.DCookie != "" {
		req.Header.Set("Cookie", "d="+c.cfg.DCookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternal, "slack", method, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("slack %s: read body: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return services.Wrap(services.ErrExternal, "slack", method, fmt.Sprintf("http %d: %s", resp.StatusCode, snippet), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrExternal, "slack", method, "decode response", err)
	}
	if env := out.result(); !env.OK {
		code := env.Error
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}
	return nil
}

// IsAPIError reports whether err is a Slack API error with the given code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
