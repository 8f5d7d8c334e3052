package bot

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/italolelis/tg_file_listener/internal/logctx"
)

// ErrNotConnected is returned by calls that need a live bot session.
var ErrNotConnected = errors.New("bot session is not initialized")

// Status describes the bot session for diagnostics.
type Status struct {
	Running  bool
	Username string
	Device   string
	Version  string
}

// Client owns the Telegram Bot API session. It is safe for concurrent use;
// Status may be called while the session is being established.
type Client struct {
	token      string
	endpoint   string
	httpClient *http.Client

	mu  sync.RWMutex
	api *tgbotapi.BotAPI
}

// NewClient creates a client. endpoint is a Bot API URL template such as tgbotapi.APIEndpoint.
func NewClient(token, endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		token:      token,
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// Connect validates the token against the Bot API and starts the session.
func (c *Client) Connect(ctx context.Context) error {
	logger := logctx.LoggerFromContext(ctx)

	if c.token == "" {
		return &AuthenticationError{Operation: "get_me", Err: errors.New("bot token is empty")}
	}

	api, err := tgbotapi.NewBotAPIWithClient(c.token, c.endpoint, c.httpClient)
	if err != nil {
		return classify("get_me", err)
	}

	c.mu.Lock()
	c.api = api
	c.mu.Unlock()

	logger.Info("initialized bot", "username", api.Self.UserName)

	return nil
}

// Updates starts long polling. The channel is closed by Stop.
func (c *Client) Updates(timeout int) (tgbotapi.UpdatesChannel, error) {
	api := c.session()
	if api == nil {
		return nil, ErrNotConnected
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = []string{"message", "edited_message", "channel_post", "edited_channel_post"}

	return api.GetUpdatesChan(u), nil
}

// Send delivers a message through the bot session.
func (c *Client) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	api := c.session()
	if api == nil {
		return tgbotapi.Message{}, ErrNotConnected
	}

	sent, err := api.Send(msg)
	if err != nil {
		return sent, classify("send_message", err)
	}

	return sent, nil
}

// Stop ends long polling. It is a no-op when never connected.
func (c *Client) Stop() {
	if api := c.session(); api != nil {
		api.StopReceivingUpdates()
	}
}

func (c *Client) Status() Status {
	api := c.session()
	if api == nil {
		return Status{}
	}

	return Status{
		Running:  true,
		Username: api.Self.UserName,
		Device:   runtime.GOOS + "/" + runtime.GOARCH,
		Version:  runtime.Version(),
	}
}

func (c *Client) session() *tgbotapi.BotAPI {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.api
}

func classify(operation string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return &AuthenticationError{Operation: operation, Err: err}
		}

		return &NetworkError{Operation: operation, StatusCode: apiErr.Code, APIMessage: apiErr.Message, Err: err}
	}

	return &NetworkError{Operation: operation, APIMessage: err.Error(), Err: err}
}
