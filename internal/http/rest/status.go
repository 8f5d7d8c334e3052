package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/italolelis/tg_file_listener/internal/bot"
	"github.com/italolelis/tg_file_listener/internal/logctx"
)

type BotStatusProvider interface {
	Status() bot.Status
}

type BotStatus struct {
	Msg     string `json:"msg"`
	Device  string `json:"device,omitempty"`
	Version string `json:"version,omitempty"`
}

type ServerStatus struct {
	Msg string `json:"msg"`
}

type StatusResponse struct {
	Bot    BotStatus    `json:"bot"`
	Server ServerStatus `json:"server"`
}

// StatusHandler reports liveness of the bot session and of the HTTP listener.
// It never touches the link registry.
type StatusHandler struct {
	bot         BotStatusProvider
	client      *http.Client
	port        int
	pingURL     string
	pingTimeout time.Duration
}

// NewStatusHandler creates a status handler that probes the listener on
// localhost:port with a bounded wait.
func NewStatusHandler(botStatus BotStatusProvider, client *http.Client, port int, pingTimeout time.Duration) *StatusHandler {
	if client == nil {
		client = http.DefaultClient
	}

	return &StatusHandler{
		bot:         botStatus,
		client:      client,
		port:        port,
		pingURL:     fmt.Sprintf("http://localhost:%d/", port),
		pingTimeout: pingTimeout,
	}
}

func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Bot: BotStatus{Msg: "bot session is not initialized properly"},
	}

	if h.bot != nil {
		if s := h.bot.Status(); s.Running {
			resp.Bot = BotStatus{
				Msg:     "Bot is running with username:: " + s.Username,
				Device:  s.Device,
				Version: s.Version,
			}
		}
	}

	if h.ping(r.Context()) {
		resp.Server.Msg = fmt.Sprintf("Web server is running on port:: %d", h.port)
	} else {
		resp.Server.Msg = "Web server is not reachable"
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// ping reports whether the listener answers within the ping timeout. Any
// HTTP response counts as reachable.
func (h *StatusHandler) ping(ctx context.Context) bool {
	logger := logctx.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.pingURL, nil)
	if err != nil {
		logger.Error("failed to build ping request", "err", err)

		return false
	}

	resp, err := h.client.Do(req)
	if err != nil {
		logger.Warn("couldn't reach own web server", "err", err)

		return false
	}
	defer resp.Body.Close()

	logger.Debug("pinged server", "status", resp.StatusCode)

	return true
}
