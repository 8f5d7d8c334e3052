package bot

import (
	"context"
	"fmt"
	"html"
	"runtime/debug"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/italolelis/tg_file_listener/internal/extract"
	"github.com/italolelis/tg_file_listener/internal/logctx"
	"github.com/italolelis/tg_file_listener/internal/notifier"
	"github.com/italolelis/tg_file_listener/internal/storage"
	"github.com/italolelis/tg_file_listener/internal/telemetry"
)

const startCommand = "start"

// Sender delivers replies to the chat platform.
type Sender interface {
	Send(msg tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dispatcher turns chat updates from allow-listed chats into registry writes.
type Dispatcher struct {
	links     storage.LinkRepository
	sender    Sender
	allowed   map[int64]struct{}
	notifier  notifier.Notifier
	telemetry *telemetry.Telemetry
}

// NewDispatcher creates a dispatcher. notif may be nil.
func NewDispatcher(links storage.LinkRepository, sender Sender, allowedChats []int64, notif notifier.Notifier, tel *telemetry.Telemetry) *Dispatcher {
	allowed := make(map[int64]struct{}, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = struct{}{}
	}

	return &Dispatcher{
		links:     links,
		sender:    sender,
		allowed:   allowed,
		notifier:  notif,
		telemetry: tel,
	}
}

// Run handles updates until ctx is done or the channel is closed.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	logger := logctx.LoggerFromContext(ctx)

	logger.Info("listening for chat updates", "authorized_chats", len(d.allowed))

	for {
		select {
		case <-ctx.Done():
			logger.Info("dispatcher shutdown", "reason", "context_cancelled")

			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				logger.Info("dispatcher shutdown", "reason", "updates_closed")

				return nil
			}

			d.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update. A panic is recovered and logged so
// one malformed update cannot stop the listener.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	logger := logctx.LoggerFromContext(ctx).With("update_id", update.UpdateID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("update handler panic", "panic", r, "stack", string(debug.Stack()))
			d.telemetry.RecordSystemError("bot", "panic")
		}
	}()

	_ = d.telemetry.InstrumentBotUpdate(ctx, func(ctx context.Context) error {
		outcome := d.handle(logctx.WithLogger(ctx, logger), update)
		d.telemetry.RecordBotUpdate(outcome)

		return nil
	})
}

func (d *Dispatcher) handle(ctx context.Context, update tgbotapi.Update) string {
	logger := logctx.LoggerFromContext(ctx)

	msg, edited := message(update)
	if msg == nil || msg.Chat == nil {
		return "ignored"
	}

	logger = logger.With("chat_id", msg.Chat.ID, "edited", edited)

	if !d.isAllowed(msg.Chat.ID) {
		logger.DebugContext(ctx, "ignoring update from unauthorized chat")

		return "unauthorized"
	}

	ctx = logctx.WithLogger(ctx, logger)

	if msg.IsCommand() && msg.Command() == startCommand {
		d.greet(ctx, msg)

		return "start"
	}

	return d.register(ctx, msg)
}

func (d *Dispatcher) register(ctx context.Context, msg *tgbotapi.Message) string {
	logger := logctx.LoggerFromContext(ctx)

	normalized := FromTelegram(msg)
	if att := normalized.Attachment; att != nil {
		logger.InfoContext(ctx, "received file",
			"kind", att.Kind,
			"file_name", att.FileName,
			"file_unique_id", att.UniqueID,
			"file_size", humanize.Bytes(uint64(max(att.Size, 0))),
		)
	}

	record, err := extract.Extract(normalized)
	if err != nil {
		if normalized.Attachment != nil {
			logger.InfoContext(ctx, "no download link registered", "reason", err.Error())
		} else {
			logger.DebugContext(ctx, "no file in message")
		}

		return "no_metadata"
	}

	d.links.Put(ctx, record.FileID, record)

	logger.InfoContext(ctx, "registered download link",
		"file_unique_id", record.FileID,
		"download_link", record.DownloadLink,
		"registry_size", d.links.Len(),
	)

	if d.notifier != nil {
		go d.notify(context.WithoutCancel(ctx), record)
	}

	return "registered"
}

func (d *Dispatcher) notify(ctx context.Context, record storage.LinkRecord) {
	logger := logctx.LoggerFromContext(ctx)

	name := record.FileName
	if name == "" {
		name = record.FileID
	}

	if err := d.notifier.Notify(ctx, "🔗 Download link registered for: "+name+" ("+record.FileID+")"); err != nil {
		logger.ErrorContext(ctx, "failed to send notification", "file_unique_id", record.FileID, "err", err)
		d.telemetry.RecordNotification("error")

		return
	}

	d.telemetry.RecordNotification("success")
}

func (d *Dispatcher) greet(ctx context.Context, msg *tgbotapi.Message) {
	logger := logctx.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "start command received", "username", msg.Chat.UserName)

	reply := tgbotapi.NewMessage(msg.Chat.ID, greeting(msg.Chat.UserName))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID
	reply.DisableNotification = true

	if _, err := d.sender.Send(reply); err != nil {
		logger.ErrorContext(ctx, "failed to send start message", "err", err)
	}
}

func (d *Dispatcher) isAllowed(chatID int64) bool {
	_, ok := d.allowed[chatID]

	return ok
}

// message picks the message carried by the update; edits go through the same path.
func message(update tgbotapi.Update) (*tgbotapi.Message, bool) {
	switch {
	case update.Message != nil:
		return update.Message, false
	case update.ChannelPost != nil:
		return update.ChannelPost, false
	case update.EditedMessage != nil:
		return update.EditedMessage, true
	case update.EditedChannelPost != nil:
		return update.EditedChannelPost, true
	}

	return nil, false
}

func greeting(username string) string {
	name := ""
	if username != "" {
		name = fmt.Sprintf("<b><i>%s</i></b>", html.EscapeString(username))
	}

	return fmt.Sprintf("Hey %s\nWelcome to <b>File Listener Bot</b>.\n"+
		"Add me to a Telegram Channel and I will monitor for document & video files sent into it. "+
		"I will store the file details and serve them using API.", name)
}
