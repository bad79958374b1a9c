// Package bot is the Telegram adapter: it parses incoming chat commands,
// dispatches them to handlers, and sends outgoing messages.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leekbot/internal/config"
	"leekbot/internal/model"
	"leekbot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Fetcher is the upstream client surface the command handlers need.
type Fetcher interface {
	FetchUser(ctx context.Context, username string) (*model.User, error)
	FetchRecentlyCompleted(ctx context.Context, username string) ([]model.Submission, error)
}

// Bot handles chat commands and sends announcements on behalf of the engines.
type Bot struct {
	api    telegramAPI
	store  storage.Storage
	client Fetcher
	cfg    *config.Config
	log    *slog.Logger
}

// New creates a Bot using the token from cfg.
func New(store storage.Storage, client Fetcher, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:    api,
		store:  store,
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
// Only plain text messages starting with the call token are treated as
// commands; everything else is ignored.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			cmd, ok := ParseCommand(update.Message.Text, b.cfg.CallToken)
			if !ok {
				continue
			}
			b.handleCommand(ctx, update.Message.Chat.ID, cmd)
		}
	}
}

// SendMessage sends a Markdown message to the given chat. On failure it makes
// one best-effort attempt to report the error to the chat, then gives up and
// logs.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
		fallback := tgbotapi.NewMessage(chatID, "Oops, internal error.")
		if _, err := b.api.Send(fallback); err != nil {
			b.log.Error("send fallback message", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd Command) {
	b.log.Debug("command", "cmd", cmd.Name, "args", cmd.Args, "chat_id", chatID)

	switch cmd.Name {
	case "audit":
		b.handleAudit(ctx, chatID, cmd.Args)
	case "recent":
		b.handleRecent(ctx, chatID, cmd.Args)
	case "track":
		b.handleTrack(ctx, chatID, cmd.Args)
	case "untrack":
		b.handleUntrack(ctx, chatID, cmd.Args)
	case "tracklist":
		b.handleTrackList(ctx, chatID)
	case "prefs":
		b.handlePrefs(ctx, chatID, cmd.Args)
	case "help":
		b.handleHelp(chatID)
	case "insert":
		b.handleInsert(ctx, chatID, cmd.Args)
	default:
		if IsWellFormedCommand(cmd.Name) {
			b.log.Info("unknown command", "cmd", cmd.Name)
			b.reply(chatID, fmt.Sprintf("No such command found: %s, see %chelp for commands.", cmd.Name, b.cfg.CallToken))
		} else {
			b.log.Info("invalid command", "cmd", cmd.Name)
			b.reply(chatID, "Invalid command syntax.")
		}
	}
}
