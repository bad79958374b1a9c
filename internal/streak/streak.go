// Package streak maintains per-user daily activity streaks and performs the
// daily announcement cache maintenance.
package streak

import (
	"context"
	"log/slog"
	"time"

	"leekbot/internal/announce"
	"leekbot/internal/model"
	"leekbot/internal/storage"
)

// Sender is the interface for delivering streak announcements.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// Engine evaluates streaks for all tracked users once a day.
type Engine struct {
	store  storage.Storage
	sender Sender
	chatID int64
	log    *slog.Logger
}

// New creates a streak Engine announcing into the given chat.
func New(store storage.Storage, sender Sender, chatID int64, log *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		sender: sender,
		chatID: chatID,
		log:    log,
	}
}

// Evaluate runs one daily pass: per tracked user, extend or break the streak
// based on accepted activity in the last 24 hours, then purge announcement
// cache entries older than the recency threshold. Per-user failures are
// logged and never abort the remaining users.
func (e *Engine) Evaluate(ctx context.Context) error {
	users, err := e.store.ListTrackedUsers(ctx)
	if err != nil {
		e.log.Error("list tracked users", "error", err)
		return err
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return nil
		}
		e.evaluateUser(ctx, user)
	}

	if err := e.store.PurgeCache(ctx, time.Now().UnixMilli()); err != nil {
		e.log.Error("purge announcement cache", "error", err)
	}
	return nil
}

func (e *Engine) evaluateUser(ctx context.Context, user model.User) {
	now := time.Now().UnixMilli()

	active, err := e.store.HasAcceptedSince(ctx, user.Username, now-model.DayMillis)
	if err != nil {
		e.log.Error("check activity", "username", user.Username, "error", err)
		return
	}

	switch {
	case active:
		if err := e.store.IncrementStreak(ctx, user.Username); err != nil {
			e.log.Error("increment streak", "username", user.Username, "error", err)
			return
		}
		// Read back the post-increment value rather than trusting the
		// snapshot from ListTrackedUsers.
		streak, err := e.store.GetStreak(ctx, user.Username)
		if err != nil {
			e.log.Error("query streak", "username", user.Username, "error", err)
			return
		}
		e.sender.SendMessage(e.chatID, announce.StreakContinues(user.Username, streak))

	case user.Streak > 0:
		if err := e.store.ResetStreak(ctx, user.Username); err != nil {
			e.log.Error("reset streak", "username", user.Username, "error", err)
			return
		}
		e.sender.SendMessage(e.chatID, announce.StreakBroken(user.Username))

	default:
		// Inactive with no streak to lose; nothing to say.
	}
}
