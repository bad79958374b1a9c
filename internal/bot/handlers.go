package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leekbot/internal/leetcode"
	"leekbot/internal/model"
	"leekbot/internal/storage"
)

func (b *Bot) handleAudit(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, fmt.Sprintf("Usage: %caudit <leetcode username>", b.cfg.CallToken))
		return
	}
	username := args[0]

	user, err := b.client.FetchUser(ctx, username)
	if err != nil {
		b.replyFetchError(chatID, username, err)
		return
	}

	if err := b.upsertUser(ctx, user); err != nil {
		b.log.Error("save user", "username", username, "error", err)
		b.reply(chatID, "Failed to save user stats.")
		return
	}

	tracked := false
	if prefs, err := b.store.GetPreferences(ctx, username); err == nil {
		tracked = prefs.Tracked
	}
	// Streak lives locally, not upstream.
	if streak, err := b.store.GetStreak(ctx, username); err == nil {
		user.Streak = streak
	}

	b.reply(chatID, FormatAudit(user, tracked))
}

func (b *Bot) handleRecent(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, fmt.Sprintf("Usage: %crecent <leetcode username>", b.cfg.CallToken))
		return
	}
	username := args[0]

	subs, err := b.client.FetchRecentlyCompleted(ctx, username)
	if err != nil {
		b.replyFetchError(chatID, username, err)
		return
	}
	if len(subs) == 0 {
		b.reply(chatID, fmt.Sprintf("No recently completed problems for %s.", username))
		return
	}

	b.reply(chatID, FormatSubmission(subs[0]))
}

func (b *Bot) handleTrack(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, fmt.Sprintf("Usage: %ctrack <leetcode username>", b.cfg.CallToken))
		return
	}
	username := args[0]

	user, err := b.client.FetchUser(ctx, username)
	if err != nil {
		b.replyFetchError(chatID, username, err)
		return
	}

	if err := b.upsertUser(ctx, user); err != nil {
		b.log.Error("save user", "username", username, "error", err)
		b.reply(chatID, "Failed to save user.")
		return
	}
	if err := b.store.SetTracked(ctx, username, true); err != nil {
		b.log.Error("set tracked", "username", username, "error", err)
		b.reply(chatID, "Failed to update tracking.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Now tracking %s. ✅", username))
}

func (b *Bot) handleUntrack(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, fmt.Sprintf("Usage: %cuntrack <leetcode username>", b.cfg.CallToken))
		return
	}
	username := args[0]

	if _, err := b.store.GetUser(ctx, username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("User %s is not known.", username))
			return
		}
		b.log.Error("get user", "username", username, "error", err)
		b.reply(chatID, "Failed to look up user.")
		return
	}
	if err := b.store.SetTracked(ctx, username, false); err != nil {
		b.log.Error("set tracked", "username", username, "error", err)
		b.reply(chatID, "Failed to update tracking.")
		return
	}

	b.reply(chatID, fmt.Sprintf("No longer tracking %s. ✅", username))
}

func (b *Bot) handleTrackList(ctx context.Context, chatID int64) {
	users, err := b.store.ListTrackedUsers(ctx)
	if err != nil {
		b.log.Error("list tracked users", "error", err)
		b.reply(chatID, fmt.Sprintf("Error retrieving tracklist: %v", err))
		return
	}
	b.reply(chatID, FormatTrackList(users))
}

func (b *Bot) handlePrefs(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		b.reply(chatID, fmt.Sprintf("Usage: %cprefs <leetcode username> <key>=<value>[,...]", b.cfg.CallToken))
		return
	}
	username := args[0]

	prefs, err := b.store.GetPreferences(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("User %s is not known. Track or audit them first.", username))
			return
		}
		b.log.Error("get preferences", "username", username, "error", err)
		b.reply(chatID, "Failed to load preferences.")
		return
	}

	changes, parseErr := ParsePrefChanges(strings.Join(args[1:], " "))

	// Apply left to right; a bad entry stops the walk but entries already
	// applied are still persisted.
	applied := 0
	var applyErr error
	for _, change := range changes {
		next, err := model.ApplyPrefChange(prefs, change)
		if err != nil {
			applyErr = err
			break
		}
		prefs = next
		applied++
	}

	if applied > 0 {
		if err := b.store.UpsertPreferences(ctx, username, prefs); err != nil {
			b.log.Error("save preferences", "username", username, "error", err)
			b.reply(chatID, "Failed to save preferences.")
			return
		}
	}

	switch {
	case parseErr != nil:
		b.reply(chatID, fmt.Sprintf("%v (%d change(s) applied)", parseErr, applied))
	case applyErr != nil:
		b.reply(chatID, fmt.Sprintf("%v (%d change(s) applied)", applyErr, applied))
	default:
		b.reply(chatID, fmt.Sprintf("Preferences updated for %s. ✅", username))
	}
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, helpText(b.cfg.CallToken))
}

// handleInsert records a fake submission stamped "now". Debug builds only.
func (b *Bot) handleInsert(ctx context.Context, chatID int64, args []string) {
	if !b.cfg.Debug {
		b.reply(chatID, "This command is only available in debug mode.")
		return
	}
	if len(args) < 3 {
		b.reply(chatID, fmt.Sprintf("Usage: %cinsert <username> <success|failure> <problem name>", b.cfg.CallToken))
		return
	}
	username := args[0]
	accepted := args[1] == "success"
	title := strings.Join(args[2:], " ")

	if _, err := b.store.GetUser(ctx, username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("User %s is not known.", username))
			return
		}
		b.log.Error("get user", "username", username, "error", err)
		b.reply(chatID, "Failed to look up user.")
		return
	}

	sub := model.Submission{
		Problem: model.Problem{
			Title:      title,
			Slug:       "no_url",
			Difficulty: "Unknown",
		},
		Username:  username,
		Language:  "no_language",
		Timestamp: time.Now().UnixMilli(),
		Accepted:  accepted,
		URL:       "no_url",
	}

	if _, err := b.store.InsertProblem(ctx, sub.Problem); err != nil {
		b.log.Error("insert problem", "title", title, "error", err)
		b.reply(chatID, "Failed to insert fake submission.")
		return
	}
	if _, err := b.store.InsertSubmission(ctx, sub); err != nil {
		b.log.Error("insert submission", "title", title, "error", err)
		b.reply(chatID, "Failed to insert fake submission.")
		return
	}

	b.reply(chatID, fmt.Sprintf("Inserted fake submission: %s", title))
}

// upsertUser stores a freshly fetched user, creating the row with default
// preferences on first sight and refreshing stats otherwise.
func (b *Bot) upsertUser(ctx context.Context, user *model.User) error {
	created, err := b.store.CreateUser(ctx, user, model.DefaultPreferences())
	if err != nil {
		return err
	}
	if !created {
		return b.store.UpdateUserStats(ctx, user)
	}
	return nil
}

func (b *Bot) replyFetchError(chatID int64, username string, err error) {
	if errors.Is(err, leetcode.ErrUserNotFound) {
		b.reply(chatID, fmt.Sprintf("No such user: %s.", username))
		return
	}
	b.log.Error("fetch user", "username", username, "error", err)
	b.reply(chatID, fmt.Sprintf("Failed to reach LeetCode for %s.", username))
}
