// Package tracker implements the submission polling cycle: pull recent
// submissions for every tracked user, persist what is new, and announce the
// submissions that have not been announced yet.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"leekbot/internal/announce"
	"leekbot/internal/model"
	"leekbot/internal/storage"
)

// Fetcher is the interface for pulling recent submissions from the upstream
// platform.
type Fetcher interface {
	FetchRecentSubmissions(ctx context.Context, username string) ([]model.Submission, error)
}

// Sender is the interface for delivering announcement messages.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// Tracker polls the upstream platform for tracked users and announces new
// submissions.
type Tracker struct {
	store   storage.Storage
	fetcher Fetcher
	sender  Sender
	chatID  int64
	log     *slog.Logger
}

// New creates a Tracker announcing into the given chat.
func New(store storage.Storage, fetcher Fetcher, sender Sender, chatID int64, log *slog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		fetcher: fetcher,
		sender:  sender,
		chatID:  chatID,
		log:     log,
	}
}

// PollOnce runs one polling cycle over all tracked users. A single user's
// failure is logged and never aborts the remaining users; only a failure to
// list the tracked set ends the cycle early.
func (t *Tracker) PollOnce(ctx context.Context) error {
	users, err := t.store.ListTrackedUsers(ctx)
	if err != nil {
		t.log.Error("list tracked users", "error", err)
		return err
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return nil
		}
		t.processUser(ctx, user)
	}
	return nil
}

func (t *Tracker) processUser(ctx context.Context, user model.User) {
	t.log.Debug("polling user", "username", user.Username)

	subs, err := t.fetcher.FetchRecentSubmissions(ctx, user.Username)
	if err != nil {
		t.log.Error("fetch recent submissions", "username", user.Username, "error", err)
		return
	}

	for _, sub := range subs {
		// Problem first: submissions reference it. Duplicates are
		// success-with-no-change on both inserts.
		if _, err := t.store.InsertProblem(ctx, sub.Problem); err != nil {
			t.log.Error("insert problem", "username", user.Username, "problem", sub.Problem.Title, "error", err)
			return
		}
		added, err := t.store.InsertSubmission(ctx, sub)
		if err != nil {
			t.log.Error("insert submission", "username", user.Username, "problem", sub.Problem.Title, "error", err)
			return
		}
		if added {
			t.log.Info("new submission", "username", user.Username, "problem", sub.Problem.Title, "accepted", sub.Accepted)
		}
	}

	t.announceUncached(ctx, user)
}

func (t *Tracker) announceUncached(ctx context.Context, user model.User) {
	now := time.Now().UnixMilli()

	uncached, err := t.store.UncachedSubmissions(ctx, user.Username, now)
	if err != nil {
		t.log.Error("query uncached submissions", "username", user.Username, "error", err)
		return
	}
	if len(uncached) == 0 {
		return
	}

	prefs, err := t.store.GetPreferences(ctx, user.Username)
	if err != nil {
		t.log.Error("query preferences", "username", user.Username, "error", err)
		return
	}

	sent := 0
	for _, sub := range uncached {
		// Cache-mark before dispatch so a failed send is never
		// re-announced on the next tick. Suppressed submissions are
		// marked too; once considered, never reconsidered.
		if _, err := t.store.InsertCacheEntry(ctx, sub); err != nil {
			t.log.Error("insert cache entry", "username", user.Username, "problem", sub.Problem.Title, "error", err)
			continue
		}

		msg, ok := announce.Format(sub, prefs.Announcement)
		if !ok {
			t.log.Debug("announcement suppressed by preferences",
				"username", user.Username, "problem", sub.Problem.Title, "accepted", sub.Accepted)
			continue
		}

		t.sender.SendMessage(t.chatID, msg)
		sent++
	}

	if sent > 0 {
		t.log.Info("sent announcements", "username", user.Username, "count", sent)
	}
}
