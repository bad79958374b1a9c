package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"leekbot/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func testSubmission(username, title string, ts int64, accepted bool) model.Submission {
	return model.Submission{
		Problem: model.Problem{
			Title:      title,
			Slug:       "two-sum",
			Difficulty: "Easy",
		},
		Username:  username,
		Language:  "go",
		Timestamp: ts,
		Accepted:  accepted,
		URL:       fmt.Sprintf("https://leetcode.com/submissions/%d/", ts),
	}
}

// mustInsert persists a submission and its problem, failing the test on error.
func mustInsert(t *testing.T, s *SQLite, sub model.Submission) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.InsertProblem(ctx, sub.Problem); err != nil {
		t.Fatalf("insert problem: %v", err)
	}
	if _, err := s.InsertSubmission(ctx, sub); err != nil {
		t.Fatalf("insert submission: %v", err)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	user := model.User{
		Username:     "alice",
		EasySolved:   10,
		MediumSolved: 5,
		HardSolved:   1,
		TotalSolved:  16,
		Ranking:      123456,
	}

	added, err := s.CreateUser(ctx, &user, model.DefaultPreferences())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !added {
		t.Fatal("expected first create to report newly added")
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(user, *got); diff != "" {
		t.Errorf("GetUser mismatch (-want +got):\n%s", diff)
	}

	// Second create is a no-op, not an error.
	added, err = s.CreateUser(ctx, &user, model.DefaultPreferences())
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if added {
		t.Error("duplicate create should not report newly added")
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestDB(t)
	_, err := s.GetUser(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	lower := model.User{Username: "alice"}
	upper := model.User{Username: "Alice"}
	if _, err := s.CreateUser(ctx, &lower, model.DefaultPreferences()); err != nil {
		t.Fatalf("create lower: %v", err)
	}
	added, err := s.CreateUser(ctx, &upper, model.DefaultPreferences())
	if err != nil {
		t.Fatalf("create upper: %v", err)
	}
	if !added {
		t.Fatal("differently-cased username should be a distinct user")
	}

	tracked, err := s.ListTrackedUsers(ctx)
	if err != nil {
		t.Fatalf("list tracked: %v", err)
	}
	if len(tracked) != 2 {
		t.Errorf("expected 2 tracked users, got %d", len(tracked))
	}
}

func TestUpdateUserStatsKeepsStreak(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	user := model.User{Username: "alice", TotalSolved: 10}
	if _, err := s.CreateUser(ctx, &user, model.DefaultPreferences()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.IncrementStreak(ctx, "alice"); err != nil {
		t.Fatalf("increment: %v", err)
	}

	user.TotalSolved = 11
	user.Ranking = 99999
	if err := s.UpdateUserStats(ctx, &user); err != nil {
		t.Fatalf("update stats: %v", err)
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.User{Username: "alice", TotalSolved: 11, Ranking: 99999, Streak: 1}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}
}

func TestListTrackedUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tracked := model.DefaultPreferences()
	untracked := model.DefaultPreferences()
	untracked.Tracked = false

	for _, u := range []struct {
		name  string
		prefs model.UserPreferences
	}{
		{"alice", tracked},
		{"bob", untracked},
		{"carol", tracked},
	} {
		user := model.User{Username: u.name}
		if _, err := s.CreateUser(ctx, &user, u.prefs); err != nil {
			t.Fatalf("create %s: %v", u.name, err)
		}
	}

	got, err := s.ListTrackedUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, u := range got {
		names = append(names, u.Username)
	}
	if diff := cmp.Diff([]string{"alice", "carol"}, names); diff != "" {
		t.Errorf("tracked users mismatch (-want +got):\n%s", diff)
	}
}

func TestSetTrackedMaterializesPreferences(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	// No preferences row exists for dave yet.
	if err := s.SetTracked(ctx, "dave", true); err != nil {
		t.Fatalf("set tracked: %v", err)
	}

	prefs, err := s.GetPreferences(ctx, "dave")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if diff := cmp.Diff(model.DefaultPreferences(), prefs); diff != "" {
		t.Errorf("preferences mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetTracked(ctx, "dave", false); err != nil {
		t.Fatalf("untrack: %v", err)
	}
	prefs, err = s.GetPreferences(ctx, "dave")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if prefs.Tracked {
		t.Error("expected tracked=false after untrack")
	}
	if prefs.Announcement == nil {
		t.Error("untracking must not clear announcement preferences")
	}
}

func TestUpsertPreferencesOverlay(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.UpsertPreferences(ctx, "alice", model.DefaultPreferences()); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	// Change only announce_failures; submission_link stays true.
	prefs, err := s.GetPreferences(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	prefs, err = model.ApplyPrefChange(prefs, model.PrefChange{Key: model.PrefAnnounceFailures, Value: "true"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.UpsertPreferences(ctx, "alice", prefs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetPreferences(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.UserPreferences{
		Tracked:      true,
		Announcement: &model.AnnouncementPreferences{AnnounceFailures: true, HasSubmissionLink: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("preferences mismatch (-want +got):\n%s", diff)
	}

	// Disabling announcements round-trips as a nil sub-record.
	got.Announcement = nil
	if err := s.UpsertPreferences(ctx, "alice", got); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = s.GetPreferences(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Announcement != nil {
		t.Error("expected nil announcement sub-record")
	}
}

func TestGetPreferencesNotFound(t *testing.T) {
	s := newTestDB(t)
	_, err := s.GetPreferences(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInsertSubmissionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	sub := testSubmission("alice", "Two Sum", nowMillis(), true)
	if _, err := s.InsertProblem(ctx, sub.Problem); err != nil {
		t.Fatalf("insert problem: %v", err)
	}

	added, err := s.InsertSubmission(ctx, sub)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !added {
		t.Fatal("expected first insert to report newly added")
	}

	added, err = s.InsertSubmission(ctx, sub)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if added {
		t.Error("duplicate insert should report not newly added")
	}

	subs, err := s.RecentSubmissions(ctx, "alice", nowMillis())
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected exactly 1 row, got %d", len(subs))
	}
	if diff := cmp.Diff(sub, subs[0]); diff != "" {
		t.Errorf("submission mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertProblemImmutable(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	first := model.Problem{Title: "Two Sum", Slug: "two-sum", Difficulty: "Easy"}
	if _, err := s.InsertProblem(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Re-inserting with different attributes must not change the stored row.
	changed := model.Problem{Title: "Two Sum", Slug: "other-slug", Difficulty: "Hard"}
	added, err := s.InsertProblem(ctx, changed)
	if err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	if added {
		t.Error("re-insert should report not newly added")
	}

	sub := testSubmission("alice", "Two Sum", nowMillis(), true)
	if _, err := s.InsertSubmission(ctx, sub); err != nil {
		t.Fatalf("insert submission: %v", err)
	}
	subs, err := s.RecentSubmissions(ctx, "alice", nowMillis())
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if diff := cmp.Diff(first, subs[0].Problem); diff != "" {
		t.Errorf("problem mismatch (-want +got):\n%s", diff)
	}
}

func TestUncachedSubmissionsRecencyBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := nowMillis()

	tests := []struct {
		name string
		ts   int64
		want bool
	}{
		{name: "just inside threshold", ts: now - (model.RecentThresholdMillis - 1), want: true},
		{name: "just outside threshold", ts: now - (model.RecentThresholdMillis + 1), want: false},
		{name: "current", ts: now, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustInsert(t, s, testSubmission("alice", "Problem "+tt.name, tt.ts, true))

			subs, err := s.UncachedSubmissions(ctx, "alice", now)
			if err != nil {
				t.Fatalf("uncached: %v", err)
			}
			found := false
			for _, sub := range subs {
				if sub.Timestamp == tt.ts {
					found = true
				}
			}
			if found != tt.want {
				t.Errorf("found = %v, want %v", found, tt.want)
			}
		})
	}
}

func TestUncachedSubmissionsExcludesCached(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := nowMillis()

	sub := testSubmission("alice", "Two Sum", now-1000, true)
	mustInsert(t, s, sub)

	subs, err := s.UncachedSubmissions(ctx, "alice", now)
	if err != nil {
		t.Fatalf("uncached: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 uncached submission, got %d", len(subs))
	}

	added, err := s.InsertCacheEntry(ctx, sub)
	if err != nil {
		t.Fatalf("cache insert: %v", err)
	}
	if !added {
		t.Fatal("expected cache entry to be newly added")
	}

	subs, err = s.UncachedSubmissions(ctx, "alice", now)
	if err != nil {
		t.Fatalf("uncached: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected 0 uncached submissions after caching, got %d", len(subs))
	}

	// Cache insert is idempotent too.
	added, err = s.InsertCacheEntry(ctx, sub)
	if err != nil {
		t.Fatalf("duplicate cache insert: %v", err)
	}
	if added {
		t.Error("duplicate cache insert should report not newly added")
	}
}

func TestPurgeCache(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := nowMillis()

	fresh := testSubmission("alice", "Fresh", now-1000, true)
	stale := testSubmission("alice", "Stale", now-(model.RecentThresholdMillis+1000), true)
	mustInsert(t, s, fresh)
	mustInsert(t, s, stale)
	for _, sub := range []model.Submission{fresh, stale} {
		if _, err := s.InsertCacheEntry(ctx, sub); err != nil {
			t.Fatalf("cache insert: %v", err)
		}
	}

	if err := s.PurgeCache(ctx, now); err != nil {
		t.Fatalf("purge: %v", err)
	}

	// The stale entry is gone; re-adding it reports newly added again. The
	// fresh one survived, so its re-add reports a duplicate.
	added, err := s.InsertCacheEntry(ctx, stale)
	if err != nil {
		t.Fatalf("re-insert stale: %v", err)
	}
	if !added {
		t.Error("stale cache entry should have been purged")
	}
	added, err = s.InsertCacheEntry(ctx, fresh)
	if err != nil {
		t.Fatalf("re-insert fresh: %v", err)
	}
	if added {
		t.Error("fresh cache entry should have survived the purge")
	}
}

func TestHasAcceptedSince(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := nowMillis()

	mustInsert(t, s, testSubmission("alice", "Old Accepted", now-model.DayMillis-1000, true))
	mustInsert(t, s, testSubmission("alice", "Recent Failed", now-1000, false))
	mustInsert(t, s, testSubmission("bob", "Recent Accepted", now-2000, true))

	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{name: "only stale or failed activity", username: "alice", want: false},
		{name: "recent accepted", username: "bob", want: true},
		{name: "no submissions at all", username: "carol", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasAcceptedSince(ctx, tt.username, now-model.DayMillis)
			if err != nil {
				t.Fatalf("has accepted since: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreakCounter(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	user := model.User{Username: "alice"}
	if _, err := s.CreateUser(ctx, &user, model.DefaultPreferences()); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementStreak(ctx, "alice"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	streak, err := s.GetStreak(ctx, "alice")
	if err != nil {
		t.Fatalf("get streak: %v", err)
	}
	if streak != 3 {
		t.Errorf("streak = %d, want 3", streak)
	}

	if err := s.ResetStreak(ctx, "alice"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	streak, err = s.GetStreak(ctx, "alice")
	if err != nil {
		t.Fatalf("get streak: %v", err)
	}
	if streak != 0 {
		t.Errorf("streak = %d, want 0 after reset", streak)
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)
