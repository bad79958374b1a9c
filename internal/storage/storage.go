// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"leekbot/internal/model"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
//
// The "newly inserted" bool on insert methods reports whether a row was
// actually added; a duplicate key is success-with-no-change, never an error.
// Window queries take the caller's "now" in milliseconds since epoch so time
// comparisons happen at query time.
type Storage interface {
	CreateUser(ctx context.Context, user *model.User, prefs model.UserPreferences) (bool, error)
	GetUser(ctx context.Context, username string) (*model.User, error)
	UpdateUserStats(ctx context.Context, user *model.User) error
	ListTrackedUsers(ctx context.Context) ([]model.User, error)

	SetTracked(ctx context.Context, username string, tracked bool) error
	GetPreferences(ctx context.Context, username string) (model.UserPreferences, error)
	UpsertPreferences(ctx context.Context, username string, prefs model.UserPreferences) error

	GetStreak(ctx context.Context, username string) (int64, error)
	IncrementStreak(ctx context.Context, username string) error
	ResetStreak(ctx context.Context, username string) error
	HasAcceptedSince(ctx context.Context, username string, sinceMillis int64) (bool, error)

	InsertProblem(ctx context.Context, p model.Problem) (bool, error)
	InsertSubmission(ctx context.Context, s model.Submission) (bool, error)
	RecentSubmissions(ctx context.Context, username string, nowMillis int64) ([]model.Submission, error)

	UncachedSubmissions(ctx context.Context, username string, nowMillis int64) ([]model.Submission, error)
	InsertCacheEntry(ctx context.Context, s model.Submission) (bool, error)
	PurgeCache(ctx context.Context, nowMillis int64) error

	Close() error
}
