// Package model defines the domain types used across the application.
package model

import "time"

// RecentThresholdMillis is how far back a submission still counts as
// "recent". Submissions older than this are never announcement candidates,
// and announcement cache entries older than this are purged.
const RecentThresholdMillis = int64(8 * time.Hour / time.Millisecond)

// DayMillis is the streak activity window.
const DayMillis = int64(24 * time.Hour / time.Millisecond)

// User is a tracked LeetCode account. Username is the identity and is
// compared byte-exact, in upstream's casing.
type User struct {
	Username string

	EasySolved   int64
	MediumSolved int64
	HardSolved   int64
	TotalSolved  int64

	Ranking int64
	Streak  int64
}

// Problem is a LeetCode problem, keyed by title. Insert-if-absent; immutable
// after first sighting.
type Problem struct {
	Title      string
	Slug       string
	Difficulty string
}

// URL returns the canonical problem page URL.
func (p Problem) URL() string {
	return "https://leetcode.com/problems/" + p.Slug
}

// Submission is a single submission attempt, keyed by
// (problem, username, timestamp). Timestamp is upstream wall-clock time in
// milliseconds since epoch, not ingestion time.
type Submission struct {
	Problem Problem

	Username  string
	Language  string
	Timestamp int64
	Accepted  bool

	URL string
}

// AnnouncementPreferences controls how a user's submissions are announced.
type AnnouncementPreferences struct {
	AnnounceFailures  bool
	HasSubmissionLink bool
}

// UserPreferences holds per-user settings. A nil Announcement means the
// user's submissions are never announced, even while tracked.
type UserPreferences struct {
	Tracked      bool
	Announcement *AnnouncementPreferences
}

// DefaultPreferences returns the preferences assigned when a user is first
// tracked or referenced without an existing row.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Tracked: true,
		Announcement: &AnnouncementPreferences{
			AnnounceFailures:  false,
			HasSubmissionLink: true,
		},
	}
}
