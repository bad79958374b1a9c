// Package announce turns submissions and streak transitions into chat
// messages according to per-user announcement preferences.
package announce

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"leekbot/internal/model"
)

// Format renders a submission as an announcement message. The second return
// value is false when the user's preferences suppress the announcement; that
// is not an error, and the caller must not confuse it with a failure.
func Format(sub model.Submission, prefs *model.AnnouncementPreferences) (string, bool) {
	if prefs == nil {
		return "", false
	}

	if sub.Accepted {
		var b strings.Builder
		fmt.Fprintf(&b, "✅ %s just completed [%s](%s)!", sub.Username, sub.Problem.Title, sub.Problem.URL())
		if prefs.HasSubmissionLink {
			b.WriteString("\n\t")
			b.WriteString(sub.URL)
		}
		return b.String(), true
	}

	if !prefs.AnnounceFailures {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❌ %s just submitted an attempt for [%s](%s), but %s",
		sub.Username, sub.Problem.Title, sub.Problem.URL(), misattemptRemark())
	if prefs.HasSubmissionLink {
		b.WriteString("\n\t")
		b.WriteString(sub.URL)
	}
	return b.String(), true
}

// StreakContinues is the positive daily announcement. Value is the
// post-increment streak.
func StreakContinues(username string, streak int64) string {
	return fmt.Sprintf("%s is on a roll with a streak of %d!", username, streak)
}

// StreakBroken is the daily announcement for a lapsed streak.
func StreakBroken(username string) string {
	return fmt.Sprintf("%s lost their streak!", username)
}

var misattemptFirst = []string{
	"they missed the mark.",
	"they flubbed it.",
	"didn't quite make it.",
	"no cigar.",
	"they need to try again.",
	"didn't get it.",
	"didn't succeed.",
	"they missed a few cases.",
	"they got caught by the edge cases.",
	"they might have missed a case.",
}

var misattemptSecond = []string{
	"Try again!",
	"Keep trying!",
	"Do you think they'll make it?",
	"I wonder if they'll give up...",
	"Oops...",
	"Ouch.",
	"Are they cooked?",
	"A horrible performance, really.",
	"Wow.",
}

// misattemptRemark picks one clause from each list, uniformly and
// independently per call.
func misattemptRemark() string {
	return pick(misattemptFirst, "they borked it.") + " " + pick(misattemptSecond, "Try again!")
}

func pick(list []string, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	return list[rand.IntN(len(list))]
}
