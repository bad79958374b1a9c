package bot

import (
	"fmt"
	"strings"
	"time"

	"leekbot/internal/model"
)

// FormatUserStats renders a user's solve counts, ranking, and streak.
func FormatUserStats(u *model.User) string {
	return fmt.Sprintf("*User Stats:*\n\tEasy Solved: %d\n\tMedium Solved: %d\n\tHard Solved: %d\n\tTotal Solved: %d\n\tRanking: %d\n\tStreak: %d",
		u.EasySolved, u.MediumSolved, u.HardSolved, u.TotalSolved, u.Ranking, u.Streak)
}

// FormatAudit renders the audit reply: stats plus the tracked line.
func FormatAudit(u *model.User, tracked bool) string {
	not := ""
	if !tracked {
		not = "not "
	}
	return fmt.Sprintf("%s\nThis user is %scurrently being tracked.", FormatUserStats(u), not)
}

// FormatSubmission renders one submission in full detail.
func FormatSubmission(s model.Submission) string {
	status := "❌"
	if s.Accepted {
		status = "✅"
	}
	ts := time.UnixMilli(s.Timestamp).UTC().Format(time.RFC1123Z)
	return fmt.Sprintf("*Submission*: [%s](%s)\n\tAccepted?: %s\n\tURL: %s\n\tTimestamp: %s\n\tLanguage: `%s`",
		s.Problem.Title, s.Problem.URL(), status, s.URL, ts, s.Language)
}

// FormatTrackList renders the tracked username list.
func FormatTrackList(users []model.User) string {
	var b strings.Builder
	b.WriteString("*Tracked users:*")
	for _, u := range users {
		b.WriteString("\n\t")
		b.WriteString(u.Username)
	}
	return b.String()
}

func helpText(callToken rune) string {
	t := string(callToken)
	return fmt.Sprintf(`*Command List:*
`+"`%[1]saudit <leetcode username>`"+`: Get stats on a leetcode user.
`+"`%[1]srecent <leetcode username>`"+`: Get the most recent accepted submission from a leetcode user.
`+"`%[1]strack <leetcode username>`"+`: Track a user. New submissions from this user will be announced.
`+"`%[1]suntrack <leetcode username>`"+`: Untrack a user.
`+"`%[1]stracklist`"+`: List all tracked users.
`+"`%[1]sprefs <leetcode username> <key>=<value>[,...]`"+`: Update announcement preferences (announce, announce_failures, submission_link).
`+"`%[1]shelp`"+`: Get information on supported commands.`, t)
}
