package model

import (
	"fmt"
	"strconv"
)

// Preference keys accepted by ApplyPrefChange.
const (
	PrefAnnounce         = "announce"
	PrefAnnounceFailures = "announce_failures"
	PrefSubmissionLink   = "submission_link"
)

// PrefChange is a single key=value preference update.
type PrefChange struct {
	Key   string
	Value string
}

// ApplyPrefChange merges one change into existing preferences and returns the
// result. The input is not mutated. Unknown keys and non-boolean values are
// errors. Setting announce=false drops the announcement sub-record; setting a
// sub-field while the sub-record is absent first materializes it with
// defaults.
func ApplyPrefChange(prefs UserPreferences, change PrefChange) (UserPreferences, error) {
	val, err := strconv.ParseBool(change.Value)
	if err != nil {
		return prefs, fmt.Errorf("value for %q must be true or false, got %q", change.Key, change.Value)
	}

	out := prefs
	if prefs.Announcement != nil {
		ann := *prefs.Announcement
		out.Announcement = &ann
	}

	switch change.Key {
	case PrefAnnounce:
		if !val {
			out.Announcement = nil
		} else if out.Announcement == nil {
			out.Announcement = DefaultPreferences().Announcement
		}
	case PrefAnnounceFailures:
		ensureAnnouncement(&out)
		out.Announcement.AnnounceFailures = val
	case PrefSubmissionLink:
		ensureAnnouncement(&out)
		out.Announcement.HasSubmissionLink = val
	default:
		return prefs, fmt.Errorf("unknown preference %q", change.Key)
	}
	return out, nil
}

func ensureAnnouncement(p *UserPreferences) {
	if p.Announcement == nil {
		p.Announcement = DefaultPreferences().Announcement
	}
}
