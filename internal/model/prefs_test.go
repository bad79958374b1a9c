package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApplyPrefChange(t *testing.T) {
	withAnn := func(fail, link bool) UserPreferences {
		return UserPreferences{
			Tracked:      true,
			Announcement: &AnnouncementPreferences{AnnounceFailures: fail, HasSubmissionLink: link},
		}
	}
	noAnn := UserPreferences{Tracked: true}

	tests := []struct {
		name    string
		prefs   UserPreferences
		change  PrefChange
		want    UserPreferences
		wantErr bool
	}{
		{
			name:   "disable announce drops sub-record",
			prefs:  withAnn(true, true),
			change: PrefChange{Key: PrefAnnounce, Value: "false"},
			want:   noAnn,
		},
		{
			name:   "enable announce restores defaults",
			prefs:  noAnn,
			change: PrefChange{Key: PrefAnnounce, Value: "true"},
			want:   withAnn(false, true),
		},
		{
			name:   "enable announce keeps existing sub-record",
			prefs:  withAnn(true, false),
			change: PrefChange{Key: PrefAnnounce, Value: "true"},
			want:   withAnn(true, false),
		},
		{
			name:   "failures only leaves link untouched",
			prefs:  withAnn(false, false),
			change: PrefChange{Key: PrefAnnounceFailures, Value: "true"},
			want:   withAnn(true, false),
		},
		{
			name:   "link change materializes absent sub-record with defaults",
			prefs:  noAnn,
			change: PrefChange{Key: PrefSubmissionLink, Value: "false"},
			want:   withAnn(false, false),
		},
		{
			name:    "unknown key",
			prefs:   noAnn,
			change:  PrefChange{Key: "volume", Value: "true"},
			wantErr: true,
		},
		{
			name:    "non-boolean value",
			prefs:   noAnn,
			change:  PrefChange{Key: PrefAnnounce, Value: "maybe"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyPrefChange(tt.prefs, tt.change)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ApplyPrefChange mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyPrefChangeDoesNotMutateInput(t *testing.T) {
	prefs := DefaultPreferences()
	if _, err := ApplyPrefChange(prefs, PrefChange{Key: PrefAnnounceFailures, Value: "true"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if prefs.Announcement.AnnounceFailures {
		t.Error("input preferences were mutated")
	}
}
