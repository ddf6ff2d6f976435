package scheduler

import (
	"testing"
	"time"

	"github.com/kaito/photomirror/internal/domain"
)

func TestDue(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		settings    domain.SyncSettings
		lastTrigger time.Time
		want        bool
	}{
		{
			name:     "disabled never fires",
			settings: domain.SyncSettings{SyncEnabled: false, SyncIntervalMinutes: 60},
			want:     false,
		},
		{
			name:     "zero interval never fires",
			settings: domain.SyncSettings{SyncEnabled: true, SyncIntervalMinutes: 0},
			want:     false,
		},
		{
			name:     "first tick fires immediately",
			settings: domain.SyncSettings{SyncEnabled: true, SyncIntervalMinutes: 60},
			want:     true,
		},
		{
			name:        "interval not yet elapsed",
			settings:    domain.SyncSettings{SyncEnabled: true, SyncIntervalMinutes: 60},
			lastTrigger: now.Add(-30 * time.Minute),
			want:        false,
		},
		{
			name:        "interval exactly elapsed",
			settings:    domain.SyncSettings{SyncEnabled: true, SyncIntervalMinutes: 60},
			lastTrigger: now.Add(-60 * time.Minute),
			want:        true,
		},
		{
			name:        "shortened interval applies to the next tick",
			settings:    domain.SyncSettings{SyncEnabled: true, SyncIntervalMinutes: 15},
			lastTrigger: now.Add(-30 * time.Minute),
			want:        true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := due(&tc.settings, tc.lastTrigger, now); got != tc.want {
				t.Errorf("due() = %v, want %v", got, tc.want)
			}
		})
	}
}
