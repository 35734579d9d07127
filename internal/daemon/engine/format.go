package engine

import (
	"fmt"
	"time"

	"github.com/grovetools/deckclock/pkg/models"
)

// FormatElapsed renders seconds as MM:SS below one hour and HH:MM:SS above.
// Negative input is clamped to zero.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 3600 {
		return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%02d:", seconds/3600) + FormatElapsed(seconds%3600)
}

// Render computes what a button shows for the group's running entry.
func Render(cfg models.ButtonConfig, entry *models.RunningEntry, now time.Time) (models.ButtonState, string) {
	if cfg.Matches(entry) {
		return models.Active, FormatElapsed(entry.Elapsed(now)) + "\n\n\n" + cfg.DisplayLabel()
	}
	return models.Inactive, cfg.DisplayLabel()
}
