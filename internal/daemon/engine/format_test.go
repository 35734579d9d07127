package engine

import (
	"testing"
	"time"

	"github.com/grovetools/deckclock/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{59, "00:59"},
		{60, "01:00"},
		{125, "02:05"},
		{599, "09:59"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{36000, "10:00:00"},
		{-30, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatElapsed(tt.seconds))
		})
	}
}

func TestRender(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := models.ButtonConfig{WorkspaceID: "ws", ProjectID: "p1", Activity: "Coding", Label: "Code"}
	entry := &models.RunningEntry{WorkspaceID: "ws", ProjectID: "p1", Description: "Coding", Start: now.Add(-125 * time.Second)}

	state, title := Render(cfg, entry, now)
	assert.Equal(t, models.Active, state)
	assert.Equal(t, "02:05\n\n\nCode", title)

	state, title = Render(cfg, nil, now)
	assert.Equal(t, models.Inactive, state)
	assert.Equal(t, "Code", title)

	other := *entry
	other.ProjectID = ""
	state, _ = Render(cfg, &other, now)
	assert.Equal(t, models.Inactive, state)

	// A start time in the future renders as zero elapsed.
	skewed := *entry
	skewed.Start = now.Add(time.Minute)
	_, title = Render(cfg, &skewed, now)
	assert.Equal(t, "00:00\n\n\nCode", title)
}
