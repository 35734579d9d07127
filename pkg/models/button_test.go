package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestButtonConfigMatches(t *testing.T) {
	cfg := ButtonConfig{WorkspaceID: "1", ProjectID: "10", Activity: "writing"}

	tests := []struct {
		name  string
		entry *RunningEntry
		want  bool
	}{
		{"nil entry", nil, false},
		{"exact match", &RunningEntry{WorkspaceID: "1", ProjectID: "10", Description: "writing"}, true},
		{"other workspace", &RunningEntry{WorkspaceID: "2", ProjectID: "10", Description: "writing"}, false},
		{"other project", &RunningEntry{WorkspaceID: "1", ProjectID: "11", Description: "writing"}, false},
		{"no project on entry", &RunningEntry{WorkspaceID: "1", Description: "writing"}, false},
		{"case differs", &RunningEntry{WorkspaceID: "1", ProjectID: "10", Description: "Writing"}, false},
		{"whitespace differs", &RunningEntry{WorkspaceID: "1", ProjectID: "10", Description: "writing "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Matches(tt.entry))
		})
	}
}

func TestButtonConfigWithoutProject(t *testing.T) {
	cfg := ButtonConfig{WorkspaceID: "1", Activity: "email"}
	assert.True(t, cfg.Matches(&RunningEntry{WorkspaceID: "1", Description: "email"}))
}

func TestDisplayLabelFallsBackToActivity(t *testing.T) {
	assert.Equal(t, "Write", ButtonConfig{Label: "Write", Activity: "writing"}.DisplayLabel())
	assert.Equal(t, "writing", ButtonConfig{Activity: "writing"}.DisplayLabel())
}

func TestCredentialsAreComparable(t *testing.T) {
	a := ButtonConfig{Token: "t", UserID: "u", WorkspaceID: "w", Activity: "a"}
	b := ButtonConfig{Token: "t", UserID: "u", WorkspaceID: "w", Activity: "b"}
	groups := map[Credentials]int{}
	groups[a.Credentials()]++
	groups[b.Credentials()]++
	assert.Len(t, groups, 1)
}

func TestRunningEntryElapsed(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	e := &RunningEntry{Start: start}
	assert.Equal(t, int64(125), e.Elapsed(start.Add(125*time.Second+400*time.Millisecond)))

	var none *RunningEntry
	assert.Equal(t, int64(0), none.Elapsed(start))
}
