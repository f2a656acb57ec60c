package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatsScenario(t *testing.T) {
	var stats TaskStats
	for _, status := range []TaskStatus{
		TaskStatusDone, TaskStatusDone, TaskStatusInProgress, TaskStatusBacklog, TaskStatusBacklog,
	} {
		stats.Add(status, 1)
	}

	assert.Equal(t, TaskStats{Total: 5, Backlog: 2, InProgress: 1, Done: 2}, stats)
	assert.Equal(t, stats.Total, stats.Sum())
	assert.Equal(t, 40, stats.CompletionRate())
}

func TestCompletionRateOfEmptyProjectIsZero(t *testing.T) {
	assert.Equal(t, 0, TaskStats{}.CompletionRate())
}

func TestCompletionRateRounds(t *testing.T) {
	cases := []struct {
		done, total, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 3, 100},
		{0, 7, 0},
	}
	for _, tc := range cases {
		stats := TaskStats{Total: tc.total, Done: tc.done, Backlog: tc.total - tc.done}
		assert.Equal(t, tc.want, stats.CompletionRate(), "%d/%d", tc.done, tc.total)
	}
}

func TestTaskStatsIgnoresUnknownStatus(t *testing.T) {
	var stats TaskStats
	stats.Add(TaskStatus("archived"), 3)
	assert.Equal(t, TaskStats{}, stats)
}
