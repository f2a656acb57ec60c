package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionAcceptsEveryStatusFromEveryStatus(t *testing.T) {
	created := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	for _, from := range TaskStatuses() {
		for _, to := range TaskStatuses() {
			task := Task{ID: "t1", Status: from, CreatedAt: created, UpdatedAt: created}
			now := created.Add(time.Hour)

			moved, err := task.Transition(to, now)

			require.NoError(t, err, "%s -> %s", from, to)
			assert.Equal(t, to, moved.Status)
			assert.Equal(t, now, moved.UpdatedAt)
		}
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	task := Task{ID: "t1", Status: TaskStatusDone}
	for _, raw := range []string{"", "DONE", "archived", "in progress", " done"} {
		moved, err := task.Transition(TaskStatus(raw), time.Now())

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidStatus), "status %q", raw)
		assert.Equal(t, TaskStatusDone, moved.Status)
	}
}

func TestParseTaskStatus(t *testing.T) {
	status, err := ParseTaskStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, status)

	_, err = ParseTaskStatus("blocked")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTaskMatchesSearchIsCaseInsensitive(t *testing.T) {
	task := Task{Name: "Wire the Intake", Description: "uses 4 NEO motors"}
	assert.True(t, task.MatchesSearch("intake"))
	assert.True(t, task.MatchesSearch("neo"))
	assert.True(t, task.MatchesSearch(""))
	assert.False(t, task.MatchesSearch("shooter"))
}

func TestSortKeyCompareBreaksTiesByID(t *testing.T) {
	at := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	a := SortKey{CreatedAt: at, ID: "a"}
	b := SortKey{CreatedAt: at, ID: "b"}
	later := SortKey{CreatedAt: at.Add(time.Microsecond), ID: "a"}

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, b.Compare(later))
}
