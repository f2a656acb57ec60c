// Package stats computes per-status task counts for a project.
package stats

import (
	"context"
	"fmt"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/repository"
)

// Engine recomputes statistics from storage on every call.
type Engine struct {
	tasks repository.TaskRepository
}

// New returns an aggregation engine.
func New(tasks repository.TaskRepository) Engine {
	return Engine{tasks: tasks}
}

// Stats counts the project's current tasks by status. Visibility is the
// caller's concern.
func (e Engine) Stats(ctx context.Context, projectID string) (domain.TaskStats, error) {
	counts, err := e.tasks.CountTasksByStatus(ctx, projectID)
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}
	// A row in a status outside the enum would be missing from every bucket
	// and from the total, so it fails the read instead of skewing the rate.
	for status, n := range counts {
		if !status.Valid() && n > 0 {
			return domain.TaskStats{}, fmt.Errorf("count tasks: %d tasks in unknown status %q", n, status)
		}
	}
	var stats domain.TaskStats
	for _, status := range domain.TaskStatuses() {
		stats.Add(status, counts[status])
	}
	return stats, nil
}
