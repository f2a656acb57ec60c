package domain

import "time"

// ChangeKind names a committed mutation.
type ChangeKind string

const (
	ChangeTaskCreated    ChangeKind = "task.created"
	ChangeTaskUpdated    ChangeKind = "task.updated"
	ChangeTaskDeleted    ChangeKind = "task.deleted"
	ChangeProjectUpdated ChangeKind = "project.updated"
	ChangeProjectDeleted ChangeKind = "project.deleted"
	ChangePartCreated    ChangeKind = "part.created"
	ChangePartUpdated    ChangeKind = "part.updated"
	ChangePartDeleted    ChangeKind = "part.deleted"
)

// ChangeEvent announces a committed write. Scope is the project id for task
// and project changes and the team id for part changes.
type ChangeEvent struct {
	Kind     ChangeKind `json:"kind"`
	Scope    string     `json:"scope"`
	EntityID string     `json:"entity_id"`
	At       time.Time  `json:"at"`
}

// ScopeDeleted reports whether the event removes the whole scope.
func (e ChangeEvent) ScopeDeleted() bool {
	return e.Kind == ChangeProjectDeleted
}
