// Package taskstore persists the tagged task collection and its derived
// artifacts under <projectRoot>/.taskmaster/.
//
// On-disk shape of tasks.json is a mapping from tag name to
// {tasks, metadata}. Tag "master" is the default slice; callers that think
// in a single tag go through Store.LoadTag and Store.Mutate rather than a
// flattened file format.
package taskstore

import (
	"fmt"
	"time"
)

// Task statuses. "completed" is accepted as a synonym of "done" on input.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"
	StatusCompleted  = "completed"
	StatusDeferred   = "deferred"
	StatusCancelled  = "cancelled"
)

// IsCompletedStatus reports whether status marks finished work that post-
// processors must never overwrite.
func IsCompletedStatus(status string) bool {
	return status == StatusDone || status == StatusCompleted
}

// Task is one unit of work in a tag slice.
type Task struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Details      string    `json:"details,omitempty"`
	TestStrategy string    `json:"testStrategy,omitempty"`
	Priority     string    `json:"priority,omitempty"`
	Dependencies []int     `json:"dependencies"`
	Status       string    `json:"status"`
	Subtasks     []Subtask `json:"subtasks,omitempty"`
}

// Subtask is a child of a Task, numbered locally (task 5's subtasks are
// 5.1, 5.2, ...).
type Subtask struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Details      string `json:"details,omitempty"`
	TestStrategy string `json:"testStrategy,omitempty"`
	Dependencies []int  `json:"dependencies,omitempty"`
	Status       string `json:"status"`
}

// Completed reports whether the task is finished.
func (t *Task) Completed() bool {
	return IsCompletedStatus(t.Status)
}

// Completed reports whether the subtask is finished.
func (s *Subtask) Completed() bool {
	return IsCompletedStatus(s.Status)
}

// Subtask returns a pointer to the subtask with the given local id.
func (t *Task) Subtask(id int) (*Subtask, bool) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i], true
		}
	}
	return nil, false
}

// NextSubtaskID returns the next free local subtask id (1-based).
func (t *Task) NextSubtaskID() int {
	next := 1
	for _, s := range t.Subtasks {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	return next
}

// Normalize fills defaults on a task parsed from agent output.
func (t *Task) Normalize() {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Dependencies == nil {
		t.Dependencies = []int{}
	}
	for i := range t.Subtasks {
		if t.Subtasks[i].Status == "" {
			t.Subtasks[i].Status = StatusPending
		}
	}
}

// Validate checks the minimal shape of a task parsed from agent output.
func (t *Task) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("task id must be positive, got %d", t.ID)
	}
	if t.Title == "" {
		return fmt.Errorf("task %d has no title", t.ID)
	}
	return nil
}

// Metadata describes one tag slice.
type Metadata struct {
	Created     time.Time `json:"created,omitempty"`
	Updated     time.Time `json:"updated,omitempty"`
	Description string    `json:"description,omitempty"`
}

// TagData is one slice of the store: an ordered task sequence plus metadata.
type TagData struct {
	Tasks    []Task   `json:"tasks"`
	Metadata Metadata `json:"metadata"`
}

// Task returns a pointer to the task with the given id.
func (d *TagData) Task(id int) (*Task, bool) {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i], true
		}
	}
	return nil, false
}

// MaxTaskID returns the highest task id in the slice, 0 when empty.
func (d *TagData) MaxTaskID() int {
	maxID := 0
	for _, t := range d.Tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return maxID
}
