package taskstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// TaskFileName returns the derived file name for a task id in a tag.
// Tag "master" uses the bare name; other tags carry a suffix.
func TaskFileName(id int, tag string) string {
	if tag == "" || tag == "master" {
		return fmt.Sprintf("task_%03d.txt", id)
	}
	return fmt.Sprintf("task_%03d_%s.txt", id, tag)
}

// regenerateTaskFiles rewrites the derived per-task text files for one tag.
// Runs under the store lock; the files always reflect the slice just
// persisted. Stale files for ids no longer present are removed.
func (s *Store) regenerateTaskFiles(tag string, data *TagData) error {
	dir := filepath.Join(s.projectRoot, TasksDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tasks dir: %w", err)
	}

	wanted := make(map[string]bool, len(data.Tasks))

	var g errgroup.Group
	g.SetLimit(8)
	for i := range data.Tasks {
		task := &data.Tasks[i]
		name := TaskFileName(task.ID, tag)
		wanted[name] = true
		g.Go(func() error {
			return os.WriteFile(filepath.Join(dir, name), []byte(renderTask(task, tag)), 0o644)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to write task files: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	suffix := ".txt"
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "task_") || !strings.HasSuffix(name, suffix) {
			continue
		}
		if !matchesTag(name, tag) || wanted[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// matchesTag reports whether a derived file name belongs to tag.
func matchesTag(name, tag string) bool {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "task_"), ".txt")
	idx := strings.IndexByte(base, '_')
	if tag == "" || tag == "master" {
		return idx < 0
	}
	return idx >= 0 && base[idx+1:] == tag
}

func renderTask(t *Task, tag string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task ID: %d\n", t.ID)
	fmt.Fprintf(&b, "# Title: %s\n", t.Title)
	fmt.Fprintf(&b, "# Status: %s\n", t.Status)
	if len(t.Dependencies) > 0 {
		deps := make([]string, len(t.Dependencies))
		for i, d := range t.Dependencies {
			deps[i] = fmt.Sprintf("%d", d)
		}
		fmt.Fprintf(&b, "# Dependencies: %s\n", strings.Join(deps, ", "))
	}
	if t.Priority != "" {
		fmt.Fprintf(&b, "# Priority: %s\n", t.Priority)
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "# Description: %s\n", t.Description)
	}
	if t.Details != "" {
		b.WriteString("# Details:\n")
		b.WriteString(t.Details)
		b.WriteString("\n")
	}
	if t.TestStrategy != "" {
		b.WriteString("# Test Strategy:\n")
		b.WriteString(t.TestStrategy)
		b.WriteString("\n")
	}
	for _, st := range t.Subtasks {
		fmt.Fprintf(&b, "\n## Subtask %d.%d: %s\n", t.ID, st.ID, st.Title)
		fmt.Fprintf(&b, "## Status: %s\n", st.Status)
		if st.Description != "" {
			fmt.Fprintf(&b, "## Description: %s\n", st.Description)
		}
		if st.Details != "" {
			b.WriteString(st.Details)
			b.WriteString("\n")
		}
	}
	return b.String()
}
