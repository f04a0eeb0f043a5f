package taskstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ComplexityItem is the per-task analysis produced by analyze_project_complexity.
type ComplexityItem struct {
	TaskID              int    `json:"taskId"`
	TaskTitle           string `json:"taskTitle"`
	ComplexityScore     int    `json:"complexityScore"`
	RecommendedSubtasks int    `json:"recommendedSubtasks"`
	ExpansionPrompt     string `json:"expansionPrompt,omitempty"`
	Reasoning           string `json:"reasoning,omitempty"`
}

// ComplexityMeta is the synthesized header of a complexity report.
type ComplexityMeta struct {
	GeneratedAt   time.Time `json:"generatedAt"`
	TasksAnalyzed int       `json:"tasksAnalyzed"`
	Threshold     int       `json:"thresholdScore"`
	UsedResearch  bool      `json:"usedResearch"`
}

// ComplexityReport is the persisted analysis document.
type ComplexityReport struct {
	Meta     ComplexityMeta   `json:"meta"`
	Analysis []ComplexityItem `json:"complexityAnalysis"`
}

// Item returns the analysis entry for a task id.
func (r *ComplexityReport) Item(taskID int) (*ComplexityItem, bool) {
	for i := range r.Analysis {
		if r.Analysis[i].TaskID == taskID {
			return &r.Analysis[i], true
		}
	}
	return nil, false
}

// LoadReport reads the complexity report. A missing file yields nil.
func (s *Store) LoadReport() (*ComplexityReport, error) {
	data, err := os.ReadFile(s.ReportPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read complexity report: %w", err)
	}
	report := &ComplexityReport{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("failed to parse complexity report: %w", err)
	}
	return report, nil
}

// SaveReport persists the complexity report.
func (s *Store) SaveReport(report *ComplexityReport) error {
	path := s.ReportPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create reports dir: %w", err)
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode complexity report: %w", err)
	}
	return os.WriteFile(path, payload, 0o644)
}

// MergeReport folds fresh analysis items into an existing report: items for
// already-analyzed ids replace the old entries, new ids append. Used when
// the analysis targeted specific ids rather than the whole slice.
func MergeReport(existing *ComplexityReport, fresh []ComplexityItem) *ComplexityReport {
	if existing == nil {
		existing = &ComplexityReport{}
	}
	for _, item := range fresh {
		if old, ok := existing.Item(item.TaskID); ok {
			*old = item
			continue
		}
		existing.Analysis = append(existing.Analysis, item)
	}
	return existing
}
