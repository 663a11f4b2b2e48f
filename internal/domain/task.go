package domain

import (
	"strings"
	"time"
)

const DefaultProjectTag = "#inbox"

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Project struct {
	ID        int64     `json:"id"`
	Tag       string    `json:"tag"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	ID          int64      `json:"id"`
	Content     string     `json:"content"`
	Category    string     `json:"category,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	ProjectID   int64      `json:"project_id"`
	ProjectTag  string     `json:"project_tag,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Subtasks    []Subtask  `json:"subtasks"`
}

type Subtask struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Content     string    `json:"content"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Note es texto libre asociado a un proyecto, sin prioridad ni fecha límite.
type Note struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	Category   string    `json:"category,omitempty"`
	ProjectID  int64     `json:"project_id"`
	ProjectTag string    `json:"project_tag,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NormalizeProjectTag garantiza el prefijo # y quita espacios.
func NormalizeProjectTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

// ProjectNameFromTag deriva el nombre visible quitando el marcador #.
func ProjectNameFromTag(tag string) string {
	return strings.TrimSpace(strings.ReplaceAll(tag, "#", ""))
}
