package repository

import (
	"context"
	"errors"
	"time"

	"rafpad/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// EntityKind identifica las tablas que admiten borrado lógico.
type EntityKind string

const (
	EntityNotes    EntityKind = "notes"
	EntityTasks    EntityKind = "tasks"
	EntitySubtasks EntityKind = "subtasks"
)

// ParseEntityKind valida el nombre de tabla recibido en la ruta.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch k := EntityKind(s); k {
	case EntityNotes, EntityTasks, EntitySubtasks:
		return k, true
	default:
		return "", false
	}
}

// TaskTx agrupa las operaciones que deben confirmarse o revertirse juntas.
// Los registros con borrado lógico se tratan como inexistentes (ErrNotFound).
type TaskTx interface {
	FindProjectByTag(ctx context.Context, tag string) (domain.Project, error)
	// CreateProject devuelve ErrConflict si el tag ya existe, sin abortar la transacción.
	CreateProject(ctx context.Context, project domain.Project) (domain.Project, error)
	CreateTask(ctx context.Context, task domain.Task) (domain.Task, error)
	CreateSubtask(ctx context.Context, subtask domain.Subtask) (domain.Subtask, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	UpdateTask(ctx context.Context, task domain.Task) error
	CreateNote(ctx context.Context, note domain.Note) (domain.Note, error)
	GetNote(ctx context.Context, id int64) (domain.Note, error)
	UpdateNote(ctx context.Context, note domain.Note) error
	SoftDelete(ctx context.Context, kind EntityKind, id int64, at time.Time) error
}

// TaskStore es el almacén durable de proyectos, tareas y notas.
// WithTx confirma si fn devuelve nil y revierte en cualquier otro caso.
type TaskStore interface {
	WithTx(ctx context.Context, fn func(tx TaskTx) error) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	ListNotes(ctx context.Context) ([]domain.Note, error)
	GetNote(ctx context.Context, id int64) (domain.Note, error)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stampTask(task domain.Task) domain.Task {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	return task
}

func stampNote(note domain.Note) domain.Note {
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	return note
}

// attachSubtasks reparte los subtasks por tarea; cada tarea queda con un slice no nil.
func attachSubtasks(tasks []domain.Task, subtasks []domain.Subtask) {
	byTask := make(map[int64][]domain.Subtask, len(tasks))
	for _, s := range subtasks {
		byTask[s.TaskID] = append(byTask[s.TaskID], s)
	}
	for i := range tasks {
		tasks[i].Subtasks = byTask[tasks[i].ID]
		if tasks[i].Subtasks == nil {
			tasks[i].Subtasks = []domain.Subtask{}
		}
	}
}

// softDeleteTable traduce kind a un nombre de tabla fijo; la entrada nunca se interpola.
func softDeleteTable(kind EntityKind) (string, bool) {
	switch kind {
	case EntityNotes:
		return "notes", true
	case EntityTasks:
		return "tasks", true
	case EntitySubtasks:
		return "subtasks", true
	default:
		return "", false
	}
}
