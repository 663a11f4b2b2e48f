package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"rafpad/internal/domain"
	"rafpad/internal/repository"
)

const (
	maxTaskContentLength    = 5000
	maxSubtaskContentLength = 200
)

var (
	ErrTaskServiceNotConfigured = errors.New("task service not configured")
	ErrTaskInvalidInput         = errors.New("task invalid input")
	ErrProjectInvalidInput      = errors.New("project invalid input")
	ErrProjectExists            = errors.New("project already exists")
	ErrProjectNotFound          = errors.New("target project not found")
	ErrRecordNotFound           = errors.New("record not found")
	ErrInvalidEntityKind        = errors.New("invalid element type")
)

// TaskService encapsula la lógica de proyectos y tareas sobre el TaskStore.
type TaskService struct {
	store      repository.TaskStore
	defaultTag string
}

func NewTaskService(store repository.TaskStore, defaultTag string) *TaskService {
	defaultTag = domain.NormalizeProjectTag(defaultTag)
	if defaultTag == "" {
		defaultTag = domain.DefaultProjectTag
	}
	return &TaskService{store: store, defaultTag: defaultTag}
}

// DefaultTag devuelve el tag del proyecto por defecto.
func (s *TaskService) DefaultTag() string {
	return s.defaultTag
}

type TaskInput struct {
	Content    string
	Category   string
	Priority   string
	Deadline   string
	ProjectTag string
	Subtasks   []string
}

// TaskPatch describe una actualización parcial; los campos nil no se tocan.
type TaskPatch struct {
	Content     *string
	Category    *string
	Priority    *string
	Deadline    *string
	ProjectTag  *string
	IsCompleted *bool
}

// CreateTask resuelve (o crea) el proyecto por tag y crea la tarea en una sola transacción.
func (s *TaskService) CreateTask(ctx context.Context, in TaskInput) (domain.Task, error) {
	if s == nil || s.store == nil {
		return domain.Task{}, ErrTaskServiceNotConfigured
	}

	content, err := validateContent(in.Content, maxTaskContentLength, ErrTaskInvalidInput)
	if err != nil {
		return domain.Task{}, err
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return domain.Task{}, err
	}
	subtasks := make([]string, 0, len(in.Subtasks))
	for _, raw := range in.Subtasks {
		sub, err := validateContent(raw, maxSubtaskContentLength, ErrTaskInvalidInput)
		if err != nil {
			return domain.Task{}, fmt.Errorf("subtask: %w", err)
		}
		subtasks = append(subtasks, sub)
	}
	deadline, err := parseDeadline(in.Deadline)
	if err != nil {
		return domain.Task{}, err
	}
	tag := domain.NormalizeProjectTag(in.ProjectTag)
	if tag == "" {
		tag = s.defaultTag
	}

	var created domain.Task
	err = s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		project, err := resolveProject(ctx, tx, tag)
		if err != nil {
			return err
		}
		created, err = tx.CreateTask(ctx, domain.Task{
			Content:   content,
			Category:  strings.TrimSpace(in.Category),
			Priority:  priority,
			Deadline:  deadline,
			ProjectID: project.ID,
		})
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		created.ProjectTag = project.Tag
		created.Subtasks = make([]domain.Subtask, 0, len(subtasks))
		for _, content := range subtasks {
			sub, err := tx.CreateSubtask(ctx, domain.Subtask{
				TaskID:    created.ID,
				Content:   content,
				CreatedAt: created.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("create subtask: %w", err)
			}
			created.Subtasks = append(created.Subtasks, sub)
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}
	return created, nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if s == nil || s.store == nil {
		return nil, ErrTaskServiceNotConfigured
	}
	return s.store.ListTasks(ctx)
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if s == nil || s.store == nil {
		return domain.Task{}, ErrTaskServiceNotConfigured
	}
	task, err := s.store.GetTask(ctx, id)
	return task, mapNotFound(err)
}

// UpdateTask aplica patch sobre la tarea. Un project tag desconocido se ignora
// y un deadline vacío lo borra.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (domain.Task, error) {
	if s == nil || s.store == nil {
		return domain.Task{}, ErrTaskServiceNotConfigured
	}

	var updated domain.Task
	err := s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if patch.ProjectTag != nil {
			project, err := tx.FindProjectByTag(ctx, domain.NormalizeProjectTag(*patch.ProjectTag))
			switch {
			case err == nil:
				task.ProjectID = project.ID
			case !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("find project: %w", err)
			}
		}
		if patch.Content != nil {
			if task.Content, err = validateContent(*patch.Content, maxTaskContentLength, ErrTaskInvalidInput); err != nil {
				return err
			}
		}
		if patch.Category != nil {
			task.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.Priority != nil {
			if task.Priority, err = normalizePriority(*patch.Priority); err != nil {
				return err
			}
		}
		if patch.Deadline != nil {
			if task.Deadline, err = parseDeadline(*patch.Deadline); err != nil {
				return err
			}
		}
		if patch.IsCompleted != nil {
			task.IsCompleted = *patch.IsCompleted
		}
		task.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateTask(ctx, task); err != nil {
			return mapNotFound(err)
		}
		updated, err = tx.GetTask(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return updated, nil
}

// MoveTask reasigna la tarea a un proyecto existente; no crea proyectos.
func (s *TaskService) MoveTask(ctx context.Context, id int64, projectTag string) (domain.Task, error) {
	if s == nil || s.store == nil {
		return domain.Task{}, ErrTaskServiceNotConfigured
	}
	tag := domain.NormalizeProjectTag(projectTag)
	if tag == "" {
		return domain.Task{}, fmt.Errorf("%w: new project tag is required", ErrTaskInvalidInput)
	}

	var moved domain.Task
	err := s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		project, err := findExistingProject(ctx, tx, tag)
		if err != nil {
			return err
		}
		task.ProjectID = project.ID
		task.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateTask(ctx, task); err != nil {
			return mapNotFound(err)
		}
		moved, err = tx.GetTask(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return moved, nil
}

// Delete marca como borrado un registro de notes, tasks o subtasks.
func (s *TaskService) Delete(ctx context.Context, kind string, id int64) error {
	if s == nil || s.store == nil {
		return ErrTaskServiceNotConfigured
	}
	entity, ok := repository.ParseEntityKind(kind)
	if !ok {
		return ErrInvalidEntityKind
	}
	return s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		return mapNotFound(tx.SoftDelete(ctx, entity, id, time.Now().UTC()))
	})
}

// CreateProject crea un proyecto nuevo; el nombre se deriva del tag si viene vacío.
func (s *TaskService) CreateProject(ctx context.Context, tag, name string) (domain.Project, error) {
	if s == nil || s.store == nil {
		return domain.Project{}, ErrTaskServiceNotConfigured
	}
	tag = domain.NormalizeProjectTag(tag)
	if tag == "" || tag == "#" || utf8.RuneCountInString(tag) > 50 {
		return domain.Project{}, ErrProjectInvalidInput
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.ProjectNameFromTag(tag)
	}

	var created domain.Project
	err := s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		_, err := tx.FindProjectByTag(ctx, tag)
		if err == nil {
			return ErrProjectExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find project: %w", err)
		}
		created, err = tx.CreateProject(ctx, domain.Project{Tag: tag, Name: name})
		if errors.Is(err, repository.ErrConflict) {
			return ErrProjectExists
		}
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Project{}, err
	}
	return created, nil
}

func (s *TaskService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if s == nil || s.store == nil {
		return nil, ErrTaskServiceNotConfigured
	}
	return s.store.ListProjects(ctx)
}

func resolveProject(ctx context.Context, tx repository.TaskTx, tag string) (domain.Project, error) {
	project, err := tx.FindProjectByTag(ctx, tag)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	project, err = tx.CreateProject(ctx, domain.Project{Tag: tag, Name: domain.ProjectNameFromTag(tag)})
	if errors.Is(err, repository.ErrConflict) {
		// otra transacción creó el tag entre la búsqueda y el insert
		project, err = tx.FindProjectByTag(ctx, tag)
		if err != nil {
			return domain.Project{}, fmt.Errorf("find project after conflict: %w", err)
		}
		return project, nil
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

func findExistingProject(ctx context.Context, tx repository.TaskTx, tag string) (domain.Project, error) {
	project, err := tx.FindProjectByTag(ctx, tag)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return project, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func validateContent(raw string, max int, invalid error) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" || utf8.RuneCountInString(content) > max {
		return "", fmt.Errorf("%w: content must be 1-%d characters", invalid, max)
	}
	return content, nil
}

func normalizePriority(raw string) (string, error) {
	priority := strings.ToLower(strings.TrimSpace(raw))
	switch priority {
	case "", domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
		return priority, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrTaskInvalidInput, raw)
	}
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid deadline format", ErrTaskInvalidInput)
}
