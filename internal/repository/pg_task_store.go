package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rafpad/internal/domain"
)

type PgTaskStore struct {
	pool *pgxpool.Pool
}

func NewPgTaskStore(pool *pgxpool.Pool) *PgTaskStore {
	return &PgTaskStore{pool: pool}
}

// pgQuerier lo cumplen *pgxpool.Pool y pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgTaskStore) WithTx(ctx context.Context, fn func(tx TaskTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTaskTx{q: tx})
	})
}

func (r *PgTaskStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	const query = `
		SELECT id, tag, COALESCE(name, ''), created_at
		FROM projects
		WHERE deleted_at IS NULL
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Tag, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

const pgTaskColumns = `
	t.id, t.content, t.category, t.priority, t.deadline, t.is_completed,
	t.project_id, p.tag, t.created_at, t.updated_at
`

func (r *PgTaskStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	query := `
		SELECT ` + pgTaskColumns + `
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.deleted_at IS NULL
		ORDER BY t.id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subtasks, err := listPgSubtasks(ctx, r.pool, 0)
	if err != nil {
		return nil, err
	}
	attachSubtasks(tasks, subtasks)
	return tasks, nil
}

func (r *PgTaskStore) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return getPgTask(ctx, r.pool, id)
}

const pgNoteColumns = `
	n.id, n.content, n.category, n.project_id, p.tag, n.created_at, n.updated_at
`

func (r *PgTaskStore) ListNotes(ctx context.Context) ([]domain.Note, error) {
	query := `
		SELECT ` + pgNoteColumns + `
		FROM notes n
		JOIN projects p ON p.id = n.project_id
		WHERE n.deleted_at IS NULL
		ORDER BY n.id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := scanPgNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *PgTaskStore) GetNote(ctx context.Context, id int64) (domain.Note, error) {
	return getPgNote(ctx, r.pool, id)
}

func scanPgTask(row pgx.Row) (domain.Task, error) {
	var (
		t        domain.Task
		category *string
		priority *string
		deadline *time.Time
	)
	err := row.Scan(
		&t.ID,
		&t.Content,
		&category,
		&priority,
		&deadline,
		&t.IsCompleted,
		&t.ProjectID,
		&t.ProjectTag,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	t.Category = derefString(category)
	t.Priority = derefString(priority)
	t.Deadline = deadline
	return t, nil
}

func getPgTask(ctx context.Context, q pgQuerier, id int64) (domain.Task, error) {
	query := `
		SELECT ` + pgTaskColumns + `
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND t.deleted_at IS NULL
	`
	t, err := scanPgTask(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	subtasks, err := listPgSubtasks(ctx, q, id)
	if err != nil {
		return domain.Task{}, err
	}
	t.Subtasks = subtasks
	return t, nil
}

// listPgSubtasks devuelve los subtasks vivos de taskID, o de todas las tareas si taskID es 0.
func listPgSubtasks(ctx context.Context, q pgQuerier, taskID int64) ([]domain.Subtask, error) {
	const query = `
		SELECT id, task_id, content, is_completed, created_at
		FROM subtasks
		WHERE deleted_at IS NULL AND ($1::bigint = 0 OR task_id = $1)
		ORDER BY id ASC
	`
	rows, err := q.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subtasks := []domain.Subtask{}
	for rows.Next() {
		var s domain.Subtask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Content, &s.IsCompleted, &s.CreatedAt); err != nil {
			return nil, err
		}
		subtasks = append(subtasks, s)
	}
	return subtasks, rows.Err()
}

func scanPgNote(row pgx.Row) (domain.Note, error) {
	var (
		n        domain.Note
		category *string
	)
	err := row.Scan(&n.ID, &n.Content, &category, &n.ProjectID, &n.ProjectTag, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return domain.Note{}, err
	}
	n.Category = derefString(category)
	return n, nil
}

func getPgNote(ctx context.Context, q pgQuerier, id int64) (domain.Note, error) {
	query := `
		SELECT ` + pgNoteColumns + `
		FROM notes n
		JOIN projects p ON p.id = n.project_id
		WHERE n.id = $1 AND n.deleted_at IS NULL
	`
	n, err := scanPgNote(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Note{}, ErrNotFound
	}
	return n, err
}

type pgTaskTx struct {
	q pgQuerier
}

func (t *pgTaskTx) FindProjectByTag(ctx context.Context, tag string) (domain.Project, error) {
	const query = `
		SELECT id, tag, COALESCE(name, ''), created_at
		FROM projects
		WHERE tag = $1
	`
	var p domain.Project
	err := t.q.QueryRow(ctx, query, tag).Scan(&p.ID, &p.Tag, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, ErrNotFound
	}
	return p, err
}

// CreateProject no falla con unique_violation: si otra transacción ganó la
// carrera por el tag, no hay fila devuelta y se informa ErrConflict.
func (t *pgTaskTx) CreateProject(ctx context.Context, project domain.Project) (domain.Project, error) {
	const query = `
		INSERT INTO projects (tag, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tag) DO NOTHING
		RETURNING id
	`
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	err := t.q.QueryRow(ctx, query,
		project.Tag,
		nullIfEmpty(project.Name),
		project.CreatedAt,
	).Scan(&project.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, ErrConflict
	}
	return project, err
}

func (t *pgTaskTx) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	const query = `
		INSERT INTO tasks (content, category, priority, deadline, is_completed, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	task = stampTask(task)
	err := t.q.QueryRow(ctx, query,
		task.Content,
		nullIfEmpty(task.Category),
		nullIfEmpty(task.Priority),
		nullTime(task.Deadline),
		task.IsCompleted,
		task.ProjectID,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	return task, err
}

func (t *pgTaskTx) CreateSubtask(ctx context.Context, subtask domain.Subtask) (domain.Subtask, error) {
	const query = `
		INSERT INTO subtasks (content, is_completed, task_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if subtask.CreatedAt.IsZero() {
		subtask.CreatedAt = time.Now().UTC()
	}
	err := t.q.QueryRow(ctx, query,
		subtask.Content,
		subtask.IsCompleted,
		subtask.TaskID,
		subtask.CreatedAt,
	).Scan(&subtask.ID)
	return subtask, err
}

func (t *pgTaskTx) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return getPgTask(ctx, t.q, id)
}

func (t *pgTaskTx) UpdateTask(ctx context.Context, task domain.Task) error {
	const query = `
		UPDATE tasks
		SET content = $1, category = $2, priority = $3, deadline = $4, is_completed = $5, project_id = $6, updated_at = $7
		WHERE id = $8 AND deleted_at IS NULL
	`
	tag, err := t.q.Exec(ctx, query,
		task.Content,
		nullIfEmpty(task.Category),
		nullIfEmpty(task.Priority),
		nullTime(task.Deadline),
		task.IsCompleted,
		task.ProjectID,
		task.UpdatedAt,
		task.ID,
	)
	return requireAffected(tag, err)
}

func (t *pgTaskTx) CreateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	const query = `
		INSERT INTO notes (content, category, project_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	note = stampNote(note)
	err := t.q.QueryRow(ctx, query,
		note.Content,
		nullIfEmpty(note.Category),
		note.ProjectID,
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID)
	return note, err
}

func (t *pgTaskTx) GetNote(ctx context.Context, id int64) (domain.Note, error) {
	return getPgNote(ctx, t.q, id)
}

func (t *pgTaskTx) UpdateNote(ctx context.Context, note domain.Note) error {
	const query = `
		UPDATE notes
		SET content = $1, category = $2, project_id = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`
	tag, err := t.q.Exec(ctx, query,
		note.Content,
		nullIfEmpty(note.Category),
		note.ProjectID,
		note.UpdatedAt,
		note.ID,
	)
	return requireAffected(tag, err)
}

func (t *pgTaskTx) SoftDelete(ctx context.Context, kind EntityKind, id int64, at time.Time) error {
	table, ok := softDeleteTable(kind)
	if !ok {
		return fmt.Errorf("soft delete: unknown kind %q", kind)
	}
	query := `UPDATE ` + table + ` SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	tag, err := t.q.Exec(ctx, query, at.UTC(), id)
	return requireAffected(tag, err)
}

func requireAffected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
