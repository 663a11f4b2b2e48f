package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rafpad/internal/domain"
)

// SQLiteTaskStore implementa TaskStore sobre database/sql con el driver modernc.org/sqlite.
type SQLiteTaskStore struct {
	db *sql.DB
}

func NewSQLiteTaskStore(db *sql.DB) *SQLiteTaskStore {
	return &SQLiteTaskStore{db: db}
}

// sqlQuerier lo cumplen *sql.DB y *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteTaskStore) WithTx(ctx context.Context, fn func(tx TaskTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(&sqliteTaskTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteTaskStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	const query = `
		SELECT id, tag, COALESCE(name, ''), created_at
		FROM projects
		WHERE deleted_at IS NULL
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
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

const sqliteTaskColumns = `
	t.id, t.content, t.category, t.priority, t.deadline, t.is_completed,
	t.project_id, p.tag, t.created_at, t.updated_at
`

func (r *SQLiteTaskStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	query := `
		SELECT ` + sqliteTaskColumns + `
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.deleted_at IS NULL
		ORDER BY t.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subtasks, err := listSQLiteSubtasks(ctx, r.db, 0)
	if err != nil {
		return nil, err
	}
	attachSubtasks(tasks, subtasks)
	return tasks, nil
}

func (r *SQLiteTaskStore) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return getSQLiteTask(ctx, r.db, id)
}

func (r *SQLiteTaskStore) ListNotes(ctx context.Context) ([]domain.Note, error) {
	query := `
		SELECT ` + sqliteNoteColumns + `
		FROM notes n
		JOIN projects p ON p.id = n.project_id
		WHERE n.deleted_at IS NULL
		ORDER BY n.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := scanSQLiteNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *SQLiteTaskStore) GetNote(ctx context.Context, id int64) (domain.Note, error) {
	return getSQLiteNote(ctx, r.db, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (domain.Task, error) {
	var (
		t        domain.Task
		category sql.NullString
		priority sql.NullString
		deadline sql.NullTime
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
	t.Category = category.String
	t.Priority = priority.String
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	return t, nil
}

func getSQLiteTask(ctx context.Context, q sqlQuerier, id int64) (domain.Task, error) {
	query := `
		SELECT ` + sqliteTaskColumns + `
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = ? AND t.deleted_at IS NULL
	`
	t, err := scanSQLiteTask(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	subtasks, err := listSQLiteSubtasks(ctx, q, id)
	if err != nil {
		return domain.Task{}, err
	}
	t.Subtasks = subtasks
	return t, nil
}

// listSQLiteSubtasks devuelve los subtasks vivos de taskID, o de todas las tareas si taskID es 0.
func listSQLiteSubtasks(ctx context.Context, q sqlQuerier, taskID int64) ([]domain.Subtask, error) {
	query := `
		SELECT id, task_id, content, is_completed, created_at
		FROM subtasks
		WHERE deleted_at IS NULL AND (? = 0 OR task_id = ?)
		ORDER BY id ASC
	`
	rows, err := q.QueryContext(ctx, query, taskID, taskID)
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

const sqliteNoteColumns = `
	n.id, n.content, n.category, n.project_id, p.tag, n.created_at, n.updated_at
`

func scanSQLiteNote(row rowScanner) (domain.Note, error) {
	var (
		n        domain.Note
		category sql.NullString
	)
	err := row.Scan(&n.ID, &n.Content, &category, &n.ProjectID, &n.ProjectTag, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return domain.Note{}, err
	}
	n.Category = category.String
	return n, nil
}

func getSQLiteNote(ctx context.Context, q sqlQuerier, id int64) (domain.Note, error) {
	query := `
		SELECT ` + sqliteNoteColumns + `
		FROM notes n
		JOIN projects p ON p.id = n.project_id
		WHERE n.id = ? AND n.deleted_at IS NULL
	`
	n, err := scanSQLiteNote(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Note{}, ErrNotFound
	}
	return n, err
}

type sqliteTaskTx struct {
	q sqlQuerier
}

func (t *sqliteTaskTx) FindProjectByTag(ctx context.Context, tag string) (domain.Project, error) {
	const query = `
		SELECT id, tag, COALESCE(name, ''), created_at
		FROM projects
		WHERE tag = ?
	`
	var p domain.Project
	err := t.q.QueryRowContext(ctx, query, tag).Scan(&p.ID, &p.Tag, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, ErrNotFound
	}
	return p, err
}

func (t *sqliteTaskTx) CreateProject(ctx context.Context, project domain.Project) (domain.Project, error) {
	const query = `
		INSERT INTO projects (tag, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (tag) DO NOTHING
		RETURNING id
	`
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	err := t.q.QueryRowContext(ctx, query,
		project.Tag,
		nullIfEmpty(project.Name),
		project.CreatedAt,
	).Scan(&project.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, ErrConflict
	}
	return project, err
}

func (t *sqliteTaskTx) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	const query = `
		INSERT INTO tasks (content, category, priority, deadline, is_completed, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	task = stampTask(task)
	err := t.q.QueryRowContext(ctx, query,
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

func (t *sqliteTaskTx) CreateSubtask(ctx context.Context, subtask domain.Subtask) (domain.Subtask, error) {
	const query = `
		INSERT INTO subtasks (content, is_completed, task_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	if subtask.CreatedAt.IsZero() {
		subtask.CreatedAt = time.Now().UTC()
	}
	err := t.q.QueryRowContext(ctx, query,
		subtask.Content,
		subtask.IsCompleted,
		subtask.TaskID,
		subtask.CreatedAt,
	).Scan(&subtask.ID)
	return subtask, err
}

func (t *sqliteTaskTx) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return getSQLiteTask(ctx, t.q, id)
}

func (t *sqliteTaskTx) UpdateTask(ctx context.Context, task domain.Task) error {
	const query = `
		UPDATE tasks
		SET content = ?, category = ?, priority = ?, deadline = ?, is_completed = ?, project_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	res, err := t.q.ExecContext(ctx, query,
		task.Content,
		nullIfEmpty(task.Category),
		nullIfEmpty(task.Priority),
		nullTime(task.Deadline),
		task.IsCompleted,
		task.ProjectID,
		task.UpdatedAt,
		task.ID,
	)
	return requireRow(res, err)
}

func (t *sqliteTaskTx) CreateNote(ctx context.Context, note domain.Note) (domain.Note, error) {
	const query = `
		INSERT INTO notes (content, category, project_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	note = stampNote(note)
	err := t.q.QueryRowContext(ctx, query,
		note.Content,
		nullIfEmpty(note.Category),
		note.ProjectID,
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID)
	return note, err
}

func (t *sqliteTaskTx) GetNote(ctx context.Context, id int64) (domain.Note, error) {
	return getSQLiteNote(ctx, t.q, id)
}

func (t *sqliteTaskTx) UpdateNote(ctx context.Context, note domain.Note) error {
	const query = `
		UPDATE notes
		SET content = ?, category = ?, project_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	res, err := t.q.ExecContext(ctx, query,
		note.Content,
		nullIfEmpty(note.Category),
		note.ProjectID,
		note.UpdatedAt,
		note.ID,
	)
	return requireRow(res, err)
}

func (t *sqliteTaskTx) SoftDelete(ctx context.Context, kind EntityKind, id int64, at time.Time) error {
	table, ok := softDeleteTable(kind)
	if !ok {
		return fmt.Errorf("soft delete: unknown kind %q", kind)
	}
	query := `UPDATE ` + table + ` SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	res, err := t.q.ExecContext(ctx, query, at.UTC(), id)
	return requireRow(res, err)
}

// requireRow convierte un UPDATE que no tocó filas en ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
