package repository_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"rafpad/internal/config"
	"rafpad/internal/db"
	"rafpad/internal/domain"
	"rafpad/internal/repository"
)

// newPgStore usa la base indicada en DATABASE_URL; sin Postgres el test se omite.
func newPgStore(t *testing.T) *repository.PgTaskStore {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if !strings.HasPrefix(url, "postgres://") && !strings.HasPrefix(url, "postgresql://") {
		t.Skip("DATABASE_URL not set to a postgres url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, &config.Config{DatabaseURL: url})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Ping(ctx, pool); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := db.MigratePostgres(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewPgTaskStore(pool)
}

func uniqueTag() string {
	return "#t" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func TestPgTaskStore_CreateAndGet(t *testing.T) {
	store := newPgStore(t)
	ctx := context.Background()
	tag := uniqueTag()
	deadline := time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

	var created domain.Task
	err := store.WithTx(ctx, func(tx repository.TaskTx) error {
		project, err := tx.CreateProject(ctx, domain.Project{Tag: tag})
		if err != nil {
			return err
		}
		created, err = tx.CreateTask(ctx, domain.Task{
			Content:   "pg task",
			Category:  "work",
			Priority:  domain.PriorityLow,
			Deadline:  &deadline,
			ProjectID: project.ID,
		})
		if err != nil {
			return err
		}
		_, err = tx.CreateSubtask(ctx, domain.Subtask{TaskID: created.ID, Content: "pg step"})
		return err
	})
	if err != nil {
		t.Fatalf("expected tx to commit, got %v", err)
	}

	got, err := store.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ProjectTag != tag || got.Category != "work" || got.Priority != domain.PriorityLow {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Fatalf("expected deadline %v, got %v", deadline, got.Deadline)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0].Content != "pg step" {
		t.Fatalf("unexpected subtasks: %+v", got.Subtasks)
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	found := false
	for _, task := range tasks {
		if task.ID == created.ID {
			found = len(task.Subtasks) == 1
		}
	}
	if !found {
		t.Fatalf("expected created task with its subtask in list")
	}
}

func TestPgTaskStore_RollbackOnError(t *testing.T) {
	store := newPgStore(t)
	ctx := context.Background()
	tag := uniqueTag()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx repository.TaskTx) error {
		if _, err := tx.CreateProject(ctx, domain.Project{Tag: tag}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}

	err = store.WithTx(ctx, func(tx repository.TaskTx) error {
		_, err := tx.FindProjectByTag(ctx, tag)
		return err
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected rolled back project to be missing, got %v", err)
	}
}

func TestPgTaskStore_DuplicateTagConflicts(t *testing.T) {
	store := newPgStore(t)
	ctx := context.Background()
	tag := uniqueTag()

	create := func() error {
		return store.WithTx(ctx, func(tx repository.TaskTx) error {
			_, err := tx.CreateProject(ctx, domain.Project{Tag: tag})
			return err
		})
	}
	if err := create(); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := create(); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate tag, got %v", err)
	}
}

func TestPgTaskStore_NotesAndSoftDelete(t *testing.T) {
	store := newPgStore(t)
	ctx := context.Background()
	tag := uniqueTag()

	var note domain.Note
	err := store.WithTx(ctx, func(tx repository.TaskTx) error {
		project, err := tx.CreateProject(ctx, domain.Project{Tag: tag})
		if err != nil {
			return err
		}
		note, err = tx.CreateNote(ctx, domain.Note{Content: "pg note", ProjectID: project.ID})
		return err
	})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	got, err := store.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if got.Content != "pg note" || got.ProjectTag != tag {
		t.Fatalf("unexpected note: %+v", got)
	}

	err = store.WithTx(ctx, func(tx repository.TaskTx) error {
		return tx.SoftDelete(ctx, repository.EntityNotes, note.ID, time.Now())
	})
	if err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := store.GetNote(ctx, note.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected deleted note to be hidden, got %v", err)
	}
}
