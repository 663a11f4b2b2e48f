package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rafpad/internal/domain"
	"rafpad/internal/repository"
)

const maxNoteContentLength = 5000

var ErrNoteInvalidInput = errors.New("note invalid input")

type NoteInput struct {
	Content    string
	Category   string
	ProjectTag string
}

// NotePatch describe una actualización parcial; los campos nil no se tocan.
type NotePatch struct {
	Content    *string
	Category   *string
	ProjectTag *string
}

// CreateNote guarda una nota sin HTML, resolviendo (o creando) su proyecto en la misma transacción.
func (s *TaskService) CreateNote(ctx context.Context, in NoteInput) (domain.Note, error) {
	if s == nil || s.store == nil {
		return domain.Note{}, ErrTaskServiceNotConfigured
	}
	content, err := validateContent(stripHTML(in.Content), maxNoteContentLength, ErrNoteInvalidInput)
	if err != nil {
		return domain.Note{}, err
	}
	tag := domain.NormalizeProjectTag(in.ProjectTag)
	if tag == "" {
		tag = s.defaultTag
	}

	var created domain.Note
	err = s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		project, err := resolveProject(ctx, tx, tag)
		if err != nil {
			return err
		}
		created, err = tx.CreateNote(ctx, domain.Note{
			Content:   content,
			Category:  strings.TrimSpace(in.Category),
			ProjectID: project.ID,
		})
		if err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		created.ProjectTag = project.Tag
		return nil
	})
	if err != nil {
		return domain.Note{}, err
	}
	return created, nil
}

func (s *TaskService) ListNotes(ctx context.Context) ([]domain.Note, error) {
	if s == nil || s.store == nil {
		return nil, ErrTaskServiceNotConfigured
	}
	return s.store.ListNotes(ctx)
}

func (s *TaskService) GetNote(ctx context.Context, id int64) (domain.Note, error) {
	if s == nil || s.store == nil {
		return domain.Note{}, ErrTaskServiceNotConfigured
	}
	note, err := s.store.GetNote(ctx, id)
	return note, mapNotFound(err)
}

// UpdateNote aplica patch sobre la nota; un project tag desconocido se ignora.
func (s *TaskService) UpdateNote(ctx context.Context, id int64, patch NotePatch) (domain.Note, error) {
	if s == nil || s.store == nil {
		return domain.Note{}, ErrTaskServiceNotConfigured
	}

	var updated domain.Note
	err := s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		note, err := tx.GetNote(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if patch.ProjectTag != nil {
			project, err := tx.FindProjectByTag(ctx, domain.NormalizeProjectTag(*patch.ProjectTag))
			switch {
			case err == nil:
				note.ProjectID = project.ID
			case !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("find project: %w", err)
			}
		}
		if patch.Content != nil {
			if note.Content, err = validateContent(stripHTML(*patch.Content), maxNoteContentLength, ErrNoteInvalidInput); err != nil {
				return err
			}
		}
		if patch.Category != nil {
			note.Category = strings.TrimSpace(*patch.Category)
		}
		note.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateNote(ctx, note); err != nil {
			return mapNotFound(err)
		}
		updated, err = tx.GetNote(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return domain.Note{}, err
	}
	return updated, nil
}

// MoveNote reasigna la nota a un proyecto existente.
func (s *TaskService) MoveNote(ctx context.Context, id int64, projectTag string) (domain.Note, error) {
	if s == nil || s.store == nil {
		return domain.Note{}, ErrTaskServiceNotConfigured
	}
	tag := domain.NormalizeProjectTag(projectTag)
	if tag == "" {
		return domain.Note{}, fmt.Errorf("%w: new project tag is required", ErrNoteInvalidInput)
	}

	var moved domain.Note
	err := s.store.WithTx(ctx, func(tx repository.TaskTx) error {
		note, err := tx.GetNote(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		project, err := findExistingProject(ctx, tx, tag)
		if err != nil {
			return err
		}
		note.ProjectID = project.ID
		note.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateNote(ctx, note); err != nil {
			return mapNotFound(err)
		}
		moved, err = tx.GetNote(ctx, id)
		return mapNotFound(err)
	})
	if err != nil {
		return domain.Note{}, err
	}
	return moved, nil
}
