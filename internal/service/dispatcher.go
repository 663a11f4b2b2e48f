package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rafpad/internal/domain"
)

// TaskCreator es lo único que el dispatcher necesita del almacén de tareas.
type TaskCreator interface {
	CreateTask(ctx context.Context, in TaskInput) (domain.Task, error)
}

// Dispatcher ejecuta una directiva reconocida y reporta si tuvo éxito.
type Dispatcher interface {
	Dispatch(ctx context.Context, d domain.Directive) bool
}

type directiveAction func(ctx context.Context, d domain.Directive) error

// CommandDispatcher mapea cada tipo de directiva a una acción contra el almacén.
type CommandDispatcher struct {
	tasks      TaskCreator
	defaultTag string
	logger     *zap.Logger
	actions    map[domain.DirectiveKind]directiveAction
}

func NewCommandDispatcher(tasks TaskCreator, defaultTag string, logger *zap.Logger) *CommandDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTag == "" {
		defaultTag = domain.DefaultProjectTag
	}
	d := &CommandDispatcher{
		tasks:      tasks,
		defaultTag: defaultTag,
		logger:     logger,
	}
	d.actions = map[domain.DirectiveKind]directiveAction{
		domain.DirectiveAddTask: d.addTask,
	}
	return d
}

// Dispatch nunca propaga errores: un fallo de persistencia se registra y devuelve false.
func (d *CommandDispatcher) Dispatch(ctx context.Context, directive domain.Directive) bool {
	action, ok := d.actions[directive.Kind]
	if !ok {
		d.logger.Warn("unknown directive kind", zap.String("kind", string(directive.Kind)))
		return false
	}
	if err := action(ctx, directive); err != nil {
		d.logger.Error("directive dispatch failed",
			zap.Error(err),
			zap.String("kind", string(directive.Kind)),
		)
		return false
	}
	d.logger.Info("directive dispatched", zap.String("kind", string(directive.Kind)))
	return true
}

func (d *CommandDispatcher) addTask(ctx context.Context, directive domain.Directive) error {
	if d.tasks == nil {
		return ErrTaskServiceNotConfigured
	}
	task, err := d.tasks.CreateTask(ctx, TaskInput{
		Content:    directive.Payload,
		ProjectTag: d.defaultTag,
	})
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	d.logger.Debug("task created from chat", zap.Int64("task_id", task.ID), zap.String("project", task.ProjectTag))
	return nil
}

// CommandFilter combina extractor y dispatcher: recibe la completion cruda y devuelve el texto visible.
type CommandFilter struct {
	extractor  *DirectiveExtractor
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewCommandFilter(extractor *DirectiveExtractor, dispatcher Dispatcher, logger *zap.Logger) *CommandFilter {
	if extractor == nil {
		extractor = DefaultDirectiveExtractor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandFilter{
		extractor:  extractor,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (f *CommandFilter) Apply(ctx context.Context, raw string) string {
	ex := f.extractor.Extract(raw)
	if ex.Malformed {
		f.logger.Warn("malformed directive in completion")
		return ex.Text
	}
	if ex.Directive == nil {
		return ex.Text
	}
	if f.dispatcher == nil || !f.dispatcher.Dispatch(ctx, *ex.Directive) {
		return AckTaskFailed
	}
	return ex.Text
}
