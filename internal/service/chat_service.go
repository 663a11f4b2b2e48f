package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rafpad/internal/config"
	"rafpad/internal/domain"
	"rafpad/internal/llm"
)

const DefaultContextMessages = 5

type ChatOptions struct {
	SystemPrompt    string
	ContextMessages int
	Timeout         time.Duration
	Params          llm.GenerationParams
}

func DefaultChatOptions() ChatOptions {
	return ChatOptions{
		SystemPrompt:    llm.SystemPrompt,
		ContextMessages: DefaultContextMessages,
		Timeout:         30 * time.Second,
		Params:          llm.DefaultGenerationParams(),
	}
}

// ChatOptionsFromConfig traslada los parámetros de chat y de muestreo de la configuración.
func ChatOptionsFromConfig(cfg *config.Config) ChatOptions {
	opts := DefaultChatOptions()
	if cfg == nil {
		return opts
	}
	if cfg.ChatContextSize > 0 {
		opts.ContextMessages = cfg.ChatContextSize
	}
	if cfg.LLMTimeout > 0 {
		opts.Timeout = cfg.LLMTimeout
	}
	opts.Params.Temperature = cfg.LLMTemperature
	if cfg.LLMMaxTokens > 0 {
		opts.Params.MaxTokens = cfg.LLMMaxTokens
	}
	opts.Params.TopP = cfg.LLMTopP
	return opts
}

// ChatService orquesta un turno: historial → completion → filtro de comandos → historial.
// Nunca devuelve error; cualquier fallo interno termina en una respuesta de fallback.
type ChatService struct {
	llmClient llm.CompletionClient
	history   *HistoryStore
	filter    *CommandFilter
	fallback  *FallbackPolicy
	logger    *zap.Logger
	locks     *sessionLocks
	opts      ChatOptions
}

// NewChatService acepta llmClient nil: en ese caso todos los turnos usan el fallback.
func NewChatService(
	llmClient llm.CompletionClient,
	history *HistoryStore,
	filter *CommandFilter,
	fallback *FallbackPolicy,
	logger *zap.Logger,
	opts ChatOptions,
) *ChatService {
	if history == nil {
		history = NewHistoryStore(DefaultMaxHistory)
	}
	if filter == nil {
		filter = NewCommandFilter(nil, nil, logger)
	}
	if fallback == nil {
		fallback = NewFallbackPolicy(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ContextMessages <= 0 {
		opts.ContextMessages = DefaultContextMessages
	}
	return &ChatService{
		llmClient: llmClient,
		history:   history,
		filter:    filter,
		fallback:  fallback,
		logger:    logger,
		locks:     newSessionLocks(),
		opts:      opts,
	}
}

// Respond genera la respuesta visible para prompt en la sesión dada y actualiza el historial
// con el prompt original y el texto filtrado. Los turnos de una misma sesión se serializan.
func (s *ChatService) Respond(ctx context.Context, prompt, sessionID string, chatCtx *domain.ChatContext) (reply string) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("chat turn panicked", zap.Any("panic", r), zap.String("session_id", sessionID))
			reply = s.fallback.Respond(prompt)
		}
	}()

	recent := s.history.Recent(sessionID, s.opts.ContextMessages)

	raw, err := s.complete(ctx, llm.CompletionRequest{
		SystemPrompt: s.opts.SystemPrompt,
		History:      recent,
		Prompt:       prompt,
		Context:      chatCtx,
		Params:       s.opts.Params,
	})
	if err != nil {
		s.logger.Warn("completion unavailable, using fallback",
			zap.Error(err),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.String("session_id", sessionID),
		)
		raw = s.fallback.Respond(prompt)
	}

	reply = s.filter.Apply(ctx, raw)

	err = s.history.Append(sessionID,
		domain.NewChatMessage(domain.RoleUser, prompt),
		domain.NewChatMessage(domain.RoleAssistant, reply),
	)
	if err != nil {
		s.logger.Warn("history append failed", zap.Error(err), zap.String("session_id", sessionID))
	}
	return reply
}

func (s *ChatService) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if s.llmClient == nil {
		return "", llm.ErrCompletionUnavailable
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	out, err := s.llmClient.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	out = cleanCompletionText(out)
	if strings.TrimSpace(out) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return out, nil
}

// History devuelve el historial de la sesión; vacío si no existe.
func (s *ChatService) History(sessionID string) []domain.ChatMessage {
	return s.history.Messages(sessionID)
}

// ClearHistory borra el historial de la sesión. Un turno en curso vuelve a crearla al terminar.
func (s *ChatService) ClearHistory(sessionID string) {
	s.history.Clear(sessionID)
}
