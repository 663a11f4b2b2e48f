package llm

import (
	"context"
	"errors"

	"rafpad/internal/domain"
)

var (
	ErrCompletionUnavailable = errors.New("completion service unavailable")
	ErrEmptyCompletion       = errors.New("llm empty response")
)

// CompletionClient define la interfaz para obtener una completion de texto.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GenerationParams son los parámetros de muestreo enviados al proveedor.
type GenerationParams struct {
	Temperature      float64
	MaxTokens        int64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature: 0.7,
		MaxTokens:   512,
		TopP:        0.9,
	}
}

// CompletionRequest agrupa todo lo que se envía en un turno.
// History ya viene recortado por el llamador.
type CompletionRequest struct {
	SystemPrompt string
	History      []domain.ChatMessage
	Prompt       string
	Context      *domain.ChatContext
	Params       GenerationParams
}

type turn struct {
	role    string
	content string
}

// buildTurns arma la secuencia system → historial → turno del usuario.
func buildTurns(req CompletionRequest) []turn {
	turns := make([]turn, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		turns = append(turns, turn{role: "system", content: req.SystemPrompt})
	}
	for _, msg := range req.History {
		role := domain.RoleAssistant
		if msg.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		turns = append(turns, turn{role: role, content: msg.Content})
	}
	prompt := req.Prompt
	if req.Context != nil {
		prompt = FormatPromptWithContext(req.Prompt, *req.Context)
	}
	turns = append(turns, turn{role: domain.RoleUser, content: prompt})
	return turns
}
