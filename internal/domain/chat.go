package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage es inmutable una vez creado; el historial solo agrega o descarta.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatMessage(role, content string) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

const (
	ContextTypeNote = "note"
	ContextTypeTask = "task"
)

// ChatContext es una pista opcional para sesgar la completion; no se valida.
type ChatContext struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	Project  string `json:"project,omitempty"`
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}
