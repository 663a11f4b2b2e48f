package llm

import (
	"fmt"
	"strings"

	"rafpad/internal/domain"
)

// SystemPrompt declara al modelo las herramientas que el filtro de comandos reconoce.
const SystemPrompt = `You are a helpful assistant inside a personal notes and tasks organizer. Answer concisely and stay on topic. Remember the context of the conversation.

Available tools:
[add_task]: Use this tool to add a new task. Format the command exactly as: [add_task]: "task content".
Example: if the user wants to add the task 'buy milk', reply with: [add_task]: "buy milk".
Alternatively you may write ADD TASK: followed by the task description.
When you use a tool, reply with the command only.`

// FormatPromptWithContext envuelve el mensaje con la pista de contexto (tipo, proyecto, categoría...).
func FormatPromptWithContext(prompt string, c domain.ChatContext) string {
	project := strings.TrimSpace(c.Project)
	if project == "" {
		project = domain.DefaultProjectTag
	}

	var sb strings.Builder
	if strings.EqualFold(c.Type, domain.ContextTypeTask) {
		priority := strings.TrimSpace(c.Priority)
		if priority == "" {
			priority = domain.PriorityMedium
		}
		sb.WriteString("Create a task:\n")
		sb.WriteString(fmt.Sprintf("Content: %s\n", prompt))
		sb.WriteString(fmt.Sprintf("Project: %s\n", project))
		sb.WriteString(fmt.Sprintf("Category: %s\n", c.Category))
		sb.WriteString(fmt.Sprintf("Priority: %s\n", priority))
		sb.WriteString(fmt.Sprintf("Deadline: %s\n", c.Deadline))
		return sb.String()
	}

	sb.WriteString("Create a note:\n")
	sb.WriteString(fmt.Sprintf("Content: %s\n", prompt))
	sb.WriteString(fmt.Sprintf("Project: %s\n", project))
	sb.WriteString(fmt.Sprintf("Category: %s\n", c.Category))
	return sb.String()
}
