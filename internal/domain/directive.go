package domain

type DirectiveKind string

const DirectiveAddTask DirectiveKind = "add_task"

// Directive es un comando embebido en el texto de una completion. Vive solo durante un turno.
type Directive struct {
	Kind    DirectiveKind `json:"kind"`
	Payload string        `json:"payload"`
}
