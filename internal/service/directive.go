package service

import (
	"regexp"
	"strings"

	"rafpad/internal/domain"
)

// Textos visibles cuando la completion contenía una directiva.
const (
	AckTaskAdded          = "Task added."
	AckTaskFailed         = "Error adding task."
	MsgMissingTaskContent = "No task content was provided."
)

// Recognizer intenta encontrar una directiva en el texto. ok=false si no hay coincidencia;
// el payload se devuelve sin validar.
type Recognizer interface {
	Recognize(text string) (domain.Directive, bool)
}

type quotedTagRecognizer struct {
	kind domain.DirectiveKind
	re   *regexp.Regexp
}

// NewQuotedTagRecognizer reconoce `[tag]: "payload"` sin distinguir mayúsculas en el tag.
func NewQuotedTagRecognizer(tag string, kind domain.DirectiveKind) Recognizer {
	return &quotedTagRecognizer{
		kind: kind,
		re:   regexp.MustCompile(`(?i)\[` + regexp.QuoteMeta(tag) + `\]:\s*"([^"]*)"`),
	}
}

func (r *quotedTagRecognizer) Recognize(text string) (domain.Directive, bool) {
	m := r.re.FindStringSubmatch(text)
	if len(m) < 2 {
		return domain.Directive{}, false
	}
	return domain.Directive{Kind: r.kind, Payload: strings.TrimSpace(m[1])}, true
}

type markerRecognizer struct {
	kind    domain.DirectiveKind
	markers []string
}

// NewMarkerRecognizer reconoce un marcador en mayúsculas (p.ej. "ADD TASK:") seguido de texto libre.
// Gana el marcador que aparece primero en el texto.
func NewMarkerRecognizer(kind domain.DirectiveKind, markers ...string) Recognizer {
	return &markerRecognizer{kind: kind, markers: markers}
}

func (r *markerRecognizer) Recognize(text string) (domain.Directive, bool) {
	pos, marker := -1, ""
	for _, m := range r.markers {
		if i := strings.Index(text, m); i >= 0 && (pos == -1 || i < pos) {
			pos, marker = i, m
		}
	}
	if pos == -1 {
		return domain.Directive{}, false
	}
	return domain.Directive{Kind: r.kind, Payload: strings.TrimSpace(text[pos+len(marker):])}, true
}

// Extraction es el resultado de escanear una completion.
type Extraction struct {
	Directive *domain.Directive
	Text      string
	Malformed bool
}

// DirectiveExtractor prueba los recognizers en orden; el primero que coincide gana.
type DirectiveExtractor struct {
	recognizers []Recognizer
}

func NewDirectiveExtractor(recognizers ...Recognizer) *DirectiveExtractor {
	return &DirectiveExtractor{recognizers: recognizers}
}

// DefaultDirectiveExtractor: primero `[add_task]: "..."`, luego "ADD TASK:" / "DODAJ ZADANIE:".
func DefaultDirectiveExtractor() *DirectiveExtractor {
	return NewDirectiveExtractor(
		NewQuotedTagRecognizer("add_task", domain.DirectiveAddTask),
		NewMarkerRecognizer(domain.DirectiveAddTask, "ADD TASK:", "DODAJ ZADANIE:"),
	)
}

// Extract devuelve el texto sin cambios si no hay directiva. Si la hay, el texto completo
// se reemplaza por un acuse; con payload vacío la directiva se marca como malformada.
func (e *DirectiveExtractor) Extract(text string) Extraction {
	for _, r := range e.recognizers {
		d, ok := r.Recognize(text)
		if !ok {
			continue
		}
		if d.Payload == "" {
			return Extraction{Text: MsgMissingTaskContent, Malformed: true}
		}
		return Extraction{Directive: &d, Text: AckTaskAdded}
	}
	return Extraction{Text: text}
}
