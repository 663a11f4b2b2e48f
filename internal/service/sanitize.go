package service

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// stripHTML elimina todas las etiquetas y devuelve texto plano sin entidades escapadas.
func stripHTML(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
