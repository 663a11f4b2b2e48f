package service

import (
	"regexp"
	"strings"
)

// deepseek-reasoner y similares pueden anteponer su razonamiento.
var thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)

// cleanCompletionText quita el BOM inicial y los bloques <think>. Cualquier otro
// texto, fences ``` incluidos, llega intacto al extractor de directivas.
func cleanCompletionText(raw string) string {
	s := strings.TrimPrefix(raw, "\uFEFF")
	if !thinkBlockRe.MatchString(s) {
		return s
	}
	return strings.TrimSpace(thinkBlockRe.ReplaceAllString(s, ""))
}
