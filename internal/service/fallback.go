package service

import (
	"math/rand/v2"
	"strings"
)

var (
	GreetingResponses = []string{
		"Hi! How can I help?",
		"Hello! What can I do for you?",
		"Good day! How may I assist you?",
	}
	DefaultResponses = []string{
		"I understand. What next?",
		"How can I help?",
		"Please let me know what you need.",
	}
	greetingKeywords = []string{"hi", "hello", "hey", "cześć", "witaj", "hej"}
)

// FallbackPolicy elige una respuesta enlatada cuando el servicio de completion no responde.
type FallbackPolicy struct {
	pick func(n int) int
}

// NewFallbackPolicy usa pick para elegir el índice; nil => aleatorio uniforme.
func NewFallbackPolicy(pick func(n int) int) *FallbackPolicy {
	if pick == nil {
		pick = rand.IntN
	}
	return &FallbackPolicy{pick: pick}
}

func (p *FallbackPolicy) Respond(prompt string) string {
	set := DefaultResponses
	if IsGreeting(prompt) {
		set = GreetingResponses
	}
	return set[p.pick(len(set))]
}

// IsGreeting hace match por substring, sin distinguir mayúsculas.
func IsGreeting(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range greetingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
