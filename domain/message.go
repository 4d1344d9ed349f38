// Package domain contains core concepts of the chat relay.
// This file defines Message records and related rules.
// A Message is immutable once created; only its translation map
// grows as cache fills land. No runtime, network, or UI logic here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a canonical chat message as submitted by its author.
// Body is stored verbatim and never retranslated into SourceLang.
type Message struct {
	ID           uuid.UUID
	Author       string
	Body         string
	SourceLang   string            // ISO 639-1 code detected at persist time
	Translations map[string]string // lang code -> translated text, grows only
	CreatedAt    time.Time
}

// Translation returns the cached rendering for lang, if any.
func (m Message) Translation(lang string) (string, bool) {
	text, ok := m.Translations[lang]
	return text, ok
}
