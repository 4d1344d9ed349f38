package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks forbidden words in chat bodies before they are persisted
// or broadcast. Matching runs on a normalized view of the text (lowercased,
// leet speak folded, punctuation stripped) so "B.4.d.g.€r" still matches
// "badger", while masking applies to the original runes.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from the normalized word
// list. Words that normalize to nothing (pure punctuation) are dropped.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (Moderator, error) {
	var patterns [][]rune
	for _, word := range censoredWords {
		normalized := normalizeRunes([]rune(word))
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, censoredChar: censoredChar, log: log}, nil
}

// Censor replaces every matched span with the replacement rune, preserving
// length and spacing, and returns the matched normalized words.
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Mask everything between the first and last original rune of the
		// match, so separators inside a disguised word disappear with it.
		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
	}

	return string(origRunes), found
}

// normalize lowers, folds and strips the input while remembering where each
// kept rune came from.
func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}
