// Package mock provides an extraction backend for local runs without an API
// key. It answers with canned JSON derived from the transcript.
package mock

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
)

// Extractor implements extraction.Extractor with deterministic answers.
// Capitalised words that do not start a sentence are treated as names.
type Extractor struct{}

// New creates a mock extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name implements extraction.Extractor.
func (e *Extractor) Name() string {
	return "mock"
}

// ExtractStudents implements extraction.Extractor.
func (e *Extractor) ExtractStudents(ctx context.Context, transcript string) (string, error) {
	students := []map[string]string{}
	for _, name := range names(transcript) {
		students = append(students, map[string]string{
			"name":             name,
			"category":         "Otro",
			"sentiment":        "Neutral",
			"summary":          transcript,
			"suggestedActions": "Revisar nota",
		})
	}
	return encode(map[string]any{"students": students})
}

// ExtractGeneralNote implements extraction.Extractor.
func (e *Extractor) ExtractGeneralNote(ctx context.Context, transcript string) (string, error) {
	return encode(map[string]string{
		"topic":          "Otro",
		"priority":       "Media",
		"summary":        transcript,
		"pendingActions": "Revisar nota",
	})
}

// ExtractLeads implements extraction.Extractor.
func (e *Extractor) ExtractLeads(ctx context.Context, transcript string) (string, error) {
	leads := []map[string]string{}
	for _, name := range names(transcript) {
		leads = append(leads, map[string]string{
			"nombre": name,
			"estado": "Nuevo",
			"notas":  transcript,
		})
	}
	return encode(map[string]any{"leads": leads})
}

func names(transcript string) []string {
	var out []string
	seen := map[string]bool{}
	sentenceStart := true
	for _, word := range strings.Fields(transcript) {
		w := strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
		if w != "" && !sentenceStart && unicode.IsUpper([]rune(w)[0]) && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
		sentenceStart = strings.HasSuffix(word, ".") || strings.HasSuffix(word, "?") || strings.HasSuffix(word, "!")
	}
	return out
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
