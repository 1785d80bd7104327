package keyword

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// maxLearnedWords caps how many words of a description become a learned keyword
const maxLearnedWords = 3

// Mapping routes descriptions containing Keyword to BucketID
type Mapping struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Keyword   string    `json:"keyword"`
	BucketID  uuid.UUID `json:"bucket_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize lowercases a keyword and collapses its whitespace
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FromDescription derives the keyword learned for a transaction description:
// its first few words, lowercased, skipping tokens that carry digits such as
// card numbers, dates or references. Returns "" when nothing is left.
func FromDescription(description string) string {
	words := make([]string, 0, maxLearnedWords)
	for _, w := range strings.Fields(strings.ToLower(description)) {
		if strings.IndexFunc(w, unicode.IsDigit) >= 0 {
			continue
		}
		w = strings.TrimFunc(w, unicode.IsPunct)
		if w == "" {
			continue
		}
		words = append(words, w)
		if len(words) == maxLearnedWords {
			break
		}
	}
	return strings.Join(words, " ")
}

// match returns the mapping with the longest keyword contained in description
func match(mappings []*Mapping, description string) *Mapping {
	text := Normalize(description)
	var best *Mapping
	for _, m := range mappings {
		if m.Keyword == "" || !strings.Contains(text, m.Keyword) {
			continue
		}
		if best == nil || len(m.Keyword) > len(best.Keyword) {
			best = m
		}
	}
	return best
}
