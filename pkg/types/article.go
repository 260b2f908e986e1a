package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrAlreadyTranslated is returned when a headline translation is assigned twice.
var ErrAlreadyTranslated = errors.New("article already translated")

// Article is a single opinion piece scraped from the section page.
type Article struct {
	Title    string
	Content  string
	ImageURL string
}

// HasImage reports whether an image locator matched for the article.
func (a Article) HasImage() bool {
	return a.ImageURL != ""
}

// Translation is the outcome of translating one headline.
type Translation struct {
	Text    string
	Backend string
	Failed  bool
}

// Translations holds the translated headline of each article, keyed by the
// article's position in the scraped sequence. Each position is assigned once.
type Translations struct {
	mu      sync.RWMutex
	entries map[int]Translation
}

// NewTranslations creates an empty translation set.
func NewTranslations() *Translations {
	return &Translations{entries: make(map[int]Translation)}
}

// Assign records the translation for the article at index.
func (t *Translations) Assign(index int, tr Translation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[int]Translation)
	}
	if _, exists := t.entries[index]; exists {
		return fmt.Errorf("article %d: %w", index, ErrAlreadyTranslated)
	}
	t.entries[index] = tr
	return nil
}

// Get returns the translation for the article at index.
func (t *Translations) Get(index int) (Translation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.entries[index]
	return tr, ok
}

// Len returns the number of assigned translations.
func (t *Translations) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Texts returns the translated headlines in article order, skipping
// positions that were never assigned.
func (t *Translations) Texts(total int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.entries))
	for i := 0; i < total; i++ {
		if tr, ok := t.entries[i]; ok {
			out = append(out, tr.Text)
		}
	}
	return out
}

// WordCount is a single word frequency entry.
type WordCount struct {
	Word  string
	Count int
}

// WordCounts maps a normalised word to its number of occurrences.
type WordCounts map[string]int

// Sorted returns the entries ordered by count (descending) then word.
func (w WordCounts) Sorted() []WordCount {
	out := make([]WordCount, 0, len(w))
	for word, count := range w {
		out = append(out, WordCount{Word: word, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}
