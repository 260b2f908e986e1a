package types

import "time"

// ImageStatus describes what happened to an article image.
type ImageStatus string

const (
	ImageSaved   ImageStatus = "saved"
	ImageSkipped ImageStatus = "skipped"
	ImageFailed  ImageStatus = "failed"
)

// ImageOutcome records the download result for one article.
type ImageOutcome struct {
	// Index is the 0-based article position.
	Index  int
	URL    string
	Path   string
	Status ImageStatus
	Err    error
}

// Report aggregates the outcome of a pipeline run.
type Report struct {
	RunID              string
	StartedAt          time.Time
	FinishedAt         time.Time
	PageURL            string
	NavigationStrategy string
	Articles           []Article
	Images             []ImageOutcome
	Translations       *Translations
	WordCounts         WordCounts
	RepeatedWords      WordCounts
}

// TranslatedTitles returns the translated headlines in article order.
func (r *Report) TranslatedTitles() []string {
	if r == nil || r.Translations == nil {
		return nil
	}
	return r.Translations.Texts(len(r.Articles))
}
