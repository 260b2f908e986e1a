package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"

	"elpais-crawler/pkg/types"
)

// Reporter prints the human-readable sections of a run.
type Reporter struct {
	out          io.Writer
	contentWidth int
}

// NewReporter writes to out. A positive contentWidth truncates article
// content to that many display columns.
func NewReporter(out io.Writer, contentWidth int) *Reporter {
	return &Reporter{out: out, contentWidth: contentWidth}
}

func (r *Reporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func (r *Reporter) clip(s string) string {
	if r.contentWidth <= 0 {
		return s
	}
	return runewidth.Truncate(s, r.contentWidth, "…")
}

// Articles prints the scraped articles in their original language.
func (r *Reporter) Articles(articles []types.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(r.out, "No articles were extracted.")
		return
	}
	t := r.newTable("Scraped articles")
	t.AppendHeader(table.Row{"#", "Title", "Content", "Image"})
	for i, a := range articles {
		image := a.ImageURL
		if image == "" {
			image = "-"
		}
		t.AppendRow(table.Row{i + 1, a.Title, r.clip(strings.ReplaceAll(a.Content, "\n", " ")), image})
	}
	t.Render()
}

// Images prints the download outcome of each article image.
func (r *Reporter) Images(outcomes []types.ImageOutcome) {
	if len(outcomes) == 0 {
		return
	}
	t := r.newTable("Images")
	t.AppendHeader(table.Row{"#", "Status", "File", "Detail"})
	for _, o := range outcomes {
		detail := ""
		if o.Err != nil {
			detail = r.clip(o.Err.Error())
		}
		t.AppendRow(table.Row{o.Index + 1, o.Status, o.Path, detail})
	}
	t.Render()
}

// Translations prints each original headline next to its translation.
func (r *Reporter) Translations(articles []types.Article, translations *types.Translations) {
	if len(articles) == 0 || translations == nil {
		return
	}
	t := r.newTable("Translated headlines")
	t.AppendHeader(table.Row{"#", "Original", "Translated", "Backend"})
	for i, a := range articles {
		tr, ok := translations.Get(i)
		if !ok {
			continue
		}
		backend := tr.Backend
		if tr.Failed {
			backend = "failed"
		}
		t.AppendRow(table.Row{i + 1, a.Title, tr.Text, backend})
	}
	t.Render()
}

// RepeatedWords prints the words seen at least minOccurrences times.
func (r *Reporter) RepeatedWords(words types.WordCounts, minOccurrences int) {
	if len(words) == 0 {
		fmt.Fprintf(r.out, "No words appeared %d or more times across translated headlines.\n", minOccurrences)
		return
	}
	t := r.newTable(fmt.Sprintf("Repeated words (%d or more times)", minOccurrences))
	t.AppendHeader(table.Row{"Word", "Count"})
	for _, wc := range words.Sorted() {
		t.AppendRow(table.Row{wc.Word, wc.Count})
	}
	t.Render()
}

// Summary prints one line describing the run.
func (r *Reporter) Summary(rep *types.Report) {
	strategy := rep.NavigationStrategy
	if strategy == "" {
		strategy = "none"
	}
	fmt.Fprintf(r.out, "run %s: %d articles from %s (navigation: %s) in %s\n",
		rep.RunID, len(rep.Articles), rep.PageURL, strategy,
		rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
}
