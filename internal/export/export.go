// Package export renders an assembled digest to its output files:
// markdown report, JSON payload, news-links CSV and a research prompt.
// It never recomputes anything; every value comes from the digest.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"finfetch/internal/digest"
	"finfetch/internal/errs"
)

// Paths names the four files one digest run produces.
type Paths struct {
	Markdown string
	JSON     string
	CSV      string
	Prompt   string
}

// PathsFor derives the output paths from the digest identity: daily
// digests key by date, weekly ones by ISO week.
func PathsFor(d *digest.Digest, outDir string) Paths {
	base := "daily_" + d.Date
	if d.Type == digest.Weekly {
		base = "weekly_" + d.Week
	}
	return Paths{
		Markdown: filepath.Join(outDir, base+".md"),
		JSON:     filepath.Join(outDir, base+".json"),
		CSV:      filepath.Join(outDir, base+"_news_links.csv"),
		Prompt:   filepath.Join(outDir, base+"_prompt.txt"),
	}
}

// WriteAll renders every output format and returns their paths.
func WriteAll(d *digest.Digest, outDir string) (Paths, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Paths{}, errs.Wrap(errs.Unknown, err, "creating output dir")
	}
	paths := PathsFor(d, outDir)

	if err := os.WriteFile(paths.Markdown, []byte(Markdown(d)), 0o644); err != nil {
		return paths, errs.Wrap(errs.Unknown, err, "writing markdown digest")
	}
	if err := writeJSON(d, paths.JSON); err != nil {
		return paths, err
	}
	if err := writeCSV(d.NewsLinks, paths.CSV); err != nil {
		return paths, err
	}
	if err := os.WriteFile(paths.Prompt, []byte(Prompt(d)), 0o644); err != nil {
		return paths, errs.Wrap(errs.Unknown, err, "writing prompt")
	}
	return paths, nil
}

func writeJSON(d *digest.Digest, path string) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errs.Wrap(errs.Unknown, err, "encoding digest json")
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return errs.Wrap(errs.Unknown, err, "writing digest json")
	}
	return nil
}

var csvHeader = []string{"scope", "ticker", "source", "title", "url", "published_at", "provider"}

func writeCSV(rows []digest.LinkRow, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.Unknown, err, "creating news links csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errs.Wrap(errs.Unknown, err, "writing csv header")
	}
	for _, row := range rows {
		rec := []string{row.Scope, row.Ticker, row.Source, row.Title, row.URL, row.PublishedAt, row.Provider}
		if err := w.Write(rec); err != nil {
			return errs.Wrap(errs.Unknown, err, "writing csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errs.Wrap(errs.Unknown, err, "flushing csv")
	}
	return nil
}

// Prompt renders the research-assistant prompt that accompanies each
// digest: one numbered source line per news link.
func Prompt(d *digest.Digest) string {
	var b stringsBuilder
	b.line("You are a financial research assistant. Visit each link below, extract the key facts, and write a market digest report in Markdown.")
	b.line("")
	b.line("Requirements:")
	b.line("- Sections: TL;DR (3 bullets), Key Takeaways (1-2 bullets), In-Depth (120-200 words per source)")
	b.line("- Include citations as inline links for every non-trivial claim")
	b.line("- Keep tone neutral and factual")
	b.line("- Output Markdown only")
	b.line("")
	b.line(fmt.Sprintf("# %s (%s)", d.Title, d.Date))
	b.line("")
	b.line("## Sources")
	idx := 1
	for _, row := range d.NewsLinks {
		if row.URL == "" {
			continue
		}
		label := row.Title
		if label == "" {
			label = row.URL
		}
		meta := ""
		for _, part := range []string{row.Source, row.Ticker, row.PublishedAt} {
			if part == "" {
				continue
			}
			if meta != "" {
				meta += " | "
			}
			meta += part
		}
		if meta != "" {
			b.line(fmt.Sprintf("%d. %s (%s) - %s", idx, label, meta, row.URL))
		} else {
			b.line(fmt.Sprintf("%d. %s - %s", idx, label, row.URL))
		}
		idx++
	}
	return b.String()
}
