package export

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"finfetch/internal/errs"
	"finfetch/internal/transcript"
)

var (
	slugRe      = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	articleIDRe = regexp.MustCompile(`-([0-9]+)\.html`)
)

func slugify(text string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "transcript"
	}
	return slug
}

func articleID(url string) string {
	if m := articleIDRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	sum := md5.Sum([]byte(url))
	return fmt.Sprintf("%x", sum)[:8]
}

// TranscriptBasename derives a stable file stem: date, a quarter or
// title slug, and the article id from the URL.
func TranscriptBasename(t *transcript.Transcript) string {
	date := "undated"
	if t.EventDate != "" {
		date = t.EventDate
	} else if !t.PublishedAt.IsZero() {
		date = t.PublishedAt.UTC().Format("2006-01-02")
	}

	descriptor := ""
	if t.Quarter != "" {
		descriptor = slugify(t.Quarter)
	} else if t.Title != "" {
		descriptor = slugify(t.Title)
		if len(descriptor) > 40 {
			descriptor = descriptor[:40]
		}
	} else if t.Symbol != "" {
		descriptor = slugify(t.Symbol)
	} else {
		descriptor = "transcript"
	}

	return strings.Join([]string{date, descriptor, articleID(t.URL)}, "-")
}

// TranscriptPaths names the per-symbol output files.
type TranscriptPaths struct {
	JSON     string
	Markdown string
}

// WriteTranscript renders one transcript under outRoot/transcripts/<symbol>/.
func WriteTranscript(t *transcript.Transcript, outRoot string) (TranscriptPaths, error) {
	symbol := strings.ToUpper(t.Symbol)
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	dir := filepath.Join(outRoot, "transcripts", symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return TranscriptPaths{}, errs.Wrap(errs.Unknown, err, "creating transcript dir")
	}

	base := TranscriptBasename(t)
	paths := TranscriptPaths{
		JSON:     filepath.Join(dir, base+".json"),
		Markdown: filepath.Join(dir, base+".md"),
	}

	// The JSON export drops the page source: it is archival data the
	// store already holds.
	clean := *t
	clean.RawHTML = ""
	b, err := json.MarshalIndent(&clean, "", "  ")
	if err != nil {
		return paths, errs.Wrap(errs.Unknown, err, "encoding transcript json")
	}
	if err := os.WriteFile(paths.JSON, append(b, '\n'), 0o644); err != nil {
		return paths, errs.Wrap(errs.Unknown, err, "writing transcript json")
	}

	if err := os.WriteFile(paths.Markdown, []byte(transcriptMarkdown(t)), 0o644); err != nil {
		return paths, errs.Wrap(errs.Unknown, err, "writing transcript markdown")
	}
	return paths, nil
}

func transcriptMarkdown(t *transcript.Transcript) string {
	var b stringsBuilder
	title := t.Title
	if title == "" {
		title = "Earnings Call Transcript"
	}
	b.line("# " + title)
	if t.Symbol != "" {
		b.line(fmt.Sprintf("**Symbol**: %s", t.Symbol))
	}
	if t.Quarter != "" {
		b.line(fmt.Sprintf("**Quarter**: %s", t.Quarter))
	}
	if t.EventDate != "" {
		b.line(fmt.Sprintf("**Date**: %s", t.EventDate))
	}
	b.line(fmt.Sprintf("**Source**: %s", t.URL))
	b.line("")

	for _, sec := range t.Sections {
		header := sec.Speaker
		if sec.Role != "" {
			header += " (" + sec.Role + ")"
		}
		b.line("## " + header)
		b.line(sec.Text)
		b.line("")
	}
	return b.String()
}
