// Package transcript parses earnings-call transcript pages into a
// normalized structure and persists them by URL. Pages embed the
// article body in an ld+json block; paragraph scraping is the fallback
// for pages without one.
package transcript

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"finfetch/internal/errs"
)

// Section is one speaker's uninterrupted block of a call.
type Section struct {
	Speaker string `json:"speaker"`
	Role    string `json:"role,omitempty"`
	Text    string `json:"text"`
}

// Transcript is a normalized earnings-call transcript.
type Transcript struct {
	Provider    string    `json:"provider"`
	URL         string    `json:"url"`
	Symbol      string    `json:"symbol,omitempty"`
	Company     string    `json:"company,omitempty"`
	Title       string    `json:"title,omitempty"`
	Quarter     string    `json:"quarter,omitempty"`
	EventDate   string    `json:"event_date,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Speakers    []string  `json:"speakers"`
	Sections    []Section `json:"sections"`
	FullText    string    `json:"full_text"`
	RawHTML     string    `json:"raw_html,omitempty"`
}

var (
	ldJSONRe    = regexp.MustCompile(`(?is)<script[^>]+type="application/ld\+json"[^>]*>(.*?)</script>`)
	paragraphRe = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	tagRe       = regexp.MustCompile(`<[^>]+>`)
	quarterRe   = regexp.MustCompile(`(?i)(Q[1-4])[\s-]*(20\d{2})`)
	parenRe     = regexp.MustCompile(`\(([^)]+)\)`)
	companyRe   = regexp.MustCompile(`^(.+?)\s*\(`)
	quoteURLRe  = regexp.MustCompile(`/quote/([A-Za-z.-]+)/`)
)

type ldArticle struct {
	Headline      string `json:"headline"`
	ArticleBody   string `json:"articleBody"`
	DatePublished string `json:"datePublished"`
}

// extractLDJSON returns the first ld+json block carrying an article
// body. Blocks that fail to parse are skipped, not fatal.
func extractLDJSON(html string) *ldArticle {
	for _, m := range ldJSONRe.FindAllStringSubmatch(html, -1) {
		raw := strings.TrimSpace(m[1])

		var one ldArticle
		if err := json.Unmarshal([]byte(raw), &one); err == nil && one.ArticleBody != "" {
			return &one
		}
		var many []ldArticle
		if err := json.Unmarshal([]byte(raw), &many); err == nil {
			for i := range many {
				if many[i].ArticleBody != "" {
					return &many[i]
				}
			}
		}
	}
	return nil
}

func extractBody(html string) (string, *ldArticle) {
	if art := extractLDJSON(html); art != nil {
		return art.ArticleBody, art
	}
	var paras []string
	for _, m := range paragraphRe.FindAllStringSubmatch(html, -1) {
		p := strings.TrimSpace(tagRe.ReplaceAllString(m[1], " "))
		if p != "" {
			paras = append(paras, p)
		}
	}
	return strings.Join(paras, "\n"), nil
}

func parseQuarter(text, url string) string {
	for _, source := range []string{text, url} {
		if m := quarterRe.FindStringSubmatch(source); m != nil {
			return strings.ToUpper(m[1]) + " " + m[2]
		}
	}
	return ""
}

func parseSymbolCompany(headline, url string) (symbol, company string) {
	if m := parenRe.FindStringSubmatch(headline); m != nil {
		symbol = strings.ToUpper(strings.TrimSpace(m[1]))
	}
	if m := companyRe.FindStringSubmatch(headline); m != nil {
		company = strings.TrimSpace(m[1])
	}
	if symbol == "" {
		if m := quoteURLRe.FindStringSubmatch(url); m != nil {
			symbol = strings.ToUpper(m[1])
		}
	}
	return symbol, company
}

// looksLikeSpeakerHeader accepts short all-letter phrases ("Operator",
// "Jane Smith") and rejects anything that reads like prose.
func looksLikeSpeakerHeader(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 6 {
		return false
	}
	for _, w := range words {
		for _, r := range w {
			if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
				return false
			}
		}
	}
	return true
}

// parseSpeakerLine splits "Jane Smith -- CFO: text..." into its parts.
// Returns ok=false for ordinary prose lines.
func parseSpeakerLine(line string) (speaker, role, remainder string, ok bool) {
	raw := strings.TrimSpace(line)
	if raw == "" || len(raw) > 120 {
		return "", "", "", false
	}

	if head, rest, found := strings.Cut(raw, ":"); found {
		head = strings.TrimSpace(head)
		for _, sep := range []string{" -- ", " - "} {
			if h, r, hasRole := strings.Cut(head, sep); hasRole {
				head, role = strings.TrimSpace(h), strings.TrimSpace(r)
				break
			}
		}
		if looksLikeSpeakerHeader(head) {
			return head, role, strings.TrimSpace(rest), true
		}
		role = ""
	}
	if looksLikeSpeakerHeader(raw) {
		return raw, "", "", true
	}
	return "", "", "", false
}

// parseSections walks the body line by line, starting a new section at
// each speaker header. Text before the first header belongs to the
// Narrator.
func parseSections(body string) (sections []Section, speakers []string, fullText string) {
	speaker, role := "Narrator", ""
	var buffer []string

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		sections = append(sections, Section{
			Speaker: speaker,
			Role:    role,
			Text:    strings.TrimSpace(strings.Join(buffer, " ")),
		})
		buffer = nil
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sp, r, remainder, ok := parseSpeakerLine(line); ok {
			flush()
			speaker, role = sp, r
			if remainder != "" {
				buffer = append(buffer, remainder)
			}
			continue
		}
		buffer = append(buffer, line)
	}
	flush()

	seen := map[string]struct{}{}
	var texts []string
	for _, sec := range sections {
		if _, dup := seen[sec.Speaker]; !dup {
			seen[sec.Speaker] = struct{}{}
			speakers = append(speakers, sec.Speaker)
		}
		if sec.Text != "" {
			texts = append(texts, sec.Text)
		}
	}
	return sections, speakers, strings.Join(texts, "\n\n")
}

// Parse normalizes one transcript page. The html is kept verbatim on
// the result so a reparse never needs a refetch.
func Parse(url, html string) (*Transcript, error) {
	body, art := extractBody(html)
	if body == "" {
		return nil, errs.E(errs.Provider, "transcript page has no article body")
	}

	headline, datePublished := "", ""
	if art != nil {
		headline = art.Headline
		datePublished = art.DatePublished
	}

	symbol, company := parseSymbolCompany(headline, url)
	sections, speakers, fullText := parseSections(body)

	t := &Transcript{
		Provider: "yahoo",
		URL:      url,
		Symbol:   symbol,
		Company:  company,
		Title:    headline,
		Quarter:  parseQuarter(headline, url),
		Speakers: speakers,
		Sections: sections,
		FullText: fullText,
		RawHTML:  html,
	}
	if ts, err := time.Parse(time.RFC3339, datePublished); err == nil {
		t.PublishedAt = ts.UTC()
		t.EventDate = ts.UTC().Format("2006-01-02")
	}
	return t, nil
}
