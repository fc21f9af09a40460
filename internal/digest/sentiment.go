package digest

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"finfetch/internal/model"
)

// Headline word lists for the fallback sentiment signal. Deliberately
// small: a headline either trips one list, the other, or neither.
var posWords = wordSet(
	"beat", "beats", "surge", "surges", "soar", "soars", "soared",
	"record", "strong", "stronger", "growth", "profit", "profits",
	"up", "upgrade", "upgrades", "bull", "bullish", "raises", "raise",
	"accelerate", "accelerates", "wins", "win", "positive", "guidance",
)

var negWords = wordSet(
	"miss", "misses", "slump", "slumps", "drop", "drops", "dropped",
	"weak", "weaker", "decline", "declines", "down", "downgrade",
	"downgrades", "bear", "bearish", "cuts", "cut", "slowdown",
	"loss", "losses", "negative", "warning", "warns",
)

var stopWords = wordSet(
	"the", "and", "for", "with", "from", "that", "this", "into", "over",
	"after", "before", "ahead", "amid", "as", "at", "by", "on", "in",
	"to", "of", "a", "an", "is", "are", "be", "its", "it", "their",
	"shares", "stock", "stocks", "company", "corp", "inc", "ltd",
	"co", "report", "reports", "quarter", "q1", "q2", "q3", "q4",
	"year", "years", "says", "said", "saying",
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// headlineSentiment scores one title: +1 when only positive words hit,
// -1 when only negative ones do, 0 otherwise (including mixed signals).
func headlineSentiment(title string) int {
	pos, neg := false, false
	for _, w := range wordRe.FindAllString(strings.ToLower(title), -1) {
		if _, ok := posWords[w]; ok {
			pos = true
		}
		if _, ok := negWords[w]; ok {
			neg = true
		}
	}
	switch {
	case pos && !neg:
		return 1
	case neg && !pos:
		return -1
	default:
		return 0
	}
}

// weightedSentiment aggregates headline signals with recency decay:
// a fresh article counts fully, a week-old one at the 0.2 floor.
// Label thresholds sit at +-0.15 so a lone weak signal stays Neutral.
func weightedSentiment(news []model.NewsItem, now time.Time) (string, float64) {
	if len(news) == 0 {
		return "Neutral", 0
	}
	var totalWeight, scoreSum float64
	for _, item := range news {
		signal := headlineSentiment(item.Title)
		weight := 0.5
		if !item.PublishedAt.IsZero() {
			days := now.Sub(item.PublishedAt).Hours() / 24
			if days < 0 {
				days = 0
			}
			days = float64(int(days))
			weight = 1 - days/7
			if weight < 0.2 {
				weight = 0.2
			}
		}
		totalWeight += weight
		scoreSum += float64(signal) * weight
	}
	if totalWeight == 0 {
		return "Neutral", 0
	}
	score := scoreSum / totalWeight
	switch {
	case score >= 0.15:
		return "Positive", score
	case score <= -0.15:
		return "Negative", score
	default:
		return "Neutral", score
	}
}

// Theme is one recurring headline keyword with its frequency.
type Theme struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

const themeLimit = 6

// extractThemes counts headline keywords across the window, skipping
// stop words and anything shorter than three characters. Output is
// ordered by count descending, then word ascending.
func extractThemes(news []model.NewsItem, limit int) []Theme {
	counts := map[string]int{}
	for _, item := range news {
		for _, w := range wordRe.FindAllString(strings.ToLower(item.Title), -1) {
			if len(w) < 3 {
				continue
			}
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}
	themes := make([]Theme, 0, len(counts))
	for w, c := range counts {
		themes = append(themes, Theme{Theme: w, Count: c})
	}
	sort.Slice(themes, func(i, j int) bool {
		if themes[i].Count != themes[j].Count {
			return themes[i].Count > themes[j].Count
		}
		return themes[i].Theme < themes[j].Theme
	})
	if len(themes) > limit {
		themes = themes[:limit]
	}
	return themes
}
