package export

import (
	"fmt"
	"strings"

	"finfetch/internal/digest"
)

type stringsBuilder struct {
	lines []string
}

func (b *stringsBuilder) line(s string) {
	b.lines = append(b.lines, s)
}

func (b *stringsBuilder) String() string {
	return strings.Join(b.lines, "\n")
}

// Markdown renders the digest report.
func Markdown(d *digest.Digest) string {
	period := "Daily"
	if d.Type == digest.Weekly {
		period = "Weekly"
	}

	var b stringsBuilder
	b.line("# " + d.Title)
	b.line(fmt.Sprintf("**Date**: %s", d.Date))
	b.line("")

	b.line("## Market Snapshot")
	snap := d.MarketSnapshot
	if snap.Breadth != nil {
		b.line(fmt.Sprintf("- %s breadth: %d up / %d down", period, snap.Breadth.Up, snap.Breadth.Down))
		b.line(fmt.Sprintf("- Average change: %.2f%%", *snap.AverageChange))
		b.line(fmt.Sprintf("- Best performer: %s (%.2f%%)", snap.Best.Ticker, snap.Best.Change))
		b.line(fmt.Sprintf("- Worst performer: %s (%.2f%%)", snap.Worst.Ticker, snap.Worst.Change))
	} else {
		b.line("- " + snap.Note)
	}
	b.line("")

	b.line("## Sector Rotation")
	if len(d.SectorRotation) > 0 {
		for _, s := range d.SectorRotation {
			b.line(fmt.Sprintf("- %s: %.2f%%", s.Sector, s.AverageChange))
		}
	} else {
		b.line("- Sector data not available.")
	}
	b.line("")

	b.line("## Top Themes")
	if len(d.TopThemes) > 0 {
		for _, t := range d.TopThemes {
			b.line(fmt.Sprintf("- %s (%d)", t.Theme, t.Count))
		}
	} else {
		b.line("- No headline themes available.")
	}
	b.line("")

	b.line("## Market News")
	if len(d.MarketNews) > 0 {
		for _, item := range d.MarketNews {
			b.line(fmt.Sprintf("- %s: [%s](%s)", item.Source, item.Title, orHash(item.URL)))
		}
	} else {
		b.line("- No cached market news.")
	}
	b.line("")

	b.line("## Ticker Highlights")
	for _, h := range d.TickerHighlights {
		renderHighlight(&b, h, period)
	}

	return b.String()
}

func renderHighlight(b *stringsBuilder, h digest.Highlight, period string) {
	b.line("### " + h.Ticker)
	b.line(fmt.Sprintf("**%s** | Sector: %s | Industry: %s", h.Name, h.Sector, h.Industry))

	if h.Change != nil && h.StartPrice != nil && h.EndPrice != nil {
		b.line(fmt.Sprintf("- %s change: %.2f%% (%.2f -> %.2f)", period, *h.Change, *h.StartPrice, *h.EndPrice))
	} else {
		b.line(fmt.Sprintf("- %s change: N/A (Missing price history)", period))
	}

	if f := h.Fundamentals; f != nil {
		b.line(fmt.Sprintf("- Fundamentals (Core): Market Cap: %s | P/E (T/F): %s/%s | Revenue: %s",
			formatCompact(intPtrValue(f.MarketCap), f.Currency),
			formatRatio(floatPtrValue(f.TrailingPE)),
			formatRatio(floatPtrValue(f.ForwardPE)),
			formatCompact(f.Detail("totalRevenue"), f.Currency)))
		b.line(fmt.Sprintf("- Fundamentals (Growth): Revenue growth: %s | Earnings growth: %s | Margins: %s",
			formatPercent(f.Detail("revenueGrowth")),
			formatPercent(f.Detail("earningsGrowth", "earningsQuarterlyGrowth")),
			formatPercent(f.Detail("profitMargins"))))
		b.line(fmt.Sprintf("- Debt/Equity: %s", formatRatio(f.Detail("debtToEquity"))))
	}

	score := "N/A"
	if h.Sentiment.Score != nil {
		score = fmt.Sprintf("%.2f", *h.Sentiment.Score)
	}
	sourceLabel := "weighted"
	if h.Sentiment.Source != "" && h.Sentiment.Source != "weighted" {
		sourceLabel = strings.ToUpper(h.Sentiment.Source[:1]) + h.Sentiment.Source[1:]
	}
	b.line(fmt.Sprintf("- Sentiment: %s (%s, score %s)", h.Sentiment.Label, sourceLabel, score))

	if len(h.Headlines) > 0 {
		b.line("- Key headlines:")
		for _, item := range h.Headlines {
			b.line(fmt.Sprintf("  - %s: [%s](%s)", item.Source, item.Title, orHash(item.URL)))
		}
	} else {
		b.line("- Key headlines: N/A")
	}

	if len(h.RisksCatalysts) > 0 {
		b.line("- Risks/Catalysts:")
		for _, rc := range h.RisksCatalysts {
			b.line(fmt.Sprintf("  - %s: %s", rc.Label, rc.Title))
		}
	} else {
		b.line("- Risks/Catalysts: N/A")
	}

	b.line("")
}

func orHash(url string) string {
	if url == "" {
		return "#"
	}
	return url
}

func intPtrValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtrValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// formatCompact renders a large number with a magnitude suffix
// (1234000000 -> "1.23B"), optionally prefixed by a currency code.
func formatCompact(value any, currency string) string {
	num, ok := toFloat(value)
	if !ok {
		return "N/A"
	}
	sign := ""
	if num < 0 {
		sign = "-"
		num = -num
	}
	var out string
	switch {
	case num >= 1e12:
		out = fmt.Sprintf("%s%.2fT", sign, num/1e12)
	case num >= 1e9:
		out = fmt.Sprintf("%s%.2fB", sign, num/1e9)
	case num >= 1e6:
		out = fmt.Sprintf("%s%.2fM", sign, num/1e6)
	case num >= 1e3:
		out = fmt.Sprintf("%s%.2fK", sign, num/1e3)
	default:
		out = fmt.Sprintf("%s%.2f", sign, num)
	}
	if currency != "" {
		return currency + " " + out
	}
	return out
}

func formatRatio(value any) string {
	num, ok := toFloat(value)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", num)
}

// formatPercent renders a provider fraction (0.08) as "8.00%".
func formatPercent(value any) string {
	num, ok := toFloat(value)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", num*100)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
