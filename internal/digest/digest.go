// Package digest reduces a hydrated batch into the narrative-ready
// digest structure. Everything here is a deterministic fold: explicit
// sort orders, explicit tie-breaks, and explicit "N/A" degradation
// when upstream data is missing.
package digest

import (
	"fmt"
	"sort"
	"time"

	"finfetch/internal/model"
	"finfetch/internal/orchestrator"
)

// Kind selects the digest window.
type Kind string

const (
	Daily  Kind = "daily"
	Weekly Kind = "weekly"
)

// Breadth counts tickers by direction. Zero-change tickers count as
// neither up nor down.
type Breadth struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Performer is one end of the best/worst ranking.
type Performer struct {
	Ticker string  `json:"ticker"`
	Change float64 `json:"change"`
}

// Snapshot summarizes the whole ticker set. When no ticker has enough
// price history, only Note is set.
type Snapshot struct {
	Breadth       *Breadth   `json:"breadth,omitempty"`
	AverageChange *float64   `json:"average_change,omitempty"`
	Best          *Performer `json:"best,omitempty"`
	Worst         *Performer `json:"worst,omitempty"`
	Note          string     `json:"note,omitempty"`
}

// SectorChange is one sector's average change across its tickers.
type SectorChange struct {
	Sector        string  `json:"sector"`
	AverageChange float64 `json:"average_change"`
}

// NewsLink is a rendered headline reference.
type NewsLink struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Provider    string `json:"provider"`
}

// TaggedHeadline labels a headline as Catalyst, Risk or Neutral based
// on its sentiment signal.
type TaggedHeadline struct {
	Label string `json:"label"`
	Title string `json:"title"`
}

// Sentiment is the labeled per-ticker reading; Source says whether a
// provider supplied it or the weighted headline fallback computed it.
type Sentiment struct {
	Source string   `json:"source"`
	Label  string   `json:"label"`
	Score  *float64 `json:"score"`
}

// Highlight is the per-ticker digest section.
type Highlight struct {
	Ticker         string           `json:"ticker"`
	Name           string           `json:"name"`
	Sector         string           `json:"sector"`
	Industry       string           `json:"industry"`
	Change         *float64         `json:"change"`
	StartPrice     *float64         `json:"start_price"`
	EndPrice       *float64         `json:"end_price"`
	Sentiment      Sentiment        `json:"sentiment"`
	Headlines      []NewsLink       `json:"headlines"`
	RisksCatalysts []TaggedHeadline `json:"risks_catalysts"`

	// Fundamentals backs the rendered detail lines; the JSON digest
	// carries only the identity fields above.
	Fundamentals *model.FundamentalsSnapshot `json:"-"`
}

// LinkRow is one row of the news-links export, covering both market
// and per-ticker headlines.
type LinkRow struct {
	Scope       string `json:"scope"`
	Ticker      string `json:"ticker"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Provider    string `json:"provider"`
}

// Digest is the assembled record. It is never mutated after assembly,
// only serialized.
type Digest struct {
	Type             Kind           `json:"type"`
	Date             string         `json:"date"`
	Week             string         `json:"week,omitempty"`
	Title            string         `json:"title"`
	Tickers          []string       `json:"tickers"`
	MarketSnapshot   Snapshot       `json:"market_snapshot"`
	SectorRotation   []SectorChange `json:"sector_rotation"`
	TopThemes        []Theme        `json:"top_themes"`
	MarketNews       []NewsLink     `json:"market_news"`
	TickerHighlights []Highlight    `json:"ticker_highlights"`
	NewsLinks        []LinkRow      `json:"news_links"`
}

const (
	marketNewsLimit = 5
	headlineLimit   = 3
)

// Options configures one assembly run.
type Options struct {
	Kind Kind
	// Date is the digest day; zero means the assembler's clock.
	Date              time.Time
	Title             string
	IncludeMarketNews bool
}

// Assembler folds batches into digests. Now is injectable so recency
// weighting and the daily window are reproducible in tests.
type Assembler struct {
	Now func() time.Time
}

func New() *Assembler {
	return &Assembler{Now: time.Now}
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

type tickerState struct {
	symbol       string
	fundamentals *model.FundamentalsSnapshot
	change       *float64
	startPrice   *float64
	endPrice     *float64
	news         []model.NewsItem
	sentiment    *model.SentimentScore
}

// Assemble reduces the batch into a digest. Two calls over the same
// batch and clock produce identical output: ticker order is sorted
// symbols, every list has a total order, and map iteration never
// reaches the result.
func (a *Assembler) Assemble(batch *orchestrator.BatchResult, tickers []model.Ticker, opts Options) *Digest {
	now := a.now()
	day := opts.Date
	if day.IsZero() {
		day = now
	}
	dayStr := day.Format("2006-01-02")

	symbols := make([]string, 0, len(tickers))
	seen := map[string]struct{}{}
	for _, t := range tickers {
		s := model.NormalizeSymbol(t.Symbol)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	// The daily window covers the 24h ending at the digest day's last
	// second; weekly uses the whole fetched bar range.
	var windowEnd time.Time
	if opts.Kind == Daily {
		windowEnd = time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC)
		if opts.Date.IsZero() {
			windowEnd = now
		}
	}

	states := make([]*tickerState, 0, len(symbols))
	var allNews []model.NewsItem
	for _, sym := range symbols {
		st := &tickerState{symbol: sym}
		if rec := batch.Record(sym, model.DTFundamentals); rec != nil {
			st.fundamentals = rec.Fundamentals
		}
		if rec := batch.Record(sym, model.DTSentiment); rec != nil {
			st.sentiment = rec.Sentiment
		}
		if rec := batch.Record(sym, model.DTPrices); rec != nil {
			var change, start, end float64
			var ok bool
			if opts.Kind == Daily {
				change, start, end, ok = model.DailyChange(rec.Bars)
			} else {
				change, start, end, ok = model.PercentChange(rec.Bars)
			}
			if ok {
				st.change, st.startPrice, st.endPrice = &change, &start, &end
			}
		}

		news := mergeNews(collectNews(batch, sym))
		if opts.Kind == Daily {
			news = filterWindow(news, windowEnd)
		}
		st.news = news
		allNews = append(allNews, news...)

		states = append(states, st)
	}

	d := &Digest{
		Type:    opts.Kind,
		Date:    dayStr,
		Tickers: symbols,
	}
	if opts.Kind == Weekly {
		year, week := day.ISOWeek()
		d.Week = fmt.Sprintf("%d-W%02d", year, week)
	}
	d.Title = opts.Title
	if d.Title == "" {
		if opts.Kind == Weekly {
			d.Title = "Weekly Market Digest: " + d.Week
		} else {
			d.Title = "Daily Market Digest: " + dayStr
		}
	}

	d.MarketSnapshot = snapshot(states, opts.Kind)
	d.SectorRotation = sectorRotation(states)
	d.TopThemes = extractThemes(allNews, themeLimit)

	if opts.IncludeMarketNews {
		market := mergeNews(collectMarketNews(batch))
		if len(market) > marketNewsLimit {
			market = market[:marketNewsLimit]
		}
		for _, item := range market {
			link := toLink(item)
			d.MarketNews = append(d.MarketNews, link)
			d.NewsLinks = append(d.NewsLinks, LinkRow{
				Scope: "market", Source: link.Source, Title: link.Title,
				URL: link.URL, PublishedAt: link.PublishedAt, Provider: link.Provider,
			})
		}
	}

	for _, st := range states {
		h := a.highlight(st, now)
		d.TickerHighlights = append(d.TickerHighlights, h)
		for _, link := range h.Headlines {
			d.NewsLinks = append(d.NewsLinks, LinkRow{
				Scope: "ticker", Ticker: st.symbol, Source: link.Source, Title: link.Title,
				URL: link.URL, PublishedAt: link.PublishedAt, Provider: link.Provider,
			})
		}
	}

	return d
}

func (a *Assembler) highlight(st *tickerState, now time.Time) Highlight {
	h := Highlight{
		Ticker:       st.symbol,
		Name:         "Unknown",
		Sector:       "N/A",
		Industry:     "N/A",
		Change:       st.change,
		StartPrice:   st.startPrice,
		EndPrice:     st.endPrice,
		Fundamentals: st.fundamentals,
	}
	if f := st.fundamentals; f != nil {
		if f.Name != "" {
			h.Name = f.Name
		}
		if f.Sector != "" {
			h.Sector = f.Sector
		}
		if f.Industry != "" {
			h.Industry = f.Industry
		}
	}

	if st.sentiment != nil {
		score := st.sentiment.Score
		h.Sentiment = Sentiment{Source: st.sentiment.Source, Label: st.sentiment.Label, Score: &score}
	} else {
		label, score := weightedSentiment(st.news, now)
		h.Sentiment = Sentiment{Source: "weighted", Label: label, Score: &score}
	}

	top := st.news
	if len(top) > headlineLimit {
		top = top[:headlineLimit]
	}
	for _, item := range top {
		h.Headlines = append(h.Headlines, toLink(item))
		label := "Neutral"
		switch headlineSentiment(item.Title) {
		case 1:
			label = "Catalyst"
		case -1:
			label = "Risk"
		}
		h.RisksCatalysts = append(h.RisksCatalysts, TaggedHeadline{Label: label, Title: item.Title})
	}
	return h
}

// snapshot folds per-ticker changes into breadth, average and the
// best/worst ranking. Ties on change break by symbol ascending; the
// states slice is already in sorted-symbol order so first-wins does it.
func snapshot(states []*tickerState, kind Kind) Snapshot {
	var changes []float64
	var best, worst *tickerState
	up, down := 0, 0
	for _, st := range states {
		if st.change == nil {
			continue
		}
		c := *st.change
		changes = append(changes, c)
		if c > 0 {
			up++
		} else if c < 0 {
			down++
		}
		if best == nil || c > *best.change {
			best = st
		}
		if worst == nil || c < *worst.change {
			worst = st
		}
	}
	if len(changes) == 0 {
		period := "daily"
		if kind == Weekly {
			period = "weekly"
		}
		return Snapshot{Note: fmt.Sprintf("Not enough price data to summarize %s performance.", period)}
	}

	sum := 0.0
	for _, c := range changes {
		sum += c
	}
	avg := sum / float64(len(changes))
	return Snapshot{
		Breadth:       &Breadth{Up: up, Down: down},
		AverageChange: &avg,
		Best:          &Performer{Ticker: best.symbol, Change: *best.change},
		Worst:         &Performer{Ticker: worst.symbol, Change: *worst.change},
	}
}

// sectorRotation averages change per sector, ordered by average
// descending then sector name ascending.
func sectorRotation(states []*tickerState) []SectorChange {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, st := range states {
		if st.change == nil {
			continue
		}
		sector := "Unknown"
		if st.fundamentals != nil && st.fundamentals.Sector != "" {
			sector = st.fundamentals.Sector
		}
		sums[sector] += *st.change
		counts[sector]++
	}
	out := make([]SectorChange, 0, len(sums))
	for sector, sum := range sums {
		out = append(out, SectorChange{Sector: sector, AverageChange: sum / float64(counts[sector])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageChange != out[j].AverageChange {
			return out[i].AverageChange > out[j].AverageChange
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

// collectNews gathers every news outcome for a symbol; a batch can
// carry more than one when several providers were hydrated.
func collectNews(batch *orchestrator.BatchResult, symbol string) []model.NewsItem {
	var items []model.NewsItem
	for i := range batch.Outcomes {
		o := &batch.Outcomes[i]
		if o.Symbol == symbol && o.DataType == model.DTNews && o.Record != nil {
			items = append(items, o.Record.News...)
		}
	}
	return items
}

func collectMarketNews(batch *orchestrator.BatchResult) []model.NewsItem {
	var items []model.NewsItem
	for i := range batch.Outcomes {
		o := &batch.Outcomes[i]
		if o.DataType == model.DTMarketNews && o.Record != nil {
			items = append(items, o.Record.News...)
		}
	}
	return items
}

// mergeNews dedups by stable id and sorts published_at descending with
// an id tie-break so equal timestamps still order deterministically.
func mergeNews(items []model.NewsItem) []model.NewsItem {
	seen := map[string]struct{}{}
	out := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		key := item.ID
		if key == "" {
			key = item.URL
		}
		if key == "" {
			key = item.Title
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func filterWindow(items []model.NewsItem, end time.Time) []model.NewsItem {
	start := end.Add(-24 * time.Hour)
	out := make([]model.NewsItem, 0, len(items))
	for _, item := range items {
		if item.PublishedAt.IsZero() {
			continue
		}
		if !item.PublishedAt.Before(start) && !item.PublishedAt.After(end) {
			out = append(out, item)
		}
	}
	return out
}

func toLink(item model.NewsItem) NewsLink {
	source := item.Source
	if source == "" {
		source = "Unknown"
	}
	published := ""
	if !item.PublishedAt.IsZero() {
		published = item.PublishedAt.UTC().Format(time.RFC3339)
	}
	return NewsLink{
		Title:       item.Title,
		Source:      source,
		URL:         item.URL,
		PublishedAt: published,
		Provider:    item.Provider,
	}
}
