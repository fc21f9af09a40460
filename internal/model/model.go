package model

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"
)

// DataType names one fetchable slice of data for a ticker.
type DataType string

const (
	DTPrices       DataType = "prices"
	DTNews         DataType = "news"
	DTFundamentals DataType = "fundamentals"
	DTFinancials   DataType = "financials"
	DTSentiment    DataType = "sentiment"
	DTMarketNews   DataType = "market_news"
)

// Ticker is read-mostly reference data. Symbol is always uppercase.
type Ticker struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// PriceBar is a single OHLCV candle. Date is the bar's trading day in
// ISO8601 (YYYY-MM-DD). Bars for a ticker are ordered by date ascending.
type PriceBar struct {
	Date     string   `json:"date"`
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	AdjClose *float64 `json:"adj_close,omitempty"`
	Volume   int64    `json:"volume"`
}

// NewsItem is a normalized article. ID is stable across runs for the
// same underlying article, which is what makes global dedup possible.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary,omitempty"`
	Tickers     []string  `json:"tickers,omitempty"`
	Provider    string    `json:"provider"`
}

// NewsID derives a stable article id. Prefer the provider's own id or
// the URL; fall back to a hash of provider+title+timestamp so two
// fetches of the same article always agree.
func NewsID(provider, id, url, title string, published time.Time) string {
	if id != "" {
		return id
	}
	if url != "" {
		sum := md5.Sum([]byte(provider + ":" + url))
		return fmt.Sprintf("%x", sum)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%d", provider, title, published.Unix())))
	return fmt.Sprintf("%x", sum)
}

// FundamentalsSnapshot is the live per-ticker fundamentals view. A
// fetch replaces it wholesale; every valuation field is optional.
type FundamentalsSnapshot struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name,omitempty"`
	Sector     string   `json:"sector,omitempty"`
	Industry   string   `json:"industry,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	MarketCap  *int64   `json:"market_cap,omitempty"`
	TrailingPE *float64 `json:"trailing_pe,omitempty"`
	ForwardPE  *float64 `json:"forward_pe,omitempty"`

	// Details keeps the untyped remainder of the provider payload so
	// digest assembly can reach ratio fields without a schema change.
	Details map[string]any `json:"details,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Detail returns the first non-nil value among the named detail keys.
func (f *FundamentalsSnapshot) Detail(keys ...string) any {
	for _, k := range keys {
		if v, ok := f.Details[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// StatementRow is one reporting period of a financial statement.
// Values holds canonical line-item names; nil means not reported.
type StatementRow struct {
	Date   string              `json:"date"`
	Values map[string]*float64 `json:"values"`
}

// StatementSet groups annual and quarterly rows for one statement.
type StatementSet struct {
	Annual    []StatementRow `json:"annual"`
	Quarterly []StatementRow `json:"quarterly"`
}

// FinancialStatements is the normalized statement bundle for a ticker.
type FinancialStatements struct {
	Symbol          string       `json:"symbol"`
	Provider        string       `json:"provider"`
	IncomeStatement StatementSet `json:"income_statement"`
	BalanceSheet    StatementSet `json:"balance_sheet"`
	Cashflow        StatementSet `json:"cashflow"`
}

// SentimentScore is a provider-supplied sentiment reading.
type SentimentScore struct {
	Symbol string  `json:"symbol"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Record is the tagged union a resolution produces: exactly one field
// is set, matching the DataType that was requested.
type Record struct {
	Bars         []PriceBar            `json:"bars,omitempty"`
	News         []NewsItem            `json:"news,omitempty"`
	Fundamentals *FundamentalsSnapshot `json:"fundamentals,omitempty"`
	Financials   *FinancialStatements  `json:"financials,omitempty"`
	Sentiment    *SentimentScore       `json:"sentiment,omitempty"`
}

// NormalizeSymbol uppercases and trims a user-supplied ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// PercentChange computes the percent change from first to last close of
// a bar series. ok is false when fewer than two bars are present or the
// start price is zero.
func PercentChange(bars []PriceBar) (change, start, end float64, ok bool) {
	if len(bars) < 2 {
		return 0, 0, 0, false
	}
	start = bars[0].Close
	end = bars[len(bars)-1].Close
	if start == 0 {
		return 0, start, end, false
	}
	return (end - start) / start * 100, start, end, true
}

// DailyChange computes the percent change over the last two bars.
func DailyChange(bars []PriceBar) (change, start, end float64, ok bool) {
	if len(bars) < 2 {
		return 0, 0, 0, false
	}
	return PercentChange(bars[len(bars)-2:])
}
