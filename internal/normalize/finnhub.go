package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"finfetch/internal/model"
)

// finnhubArticle is the shape shared by company-news and market news.
type finnhubArticle struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

func finnhubNews(raw []byte, dt model.DataType) (*model.Record, error) {
	var articles []finnhubArticle
	if err := json.Unmarshal(raw, &articles); err != nil {
		return nil, malformed("finnhub", dt, err)
	}

	items := make([]model.NewsItem, 0, len(articles))
	for _, a := range articles {
		if a.Headline == "" {
			continue
		}
		published := time.Unix(a.Datetime, 0).UTC()
		id := ""
		if a.ID != 0 {
			id = strconv.FormatInt(a.ID, 10)
		}
		source := a.Source
		if source == "" {
			source = "Finnhub"
		}
		var tickers []string
		if a.Related != "" {
			tickers = []string{a.Related}
		}
		items = append(items, model.NewsItem{
			ID:          model.NewsID("finnhub", id, a.URL, a.Headline, published),
			Title:       a.Headline,
			URL:         a.URL,
			Source:      source,
			PublishedAt: published,
			Summary:     a.Summary,
			Tickers:     tickers,
			Provider:    "finnhub",
		})
	}
	return &model.Record{News: items}, nil
}

// sentimentResponse is the news-sentiment payload.
type sentimentResponse struct {
	Symbol           string  `json:"symbol"`
	CompanyNewsScore float64 `json:"companyNewsScore"`
	Sentiment        struct {
		BullishPercent float64 `json:"bullishPercent"`
		BearishPercent float64 `json:"bearishPercent"`
	} `json:"sentiment"`
}

func finnhubSentiment(raw []byte) (*model.Record, error) {
	var resp sentimentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("finnhub", model.DTSentiment, err)
	}
	if resp.Symbol == "" {
		return nil, malformed("finnhub", model.DTSentiment, errNoSymbol)
	}

	// companyNewsScore is 0..1; bucket it into the label scheme the
	// digest prints.
	label := "Neutral"
	switch {
	case resp.CompanyNewsScore >= 0.6:
		label = "Positive"
	case resp.CompanyNewsScore <= 0.4:
		label = "Negative"
	}
	return &model.Record{Sentiment: &model.SentimentScore{
		Symbol: resp.Symbol,
		Label:  label,
		Score:  resp.CompanyNewsScore,
		Source: "finnhub",
	}}, nil
}
