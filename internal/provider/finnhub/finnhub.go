package finnhub

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"time"

	"finfetch/internal/errs"
	"finfetch/internal/model"
	"finfetch/internal/provider"
)

const name = "finnhub"

// AdapterConfig tunes the adapter. NewsDays is the default company
// news lookback when the request does not pin a window.
type AdapterConfig struct {
	NewsDays int
}

// Adapter exposes the Finnhub client through the provider.Client
// interface, routing each data type to its REST endpoint.
type Adapter struct {
	client   *Client
	newsDays int
}

func NewAdapter(client *Client, cfg AdapterConfig) *Adapter {
	days := cfg.NewsDays
	if days <= 0 {
		days = 7
	}
	return &Adapter{client: client, newsDays: days}
}

func (a *Adapter) Name() string { return name }

func (a *Adapter) Fetch(ctx context.Context, req provider.Request) ([]byte, error) {
	switch req.DataType {
	case model.DTNews:
		from := req.Params["from"]
		to := req.Params["to"]
		if from == "" || to == "" {
			to = time.Now().UTC().Format("2006-01-02")
			from = time.Now().UTC().AddDate(0, 0, -a.newsDays).Format("2006-01-02")
		}
		return a.client.CompanyNews(ctx, req.Ticker, from, to)
	case model.DTMarketNews:
		category := req.Params["category"]
		if category == "" {
			category = "general"
		}
		return a.client.MarketNews(ctx, category)
	case model.DTSentiment:
		return a.client.NewsSentiment(ctx, req.Ticker)
	default:
		return nil, errs.E(errs.Validation, "%s does not serve data type %q", name, req.DataType)
	}
}

// CompanyNews retrieves news for one symbol over a date window.
// Reference: https://finnhub.io/docs/api/company-news
func (c *Client) CompanyNews(ctx context.Context, symbol, from, to string) ([]byte, error) {
	query := maps.Clone(c.query)
	query.Set("symbol", symbol)
	query.Set("from", from)
	query.Set("to", to)
	return c.get(ctx, "company-news", query.Encode())
}

// MarketNews retrieves broad market headlines for a category.
func (c *Client) MarketNews(ctx context.Context, category string) ([]byte, error) {
	query := maps.Clone(c.query)
	query.Set("category", category)
	return c.get(ctx, "news", query.Encode())
}

// NewsSentiment retrieves the provider-computed sentiment for a symbol.
func (c *Client) NewsSentiment(ctx context.Context, symbol string) ([]byte, error) {
	query := maps.Clone(c.query)
	query.Set("symbol", symbol)
	return c.get(ctx, "news-sentiment", query.Encode())
}

func (c *Client) get(ctx context.Context, path, rawQuery string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, path, rawQuery)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, errs.Wrap(errs.Unknown, err, "building %s request", name)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Network, err, "%s request failed", name)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(res.Body, 2<<10))
		return nil, provider.StatusError(name, res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Network, err, "%s read body", name)
	}
	return body, nil
}
