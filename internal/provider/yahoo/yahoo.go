package yahoo

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"context"

	"finfetch/internal/errs"
	"finfetch/internal/httpx"
	"finfetch/internal/model"
	"finfetch/internal/provider"
)

type Config struct {
	Name    string
	BaseURL string
	Headers map[string]string
}

// Client talks to the public Yahoo Finance query API. It only shapes
// requests and captures raw payload bytes; all parsing lives in the
// normalize package.
type Client struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Client {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{cfg: cfg, client: hc}
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) Fetch(ctx context.Context, req provider.Request) ([]byte, error) {
	endpoint, err := c.endpoint(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errs.Wrap(errs.Unknown, err, "building %s request", c.cfg.Name)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(ctx, httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.Network, err, "%s request failed", c.cfg.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 2<<10))
		return nil, provider.StatusError(c.cfg.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Network, err, "%s read body", c.cfg.Name)
	}
	return body, nil
}

func (c *Client) endpoint(req provider.Request) (string, error) {
	p := func(key, def string) string {
		if v := req.Params[key]; v != "" {
			return v
		}
		return def
	}
	switch req.DataType {
	case model.DTPrices:
		q := url.Values{}
		q.Set("range", p("range", "5d"))
		q.Set("interval", p("interval", "1d"))
		return fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.cfg.BaseURL, url.PathEscape(req.Ticker), q.Encode()), nil

	case model.DTNews:
		q := url.Values{}
		q.Set("q", req.Ticker)
		q.Set("newsCount", p("count", "10"))
		q.Set("quotesCount", "0")
		return fmt.Sprintf("%s/v1/finance/search?%s", c.cfg.BaseURL, q.Encode()), nil

	case model.DTFundamentals:
		q := url.Values{}
		q.Set("modules", "assetProfile,price,summaryDetail,defaultKeyStatistics,financialData")
		return fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.cfg.BaseURL, url.PathEscape(req.Ticker), q.Encode()), nil

	case model.DTFinancials:
		q := url.Values{}
		q.Set("modules", "incomeStatementHistory,incomeStatementHistoryQuarterly,"+
			"balanceSheetHistory,balanceSheetHistoryQuarterly,"+
			"cashflowStatementHistory,cashflowStatementHistoryQuarterly")
		return fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.cfg.BaseURL, url.PathEscape(req.Ticker), q.Encode()), nil

	default:
		return "", errs.E(errs.Validation, "%s does not serve data type %q", c.cfg.Name, req.DataType)
	}
}
