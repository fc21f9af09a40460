package normalize

import (
	"encoding/json"
	"sort"
	"time"

	"finfetch/internal/errs"
	"finfetch/internal/model"
)

// chartResponse is the v8 chart payload shape.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

func yahooPrices(raw []byte) (*model.Record, error) {
	var resp chartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("yahoo", model.DTPrices, err)
	}
	if resp.Chart.Error != nil {
		return nil, errs.E(errs.Normalization, "yahoo chart payload carries error: %v", resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, errs.E(errs.Normalization, "yahoo chart payload has no result")
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errs.E(errs.Normalization, "yahoo chart payload has no quote block")
	}
	quote := result.Indicators.Quote[0]

	at := func(vals []*float64, i int) (float64, bool) {
		if i >= len(vals) || vals[i] == nil {
			return 0, false
		}
		return *vals[i], true
	}

	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			// Yahoo pads holiday/half-day slots with nulls; a bar
			// without a full OHLC set is not a bar.
			continue
		}
		bar := model.PriceBar{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:  o,
			High:  h,
			Low:   l,
			Close: c,
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		if len(result.Indicators.AdjClose) > 0 {
			if v, ok := at(result.Indicators.AdjClose[0].AdjClose, i); ok {
				bar.AdjClose = &v
			}
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return &model.Record{Bars: bars}, nil
}

// searchResponse is the v1 search payload; only the news block matters.
type searchResponse struct {
	News []struct {
		UUID                string   `json:"uuid"`
		Title               string   `json:"title"`
		Publisher           string   `json:"publisher"`
		Link                string   `json:"link"`
		ProviderPublishTime int64    `json:"providerPublishTime"`
		RelatedTickers      []string `json:"relatedTickers"`
	} `json:"news"`
}

func yahooNews(raw []byte) (*model.Record, error) {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("yahoo", model.DTNews, err)
	}

	items := make([]model.NewsItem, 0, len(resp.News))
	for _, n := range resp.News {
		if n.Title == "" {
			continue
		}
		published := time.Unix(n.ProviderPublishTime, 0).UTC()
		source := n.Publisher
		if source == "" {
			source = "Yahoo"
		}
		items = append(items, model.NewsItem{
			ID:          model.NewsID("yahoo", n.UUID, n.Link, n.Title, published),
			Title:       n.Title,
			URL:         n.Link,
			Source:      source,
			PublishedAt: published,
			Tickers:     n.RelatedTickers,
			Provider:    "yahoo",
		})
	}
	return &model.Record{News: items}, nil
}

// quoteSummary numbers arrive as {"raw": 1.23, "fmt": "1.23"} objects.
func rawNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case map[string]any:
		if r, ok := n["raw"].(float64); ok {
			return r, true
		}
	}
	return 0, false
}

func quoteSummaryModules(raw []byte, providerName string, dt model.DataType) (map[string]any, error) {
	var resp struct {
		QuoteSummary struct {
			Result []map[string]any `json:"result"`
			Error  any              `json:"error"`
		} `json:"quoteSummary"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed(providerName, dt, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, errs.E(errs.Normalization, "%s %s payload carries error: %v", providerName, dt, resp.QuoteSummary.Error)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, errs.E(errs.Normalization, "%s %s payload has no result", providerName, dt)
	}
	return resp.QuoteSummary.Result[0], nil
}

func yahooFundamentals(raw []byte) (*model.Record, error) {
	modules, err := quoteSummaryModules(raw, "yahoo", model.DTFundamentals)
	if err != nil {
		return nil, err
	}

	snap := &model.FundamentalsSnapshot{Details: map[string]any{}}

	if price, ok := modules["price"].(map[string]any); ok {
		snap.Symbol, _ = price["symbol"].(string)
		snap.Name, _ = price["longName"].(string)
		snap.Currency, _ = price["currency"].(string)
		if v, ok := rawNumber(price["marketCap"]); ok {
			mc := int64(v)
			snap.MarketCap = &mc
		}
	}
	if profile, ok := modules["assetProfile"].(map[string]any); ok {
		snap.Sector, _ = profile["sector"].(string)
		snap.Industry, _ = profile["industry"].(string)
	}
	if snap.Symbol == "" {
		return nil, errs.E(errs.Normalization, "yahoo fundamentals payload lacks a symbol")
	}

	// Flatten the numeric detail of the valuation modules so digest
	// assembly can reach ratio fields by provider key name.
	for _, moduleName := range []string{"summaryDetail", "defaultKeyStatistics", "financialData"} {
		module, ok := modules[moduleName].(map[string]any)
		if !ok {
			continue
		}
		for key, val := range module {
			if v, ok := rawNumber(val); ok {
				if _, exists := snap.Details[key]; !exists {
					snap.Details[key] = v
				}
			}
		}
	}
	if v, ok := snap.Details["trailingPE"].(float64); ok {
		snap.TrailingPE = &v
	}
	if v, ok := snap.Details["forwardPE"].(float64); ok {
		snap.ForwardPE = &v
	}

	return &model.Record{Fundamentals: snap}, nil
}

func yahooFinancials(raw []byte) (*model.Record, error) {
	modules, err := quoteSummaryModules(raw, "yahoo", model.DTFinancials)
	if err != nil {
		return nil, err
	}

	symbol := ""
	if price, ok := modules["price"].(map[string]any); ok {
		symbol, _ = price["symbol"].(string)
	}

	rows := func(moduleName, listName string) []model.StatementRow {
		module, ok := modules[moduleName].(map[string]any)
		if !ok {
			return nil
		}
		list, ok := module[listName].([]any)
		if !ok {
			return nil
		}
		return normalizeStatementRows(list)
	}

	fin := &model.FinancialStatements{
		Symbol:   symbol,
		Provider: "yahoo",
		IncomeStatement: model.StatementSet{
			Annual:    rows("incomeStatementHistory", "incomeStatementHistory"),
			Quarterly: rows("incomeStatementHistoryQuarterly", "incomeStatementHistory"),
		},
		BalanceSheet: model.StatementSet{
			Annual:    rows("balanceSheetHistory", "balanceSheetStatements"),
			Quarterly: rows("balanceSheetHistoryQuarterly", "balanceSheetStatements"),
		},
		Cashflow: model.StatementSet{
			Annual:    rows("cashflowStatementHistory", "cashflowStatements"),
			Quarterly: rows("cashflowStatementHistoryQuarterly", "cashflowStatements"),
		},
	}

	empty := len(fin.IncomeStatement.Annual) == 0 && len(fin.IncomeStatement.Quarterly) == 0 &&
		len(fin.BalanceSheet.Annual) == 0 && len(fin.BalanceSheet.Quarterly) == 0 &&
		len(fin.Cashflow.Annual) == 0 && len(fin.Cashflow.Quarterly) == 0
	if empty {
		return nil, errs.E(errs.Normalization, "yahoo financials payload has no statement rows")
	}
	return &model.Record{Financials: fin}, nil
}

func statementDate(entry map[string]any) string {
	end, ok := entry["endDate"].(map[string]any)
	if !ok {
		return ""
	}
	if f, ok := end["fmt"].(string); ok && f != "" {
		return f
	}
	if r, ok := end["raw"].(float64); ok {
		return time.Unix(int64(r), 0).UTC().Format("2006-01-02")
	}
	return ""
}
