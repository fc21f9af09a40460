package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finfetch/internal/errs"
	"finfetch/internal/model"
)

const chartPayload = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL"},
      "timestamp": [1769385600, 1769472000, 1769558400],
      "indicators": {
        "quote": [{
          "open":   [100.0, 101.5, null],
          "high":   [102.0, 103.0, null],
          "low":    [99.0, 100.5, null],
          "close":  [101.0, 102.5, null],
          "volume": [1000000, 1100000, null]
        }],
        "adjclose": [{"adjclose": [100.8, 102.3, null]}]
      }
    }],
    "error": null
  }
}`

func TestYahooPrices(t *testing.T) {
	rec, err := Normalize("yahoo", model.DTPrices, []byte(chartPayload))
	require.NoError(t, err)
	require.Len(t, rec.Bars, 2, "null-padded slots are dropped")

	first := rec.Bars[0]
	require.Equal(t, "2026-01-26", first.Date)
	require.Equal(t, 101.0, first.Close)
	require.Equal(t, int64(1000000), first.Volume)
	require.NotNil(t, first.AdjClose)
	require.Equal(t, 100.8, *first.AdjClose)

	require.Less(t, rec.Bars[0].Date, rec.Bars[1].Date, "bars sorted date ascending")
}

func TestYahooPrices_Deterministic(t *testing.T) {
	a, err := Normalize("yahoo", model.DTPrices, []byte(chartPayload))
	require.NoError(t, err)
	b, err := Normalize("yahoo", model.DTPrices, []byte(chartPayload))
	require.NoError(t, err)

	ea, err := Encode(a)
	require.NoError(t, err)
	eb, err := Encode(b)
	require.NoError(t, err)
	require.Equal(t, ea, eb, "same raw input must yield byte-identical output")
}

func TestYahooPrices_Malformed(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":  `{{{`,
		"no result": `{"chart":{"result":[],"error":null}}`,
		"api error": `{"chart":{"result":[],"error":{"code":"Not Found"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize("yahoo", model.DTPrices, []byte(payload))
			require.Error(t, err)
			require.Equal(t, errs.Normalization, errs.KindOf(err))
		})
	}
}

func TestYahooNews(t *testing.T) {
	payload := `{"news":[
	  {"uuid":"u-1","title":"Acme beats estimates","publisher":"Example News","link":"https://example.com/1","providerPublishTime":1769385600,"relatedTickers":["AAPL"]},
	  {"uuid":"","title":"Untagged story","publisher":"","link":"https://example.com/2","providerPublishTime":1769385601},
	  {"uuid":"","title":"","link":"https://example.com/skip","providerPublishTime":1}
	]}`

	rec, err := Normalize("yahoo", model.DTNews, []byte(payload))
	require.NoError(t, err)
	require.Len(t, rec.News, 2, "titleless entries are dropped")

	first := rec.News[0]
	require.Equal(t, "u-1", first.ID, "provider id wins when present")
	require.Equal(t, "Example News", first.Source)
	require.Equal(t, "yahoo", first.Provider)
	require.True(t, first.PublishedAt.Equal(time.Unix(1769385600, 0).UTC()))

	second := rec.News[1]
	require.NotEmpty(t, second.ID, "missing id falls back to a stable hash")
	require.Equal(t, "Yahoo", second.Source)

	// Stability: renormalizing yields the same ids.
	again, err := Normalize("yahoo", model.DTNews, []byte(payload))
	require.NoError(t, err)
	require.Equal(t, rec.News[1].ID, again.News[1].ID)
}

func TestYahooFundamentals(t *testing.T) {
	payload := `{"quoteSummary":{"result":[{
	  "price":{"symbol":"AAPL","longName":"Apple Inc.","currency":"USD","marketCap":{"raw":3000000000000,"fmt":"3T"}},
	  "assetProfile":{"sector":"Technology","industry":"Consumer Electronics"},
	  "summaryDetail":{"trailingPE":{"raw":29.5,"fmt":"29.50"},"forwardPE":{"raw":26.1}},
	  "financialData":{"totalRevenue":{"raw":400000000000},"debtToEquity":{"raw":170.2}}
	}],"error":null}}`

	rec, err := Normalize("yahoo", model.DTFundamentals, []byte(payload))
	require.NoError(t, err)
	snap := rec.Fundamentals
	require.NotNil(t, snap)
	require.Equal(t, "AAPL", snap.Symbol)
	require.Equal(t, "Apple Inc.", snap.Name)
	require.Equal(t, "Technology", snap.Sector)
	require.Equal(t, "USD", snap.Currency)
	require.NotNil(t, snap.MarketCap)
	require.Equal(t, int64(3000000000000), *snap.MarketCap)
	require.NotNil(t, snap.TrailingPE)
	require.Equal(t, 29.5, *snap.TrailingPE)
	require.Equal(t, 400000000000.0, snap.Details["totalRevenue"])
}

func TestYahooFundamentals_NoSymbol(t *testing.T) {
	payload := `{"quoteSummary":{"result":[{"assetProfile":{"sector":"Tech"}}],"error":null}}`
	_, err := Normalize("yahoo", model.DTFundamentals, []byte(payload))
	require.Error(t, err)
	require.Equal(t, errs.Normalization, errs.KindOf(err))
}

func TestYahooFinancials_CanonicalKeysAndSparseDrop(t *testing.T) {
	payload := `{"quoteSummary":{"result":[{
	  "price":{"symbol":"AAPL"},
	  "incomeStatementHistory":{"incomeStatementHistory":[
	    {"endDate":{"fmt":"2024-12-31"},"operatingRevenue":{"raw":100},"netIncome":{"raw":10},"oddOneOff":null},
	    {"endDate":{"fmt":"2025-12-31"},"totalRevenue":{"raw":120},"netIncome":{"raw":12},"oddOneOff":null},
	    {"endDate":{"fmt":"2023-12-31"},"totalRevenue":{"raw":90},"netIncome":{"raw":9},"oddOneOff":null},
	    {"endDate":{"fmt":"2022-12-31"},"totalRevenue":{"raw":80},"netIncome":{"raw":8},"oddOneOff":null},
	    {"endDate":{"fmt":"2021-12-31"},"totalRevenue":{"raw":70},"netIncome":{"raw":7},"oddOneOff":null},
	    {"endDate":{"fmt":"2020-12-31"},"totalRevenue":{"raw":60},"netIncome":{"raw":6},"oddOneOff":{"raw":1}}
	  ]}
	}],"error":null}}`

	rec, err := Normalize("yahoo", model.DTFinancials, []byte(payload))
	require.NoError(t, err)
	rows := rec.Financials.IncomeStatement.Annual
	require.Len(t, rows, 6)

	require.Equal(t, "2025-12-31", rows[0].Date, "rows sorted date descending")

	for _, row := range rows {
		_, hasAlias := row.Values["operatingRevenue"]
		require.False(t, hasAlias, "aliased line items fold into the canonical name")
		_, hasSparse := row.Values["oddOneOff"]
		require.False(t, hasSparse, "mostly-missing columns are dropped")
	}
	require.NotNil(t, rows[1].Values["totalRevenue"])
	require.Equal(t, 100.0, *rows[1].Values["totalRevenue"], "alias value lands under canonical key")
}

func TestFinnhubNews(t *testing.T) {
	payload := `[
	  {"category":"company","datetime":1769385600,"headline":"Acme surges on upgrade","id":101,"related":"AAPL","source":"Example Wire","summary":"...","url":"https://example.com/101"},
	  {"category":"company","datetime":1769385601,"headline":"Second story","id":0,"related":"","source":"","url":"https://example.com/102"}
	]`

	rec, err := Normalize("finnhub", model.DTNews, []byte(payload))
	require.NoError(t, err)
	require.Len(t, rec.News, 2)
	require.Equal(t, "101", rec.News[0].ID)
	require.Equal(t, []string{"AAPL"}, rec.News[0].Tickers)
	require.Equal(t, "finnhub", rec.News[0].Provider)
	require.Equal(t, "Finnhub", rec.News[1].Source)
	require.NotEmpty(t, rec.News[1].ID)
}

func TestFinnhubSentiment(t *testing.T) {
	rec, err := Normalize("finnhub", model.DTSentiment, []byte(`{"symbol":"AAPL","companyNewsScore":0.72,"sentiment":{"bullishPercent":0.8,"bearishPercent":0.2}}`))
	require.NoError(t, err)
	require.Equal(t, "Positive", rec.Sentiment.Label)
	require.Equal(t, 0.72, rec.Sentiment.Score)
	require.Equal(t, "finnhub", rec.Sentiment.Source)

	rec, err = Normalize("finnhub", model.DTSentiment, []byte(`{"symbol":"XYZ","companyNewsScore":0.2,"sentiment":{}}`))
	require.NoError(t, err)
	require.Equal(t, "Negative", rec.Sentiment.Label)
}

func TestNormalize_UnknownPair(t *testing.T) {
	_, err := Normalize("bloomberg", model.DTPrices, []byte(`{}`))
	require.Error(t, err)
	require.Equal(t, errs.Normalization, errs.KindOf(err))

	_, err = Normalize("yahoo", model.DTSentiment, []byte(`{}`))
	require.Error(t, err)
	require.Equal(t, errs.Normalization, errs.KindOf(err))
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	rec := &model.Record{Bars: []model.PriceBar{{Date: "2026-01-26", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}}}
	b, err := Encode(rec)
	require.NoError(t, err)
	back, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, rec, back)
}
