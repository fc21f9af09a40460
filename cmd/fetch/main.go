// Command fetch hydrates the cache for a ticker list: one task per
// (ticker, data type) pair through the worker pool, then a JSON
// summary of what resolved and what gapped.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"finfetch/internal/app"
	"finfetch/internal/config"
	"finfetch/internal/errs"
	"finfetch/internal/model"
	"finfetch/internal/orchestrator"
)

func main() {
	var tickersCSV string
	var typesCSV string
	var marketPath string
	var portfolioPath string
	var cacheOnly bool
	var workers int
	var configPath string

	flag.StringVar(&tickersCSV, "tickers", getenv("TICKERS", ""), "comma-separated ticker symbols")
	flag.StringVar(&typesCSV, "types", getenv("DATA_TYPES", "prices,news,fundamentals"), "comma-separated data types (prices,news,fundamentals,financials,sentiment,market_news)")
	flag.StringVar(&marketPath, "market", "", "market YAML file providing the ticker list")
	flag.StringVar(&portfolioPath, "portfolio", "", "portfolio YAML file providing the ticker list")
	flag.BoolVar(&cacheOnly, "cache-only", false, "resolve from cache only; no network calls")
	flag.IntVar(&workers, "workers", 0, "max concurrent fetch tasks (0 = config default)")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if workers > 0 {
		cfg.Fetch.MaxWorkers = workers
	}

	symbols, err := resolveSymbols(tickersCSV, marketPath, portfolioPath)
	if err != nil {
		fail(err)
	}
	dataTypes, err := app.ParseDataTypes(splitCSV(typesCSV))
	if err != nil {
		fail(err)
	}

	stack, err := app.Build(cfg)
	if err != nil {
		fail(err)
	}
	defer stack.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickers := make([]model.Ticker, len(symbols))
	for i, s := range symbols {
		tickers[i] = model.Ticker{Symbol: s}
	}

	res := stack.Pool.Run(ctx, tickers, dataTypes, orchestrator.Options{
		MaxWorkers:   cfg.Fetch.MaxWorkers,
		FetchMissing: !cacheOnly,
	})
	for _, gap := range res.Gaps {
		log.Printf("gap: %s/%s: %s", gap.Symbol, gap.DataType, gap.Reason)
	}

	printSummary(res)
	if res.Status == orchestrator.StatusFailure {
		os.Exit(1)
	}
}

func resolveSymbols(tickersCSV, marketPath, portfolioPath string) ([]string, error) {
	switch {
	case marketPath != "":
		scope, err := config.LoadMarket(marketPath)
		if err != nil {
			return nil, err
		}
		return scope.Tickers, nil
	case portfolioPath != "":
		scope, err := config.LoadPortfolio(portfolioPath)
		if err != nil {
			return nil, err
		}
		return scope.Tickers, nil
	}
	symbols := splitCSV(tickersCSV)
	if len(symbols) == 0 {
		return nil, errs.E(errs.Validation, "no tickers provided; use -tickers, -market or -portfolio")
	}
	for i, s := range symbols {
		symbols[i] = model.NormalizeSymbol(s)
	}
	return symbols, nil
}

func printSummary(res *orchestrator.BatchResult) {
	type gapOut struct {
		Ticker   string `json:"ticker"`
		DataType string `json:"data_type"`
		Kind     string `json:"kind,omitempty"`
		Reason   string `json:"reason"`
	}
	out := struct {
		OK       bool     `json:"ok"`
		Status   string   `json:"status"`
		Resolved int      `json:"resolved"`
		Gaps     []gapOut `json:"gaps"`
	}{
		OK:     res.Status != orchestrator.StatusFailure,
		Status: string(res.Status),
	}
	for _, o := range res.Outcomes {
		if o.Record != nil {
			out.Resolved++
		}
	}
	for _, g := range res.Gaps {
		out.Gaps = append(out.Gaps, gapOut{
			Ticker: g.Symbol, DataType: string(g.DataType),
			Kind: string(g.Kind), Reason: g.Reason,
		})
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errs.FormatError(err))
	os.Exit(1)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
