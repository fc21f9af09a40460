// Command digest assembles a daily or weekly market digest from
// current cache contents and writes the markdown/JSON/CSV/prompt
// artifacts. By default it is a pure cache read; -fetch hydrates
// missing data first.
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
	"time"

	"finfetch/internal/app"
	"finfetch/internal/config"
	"finfetch/internal/digest"
	"finfetch/internal/errs"
	"finfetch/internal/export"
	"finfetch/internal/model"
	"finfetch/internal/orchestrator"
)

func main() {
	var kindFlag string
	var dateFlag string
	var tickersCSV string
	var marketPath string
	var portfolioPath string
	var title string
	var outDir string
	var fetchMissing bool
	var marketNews bool
	var configPath string

	flag.StringVar(&kindFlag, "type", "daily", "digest type: daily or weekly")
	flag.StringVar(&dateFlag, "date", "", "digest date YYYY-MM-DD (default today)")
	flag.StringVar(&tickersCSV, "tickers", getenv("TICKERS", ""), "comma-separated ticker symbols")
	flag.StringVar(&marketPath, "market", "", "market YAML file providing the ticker list")
	flag.StringVar(&portfolioPath, "portfolio", "", "portfolio YAML file providing the ticker list")
	flag.StringVar(&title, "title", "", "digest title override")
	flag.StringVar(&outDir, "out", "", "output directory (default from config)")
	flag.BoolVar(&fetchMissing, "fetch", false, "fetch missing data before assembling")
	flag.BoolVar(&marketNews, "market-news", true, "include the market-wide news section")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.Parse()

	var kind digest.Kind
	switch kindFlag {
	case "daily":
		kind = digest.Daily
	case "weekly":
		kind = digest.Weekly
	default:
		fail(errs.E(errs.Validation, "digest type must be daily or weekly, got %q", kindFlag))
	}

	var day time.Time
	if dateFlag != "" {
		parsed, err := time.Parse("2006-01-02", dateFlag)
		if err != nil {
			fail(errs.E(errs.Validation, "date must be YYYY-MM-DD, got %q", dateFlag))
		}
		day = parsed
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if outDir == "" {
		outDir = cfg.Export.OutDir
	}

	scopeTitle, symbols, err := resolveScope(tickersCSV, marketPath, portfolioPath)
	if err != nil {
		fail(err)
	}
	if title == "" {
		title = scopeTitle
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
	dataTypes := []model.DataType{model.DTPrices, model.DTNews, model.DTFundamentals, model.DTSentiment}

	opts := orchestrator.Options{MaxWorkers: cfg.Fetch.MaxWorkers, FetchMissing: fetchMissing}
	res := stack.Pool.Run(ctx, tickers, dataTypes, opts)
	for _, gap := range res.Gaps {
		log.Printf("gap: %s/%s: %s", gap.Symbol, gap.DataType, gap.Reason)
	}

	if marketNews {
		market := stack.Pool.Run(ctx, []model.Ticker{{}}, []model.DataType{model.DTMarketNews}, opts)
		res.Outcomes = append(res.Outcomes, market.Outcomes...)
	}

	d := digest.New().Assemble(res, tickers, digest.Options{
		Kind:              kind,
		Date:              day,
		Title:             title,
		IncludeMarketNews: marketNews,
	})

	paths, err := export.WriteAll(d, outDir)
	if err != nil {
		fail(err)
	}

	out := struct {
		OK       bool   `json:"ok"`
		Type     string `json:"type"`
		Date     string `json:"date"`
		Markdown string `json:"markdown"`
		JSON     string `json:"json"`
		CSV      string `json:"csv"`
		Prompt   string `json:"prompt"`
	}{
		OK: true, Type: string(d.Type), Date: d.Date,
		Markdown: paths.Markdown, JSON: paths.JSON, CSV: paths.CSV, Prompt: paths.Prompt,
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func resolveScope(tickersCSV, marketPath, portfolioPath string) (string, []string, error) {
	switch {
	case marketPath != "":
		scope, err := config.LoadMarket(marketPath)
		if err != nil {
			return "", nil, err
		}
		return scope.Name, scope.Tickers, nil
	case portfolioPath != "":
		scope, err := config.LoadPortfolio(portfolioPath)
		if err != nil {
			return "", nil, err
		}
		return scope.Name, scope.Tickers, nil
	}
	symbols := splitCSV(tickersCSV)
	if len(symbols) == 0 {
		return "", nil, errs.E(errs.Validation, "no tickers provided; use -tickers, -market or -portfolio")
	}
	for i, s := range symbols {
		symbols[i] = model.NormalizeSymbol(s)
	}
	return "", symbols, nil
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
