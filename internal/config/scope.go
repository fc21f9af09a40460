package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"finfetch/internal/errs"
	"finfetch/internal/model"
)

// Scope is a named ticker list loaded from a market or portfolio file.
type Scope struct {
	Name    string
	Tickers []string
}

type scopeEntry struct {
	Name    string   `yaml:"name"`
	Tickers []string `yaml:"tickers"`
}

// LoadMarket reads a market scope file:
//
//	market:
//	  name: "Market Digest"
//	  tickers: [AAPL, MSFT]
func LoadMarket(path string) (*Scope, error) {
	var doc struct {
		Market *scopeEntry `yaml:"market"`
	}
	if err := readScopeFile(path, &doc); err != nil {
		return nil, err
	}
	if doc.Market == nil {
		return nil, errs.E(errs.Validation, "market file must contain a 'market' object")
	}
	return buildScope(doc.Market, "Market Digest", "market.tickers")
}

// LoadPortfolio reads a portfolio scope file with the same shape under
// a 'portfolio' key.
func LoadPortfolio(path string) (*Scope, error) {
	var doc struct {
		Portfolio *scopeEntry `yaml:"portfolio"`
	}
	if err := readScopeFile(path, &doc); err != nil {
		return nil, err
	}
	if doc.Portfolio == nil {
		return nil, errs.E(errs.Validation, "portfolio file must contain a 'portfolio' object")
	}
	return buildScope(doc.Portfolio, "Portfolio", "portfolio.tickers")
}

func readScopeFile(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.Validation, err, "scope file not found: %s", path)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return errs.Wrap(errs.Validation, err, "invalid scope YAML: %s", path)
	}
	return nil
}

func buildScope(entry *scopeEntry, defaultName, field string) (*Scope, error) {
	if len(entry.Tickers) == 0 {
		return nil, errs.E(errs.Validation, "'%s' must be a non-empty list", field)
	}
	scope := &Scope{Name: entry.Name}
	if scope.Name == "" {
		scope.Name = defaultName
	}
	for _, t := range entry.Tickers {
		sym := model.NormalizeSymbol(t)
		if sym == "" {
			return nil, errs.E(errs.Validation, "all tickers must be non-empty strings")
		}
		scope.Tickers = append(scope.Tickers, sym)
	}
	return scope, nil
}
