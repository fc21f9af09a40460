// Package normalize maps raw provider payloads onto the canonical
// domain records. Every mapping is a pure function of the payload
// bytes: same input, byte-identical output, no network, no clock.
package normalize

import (
	"encoding/json"
	"errors"

	"finfetch/internal/errs"
	"finfetch/internal/model"
)

var errNoSymbol = errors.New("payload lacks a symbol")

// Normalize dispatches on the explicit (provider, dataType) pair.
// Structural inspection of the payload never drives dispatch; an
// unknown pair is a normalization failure, not a guess.
func Normalize(providerName string, dt model.DataType, raw []byte) (*model.Record, error) {
	switch providerName {
	case "yahoo":
		switch dt {
		case model.DTPrices:
			return yahooPrices(raw)
		case model.DTNews:
			return yahooNews(raw)
		case model.DTFundamentals:
			return yahooFundamentals(raw)
		case model.DTFinancials:
			return yahooFinancials(raw)
		}
	case "finnhub":
		switch dt {
		case model.DTNews, model.DTMarketNews:
			return finnhubNews(raw, dt)
		case model.DTSentiment:
			return finnhubSentiment(raw)
		}
	}
	return nil, errs.E(errs.Normalization, "no mapping for provider %q data type %q", providerName, dt)
}

// Encode renders a record as the canonical cached form. Struct field
// order and sorted map keys make the encoding deterministic.
func Encode(rec *model.Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, errs.Wrap(errs.Normalization, err, "encoding normalized record")
	}
	return b, nil
}

// Decode reads a previously encoded record back.
func Decode(data []byte) (*model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrap(errs.Normalization, err, "decoding normalized record")
	}
	return &rec, nil
}

func malformed(providerName string, dt model.DataType, err error) error {
	return errs.Wrap(errs.Normalization, err, "%s %s payload did not match expected shape", providerName, dt)
}
