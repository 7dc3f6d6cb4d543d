// Package pricing implements the price oracle against the Yahoo Finance v8
// chart API.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavo-app/centavo-backend/internal/domain"
)

const (
	chartURL  = "https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=%s&range=%s"
	userAgent = "centavo-backend/1.0"
)

// ErrNoResult is returned when the chart API answers with an empty result set
var ErrNoResult = errors.New("yahoo: no result")

// YahooOracle implements domain.PriceOracle over the Yahoo chart API.
// Self-custody holdings have no public quote; their codes are skipped by the
// batch fetch and their prices stay whatever was last written.
type YahooOracle struct {
	cli *http.Client
	log zerolog.Logger
}

// NewYahooOracle creates a Yahoo-backed price oracle
func NewYahooOracle(log zerolog.Logger) *YahooOracle {
	return &YahooOracle{
		cli: &http.Client{Timeout: 8 * time.Second},
		log: log.With().Str("component", "pricing").Logger(),
	}
}

// GetPrices fetches the current price of each identity in the batch.
// Codes that fail to resolve are left out of the map; the caller skips them
// and retries on the next cycle.
func (o *YahooOracle) GetPrices(ctx context.Context, batch []domain.AssetIdentity) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(batch))
	for _, identity := range batch {
		symbol := chartSymbol(identity)
		if symbol == "" {
			continue
		}
		price, err := o.fetchQuote(ctx, symbol, "1m", "1d")
		if err != nil {
			o.log.Warn().Err(err).Str("code", identity.Code).Msg("quote fetch failed")
			continue
		}
		prices[identity.Code] = price
	}
	if len(prices) == 0 && len(batch) > 0 {
		return nil, ErrNoResult
	}
	return prices, nil
}

// DollarToBRL returns the current USD to BRL conversion value
func (o *YahooOracle) DollarToBRL(ctx context.Context) (decimal.Decimal, error) {
	return o.fetchQuote(ctx, "USDBRL=X", "1h", "1d")
}

// ClosePrice returns the closing price of an asset at a past date
func (o *YahooOracle) ClosePrice(ctx context.Context, identity domain.AssetIdentity, date time.Time) (decimal.Decimal, error) {
	symbol := chartSymbol(identity)
	if symbol == "" {
		return decimal.Zero, ErrNoResult
	}

	url := fmt.Sprintf(
		"https://query2.finance.yahoo.com/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		symbol,
		domain.DateOnly(date).Unix(),
		domain.DateOnly(date).AddDate(0, 0, 1).Unix(),
	)
	raw, err := o.fetch(ctx, url)
	if err != nil {
		return decimal.Zero, err
	}
	if len(raw.Chart.Result) == 0 {
		return decimal.Zero, ErrNoResult
	}

	r := raw.Chart.Result[0]
	if len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				return decimal.NewFromFloat(closes[i]), nil
			}
		}
	}
	return decimal.Zero, ErrNoResult
}

// fetchQuote returns the regular market price of a symbol, falling back to
// the last non-zero close when the meta block is incomplete
func (o *YahooOracle) fetchQuote(ctx context.Context, symbol, interval, span string) (decimal.Decimal, error) {
	raw, err := o.fetch(ctx, fmt.Sprintf(chartURL, symbol, interval, span))
	if err != nil {
		return decimal.Zero, err
	}
	if len(raw.Chart.Result) == 0 {
		return decimal.Zero, ErrNoResult
	}

	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	if price <= 0 && len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] > 0 {
				price = closes[i]
				break
			}
		}
	}
	if price <= 0 {
		return decimal.Zero, ErrNoResult
	}
	return decimal.NewFromFloat(price), nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

func (o *YahooOracle) fetch(ctx context.Context, url string) (*chartResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := o.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo http %d", resp.StatusCode)
	}

	var raw chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// chartSymbol maps an asset identity to its Yahoo ticker. B3-listed
// instruments carry the .SA suffix; crypto pairs quote against the asset
// currency; self-custody fixed income has no public symbol.
func chartSymbol(identity domain.AssetIdentity) string {
	code := strings.ToUpper(strings.TrimSpace(identity.Code))
	if code == "" {
		return ""
	}
	switch identity.Type {
	case domain.AssetTypeStock, domain.AssetTypeFII:
		return code + ".SA"
	case domain.AssetTypeStockUSA:
		return code
	case domain.AssetTypeCrypto:
		return code + "-" + string(identity.Currency)
	case domain.AssetTypeFixedBR:
		return ""
	}
	return ""
}
