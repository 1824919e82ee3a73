package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rickgao/pricetables/internal/model"
)

// CoinGecko defaults.
const (
	CoinGeckoSource     = "coingecko"
	DefaultCoinGeckoURL = "https://api.coingecko.com"
)

// CoinGeckoClient queries the CoinGecko simple price endpoint.
type CoinGeckoClient struct {
	client *Client
}

// NewCoinGeckoClient creates a CoinGecko client. A non-empty apiKey is sent
// as the demo API key header.
func NewCoinGeckoClient(baseURL, apiKey string, opts ...ClientOption) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if apiKey != "" {
		opts = append([]ClientOption{WithHeader("x-cg-demo-api-key", apiKey)}, opts...)
	}
	return &CoinGeckoClient{
		client: NewClient(CoinGeckoSource, baseURL, opts...),
	}
}

// SimplePrice returns the raw price object for ids in vsCurrency.
func (c *CoinGeckoClient) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (gjson.Result, error) {
	if len(ids) == 0 {
		return gjson.Result{}, errors.New("no ids requested")
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", vsCurrency)

	body, err := c.client.get(ctx, "/api/v3/simple/price", query)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("get simple price: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("parse simple price: invalid json")
	}
	return gjson.ParseBytes(body), nil
}

// FetchRates returns USD prices keyed by coin id. A requested id absent
// from the response fails the whole call with a *MissingRateError.
func (c *CoinGeckoClient) FetchRates(ctx context.Context, ids []string) (model.PriceTableEntries, error) {
	prices, err := c.SimplePrice(ctx, ids, "usd")
	if err != nil {
		return nil, err
	}

	byID := prices.Map()
	rates := make(model.PriceTableEntries, len(ids))
	for _, id := range ids {
		usd := byID[id].Get("usd")
		if usd.Type != gjson.Number {
			return nil, &MissingRateError{Source: CoinGeckoSource, Symbol: id}
		}
		rates[id] = usd.Float()
	}
	return rates, nil
}
