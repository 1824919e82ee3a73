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

// EODHD defaults.
const (
	EODSource     = "eodhd"
	DefaultEODURL = "https://eodhd.com"
)

// Exchange suffixes appended to symbols for EODHD.
const (
	SuffixUS       = ".US"
	SuffixForex    = ".FOREX"
	SuffixIstanbul = ".IS"
)

// EODClient queries the EODHD real-time bulk quote endpoint.
type EODClient struct {
	client *Client
	apiKey string
}

// NewEODClient creates an EODHD client.
func NewEODClient(baseURL, apiKey string, opts ...ClientOption) *EODClient {
	if baseURL == "" {
		baseURL = DefaultEODURL
	}
	return &EODClient{
		client: NewClient(EODSource, baseURL, opts...),
		apiKey: apiKey,
	}
}

// GetRealTime fetches quotes for fully qualified codes (e.g. "AAPL.US").
// The first code goes in the path, the rest in the s parameter.
func (c *EODClient) GetRealTime(ctx context.Context, codes []string) ([]EODQuote, error) {
	if len(codes) == 0 {
		return nil, errors.New("no codes requested")
	}

	query := url.Values{}
	if len(codes) > 1 {
		query.Set("s", strings.Join(codes[1:], ","))
	}
	query.Set("api_token", c.apiKey)
	query.Set("fmt", "json")

	body, err := c.client.get(ctx, "/api/real-time/"+url.PathEscape(codes[0]), query)
	if err != nil {
		return nil, fmt.Errorf("get real-time %s: %w", codes[0], err)
	}

	quotes, err := parseEODQuotes(body)
	if err != nil {
		return nil, fmt.Errorf("parse real-time response: %w", err)
	}
	return quotes, nil
}

// FetchRates appends suffix to each symbol, fetches the quotes, and returns
// close prices keyed by the bare symbol.
func (c *EODClient) FetchRates(ctx context.Context, symbols []string, suffix string) (model.PriceTableEntries, error) {
	codes := make([]string, len(symbols))
	for i, sym := range symbols {
		codes[i] = sym + suffix
	}

	quotes, err := c.GetRealTime(ctx, codes)
	if err != nil {
		return nil, err
	}

	rates := make(model.PriceTableEntries, len(quotes))
	for _, q := range quotes {
		rates[strings.TrimSuffix(q.Code, suffix)] = q.Close
	}
	return rates, nil
}

// Exchange binds the client to one exchange suffix.
func (c *EODClient) Exchange(suffix string) *EODFetcher {
	return &EODFetcher{client: c, suffix: suffix}
}

// EODFetcher fetches rates for a single exchange.
type EODFetcher struct {
	client *EODClient
	suffix string
}

// FetchRates fetches close prices for symbols on the bound exchange.
func (f *EODFetcher) FetchRates(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
	return f.client.FetchRates(ctx, symbols, f.suffix)
}

// parseEODQuotes accepts both the array form (several codes) and the bare
// object form the provider uses for a single code. Entries whose close is
// not numeric ("NA") are dropped.
func parseEODQuotes(body []byte) ([]EODQuote, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid json")
	}

	root := gjson.ParseBytes(body)
	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		items = []gjson.Result{root}
	default:
		return nil, fmt.Errorf("unexpected response type %s", root.Type)
	}

	quotes := make([]EODQuote, 0, len(items))
	for _, item := range items {
		code := item.Get("code").String()
		if code == "" {
			return nil, errors.New("quote without code")
		}
		closePrice := item.Get("close")
		if closePrice.Type != gjson.Number {
			continue
		}
		quotes = append(quotes, EODQuote{
			Code:          code,
			Timestamp:     item.Get("timestamp").Int(),
			GMTOffset:     int(item.Get("gmtoffset").Int()),
			Open:          item.Get("open").Float(),
			High:          item.Get("high").Float(),
			Low:           item.Get("low").Float(),
			Close:         closePrice.Float(),
			Volume:        item.Get("volume").Float(),
			PreviousClose: item.Get("previousClose").Float(),
			Change:        item.Get("change").Float(),
			ChangePercent: item.Get("change_p").Float(),
		})
	}
	return quotes, nil
}
