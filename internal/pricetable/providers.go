package pricetable

import "github.com/rickgao/pricetables/internal/api"

// ProviderFetchers binds the asset classes to their price providers:
// crypto to CoinGecko, the rest to EODHD on their exchange suffix.
func ProviderFetchers(eod *api.EODClient, coingecko *api.CoinGeckoClient) Fetchers {
	return Fetchers{
		Crypto: coingecko,
		Nasdaq: eod.Exchange(api.SuffixUS),
		Forex:  eod.Exchange(api.SuffixForex),
		Bist:   eod.Exchange(api.SuffixIstanbul),
	}
}
