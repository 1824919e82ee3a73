// Package api provides clients for the external price providers.
//
// Providers:
//   - EODHD real-time quotes: https://eodhd.com/api/real-time/{code}?s=...
//     used for US equities (.US), forex (.FOREX) and Borsa Istanbul (.IS)
//   - CoinGecko simple price: https://api.coingecko.com/api/v3/simple/price
//     used for crypto, keyed by CoinGecko coin id
//
// Requests are retried on transport failures (network errors, 5xx, 429)
// with exponential backoff; see package retry.
package api
