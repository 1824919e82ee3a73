// Package model defines shared data types used across the price table service.
//
// Conventions:
//   - Asset classes form a closed set: crypto, nasdaq, forex, bist.
//   - Prices: float64 last-trade/close values in the quote currency (USD for crypto).
//   - Snapshot keys: UTC "YYYY-MM-DD-HH" strings, lexicographically sortable.
package model
