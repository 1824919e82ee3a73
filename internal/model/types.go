package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// -----------------------------------------------------------------------------
// Asset classes
// -----------------------------------------------------------------------------

// AssetClass tags a category of tradable instrument.
type AssetClass string

const (
	Crypto AssetClass = "crypto" // CoinGecko ids
	Nasdaq AssetClass = "nasdaq" // US equities
	Forex  AssetClass = "forex"  // currency pairs
	Bist   AssetClass = "bist"   // Borsa Istanbul equities
)

// AssetClasses returns the fixed set of asset classes in table order.
func AssetClasses() []AssetClass {
	return []AssetClass{Crypto, Nasdaq, Forex, Bist}
}

// Valid reports whether c is one of the known asset classes.
func (c AssetClass) Valid() bool {
	switch c {
	case Crypto, Nasdaq, Forex, Bist:
		return true
	}
	return false
}

// ParseAssetClass converts a wire tag to an AssetClass.
func ParseAssetClass(s string) (AssetClass, error) {
	c := AssetClass(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown asset class %q", s)
	}
	return c, nil
}

// -----------------------------------------------------------------------------
// Asset catalog
// -----------------------------------------------------------------------------

// AssetCatalogEntries maps a symbol (or CoinGecko id) to its display symbol.
type AssetCatalogEntries map[string]string

// AssetCatalog is the admin-maintained list of tracked symbols per asset class.
// Stored as the server/asset_table document.
type AssetCatalog struct {
	Crypto AssetCatalogEntries `json:"crypto"`
	Nasdaq AssetCatalogEntries `json:"nasdaq"`
	Forex  AssetCatalogEntries `json:"forex"`
	Bist   AssetCatalogEntries `json:"bist"`
}

// Entries returns the catalog entries for class.
func (c AssetCatalog) Entries(class AssetClass) AssetCatalogEntries {
	switch class {
	case Crypto:
		return c.Crypto
	case Nasdaq:
		return c.Nasdaq
	case Forex:
		return c.Forex
	case Bist:
		return c.Bist
	}
	panic(fmt.Sprintf("model: unknown asset class %q", class))
}

// Symbols returns the sorted symbols tracked for class.
func (c AssetCatalog) Symbols(class AssetClass) []string {
	entries := c.Entries(class)
	symbols := make([]string, 0, len(entries))
	for sym := range entries {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// -----------------------------------------------------------------------------
// Price tables
// -----------------------------------------------------------------------------

// PriceTableEntries maps a symbol to its price.
type PriceTableEntries map[string]float64

// PriceTable holds one PriceTableEntries per asset class.
type PriceTable struct {
	Crypto PriceTableEntries `json:"crypto"`
	Nasdaq PriceTableEntries `json:"nasdaq"`
	Forex  PriceTableEntries `json:"forex"`
	Bist   PriceTableEntries `json:"bist"`
}

// NewPriceTable returns a table with an empty entry for every class.
func NewPriceTable() PriceTable {
	return PriceTable{
		Crypto: PriceTableEntries{},
		Nasdaq: PriceTableEntries{},
		Forex:  PriceTableEntries{},
		Bist:   PriceTableEntries{},
	}
}

// Entries returns the prices recorded for class.
func (t PriceTable) Entries(class AssetClass) PriceTableEntries {
	switch class {
	case Crypto:
		return t.Crypto
	case Nasdaq:
		return t.Nasdaq
	case Forex:
		return t.Forex
	case Bist:
		return t.Bist
	}
	panic(fmt.Sprintf("model: unknown asset class %q", class))
}

// Set replaces the prices for class. A nil map is stored as empty.
func (t *PriceTable) Set(class AssetClass, entries PriceTableEntries) {
	if entries == nil {
		entries = PriceTableEntries{}
	}
	switch class {
	case Crypto:
		t.Crypto = entries
	case Nasdaq:
		t.Nasdaq = entries
	case Forex:
		t.Forex = entries
	case Bist:
		t.Bist = entries
	default:
		panic(fmt.Sprintf("model: unknown asset class %q", class))
	}
}

// MarshalJSON always emits all four classes, using {} for missing entries.
func (t PriceTable) MarshalJSON() ([]byte, error) {
	type plain PriceTable
	out := plain(t)
	for _, p := range []*PriceTableEntries{&out.Crypto, &out.Nasdaq, &out.Forex, &out.Bist} {
		if *p == nil {
			*p = PriceTableEntries{}
		}
	}
	return json.Marshal(out)
}

// PriceTables maps snapshot keys to their tables.
type PriceTables map[string]PriceTable

// -----------------------------------------------------------------------------
// User data
// -----------------------------------------------------------------------------

// Transaction is a single user portfolio movement.
type Transaction struct {
	AssetType string  `json:"assetType"`
	AssetID   string  `json:"assetId"`
	Amount    float64 `json:"amount"`
}

// UserTransactions maps a client-side timestamp to a transaction.
type UserTransactions map[string]Transaction
