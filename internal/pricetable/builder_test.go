package pricetable

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/pricetables/internal/model"
)

type staticCatalog struct {
	catalog model.AssetCatalog
	err     error
}

func (c staticCatalog) ReadCatalog(ctx context.Context) (model.AssetCatalog, error) {
	return c.catalog, c.err
}

// echoFetcher prices every symbol at price.
func echoFetcher(price float64) RateFetcher {
	return RateFetcherFunc(func(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
		out := make(model.PriceTableEntries, len(symbols))
		for _, s := range symbols {
			out[s] = price
		}
		return out, nil
	})
}

func testCatalog() model.AssetCatalog {
	return model.AssetCatalog{
		Crypto: model.AssetCatalogEntries{"bitcoin": "BTC"},
		Nasdaq: model.AssetCatalogEntries{"AAPL": "AAPL", "MSFT": "MSFT"},
		Forex:  model.AssetCatalogEntries{"USD": "USD"},
		Bist:   model.AssetCatalogEntries{"AKBNK": "AKBNK"},
	}
}

func TestNewBuilder(t *testing.T) {
	cat := staticCatalog{}
	full := Fetchers{Crypto: echoFetcher(1), Nasdaq: echoFetcher(1), Forex: echoFetcher(1), Bist: echoFetcher(1)}

	if _, err := NewBuilder(cat, full, nil); err != nil {
		t.Errorf("NewBuilder() unexpected error: %v", err)
	}
	if _, err := NewBuilder(nil, full, nil); err == nil {
		t.Error("NewBuilder() expected error for nil catalog")
	}

	missing := full
	missing.Bist = nil
	if _, err := NewBuilder(cat, missing, nil); err == nil {
		t.Error("NewBuilder() expected error for missing bist fetcher")
	}
}

func TestBuildPriceTable(t *testing.T) {
	b, err := NewBuilder(staticCatalog{catalog: testCatalog()}, Fetchers{
		Crypto: echoFetcher(50000),
		Nasdaq: echoFetcher(150),
		Forex:  echoFetcher(1),
		Bist:   echoFetcher(2),
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	table, err := b.BuildPriceTable(context.Background())
	if err != nil {
		t.Fatalf("BuildPriceTable failed: %v", err)
	}

	want := model.PriceTable{
		Crypto: model.PriceTableEntries{"bitcoin": 50000},
		Nasdaq: model.PriceTableEntries{"AAPL": 150, "MSFT": 150},
		Forex:  model.PriceTableEntries{"USD": 1},
		Bist:   model.PriceTableEntries{"AKBNK": 2},
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("BuildPriceTable() = %+v, want %+v", table, want)
	}

	// Exactly the four class keys on the wire.
	data, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(keys) != 4 {
		t.Errorf("table has %d keys, want 4: %s", len(keys), data)
	}
	for _, class := range model.AssetClasses() {
		if _, ok := keys[string(class)]; !ok {
			t.Errorf("table missing key %q", class)
		}
	}
}

func TestBuildPriceTable_EmptyClass(t *testing.T) {
	cat := testCatalog()
	cat.Bist = model.AssetCatalogEntries{}

	var bistCalls atomic.Int32
	bist := RateFetcherFunc(func(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
		bistCalls.Add(1)
		return nil, errors.New("should not be called")
	})

	b, err := NewBuilder(staticCatalog{catalog: cat}, Fetchers{
		Crypto: echoFetcher(1), Nasdaq: echoFetcher(1), Forex: echoFetcher(1), Bist: bist,
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	table, err := b.BuildPriceTable(context.Background())
	if err != nil {
		t.Fatalf("BuildPriceTable failed: %v", err)
	}
	if bistCalls.Load() != 0 {
		t.Errorf("bist fetcher called %d times, want 0", bistCalls.Load())
	}
	if table.Bist == nil || len(table.Bist) != 0 {
		t.Errorf("Bist = %v, want empty map", table.Bist)
	}
}

func TestBuildPriceTable_FetchFailure(t *testing.T) {
	cause := errors.New("maximum tries reached")
	var slowDone atomic.Bool

	b, err := NewBuilder(staticCatalog{catalog: testCatalog()}, Fetchers{
		Crypto: echoFetcher(1),
		Nasdaq: echoFetcher(1),
		Forex: RateFetcherFunc(func(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
			return nil, cause
		}),
		Bist: RateFetcherFunc(func(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			slowDone.Store(true)
			return model.PriceTableEntries{"AKBNK": 2}, nil
		}),
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	table, err := b.BuildPriceTable(context.Background())
	if err == nil {
		t.Fatal("BuildPriceTable() expected error")
	}

	var failed *PriceFetchFailed
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want *PriceFetchFailed", err)
	}
	if failed.Class != model.Forex {
		t.Errorf("Class = %q, want %q", failed.Class, model.Forex)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error does not wrap cause: %v", err)
	}
	if !reflect.DeepEqual(table, model.PriceTable{}) {
		t.Errorf("table = %+v, want zero value on failure", table)
	}
	if !slowDone.Load() {
		t.Error("builder returned before the slow sibling finished")
	}
}

func TestBuildPriceTable_CatalogError(t *testing.T) {
	cause := errors.New("catalog missing")
	var calls atomic.Int32
	counting := RateFetcherFunc(func(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
		calls.Add(1)
		return model.PriceTableEntries{}, nil
	})

	b, err := NewBuilder(staticCatalog{err: cause}, Fetchers{
		Crypto: counting, Nasdaq: counting, Forex: counting, Bist: counting,
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	_, err = b.BuildPriceTable(context.Background())
	if !errors.Is(err, cause) {
		t.Errorf("error = %v, want wrapped catalog error", err)
	}
	var failed *PriceFetchFailed
	if errors.As(err, &failed) {
		t.Error("catalog error should not be reported as a fetch failure")
	}
	if calls.Load() != 0 {
		t.Errorf("fetchers called %d times, want 0", calls.Load())
	}
}

func TestBuildPriceTable_SortedSymbols(t *testing.T) {
	var got []string
	nasdaq := RateFetcherFunc(func(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
		got = symbols
		return model.PriceTableEntries{}, nil
	})

	cat := model.AssetCatalog{Nasdaq: model.AssetCatalogEntries{"MSFT": "", "AAPL": "", "NVDA": ""}}
	b, err := NewBuilder(staticCatalog{catalog: cat}, Fetchers{
		Crypto: echoFetcher(1), Nasdaq: nasdaq, Forex: echoFetcher(1), Bist: echoFetcher(1),
	}, nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	if _, err := b.BuildPriceTable(context.Background()); err != nil {
		t.Fatalf("BuildPriceTable failed: %v", err)
	}

	want := []string{"AAPL", "MSFT", "NVDA"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("symbols = %v, want %v", got, want)
	}
}
