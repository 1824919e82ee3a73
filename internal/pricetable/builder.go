package pricetable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/pricetables/internal/model"
)

// RateFetcher returns prices for a list of symbols from one source.
type RateFetcher interface {
	FetchRates(ctx context.Context, symbols []string) (model.PriceTableEntries, error)
}

// RateFetcherFunc adapts a function to RateFetcher.
type RateFetcherFunc func(ctx context.Context, symbols []string) (model.PriceTableEntries, error)

func (f RateFetcherFunc) FetchRates(ctx context.Context, symbols []string) (model.PriceTableEntries, error) {
	return f(ctx, symbols)
}

// CatalogReader supplies the tracked symbols.
type CatalogReader interface {
	ReadCatalog(ctx context.Context) (model.AssetCatalog, error)
}

// Fetchers binds one RateFetcher to each asset class.
type Fetchers struct {
	Crypto RateFetcher
	Nasdaq RateFetcher
	Forex  RateFetcher
	Bist   RateFetcher
}

// For returns the fetcher for class.
func (f Fetchers) For(class model.AssetClass) RateFetcher {
	switch class {
	case model.Crypto:
		return f.Crypto
	case model.Nasdaq:
		return f.Nasdaq
	case model.Forex:
		return f.Forex
	case model.Bist:
		return f.Bist
	}
	panic(fmt.Sprintf("pricetable: unknown asset class %q", class))
}

// PriceFetchFailed reports the asset class whose fetch failed the build.
type PriceFetchFailed struct {
	Class model.AssetClass
	Err   error
}

func (e *PriceFetchFailed) Error() string {
	return fmt.Sprintf("fetch %s prices: %v", e.Class, e.Err)
}

func (e *PriceFetchFailed) Unwrap() error {
	return e.Err
}

// Builder builds price tables.
type Builder struct {
	catalog  CatalogReader
	fetchers Fetchers
	logger   *slog.Logger
}

// NewBuilder creates a Builder. Every asset class needs a fetcher.
func NewBuilder(catalog CatalogReader, fetchers Fetchers, logger *slog.Logger) (*Builder, error) {
	if catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	for _, class := range model.AssetClasses() {
		if fetchers.For(class) == nil {
			return nil, fmt.Errorf("no rate fetcher for asset class %s", class)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		catalog:  catalog,
		fetchers: fetchers,
		logger:   logger,
	}, nil
}

// BuildPriceTable reads the catalog and fetches all four classes
// concurrently. It waits for every fetch to finish, then returns the first
// error observed as a *PriceFetchFailed. Catalog errors are returned wrapped.
func (b *Builder) BuildPriceTable(ctx context.Context) (model.PriceTable, error) {
	cat, err := b.catalog.ReadCatalog(ctx)
	if err != nil {
		return model.PriceTable{}, fmt.Errorf("read catalog: %w", err)
	}

	classes := model.AssetClasses()
	results := make([]model.PriceTableEntries, len(classes))

	// No WithContext: a failing class does not cancel its siblings.
	var g errgroup.Group
	for i, class := range classes {
		symbols := cat.Symbols(class)
		if len(symbols) == 0 {
			results[i] = model.PriceTableEntries{}
			continue
		}
		fetcher := b.fetchers.For(class)
		i, class := i, class

		g.Go(func() error {
			start := time.Now()
			rates, err := fetcher.FetchRates(ctx, symbols)
			if err != nil {
				b.logger.Warn("rate fetch failed",
					"class", class,
					"symbols", len(symbols),
					"duration", time.Since(start),
					"error", err,
				)
				return &PriceFetchFailed{Class: class, Err: err}
			}
			b.logger.Debug("rates fetched",
				"class", class,
				"symbols", len(symbols),
				"rates", len(rates),
				"duration", time.Since(start),
			)
			results[i] = rates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.PriceTable{}, err
	}

	table := model.NewPriceTable()
	for i, class := range classes {
		table.Set(class, results[i])
	}
	return table, nil
}
