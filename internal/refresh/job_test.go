package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/pricetables/internal/api"
	"github.com/rickgao/pricetables/internal/catalog"
	"github.com/rickgao/pricetables/internal/docstore"
	"github.com/rickgao/pricetables/internal/model"
	"github.com/rickgao/pricetables/internal/pricetable"
	"github.com/rickgao/pricetables/internal/writer"
)

// eodServer serves close prices for fully qualified codes.
func eodServer(t *testing.T, closes map[string]float64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first := strings.TrimPrefix(r.URL.Path, "/api/real-time/")
		codes := []string{first}
		if s := r.URL.Query().Get("s"); s != "" {
			codes = append(codes, strings.Split(s, ",")...)
		}

		quotes := make([]map[string]any, 0, len(codes))
		for _, code := range codes {
			quotes = append(quotes, map[string]any{"code": code, "close": closes[code]})
		}
		w.Header().Set("Content-Type", "application/json")
		if len(quotes) == 1 {
			json.NewEncoder(w).Encode(quotes[0])
			return
		}
		json.NewEncoder(w).Encode(quotes)
	}))
	t.Cleanup(server.Close)
	return server
}

func coinGeckoServer(t *testing.T, usd map[string]float64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{}
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if p, ok := usd[id]; ok {
				resp[id] = map[string]float64{"usd": p}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

type pipeline struct {
	store docstore.Store
	job   *Job
}

func newPipeline(t *testing.T, eodURL, cgURL string, now time.Time) pipeline {
	t.Helper()
	store := docstore.NewMemoryStore()

	eod := api.NewEODClient(eodURL, "test-key")
	cg := api.NewCoinGeckoClient(cgURL, "")
	builder, err := pricetable.NewBuilder(catalog.NewReader(store), pricetable.ProviderFetchers(eod, cg), nil)
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	job := NewJob(DefaultConfig(), builder, writer.NewSnapshotWriter(store, nil), nil,
		WithClock(func() time.Time { return now }),
	)
	return pipeline{store: store, job: job}
}

func TestJob_Run(t *testing.T) {
	eod := eodServer(t, map[string]float64{"AAPL.US": 150, "USD.FOREX": 1, "AKBNK.IS": 2})
	cg := coinGeckoServer(t, map[string]float64{"bitcoin": 50000})
	p := newPipeline(t, eod.URL, cg.URL, time.Date(2024, 3, 9, 5, 55, 0, 0, time.UTC))

	ctx := context.Background()
	if err := catalog.NewReader(p.store).WriteCatalog(ctx, model.AssetCatalog{
		Crypto: model.AssetCatalogEntries{"bitcoin": "BTC"},
		Nasdaq: model.AssetCatalogEntries{"AAPL": "AAPL"},
		Forex:  model.AssetCatalogEntries{"USD": "USD"},
		Bist:   model.AssetCatalogEntries{"AKBNK": "AKBNK"},
	}); err != nil {
		t.Fatalf("WriteCatalog failed: %v", err)
	}

	if got := p.job.State(); got != StateIdle {
		t.Errorf("initial State() = %q, want %q", got, StateIdle)
	}

	res := p.job.Run(ctx)
	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if res.State != StateDone {
		t.Errorf("State = %q, want %q", res.State, StateDone)
	}
	if res.Key != "2024-03-09-06" {
		t.Errorf("Key = %q, want 2024-03-09-06", res.Key)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}

	want := model.PriceTable{
		Crypto: model.PriceTableEntries{"bitcoin": 50000},
		Nasdaq: model.PriceTableEntries{"AAPL": 150},
		Forex:  model.PriceTableEntries{"USD": 1},
		Bist:   model.PriceTableEntries{"AKBNK": 2},
	}
	var stored model.PriceTable
	if err := p.store.Get(ctx, writer.Collection, "2024-03-09-06", &stored); err != nil {
		t.Fatalf("Get snapshot failed: %v", err)
	}
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("stored snapshot = %+v, want %+v", stored, want)
	}
	if !reflect.DeepEqual(res.Table, want) {
		t.Errorf("Result.Table = %+v, want %+v", res.Table, want)
	}

	last, ok := p.job.LastResult()
	if !ok || last.RunID != res.RunID {
		t.Errorf("LastResult() = %+v, %v; want run %s", last, ok, res.RunID)
	}
	if got := p.job.State(); got != StateDone {
		t.Errorf("State() = %q, want %q", got, StateDone)
	}

	again := p.job.Run(ctx)
	if again.RunID == res.RunID {
		t.Error("consecutive runs share a RunID")
	}
}

func TestJob_Run_MissingCatalog(t *testing.T) {
	eod := eodServer(t, nil)
	cg := coinGeckoServer(t, nil)
	p := newPipeline(t, eod.URL, cg.URL, time.Date(2024, 3, 9, 11, 55, 0, 0, time.UTC))

	ctx := context.Background()
	res := p.job.Run(ctx)

	if res.State != StateFailed {
		t.Errorf("State = %q, want %q", res.State, StateFailed)
	}
	if !errors.Is(res.Err, catalog.ErrCatalogNotFound) {
		t.Errorf("Err = %v, want ErrCatalogNotFound", res.Err)
	}
	if res.Key != "2024-03-09-12" {
		t.Errorf("Key = %q, want 2024-03-09-12", res.Key)
	}

	docs, err := p.store.List(ctx, writer.Collection)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("snapshots written = %d, want 0", len(docs))
	}
}

func TestJob_Run_MissingRate(t *testing.T) {
	eod := eodServer(t, map[string]float64{"AAPL.US": 150})
	cg := coinGeckoServer(t, map[string]float64{})
	p := newPipeline(t, eod.URL, cg.URL, time.Date(2024, 3, 9, 17, 55, 0, 0, time.UTC))

	ctx := context.Background()
	if err := catalog.NewReader(p.store).WriteCatalog(ctx, model.AssetCatalog{
		Crypto: model.AssetCatalogEntries{"bitcoin": "BTC"},
		Nasdaq: model.AssetCatalogEntries{"AAPL": "AAPL"},
	}); err != nil {
		t.Fatalf("WriteCatalog failed: %v", err)
	}

	res := p.job.Run(ctx)
	if res.State != StateFailed {
		t.Fatalf("State = %q, want %q", res.State, StateFailed)
	}
	var failed *pricetable.PriceFetchFailed
	if !errors.As(res.Err, &failed) || failed.Class != model.Crypto {
		t.Errorf("Err = %v, want crypto PriceFetchFailed", res.Err)
	}
	if !errors.Is(res.Err, api.ErrMissingRate) {
		t.Errorf("Err = %v, want ErrMissingRate", res.Err)
	}

	docs, _ := p.store.List(ctx, writer.Collection)
	if len(docs) != 0 {
		t.Errorf("snapshots written = %d, want 0", len(docs))
	}
}

type stubBuilder struct {
	table model.PriceTable
	err   error
}

func (b stubBuilder) BuildPriceTable(ctx context.Context) (model.PriceTable, error) {
	return b.table, b.err
}

type stubWriter struct {
	err  error
	keys []string
}

func (w *stubWriter) WriteSnapshot(ctx context.Context, key string, table model.PriceTable) error {
	w.keys = append(w.keys, key)
	return w.err
}

func TestJob_Run_WriteFailure(t *testing.T) {
	cause := &writer.SnapshotWriteError{Key: "2024-03-10-00", Err: errors.New("unavailable")}
	w := &stubWriter{err: cause}
	now := time.Date(2024, 3, 9, 23, 55, 0, 0, time.UTC)
	job := NewJob(DefaultConfig(), stubBuilder{table: model.NewPriceTable()}, w, nil,
		WithClock(func() time.Time { return now }),
	)

	res := job.Run(context.Background())
	if res.State != StateFailed {
		t.Errorf("State = %q, want %q", res.State, StateFailed)
	}
	var writeErr *writer.SnapshotWriteError
	if !errors.As(res.Err, &writeErr) {
		t.Errorf("Err = %v, want *SnapshotWriteError", res.Err)
	}
	if len(w.keys) != 1 || w.keys[0] != "2024-03-10-00" {
		t.Errorf("write keys = %v, want [2024-03-10-00]", w.keys)
	}
}

func TestJob_Run_Timeout(t *testing.T) {
	slow := builderFunc(func(ctx context.Context) (model.PriceTable, error) {
		<-ctx.Done()
		return model.PriceTable{}, ctx.Err()
	})
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	w := &stubWriter{}

	res := NewJob(cfg, slow, w, nil).Run(context.Background())
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want DeadlineExceeded", res.Err)
	}
	if len(w.keys) != 0 {
		t.Errorf("writer called %d times, want 0", len(w.keys))
	}
}

type builderFunc func(ctx context.Context) (model.PriceTable, error)

func (f builderFunc) BuildPriceTable(ctx context.Context) (model.PriceTable, error) {
	return f(ctx)
}
