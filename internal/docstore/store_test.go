package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	mem, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	file, err := OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite(file) failed: %v", err)
	}
	t.Cleanup(func() {
		mem.Close()
		file.Close()
	})

	return map[string]Store{
		"memory":        NewMemoryStore(),
		"sqlite memory": mem,
		"sqlite file":   file,
	}
}

func TestStore_GetSet(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var got map[string]float64
			if err := s.Get(ctx, "price-tables", "2024-01-01-00", &got); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get on empty store error = %v, want ErrNotFound", err)
			}

			want := map[string]float64{"bitcoin": 50000}
			if err := s.Set(ctx, "price-tables", "2024-01-01-00", want); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := s.Get(ctx, "price-tables", "2024-01-01-00", &got); err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Get() = %v, want %v", got, want)
			}

			// Overwrite replaces the whole document.
			if err := s.Set(ctx, "price-tables", "2024-01-01-00", map[string]float64{"ethereum": 3000}); err != nil {
				t.Fatalf("Set overwrite failed: %v", err)
			}
			got = nil
			if err := s.Get(ctx, "price-tables", "2024-01-01-00", &got); err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if _, ok := got["bitcoin"]; ok {
				t.Errorf("overwrite kept old key: %v", got)
			}
		})
	}
}

func TestStore_Merge(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			col := Path("users", "u1", "transactions")

			first := map[string]any{
				"1700000000": map[string]any{"assetType": "crypto", "assetId": "bitcoin", "amount": 1.0},
			}
			second := map[string]any{
				"1700000100": map[string]any{"assetType": "nasdaq", "assetId": "AAPL", "amount": 2.0},
			}
			if err := s.Set(ctx, col, "transactions_2023", first, Merge()); err != nil {
				t.Fatalf("first merge failed: %v", err)
			}
			if err := s.Set(ctx, col, "transactions_2023", second, Merge()); err != nil {
				t.Fatalf("second merge failed: %v", err)
			}

			var got map[string]map[string]any
			if err := s.Get(ctx, col, "transactions_2023", &got); err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("len(got) = %d, want 2: %v", len(got), got)
			}
			if got["1700000100"]["assetId"] != "AAPL" {
				t.Errorf("merged entry = %v, want AAPL", got["1700000100"])
			}

			if err := s.Set(ctx, col, "transactions_2023", []int{1}, Merge()); err == nil {
				t.Error("merge of a non-object should fail")
			}
		})
	}
}

func TestStore_ListAfter(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			keys := []string{"2024-01-02-00", "2024-01-01-12", "2024-01-01-18", "2024-01-01-06"}
			for _, k := range keys {
				if err := s.Set(ctx, "price-tables", k, map[string]string{"key": k}); err != nil {
					t.Fatalf("Set(%s) failed: %v", k, err)
				}
			}
			if err := s.Set(ctx, "other", "2024-01-03-00", map[string]string{}); err != nil {
				t.Fatalf("Set(other) failed: %v", err)
			}

			all, err := s.List(ctx, "price-tables")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if got, want := ids(all), []string{"2024-01-01-06", "2024-01-01-12", "2024-01-01-18", "2024-01-02-00"}; !reflect.DeepEqual(got, want) {
				t.Errorf("List() ids = %v, want %v", got, want)
			}

			after, err := s.ListAfter(ctx, "price-tables", "2024-01-01-12")
			if err != nil {
				t.Fatalf("ListAfter failed: %v", err)
			}
			if got, want := ids(after), []string{"2024-01-01-18", "2024-01-02-00"}; !reflect.DeepEqual(got, want) {
				t.Errorf("ListAfter() ids = %v, want %v", got, want)
			}

			var decoded map[string]string
			if err := after[0].Decode(&decoded); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded["key"] != "2024-01-01-18" {
				t.Errorf("decoded key = %q, want 2024-01-01-18", decoded["key"])
			}
		})
	}
}

func TestStore_RecursiveDelete(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mustSet := func(col, id string) {
				t.Helper()
				if err := s.Set(ctx, col, id, map[string]int{"n": 1}); err != nil {
					t.Fatalf("Set(%s/%s) failed: %v", col, id, err)
				}
			}
			mustSet("users", "u1")
			mustSet("users", "u10")
			mustSet(Path("users", "u1", "transactions"), "transactions_2023")
			mustSet(Path("users", "u1", "transactions"), "transactions_2024")
			mustSet(Path("users", "u10", "transactions"), "transactions_2024")

			if err := s.RecursiveDelete(ctx, "users", "u1"); err != nil {
				t.Fatalf("RecursiveDelete failed: %v", err)
			}

			var v map[string]int
			if err := s.Get(ctx, "users", "u1", &v); !errors.Is(err, ErrNotFound) {
				t.Errorf("users/u1 error = %v, want ErrNotFound", err)
			}
			docs, err := s.List(ctx, Path("users", "u1", "transactions"))
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(docs) != 0 {
				t.Errorf("sub-collection still has %d documents", len(docs))
			}

			// A user whose id shares a prefix is untouched.
			if err := s.Get(ctx, "users", "u10", &v); err != nil {
				t.Errorf("users/u10 error = %v, want nil", err)
			}
			docs, err = s.List(ctx, Path("users", "u10", "transactions"))
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(docs) != 1 {
				t.Errorf("u10 transactions = %d, want 1", len(docs))
			}

			if err := s.Delete(ctx, "users", "u10"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := s.Delete(ctx, "users", "u10"); err != nil {
				t.Errorf("Delete of absent document error = %v, want nil", err)
			}
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		id         string
		wantErr    bool
	}{
		{"valid", "server", "asset_table", false},
		{"missing collection", "", "asset_table", true},
		{"missing id", "server", "", true},
		{"slash in id", "users", "a/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateKey(tt.collection, tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
