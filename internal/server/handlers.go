package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rickgao/pricetables/internal/auth"
	"github.com/rickgao/pricetables/internal/catalog"
	"github.com/rickgao/pricetables/internal/model"
	"github.com/rickgao/pricetables/internal/refresh"
	"github.com/rickgao/pricetables/internal/users"
	"github.com/rickgao/pricetables/internal/writer"
)

func (s *Server) handleGetAssetTable(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Catalog.ReadCatalog(r.Context())
	if errors.Is(err, catalog.ErrCatalogNotFound) {
		writeError(w, KindNotFound, "asset table does not exist")
		return
	}
	if err != nil {
		s.logger.Error("read asset table failed", "error", err)
		writeError(w, KindInternal, "could not fetch asset table")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePutAssetTable(w http.ResponseWriter, r *http.Request) {
	c, err := catalog.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, KindInvalidArgument, err.Error())
		return
	}
	if err := s.deps.Catalog.WriteCatalog(r.Context(), c); err != nil {
		s.logger.Error("write asset table failed", "error", err)
		writeError(w, KindInternal, "could not set asset table")
		return
	}
	s.logger.Info("asset table updated",
		"crypto", len(c.Crypto),
		"nasdaq", len(c.Nasdaq),
		"forex", len(c.Forex),
		"bist", len(c.Bist),
	)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListPriceTables(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after != "" {
		if _, err := writer.ParseKey(after); err != nil {
			writeError(w, KindInvalidArgument, "after must be a YYYY-MM-DD-HH key")
			return
		}
	}

	tables, err := s.deps.Snapshots.ListSnapshots(r.Context(), after)
	if err != nil {
		s.logger.Error("list price tables failed", "after", after, "error", err)
		writeError(w, KindInternal, "could not fetch price tables")
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleAddTransactions(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r.Context())

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	var txs model.UserTransactions
	if err := dec.Decode(&txs); err != nil {
		writeError(w, KindInvalidArgument, "decode transactions: "+err.Error())
		return
	}

	err := s.deps.Users.AddTransactions(r.Context(), uid, txs)
	if errors.Is(err, users.ErrInvalidTransaction) {
		writeError(w, KindInvalidArgument, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("add transactions failed", "uid", uid, "error", err)
		writeError(w, KindInternal, "could not add transactions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserID(r.Context())

	txs, err := s.deps.Users.Transactions(r.Context(), uid)
	if err != nil {
		s.logger.Error("fetch transactions failed", "uid", uid, "error", err)
		writeError(w, KindInternal, "could not fetch transactions")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.deps.Users.CreateUser(r.Context(), uid); err != nil {
		s.logger.Error("create user failed", "uid", uid, "error", err)
		writeError(w, KindInternal, "could not create user")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.deps.Users.DeleteUser(r.Context(), uid); err != nil {
		s.logger.Error("delete user failed", "uid", uid, "error", err)
		writeError(w, KindInternal, "could not delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshResponse reports a manually triggered run.
type RefreshResponse struct {
	RunID      string            `json:"runId"`
	Key        string            `json:"key"`
	State      refresh.State     `json:"state"`
	Error      string            `json:"error,omitempty"`
	DurationMS int64             `json:"durationMs"`
	Table      *model.PriceTable `json:"table,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The run outlives a disconnected client.
	res := s.deps.Refresh.Run(context.WithoutCancel(r.Context()))

	resp := RefreshResponse{
		RunID:      res.RunID,
		Key:        res.Key,
		State:      res.State,
		DurationMS: res.Duration.Milliseconds(),
	}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status = http.StatusInternalServerError
	} else {
		resp.Table = &res.Table
	}
	writeJSON(w, status, resp)
}
