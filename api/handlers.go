package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	ilerrors "github.com/iLayer-io/iLayer-bot/errors"
	"github.com/iLayer-io/iLayer-bot/metrics"
	"github.com/iLayer-io/iLayer-bot/store"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleOrdersByChain handles GET /api/v1/chains/{chain_id}/orders?status=<status>
func (s *Server) handleOrdersByChain(w http.ResponseWriter, r *http.Request) {
	chainID, ok := s.chainParam(w, r)
	if !ok {
		return
	}

	status := store.OrderStatusCreated
	if q := r.URL.Query().Get("status"); q != "" {
		status = store.OrderStatus(q)
		if !status.Valid() {
			s.writeChainError(w, ilerrors.NewValidationError(fmt.Sprint(chainID), fmt.Sprintf("unknown status %q", q)))
			return
		}
	}

	orders, err := s.orders.ListByChainAndStatus(r.Context(), chainID, status)
	if err != nil {
		s.logger.Error().Err(err).Uint64("chain_id", chainID).Msg("failed to list orders")
		s.writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	data := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, newOrderResponse(&orders[i]))
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: data})
}

// handleCheckpoint handles GET /api/v1/chains/{chain_id}/checkpoint
func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	chainID, ok := s.chainParam(w, r)
	if !ok {
		return
	}

	height, found, err := s.checkpoints.GetLastCheckpoint(r.Context(), chainID)
	if err != nil {
		s.logger.Error().Err(err).Uint64("chain_id", chainID).Msg("failed to read checkpoint")
		s.writeError(w, http.StatusInternalServerError, "failed to read checkpoint")
		return
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: CheckpointResponse{ChainID: chainID, Height: height, Found: found}})
}

// handleStats handles GET /api/v1/chains/{chain_id}/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	chainID, ok := s.chainParam(w, r)
	if !ok {
		return
	}

	resp := StatsResponse{ChainID: chainID, Orders: make(map[store.OrderStatus]int64, 3)}
	for _, status := range []store.OrderStatus{
		store.OrderStatusCreated,
		store.OrderStatusFilled,
		store.OrderStatusWithdrawn,
	} {
		count, err := s.orders.CountByChainAndStatus(r.Context(), chainID, status)
		if err != nil {
			s.logger.Error().Err(err).Uint64("chain_id", chainID).Msg("failed to count orders")
			s.writeError(w, http.StatusInternalServerError, "failed to count orders")
			return
		}
		resp.Orders[status] = count
	}

	pending, err := s.pending.CountByChain(r.Context(), chainID)
	if err != nil {
		s.logger.Error().Err(err).Uint64("chain_id", chainID).Msg("failed to count pending transitions")
		s.writeError(w, http.StatusInternalServerError, "failed to count pending transitions")
		return
	}
	resp.PendingTransitions = pending
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: resp})
}

// handleOrder handles GET /api/v1/orders/{order_id}
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["order_id"]
	orderID, err := hexutil.Decode(raw)
	if err != nil || len(orderID) == 0 {
		s.writeChainError(w, ilerrors.NewValidationError("", "order_id must be 0x-prefixed hex"))
		return
	}

	order, err := s.orders.GetByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeChainError(w, ilerrors.NewNotFoundError("", fmt.Sprintf("order %s not found", raw), err))
			return
		}
		s.logger.Error().Err(err).Str("order_id", raw).Msg("failed to get order")
		s.writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	s.writeJSON(w, http.StatusOK, QueryResponse{Data: newOrderResponse(order)})
}

// chainParam parses the chain_id path variable and checks it is configured.
func (s *Server) chainParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := mux.Vars(r)["chain_id"]
	chainID, err := cast.ToUint64E(raw)
	if err != nil {
		s.writeChainError(w, ilerrors.NewValidationError(raw, fmt.Sprintf("invalid chain_id %q", raw)))
		return 0, false
	}
	if _, ok := s.chains[chainID]; !ok {
		s.writeChainError(w, ilerrors.NewNotFoundError(raw, fmt.Sprintf("chain %d is not configured", chainID), nil))
		return 0, false
	}
	return chainID, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeChainError answers with the status matching the error code. Only the
// message is sent; the cause stays in the logs.
func (s *Server) writeChainError(w http.ResponseWriter, err *ilerrors.ChainError) {
	status := http.StatusInternalServerError
	switch err.Code {
	case ilerrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case ilerrors.ErrCodeNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	s.writeError(w, status, err.Message)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.APIRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}
