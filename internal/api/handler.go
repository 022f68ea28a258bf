package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bankledger/internal/ledger"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bank_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bank_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	ledger *ledger.Ledger
	idem   *idempotencyStore
}

func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{ledger: l, idem: newIdempotencyStore()}
}

// Register binds all API routes onto r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/customers", h.CreateCustomerHandler).Methods("POST")
	v1.HandleFunc("/customers", h.ListCustomersHandler).Methods("GET")
	v1.HandleFunc("/customers/{id}", h.GetCustomerHandler).Methods("GET")
	v1.HandleFunc("/customers/{id}", h.UpdateCustomerHandler).Methods("PATCH")
	v1.HandleFunc("/customers/{id}/accounts", h.ListCustomerAccountsHandler).Methods("GET")
	v1.HandleFunc("/accounts", h.CreateAccountHandler).Methods("POST")
	v1.HandleFunc("/accounts", h.ListAccountsHandler).Methods("GET")
	v1.HandleFunc("/accounts/{id}", h.GetAccountHandler).Methods("GET")
	v1.HandleFunc("/accounts/{id}/history", h.GetAccountHistoryHandler).Methods("GET")
	v1.HandleFunc("/accounts/{id}/deposit", h.DepositHandler).Methods("POST")
	v1.HandleFunc("/accounts/{id}/withdraw", h.WithdrawHandler).Methods("POST")
	v1.HandleFunc("/transfers", h.CreateTransferHandler).Methods("POST")
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// Helpers. Every response path goes through respondJSON so the request
// counter always sees the final status code.
func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}

// respondLedgerError maps core errors to HTTP statuses: unknown entities are
// 404, rule violations 422, anything else 500.
func (h *Handler) respondLedgerError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, ledger.ErrCustomerNotFound):
		h.respondError(w, http.StatusNotFound, "Customer not found", method, endpoint)
	case errors.Is(err, ledger.ErrAccountNotFound):
		h.respondError(w, http.StatusNotFound, "Account not found", method, endpoint)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		h.respondError(w, http.StatusUnprocessableEntity, "Insufficient funds", method, endpoint)
	case errors.Is(err, ledger.ErrInvalidAmount):
		h.respondError(w, http.StatusUnprocessableEntity, "Positive amount required", method, endpoint)
	case errors.Is(err, ledger.ErrSelfTransfer):
		h.respondError(w, http.StatusUnprocessableEntity, "Self-transfer not allowed", method, endpoint)
	default:
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
