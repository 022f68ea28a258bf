package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"bankledger/internal/domain"
)

func (h *Handler) CreateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/customers")
		return
	}
	id := h.ledger.CreateCustomer(req.Name, req.Address, req.Phone, req.Email)
	h.respondJSON(w, http.StatusCreated, map[string]int64{"customer_id": id}, "POST", "/customers")
}

func (h *Handler) ListCustomersHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.ledger.ListCustomers(), "GET", "/customers")
}

func (h *Handler) GetCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid customer id", "GET", "/customers/{id}")
		return
	}
	customer, err := h.ledger.GetCustomer(id)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/customers/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, customer, "GET", "/customers/{id}")
}

func (h *Handler) UpdateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid customer id", "PATCH", "/customers/{id}")
		return
	}
	var patch domain.CustomerPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PATCH", "/customers/{id}")
		return
	}
	customer, err := h.ledger.UpdateCustomer(id, patch)
	if err != nil {
		h.respondLedgerError(w, err, "PATCH", "/customers/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, customer, "PATCH", "/customers/{id}")
}

func (h *Handler) ListCustomerAccountsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid customer id", "GET", "/customers/{id}/accounts")
		return
	}
	accounts, err := h.ledger.ListCustomerAccounts(id)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/customers/{id}/accounts")
		return
	}
	h.respondJSON(w, http.StatusOK, accounts, "GET", "/customers/{id}/accounts")
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts")
		return
	}
	id, err := h.ledger.CreateAccount(req.CustomerID, req.AccountType)
	if err != nil {
		h.respondLedgerError(w, err, "POST", "/accounts")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"account_id": id}, "POST", "/accounts")
}

func (h *Handler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.ledger.ListAccounts(), "GET", "/accounts")
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id", "GET", "/accounts/{id}")
		return
	}
	account, err := h.ledger.GetAccount(id)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/accounts/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, account, "GET", "/accounts/{id}")
}

func (h *Handler) GetAccountHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id", "GET", "/accounts/{id}/history")
		return
	}
	history, err := h.ledger.History(id)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/accounts/{id}/history")
		return
	}
	h.respondJSON(w, http.StatusOK, history, "GET", "/accounts/{id}/history")
}

func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id", "POST", "/accounts/{id}/deposit")
		return
	}
	var req domain.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts/{id}/deposit")
		return
	}
	account, err := h.ledger.Deposit(id, req.Amount)
	if err != nil {
		h.respondLedgerError(w, err, "POST", "/accounts/{id}/deposit")
		return
	}
	h.respondJSON(w, http.StatusOK, account, "POST", "/accounts/{id}/deposit")
}

func (h *Handler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid account id", "POST", "/accounts/{id}/withdraw")
		return
	}
	var req domain.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts/{id}/withdraw")
		return
	}
	account, err := h.ledger.Withdraw(id, req.Amount)
	if err != nil {
		h.respondLedgerError(w, err, "POST", "/accounts/{id}/withdraw")
		return
	}
	h.respondJSON(w, http.StatusOK, account, "POST", "/accounts/{id}/withdraw")
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/transfers"))
	defer timer.ObserveDuration()

	// 1. Validate Header
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		h.respondError(w, http.StatusBadRequest, "Missing Idempotency-Key header", "POST", "/transfers")
		return
	}

	// 2. Read and Hash Body
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Stream read error", "POST", "/transfers")
		return
	}
	hash := sha256.Sum256(bodyBytes)
	reqHash := hex.EncodeToString(hash[:])

	var req domain.TransferRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/transfers")
		return
	}

	// 3. Idempotency Check & Reservation
	existing, err := h.idem.begin(idempotencyKey, reqHash)
	if err != nil {
		if errors.Is(err, ErrIdempotencyConflict) {
			h.respondError(w, http.StatusConflict, "Request processing in progress", "POST", "/transfers")
			return
		}
		h.respondError(w, http.StatusUnprocessableEntity, "Key reuse with mismatched payload", "POST", "/transfers")
		return
	}

	// Handle Idempotent Replay
	if existing != nil {
		httpReqTotal.WithLabelValues("POST", "/transfers", strconv.Itoa(existing.responseStatus)).Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.responseStatus)
		w.Write(existing.responseBody)
		return
	}

	// 4. Execute Transfer
	from, to, err := h.ledger.Transfer(req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		// A failed transfer mutated nothing; free the key so the caller can
		// retry with it once the cause is fixed.
		h.idem.release(idempotencyKey)
		h.respondLedgerError(w, err, "POST", "/transfers")
		return
	}

	// 5. Finalize Idempotency & Respond
	respBody, err := json.Marshal(domain.TransferResponse{From: from, To: to})
	if err != nil {
		h.idem.release(idempotencyKey)
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", "POST", "/transfers")
		return
	}
	h.idem.complete(idempotencyKey, http.StatusCreated, respBody)

	httpReqTotal.WithLabelValues("POST", "/transfers", "201").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(respBody)
}
