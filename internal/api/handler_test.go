package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"bankledger/internal/domain"
	"bankledger/internal/ledger"
)

func newTestServer() *httptest.Server {
	r := mux.NewRouter()
	NewHandler(ledger.New()).Register(r)
	return httptest.NewServer(r)
}

// doJSON sends a JSON request, asserts the status code, and decodes the
// response into out when non-nil.
func doJSON(t *testing.T, method, url string, body interface{}, headers map[string]string, wantCode int, out interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("%s %s: code=%d want=%d", method, url, resp.StatusCode, wantCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func createAccount(t *testing.T, baseURL, name string) int64 {
	t.Helper()
	var cust struct {
		CustomerID int64 `json:"customer_id"`
	}
	doJSON(t, "POST", baseURL+"/api/v1/customers", map[string]string{
		"name": name, "address": "1 Test St", "phone": "555-0000", "email": name + "@example.com",
	}, nil, http.StatusCreated, &cust)

	var acct struct {
		AccountID int64 `json:"account_id"`
	}
	doJSON(t, "POST", baseURL+"/api/v1/accounts", map[string]interface{}{
		"customer_id": cust.CustomerID, "account_type": "Checking",
	}, nil, http.StatusCreated, &acct)
	return acct.AccountID
}

func TestHTTPFlow(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	from := createAccount(t, srv.URL, "dave")
	to := createAccount(t, srv.URL, "eve")

	var acct domain.Account
	doJSON(t, "POST", srv.URL+addr(from, "/deposit"), map[string]string{"amount": "200.00"}, nil, http.StatusOK, &acct)
	if !acct.Balance.Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("balance after deposit=%s want=200.00", acct.Balance)
	}

	var resp domain.TransferResponse
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", map[string]interface{}{
		"from_account_id": from, "to_account_id": to, "amount": "50.00",
	}, map[string]string{"Idempotency-Key": "flow-1"}, http.StatusCreated, &resp)
	if !resp.From.Balance.Equal(decimal.RequireFromString("150.00")) || !resp.To.Balance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("transfer balances: from=%s to=%s", resp.From.Balance, resp.To.Balance)
	}

	var history []domain.Transaction
	doJSON(t, "GET", srv.URL+addr(from, "/history"), nil, nil, http.StatusOK, &history)
	if len(history) != 2 || history[1].Kind != domain.KindTransferOut || history[1].Counterparty != to {
		t.Fatalf("history = %+v", history)
	}
}

func TestTransferErrorStatuses(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	from := createAccount(t, srv.URL, "frank")
	to := createAccount(t, srv.URL, "grace")

	// Missing Idempotency-Key
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", map[string]interface{}{
		"from_account_id": from, "to_account_id": to, "amount": "1.00",
	}, nil, http.StatusBadRequest, nil)

	// Insufficient funds
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", map[string]interface{}{
		"from_account_id": from, "to_account_id": to, "amount": "1.00",
	}, map[string]string{"Idempotency-Key": "err-1"}, http.StatusUnprocessableEntity, nil)

	// Self-transfer
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", map[string]interface{}{
		"from_account_id": from, "to_account_id": from, "amount": "1.00",
	}, map[string]string{"Idempotency-Key": "err-2"}, http.StatusUnprocessableEntity, nil)

	// Unknown account
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", map[string]interface{}{
		"from_account_id": from, "to_account_id": int64(999), "amount": "1.00",
	}, map[string]string{"Idempotency-Key": "err-3"}, http.StatusNotFound, nil)
}

func TestTransferIdempotentReplay(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	from := createAccount(t, srv.URL, "henry")
	to := createAccount(t, srv.URL, "iris")
	doJSON(t, "POST", srv.URL+addr(from, "/deposit"), map[string]string{"amount": "100.00"}, nil, http.StatusOK, nil)

	payload := map[string]interface{}{
		"from_account_id": from, "to_account_id": to, "amount": "10.00",
	}
	headers := map[string]string{"Idempotency-Key": "replay-1"}

	var first domain.TransferResponse
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", payload, headers, http.StatusCreated, &first)

	// Same key, same payload: the stored response is replayed and no second
	// transfer is applied.
	var replay domain.TransferResponse
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", payload, headers, http.StatusCreated, &replay)
	if !replay.From.Balance.Equal(first.From.Balance) {
		t.Fatalf("replay body differs: %s vs %s", replay.From.Balance, first.From.Balance)
	}

	var acct domain.Account
	doJSON(t, "GET", srv.URL+addr(from, ""), nil, nil, http.StatusOK, &acct)
	if !acct.Balance.Equal(decimal.RequireFromString("90.00")) {
		t.Fatalf("balance=%s want=90.00 (replay must not re-apply)", acct.Balance)
	}

	// Same key, different payload: rejected.
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", map[string]interface{}{
		"from_account_id": from, "to_account_id": to, "amount": "20.00",
	}, headers, http.StatusUnprocessableEntity, nil)
}

// A key whose transfer failed is released, so retrying it after fixing the
// cause succeeds.
func TestFailedTransferReleasesKey(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	from := createAccount(t, srv.URL, "joan")
	to := createAccount(t, srv.URL, "kyle")

	payload := map[string]interface{}{
		"from_account_id": from, "to_account_id": to, "amount": "10.00",
	}
	headers := map[string]string{"Idempotency-Key": "retry-1"}

	doJSON(t, "POST", srv.URL+"/api/v1/transfers", payload, headers, http.StatusUnprocessableEntity, nil)

	doJSON(t, "POST", srv.URL+addr(from, "/deposit"), map[string]string{"amount": "50.00"}, nil, http.StatusOK, nil)
	doJSON(t, "POST", srv.URL+"/api/v1/transfers", payload, headers, http.StatusCreated, nil)
}

func TestCustomerEndpoints(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	var cust struct {
		CustomerID int64 `json:"customer_id"`
	}
	doJSON(t, "POST", srv.URL+"/api/v1/customers", map[string]string{
		"name": "Alice", "address": "1 Old Road", "phone": "555-1111", "email": "alice@example.com",
	}, nil, http.StatusCreated, &cust)

	var got domain.Customer
	doJSON(t, "GET", srv.URL+custAddr(cust.CustomerID, ""), nil, nil, http.StatusOK, &got)
	if got.Name != "Alice" {
		t.Fatalf("name=%q want=Alice", got.Name)
	}

	doJSON(t, "PATCH", srv.URL+custAddr(cust.CustomerID, ""), map[string]string{"phone": "555-2222"}, nil, http.StatusOK, &got)
	if got.Phone != "555-2222" || got.Name != "Alice" {
		t.Fatalf("patched customer = %+v", got)
	}

	doJSON(t, "GET", srv.URL+custAddr(999, ""), nil, nil, http.StatusNotFound, nil)
	doJSON(t, "GET", srv.URL+custAddr(999, "/accounts"), nil, nil, http.StatusNotFound, nil)

	doJSON(t, "POST", srv.URL+"/api/v1/accounts", map[string]interface{}{
		"customer_id": cust.CustomerID, "account_type": "Savings",
	}, nil, http.StatusCreated, nil)

	var accounts []domain.Account
	doJSON(t, "GET", srv.URL+custAddr(cust.CustomerID, "/accounts"), nil, nil, http.StatusOK, &accounts)
	if len(accounts) != 1 || accounts[0].AccountType != "Savings" {
		t.Fatalf("customer accounts = %+v", accounts)
	}

	// Creating an account for an unknown customer is a 404, not a crash.
	doJSON(t, "POST", srv.URL+"/api/v1/accounts", map[string]interface{}{
		"customer_id": int64(999), "account_type": "Checking",
	}, nil, http.StatusNotFound, nil)
}

func TestAccountErrorStatuses(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	aid := createAccount(t, srv.URL, "lena")

	doJSON(t, "GET", srv.URL+addr(999, ""), nil, nil, http.StatusNotFound, nil)
	doJSON(t, "POST", srv.URL+addr(aid, "/deposit"), map[string]string{"amount": "-5.00"}, nil, http.StatusUnprocessableEntity, nil)
	doJSON(t, "POST", srv.URL+addr(aid, "/withdraw"), map[string]string{"amount": "5.00"}, nil, http.StatusUnprocessableEntity, nil)
}

func addr(id int64, suffix string) string {
	return "/api/v1/accounts/" + strconv.FormatInt(id, 10) + suffix
}

func custAddr(id int64, suffix string) string {
	return "/api/v1/customers/" + strconv.FormatInt(id, 10) + suffix
}
