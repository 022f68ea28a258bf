package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tags the nature and direction of a history entry.
type TransactionKind string

const (
	KindDeposit     TransactionKind = "deposit"
	KindWithdrawal  TransactionKind = "withdrawal"
	KindTransferIn  TransactionKind = "transfer_in"
	KindTransferOut TransactionKind = "transfer_out"
)

// Transaction is an immutable record of one balance-affecting event.
// Counterparty is set only for transfer kinds and names the other account.
type Transaction struct {
	ID           string          `json:"id"`
	Kind         TransactionKind `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Counterparty int64           `json:"counterparty_account_id,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Effect returns the signed delta this entry applied to its account.
// The sum of Effects over an account's history equals its balance.
func (t Transaction) Effect() decimal.Decimal {
	switch t.Kind {
	case KindWithdrawal, KindTransferOut:
		return t.Amount.Neg()
	default:
		return t.Amount
	}
}

// Customer is a named party that may own accounts.
type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// CustomerPatch carries a partial customer update; nil fields stay untouched.
type CustomerPatch struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
}

// Account is a balance-bearing entity belonging to exactly one customer.
// History is served by its own endpoint rather than inlined in account JSON.
type Account struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	Name        string          `json:"name"`
	AccountType string          `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	History     []Transaction   `json:"-"`
}

// CreateCustomerRequest is the DTO for incoming customer creation requests.
type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// CreateAccountRequest is the DTO for incoming account creation requests.
type CreateAccountRequest struct {
	CustomerID  int64  `json:"customer_id"`
	AccountType string `json:"account_type"`
}

// AmountRequest is the payload for deposits and withdrawals.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransferRequest is the payload from the client.
type TransferRequest struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransferResponse carries both post-transfer account states.
type TransferResponse struct {
	From Account `json:"from"`
	To   Account `json:"to"`
}
