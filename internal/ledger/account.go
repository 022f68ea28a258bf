package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bankledger/internal/domain"
)

// account is the ledger-internal representation. mu guards balance and
// history; id, customerID, name and accountType are immutable after creation.
type account struct {
	mu          sync.Mutex
	id          int64
	customerID  int64
	name        string
	accountType string
	balance     decimal.Decimal
	history     []domain.Transaction
}

func newAccount(id, customerID int64, name, accountType string) *account {
	return &account{
		id:          id,
		customerID:  customerID,
		name:        name,
		accountType: accountType,
		balance:     decimal.Zero,
	}
}

// append records one history entry and applies its signed effect to the
// balance in the same step, keeping balance == sum(history) at every
// observable point. Caller must hold mu.
func (a *account) append(kind domain.TransactionKind, amount decimal.Decimal, counterparty int64) {
	tx := domain.Transaction{
		ID:           uuid.NewString(),
		Kind:         kind,
		Amount:       amount,
		Counterparty: counterparty,
		Timestamp:    time.Now().UTC(),
	}
	a.balance = a.balance.Add(tx.Effect())
	a.history = append(a.history, tx)
}

// snapshot returns a copy safe to hand outside the package; the history
// slice is copied so callers can never mutate internal state. Caller must
// hold mu.
func (a *account) snapshot() domain.Account {
	history := make([]domain.Transaction, len(a.history))
	copy(history, a.history)
	return domain.Account{
		ID:          a.id,
		CustomerID:  a.customerID,
		Name:        a.name,
		AccountType: a.accountType,
		Balance:     a.balance,
		History:     history,
	}
}
