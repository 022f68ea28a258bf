// Package ledger implements the in-memory retail-banking core: customers,
// accounts, and the transactions that mutate account balances. All state is
// process-lifetime; nothing is persisted and nothing is ever deleted.
package ledger

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"bankledger/internal/domain"
)

// Ledger is the aggregate root. It is the sole factory for customers and
// accounts and the only entry point for balance mutations. mu guards the
// directory (maps, insertion order, ID counters); each account additionally
// carries its own lock for balance and history, so independent accounts can
// be mutated concurrently.
type Ledger struct {
	mu             sync.RWMutex
	nextCustomerID int64
	nextAccountID  int64
	customers      map[int64]*domain.Customer
	customerOrder  []int64
	accounts       map[int64]*account
	accountOrder   []int64
}

func New() *Ledger {
	return &Ledger{
		customers: make(map[int64]*domain.Customer),
		accounts:  make(map[int64]*account),
	}
}

// CreateCustomer allocates a fresh ID and stores the customer. It always
// succeeds; contact fields are not validated here.
func (l *Ledger) CreateCustomer(name, address, phone, email string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextCustomerID++
	id := l.nextCustomerID
	l.customers[id] = &domain.Customer{ID: id, Name: name, Address: address, Phone: phone, Email: email}
	l.customerOrder = append(l.customerOrder, id)
	return id
}

// UpdateCustomer replaces only the fields present in the patch and returns
// the updated customer.
func (l *Ledger) UpdateCustomer(id int64, patch domain.CustomerPatch) (domain.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.customers[id]
	if !ok {
		return domain.Customer{}, ErrCustomerNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	return *c, nil
}

func (l *Ledger) GetCustomer(id int64) (domain.Customer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.customers[id]
	if !ok {
		return domain.Customer{}, ErrCustomerNotFound
	}
	return *c, nil
}

// ListCustomers returns all customers in creation order.
func (l *Ledger) ListCustomers() []domain.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Customer, 0, len(l.customerOrder))
	for _, id := range l.customerOrder {
		out = append(out, *l.customers[id])
	}
	return out
}

// CreateAccount allocates a fresh ID and stores a zero-balance account for
// an existing customer. An unknown customer is a recoverable error, never a
// panic. The display name defaults to "<Type> Account".
func (l *Ledger) CreateAccount(customerID int64, accountType string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.customers[customerID]; !ok {
		return 0, ErrCustomerNotFound
	}
	l.nextAccountID++
	id := l.nextAccountID
	l.accounts[id] = newAccount(id, customerID, fmt.Sprintf("%s Account", accountType), accountType)
	l.accountOrder = append(l.accountOrder, id)
	return id, nil
}

func (l *Ledger) GetAccount(id int64) (domain.Account, error) {
	a, err := l.lookup(id)
	if err != nil {
		return domain.Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot(), nil
}

// ListAccounts returns snapshots of all accounts in creation order.
func (l *Ledger) ListAccounts() []domain.Account {
	l.mu.RLock()
	accts := make([]*account, 0, len(l.accountOrder))
	for _, id := range l.accountOrder {
		accts = append(accts, l.accounts[id])
	}
	l.mu.RUnlock()

	out := make([]domain.Account, 0, len(accts))
	for _, a := range accts {
		a.mu.Lock()
		out = append(out, a.snapshot())
		a.mu.Unlock()
	}
	return out
}

// ListCustomerAccounts returns the customer's accounts in creation order.
func (l *Ledger) ListCustomerAccounts(customerID int64) ([]domain.Account, error) {
	l.mu.RLock()
	if _, ok := l.customers[customerID]; !ok {
		l.mu.RUnlock()
		return nil, ErrCustomerNotFound
	}
	accts := make([]*account, 0)
	for _, id := range l.accountOrder {
		if a := l.accounts[id]; a.customerID == customerID {
			accts = append(accts, a)
		}
	}
	l.mu.RUnlock()

	out := make([]domain.Account, 0, len(accts))
	for _, a := range accts {
		a.mu.Lock()
		out = append(out, a.snapshot())
		a.mu.Unlock()
	}
	return out, nil
}

// History returns an ordered copy of the account's transactions.
func (l *Ledger) History(id int64) ([]domain.Transaction, error) {
	a, err := l.lookup(id)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Transaction, len(a.history))
	copy(out, a.history)
	return out, nil
}

// Deposit adds amount to the account's balance and appends a deposit entry.
// Amounts must be strictly positive; nothing is mutated on rejection.
func (l *Ledger) Deposit(id int64, amount decimal.Decimal) (domain.Account, error) {
	if amount.Sign() <= 0 {
		return domain.Account{}, ErrInvalidAmount
	}
	a, err := l.lookup(id)
	if err != nil {
		return domain.Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.append(domain.KindDeposit, amount, 0)
	return a.snapshot(), nil
}

// Withdraw subtracts amount from the account's balance and appends a
// withdrawal entry. It fails without side effects when funds are
// insufficient; the balance never goes negative.
func (l *Ledger) Withdraw(id int64, amount decimal.Decimal) (domain.Account, error) {
	if amount.Sign() <= 0 {
		return domain.Account{}, ErrInvalidAmount
	}
	a, err := l.lookup(id)
	if err != nil {
		return domain.Account{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance.Cmp(amount) < 0 {
		return domain.Account{}, ErrInsufficientFunds
	}
	a.append(domain.KindWithdrawal, amount, 0)
	return a.snapshot(), nil
}

// Transfer debits fromID and credits toID as one atomic pair: either both
// accounts change and both record a history entry naming the counterparty,
// or neither is touched. Both account locks are acquired in ascending ID
// order and held for the duration, so concurrent opposing transfers cannot
// deadlock and no reader observes a debit without its credit.
func (l *Ledger) Transfer(fromID, toID int64, amount decimal.Decimal) (from, to domain.Account, err error) {
	if amount.Sign() <= 0 {
		return from, to, ErrInvalidAmount
	}
	if fromID == toID {
		return from, to, ErrSelfTransfer
	}

	l.mu.RLock()
	src, okSrc := l.accounts[fromID]
	dst, okDst := l.accounts[toID]
	l.mu.RUnlock()
	if !okSrc || !okDst {
		return from, to, ErrAccountNotFound
	}

	first, second := src, dst
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if src.balance.Cmp(amount) < 0 {
		return from, to, ErrInsufficientFunds
	}
	src.append(domain.KindTransferOut, amount, dst.id)
	dst.append(domain.KindTransferIn, amount, src.id)
	return src.snapshot(), dst.snapshot(), nil
}

func (l *Ledger) lookup(id int64) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}
