// Package store holds the in-memory transaction population. It is the
// only mutable shared state in the service: reads and the single
// mutation path (status updates) are safe under concurrent access.
package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/banking/fincrime-service/internal/domain"
)

// FilterAll is the wildcard value the review UI sends for an
// unconstrained dropdown field.
const FilterAll = "All"

// Filter narrows a transaction query. Set fields are AND-combined;
// empty fields (and FilterAll on the dropdown fields) leave the
// dimension unconstrained.
type Filter struct {
	// IDSubstring matches case-insensitively anywhere in the id.
	IDSubstring   string
	RiskIndicator string
	Status        string
	From          time.Time
	To            time.Time
}

// Matches reports whether a transaction passes every set constraint
func (f Filter) Matches(tx *domain.Transaction) bool {
	if f.IDSubstring != "" &&
		!strings.Contains(strings.ToLower(tx.ID), strings.ToLower(f.IDSubstring)) {
		return false
	}
	if f.RiskIndicator != "" && f.RiskIndicator != FilterAll &&
		string(tx.RiskIndicator) != f.RiskIndicator {
		return false
	}
	if f.Status != "" && f.Status != FilterAll &&
		string(tx.Status) != f.Status {
		return false
	}
	if !f.From.IsZero() && tx.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Timestamp.After(f.To) {
		return false
	}
	return true
}

// TransactionStore keeps the population keyed by id, preserving
// insertion order for queries. Transactions are cloned on the way in
// and on the way out so no caller ever shares mutable state with the
// store.
type TransactionStore struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Transaction
	order []string
}

// New creates an empty transaction store
func New() *TransactionStore {
	return &TransactionStore{
		byID: make(map[string]*domain.Transaction),
	}
}

// Add inserts a transaction. A nil transaction, an empty id, or an id
// already present returns ErrInvalidArgument.
func (s *TransactionStore) Add(tx *domain.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction is nil", domain.ErrInvalidArgument)
	}
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is empty", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[tx.ID]; exists {
		return fmt.Errorf("%w: duplicate transaction id %s", domain.ErrInvalidArgument, tx.ID)
	}

	s.byID[tx.ID] = tx.Clone()
	s.order = append(s.order, tx.ID)
	return nil
}

// Get returns a copy of the transaction with the given id
func (s *TransactionStore) Get(id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return tx.Clone(), nil
}

// UpdateStatus moves a transaction through the review workflow and
// returns the updated copy. An unknown status value returns
// ErrInvalidArgument; an unknown id returns ErrNotFound. The population
// is untouched on either error.
func (s *TransactionStore) UpdateStatus(id string, status domain.TransactionStatus) (*domain.Transaction, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}

	tx.Status = status
	return tx.Clone(), nil
}

// Query returns copies of the transactions passing the filter, in
// insertion order
func (s *TransactionStore) Query(filter Filter) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.order))
	for _, id := range s.order {
		tx := s.byID[id]
		if filter.Matches(tx) {
			out = append(out, *tx.Clone())
		}
	}
	return out
}

// All returns copies of the full population in insertion order
func (s *TransactionStore) All() []domain.Transaction {
	return s.Query(Filter{})
}

// ForCustomer returns copies of the customer's transactions in
// insertion order. Pattern detection reads its history through this.
func (s *TransactionStore) ForCustomer(customerID string) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, id := range s.order {
		tx := s.byID[id]
		if tx.CustomerID == customerID {
			out = append(out, *tx.Clone())
		}
	}
	return out
}

// Len returns the population size
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
