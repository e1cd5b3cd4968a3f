package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// IDSource generates identifiers for loans, transactions and quoted terms
type IDSource interface {
	LoanID() string
	TransactionID() string
	TermsID(termCount int) string
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDSource generates random identifiers prefixed by their kind
type UUIDSource struct{}

// LoanID returns an identifier like "loan-<uuid>"
func (UUIDSource) LoanID() string {
	return "loan-" + uuid.NewString()
}

// TransactionID returns an identifier like "tx-<uuid>"
func (UUIDSource) TransactionID() string {
	return "tx-" + uuid.NewString()
}

// TermsID returns an identifier like "terms6-<uuid>"
func (UUIDSource) TermsID(termCount int) string {
	return fmt.Sprintf("terms%d-%s", termCount, uuid.NewString())
}

// FixedClock always returns the same instant. It is meant for tests and
// deterministic quoting.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.T
}

// SequenceSource generates predictable identifiers "loan-1", "tx-1", ...
type SequenceSource struct {
	mu    sync.Mutex
	loans int
	txs   int
	terms int
}

// LoanID returns the next sequential loan identifier
func (s *SequenceSource) LoanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans++
	return fmt.Sprintf("loan-%d", s.loans)
}

// TransactionID returns the next sequential transaction identifier
func (s *SequenceSource) TransactionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs++
	return fmt.Sprintf("tx-%d", s.txs)
}

// TermsID returns the next sequential terms identifier
func (s *SequenceSource) TermsID(termCount int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms++
	return fmt.Sprintf("terms%d-%d", termCount, s.terms)
}
