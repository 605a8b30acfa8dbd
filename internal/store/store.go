// Package store persists loans and their payment lists. The engine never
// touches storage; callers read records here, reconcile in memory, and write
// edited payment lists back wholesale.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pfallmann/loantrack/pkg/loans"
)

// Loan is the persisted form of a loan definition plus its bookkeeping
// fields. Monetary values are decimals so nothing is lost round-tripping
// through storage; the engine works on float64 views of them.
type Loan struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	InterestPeriod string          `json:"interest_period"`
	InterestType   string          `json:"interest_type"`
	TermMonths     int             `json:"term_months"`
	StartDate      time.Time       `json:"start_date"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Payment is the persisted form of one payment event. Position preserves the
// list order the caller submitted; the ephemeral UI row identity is never
// persisted.
type Payment struct {
	ID                uuid.UUID       `json:"id"`
	LoanID            uuid.UUID       `json:"loan_id"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	Note              string          `json:"note,omitempty"`
	InstallmentNumber int             `json:"installment_number,omitempty"`
	Position          int             `json:"position"`
}

// Definition converts the stored loan to its engine form.
func (l *Loan) Definition() loans.LoanDefinition {
	return loans.LoanDefinition{
		Principal:      l.Principal.InexactFloat64(),
		InterestRate:   l.InterestRate.InexactFloat64(),
		InterestPeriod: loans.InterestPeriod(l.InterestPeriod),
		InterestType:   loans.InterestType(l.InterestType),
		TermMonths:     l.TermMonths,
		StartDate:      l.StartDate,
	}
}

// Engine converts a stored payment to its engine form.
func (p *Payment) Engine() loans.Payment {
	return loans.Payment{
		Amount:            p.Amount.InexactFloat64(),
		Date:              p.Date,
		Note:              p.Note,
		InstallmentNumber: p.InstallmentNumber,
	}
}

// EnginePayments converts a stored payment list to its engine form.
func EnginePayments(records []*Payment) []loans.Payment {
	payments := make([]loans.Payment, len(records))
	for i, record := range records {
		payments[i] = record.Engine()
	}
	return payments
}

// Storage defines the interface for database operations related to loans and
// payments.
type Storage interface {
	CreateLoan(loan *Loan) error
	GetLoan(id uuid.UUID) (*Loan, error)
	UpdateLoan(loan *Loan) error
	DeleteLoan(id uuid.UUID) error
	GetAllLoans() ([]*Loan, error)

	// ReplacePayments swaps the entire payment list of a loan in one
	// transaction: the caller reconciles edits into a canonical list and the
	// store persists it wholesale.
	ReplacePayments(loanID uuid.UUID, payments []*Payment) error
	GetPaymentsForLoan(loanID uuid.UUID) ([]*Payment, error)

	Close() error
}
