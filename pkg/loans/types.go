// Package loans implements the amortization and dynamic rescheduling engine.
// Every function here is a pure computation over its inputs: the schedule is
// never persisted, it is recomputed wholesale on every call and identical
// inputs always yield identical output.
package loans

import "time"

// InterestPeriod scopes the nominal interest rate of a loan.
type InterestPeriod string

const (
	// PeriodMonthly means the nominal rate is already a monthly rate.
	PeriodMonthly InterestPeriod = "monthly"

	// PeriodYearly means the nominal rate is annual and is converted to an
	// effective monthly rate via compound conversion.
	PeriodYearly InterestPeriod = "yearly"
)

// InterestType selects the schedule shape for a fixed-term loan.
type InterestType string

const (
	// TypeFixedInstallment is constant-payment (French/Price) amortization.
	TypeFixedInstallment InterestType = "fixedInstallment"

	// TypeCompound splits the total compounded interest equally across
	// periods. This is a simplified equal-split schedule, not a true
	// compound-interest amortization.
	TypeCompound InterestType = "compound"
)

// RestructurePolicy controls how the schedule absorbs a deviation between
// the running balance and the original projection.
type RestructurePolicy string

const (
	// RestructureTermFixed holds the term and recomputes the payment amount
	// for the remaining periods. This is the default.
	RestructureTermFixed RestructurePolicy = "termFixed"

	// RestructurePaymentFixed holds the payment amount; a reduced balance
	// instead pays the loan down ahead of schedule.
	RestructurePaymentFixed RestructurePolicy = "paymentFixed"
)

// InstallmentStatus classifies one scheduled installment against payment
// history and the current date.
type InstallmentStatus string

const (
	StatusPending InstallmentStatus = "pending"
	StatusPaid    InstallmentStatus = "paid"
	StatusLate    InstallmentStatus = "late"
)

// LoanDefinition holds the parameters of a loan. Identity and bookkeeping
// fields (id, owner, display name) belong to the store, not the engine.
type LoanDefinition struct {
	Principal      float64
	InterestRate   float64
	InterestPeriod InterestPeriod
	InterestType   InterestType
	TermMonths     int // 0 means indefinite term
	StartDate      time.Time
}

// Payment is one real-world payment event. The list of payments is the sole
// mutable state of a loan; the engine consumes it read-only.
type Payment struct {
	Amount float64
	Date   time.Time
	Note   string

	// InstallmentNumber pins the payment to a projected installment slot.
	// It is produced by the engine (see PinPayments), never assigned ad hoc
	// by callers.
	InstallmentNumber int
}

// Installment is one scheduled payment obligation. Installments are wholly
// derived and never persisted.
type Installment struct {
	Number          int
	DueDate         time.Time
	Amount          float64
	InterestAmount  float64
	PrincipalAmount float64
	BalanceBefore   float64
	Balance         float64
	Status          InstallmentStatus
	PaidAt          *time.Time
	DaysElapsed     int

	// SourcePayment is the index into the input payment list of the payment
	// that completed funding this installment, or -1 when none did.
	SourcePayment int
}

// Projection is the output of the fixed-term projector.
type Projection struct {
	TotalAmount    float64
	MonthlyPayment float64
	Installments   []Installment
}

// Accrual is the output of the point-in-time debt accrual used for
// indefinite-term loans.
type Accrual struct {
	CurrentBalance      float64
	TotalPaid           float64
	AccumulatedInterest float64
}

// Reconciliation is the output of the dynamic reconciliation engine.
type Reconciliation struct {
	Installments   []Installment
	CurrentBalance float64
	TotalPaid      float64
}

// Options tunes reconciliation behavior. The zero value reproduces the
// default semantics: term-fixed restructuring and a full-length schedule
// even after the balance reaches zero.
type Options struct {
	Restructure RestructurePolicy

	// TruncateOnPayoff drops trailing installments once the running balance
	// reaches zero instead of synthesizing near-zero rows.
	TruncateOnPayoff bool
}
