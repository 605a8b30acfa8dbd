package loans

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/pfallmann/loantrack/pkg/datetime"
	"github.com/pfallmann/loantrack/pkg/mathutil"
)

// OverrideTag in a payment note marks the payment as a pending/rescheduled
// projection rather than a completed payment. The engine does not consume it;
// callers filter override payments out before reconciling actuals.
const OverrideTag = "OVERRIDE"

// IsOverride reports whether the payment carries the reconciliation tag.
func (p Payment) IsOverride() bool {
	return strings.Contains(p.Note, OverrideTag)
}

// Reconcile matches payment history against the projected schedule using the
// wall clock and default options.
func Reconcile(loan LoanDefinition, payments []Payment) Reconciliation {
	return ReconcileAt(loan, payments, time.Now(), Options{})
}

// ReconcileAt produces the dynamic schedule for a fixed-term loan: each
// installment classified as paid, late, or pending based on FIFO consumption
// of the payment pool, with future installment amounts recomputed whenever
// the running balance diverges from the original projection.
//
// The computation is a pure projection: it holds no state between calls and
// identical inputs yield identical output. Indefinite-term loans delegate to
// Accrue and return no installments.
func ReconcileAt(loan LoanDefinition, payments []Payment, now time.Time, opts Options) Reconciliation {
	if !validLoan(loan) || !validPayments(payments) {
		return Reconciliation{}
	}

	var totalPaid float64
	for _, p := range payments {
		totalPaid += p.Amount
	}

	if loan.TermMonths < 1 {
		accrual := Accrue(loan, payments, now)
		return Reconciliation{
			CurrentBalance: accrual.CurrentBalance,
			TotalPaid:      totalPaid,
		}
	}

	rate := MonthlyRate(loan.InterestRate, loan.InterestPeriod)
	n := loan.TermMonths

	sorted := sortedFunding(loan, payments)
	prefix := make([]float64, len(sorted)+1)
	for i, p := range sorted {
		prefix[i+1] = prefix[i] + p.Amount
	}

	result := Reconciliation{
		TotalPaid:      totalPaid,
		CurrentBalance: loan.Principal,
		Installments:   make([]Installment, 0, n),
	}

	balance := loan.Principal
	payment := AnnuityPayment(balance, rate, n)
	pool := totalPaid
	consumed := 0.0
	prevEvent := loan.StartDate

	for i := 1; i <= n; i++ {
		dueDate := datetime.OffsetMonths(loan.StartDate, i)
		inst := Installment{
			Number:        i,
			DueDate:       dueDate,
			BalanceBefore: balance,
			SourcePayment: -1,
		}

		interest := balance * rate
		amortization := mathutil.Clamp(payment-interest, 0, balance)
		value := interest + amortization

		if pool >= value-constants.PaymentPoolEpsilon {
			// The pool covers this installment in full.
			pool -= value
			consumed += value
			balance -= amortization
			inst.Status = StatusPaid
			if value > constants.PaymentPoolEpsilon {
				if k := fundingIndex(prefix, consumed); k >= 0 {
					inst.SourcePayment = sorted[k].index
					paidAt := paidAtFor(sorted[:k+1], dueDate)
					inst.PaidAt = &paidAt
				}
			}
		} else {
			if pool > 0 {
				// Partial payment: interest first, remainder to principal.
				interestPaid := math.Min(pool, interest)
				balance -= pool - interestPaid
				consumed += pool
				pool = 0
			}

			if dueDate.Before(now) {
				inst.Status = StatusLate
			} else {
				inst.Status = StatusPending
			}

			// The balance diverged from the original projection, so the
			// payment amount is restructured here. Term-fixed holds the
			// remaining term and recomputes the annuity; payment-fixed
			// keeps the original amount and lets the schedule run down
			// early instead.
			if opts.Restructure != RestructurePaymentFixed {
				payment = AnnuityPayment(balance, rate, n-i+1)
			}

			interest = balance * rate
			amortization = mathutil.Clamp(payment-interest, 0, balance)
			value = interest + amortization

			if inst.Status == StatusPending {
				// Simulate on-schedule amortization so later periods accrue
				// interest against the post-amortization balance. Late
				// installments leave the balance untouched.
				balance -= amortization
			}
		}

		inst.Amount = value
		inst.InterestAmount = interest
		inst.PrincipalAmount = amortization
		inst.Balance = balance

		event := dueDate
		if inst.PaidAt != nil {
			event = *inst.PaidAt
		}
		inst.DaysElapsed = datetime.DaysBetween(prevEvent, event)
		prevEvent = event

		if datetime.SameOrBefore(dueDate, now) {
			result.CurrentBalance = balance
		}

		result.Installments = append(result.Installments, inst)

		if opts.TruncateOnPayoff && mathutil.IsZero(balance) && pool <= constants.PaymentPoolEpsilon {
			break
		}
	}

	return result
}

// PinPayments returns a copy of payments with InstallmentNumber set from the
// reconciliation's funding attribution, making the payment-to-installment
// join key engine-produced. A payment that completed several installments is
// pinned to the first one.
func PinPayments(payments []Payment, rec Reconciliation) []Payment {
	pinned := make([]Payment, len(payments))
	copy(pinned, payments)
	for _, inst := range rec.Installments {
		if inst.SourcePayment < 0 || inst.SourcePayment >= len(pinned) {
			continue
		}
		if pinned[inst.SourcePayment].InstallmentNumber == 0 {
			pinned[inst.SourcePayment].InstallmentNumber = inst.Number
		}
	}
	return pinned
}

type fundingPayment struct {
	index int
	Payment
}

// sortedFunding returns the positive payments in chronological order,
// remembering their original list positions and substituting the loan start
// date for unusable payment dates.
func sortedFunding(loan LoanDefinition, payments []Payment) []fundingPayment {
	funding := make([]fundingPayment, 0, len(payments))
	for i, p := range payments {
		if p.Amount <= 0 {
			continue
		}
		p.Date = datetime.Fallback(p.Date, loan.StartDate)
		funding = append(funding, fundingPayment{index: i, Payment: p})
	}
	sort.SliceStable(funding, func(i, j int) bool {
		return funding[i].Date.Before(funding[j].Date)
	})
	return funding
}

// fundingIndex locates the payment whose funds completed the given
// cumulative consumption, or -1 when there are no payments.
func fundingIndex(prefix []float64, consumed float64) int {
	for k := 1; k < len(prefix); k++ {
		if prefix[k] >= consumed-constants.PaymentPoolEpsilon {
			return k - 1
		}
	}
	return len(prefix) - 2
}

// paidAtFor picks the best-effort paid date for an installment: the latest
// payment dated on or before the due date among those consumed so far, else
// the date of the payment that completed the funding.
func paidAtFor(consumed []fundingPayment, dueDate time.Time) time.Time {
	var best time.Time
	for _, p := range consumed {
		if datetime.SameOrBefore(p.Date, dueDate) && p.Date.After(best) {
			best = p.Date
		}
	}
	if best.IsZero() {
		best = consumed[len(consumed)-1].Date
	}
	return datetime.Fallback(best, dueDate)
}

// validPayments rejects payment lists carrying non-finite amounts, which
// would otherwise propagate NaN through the whole schedule.
func validPayments(payments []Payment) bool {
	for _, p := range payments {
		if !mathutil.IsFinite(p.Amount) {
			return false
		}
	}
	return true
}
