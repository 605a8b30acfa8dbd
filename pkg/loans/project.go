package loans

import (
	"math"

	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/pfallmann/loantrack/pkg/datetime"
	"github.com/pfallmann/loantrack/pkg/mathutil"
)

// Project produces the fixed-term schedule preview for a loan. For loans
// without a fixed term it returns the indefinite minimum-payment estimate:
// the principal as total and one month of interest as the payment, with no
// installments.
func Project(loan LoanDefinition) Projection {
	if !validLoan(loan) {
		return Projection{}
	}

	rate := MonthlyRate(loan.InterestRate, loan.InterestPeriod)
	if loan.TermMonths <= 0 {
		return Projection{
			TotalAmount:    loan.Principal,
			MonthlyPayment: loan.Principal * rate,
		}
	}

	if loan.InterestType == TypeCompound {
		return projectCompound(loan, rate)
	}
	return projectFixedInstallment(loan, rate)
}

// projectFixedInstallment builds a standard annuity (French/Price) schedule.
func projectFixedInstallment(loan LoanDefinition, rate float64) Projection {
	n := loan.TermMonths
	payment := AnnuityPayment(loan.Principal, rate, n)

	projection := Projection{
		MonthlyPayment: payment,
		Installments:   make([]Installment, 0, n),
	}

	balance := loan.Principal
	for i := 1; i <= n; i++ {
		interest := balance * rate
		principalPortion := payment - interest
		balanceBefore := balance
		balance -= principalPortion
		if i == n && mathutil.WithinTolerance(balance, 0, constants.FinalBalanceTolerance) {
			// Absorb accumulated float error on the final period.
			balance = 0
		}

		projection.Installments = append(projection.Installments, Installment{
			Number:          i,
			DueDate:         datetime.OffsetMonths(loan.StartDate, i),
			Amount:          payment,
			InterestAmount:  interest,
			PrincipalAmount: principalPortion,
			BalanceBefore:   balanceBefore,
			Balance:         balance,
			Status:          StatusPending,
			SourcePayment:   -1,
		})
		projection.TotalAmount += payment
	}

	return projection
}

// projectCompound splits the fully compounded total into equal parts: each
// period receives an equal share of interest and an equal share of
// principal. This is a deliberate simplification rather than a true
// compound-interest amortization.
func projectCompound(loan LoanDefinition, rate float64) Projection {
	n := loan.TermMonths
	finalAmount := loan.Principal * math.Pow(1.0+rate, float64(n))
	payment := finalAmount / float64(n)
	interestShare := (finalAmount - loan.Principal) / float64(n)
	principalShare := loan.Principal / float64(n)

	projection := Projection{
		TotalAmount:    finalAmount,
		MonthlyPayment: payment,
		Installments:   make([]Installment, 0, n),
	}

	balance := loan.Principal
	for i := 1; i <= n; i++ {
		balanceBefore := balance
		balance -= principalShare
		if i == n && mathutil.WithinTolerance(balance, 0, constants.FinalBalanceTolerance) {
			balance = 0
		}

		projection.Installments = append(projection.Installments, Installment{
			Number:          i,
			DueDate:         datetime.OffsetMonths(loan.StartDate, i),
			Amount:          payment,
			InterestAmount:  interestShare,
			PrincipalAmount: principalShare,
			BalanceBefore:   balanceBefore,
			Balance:         balance,
			Status:          StatusPending,
			SourcePayment:   -1,
		})
	}

	return projection
}

// validLoan rejects inputs that would propagate NaN or nonsense through the
// schedule. Callers validate first; this is the engine's own line of
// defense, returning zeroed results instead of poisoned ones.
func validLoan(loan LoanDefinition) bool {
	if !mathutil.IsFinite(loan.Principal) || !mathutil.IsFinite(loan.InterestRate) {
		return false
	}
	return loan.Principal > 0 && loan.InterestRate >= 0 && loan.TermMonths >= 0
}
