package loans

import (
	"math"
	"sort"
	"time"

	"github.com/pfallmann/loantrack/pkg/datetime"
)

// Accrue walks the payment history of an indefinite-term loan
// chronologically from the start date, compounding interest daily between
// events, and returns the state of the debt as of asOf. Payments dated after
// asOf are ignored. The balance is floored at zero.
func Accrue(loan LoanDefinition, payments []Payment, asOf time.Time) Accrual {
	if !validLoan(loan) {
		return Accrual{}
	}

	rate := MonthlyRate(loan.InterestRate, loan.InterestPeriod)
	daily := DailyRate(rate)

	applied := make([]Payment, 0, len(payments))
	for _, p := range payments {
		date := datetime.Fallback(p.Date, loan.StartDate)
		if datetime.SameOrBefore(date, asOf) {
			p.Date = date
			applied = append(applied, p)
		}
	}
	sort.SliceStable(applied, func(i, j int) bool {
		return applied[i].Date.Before(applied[j].Date)
	})

	accrual := Accrual{CurrentBalance: loan.Principal}
	cursor := loan.StartDate

	for _, p := range applied {
		days := datetime.DaysBetween(cursor, p.Date)
		if days > 0 {
			interest := accrual.CurrentBalance * (math.Pow(1.0+daily, float64(days)) - 1.0)
			accrual.CurrentBalance += interest
			accrual.AccumulatedInterest += interest
			cursor = p.Date
		}
		accrual.CurrentBalance -= p.Amount
		accrual.TotalPaid += p.Amount
	}

	if days := datetime.DaysBetween(cursor, asOf); days > 0 && accrual.CurrentBalance > 0 {
		interest := accrual.CurrentBalance * (math.Pow(1.0+daily, float64(days)) - 1.0)
		accrual.CurrentBalance += interest
		accrual.AccumulatedInterest += interest
	}

	if accrual.CurrentBalance < 0 {
		accrual.CurrentBalance = 0
	}
	return accrual
}
