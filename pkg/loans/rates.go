package loans

import (
	"math"

	"github.com/pfallmann/loantrack/pkg/constants"
)

// MonthlyRate normalizes a nominal rate to an effective monthly rate. Yearly
// rates use the compound monthly-equivalent conversion, not division by 12.
func MonthlyRate(nominalRate float64, period InterestPeriod) float64 {
	if period == PeriodYearly {
		return math.Pow(1.0+nominalRate/constants.PercentageMultiplier, 1.0/constants.MonthsPerYear) - 1.0
	}
	return nominalRate / constants.PercentageMultiplier
}

// DailyRate derives the daily-compounded equivalent of a monthly rate using
// a 30-day month convention.
func DailyRate(monthlyRate float64) float64 {
	return math.Pow(1.0+monthlyRate, 1.0/constants.DaysPerMonth) - 1.0
}

// AnnuityPayment computes the constant payment that amortizes principal over
// termMonths at the given monthly rate. A zero rate degenerates to linear
// amortization.
func AnnuityPayment(principal, monthlyRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	if monthlyRate == 0 {
		return principal / float64(termMonths)
	}
	power := math.Pow(1.0+monthlyRate, float64(termMonths))
	return principal * (monthlyRate * power) / (power - 1.0)
}
