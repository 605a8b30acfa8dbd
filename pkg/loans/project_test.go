package loans

import (
	"math"
	"testing"
	"time"

	"github.com/pfallmann/loantrack/pkg/datetime"
)

func referenceLoan() LoanDefinition {
	return LoanDefinition{
		Principal:      1200,
		InterestRate:   2.0,
		InterestPeriod: PeriodMonthly,
		InterestType:   TypeFixedInstallment,
		TermMonths:     12,
		StartDate:      datetime.MustParseTime(datetime.DateLayout, "2024-01-01"),
	}
}

func TestProjectReferenceLoan(t *testing.T) {
	projection := Project(referenceLoan())

	if math.Abs(projection.MonthlyPayment-113.47) > 0.05 {
		t.Errorf("MonthlyPayment = %.4f, expected ~113.47", projection.MonthlyPayment)
	}
	if len(projection.Installments) != 12 {
		t.Fatalf("installment count = %d, expected 12", len(projection.Installments))
	}

	first := projection.Installments[0]
	if math.Abs(first.InterestAmount-24.00) > 0.01 {
		t.Errorf("first interest = %.4f, expected 24.00", first.InterestAmount)
	}
	if math.Abs(first.PrincipalAmount-89.47) > 0.05 {
		t.Errorf("first principal = %.4f, expected ~89.47", first.PrincipalAmount)
	}
	if math.Abs(first.Balance-1110.53) > 0.05 {
		t.Errorf("first balance = %.4f, expected ~1110.53", first.Balance)
	}
	if !first.DueDate.Equal(datetime.MustParseTime(datetime.DateLayout, "2024-02-01")) {
		t.Errorf("first due date = %v, expected 2024-02-01", first.DueDate)
	}
}

func TestProjectAnnuityInvariants(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		period    InterestPeriod
		term      int
	}{
		{"Short monthly loan", 1200, 2.0, PeriodMonthly, 12},
		{"Long yearly loan", 250000, 5.5, PeriodYearly, 360},
		{"Zero rate loan", 9000, 0, PeriodMonthly, 36},
		{"Single installment", 500, 3.0, PeriodMonthly, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := LoanDefinition{
				Principal:      tt.principal,
				InterestRate:   tt.rate,
				InterestPeriod: tt.period,
				InterestType:   TypeFixedInstallment,
				TermMonths:     tt.term,
				StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			projection := Project(loan)

			if len(projection.Installments) != tt.term {
				t.Fatalf("installment count = %d, expected %d", len(projection.Installments), tt.term)
			}

			var principalSum, amountSum float64
			for _, inst := range projection.Installments {
				if math.Abs(inst.Amount-(inst.InterestAmount+inst.PrincipalAmount)) > 0.01 {
					t.Errorf("installment %d: amount %.4f != interest %.4f + principal %.4f",
						inst.Number, inst.Amount, inst.InterestAmount, inst.PrincipalAmount)
				}
				principalSum += inst.PrincipalAmount
				amountSum += inst.Amount
			}
			if math.Abs(principalSum-tt.principal) > 0.01 {
				t.Errorf("principal sum = %.4f, expected %.2f", principalSum, tt.principal)
			}
			if math.Abs(amountSum-projection.TotalAmount) > 0.01 {
				t.Errorf("amount sum = %.4f, TotalAmount = %.4f", amountSum, projection.TotalAmount)
			}
		})
	}
}

func TestProjectZeroRateDegeneration(t *testing.T) {
	loan := referenceLoan()
	loan.InterestRate = 0

	projection := Project(loan)
	for _, inst := range projection.Installments {
		if math.Abs(inst.Amount-100.0) > 0.01 {
			t.Errorf("installment %d amount = %.4f, expected 100.00", inst.Number, inst.Amount)
		}
		if inst.InterestAmount != 0 {
			t.Errorf("installment %d interest = %.4f, expected 0", inst.Number, inst.InterestAmount)
		}
	}
}

func TestProjectCompoundEqualSplit(t *testing.T) {
	// The compound type is a named approximation: the fully compounded total
	// is split evenly, it is not a true amortization.
	loan := referenceLoan()
	loan.InterestType = TypeCompound

	projection := Project(loan)
	finalAmount := 1200 * math.Pow(1.02, 12)
	if math.Abs(projection.TotalAmount-finalAmount) > 0.01 {
		t.Errorf("TotalAmount = %.4f, expected %.4f", projection.TotalAmount, finalAmount)
	}

	wantPayment := finalAmount / 12
	wantPrincipal := 1200.0 / 12
	wantInterest := (finalAmount - 1200) / 12
	for _, inst := range projection.Installments {
		if math.Abs(inst.Amount-wantPayment) > 0.01 {
			t.Errorf("installment %d amount = %.4f, expected %.4f", inst.Number, inst.Amount, wantPayment)
		}
		if math.Abs(inst.PrincipalAmount-wantPrincipal) > 0.01 {
			t.Errorf("installment %d principal = %.4f, expected %.4f", inst.Number, inst.PrincipalAmount, wantPrincipal)
		}
		if math.Abs(inst.InterestAmount-wantInterest) > 0.01 {
			t.Errorf("installment %d interest = %.4f, expected %.4f", inst.Number, inst.InterestAmount, wantInterest)
		}
	}
	if last := projection.Installments[11]; last.Balance != 0 {
		t.Errorf("final balance = %.4f, expected 0", last.Balance)
	}
}

func TestProjectIndefiniteTerm(t *testing.T) {
	loan := referenceLoan()
	loan.TermMonths = 0

	projection := Project(loan)
	if projection.TotalAmount != 1200 {
		t.Errorf("TotalAmount = %.4f, expected principal 1200", projection.TotalAmount)
	}
	if math.Abs(projection.MonthlyPayment-24.0) > 0.01 {
		t.Errorf("MonthlyPayment = %.4f, expected 24.00 (one month of interest)", projection.MonthlyPayment)
	}
	if len(projection.Installments) != 0 {
		t.Errorf("installments = %d, expected none for indefinite term", len(projection.Installments))
	}
}

func TestProjectInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		loan LoanDefinition
	}{
		{"Negative principal", LoanDefinition{Principal: -100, TermMonths: 12}},
		{"Zero principal", LoanDefinition{Principal: 0, TermMonths: 12}},
		{"NaN principal", LoanDefinition{Principal: math.NaN(), TermMonths: 12}},
		{"Negative rate", LoanDefinition{Principal: 100, InterestRate: -1, TermMonths: 12}},
		{"Negative term", LoanDefinition{Principal: 100, TermMonths: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projection := Project(tt.loan)
			if projection.TotalAmount != 0 || projection.MonthlyPayment != 0 || len(projection.Installments) != 0 {
				t.Errorf("Project() = %+v, expected zeroed result", projection)
			}
		})
	}
}
