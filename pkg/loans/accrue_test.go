package loans

import (
	"math"
	"testing"
	"time"
)

func indefiniteLoan() LoanDefinition {
	return LoanDefinition{
		Principal:      1000,
		InterestRate:   1.0,
		InterestPeriod: PeriodMonthly,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAccrueNoPayments(t *testing.T) {
	loan := indefiniteLoan()

	// Thirty days of daily compounding equals one month at the monthly rate.
	asOf := loan.StartDate.AddDate(0, 0, 30)
	accrual := Accrue(loan, nil, asOf)

	if math.Abs(accrual.CurrentBalance-1010.0) > 0.01 {
		t.Errorf("CurrentBalance = %.4f, expected 1010.00", accrual.CurrentBalance)
	}
	if math.Abs(accrual.AccumulatedInterest-10.0) > 0.01 {
		t.Errorf("AccumulatedInterest = %.4f, expected 10.00", accrual.AccumulatedInterest)
	}
	if accrual.TotalPaid != 0 {
		t.Errorf("TotalPaid = %.4f, expected 0", accrual.TotalPaid)
	}
}

func TestAccrueAppliesPaymentsChronologically(t *testing.T) {
	loan := indefiniteLoan()
	payments := []Payment{
		{Amount: 500, Date: loan.StartDate.AddDate(0, 0, 30)},
	}

	asOf := loan.StartDate.AddDate(0, 0, 60)
	accrual := Accrue(loan, payments, asOf)

	// 1000 grows to 1010 over 30 days, the payment brings it to 510, and
	// another 30 days adds 5.10.
	if math.Abs(accrual.CurrentBalance-515.10) > 0.01 {
		t.Errorf("CurrentBalance = %.4f, expected 515.10", accrual.CurrentBalance)
	}
	if accrual.TotalPaid != 500 {
		t.Errorf("TotalPaid = %.4f, expected 500", accrual.TotalPaid)
	}
}

func TestAccrueIgnoresFuturePayments(t *testing.T) {
	loan := indefiniteLoan()
	payments := []Payment{
		{Amount: 500, Date: loan.StartDate.AddDate(0, 0, 45)},
	}

	asOf := loan.StartDate.AddDate(0, 0, 30)
	accrual := Accrue(loan, payments, asOf)

	if math.Abs(accrual.CurrentBalance-1010.0) > 0.01 {
		t.Errorf("CurrentBalance = %.4f, expected 1010.00 with future payment ignored", accrual.CurrentBalance)
	}
	if accrual.TotalPaid != 0 {
		t.Errorf("TotalPaid = %.4f, expected 0 with future payment ignored", accrual.TotalPaid)
	}
}

func TestAccrueFloorsBalanceAtZero(t *testing.T) {
	loan := indefiniteLoan()
	payments := []Payment{
		{Amount: 5000, Date: loan.StartDate.AddDate(0, 0, 10)},
	}

	accrual := Accrue(loan, payments, loan.StartDate.AddDate(0, 0, 90))
	if accrual.CurrentBalance != 0 {
		t.Errorf("CurrentBalance = %.4f, expected floor at 0", accrual.CurrentBalance)
	}
}

func TestAccrueSubstitutesInvalidPaymentDates(t *testing.T) {
	loan := indefiniteLoan()
	payments := []Payment{
		{Amount: 200}, // zero date falls back to the loan start
	}

	accrual := Accrue(loan, payments, loan.StartDate.AddDate(0, 0, 30))
	// The payment applies on day zero, so only 800 accrues interest.
	if math.Abs(accrual.CurrentBalance-808.0) > 0.01 {
		t.Errorf("CurrentBalance = %.4f, expected 808.00", accrual.CurrentBalance)
	}
}
