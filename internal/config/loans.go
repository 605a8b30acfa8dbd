package config

import (
	"fmt"
	"time"

	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/pfallmann/loantrack/pkg/loans"
)

// Loan indicates a loan and its parameters as configured.
type Loan struct {
	Name           string  `yaml:"name"`
	Principal      float64 `yaml:"principal"`
	InterestRate   float64 `yaml:"interestRate"`
	InterestPeriod string  `yaml:"interestPeriod,omitempty"` // monthly (default), yearly
	InterestType   string  `yaml:"interestType,omitempty"`   // fixedInstallment (default), compound
	TermMonths     int     `yaml:"termMonths,omitempty"`     // 0 means indefinite
	StartDate      string  `yaml:"startDate"`
	Payments       []Entry `yaml:"payments,omitempty"`
}

// Entry is one configured payment record.
type Entry struct {
	Amount            float64 `yaml:"amount"`
	Date              string  `yaml:"date"`
	Note              string  `yaml:"note,omitempty"`
	InstallmentNumber int     `yaml:"installmentNumber,omitempty"`
}

// Definition converts the configured loan into an engine LoanDefinition.
func (l *Loan) Definition() (loans.LoanDefinition, error) {
	start, err := time.Parse(constants.DateLayout, l.StartDate)
	if err != nil {
		return loans.LoanDefinition{}, fmt.Errorf("loan %s: invalid startDate %q: %w", l.Name, l.StartDate, err)
	}
	period := loans.InterestPeriod(l.InterestPeriod)
	if l.InterestPeriod == "" {
		period = loans.PeriodMonthly
	}
	interestType := loans.InterestType(l.InterestType)
	if l.InterestType == "" {
		interestType = loans.TypeFixedInstallment
	}

	return loans.LoanDefinition{
		Principal:      l.Principal,
		InterestRate:   l.InterestRate,
		InterestPeriod: period,
		InterestType:   interestType,
		TermMonths:     l.TermMonths,
		StartDate:      start,
	}, nil
}

// PaymentList converts the configured payment entries into engine Payments.
// Zero-amount entries are dropped, matching the convention that a zeroed
// amount means the payment was deleted.
func (l *Loan) PaymentList() ([]loans.Payment, error) {
	payments := make([]loans.Payment, 0, len(l.Payments))
	for i, entry := range l.Payments {
		if entry.Amount == 0 {
			continue
		}
		var parsed time.Time
		if entry.Date != "" {
			var err error
			parsed, err = time.Parse(constants.DateLayout, entry.Date)
			if err != nil {
				return nil, fmt.Errorf("loan %s: payment %d has invalid date %q: %w", l.Name, i+1, entry.Date, err)
			}
		}
		payments = append(payments, loans.Payment{
			Amount:            entry.Amount,
			Date:              parsed,
			Note:              entry.Note,
			InstallmentNumber: entry.InstallmentNumber,
		})
	}
	return payments, nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Warnings do not block a run; loans with fatal problems
// surface errors from Definition instead.
func (conf *Configuration) ValidateConfiguration() []string {
	var warnings []string
	seen := make(map[string]bool)
	for i, loan := range conf.Loans {
		label := loan.Name
		if label == "" {
			label = fmt.Sprintf("loan #%d", i+1)
			warnings = append(warnings, fmt.Sprintf("%s has no name", label))
		}
		if seen[loan.Name] && loan.Name != "" {
			warnings = append(warnings, fmt.Sprintf("duplicate loan name %q", loan.Name))
		}
		seen[loan.Name] = true

		if loan.Principal <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s has a non-positive principal", label))
		}
		if loan.InterestRate < 0 {
			warnings = append(warnings, fmt.Sprintf("%s has a negative interest rate", label))
		}
		if loan.TermMonths < 0 {
			warnings = append(warnings, fmt.Sprintf("%s has a negative term", label))
		}
		switch loan.InterestPeriod {
		case "", string(loans.PeriodMonthly), string(loans.PeriodYearly):
		default:
			warnings = append(warnings, fmt.Sprintf("%s has unknown interestPeriod %q", label, loan.InterestPeriod))
		}
		switch loan.InterestType {
		case "", string(loans.TypeFixedInstallment), string(loans.TypeCompound):
		default:
			warnings = append(warnings, fmt.Sprintf("%s has unknown interestType %q", label, loan.InterestType))
		}
		for j, entry := range loan.Payments {
			if entry.Amount < 0 {
				warnings = append(warnings, fmt.Sprintf("%s payment %d has a negative amount", label, j+1))
			}
		}
	}
	return warnings
}
